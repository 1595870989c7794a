package params

import (
	"context"
	"time"

	"github.com/MrEthical07/goIAM/password"
)

// Settings is the policy view of the parameter set. It is the provider the
// engine consults at call time.
type Settings struct {
	cache *Cache
}

// NewSettings wraps c.
func NewSettings(c *Cache) *Settings {
	return &Settings{cache: c}
}

// Cache returns the underlying cache.
func (s *Settings) Cache() *Cache {
	return s.cache
}

// PasswordPolicy resolves the current password rules. A min length of zero
// turns the length rule off.
func (s *Settings) PasswordPolicy(ctx context.Context) password.Policy {
	def := password.DefaultPolicy()
	return password.Policy{
		MinLength:        s.cache.Int(ctx, KeyPasswordMinLength, def.MinLength),
		RequireUppercase: s.cache.Bool(ctx, KeyPasswordRequireUppercase, def.RequireUppercase),
		RequireLowercase: s.cache.Bool(ctx, KeyPasswordRequireLowercase, def.RequireLowercase),
		RequireNumber:    s.cache.Bool(ctx, KeyPasswordRequireNumber, def.RequireNumber),
		RequireSymbol:    s.cache.Bool(ctx, KeyPasswordRequireSymbol, def.RequireSymbol),
	}
}

// PasswordExpiry is the lifetime of a newly set password.
func (s *Settings) PasswordExpiry(ctx context.Context) time.Duration {
	return days(s.cache.PositiveInt(ctx, KeyPasswordExpiryDays, 60))
}

// CodeTTL is the validity window of a verification code.
func (s *Settings) CodeTTL(ctx context.Context) time.Duration {
	return time.Duration(s.cache.PositiveInt(ctx, KeyCodeTTLMinutes, 10)) * time.Minute
}

// CodeMaxAttempts is the number of wrong submissions before a code locks.
func (s *Settings) CodeMaxAttempts(ctx context.Context) int {
	return s.cache.PositiveInt(ctx, KeyCodeMaxAttempts, 3)
}

// LoginLimits returns the failed-login budget and its window.
func (s *Settings) LoginLimits(ctx context.Context) (int, time.Duration) {
	return s.cache.PositiveInt(ctx, KeyMaxLoginAttempts, 3),
		time.Duration(s.cache.PositiveInt(ctx, KeyLockDurationMinutes, 15)) * time.Minute
}

// SessionTimeout is the client idle timeout.
func (s *Settings) SessionTimeout(ctx context.Context) time.Duration {
	return time.Duration(s.cache.PositiveInt(ctx, KeySessionTimeoutMinutes, 30)) * time.Minute
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}
