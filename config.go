package goIAM

import (
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/goIAM/jwt"
	"github.com/MrEthical07/goIAM/params"
)

// Config defines a public type used by goIAM APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	JWT       JWTConfig
	Password  PasswordConfig
	Code      CodeConfig
	RateLimit RateLimitConfig
	Params    ParamsConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
	Access    AccessConfig
	Mail      MailConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig defines a public type used by goIAM APIs.
//
// JWTConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type JWTConfig struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
	Leeway time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds the Argon2id cost parameters. Policy rules live in
// system parameters, not here.
type PasswordConfig struct {
	Memory         uint32
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	UpgradeOnLogin bool
}

/*
====================================
CODE CONFIG
====================================
*/

// CodeConfig bounds how often codes may be requested. Code TTL and attempt
// budget come from system parameters.
type CodeConfig struct {
	RequestMax    int
	RequestWindow time.Duration
}

// RateLimitConfig defines a public type used by goIAM APIs.
//
// RateLimitConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RateLimitConfig struct {
	Namespace        string
	EnableIPThrottle bool
}

// ParamsConfig controls the system parameter cache.
type ParamsConfig struct {
	CacheTTL time.Duration
}

// AuditConfig defines a public type used by goIAM APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
	// EnqueueTimeout bounds how long a request waits for buffer room when
	// DropIfFull is off. Zero waits for the request context.
	EnqueueTimeout time.Duration
	// Retention is the age after which audit entries are removed by the
	// cleanup job. Zero keeps entries forever.
	Retention time.Duration
}

// MetricsConfig defines a public type used by goIAM APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled bool
}

// AccessConfig carries the environment-driven authorization overrides.
// Both are passed in explicitly; nothing below the builder reads the
// environment.
type AccessConfig struct {
	SuperadminEmails []string
	// DevBypass makes the auth gate inject a wildcard identity. It is
	// rejected when ProductionMode is set.
	DevBypass      bool
	ProductionMode bool
}

// MailConfig controls outgoing account emails.
type MailConfig struct {
	LoginURL string
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			TTL: jwt.DefaultTTL,
		},
		Password: PasswordConfig{
			Memory:         65536,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			UpgradeOnLogin: true,
		},
		Code: CodeConfig{
			RequestMax:    5,
			RequestWindow: 15 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Namespace:        "iam",
			EnableIPThrottle: true,
		},
		Params: ParamsConfig{
			CacheTTL: params.DefaultTTL,
		},
		Audit: AuditConfig{
			Enabled:        true,
			BufferSize:     1024,
			DropIfFull:     true,
			EnqueueTimeout: 250 * time.Millisecond,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// DefaultConfig returns the engine defaults. Callers override fields and
// pass the result to Builder.WithConfig.
func DefaultConfig() Config {
	return defaultConfig()
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.Secret = append([]byte(nil), cfg.JWT.Secret...)
	out.Access.SuperadminEmails = append([]string(nil), cfg.Access.SuperadminEmails...)
	return out
}

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.TTL <= 0 {
		return errors.New("JWT TTL must be > 0")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}
	if len(c.JWT.Secret) == 0 && !c.Access.DevBypass {
		return ErrTokenSecretMissing
	}
	if len(c.JWT.Secret) > 0 && len(c.JWT.Secret) < 32 && c.Access.ProductionMode {
		return errors.New("JWT Secret must be at least 32 bytes in production")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}

	// Code requests
	if c.Code.RequestMax <= 0 {
		return errors.New("Code RequestMax must be > 0")
	}
	if c.Code.RequestWindow <= 0 {
		return errors.New("Code RequestWindow must be > 0")
	}

	if strings.TrimSpace(c.RateLimit.Namespace) == "" {
		return errors.New("RateLimit Namespace must not be empty")
	}
	if c.Params.CacheTTL < 0 {
		return errors.New("Params CacheTTL must be >= 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}
	if c.Audit.Retention < 0 {
		return errors.New("Audit Retention must be >= 0")
	}
	if c.Audit.EnqueueTimeout < 0 {
		return errors.New("Audit EnqueueTimeout must be >= 0")
	}

	// Access
	if c.Access.DevBypass && c.Access.ProductionMode {
		return errors.New("Access DevBypass is not allowed in production mode")
	}
	for _, email := range c.Access.SuperadminEmails {
		if !strings.Contains(email, "@") {
			return errors.New("Access SuperadminEmails must contain email addresses")
		}
	}

	return nil
}
