package rate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds rate limiter tuning parameters. Login budgets are passed per
// call because they come from system parameters.
type Config struct {
	Namespace         string
	EnableIPThrottle  bool
	CodeRequestMax    int
	CodeRequestWindow time.Duration
}

// Limits is a budget of attempts within a fixed window.
type Limits struct {
	Max    int
	Window time.Duration
}

// Limiter enforces per-email and per-IP budgets using Redis counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a rate [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if cfg.Namespace == "" {
		cfg.Namespace = "iam"
	}
	if cfg.CodeRequestMax <= 0 {
		cfg.CodeRequestMax = 5
	}
	if cfg.CodeRequestWindow <= 0 {
		cfg.CodeRequestWindow = 15 * time.Minute
	}
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// CheckLogin returns ErrRateLimited when the email or IP has already spent
// its failed-login budget. It does not count the current attempt.
func (l *Limiter) CheckLogin(ctx context.Context, email, ip string, limits Limits) error {
	if err := l.checkCounter(ctx, l.key("al", email), limits.Max); err != nil {
		return err
	}
	if l.config.EnableIPThrottle && ip != "" {
		if err := l.checkCounter(ctx, l.key("ali", ip), limits.Max); err != nil {
			return err
		}
	}
	return nil
}

// IncrementLogin records a failed login attempt for the email+IP pair.
func (l *Limiter) IncrementLogin(ctx context.Context, email, ip string, limits Limits) error {
	if _, err := l.incrementWithTTL(ctx, l.key("al", email), limits.Window); err != nil {
		return err
	}
	if l.config.EnableIPThrottle && ip != "" {
		if _, err := l.incrementWithTTL(ctx, l.key("ali", ip), limits.Window); err != nil {
			return err
		}
	}
	return nil
}

// ResetLogin clears the failed-login counter of email. The IP counter is
// left to expire so one valid account cannot launder an IP's budget.
func (l *Limiter) ResetLogin(ctx context.Context, email string) error {
	if err := l.redis.Del(ctx, l.key("al", email)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// LoginAttempts returns the current failed-login counter for email.
// Missing keys return zero and do not reveal account existence.
func (l *Limiter) LoginAttempts(ctx context.Context, email string) (int, error) {
	count, err := l.redis.Get(ctx, l.key("al", email)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

// AllowCodeRequest counts a code request (or email check) and returns
// ErrRateLimited once the email or IP exceeds its budget.
func (l *Limiter) AllowCodeRequest(ctx context.Context, email, ip string) error {
	if err := l.enforceFixedWindow(ctx, l.key("cr", email), l.config.CodeRequestMax, l.config.CodeRequestWindow); err != nil {
		return err
	}
	if l.config.EnableIPThrottle && ip != "" {
		// IPs serve many users; allow a wider budget.
		if err := l.enforceFixedWindow(ctx, l.key("cri", ip), l.config.CodeRequestMax*4, l.config.CodeRequestWindow); err != nil {
			return err
		}
	}
	return nil
}

func (l *Limiter) key(kind, id string) string {
	return l.config.Namespace + ":" + kind + ":" + strings.ToLower(strings.TrimSpace(id))
}

func (l *Limiter) checkCounter(ctx context.Context, key string, maxAttempts int) error {
	if maxAttempts <= 0 {
		return nil
	}
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if count >= int64(maxAttempts) {
		return ErrRateLimited
	}

	return nil
}

func (l *Limiter) enforceFixedWindow(ctx context.Context, key string, maxAttempts int, window time.Duration) error {
	count, err := l.incrementWithTTL(ctx, key, window)
	if err != nil {
		return err
	}
	if count > int64(maxAttempts) {
		return ErrRateLimited
	}
	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}

// Ping measures the Redis round trip.
func (l *Limiter) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := l.redis.Ping(ctx).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
