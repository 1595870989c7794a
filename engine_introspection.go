package goIAM

import (
	"context"
	"time"
)

// HealthStatus is an on-demand backend health result. Redis fields are
// zero when no Redis client is configured.
type HealthStatus struct {
	StoreAvailable  bool          `json:"storeAvailable"`
	StoreLatency    time.Duration `json:"storeLatency"`
	RedisConfigured bool          `json:"redisConfigured"`
	RedisAvailable  bool          `json:"redisAvailable"`
	RedisLatency    time.Duration `json:"redisLatency"`
}

// Healthy reports whether every configured backend answered.
func (h HealthStatus) Healthy() bool {
	return h.StoreAvailable && (!h.RedisConfigured || h.RedisAvailable)
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Health describes the health operation and its observable behavior.
//
// Stores without a Ping method are reported available.
// Health does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Health(ctx context.Context) HealthStatus {
	if e == nil || e.store == nil {
		return HealthStatus{}
	}

	var h HealthStatus
	start := time.Now()
	if p, ok := e.store.(pinger); ok {
		h.StoreAvailable = p.Ping(ctx) == nil
	} else {
		h.StoreAvailable = true
	}
	h.StoreLatency = time.Since(start)

	if e.limiter != nil {
		h.RedisConfigured = true
		latency, err := e.limiter.Ping(ctx)
		h.RedisAvailable = err == nil
		h.RedisLatency = latency
	}
	return h
}

// GetLoginAttempts returns the failed-login counter for email in the
// current window. Without Redis it is always zero.
func (e *Engine) GetLoginAttempts(ctx context.Context, email string) (int, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}
	email = normalizeEmail(email)
	if e.limiter == nil || email == "" {
		return 0, nil
	}

	return e.limiter.LoginAttempts(ctx, email)
}
