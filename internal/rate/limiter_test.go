package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newLimiterTest(t *testing.T, cfg Config) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return New(rdb, cfg), mr
}

func TestLoginBudget(t *testing.T) {
	l, mr := newLimiterTest(t, Config{EnableIPThrottle: true})
	ctx := context.Background()
	limits := Limits{Max: 3, Window: 15 * time.Minute}

	for i := 0; i < 3; i++ {
		if err := l.CheckLogin(ctx, "ana@x.com", "10.0.0.1", limits); err != nil {
			t.Fatalf("attempt %d: unexpected %v", i, err)
		}
		if err := l.IncrementLogin(ctx, "ana@x.com", "10.0.0.1", limits); err != nil {
			t.Fatalf("increment %d: %v", i, err)
		}
	}

	if err := l.CheckLogin(ctx, "ANA@x.com ", "", limits); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected email budget exhausted, got %v", err)
	}
	if err := l.CheckLogin(ctx, "bob@x.com", "10.0.0.1", limits); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected IP budget exhausted, got %v", err)
	}

	n, err := l.LoginAttempts(ctx, "ana@x.com")
	if err != nil || n != 3 {
		t.Fatalf("LoginAttempts = %d, %v", n, err)
	}

	if ttl := mr.TTL("iam:al:ana@x.com"); ttl != 15*time.Minute {
		t.Fatalf("unexpected window TTL %v", ttl)
	}

	mr.FastForward(16 * time.Minute)
	if err := l.CheckLogin(ctx, "ana@x.com", "10.0.0.1", limits); err != nil {
		t.Fatalf("expected window reset, got %v", err)
	}
}

func TestResetLoginClearsEmailOnly(t *testing.T) {
	l, mr := newLimiterTest(t, Config{EnableIPThrottle: true, Namespace: "t"})
	ctx := context.Background()
	limits := Limits{Max: 2, Window: time.Minute}

	_ = l.IncrementLogin(ctx, "ana@x.com", "10.0.0.2", limits)
	_ = l.IncrementLogin(ctx, "ana@x.com", "10.0.0.2", limits)
	if err := l.ResetLogin(ctx, "ana@x.com"); err != nil {
		t.Fatalf("ResetLogin: %v", err)
	}
	if mr.Exists("t:al:ana@x.com") {
		t.Fatal("expected email counter removed")
	}
	if !mr.Exists("t:ali:10.0.0.2") {
		t.Fatal("expected IP counter to remain")
	}
	if n, _ := l.LoginAttempts(ctx, "ana@x.com"); n != 0 {
		t.Fatalf("expected zero attempts, got %d", n)
	}
}

func TestCodeRequestBudget(t *testing.T) {
	l, _ := newLimiterTest(t, Config{CodeRequestMax: 2, CodeRequestWindow: time.Minute})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := l.AllowCodeRequest(ctx, "ana@x.com", "10.0.0.3"); err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}
	if err := l.AllowCodeRequest(ctx, "ana@x.com", "10.0.0.3"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if err := l.AllowCodeRequest(ctx, "bob@x.com", "10.0.0.3"); err != nil {
		t.Fatalf("IP throttle disabled, got %v", err)
	}
}

func TestRedisUnavailable(t *testing.T) {
	l, mr := newLimiterTest(t, Config{})
	mr.Close()

	err := l.IncrementLogin(context.Background(), "ana@x.com", "", Limits{Max: 1, Window: time.Minute})
	if !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}

func TestZeroBudgetDisablesLoginCheck(t *testing.T) {
	l, _ := newLimiterTest(t, Config{})
	if err := l.CheckLogin(context.Background(), "ana@x.com", "", Limits{}); err != nil {
		t.Fatalf("expected no limit, got %v", err)
	}
}
