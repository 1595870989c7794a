package flows

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/goIAM/internal/audit"
	"github.com/MrEthical07/goIAM/internal/codes"
	"github.com/MrEthical07/goIAM/permission"
	"github.com/MrEthical07/goIAM/store"
	"github.com/MrEthical07/goIAM/store/memstore"
)

var (
	errNotReady       = errors.New("not ready")
	errValidation     = errors.New("validation")
	errInvalidCreds   = errors.New("invalid credentials")
	errRateLimited    = errors.New("rate limited")
	errPolicy         = errors.New("policy")
	errCurrentInvalid = errors.New("current password invalid")
	errCodeRequired   = errors.New("code required")
	errSamePassword   = errors.New("same password")
	errConflict       = errors.New("conflict")
	errCodeMissing    = errors.New("code missing")
	errCodeExpired    = errors.New("code expired")
	errCodeInvalid    = errors.New("code invalid")
	errCodeLocked     = errors.New("code locked")
	errDelivery       = errors.New("delivery")
)

// plainHash stands in for the real hasher; flows only compare strings.
func plainHash(pw string) (string, error) { return "h:" + pw, nil }

func plainVerify(pw, hash string) (bool, error) {
	if !strings.HasPrefix(hash, "h:") && !strings.HasPrefix(hash, "legacy:") {
		return false, errors.New("unsupported")
	}
	return hash == "h:"+pw || hash == "legacy:"+pw, nil
}

type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *clock {
	return &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

type recorder struct {
	metrics map[int]int
	events  []audit.Event
}

func newRecorder() *recorder { return &recorder{metrics: map[int]int{}} }

func (r *recorder) inc(id int) { r.metrics[id]++ }

func (r *recorder) emit(_ context.Context, e audit.Event) { r.events = append(r.events, e) }

func (r *recorder) actions() []string {
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Action)
	}
	return out
}

func seedUser(t *testing.T, s *memstore.Store, u *store.User) *store.User {
	t.Helper()
	if u.ID == "" {
		u.ID = u.Email
	}
	if err := s.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func resolveGrants(_ context.Context, u *store.User) (permission.Grants, error) {
	return permission.Grants{Roles: u.Roles, Permissions: u.Perms}, nil
}

func issueToken(c *clock) func(context.Context, *store.User, permission.Grants) (string, time.Time, error) {
	return func(_ context.Context, u *store.User, _ permission.Grants) (string, time.Time, error) {
		return "token-for-" + u.ID, c.Now().Add(8 * time.Hour), nil
	}
}

func codeLimits(context.Context) codes.Limits {
	return codes.Limits{TTL: 10 * time.Minute, MaxAttempts: 3}
}
