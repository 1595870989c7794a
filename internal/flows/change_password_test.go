package flows

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/goIAM/internal/codes"
	"github.com/MrEthical07/goIAM/password"
	"github.com/MrEthical07/goIAM/store"
	"github.com/MrEthical07/goIAM/store/memstore"
)

const newPassword = "N3w#Password!x"

type policyError struct{ res password.Result }

func (e policyError) Error() string { return "policy" }
func (e policyError) Unwrap() error { return errPolicy }

func newChangeDeps(s *memstore.Store, c *clock, rec *recorder) ChangePasswordDeps {
	return ChangePasswordDeps{
		Now:               c.Now,
		GetUserByEmail:    s.GetUserByEmail,
		VerifyPassword:    plainVerify,
		HashPassword:      plainHash,
		UpdateCredentials: s.UpdateCredentials,
		PasswordExpiry:    func(context.Context) time.Duration { return 60 * 24 * time.Hour },
		CodeLimits:        codeLimits,
		PolicyError:       func(r password.Result) error { return policyError{res: r} },
		ResolveGrants:     resolveGrants,
		IssueToken:        issueToken(c),
		MetricInc:         rec.inc,
		EmitAudit:         rec.emit,
		Metrics:           ChangePasswordMetrics{PasswordChangeSuccess: 1, PasswordChangeFailure: 2},
		Errors: ChangePasswordErrors{
			EngineNotReady:         errNotReady,
			Validation:             errValidation,
			PolicyViolation:        errPolicy,
			InvalidCredentials:     errInvalidCreds,
			CurrentPasswordInvalid: errCurrentInvalid,
			CodeRequired:           errCodeRequired,
			SamePassword:           errSamePassword,
			Conflict:               errConflict,
		},
	}
}

// verifiedCode returns reset-code state issued at sent and verified at verified.
func verifiedCode(sent, verified time.Time) store.ResetCode {
	exp := sent.Add(10 * time.Minute)
	return store.ResetCode{Hash: codes.Hash("123456"), ExpiresAt: &exp, SentAt: &sent, VerifiedAt: &verified}
}

func TestChangePasswordWithCurrentPassword(t *testing.T) {
	s := memstore.New()
	c := newClock()
	rec := newRecorder()
	seedUser(t, s, &store.User{ID: "u1", Email: "ana@x.com", Active: true, PasswordHash: "h:Old#Password1x"})

	res, err := RunChangePassword(context.Background(), ChangePasswordRequest{
		Email:           "ana@x.com",
		CurrentPassword: "Old#Password1x",
		NewPassword:     newPassword,
	}, newChangeDeps(s, c, rec))
	if err != nil {
		t.Fatalf("change password: %v", err)
	}
	if res.Token == "" {
		t.Fatal("expected a fresh token")
	}

	u, _ := s.GetUserByID(context.Background(), "u1")
	if u.PasswordHash != "h:"+newPassword || u.MustChangePassword {
		t.Fatalf("unexpected stored user %+v", u)
	}
	wantExpiry := c.Now().Add(60 * 24 * time.Hour)
	if u.PasswordExpiresAt == nil || !u.PasswordExpiresAt.Equal(wantExpiry) {
		t.Fatalf("expected expiry %v, got %v", wantExpiry, u.PasswordExpiresAt)
	}
	if rec.metrics[1] != 1 {
		t.Fatalf("expected success metric, got %v", rec.metrics)
	}
}

func TestChangePasswordPolicyViolationCarriesRules(t *testing.T) {
	s := memstore.New()
	seedUser(t, s, &store.User{Email: "ana@x.com", Active: true, PasswordHash: "h:Old#Password1x"})

	_, err := RunChangePassword(context.Background(), ChangePasswordRequest{
		Email: "ana@x.com", CurrentPassword: "Old#Password1x", NewPassword: "short",
	}, newChangeDeps(s, newClock(), newRecorder()))
	if !errors.Is(err, errPolicy) {
		t.Fatalf("expected policy violation, got %v", err)
	}
	var pe policyError
	if !errors.As(err, &pe) || len(pe.res.Failed()) == 0 {
		t.Fatalf("expected per-rule breakdown, got %v", err)
	}
}

func TestChangePasswordRejectsSamePassword(t *testing.T) {
	s := memstore.New()
	seedUser(t, s, &store.User{Email: "ana@x.com", Active: true, PasswordHash: "h:" + newPassword})

	_, err := RunChangePassword(context.Background(), ChangePasswordRequest{
		Email: "ana@x.com", CurrentPassword: newPassword, NewPassword: newPassword,
	}, newChangeDeps(s, newClock(), newRecorder()))
	if err != errSamePassword {
		t.Fatalf("expected same password, got %v", err)
	}
}

func TestChangePasswordWrongCurrentPassword(t *testing.T) {
	s := memstore.New()
	seedUser(t, s, &store.User{Email: "ana@x.com", Active: true, PasswordHash: "h:Old#Password1x"})

	_, err := RunChangePassword(context.Background(), ChangePasswordRequest{
		Email: "ana@x.com", CurrentPassword: "nope", NewPassword: newPassword,
	}, newChangeDeps(s, newClock(), newRecorder()))
	if err != errCurrentInvalid {
		t.Fatalf("expected current password invalid, got %v", err)
	}
}

func TestChangePasswordUnknownOrInactive(t *testing.T) {
	s := memstore.New()
	seedUser(t, s, &store.User{Email: "off@x.com", Active: false, PasswordHash: "h:Old#Password1x"})

	for _, email := range []string{"ghost@x.com", "off@x.com"} {
		_, err := RunChangePassword(context.Background(), ChangePasswordRequest{
			Email: email, CurrentPassword: "Old#Password1x", NewPassword: newPassword,
		}, newChangeDeps(s, newClock(), newRecorder()))
		if err != errInvalidCreds {
			t.Fatalf("%s: expected invalid credentials, got %v", email, err)
		}
	}
}

func TestChangePasswordCodeGating(t *testing.T) {
	c := newClock()
	now := c.Now()

	cases := []struct {
		name    string
		user    store.User
		current string
		want    error
	}{
		{
			name: "no current password and no code",
			user: store.User{PasswordHash: "h:Old#Password1x"},
			want: errCodeRequired,
		},
		{
			name: "stale verification predates current issuance",
			user: store.User{PasswordHash: "h:Old#Password1x", ResetCode: verifiedCode(now.Add(-2*time.Minute), now.Add(-5*time.Minute))},
			want: errCodeRequired,
		},
		{
			name: "verification outside the TTL window",
			user: store.User{PasswordHash: "h:Old#Password1x", ResetCode: verifiedCode(now.Add(-11*time.Minute), now.Add(-10*time.Minute))},
			want: errCodeRequired,
		},
		{
			name:    "must change with correct current password still needs a code",
			user:    store.User{PasswordHash: "h:Old#Password1x", MustChangePassword: true},
			current: "Old#Password1x",
			want:    errCodeRequired,
		},
		{
			name: "fresh verified code",
			user: store.User{PasswordHash: "h:Old#Password1x", ResetCode: verifiedCode(now.Add(-3*time.Minute), now.Add(-time.Minute))},
		},
		{
			name:    "must change with fresh code",
			user:    store.User{PasswordHash: "h:Old#Password1x", MustChangePassword: true, ResetCode: verifiedCode(now.Add(-3*time.Minute), now.Add(-time.Minute))},
			current: "Old#Password1x",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := memstore.New()
			u := tc.user
			u.ID, u.Email, u.Active = "u1", "ana@x.com", true
			seedUser(t, s, &u)

			_, err := RunChangePassword(context.Background(), ChangePasswordRequest{
				Email: "ana@x.com", CurrentPassword: tc.current, NewPassword: newPassword,
			}, newChangeDeps(s, c, newRecorder()))
			if err != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if tc.want != nil {
				return
			}
			stored, _ := s.GetUserByID(context.Background(), "u1")
			if !stored.ResetCode.IsZero() {
				t.Fatalf("expected reset-code state consumed, got %+v", stored.ResetCode)
			}
		})
	}
}

func TestChangePasswordConcurrentChangeConflicts(t *testing.T) {
	s := memstore.New()
	seedUser(t, s, &store.User{ID: "u1", Email: "ana@x.com", Active: true, PasswordHash: "h:Old#Password1x"})

	deps := newChangeDeps(s, newClock(), newRecorder())
	deps.UpdateCredentials = func(context.Context, string, string, store.Credentials) error {
		return store.ErrConflict
	}
	_, err := RunChangePassword(context.Background(), ChangePasswordRequest{
		Email: "ana@x.com", CurrentPassword: "Old#Password1x", NewPassword: newPassword,
	}, deps)
	if err != errConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestChangePasswordCodeReissuedBeforeWriteConflicts(t *testing.T) {
	s := memstore.New()
	c := newClock()
	now := c.Now()
	seedUser(t, s, &store.User{
		ID: "u1", Email: "ana@x.com", Active: true, PasswordHash: "h:Old#Password1x",
		ResetCode: verifiedCode(now.Add(-2*time.Minute), now.Add(-time.Minute)),
	})

	deps := newChangeDeps(s, c, newRecorder())
	write := deps.UpdateCredentials
	deps.UpdateCredentials = func(ctx context.Context, id, expectedHash string, creds store.Credentials) error {
		// A new code lands between the freshness check and the write.
		reissued := now
		exp := now.Add(10 * time.Minute)
		if err := s.UpdateResetCode(ctx, id, verifiedCode(now.Add(-2*time.Minute), now.Add(-time.Minute)),
			store.ResetCode{Hash: codes.Hash("654321"), ExpiresAt: &exp, SentAt: &reissued}); err != nil {
			t.Fatalf("reissue: %v", err)
		}
		return write(ctx, id, expectedHash, creds)
	}

	_, err := RunChangePassword(context.Background(), ChangePasswordRequest{
		Email: "ana@x.com", NewPassword: newPassword,
	}, deps)
	if err != errConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	u, _ := s.GetUserByID(context.Background(), "u1")
	if u.PasswordHash != "h:Old#Password1x" {
		t.Fatalf("password must not change, got %q", u.PasswordHash)
	}
}
