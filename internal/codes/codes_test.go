package codes

import (
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/goIAM/store"
)

var t0 = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func issued(t *testing.T, now time.Time) (string, store.ResetCode) {
	t.Helper()
	code, state, status, err := Issue(store.ResetCode{}, now, Limits{})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !status.ExpiresAt.Equal(now.Add(10 * time.Minute)) {
		t.Fatalf("unexpected expiry %v", status.ExpiresAt)
	}
	if status.AttemptsRemaining != 3 {
		t.Fatalf("unexpected attempts remaining %d", status.AttemptsRemaining)
	}
	return code, state
}

func wrongCode(code string) string {
	if code == "000000" {
		return "000001"
	}
	return "000000"
}

func TestGenerateFormat(t *testing.T) {
	for i := 0; i < 500; i++ {
		code, err := Generate()
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if !ValidFormat(code) {
			t.Fatalf("invalid code %q", code)
		}
	}
	if ValidFormat("12345") || ValidFormat("12345a") || ValidFormat("1234567") {
		t.Fatal("ValidFormat accepted malformed input")
	}
	if !ValidFormat("007421") {
		t.Fatal("leading zeros must be accepted")
	}
}

func TestIssueStoresOnlyHash(t *testing.T) {
	code, state := issued(t, t0)
	if state.Hash == code || state.Hash != Hash(code) {
		t.Fatal("expected only the hash to be stored")
	}
	if state.SentAt == nil || !state.SentAt.Equal(t0) {
		t.Fatalf("unexpected sentAt %v", state.SentAt)
	}
	if state.Attempts != 0 || state.LockedUntil != nil || state.VerifiedAt != nil {
		t.Fatalf("unexpected fresh state %+v", state)
	}
}

func TestVerifySucceedsWithCorrectCode(t *testing.T) {
	code, state := issued(t, t0)

	next, status, err := Verify(state, code, t0.Add(time.Minute), Limits{})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if next.VerifiedAt == nil || !next.VerifiedAt.Equal(t0.Add(time.Minute)) {
		t.Fatalf("unexpected verifiedAt %v", next.VerifiedAt)
	}
	if status.AttemptsRemaining != 3 || status.LockedUntil != nil {
		t.Fatalf("unexpected status %+v", status)
	}

}

func TestVerifyOncePerIssuance(t *testing.T) {
	code, state := issued(t, t0)

	verified, _, err := Verify(state, code, t0.Add(time.Minute), Limits{})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}

	again, status, err := Verify(verified, code, t0.Add(2*time.Minute), Limits{})
	if !errors.Is(err, ErrUsed) {
		t.Fatalf("expected ErrUsed on the second submission, got %v", err)
	}
	if status.AttemptsRemaining != 0 {
		t.Fatalf("unexpected attempts remaining %d", status.AttemptsRemaining)
	}
	if again.Attempts != verified.Attempts || !again.VerifiedAt.Equal(*verified.VerifiedAt) {
		t.Fatalf("state must not change, got %+v", again)
	}

	// Wrong submissions after verification do not count or lock.
	for i := 0; i < 5; i++ {
		again, _, err = Verify(again, wrongCode(code), t0.Add(3*time.Minute), Limits{})
		if !errors.Is(err, ErrUsed) {
			t.Fatalf("submission %d: expected ErrUsed, got %v", i, err)
		}
	}
	if again.Attempts != 0 || again.LockedUntil != nil {
		t.Fatalf("verified code must not accumulate attempts, got %+v", again)
	}
	if !Fresh(again, t0.Add(4*time.Minute), Limits{}) {
		t.Fatal("verification must stay fresh")
	}
}

// request, three wrong submissions, then the right code: the lock holds
// until the code's own expiry.
func TestLockoutScenario(t *testing.T) {
	code, state := issued(t, t0)
	expiresAt := *state.ExpiresAt

	var status Status
	var err error
	for i := 1; i <= 3; i++ {
		state, status, err = Verify(state, wrongCode(code), t0.Add(time.Duration(i)*time.Second), Limits{})
		if !errors.Is(err, ErrInvalid) {
			t.Fatalf("attempt %d: expected ErrInvalid, got %v", i, err)
		}
		if status.AttemptsRemaining != 3-i {
			t.Fatalf("attempt %d: attempts remaining %d", i, status.AttemptsRemaining)
		}
	}
	if status.LockedUntil == nil || !status.LockedUntil.Equal(expiresAt) {
		t.Fatalf("expected lockedUntil = expiresAt, got %v", status.LockedUntil)
	}

	_, status, err = Verify(state, code, t0.Add(5*time.Second), Limits{})
	if !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked for correct code after lockout, got %v", err)
	}
	var lockErr *LockError
	if !errors.As(err, &lockErr) || !lockErr.LockedUntil.Equal(expiresAt) {
		t.Fatalf("expected LockError carrying expiry, got %v", err)
	}
	if status.AttemptsRemaining != 0 {
		t.Fatalf("expected zero attempts remaining, got %d", status.AttemptsRemaining)
	}
}

func TestIssueWhileLocked(t *testing.T) {
	code, state := issued(t, t0)
	for i := 0; i < 3; i++ {
		state, _, _ = Verify(state, wrongCode(code), t0.Add(time.Second), Limits{})
	}

	if _, _, _, err := Issue(state, t0.Add(time.Minute), Limits{}); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected lock error while locked and unexpired, got %v", err)
	}

	_, next, status, err := Issue(state, t0.Add(11*time.Minute), Limits{})
	if err != nil {
		t.Fatalf("expected new code after expiry, got %v", err)
	}
	if next.LockedUntil != nil || next.Attempts != 0 {
		t.Fatalf("expected lock and attempts cleared, got %+v", next)
	}
	if status.AttemptsRemaining != 3 {
		t.Fatalf("unexpected attempts remaining %d", status.AttemptsRemaining)
	}
}

func TestVerifyMissingAndExpired(t *testing.T) {
	if _, _, err := Verify(store.ResetCode{}, "123456", t0, Limits{}); !errors.Is(err, ErrMissing) {
		t.Fatalf("expected ErrMissing, got %v", err)
	}

	code, state := issued(t, t0)
	if _, _, err := Verify(state, code, t0.Add(10*time.Minute), Limits{}); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired at expiry, got %v", err)
	}
}

func TestFresh(t *testing.T) {
	code, state := issued(t, t0)
	if Fresh(state, t0, Limits{}) {
		t.Fatal("unverified code must not be fresh")
	}

	verified, _, err := Verify(state, code, t0.Add(time.Minute), Limits{})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !Fresh(verified, t0.Add(2*time.Minute), Limits{}) {
		t.Fatal("expected fresh verification inside TTL")
	}
	if Fresh(verified, t0.Add(10*time.Minute), Limits{}) {
		t.Fatal("verification must go stale at TTL from issuance")
	}

	// Verification recorded against a superseded code.
	stale := verified
	reissued := t0.Add(3 * time.Minute)
	stale.SentAt = &reissued
	exp := reissued.Add(10 * time.Minute)
	stale.ExpiresAt = &exp
	if Fresh(stale, t0.Add(4*time.Minute), Limits{}) {
		t.Fatal("verification predating issuance must be rejected")
	}

	locked := verified
	until := *verified.ExpiresAt
	locked.LockedUntil = &until
	if Fresh(locked, t0.Add(2*time.Minute), Limits{}) {
		t.Fatal("a locked code must not authorize a change")
	}
}

func TestCustomLimits(t *testing.T) {
	limits := Limits{TTL: 2 * time.Minute, MaxAttempts: 1}
	code, state, status, err := Issue(store.ResetCode{}, t0, limits)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if status.AttemptsRemaining != 1 || !status.ExpiresAt.Equal(t0.Add(2*time.Minute)) {
		t.Fatalf("unexpected status %+v", status)
	}
	state, status, err = Verify(state, wrongCode(code), t0, limits)
	if !errors.Is(err, ErrInvalid) || status.LockedUntil == nil {
		t.Fatalf("expected immediate lock, got %v %+v", err, status)
	}
	if _, _, err := Verify(state, code, t0, limits); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}
