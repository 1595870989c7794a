package codes

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/MrEthical07/goIAM/store"
)

const (
	// Digits is the length of a verification code.
	Digits = 6
	// DefaultTTL is the code lifetime when the caller passes zero.
	DefaultTTL = 10 * time.Minute
	// DefaultMaxAttempts is the wrong-submission budget when the caller passes zero.
	DefaultMaxAttempts = 3
)

// Verification failures. ErrLocked is also reachable through *LockError.
var (
	ErrMissing = errors.New("codes: no code requested")
	ErrExpired = errors.New("codes: code expired")
	ErrLocked  = errors.New("codes: code locked")
	ErrInvalid = errors.New("codes: code invalid")
	ErrUsed    = errors.New("codes: code already used")
	ErrFormat  = errors.New("codes: code must be 6 digits")
)

// Limits are the per-call code settings, resolved from system parameters.
type Limits struct {
	TTL         time.Duration
	MaxAttempts int
}

func (l Limits) normalized() Limits {
	if l.TTL <= 0 {
		l.TTL = DefaultTTL
	}
	if l.MaxAttempts <= 0 {
		l.MaxAttempts = DefaultMaxAttempts
	}
	return l
}

// Status is the caller-visible outcome of Issue or Verify.
type Status struct {
	ExpiresAt         time.Time
	AttemptsRemaining int
	LockedUntil       *time.Time
}

// Generate returns a uniformly random 6-digit code, leading zeros kept.
func Generate() (string, error) {
	var b strings.Builder
	b.Grow(Digits)

	ten := big.NewInt(10)
	for i := 0; i < Digits; i++ {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

// Hash is the one-way digest stored in place of a code.
func Hash(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// ValidFormat reports whether s is exactly six ASCII digits.
func ValidFormat(s string) bool {
	if len(s) != Digits {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func matches(candidate, storedHash string) bool {
	got := Hash(candidate)
	return subtle.ConstantTimeCompare([]byte(got), []byte(storedHash)) == 1
}

// LockError carries the lock window of a refused request or verification.
type LockError struct {
	LockedUntil time.Time
}

func (e *LockError) Error() string {
	return fmt.Sprintf("%v until %s", ErrLocked, e.LockedUntil.UTC().Format(time.RFC3339))
}

func (e *LockError) Unwrap() error { return ErrLocked }

// Locked reports whether current is inside an active lock window. A lock
// whose code has already expired no longer counts.
func Locked(current store.ResetCode, now time.Time) bool {
	if current.LockedUntil == nil || !now.Before(*current.LockedUntil) {
		return false
	}
	return current.ExpiresAt != nil && now.Before(*current.ExpiresAt)
}

// Issue starts a new code. It refuses with a *LockError while a previous
// code is locked and unexpired. The returned state replaces current
// entirely: attempts reset, lock and verification cleared, issue time
// recorded.
func Issue(current store.ResetCode, now time.Time, limits Limits) (string, store.ResetCode, Status, error) {
	limits = limits.normalized()
	if Locked(current, now) {
		return "", current, Status{}, &LockError{LockedUntil: *current.LockedUntil}
	}

	code, err := Generate()
	if err != nil {
		return "", current, Status{}, err
	}

	sentAt := now
	expiresAt := now.Add(limits.TTL)
	next := store.ResetCode{
		Hash:      Hash(code),
		ExpiresAt: &expiresAt,
		Attempts:  0,
		SentAt:    &sentAt,
	}
	return code, next, Status{ExpiresAt: expiresAt, AttemptsRemaining: limits.MaxAttempts}, nil
}

// Verify checks candidate against current. The returned state must be
// persisted whenever it differs from current, including on ErrInvalid where
// the attempt counter advances. Once attempts reach the maximum the code is
// locked until its own expiry. A code verifies once: later submissions
// return ErrUsed and leave the state untouched.
func Verify(current store.ResetCode, candidate string, now time.Time, limits Limits) (store.ResetCode, Status, error) {
	limits = limits.normalized()

	if current.Hash == "" || current.ExpiresAt == nil {
		return current, Status{}, ErrMissing
	}
	status := Status{
		ExpiresAt:         *current.ExpiresAt,
		AttemptsRemaining: remaining(current.Attempts, limits.MaxAttempts),
		LockedUntil:       current.LockedUntil,
	}
	if !now.Before(*current.ExpiresAt) {
		status.AttemptsRemaining = 0
		return current, status, ErrExpired
	}
	if Locked(current, now) {
		status.AttemptsRemaining = 0
		return current, status, &LockError{LockedUntil: *current.LockedUntil}
	}
	if current.VerifiedAt != nil {
		status.AttemptsRemaining = 0
		return current, status, ErrUsed
	}

	if !matches(candidate, current.Hash) {
		next := current
		next.Attempts++
		if next.Attempts >= limits.MaxAttempts {
			lock := *current.ExpiresAt
			next.LockedUntil = &lock
		}
		status.AttemptsRemaining = remaining(next.Attempts, limits.MaxAttempts)
		status.LockedUntil = next.LockedUntil
		return next, status, ErrInvalid
	}

	verifiedAt := now
	next := current
	next.Attempts = 0
	next.LockedUntil = nil
	next.VerifiedAt = &verifiedAt
	status.AttemptsRemaining = limits.MaxAttempts
	status.LockedUntil = nil
	return next, status, nil
}

// Fresh reports whether current holds a verification that may still
// authorize a sensitive change: verified at or after the current code's
// issuance, not locked, and still inside the TTL window measured from
// issuance.
func Fresh(current store.ResetCode, now time.Time, limits Limits) bool {
	limits = limits.normalized()
	if current.VerifiedAt == nil || current.SentAt == nil || current.ExpiresAt == nil {
		return false
	}
	if Locked(current, now) {
		return false
	}
	if current.VerifiedAt.Before(*current.SentAt) {
		return false
	}
	if !now.Before(current.SentAt.Add(limits.TTL)) {
		return false
	}
	return now.Before(*current.ExpiresAt)
}

func remaining(attempts, limit int) int {
	if r := limit - attempts; r > 0 {
		return r
	}
	return 0
}
