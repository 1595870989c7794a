package goIAM

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goIAM/password"
)

var (
	// ErrValidation is an exported constant or variable used by the IAM engine.
	ErrValidation = errors.New("validation error")
	// ErrInvalidCredentials is an exported constant or variable used by the IAM engine.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated is an exported constant or variable used by the IAM engine.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrInvalidToken is an exported constant or variable used by the IAM engine.
	ErrInvalidToken = errors.New("invalid token")
	// ErrForbidden is an exported constant or variable used by the IAM engine.
	ErrForbidden = errors.New("forbidden")
	// ErrPasswordChangeRequired is an exported constant or variable used by the IAM engine.
	ErrPasswordChangeRequired = errors.New("password change required")
	// ErrPolicyViolation is an exported constant or variable used by the IAM engine.
	ErrPolicyViolation = errors.New("password policy violation")
	// ErrSamePassword is an exported constant or variable used by the IAM engine.
	ErrSamePassword = errors.New("new password must be different from current password")
	// ErrCurrentPasswordInvalid is an exported constant or variable used by the IAM engine.
	ErrCurrentPasswordInvalid = errors.New("current password invalid")
	// ErrCodeMissing is an exported constant or variable used by the IAM engine.
	ErrCodeMissing = errors.New("verification code missing")
	// ErrCodeExpired is an exported constant or variable used by the IAM engine.
	ErrCodeExpired = errors.New("verification code expired")
	// ErrCodeInvalid is an exported constant or variable used by the IAM engine.
	ErrCodeInvalid = errors.New("verification code invalid")
	// ErrCodeLocked is an exported constant or variable used by the IAM engine.
	ErrCodeLocked = errors.New("verification code locked")
	// ErrCodeRequired is an exported constant or variable used by the IAM engine.
	ErrCodeRequired = errors.New("fresh verified code required")
	// ErrNotFound is an exported constant or variable used by the IAM engine.
	ErrNotFound = errors.New("not found")
	// ErrConflict is an exported constant or variable used by the IAM engine.
	ErrConflict = errors.New("conflict")
	// ErrDeliveryFailure is an exported constant or variable used by the IAM engine.
	ErrDeliveryFailure = errors.New("email delivery failed")
	// ErrRateLimited is an exported constant or variable used by the IAM engine.
	ErrRateLimited = errors.New("rate limited")
	// ErrEngineNotReady is an exported constant or variable used by the IAM engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrTokenSecretMissing is an exported constant or variable used by the IAM engine.
	ErrTokenSecretMissing = errors.New("token signing secret not configured")
	// ErrSystemRole is an exported constant or variable used by the IAM engine.
	ErrSystemRole = errors.New("system role cannot be deleted")
)

// Stable machine codes reported to clients.
const (
	CodeValidation             = "VALIDATION_ERROR"
	CodeInvalidCredentials     = "INVALID_CREDENTIALS"
	CodeUnauthenticated        = "UNAUTHENTICATED"
	CodeInvalidToken           = "INVALID_TOKEN"
	CodeForbidden              = "FORBIDDEN"
	CodePasswordChangeRequired = "PASSWORD_CHANGE_REQUIRED"
	CodePolicyViolation        = "POLICY_VIOLATION"
	CodeSamePassword           = "SAME_PASSWORD"
	CodeCurrentPasswordInvalid = "CURRENT_PASSWORD_INVALID"
	CodeCodeMissing            = "CODE_MISSING"
	CodeCodeExpired            = "CODE_EXPIRED"
	CodeCodeInvalid            = "CODE_INVALID"
	CodeCodeLocked             = "CODE_LOCKED"
	CodeCodeRequired           = "CODE_REQUIRED"
	CodeNotFound               = "NOT_FOUND"
	CodeConflict               = "CONFLICT"
	CodeDeliveryFailure        = "DELIVERY_FAILURE"
	CodeRateLimited            = "RATE_LIMITED"
	CodeInternal               = "INTERNAL_ERROR"
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrValidation, CodeValidation},
	{ErrInvalidCredentials, CodeInvalidCredentials},
	{ErrUnauthenticated, CodeUnauthenticated},
	{ErrInvalidToken, CodeInvalidToken},
	{ErrForbidden, CodeForbidden},
	{ErrPasswordChangeRequired, CodePasswordChangeRequired},
	{ErrPolicyViolation, CodePolicyViolation},
	{ErrSamePassword, CodeSamePassword},
	{ErrCurrentPasswordInvalid, CodeCurrentPasswordInvalid},
	{ErrCodeMissing, CodeCodeMissing},
	{ErrCodeExpired, CodeCodeExpired},
	{ErrCodeInvalid, CodeCodeInvalid},
	{ErrCodeLocked, CodeCodeLocked},
	{ErrCodeRequired, CodeCodeRequired},
	{ErrNotFound, CodeNotFound},
	{ErrConflict, CodeConflict},
	{ErrSystemRole, CodeConflict},
	{ErrDeliveryFailure, CodeDeliveryFailure},
	{ErrRateLimited, CodeRateLimited},
}

// ErrorCode maps err to its stable machine code. Errors outside the
// taxonomy map to INTERNAL_ERROR.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return CodeInternal
}

// PolicyError is returned when a new password fails the policy. It carries
// the per-rule breakdown and unwraps to ErrPolicyViolation.
type PolicyError struct {
	Result password.Result
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("%v: %v", ErrPolicyViolation, e.Result.Failed())
}

func (e *PolicyError) Unwrap() error { return ErrPolicyViolation }

// CodeError carries the code state reported alongside a code failure:
// remaining attempts and, when locked, the lock window.
type CodeError struct {
	Err               error
	ExpiresAt         time.Time
	AttemptsRemaining int
	LockedUntil       *time.Time
}

func (e *CodeError) Error() string {
	if e.LockedUntil != nil {
		return fmt.Sprintf("%v (locked until %s)", e.Err, e.LockedUntil.UTC().Format(time.RFC3339))
	}
	return fmt.Sprintf("%v (%d attempts remaining)", e.Err, e.AttemptsRemaining)
}

func (e *CodeError) Unwrap() error { return e.Err }

// ChangeRequiredError is returned by Login when the credentials are valid
// but the password must be changed first. Reason is first_login or expired.
type ChangeRequiredError struct {
	Reason string
	Email  string
}

func (e *ChangeRequiredError) Error() string {
	return fmt.Sprintf("%v: %s", ErrPasswordChangeRequired, e.Reason)
}

func (e *ChangeRequiredError) Unwrap() error { return ErrPasswordChangeRequired }
