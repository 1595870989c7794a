package goIAM

import (
	"context"

	"github.com/MrEthical07/goIAM/internal/flows"
)

// RequestPasswordCode describes the requestpasswordcode operation and its observable behavior.
//
// RequestPasswordCode issues and emails a verification code. Unknown and
// inactive accounts receive a result of the same shape and no email. While
// the account is locked the error is a *CodeError wrapping ErrCodeLocked.
// A delivery failure keeps the stored code and returns a *CodeError
// wrapping ErrDeliveryFailure.
// RequestPasswordCode does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) RequestPasswordCode(ctx context.Context, email string) (*CodeStatus, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	res, err := flows.RunRequestCode(ctx, email, e.flows.RequestCode)
	return codeOutcome(res, err)
}

// VerifyPasswordCode describes the verifypasswordcode operation and its observable behavior.
//
// VerifyPasswordCode checks a 6-digit code. Failures are *CodeError values
// carrying the remaining attempts and, once locked, the lock deadline.
// VerifyPasswordCode does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) VerifyPasswordCode(ctx context.Context, email, code string) (*CodeStatus, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	res, err := flows.RunVerifyCode(ctx, email, code, e.flows.VerifyCode)
	return codeOutcome(res, err)
}

// CheckEmail reports whether an account exists for email and whether it
// is active. Email checks share the code-request rate budget.
func (e *Engine) CheckEmail(ctx context.Context, email string) (*EmailStatus, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	st, err := flows.RunCheckEmail(ctx, email, e.flows.CheckEmail)
	if err != nil {
		return nil, err
	}
	return &EmailStatus{
		Exists:             st.Exists,
		Active:             st.Active,
		MustChangePassword: st.MustChangePassword,
	}, nil
}

func codeOutcome(res *flows.CodeResult, err error) (*CodeStatus, error) {
	var status *CodeStatus
	if res != nil {
		status = &CodeStatus{
			ExpiresAt:         res.ExpiresAt,
			AttemptsRemaining: res.AttemptsRemaining,
			LockedUntil:       res.LockedUntil,
		}
	}
	if err == nil {
		return status, nil
	}
	if status == nil {
		return nil, err
	}
	return nil, &CodeError{
		Err:               err,
		ExpiresAt:         status.ExpiresAt,
		AttemptsRemaining: status.AttemptsRemaining,
		LockedUntil:       status.LockedUntil,
	}
}
