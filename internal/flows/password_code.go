package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goIAM/internal/audit"
	"github.com/MrEthical07/goIAM/internal/codes"
	"github.com/MrEthical07/goIAM/store"
)

// CodeResult is the caller-visible code state after a request or a
// verification. It is returned alongside code errors too, so callers can
// report remaining attempts and lock windows.
type CodeResult struct {
	ExpiresAt         time.Time
	AttemptsRemaining int
	LockedUntil       *time.Time
}

func codeResult(s codes.Status) *CodeResult {
	return &CodeResult{
		ExpiresAt:         s.ExpiresAt,
		AttemptsRemaining: s.AttemptsRemaining,
		LockedUntil:       s.LockedUntil,
	}
}

// RequestCodeMetrics maps code-request outcomes to engine metric IDs.
type RequestCodeMetrics struct {
	CodeRequested      int
	CodeRateLimited    int
	CodeDeliveryFailed int
	CodeLocked         int
}

// RequestCodeEvents names the audit actions of the code-request flow.
type RequestCodeEvents struct {
	CodeRequested      string
	CodeRequestRefused string
	CodeDeliveryFailed string
}

// RequestCodeErrors carries the root sentinels the flow returns.
type RequestCodeErrors struct {
	EngineNotReady  error
	Validation      error
	RateLimited     error
	CodeLocked      error
	DeliveryFailure error
	Conflict        error
}

// RequestCodeDeps defines code-request flow dependencies.
type RequestCodeDeps struct {
	Now                 func() time.Time
	ClientIPFromContext func(context.Context) string
	GetUserByEmail      func(context.Context, string) (*store.User, error)
	UpdateResetCode     func(ctx context.Context, id string, expected, next store.ResetCode) error
	CodeLimits          func(context.Context) codes.Limits
	AllowCodeRequest    func(ctx context.Context, email, ip string) error

	// DeliverCode hands the plaintext code to the notification collaborator.
	DeliverCode func(ctx context.Context, user *store.User, code string, expiresAt time.Time, ttl time.Duration) error

	MetricInc func(int)
	EmitAudit func(context.Context, audit.Event)
	Warn      func(string, ...any)

	Metrics RequestCodeMetrics
	Events  RequestCodeEvents
	Errors  RequestCodeErrors
}

func (d *RequestCodeDeps) normalize() bool {
	d.Now = orNow(d.Now)
	d.MetricInc = orMetric(d.MetricInc)
	d.EmitAudit = orAudit(d.EmitAudit)
	d.Warn = orWarn(d.Warn)
	d.ClientIPFromContext = orContextString(d.ClientIPFromContext)
	if d.CodeLimits == nil {
		d.CodeLimits = func(context.Context) codes.Limits { return codes.Limits{} }
	}
	return d.GetUserByEmail != nil && d.UpdateResetCode != nil && d.DeliverCode != nil
}

// RunRequestCode issues a new verification code for email and delivers it.
//
// Unknown and inactive accounts get a synthetic result shaped like a real
// issuance and nothing is stored or sent. A delivery failure returns
// DeliveryFailure while the stored code is kept; the user may request again.
func RunRequestCode(ctx context.Context, email string, deps RequestCodeDeps) (*CodeResult, error) {
	if !deps.normalize() {
		return nil, deps.Errors.EngineNotReady
	}
	email = normalizeEmail(email)
	if email == "" {
		return nil, deps.Errors.Validation
	}
	ip := deps.ClientIPFromContext(ctx)

	if deps.AllowCodeRequest != nil && limited(deps.AllowCodeRequest(ctx, email, ip), deps.Warn, "code request") {
		deps.MetricInc(deps.Metrics.CodeRateLimited)
		deps.EmitAudit(ctx, audit.Event{
			Action:   deps.Events.CodeRequestRefused,
			Actor:    email,
			Error:    errString(deps.Errors.RateLimited),
			Metadata: map[string]string{"reason": "rate_limited"},
		})
		return nil, deps.Errors.RateLimited
	}

	limits := deps.CodeLimits(ctx)
	for attempt := 0; attempt < maxWriteRetries; attempt++ {
		user, err := deps.GetUserByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return syntheticIssue(ctx, deps, email, limits, "user_not_found"), nil
			}
			return nil, err
		}
		if !user.Active {
			return syntheticIssue(ctx, deps, email, limits, "inactive"), nil
		}

		now := deps.Now()
		code, next, status, err := codes.Issue(user.ResetCode, now, limits)
		if err != nil {
			var lockErr *codes.LockError
			if errors.As(err, &lockErr) {
				lockedUntil := lockErr.LockedUntil
				deps.MetricInc(deps.Metrics.CodeLocked)
				deps.EmitAudit(ctx, audit.Event{
					Action:   deps.Events.CodeRequestRefused,
					Actor:    email,
					Target:   user.ID,
					Error:    errString(deps.Errors.CodeLocked),
					Metadata: map[string]string{"reason": "locked"},
				})
				return &CodeResult{
					ExpiresAt:   derefTime(user.ResetCode.ExpiresAt),
					LockedUntil: &lockedUntil,
				}, deps.Errors.CodeLocked
			}
			return nil, err
		}

		if err := deps.UpdateResetCode(ctx, user.ID, user.ResetCode, next); err != nil {
			if errors.Is(err, store.ErrConflict) {
				continue
			}
			return nil, err
		}

		result := codeResult(status)
		if err := deps.DeliverCode(ctx, user, code, status.ExpiresAt, normalizedTTL(limits)); err != nil {
			deps.MetricInc(deps.Metrics.CodeDeliveryFailed)
			deps.Warn("goIAM: code delivery failed: %v", err)
			deps.EmitAudit(ctx, audit.Event{
				Action: deps.Events.CodeDeliveryFailed,
				Actor:  email,
				Target: user.ID,
				Error:  err.Error(),
			})
			return result, deps.Errors.DeliveryFailure
		}

		deps.MetricInc(deps.Metrics.CodeRequested)
		deps.EmitAudit(ctx, audit.Event{
			Action:  deps.Events.CodeRequested,
			Actor:   email,
			Target:  user.ID,
			Success: true,
		})
		return result, nil
	}
	return nil, deps.Errors.Conflict
}

func syntheticIssue(ctx context.Context, deps RequestCodeDeps, email string, limits codes.Limits, reason string) *CodeResult {
	deps.EmitAudit(ctx, audit.Event{
		Action:   deps.Events.CodeRequestRefused,
		Actor:    email,
		Metadata: map[string]string{"reason": reason},
	})
	return &CodeResult{
		ExpiresAt:         deps.Now().Add(normalizedTTL(limits)),
		AttemptsRemaining: normalizedMax(limits),
	}
}

// VerifyCodeMetrics maps verification outcomes to engine metric IDs.
type VerifyCodeMetrics struct {
	CodeVerifySuccess int
	CodeVerifyFailure int
	CodeLocked        int
}

// VerifyCodeEvents names the audit actions of the verification flow.
type VerifyCodeEvents struct {
	CodeVerifySuccess string
	CodeVerifyFailure string
}

// VerifyCodeErrors carries the root sentinels the flow returns.
type VerifyCodeErrors struct {
	EngineNotReady error
	Validation     error
	CodeMissing    error
	CodeExpired    error
	CodeInvalid    error
	CodeLocked     error
	Conflict       error
}

// VerifyCodeDeps defines code-verification flow dependencies.
type VerifyCodeDeps struct {
	Now             func() time.Time
	GetUserByEmail  func(context.Context, string) (*store.User, error)
	UpdateResetCode func(ctx context.Context, id string, expected, next store.ResetCode) error
	CodeLimits      func(context.Context) codes.Limits

	MetricInc func(int)
	EmitAudit func(context.Context, audit.Event)

	Metrics VerifyCodeMetrics
	Events  VerifyCodeEvents
	Errors  VerifyCodeErrors
}

func (d *VerifyCodeDeps) normalize() bool {
	d.Now = orNow(d.Now)
	d.MetricInc = orMetric(d.MetricInc)
	d.EmitAudit = orAudit(d.EmitAudit)
	if d.CodeLimits == nil {
		d.CodeLimits = func(context.Context) codes.Limits { return codes.Limits{} }
	}
	return d.GetUserByEmail != nil && d.UpdateResetCode != nil
}

// RunVerifyCode checks candidate against the account's current code and
// persists the advanced state: the attempt counter on a mismatch, the
// verification timestamp on a match. An already verified code is refused
// as invalid.
func RunVerifyCode(ctx context.Context, email, candidate string, deps VerifyCodeDeps) (*CodeResult, error) {
	if !deps.normalize() {
		return nil, deps.Errors.EngineNotReady
	}
	email = normalizeEmail(email)
	if email == "" || !codes.ValidFormat(candidate) {
		return nil, deps.Errors.Validation
	}

	limits := deps.CodeLimits(ctx)
	for attempt := 0; attempt < maxWriteRetries; attempt++ {
		user, err := deps.GetUserByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return verifyFailure(ctx, deps, email, "", &CodeResult{}, deps.Errors.CodeMissing)
			}
			return nil, err
		}
		if !user.Active {
			return verifyFailure(ctx, deps, email, user.ID, &CodeResult{}, deps.Errors.CodeMissing)
		}

		next, status, verr := codes.Verify(user.ResetCode, candidate, deps.Now(), limits)
		result := codeResult(status)

		switch {
		case verr == nil, errors.Is(verr, codes.ErrInvalid):
			if err := deps.UpdateResetCode(ctx, user.ID, user.ResetCode, next); err != nil {
				if errors.Is(err, store.ErrConflict) {
					continue
				}
				return nil, err
			}
		}

		switch {
		case verr == nil:
			deps.MetricInc(deps.Metrics.CodeVerifySuccess)
			deps.EmitAudit(ctx, audit.Event{
				Action:  deps.Events.CodeVerifySuccess,
				Actor:   email,
				Target:  user.ID,
				Success: true,
			})
			return result, nil
		case errors.Is(verr, codes.ErrMissing):
			return verifyFailure(ctx, deps, email, user.ID, result, deps.Errors.CodeMissing)
		case errors.Is(verr, codes.ErrExpired):
			return verifyFailure(ctx, deps, email, user.ID, result, deps.Errors.CodeExpired)
		case errors.Is(verr, codes.ErrLocked):
			deps.MetricInc(deps.Metrics.CodeLocked)
			return verifyFailure(ctx, deps, email, user.ID, result, deps.Errors.CodeLocked)
		case errors.Is(verr, codes.ErrUsed):
			return verifyFailure(ctx, deps, email, user.ID, result, deps.Errors.CodeInvalid)
		case errors.Is(verr, codes.ErrInvalid):
			if result.LockedUntil != nil {
				deps.MetricInc(deps.Metrics.CodeLocked)
			}
			return verifyFailure(ctx, deps, email, user.ID, result, deps.Errors.CodeInvalid)
		default:
			return nil, verr
		}
	}
	return nil, deps.Errors.Conflict
}

func verifyFailure(ctx context.Context, deps VerifyCodeDeps, email, target string, result *CodeResult, err error) (*CodeResult, error) {
	deps.MetricInc(deps.Metrics.CodeVerifyFailure)
	deps.EmitAudit(ctx, audit.Event{
		Action: deps.Events.CodeVerifyFailure,
		Actor:  email,
		Target: target,
		Error:  errString(err),
	})
	return result, err
}

// EmailStatus is the email check result used by the forgot-password screen.
type EmailStatus struct {
	Exists             bool
	Active             bool
	MustChangePassword bool
}

// CheckEmailDeps defines email-check dependencies. Email checks share the
// code-request budget.
type CheckEmailDeps struct {
	ClientIPFromContext func(context.Context) string
	GetUserByEmail      func(context.Context, string) (*store.User, error)
	AllowCodeRequest    func(ctx context.Context, email, ip string) error
	Warn                func(string, ...any)

	Errors struct {
		EngineNotReady error
		Validation     error
		RateLimited    error
	}
}

// RunCheckEmail reports whether an account exists for email.
func RunCheckEmail(ctx context.Context, email string, deps CheckEmailDeps) (*EmailStatus, error) {
	deps.Warn = orWarn(deps.Warn)
	deps.ClientIPFromContext = orContextString(deps.ClientIPFromContext)
	if deps.GetUserByEmail == nil {
		return nil, deps.Errors.EngineNotReady
	}
	email = normalizeEmail(email)
	if email == "" {
		return nil, deps.Errors.Validation
	}
	if deps.AllowCodeRequest != nil && limited(deps.AllowCodeRequest(ctx, email, deps.ClientIPFromContext(ctx)), deps.Warn, "email check") {
		return nil, deps.Errors.RateLimited
	}

	user, err := deps.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &EmailStatus{}, nil
		}
		return nil, err
	}
	return &EmailStatus{
		Exists:             true,
		Active:             user.Active,
		MustChangePassword: user.MustChangePassword,
	}, nil
}

func normalizedTTL(l codes.Limits) time.Duration {
	if l.TTL <= 0 {
		return codes.DefaultTTL
	}
	return l.TTL
}

func normalizedMax(l codes.Limits) int {
	if l.MaxAttempts <= 0 {
		return codes.DefaultMaxAttempts
	}
	return l.MaxAttempts
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
