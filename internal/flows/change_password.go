package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goIAM/internal/audit"
	"github.com/MrEthical07/goIAM/internal/codes"
	"github.com/MrEthical07/goIAM/password"
	"github.com/MrEthical07/goIAM/permission"
	"github.com/MrEthical07/goIAM/store"
)

// ChangePasswordRequest is the caller input of a password change.
// CurrentPassword is optional; without it a fresh verified code is needed.
type ChangePasswordRequest struct {
	Email           string
	CurrentPassword string
	NewPassword     string
}

// ChangePasswordResult carries the token issued after a successful change.
type ChangePasswordResult struct {
	Token     string
	ExpiresAt time.Time
	User      *store.User
	Grants    permission.Grants
}

// ChangePasswordMetrics maps outcomes to engine metric IDs.
type ChangePasswordMetrics struct {
	PasswordChangeSuccess int
	PasswordChangeFailure int
}

// ChangePasswordEvents names the audit actions of the flow.
type ChangePasswordEvents struct {
	PasswordChangeSuccess string
	PasswordChangeFailure string
}

// ChangePasswordErrors carries the root sentinels the flow returns.
type ChangePasswordErrors struct {
	EngineNotReady         error
	Validation             error
	PolicyViolation        error
	InvalidCredentials     error
	CurrentPasswordInvalid error
	CodeRequired           error
	SamePassword           error
	Conflict               error
}

// ChangePasswordDeps defines change-password flow dependencies.
type ChangePasswordDeps struct {
	Now               func() time.Time
	GetUserByEmail    func(context.Context, string) (*store.User, error)
	VerifyPassword    func(password, encodedHash string) (bool, error)
	HashPassword      func(string) (string, error)
	UpdateCredentials func(context.Context, string, string, store.Credentials) error

	PasswordPolicy func(context.Context) password.Policy
	PasswordExpiry func(context.Context) time.Duration
	CodeLimits     func(context.Context) codes.Limits

	// PolicyError wraps a failed evaluation so callers can render the
	// per-rule breakdown. Nil falls back to Errors.PolicyViolation.
	PolicyError func(password.Result) error

	ResolveGrants func(context.Context, *store.User) (permission.Grants, error)
	IssueToken    func(context.Context, *store.User, permission.Grants) (string, time.Time, error)

	MetricInc func(int)
	EmitAudit func(context.Context, audit.Event)
	Warn      func(string, ...any)

	Metrics ChangePasswordMetrics
	Events  ChangePasswordEvents
	Errors  ChangePasswordErrors
}

func (d *ChangePasswordDeps) normalize() bool {
	d.Now = orNow(d.Now)
	d.MetricInc = orMetric(d.MetricInc)
	d.EmitAudit = orAudit(d.EmitAudit)
	d.Warn = orWarn(d.Warn)
	if d.PasswordPolicy == nil {
		d.PasswordPolicy = func(context.Context) password.Policy { return password.DefaultPolicy() }
	}
	if d.PasswordExpiry == nil {
		d.PasswordExpiry = func(context.Context) time.Duration { return 60 * 24 * time.Hour }
	}
	if d.CodeLimits == nil {
		d.CodeLimits = func(context.Context) codes.Limits { return codes.Limits{} }
	}
	return d.GetUserByEmail != nil &&
		d.VerifyPassword != nil &&
		d.HashPassword != nil &&
		d.UpdateCredentials != nil &&
		d.ResolveGrants != nil &&
		d.IssueToken != nil
}

// RunChangePassword replaces the account password. Authorization is either
// a correct current password, or a fresh verified code when no current
// password is supplied or the account is flagged mustChangePassword. On
// success the reset-code state is consumed and a new token is issued.
func RunChangePassword(ctx context.Context, req ChangePasswordRequest, deps ChangePasswordDeps) (*ChangePasswordResult, error) {
	if !deps.normalize() {
		return nil, deps.Errors.EngineNotReady
	}

	email := normalizeEmail(req.Email)
	if email == "" || req.NewPassword == "" {
		return nil, deps.Errors.Validation
	}

	fail := func(err error, reason, target string) error {
		deps.MetricInc(deps.Metrics.PasswordChangeFailure)
		deps.EmitAudit(ctx, audit.Event{
			Action:   deps.Events.PasswordChangeFailure,
			Actor:    email,
			Target:   target,
			Error:    errString(err),
			Metadata: map[string]string{"reason": reason},
		})
		return err
	}

	policy := deps.PasswordPolicy(ctx)
	if res := password.Evaluate(req.NewPassword, policy); !res.Valid {
		if deps.PolicyError != nil {
			return nil, deps.PolicyError(res)
		}
		return nil, deps.Errors.PolicyViolation
	}

	user, err := deps.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fail(deps.Errors.InvalidCredentials, "user_not_found", "")
		}
		return nil, err
	}
	if !user.Active || user.PasswordHash == "" {
		return nil, fail(deps.Errors.InvalidCredentials, "inactive_or_no_credential", user.ID)
	}

	if req.CurrentPassword != "" {
		ok, err := deps.VerifyPassword(req.CurrentPassword, user.PasswordHash)
		if err != nil || !ok {
			return nil, fail(deps.Errors.CurrentPasswordInvalid, "current_password_invalid", user.ID)
		}
	}

	now := deps.Now()
	var codeSentAt *time.Time
	if req.CurrentPassword == "" || user.MustChangePassword {
		if !codes.Fresh(user.ResetCode, now, deps.CodeLimits(ctx)) {
			return nil, fail(deps.Errors.CodeRequired, "code_required", user.ID)
		}
		codeSentAt = user.ResetCode.SentAt
	}

	if same, _ := deps.VerifyPassword(req.NewPassword, user.PasswordHash); same {
		return nil, fail(deps.Errors.SamePassword, "same_password", user.ID)
	}

	newHash, err := deps.HashPassword(req.NewPassword)
	if err != nil {
		return nil, err
	}
	changedAt := now.UTC()
	expiresAt := changedAt.Add(deps.PasswordExpiry(ctx))
	err = deps.UpdateCredentials(ctx, user.ID, user.PasswordHash, store.Credentials{
		PasswordHash:       newHash,
		PasswordChangedAt:  changedAt,
		PasswordExpiresAt:  expiresAt,
		MustChangePassword: false,
		CodeSentAt:         codeSentAt,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, fail(deps.Errors.Conflict, "concurrent_change", user.ID)
		}
		return nil, err
	}

	user.PasswordHash = newHash
	user.PasswordChangedAt = &changedAt
	user.PasswordExpiresAt = &expiresAt
	user.MustChangePassword = false
	user.ResetCode = store.ResetCode{}

	grants, err := deps.ResolveGrants(ctx, user)
	if err != nil {
		return nil, err
	}
	token, tokenExp, err := deps.IssueToken(ctx, user, grants)
	if err != nil {
		return nil, err
	}

	deps.MetricInc(deps.Metrics.PasswordChangeSuccess)
	deps.EmitAudit(ctx, audit.Event{
		Action:  deps.Events.PasswordChangeSuccess,
		Actor:   email,
		Target:  user.ID,
		Success: true,
	})
	return &ChangePasswordResult{
		Token:     token,
		ExpiresAt: tokenExp,
		User:      user,
		Grants:    grants,
	}, nil
}
