package goIAM

import (
	"context"
	"time"

	"github.com/MrEthical07/goIAM/internal/codes"
	"github.com/MrEthical07/goIAM/internal/flows"
	"github.com/MrEthical07/goIAM/internal/rate"
	"github.com/MrEthical07/goIAM/mail"
	"github.com/MrEthical07/goIAM/password"
	"github.com/MrEthical07/goIAM/store"
)

// buildFlowDeps binds the flow packages to the engine's collaborators. It
// runs once from Build; flows never reach back into the Engine.
func (e *Engine) buildFlowDeps() flows.Deps {
	var d flows.Deps

	metricInc := func(id int) { e.metricInc(MetricID(id)) }
	emit := func(ctx context.Context, ev AuditEvent) { e.emitAudit(ctx, ev) }

	/* ==== LOGIN ==== */
	d.Login = flows.LoginDeps{
		Now:                 e.now,
		ClientIPFromContext: clientIPFromContext,
		GetUserByEmail:      e.store.GetUserByEmail,
		VerifyPassword:      e.hasher.Verify,
		HashPassword:        e.hasher.Hash,
		UpdateCredentials:   e.store.UpdateCredentials,
		PasswordExpiry:      e.settings.PasswordExpiry,
		DummyHash:           e.dummyHash,
		ResolveGrants:       e.resolveGrants,
		IssueToken:          e.issueToken,
		MetricInc:           metricInc,
		EmitAudit:           emit,
		Warn:                e.warn,
		Metrics: flows.LoginMetrics{
			LoginSuccess:        int(MetricLoginSuccess),
			LoginFailure:        int(MetricLoginFailure),
			LoginChangeRequired: int(MetricLoginChangeRequired),
			LoginRateLimited:    int(MetricLoginRateLimited),
		},
		Events: flows.LoginEvents{
			LoginSuccess:        auditEventLoginSuccess,
			LoginFailure:        auditEventLoginFailure,
			LoginChangeRequired: auditEventLoginChangeRequired,
			LoginRateLimited:    auditEventLoginRateLimited,
		},
		Errors: flows.LoginErrors{
			EngineNotReady:     ErrEngineNotReady,
			Validation:         ErrValidation,
			InvalidCredentials: ErrInvalidCredentials,
			RateLimited:        ErrRateLimited,
		},
	}
	if e.config.Password.UpgradeOnLogin {
		d.Login.PasswordNeedsUpgrade = e.hasher.NeedsUpgrade
	}
	if e.limiter != nil {
		d.Login.CheckLoginRate = func(ctx context.Context, email, ip string) error {
			return e.limiter.CheckLogin(ctx, email, ip, e.loginLimits(ctx))
		}
		d.Login.IncrementLoginRate = func(ctx context.Context, email, ip string) error {
			return e.limiter.IncrementLogin(ctx, email, ip, e.loginLimits(ctx))
		}
		d.Login.ResetLoginRate = e.limiter.ResetLogin
	}

	/* ==== CHANGE PASSWORD ==== */
	d.ChangePassword = flows.ChangePasswordDeps{
		Now:               e.now,
		GetUserByEmail:    e.store.GetUserByEmail,
		VerifyPassword:    e.hasher.Verify,
		HashPassword:      e.hasher.Hash,
		UpdateCredentials: e.store.UpdateCredentials,
		PasswordPolicy:    e.settings.PasswordPolicy,
		PasswordExpiry:    e.settings.PasswordExpiry,
		CodeLimits:        e.codeLimits,
		PolicyError: func(r password.Result) error {
			return &PolicyError{Result: r}
		},
		ResolveGrants: e.resolveGrants,
		IssueToken:    e.issueToken,
		MetricInc:     metricInc,
		EmitAudit:     emit,
		Warn:          e.warn,
		Metrics: flows.ChangePasswordMetrics{
			PasswordChangeSuccess: int(MetricPasswordChangeSuccess),
			PasswordChangeFailure: int(MetricPasswordChangeFailure),
		},
		Events: flows.ChangePasswordEvents{
			PasswordChangeSuccess: auditEventPasswordChangeSuccess,
			PasswordChangeFailure: auditEventPasswordChangeFailure,
		},
		Errors: flows.ChangePasswordErrors{
			EngineNotReady:         ErrEngineNotReady,
			Validation:             ErrValidation,
			PolicyViolation:        ErrPolicyViolation,
			InvalidCredentials:     ErrInvalidCredentials,
			CurrentPasswordInvalid: ErrCurrentPasswordInvalid,
			CodeRequired:           ErrCodeRequired,
			SamePassword:           ErrSamePassword,
			Conflict:               ErrConflict,
		},
	}

	/* ==== VERIFICATION CODES ==== */
	d.RequestCode = flows.RequestCodeDeps{
		Now:                 e.now,
		ClientIPFromContext: clientIPFromContext,
		GetUserByEmail:      e.store.GetUserByEmail,
		UpdateResetCode:     e.store.UpdateResetCode,
		CodeLimits:          e.codeLimits,
		DeliverCode:         e.deliverCode,
		MetricInc:           metricInc,
		EmitAudit:           emit,
		Warn:                e.warn,
		Metrics: flows.RequestCodeMetrics{
			CodeRequested:      int(MetricCodeRequested),
			CodeRateLimited:    int(MetricCodeRateLimited),
			CodeDeliveryFailed: int(MetricCodeDeliveryFailure),
			CodeLocked:         int(MetricCodeLocked),
		},
		Events: flows.RequestCodeEvents{
			CodeRequested:      auditEventCodeRequested,
			CodeRequestRefused: auditEventCodeRequestRefused,
			CodeDeliveryFailed: auditEventCodeDeliveryFailed,
		},
		Errors: flows.RequestCodeErrors{
			EngineNotReady:  ErrEngineNotReady,
			Validation:      ErrValidation,
			RateLimited:     ErrRateLimited,
			CodeLocked:      ErrCodeLocked,
			DeliveryFailure: ErrDeliveryFailure,
			Conflict:        ErrConflict,
		},
	}
	d.VerifyCode = flows.VerifyCodeDeps{
		Now:             e.now,
		GetUserByEmail:  e.store.GetUserByEmail,
		UpdateResetCode: e.store.UpdateResetCode,
		CodeLimits:      e.codeLimits,
		MetricInc:       metricInc,
		EmitAudit:       emit,
		Metrics: flows.VerifyCodeMetrics{
			CodeVerifySuccess: int(MetricCodeVerifySuccess),
			CodeVerifyFailure: int(MetricCodeVerifyFailure),
			CodeLocked:        int(MetricCodeLocked),
		},
		Events: flows.VerifyCodeEvents{
			CodeVerifySuccess: auditEventCodeVerifySuccess,
			CodeVerifyFailure: auditEventCodeVerifyFailure,
		},
		Errors: flows.VerifyCodeErrors{
			EngineNotReady: ErrEngineNotReady,
			Validation:     ErrValidation,
			CodeMissing:    ErrCodeMissing,
			CodeExpired:    ErrCodeExpired,
			CodeInvalid:    ErrCodeInvalid,
			CodeLocked:     ErrCodeLocked,
			Conflict:       ErrConflict,
		},
	}
	d.CheckEmail = flows.CheckEmailDeps{
		ClientIPFromContext: clientIPFromContext,
		GetUserByEmail:      e.store.GetUserByEmail,
		Warn:                e.warn,
	}
	d.CheckEmail.Errors.EngineNotReady = ErrEngineNotReady
	d.CheckEmail.Errors.Validation = ErrValidation
	d.CheckEmail.Errors.RateLimited = ErrRateLimited

	if e.limiter != nil {
		d.RequestCode.AllowCodeRequest = e.limiter.AllowCodeRequest
		d.CheckEmail.AllowCodeRequest = e.limiter.AllowCodeRequest
	}

	return d
}

func (e *Engine) loginLimits(ctx context.Context) rate.Limits {
	max, window := e.settings.LoginLimits(ctx)
	return rate.Limits{Max: max, Window: window}
}

func (e *Engine) codeLimits(ctx context.Context) codes.Limits {
	return codes.Limits{
		TTL:         e.settings.CodeTTL(ctx),
		MaxAttempts: e.settings.CodeMaxAttempts(ctx),
	}
}

// deliverCode renders the code email and hands it to the mailer. The
// plaintext code never leaves this function except through the mailer.
func (e *Engine) deliverCode(ctx context.Context, user *store.User, code string, expiresAt time.Time, ttl time.Duration) error {
	msg, err := mail.CodeEmail(mail.CodeData{
		To:        user.Email,
		Name:      user.Name,
		Code:      code,
		ExpiresAt: expiresAt,
		TTL:       ttl,
	})
	if err != nil {
		return err
	}
	return e.mailer.Send(ctx, msg)
}
