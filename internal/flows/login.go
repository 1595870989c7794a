package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goIAM/internal/audit"
	"github.com/MrEthical07/goIAM/permission"
	"github.com/MrEthical07/goIAM/store"
)

// Change-required reasons reported to the client.
const (
	ReasonFirstLogin = "first_login"
	ReasonExpired    = "expired"
)

// LoginResult is the outcome of a login with valid credentials. Exactly one
// of Token or ChangeRequired is set.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *store.User
	Grants    permission.Grants

	ChangeRequired bool
	Reason         string
	Email          string
}

// LoginMetrics maps login outcomes to engine metric IDs.
type LoginMetrics struct {
	LoginSuccess        int
	LoginFailure        int
	LoginChangeRequired int
	LoginRateLimited    int
}

// LoginEvents names the audit actions emitted by the login flow.
type LoginEvents struct {
	LoginSuccess        string
	LoginFailure        string
	LoginChangeRequired string
	LoginRateLimited    string
}

// LoginErrors carries the root sentinels the flow returns.
type LoginErrors struct {
	EngineNotReady     error
	Validation         error
	InvalidCredentials error
	RateLimited        error
}

// LoginDeps defines login flow dependencies.
type LoginDeps struct {
	Now                  func() time.Time
	ClientIPFromContext  func(context.Context) string
	GetUserByEmail       func(context.Context, string) (*store.User, error)
	VerifyPassword       func(password, encodedHash string) (bool, error)
	PasswordNeedsUpgrade func(string) (bool, error)
	HashPassword         func(string) (string, error)
	UpdateCredentials    func(context.Context, string, string, store.Credentials) error
	PasswordExpiry       func(context.Context) time.Duration

	// DummyHash is verified against when no account hash exists so that
	// unknown emails cost the same as wrong passwords.
	DummyHash string

	CheckLoginRate     func(ctx context.Context, email, ip string) error
	IncrementLoginRate func(ctx context.Context, email, ip string) error
	ResetLoginRate     func(ctx context.Context, email string) error

	ResolveGrants func(context.Context, *store.User) (permission.Grants, error)
	IssueToken    func(context.Context, *store.User, permission.Grants) (string, time.Time, error)

	MetricInc func(int)
	EmitAudit func(context.Context, audit.Event)
	Warn      func(string, ...any)

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

func (d *LoginDeps) normalize() bool {
	d.Now = orNow(d.Now)
	d.MetricInc = orMetric(d.MetricInc)
	d.EmitAudit = orAudit(d.EmitAudit)
	d.Warn = orWarn(d.Warn)
	d.ClientIPFromContext = orContextString(d.ClientIPFromContext)
	return d.GetUserByEmail != nil &&
		d.VerifyPassword != nil &&
		d.ResolveGrants != nil &&
		d.IssueToken != nil
}

// RunLogin authenticates email/password. It returns a token, a
// change-required signal, or a uniform InvalidCredentials error.
func RunLogin(ctx context.Context, email, password string, deps LoginDeps) (*LoginResult, error) {
	if !deps.normalize() {
		return nil, deps.Errors.EngineNotReady
	}

	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, deps.Errors.Validation
	}
	ip := deps.ClientIPFromContext(ctx)

	if deps.CheckLoginRate != nil && limited(deps.CheckLoginRate(ctx, email, ip), deps.Warn, "login") {
		deps.MetricInc(deps.Metrics.LoginRateLimited)
		deps.EmitAudit(ctx, audit.Event{
			Action: deps.Events.LoginRateLimited,
			Actor:  email,
			Error:  errString(deps.Errors.RateLimited),
		})
		return nil, deps.Errors.RateLimited
	}

	user, err := deps.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		burnVerify(deps, password)
		return nil, loginFailure(ctx, deps, email, ip, "user_not_found")
	}
	if user.PasswordHash == "" {
		burnVerify(deps, password)
		return nil, loginFailure(ctx, deps, email, ip, "no_credential")
	}

	ok, err := deps.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return nil, loginFailure(ctx, deps, email, ip, "invalid_password")
	}
	// Checked after the hash comparison so an inactive account costs the
	// same as an active one.
	if !user.Active {
		return nil, loginFailure(ctx, deps, email, ip, "inactive")
	}

	if deps.ResetLoginRate != nil {
		if err := deps.ResetLoginRate(ctx, email); err != nil {
			deps.Warn("goIAM: reset login rate failed: %v", err)
		}
	}
	upgradeHash(ctx, deps, user, password)

	now := deps.Now()
	reason := ""
	switch {
	case user.MustChangePassword:
		reason = ReasonFirstLogin
	case user.PasswordExpiresAt != nil && !now.Before(*user.PasswordExpiresAt):
		reason = ReasonExpired
	}
	if reason != "" {
		deps.MetricInc(deps.Metrics.LoginChangeRequired)
		deps.EmitAudit(ctx, audit.Event{
			Action:   deps.Events.LoginChangeRequired,
			Actor:    email,
			Target:   user.ID,
			Success:  true,
			Metadata: map[string]string{"reason": reason},
		})
		return &LoginResult{
			User:           user,
			ChangeRequired: true,
			Reason:         reason,
			Email:          user.Email,
		}, nil
	}

	grants, err := deps.ResolveGrants(ctx, user)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := deps.IssueToken(ctx, user, grants)
	if err != nil {
		return nil, err
	}

	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.EmitAudit(ctx, audit.Event{
		Action:  deps.Events.LoginSuccess,
		Actor:   email,
		Target:  user.ID,
		Success: true,
	})
	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
		Grants:    grants,
		Email:     user.Email,
	}, nil
}

func loginFailure(ctx context.Context, deps LoginDeps, email, ip, reason string) error {
	if deps.IncrementLoginRate != nil {
		if err := deps.IncrementLoginRate(ctx, email, ip); err != nil {
			deps.Warn("goIAM: increment login rate failed: %v", err)
		}
	}
	deps.MetricInc(deps.Metrics.LoginFailure)
	deps.EmitAudit(ctx, audit.Event{
		Action:   deps.Events.LoginFailure,
		Actor:    email,
		Error:    errString(deps.Errors.InvalidCredentials),
		Metadata: map[string]string{"reason": reason},
	})
	return deps.Errors.InvalidCredentials
}

func burnVerify(deps LoginDeps, password string) {
	if deps.DummyHash == "" {
		return
	}
	_, _ = deps.VerifyPassword(password, deps.DummyHash)
}

// upgradeHash rewrites a legacy or weaker hash after a successful
// comparison. Failures are warned and never fail the login.
func upgradeHash(ctx context.Context, deps LoginDeps, user *store.User, password string) {
	if deps.PasswordNeedsUpgrade == nil || deps.HashPassword == nil || deps.UpdateCredentials == nil {
		return
	}
	needs, err := deps.PasswordNeedsUpgrade(user.PasswordHash)
	if err != nil || !needs {
		return
	}
	newHash, err := deps.HashPassword(password)
	if err != nil {
		deps.Warn("goIAM: rehash failed: %v", err)
		return
	}

	now := deps.Now().UTC()
	changedAt := now
	if user.PasswordChangedAt != nil {
		changedAt = *user.PasswordChangedAt
	}
	var expiresAt time.Time
	switch {
	case user.PasswordExpiresAt != nil:
		expiresAt = *user.PasswordExpiresAt
	case deps.PasswordExpiry != nil:
		expiresAt = now.Add(deps.PasswordExpiry(ctx))
	default:
		expiresAt = now.Add(60 * 24 * time.Hour)
	}

	err = deps.UpdateCredentials(ctx, user.ID, user.PasswordHash, store.Credentials{
		PasswordHash:       newHash,
		PasswordChangedAt:  changedAt,
		PasswordExpiresAt:  expiresAt,
		MustChangePassword: user.MustChangePassword,
	})
	if err != nil {
		deps.Warn("goIAM: hash upgrade for %s not persisted: %v", user.ID, err)
		return
	}
	user.PasswordHash = newHash
	user.PasswordChangedAt = &changedAt
	user.PasswordExpiresAt = &expiresAt
}
