package goIAM

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	internalaudit "github.com/MrEthical07/goIAM/internal/audit"
	"github.com/MrEthical07/goIAM/internal/flows"
	"github.com/MrEthical07/goIAM/internal/rate"
	"github.com/MrEthical07/goIAM/jwt"
	"github.com/MrEthical07/goIAM/mail"
	"github.com/MrEthical07/goIAM/params"
	"github.com/MrEthical07/goIAM/password"
	"github.com/MrEthical07/goIAM/permission"
	"github.com/MrEthical07/goIAM/store"
)

// Engine defines a public type used by goIAM APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config     Config
	store      store.Store
	hasher     *password.Hasher
	jwt        *jwt.Manager
	limiter    *rate.Limiter
	params     *params.Cache
	settings   *params.Settings
	overrides  permission.Overrides
	navigation []permission.NavItem
	mailer     mail.Sender
	audit      *internalaudit.Dispatcher
	metrics    *Metrics
	logger     zerolog.Logger
	now        func() time.Time
	flows      flows.Deps

	dummyHash string
}

// Close describes the close operation and its observable behavior.
//
// Close drains the audit buffer. It does not close the store.
func (e *Engine) Close() {
	e.Shutdown(context.Background())
}

// Shutdown drains the audit buffer until ctx ends. Events left at the
// deadline are dropped and counted.
func (e *Engine) Shutdown(ctx context.Context) {
	if e == nil || e.audit == nil {
		return
	}
	e.audit.Shutdown(ctx)
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Settings exposes the resolved system parameters.
func (e *Engine) Settings() *params.Settings {
	return e.settings
}

// Overrides returns the configured superadmin overrides.
func (e *Engine) Overrides() permission.Overrides {
	return e.overrides
}

// DevBypass reports whether the auth gate should inject the development
// identity.
func (e *Engine) DevBypass() bool {
	return e != nil && e.config.Access.DevBypass
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) warn(format string, args ...any) {
	e.logger.Warn().Msgf(format, args...)
}

// Login describes the login operation and its observable behavior.
//
// Login returns a token for valid credentials. When the account must change
// its password first it returns a *ChangeRequiredError (unwrapping to
// ErrPasswordChangeRequired) and no token. Unknown email, inactive account
// and wrong password all return ErrInvalidCredentials.
// Login does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Login(ctx context.Context, email, pw string) (*LoginResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	res, err := flows.RunLogin(ctx, email, pw, e.flows.Login)
	if err != nil {
		return nil, err
	}
	if res.ChangeRequired {
		return nil, &ChangeRequiredError{Reason: res.Reason, Email: res.Email}
	}
	return &LoginResult{
		Token:       res.Token,
		ExpiresAt:   res.ExpiresAt,
		User:        res.User.Public(),
		Roles:       res.Grants.Roles,
		Permissions: res.Grants.Permissions,
	}, nil
}

// ChangePassword describes the changepassword operation and its observable behavior.
//
// currentPassword may be empty; the account then needs a fresh verified
// code, as it does whenever mustChangePassword is set. Policy failures
// return a *PolicyError carrying the per-rule breakdown.
// ChangePassword does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ChangePassword(ctx context.Context, email, currentPassword, newPassword string) (*LoginResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	res, err := flows.RunChangePassword(ctx, flows.ChangePasswordRequest{
		Email:           email,
		CurrentPassword: currentPassword,
		NewPassword:     newPassword,
	}, e.flows.ChangePassword)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		Token:       res.Token,
		ExpiresAt:   res.ExpiresAt,
		User:        res.User.Public(),
		Roles:       res.Grants.Roles,
		Permissions: res.Grants.Permissions,
	}, nil
}

// Logout records the logout. Tokens are not revocable; clients drop them
// and the HTTP layer clears cookies.
func (e *Engine) Logout(ctx context.Context, id *Identity) {
	if e == nil {
		return
	}
	ev := AuditEvent{Action: auditEventLogout, Success: true}
	if id != nil {
		ev.Actor = id.Email
		ev.Target = id.Subject
	}
	e.emitAudit(ctx, ev)
}

// Authenticate describes the authenticate operation and its observable behavior.
//
// Authenticate verifies a bearer token. An empty token returns
// ErrUnauthenticated; any verification failure returns an error wrapping
// ErrInvalidToken. Superadmin overrides are applied to the resolved grants.
// Authenticate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Authenticate(ctx context.Context, token string) (*Identity, error) {
	if e == nil || e.jwt == nil {
		return nil, ErrEngineNotReady
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrUnauthenticated
	}

	start := time.Now()
	claims, err := e.jwt.Parse(token)
	e.metrics.Observe(MetricValidateLatency, time.Since(start))
	if err != nil {
		e.metricInc(MetricTokenValidationFailure)
		if errors.Is(err, jwt.ErrSecretMissing) {
			e.warn("goIAM: token presented but no signing secret is configured")
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	g := e.overrides.Apply(claims.Email, permission.Grants{
		Roles:       claims.Roles,
		Permissions: claims.Permissions,
	})
	return &Identity{
		Subject:     claims.Subject,
		Email:       claims.Email,
		Name:        claims.Name,
		Roles:       g.Roles,
		Permissions: g.Permissions,
		Claims:      claims,
	}, nil
}

// Authorize returns ErrUnauthenticated without an identity and ErrForbidden
// when the identity satisfies none of anyOf.
func (e *Engine) Authorize(id *Identity, anyOf ...string) error {
	if id == nil {
		return ErrUnauthenticated
	}
	if !id.Allows(anyOf...) {
		e.metricInc(MetricForbidden)
		return ErrForbidden
	}
	return nil
}

// Session describes the session operation and its observable behavior.
//
// A nil identity yields the visitor view. Otherwise the stored user is
// attached when it still exists.
// Session does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Session(ctx context.Context, id *Identity) (*Session, error) {
	if id == nil {
		return &Session{Roles: []string{}, Permissions: []string{}, Visitor: true}, nil
	}
	s := &Session{
		Roles:        orEmpty(id.Roles),
		Permissions:  orEmpty(id.Permissions),
		Email:        id.Email,
		IsSuperAdmin: id.Bypass || e.overrides.IsSuperadmin(id.Email),
		TokenPayload: id.TokenPayload(),
	}
	if id.Bypass || id.Email == "" {
		return s, nil
	}
	user, err := e.store.GetUserByEmail(ctx, normalizeEmail(id.Email))
	switch {
	case err == nil:
		s.User = user.Public()
	case errors.Is(err, store.ErrNotFound):
	default:
		return nil, mapStoreError(err)
	}
	return s, nil
}

// Navigation returns the navigation catalog filtered by the identity's
// grants. A nil identity sees public items only.
func (e *Engine) Navigation(id *Identity) []permission.NavItem {
	return permission.Filter(e.navigation, id.Grants())
}

// PasswordPolicy returns the effective policy and its rule labels.
func (e *Engine) PasswordPolicy(ctx context.Context) PasswordPolicyView {
	p := e.settings.PasswordPolicy(ctx)
	return PasswordPolicyView{Policy: p, Rules: password.Evaluate("", p).Rules}
}

// EvaluatePassword returns the per-rule breakdown of candidate against the
// effective policy.
func (e *Engine) EvaluatePassword(ctx context.Context, candidate string) password.Result {
	return password.Evaluate(candidate, e.settings.PasswordPolicy(ctx))
}

// resolveGrants unites the user's direct permissions with those of every
// stored role it holds, then applies superadmin overrides.
func (e *Engine) resolveGrants(ctx context.Context, user *store.User) (permission.Grants, error) {
	roleKeys := permission.NormalizeRoles(user.Roles)
	lists := [][]string{user.Perms}
	if len(roleKeys) > 0 {
		roles, err := e.store.GetRolesByKeys(ctx, roleKeys)
		if err != nil {
			return permission.Grants{}, mapStoreError(err)
		}
		for _, r := range roles {
			lists = append(lists, r.Permissions)
		}
	}
	g := permission.Grants{
		Roles:       permission.Union(user.Roles),
		Permissions: permission.Union(lists...),
	}
	return e.overrides.Apply(user.Email, g), nil
}

func (e *Engine) issueToken(_ context.Context, user *store.User, g permission.Grants) (string, time.Time, error) {
	c := jwt.Claims{
		Email:       user.Email,
		Name:        user.Name,
		Roles:       g.Roles,
		Permissions: g.Permissions,
	}
	c.Subject = user.ID
	token, exp, err := e.jwt.Issue(c)
	if err != nil {
		if errors.Is(err, jwt.ErrSecretMissing) {
			return "", time.Time{}, ErrTokenSecretMissing
		}
		return "", time.Time{}, err
	}
	return token, exp, nil
}

// mapStoreError translates storage errors to the engine taxonomy.
func mapStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, store.ErrDuplicate), errors.Is(err, store.ErrConflict):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	default:
		return err
	}
}

func orEmpty(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
