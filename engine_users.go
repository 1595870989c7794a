package goIAM

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/MrEthical07/goIAM/mail"
	"github.com/MrEthical07/goIAM/password"
	"github.com/MrEthical07/goIAM/permission"
	"github.com/MrEthical07/goIAM/store"
)

// UserPatch lists the administrator-editable user fields. Nil fields are
// left untouched.
type UserPatch struct {
	Name       *string   `json:"name"`
	ExternalID *string   `json:"externalId"`
	Roles      *[]string `json:"roles"`
	Perms      *[]string `json:"perms"`
	Active     *bool     `json:"active"`
}

// ListUsers returns a page of users matching q (email or name,
// case-insensitive) and the total match count.
func (e *Engine) ListUsers(ctx context.Context, q string, limit, skip int) ([]*store.User, int64, error) {
	users, total, err := e.store.ListUsers(ctx, store.UserFilter{
		Query: strings.TrimSpace(q),
		Limit: store.ClampLimit(limit),
		Skip:  max(skip, 0),
	})
	if err != nil {
		return nil, 0, mapStoreError(err)
	}
	out := make([]*store.User, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out, total, nil
}

// GetUser returns the public view of one user.
func (e *Engine) GetUser(ctx context.Context, id string) (*store.User, error) {
	u, err := e.store.GetUserByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, mapStoreError(err)
	}
	return u.Public(), nil
}

// CreateUser describes the createuser operation and its observable behavior.
//
// A password is generated when none is given; either way the account must
// change it on first login. The welcome email is best effort: its outcome is
// reported in the result and a failure never rolls the account back.
// CreateUser may return an error when input validation, dependency calls, or security checks fail.
func (e *Engine) CreateUser(ctx context.Context, in CreateUserInput) (*CreateUserResult, error) {
	email := normalizeEmail(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: a valid email is required", ErrValidation)
	}
	perms, err := permission.NormalizeGrants(in.Perms)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		provider = store.ProviderLocal
	}

	policy := e.settings.PasswordPolicy(ctx)
	pw := in.Password
	if pw == "" {
		if pw, err = password.Generate(policy); err != nil {
			return nil, err
		}
	} else if res := password.Evaluate(pw, policy); !res.Valid {
		return nil, &PolicyError{Result: res}
	}
	hash, err := e.hasher.Hash(pw)
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()
	expiresAt := now.Add(e.settings.PasswordExpiry(ctx))
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	user := &store.User{
		ID:                 uuid.NewString(),
		ExternalID:         strings.TrimSpace(in.ExternalID),
		Email:              email,
		Name:               name,
		Active:             true,
		Roles:              permission.NormalizeRoles(in.Roles),
		Perms:              perms,
		Provider:           provider,
		PasswordHash:       hash,
		PasswordChangedAt:  &now,
		PasswordExpiresAt:  &expiresAt,
		MustChangePassword: true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := e.store.CreateUser(ctx, user); err != nil {
		err = mapStoreError(err)
		e.emitAdmin(ctx, auditEventUserCreate, email, nil, nil, err)
		return nil, err
	}
	e.metricInc(MetricUserCreated)
	e.emitAdmin(ctx, auditEventUserCreate, user.ID, nil, user.Snapshot(), nil)

	res := &CreateUserResult{User: user.Public(), TempPassword: pw}
	if in.SendEmail == nil || *in.SendEmail {
		if err := e.sendWelcome(ctx, user, pw); err != nil {
			e.metricInc(MetricWelcomeEmailFailure)
			e.logger.Warn().Err(err).Str("user", user.ID).Msg("goIAM: welcome email failed")
			res.EmailError = err.Error()
		} else {
			res.EmailSent = true
		}
	}
	return res, nil
}

func (e *Engine) sendWelcome(ctx context.Context, user *store.User, tempPassword string) error {
	msg, err := mail.WelcomeEmail(mail.WelcomeData{
		To:           user.Email,
		Name:         user.Name,
		TempPassword: tempPassword,
		LoginURL:     e.config.Mail.LoginURL,
	})
	if err != nil {
		return err
	}
	return e.mailer.Send(ctx, msg)
}

// UpdateUser applies an administrator patch.
func (e *Engine) UpdateUser(ctx context.Context, id string, p UserPatch) (*store.User, error) {
	id = strings.TrimSpace(id)
	patch := store.UserPatch{Active: p.Active}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrValidation)
		}
		patch.Name = &name
	}
	if p.ExternalID != nil {
		ext := strings.TrimSpace(*p.ExternalID)
		patch.ExternalID = &ext
	}
	if p.Roles != nil {
		roles := permission.NormalizeRoles(*p.Roles)
		patch.Roles = &roles
	}
	if p.Perms != nil {
		perms, err := permission.NormalizeGrants(*p.Perms)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		patch.Perms = &perms
	}
	if patch.Empty() {
		return nil, fmt.Errorf("%w: nothing to update", ErrValidation)
	}
	return e.patchUser(ctx, auditEventUserUpdate, id, patch)
}

// SetUserActive enables or disables an account. Disabled accounts cannot
// log in or receive codes.
func (e *Engine) SetUserActive(ctx context.Context, id string, active bool) (*store.User, error) {
	action := auditEventUserDisable
	if active {
		action = auditEventUserEnable
	}
	return e.patchUser(ctx, action, strings.TrimSpace(id), store.UserPatch{Active: &active})
}

func (e *Engine) patchUser(ctx context.Context, action, id string, patch store.UserPatch) (*store.User, error) {
	before, err := e.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err)
	}
	after, err := e.store.UpdateUser(ctx, id, patch)
	if err != nil {
		err = mapStoreError(err)
		e.emitAdmin(ctx, action, id, before.Snapshot(), nil, err)
		return nil, err
	}
	e.metricInc(MetricUserUpdated)
	e.emitAdmin(ctx, action, id, before.Snapshot(), after.Snapshot(), nil)
	return after.Public(), nil
}

// SetUserPassword describes the setuserpassword operation and its observable behavior.
//
// SetUserPassword replaces the password on behalf of an administrator. An
// empty password is generated. The account must change it at next login.
// The password that was set is returned.
// SetUserPassword may return an error when input validation, dependency calls, or security checks fail.
func (e *Engine) SetUserPassword(ctx context.Context, id, pw string) (string, error) {
	id = strings.TrimSpace(id)
	policy := e.settings.PasswordPolicy(ctx)
	var err error
	if pw == "" {
		if pw, err = password.Generate(policy); err != nil {
			return "", err
		}
	} else if res := password.Evaluate(pw, policy); !res.Valid {
		return "", &PolicyError{Result: res}
	}
	hash, err := e.hasher.Hash(pw)
	if err != nil {
		return "", err
	}

	for attempt := 0; attempt < 3; attempt++ {
		user, err := e.store.GetUserByID(ctx, id)
		if err != nil {
			return "", mapStoreError(err)
		}
		now := e.now().UTC()
		err = e.store.UpdateCredentials(ctx, id, user.PasswordHash, store.Credentials{
			PasswordHash:       hash,
			PasswordChangedAt:  now,
			PasswordExpiresAt:  now.Add(e.settings.PasswordExpiry(ctx)),
			MustChangePassword: true,
		})
		if errors.Is(err, store.ErrConflict) {
			continue
		}
		if err != nil {
			err = mapStoreError(err)
			e.emitAdmin(ctx, auditEventUserSetPassword, id, nil, nil, err)
			return "", err
		}
		e.metricInc(MetricUserUpdated)
		e.emitAdmin(ctx, auditEventUserSetPassword, id, nil, map[string]any{"mustChangePassword": true}, nil)
		return pw, nil
	}
	e.emitAdmin(ctx, auditEventUserSetPassword, id, nil, nil, ErrConflict)
	return "", ErrConflict
}

// DeleteUser removes an account.
func (e *Engine) DeleteUser(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	before, err := e.store.GetUserByID(ctx, id)
	if err != nil {
		return mapStoreError(err)
	}
	if err := e.store.DeleteUser(ctx, id); err != nil {
		err = mapStoreError(err)
		e.emitAdmin(ctx, auditEventUserDelete, id, before.Snapshot(), nil, err)
		return err
	}
	e.metricInc(MetricUserDeleted)
	e.emitAdmin(ctx, auditEventUserDelete, id, before.Snapshot(), nil, nil)
	return nil
}
