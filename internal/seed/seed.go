// Package seed installs the baseline data a fresh deployment needs: system
// parameter defaults, the IAM permission catalog, the admin and iam-manager
// roles, and optionally a first superadmin account.
//
// Seeding is idempotent. Existing parameters, roles and users are left
// untouched; the permission catalog is upserted.
package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/goIAM/params"
	"github.com/MrEthical07/goIAM/password"
	"github.com/MrEthical07/goIAM/permission"
	"github.com/MrEthical07/goIAM/store"
)

// ManagerRole is the delegated administration role.
const ManagerRole = "iam-manager"

// Catalog is the base permission set guarding the IAM endpoints.
var Catalog = []store.Permission{
	{Key: permission.UsersManage, Label: "Administrar usuarios", Group: "iam", Order: 10},
	{Key: permission.RolesManage, Label: "Administrar roles y permisos", Group: "iam", Order: 20},
	{Key: permission.ParamsManage, Label: "Administrar parámetros del sistema", Group: "iam", Order: 30},
	{Key: permission.AuditRead, Label: "Consultar auditoría", Group: "iam", Order: 40},
}

// Options selects the optional superadmin account.
type Options struct {
	AdminEmail string
	AdminName  string
	Hasher     *password.Hasher
	Now        func() time.Time
}

// Result reports what was written. AdminPassword is only set when the
// account was created and is never stored in clear.
type Result struct {
	Parameters    int
	Permissions   int
	Roles         int
	AdminCreated  bool
	AdminPassword string
}

func Run(ctx context.Context, st store.Store, opts Options) (*Result, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	now := opts.Now().UTC()
	res := &Result{}

	for _, d := range params.Defaults() {
		_, err := st.GetParameter(ctx, d.Key)
		if err == nil {
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("seed: read parameter %s: %w", d.Key, err)
		}
		d.UpdatedBy = "seed"
		d.UpdatedAt = now
		if err := st.UpsertParameter(ctx, &d); err != nil {
			return nil, fmt.Errorf("seed: write parameter %s: %w", d.Key, err)
		}
		res.Parameters++
	}

	n, err := st.UpsertPermissions(ctx, Catalog)
	if err != nil {
		return nil, fmt.Errorf("seed: permissions: %w", err)
	}
	res.Permissions = n

	roles := []store.Role{
		{
			Key:         permission.AdminRole,
			Name:        "Administrador",
			Description: "Acceso total",
			Permissions: []string{permission.Wildcard},
			System:      true,
		},
		{
			Key:         ManagerRole,
			Name:        "Gestor IAM",
			Description: "Administra usuarios, roles, parámetros y auditoría",
			Permissions: []string{permission.UsersManage, permission.RolesManage, permission.ParamsManage, permission.AuditRead},
		},
	}
	for _, r := range roles {
		existing, err := st.GetRolesByKeys(ctx, []string{r.Key})
		if err != nil {
			return nil, fmt.Errorf("seed: read role %s: %w", r.Key, err)
		}
		if len(existing) > 0 {
			continue
		}
		r.ID = uuid.NewString()
		r.CreatedAt, r.UpdatedAt = now, now
		if err := st.CreateRole(ctx, &r); err != nil && !errors.Is(err, store.ErrDuplicate) {
			return nil, fmt.Errorf("seed: create role %s: %w", r.Key, err)
		}
		res.Roles++
	}

	email := strings.ToLower(strings.TrimSpace(opts.AdminEmail))
	if email == "" {
		return res, nil
	}
	if err := seedAdmin(ctx, st, opts, email, now, res); err != nil {
		return nil, err
	}
	return res, nil
}

func seedAdmin(ctx context.Context, st store.Store, opts Options, email string, now time.Time, res *Result) error {
	_, err := st.GetUserByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("seed: read admin: %w", err)
	}

	settings := params.NewSettings(params.NewCache(st, params.Config{Now: opts.Now}))
	pw, err := password.Generate(settings.PasswordPolicy(ctx))
	if err != nil {
		return fmt.Errorf("seed: generate password: %w", err)
	}
	hasher := opts.Hasher
	if hasher == nil {
		if hasher, err = password.NewHasher(password.DefaultConfig()); err != nil {
			return err
		}
	}
	hash, err := hasher.Hash(pw)
	if err != nil {
		return fmt.Errorf("seed: hash password: %w", err)
	}

	name := strings.TrimSpace(opts.AdminName)
	if name == "" {
		name = "Superadmin"
	}
	expires := now.Add(settings.PasswordExpiry(ctx))
	if err := st.CreateUser(ctx, &store.User{
		ID:                 uuid.NewString(),
		Email:              email,
		Name:               name,
		Active:             true,
		Roles:              []string{permission.AdminRole},
		Perms:              []string{},
		Provider:           store.ProviderLocal,
		PasswordHash:       hash,
		PasswordChangedAt:  &now,
		PasswordExpiresAt:  &expires,
		MustChangePassword: true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}); err != nil {
		return fmt.Errorf("seed: create admin: %w", err)
	}
	res.AdminCreated = true
	res.AdminPassword = pw
	return nil
}
