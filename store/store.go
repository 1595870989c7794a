package store

import (
	"context"
	"time"
)

// Listing limits shared by implementations.
const (
	DefaultListLimit = 100
	MaxListLimit     = 500
)

// ClampLimit applies the default and maximum page sizes.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// UserStore persists user accounts.
//
// GetUserByID and GetUserByEmail return [ErrNotFound] for unknown records.
// UpdateCredentials and UpdateResetCode are compare-on-write: they fail with
// [ErrConflict] when the stored value no longer matches the expected one.
type UserStore interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsers(ctx context.Context, filter UserFilter) ([]*User, int64, error)
	UpdateUser(ctx context.Context, id string, patch UserPatch) (*User, error)
	UpdateCredentials(ctx context.Context, id, expectedHash string, creds Credentials) error
	UpdateResetCode(ctx context.Context, id string, expected, next ResetCode) error
	DeleteUser(ctx context.Context, id string) error
}

// RoleStore persists roles.
type RoleStore interface {
	ListRoles(ctx context.Context) ([]*Role, error)
	GetRole(ctx context.Context, id string) (*Role, error)
	GetRolesByKeys(ctx context.Context, keys []string) ([]*Role, error)
	CreateRole(ctx context.Context, role *Role) error
	UpdateRole(ctx context.Context, id string, patch RolePatch) (*Role, error)
	DeleteRole(ctx context.Context, id string) error
}

// PermissionStore persists the permission catalog.
type PermissionStore interface {
	ListPermissions(ctx context.Context) ([]*Permission, error)
	CreatePermission(ctx context.Context, perm *Permission) error
	UpdatePermission(ctx context.Context, id string, patch PermissionPatch) (*Permission, error)
	DeletePermission(ctx context.Context, id string) error
	UpsertPermissions(ctx context.Context, perms []Permission) (int, error)
}

// ParameterStore persists system parameters keyed by normalised key.
type ParameterStore interface {
	GetParameter(ctx context.Context, key string) (*Parameter, error)
	ListParameters(ctx context.Context, category string) ([]*Parameter, error)
	UpsertParameter(ctx context.Context, param *Parameter) error
	DeleteParameter(ctx context.Context, key string) error
}

// AuditStore persists audit entries.
type AuditStore interface {
	InsertAudit(ctx context.Context, entry *AuditEntry) error
	ListAudit(ctx context.Context, filter AuditFilter) ([]*AuditEntry, int64, error)
	DeleteAuditBefore(ctx context.Context, before time.Time) (int64, error)
}

// Store is the full persistence surface of the service.
type Store interface {
	UserStore
	RoleStore
	PermissionStore
	ParameterStore
	AuditStore
	Close() error
}
