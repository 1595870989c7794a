package goIAM

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/MrEthical07/goIAM/permission"
	"github.com/MrEthical07/goIAM/store"
)

// RoleUpdate lists editable role fields. Nil fields are left untouched.
type RoleUpdate struct {
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	Permissions *[]string `json:"permissions"`
}

// PermissionUpdate lists editable permission fields.
type PermissionUpdate struct {
	Key   *string `json:"key"`
	Label *string `json:"label"`
	Group *string `json:"group"`
	Order *int    `json:"order"`
}

func roleSnapshot(r *store.Role) map[string]any {
	if r == nil {
		return nil
	}
	return map[string]any{
		"id":          r.ID,
		"key":         r.Key,
		"name":        r.Name,
		"description": r.Description,
		"permissions": append([]string(nil), r.Permissions...),
		"system":      r.System,
	}
}

func permissionSnapshot(p *store.Permission) map[string]any {
	if p == nil {
		return nil
	}
	return map[string]any{
		"id":    p.ID,
		"key":   p.Key,
		"label": p.Label,
		"group": p.Group,
		"order": p.Order,
	}
}

/* ==== ROLES ==== */

// ListRoles returns every role ordered by key.
func (e *Engine) ListRoles(ctx context.Context) ([]*store.Role, error) {
	roles, err := e.store.ListRoles(ctx)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return roles, nil
}

// CreateRole describes the createrole operation and its observable behavior.
//
// CreateRole may return an error when input validation, dependency calls, or security checks fail.
// A duplicate key returns ErrConflict.
func (e *Engine) CreateRole(ctx context.Context, in RoleInput) (*store.Role, error) {
	key := permission.NormalizeRoleKey(in.Key)
	if err := permission.ValidateKey(key); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	perms, err := permission.NormalizeGrants(in.Permissions)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = key
	}

	now := e.now().UTC()
	role := &store.Role{
		ID:          uuid.NewString(),
		Key:         key,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Permissions: perms,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.store.CreateRole(ctx, role); err != nil {
		err = mapStoreError(err)
		e.emitAdmin(ctx, auditEventRoleCreate, key, nil, nil, err)
		return nil, err
	}
	e.emitAdmin(ctx, auditEventRoleCreate, role.ID, nil, roleSnapshot(role), nil)
	return role, nil
}

// UpdateRole applies a role patch. The key is immutable.
func (e *Engine) UpdateRole(ctx context.Context, id string, u RoleUpdate) (*store.Role, error) {
	patch := store.RolePatch{}
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrValidation)
		}
		patch.Name = &name
	}
	if u.Description != nil {
		desc := strings.TrimSpace(*u.Description)
		patch.Description = &desc
	}
	if u.Permissions != nil {
		perms, err := permission.NormalizeGrants(*u.Permissions)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		patch.Permissions = &perms
	}
	if patch.Name == nil && patch.Description == nil && patch.Permissions == nil {
		return nil, fmt.Errorf("%w: nothing to update", ErrValidation)
	}
	return e.patchRole(ctx, strings.TrimSpace(id), patch)
}

func (e *Engine) patchRole(ctx context.Context, id string, patch store.RolePatch) (*store.Role, error) {
	before, err := e.store.GetRole(ctx, id)
	if err != nil {
		return nil, mapStoreError(err)
	}
	after, err := e.store.UpdateRole(ctx, id, patch)
	if err != nil {
		err = mapStoreError(err)
		e.emitAdmin(ctx, auditEventRoleUpdate, id, roleSnapshot(before), nil, err)
		return nil, err
	}
	e.emitAdmin(ctx, auditEventRoleUpdate, id, roleSnapshot(before), roleSnapshot(after), nil)
	return after, nil
}

// DeleteRole removes a role. System roles cannot be deleted.
func (e *Engine) DeleteRole(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	before, err := e.store.GetRole(ctx, id)
	if err != nil {
		return mapStoreError(err)
	}
	if before.System {
		e.emitAdmin(ctx, auditEventRoleDelete, id, roleSnapshot(before), nil, ErrSystemRole)
		return ErrSystemRole
	}
	if err := e.store.DeleteRole(ctx, id); err != nil {
		err = mapStoreError(err)
		e.emitAdmin(ctx, auditEventRoleDelete, id, roleSnapshot(before), nil, err)
		return err
	}
	e.emitAdmin(ctx, auditEventRoleDelete, id, roleSnapshot(before), nil, nil)
	return nil
}

// RolePermissions returns the permission list of a role.
func (e *Engine) RolePermissions(ctx context.Context, id string) ([]string, error) {
	r, err := e.store.GetRole(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, mapStoreError(err)
	}
	return orEmpty(r.Permissions), nil
}

// SetRolePermissions replaces the permission list of a role.
func (e *Engine) SetRolePermissions(ctx context.Context, id string, perms []string) (*store.Role, error) {
	normalized, err := permission.NormalizeGrants(perms)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return e.patchRole(ctx, strings.TrimSpace(id), store.RolePatch{Permissions: &normalized})
}

/* ==== PERMISSIONS ==== */

// ListPermissions returns the catalog ordered by group, order and key.
func (e *Engine) ListPermissions(ctx context.Context) ([]*store.Permission, error) {
	perms, err := e.store.ListPermissions(ctx)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return perms, nil
}

func normalizePermissionInput(in PermissionInput) (store.Permission, error) {
	group := strings.ToLower(strings.TrimSpace(in.Group))
	key := permission.NormalizeKey(in.Key, group)
	if err := permission.ValidateKey(key); err != nil {
		return store.Permission{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if group == "" {
		if i := strings.Index(key, "."); i > 0 {
			group = key[:i]
		}
	}
	label := strings.TrimSpace(in.Label)
	if label == "" {
		label = key
	}
	return store.Permission{Key: key, Label: label, Group: group, Order: in.Order}, nil
}

// CreatePermission adds a catalog entry. A bare key with a group becomes
// "group.key". A duplicate key returns ErrConflict.
func (e *Engine) CreatePermission(ctx context.Context, in PermissionInput) (*store.Permission, error) {
	p, err := normalizePermissionInput(in)
	if err != nil {
		return nil, err
	}
	now := e.now().UTC()
	p.ID = uuid.NewString()
	p.CreatedAt, p.UpdatedAt = now, now
	if err := e.store.CreatePermission(ctx, &p); err != nil {
		err = mapStoreError(err)
		e.emitAdmin(ctx, auditEventPermissionCreate, p.Key, nil, nil, err)
		return nil, err
	}
	e.emitAdmin(ctx, auditEventPermissionCreate, p.ID, nil, permissionSnapshot(&p), nil)
	return &p, nil
}

// UpdatePermission applies a permission patch.
func (e *Engine) UpdatePermission(ctx context.Context, id string, u PermissionUpdate) (*store.Permission, error) {
	id = strings.TrimSpace(id)
	patch := store.PermissionPatch{Order: u.Order}
	if u.Group != nil {
		g := strings.ToLower(strings.TrimSpace(*u.Group))
		patch.Group = &g
	}
	if u.Key != nil {
		group := ""
		if patch.Group != nil {
			group = *patch.Group
		}
		key := permission.NormalizeKey(*u.Key, group)
		if err := permission.ValidateKey(key); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		patch.Key = &key
	}
	if u.Label != nil {
		label := strings.TrimSpace(*u.Label)
		patch.Label = &label
	}
	if patch.Key == nil && patch.Label == nil && patch.Group == nil && patch.Order == nil {
		return nil, fmt.Errorf("%w: nothing to update", ErrValidation)
	}

	after, err := e.store.UpdatePermission(ctx, id, patch)
	if err != nil {
		err = mapStoreError(err)
		e.emitAdmin(ctx, auditEventPermissionUpdate, id, nil, nil, err)
		return nil, err
	}
	e.emitAdmin(ctx, auditEventPermissionUpdate, id, nil, permissionSnapshot(after), nil)
	return after, nil
}

// DeletePermission removes a catalog entry. Roles and users that hold the
// key keep it until edited.
func (e *Engine) DeletePermission(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	err := mapStoreError(e.store.DeletePermission(ctx, id))
	e.emitAdmin(ctx, auditEventPermissionDelete, id, nil, nil, err)
	return err
}

// SyncPermissions upserts a catalog list keyed by normalized key and
// returns the number of entries written.
func (e *Engine) SyncPermissions(ctx context.Context, in []PermissionInput) (int, error) {
	if len(in) == 0 {
		return 0, fmt.Errorf("%w: permissions list is empty", ErrValidation)
	}
	perms := make([]store.Permission, 0, len(in))
	seen := map[string]bool{}
	for _, item := range in {
		p, err := normalizePermissionInput(item)
		if err != nil {
			return 0, err
		}
		if seen[p.Key] {
			continue
		}
		seen[p.Key] = true
		perms = append(perms, p)
	}
	n, err := e.store.UpsertPermissions(ctx, perms)
	if err != nil {
		err = mapStoreError(err)
		e.emitAdmin(ctx, auditEventPermissionSync, "", nil, nil, err)
		return 0, err
	}
	e.emitAudit(ctx, AuditEvent{
		Action:   auditEventPermissionSync,
		Actor:    actorFromContext(ctx),
		Success:  true,
		Metadata: map[string]string{"count": fmt.Sprint(n)},
	})
	return n, nil
}
