package memstore

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/goIAM/store"
)

func copyRole(r *store.Role) *store.Role {
	c := *r
	c.Permissions = append([]string(nil), r.Permissions...)
	return &c
}

func (s *Store) ListRoles(_ context.Context) ([]*store.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*store.Role, 0, len(s.roles))
	for _, r := range s.roles {
		out = append(out, copyRole(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *Store) GetRole(_ context.Context, id string) (*store.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.roles[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyRole(r), nil
}

func (s *Store) GetRolesByKeys(_ context.Context, keys []string) ([]*store.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		wanted[strings.ToLower(strings.TrimSpace(k))] = struct{}{}
	}
	out := make([]*store.Role, 0, len(keys))
	for _, r := range s.roles {
		if _, ok := wanted[r.Key]; ok {
			out = append(out, copyRole(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *Store) CreateRole(_ context.Context, role *store.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.roles {
		if r.Key == role.Key {
			return store.ErrDuplicate
		}
	}
	s.roles[role.ID] = copyRole(role)
	return nil
}

func (s *Store) UpdateRole(_ context.Context, id string, patch store.RolePatch) (*store.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.roles[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if patch.Name != nil {
		r.Name = *patch.Name
	}
	if patch.Description != nil {
		r.Description = *patch.Description
	}
	if patch.Permissions != nil {
		r.Permissions = append([]string(nil), (*patch.Permissions)...)
	}
	r.UpdatedAt = s.now().UTC()
	return copyRole(r), nil
}

func (s *Store) DeleteRole(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.roles[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.roles, id)
	return nil
}

func (s *Store) ListPermissions(_ context.Context) ([]*store.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*store.Permission, 0, len(s.permissions))
	for _, p := range s.permissions {
		c := *p
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Group != out[j].Group {
			return out[i].Group < out[j].Group
		}
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].Key < out[j].Key
	})
	return out, nil
}

func (s *Store) CreatePermission(_ context.Context, perm *store.Permission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.permissions {
		if p.Key == perm.Key {
			return store.ErrDuplicate
		}
	}
	c := *perm
	s.permissions[perm.ID] = &c
	return nil
}

func (s *Store) UpdatePermission(_ context.Context, id string, patch store.PermissionPatch) (*store.Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.permissions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if patch.Key != nil && *patch.Key != p.Key {
		for otherID, other := range s.permissions {
			if otherID != id && other.Key == *patch.Key {
				return nil, store.ErrDuplicate
			}
		}
		p.Key = *patch.Key
	}
	if patch.Label != nil {
		p.Label = *patch.Label
	}
	if patch.Group != nil {
		p.Group = *patch.Group
	}
	if patch.Order != nil {
		p.Order = *patch.Order
	}
	p.UpdatedAt = s.now().UTC()
	c := *p
	return &c, nil
}

func (s *Store) DeletePermission(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.permissions[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.permissions, id)
	return nil
}

func (s *Store) UpsertPermissions(_ context.Context, perms []store.Permission) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	changed := 0
	for _, in := range perms {
		var existing *store.Permission
		for _, p := range s.permissions {
			if p.Key == in.Key {
				existing = p
				break
			}
		}
		if existing == nil {
			c := in
			if c.ID == "" {
				c.ID = uuid.NewString()
			}
			c.CreatedAt, c.UpdatedAt = now, now
			s.permissions[c.ID] = &c
			changed++
			continue
		}
		existing.Label = in.Label
		existing.Group = in.Group
		existing.Order = in.Order
		existing.UpdatedAt = now
		changed++
	}
	return changed, nil
}

func (s *Store) GetParameter(_ context.Context, key string) (*store.Parameter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.params[store.NormalizeParameterKey(key)]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := *p
	return &c, nil
}

func (s *Store) ListParameters(_ context.Context, category string) ([]*store.Parameter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	category = strings.TrimSpace(category)
	out := make([]*store.Parameter, 0, len(s.params))
	for _, p := range s.params {
		if category != "" && p.Category != category {
			continue
		}
		c := *p
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *Store) UpsertParameter(_ context.Context, param *store.Parameter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *param
	c.Key = store.NormalizeParameterKey(c.Key)
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = s.now().UTC()
	}
	s.params[c.Key] = &c
	return nil
}

func (s *Store) DeleteParameter(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key = store.NormalizeParameterKey(key)
	if _, ok := s.params[key]; !ok {
		return store.ErrNotFound
	}
	delete(s.params, key)
	return nil
}

func (s *Store) InsertAudit(_ context.Context, entry *store.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *entry
	s.audit = append(s.audit, &c)
	return nil
}

func (s *Store) ListAudit(_ context.Context, filter store.AuditFilter) ([]*store.AuditEntry, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*store.AuditEntry, 0, len(s.audit))
	for _, e := range s.audit {
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		if filter.Actor != "" && !strings.EqualFold(e.Actor, filter.Actor) {
			continue
		}
		if !filter.From.IsZero() && e.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && e.CreatedAt.After(filter.To) {
			continue
		}
		c := *e
		matched = append(matched, &c)
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := int64(len(matched))
	return page(matched, filter.Skip, filter.Limit), total, nil
}

func (s *Store) DeleteAuditBefore(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.audit[:0]
	var removed int64
	for _, e := range s.audit {
		if e.CreatedAt.Before(before) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.audit = kept
	return removed, nil
}
