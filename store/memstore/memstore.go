// Package memstore is an in-process implementation of store.Store. It backs
// the engine and handler tests and STORE_DRIVER=memory local runs.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/goIAM/store"
)

// Store keeps every collection in maps guarded by one lock.
type Store struct {
	mu          sync.RWMutex
	users       map[string]*store.User
	roles       map[string]*store.Role
	permissions map[string]*store.Permission
	params      map[string]*store.Parameter
	audit       []*store.AuditEntry
	now         func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		users:       make(map[string]*store.User),
		roles:       make(map[string]*store.Role),
		permissions: make(map[string]*store.Permission),
		params:      make(map[string]*store.Parameter),
		now:         time.Now,
	}
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func copyUser(u *store.User) *store.User {
	c := *u
	c.Roles = append([]string(nil), u.Roles...)
	c.Perms = append([]string(nil), u.Perms...)
	return &c
}

func (s *Store) CreateUser(_ context.Context, user *store.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Email == user.Email {
			return store.ErrDuplicate
		}
		if user.ExternalID != "" && existing.ExternalID == user.ExternalID {
			return store.ErrDuplicate
		}
	}
	if _, ok := s.users[user.ID]; ok {
		return store.ErrDuplicate
	}
	s.users[user.ID] = copyUser(user)
	return nil
}

func (s *Store) GetUserByID(_ context.Context, id string) (*store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyUser(u), nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListUsers(_ context.Context, filter store.UserFilter) ([]*store.User, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(filter.Query))
	matched := make([]*store.User, 0, len(s.users))
	for _, u := range s.users {
		if q != "" && !strings.Contains(strings.ToLower(u.Email), q) && !strings.Contains(strings.ToLower(u.Name), q) {
			continue
		}
		matched = append(matched, copyUser(u))
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].Email < matched[j].Email
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	return page(matched, filter.Skip, filter.Limit), total, nil
}

func page[T any](items []T, skip, limit int) []T {
	limit = store.ClampLimit(limit)
	if skip < 0 {
		skip = 0
	}
	if skip >= len(items) {
		return []T{}
	}
	end := skip + limit
	if end > len(items) {
		end = len(items)
	}
	return items[skip:end]
}

func (s *Store) UpdateUser(_ context.Context, id string, patch store.UserPatch) (*store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if patch.ExternalID != nil && *patch.ExternalID != "" {
		for otherID, other := range s.users {
			if otherID != id && other.ExternalID == *patch.ExternalID {
				return nil, store.ErrDuplicate
			}
		}
	}

	if patch.Name != nil {
		u.Name = *patch.Name
	}
	if patch.ExternalID != nil {
		u.ExternalID = *patch.ExternalID
	}
	if patch.Roles != nil {
		u.Roles = append([]string(nil), (*patch.Roles)...)
	}
	if patch.Perms != nil {
		u.Perms = append([]string(nil), (*patch.Perms)...)
	}
	if patch.Active != nil {
		u.Active = *patch.Active
	}
	u.UpdatedAt = s.now().UTC()
	return copyUser(u), nil
}

func (s *Store) UpdateCredentials(_ context.Context, id, expectedHash string, creds store.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	if u.PasswordHash != expectedHash {
		return store.ErrConflict
	}
	if creds.CodeSentAt != nil && (u.ResetCode.SentAt == nil || !u.ResetCode.SentAt.Equal(*creds.CodeSentAt)) {
		return store.ErrConflict
	}

	changedAt := creds.PasswordChangedAt
	expiresAt := creds.PasswordExpiresAt
	u.PasswordHash = creds.PasswordHash
	u.PasswordChangedAt = &changedAt
	u.PasswordExpiresAt = &expiresAt
	u.MustChangePassword = creds.MustChangePassword
	u.ResetCode = store.ResetCode{}
	u.UpdatedAt = s.now().UTC()
	return nil
}

func (s *Store) UpdateResetCode(_ context.Context, id string, expected, next store.ResetCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	if u.ResetCode.Hash != expected.Hash || u.ResetCode.Attempts != expected.Attempts {
		return store.ErrConflict
	}
	u.ResetCode = next
	u.UpdatedAt = s.now().UTC()
	return nil
}

func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.users, id)
	return nil
}
