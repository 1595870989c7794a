package store

import (
	"strings"
	"time"
)

// Account providers.
const (
	ProviderLocal = "local"
	ProviderAuth0 = "auth0"
)

// Parameter data types.
const (
	DataTypeString  = "string"
	DataTypeNumber  = "number"
	DataTypeBoolean = "boolean"
)

// Parameter categories.
const (
	CategorySecurity = "security"
	CategoryPassword = "password"
	CategoryGeneral  = "general"
	CategorySystem   = "system"
)

// ResetCode is the verification-code sub-state embedded in a user document.
// Only the hash of the code is ever stored.
type ResetCode struct {
	Hash        string     `bson:"hash" json:"-"`
	ExpiresAt   *time.Time `bson:"expiresAt" json:"-"`
	Attempts    int        `bson:"attempts" json:"-"`
	LockedUntil *time.Time `bson:"lockedUntil" json:"-"`
	SentAt      *time.Time `bson:"sentAt" json:"-"`
	VerifiedAt  *time.Time `bson:"verifiedAt" json:"-"`
}

// IsZero reports whether no code has ever been issued.
func (c ResetCode) IsZero() bool {
	return c.Hash == "" && c.ExpiresAt == nil && c.SentAt == nil
}

// User is an IAM account.
type User struct {
	ID                 string     `bson:"_id" json:"id"`
	ExternalID         string     `bson:"externalId,omitempty" json:"externalId,omitempty"`
	Email              string     `bson:"email" json:"email"`
	Name               string     `bson:"name" json:"name"`
	Active             bool       `bson:"active" json:"active"`
	Roles              []string   `bson:"roles" json:"roles"`
	Perms              []string   `bson:"perms" json:"perms"`
	Provider           string     `bson:"provider" json:"provider"`
	PasswordHash       string     `bson:"passwordHash" json:"-"`
	PasswordChangedAt  *time.Time `bson:"passwordChangedAt" json:"passwordChangedAt,omitempty"`
	PasswordExpiresAt  *time.Time `bson:"passwordExpiresAt" json:"passwordExpiresAt,omitempty"`
	MustChangePassword bool       `bson:"mustChangePassword" json:"mustChangePassword"`
	ResetCode          ResetCode  `bson:"passwordResetCode" json:"-"`
	CreatedAt          time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time  `bson:"updatedAt" json:"updatedAt"`
}

// Public returns a copy with credential material cleared. Handlers
// serialize only Public copies.
func (u *User) Public() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.PasswordHash = ""
	c.ResetCode = ResetCode{}
	c.Roles = append([]string{}, u.Roles...)
	c.Perms = append([]string{}, u.Perms...)
	return &c
}

// Snapshot returns the outward-facing fields of u for audit before/after
// records. Credential material is never included.
func (u *User) Snapshot() map[string]any {
	if u == nil {
		return nil
	}
	return map[string]any{
		"id":                 u.ID,
		"externalId":         u.ExternalID,
		"email":              u.Email,
		"name":               u.Name,
		"active":             u.Active,
		"roles":              append([]string(nil), u.Roles...),
		"perms":              append([]string(nil), u.Perms...),
		"provider":           u.Provider,
		"mustChangePassword": u.MustChangePassword,
	}
}

// Credentials is the set of fields replaced together on a password write.
// The reset-code sub-state is cleared by the same write.
type Credentials struct {
	PasswordHash       string
	PasswordChangedAt  time.Time
	PasswordExpiresAt  time.Time
	MustChangePassword bool

	// CodeSentAt, when set, makes the write conditional on the stored code
	// still carrying this issue time.
	CodeSentAt *time.Time
}

// UserPatch lists the administrator-editable user fields. Nil fields are left untouched.
type UserPatch struct {
	Name       *string
	ExternalID *string
	Roles      *[]string
	Perms      *[]string
	Active     *bool
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p.Name == nil && p.ExternalID == nil && p.Roles == nil && p.Perms == nil && p.Active == nil
}

// UserFilter narrows a user listing.
type UserFilter struct {
	Query string
	Limit int
	Skip  int
}

// Role groups permissions under a key that users reference in their roles list.
type Role struct {
	ID          string    `bson:"_id" json:"id"`
	Key         string    `bson:"key" json:"key"`
	Name        string    `bson:"name" json:"name"`
	Description string    `bson:"description" json:"description"`
	Permissions []string  `bson:"permissions" json:"permissions"`
	System      bool      `bson:"system" json:"system"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}

// RolePatch lists editable role fields.
type RolePatch struct {
	Name        *string
	Description *string
	Permissions *[]string
}

// Permission is an entry of the permission catalog.
type Permission struct {
	ID        string    `bson:"_id" json:"id"`
	Key       string    `bson:"key" json:"key"`
	Label     string    `bson:"label" json:"label"`
	Group     string    `bson:"group" json:"group"`
	Order     int       `bson:"order" json:"order"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// PermissionPatch lists editable permission fields.
type PermissionPatch struct {
	Key   *string
	Label *string
	Group *string
	Order *int
}

// Parameter is a typed system setting stored as a string.
type Parameter struct {
	Key         string    `bson:"key" json:"key"`
	Value       string    `bson:"value" json:"value"`
	Description string    `bson:"description" json:"description"`
	Category    string    `bson:"category" json:"category"`
	DataType    string    `bson:"dataType" json:"dataType"`
	UpdatedBy   string    `bson:"updatedBy" json:"updatedBy"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}

// NormalizeParameterKey lower-cases and trims a parameter key.
func NormalizeParameterKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// AuditEntry is one persisted audit record.
type AuditEntry struct {
	ID        string            `bson:"_id" json:"id"`
	Action    string            `bson:"action" json:"action"`
	Actor     string            `bson:"actor" json:"actor"`
	Target    string            `bson:"target,omitempty" json:"target,omitempty"`
	IP        string            `bson:"ip,omitempty" json:"ip,omitempty"`
	UserAgent string            `bson:"userAgent,omitempty" json:"userAgent,omitempty"`
	Success   bool              `bson:"success" json:"success"`
	Error     string            `bson:"error,omitempty" json:"error,omitempty"`
	Before    map[string]any    `bson:"before,omitempty" json:"before,omitempty"`
	After     map[string]any    `bson:"after,omitempty" json:"after,omitempty"`
	Metadata  map[string]string `bson:"metadata,omitempty" json:"metadata,omitempty"`
	CreatedAt time.Time         `bson:"createdAt" json:"createdAt"`
}

// AuditFilter narrows an audit listing. Zero times are open bounds.
type AuditFilter struct {
	Action string
	Actor  string
	From   time.Time
	To     time.Time
	Limit  int
	Skip   int
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
