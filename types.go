package goIAM

import (
	"strings"
	"time"

	"github.com/MrEthical07/goIAM/jwt"
	"github.com/MrEthical07/goIAM/password"
	"github.com/MrEthical07/goIAM/permission"
	"github.com/MrEthical07/goIAM/store"
)

// Identity is the authenticated caller resolved by the auth gate. Bypass
// marks the synthetic development identity.
type Identity struct {
	Subject     string
	Email       string
	Name        string
	Roles       []string
	Permissions []string
	Bypass      bool
	Claims      *jwt.Claims
}

// Grants returns the identity's roles and permissions for matching.
func (i *Identity) Grants() permission.Grants {
	if i == nil {
		return permission.Grants{}
	}
	return permission.Grants{Roles: i.Roles, Permissions: i.Permissions}
}

// Allows reports whether the identity satisfies any of the required tokens.
func (i *Identity) Allows(anyOf ...string) bool {
	if i == nil {
		return false
	}
	return i.Grants().Allows(anyOf...)
}

// TokenPayload returns the claim map echoed by the session endpoint.
func (i *Identity) TokenPayload() map[string]any {
	if i == nil {
		return nil
	}
	out := map[string]any{
		"sub":         i.Subject,
		"email":       i.Email,
		"name":        i.Name,
		"roles":       i.Roles,
		"permissions": i.Permissions,
	}
	if i.Claims != nil {
		if i.Claims.ExpiresAt != nil {
			out["exp"] = i.Claims.ExpiresAt.Unix()
		}
		if i.Claims.IssuedAt != nil {
			out["iat"] = i.Claims.IssuedAt.Unix()
		}
		if i.Claims.Issuer != "" {
			out["iss"] = i.Claims.Issuer
		}
	}
	return out
}

// DevIdentity is injected by the auth gate when the development bypass is
// enabled. It holds the wildcard permission.
func DevIdentity() *Identity {
	return &Identity{
		Subject:     "dev-bypass",
		Email:       "dev@localhost",
		Name:        "Development",
		Roles:       []string{permission.AdminRole},
		Permissions: []string{permission.Wildcard},
		Bypass:      true,
	}
}

// LoginResult defines a public type used by goIAM APIs.
//
// LoginResult instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type LoginResult struct {
	Token       string
	ExpiresAt   time.Time
	User        *store.User
	Roles       []string
	Permissions []string
}

// CodeStatus is the caller-visible state of a verification code.
type CodeStatus struct {
	ExpiresAt         time.Time  `json:"expiresAt"`
	AttemptsRemaining int        `json:"attemptsRemaining"`
	LockedUntil       *time.Time `json:"lockedUntil,omitempty"`
}

// EmailStatus is the forgot-password email check result.
type EmailStatus struct {
	Exists             bool `json:"exists"`
	Active             bool `json:"active"`
	MustChangePassword bool `json:"mustChangePassword"`
}

// Session is the view returned by the me endpoints. Visitor is true when
// no identity is attached.
type Session struct {
	User         *store.User    `json:"user"`
	Roles        []string       `json:"roles"`
	Permissions  []string       `json:"permissions"`
	Visitor      bool           `json:"visitor"`
	Email        string         `json:"email,omitempty"`
	IsSuperAdmin bool           `json:"isSuperAdmin"`
	TokenPayload map[string]any `json:"tokenPayload,omitempty"`
}

// CreateUserInput defines a public type used by goIAM APIs.
//
// CreateUserInput instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CreateUserInput struct {
	Email      string   `json:"email"`
	Name       string   `json:"name"`
	Password   string   `json:"password"`
	Roles      []string `json:"roles"`
	Perms      []string `json:"perms"`
	ExternalID string   `json:"externalId"`
	Provider   string   `json:"provider"`
	// SendEmail defaults to true when nil.
	SendEmail *bool `json:"sendEmail"`
}

// CreateUserResult reports the created user and the welcome email outcome.
// A delivery failure never rolls the account back.
type CreateUserResult struct {
	User         *store.User
	TempPassword string
	EmailSent    bool
	EmailError   string
}

// PasswordPolicyView is the effective policy with its rule labels, for
// client-side display.
type PasswordPolicyView struct {
	Policy password.Policy       `json:"policy"`
	Rules  []password.RuleResult `json:"rules"`
}

// RoleInput carries role create and update fields.
type RoleInput struct {
	Key         string   `json:"key"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

// PermissionInput carries permission create fields.
type PermissionInput struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Group string `json:"group"`
	Order int    `json:"order"`
}

// ParameterInput carries a parameter write.
type ParameterInput struct {
	Value       string `json:"value"`
	Description string `json:"description"`
	Category    string `json:"category"`
	DataType    string `json:"dataType"`
}

// AuditQuery filters audit listings.
type AuditQuery struct {
	Action string
	Actor  string
	From   time.Time
	To     time.Time
	Limit  int
	Skip   int
}

// AuditRecord is a client-originated audit entry.
type AuditRecord struct {
	Action   string            `json:"action"`
	Target   string            `json:"target"`
	Success  *bool             `json:"success"`
	Metadata map[string]string `json:"metadata"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
