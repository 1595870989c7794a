package permission

import "strings"

const (
	// Wildcard is the permission that satisfies every requirement.
	Wildcard = "*"
	// AdminRole is the role that satisfies every requirement.
	AdminRole = "admin"
)

// Base catalog guarding the IAM administration endpoints.
const (
	UsersManage  = "iam.users.manage"
	RolesManage  = "iam.roles.manage"
	ParamsManage = "iam.params.manage"
	AuditRead    = "iam.audit.read"
)

// Grants is the resolved authorization of a caller.
type Grants struct {
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

// IsWildcard reports whether g short-circuits every check.
func (g Grants) IsWildcard() bool {
	for _, p := range g.Permissions {
		if strings.TrimSpace(p) == Wildcard {
			return true
		}
	}
	for _, r := range g.Roles {
		if strings.EqualFold(strings.TrimSpace(r), AdminRole) {
			return true
		}
	}
	return false
}

// Allows is shorthand for Allowed(g.Roles, g.Permissions, anyOf...).
func (g Grants) Allows(anyOf ...string) bool {
	return Allowed(g.Roles, g.Permissions, anyOf...)
}

// Allowed reports whether the grants satisfy at least one token of anyOf.
// An empty anyOf is always satisfied.
func Allowed(roles, permissions []string, anyOf ...string) bool {
	g := Grants{Roles: roles, Permissions: permissions}
	if g.IsWildcard() {
		return true
	}

	required := make([]string, 0, len(anyOf))
	for _, token := range anyOf {
		if t := strings.TrimSpace(token); t != "" {
			required = append(required, t)
		}
	}
	if len(required) == 0 {
		return true
	}

	for _, token := range required {
		if containsFold(permissions, token) || containsFold(roles, token) {
			return true
		}
	}
	return false
}

func containsFold(list []string, token string) bool {
	for _, item := range list {
		if strings.EqualFold(strings.TrimSpace(item), token) {
			return true
		}
	}
	return false
}

// Union merges token lists preserving first-seen order and dropping blanks
// and case-insensitive duplicates.
func Union(lists ...[]string) []string {
	out := []string{}
	seen := map[string]struct{}{}
	for _, list := range lists {
		for _, item := range list {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			k := strings.ToLower(item)
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, item)
		}
	}
	return out
}

// Overrides holds environment-driven grant overrides. It is built once at
// startup and passed to every component that resolves grants.
type Overrides struct {
	SuperadminEmails []string
}

// IsSuperadmin reports whether email matches a configured superadmin,
// case-insensitively.
func (o Overrides) IsSuperadmin(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}
	return containsFold(o.SuperadminEmails, email)
}

// Apply returns g with role admin and permission "*" added when email is a
// superadmin; otherwise g is returned unchanged.
func (o Overrides) Apply(email string, g Grants) Grants {
	if !o.IsSuperadmin(email) {
		return g
	}
	return Grants{
		Roles:       Union(g.Roles, []string{AdminRole}),
		Permissions: Union(g.Permissions, []string{Wildcard}),
	}
}
