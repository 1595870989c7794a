package jwt

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the single claims shape used across the service. Subject carries
// the user id.
type Claims struct {
	Email       string   `json:"email"`
	Name        string   `json:"name,omitempty"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

// HasRole reports whether role is present, case-insensitively.
func (c Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

var subjectKeys = []string{"sub", "uid", "user_id", "id"}

// Normalize collapses a decoded token payload into Claims. It accepts the
// locally issued shape as well as identity-provider payloads:
//
//   - subject from sub, uid, user_id or id
//   - email and name from the plain claims or a namespaced ".../email" claim
//   - roles from "roles" (array or comma/space separated string) or a
//     namespaced ".../roles" claim
//   - permissions from "permissions", falling back to the space separated
//     OAuth "scope" claim
//
// Registered time claims are copied when present.
func Normalize(payload map[string]any) Claims {
	var c Claims

	for _, k := range subjectKeys {
		if s := stringClaim(payload[k]); s != "" {
			c.Subject = s
			break
		}
	}

	c.Email = strings.ToLower(strings.TrimSpace(firstString(payload, "email")))
	c.Name = firstString(payload, "name")
	if c.Name == "" {
		c.Name = stringClaim(payload["nickname"])
	}

	c.Roles = listClaim(payload["roles"])
	if len(c.Roles) == 0 {
		c.Roles = listClaim(namespaced(payload, "roles"))
	}

	c.Permissions = listClaim(payload["permissions"])
	if len(c.Permissions) == 0 {
		c.Permissions = listClaim(stringClaim(payload["scope"]))
	}

	c.Issuer = stringClaim(payload["iss"])
	c.IssuedAt = dateClaim(payload["iat"])
	c.ExpiresAt = dateClaim(payload["exp"])
	c.NotBefore = dateClaim(payload["nbf"])

	if c.Roles == nil {
		c.Roles = []string{}
	}
	if c.Permissions == nil {
		c.Permissions = []string{}
	}
	return c
}

func firstString(payload map[string]any, key string) string {
	if s := stringClaim(payload[key]); s != "" {
		return s
	}
	return stringClaim(namespaced(payload, key))
}

// namespaced finds a custom claim such as "https://example.com/roles".
func namespaced(payload map[string]any, name string) any {
	suffix := "/" + name
	for k, v := range payload {
		if strings.HasSuffix(k, suffix) {
			return v
		}
	}
	return nil
}

func stringClaim(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	default:
		return ""
	}
}

func listClaim(v any) []string {
	var raw []string
	switch t := v.(type) {
	case []string:
		raw = t
	case []any:
		for _, item := range t {
			if s := stringClaim(item); s != "" {
				raw = append(raw, s)
			}
		}
	case string:
		raw = strings.FieldsFunc(t, func(r rune) bool { return r == ',' || r == ' ' })
	default:
		return nil
	}

	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func dateClaim(v any) *jwt.NumericDate {
	switch t := v.(type) {
	case float64:
		return jwt.NewNumericDate(time.Unix(int64(t), 0))
	case int64:
		return jwt.NewNumericDate(time.Unix(t, 0))
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return nil
		}
		return jwt.NewNumericDate(time.Unix(n, 0))
	default:
		return nil
	}
}
