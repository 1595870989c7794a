package permission

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrInvalidKey is returned for keys outside [a-z0-9_.-].
	ErrInvalidKey = errors.New("permission: key may only contain letters, digits, '.', '_' and '-'")

	keyPattern = regexp.MustCompile(`^[a-z0-9_.-]+$`)
)

// NormalizeKey lower-cases and trims key. A bare key with a group becomes
// "group.key".
func NormalizeKey(key, group string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	group = strings.ToLower(strings.TrimSpace(group))
	if group != "" && key != "" && !strings.Contains(key, ".") {
		key = group + "." + key
	}
	return key
}

// ValidateKey checks a normalized permission key.
func ValidateKey(key string) error {
	if key == "" {
		return errors.New("permission: key is required")
	}
	if !keyPattern.MatchString(key) {
		return ErrInvalidKey
	}
	return nil
}

// NormalizeGrant normalizes a permission token held by a user or role. The
// wildcard is kept as-is.
func NormalizeGrant(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == Wildcard {
		return token, nil
	}
	token = strings.ToLower(token)
	if err := ValidateKey(token); err != nil {
		return "", err
	}
	return token, nil
}

// NormalizeGrants normalizes and de-duplicates a list of grant tokens.
func NormalizeGrants(tokens []string) ([]string, error) {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if strings.TrimSpace(t) == "" {
			continue
		}
		n, err := NormalizeGrant(t)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return Union(out), nil
}

// NormalizeRoleKey lower-cases and trims a role key.
func NormalizeRoleKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// NormalizeRoles normalizes and de-duplicates role keys.
func NormalizeRoles(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, NormalizeRoleKey(k))
	}
	return Union(out)
}
