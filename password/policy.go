package password

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"unicode/utf8"
)

// Rule identifiers, shared with clients rendering the per-rule checklist.
const (
	RuleMinLength = "minLength"
	RuleUppercase = "hasUppercase"
	RuleLowercase = "hasLowercase"
	RuleNumber    = "hasNumber"
	RuleSymbol    = "hasSymbol"
)

const (
	// DefaultMinLength is the minimum length when no parameter overrides it.
	DefaultMinLength = 12
	// GeneratedMinLength is the floor for generated passwords.
	GeneratedMinLength = 12

	upperChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerChars  = "abcdefghijklmnopqrstuvwxyz"
	digitChars  = "0123456789"
	symbolChars = "!@#$%^&*()-_=+[]{}|;:,.<>?"
)

// Policy is a resolved password rule set. Each requirement can be toggled
// independently; MinLength <= 0 disables the length rule.
type Policy struct {
	MinLength        int  `json:"minLength"`
	RequireUppercase bool `json:"requireUppercase"`
	RequireLowercase bool `json:"requireLowercase"`
	RequireNumber    bool `json:"requireNumber"`
	RequireSymbol    bool `json:"requireSymbol"`
}

// DefaultPolicy is twelve characters with every character class required.
func DefaultPolicy() Policy {
	return Policy{
		MinLength:        DefaultMinLength,
		RequireUppercase: true,
		RequireLowercase: true,
		RequireNumber:    true,
		RequireSymbol:    true,
	}
}

// RuleResult is the outcome of one rule. Disabled rules are still reported so
// clients can render them greyed out; they never affect Valid.
type RuleResult struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Enabled bool   `json:"enabled"`
	Passed  bool   `json:"passed"`
}

// Result is the full evaluation of a candidate.
type Result struct {
	Valid bool         `json:"valid"`
	Rules []RuleResult `json:"rules"`
}

// Failed returns the identifiers of enabled rules that did not pass.
func (r Result) Failed() []string {
	var failed []string
	for _, rule := range r.Rules {
		if rule.Enabled && !rule.Passed {
			failed = append(failed, rule.ID)
		}
	}
	return failed
}

type rule struct {
	id      string
	label   func(Policy) string
	enabled func(Policy) bool
	check   func(string, Policy) bool
}

var rules = []rule{
	{
		id:      RuleMinLength,
		label:   func(p Policy) string { return fmt.Sprintf("At least %d characters", p.MinLength) },
		enabled: func(p Policy) bool { return p.MinLength > 0 },
		check:   func(s string, p Policy) bool { return utf8.RuneCountInString(s) >= p.MinLength },
	},
	{
		id:      RuleUppercase,
		label:   func(Policy) string { return "One uppercase letter" },
		enabled: func(p Policy) bool { return p.RequireUppercase },
		check:   func(s string, _ Policy) bool { return strings.ContainsAny(s, upperChars) },
	},
	{
		id:      RuleLowercase,
		label:   func(Policy) string { return "One lowercase letter" },
		enabled: func(p Policy) bool { return p.RequireLowercase },
		check:   func(s string, _ Policy) bool { return strings.ContainsAny(s, lowerChars) },
	},
	{
		id:      RuleNumber,
		label:   func(Policy) string { return "One number" },
		enabled: func(p Policy) bool { return p.RequireNumber },
		check:   func(s string, _ Policy) bool { return strings.ContainsAny(s, digitChars) },
	},
	{
		id:      RuleSymbol,
		label:   func(Policy) string { return "One symbol" },
		enabled: func(p Policy) bool { return p.RequireSymbol },
		check:   func(s string, _ Policy) bool { return hasSymbol(s) },
	},
}

// hasSymbol reports any character outside [A-Za-z0-9].
func hasSymbol(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			continue
		}
		return true
	}
	return false
}

// Evaluate checks candidate against every rule of p. It performs no I/O.
func Evaluate(candidate string, p Policy) Result {
	res := Result{Valid: true, Rules: make([]RuleResult, 0, len(rules))}
	for _, r := range rules {
		rr := RuleResult{
			ID:      r.id,
			Label:   r.label(p),
			Enabled: r.enabled(p),
			Passed:  r.check(candidate, p),
		}
		if rr.Enabled && !rr.Passed {
			res.Valid = false
		}
		res.Rules = append(res.Rules, rr)
	}
	return res
}

// Valid is the boolean gate form of Evaluate.
func Valid(candidate string, p Policy) bool {
	return Evaluate(candidate, p).Valid
}

// Generate returns a random password that satisfies p: one character from
// each required class, padded from the union of required classes (all classes
// when none is required) up to max(p.MinLength, GeneratedMinLength), then
// shuffled. Randomness comes from crypto/rand.
func Generate(p Policy) (string, error) {
	var required []string
	if p.RequireUppercase {
		required = append(required, upperChars)
	}
	if p.RequireLowercase {
		required = append(required, lowerChars)
	}
	if p.RequireNumber {
		required = append(required, digitChars)
	}
	if p.RequireSymbol {
		required = append(required, symbolChars)
	}

	pool := strings.Join(required, "")
	if pool == "" {
		pool = upperChars + lowerChars + digitChars + symbolChars
	}

	length := p.MinLength
	if length < GeneratedMinLength {
		length = GeneratedMinLength
	}
	if length < len(required) {
		length = len(required)
	}

	out := make([]byte, 0, length)
	for _, class := range required {
		c, err := pick(class)
		if err != nil {
			return "", err
		}
		out = append(out, c)
	}
	for len(out) < length {
		c, err := pick(pool)
		if err != nil {
			return "", err
		}
		out = append(out, c)
	}

	if err := shuffle(out); err != nil {
		return "", err
	}
	return string(out), nil
}

func pick(chars string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(chars))))
	if err != nil {
		return 0, err
	}
	return chars[n.Int64()], nil
}

func shuffle(b []byte) error {
	for i := len(b) - 1; i > 0; i-- {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return err
		}
		j := int(n.Int64())
		b[i], b[j] = b[j], b[i]
	}
	return nil
}
