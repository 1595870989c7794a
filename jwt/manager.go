package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is the access-token lifetime when Config.TTL is zero.
const DefaultTTL = 8 * time.Hour

var (
	// ErrSecretMissing is returned by Issue and Parse when no signing secret
	// is configured. The manager never signs with an empty key.
	ErrSecretMissing = errors.New("jwt: signing secret is not configured")
	// ErrInvalidToken wraps every verification failure: bad signature,
	// malformed structure, wrong algorithm or expiry.
	ErrInvalidToken = errors.New("jwt: invalid token")
)

// Config defines a public type used by goIAM APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
	Leeway time.Duration

	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// Manager defines a public type used by goIAM APIs.
//
// Manager instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Manager struct {
	config Config
}

// NewManager describes the newmanager operation and its observable behavior.
//
// NewManager accepts an empty secret so a server in dev-bypass mode can start;
// every Issue and Parse call then fails with ErrSecretMissing.
// NewManager may return an error when input validation fails.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.TTL == 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.TTL < 0 {
		return nil, errors.New("jwt: invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("jwt: invalid leeway configuration")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Manager{config: cfg}, nil
}

// TTL returns the configured token lifetime.
func (m *Manager) TTL() time.Duration {
	return m.config.TTL
}

// Issue describes the issue operation and its observable behavior.
//
// Issue signs c with HS256, stamping iat, exp (now + TTL) and the configured
// issuer. Subject must be set.
// Issue may return an error when input validation, dependency calls, or security checks fail.
// Issue does not mutate shared global state and can be used concurrently.
func (m *Manager) Issue(c Claims) (string, time.Time, error) {
	if len(m.config.Secret) == 0 {
		return "", time.Time{}, ErrSecretMissing
	}
	if c.Subject == "" {
		return "", time.Time{}, errors.New("jwt: subject is required")
	}

	now := m.config.Now()
	expiresAt := now.Add(m.config.TTL)
	c.IssuedAt = jwt.NewNumericDate(now)
	c.ExpiresAt = jwt.NewNumericDate(expiresAt)
	if m.config.Issuer != "" {
		c.Issuer = m.config.Issuer
	}
	if c.Roles == nil {
		c.Roles = []string{}
	}
	if c.Permissions == nil {
		c.Permissions = []string{}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(m.config.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Parse describes the parse operation and its observable behavior.
//
// Parse verifies signature, algorithm, expiry and (when configured) issuer,
// then collapses the payload through Normalize. Any verification failure is
// reported as ErrInvalidToken.
// Parse does not mutate shared global state and can be used concurrently.
func (m *Manager) Parse(tokenStr string) (*Claims, error) {
	if len(m.config.Secret) == 0 {
		return nil, ErrSecretMissing
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.config.Now),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	payload := jwt.MapClaims{}
	token, err := jwt.NewParser(options...).ParseWithClaims(tokenStr, payload, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return m.config.Secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims := Normalize(payload)
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return &claims, nil
}
