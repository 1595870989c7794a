package jwt

import (
	"errors"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

func newTestManager(t *testing.T, secret string, now func() time.Time) *Manager {
	t.Helper()
	m, err := NewManager(Config{Secret: []byte(secret), Issuer: "goiam", Now: now})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestIssueAndParseRoundTrip(t *testing.T) {
	m := newTestManager(t, "secret-secret-secret-secret", nil)

	token, exp, err := m.Issue(Claims{
		Email:            "ana@x.com",
		Name:             "Ana",
		Roles:            []string{"admin"},
		Permissions:      []string{"iam.users.manage"},
		RegisteredClaims: gjwt.RegisteredClaims{Subject: "u1"},
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if d := time.Until(exp); d < 7*time.Hour+59*time.Minute || d > 8*time.Hour {
		t.Fatalf("expected default 8h expiry, got %v", d)
	}

	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "u1" || claims.Email != "ana@x.com" || claims.Name != "Ana" {
		t.Fatalf("unexpected identity %+v", claims)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != "admin" {
		t.Fatalf("unexpected roles %v", claims.Roles)
	}
	if len(claims.Permissions) != 1 || claims.Permissions[0] != "iam.users.manage" {
		t.Fatalf("unexpected permissions %v", claims.Permissions)
	}
	if claims.Issuer != "goiam" {
		t.Fatalf("unexpected issuer %q", claims.Issuer)
	}
}

func TestEmptySecretFailsClosed(t *testing.T) {
	m, err := NewManager(Config{})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, _, err := m.Issue(Claims{RegisteredClaims: gjwt.RegisteredClaims{Subject: "u1"}}); !errors.Is(err, ErrSecretMissing) {
		t.Fatalf("expected ErrSecretMissing from Issue, got %v", err)
	}
	if _, err := m.Parse("a.b.c"); !errors.Is(err, ErrSecretMissing) {
		t.Fatalf("expected ErrSecretMissing from Parse, got %v", err)
	}
}

func TestParseRejectsDifferentSecret(t *testing.T) {
	issuer := newTestManager(t, "secret-one-secret-one", nil)
	verifier := newTestManager(t, "secret-two-secret-two", nil)

	token, _, err := issuer.Issue(Claims{RegisteredClaims: gjwt.RegisteredClaims{Subject: "u1"}})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := verifier.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseRejectsExpired(t *testing.T) {
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	now := start
	m := newTestManager(t, "secret-secret-secret-secret", func() time.Time { return now })

	token, exp, err := m.Issue(Claims{RegisteredClaims: gjwt.RegisteredClaims{Subject: "u1"}})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !exp.Equal(start.Add(DefaultTTL)) {
		t.Fatalf("unexpected expiry %v", exp)
	}

	now = exp.Add(-time.Second)
	if _, err := m.Parse(token); err != nil {
		t.Fatalf("expected token just before expiry to parse: %v", err)
	}

	now = exp.Add(time.Second)
	if _, err := m.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to fail, got %v", err)
	}
}

func TestParseRejectsWrongAlgorithm(t *testing.T) {
	m := newTestManager(t, "secret-secret-secret-secret", nil)

	claims := gjwt.MapClaims{"sub": "u1", "exp": time.Now().Add(time.Minute).Unix()}
	tok := gjwt.NewWithClaims(gjwt.SigningMethodHS512, claims)
	signed, err := tok.SignedString([]byte("secret-secret-secret-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := m.Parse(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected HS512 token to be rejected, got %v", err)
	}

	none := gjwt.NewWithClaims(gjwt.SigningMethodNone, claims)
	unsigned, _ := none.SignedString(gjwt.UnsafeAllowNoneSignatureType)
	if _, err := m.Parse(unsigned); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected alg=none token to be rejected, got %v", err)
	}
}

func TestParseRequiresExpiryAndSubject(t *testing.T) {
	m := newTestManager(t, "secret-secret-secret-secret", nil)
	secret := []byte("secret-secret-secret-secret")

	noExp, _ := gjwt.NewWithClaims(gjwt.SigningMethodHS256, gjwt.MapClaims{"sub": "u1"}).SignedString(secret)
	if _, err := m.Parse(noExp); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected token without exp to fail, got %v", err)
	}

	noSub, _ := gjwt.NewWithClaims(gjwt.SigningMethodHS256, gjwt.MapClaims{
		"exp": time.Now().Add(time.Minute).Unix(),
	}).SignedString(secret)
	if _, err := m.Parse(noSub); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected token without subject to fail, got %v", err)
	}
}

func TestIssueRequiresSubject(t *testing.T) {
	m := newTestManager(t, "secret-secret-secret-secret", nil)
	if _, _, err := m.Issue(Claims{Email: "a@x.com"}); err == nil {
		t.Fatal("expected error for missing subject")
	}
}

func TestNewManagerValidation(t *testing.T) {
	if _, err := NewManager(Config{Secret: []byte("s"), TTL: -time.Second}); err == nil {
		t.Fatal("expected negative TTL to be rejected")
	}
	if _, err := NewManager(Config{Secret: []byte("s"), Leeway: time.Hour}); err == nil {
		t.Fatal("expected large leeway to be rejected")
	}
	m, err := NewManager(Config{Secret: []byte("s"), TTL: time.Hour})
	if err != nil || m.TTL() != time.Hour {
		t.Fatalf("expected custom TTL, got %v %v", m, err)
	}
}
