package goIAM

import (
	"errors"
	"testing"
	"time"
)

func validTestConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.Secret = []byte("0123456789abcdef0123456789abcdef")
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "defaults with secret",
			mutate:    func(*Config) {},
			wantValid: true,
		},
		{
			name: "jwt ttl zero invalid",
			mutate: func(c *Config) {
				c.JWT.TTL = 0
			},
			wantValid: false,
		},
		{
			name: "jwt leeway valid",
			mutate: func(c *Config) {
				c.JWT.Leeway = 45 * time.Second
			},
			wantValid: true,
		},
		{
			name: "jwt leeway invalid",
			mutate: func(c *Config) {
				c.JWT.Leeway = 3 * time.Minute
			},
			wantValid: false,
		},
		{
			name: "short secret allowed outside production",
			mutate: func(c *Config) {
				c.JWT.Secret = []byte("short")
			},
			wantValid: true,
		},
		{
			name: "short secret rejected in production",
			mutate: func(c *Config) {
				c.JWT.Secret = []byte("short")
				c.Access.ProductionMode = true
			},
			wantValid: false,
		},
		{
			name: "missing secret with dev bypass",
			mutate: func(c *Config) {
				c.JWT.Secret = nil
				c.Access.DevBypass = true
			},
			wantValid: true,
		},
		{
			name: "dev bypass rejected in production",
			mutate: func(c *Config) {
				c.Access.DevBypass = true
				c.Access.ProductionMode = true
			},
			wantValid: false,
		},
		{
			name: "password memory too low",
			mutate: func(c *Config) {
				c.Password.Memory = 1024
			},
			wantValid: false,
		},
		{
			name: "password time zero",
			mutate: func(c *Config) {
				c.Password.Time = 0
			},
			wantValid: false,
		},
		{
			name: "password parallelism zero",
			mutate: func(c *Config) {
				c.Password.Parallelism = 0
			},
			wantValid: false,
		},
		{
			name: "password salt too short",
			mutate: func(c *Config) {
				c.Password.SaltLength = 8
			},
			wantValid: false,
		},
		{
			name: "password key too short",
			mutate: func(c *Config) {
				c.Password.KeyLength = 8
			},
			wantValid: false,
		},
		{
			name: "code request max zero",
			mutate: func(c *Config) {
				c.Code.RequestMax = 0
			},
			wantValid: false,
		},
		{
			name: "code request window zero",
			mutate: func(c *Config) {
				c.Code.RequestWindow = 0
			},
			wantValid: false,
		},
		{
			name: "blank namespace",
			mutate: func(c *Config) {
				c.RateLimit.Namespace = "  "
			},
			wantValid: false,
		},
		{
			name: "negative param cache ttl",
			mutate: func(c *Config) {
				c.Params.CacheTTL = -time.Second
			},
			wantValid: false,
		},
		{
			name: "zero param cache ttl disables caching",
			mutate: func(c *Config) {
				c.Params.CacheTTL = 0
			},
			wantValid: true,
		},
		{
			name: "audit buffer zero when enabled",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
		{
			name: "audit buffer zero when disabled",
			mutate: func(c *Config) {
				c.Audit.Enabled = false
				c.Audit.BufferSize = 0
			},
			wantValid: true,
		},
		{
			name: "negative audit retention",
			mutate: func(c *Config) {
				c.Audit.Retention = -time.Hour
			},
			wantValid: false,
		},
		{
			name: "superadmin without at sign",
			mutate: func(c *Config) {
				c.Access.SuperadminEmails = []string{"root"}
			},
			wantValid: false,
		},
		{
			name: "superadmin email",
			mutate: func(c *Config) {
				c.Access.SuperadminEmails = []string{"root@example.com"}
			},
			wantValid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tt.wantValid && err == nil {
				t.Fatalf("expected invalid config")
			}
		})
	}
}

func TestConfigValidateMissingSecret(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); !errors.Is(err, ErrTokenSecretMissing) {
		t.Fatalf("expected ErrTokenSecretMissing, got %v", err)
	}
}

func TestBuilderClonesConfig(t *testing.T) {
	cfg := testEngineConfig()
	cfg.Access.SuperadminEmails = []string{"root@example.com"}

	env := newTestEngine(t, func(c *Config) { *c = cfg })
	cfg.JWT.Secret[0] = 'X'
	cfg.Access.SuperadminEmails[0] = "other@example.com"

	if env.engine.config.JWT.Secret[0] == 'X' {
		t.Fatalf("engine secret aliased caller slice")
	}
	if !env.engine.Overrides().IsSuperadmin("root@example.com") {
		t.Fatalf("engine overrides aliased caller slice")
	}
}

func TestBuilderSingleUse(t *testing.T) {
	b := New().WithConfig(testEngineConfig()).WithStore(newMemStore())
	e, err := b.Build()
	if err != nil {
		t.Fatalf("first build failed: %v", err)
	}
	defer e.Close()
	if _, err := b.Build(); err == nil {
		t.Fatalf("expected second build to fail")
	}
}

func TestBuilderRequiresStore(t *testing.T) {
	if _, err := New().WithConfig(testEngineConfig()).Build(); err == nil {
		t.Fatalf("expected missing store error")
	}
}
