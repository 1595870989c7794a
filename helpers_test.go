package goIAM

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goIAM/mail"
	"github.com/MrEthical07/goIAM/store"
	"github.com/MrEthical07/goIAM/store/memstore"
)

const testPassword = "Corr3ct-Horse-Battery!"

var codePattern = regexp.MustCompile(`\b(\d{6})\b`)

type captureMailer struct {
	mu   sync.Mutex
	msgs []mail.Message
	err  error
}

func (m *captureMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.msgs = append(m.msgs, msg)
	return nil
}

func (m *captureMailer) fail(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

func (m *captureMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.msgs)
}

// lastCode extracts the code from the most recent code email.
func (m *captureMailer) lastCode(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.msgs) == 0 {
		t.Fatalf("no email captured")
	}
	match := codePattern.FindStringSubmatch(m.msgs[len(m.msgs)-1].Text)
	if match == nil {
		t.Fatalf("no code in email %q", m.msgs[len(m.msgs)-1].Text)
	}
	return match[1]
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testEngine struct {
	engine *Engine
	store  *memstore.Store
	mailer *captureMailer
	clock  *testClock
}

func testEngineConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.Secret = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Audit.Enabled = false
	return cfg
}

func newMemStore() *memstore.Store {
	return memstore.New()
}

func newTestEngine(t *testing.T, mutate ...func(*Config)) *testEngine {
	t.Helper()
	return newTestEngineWith(t, nil, mutate...)
}

// newTestEngineWith builds an engine on a fresh memstore. extra may add
// collaborators before Build.
func newTestEngineWith(t *testing.T, extra func(*Builder), mutate ...func(*Config)) *testEngine {
	t.Helper()

	cfg := testEngineConfig()
	for _, m := range mutate {
		m(&cfg)
	}

	clock := &testClock{now: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
	st := memstore.New()
	mailer := &captureMailer{}
	b := New().
		WithConfig(cfg).
		WithStore(st).
		WithMailer(mailer).
		WithClock(clock.Now)
	if extra != nil {
		extra(b)
	}
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEngine{engine: engine, store: st, mailer: mailer, clock: clock}
}

// addUser stores an active account whose password is current.
func (te *testEngine) addUser(t *testing.T, email, pw string, roles ...string) *store.User {
	t.Helper()
	return te.addUserWith(t, email, pw, func(*store.User) {}, roles...)
}

func (te *testEngine) addUserWith(t *testing.T, email, pw string, mutate func(*store.User), roles ...string) *store.User {
	t.Helper()
	hash, err := te.engine.hasher.Hash(pw)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	now := te.clock.Now().UTC()
	expires := now.Add(60 * 24 * time.Hour)
	u := &store.User{
		ID:                "u-" + email,
		Email:             email,
		Name:              "Test " + email,
		Active:            true,
		Roles:             roles,
		Provider:          store.ProviderLocal,
		PasswordHash:      hash,
		PasswordChangedAt: &now,
		PasswordExpiresAt: &expires,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	mutate(u)
	if err := te.store.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	return u
}

func (te *testEngine) user(t *testing.T, email string) *store.User {
	t.Helper()
	u, err := te.store.GetUserByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("get user %s: %v", email, err)
	}
	return u
}
