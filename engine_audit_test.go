package goIAM

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/MrEthical07/goIAM/store"
)

func newAuditEngine(t *testing.T, mutate ...func(*Config)) *testEngine {
	t.Helper()
	return newTestEngine(t, append([]func(*Config){func(c *Config) {
		c.Audit.Enabled = true
		c.Audit.DropIfFull = false
	}}, mutate...)...)
}

// flush drains the async dispatcher so store reads see every event.
func (te *testEngine) flush() {
	te.engine.Close()
}

func TestAdminMutationsAreAudited(t *testing.T) {
	env := newAuditEngine(t)
	ctx := WithClientIP(WithActor(context.Background(), "admin@example.com"), "10.0.0.9")

	role, err := env.engine.CreateRole(ctx, RoleInput{Key: "support"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	name := "Support"
	if _, err := env.engine.UpdateRole(ctx, role.ID, RoleUpdate{Name: &name}); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	env.flush()

	entries, total, err := env.engine.ListAudit(context.Background(), AuditQuery{Action: auditEventRoleUpdate})
	if err != nil || total != 1 {
		t.Fatalf("expected one role update entry, got %d (%v)", total, err)
	}
	e := entries[0]
	if e.Actor != "admin@example.com" || e.IP != "10.0.0.9" || !e.Success || e.Target != role.ID {
		t.Fatalf("unexpected entry %+v", e)
	}
	if e.Before["name"] != "support" || e.After["name"] != "Support" {
		t.Fatalf("expected before/after snapshots, got before=%v after=%v", e.Before, e.After)
	}
	if !e.CreatedAt.Equal(env.clock.Now()) {
		t.Fatalf("expected engine clock timestamp, got %v", e.CreatedAt)
	}
}

func TestFailedLoginAuditOmitsSecrets(t *testing.T) {
	env := newAuditEngine(t)
	env.addUser(t, "alice@example.com", testPassword)

	_, _ = env.engine.Login(context.Background(), "alice@example.com", "Wrong-Password-123!")
	env.flush()

	entries, _, err := env.engine.ListAudit(context.Background(), AuditQuery{Actor: "ALICE@example.com"})
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one entry, got %d (%v)", len(entries), err)
	}
	e := entries[0]
	if e.Action != auditEventLoginFailure || e.Success || e.Metadata["reason"] != "invalid_password" {
		t.Fatalf("unexpected entry %+v", e)
	}
	for _, v := range e.Metadata {
		if v == "Wrong-Password-123!" {
			t.Fatalf("password leaked into audit metadata")
		}
	}
}

func TestRecordAuditNamespacesClientActions(t *testing.T) {
	env := newAuditEngine(t)
	ctx := WithActor(context.Background(), "alice@example.com")

	if err := env.engine.RecordAudit(ctx, AuditRecord{Action: " "}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	failed := false
	if err := env.engine.RecordAudit(ctx, AuditRecord{Action: "login_success", Success: &failed}); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	env.flush()

	entries, _, err := env.engine.ListAudit(context.Background(), AuditQuery{Action: "client.login_success"})
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected namespaced entry, got %d (%v)", len(entries), err)
	}
	if entries[0].Success || entries[0].Actor != "alice@example.com" {
		t.Fatalf("unexpected entry %+v", entries[0])
	}
	if _, total, _ := env.engine.ListAudit(context.Background(), AuditQuery{Action: "login_success"}); total != 0 {
		t.Fatalf("client entries must not impersonate engine events")
	}
}

func TestListAuditRejectsInvertedRange(t *testing.T) {
	env := newAuditEngine(t)
	now := env.clock.Now()
	_, _, err := env.engine.ListAudit(context.Background(), AuditQuery{From: now, To: now.Add(-time.Hour)})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestCleanupAudit(t *testing.T) {
	env := newTestEngine(t, func(c *Config) { c.Audit.Retention = 24 * time.Hour })
	ctx := context.Background()
	now := env.clock.Now()
	for i, age := range []time.Duration{48 * time.Hour, 30 * time.Hour, time.Hour} {
		err := env.store.InsertAudit(ctx, &store.AuditEntry{
			ID:        fmt.Sprintf("seed-%d", i),
			Action:    "seeded",
			CreatedAt: now.Add(-age),
		})
		if err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	n, err := env.engine.CleanupAudit(ctx, time.Time{})
	if err != nil || n != 2 {
		t.Fatalf("expected retention to remove 2, got %d (%v)", n, err)
	}
	n, err = env.engine.CleanupAudit(ctx, now)
	if err != nil || n != 1 {
		t.Fatalf("expected explicit cutoff to remove 1, got %d (%v)", n, err)
	}
}

func TestCleanupAuditWithoutRetention(t *testing.T) {
	env := newTestEngine(t)
	if _, err := env.engine.CleanupAudit(context.Background(), time.Time{}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestAuditDisabledRecordsNothing(t *testing.T) {
	env := newTestEngine(t)
	if _, err := env.engine.CreateRole(context.Background(), RoleInput{Key: "support"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	env.flush()
	if _, total, _ := env.engine.ListAudit(context.Background(), AuditQuery{}); total != 0 {
		t.Fatalf("expected no entries, got %d", total)
	}
}

func TestHealth(t *testing.T) {
	env := newTestEngine(t)
	h := env.engine.Health(context.Background())
	if !h.StoreAvailable || h.RedisConfigured || !h.Healthy() {
		t.Fatalf("unexpected health %+v", h)
	}

	extra, mr := withMiniredis(t)
	env = newTestEngineWith(t, extra)
	h = env.engine.Health(context.Background())
	if !h.RedisConfigured || !h.RedisAvailable || !h.Healthy() {
		t.Fatalf("unexpected health with redis %+v", h)
	}
	mr.Close()
	h = env.engine.Health(context.Background())
	if h.RedisAvailable || h.Healthy() {
		t.Fatalf("expected degraded health, got %+v", h)
	}
}
