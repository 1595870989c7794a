package goIAM

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goIAM/store"
)

const (
	auditEventLoginSuccess          = "login_success"
	auditEventLoginFailure          = "login_failure"
	auditEventLoginChangeRequired   = "login_change_required"
	auditEventLoginRateLimited      = "login_rate_limited"
	auditEventPasswordChangeSuccess = "password_change_success"
	auditEventPasswordChangeFailure = "password_change_failure"
	auditEventCodeRequested         = "password_code_request"
	auditEventCodeRequestRefused    = "password_code_request_refused"
	auditEventCodeDeliveryFailed    = "password_code_delivery_failed"
	auditEventCodeVerifySuccess     = "password_code_verify_success"
	auditEventCodeVerifyFailure     = "password_code_verify_failure"
	auditEventLogout                = "logout"
	auditEventUserCreate            = "user.create"
	auditEventUserUpdate            = "user.update"
	auditEventUserEnable            = "user.enable"
	auditEventUserDisable           = "user.disable"
	auditEventUserSetPassword       = "user.set_password"
	auditEventUserDelete            = "user.delete"
	auditEventRoleCreate            = "role.create"
	auditEventRoleUpdate            = "role.update"
	auditEventRoleDelete            = "role.delete"
	auditEventPermissionCreate      = "permission.create"
	auditEventPermissionUpdate      = "permission.update"
	auditEventPermissionDelete      = "permission.delete"
	auditEventPermissionSync        = "permission.sync"
	auditEventParameterUpdate       = "parameter.update"
	auditEventParameterDelete       = "parameter.delete"
	auditEventAuditCleanup          = "audit.cleanup"
	auditEventClientPrefix          = "client."
)

// emitAudit fills request context (IP, user agent, actor fallback) and
// queues ev. It never blocks the caller beyond the dispatcher's policy.
func (e *Engine) emitAudit(ctx context.Context, ev AuditEvent) {
	if e == nil || e.audit == nil {
		return
	}
	if ev.IP == "" {
		ev.IP = clientIPFromContext(ctx)
	}
	if ev.UserAgent == "" {
		ev.UserAgent = userAgentFromContext(ctx)
	}
	if ev.Actor == "" {
		ev.Actor = actorFromContext(ctx)
	}
	ev.Stamp(e.now())
	e.audit.Emit(ctx, ev)
}

// emitAdmin records an admin mutation outcome with before/after snapshots.
func (e *Engine) emitAdmin(ctx context.Context, action, target string, before, after map[string]any, err error) {
	ev := AuditEvent{
		Action:  action,
		Actor:   actorFromContext(ctx),
		Target:  target,
		Success: err == nil,
		Before:  before,
		After:   after,
	}
	if err != nil {
		ev.Error = ErrorCode(err)
	}
	e.emitAudit(ctx, ev)
}

// ListAudit describes the listaudit operation and its observable behavior.
//
// ListAudit may return an error when input validation, dependency calls, or security checks fail.
// ListAudit does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ListAudit(ctx context.Context, q AuditQuery) ([]*store.AuditEntry, int64, error) {
	if e == nil || e.store == nil {
		return nil, 0, ErrEngineNotReady
	}
	if !q.From.IsZero() && !q.To.IsZero() && q.To.Before(q.From) {
		return nil, 0, fmt.Errorf("%w: to precedes from", ErrValidation)
	}
	entries, total, err := e.store.ListAudit(ctx, store.AuditFilter{
		Action: strings.TrimSpace(q.Action),
		Actor:  normalizeEmail(q.Actor),
		From:   q.From,
		To:     q.To,
		Limit:  store.ClampLimit(q.Limit),
		Skip:   max(q.Skip, 0),
	})
	if err != nil {
		return nil, 0, mapStoreError(err)
	}
	return entries, total, nil
}

// RecordAudit stores a client-originated entry. The action is namespaced
// under "client." so it cannot impersonate engine events.
func (e *Engine) RecordAudit(ctx context.Context, rec AuditRecord) error {
	if e == nil {
		return ErrEngineNotReady
	}
	action := strings.TrimSpace(rec.Action)
	if action == "" || len(action) > 128 {
		return fmt.Errorf("%w: action is required", ErrValidation)
	}
	if !strings.HasPrefix(action, auditEventClientPrefix) {
		action = auditEventClientPrefix + action
	}
	success := true
	if rec.Success != nil {
		success = *rec.Success
	}
	e.emitAudit(ctx, AuditEvent{
		Action:   action,
		Target:   rec.Target,
		Success:  success,
		Metadata: rec.Metadata,
	})
	return nil
}

// CleanupAudit deletes entries created before the cutoff. A zero cutoff
// uses the configured retention; with no retention configured it is a
// validation error.
func (e *Engine) CleanupAudit(ctx context.Context, before time.Time) (int64, error) {
	if e == nil || e.store == nil {
		return 0, ErrEngineNotReady
	}
	if before.IsZero() {
		if e.config.Audit.Retention <= 0 {
			return 0, fmt.Errorf("%w: before is required when no retention is configured", ErrValidation)
		}
		before = e.now().Add(-e.config.Audit.Retention)
	}
	n, err := e.store.DeleteAuditBefore(ctx, before)
	if err != nil {
		return 0, mapStoreError(err)
	}
	e.emitAudit(ctx, AuditEvent{
		Action:   auditEventAuditCleanup,
		Success:  true,
		Metadata: map[string]string{"before": before.UTC().Format(time.RFC3339), "deleted": fmt.Sprint(n)},
	})
	return n, nil
}
