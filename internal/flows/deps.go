package flows

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/goIAM/internal/audit"
	"github.com/MrEthical07/goIAM/internal/rate"
)

// Deps groups flow dependency sets. Root engine builds this once and delegates
// request methods to the matching flow implementation.
type Deps struct {
	Login          LoginDeps
	ChangePassword ChangePasswordDeps
	RequestCode    RequestCodeDeps
	VerifyCode     VerifyCodeDeps
	CheckEmail     CheckEmailDeps
}

// maxWriteRetries bounds compare-on-write retries against the account record.
const maxWriteRetries = 3

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func orNow(now func() time.Time) func() time.Time {
	if now == nil {
		return time.Now
	}
	return now
}

func orMetric(fn func(int)) func(int) {
	if fn == nil {
		return func(int) {}
	}
	return fn
}

func orAudit(fn func(context.Context, audit.Event)) func(context.Context, audit.Event) {
	if fn == nil {
		return func(context.Context, audit.Event) {}
	}
	return fn
}

func orWarn(fn func(string, ...any)) func(string, ...any) {
	if fn == nil {
		return func(string, ...any) {}
	}
	return fn
}

func orContextString(fn func(context.Context) string) func(context.Context) string {
	if fn == nil {
		return func(context.Context) string { return "" }
	}
	return fn
}

// limited reports whether err is a budget refusal. A limiter whose backend
// is unreachable does not block the flow; the failure goes to warn.
func limited(err error, warn func(string, ...any), op string) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, rate.ErrRateLimited) {
		return true
	}
	warn("goIAM: rate limiter unavailable during %s: %v", op, err)
	return false
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
