package internaldefs

import (
	goIAM "github.com/MrEthical07/goIAM"
)

// CounterDef defines a public type used by goIAM APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   goIAM.MetricID
	Name string
	Help string

	// Family groups related counters under one OpenTelemetry instrument;
	// Attr and Value tell the members apart. An empty Attr means the
	// counter is alone in its family.
	Family      string
	FamilyHelp  string
	Attr, Value string
}

// HistogramDef defines a public type used by goIAM APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   goIAM.MetricID
	Name string
	Help string
	// OTelName is the instrument prefix used by the OpenTelemetry exporter.
	OTelName string
}

// CounterDefs is an exported constant or variable used by the IAM engine.
var CounterDefs = []CounterDef{
	{ID: goIAM.MetricLoginSuccess, Name: "goiam_login_success_total", Help: "Logins that issued a token.", Family: "goiam.login", FamilyHelp: "Login outcomes.", Attr: "outcome", Value: "success"},
	{ID: goIAM.MetricLoginFailure, Name: "goiam_login_failure_total", Help: "Logins rejected with invalid credentials.", Family: "goiam.login", FamilyHelp: "Login outcomes.", Attr: "outcome", Value: "failure"},
	{ID: goIAM.MetricLoginChangeRequired, Name: "goiam_login_change_required_total", Help: "Logins that required a password change.", Family: "goiam.login", FamilyHelp: "Login outcomes.", Attr: "outcome", Value: "change_required"},
	{ID: goIAM.MetricLoginRateLimited, Name: "goiam_login_rate_limited_total", Help: "Rate-limited login attempts.", Family: "goiam.login", FamilyHelp: "Login outcomes.", Attr: "outcome", Value: "rate_limited"},
	{ID: goIAM.MetricPasswordChangeSuccess, Name: "goiam_password_change_success_total", Help: "Successful password changes.", Family: "goiam.password.change", FamilyHelp: "Password change outcomes.", Attr: "outcome", Value: "success"},
	{ID: goIAM.MetricPasswordChangeFailure, Name: "goiam_password_change_failure_total", Help: "Rejected password changes.", Family: "goiam.password.change", FamilyHelp: "Password change outcomes.", Attr: "outcome", Value: "failure"},
	{ID: goIAM.MetricCodeRequested, Name: "goiam_code_requested_total", Help: "Verification codes issued.", Family: "goiam.code", FamilyHelp: "Verification code events.", Attr: "event", Value: "requested"},
	{ID: goIAM.MetricCodeRateLimited, Name: "goiam_code_rate_limited_total", Help: "Rate-limited code requests and email checks.", Family: "goiam.code", FamilyHelp: "Verification code events.", Attr: "event", Value: "rate_limited"},
	{ID: goIAM.MetricCodeDeliveryFailure, Name: "goiam_code_delivery_failure_total", Help: "Verification codes whose email failed.", Family: "goiam.code", FamilyHelp: "Verification code events.", Attr: "event", Value: "delivery_failure"},
	{ID: goIAM.MetricCodeVerifySuccess, Name: "goiam_code_verify_success_total", Help: "Successful code verifications.", Family: "goiam.code", FamilyHelp: "Verification code events.", Attr: "event", Value: "verify_success"},
	{ID: goIAM.MetricCodeVerifyFailure, Name: "goiam_code_verify_failure_total", Help: "Failed code verifications.", Family: "goiam.code", FamilyHelp: "Verification code events.", Attr: "event", Value: "verify_failure"},
	{ID: goIAM.MetricCodeLocked, Name: "goiam_code_locked_total", Help: "Code operations refused or ended by a lock.", Family: "goiam.code", FamilyHelp: "Verification code events.", Attr: "event", Value: "locked"},
	{ID: goIAM.MetricUserCreated, Name: "goiam_user_created_total", Help: "Accounts created.", Family: "goiam.user.change", FamilyHelp: "Account changes by operation.", Attr: "op", Value: "create"},
	{ID: goIAM.MetricUserUpdated, Name: "goiam_user_updated_total", Help: "Account updates, including enable, disable and admin password sets.", Family: "goiam.user.change", FamilyHelp: "Account changes by operation.", Attr: "op", Value: "update"},
	{ID: goIAM.MetricUserDeleted, Name: "goiam_user_deleted_total", Help: "Accounts deleted.", Family: "goiam.user.change", FamilyHelp: "Account changes by operation.", Attr: "op", Value: "delete"},
	{ID: goIAM.MetricWelcomeEmailFailure, Name: "goiam_welcome_email_failure_total", Help: "Welcome emails that failed to send.", Family: "goiam.mail.welcome.failure"},
	{ID: goIAM.MetricTokenValidationFailure, Name: "goiam_token_validation_failure_total", Help: "Bearer tokens rejected by the auth gate.", Family: "goiam.token.validation.failure"},
	{ID: goIAM.MetricForbidden, Name: "goiam_forbidden_total", Help: "Requests refused by the authorization filter.", Family: "goiam.authz.forbidden"},
	{ID: goIAM.MetricAuditDropped, Name: "goiam_audit_dropped_total", Help: "Dropped audit events due to dispatcher backpressure.", Family: "goiam.audit.dropped"},
}

// HistogramDefs is an exported constant or variable used by the IAM engine.
var HistogramDefs = []HistogramDef{
	{ID: goIAM.MetricValidateLatency, Name: "goiam_validate_latency_seconds", Help: "Bearer token verification latency.", OTelName: "goiam.token.validate.latency"},
}

// HistogramUpperBounds are the bucket bounds in seconds, without +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix is an exported constant or variable used by the IAM engine.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets describes the normalizebuckets operation and its observable behavior.
//
// NormalizeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
