// Package flows contains pure-function orchestrators for the credential
// operations of the Engine.
//
// Each flow function (RunLogin, RunChangePassword, RunRequestCode,
// RunVerifyCode) accepts a typed dependency struct and returns results
// without side-effects beyond those dependencies. This keeps the state
// machine testable with hand-written fakes and keeps the Engine type thin.
//
// # Login state machine
//
//	ANONYMOUS -> AUTHENTICATING -> AUTHENTICATED
//	                            -> CHANGE_REQUIRED -> (change password) -> AUTHENTICATED
//
// Login fails with the same InvalidCredentials error for an unknown email,
// an inactive account, an account without a usable hash, and a wrong
// password. A correct password on an account flagged mustChangePassword or
// past its expiry yields a ChangeRequired result and never a token.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the credential store, password hasher,
// verification code manager, rate limiter, token issuer, audit dispatcher,
// and metrics. They do NOT own any of these resources; ownership stays with
// the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goIAM (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency funcs.
package flows
