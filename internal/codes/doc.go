// Package codes implements the verification-code state machine over the
// reset-code sub-state embedded in a user record.
//
// # State machine
//
//	NONE -> ISSUED -> VERIFIED | EXPIRED | LOCKED
//
// ISSUED, LOCKED and EXPIRED return to ISSUED on a fresh Issue. VERIFIED is
// consumed by the caller when the action it gates completes (the credential
// write clears the sub-state).
//
// # What this package must NOT do
//
//   - Persist anything. Callers write the returned state with a
//     compare-on-write against the state they read.
//   - Keep or log the plaintext code.
package codes
