// Package goIAM provides a role-based identity and access management engine:
// email/password login with HS256 access tokens, forced password changes
// gated by emailed 6-digit codes, role and permission administration, and
// system parameters that drive the password policy at runtime.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goIAM is the public surface. It exposes [Engine], [Builder], [Config], the error
// taxonomy ([ErrorCode], [PolicyError], [CodeError], [ChangeRequiredError]) and value
// types. Persistence is behind store.Store, with MongoDB and in-memory implementations.
// Flow orchestration, code state, rate limiting and audit dispatch live under internal/.
// The HTTP surface lives in internal/handlers and middleware.
//
// # What this package must NOT do
//
//   - Read the environment. Overrides such as superadmin emails and the development
//     bypass arrive through [Config].
//   - Expose password hashes or code hashes through any returned user view.
//   - Import any sub-package that re-imports goIAM (no import cycles).
//
// # Failure policy
//
// Rate limiting fails open: when Redis is unreachable the engine logs a warning and
// lets the request through. Audit emission never fails an operation.
package goIAM
