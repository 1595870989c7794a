// Package internal holds the pieces of goIAM that are private to the module.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - codes: 6-digit verification code issue, verify and freshness rules
//   - flows: pure-function flow orchestrators for login, password change and codes
//   - rate: Redis-backed login and code-request limits
//   - config: environment and file configuration for the server binaries
//   - log: zerolog setup
//   - handlers: the /api/iam/v1 HTTP surface
//   - server: gin server wiring and graceful shutdown
//   - jobs: cron-scheduled maintenance (audit retention)
//   - seed: idempotent bootstrap of parameters, catalog, roles and the first admin
//
// # What this package must NOT do
//
//   - Export types that appear in the public goIAM API.
//   - Be imported by any package outside the goIAM module.
package internal
