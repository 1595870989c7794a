// Package rate provides Redis-backed fixed-window counters for failed logins
// and verification-code requests.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefixes
// (after the configured namespace):
//   - "al" counts failed logins per email
//   - "ali" counts failed logins per client IP
//   - "cr" counts code requests per email
//   - "cri" counts code requests per client IP
//
// # What this package must NOT do
//
//   - Decide account state. A rate limit never touches the user record.
//   - Be imported outside the goIAM module.
package rate
