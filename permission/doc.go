// Package permission implements the authorization filter shared by the HTTP
// route guards and the navigation catalog, plus permission-key normalization.
//
// # Matching
//
// A requirement is an "any of" list of tokens. A token is satisfied by a
// granted permission or a granted role with the same name, compared
// case-insensitively. The wildcard permission "*" and the role "admin" satisfy
// every requirement. An empty requirement is always satisfied.
//
// # Architecture boundaries
//
// Grants are resolved by the caller (token claims, superadmin overrides) and
// passed in explicitly. The same [Allowed] function backs route guards and
// [Filter], so navigation never shows an item the server would reject.
//
// # What this package must NOT do
//
//   - Access databases, Redis, or the network.
//   - Read the process environment.
//   - Import goIAM, jwt, or middleware.
package permission
