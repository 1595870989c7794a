// Package middleware exposes gin middleware for the IAM HTTP surface.
//
// # Auth gate
//
//   - [RequireAuth] rejects requests without a valid bearer token.
//   - [OptionalAuth] attaches the identity when a valid token is present and
//     continues as a visitor otherwise.
//   - [RequirePermission] allows the request when the identity holds any of
//     the listed permissions or roles (admin and "*" always pass).
//
// When the engine runs with the development bypass, both gates attach
// [goIAM.DevIdentity] and log a warning per request.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. Token
// verification and grant matching are delegated to Engine.Authenticate and
// Engine.Authorize.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly.
//   - Touch the store or Redis.
package middleware
