// Package jwt issues and verifies HS256 access tokens carrying identity and
// authorization claims, and normalizes heterogeneous claim payloads into a
// single Claims shape.
package jwt
