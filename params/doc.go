// Package params resolves system parameters through a short-TTL read-through
// cache and exposes them as typed policy values (password rules, expiry,
// code and login limits). Every value has a default, so a missing or
// unreadable parameter never blocks a request.
package params
