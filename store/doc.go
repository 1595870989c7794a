// Package store defines the persisted IAM records and the storage contracts the
// engine depends on.
//
// # Records
//
//   - [User] with its embedded [ResetCode] sub-state
//   - [Role], [Permission], [Parameter], [AuditEntry]
//
// # Architecture boundaries
//
// Implementations live in sub-packages ([mongostore] for MongoDB, [memstore]
// for tests and local runs). Every account mutation touches exactly one user
// document; credential and reset-code writes are compare-on-write so two
// concurrent flows on the same account cannot silently overwrite each other.
//
// # What this package must NOT do
//
//   - Hash, verify or generate secrets.
//   - Apply password policy or authorization rules.
package store
