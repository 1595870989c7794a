// Package password owns password material: hashing, verification, the
// strength policy and random password generation.
//
// # Hash format
//
// New hashes are Argon2id in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// bcrypt hashes ($2a$, $2b$, $2y$) written by earlier deployments still
// verify; [Hasher.NeedsUpgrade] reports them so the caller can rehash after a
// successful login.
//
// # Policy
//
// [Evaluate] is the single rule set used by both the server gate and the
// per-rule breakdown shown to clients. [Generate] builds passwords that always
// satisfy the policy it is given.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords.
//   - Resolve policy values from configuration (callers pass a resolved [Policy]).
//   - Log plaintext passwords.
package password
