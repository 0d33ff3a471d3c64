// Package migrator moves legacy plaintext one-time tokens out of user
// records. For each user it writes one backup of the original values, then
// replaces every present token with an Argon2id hash plus an HMAC lookup
// prefix in a single update. Revert replays the backups.
//
// Records are processed one at a time from a lazy cursor. A failure on one
// record is logged and counted and the run moves on; only a failure of the
// store itself aborts the run.
package migrator
