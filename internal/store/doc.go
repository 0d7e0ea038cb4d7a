// Package store provides the SQLite run journal.
//
// The journal records what was asked and what was observed, never a live
// world:
//   - runs: one row per simulate call with the canonical request, the run
//     summary and the digests of request and diff log
//   - diffs: one row per tick that produced observable changes
//
// # Patterns
//
// Logical ordering
//   - Runs are ordered by their insertion seq, never by created_at
//   - Diffs are ordered by tick
//
// Canonical storage
//   - Requests and change lists are stored as RFC 8785 canonical JSON
//   - A stored request decodes through the same path as a live one
//
// Replay
//   - Replay re-simulates a stored request and compares diff digests
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
