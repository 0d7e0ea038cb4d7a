// Package ir provides canonical JSON and content digests.
//
// Digests identify diff logs and requests independently of formatting, so a
// replayed run can be compared byte-for-byte with the journaled original.
// ir imports nothing internal.
//
// Key design constraints:
//   - NO floats in canonical JSON; elapsed times are never digested
//   - Object keys in RFC 8785 (UTF-16) order
//   - All JSON tags use snake_case
package ir
