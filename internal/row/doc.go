// Package row provides the value model and canonical byte encoding for
// content-addressed row identity.
//
// This package contains the leaf types of the system. All other internal
// packages import row; row imports nothing internal.
//
// Key design constraints:
//   - Canonical encoding is deterministic across calls, restarts, and
//     re-derivation from stored data for every round-trip-stable domain.
//   - Canonicalization happens on the pre-storage textual form. A decimal
//     supplied exactly and one derived through floating arithmetic may
//     encode differently even when the store reports the same value. This
//     is a documented limitation, preserved for compatibility.
//   - The digest algorithm is a pluggable strategy (Digester). The default
//     is MD5: the threat model is accidental collision, not an adversary.
package row
