// Package aggregate orchestrates the transactional master/part insert
// protocol and hash-indexed lookup across part tables.
//
// A master table holds one row per distinct digest contributed by any
// of its parts; a part holds the full attribute set plus a copy of the
// same digest. The insert protocol writes both sides inside a single
// transaction: compute digests, claim or verify the master row, write
// the part rows, append the audit event, commit. Any failure rolls the
// whole transaction back - neither side is left partially written.
//
// The package performs no retries. Retrying a partially-applied
// multi-table write without idempotency keys risks duplicate aggregate
// rows, so every failure surfaces to the caller.
package aggregate
