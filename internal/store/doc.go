// Package store provides the SQLite-backed relational store the hashing
// core writes through.
//
// The store is a deliberately thin collaborator: it executes a sequence
// of writes atomically (WithTx), reads rows back by equality condition
// (Select), and creates relations from validated table definitions
// (CreateTables). It knows nothing about digests beyond storing them as
// text.
//
// Every transactional master/part insert also appends one row to the
// rowhash_events audit relation, inside the same transaction, stamped
// with a UUIDv7 token. The event log is append-only.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// All failures surface as *Error (the StoreError of the system's error
// taxonomy) wrapping the driver error.
package store
