// Package schema holds table definitions, the hash registry, and the
// master/part adjacency graph.
//
// A TableDef is immutable once registered: NewRegistry validates every
// hashing configuration exactly once at registration time, and the
// resulting Registry is read-only. The master/part relation is resolved
// into an explicit adjacency structure during registration and never
// reconsulted from live introspection by the core.
package schema
