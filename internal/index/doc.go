// Package index provides a SQLite-backed local package index.
//
// Published package documents are stored verbatim, keyed by their
// namespace/name/version identity. Each publish gets a uuid and a
// timestamp; republishing a version replaces its document. Lookup
// decodes the stored document back into a package definition and
// Closure walks the import graph so callers can hand the full
// dependency set to the resolver.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
package index
