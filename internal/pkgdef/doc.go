// Package pkgdef models published function packages and resolves package
// imports into a dataflow or another package: dependency ordering, merging
// of imported types and states, and rewriting of imported invocations with
// the signatures their packages declare.
package pkgdef
