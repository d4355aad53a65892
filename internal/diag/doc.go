// Package diag carries validation diagnostics for the compiler front end.
//
// Every semantic check in this repository returns a Violations value rather
// than stopping at the first problem; callers merge the slices and, when
// bubbling upward, prefix a context line so provenance survives without
// duplicating the underlying message. The indented rendering produced by
// Readable is a stable contract consumed by the CLI and by golden tests.
//
// This package imports no other internal packages.
package diag
