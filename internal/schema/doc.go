// Package schema is the type model of the pipeline definition language: the
// closed sum of declarable type shapes, the name registry those shapes live
// in, and the key/value schema pair threaded through pipelines.
//
// Dependency layering: schema sits at the bottom of the compiler and imports
// only internal/diag. Registry resolution (aliases, hashability, type trees)
// is pure over an in-memory map; nothing here performs I/O.
package schema
