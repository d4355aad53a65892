// Package extract parses inline operator bodies and recovers the function
// signature they export. Each supported host grammar sits behind the
// Extractor interface; the parsed signature either fills an empty
// invocation (infer) or is compared field by field against a declared one
// (check).
package extract
