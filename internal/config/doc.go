// Package config decodes dataflow and package documents from YAML into the
// in-memory model. Documents are vetted against an embedded CUE schema
// before decoding so structural mistakes fail fast with file positions;
// semantic validation stays with the model types.
package config
