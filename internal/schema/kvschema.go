package schema

import "fmt"

// KVSchema is the (optional key, required value) pair threaded through every
// pipeline stage. A nil Key means the stream is unkeyed at that point.
type KVSchema struct {
	Key   *TypeRef `json:"key,omitempty"`
	Value TypeRef  `json:"value"`
}

// TimestampSchema is the schema a schedule source produces: an unkeyed
// signed 64-bit epoch value.
func TimestampSchema() KVSchema {
	return KVSchema{Value: TypeRef{Name: "s64"}}
}

// Display renders the pair for mismatch diagnostics, e.g.
// "string(key) - u8(value)", or just "u8(value)" when unkeyed.
func (s KVSchema) Display() string {
	if s.Key != nil {
		return fmt.Sprintf("%s(key) - %s(value)", s.Key.Name, s.Value.Name)
	}
	return fmt.Sprintf("%s(value)", s.Value.Name)
}

// SameAs reports whether two schemas agree: values must match by name
// (dash/underscore insensitive); keys must match when both are declared, and
// a missing key on either side is tolerated (the declared one wins).
func (s KVSchema) SameAs(other KVSchema) bool {
	if !EqualNames(s.Value.Name, other.Value.Name) {
		return false
	}
	if s.Key != nil && other.Key != nil {
		return EqualNames(s.Key.Name, other.Key.Name)
	}
	return true
}

// AdoptKey returns s with other's key adopted when s has none. Used when
// unifying sibling source types where only some declare a key.
func (s KVSchema) AdoptKey(other KVSchema) KVSchema {
	if s.Key == nil && other.Key != nil {
		key := *other.Key
		s.Key = &key
	}
	return s
}
