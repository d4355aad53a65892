package schema

import (
	"sort"
	"strings"
)

// nativeNames is the immutable reserved set of builtin scalar names. Both the
// s- and i- spellings of the signed widths are reserved; declarations may not
// shadow any of them.
var nativeNames = map[string]bool{
	"u8": true, "u16": true, "u32": true, "u64": true,
	"i8": true, "i16": true, "i32": true, "i64": true,
	"s8": true, "s16": true, "s32": true, "s64": true,
	"f32": true, "f64": true,
	"bool": true, "string": true, "bytes": true,
}

// hashableScalars are the canonical scalar names usable as a key or
// partitioning target.
var hashableScalars = map[string]bool{
	"u8": true, "u16": true, "u32": true, "u64": true,
	"s8": true, "s16": true, "s32": true, "s64": true,
	"bool": true, "string": true, "f32": true, "f64": true,
}

// canonicalScalarNames maps legacy i-prefixed signed spellings onto the
// canonical s-prefixed names.
var canonicalScalarNames = map[string]string{
	"i8": "s8", "i16": "s16", "i32": "s32", "i64": "s64",
}

// structuralKeywords are shape keywords that are never valid alias targets.
var structuralKeywords = map[string]bool{
	"enum": true, "object": true, "list": true, "option": true,
	"keyed-state": true, "arrow-row": true, "key-value": true,
}

// IsNative reports whether name is a reserved builtin scalar name.
func IsNative(name string) bool {
	return nativeNames[name]
}

// CanonicalScalarName folds legacy signed spellings (i64 and friends) onto
// their canonical s-prefixed forms, returning other names unchanged.
func CanonicalScalarName(name string) string {
	if canonical, ok := canonicalScalarNames[name]; ok {
		return canonical
	}
	return name
}

// HashableScalarNames returns the canonical hashable scalar names in the
// order they are listed in diagnostics.
func HashableScalarNames() []string {
	return []string{
		"u8", "u16", "u32", "u64",
		"s8", "s16", "s32", "s64",
		"bool", "string", "f32", "f64",
	}
}

// EqualNames compares two type names, treating '-' and '_' as
// interchangeable.
func EqualNames(a, b string) bool {
	return normalizeName(a) == normalizeName(b)
}

func normalizeName(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

// Entry is one registry row: a named type and where it came from.
type Entry struct {
	Name   string `json:"name"`
	Type   Type   `json:"type"`
	Origin Origin `json:"origin"`
}

// Registry is the name->type environment a compile runs against: local
// declarations plus everything merged in from package imports. The native
// scalar names are implicitly always present and can never be replaced.
type Registry struct {
	entries map[string]Entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// InsertLocal registers a locally declared type. It reports false and leaves
// the registry untouched when name would shadow a native builtin.
func (r *Registry) InsertLocal(name string, t Type) bool {
	return r.insert(name, t, OriginLocal)
}

// InsertImported registers a type delivered by a package import. Same
// native-shadowing rule as InsertLocal.
func (r *Registry) InsertImported(name string, t Type) bool {
	return r.insert(name, t, OriginImported)
}

func (r *Registry) insert(name string, t Type, origin Origin) bool {
	if nativeNames[name] {
		return false
	}
	r.entries[name] = Entry{Name: name, Type: t, Origin: origin}
	return true
}

// Lookup finds an entry by name, treating '-' and '_' as interchangeable.
// Native builtin names are not registry entries and report false here; use
// ContainsKey for reference checking.
func (r *Registry) Lookup(name string) (Entry, bool) {
	if entry, ok := r.entries[name]; ok {
		return entry, true
	}
	underscored := normalizeName(name)
	if entry, ok := r.entries[underscored]; ok {
		return entry, true
	}
	dashed := strings.ReplaceAll(name, "_", "-")
	entry, ok := r.entries[dashed]
	return entry, ok
}

// ContainsKey reports whether a reference to name would resolve: either a
// registry entry or a native builtin.
func (r *Registry) ContainsKey(name string) bool {
	if nativeNames[name] {
		return true
	}
	_, ok := r.Lookup(name)
	return ok
}

// Names returns every registered name in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len reports the number of registered entries (natives excluded).
func (r *Registry) Len() int {
	return len(r.entries)
}

// ResolveAlias follows Named chains starting at name. A chain terminating at
// a scalar resolves to that scalar's canonical name; a chain reaching a
// structural type returns the input name unchanged (structural types never
// unwrap). Unknown names also come back unchanged.
func (r *Registry) ResolveAlias(name string) string {
	current := name
	for i := 0; i <= r.Len(); i++ {
		if nativeNames[current] {
			return CanonicalScalarName(current)
		}
		entry, ok := r.Lookup(current)
		if !ok {
			return name
		}
		switch {
		case entry.Type.Kind == KindNamed:
			current = entry.Type.Named.Name
		case entry.Type.IsScalar():
			return entry.Type.TypeName()
		default:
			return name
		}
	}
	return name
}

// InnerTypeName follows Named chains and returns the name of the first
// non-alias entry: a native scalar name or a structural type's own name.
// It reports false when a link of the chain does not resolve.
func (r *Registry) InnerTypeName(name string) (string, bool) {
	current := name
	for i := 0; i <= r.Len(); i++ {
		if nativeNames[current] {
			return current, true
		}
		entry, ok := r.Lookup(current)
		if !ok {
			return "", false
		}
		if entry.Type.Kind != KindNamed {
			return entry.Name, true
		}
		current = entry.Type.Named.Name
	}
	return "", false
}

// IsHashable reports whether a type is usable as a key: one of the hashable
// scalars, or an alias chain terminating at one. Structural shapes are never
// hashable.
func (r *Registry) IsHashable(t Type) bool {
	if hashableScalars[CanonicalScalarName(t.TypeName())] && t.Kind != KindNamed {
		return true
	}
	if t.Kind != KindNamed {
		return false
	}
	return r.IsHashableName(t.Named.Name)
}

// IsHashableName is IsHashable over a by-name reference.
func (r *Registry) IsHashableName(name string) bool {
	if hashableScalars[CanonicalScalarName(name)] {
		return true
	}
	entry, ok := r.Lookup(name)
	if !ok {
		return false
	}
	if entry.Type.Kind == KindNamed {
		return r.IsHashableName(entry.Type.Named.Name)
	}
	return entry.Type.IsScalar() && hashableScalars[CanonicalScalarName(entry.Type.TypeName())]
}

// IsS64 reports whether name denotes a signed 64-bit integer: "s64", its
// legacy spelling "i64", or an alias chain to either.
func (r *Registry) IsS64(name string) bool {
	if name == "s64" || name == "i64" {
		return true
	}
	entry, ok := r.Lookup(name)
	if !ok {
		return false
	}
	switch entry.Type.Kind {
	case KindS64:
		return true
	case KindNamed:
		return r.IsS64(entry.Type.Named.Name)
	}
	return false
}

// TypeTree collects the transitive closure of registry entries needed to use
// name: Named, List item, Option value, and unresolved keyed-state value
// edges are followed linearly; Object fields and Enum variant values recurse
// one structural level. Native names contribute no entries.
func (r *Registry) TypeTree(name string) []Entry {
	seen := make(map[string]bool)
	return r.typeTree(name, seen)
}

func (r *Registry) typeTree(name string, seen map[string]bool) []Entry {
	var tree []Entry
	current := name
	for {
		if nativeNames[current] || seen[current] {
			return tree
		}
		entry, ok := r.Lookup(current)
		if !ok {
			return tree
		}
		seen[entry.Name] = true
		tree = append(tree, entry)

		switch entry.Type.Kind {
		case KindNamed:
			current = entry.Type.Named.Name
		case KindList:
			current = entry.Type.List.Item.Name
		case KindOption:
			current = entry.Type.Option.Value.Name
		case KindKeyedState:
			if entry.Type.KeyedState.Value.Kind == StateValueUnresolved {
				current = entry.Type.KeyedState.Value.Unresolved.Name
				continue
			}
			return tree
		case KindObject:
			for _, field := range entry.Type.Object.Fields {
				tree = append(tree, r.typeTree(field.Type.Name, seen)...)
			}
			return tree
		case KindEnum:
			for _, variant := range entry.Type.Enum.Variants {
				if variant.Value != nil {
					tree = append(tree, r.typeTree(variant.Value.Name, seen)...)
				}
			}
			return tree
		default:
			return tree
		}
	}
}
