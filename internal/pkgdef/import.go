package pkgdef

import "sort"

// FunctionImport names one function pulled from a package. When Alias is
// set, the dataflow refers to the function by the alias and the published
// name is hidden.
type FunctionImport struct {
	Name  string  `json:"name" yaml:"name"`
	Alias *string `json:"alias,omitempty" yaml:"alias,omitempty"`
}

// LocalName is the name the importing config uses for the function.
func (f FunctionImport) LocalName() string {
	if f.Alias != nil {
		return *f.Alias
	}
	return f.Name
}

// Import declares which assets of one package a config pulls in.
type Import struct {
	Metadata  Header           `json:"metadata" yaml:"metadata"`
	Path      string           `json:"path,omitempty" yaml:"path,omitempty"`
	Types     []string         `json:"types,omitempty" yaml:"types,omitempty"`
	States    []string         `json:"states,omitempty" yaml:"states,omitempty"`
	Functions []FunctionImport `json:"functions,omitempty" yaml:"functions,omitempty"`
}

// Merge folds another import of the same package into this one, keeping the
// asset lists sorted and free of duplicates.
func (i *Import) Merge(other Import) {
	i.Types = mergeSorted(i.Types, other.Types)
	i.States = mergeSorted(i.States, other.States)

	i.Functions = append(i.Functions, other.Functions...)
	sort.SliceStable(i.Functions, func(a, b int) bool {
		if i.Functions[a].Name != i.Functions[b].Name {
			return i.Functions[a].Name < i.Functions[b].Name
		}
		return i.Functions[a].LocalName() < i.Functions[b].LocalName()
	})
	deduped := i.Functions[:0]
	for _, fn := range i.Functions {
		if len(deduped) > 0 && sameFunctionImport(deduped[len(deduped)-1], fn) {
			continue
		}
		deduped = append(deduped, fn)
	}
	i.Functions = deduped
}

// sameFunctionImport compares by value: two imports with equal aliases held
// behind distinct pointers are still the same import.
func sameFunctionImport(a, b FunctionImport) bool {
	if a.Name != b.Name {
		return false
	}
	if a.Alias == nil || b.Alias == nil {
		return a.Alias == b.Alias
	}
	return *a.Alias == *b.Alias
}

func mergeSorted(a, b []string) []string {
	merged := append(append([]string(nil), a...), b...)
	sort.Strings(merged)
	out := merged[:0]
	for _, s := range merged {
		if len(out) > 0 && out[len(out)-1] == s {
			continue
		}
		out = append(out, s)
	}
	return out
}

// IsImportedFunction reports whether name refers to a function brought in by
// one of the imports. An aliased function is only reachable by its alias.
func IsImportedFunction(name string, imports []Import) bool {
	for _, imp := range imports {
		for _, fn := range imp.Functions {
			if fn.LocalName() == name {
				return true
			}
		}
	}
	return false
}
