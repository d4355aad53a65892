package schema

import (
	"fmt"

	"github.com/roach88/sluice/internal/diag"
)

func refNotFound(name string) diag.Violations {
	return diag.New(fmt.Sprintf("Referenced type `%s` not found in config or imported types", name))
}

// Validate checks every by-name reference inside the shape against the
// registry, plus the structural rules of each composite shape. All problems
// are collected; nothing short-circuits.
func (t Type) Validate(reg *Registry) diag.Violations {
	switch t.Kind {
	case KindNamed:
		if structuralKeywords[t.Named.Name] {
			return diag.New(fmt.Sprintf(
				"Invalid syntax for %s. Check that the internal attributes are properly defined",
				t.Named.Name))
		}
		if !reg.ContainsKey(t.Named.Name) {
			return refNotFound(t.Named.Name)
		}
		return nil
	case KindObject:
		return t.Object.Validate(reg)
	case KindEnum:
		return t.Enum.Validate(reg)
	case KindList:
		if !reg.ContainsKey(t.List.Item.Name) {
			return refNotFound(t.List.Item.Name)
		}
		return nil
	case KindOption:
		if !reg.ContainsKey(t.Option.Value.Name) {
			return refNotFound(t.Option.Value.Name)
		}
		return nil
	case KindKeyedState:
		return t.KeyedState.Validate(reg)
	case KindArrowRow:
		return t.ArrowRow.Validate()
	case KindKeyValue:
		var errs diag.Violations
		if !reg.ContainsKey(t.KeyValue.Key.Name) {
			errs = diag.Merge(errs, refNotFound(t.KeyValue.Key.Name))
		}
		if !reg.ContainsKey(t.KeyValue.Value.Name) {
			errs = diag.Merge(errs, refNotFound(t.KeyValue.Value.Name))
		}
		return errs
	}
	// Scalars carry nothing to check.
	return nil
}

// Validate checks field names for presence/uniqueness and every field type
// reference against the registry.
func (o *Object) Validate(reg *Registry) diag.Violations {
	var errs diag.Violations
	seen := make(map[string]bool)

	for _, field := range o.Fields {
		if field.Name == "" {
			errs = diag.Merge(errs, diag.New("Field name cannot be empty"))
		}
		if !reg.ContainsKey(field.Type.Name) {
			errs = diag.Merge(errs, refNotFound(field.Type.Name))
		}
		if seen[field.Name] {
			errs = diag.Merge(errs, diag.New(fmt.Sprintf("Duplicate field name `%s`", field.Name)))
		} else {
			seen[field.Name] = true
		}
	}
	return errs
}

// Validate checks variant names for presence/uniqueness and value references
// against the registry.
func (e *Enum) Validate(reg *Registry) diag.Violations {
	var errs diag.Violations
	seen := make(map[string]bool)

	for _, variant := range e.Variants {
		if variant.Name == "" {
			errs = diag.Merge(errs, diag.New("Enum variant name cannot be empty"))
		}
		if seen[variant.Name] {
			errs = diag.Merge(errs, diag.New(fmt.Sprintf("Duplicate enum variant name `%s`", variant.Name)))
		} else {
			seen[variant.Name] = true
		}
		if variant.Value != nil {
			if variant.Value.Name == "" {
				errs = diag.Merge(errs, diag.New("Enum variant does not reference any type"))
			} else if !reg.ContainsKey(variant.Value.Name) {
				errs = diag.Merge(errs, refNotFound(variant.Value.Name))
			}
		}
	}
	return errs
}

// Validate checks the key reference and the value shape.
func (k *KeyedState) Validate(reg *Registry) diag.Violations {
	var errs diag.Violations

	if !reg.ContainsKey(k.Key.Name) {
		errs = diag.Merge(errs, diag.New(fmt.Sprintf(
			"Referenced key type `%s` not found in config or imported types", k.Key.Name)))
	}

	switch k.Value.Kind {
	case StateValueArrowRow:
		if rowErrs := k.Value.ArrowRow.Validate(); rowErrs.Any() {
			errs = diag.Merge(errs, diag.New("Arrow row value is invalid"), rowErrs)
		}
	case StateValueUnresolved:
		if !reg.ContainsKey(k.Value.Unresolved.Name) {
			errs = diag.Merge(errs, refNotFound(k.Value.Unresolved.Name))
		}
	case StateValueU32:
		// Nothing to check.
	}
	return errs
}

// Validate checks column names for presence and uniqueness.
func (a *ArrowRow) Validate() diag.Violations {
	var errs diag.Violations
	seen := make(map[string]bool)

	for _, column := range a.Columns {
		if column.Name == "" {
			errs = diag.Merge(errs, diag.New("Column name cannot be empty"))
		}
		if seen[column.Name] {
			errs = diag.Merge(errs, diag.New(fmt.Sprintf(
				"Column name `%s` is duplicated. Column names must be unique", column.Name)))
		} else {
			seen[column.Name] = true
		}
	}
	return errs
}

// TypeFailure is the structured failure of one named type declaration.
type TypeFailure struct {
	Name   string
	Errors diag.Violations
}

// Readable renders the failure header with every collected problem one
// indent level deeper.
func (f TypeFailure) Readable(indents int) string {
	header := fmt.Sprintf("%sDefined type `%s` is invalid:\n",
		indentPrefix(indents), f.Name)
	return header + f.Errors.Readable(indents+1)
}

func indentPrefix(indents int) string {
	prefix := ""
	for i := 0; i < indents; i++ {
		prefix += diag.Indent
	}
	return prefix
}

// ValidateEntry validates one named declaration: name presence plus the
// shape's own rules. A nil return means the declaration is valid.
func ValidateEntry(entry Entry, reg *Registry) *TypeFailure {
	var errs diag.Violations
	if entry.Name == "" {
		errs = diag.Merge(errs, diag.New("Name cannot be empty"))
	}
	errs = diag.Merge(errs, entry.Type.Validate(reg))
	if !errs.Any() {
		return nil
	}
	return &TypeFailure{Name: entry.Name, Errors: errs}
}
