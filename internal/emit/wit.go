package emit

import (
	"fmt"
	"strings"
)

const indent = "  "

// use is a WIT use statement pulling named items from another interface.
type use struct {
	Path  string
	Items []string
}

func (u use) render(sb *strings.Builder, depth int) {
	pad := strings.Repeat(indent, depth)
	fmt.Fprintf(sb, "%suse %s.{%s};\n", pad, u.Path, strings.Join(u.Items, ", "))
}

type defKind int

const (
	defAlias defKind = iota
	defRecord
	defVariant
)

// recordField is one field of a WIT record type.
type recordField struct {
	Name string
	Type string
}

// variantCase is one case of a WIT variant type. Type is empty for bare
// cases.
type variantCase struct {
	Name string
	Type string
}

// typeDef is a named WIT type definition: an alias, a record, or a
// variant.
type typeDef struct {
	Name   string
	Kind   defKind
	Alias  string
	Fields []recordField
	Cases  []variantCase
}

func (d typeDef) render(sb *strings.Builder, depth int) {
	pad := strings.Repeat(indent, depth)
	inner := strings.Repeat(indent, depth+1)

	switch d.Kind {
	case defAlias:
		fmt.Fprintf(sb, "%stype %s = %s;\n", pad, d.Name, d.Alias)
	case defRecord:
		fmt.Fprintf(sb, "%srecord %s {\n", pad, d.Name)
		for _, f := range d.Fields {
			fmt.Fprintf(sb, "%s%s: %s,\n", inner, f.Name, f.Type)
		}
		fmt.Fprintf(sb, "%s}\n", pad)
	case defVariant:
		fmt.Fprintf(sb, "%svariant %s {\n", pad, d.Name)
		for _, c := range d.Cases {
			if c.Type == "" {
				fmt.Fprintf(sb, "%s%s,\n", inner, c.Name)
			} else {
				fmt.Fprintf(sb, "%s%s(%s),\n", inner, c.Name, c.Type)
			}
		}
		fmt.Fprintf(sb, "%s}\n", pad)
	}
}

func (d typeDef) text() string {
	var sb strings.Builder
	d.render(&sb, 0)
	return sb.String()
}

// param is one function parameter.
type param struct {
	Name string
	Type string
}

// function is a WIT freestanding function.
type function struct {
	Name   string
	Params []param
	Result string
}

func (f function) render(sb *strings.Builder, depth int) {
	pad := strings.Repeat(indent, depth)
	parts := make([]string, 0, len(f.Params))
	for _, p := range f.Params {
		parts = append(parts, fmt.Sprintf("%s: %s", p.Name, p.Type))
	}
	fmt.Fprintf(sb, "%s%s: func(%s) -> %s;\n", pad, f.Name, strings.Join(parts, ", "), f.Result)
}

// iface is a WIT interface: uses first, then type definitions, then
// functions.
type iface struct {
	Name      string
	Uses      []use
	Defs      []typeDef
	Functions []function
}

func (i iface) render(sb *strings.Builder) {
	fmt.Fprintf(sb, "interface %s {", i.Name)
	if len(i.Uses) == 0 && len(i.Defs) == 0 && len(i.Functions) == 0 {
		sb.WriteString("}\n")
		return
	}
	sb.WriteString("\n")
	for _, u := range i.Uses {
		u.render(sb, 1)
	}
	for _, d := range i.Defs {
		d.render(sb, 1)
	}
	for _, f := range i.Functions {
		f.render(sb, 1)
	}
	sb.WriteString("}\n")
}

// document is a WIT source file: a package header and its interfaces.
type document struct {
	Package    string
	Interfaces []iface
}

func (d document) render() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "package %s;\n", d.Package)
	for _, i := range d.Interfaces {
		sb.WriteString("\n")
		i.render(&sb)
	}
	return sb.String()
}
