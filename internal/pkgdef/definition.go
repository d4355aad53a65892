package pkgdef

import (
	"sort"
	"strings"

	"github.com/roach88/sluice/internal/diag"
	"github.com/roach88/sluice/internal/pipeline"
	"github.com/roach88/sluice/internal/schema"
)

// Function is one published operator: its invocation signature and the
// operator kind it was published as.
type Function struct {
	Invocation pipeline.StepInvocation `json:"invocation"`
	Kind       pipeline.Kind           `json:"kind"`
}

// PackageDefinition is a published package: reusable types, states, and
// functions, plus the imports they were built against.
type PackageDefinition struct {
	APIVersion string                `json:"apiVersion" yaml:"apiVersion"`
	Meta       Header                `json:"meta" yaml:"meta"`
	Imports    []Import              `json:"imports,omitempty" yaml:"imports,omitempty"`
	Types      []schema.Entry        `json:"types,omitempty" yaml:"types,omitempty"`
	States     []pipeline.TypedState `json:"states,omitempty" yaml:"states,omitempty"`
	Functions  []Function            `json:"functions,omitempty" yaml:"functions,omitempty"`
}

// Failure is every problem found while validating a package definition.
type Failure struct {
	Errors []diag.Renderer
}

func (f *Failure) Error() string {
	var sb strings.Builder
	sb.WriteString("Package Config failed validation\n\n")
	for _, e := range f.Errors {
		sb.WriteString(e.Readable(1))
		sb.WriteString("\n")
	}
	return sb.String()
}

type headerFailure struct {
	errs diag.Violations
}

func (e headerFailure) Readable(indents int) string {
	prefix := strings.Repeat(diag.Indent, indents)
	return prefix + "Header is invalid:\n" + e.errs.Readable(indents+1)
}

type stateFailure struct {
	errs diag.Violations
}

func (e stateFailure) Readable(indents int) string {
	prefix := strings.Repeat(diag.Indent, indents)
	return prefix + "State is invalid:\n" + e.errs.Readable(indents+1)
}

// Name returns the package name.
func (p *PackageDefinition) Name() string { return p.Meta.Name }

// Namespace returns the package namespace.
func (p *PackageDefinition) Namespace() string { return p.Meta.Namespace }

// GetFunction finds a published function by its published name.
func (p *PackageDefinition) GetFunction(name string) (*Function, bool) {
	for i := range p.Functions {
		if p.Functions[i].Invocation.Uses == name {
			return &p.Functions[i], true
		}
	}
	return nil, false
}

// TypesRegistry builds the name environment the package's own declarations
// resolve against: declared types plus each typed state as a keyed-state
// entry.
func (p *PackageDefinition) TypesRegistry() *schema.Registry {
	reg := schema.NewRegistry()
	for _, entry := range p.Types {
		switch entry.Origin {
		case schema.OriginImported:
			reg.InsertImported(entry.Name, entry.Type)
		default:
			reg.InsertLocal(entry.Name, entry.Type)
		}
	}
	for i := range p.States {
		st := p.States[i].Type
		reg.InsertLocal(p.States[i].Name, schema.Type{
			Kind:       schema.KindKeyedState,
			KeyedState: &st,
		})
	}
	return reg
}

// Validate checks the package definition: header, each declared type, each
// state, and every published function against its operator kind's contract.
// A nil return means the package is valid.
func (p *PackageDefinition) Validate() *Failure {
	var errors []diag.Renderer

	if errs := p.Meta.Validate(); errs.Any() {
		errors = append(errors, headerFailure{errs: errs})
	}

	reg := p.TypesRegistry()

	for _, entry := range p.Types {
		if failure := schema.ValidateEntry(entry, reg); failure != nil {
			errors = append(errors, failure)
		}
	}

	if errs := p.validateStates(); errs.Any() {
		errors = append(errors, stateFailure{errs: errs})
	}

	if errs := p.validateFunctions(reg); errs.Any() {
		errors = append(errors, errs)
	}

	if len(errors) == 0 {
		return nil
	}
	return &Failure{Errors: errors}
}

func (p *PackageDefinition) validateStates() diag.Violations {
	var errs diag.Violations
	for i := range p.States {
		errs = diag.Merge(errs, p.States[i].Validate())
	}
	return errs
}

func (p *PackageDefinition) validateFunctions(reg *schema.Registry) diag.Violations {
	var errs diag.Violations
	for i := range p.Functions {
		fn := &p.Functions[i]
		errs = diag.Merge(errs, fn.Invocation.ValidateAs(fn.Kind, reg))
	}
	return errs
}

// ResolveFunctionStates binds every function's state dependencies to the
// package's own state declarations.
func (p *PackageDefinition) ResolveFunctionStates() error {
	for i := range p.Functions {
		if err := p.Functions[i].Invocation.ResolveStates(p.States); err != nil {
			return err
		}
	}
	return nil
}

// ResolveImports resolves the package's declared imports against the given
// package set and merges the imported types and states into this package.
func (p *PackageDefinition) ResolveImports(packages []PackageDefinition) error {
	resolver, err := BuildResolver(p.Imports, packages)
	if err != nil {
		return err
	}
	return p.MergeDependencies(resolver.Packages())
}

// MergeDependencies folds imported types and states from the resolved
// packages into this package's declarations and re-resolves function states
// against the merged set.
func (p *PackageDefinition) MergeDependencies(packages []PackageDefinition) error {
	reg := p.TypesRegistry()

	states := make(map[string]pipeline.TypedState, len(p.States))
	for _, st := range p.States {
		states[st.Name] = st
	}

	if err := MergeTypesAndStates(reg, states, p.Imports, packages); err != nil {
		return err
	}

	p.Types = registryEntries(reg)
	p.States = sortedStates(states)

	return p.ResolveFunctionStates()
}

func registryEntries(reg *schema.Registry) []schema.Entry {
	names := reg.Names()
	entries := make([]schema.Entry, 0, len(names))
	for _, name := range names {
		entry, _ := reg.Lookup(name)
		entries = append(entries, entry)
	}
	return entries
}

func sortedStates(states map[string]pipeline.TypedState) []pipeline.TypedState {
	out := make([]pipeline.TypedState, 0, len(states))
	for _, st := range states {
		out = append(out, st)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out
}
