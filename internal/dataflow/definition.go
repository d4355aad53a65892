package dataflow

import (
	"fmt"
	"strings"

	"github.com/roach88/sluice/internal/diag"
	"github.com/roach88/sluice/internal/pipeline"
	"github.com/roach88/sluice/internal/pkgdef"
	"github.com/roach88/sluice/internal/schema"
)

// Definition is a complete dataflow config: identity, declared types,
// topics, schedules, and the services wired between them.
type Definition struct {
	APIVersion string                     `json:"apiVersion" yaml:"apiVersion"`
	Meta       pkgdef.Header              `json:"meta" yaml:"meta"`
	Imports    []pkgdef.Import            `json:"imports,omitempty" yaml:"imports,omitempty"`
	Types      []schema.Entry             `json:"types,omitempty" yaml:"types,omitempty"`
	Topics     []Topic                    `json:"topics,omitempty" yaml:"topics,omitempty"`
	Services   []pipeline.Service         `json:"services,omitempty" yaml:"services,omitempty"`
	Schedules  []ScheduleConfig           `json:"schedules,omitempty" yaml:"schedules,omitempty"`
	Packages   []pkgdef.PackageDefinition `json:"packages,omitempty" yaml:"packages,omitempty"`
}

// Failure is every problem found while validating a dataflow definition.
type Failure struct {
	Errors []diag.Renderer
}

func (f *Failure) Error() string {
	var sb strings.Builder
	sb.WriteString("Dataflow Config failed validation\n\n")
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

// Name is the dataflow's package reference form, namespace/name@version.
func (d *Definition) Name() string { return d.Meta.String() }

// HasCustomTypes reports whether the dataflow declares any types or typed
// service states, which is what decides whether a types interface is
// emitted.
func (d *Definition) HasCustomTypes() bool {
	if len(d.Types) > 0 {
		return true
	}
	for i := range d.Services {
		if len(d.Services[i].States) > 0 {
			return true
		}
	}
	return false
}

// TypesRegistry builds the name environment the dataflow resolves against:
// declared types plus every typed service state as a local keyed-state
// entry.
func (d *Definition) TypesRegistry() *schema.Registry {
	reg := schema.NewRegistry()
	for _, entry := range d.Types {
		switch entry.Origin {
		case schema.OriginImported:
			reg.InsertImported(entry.Name, entry.Type)
		default:
			reg.InsertLocal(entry.Name, entry.Type)
		}
	}
	for i := range d.Services {
		for _, st := range d.Services[i].OwnedStates() {
			keyed := st.Type
			reg.InsertLocal(st.Name, schema.Type{
				Kind:       schema.KindKeyedState,
				KeyedState: &keyed,
			})
		}
	}
	return reg
}

// TopicBindings exposes the declared topics in the form the service
// validator consumes.
func (d *Definition) TopicBindings() []pipeline.TopicBinding {
	bindings := make([]pipeline.TopicBinding, 0, len(d.Topics))
	for i := range d.Topics {
		bindings = append(bindings, pipeline.TopicBinding{
			ID:     d.Topics[i].Name,
			Schema: d.Topics[i].Type(),
		})
	}
	return bindings
}

// ScheduleNames returns the declared schedule names.
func (d *Definition) ScheduleNames() []string {
	names := make([]string, 0, len(d.Schedules))
	for _, s := range d.Schedules {
		names = append(names, s.Name)
	}
	return names
}

// AllOwnedStates collects every typed state across services, keyed by state
// name.
func (d *Definition) AllOwnedStates() map[string]pipeline.TypedState {
	states := make(map[string]pipeline.TypedState)
	for i := range d.Services {
		for _, st := range d.Services[i].OwnedStates() {
			states[st.Name] = st
		}
	}
	return states
}

// Validate checks the whole definition: version gate, header, every type,
// topic, schedule, and service, then cross-service state references and
// operator name uniqueness. All problems are collected; a nil return means
// the dataflow is valid.
func (d *Definition) Validate() *Failure {
	var errors []diag.Renderer

	if errs := d.validateVersion(); errs.Any() {
		errors = append(errors, errs)
	}

	if errs := d.Meta.Validate(); errs.Any() {
		errors = append(errors, headerFailure{errs: errs})
	}

	reg := d.TypesRegistry()

	for _, entry := range d.Types {
		if failure := schema.ValidateEntry(entry, reg); failure != nil {
			errors = append(errors, failure)
		}
	}

	for i := range d.Topics {
		if failure := d.Topics[i].Validate(reg); failure != nil {
			errors = append(errors, failure)
		}
	}

	for i := range d.Schedules {
		if failure := d.Schedules[i].Validate(); failure != nil {
			errors = append(errors, failure)
		}
	}

	topics := d.TopicBindings()
	schedules := d.ScheduleNames()
	for i := range d.Services {
		if failure := d.Services[i].Validate(reg, topics, schedules); failure != nil {
			errors = append(errors, failure)
		}
	}

	if errs := d.validateStates(); errs.Any() {
		errors = append(errors, errs)
	}

	for _, name := range d.duplicateOperatorNames() {
		errors = append(errors, diag.New(fmt.Sprintf(
			"Duplicate inline operator with name: %s was found, inline operators must have unique names",
			name)))
	}

	if len(errors) == 0 {
		return nil
	}
	return &Failure{Errors: errors}
}

// validateVersion gates the definition on the supported schema versions.
// Schedules are a 0.6.0 feature.
func (d *Definition) validateVersion() diag.Violations {
	version, err := ParseVersion(d.APIVersion)
	if err != nil {
		return diag.New(fmt.Sprintf("Failed to parse version: %v", err))
	}

	switch {
	case version.IsV5():
		if len(d.Schedules) > 0 {
			return diag.New(fmt.Sprintf(
				"Version %s does not support configuration: %s, supported version: %s",
				d.APIVersion, "schedule", StableVersion))
		}
		return nil
	case version.IsV6():
		return nil
	}
	return diag.New(fmt.Sprintf("Unsupported version: %s", d.APIVersion))
}

// validateStates checks that every state reference points at a typed state
// some service owns. Only the first dangling reference is reported.
func (d *Definition) validateStates() diag.Violations {
	owned := make(map[string]bool)
	for i := range d.Services {
		for _, st := range d.Services[i].OwnedStates() {
			owned[d.Services[i].Name+"."+st.Name] = true
		}
	}

	for i := range d.Services {
		for _, st := range d.Services[i].States {
			if st.Reference == nil {
				continue
			}
			ref := st.Reference.Service + "." + st.Reference.Name
			if !owned[ref] {
				return diag.New(fmt.Sprintf(
					"State with name %s is referenced in service %s but not defined in the dataflow",
					ref, d.Services[i].Name))
			}
		}
	}
	return nil
}

// duplicateOperatorNames walks every non-imported operator in declaration
// order and reports each name seen more than once, once per repeat.
func (d *Definition) duplicateOperatorNames() []string {
	var duplicates []string
	seen := make(map[string]bool)

	record := func(name string) {
		if pkgdef.IsImportedFunction(name, d.Imports) {
			return
		}
		if seen[name] {
			duplicates = append(duplicates, name)
			return
		}
		seen[name] = true
	}

	for i := range d.Services {
		svc := &d.Services[i]
		for _, source := range svc.Sources {
			for _, step := range source.Steps {
				record(step.Name())
			}
		}
		for _, sink := range svc.Sinks {
			for _, step := range sink.Steps {
				record(step.Name())
			}
		}
		for _, op := range svc.Operators() {
			record(op.Invocation.Uses)
		}
	}
	return duplicates
}

// ResolveImports resolves the declared package imports, merges their types
// into the dataflow, and rewrites every imported operator with its package
// signature.
func (d *Definition) ResolveImports() error {
	resolver, err := pkgdef.BuildResolver(d.Imports, d.Packages)
	if err != nil {
		return err
	}
	packages := resolver.Packages()

	if err := d.MergeDependencies(packages); err != nil {
		return err
	}

	for i := range d.Services {
		if err := pkgdef.ImportServiceOperators(&d.Services[i], d.Imports, packages); err != nil {
			return err
		}
	}

	d.Packages = packages
	return nil
}

// MergeDependencies folds the types and states each import pulls in from
// the resolved packages into the dataflow's type declarations.
func (d *Definition) MergeDependencies(packages []pkgdef.PackageDefinition) error {
	reg := d.TypesRegistry()
	states := make(map[string]pipeline.TypedState)

	if err := pkgdef.MergeTypesAndStates(reg, states, d.Imports, packages); err != nil {
		return err
	}

	names := reg.Names()
	entries := make([]schema.Entry, 0, len(names))
	for _, name := range names {
		entry, _ := reg.Lookup(name)
		entries = append(entries, entry)
	}
	d.Types = entries
	return nil
}

// MergePackageImport folds an import declaration into the existing one for
// the same package, or appends it.
func (d *Definition) MergePackageImport(imp pkgdef.Import) {
	for i := range d.Imports {
		if d.Imports[i].Metadata == imp.Metadata {
			d.Imports[i].Merge(imp)
			return
		}
	}
	d.Imports = append(d.Imports, imp)
}

// OperatorPlacement locates an operator inside a specific service.
type OperatorPlacement struct {
	ServiceID string
	Placement pipeline.Placement
}

func (d *Definition) getService(serviceID string) (*pipeline.Service, error) {
	for i := range d.Services {
		if d.Services[i].Name == serviceID {
			return &d.Services[i], nil
		}
	}
	return nil, fmt.Errorf("Service with id %s not found", serviceID)
}

// AddImportedOperator merges the import declaration and places the operator
// in the named service.
func (d *Definition) AddImportedOperator(
	inv pipeline.StepInvocation,
	kind pipeline.Kind,
	placement OperatorPlacement,
	imp pkgdef.Import,
) error {
	d.MergePackageImport(imp)

	svc, err := d.getService(placement.ServiceID)
	if err != nil {
		return err
	}
	return svc.AddOperator(kind, placement.Placement, inv)
}

// AddInlineOperator places an operator carrying its own code in the named
// service.
func (d *Definition) AddInlineOperator(
	inv pipeline.StepInvocation,
	kind pipeline.Kind,
	placement OperatorPlacement,
) error {
	if inv.Code.Code == "" {
		return fmt.Errorf("inline operator must have code")
	}

	svc, err := d.getService(placement.ServiceID)
	if err != nil {
		return err
	}
	return svc.AddOperator(kind, placement.Placement, inv)
}

// ReplaceInlineOperator swaps the operator at the placement for a new
// inline one.
func (d *Definition) ReplaceInlineOperator(
	inv pipeline.StepInvocation,
	kind pipeline.Kind,
	placement OperatorPlacement,
) error {
	if inv.Code.Code == "" {
		return fmt.Errorf("inline operator must have code")
	}
	if err := d.DeleteOperator(placement); err != nil {
		return err
	}
	return d.AddInlineOperator(inv, kind, placement)
}

// DeleteOperator removes the operator at the placement.
func (d *Definition) DeleteOperator(placement OperatorPlacement) error {
	svc, err := d.getService(placement.ServiceID)
	if err != nil {
		return err
	}
	return svc.DeleteOperator(placement.Placement)
}
