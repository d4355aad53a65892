package pipeline

import (
	"fmt"
	"strings"

	"github.com/roach88/sluice/internal/diag"
	"github.com/roach88/sluice/internal/schema"
)

// Service is one node of the dataflow graph: sources feed a transforms
// chain, an optional window or partition stage, and sinks.
type Service struct {
	Name           string          `json:"name"`
	Sources        []IoRef         `json:"sources,omitempty"`
	Sinks          []IoRef         `json:"sinks,omitempty"`
	Transforms     Transforms      `json:"transforms,omitzero"`
	PostTransforms *PostTransforms `json:"post_transforms,omitempty"`
	States         []State         `json:"states,omitempty"`
}

// ServiceFailure collects every problem found while validating one service.
type ServiceFailure struct {
	Name   string
	Errors []diag.Renderer
}

// Readable renders the service header with every error one indent deeper.
func (f *ServiceFailure) Readable(indents int) string {
	var sb strings.Builder
	sb.WriteString(strings.Repeat(diag.Indent, indents))
	sb.WriteString(fmt.Sprintf("Service `%s` is invalid:\n", f.Name))
	for _, e := range f.Errors {
		sb.WriteString(e.Readable(indents + 1))
	}
	return sb.String()
}

func (f *ServiceFailure) Error() string { return f.Readable(0) }

// lineError is a single-line service problem.
type lineError string

func (e lineError) Readable(indents int) string {
	return strings.Repeat(diag.Indent, indents) + string(e) + "\n"
}

// headedError renders a header line with a nested body one indent deeper.
type headedError struct {
	header string
	body   diag.Renderer
}

func (e headedError) Readable(indents int) string {
	return strings.Repeat(diag.Indent, indents) + e.header + "\n" + e.body.Readable(indents+1)
}

// mismatchError lists the conflicting schemas of a service's sources or
// sinks, indented one step past its own header.
type mismatchError struct {
	noun  string // "sources" or "sinks"
	types string
}

func (e mismatchError) Readable(indents int) string {
	indent := strings.Repeat(diag.Indent, indents)
	return fmt.Sprintf("%s%s for service must be identical, but the %s had the following types:\n%s%s%s\n",
		indent, titleCase(e.noun), e.noun, indent, diag.Indent, e.types)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// flatError renders nested violations at the current indent, without a
// header of its own.
type flatError struct {
	body diag.Violations
}

func (e flatError) Readable(indents int) string {
	return e.body.Readable(indents)
}

// Operators lists every invocation in the service with the kind it runs as,
// in execution order.
func (s *Service) Operators() []BoundOperator {
	var ops []BoundOperator
	for _, step := range s.Transforms.Steps {
		ops = append(ops, BoundOperator{Invocation: step.Invocation, Kind: step.Kind})
	}
	if s.PostTransforms != nil {
		ops = append(ops, s.PostTransforms.Operators()...)
	}
	return ops
}

// OwnedStates returns the typed states the service owns.
func (s *Service) OwnedStates() []TypedState {
	var out []TypedState
	for _, st := range s.States {
		if st.Typed != nil {
			out = append(out, *st.Typed)
		}
	}
	return out
}

// Validate checks the whole service against the registry and the topics and
// schedules in scope. It collects as much as it can, but stops early when
// the schema thread is broken: no source schema or an untypable transforms
// chain makes everything downstream unverifiable.
func (s *Service) Validate(reg *schema.Registry, topics []TopicBinding, schedules []string) *ServiceFailure {
	failure := &ServiceFailure{Name: s.Name}

	if s.Name == "" {
		failure.Errors = append(failure.Errors, lineError("Service name cannot be empty"))
	}

	input, serr := s.inputType(topics)
	if serr != nil {
		failure.Errors = append(failure.Errors, serr)
		return failure
	}

	failure.Errors = append(failure.Errors, s.validateSources(reg, topics, schedules)...)

	for _, st := range s.States {
		if errs := st.Validate(); errs.Any() {
			failure.Errors = append(failure.Errors,
				headedError{header: "State is invalid:", body: errs})
		}
	}

	if errs := ValidateSteps(s.Transforms.Steps, reg, input, "sources"); errs.Any() {
		failure.Errors = append(failure.Errors,
			headedError{header: "Transforms block is invalid:", body: errs})
	}

	transformsOut, err := s.Transforms.OutputType(input)
	if err != nil {
		failure.Errors = append(failure.Errors,
			headedError{header: "Transforms block is invalid:", body: diag.New(err.Error())})
		return failure
	}

	if s.PostTransforms != nil {
		if errs := s.PostTransforms.Validate(reg, transformsOut); errs.Any() {
			failure.Errors = append(failure.Errors, flatError{body: errs})
		}
	}

	output, err := s.outputType(transformsOut)
	if err != nil {
		// the post-transforms stage was already reported above
		return failure
	}

	failure.Errors = append(failure.Errors, s.validateSinks(reg, topics, output)...)

	if len(failure.Errors) == 0 {
		return nil
	}
	return failure
}

// inputType is the schema the first source provides to the service.
func (s *Service) inputType(topics []TopicBinding) (schema.KVSchema, diag.Renderer) {
	if len(s.Sources) == 0 {
		return schema.KVSchema{}, lineError("Service must have at least one source")
	}
	ty, err := s.Sources[0].SourceType(topics)
	if err != nil {
		return schema.KVSchema{}, lineError(
			fmt.Sprintf("Source topic `%s` not found", s.Sources[0].ID))
	}
	return ty, nil
}

// OutputType is the schema the service emits after every stage.
func (s *Service) OutputType(topics []TopicBinding) (schema.KVSchema, error) {
	input, serr := s.inputType(topics)
	if serr != nil {
		return schema.KVSchema{}, fmt.Errorf("%s", strings.TrimSpace(serr.Readable(0)))
	}
	out, err := s.Transforms.OutputType(input)
	if err != nil {
		return schema.KVSchema{}, err
	}
	return s.outputType(out)
}

func (s *Service) outputType(transformsOut schema.KVSchema) (schema.KVSchema, error) {
	if s.PostTransforms != nil {
		return s.PostTransforms.OutputType(transformsOut)
	}
	return transformsOut, nil
}

func (s *Service) validateSources(reg *schema.Registry, topics []TopicBinding, schedules []string) []diag.Renderer {
	var errs []diag.Renderer
	var sourceTypes []namedSchema

	for i := range s.Sources {
		source := &s.Sources[i]
		if f := source.ValidateSource(reg, topics, schedules); f != nil {
			errs = append(errs, headedError{
				header: fmt.Sprintf("Source `%s` is invalid:", f.Name),
				body:   f,
			})
		}
		if ty, err := source.SourceType(topics); err == nil {
			sourceTypes = append(sourceTypes, namedSchema{id: source.ID, ty: ty})
		}
	}

	if !typesAreIdentical(sourceTypes) {
		errs = append(errs, mismatchError{noun: "sources", types: describeSchemas(sourceTypes)})
	}
	return errs
}

func (s *Service) validateSinks(reg *schema.Registry, topics []TopicBinding, output schema.KVSchema) []diag.Renderer {
	var errs []diag.Renderer
	var sinkTypes []namedSchema

	for i := range s.Sinks {
		sink := &s.Sinks[i]
		if f := sink.ValidateSink(reg, topics, output); f != nil {
			errs = append(errs, headedError{
				header: fmt.Sprintf("Sink `%s` is invalid:", f.Name),
				body:   f,
			})
		}
		if ty, err := sink.SinkType(topics); err == nil && ty != nil {
			sinkTypes = append(sinkTypes, namedSchema{id: sink.ID, ty: *ty})
		}
	}

	if !typesAreIdentical(sinkTypes) {
		errs = append(errs, mismatchError{noun: "sinks", types: describeSchemas(sinkTypes)})
	}
	return errs
}

type namedSchema struct {
	id string
	ty schema.KVSchema
}

// typesAreIdentical checks that every schema in the list agrees. The sample
// adopts the first declared key, so unkeyed entries tolerate keyed siblings
// as long as all declared keys match.
func typesAreIdentical(types []namedSchema) bool {
	if len(types) == 0 {
		return true
	}
	sample := types[0].ty
	for _, entry := range types[1:] {
		current := entry.ty
		if current.Value != sample.Value {
			return false
		}
		if current.Key != nil {
			if sample.Key != nil {
				if *current.Key != *sample.Key {
					return false
				}
			} else {
				key := *current.Key
				sample.Key = &key
			}
		}
	}
	return true
}

func describeSchemas(types []namedSchema) string {
	parts := make([]string, len(types))
	for i, entry := range types {
		parts[i] = fmt.Sprintf("%s: %s", entry.id, entry.ty.Display())
	}
	return strings.Join(parts, ", ")
}
