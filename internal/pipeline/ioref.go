package pipeline

import (
	"fmt"
	"strings"

	"github.com/roach88/sluice/internal/diag"
	"github.com/roach88/sluice/internal/schema"
)

// IoType says what a source or sink reference points at.
type IoType int

const (
	IoTopic IoType = iota
	IoSchedule
	IoNoTarget
)

// TopicBinding resolves a topic id to the schema it carries. The dataflow
// layer supplies these; the operator layer never sees full topic configs.
type TopicBinding struct {
	ID     string
	Schema schema.KVSchema
}

func findTopic(topics []TopicBinding, id string) (TopicBinding, bool) {
	for _, t := range topics {
		if t.ID == id {
			return t, true
		}
	}
	return TopicBinding{}, false
}

// IoRef is a service's connection to the outside: a topic, a schedule, or
// nothing, plus an optional per-connection transforms chain.
type IoRef struct {
	ID    string `json:"id"`
	Type  IoType `json:"type"`
	Steps []Step `json:"steps,omitempty"`
}

// IoError is one problem found on a source or sink. Nested violations render
// under a header line at one deeper indent.
type IoError struct {
	Message string
	Nested  diag.Violations
}

// Readable renders the error line and any nested violations.
func (e IoError) Readable(indents int) string {
	var sb strings.Builder
	sb.WriteString(strings.Repeat(diag.Indent, indents))
	sb.WriteString(e.Message)
	sb.WriteString("\n")
	sb.WriteString(e.Nested.Readable(indents + 1))
	return sb.String()
}

// IoFailure collects every problem found on one source or sink.
type IoFailure struct {
	Name   string
	Errors []IoError
}

// Readable renders each error in order. The enclosing service failure
// supplies the "Source `x` is invalid:" header.
func (f *IoFailure) Readable(indents int) string {
	var sb strings.Builder
	for _, e := range f.Errors {
		sb.WriteString(e.Readable(indents))
	}
	return sb.String()
}

func errNoTarget() IoError {
	return IoError{Message: "Cannot have a source with no target"}
}

func errTopicNotFound(id string) IoError {
	return IoError{Message: fmt.Sprintf("Referenced topic `%s` not found", id)}
}

func errTransformsBlock(nested diag.Violations) IoError {
	return IoError{Message: "Transforms block is invalid:", Nested: nested}
}

func errInvalidOperator(nested diag.Violations) IoError {
	return IoError{Message: "Invalid operator(s):", Nested: nested}
}

// SchemaType resolves the schema behind the reference itself, ignoring any
// attached steps. A nil schema with a nil error means the reference has no
// target.
func (r *IoRef) SchemaType(topics []TopicBinding) (*schema.KVSchema, *IoError) {
	switch r.Type {
	case IoNoTarget:
		return nil, nil
	case IoSchedule:
		ts := schema.TimestampSchema()
		return &ts, nil
	default:
		topic, ok := findTopic(topics, r.ID)
		if !ok {
			e := errTopicNotFound(r.ID)
			return nil, &e
		}
		ty := topic.Schema
		return &ty, nil
	}
}

// SourceType returns the schema the source feeds into the service: the
// output of its steps when it has any, the target schema otherwise.
func (r *IoRef) SourceType(topics []TopicBinding) (schema.KVSchema, *IoError) {
	if len(r.Steps) > 0 {
		out, verr := chainOutputFromLastStep(r.Steps[len(r.Steps)-1])
		if verr != nil {
			e := errTransformsBlock(verr)
			return schema.KVSchema{}, &e
		}
		return out, nil
	}

	ty, err := r.SchemaType(topics)
	if err != nil {
		return schema.KVSchema{}, err
	}
	if ty == nil {
		e := errNoTarget()
		return schema.KVSchema{}, &e
	}
	return *ty, nil
}

// SinkType returns the schema the sink expects from the service: the input
// of its first step when it has any, the target schema otherwise. A nil
// schema means the sink has no target and accepts anything.
func (r *IoRef) SinkType(topics []TopicBinding) (*schema.KVSchema, *IoError) {
	if len(r.Steps) > 0 {
		in, ok := r.Steps[0].InputSchema()
		if !ok {
			e := errTransformsBlock(diag.New(
				"The first operator in a transforms block must take an input"))
			return nil, &e
		}
		return &in, nil
	}
	return r.SchemaType(topics)
}

func (r *IoRef) validateScheduleDefined(schedules []string) *IoError {
	if r.Type != IoSchedule {
		return nil
	}
	for _, name := range schedules {
		if name == r.ID {
			return nil
		}
	}
	e := errTopicNotFound(r.ID)
	return &e
}

// ValidateSource checks a source reference: the target must resolve, any
// attached steps must form a valid chain over the target schema, and a
// schedule source must name a defined schedule. Returns nil when valid.
func (r *IoRef) ValidateSource(reg *schema.Registry, topics []TopicBinding, schedules []string) *IoFailure {
	failure := &IoFailure{Name: r.ID}

	if _, err := r.SourceType(topics); err != nil {
		failure.Errors = append(failure.Errors, *err)
	}

	if ty, err := r.SchemaType(topics); err == nil && ty != nil && len(r.Steps) > 0 {
		provider := fmt.Sprintf("Topic `%s`", r.ID)
		if errs := ValidateSteps(r.Steps, reg, *ty, provider); errs.Any() {
			failure.Errors = append(failure.Errors, errInvalidOperator(errs))
		}
	}

	if err := r.validateScheduleDefined(schedules); err != nil {
		failure.Errors = append(failure.Errors, *err)
	}

	if len(failure.Errors) == 0 {
		return nil
	}
	return failure
}

// ValidateSink checks a sink reference against the service's output schema:
// the sink's expected input must match what the service emits, and any
// attached steps must form a valid chain from the service output to the
// target schema. Returns nil when valid.
func (r *IoRef) ValidateSink(reg *schema.Registry, topics []TopicBinding, serviceOutput schema.KVSchema) *IoFailure {
	failure := &IoFailure{Name: r.ID}
	var transformsErrs diag.Violations

	sinkTy, err := r.SinkType(topics)
	switch {
	case err != nil:
		failure.Errors = append(failure.Errors, *err)
	case sinkTy != nil:
		if !schema.EqualNames(sinkTy.Value.Name, serviceOutput.Value.Name) {
			transformsErrs = diag.Merge(transformsErrs, diag.New(fmt.Sprintf(
				"service output type `%s` does not match sink input type `%s`",
				serviceOutput.Value.Name, sinkTy.Value.Name)))
		}
		if sinkTy.Key != nil && serviceOutput.Key != nil && sinkTy.Key.Name != serviceOutput.Key.Name {
			transformsErrs = diag.Merge(transformsErrs, diag.New(fmt.Sprintf(
				"sink transforms input key type `%s` does not match service output key type `%s`",
				sinkTy.Key.Name, serviceOutput.Key.Name)))
		}
	}

	if len(r.Steps) > 0 {
		if errs := ValidateSteps(r.Steps, reg, serviceOutput, "service"); errs.Any() {
			failure.Errors = append(failure.Errors, errInvalidOperator(errs))
		}

		out, verr := chainOutputFromLastStep(r.Steps[len(r.Steps)-1])
		if verr != nil {
			transformsErrs = diag.Merge(transformsErrs, verr)
		} else if ty, terr := r.SchemaType(topics); terr == nil {
			if ty == nil {
				transformsErrs = diag.Merge(transformsErrs, diag.New(
					"sink cannot have transforms steps without a target"))
			} else {
				if !schema.EqualNames(out.Value.Name, ty.Value.Name) {
					transformsErrs = diag.Merge(transformsErrs, diag.New(fmt.Sprintf(
						"transforms steps final output type `%s` does not match topic type `%s`",
						out.Value.Name, ty.Value.Name)))
				}
				if ty.Key != nil && out.Key != nil && out.Key.Name != ty.Key.Name {
					transformsErrs = diag.Merge(transformsErrs, diag.New(fmt.Sprintf(
						"sink `%s` has transforms steps but final output key type `%s` does not match topic key type `%s`",
						r.ID, out.Key.Name, ty.Key.Name)))
				}
			}
		}
	}

	if transformsErrs.Any() {
		failure.Errors = append(failure.Errors, errTransformsBlock(transformsErrs))
	}

	if len(failure.Errors) == 0 {
		return nil
	}
	return failure
}

// chainOutputFromLastStep returns the schema a chain emits: the output of
// its last step, or the input when that step is a filter.
func chainOutputFromLastStep(last Step) (schema.KVSchema, diag.Violations) {
	if last.Kind == KindFilter {
		if in, ok := last.InputSchema(); ok {
			return in, nil
		}
		return schema.KVSchema{}, diag.New(
			"Last transforms step is invalid. Filter operator should have an input type")
	}
	if out, ok := last.OutputSchema(); ok {
		return out, nil
	}
	return schema.KVSchema{}, diag.New(
		"Last transforms step is invalid. Expected an operator with an output type")
}
