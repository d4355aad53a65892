package pipeline

import (
	"github.com/roach88/sluice/internal/diag"
	"github.com/roach88/sluice/internal/schema"
)

// PostTransforms is the optional stage after a service's transforms block:
// either a window or a bare partition. Exactly one arm is set.
type PostTransforms struct {
	Window    *Window    `json:"window,omitempty"`
	Partition *Partition `json:"partition,omitempty"`
}

// Operators lists every invocation in the stage, in execution order.
func (p *PostTransforms) Operators() []BoundOperator {
	switch {
	case p.Window != nil:
		return p.Window.Operators()
	case p.Partition != nil:
		return p.Partition.Operators()
	}
	return nil
}

// OutputType threads the input schema through whichever arm is set.
func (p *PostTransforms) OutputType(input schema.KVSchema) (schema.KVSchema, error) {
	switch {
	case p.Window != nil:
		return p.Window.OutputType(input)
	case p.Partition != nil:
		return p.Partition.OutputType(input)
	}
	return input, nil
}

// Validate checks whichever arm is set against the schema the transforms
// block produced.
func (p *PostTransforms) Validate(reg *schema.Registry, expected schema.KVSchema) diag.Violations {
	const provider = "transforms block"

	switch {
	case p.Window != nil:
		return p.Window.Validate(reg, expected, provider).WithContext("Window")
	case p.Partition != nil:
		return p.Partition.Validate(reg, expected, provider).WithContext("Partition")
	}
	return nil
}
