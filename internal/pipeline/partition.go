package pipeline

import (
	"fmt"

	"github.com/roach88/sluice/internal/diag"
	"github.com/roach88/sluice/internal/schema"
)

// Partition is a post-transforms stage that re-keys the stream and runs a
// per-key chain, optionally folding into a state at the end.
type Partition struct {
	AssignKey   StepInvocation  `json:"assign_key"`
	Transforms  Transforms      `json:"transforms,omitzero"`
	UpdateState *StepInvocation `json:"update_state,omitempty"`
}

// Operators lists every invocation in the stage with the kind it runs as,
// in execution order.
func (p *Partition) Operators() []BoundOperator {
	ops := []BoundOperator{{Invocation: p.AssignKey, Kind: KindAssignKey}}
	for _, step := range p.Transforms.Steps {
		ops = append(ops, BoundOperator{Invocation: step.Invocation, Kind: step.Kind})
	}
	if p.UpdateState != nil {
		ops = append(ops, BoundOperator{Invocation: *p.UpdateState, Kind: KindUpdateState})
	}
	return ops
}

// AddOperator inserts a step into the partition's transforms. The assign-key
// slot itself is fixed and cannot be added to.
func (p *Partition) AddOperator(index *int, kind Kind, inv StepInvocation) error {
	if index == nil {
		return fmt.Errorf("Transforms index required to add operator to partition")
	}
	return p.Transforms.InsertStep(index, kind, inv)
}

// DeleteOperator removes a step from the partition's transforms.
func (p *Partition) DeleteOperator(index *int) error {
	if index == nil {
		return fmt.Errorf("Transforms index required to delete operator from partition")
	}
	return p.Transforms.DeleteStep(*index)
}

// OutputType threads the input schema through the partition's transforms.
func (p *Partition) OutputType(input schema.KVSchema) (schema.KVSchema, error) {
	return p.Transforms.OutputType(input)
}

// Validate checks the assign-key contract and its fit against the incoming
// schema, the transforms chain, and the update-state fold.
func (p *Partition) Validate(reg *schema.Registry, expected schema.KVSchema, providerName string) diag.Violations {
	errs := p.validateAssignKey(reg, expected, providerName)

	errs = diag.Merge(errs,
		ValidateSteps(p.Transforms.Steps, reg, expected, providerName).
			WithContext("transforms block is invalid:"))

	if p.UpdateState != nil {
		errs = diag.Merge(errs, p.UpdateState.ValidateAs(KindUpdateState, reg))
	}

	return errs
}

func (p *Partition) validateAssignKey(reg *schema.Registry, expected schema.KVSchema, providerName string) diag.Violations {
	errs := p.AssignKey.ValidateAs(KindAssignKey, reg)

	var value *Parameter
	if p.AssignKey.RequiresKeyParam() {
		keyParam := p.AssignKey.Inputs[0]
		if expected.Key != nil {
			if keyParam.Type.Name != expected.Key.Name {
				errs = diag.Merge(errs, diag.New(fmt.Sprintf(
					"assign-key function `%s` key type should match `%s` provided by `%s` but found `%s`",
					p.AssignKey.Uses, expected.Key.Name, providerName, keyParam.Type.Name)))
			}
		} else {
			errs = diag.Merge(errs, diag.New(fmt.Sprintf(
				"assign-key function `%s` requires a key type", p.AssignKey.Uses)))
		}
		if len(p.AssignKey.Inputs) > 1 {
			value = &p.AssignKey.Inputs[1]
		}
	} else if len(p.AssignKey.Inputs) > 0 {
		value = &p.AssignKey.Inputs[0]
	}

	if value != nil && value.Type.Name != expected.Value.Name {
		errs = diag.Merge(errs, diag.New(fmt.Sprintf(
			"assign-key function `%s` input type should match `%s` provided by `%s` but found `%s`",
			p.AssignKey.Uses, expected.Value.Name, providerName, value.Type.Name)))
	}

	return errs
}
