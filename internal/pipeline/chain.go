package pipeline

import (
	"fmt"

	"github.com/roach88/sluice/internal/diag"
	"github.com/roach88/sluice/internal/schema"
)

// Step is one entry in a transforms block: an invocation plus the transform
// kind it runs as.
type Step struct {
	Kind       Kind           `json:"operator"`
	Invocation StepInvocation `json:"invocation"`
}

// NewStep builds a transforms step, rejecting kinds that may only appear in
// window or partition stages.
func NewStep(kind Kind, inv StepInvocation) (Step, error) {
	if !kind.IsTransform() {
		return Step{}, fmt.Errorf("operator kind %s not supported for transforms step", kind)
	}
	return Step{Kind: kind, Invocation: inv}, nil
}

// Name returns the function name the step invokes.
func (s Step) Name() string { return s.Invocation.Uses }

// Validate checks the step's invocation against its kind contract.
func (s Step) Validate(reg *schema.Registry) diag.Violations {
	return s.Invocation.ValidateAs(s.Kind, reg)
}

// InputSchema returns the key/value pair the step consumes, or false when
// the step declares no inputs.
func (s Step) InputSchema() (schema.KVSchema, bool) {
	inv := &s.Invocation
	if inv.RequiresKeyParam() {
		if len(inv.Inputs) < 2 {
			return schema.KVSchema{}, false
		}
		key := inv.Inputs[0].Type
		return schema.KVSchema{Key: &key, Value: inv.Inputs[1].Type}, true
	}
	if len(inv.Inputs) == 0 {
		return schema.KVSchema{}, false
	}
	return schema.KVSchema{Value: inv.Inputs[0].Type}, true
}

// OutputSchema returns the key/value pair the step produces, or false when
// it declares no output.
func (s Step) OutputSchema() (schema.KVSchema, bool) {
	if s.Invocation.Output == nil {
		return schema.KVSchema{}, false
	}
	return s.Invocation.Output.Schema(), true
}

// Transforms is an ordered chain of steps threading one stream schema.
type Transforms struct {
	Steps []Step `json:"steps,omitempty"`
}

// InsertStep inserts a step at the given index. A nil index is rejected:
// the caller must say where in the chain the operator goes.
func (t *Transforms) InsertStep(index *int, kind Kind, inv StepInvocation) error {
	if index == nil {
		return fmt.Errorf("Must provide transforms index to insert operator into transforms block")
	}
	if *index > len(t.Steps) {
		return fmt.Errorf("cannot insert operator into transforms block, index is out of bounds, len = %d", len(t.Steps))
	}
	step, err := NewStep(kind, inv)
	if err != nil {
		return err
	}
	t.Steps = append(t.Steps, Step{})
	copy(t.Steps[*index+1:], t.Steps[*index:])
	t.Steps[*index] = step
	return nil
}

// DeleteStep removes the step at the given index.
func (t *Transforms) DeleteStep(index int) error {
	if index >= len(t.Steps) {
		return fmt.Errorf("cannot delete operator from transforms block, index is out of bounds, len = %d", len(t.Steps))
	}
	t.Steps = append(t.Steps[:index], t.Steps[index+1:]...)
	return nil
}

// OutputType threads the input schema through the chain and returns the
// schema the last step produces. It only checks enough to thread safely; the
// full diagnostics come from ValidateSteps.
func (t *Transforms) OutputType(input schema.KVSchema) (schema.KVSchema, error) {
	invalid := fmt.Errorf("could not get output type from invalid transforms")

	for _, step := range t.Steps {
		inv := &step.Invocation

		var value *Parameter
		if inv.RequiresKeyParam() {
			if len(inv.Inputs) == 0 {
				return schema.KVSchema{}, invalid
			}
			if len(inv.Inputs) > 1 {
				value = &inv.Inputs[1]
			}
		} else if len(inv.Inputs) > 0 {
			value = &inv.Inputs[0]
		}

		if value == nil || !schema.EqualNames(value.Type.Name, input.Value.Name) {
			return schema.KVSchema{}, invalid
		}

		if inv.Output != nil && step.Kind != KindFilter {
			input.Value = inv.Output.Type
			if inv.Output.Key != nil {
				key := *inv.Output.Key
				input.Key = &key
			}
		}
	}

	return input, nil
}

// ValidateSteps checks a chain of steps against the stream schema provided
// by providerName. Each step is validated against its kind contract, its key
// and value inputs are matched against what the previous step (or the
// initial provider) produces, and the threaded schema advances through every
// non-filter output.
func ValidateSteps(steps []Step, reg *schema.Registry, expected schema.KVSchema, providerName string) diag.Violations {
	var errs diag.Violations

	for _, step := range steps {
		errs = diag.Merge(errs, step.Validate(reg))
		inv := &step.Invocation

		var value *Parameter
		if inv.RequiresKeyParam() {
			if len(inv.Inputs) > 0 {
				inputKey := inv.Inputs[0]
				if expected.Key != nil {
					if !schema.EqualNames(inputKey.Type.Name, expected.Key.Name) {
						errs = diag.Merge(errs, diag.New(fmt.Sprintf(
							"in `%s`, key type does not match expected key type. %s != %s",
							inv.Uses, inputKey.Type.Name, expected.Key.Name)))
					}
				} else {
					errs = diag.Merge(errs, diag.New(fmt.Sprintf(
						"%s function requires a key, but none was found. Make sure that you define the right key in the topic configuration",
						inv.Uses)))
				}
			} else {
				errs = diag.Merge(errs, diag.New(fmt.Sprintf(
					"map type function `%s` should have at least 1 input type, found 0",
					step.Name())))
			}
			if len(inv.Inputs) > 1 {
				value = &inv.Inputs[1]
			}
		} else if len(inv.Inputs) > 0 {
			value = &inv.Inputs[0]
		}

		if value != nil && !schema.EqualNames(value.Type.Name, expected.Value.Name) {
			errs = diag.Merge(errs, diag.New(fmt.Sprintf(
				"Function `%s` input type was expected to match `%s` type provided by %s, but `%s` was found.",
				step.Name(), expected.Value.Name, providerName, value.Type.Name)))
		}

		if inv.Output != nil {
			if step.Kind != KindFilter {
				expected.Value = inv.Output.Type
				if inv.Output.Key != nil {
					key := *inv.Output.Key
					expected.Key = &key
				}
			}
			providerName = fmt.Sprintf("function `%s`", step.Name())
		}
	}

	return errs
}
