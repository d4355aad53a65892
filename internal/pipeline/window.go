package pipeline

import (
	"fmt"
	"time"

	"github.com/roach88/sluice/internal/diag"
	"github.com/roach88/sluice/internal/schema"
)

// WindowKind selects between tumbling and sliding windows.
type WindowKind int

const (
	WindowTumbling WindowKind = iota
	WindowSliding
)

// WindowProperties carries the timing configuration of a window stage.
type WindowProperties struct {
	Kind     WindowKind    `json:"kind"`
	Duration time.Duration `json:"duration"`
	// Slide is the interval between window starts; sliding windows only.
	Slide  time.Duration `json:"slide,omitempty"`
	Offset time.Duration `json:"offset,omitempty"`
	// Idleness is how long a source may be silent before the watermark
	// advances without it.
	Idleness time.Duration `json:"idleness,omitempty"`
	// GracePeriod is how long late events are still admitted.
	GracePeriod time.Duration `json:"grace_period,omitempty"`
}

// NewWindowInterval returns the time between new windows opening.
func (p WindowProperties) NewWindowInterval() time.Duration {
	if p.Kind == WindowSliding {
		return p.Slide
	}
	return p.Duration
}

// Window is a post-transforms stage: events are stamped into windows, run
// through an optional chain and partition, and flushed by an aggregate.
type Window struct {
	Properties      WindowProperties `json:"properties"`
	AssignTimestamp StepInvocation   `json:"assign_timestamp"`
	Transforms      Transforms       `json:"transforms,omitzero"`
	Partition       *Partition       `json:"partition,omitempty"`
	Flush           *StepInvocation  `json:"flush,omitempty"`
}

// Operators lists every invocation in the stage with the kind it runs as,
// in execution order.
func (w *Window) Operators() []BoundOperator {
	ops := []BoundOperator{{Invocation: w.AssignTimestamp, Kind: KindAssignTimestamp}}
	for _, step := range w.Transforms.Steps {
		ops = append(ops, BoundOperator{Invocation: step.Invocation, Kind: step.Kind})
	}
	if w.Partition != nil {
		ops = append(ops, w.Partition.Operators()...)
	}
	if w.Flush != nil {
		ops = append(ops, BoundOperator{Invocation: *w.Flush, Kind: KindWindowAggregate})
	}
	return ops
}

// AddOperator inserts a step into the window's own transforms, or into its
// partition transforms when partition is set.
func (w *Window) AddOperator(index *int, partition bool, kind Kind, inv StepInvocation) error {
	if partition {
		if w.Partition == nil {
			return fmt.Errorf("Cannot add operator. Window and partition were specified but window does not have a partition")
		}
		return w.Partition.AddOperator(index, kind, inv)
	}
	return w.Transforms.InsertStep(index, kind, inv)
}

// DeleteOperator removes a step from the window's own transforms, or from
// its partition transforms when partition is set.
func (w *Window) DeleteOperator(index *int, partition bool) error {
	if partition {
		if w.Partition == nil {
			return fmt.Errorf("Cannot delete operator. Window and partition were specified but window does not have a partition")
		}
		return w.Partition.DeleteOperator(index)
	}
	if index == nil {
		return fmt.Errorf("Transforms index required to delete operator from window transforms")
	}
	return w.Transforms.DeleteStep(*index)
}

// OutputType threads the input schema through transforms, partition, and
// flush, returning what the stage emits.
func (w *Window) OutputType(input schema.KVSchema) (schema.KVSchema, error) {
	invalid := fmt.Errorf("could not get output type from invalid window")

	out, err := w.Transforms.OutputType(input)
	if err != nil {
		return schema.KVSchema{}, invalid
	}

	if w.Partition != nil {
		out, err = w.Partition.OutputType(out)
		if err != nil {
			return schema.KVSchema{}, invalid
		}
	}

	if w.Flush != nil {
		if w.Flush.Output == nil {
			return schema.KVSchema{}, invalid
		}
		out = w.Flush.Output.Schema()
	}

	return out, nil
}

// Validate checks the whole stage: the assign-timestamp contract and its fit
// against the incoming schema, the transforms chain, the partition, and the
// flush aggregate.
func (w *Window) Validate(reg *schema.Registry, expected schema.KVSchema, providerName string) diag.Violations {
	errs := w.validateAssignTimestamp(reg, expected, providerName)

	errs = diag.Merge(errs,
		ValidateSteps(w.Transforms.Steps, reg, expected, providerName).
			WithContext("transforms block is invalid:"))

	out, err := w.Transforms.OutputType(expected)
	if err != nil {
		return errs
	}
	providerName = "window"

	if w.Partition != nil {
		errs = diag.Merge(errs,
			w.Partition.Validate(reg, out, providerName).WithContext("partition is invalid:"))
	}

	if w.Flush != nil {
		errs = diag.Merge(errs,
			w.Flush.ValidateAs(KindWindowAggregate, reg).WithContext("flush function is invalid:"))
	}

	return errs
}

func (w *Window) validateAssignTimestamp(reg *schema.Registry, expected schema.KVSchema, providerName string) diag.Violations {
	errs := w.AssignTimestamp.ValidateAs(KindAssignTimestamp, reg)

	var value *Parameter
	if w.AssignTimestamp.RequiresKeyParam() {
		keyParam := w.AssignTimestamp.Inputs[0]
		if expected.Key != nil && keyParam.Type.Name != expected.Key.Name {
			errs = diag.Merge(errs, diag.New(fmt.Sprintf(
				"assign-timestamp function `%s` input type should match `%s` provided by `%s` but found `%s`",
				w.AssignTimestamp.Uses, expected.Key.Name, providerName, keyParam.Type.Name)))
		}
		if len(w.AssignTimestamp.Inputs) > 1 {
			value = &w.AssignTimestamp.Inputs[1]
		}
	} else if len(w.AssignTimestamp.Inputs) > 0 {
		value = &w.AssignTimestamp.Inputs[0]
	}

	if value != nil && value.Type.Name != expected.Value.Name {
		errs = diag.Merge(errs, diag.New(fmt.Sprintf(
			"assign-timestamp function `%s` input type should match `%s` provided by `%s` but found `%s`",
			w.AssignTimestamp.Uses, expected.Value.Name, providerName, value.Type.Name)))
	}

	return errs
}
