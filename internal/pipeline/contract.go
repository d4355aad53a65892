package pipeline

import (
	"fmt"
	"strings"

	"github.com/roach88/sluice/internal/diag"
	"github.com/roach88/sluice/internal/schema"
)

// ValidateAs checks the invocation against the contract of the given
// operator kind, collecting every problem. An invocation carrying an inline
// code block must have its signature resolved from that body first.
func (s *StepInvocation) ValidateAs(kind Kind, reg *schema.Registry) diag.Violations {
	if s.Code.Code != "" && s.Phase != PhaseResolved {
		return diag.New(fmt.Sprintf(
			"function `%s` has an inline code block that was not resolved", s.Uses))
	}
	switch kind {
	case KindMap:
		return s.validateMap(reg)
	case KindFilter:
		return s.validateFilter(reg)
	case KindFilterMap:
		return s.validateFilterMap(reg)
	case KindFlatMap:
		return s.validateFlatMap(reg)
	case KindAssignKey:
		return s.validateAssignKey(reg)
	case KindAssignTimestamp:
		return s.validateAssignTimestamp(reg)
	case KindUpdateState:
		return s.validateUpdateState(reg)
	case KindWindowAggregate:
		return s.validateWindowAggregate(reg)
	default:
		return diag.New(fmt.Sprintf("unknown operator kind `%s`", kind))
	}
}

func (s *StepInvocation) validateMap(reg *schema.Registry) diag.Violations {
	return diag.Merge(
		s.validateNValueInputs(1, KindMap),
		s.validateOutputPresent(KindMap),
		s.validateInputsInScope(reg),
		s.validateOutputInScope(reg),
	)
}

func (s *StepInvocation) validateFilter(reg *schema.Registry) diag.Violations {
	errs := s.validateNValueInputs(1, KindFilter)

	if s.Output == nil || s.Output.ValueTypeName() != "bool" {
		found := "no type"
		if s.Output != nil {
			found = fmt.Sprintf("`%s`", s.Output.ValueTypeName())
		}
		errs = diag.Merge(errs, diag.New(fmt.Sprintf(
			"filter type function `%s` requires an output type of `bool`, but found %s",
			s.Uses, found)))
	}

	return diag.Merge(errs,
		s.validateInputsInScope(reg),
		s.validateOutputInScope(reg),
	)
}

func (s *StepInvocation) validateFilterMap(reg *schema.Registry) diag.Violations {
	return diag.Merge(
		s.validateNValueInputs(1, KindFilterMap),
		s.validateOutputPresent(KindFilterMap),
		s.validateOutputIsOptional(KindFilterMap, reg),
		s.validateInputsInScope(reg),
		s.validateOutputInScope(reg),
	)
}

func (s *StepInvocation) validateFlatMap(reg *schema.Registry) diag.Violations {
	return diag.Merge(
		s.validateNValueInputs(1, KindFlatMap),
		s.validateOutputPresent(KindFlatMap),
		s.validateInputsInScope(reg),
		s.validateOutputInScope(reg),
	)
}

func (s *StepInvocation) validateUpdateState(reg *schema.Registry) diag.Violations {
	errs := diag.Merge(
		s.validateNValueInputs(1, KindUpdateState),
		s.validateInputsInScope(reg),
	)

	if s.Output != nil {
		errs = diag.Merge(errs, diag.New(fmt.Sprintf(
			"update-state type function `%s` should have no output, but found `%s`",
			s.Uses, s.Output.ValueTypeName())))
	}

	return errs
}

func (s *StepInvocation) validateWindowAggregate(reg *schema.Registry) diag.Violations {
	var errs diag.Violations

	if len(s.Inputs) > 0 {
		found := make([]string, len(s.Inputs))
		for i, p := range s.Inputs {
			found[i] = fmt.Sprintf("[%s: %s]", p.Name, p.Type.Name)
		}
		errs = diag.New(fmt.Sprintf(
			"window-aggregate type function `%s` should have no input type, but found %s",
			s.Uses, strings.Join(found, ", ")))
	}

	return diag.Merge(errs,
		s.validateOutputPresent(KindWindowAggregate),
		s.validateOutputInScope(reg),
	)
}

func (s *StepInvocation) validateAssignKey(reg *schema.Registry) diag.Violations {
	errs := diag.Merge(
		s.validateNValueInputs(1, KindAssignKey),
		s.validateOutputPresent(KindAssignKey),
		s.validateInputsInScope(reg),
		s.validateOutputInScope(reg),
	)

	if s.Output != nil {
		name := s.Output.ValueTypeName()
		if reg.ContainsKey(name) && !reg.IsHashableName(name) {
			errs = diag.Merge(errs, diag.New(fmt.Sprintf(
				"output type for assign-key type function `%s` must be hashable, or a reference to a hashable type. found `%s`.\n hashable types: [%s]",
				s.Uses, name, strings.Join(schema.HashableScalarNames(), ", "))))
		}
	}

	return errs
}

func (s *StepInvocation) validateAssignTimestamp(reg *schema.Registry) diag.Violations {
	errs := diag.Merge(
		s.validateNValueInputs(2, KindAssignTimestamp),
		s.validateOutputPresent(KindAssignTimestamp),
		s.validateInputsInScope(reg),
		s.validateOutputInScope(reg),
	)

	if len(s.Inputs) > 0 {
		second := s.Inputs[len(s.Inputs)-1]
		if !reg.IsS64(second.Type.Name) {
			errs = diag.Merge(errs, diag.New(fmt.Sprintf(
				"second input type for assign-timestamp type function `%s` must be a signed 64-bit int or an alias for one, found: `%s`",
				s.Uses, second.Type.Name)))
		}
	}

	if s.Output != nil && !reg.IsS64(s.Output.ValueTypeName()) {
		errs = diag.Merge(errs, diag.New(fmt.Sprintf(
			"output type for assign-timestamp type function `%s` must be a signed 64-bit int or an alias for one, found: `%s`",
			s.Uses, s.Output.ValueTypeName())))
	}

	return errs
}

// validateNValueInputs checks the input count: n value inputs, plus one more
// when the function declares a key parameter.
func (s *StepInvocation) validateNValueInputs(n int, kind Kind) diag.Violations {
	if len(s.Inputs) == 0 {
		return diag.New(fmt.Sprintf(
			"%s type function `%s` should have exactly %d input type, found 0",
			kind, s.Uses, n))
	}

	expected := n
	if s.Inputs[0].Kind == ParamKey {
		expected++
	}

	if len(s.Inputs) != expected {
		return diag.New(fmt.Sprintf(
			"%s type function `%s` should have exactly %d input type, found %d",
			kind, s.Uses, expected, len(s.Inputs)))
	}
	return nil
}

func (s *StepInvocation) validateOutputPresent(kind Kind) diag.Violations {
	if s.Output == nil {
		return diag.New(fmt.Sprintf(
			"%s type function `%s` requires an output type", kind, s.Uses))
	}
	return nil
}

// validateOutputIsOptional accepts either an output marked optional or one
// whose type resolves to an option through the registry.
func (s *StepInvocation) validateOutputIsOptional(kind Kind, reg *schema.Registry) diag.Violations {
	if s.Output != nil {
		if s.Output.Optional {
			return nil
		}
		if s.Output.Key == nil {
			if inner, ok := reg.InnerTypeName(s.Output.Type.Name); ok {
				if entry, found := reg.Lookup(inner); found && entry.Type.Kind == schema.KindOption {
					return nil
				}
			}
		}
	}
	return diag.New(fmt.Sprintf(
		"%s type function `%s` requires an optional output type", kind, s.Uses))
}

func (s *StepInvocation) validateInputsInScope(reg *schema.Registry) diag.Violations {
	var errs diag.Violations
	for _, input := range s.Inputs {
		if !reg.ContainsKey(input.Type.Name) {
			errs = diag.Merge(errs, diag.New(fmt.Sprintf(
				"function `%s` has invalid input type, Referenced type `%s` not found in config or imported types",
				s.Uses, input.Type.Name)))
		}
	}
	return errs
}

func (s *StepInvocation) validateOutputInScope(reg *schema.Registry) diag.Violations {
	if s.Output != nil && !reg.ContainsKey(s.Output.ValueTypeName()) {
		return diag.New(fmt.Sprintf(
			"function `%s` has invalid output type, Referenced type `%s` not found in config or imported types",
			s.Uses, s.Output.ValueTypeName()))
	}
	return nil
}
