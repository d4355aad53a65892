package pkgdef

import (
	"fmt"
	"sort"

	"github.com/roach88/sluice/internal/pipeline"
	"github.com/roach88/sluice/internal/schema"
)

// ImportServiceOperators rewrites every imported operator in the service
// with the signature its package declares and injects the states those
// functions depend on into the service's state set.
func ImportServiceOperators(
	svc *pipeline.Service,
	imports []Import,
	packages []PackageDefinition,
) error {
	states := make(map[string]pipeline.State, len(svc.States))
	for _, st := range svc.States {
		states[st.Name()] = st
	}

	for i := range svc.Sources {
		if svc.Sources[i].Type != pipeline.IoTopic {
			continue
		}
		if err := importSteps(svc.Sources[i].Steps, imports, packages, nil); err != nil {
			return err
		}
	}

	for i := range svc.Sinks {
		if svc.Sinks[i].Type != pipeline.IoTopic {
			continue
		}
		if err := importSteps(svc.Sinks[i].Steps, imports, packages, states); err != nil {
			return err
		}
	}

	if err := importSteps(svc.Transforms.Steps, imports, packages, states); err != nil {
		return err
	}

	if pt := svc.PostTransforms; pt != nil {
		if pt.Window != nil {
			if err := importWindowOperators(pt.Window, imports, packages, states); err != nil {
				return err
			}
		}
		if pt.Partition != nil {
			if err := importPartitionOperators(pt.Partition, imports, packages, states); err != nil {
				return err
			}
		}
	}

	svc.States = sortedServiceStates(states)
	return nil
}

func importSteps(
	steps []pipeline.Step,
	imports []Import,
	packages []PackageDefinition,
	states map[string]pipeline.State,
) error {
	for i := range steps {
		if !IsImportedFunction(steps[i].Invocation.Uses, imports) {
			continue
		}
		inv, err := ImportedInvocationConfig(steps[i].Invocation, steps[i].Kind, imports, packages)
		if err != nil {
			return err
		}
		steps[i].Invocation = inv
		if states != nil {
			if err := InjectStates(states, inv.States); err != nil {
				return err
			}
		}
	}
	return nil
}

func importInvocation(
	inv *pipeline.StepInvocation,
	kind pipeline.Kind,
	imports []Import,
	packages []PackageDefinition,
	states map[string]pipeline.State,
) error {
	if !IsImportedFunction(inv.Uses, imports) {
		return nil
	}
	resolved, err := ImportedInvocationConfig(*inv, kind, imports, packages)
	if err != nil {
		return err
	}
	*inv = resolved
	return InjectStates(states, resolved.States)
}

func importWindowOperators(
	w *pipeline.Window,
	imports []Import,
	packages []PackageDefinition,
	states map[string]pipeline.State,
) error {
	if err := importInvocation(&w.AssignTimestamp, pipeline.KindAssignTimestamp, imports, packages, states); err != nil {
		return err
	}
	if err := importSteps(w.Transforms.Steps, imports, packages, states); err != nil {
		return err
	}
	if w.Partition != nil {
		if err := importPartitionOperators(w.Partition, imports, packages, states); err != nil {
			return err
		}
	}
	if w.Flush != nil {
		return importInvocation(w.Flush, pipeline.KindWindowAggregate, imports, packages, states)
	}
	return nil
}

func importPartitionOperators(
	p *pipeline.Partition,
	imports []Import,
	packages []PackageDefinition,
	states map[string]pipeline.State,
) error {
	if err := importInvocation(&p.AssignKey, pipeline.KindAssignKey, imports, packages, states); err != nil {
		return err
	}
	if err := importSteps(p.Transforms.Steps, imports, packages, states); err != nil {
		return err
	}
	if p.UpdateState != nil {
		return importInvocation(p.UpdateState, pipeline.KindUpdateState, imports, packages, states)
	}
	return nil
}

// InjectStates adds each resolved state dependency of an imported function
// to the service's state set. Redefining a state with a different shape is
// an error, as is injecting one that was never resolved.
func InjectStates(serviceStates map[string]pipeline.State, stepStates []pipeline.StepState) error {
	for _, st := range stepStates {
		if st.Value == nil {
			return fmt.Errorf("state %s is not resolved", st.Name)
		}
		injected := pipeline.State{Typed: st.Value}
		if old, ok := serviceStates[st.Name]; ok {
			if !sameTypedState(old, injected) {
				return fmt.Errorf("state %s is already defined", st.Name)
			}
			continue
		}
		serviceStates[st.Name] = injected
	}
	return nil
}

func sameTypedState(a, b pipeline.State) bool {
	if a.Typed == nil || b.Typed == nil {
		return false
	}
	if a.Typed.Name != b.Typed.Name {
		return false
	}
	at := a.Typed.Type
	bt := b.Typed.Type
	return schema.Type{Kind: schema.KindKeyedState, KeyedState: &at}.
		Equal(schema.Type{Kind: schema.KindKeyedState, KeyedState: &bt})
}

func sortedServiceStates(states map[string]pipeline.State) []pipeline.State {
	names := make([]string, 0, len(states))
	for name := range states {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]pipeline.State, 0, len(names))
	for _, name := range names {
		out = append(out, states[name])
	}
	return out
}
