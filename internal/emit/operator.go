package emit

import (
	"fmt"
	"sort"

	"github.com/roach88/sluice/internal/pipeline"
	"github.com/roach88/sluice/internal/schema"
)

// operatorInterface renders one operator into its own interface: the
// types it pulls from the shared types interface, the state capabilities
// it needs, and the function itself.
func operatorInterface(op pipeline.BoundOperator) iface {
	name := WitName(op.Invocation.Uses)
	out := iface{Name: name + "-service"}

	if typesUse := operatorTypesUse(&op.Invocation); typesUse != nil {
		out.Uses = append(out.Uses, *typesUse)
	}
	out.Uses = append(out.Uses, stateUses(&op.Invocation, op.Kind)...)
	out.Functions = []function{operatorFunction(&op.Invocation, op.Kind)}
	return out
}

// operatorTypesUse imports every declared type the signature mentions from
// the shared types interface. Builtin scalars need no import.
func operatorTypesUse(inv *pipeline.StepInvocation) *use {
	names := make(map[string]bool)
	for _, in := range inv.Inputs {
		names[in.Type.Name] = true
	}
	if inv.Output != nil {
		names[inv.Output.Type.Name] = true
		if inv.Output.Key != nil {
			names[inv.Output.Key.Name] = true
		}
	}
	for _, st := range inv.States {
		if st.Value != nil {
			names[st.Name] = true
		}
	}

	var items []string
	for name := range names {
		if importedFromTypes(name) {
			items = append(items, MapKeyword(WitName(name)))
		}
	}
	if len(items) == 0 {
		return nil
	}
	sort.Strings(items)
	return &use{Path: "types", Items: items}
}

// stateUses maps each resolved state dependency onto the host capability
// interface serving its value shape. Window aggregates read a whole
// bucket, so they pull the batched forms.
func stateUses(inv *pipeline.StepInvocation, kind pipeline.Kind) []use {
	uses := make(map[string][]string)

	for _, st := range inv.States {
		if st.Value == nil {
			continue
		}
		switch st.Value.Type.Value.Kind {
		case schema.StateValueArrowRow:
			if kind == pipeline.KindWindowAggregate {
				uses["sdf:df/lazy"] = []string{"df-value"}
			} else {
				uses["sdf:row-state/row"] = []string{"row-value"}
			}
		case schema.StateValueU32:
			if kind == pipeline.KindWindowAggregate {
				uses["sdf:value-state/values"] = []string{"list32"}
			} else {
				uses["sdf:value-state/values"] = []string{"value32"}
			}
		}
	}
	return sortedUses(uses)
}

// operatorFunction renders the signature. Key and optional inputs wrap in
// option; the result is keyed by the operator kind, with a string error
// channel throughout.
func operatorFunction(inv *pipeline.StepInvocation, kind pipeline.Kind) function {
	fn := function{Name: WitName(inv.Uses)}

	for _, in := range inv.Inputs {
		ty := witTypeName(in.Type.Name)
		if in.Optional || in.Kind == pipeline.ParamKey {
			ty = fmt.Sprintf("option<%s>", ty)
		}
		fn.Params = append(fn.Params, param{Name: WitName(in.Name), Type: ty})
	}

	if inv.Output == nil {
		fn.Result = "result<_, string>"
		return fn
	}

	ty := witTypeName(inv.Output.Type.Name)
	if inv.Output.Key != nil {
		ty = fmt.Sprintf("tuple<option<%s>, %s>", witTypeName(inv.Output.Key.Name), ty)
	}
	switch {
	case inv.Output.Optional:
		ty = fmt.Sprintf("option<%s>", ty)
	case kind == pipeline.KindFlatMap:
		ty = fmt.Sprintf("list<%s>", ty)
	}
	fn.Result = fmt.Sprintf("result<%s, string>", ty)
	return fn
}
