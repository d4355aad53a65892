package emit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sluice/internal/pipeline"
	"github.com/roach88/sluice/internal/schema"
)

// ==== operator interfaces ====

func TestOperatorInterfaceMap(t *testing.T) {
	op := pipeline.BoundOperator{
		Kind: pipeline.KindMap,
		Invocation: pipeline.StepInvocation{
			Uses: "to-text",
			Inputs: []pipeline.Parameter{
				{Name: "value", Type: schema.TypeRef{Name: "u8"}},
			},
			Output: &pipeline.StepOutput{Type: schema.TypeRef{Name: "string"}},
		},
	}

	expected := "interface to-text-service {\n" +
		"  to-text: func(value: u8) -> result<string, string>;\n" +
		"}\n"
	assert.Equal(t, expected, renderInterface(t, operatorInterface(op)))
}

func TestOperatorInterfaceImportsDeclaredTypes(t *testing.T) {
	op := pipeline.BoundOperator{
		Kind: pipeline.KindMap,
		Invocation: pipeline.StepInvocation{
			Uses: "enrich",
			Inputs: []pipeline.Parameter{
				{Name: "event", Type: schema.TypeRef{Name: "sensor-event"}},
			},
			Output: &pipeline.StepOutput{Type: schema.TypeRef{Name: "enriched-event"}},
		},
	}

	rendered := renderInterface(t, operatorInterface(op))
	assert.Contains(t, rendered, "use types.{enriched-event, sensor-event};\n")
}

func TestOperatorInterfaceVoidOutput(t *testing.T) {
	op := pipeline.BoundOperator{
		Kind: pipeline.KindUpdateState,
		Invocation: pipeline.StepInvocation{
			Uses: "count-words",
			Inputs: []pipeline.Parameter{
				{Name: "word", Type: schema.TypeRef{Name: "string"}},
			},
		},
	}

	rendered := renderInterface(t, operatorInterface(op))
	assert.Contains(t, rendered, "count-words: func(word: string) -> result<_, string>;\n")
}

func TestOperatorInterfaceFlatMapWrapsList(t *testing.T) {
	op := pipeline.BoundOperator{
		Kind: pipeline.KindFlatMap,
		Invocation: pipeline.StepInvocation{
			Uses: "split",
			Inputs: []pipeline.Parameter{
				{Name: "line", Type: schema.TypeRef{Name: "string"}},
			},
			Output: &pipeline.StepOutput{Type: schema.TypeRef{Name: "string"}},
		},
	}

	rendered := renderInterface(t, operatorInterface(op))
	assert.Contains(t, rendered, "split: func(line: string) -> result<list<string>, string>;\n")
}

func TestOperatorInterfaceFilterMapWrapsOption(t *testing.T) {
	op := pipeline.BoundOperator{
		Kind: pipeline.KindFilterMap,
		Invocation: pipeline.StepInvocation{
			Uses: "keep-large",
			Inputs: []pipeline.Parameter{
				{Name: "count", Type: schema.TypeRef{Name: "u32"}},
			},
			Output: &pipeline.StepOutput{
				Type:     schema.TypeRef{Name: "u32"},
				Optional: true,
			},
		},
	}

	rendered := renderInterface(t, operatorInterface(op))
	assert.Contains(t, rendered, "keep-large: func(count: u32) -> result<option<u32>, string>;\n")
}

func TestOperatorInterfaceKeyedSignature(t *testing.T) {
	key := schema.TypeRef{Name: "string"}
	op := pipeline.BoundOperator{
		Kind: pipeline.KindAssignKey,
		Invocation: pipeline.StepInvocation{
			Uses: "key-by-word",
			Inputs: []pipeline.Parameter{
				{Name: "word", Type: schema.TypeRef{Name: "string"}, Kind: pipeline.ParamKey, Optional: true},
				{Name: "count", Type: schema.TypeRef{Name: "u32"}},
			},
			Output: &pipeline.StepOutput{
				Type: schema.TypeRef{Name: "u32"},
				Key:  &key,
			},
		},
	}

	rendered := renderInterface(t, operatorInterface(op))
	assert.Contains(t, rendered,
		"key-by-word: func(word: option<string>, count: u32) -> result<tuple<option<string>, u32>, string>;\n")
}

func TestOperatorInterfaceStateCapabilities(t *testing.T) {
	state := func() *pipeline.TypedState {
		return &pipeline.TypedState{
			Name: "counts",
			Type: schema.KeyedState{
				Key:   schema.TypeRef{Name: "string"},
				Value: schema.KeyedStateValue{Kind: schema.StateValueU32},
			},
		}
	}

	op := pipeline.BoundOperator{
		Kind: pipeline.KindUpdateState,
		Invocation: pipeline.StepInvocation{
			Uses: "count-words",
			Inputs: []pipeline.Parameter{
				{Name: "word", Type: schema.TypeRef{Name: "string"}},
			},
			States: []pipeline.StepState{{Name: "counts", Value: state()}},
		},
	}

	rendered := renderInterface(t, operatorInterface(op))
	assert.Contains(t, rendered, "use types.{counts};\n")
	assert.Contains(t, rendered, "use sdf:value-state/values.{value32};\n")

	op.Kind = pipeline.KindWindowAggregate
	rendered = renderInterface(t, operatorInterface(op))
	assert.Contains(t, rendered, "use sdf:value-state/values.{list32};\n")
}

func TestOperatorInterfaceArrowRowStateCapability(t *testing.T) {
	row := &schema.ArrowRow{
		Columns: []schema.ArrowColumn{{Name: "total", Type: schema.ColumnU64}},
	}
	op := pipeline.BoundOperator{
		Kind: pipeline.KindUpdateState,
		Invocation: pipeline.StepInvocation{
			Uses: "track-profile",
			Inputs: []pipeline.Parameter{
				{Name: "event", Type: schema.TypeRef{Name: "string"}},
			},
			States: []pipeline.StepState{{
				Name: "profile",
				Value: &pipeline.TypedState{
					Name: "profile",
					Type: schema.KeyedState{
						Key:   schema.TypeRef{Name: "string"},
						Value: schema.KeyedStateValue{Kind: schema.StateValueArrowRow, ArrowRow: row},
					},
				},
			}},
		},
	}

	rendered := renderInterface(t, operatorInterface(op))
	assert.Contains(t, rendered, "use sdf:row-state/row.{row-value};\n")

	op.Kind = pipeline.KindWindowAggregate
	rendered = renderInterface(t, operatorInterface(op))
	assert.Contains(t, rendered, "use sdf:df/lazy.{df-value};\n")
}

func TestOperatorInterfacesSortedAndDeduped(t *testing.T) {
	ops := []pipeline.BoundOperator{
		{Kind: pipeline.KindMap, Invocation: pipeline.StepInvocation{Uses: "zeta"}},
		{Kind: pipeline.KindMap, Invocation: pipeline.StepInvocation{Uses: "alpha"}},
		{Kind: pipeline.KindMap, Invocation: pipeline.StepInvocation{Uses: "zeta"}},
	}

	rendered := operatorInterfaces(ops)
	require.Len(t, rendered, 2)
	assert.Equal(t, "alpha-service", rendered[0].Name)
	assert.Equal(t, "zeta-service", rendered[1].Name)
}
