package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sluice/internal/schema"
)

func unresolvedState(name, valueType string) TypedState {
	return TypedState{
		Name: name,
		Type: schema.KeyedState{
			Key: ref("string"),
			Value: schema.KeyedStateValue{
				Kind:       schema.StateValueUnresolved,
				Unresolved: &schema.TypeRef{Name: valueType},
			},
		},
	}
}

// ==== typed states ====

func TestTypedStateResolvesToCounter(t *testing.T) {
	reg := schema.NewRegistry()
	require.True(t, reg.InsertLocal("total", schema.Scalar(schema.KindU32)))

	state := unresolvedState("totals", "total")
	require.NoError(t, state.Resolve(reg))
	assert.Equal(t, schema.StateValueU32, state.Type.Value.Kind)
}

func TestTypedStateResolvesToArrowRow(t *testing.T) {
	reg := schema.NewRegistry()
	require.True(t, reg.InsertLocal("stats", schema.Type{
		Kind: schema.KindArrowRow,
		ArrowRow: &schema.ArrowRow{Columns: []schema.ArrowColumn{
			{Name: "count", Type: schema.ColumnU64},
		}},
	}))

	state := unresolvedState("totals", "stats")
	require.NoError(t, state.Resolve(reg))
	require.Equal(t, schema.StateValueArrowRow, state.Type.Value.Kind)
	require.NotNil(t, state.Type.Value.ArrowRow)
	assert.Len(t, state.Type.Value.ArrowRow.Columns, 1)
}

func TestTypedStateRejectsOtherShapes(t *testing.T) {
	reg := schema.NewRegistry()
	require.True(t, reg.InsertLocal("word", schema.Scalar(schema.KindString)))

	state := unresolvedState("totals", "word")
	err := state.Resolve(reg)
	require.Error(t, err)
	assert.Equal(t, "invalid type for keyed state value", err.Error())
}

func TestTypedStateValidateRequiresResolution(t *testing.T) {
	state := unresolvedState("totals", "total")
	errs := state.Validate()
	require.Len(t, errs, 1)
	assert.Equal(t,
		"Internal Error: typed state value should be resolved before validation. Please contact support",
		errs[0].Message)
}

// ==== state references ====

func TestStateRefValidation(t *testing.T) {
	const form = "state reference must be of the form <service>.<state>"

	cases := []struct {
		name    string
		state   StateRef
		message string
	}{
		{"both empty", StateRef{}, "empty state reference found. " + form},
		{"name empty", StateRef{Service: "counter"}, "state name missing for state reference. " + form},
		{"service empty", StateRef{Name: "totals"}, "service name missing for state reference. " + form},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			errs := tc.state.Validate()
			require.Len(t, errs, 1)
			assert.Equal(t, tc.message, errs[0].Message)
		})
	}

	valid := StateRef{Name: "totals", Service: "counter"}
	assert.Empty(t, valid.Validate())
}

// ==== system states ====

func TestSystemStateValidation(t *testing.T) {
	errs := (&SystemState{}).Validate()
	require.Len(t, errs, 1)
	assert.Equal(t, "empty system state found. state name and system cannot be empty", errs[0].Message)

	errs = (&SystemState{System: "consumer"}).Validate()
	require.Len(t, errs, 1)
	assert.Equal(t, "Name must be specified for system state", errs[0].Message)

	errs = (&SystemState{Name: "offsets"}).Validate()
	require.Len(t, errs, 1)
	assert.Equal(t, "System must be specified for system state `offsets`", errs[0].Message)

	assert.Empty(t, (&SystemState{Name: "offsets", System: "consumer"}).Validate())
}

// ==== step state resolution ====

func TestStepStateResolveBindsByName(t *testing.T) {
	states := []TypedState{
		{Name: "totals", Type: schema.KeyedState{
			Key:   ref("string"),
			Value: schema.KeyedStateValue{Kind: schema.StateValueU32},
		}},
	}

	inv := StepInvocation{
		Uses:   "count",
		States: []StepState{{Name: "totals"}, {Name: "unknown"}},
	}
	require.NoError(t, inv.ResolveStates(states))
	require.NotNil(t, inv.States[0].Value)
	assert.Equal(t, schema.StateValueU32, inv.States[0].Value.Type.Value.Kind)
	assert.Nil(t, inv.States[1].Value)
}
