package pkgdef

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sluice/internal/pipeline"
	"github.com/roach88/sluice/internal/schema"
)

func counterState(name string) *pipeline.TypedState {
	return &pipeline.TypedState{
		Name: name,
		Type: schema.KeyedState{
			Key:   schema.TypeRef{Name: "string"},
			Value: schema.KeyedStateValue{Kind: schema.StateValueU32},
		},
	}
}

func statefulMapFunction(uses, stateName string) Function {
	fn := mapFunction(uses)
	fn.Invocation.States = []pipeline.StepState{
		{Name: stateName, Value: counterState(stateName)},
	}
	return fn
}

// ==== state injection ====

func TestInjectStatesAddsResolvedState(t *testing.T) {
	states := map[string]pipeline.State{}

	err := InjectStates(states, []pipeline.StepState{
		{Name: "hits", Value: counterState("hits")},
	})
	require.NoError(t, err)

	require.Contains(t, states, "hits")
	assert.True(t, states["hits"].IsOwned())
}

func TestInjectStatesIdenticalRedefinitionIsNoOp(t *testing.T) {
	states := map[string]pipeline.State{
		"hits": {Typed: counterState("hits")},
	}

	err := InjectStates(states, []pipeline.StepState{
		{Name: "hits", Value: counterState("hits")},
	})
	require.NoError(t, err)
	assert.Len(t, states, 1)
}

func TestInjectStatesConflictingRedefinitionFails(t *testing.T) {
	states := map[string]pipeline.State{
		"hits": {Typed: counterState("hits")},
	}

	conflicting := counterState("hits")
	conflicting.Type.Key = schema.TypeRef{Name: "u32"}

	err := InjectStates(states, []pipeline.StepState{{Name: "hits", Value: conflicting}})
	require.Error(t, err)
	assert.EqualError(t, err, "state hits is already defined")
}

func TestInjectStatesUnresolvedFails(t *testing.T) {
	err := InjectStates(map[string]pipeline.State{}, []pipeline.StepState{{Name: "hits"}})
	require.Error(t, err)
	assert.EqualError(t, err, "state hits is not resolved")
}

// ==== service rewrite ====

func TestImportServiceOperatorsRewritesTransformStep(t *testing.T) {
	pkg := functionPackage("strings", statefulMapFunction("to-length", "lengths"))
	imports := []Import{{
		Metadata:  pkg.Meta,
		Path:      "../strings",
		Functions: []FunctionImport{{Name: "to-length"}},
	}}

	step, err := pipeline.NewStep(pipeline.KindMap, pipeline.StepInvocation{Uses: "to-length"})
	require.NoError(t, err)

	svc := pipeline.Service{
		Name:       "lengths",
		Transforms: pipeline.Transforms{Steps: []pipeline.Step{step}},
	}

	require.NoError(t, ImportServiceOperators(&svc, imports, []PackageDefinition{pkg}))

	resolved := svc.Transforms.Steps[0].Invocation
	require.Len(t, resolved.Inputs, 1)
	assert.Equal(t, "string", resolved.Inputs[0].Type.Name)
	require.NotNil(t, resolved.Origin)

	// the imported function's state dependency lands on the service
	require.Len(t, svc.States, 1)
	assert.Equal(t, "lengths", svc.States[0].Name())
	assert.True(t, svc.States[0].IsOwned())
}

func TestImportServiceOperatorsLeavesLocalStepsAlone(t *testing.T) {
	step, err := pipeline.NewStep(pipeline.KindMap, pipeline.StepInvocation{
		Uses: "local-fn",
		Inputs: []pipeline.Parameter{
			{Name: "value", Type: schema.TypeRef{Name: "string"}},
		},
		Output: &pipeline.StepOutput{Type: schema.TypeRef{Name: "u32"}},
	})
	require.NoError(t, err)

	svc := pipeline.Service{
		Name:       "local",
		Transforms: pipeline.Transforms{Steps: []pipeline.Step{step}},
	}

	require.NoError(t, ImportServiceOperators(&svc, nil, nil))
	assert.Nil(t, svc.Transforms.Steps[0].Invocation.Origin)
}

func TestImportServiceOperatorsRewritesWindowFlush(t *testing.T) {
	flush := Function{
		Kind: pipeline.KindWindowAggregate,
		Invocation: pipeline.StepInvocation{
			Uses:   "sum-window",
			Output: &pipeline.StepOutput{Type: schema.TypeRef{Name: "u32"}},
		},
	}
	pkg := functionPackage("agg", flush)
	imports := []Import{{
		Metadata:  pkg.Meta,
		Path:      "../agg",
		Functions: []FunctionImport{{Name: "sum-window"}},
	}}

	svc := pipeline.Service{
		Name: "windowed",
		PostTransforms: &pipeline.PostTransforms{
			Window: &pipeline.Window{
				Flush: &pipeline.StepInvocation{Uses: "sum-window"},
			},
		},
	}

	require.NoError(t, ImportServiceOperators(&svc, imports, []PackageDefinition{pkg}))

	resolved := svc.PostTransforms.Window.Flush
	require.NotNil(t, resolved.Output)
	assert.Equal(t, "u32", resolved.Output.Type.Name)
	assert.NotNil(t, resolved.Origin)
}

func TestImportServiceOperatorsKindMismatch(t *testing.T) {
	pkg := functionPackage("strings", mapFunction("to-length"))
	imports := []Import{{
		Metadata:  pkg.Meta,
		Path:      "../strings",
		Functions: []FunctionImport{{Name: "to-length"}},
	}}

	step, err := pipeline.NewStep(pipeline.KindFilter, pipeline.StepInvocation{Uses: "to-length"})
	require.NoError(t, err)

	svc := pipeline.Service{
		Name:       "broken",
		Transforms: pipeline.Transforms{Steps: []pipeline.Step{step}},
	}

	err = ImportServiceOperators(&svc, imports, []PackageDefinition{pkg})
	require.Error(t, err)
	assert.EqualError(t, err, "Imported function to-length is expected to be filter type operator but is map")
}
