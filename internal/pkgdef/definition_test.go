package pkgdef

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sluice/internal/pipeline"
	"github.com/roach88/sluice/internal/schema"
)

func bankMeta() Header {
	return Header{Namespace: "example", Name: "bank", Version: "0.1.0"}
}

func bankPackage() PackageDefinition {
	return PackageDefinition{
		APIVersion: "0.6.0",
		Meta:       bankMeta(),
		Types: []schema.Entry{
			{Name: "bank-event", Type: schema.Type{
				Kind: schema.KindObject,
				Object: &schema.Object{Fields: []schema.ObjectField{
					{Name: "amount", Type: schema.TypeRef{Name: "u32"}},
				}},
			}},
			{Name: "balance", Type: schema.Scalar(schema.KindU32)},
		},
		States: []pipeline.TypedState{{
			Name: "account-balance",
			Type: schema.KeyedState{
				Key: schema.TypeRef{Name: "string"},
				Value: schema.KeyedStateValue{
					Kind:       schema.StateValueUnresolved,
					Unresolved: &schema.TypeRef{Name: "balance"},
				},
			},
		}},
		Functions: []Function{{
			Kind: pipeline.KindFilter,
			Invocation: pipeline.StepInvocation{
				Uses: "filter-large",
				Inputs: []pipeline.Parameter{
					{Name: "event", Type: schema.TypeRef{Name: "bank-event"}},
				},
				Output: &pipeline.StepOutput{Type: schema.TypeRef{Name: "bool"}},
			},
		}},
	}
}

// ==== validation ====

func TestPackageValidatePasses(t *testing.T) {
	pkg := bankPackage()
	require.NoError(t, pkg.MergeDependencies(nil))
	assert.Nil(t, pkg.Validate())
}

func TestPackageValidateRendersEveryFailure(t *testing.T) {
	pkg := PackageDefinition{
		APIVersion: "0.6.0",
		Types: []schema.Entry{
			{Name: "evt", Type: schema.Type{
				Kind: schema.KindObject,
				Object: &schema.Object{Fields: []schema.ObjectField{
					{Name: "payload", Type: schema.TypeRef{Name: "missing"}},
				}},
			}},
		},
		Functions: []Function{{
			Kind: pipeline.KindFilter,
			Invocation: pipeline.StepInvocation{
				Uses: "keep",
				Inputs: []pipeline.Parameter{
					{Name: "event", Type: schema.TypeRef{Name: "evt"}},
				},
				Output: &pipeline.StepOutput{Type: schema.TypeRef{Name: "u32"}},
			},
		}},
	}

	failure := pkg.Validate()
	require.NotNil(t, failure)

	expected := "Package Config failed validation\n" +
		"\n" +
		"    Header is invalid:\n" +
		"        Name cannot be empty\n" +
		"        Namespace cannot be empty\n" +
		"        Version cannot be empty\n" +
		"\n" +
		"    Defined type `evt` is invalid:\n" +
		"        Referenced type `missing` not found in config or imported types\n" +
		"\n" +
		"    filter type function `keep` requires an output type of `bool`, but found `u32`\n" +
		"\n"
	assert.Equal(t, expected, failure.Error())
}

func TestPackageValidateReportsUnresolvedState(t *testing.T) {
	pkg := bankPackage()

	failure := pkg.Validate()
	require.NotNil(t, failure)

	expected := "Package Config failed validation\n" +
		"\n" +
		"    State is invalid:\n" +
		"        Internal Error: typed state value should be resolved before validation. Please contact support\n" +
		"\n"
	assert.Equal(t, expected, failure.Error())
}

// ==== dependency merge ====

func TestMergeDependenciesResolvesOwnStates(t *testing.T) {
	pkg := bankPackage()

	require.NoError(t, pkg.MergeDependencies(nil))

	require.Len(t, pkg.States, 1)
	assert.Equal(t, schema.StateValueU32, pkg.States[0].Type.Value.Kind)
}

func TestMergeDependenciesPullsImportedTypeTree(t *testing.T) {
	dep := bankPackage()
	require.NoError(t, dep.MergeDependencies(nil))

	pkg := PackageDefinition{
		APIVersion: "0.6.0",
		Meta:       Header{Namespace: "example", Name: "reports", Version: "0.1.0"},
		Imports: []Import{{
			Metadata: bankMeta(),
			Path:     "../bank",
			Types:    []string{"bank-event"},
		}},
	}

	require.NoError(t, pkg.MergeDependencies([]PackageDefinition{dep}))

	reg := pkg.TypesRegistry()
	entry, ok := reg.Lookup("bank-event")
	require.True(t, ok)
	assert.Equal(t, schema.OriginImported, entry.Origin)
}

func TestMergeDependenciesImportedStateBringsTypeAndState(t *testing.T) {
	dep := bankPackage()
	require.NoError(t, dep.MergeDependencies(nil))

	pkg := PackageDefinition{
		APIVersion: "0.6.0",
		Meta:       Header{Namespace: "example", Name: "reports", Version: "0.1.0"},
		Imports: []Import{{
			Metadata: bankMeta(),
			Path:     "../bank",
			States:   []string{"account-balance"},
		}},
		Functions: []Function{{
			Kind: pipeline.KindUpdateState,
			Invocation: pipeline.StepInvocation{
				Uses: "count-events",
				Inputs: []pipeline.Parameter{
					{Name: "event", Type: schema.TypeRef{Name: "string"}},
				},
				States: []pipeline.StepState{{Name: "account-balance"}},
			},
		}},
	}

	require.NoError(t, pkg.MergeDependencies([]PackageDefinition{dep}))

	require.Len(t, pkg.States, 1)
	assert.Equal(t, "account-balance", pkg.States[0].Name)
	assert.Equal(t, schema.StateValueU32, pkg.States[0].Type.Value.Kind)

	// function state deps get bound to the merged states
	require.NotNil(t, pkg.Functions[0].Invocation.States[0].Value)
	assert.Equal(t, "account-balance", pkg.Functions[0].Invocation.States[0].Value.Name)
}

func TestMergeDependenciesDetectsConflictingType(t *testing.T) {
	dep := bankPackage()
	require.NoError(t, dep.MergeDependencies(nil))

	pkg := PackageDefinition{
		APIVersion: "0.6.0",
		Meta:       Header{Namespace: "example", Name: "reports", Version: "0.1.0"},
		Types: []schema.Entry{
			{Name: "bank-event", Type: schema.Scalar(schema.KindString)},
		},
		Imports: []Import{{
			Metadata: bankMeta(),
			Path:     "../bank",
			Types:    []string{"bank-event"},
		}},
	}

	err := pkg.MergeDependencies([]PackageDefinition{dep})
	require.Error(t, err)
	assert.EqualError(t, err, "imported type bank-event from bank conflicts with existing type")
}

func TestMergeDependenciesIdenticalRedefinitionIsNoOp(t *testing.T) {
	dep := bankPackage()
	require.NoError(t, dep.MergeDependencies(nil))

	pkg := PackageDefinition{
		APIVersion: "0.6.0",
		Meta:       Header{Namespace: "example", Name: "reports", Version: "0.1.0"},
		Types: []schema.Entry{
			{Name: "balance", Type: schema.Scalar(schema.KindU32)},
		},
		Imports: []Import{{
			Metadata: bankMeta(),
			Path:     "../bank",
			Types:    []string{"balance"},
		}},
	}

	require.NoError(t, pkg.MergeDependencies([]PackageDefinition{dep}))
}

func TestMergeDependenciesUnknownStateFails(t *testing.T) {
	dep := bankPackage()
	require.NoError(t, dep.MergeDependencies(nil))

	pkg := PackageDefinition{
		APIVersion: "0.6.0",
		Meta:       Header{Namespace: "example", Name: "reports", Version: "0.1.0"},
		Imports: []Import{{
			Metadata: bankMeta(),
			Path:     "../bank",
			States:   []string{"no-such-state"},
		}},
	}

	err := pkg.MergeDependencies([]PackageDefinition{dep})
	require.Error(t, err)
	assert.EqualError(t, err, "state no-such-state not found in imported package bank")
}
