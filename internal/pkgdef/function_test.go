package pkgdef

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sluice/internal/pipeline"
	"github.com/roach88/sluice/internal/schema"
)

func mapFunction(uses string) Function {
	return Function{
		Kind: pipeline.KindMap,
		Invocation: pipeline.StepInvocation{
			Uses: uses,
			Inputs: []pipeline.Parameter{
				{Name: "value", Type: schema.TypeRef{Name: "string"}},
			},
			Output: &pipeline.StepOutput{Type: schema.TypeRef{Name: "u32"}},
		},
	}
}

func functionPackage(name string, fns ...Function) PackageDefinition {
	return PackageDefinition{
		APIVersion: "0.6.0",
		Meta:       Header{Namespace: "example", Name: name, Version: "0.1.0"},
		Functions:  fns,
	}
}

// ==== lookup ====

func TestFindImportedFunctionByName(t *testing.T) {
	pkg := functionPackage("strings", mapFunction("to-length"))
	imports := []Import{{
		Metadata:  pkg.Meta,
		Path:      "../strings",
		Functions: []FunctionImport{{Name: "to-length"}},
	}}

	fn, err := FindImportedFunction("to-length", imports, []PackageDefinition{pkg})
	require.NoError(t, err)

	assert.Equal(t, pipeline.KindMap, fn.Kind)
	require.NotNil(t, fn.Invocation.Origin)
	assert.Equal(t, "to-length", fn.Invocation.Origin.OriginalName)
	assert.Equal(t, "../strings", fn.Invocation.Origin.PackagePath)
	assert.Equal(t, "strings", fn.Invocation.Origin.PackageName)
}

func TestFindImportedFunctionFollowsReExport(t *testing.T) {
	inner := functionPackage("inner", mapFunction("to-length"))
	outer := functionPackage("outer")
	outer.Imports = []Import{{
		Metadata:  inner.Meta,
		Path:      "../inner",
		Functions: []FunctionImport{{Name: "to-length"}},
	}}

	imports := []Import{{
		Metadata:  outer.Meta,
		Path:      "../outer",
		Functions: []FunctionImport{{Name: "to-length"}},
	}}

	fn, err := FindImportedFunction("to-length", imports, []PackageDefinition{inner, outer})
	require.NoError(t, err)

	require.NotNil(t, fn.Invocation.Origin)
	assert.Equal(t, "../inner", fn.Invocation.Origin.PackagePath)
	assert.Equal(t, "inner", fn.Invocation.Origin.PackageName)
}

func TestFindImportedFunctionAliasResolvesToOriginal(t *testing.T) {
	pkg := functionPackage("strings", mapFunction("to-length"))
	imports := []Import{{
		Metadata:  pkg.Meta,
		Path:      "../strings",
		Functions: []FunctionImport{{Name: "to-length", Alias: strptr("measure")}},
	}}

	fn, err := FindImportedFunction("measure", imports, []PackageDefinition{pkg})
	require.NoError(t, err)
	assert.Equal(t, "to-length", fn.Invocation.Origin.OriginalName)
}

func TestFindImportedFunctionNotDeclared(t *testing.T) {
	_, err := FindImportedFunction("nothing", nil, nil)
	require.Error(t, err)
	assert.EqualError(t, err, "Function nothing not found in imports")
}

func TestFindImportedFunctionMissingPackage(t *testing.T) {
	imports := []Import{{
		Metadata:  Header{Namespace: "example", Name: "ghost", Version: "0.1.0"},
		Path:      "../ghost",
		Functions: []FunctionImport{{Name: "to-length"}},
	}}

	_, err := FindImportedFunction("to-length", imports, nil)
	require.Error(t, err)
	assert.EqualError(t, err, "Package example/ghost:0.1.0 not found in packages")
}

func TestFindImportedFunctionRequiresPath(t *testing.T) {
	imports := []Import{{
		Metadata:  Header{Namespace: "example", Name: "strings", Version: "0.1.0"},
		Functions: []FunctionImport{{Name: "to-length"}},
	}}

	_, err := FindImportedFunction("to-length", imports, nil)
	require.Error(t, err)
	assert.EqualError(t, err, "Import must have path when resolving functions")
}

func TestFindImportedFunctionDetectsCycle(t *testing.T) {
	// a re-exports the function from b, which re-exports it from a
	a := functionPackage("a")
	b := functionPackage("b")
	a.Imports = []Import{{
		Metadata:  b.Meta,
		Path:      "../b",
		Functions: []FunctionImport{{Name: "to-length"}},
	}}
	b.Imports = []Import{{
		Metadata:  a.Meta,
		Path:      "../a",
		Functions: []FunctionImport{{Name: "to-length"}},
	}}

	_, err := FindImportedFunction("to-length", a.Imports, []PackageDefinition{a, b})
	require.Error(t, err)
	assert.EqualError(t, err, "circular import detected resolving function to-length in package example/b@0.1.0")
}

// ==== invocation rewrite ====

func TestImportedInvocationConfigOverwritesSignature(t *testing.T) {
	pkg := functionPackage("strings", mapFunction("to-length"))
	imports := []Import{{
		Metadata:  pkg.Meta,
		Path:      "../strings",
		Functions: []FunctionImport{{Name: "to-length"}},
	}}

	inv := pipeline.StepInvocation{Uses: "to-length"}
	resolved, err := ImportedInvocationConfig(inv, pipeline.KindMap, imports, []PackageDefinition{pkg})
	require.NoError(t, err)

	assert.Equal(t, "to-length", resolved.Uses)
	require.Len(t, resolved.Inputs, 1)
	assert.Equal(t, "string", resolved.Inputs[0].Type.Name)
	require.NotNil(t, resolved.Output)
	assert.Equal(t, "u32", resolved.Output.Type.Name)
	assert.Equal(t, pipeline.PhaseResolved, resolved.Phase)
}

func TestImportedInvocationConfigKindMismatch(t *testing.T) {
	pkg := functionPackage("strings", mapFunction("to-length"))
	imports := []Import{{
		Metadata:  pkg.Meta,
		Path:      "../strings",
		Functions: []FunctionImport{{Name: "to-length"}},
	}}

	inv := pipeline.StepInvocation{Uses: "to-length"}
	_, err := ImportedInvocationConfig(inv, pipeline.KindFilter, imports, []PackageDefinition{pkg})
	require.Error(t, err)
	assert.EqualError(t, err, "Imported function to-length is expected to be filter type operator but is map")
}

func TestImportedInvocationConfigKeepsAlias(t *testing.T) {
	pkg := functionPackage("strings", mapFunction("to-length"))
	imports := []Import{{
		Metadata:  pkg.Meta,
		Path:      "../strings",
		Functions: []FunctionImport{{Name: "to-length", Alias: strptr("measure")}},
	}}

	inv := pipeline.StepInvocation{Uses: "measure"}
	resolved, err := ImportedInvocationConfig(inv, pipeline.KindMap, imports, []PackageDefinition{pkg})
	require.NoError(t, err)

	assert.Equal(t, "measure", resolved.Uses)
	assert.Equal(t, "to-length", resolved.Origin.OriginalName)
}
