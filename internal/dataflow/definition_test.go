package dataflow

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sluice/internal/pipeline"
	"github.com/roach88/sluice/internal/pkgdef"
	"github.com/roach88/sluice/internal/schema"
)

func dataflowMeta() pkgdef.Header {
	return pkgdef.Header{Namespace: "example", Name: "word-counter", Version: "0.1.0"}
}

func mapStep(t *testing.T, uses, in, out string) pipeline.Step {
	t.Helper()
	step, err := pipeline.NewStep(pipeline.KindMap, pipeline.StepInvocation{
		Uses: uses,
		Inputs: []pipeline.Parameter{
			{Name: "value", Type: schema.TypeRef{Name: in}},
		},
		Output: &pipeline.StepOutput{Type: schema.TypeRef{Name: out}},
	})
	require.NoError(t, err)
	return step
}

func readerService(t *testing.T, name, uses string) pipeline.Service {
	t.Helper()
	return pipeline.Service{
		Name:    name,
		Sources: []pipeline.IoRef{{ID: "events", Type: pipeline.IoTopic}},
		Transforms: pipeline.Transforms{
			Steps: []pipeline.Step{mapStep(t, uses, "u8", "string")},
		},
		Sinks: []pipeline.IoRef{{ID: "words", Type: pipeline.IoTopic}},
	}
}

func validDefinition(t *testing.T) Definition {
	t.Helper()
	return Definition{
		APIVersion: StableVersion,
		Meta:       dataflowMeta(),
		Topics: []Topic{
			validTopic("events", "u8"),
			validTopic("words", "string"),
		},
		Services: []pipeline.Service{readerService(t, "reader", "to-text")},
	}
}

// ==== validation ====

func TestDefinitionValidatePasses(t *testing.T) {
	df := validDefinition(t)
	assert.Nil(t, df.Validate())
}

func TestDefinitionValidateRendersCollectedFailures(t *testing.T) {
	df := Definition{
		APIVersion: "0.7.0",
		Services: []pipeline.Service{
			func() pipeline.Service {
				svc := readerService(t, "reader", "to-text")
				svc.States = []pipeline.State{{
					Reference: &pipeline.StateRef{Name: "counts", Service: "other"},
				}}
				return svc
			}(),
		},
		Topics: []Topic{
			validTopic("events", "u8"),
			validTopic("words", "string"),
		},
	}

	failure := df.Validate()
	require.NotNil(t, failure)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "collected_failures", []byte(failure.Error()))
}

func TestDefinitionValidateReportsInvalidTopic(t *testing.T) {
	df := validDefinition(t)
	df.Topics = append(df.Topics, Topic{
		Name: "Broken",
		Schema: TopicSchema{
			Value: SchemaSerDe{Type: schema.TypeRef{Name: "u8"}, Converter: jsonConverter()},
		},
	})

	failure := df.Validate()
	require.NotNil(t, failure)
	assert.Contains(t, failure.Error(), "Topic `Broken` is invalid:")
	assert.Contains(t, failure.Error(), "Name may only contain lowercase alphanumeric characters or '-'")
}

func TestDefinitionValidateReportsServiceFailure(t *testing.T) {
	df := validDefinition(t)
	df.Services[0].Sources = nil

	failure := df.Validate()
	require.NotNil(t, failure)
	assert.Contains(t, failure.Error(), "Service `reader` is invalid:")
	assert.Contains(t, failure.Error(), "Service must have at least one source")
}

// ==== version gate ====

func TestVersionGateAcceptsBothSupportedVersions(t *testing.T) {
	for _, v := range []string{"0.5.0", "0.6.0"} {
		df := validDefinition(t)
		df.APIVersion = v
		assert.Nil(t, df.Validate(), v)
	}
}

func TestVersionGateSchedulesNeedV6(t *testing.T) {
	df := validDefinition(t)
	df.APIVersion = "0.5.0"
	df.Schedules = []ScheduleConfig{{Name: "hourly", Cron: "0 * * * *"}}

	failure := df.Validate()
	require.NotNil(t, failure)
	assert.Contains(t, failure.Error(),
		"Version 0.5.0 does not support configuration: schedule, supported version: 0.6.0")
}

func TestVersionGateRejectsUnparsableVersion(t *testing.T) {
	df := validDefinition(t)
	df.APIVersion = "not-a-version"

	failure := df.Validate()
	require.NotNil(t, failure)
	assert.Contains(t, failure.Error(),
		"Failed to parse version: invalid semantic version `not-a-version`")
}

// ==== state references ====

func TestValidateStatesAcceptsResolvableReference(t *testing.T) {
	df := validDefinition(t)

	owner := readerService(t, "owner", "count-text")
	owner.States = []pipeline.State{{
		Typed: &pipeline.TypedState{
			Name: "counts",
			Type: schema.KeyedState{
				Key:   schema.TypeRef{Name: "string"},
				Value: schema.KeyedStateValue{Kind: schema.StateValueU32},
			},
		},
	}}
	df.Services = append(df.Services, owner)
	df.Services[0].States = []pipeline.State{{
		Reference: &pipeline.StateRef{Name: "counts", Service: "owner"},
	}}

	assert.Nil(t, df.Validate())
}

func TestValidateStatesReportsOnlyFirstDanglingReference(t *testing.T) {
	df := validDefinition(t)
	df.Services[0].States = []pipeline.State{
		{Reference: &pipeline.StateRef{Name: "first", Service: "ghost"}},
		{Reference: &pipeline.StateRef{Name: "second", Service: "ghost"}},
	}

	failure := df.Validate()
	require.NotNil(t, failure)
	assert.Contains(t, failure.Error(), "State with name ghost.first is referenced")
	assert.NotContains(t, failure.Error(), "ghost.second")
}

// ==== duplicate operators ====

func TestDuplicateOperatorNamesAcrossServices(t *testing.T) {
	df := validDefinition(t)
	df.Services = append(df.Services, readerService(t, "echo", "to-text"))

	failure := df.Validate()
	require.NotNil(t, failure)
	assert.Contains(t, failure.Error(),
		"Duplicate inline operator with name: to-text was found, inline operators must have unique names")
}

func TestDuplicateOperatorNamesSkipImportedFunctions(t *testing.T) {
	df := validDefinition(t)
	df.Services = append(df.Services, readerService(t, "echo", "to-text"))
	df.Imports = []pkgdef.Import{{
		Metadata:  pkgdef.Header{Namespace: "example", Name: "text", Version: "0.1.0"},
		Functions: []pkgdef.FunctionImport{{Name: "to-text"}},
	}}

	assert.Nil(t, df.Validate())
}

// ==== operator editing ====

func TestAddInlineOperatorRequiresCode(t *testing.T) {
	df := validDefinition(t)

	err := df.AddInlineOperator(
		pipeline.StepInvocation{Uses: "no-code"},
		pipeline.KindMap,
		OperatorPlacement{ServiceID: "reader"},
	)
	require.Error(t, err)
	assert.EqualError(t, err, "inline operator must have code")
}

func TestAddInlineOperatorUnknownService(t *testing.T) {
	df := validDefinition(t)

	err := df.AddInlineOperator(
		pipeline.StepInvocation{
			Uses: "with-code",
			Code: pipeline.CodeInfo{Lang: "go", Code: "func withCode(v string) (string, error) { return v, nil }"},
		},
		pipeline.KindMap,
		OperatorPlacement{ServiceID: "ghost"},
	)
	require.Error(t, err)
	assert.EqualError(t, err, "Service with id ghost not found")
}

func TestAddInlineOperatorInsertsIntoTransforms(t *testing.T) {
	df := validDefinition(t)

	index := 1
	err := df.AddInlineOperator(
		pipeline.StepInvocation{
			Uses: "shout",
			Inputs: []pipeline.Parameter{
				{Name: "value", Type: schema.TypeRef{Name: "string"}},
			},
			Output: &pipeline.StepOutput{Type: schema.TypeRef{Name: "string"}},
			Code:   pipeline.CodeInfo{Lang: "go", Code: "func shout(v string) (string, error) { return v, nil }"},
		},
		pipeline.KindMap,
		OperatorPlacement{ServiceID: "reader", Placement: pipeline.Placement{TransformsIndex: &index}},
	)
	require.NoError(t, err)

	steps := df.Services[0].Transforms.Steps
	require.Len(t, steps, 2)
	assert.Equal(t, "shout", steps[1].Name())
}

func TestReplaceInlineOperator(t *testing.T) {
	df := validDefinition(t)

	index := 0
	err := df.ReplaceInlineOperator(
		pipeline.StepInvocation{
			Uses: "to-text-v2",
			Inputs: []pipeline.Parameter{
				{Name: "value", Type: schema.TypeRef{Name: "u8"}},
			},
			Output: &pipeline.StepOutput{Type: schema.TypeRef{Name: "string"}},
			Code:   pipeline.CodeInfo{Lang: "go", Code: "func toTextV2(v uint8) (string, error) { return \"\", nil }"},
		},
		pipeline.KindMap,
		OperatorPlacement{ServiceID: "reader", Placement: pipeline.Placement{TransformsIndex: &index}},
	)
	require.NoError(t, err)

	steps := df.Services[0].Transforms.Steps
	require.Len(t, steps, 1)
	assert.Equal(t, "to-text-v2", steps[0].Name())
}

// ==== registry and imports ====

func TestTypesRegistryIncludesTypedServiceStates(t *testing.T) {
	df := validDefinition(t)
	df.Services[0].States = []pipeline.State{{
		Typed: &pipeline.TypedState{
			Name: "counts",
			Type: schema.KeyedState{
				Key:   schema.TypeRef{Name: "string"},
				Value: schema.KeyedStateValue{Kind: schema.StateValueU32},
			},
		},
	}}

	entry, ok := df.TypesRegistry().Lookup("counts")
	require.True(t, ok)
	assert.Equal(t, schema.KindKeyedState, entry.Type.Kind)
}

func TestResolveImportsRewritesServiceOperators(t *testing.T) {
	pkg := pkgdef.PackageDefinition{
		APIVersion: StableVersion,
		Meta:       pkgdef.Header{Namespace: "example", Name: "text", Version: "0.1.0"},
		Types: []schema.Entry{
			{Name: "word", Type: schema.Scalar(schema.KindString)},
		},
		Functions: []pkgdef.Function{{
			Kind: pipeline.KindMap,
			Invocation: pipeline.StepInvocation{
				Uses: "to-text",
				Inputs: []pipeline.Parameter{
					{Name: "value", Type: schema.TypeRef{Name: "u8"}},
				},
				Output: &pipeline.StepOutput{Type: schema.TypeRef{Name: "word"}},
			},
		}},
	}

	df := Definition{
		APIVersion: StableVersion,
		Meta:       dataflowMeta(),
		Imports: []pkgdef.Import{{
			Metadata:  pkg.Meta,
			Path:      "../text",
			Types:     []string{"word"},
			Functions: []pkgdef.FunctionImport{{Name: "to-text"}},
		}},
		Topics: []Topic{
			validTopic("events", "u8"),
			validTopic("words", "word"),
		},
		Services: []pipeline.Service{{
			Name:    "reader",
			Sources: []pipeline.IoRef{{ID: "events", Type: pipeline.IoTopic}},
			Transforms: pipeline.Transforms{Steps: []pipeline.Step{
				func() pipeline.Step {
					step, err := pipeline.NewStep(pipeline.KindMap,
						pipeline.StepInvocation{Uses: "to-text"})
					require.NoError(t, err)
					return step
				}(),
			}},
			Sinks: []pipeline.IoRef{{ID: "words", Type: pipeline.IoTopic}},
		}},
		Packages: []pkgdef.PackageDefinition{pkg},
	}

	require.NoError(t, df.ResolveImports())

	// the imported type is merged and the operator carries its signature
	_, ok := df.TypesRegistry().Lookup("word")
	assert.True(t, ok)
	resolved := df.Services[0].Transforms.Steps[0].Invocation
	require.NotNil(t, resolved.Output)
	assert.Equal(t, "word", resolved.Output.Type.Name)

	assert.Nil(t, df.Validate())
}

func TestMergePackageImportFoldsMatchingDeclaration(t *testing.T) {
	df := validDefinition(t)
	meta := pkgdef.Header{Namespace: "example", Name: "text", Version: "0.1.0"}

	df.MergePackageImport(pkgdef.Import{Metadata: meta, Types: []string{"word"}})
	df.MergePackageImport(pkgdef.Import{Metadata: meta, Types: []string{"sentence"}})

	require.Len(t, df.Imports, 1)
	assert.Equal(t, []string{"sentence", "word"}, df.Imports[0].Types)
}
