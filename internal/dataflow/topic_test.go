package dataflow

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sluice/internal/schema"
)

func jsonConverter() *Converter {
	c := ConverterJSON
	return &c
}

func validTopic(name, valueType string) Topic {
	return Topic{
		Name: name,
		Schema: TopicSchema{
			Value: SchemaSerDe{
				Type:      schema.TypeRef{Name: valueType},
				Converter: jsonConverter(),
			},
		},
	}
}

// ==== naming rules ====

func TestValidateTopicNameRejectsLongName(t *testing.T) {
	errs := ValidateTopicName(strings.Repeat("a", 64))

	require.Len(t, errs, 1)
	assert.Equal(t, "Name is too long, Topic names may only have 63 characters", errs[0].Message)
}

func TestValidateTopicNameRejectsNonAlphanumeric(t *testing.T) {
	errs := ValidateTopicName("invalid-to&pic-name")

	require.Len(t, errs, 1)
	assert.Equal(t, "Name may only contain lowercase alphanumeric characters or '-'", errs[0].Message)
}

func TestValidateTopicNameRejectsUpperCase(t *testing.T) {
	errs := ValidateTopicName("MyTopic")
	require.Len(t, errs, 1)
	assert.Equal(t, "Name may only contain lowercase alphanumeric characters or '-'", errs[0].Message)
}

func TestValidateTopicNameRejectsEdgeDashes(t *testing.T) {
	for _, name := range []string{"-leading", "trailing-"} {
		errs := ValidateTopicName(name)
		require.Len(t, errs, 1, name)
		assert.Equal(t, "Name cannot start or end with a dash", errs[0].Message)
	}
}

func TestValidateTopicNameRejectsEmpty(t *testing.T) {
	errs := ValidateTopicName("")
	require.Len(t, errs, 1)
	assert.Equal(t, "Name cannot be empty", errs[0].Message)
}

func TestValidateTopicNameAccepts(t *testing.T) {
	assert.False(t, ValidateTopicName("sensor-events-2").Any())
}

// ==== topic validation ====

func TestTopicValidatePasses(t *testing.T) {
	topic := validTopic("events", "u8")
	assert.Nil(t, topic.Validate(schema.NewRegistry()))
}

func TestTopicValidateRendersEveryProblem(t *testing.T) {
	topic := Topic{
		Name: "Bad&Topic",
		Schema: TopicSchema{
			Key:   &SchemaSerDe{Type: schema.TypeRef{Name: "missing-key"}},
			Value: SchemaSerDe{Type: schema.TypeRef{Name: "missing-value"}},
		},
	}

	failure := topic.Validate(schema.NewRegistry())
	require.NotNil(t, failure)

	expected := "Topic `Bad&Topic` is invalid:\n" +
		"    Topic name is invalid:\n" +
		"        Name may only contain lowercase alphanumeric characters or '-'\n" +
		"    Referenced key type `missing-key` not found in config or imported types\n" +
		"    Referenced type `missing-value` not found in config or imported types\n" +
		"    Topic needs to have a \"converter\" specified for serializing/deserializing records\n"
	assert.Equal(t, expected, failure.Readable(0))
}

func TestTopicValidateAcceptsDeclaredTypes(t *testing.T) {
	reg := schema.NewRegistry()
	reg.InsertLocal("sensor-reading", schema.Scalar(schema.KindF64))

	topic := validTopic("readings", "sensor-reading")
	assert.Nil(t, topic.Validate(reg))
}

func TestTopicTypeIncludesKey(t *testing.T) {
	topic := Topic{
		Name: "keyed",
		Schema: TopicSchema{
			Key:   &SchemaSerDe{Type: schema.TypeRef{Name: "string"}},
			Value: SchemaSerDe{Type: schema.TypeRef{Name: "u8"}, Converter: jsonConverter()},
		},
	}

	ty := topic.Type()
	require.NotNil(t, ty.Key)
	assert.Equal(t, "string", ty.Key.Name)
	assert.Equal(t, "u8", ty.Value.Name)
}
