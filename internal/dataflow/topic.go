package dataflow

import (
	"fmt"
	"strings"

	"github.com/roach88/sluice/internal/diag"
	"github.com/roach88/sluice/internal/schema"
)

// Converter selects the record serialization format of a topic.
type Converter string

const (
	ConverterJSON Converter = "json"
	ConverterRaw  Converter = "raw"
)

// SchemaSerDe is one side of a topic schema: a type reference plus how
// records of it are serialized on the wire.
type SchemaSerDe struct {
	Type      schema.TypeRef `json:"type" yaml:"type"`
	Converter *Converter     `json:"converter,omitempty" yaml:"converter,omitempty"`
}

// TopicSchema is the declared key/value shape of a topic.
type TopicSchema struct {
	Key   *SchemaSerDe `json:"key,omitempty" yaml:"key,omitempty"`
	Value SchemaSerDe  `json:"value" yaml:"value"`
}

// Topic is a named stream endpoint services read from and write to.
type Topic struct {
	Name   string      `json:"name" yaml:"name"`
	Schema TopicSchema `json:"schema" yaml:"schema"`
}

// Type returns the key/value pair the topic carries.
func (t *Topic) Type() schema.KVSchema {
	out := schema.KVSchema{Value: t.Schema.Value.Type}
	if t.Schema.Key != nil {
		key := t.Schema.Key.Type
		out.Key = &key
	}
	return out
}

const maxTopicNameLen = 63

// ValidateTopicName checks a topic name against the naming rules: non-empty,
// at most 63 characters, lowercase alphanumerics and dashes, and no dash at
// either end.
func ValidateTopicName(name string) diag.Violations {
	var errs diag.Violations

	if name == "" {
		errs = diag.Merge(errs, diag.New("Name cannot be empty"))
	}
	if len(name) > maxTopicNameLen {
		errs = diag.Merge(errs, diag.New(fmt.Sprintf(
			"Name is too long, Topic names may only have %d characters", maxTopicNameLen)))
	}
	for _, ch := range name {
		if (ch < 'a' || ch > 'z') && (ch < '0' || ch > '9') && ch != '-' {
			errs = diag.Merge(errs, diag.New(
				"Name may only contain lowercase alphanumeric characters or '-'"))
			break
		}
	}
	if strings.HasPrefix(name, "-") || strings.HasSuffix(name, "-") {
		errs = diag.Merge(errs, diag.New("Name cannot start or end with a dash"))
	}
	return errs
}

// TopicFailure is every problem found on one topic declaration.
type TopicFailure struct {
	Name   string
	Errors []diag.Renderer
}

// Readable renders the topic header with each problem one level deeper.
func (f *TopicFailure) Readable(indents int) string {
	var sb strings.Builder
	sb.WriteString(strings.Repeat(diag.Indent, indents))
	sb.WriteString(fmt.Sprintf("Topic `%s` is invalid:\n", f.Name))
	for _, err := range f.Errors {
		sb.WriteString(err.Readable(indents + 1))
	}
	return sb.String()
}

// topicNameFailure wraps the naming-rule problems under their own header.
type topicNameFailure struct {
	errs diag.Violations
}

func (e topicNameFailure) Readable(indents int) string {
	prefix := strings.Repeat(diag.Indent, indents)
	return prefix + "Topic name is invalid:\n" + e.errs.Readable(indents+1)
}

// Validate checks the topic name, both schema type references, and the
// converter requirement. A nil return means the topic is valid.
func (t *Topic) Validate(reg *schema.Registry) *TopicFailure {
	var errors []diag.Renderer

	if nameErrs := ValidateTopicName(t.Name); nameErrs.Any() {
		errors = append(errors, topicNameFailure{errs: nameErrs})
	}

	if t.Schema.Key != nil && !reg.ContainsKey(t.Schema.Key.Type.Name) {
		errors = append(errors, diag.New(fmt.Sprintf(
			"Referenced key type `%s` not found in config or imported types",
			t.Schema.Key.Type.Name)))
	}

	if !reg.ContainsKey(t.Schema.Value.Type.Name) {
		errors = append(errors, diag.New(fmt.Sprintf(
			"Referenced type `%s` not found in config or imported types",
			t.Schema.Value.Type.Name)))
	}

	if t.Schema.Value.Converter == nil {
		errors = append(errors, diag.New(
			`Topic needs to have a "converter" specified for serializing/deserializing records`))
	}

	if len(errors) == 0 {
		return nil
	}
	return &TopicFailure{Name: t.Name, Errors: errors}
}
