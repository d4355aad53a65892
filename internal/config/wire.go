package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// versionProbe reads just enough of a document to pick the decoding path.
type versionProbe struct {
	APIVersion string `yaml:"apiVersion"`
}

type metaWire struct {
	Name      string `yaml:"name"`
	Version   string `yaml:"version"`
	Namespace string `yaml:"namespace"`
}

type dataflowWire struct {
	APIVersion string                 `yaml:"apiVersion"`
	Meta       metaWire               `yaml:"meta"`
	Imports    []importWire           `yaml:"imports"`
	Types      map[string]typeWire    `yaml:"types"`
	Topics     map[string]topicWire   `yaml:"topics"`
	Services   map[string]serviceWire `yaml:"services"`
	Schedule   map[string]struct {
		Cron string `yaml:"cron"`
	} `yaml:"schedule"`
	Config   *defaultsWire `yaml:"config"`
	Packages []packageWire `yaml:"packages"`
}

type packageWire struct {
	APIVersion string                  `yaml:"apiVersion"`
	Meta       metaWire                `yaml:"meta"`
	Imports    []importWire            `yaml:"imports"`
	Types      map[string]typeWire     `yaml:"types"`
	States     map[string]typeWire     `yaml:"states"`
	Functions  map[string]functionWire `yaml:"functions"`
}

type importWire struct {
	Pkg       string     `yaml:"pkg"`
	Path      string     `yaml:"path"`
	Types     []nameWire `yaml:"types"`
	States    []nameWire `yaml:"states"`
	Functions []struct {
		Name  string `yaml:"name"`
		Alias string `yaml:"alias"`
	} `yaml:"functions"`
}

type nameWire struct {
	Name string `yaml:"name"`
}

type defaultsWire struct {
	Converter *string `yaml:"converter"`
}

type topicWire struct {
	Name   string     `yaml:"name"`
	Schema schemaWire `yaml:"schema"`
}

type schemaWire struct {
	Key   *serdeWire `yaml:"key"`
	Value serdeWire  `yaml:"value"`
}

type serdeWire struct {
	Type      string  `yaml:"type"`
	Converter *string `yaml:"converter"`
}

type serviceWire struct {
	Sources    []ioRefWire          `yaml:"sources"`
	Sinks      []ioRefWire          `yaml:"sinks"`
	Transforms []operatorWire       `yaml:"transforms"`
	Window     *windowWire          `yaml:"window"`
	Partition  *partitionWire       `yaml:"partition"`
	States     map[string]yaml.Node `yaml:"states"`
}

type ioRefWire struct {
	Type       string         `yaml:"type"`
	ID         string         `yaml:"id"`
	Transforms []operatorWire `yaml:"transforms"`
}

// operatorWire is a transforms entry: the operator tag plus the invocation
// fields inline on the same mapping.
type operatorWire struct {
	Operator   string
	Invocation invocationWire
}

func (o *operatorWire) UnmarshalYAML(node *yaml.Node) error {
	var tag struct {
		Operator string `yaml:"operator"`
	}
	if err := node.Decode(&tag); err != nil {
		return err
	}
	if tag.Operator == "" {
		return fmt.Errorf("transforms entry is missing an operator")
	}
	o.Operator = tag.Operator
	return node.Decode(&o.Invocation)
}

// invocationWire covers both invocation forms: inline code (run) and a
// declared function signature (uses/inputs/output). When both appear, the
// inline code wins.
type invocationWire struct {
	Run    string      `yaml:"run"`
	Lang   string      `yaml:"lang"`
	Uses   string      `yaml:"uses"`
	States []nameWire  `yaml:"states"`
	Inputs []paramWire `yaml:"inputs"`
	Output *outputWire `yaml:"output"`
}

type paramWire struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Optional bool   `yaml:"optional"`
	Kind     string `yaml:"kind"`
}

type outputWire struct {
	Type     string `yaml:"type"`
	Optional bool   `yaml:"optional"`
}

type windowWire struct {
	Tumbling  *windowSpanWire `yaml:"tumbling"`
	Sliding   *windowSpanWire `yaml:"sliding"`
	Watermark struct {
		Idleness    string `yaml:"idleness"`
		GracePeriod string `yaml:"grace-period"`
	} `yaml:"watermark"`
	AssignTimestamp invocationWire  `yaml:"assign-timestamp"`
	Transforms      []operatorWire  `yaml:"transforms"`
	Partition       *partitionWire  `yaml:"partition"`
	Flush           *invocationWire `yaml:"flush"`
}

type windowSpanWire struct {
	Duration string `yaml:"duration"`
	Offset   string `yaml:"offset"`
	Slide    string `yaml:"slide"`
}

type partitionWire struct {
	AssignKey   invocationWire  `yaml:"assign-key"`
	Transforms  []operatorWire  `yaml:"transforms"`
	UpdateState *invocationWire `yaml:"update-state"`
}

type functionWire struct {
	Operator   string `yaml:"operator"`
	Invocation invocationWire
}

func (f *functionWire) UnmarshalYAML(node *yaml.Node) error {
	var tag struct {
		Operator string `yaml:"operator"`
	}
	if err := node.Decode(&tag); err != nil {
		return err
	}
	if tag.Operator == "" {
		return fmt.Errorf("function is missing an operator")
	}
	f.Operator = tag.Operator
	return node.Decode(&f.Invocation)
}

// stateWire distinguishes the three state declaration forms by which keys
// the mapping carries: a reference (from), a system state (system), or a
// typed state (an inline type).
type stateWire struct {
	From   string
	System string
	Typed  *typeWire
}

func (s *stateWire) decode(node *yaml.Node) error {
	var probe struct {
		From   string `yaml:"from"`
		System string `yaml:"system"`
	}
	if err := node.Decode(&probe); err != nil {
		return err
	}
	switch {
	case probe.From != "":
		s.From = probe.From
	case probe.System != "":
		s.System = probe.System
	default:
		var ty typeWire
		if err := node.Decode(&ty); err != nil {
			return err
		}
		s.Typed = &ty
	}
	return nil
}

// typeWire is a type declaration: the "type" discriminator plus whichever
// payload the shape carries. Nested types appear only by reference, so the
// payload positions hold plain references rather than full declarations.
type typeWire struct {
	Type       string              `yaml:"type"`
	TypeName   string              `yaml:"type-name"`
	Properties yaml.Node           `yaml:"properties"`
	Items      *typeRefWire        `yaml:"items"`
	Item       *typeRefWire        `yaml:"item"`
	Value      *typeRefWire        `yaml:"value"`
	OneOf      map[string]typeWire `yaml:"oneOf"`
	Tagging    string              `yaml:"tagging"`
}

// typeRefWire is a by-name reference in a nested position.
type typeRefWire struct {
	Type string `yaml:"type"`
}

type objectFieldWire struct {
	Type     string `yaml:"type"`
	Optional bool   `yaml:"optional"`
}

type kvPropsWire struct {
	Key   typeRefWire `yaml:"key"`
	Value typeWire    `yaml:"value"`
}
