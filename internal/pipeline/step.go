package pipeline

import (
	"github.com/roach88/sluice/internal/schema"
)

// ParameterKind distinguishes the key parameter from value parameters. A
// keyed function declares its key as the first input.
type ParameterKind int

const (
	ParamValue ParameterKind = iota
	ParamKey
)

func (k ParameterKind) String() string {
	if k == ParamKey {
		return "key"
	}
	return "value"
}

// Parameter is a named function input.
type Parameter struct {
	Name     string         `json:"name"`
	Type     schema.TypeRef `json:"type"`
	Kind     ParameterKind  `json:"kind"`
	Optional bool           `json:"optional,omitempty"`
}

// StepOutput is a declared function output. Key is non-nil when the function
// re-keys the stream, producing a key-value pair.
type StepOutput struct {
	Type     schema.TypeRef  `json:"type"`
	Key      *schema.TypeRef `json:"key,omitempty"`
	Optional bool            `json:"optional,omitempty"`
}

// ValueTypeName returns the name of the value side of the output.
func (o StepOutput) ValueTypeName() string { return o.Type.Name }

// Schema converts the output into the key/value pair it produces downstream.
func (o StepOutput) Schema() schema.KVSchema {
	out := schema.KVSchema{Value: o.Type}
	if o.Key != nil {
		key := *o.Key
		out.Key = &key
	}
	return out
}

// Phase tags an invocation's signature provenance. Declared signatures come
// straight from config; resolved ones were overwritten from inline code or a
// package import and are trusted to match the function body.
type Phase int

const (
	PhaseDeclared Phase = iota
	PhaseResolved
)

func (p Phase) String() string {
	if p == PhaseResolved {
		return "resolved"
	}
	return "declared"
}

// CodeInfo carries an inline function body, when the step ships its own
// source instead of referencing a packaged function.
type CodeInfo struct {
	Lang string `json:"lang,omitempty"`
	Code string `json:"code,omitempty"`
}

// ImportOrigin records where a resolved imported function actually lives:
// the name it was published under, the composed filesystem path to its
// package, and the package identity. The invocation keeps the local alias.
type ImportOrigin struct {
	OriginalName string `json:"original_name"`
	PackagePath  string `json:"package_path"`
	Namespace    string `json:"namespace"`
	PackageName  string `json:"package_name"`
	Version      string `json:"version"`
}

// StepInvocation binds a function name to the signature it is invoked with.
type StepInvocation struct {
	Uses   string        `json:"uses"`
	Inputs []Parameter   `json:"inputs,omitempty"`
	Output *StepOutput   `json:"output,omitempty"`
	States []StepState   `json:"states,omitempty"`
	Code   CodeInfo      `json:"code,omitzero"`
	Origin *ImportOrigin `json:"origin,omitempty"`
	Phase  Phase         `json:"-"`
}

// RequiresKeyParam reports whether the first declared input is the key.
func (s *StepInvocation) RequiresKeyParam() bool {
	return len(s.Inputs) > 0 && s.Inputs[0].Kind == ParamKey
}

// HasKeyInOutput reports whether the output re-keys the stream.
func (s *StepInvocation) HasKeyInOutput() bool {
	return s.Output != nil && s.Output.Key != nil
}

// valueInput returns the input carrying the stream value: the second input
// for keyed functions, the first otherwise.
func (s *StepInvocation) valueInput() *Parameter {
	idx := 0
	if s.RequiresKeyParam() {
		idx = 1
	}
	if idx >= len(s.Inputs) {
		return nil
	}
	return &s.Inputs[idx]
}

// ResolveStates binds each declared state dependency to the service-level
// state it names.
func (s *StepInvocation) ResolveStates(states []TypedState) error {
	for i := range s.States {
		if err := s.States[i].Resolve(states); err != nil {
			return err
		}
	}
	return nil
}
