package pipeline

import (
	"fmt"

	"github.com/roach88/sluice/internal/diag"
	"github.com/roach88/sluice/internal/schema"
)

// TypedState is a state owned by a service: a keyed table from a key type to
// a counter or an arrow row.
type TypedState struct {
	Name string            `json:"name"`
	Type schema.KeyedState `json:"type"`
}

// Resolve replaces an unresolved value reference with the concrete shape it
// names. Only u32 counters and arrow rows are valid state values.
func (t *TypedState) Resolve(reg *schema.Registry) error {
	if t.Type.Value.Kind != schema.StateValueUnresolved || t.Type.Value.Unresolved == nil {
		return nil
	}
	entry, ok := reg.Lookup(t.Type.Value.Unresolved.Name)
	if !ok {
		return nil
	}
	switch entry.Type.Kind {
	case schema.KindU32:
		t.Type.Value = schema.KeyedStateValue{Kind: schema.StateValueU32}
	case schema.KindArrowRow:
		t.Type.Value = schema.KeyedStateValue{
			Kind:     schema.StateValueArrowRow,
			ArrowRow: entry.Type.ArrowRow,
		}
	default:
		return fmt.Errorf("invalid type for keyed state value")
	}
	return nil
}

// Validate requires the state value to have been resolved first.
func (t *TypedState) Validate() diag.Violations {
	if t.Type.Value.Kind == schema.StateValueUnresolved {
		return diag.New("Internal Error: typed state value should be resolved before validation. Please contact support")
	}
	return nil
}

// StateRef points at a state owned by another service.
type StateRef struct {
	Name    string `json:"name"`
	Service string `json:"service"`
}

func (r *StateRef) Validate() diag.Violations {
	const form = "state reference must be of the form <service>.<state>"

	switch {
	case r.Name == "" && r.Service == "":
		return diag.New("empty state reference found. " + form)
	case r.Name == "":
		return diag.New("state name missing for state reference. " + form)
	case r.Service == "":
		return diag.New("service name missing for state reference. " + form)
	}
	return nil
}

// SystemState exposes a runtime-provided table, such as offsets or metrics.
type SystemState struct {
	Name   string `json:"name"`
	System string `json:"system"`
}

func (s *SystemState) Validate() diag.Violations {
	switch {
	case s.Name == "" && s.System == "":
		return diag.New("empty system state found. state name and system cannot be empty")
	case s.Name == "":
		return diag.New("Name must be specified for system state")
	case s.System == "":
		return diag.New(fmt.Sprintf("System must be specified for system state `%s`", s.Name))
	}
	return nil
}

// State is the closed sum of state declarations a service may carry.
// Exactly one of the three arms is set.
type State struct {
	Typed     *TypedState  `json:"typed,omitempty"`
	Reference *StateRef    `json:"reference,omitempty"`
	System    *SystemState `json:"system,omitempty"`
}

// Name returns the declared state name regardless of arm.
func (s State) Name() string {
	switch {
	case s.Typed != nil:
		return s.Typed.Name
	case s.Reference != nil:
		return s.Reference.Name
	case s.System != nil:
		return s.System.Name
	}
	return ""
}

// IsOwned reports whether the service owns the backing table.
func (s State) IsOwned() bool { return s.Typed != nil }

func (s State) Validate() diag.Violations {
	switch {
	case s.Typed != nil:
		return s.Typed.Validate()
	case s.Reference != nil:
		return s.Reference.Validate()
	case s.System != nil:
		return s.System.Validate()
	}
	return diag.New("empty state declaration")
}

// StepState is a state dependency declared on a step invocation. Resolve
// binds it to the owning service's typed state so downstream consumers can
// see the concrete shape.
type StepState struct {
	Name  string      `json:"name"`
	Value *TypedState `json:"value,omitempty"`
}

// Resolve binds the dependency to the typed state with the matching name.
// Unmatched names are left unresolved; scope checking happens elsewhere.
func (s *StepState) Resolve(states []TypedState) error {
	for i := range states {
		if states[i].Name == s.Name {
			state := states[i]
			s.Value = &state
			return nil
		}
	}
	return nil
}
