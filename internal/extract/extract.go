package extract

import (
	"fmt"
	"strings"

	"github.com/roach88/sluice/internal/diag"
	"github.com/roach88/sluice/internal/pipeline"
)

// Signature is what an extractor recovers from an operator body: the
// exported function name in its wire form, the ordered inputs, and the
// output shape, nil when the function produces nothing.
type Signature struct {
	Uses   string
	Inputs []pipeline.Parameter
	Output *pipeline.StepOutput
}

// Extractor parses one host grammar's function declarations.
type Extractor interface {
	// Extract parses the body and returns its signature. The body must
	// contain exactly one function declaration.
	Extract(code string) (Signature, error)
}

// ForLang returns the extractor for a code language identifier.
func ForLang(lang string) (Extractor, error) {
	switch lang {
	case "go", "":
		return goExtractor{}, nil
	}
	return nil, fmt.Errorf("no signature extractor for language %s", lang)
}

// Infer parses the invocation's inline body and populates its signature,
// marking it resolved. This is the authoring path for operators declared
// with only a name and a body.
func Infer(inv *pipeline.StepInvocation) error {
	if inv.Code.Code == "" {
		return fmt.Errorf("Code block is empty")
	}

	ex, err := ForLang(inv.Code.Lang)
	if err != nil {
		return err
	}
	sig, err := ex.Extract(inv.Code.Code)
	if err != nil {
		return err
	}

	inv.Uses = sig.Uses
	inv.Inputs = sig.Inputs
	inv.Output = sig.Output
	inv.Phase = pipeline.PhaseResolved
	return nil
}

// Check parses the invocation's inline body and compares the recovered
// signature against the declared one, reporting every mismatch.
func Check(inv *pipeline.StepInvocation) diag.Violations {
	if inv.Code.Code == "" {
		return diag.New("Code block is empty")
	}

	ex, err := ForLang(inv.Code.Lang)
	if err != nil {
		return diag.New(err.Error())
	}
	sig, err := ex.Extract(inv.Code.Code)
	if err != nil {
		return diag.New(err.Error())
	}

	var errors diag.Violations
	if inv.Uses != sig.Uses {
		errors = diag.Merge(errors, diag.New(fmt.Sprintf(
			"function name on parsed code does not match. Got %s, expected: %s",
			sig.Uses, inv.Uses)))
	}
	if !outputsEqual(sig.Output, inv.Output) {
		errors = diag.Merge(errors, diag.New(fmt.Sprintf(
			"function output on parsed code does not match. Got %s, expected: %s",
			describeOutput(sig.Output), describeOutput(inv.Output))))
	}
	if !inputsEqual(sig.Inputs, inv.Inputs) {
		errors = diag.Merge(errors, diag.New(fmt.Sprintf(
			"function input on parsed code does not match. Got %s, expected: %s",
			describeInputs(sig.Inputs), describeInputs(inv.Inputs))))
	}
	return errors
}

// Resolve populates the invocation's signature from its inline body. When
// the config also declared a function name, the body must export that name.
func Resolve(inv *pipeline.StepInvocation) diag.Violations {
	declared := inv.Uses
	if err := Infer(inv); err != nil {
		return diag.New(err.Error())
	}
	if declared != "" && declared != inv.Uses {
		return diag.New(fmt.Sprintf(
			"function name on parsed code does not match. Got %s, expected: %s",
			inv.Uses, declared))
	}
	return nil
}

func outputsEqual(a, b *pipeline.StepOutput) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	if a == nil {
		return true
	}
	if a.Type != b.Type || a.Optional != b.Optional {
		return false
	}
	if (a.Key == nil) != (b.Key == nil) {
		return false
	}
	return a.Key == nil || *a.Key == *b.Key
}

func inputsEqual(a, b []pipeline.Parameter) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func describeOutput(o *pipeline.StepOutput) string {
	if o == nil {
		return "none"
	}
	var sb strings.Builder
	if o.Key != nil {
		fmt.Fprintf(&sb, "%s(key) - ", o.Key.Name)
	}
	sb.WriteString(o.Type.Name)
	if o.Optional {
		sb.WriteString(" (optional)")
	}
	return sb.String()
}

func describeInputs(inputs []pipeline.Parameter) string {
	if len(inputs) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(inputs))
	for _, in := range inputs {
		part := fmt.Sprintf("%s: %s (%s)", in.Name, in.Type.Name, in.Kind)
		if in.Optional {
			part += " (optional)"
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, ", ")
}
