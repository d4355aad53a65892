package config

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cueyaml "cuelang.org/go/encoding/yaml"
)

//go:embed schema.cue
var schemaSource string

var (
	schemaOnce  sync.Once
	schemaValue cue.Value
	schemaCtx   *cue.Context
)

func compiledSchema() (*cue.Context, cue.Value, error) {
	schemaOnce.Do(func() {
		schemaCtx = cuecontext.New()
		schemaValue = schemaCtx.CompileString(schemaSource, cue.Filename("schema.cue"))
	})
	if err := schemaValue.Err(); err != nil {
		return nil, cue.Value{}, fmt.Errorf("compiling document schema: %w", err)
	}
	return schemaCtx, schemaValue, nil
}

// StructuralError is a document that failed schema vetting before decoding.
// Each problem carries the file position CUE reported for it.
type StructuralError struct {
	Filename string
	Problems []string
}

func (e *StructuralError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s is not a valid document:\n", e.Filename))
	for _, p := range e.Problems {
		sb.WriteString("    ")
		sb.WriteString(p)
		sb.WriteString("\n")
	}
	return sb.String()
}

// vetDocument checks the YAML document against the named schema definition.
// A nil return means the document is structurally sound; decoding may still
// surface semantic problems.
func vetDocument(def, filename string, data []byte) error {
	ctx, sv, err := compiledSchema()
	if err != nil {
		return err
	}

	file, err := cueyaml.Extract(filename, data)
	if err != nil {
		return &StructuralError{Filename: filename, Problems: []string{err.Error()}}
	}
	doc := ctx.BuildFile(file)
	if err := doc.Err(); err != nil {
		return &StructuralError{Filename: filename, Problems: problems(err)}
	}

	unified := sv.LookupPath(cue.ParsePath(def)).Unify(doc)
	if err := unified.Validate(cue.Concrete(true), cue.Final()); err != nil {
		return &StructuralError{Filename: filename, Problems: problems(err)}
	}
	return nil
}

// problems flattens a CUE error into one line per position.
func problems(err error) []string {
	var out []string
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		msg := fmt.Sprintf(format, args...)
		if pos := e.Position(); pos.IsValid() {
			msg = fmt.Sprintf("%s:%d:%d: %s", pos.Filename(), pos.Line(), pos.Column(), msg)
		}
		out = append(out, msg)
	}
	if len(out) == 0 {
		out = append(out, err.Error())
	}
	return out
}
