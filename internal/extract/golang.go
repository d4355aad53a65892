package extract

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"
	"unicode"

	"github.com/roach88/sluice/internal/pipeline"
	"github.com/roach88/sluice/internal/schema"
)

// goExtractor parses Go function declarations. The body must hold exactly
// one top-level function whose last result is error; the value results map
// onto the wire signature.
type goExtractor struct{}

func (goExtractor) Extract(code string) (Signature, error) {
	decl, err := parseFuncDecl(code)
	if err != nil {
		return Signature{}, err
	}

	uses := kebabCase(decl.Name.Name)

	if decl.Recv != nil {
		return Signature{}, fmt.Errorf("%s function is a method", uses)
	}
	if decl.Type.TypeParams != nil {
		return Signature{}, fmt.Errorf("%s function is generic", uses)
	}

	inputs, err := parseInputs(uses, decl.Type.Params)
	if err != nil {
		return Signature{}, err
	}
	output, err := parseOutput(uses, decl.Type.Results)
	if err != nil {
		return Signature{}, err
	}

	return Signature{Uses: uses, Inputs: inputs, Output: output}, nil
}

func parseFuncDecl(code string) (*ast.FuncDecl, error) {
	src := "package inline\n\n" + code
	file, err := parser.ParseFile(token.NewFileSet(), "inline.go", src, parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf(
			"Failed to parse code. Is this valid Go syntax for a function?:\n %s", code)
	}

	var fn *ast.FuncDecl
	for _, decl := range file.Decls {
		d, ok := decl.(*ast.FuncDecl)
		if !ok {
			continue
		}
		if fn != nil {
			return nil, fmt.Errorf(
				"Failed to parse code. Is this valid Go syntax for a function?:\n %s", code)
		}
		fn = d
	}
	if fn == nil {
		return nil, fmt.Errorf(
			"Failed to parse code. Is this valid Go syntax for a function?:\n %s", code)
	}
	return fn, nil
}

func parseInputs(uses string, params *ast.FieldList) ([]pipeline.Parameter, error) {
	if params == nil {
		return nil, nil
	}

	var inputs []pipeline.Parameter
	for _, field := range params.List {
		if len(field.Names) == 0 {
			return nil, fmt.Errorf("Invalid input on function %s", uses)
		}
		for _, name := range field.Names {
			param, err := parseParam(uses, kebabCase(name.Name), field.Type)
			if err != nil {
				return nil, err
			}
			inputs = append(inputs, param)
		}
	}
	return inputs, nil
}

// parseParam maps one declared parameter. A pointer parameter is the key
// input and is optional; a byte slice is the builtin bytes type.
func parseParam(uses, name string, expr ast.Expr) (pipeline.Parameter, error) {
	switch ty := expr.(type) {
	case *ast.Ident:
		return pipeline.Parameter{
			Name: name,
			Type: schema.TypeRef{Name: typeName(ty.Name)},
			Kind: pipeline.ParamValue,
		}, nil
	case *ast.StarExpr:
		inner, ok := ty.X.(*ast.Ident)
		if !ok {
			return pipeline.Parameter{}, fmt.Errorf("Invalid input type on function %s", uses)
		}
		return pipeline.Parameter{
			Name:     name,
			Type:     schema.TypeRef{Name: typeName(inner.Name)},
			Kind:     pipeline.ParamKey,
			Optional: true,
		}, nil
	case *ast.ArrayType:
		if !isByteSlice(ty) {
			return pipeline.Parameter{}, fmt.Errorf("Invalid input type on function %s", uses)
		}
		return pipeline.Parameter{
			Name: name,
			Type: schema.TypeRef{Name: "bytes"},
			Kind: pipeline.ParamValue,
		}, nil
	}
	return pipeline.Parameter{}, fmt.Errorf("Invalid input type on function %s", uses)
}

// parseOutput maps the result list. The last result must be error; the
// value results before it become the output shape.
func parseOutput(uses string, results *ast.FieldList) (*pipeline.StepOutput, error) {
	exprs := flattenResults(results)
	if len(exprs) == 0 {
		return nil, fmt.Errorf(
			"Invalid output type on function %s. It must return an error as the last result", uses)
	}
	last, ok := exprs[len(exprs)-1].(*ast.Ident)
	if !ok || last.Name != "error" {
		return nil, fmt.Errorf(
			"Invalid output type on function %s. It must return an error as the last result", uses)
	}

	values := exprs[:len(exprs)-1]
	switch len(values) {
	case 0:
		return nil, nil
	case 1:
		return parseValueResult(uses, values[0])
	case 2:
		return parseKeyValueResult(uses, values[0], values[1])
	}
	return nil, fmt.Errorf("Invalid output type on function %s", uses)
}

// parseValueResult unwraps one pointer (optional) or slice (sequence)
// level around the produced type.
func parseValueResult(uses string, expr ast.Expr) (*pipeline.StepOutput, error) {
	switch ty := expr.(type) {
	case *ast.Ident:
		return &pipeline.StepOutput{Type: schema.TypeRef{Name: typeName(ty.Name)}}, nil
	case *ast.StarExpr:
		inner, ok := ty.X.(*ast.Ident)
		if !ok {
			return nil, fmt.Errorf("Invalid output type on function %s", uses)
		}
		return &pipeline.StepOutput{
			Type:     schema.TypeRef{Name: typeName(inner.Name)},
			Optional: true,
		}, nil
	case *ast.ArrayType:
		if isByteSlice(ty) {
			return &pipeline.StepOutput{Type: schema.TypeRef{Name: "bytes"}}, nil
		}
		inner, ok := ty.Elt.(*ast.Ident)
		if !ok || ty.Len != nil {
			return nil, fmt.Errorf("Invalid output type on function %s", uses)
		}
		return &pipeline.StepOutput{Type: schema.TypeRef{Name: typeName(inner.Name)}}, nil
	}
	return nil, fmt.Errorf("Invalid output type on function %s", uses)
}

// parseKeyValueResult maps a (key, value) result pair. The key must be a
// pointer since a record can carry no key; the value must not be.
func parseKeyValueResult(uses string, keyExpr, valueExpr ast.Expr) (*pipeline.StepOutput, error) {
	star, ok := keyExpr.(*ast.StarExpr)
	if !ok {
		return nil, fmt.Errorf(
			"Invalid output type on function %s. First result (key) should be a pointer", uses)
	}
	keyIdent, ok := star.X.(*ast.Ident)
	if !ok {
		return nil, fmt.Errorf("Invalid output type on function %s", uses)
	}

	if _, isStar := valueExpr.(*ast.StarExpr); isStar {
		return nil, fmt.Errorf(
			"Invalid output type on function %s. Second result (value) should not be a pointer", uses)
	}
	valueIdent, ok := valueExpr.(*ast.Ident)
	if !ok {
		return nil, fmt.Errorf("Invalid output type on function %s", uses)
	}

	key := schema.TypeRef{Name: typeName(keyIdent.Name)}
	return &pipeline.StepOutput{
		Type: schema.TypeRef{Name: typeName(valueIdent.Name)},
		Key:  &key,
	}, nil
}

func flattenResults(results *ast.FieldList) []ast.Expr {
	if results == nil {
		return nil
	}
	var exprs []ast.Expr
	for _, field := range results.List {
		n := len(field.Names)
		if n == 0 {
			n = 1
		}
		for i := 0; i < n; i++ {
			exprs = append(exprs, field.Type)
		}
	}
	return exprs
}

func isByteSlice(ty *ast.ArrayType) bool {
	if ty.Len != nil {
		return false
	}
	ident, ok := ty.Elt.(*ast.Ident)
	return ok && ident.Name == "byte"
}

// goTypeNames maps Go builtin type identifiers to their wire names. Signed
// integers become s-prefixed widths.
var goTypeNames = map[string]string{
	"uint8":   "u8",
	"uint16":  "u16",
	"uint32":  "u32",
	"uint64":  "u64",
	"int8":    "s8",
	"int16":   "s16",
	"int32":   "s32",
	"int64":   "s64",
	"float32": "f32",
	"float64": "f64",
	"bool":    "bool",
	"string":  "string",
	"byte":    "u8",
}

func typeName(ident string) string {
	if name, ok := goTypeNames[ident]; ok {
		return name
	}
	return kebabCase(ident)
}

// kebabCase maps a Go identifier to its wire form: underscores become
// dashes and camel humps split on a dash.
func kebabCase(name string) string {
	var sb strings.Builder
	prev := rune(0)
	for i, r := range name {
		switch {
		case r == '_':
			sb.WriteRune('-')
		case unicode.IsUpper(r):
			if i > 0 && prev != '_' && prev != 0 && !unicode.IsUpper(prev) {
				sb.WriteRune('-')
			}
			sb.WriteRune(unicode.ToLower(r))
		default:
			sb.WriteRune(r)
		}
		prev = r
	}
	return sb.String()
}
