package emit

import (
	"fmt"
	"sort"

	"github.com/roach88/sluice/internal/dataflow"
	"github.com/roach88/sluice/internal/pipeline"
	"github.com/roach88/sluice/internal/pkgdef"
)

// Dataflow renders a validated dataflow into WIT text: the shared types
// interface followed by one interface per operator, name sorted.
func Dataflow(df *dataflow.Definition) (string, error) {
	doc := document{
		Package: packageName(df.Meta),
	}

	types, err := typesInterface(df.TypesRegistry(), df.Imports)
	if err != nil {
		return "", err
	}
	doc.Interfaces = append(doc.Interfaces, types)

	var operators []pipeline.BoundOperator
	for i := range df.Services {
		operators = append(operators, df.Services[i].Operators()...)
	}
	doc.Interfaces = append(doc.Interfaces, operatorInterfaces(operators)...)

	return doc.render(), nil
}

// Package renders a package definition's types interface.
func Package(pkg *pkgdef.PackageDefinition) (string, error) {
	doc := document{
		Package: packageName(pkg.Meta),
	}

	types, err := typesInterface(pkg.TypesRegistry(), pkg.Imports)
	if err != nil {
		return "", err
	}
	doc.Interfaces = append(doc.Interfaces, types)

	return doc.render(), nil
}

func packageName(meta pkgdef.Header) string {
	return fmt.Sprintf("%s:%s", WitName(meta.Namespace), WitName(meta.Name))
}

// operatorInterfaces renders each operator once, in name order. An
// operator invoked from more than one place still emits a single
// interface.
func operatorInterfaces(operators []pipeline.BoundOperator) []iface {
	sort.SliceStable(operators, func(i, j int) bool {
		return operators[i].Invocation.Uses < operators[j].Invocation.Uses
	})

	var out []iface
	seen := make(map[string]bool)
	for _, op := range operators {
		if seen[op.Invocation.Uses] {
			continue
		}
		seen[op.Invocation.Uses] = true
		out = append(out, operatorInterface(op))
	}
	return out
}
