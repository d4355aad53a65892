package pkgdef

import (
	"fmt"
	"path"

	"github.com/roach88/sluice/internal/pipeline"
)

// importedFunctionRef is where a function import points: the published name
// and the package it lives in.
type importedFunctionRef struct {
	originalName string
	packagePath  string
	metadata     Header
}

type visitKey struct {
	pkg      string
	function string
}

// FindImportedFunction follows a function import to its definition,
// traversing re-exports through intermediate packages. Each (package,
// function) pair may only be visited once; a revisit means the packages
// import each other's functions in a cycle.
func FindImportedFunction(
	name string,
	imports []Import,
	packages []PackageDefinition,
) (Function, error) {
	visited := make(map[visitKey]bool)
	return findImportedFunction(".", name, imports, packages, visited)
}

func findImportedFunction(
	previousPath, name string,
	imports []Import,
	packages []PackageDefinition,
	visited map[visitKey]bool,
) (Function, error) {
	ref, err := importRefForFunction(name, imports)
	if err != nil {
		return Function{}, err
	}

	key := visitKey{pkg: ref.metadata.Key(), function: ref.originalName}
	if visited[key] {
		return Function{}, fmt.Errorf("circular import detected resolving function %s in package %s",
			ref.originalName, ref.metadata)
	}
	visited[key] = true

	pkg, ok := findPackage(packages, ref.metadata)
	if !ok {
		return Function{}, fmt.Errorf("Package %s/%s:%s not found in packages",
			ref.metadata.Namespace, ref.metadata.Name, ref.metadata.Version)
	}

	composedPath := path.Join(previousPath, ref.packagePath)

	if fn, ok := pkg.GetFunction(ref.originalName); ok {
		resolved := *fn
		resolved.Invocation.Origin = &pipeline.ImportOrigin{
			OriginalName: ref.originalName,
			PackagePath:  composedPath,
			Namespace:    ref.metadata.Namespace,
			PackageName:  ref.metadata.Name,
			Version:      ref.metadata.Version,
		}
		return resolved, nil
	}

	return findImportedFunction(composedPath, ref.originalName, pkg.Imports, packages, visited)
}

func importRefForFunction(name string, imports []Import) (importedFunctionRef, error) {
	for _, imp := range imports {
		for _, fn := range imp.Functions {
			if fn.LocalName() != name {
				continue
			}
			if imp.Path == "" {
				return importedFunctionRef{}, fmt.Errorf("Import must have path when resolving functions")
			}
			return importedFunctionRef{
				originalName: fn.Name,
				packagePath:  imp.Path,
				metadata:     imp.Metadata,
			}, nil
		}
	}
	return importedFunctionRef{}, fmt.Errorf("Function %s not found in imports", name)
}

// ImportedInvocationConfig rewrites an imported invocation with the
// signature its package declares, after checking the operator kind matches
// the one the function was published as. The local alias is kept.
func ImportedInvocationConfig(
	inv pipeline.StepInvocation,
	kind pipeline.Kind,
	imports []Import,
	packages []PackageDefinition,
) (pipeline.StepInvocation, error) {
	imported, err := FindImportedFunction(inv.Uses, imports, packages)
	if err != nil {
		return pipeline.StepInvocation{}, err
	}

	if imported.Kind != kind {
		return pipeline.StepInvocation{}, fmt.Errorf(
			"Imported function %s is expected to be %s type operator but is %s",
			inv.Uses, kind, imported.Kind)
	}

	inv.Inputs = imported.Invocation.Inputs
	inv.Output = imported.Invocation.Output
	inv.States = imported.Invocation.States
	inv.Origin = imported.Invocation.Origin
	inv.Phase = pipeline.PhaseResolved
	return inv, nil
}
