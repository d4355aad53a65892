package pkgdef

import (
	"fmt"

	"github.com/roach88/sluice/internal/pipeline"
	"github.com/roach88/sluice/internal/schema"
)

// MergeTypesAndStates folds the types and states each import pulls in from
// its resolved package into reg and states. Every imported type brings its
// transitive type tree along. Re-importing an identical definition is a
// no-op; a differing one is a conflict. All merged states are resolved
// against the final registry before returning.
func MergeTypesAndStates(
	reg *schema.Registry,
	states map[string]pipeline.TypedState,
	imports []Import,
	packages []PackageDefinition,
) error {
	for _, imp := range imports {
		pkg, ok := findPackage(packages, imp.Metadata)
		if !ok {
			return fmt.Errorf("package not found: %s", imp.Metadata)
		}

		pkgTypes := pkg.TypesRegistry()

		for _, name := range imp.Types {
			if err := importTypeTree(reg, pkgTypes, name, imp.Metadata.Name); err != nil {
				return err
			}
		}

		for _, stateName := range imp.States {
			st, ok := findState(pkg.States, stateName)
			if !ok {
				return fmt.Errorf("state %s not found in imported package %s",
					stateName, imp.Metadata.Name)
			}
			if err := importTypeTree(reg, pkgTypes, st.Name, imp.Metadata.Name); err != nil {
				return err
			}
			states[st.Name] = st
		}
	}

	for name, st := range states {
		if err := st.Resolve(reg); err != nil {
			return err
		}
		states[name] = st
	}

	return nil
}

func importTypeTree(reg, pkgTypes *schema.Registry, name, pkgName string) error {
	for _, entry := range pkgTypes.TypeTree(name) {
		if prev, exists := reg.Lookup(entry.Name); exists {
			if !prev.Type.Equal(entry.Type) {
				return fmt.Errorf("imported type %s from %s conflicts with existing type",
					entry.Name, pkgName)
			}
			continue
		}
		reg.InsertImported(entry.Name, entry.Type)
	}
	return nil
}

func findPackage(packages []PackageDefinition, meta Header) (*PackageDefinition, bool) {
	for i := range packages {
		if packages[i].Meta == meta {
			return &packages[i], true
		}
	}
	return nil, false
}

func findState(states []pipeline.TypedState, name string) (pipeline.TypedState, bool) {
	for _, st := range states {
		if st.Name == name {
			return st, true
		}
	}
	return pipeline.TypedState{}, false
}
