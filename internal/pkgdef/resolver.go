package pkgdef

import (
	"fmt"
	"sort"
)

// dependencyNode tracks one package through resolution. A node in the
// visiting state that is reached again closes an import cycle.
type dependencyNode struct {
	pkg      PackageDefinition
	resolved bool
	visiting bool
}

// DependencyResolver resolves the dependency graph spanned by a set of
// import declarations over the available package definitions. Each package
// has its own dependencies merged in before anything that imports it reads
// its types.
type DependencyResolver struct {
	nodes map[string]*dependencyNode
}

// BuildResolver resolves every declared import, depth-first. Import cycles
// and references to packages outside the given set are errors.
func BuildResolver(imports []Import, packages []PackageDefinition) (*DependencyResolver, error) {
	nodes := make(map[string]*dependencyNode, len(packages))
	for _, pkg := range packages {
		nodes[pkg.Meta.Key()] = &dependencyNode{pkg: pkg}
	}

	r := &DependencyResolver{nodes: nodes}
	for _, imp := range imports {
		if err := r.resolve(imp.Metadata.Key()); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *DependencyResolver) resolve(key string) error {
	node, ok := r.nodes[key]
	if !ok {
		return fmt.Errorf("Could not find package with key: %s", key)
	}
	if node.resolved {
		return nil
	}
	if node.visiting {
		return fmt.Errorf("circular import detected for package %s", node.pkg.Meta)
	}
	node.visiting = true
	defer func() { node.visiting = false }()

	children := make([]PackageDefinition, 0, len(node.pkg.Imports))
	for _, imp := range node.pkg.Imports {
		depKey := imp.Metadata.Key()
		if err := r.resolve(depKey); err != nil {
			return err
		}
		children = append(children, r.nodes[depKey].pkg)
	}

	if err := node.pkg.MergeDependencies(children); err != nil {
		return err
	}

	node.resolved = true
	return nil
}

// Packages returns every package after resolution, in key order.
func (r *DependencyResolver) Packages() []PackageDefinition {
	keys := make([]string, 0, len(r.nodes))
	for key := range r.nodes {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]PackageDefinition, 0, len(keys))
	for _, key := range keys {
		out = append(out, r.nodes[key].pkg)
	}
	return out
}
