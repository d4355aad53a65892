package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/roach88/sluice/internal/config"
	"github.com/roach88/sluice/internal/dataflow"
	"github.com/roach88/sluice/internal/diag"
	"github.com/roach88/sluice/internal/extract"
	"github.com/roach88/sluice/internal/index"
	"github.com/roach88/sluice/internal/pipeline"
	"github.com/roach88/sluice/internal/pkgdef"
)

// resolveDataflow loads a dataflow file and runs the full resolution
// pipeline: indexed package fetch, import resolution, inline signature
// extraction, and validation. The returned problems are validation
// failures (exit code 1); a non-nil error is a command failure (exit 2).
func resolveDataflow(ctx context.Context, opts *RootOptions, formatter *OutputFormatter, path string) (*dataflow.Definition, []string, error) {
	df, err := config.LoadDataflow(path)
	if err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return nil, nil, err
		}
		return nil, []string{err.Error()}, nil
	}
	formatter.VerboseLog("Loaded dataflow %s", df.Name())

	if err := attachIndexedPackages(ctx, opts, formatter, df); err != nil {
		return nil, nil, err
	}

	if err := df.ResolveImports(); err != nil {
		return df, []string{err.Error()}, nil
	}

	if errs := resolveInlineOperators(df); errs.Any() {
		problems := make([]string, len(errs))
		for i, v := range errs {
			problems[i] = v.Message
		}
		return df, problems, nil
	}

	if failure := df.Validate(); failure != nil {
		return df, []string{failure.Error()}, nil
	}

	return df, nil, nil
}

// attachIndexedPackages fetches packages the imports name but the document
// does not carry inline. A missing index database is not an error here;
// the resolver reports whatever stays unresolved.
func attachIndexedPackages(ctx context.Context, opts *RootOptions, formatter *OutputFormatter, df *dataflow.Definition) error {
	missing := missingImports(df)
	if len(missing) == 0 {
		return nil
	}
	if _, err := os.Stat(opts.IndexPath); err != nil {
		formatter.VerboseLog("No package index at %s", opts.IndexPath)
		return nil
	}

	ix, err := index.Open(opts.IndexPath)
	if err != nil {
		return fmt.Errorf("open package index: %w", err)
	}
	defer ix.Close()

	packages, err := ix.Closure(ctx, missing)
	if err != nil {
		if errors.Is(err, index.ErrNotFound) {
			formatter.VerboseLog("Package index incomplete: %v", err)
			return nil
		}
		return err
	}
	for _, pkg := range packages {
		formatter.VerboseLog("Resolved %s from index", pkg.Meta)
	}
	df.Packages = append(df.Packages, packages...)
	return nil
}

// missingImports returns the imports whose packages are not inline.
func missingImports(df *dataflow.Definition) []pkgdef.Import {
	inline := make(map[string]bool, len(df.Packages))
	for _, pkg := range df.Packages {
		inline[pkg.Meta.Key()] = true
	}

	var missing []pkgdef.Import
	for _, imp := range df.Imports {
		if !inline[imp.Metadata.Key()] {
			missing = append(missing, imp)
		}
	}
	return missing
}

// resolveInlineOperators extracts the signature of every operator declared
// with an inline body, service by service.
func resolveInlineOperators(df *dataflow.Definition) diag.Violations {
	var errs diag.Violations
	for i := range df.Services {
		svc := &df.Services[i]
		serviceErrs := resolveServiceOperators(svc)
		errs = diag.Merge(errs, serviceErrs.WithContext(
			fmt.Sprintf("Service %s has an invalid inline operator:", svc.Name)))
	}
	return errs
}

func resolveServiceOperators(svc *pipeline.Service) diag.Violations {
	var errs diag.Violations
	visit := func(inv *pipeline.StepInvocation) {
		if inv.Code.Code == "" {
			return
		}
		errs = diag.Merge(errs, extract.Resolve(inv))
	}

	for i := range svc.Sources {
		visitSteps(svc.Sources[i].Steps, visit)
	}
	for i := range svc.Sinks {
		visitSteps(svc.Sinks[i].Steps, visit)
	}
	visitSteps(svc.Transforms.Steps, visit)

	pt := svc.PostTransforms
	if pt == nil {
		return errs
	}
	if w := pt.Window; w != nil {
		visit(&w.AssignTimestamp)
		visitSteps(w.Transforms.Steps, visit)
		if w.Partition != nil {
			visitPartition(w.Partition, visit)
		}
		if w.Flush != nil {
			visit(w.Flush)
		}
	}
	if pt.Partition != nil {
		visitPartition(pt.Partition, visit)
	}
	return errs
}

func visitSteps(steps []pipeline.Step, visit func(*pipeline.StepInvocation)) {
	for i := range steps {
		visit(&steps[i].Invocation)
	}
}

func visitPartition(p *pipeline.Partition, visit func(*pipeline.StepInvocation)) {
	visit(&p.AssignKey)
	visitSteps(p.Transforms.Steps, visit)
	if p.UpdateState != nil {
		visit(p.UpdateState)
	}
}
