package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/sluice/internal/config"
	"github.com/roach88/sluice/internal/extract"
	"github.com/roach88/sluice/internal/pkgdef"
)

// ErrNotFound reports a lookup for a package version the index does not hold.
var ErrNotFound = errors.New("package not found")

// Lookup returns the package published under the given identity.
func (ix *Index) Lookup(ctx context.Context, header pkgdef.Header) (*pkgdef.PackageDefinition, error) {
	var document []byte
	err := ix.db.QueryRowContext(ctx, `
		SELECT document
		FROM packages
		WHERE namespace = ? AND name = ? AND version = ?
	`, header.Namespace, header.Name, header.Version).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lookup %s: %w", header, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", header, err)
	}

	pkg, err := config.ParsePackage(header.CanonicalName()+".yaml", document)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", header, err)
	}

	// Functions shipping inline code were published with only the body;
	// recover their signatures so the import resolver sees resolved shapes.
	for i := range pkg.Functions {
		inv := &pkg.Functions[i].Invocation
		if inv.Code.Code == "" {
			continue
		}
		if errs := extract.Resolve(inv); errs.Any() {
			return nil, fmt.Errorf("lookup %s: %s", header,
				strings.TrimRight(errs.Readable(0), "\n"))
		}
	}
	return pkg, nil
}

// Closure returns the packages named by the imports together with every
// package they transitively import, ready to hand to the dependency
// resolver. Each identity is fetched once.
func (ix *Index) Closure(ctx context.Context, imports []pkgdef.Import) ([]pkgdef.PackageDefinition, error) {
	seen := make(map[string]bool)
	var packages []pkgdef.PackageDefinition

	queue := make([]pkgdef.Header, 0, len(imports))
	for _, imp := range imports {
		queue = append(queue, imp.Metadata)
	}

	for len(queue) > 0 {
		header := queue[0]
		queue = queue[1:]
		if seen[header.Key()] {
			continue
		}
		seen[header.Key()] = true

		pkg, err := ix.Lookup(ctx, header)
		if err != nil {
			return nil, err
		}
		packages = append(packages, *pkg)

		for _, imp := range pkg.Imports {
			queue = append(queue, imp.Metadata)
		}
	}

	return packages, nil
}

// List returns every published package, ordered by namespace, name, version.
func (ix *Index) List(ctx context.Context) ([]Record, error) {
	rows, err := ix.db.QueryContext(ctx, `
		SELECT id, namespace, name, version, published_at
		FROM packages
		ORDER BY namespace ASC, name ASC, version ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var publishedAt string
		if err := rows.Scan(&rec.ID, &rec.Header.Namespace, &rec.Header.Name, &rec.Header.Version, &publishedAt); err != nil {
			return nil, fmt.Errorf("scan package record: %w", err)
		}
		rec.PublishedAt, err = time.Parse(time.RFC3339, publishedAt)
		if err != nil {
			return nil, fmt.Errorf("parse published_at: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}

	return records, nil
}
