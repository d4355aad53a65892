package index

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/sluice/internal/config"
	"github.com/roach88/sluice/internal/pkgdef"
)

// Record identifies one published package version.
type Record struct {
	ID          string
	Header      pkgdef.Header
	PublishedAt time.Time
}

// Publish stores a package document under its declared identity. The
// document is parsed first so an index never holds an undecodable entry.
// Republishing an existing version replaces its document and assigns a
// fresh publish id.
func (ix *Index) Publish(ctx context.Context, filename string, document []byte) (Record, error) {
	pkg, err := config.ParsePackage(filename, document)
	if err != nil {
		return Record{}, fmt.Errorf("publish: %w", err)
	}
	if errs := pkg.Meta.Validate(); errs.Any() {
		return Record{}, fmt.Errorf("publish %s: %s", filename, errs.Error())
	}

	rec := Record{
		ID:          uuid.NewString(),
		Header:      pkg.Meta,
		PublishedAt: time.Now().UTC().Truncate(time.Second),
	}

	_, err = ix.db.ExecContext(ctx, `
		INSERT INTO packages
		(id, namespace, name, version, document, published_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(namespace, name, version) DO UPDATE SET
			id = excluded.id,
			document = excluded.document,
			published_at = excluded.published_at
	`,
		rec.ID,
		rec.Header.Namespace,
		rec.Header.Name,
		rec.Header.Version,
		document,
		rec.PublishedAt.Format(time.RFC3339),
	)
	if err != nil {
		return Record{}, fmt.Errorf("publish %s: %w", rec.Header, err)
	}

	return rec, nil
}
