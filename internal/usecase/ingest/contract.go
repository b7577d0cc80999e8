package ingest

import (
	"context"

	"github.com/kailas-cloud/schemefinder/internal/domain/scheme"
)

// SchemeStore persists scheme records.
type SchemeStore interface {
	UpsertMulti(ctx context.Context, schemes []scheme.Scheme) error
	ListIDs(ctx context.Context) ([]string, error)
	BatchGet(ctx context.Context, ids []string) (map[string]scheme.Scheme, error)
}

// VectorStore persists scheme vectors under the nearest-neighbour index.
type VectorStore interface {
	Upsert(ctx context.Context, rows []scheme.VectorRow) error
	EnsureIndex(ctx context.Context) (bool, error)
}
