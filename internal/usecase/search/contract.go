package search

import (
	"context"

	"github.com/kailas-cloud/schemefinder/internal/domain"
	"github.com/kailas-cloud/schemefinder/internal/domain/chat"
	"github.com/kailas-cloud/schemefinder/internal/domain/scheme"
	"github.com/kailas-cloud/schemefinder/internal/domain/search/result"
)

// Embedder vectorizes need text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// VectorIndex returns the k nearest index rows to a vector, closest first.
type VectorIndex interface {
	Nearest(ctx context.Context, vec []float32, k int) ([]result.Neighbor, error)
}

// SchemeReader fetches scheme records by id. Ids absent from the store are
// absent from the returned map.
type SchemeReader interface {
	BatchGet(ctx context.Context, ids []string) (map[string]scheme.Scheme, error)
}

// ResultCache memoizes retrieval fragments by (need, breadth).
type ResultCache interface {
	Get(need string, breadth int) ([]result.Candidate, bool)
	Put(need string, breadth int, v []result.Candidate)
}

// QueryLog records searches per session.
type QueryLog interface {
	AppendQuery(ctx context.Context, sessionID string, entry *chat.QueryLogEntry) error
}
