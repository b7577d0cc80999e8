package search

import (
	"context"
	"fmt"
	"math"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/schemefinder/internal/domain/scheme"
	"github.com/kailas-cloud/schemefinder/internal/domain/search/result"
)

// Reasons a neighbour is dropped during retrieval.
const (
	dropUnmapped = "unmapped"
	dropMissing  = "missing"
	dropInactive = "inactive"
)

// Retriever turns one need into a vector-scored candidate fragment.
// Collaborator failures are wrapped and returned, never retried.
type Retriever struct {
	embed   Embedder
	index   VectorIndex
	schemes SchemeReader
	cache   ResultCache
	dropped *prometheus.CounterVec
	logger  *zap.Logger
}

// NewRetriever creates a retriever. dropped carries a "reason" label and may be nil.
func NewRetriever(
	embed Embedder,
	index VectorIndex,
	schemes SchemeReader,
	cache ResultCache,
	dropped *prometheus.CounterVec,
	logger *zap.Logger,
) *Retriever {
	return &Retriever{
		embed:   embed,
		index:   index,
		schemes: schemes,
		cache:   cache,
		dropped: dropped,
		logger:  logger,
	}
}

// Similarity maps an index distance to a score; lower distance scores higher.
func Similarity(distance float64) float64 {
	return math.Exp(-distance)
}

// Retrieve returns up to breadth candidates for need, closest first. Lexical
// and combined scores are left zero.
func (r *Retriever) Retrieve(ctx context.Context, need string, breadth int) ([]result.Candidate, error) {
	if cached, ok := r.cache.Get(need, breadth); ok {
		return cached, nil
	}

	emb, err := r.embed.Embed(ctx, need)
	if err != nil {
		return nil, fmt.Errorf("embed need: %w", err)
	}

	neighbors, err := r.index.Nearest(ctx, emb.Embedding, breadth)
	if err != nil {
		return nil, fmt.Errorf("nearest neighbours: %w", err)
	}

	ids := make([]string, 0, len(neighbors))
	distances := make(map[string]float64, len(neighbors))
	for _, nb := range neighbors {
		if nb.SchemeID == "" {
			r.drop(dropUnmapped)
			r.logger.Warn("Index row has no scheme mapping",
				zap.String("index_id", nb.IndexID), zap.String("need", need))
			continue
		}
		if _, dup := distances[nb.SchemeID]; dup {
			continue
		}
		distances[nb.SchemeID] = nb.Distance
		ids = append(ids, nb.SchemeID)
	}

	var found map[string]scheme.Scheme
	if len(ids) > 0 {
		if found, err = r.schemes.BatchGet(ctx, ids); err != nil {
			return nil, fmt.Errorf("batch get schemes: %w", err)
		}
	}

	out := make([]result.Candidate, 0, len(ids))
	for _, id := range ids {
		s, ok := found[id]
		if !ok {
			r.drop(dropMissing)
			r.logger.Warn("Indexed scheme missing from store",
				zap.String("scheme_id", id), zap.String("need", need))
			continue
		}
		if !s.IsActive() {
			r.drop(dropInactive)
			r.logger.Debug("Skipping inactive scheme", zap.String("scheme_id", id))
			continue
		}
		out = append(out, result.Candidate{
			SchemeID:    id,
			Scheme:      s,
			VectorScore: Similarity(distances[id]),
			Query:       need,
		})
	}

	r.cache.Put(need, breadth, out)
	return result.Clone(out), nil
}

func (r *Retriever) drop(reason string) {
	if r.dropped != nil {
		r.dropped.WithLabelValues(reason).Inc()
	}
}
