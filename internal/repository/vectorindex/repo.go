// Package vectorindex is the nearest-neighbour adapter over FT.SEARCH KNN.
package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/schemefinder/internal/db"
	"github.com/kailas-cloud/schemefinder/internal/db/redis"
	"github.com/kailas-cloud/schemefinder/internal/domain"
	domscheme "github.com/kailas-cloud/schemefinder/internal/domain/scheme"
	"github.com/kailas-cloud/schemefinder/internal/domain/search/result"
)

// Hash field names of a vector row.
const (
	FieldSchemeID = "scheme_id"
	FieldStatus   = "status"
	FieldVector   = "vector"
)

// store is the consumer interface for the vector index (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	Del(ctx context.Context, key string) error
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Config describes the FT index holding scheme vectors.
type Config struct {
	KeyPrefix string
	IndexName string
	Dimension int
	Distance  db.DistanceMetric
	// HNSW tuning; zero keeps engine defaults.
	M              int
	EFConstruction int
}

// VectorRow is one vector to write.
type VectorRow = domscheme.VectorRow

// Repo stores one hash per scheme vector under an FT vector index.
type Repo struct {
	store store
	cfg   Config
	rowNS string
}

// New creates a vector index repository.
func New(s store, cfg Config) *Repo {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = domain.DefaultKeyPrefix
	}
	if cfg.IndexName == "" {
		cfg.IndexName = strings.TrimSuffix(cfg.KeyPrefix, ":") + ":vectors"
	}
	if cfg.Distance == "" {
		cfg.Distance = db.DistanceCosine
	}
	return &Repo{store: s, cfg: cfg, rowNS: cfg.KeyPrefix + "vec:"}
}

// Nearest returns up to k neighbours of vec, closest first. Inactive rows are
// pre-filtered so they do not consume breadth.
func (r *Repo) Nearest(ctx context.Context, vec []float32, k int) ([]result.Neighbor, error) {
	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.cfg.IndexName,
		VectorField:  FieldVector,
		TagFilters:   map[string]string{FieldStatus: string(domscheme.Active)},
		Vector:       vec,
		K:            k,
		ReturnFields: []string{FieldSchemeID},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrVectorIndexUnavailable, err)
	}

	out := make([]result.Neighbor, 0, len(res.Entries))
	for _, e := range res.Entries {
		out = append(out, result.Neighbor{
			IndexID:  e.Key,
			SchemeID: e.Fields[FieldSchemeID],
			Distance: e.Distance,
		})
	}
	return out, nil
}

// Upsert writes vector rows in one round-trip.
func (r *Repo) Upsert(ctx context.Context, rows []VectorRow) error {
	items := make([]db.HashSetItem, 0, len(rows))
	for _, row := range rows {
		if len(row.Vector) != r.cfg.Dimension && r.cfg.Dimension > 0 {
			return fmt.Errorf("scheme %s: vector has %d dims, index expects %d",
				row.SchemeID, len(row.Vector), r.cfg.Dimension)
		}
		status := row.Status
		if status == "" {
			status = domscheme.Active
		}
		items = append(items, db.HashSetItem{
			Key: r.rowKey(row.SchemeID),
			Fields: map[string]string{
				FieldSchemeID: row.SchemeID,
				FieldStatus:   string(status),
				FieldVector:   redis.VectorToBytes(row.Vector),
			},
		})
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("write vectors: %w", err)
	}
	return nil
}

// Delete removes the vector row of a scheme.
func (r *Repo) Delete(ctx context.Context, schemeID string) error {
	if err := r.store.Del(ctx, r.rowKey(schemeID)); err != nil {
		return fmt.Errorf("delete vector %s: %w", schemeID, err)
	}
	return nil
}

// EnsureIndex creates the FT index when it is missing. Returns true if it was created.
func (r *Repo) EnsureIndex(ctx context.Context) (bool, error) {
	exists, err := r.store.IndexExists(ctx, r.cfg.IndexName)
	if err != nil {
		return false, fmt.Errorf("check index %s: %w", r.cfg.IndexName, err)
	}
	if exists {
		return false, nil
	}

	def, err := r.Definition()
	if err != nil {
		return false, err
	}
	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return false, nil
		}
		return false, fmt.Errorf("create index %s: %w", r.cfg.IndexName, err)
	}
	return true, nil
}

// HealthCheck fails when the FT index is missing or unreachable.
func (r *Repo) HealthCheck(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, r.cfg.IndexName)
	if err != nil {
		return fmt.Errorf("check index %s: %w", r.cfg.IndexName, err)
	}
	if !exists {
		return fmt.Errorf("index %s: %w", r.cfg.IndexName, db.ErrIndexNotFound)
	}
	return nil
}

// DropIndex removes the FT index; vector rows stay in place.
func (r *Repo) DropIndex(ctx context.Context) error {
	if err := r.store.DropIndex(ctx, r.cfg.IndexName); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index %s: %w", r.cfg.IndexName, err)
	}
	return nil
}

// Definition builds the FT.CREATE definition for the configured index.
func (r *Repo) Definition() (*db.IndexDefinition, error) {
	def, err := db.NewIndex(r.cfg.IndexName).
		Prefix(r.rowNS).
		Tag(FieldStatus).
		VectorHNSW(FieldVector, r.cfg.Dimension, r.cfg.Distance, r.cfg.M, r.cfg.EFConstruction).
		Build()
	if err != nil {
		return nil, fmt.Errorf("index definition: %w", err)
	}
	return def, nil
}

func (r *Repo) rowKey(schemeID string) string {
	return r.rowNS + schemeID
}
