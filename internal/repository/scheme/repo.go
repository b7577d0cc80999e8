// Package scheme is the document-store adapter for scheme records.
package scheme

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/schemefinder/internal/db"
	"github.com/kailas-cloud/schemefinder/internal/domain"
	domscheme "github.com/kailas-cloud/schemefinder/internal/domain/scheme"
)

// DefaultChunkSize bounds the ids sent in one batched read.
const DefaultChunkSize = 30

// store is the consumer interface for scheme records (ISP).
type store interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	JSONSetMulti(ctx context.Context, items []db.JSONSetItem) error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	JSONMGet(ctx context.Context, keys []string, path string) ([][]byte, error)
	Del(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo reads and writes scheme records as JSON documents.
type Repo struct {
	store     store
	keyPrefix string
	chunkSize int
	logger    *zap.Logger
}

// New creates a scheme repository. chunkSize <= 0 uses DefaultChunkSize.
func New(s store, keyPrefix string, chunkSize int, logger *zap.Logger) *Repo {
	if logger == nil {
		logger = zap.NewNop()
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if keyPrefix == "" {
		keyPrefix = domain.DefaultKeyPrefix
	}
	return &Repo{store: s, keyPrefix: keyPrefix + "scheme:", chunkSize: chunkSize, logger: logger}
}

// Get returns one scheme by id.
func (r *Repo) Get(ctx context.Context, id string) (domscheme.Scheme, error) {
	raw, err := r.store.JSONGet(ctx, r.key(id), "$")
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domscheme.Scheme{}, fmt.Errorf("scheme %s: %w", id, domain.ErrNotFound)
		}
		return domscheme.Scheme{}, fmt.Errorf("json.get scheme %s: %w", id, err)
	}
	doc, err := parsePathResult(raw)
	if err != nil {
		return domscheme.Scheme{}, fmt.Errorf("scheme %s: %w", id, err)
	}
	return doc.toDomain(), nil
}

// BatchGet fetches schemes in chunks. Ids absent from the store, or whose
// record does not decode, are missing from the returned map; the caller
// decides how to report them.
func (r *Repo) BatchGet(ctx context.Context, ids []string) (map[string]domscheme.Scheme, error) {
	out := make(map[string]domscheme.Scheme, len(ids))
	for chunk := range slices.Chunk(ids, r.chunkSize) {
		keys := make([]string, len(chunk))
		for i, id := range chunk {
			keys[i] = r.key(id)
		}

		raws, err := r.store.JSONMGet(ctx, keys, "$")
		if err != nil {
			return nil, fmt.Errorf("batch get schemes: %w", err)
		}

		for i, raw := range raws {
			if raw == nil {
				continue
			}
			doc, err := parsePathResult(raw)
			if err != nil {
				r.logger.Warn("Skipping corrupt scheme record",
					zap.String("scheme_id", chunk[i]), zap.Error(err))
				continue
			}
			out[chunk[i]] = doc.toDomain()
		}
	}
	return out, nil
}

// Upsert writes one scheme record.
func (r *Repo) Upsert(ctx context.Context, s *domscheme.Scheme) error {
	data, err := json.Marshal(toDoc(s))
	if err != nil {
		return fmt.Errorf("marshal scheme: %w", err)
	}
	if err := r.store.JSONSet(ctx, r.key(s.ID()), "$", data); err != nil {
		return fmt.Errorf("json.set scheme %s: %w", s.ID(), err)
	}
	return nil
}

// UpsertMulti writes several scheme records in one round-trip.
func (r *Repo) UpsertMulti(ctx context.Context, schemes []domscheme.Scheme) error {
	items := make([]db.JSONSetItem, 0, len(schemes))
	for i := range schemes {
		data, err := json.Marshal(toDoc(&schemes[i]))
		if err != nil {
			return fmt.Errorf("marshal scheme %s: %w", schemes[i].ID(), err)
		}
		items = append(items, db.JSONSetItem{Key: r.key(schemes[i].ID()), Path: "$", Data: data})
	}
	if err := r.store.JSONSetMulti(ctx, items); err != nil {
		return fmt.Errorf("json.set schemes: %w", err)
	}
	return nil
}

// Delete removes a scheme record.
func (r *Repo) Delete(ctx context.Context, id string) error {
	if err := r.store.Del(ctx, r.key(id)); err != nil {
		return fmt.Errorf("delete scheme %s: %w", id, err)
	}
	return nil
}

// ListIDs returns every stored scheme id, sorted.
func (r *Repo) ListIDs(ctx context.Context) ([]string, error) {
	keys, err := r.store.Scan(ctx, r.keyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("scan schemes: %w", err)
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		if id, ok := strings.CutPrefix(k, r.keyPrefix); ok && id != "" {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return slices.Compact(ids), nil
}

func (r *Repo) key(id string) string {
	return r.keyPrefix + id
}
