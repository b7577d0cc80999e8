package ingest

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/kailas-cloud/schemefinder/internal/domain"
	"github.com/kailas-cloud/schemefinder/internal/domain/batch"
	"github.com/kailas-cloud/schemefinder/internal/domain/scheme"
)

// DefaultChunkSize is the number of schemes embedded and written per round.
const DefaultChunkSize = 64

// Service is the curation pipeline: validate, embed, then write the record
// and its vector.
type Service struct {
	schemes   SchemeStore
	vectors   VectorStore
	embed     domain.Embedder
	chunkSize int
	logger    *zap.Logger
}

// New creates an ingest service. chunkSize <= 0 uses DefaultChunkSize.
func New(schemes SchemeStore, vectors VectorStore, embed domain.Embedder, chunkSize int, logger *zap.Logger) *Service {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Service{schemes: schemes, vectors: vectors, embed: embed, chunkSize: chunkSize, logger: logger}
}

// EnsureIndex creates the vector index if it does not exist.
func (s *Service) EnsureIndex(ctx context.Context) (bool, error) {
	created, err := s.vectors.EnsureIndex(ctx)
	if err != nil {
		return false, fmt.Errorf("ensure index: %w", err)
	}
	return created, nil
}

// Ingest validates and stores records. Invalid records and failed chunks are
// reported per item; the run continues past them. A later duplicate of an id
// in the same input is rejected.
func (s *Service) Ingest(ctx context.Context, records []Record) (batch.Report, error) {
	var rep batch.Report
	valid := make([]scheme.Scheme, 0, len(records))
	seen := make(map[string]struct{}, len(records))

	for i := range records {
		sc, err := records[i].ToScheme()
		if err != nil {
			rep.Add(batch.NewError(records[i].ID, fmt.Errorf("%w: %w", domain.ErrInvalidScheme, err)))
			continue
		}
		if _, dup := seen[sc.ID()]; dup {
			rep.Add(batch.NewError(sc.ID(), fmt.Errorf("%w: duplicate id", domain.ErrInvalidScheme)))
			continue
		}
		seen[sc.ID()] = struct{}{}
		valid = append(valid, sc)
	}

	for chunk := range slices.Chunk(valid, s.chunkSize) {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		s.writeChunk(ctx, chunk, true, &rep)
	}

	s.logger.Info("Ingest completed",
		zap.Int("records", len(records)),
		zap.Int("succeeded", rep.Succeeded()),
		zap.Int("failed", len(rep.Failed())),
	)
	return rep, nil
}

// Reindex re-embeds every stored scheme and rewrites its vector. Use it
// after changing the embedding model.
func (s *Service) Reindex(ctx context.Context) (batch.Report, error) {
	var rep batch.Report

	ids, err := s.schemes.ListIDs(ctx)
	if err != nil {
		return rep, fmt.Errorf("list schemes: %w", err)
	}

	for chunk := range slices.Chunk(ids, s.chunkSize) {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		found, err := s.schemes.BatchGet(ctx, chunk)
		if err != nil {
			rep.Fail(chunk, fmt.Errorf("load schemes: %w", err))
			continue
		}
		loaded := make([]scheme.Scheme, 0, len(chunk))
		for _, id := range chunk {
			if sc, ok := found[id]; ok {
				loaded = append(loaded, sc)
			} else {
				rep.Add(batch.NewError(id, domain.ErrNotFound))
			}
		}
		s.writeChunk(ctx, loaded, false, &rep)
	}

	s.logger.Info("Reindex completed",
		zap.Int("schemes", len(ids)),
		zap.Int("succeeded", rep.Succeeded()),
		zap.Int("failed", len(rep.Failed())),
	)
	return rep, nil
}

// writeChunk embeds the chunk and writes vectors, plus records when
// withRecords is set. Records go first so an indexed vector always has one.
func (s *Service) writeChunk(ctx context.Context, chunk []scheme.Scheme, withRecords bool, rep *batch.Report) {
	if len(chunk) == 0 {
		return
	}
	ids := make([]string, len(chunk))
	texts := make([]string, len(chunk))
	for i := range chunk {
		ids[i] = chunk[i].ID()
		texts[i] = chunk[i].SearchableText()
	}

	emb, err := domain.BatchEmbed(ctx, s.embed, texts)
	if err != nil {
		s.logger.Error("Embedding chunk failed", zap.Strings("scheme_ids", ids), zap.Error(err))
		rep.Fail(ids, fmt.Errorf("embed: %w", err))
		return
	}
	if len(emb.Embeddings) != len(chunk) {
		rep.Fail(ids, fmt.Errorf("embed: got %d vectors for %d schemes", len(emb.Embeddings), len(chunk)))
		return
	}

	if withRecords {
		if err := s.schemes.UpsertMulti(ctx, chunk); err != nil {
			rep.Fail(ids, fmt.Errorf("write records: %w", err))
			return
		}
	}

	rows := make([]scheme.VectorRow, len(chunk))
	for i := range chunk {
		rows[i] = scheme.VectorRow{SchemeID: ids[i], Status: chunk[i].Status(), Vector: emb.Embeddings[i]}
	}
	if err := s.vectors.Upsert(ctx, rows); err != nil {
		rep.Fail(ids, fmt.Errorf("write vectors: %w", err))
		return
	}

	for _, id := range ids {
		rep.Add(batch.NewOK(id))
	}
}
