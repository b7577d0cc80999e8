package schemefinder

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/schemefinder/internal/domain"
	"github.com/kailas-cloud/schemefinder/internal/domain/batch"
	domscheme "github.com/kailas-cloud/schemefinder/internal/domain/scheme"
	"github.com/kailas-cloud/schemefinder/internal/domain/search/request"
	healthuc "github.com/kailas-cloud/schemefinder/internal/usecase/health"
	"github.com/kailas-cloud/schemefinder/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/schemefinder/internal/usecase/search"
)

// --- Embedders ---

type mockEmbedder struct {
	fn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}

type mockBatchEmbedder struct {
	batches int
}

func (m *mockBatchEmbedder) Embed(context.Context, string) (EmbeddingResult, error) {
	return EmbeddingResult{Embedding: []float32{1}}, nil
}

func (m *mockBatchEmbedder) BatchEmbed(_ context.Context, texts []string) (BatchEmbeddingResult, error) {
	m.batches++
	out := BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}
	for i := range texts {
		out.Embeddings[i] = []float32{float32(i)}
	}
	return out, nil
}

// --- Use cases ---

type mockSearchUC struct {
	got  *request.Request
	resp searchuc.Response
	err  error
}

func (m *mockSearchUC) Search(_ context.Context, req *request.Request) (searchuc.Response, error) {
	m.got = req
	return m.resp, m.err
}

type mockSchemes struct {
	byID map[string]domscheme.Scheme
}

func (m *mockSchemes) Get(_ context.Context, id string) (domscheme.Scheme, error) {
	s, ok := m.byID[id]
	if !ok {
		return domscheme.Scheme{}, fmt.Errorf("scheme %s: %w", id, domain.ErrNotFound)
	}
	return s, nil
}

type mockIngestUC struct {
	records []ingest.Record
	report  batch.Report
	err     error
	ensured bool
}

func (m *mockIngestUC) EnsureIndex(context.Context) (bool, error) {
	m.ensured = true
	return true, m.err
}

func (m *mockIngestUC) Ingest(_ context.Context, records []ingest.Record) (batch.Report, error) {
	m.records = records
	return m.report, m.err
}

func (m *mockIngestUC) Reindex(context.Context) (batch.Report, error) {
	return m.report, m.err
}

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(context.Context) healthuc.Report { return m.report }

// --- helpers ---

func testClient(search searchUseCase, schemes schemeReader, ing ingestUseCase, health healthUseCase) *Client {
	return &Client{
		searchSvc: search,
		schemes:   schemes,
		ingestSvc: ing,
		healthSvc: health,
	}
}
