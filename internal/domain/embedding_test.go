package domain

import (
	"context"
	"errors"
	"testing"
)

type fakeEmbedder struct {
	vec   []float32
	err   error
	texts []string
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	f.texts = append(f.texts, text)
	if f.err != nil {
		return EmbeddingResult{}, f.err
	}
	return EmbeddingResult{Embedding: f.vec, PromptTokens: 2, TotalTokens: 2}, nil
}

type fakeBatchEmbedder struct {
	fakeEmbedder
	batchTexts []string
	batchErr   error
}

func (f *fakeBatchEmbedder) BatchEmbed(_ context.Context, texts []string) (BatchEmbeddingResult, error) {
	f.batchTexts = texts
	if f.batchErr != nil {
		return BatchEmbeddingResult{}, f.batchErr
	}
	out := BatchEmbeddingResult{TotalTokens: 10 * len(texts)}
	for range texts {
		out.Embeddings = append(out.Embeddings, []float32{1})
	}
	return out, nil
}

func TestInstructionEmbedder_Embed(t *testing.T) {
	inner := &fakeEmbedder{vec: []float32{0.1, 0.2}}
	e := NewInstructionEmbedder(inner, "query: ")

	res, err := e.Embed(context.Background(), "housing support")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.texts[0] != "query: housing support" {
		t.Errorf("expected instruction prefix, got %q", inner.texts[0])
	}
	if len(res.Embedding) != 2 {
		t.Errorf("expected 2 dims, got %d", len(res.Embedding))
	}
}

func TestInstructionEmbedder_EmbedError(t *testing.T) {
	boom := errors.New("provider down")
	e := NewInstructionEmbedder(&fakeEmbedder{err: boom}, "query: ")

	if _, err := e.Embed(context.Background(), "x"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped provider error, got %v", err)
	}
}

func TestBatchEmbed_UsesNativeBatch(t *testing.T) {
	inner := &fakeBatchEmbedder{}
	e := NewInstructionEmbedder(inner, "doc: ")

	res, err := e.BatchEmbed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inner.texts) != 0 {
		t.Errorf("single Embed should not be called, got %v", inner.texts)
	}
	if inner.batchTexts[0] != "doc: a" || inner.batchTexts[1] != "doc: b" {
		t.Errorf("expected prefixed batch, got %v", inner.batchTexts)
	}
	if res.TotalTokens != 20 {
		t.Errorf("expected 20 tokens, got %d", res.TotalTokens)
	}
}

func TestBatchEmbed_FallsBackToSingle(t *testing.T) {
	inner := &fakeEmbedder{vec: []float32{0.5}}

	res, err := BatchEmbed(context.Background(), inner, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 3 || len(inner.texts) != 3 {
		t.Fatalf("expected 3 single calls, got %d embeddings / %d calls", len(res.Embeddings), len(inner.texts))
	}
	if res.TotalTokens != 6 || res.PromptTokens != 6 {
		t.Errorf("expected summed usage 6/6, got %d/%d", res.TotalTokens, res.PromptTokens)
	}
}

func TestBatchFallback_StopsOnError(t *testing.T) {
	boom := errors.New("fail")
	inner := &fakeEmbedder{err: boom}

	if _, err := BatchFallback(context.Background(), inner, []string{"a", "b"}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	if len(inner.texts) != 1 {
		t.Errorf("expected to stop after first failure, got %d calls", len(inner.texts))
	}
}

func TestBatchEmbed_NativeError(t *testing.T) {
	boom := errors.New("batch fail")
	inner := &fakeBatchEmbedder{batchErr: boom}

	if _, err := BatchEmbed(context.Background(), inner, []string{"a"}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}
