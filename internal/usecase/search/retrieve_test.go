package search

import (
	"context"
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/schemefinder/internal/domain/scheme"
	"github.com/kailas-cloud/schemefinder/internal/domain/search/result"
)

func TestRetrieve_ScoresAndOrder(t *testing.T) {
	f := newFixture()
	f.need("rent", []result.Neighbor{
		{IndexID: "vec:a", SchemeID: "a", Distance: 0.1},
		{IndexID: "vec:b", SchemeID: "b", Distance: 0.4},
	})
	f.add(activeScheme("a", "A"), activeScheme("b", "B"))

	got, err := f.retriever().Retrieve(context.Background(), "rent", 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(result.Ranked(got).IDs(), []string{"a", "b"}) {
		t.Fatalf("unexpected ids %v", result.Ranked(got).IDs())
	}
	if math.Abs(got[0].VectorScore-math.Exp(-0.1)) > 1e-12 {
		t.Errorf("unexpected vector score %g", got[0].VectorScore)
	}
	if got[0].VectorScore <= got[1].VectorScore {
		t.Error("closer neighbour should score higher")
	}
	if got[0].Query != "rent" || got[0].Score != 0 || got[0].LexicalScore != 0 {
		t.Errorf("unexpected candidate %+v", got[0])
	}
}

func TestRetrieve_CacheHitSkipsCollaborators(t *testing.T) {
	f := newFixture()
	f.need("rent", neighbors(0.2, "a"))
	f.add(activeScheme("a", "A"))
	r := f.retriever()

	if _, err := r.Retrieve(context.Background(), "rent", 20); err != nil {
		t.Fatalf("first call: %v", err)
	}
	got, err := r.Retrieve(context.Background(), "rent", 20)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if f.embed.calls != 1 || f.schemes.calls != 1 {
		t.Errorf("expected one embed and one batch get, got %d and %d", f.embed.calls, f.schemes.calls)
	}
	if len(got) != 1 || got[0].SchemeID != "a" {
		t.Errorf("unexpected cached fragment %v", got)
	}

	// Different breadth is a different key.
	if _, err := r.Retrieve(context.Background(), "rent", 5); err != nil {
		t.Fatalf("third call: %v", err)
	}
	if f.embed.calls != 2 {
		t.Errorf("expected a second embed for a new breadth, got %d", f.embed.calls)
	}
}

func TestRetrieve_DropsInconsistentRows(t *testing.T) {
	f := newFixture()
	f.need("rent", []result.Neighbor{
		{IndexID: "vec:orphan", Distance: 0.1},
		{IndexID: "vec:a", SchemeID: "a", Distance: 0.2},
		{IndexID: "vec:gone", SchemeID: "gone", Distance: 0.3},
		{IndexID: "vec:old", SchemeID: "old", Distance: 0.4},
		{IndexID: "vec:a2", SchemeID: "a", Distance: 0.5},
	})
	f.add(activeScheme("a", "A"),
		scheme.Reconstruct("old", "Old", "", "", "", nil, scheme.Inactive))

	dropped := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "dropped"}, []string{"reason"})
	r := NewRetriever(f.embed, f.index, f.schemes, f.cache, dropped, zap.NewNop())

	got, err := r.Retrieve(context.Background(), "rent", 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(result.Ranked(got).IDs(), []string{"a"}) {
		t.Errorf("expected only a, got %v", result.Ranked(got).IDs())
	}
	if math.Abs(got[0].VectorScore-math.Exp(-0.2)) > 1e-12 {
		t.Errorf("duplicate neighbour should keep the closest distance, got %g", got[0].VectorScore)
	}
	for reason, want := range map[string]float64{dropUnmapped: 1, dropMissing: 1, dropInactive: 1} {
		if v := testutil.ToFloat64(dropped.WithLabelValues(reason)); v != want {
			t.Errorf("%s drops: expected %g, got %g", reason, want, v)
		}
	}
}

func TestRetrieve_NoNeighbours(t *testing.T) {
	f := newFixture()
	f.need("rent", nil)

	got, err := f.retriever().Retrieve(context.Background(), "rent", 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 || f.schemes.calls != 0 {
		t.Errorf("expected empty fragment without a batch get, got %v (%d calls)", got, f.schemes.calls)
	}
}

func TestRetrieve_CollaboratorErrors(t *testing.T) {
	errBoom := errors.New("boom")

	tests := []struct {
		name  string
		setup func(f *fixture)
	}{
		{"embed", func(f *fixture) { f.embed.err = errBoom }},
		{"nearest", func(f *fixture) { f.index.err = errBoom }},
		{"batch get", func(f *fixture) { f.schemes.err = errBoom }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.need("rent", neighbors(0.1, "a"))
			f.add(activeScheme("a", "A"))
			tt.setup(f)

			_, err := f.retriever().Retrieve(context.Background(), "rent", 20)
			if !errors.Is(err, errBoom) {
				t.Errorf("expected wrapped error, got %v", err)
			}
			if f.cache.puts != 0 {
				t.Error("failed retrieval must not be cached")
			}
		})
	}
}

func TestSimilarity_Decreasing(t *testing.T) {
	if Similarity(0) != 1 {
		t.Errorf("expected 1 at distance 0, got %g", Similarity(0))
	}
	if Similarity(0.5) <= Similarity(1.5) {
		t.Error("similarity must decrease with distance")
	}
}
