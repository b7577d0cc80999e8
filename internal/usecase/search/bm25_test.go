package search

import (
	"math"
	"testing"

	"github.com/kailas-cloud/schemefinder/internal/domain/scheme"
)

func bm25Corpus() []scheme.Scheme {
	return []scheme.Scheme{
		scheme.Reconstruct("rent", "Emergency Rent Relief", "Housing Office",
			"One-off rent payments for families facing eviction", "", []string{"housing"}, scheme.Active),
		scheme.Reconstruct("food", "Food Bank Network", "Community Trust",
			"Weekly food parcels", "", []string{"food"}, scheme.Active),
		scheme.Reconstruct("energy", "Winter Energy Grant", "Energy Agency",
			"Help with heating bills", "", nil, scheme.Active),
	}
}

func TestScoreBM25_RanksMatchingDocument(t *testing.T) {
	scores := ScoreBM25("help paying rent", bm25Corpus())

	if len(scores) != 3 {
		t.Fatalf("expected a score per scheme, got %v", scores)
	}
	if scores["rent"] <= scores["energy"] {
		t.Errorf("rent should outscore energy: %v", scores)
	}
	if scores["food"] != 0 {
		t.Errorf("food shares no terms, expected 0, got %g", scores["food"])
	}
}

func TestScoreBM25_TermFrequencySaturates(t *testing.T) {
	corpus := []scheme.Scheme{
		scheme.Reconstruct("one", "grant", "", "", "", nil, scheme.Active),
		scheme.Reconstruct("many", "grant grant grant grant", "", "", "", nil, scheme.Active),
		scheme.Reconstruct("none", "loan", "", "", "", nil, scheme.Active),
	}
	scores := ScoreBM25("grant", corpus)
	if scores["many"] <= scores["one"] {
		t.Errorf("higher frequency should score higher: %v", scores)
	}
	if scores["many"] >= 4*scores["one"] {
		t.Errorf("frequency should saturate: %v", scores)
	}
}

func TestScoreBM25_KnownValue(t *testing.T) {
	corpus := []scheme.Scheme{
		scheme.Reconstruct("a", "grant", "", "", "", nil, scheme.Active),
		scheme.Reconstruct("b", "loan", "", "", "", nil, scheme.Active),
	}
	// N=2, df=1, equal lengths: idf*(k1+1)/(1+k1).
	want := math.Log((2-1+0.5)/(1+0.5) + 1)
	got := ScoreBM25("grant", corpus)["a"]
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("expected %g, got %g", want, got)
	}
}

func TestScoreBM25_Empty(t *testing.T) {
	if got := ScoreBM25("rent", nil); len(got) != 0 {
		t.Errorf("expected empty map, got %v", got)
	}
	scores := ScoreBM25("", bm25Corpus())
	for id, s := range scores {
		if s != 0 {
			t.Errorf("empty need scored %s = %g", id, s)
		}
	}
}

func TestNewLexicalScorer_Defaults(t *testing.T) {
	s := NewLexicalScorer(-1, 2)
	if s.k1 != DefaultBM25K1 || s.b != DefaultBM25B {
		t.Errorf("expected defaults, got k1=%g b=%g", s.k1, s.b)
	}
}
