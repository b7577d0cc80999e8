package search

import (
	"fmt"
	"math"
	"slices"
	"testing"

	"github.com/kailas-cloud/schemefinder/internal/domain/search/result"
)

func cand(id string, vector float64) result.Candidate {
	return result.Candidate{SchemeID: id, Scheme: activeScheme(id, id), VectorScore: vector}
}

func findRow(t *testing.T, r result.Ranked, id string) result.Candidate {
	t.Helper()
	for _, c := range r {
		if c.SchemeID == id {
			return c
		}
	}
	t.Fatalf("scheme %s not in results %v", id, r.IDs())
	return result.Candidate{}
}

func TestCombineAndRank_SumRewardsSharedSchemes(t *testing.T) {
	w := DefaultWeights
	needs := []NeedResult{
		{
			Need:       "i need financial help",
			Candidates: []result.Candidate{cand("both", 0.8), cand("fin", 0.8)},
			Lexical:    map[string]float64{"both": 1.0, "fin": 1.0},
		},
		{
			Need:       "i need housing support",
			Candidates: []result.Candidate{cand("both", 0.6), cand("house", 0.5)},
			Lexical:    map[string]float64{"both": 0.5},
		},
	}

	ranked := CombineAndRank(needs, 0, w, MergeSum)

	both := findRow(t, ranked, "both")
	want := w.Combine(0.8, 1.0) + w.Combine(0.6, 0.5)
	if math.Abs(both.Score-want) > 1e-12 {
		t.Errorf("expected summed score %g, got %g", want, both.Score)
	}
	if both.Query != "i need financial help" {
		t.Errorf("expected strongest need as query, got %q", both.Query)
	}
	if ranked[0].SchemeID != "both" {
		t.Errorf("shared scheme should rank first, got %v", ranked.IDs())
	}
	if len(ranked) != 3 {
		t.Errorf("expected 3 deduplicated rows, got %v", ranked.IDs())
	}
}

func TestCombineAndRank_Monotonic(t *testing.T) {
	a := []result.Candidate{cand("x", 0.3)}
	b := []result.Candidate{cand("x", 0.9)}
	needs := []NeedResult{
		{Need: "a", Candidates: a, Lexical: map[string]float64{"x": 2}},
		{Need: "b", Candidates: b, Lexical: map[string]float64{}},
	}
	scoreA := DefaultWeights.Combine(0.3, 2)
	scoreB := DefaultWeights.Combine(0.9, 0)

	for _, p := range []MergePolicy{MergeSum, MergeMax} {
		ranked := CombineAndRank(needs, 0, DefaultWeights, p)
		if len(ranked) != 1 {
			t.Fatalf("%s: expected one row, got %d", p, len(ranked))
		}
		if ranked[0].Score < max(scoreA, scoreB) {
			t.Errorf("%s: merged %g below max(%g, %g)", p, ranked[0].Score, scoreA, scoreB)
		}
	}
}

func TestCombineAndRank_MaxPolicy(t *testing.T) {
	needs := []NeedResult{
		{Need: "a", Candidates: []result.Candidate{cand("x", 0.5)}},
		{Need: "b", Candidates: []result.Candidate{cand("x", 0.9)}},
	}
	ranked := CombineAndRank(needs, 0, Weights{Vector: 1}, MergeMax)
	if ranked[0].Score != 0.9 || ranked[0].Query != "b" {
		t.Errorf("unexpected merged row %+v", ranked[0])
	}
}

func TestCombineAndRank_TiesBySchemeID(t *testing.T) {
	needs := []NeedResult{{
		Need:       "n",
		Candidates: []result.Candidate{cand("c", 0.5), cand("a", 0.5), cand("b", 0.5), cand("z", 0.9)},
	}}
	first := CombineAndRank(needs, 0, DefaultWeights, MergeSum)
	second := CombineAndRank(needs, 0, DefaultWeights, MergeSum)

	want := []string{"z", "a", "b", "c"}
	if !slices.Equal(first.IDs(), want) {
		t.Errorf("expected %v, got %v", want, first.IDs())
	}
	if !slices.Equal(first.IDs(), second.IDs()) {
		t.Errorf("ranking not deterministic: %v vs %v", first.IDs(), second.IDs())
	}
}

func TestCombineAndRank_QuintileBands(t *testing.T) {
	var cs []result.Candidate
	for i := 1; i <= 10; i++ {
		cs = append(cs, cand(fmt.Sprintf("s%02d", i), float64(i)))
	}
	ranked := CombineAndRank([]NeedResult{{Need: "n", Candidates: cs}}, 0, Weights{Vector: 1}, MergeSum)

	wantBands := map[string]int{
		"s01": 0, "s02": 0, "s03": 1, "s04": 1, "s05": 2,
		"s06": 2, "s07": 3, "s08": 3, "s09": 4, "s10": 4,
	}
	for _, c := range ranked {
		if c.Band != wantBands[c.SchemeID] {
			t.Errorf("%s: expected band %d, got %d", c.SchemeID, wantBands[c.SchemeID], c.Band)
		}
	}
}

func TestCombineAndRank_FewDistinctScoresUseDenseRank(t *testing.T) {
	cs := []result.Candidate{cand("a", 1), cand("b", 1), cand("c", 2), cand("d", 3)}
	ranked := CombineAndRank([]NeedResult{{Need: "n", Candidates: cs}}, 0, Weights{Vector: 1}, MergeSum)

	want := map[string]int{"d": 2, "c": 1, "a": 0, "b": 0}
	for _, c := range ranked {
		if c.Band != want[c.SchemeID] {
			t.Errorf("%s: expected band %d, got %d", c.SchemeID, want[c.SchemeID], c.Band)
		}
	}
}

func TestCombineAndRank_Threshold(t *testing.T) {
	var cs []result.Candidate
	for i := 1; i <= 10; i++ {
		cs = append(cs, cand(fmt.Sprintf("s%02d", i), float64(i)))
	}
	needs := []NeedResult{{Need: "n", Candidates: cs}}

	ranked := CombineAndRank(needs, 3, Weights{Vector: 1}, MergeSum)
	if !slices.Equal(ranked.IDs(), []string{"s10", "s09", "s08", "s07"}) {
		t.Errorf("unexpected rows above band 3: %v", ranked.IDs())
	}

	// Out-of-range thresholds are clamped.
	if got := CombineAndRank(needs, 99, Weights{Vector: 1}, MergeSum); len(got) != 2 {
		t.Errorf("expected band 4 only, got %v", got.IDs())
	}
	if got := CombineAndRank(needs, -5, Weights{Vector: 1}, MergeSum); len(got) != 10 {
		t.Errorf("expected everything, got %v", got.IDs())
	}
}

func TestCombineAndRank_Empty(t *testing.T) {
	if got := CombineAndRank(nil, 0, DefaultWeights, MergeSum); len(got) != 0 {
		t.Errorf("expected empty ranking, got %v", got.IDs())
	}
}

func TestParseMergePolicy(t *testing.T) {
	for in, want := range map[string]MergePolicy{"": MergeSum, "sum": MergeSum, "max": MergeMax} {
		got, err := ParseMergePolicy(in)
		if err != nil || got != want {
			t.Errorf("ParseMergePolicy(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseMergePolicy("avg"); err == nil {
		t.Error("expected error for unknown policy")
	}
}

func TestWeights_Validate(t *testing.T) {
	if err := DefaultWeights.Validate(); err != nil {
		t.Errorf("default weights invalid: %v", err)
	}
	if err := (Weights{Vector: -0.1, Lexical: 1}).Validate(); err == nil {
		t.Error("expected error for negative weight")
	}
}
