// Package result holds the scored candidates produced by retrieval.
package result

import (
	"cmp"
	"slices"

	"github.com/kailas-cloud/schemefinder/internal/domain/scheme"
)

// Band bounds.
const (
	MinBand = 0
	MaxBand = 4
)

// Candidate is one scheme scored for one need (or merged across needs).
type Candidate struct {
	SchemeID     string
	Scheme       scheme.Scheme
	VectorScore  float64
	LexicalScore float64
	Score        float64 // combined
	Query        string  // originating need
	Band         int
}

// Neighbor is one nearest-neighbour hit. SchemeID is empty when the index
// row has lost its mapping.
type Neighbor struct {
	IndexID  string
	SchemeID string
	Distance float64
}

// Ranked is deduplicated by scheme id and ordered by Less.
type Ranked []Candidate

// Less is the ranking order: score descending, scheme id ascending on ties.
func Less(a, b *Candidate) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.SchemeID < b.SchemeID
}

// Compare adapts Less for slices.SortFunc.
func Compare(a, b Candidate) int {
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	return cmp.Compare(a.SchemeID, b.SchemeID)
}

// Sort orders r in place.
func (r Ranked) Sort() {
	slices.SortStableFunc(r, Compare)
}

// IDs returns scheme ids in rank order.
func (r Ranked) IDs() []string {
	ids := make([]string, len(r))
	for i := range r {
		ids[i] = r[i].SchemeID
	}
	return ids
}

// Clone copies the fragment so cached slices are never aliased by callers.
func Clone(c []Candidate) []Candidate {
	if c == nil {
		return nil
	}
	return slices.Clone(c)
}
