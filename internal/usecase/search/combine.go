package search

import (
	"fmt"
	"slices"

	"github.com/kailas-cloud/schemefinder/internal/domain/search/request"
	"github.com/kailas-cloud/schemefinder/internal/domain/search/result"
)

// MergePolicy decides how one scheme's scores from several needs combine.
type MergePolicy string

const (
	// MergeSum adds per-need scores, rewarding schemes relevant to several needs.
	MergeSum MergePolicy = "sum"
	// MergeMax keeps the best per-need score.
	MergeMax MergePolicy = "max"
)

// ParseMergePolicy maps a config value to a policy; empty means MergeSum.
func ParseMergePolicy(s string) (MergePolicy, error) {
	switch MergePolicy(s) {
	case "", MergeSum:
		return MergeSum, nil
	case MergeMax:
		return MergeMax, nil
	default:
		return "", fmt.Errorf("unknown merge policy %q", s)
	}
}

// Weights blend vector and lexical scores. Both must be non-negative so the
// blend is monotone in each component.
type Weights struct {
	Vector  float64
	Lexical float64
}

// DefaultWeights favour semantic similarity.
var DefaultWeights = Weights{Vector: 0.7, Lexical: 0.3}

// Validate rejects negative weights.
func (w Weights) Validate() error {
	if w.Vector < 0 || w.Lexical < 0 {
		return fmt.Errorf("weights must be non-negative, got vector=%g lexical=%g", w.Vector, w.Lexical)
	}
	return nil
}

// Combine blends one candidate's component scores.
func (w Weights) Combine(vector, lexical float64) float64 {
	return w.Vector*vector + w.Lexical*lexical
}

// NeedResult is the scored fragment of one need.
type NeedResult struct {
	Need       string
	Candidates []result.Candidate
	Lexical    map[string]float64
}

// quintileBands is the number of bands formed when enough distinct scores exist.
const quintileBands = result.MaxBand + 1

// CombineAndRank blends scores per need, merges candidates across needs by
// scheme id, assigns bands, drops rows below threshold and sorts by score
// descending then scheme id ascending. Nothing is truncated.
func CombineAndRank(needs []NeedResult, threshold int, w Weights, policy MergePolicy) result.Ranked {
	merged := make(map[string]*result.Candidate)
	best := make(map[string]float64)
	var order []string

	for _, nr := range needs {
		for _, c := range nr.Candidates {
			c.LexicalScore = nr.Lexical[c.SchemeID]
			c.Score = w.Combine(c.VectorScore, c.LexicalScore)
			if c.Query == "" {
				c.Query = nr.Need
			}

			m, ok := merged[c.SchemeID]
			if !ok {
				cp := c
				merged[c.SchemeID] = &cp
				best[c.SchemeID] = c.Score
				order = append(order, c.SchemeID)
				continue
			}

			contribution := c.Score
			switch policy {
			case MergeMax:
				m.Score = max(m.Score, contribution)
			default:
				m.Score += contribution
			}
			if contribution > best[c.SchemeID] {
				best[c.SchemeID] = contribution
				m.Query = c.Query
				m.VectorScore = c.VectorScore
				m.LexicalScore = c.LexicalScore
			}
		}
	}

	ranked := make(result.Ranked, 0, len(order))
	for _, id := range order {
		ranked = append(ranked, *merged[id])
	}

	assignBands(ranked)

	threshold = request.ClampThreshold(threshold)
	ranked = slices.DeleteFunc(ranked, func(c result.Candidate) bool {
		return c.Band < threshold
	})
	ranked.Sort()
	return ranked
}

// assignBands tags each row with a 0..4 band. With at least five distinct
// scores the bands are quintiles; otherwise they are the dense rank of the
// distinct scores, lowest first.
func assignBands(rows result.Ranked) {
	if len(rows) == 0 {
		return
	}

	scores := make([]float64, len(rows))
	for i := range rows {
		scores[i] = rows[i].Score
	}
	slices.Sort(scores)
	distinct := slices.Compact(slices.Clone(scores))

	if len(distinct) < quintileBands {
		for i := range rows {
			rank, _ := slices.BinarySearch(distinct, rows[i].Score)
			rows[i].Band = rank
		}
		return
	}

	edges := make([]float64, 0, quintileBands-1)
	for q := 1; q < quintileBands; q++ {
		edges = append(edges, percentile(scores, float64(q)/quintileBands))
	}
	for i := range rows {
		band := 0
		for _, e := range edges {
			if rows[i].Score > e {
				band++
			}
		}
		rows[i].Band = band
	}
}

// percentile interpolates linearly between closest ranks of sorted values.
func percentile(sorted []float64, p float64) float64 {
	pos := p * float64(len(sorted)-1)
	lo := int(pos)
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
