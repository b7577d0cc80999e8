package search

import (
	"math"

	"github.com/kailas-cloud/schemefinder/internal/domain/scheme"
)

// Okapi BM25 defaults.
const (
	DefaultBM25K1 = 1.5
	DefaultBM25B  = 0.75
)

// LexicalScorer scores a need against a candidate set with Okapi BM25. The
// model is built per call over the candidates' searchable text only.
type LexicalScorer struct {
	k1 float64
	b  float64
}

// NewLexicalScorer creates a scorer. Non-positive k1 or a b outside [0,1]
// fall back to the defaults.
func NewLexicalScorer(k1, b float64) *LexicalScorer {
	if k1 <= 0 {
		k1 = DefaultBM25K1
	}
	if b < 0 || b > 1 {
		b = DefaultBM25B
	}
	return &LexicalScorer{k1: k1, b: b}
}

// ScoreBM25 scores with the default parameters.
func ScoreBM25(need string, schemes []scheme.Scheme) map[string]float64 {
	return NewLexicalScorer(DefaultBM25K1, DefaultBM25B).Score(need, schemes)
}

// Score maps scheme id to BM25 relevance. Schemes sharing no term with the
// need score 0; an empty corpus yields an empty map.
func (s *LexicalScorer) Score(need string, schemes []scheme.Scheme) map[string]float64 {
	out := make(map[string]float64, len(schemes))
	if len(schemes) == 0 {
		return out
	}

	docs := make([]map[string]int, len(schemes))
	lengths := make([]int, len(schemes))
	df := make(map[string]int)
	total := 0
	for i := range schemes {
		tf := make(map[string]int)
		for _, tok := range Tokenize(schemes[i].SearchableText()) {
			tf[tok]++
			lengths[i]++
		}
		for tok := range tf {
			df[tok]++
		}
		docs[i] = tf
		total += lengths[i]
	}

	n := float64(len(schemes))
	avgdl := float64(total) / n
	query := Tokenize(need)

	for i := range schemes {
		id := schemes[i].ID()
		score := 0.0
		for _, q := range query {
			f := float64(docs[i][q])
			if f == 0 {
				continue
			}
			d := float64(df[q])
			idf := math.Log((n-d+0.5)/(d+0.5) + 1)
			norm := 1.0
			if avgdl > 0 {
				norm = 1 - s.b + s.b*float64(lengths[i])/avgdl
			}
			score += idf * f * (s.k1 + 1) / (f + s.k1*norm)
		}
		out[id] = score
	}
	return out
}
