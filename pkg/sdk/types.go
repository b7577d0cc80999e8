package schemefinder

import (
	domscheme "github.com/kailas-cloud/schemefinder/internal/domain/scheme"
	"github.com/kailas-cloud/schemefinder/internal/domain/search/result"
	"github.com/kailas-cloud/schemefinder/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/schemefinder/internal/usecase/search"
)

// Scheme is a public assistance programme record.
type Scheme struct {
	ID          string
	Name        string
	Agency      string
	Description string
	Link        string
	Tags        []string
	Inactive    bool
}

// SearchQuery is one search call. Zero values pick defaults: TopK 20,
// Limit = TopK, Threshold 0.
type SearchQuery struct {
	Query     string
	TopK      int
	Threshold int // relevance band 0..4
	Limit     int
	Cursor    string
	SessionID string
}

// Hit is one ranked scheme.
type Hit struct {
	Scheme       Scheme
	SchemeID     string
	Score        float64
	VectorScore  float64
	LexicalScore float64
	Band         int
	Need         string // need that produced the hit
}

// SearchPage is one page of ranked schemes.
type SearchPage struct {
	SessionID  string
	Hits       []Hit
	NextCursor string
	HasMore    bool
	TotalCount int
}

// IngestResult reports per-scheme outcomes of Ingest and Reindex.
type IngestResult struct {
	Succeeded int
	Failed    map[string]error
}

func schemeFromDomain(s *domscheme.Scheme) Scheme {
	return Scheme{
		ID:          s.ID(),
		Name:        s.Name(),
		Agency:      s.Agency(),
		Description: s.Description(),
		Link:        s.Link(),
		Tags:        s.Tags(),
		Inactive:    !s.IsActive(),
	}
}

func (s *Scheme) toRecord() ingest.Record {
	status := domscheme.Active
	if s.Inactive {
		status = domscheme.Inactive
	}
	return ingest.Record{
		ID:          s.ID,
		Name:        s.Name,
		Agency:      s.Agency,
		Description: s.Description,
		Link:        s.Link,
		Tags:        s.Tags,
		Status:      string(status),
	}
}

func hitFromCandidate(c *result.Candidate) Hit {
	return Hit{
		Scheme:       schemeFromDomain(&c.Scheme),
		SchemeID:     c.SchemeID,
		Score:        c.Score,
		VectorScore:  c.VectorScore,
		LexicalScore: c.LexicalScore,
		Band:         c.Band,
		Need:         c.Query,
	}
}

func pageFromResponse(resp *searchuc.Response) SearchPage {
	hits := make([]Hit, len(resp.Items))
	for i := range resp.Items {
		hits[i] = hitFromCandidate(&resp.Items[i])
	}
	return SearchPage{
		SessionID:  resp.SessionID,
		Hits:       hits,
		NextCursor: resp.NextCursor,
		HasMore:    resp.HasMore,
		TotalCount: resp.TotalCount,
	}
}
