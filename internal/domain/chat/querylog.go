package chat

import (
	"strconv"
	"strings"
	"time"
)

// ResultRef is a compact view of one search hit kept in the session log.
type ResultRef struct {
	SchemeID string  `json:"scheme_id"`
	Name     string  `json:"name"`
	Agency   string  `json:"agency,omitempty"`
	Link     string  `json:"link,omitempty"`
	Score    float64 `json:"score"`
}

// QueryLogEntry records one search made in a session.
type QueryLogEntry struct {
	Query     string      `json:"query"`
	Results   []ResultRef `json:"results"`
	CreatedAt time.Time   `json:"created_at"`
}

// QueryContext is the fingerprint input describing what was asked.
func (e *QueryLogEntry) QueryContext() string {
	return e.Query
}

// ResultsContext is the fingerprint input describing what was shown, in rank order.
func (e *QueryLogEntry) ResultsContext() string {
	var b strings.Builder
	for i, r := range e.Results {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(r.SchemeID)
		b.WriteByte('\t')
		b.WriteString(strconv.FormatFloat(r.Score, 'g', -1, 64))
	}
	return b.String()
}
