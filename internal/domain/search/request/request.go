package request

import (
	"fmt"
	"strings"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed query length in bytes.
	MaxQueryLength = 4096
	DefaultTopK    = 20
	MaxTopK        = 100
	MaxLimit       = 100
	MinThreshold   = 0
	MaxThreshold   = 4
	MaxSessionLen  = 128
)

// Request is a validated search query.
type Request struct {
	query     string
	topK      int
	threshold int
	limit     int
	cursor    string
	sessionID string
}

// New validates and normalizes search parameters.
// topK <= 0 falls back to DefaultTopK, limit <= 0 falls back to topK,
// threshold is clamped into [0, 4].
func New(query string, topK, threshold, limit int, cursor, sessionID string) (Request, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Request{}, fmt.Errorf("query is required")
	}
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("query too long (max %d chars)", MaxQueryLength)
	}
	if len(sessionID) > MaxSessionLen {
		return Request{}, fmt.Errorf("session id too long (max %d chars)", MaxSessionLen)
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}
	if limit <= 0 {
		limit = topK
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return Request{
		query:     query,
		topK:      topK,
		threshold: ClampThreshold(threshold),
		limit:     limit,
		cursor:    strings.TrimSpace(cursor),
		sessionID: strings.TrimSpace(sessionID),
	}, nil
}

// ClampThreshold forces a relevance band threshold into [0, 4].
func ClampThreshold(t int) int {
	return max(MinThreshold, min(MaxThreshold, t))
}

// Query returns the raw query text.
func (r *Request) Query() string { return r.query }

// TopK returns the per-need retrieval breadth.
func (r *Request) TopK() int { return r.topK }

// Threshold returns the minimum relevance band.
func (r *Request) Threshold() int { return r.threshold }

// Limit returns the page size.
func (r *Request) Limit() int { return r.limit }

// Cursor returns the opaque pagination cursor ("" for the first page).
func (r *Request) Cursor() string { return r.cursor }

// SessionID returns the caller's session ("" when a new one must be issued).
func (r *Request) SessionID() string { return r.sessionID }

// WithSession returns a copy bound to sessionID.
func (r Request) WithSession(sessionID string) Request {
	r.sessionID = sessionID
	return r
}
