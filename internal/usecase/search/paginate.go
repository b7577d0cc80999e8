package search

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/schemefinder/internal/domain/search/cursor"
	"github.com/kailas-cloud/schemefinder/internal/domain/search/result"
)

// Page is one slice of a ranked list.
type Page struct {
	Items      []result.Candidate
	NextCursor string
	HasMore    bool
	TotalCount int
	// SessionID is the session the page and its cursor belong to.
	SessionID string
}

// Paginator slices ranked lists with signed cursors. A cursor that fails
// to verify for any reason is ignored and the first page is served.
type Paginator struct {
	codec      *cursor.Codec
	newSession func() string
	logger     *zap.Logger
}

// NewPaginator creates a paginator.
func NewPaginator(codec *cursor.Codec, logger *zap.Logger) *Paginator {
	return &Paginator{codec: codec, newSession: uuid.NewString, logger: logger}
}

// Paginate returns up to limit rows after the cursor position. With an empty
// sessionID the session is taken from a verified cursor, or freshly
// generated when there is none.
func (p *Paginator) Paginate(ranked result.Ranked, limit int, rawCursor, sessionID string) (Page, error) {
	if limit <= 0 {
		limit = len(ranked)
	}

	start := 0
	if rawCursor != "" {
		c, err := p.codec.Decode(rawCursor, sessionID)
		if err != nil {
			p.logger.Debug("Ignoring cursor", zap.Error(err))
		} else {
			start = startAfter(ranked, &c)
			if sessionID == "" {
				sessionID = c.SessionID
			}
		}
	}
	if sessionID == "" {
		sessionID = p.newSession()
	}

	end := min(start+limit, len(ranked))
	page := Page{
		Items:      result.Clone(ranked[start:end]),
		HasMore:    end < len(ranked),
		TotalCount: len(ranked),
		SessionID:  sessionID,
	}
	if page.Items == nil {
		page.Items = []result.Candidate{}
	}

	if page.HasMore {
		last := ranked[end-1]
		next, err := p.codec.Encode(last.SchemeID, last.Score, sessionID)
		if err != nil {
			return Page{}, fmt.Errorf("encode cursor: %w", err)
		}
		page.NextCursor = next
	}
	return page, nil
}

// startAfter returns the first index ranked strictly after the cursor row:
// a lower score, or an equal score with a greater scheme id.
func startAfter(ranked result.Ranked, c *cursor.Cursor) int {
	return sort.Search(len(ranked), func(i int) bool {
		r := ranked[i]
		if r.Score != c.Score {
			return r.Score < c.Score
		}
		return r.SchemeID > c.SchemeID
	})
}
