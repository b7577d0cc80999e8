package chi

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/kailas-cloud/schemefinder/internal/domain/chat"
	domscheme "github.com/kailas-cloud/schemefinder/internal/domain/scheme"
	"github.com/kailas-cloud/schemefinder/internal/domain/search/result"
	searchuc "github.com/kailas-cloud/schemefinder/internal/usecase/search"
)

// ErrorCode is a machine-readable error identifier.
type ErrorCode string

// Error codes returned in ErrorResponse.Code.
const (
	ErrorCodeBadRequest        ErrorCode = "bad_request"
	ErrorCodeUnauthorized      ErrorCode = "unauthorized"
	ErrorCodeValidationFailed  ErrorCode = "validation_failed"
	ErrorCodeNotFound          ErrorCode = "not_found"
	ErrorCodeRateLimited       ErrorCode = "rate_limited"
	ErrorCodeEmbeddingProvider ErrorCode = "embedding_provider_error"
	ErrorCodeLLMProvider       ErrorCode = "llm_provider_error"
	ErrorCodeVectorIndexDown   ErrorCode = "vector_index_unavailable"
	ErrorCodeInternalError     ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// SearchRequest is the POST /api/v1/search body. SimilarityThreshold wins
// over the Threshold alias when both are sent.
type SearchRequest struct {
	Query               string      `json:"query"`
	TopK                *LenientInt `json:"top_k,omitempty"`
	SimilarityThreshold *LenientInt `json:"similarity_threshold,omitempty"`
	Threshold           *LenientInt `json:"threshold,omitempty"`
	Limit               *LenientInt `json:"limit,omitempty"`
	Cursor              string      `json:"cursor,omitempty"`
	SessionID           string      `json:"sessionId,omitempty"`
}

func (b *SearchRequest) threshold() int {
	if b.SimilarityThreshold != nil {
		return b.SimilarityThreshold.Int()
	}
	return b.Threshold.Int()
}

// LenientInt decodes a JSON number or numeric string. Anything else decodes
// to 0, which callers treat as "use the default".
type LenientInt int

// UnmarshalJSON implements json.Unmarshaler.
func (n *LenientInt) UnmarshalJSON(data []byte) error {
	*n = 0
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil //nolint:nilerr // malformed values fall back to the default
	}

	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil //nolint:nilerr // non-numeric strings fall back to the default
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt32 || f < math.MinInt32 {
		return nil
	}
	*n = LenientInt(int(f))
	return nil
}

// Int returns the value, or 0 for a nil pointer.
func (n *LenientInt) Int() int {
	if n == nil {
		return 0
	}
	return int(*n)
}

// SearchResultItem is one ranked scheme.
type SearchResultItem struct {
	SchemeID     string   `json:"scheme_id"`
	Name         string   `json:"name"`
	Agency       string   `json:"agency,omitempty"`
	Description  string   `json:"description,omitempty"`
	Link         string   `json:"link,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	Score        float64  `json:"score"`
	VectorScore  float64  `json:"vector_score"`
	LexicalScore float64  `json:"lexical_score"`
	Band         int      `json:"band"`
	Query        string   `json:"query"`
}

// SearchResponse is one page of ranked schemes.
type SearchResponse struct {
	SessionID  string             `json:"sessionId"`
	Data       []SearchResultItem `json:"data"`
	NextCursor *string            `json:"next_cursor"`
	HasMore    bool               `json:"has_more"`
	TotalCount int                `json:"total_count"`
}

// ChatRequest is the POST /api/v1/chat body.
type ChatRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

// ChatResponse carries the generated reply.
type ChatResponse struct {
	SessionID string `json:"sessionId"`
	Reply     string `json:"reply"`
	Cached    bool   `json:"cached"`
}

// SchemeResponse is a single scheme record.
type SchemeResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Agency      string   `json:"agency,omitempty"`
	Description string   `json:"description,omitempty"`
	Link        string   `json:"link,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Status      string   `json:"status"`
}

// HealthResponse reports overall and per-component health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func searchResponseFrom(resp *searchuc.Response) SearchResponse {
	items := make([]SearchResultItem, len(resp.Items))
	for i := range resp.Items {
		items[i] = searchResultItem(&resp.Items[i])
	}
	out := SearchResponse{
		SessionID:  resp.SessionID,
		Data:       items,
		HasMore:    resp.HasMore,
		TotalCount: resp.TotalCount,
	}
	if resp.NextCursor != "" {
		c := resp.NextCursor
		out.NextCursor = &c
	}
	return out
}

func searchResultItem(c *result.Candidate) SearchResultItem {
	return SearchResultItem{
		SchemeID:     c.SchemeID,
		Name:         c.Scheme.Name(),
		Agency:       c.Scheme.Agency(),
		Description:  c.Scheme.Description(),
		Link:         c.Scheme.Link(),
		Tags:         c.Scheme.Tags(),
		Score:        c.Score,
		VectorScore:  c.VectorScore,
		LexicalScore: c.LexicalScore,
		Band:         c.Band,
		Query:        c.Query,
	}
}

func schemeResponseFrom(s *domscheme.Scheme) SchemeResponse {
	return SchemeResponse{
		ID:          s.ID(),
		Name:        s.Name(),
		Agency:      s.Agency(),
		Description: s.Description(),
		Link:        s.Link(),
		Tags:        s.Tags(),
		Status:      string(s.Status()),
	}
}

func chatResponseFrom(r chat.Reply) ChatResponse {
	return ChatResponse{SessionID: r.SessionID, Reply: r.Text, Cached: r.Cached}
}
