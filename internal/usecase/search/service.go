package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/schemefinder/internal/domain/chat"
	"github.com/kailas-cloud/schemefinder/internal/domain/scheme"
	"github.com/kailas-cloud/schemefinder/internal/domain/search/request"
	"github.com/kailas-cloud/schemefinder/internal/domain/search/result"
	"github.com/kailas-cloud/schemefinder/internal/metrics"
)

// Search defaults.
const (
	DefaultMaxParallelNeeds = 4
	DefaultLogTopResults    = 10
)

// Config tunes ranking and fan-out.
type Config struct {
	Weights          Weights
	Policy           MergePolicy
	BM25K1           float64
	BM25B            float64
	MaxParallelNeeds int
	// LogTopResults is how many ranked rows are kept in the session log.
	LogTopResults int
}

// DefaultConfig returns the production ranking settings.
func DefaultConfig() Config {
	return Config{
		Weights:          DefaultWeights,
		Policy:           MergeSum,
		BM25K1:           DefaultBM25K1,
		BM25B:            DefaultBM25B,
		MaxParallelNeeds: DefaultMaxParallelNeeds,
		LogTopResults:    DefaultLogTopResults,
	}
}

// Response is one page of a search.
type Response struct {
	SessionID  string
	Items      []result.Candidate
	NextCursor string
	HasMore    bool
	TotalCount int
}

// Service runs the search pipeline: decompose, retrieve per need, score,
// merge, rank and paginate.
type Service struct {
	retriever *Retriever
	lexical   *LexicalScorer
	paginator *Paginator
	queryLog  QueryLog
	cfg       Config
	now       func() time.Time
	logger    *zap.Logger
}

// New creates a search service. queryLog may be nil.
func New(retriever *Retriever, paginator *Paginator, queryLog QueryLog, cfg Config, logger *zap.Logger) (*Service, error) {
	if err := cfg.Weights.Validate(); err != nil {
		return nil, err
	}
	if cfg.Policy == "" {
		cfg.Policy = MergeSum
	}
	if cfg.MaxParallelNeeds <= 0 {
		cfg.MaxParallelNeeds = DefaultMaxParallelNeeds
	}
	if cfg.LogTopResults <= 0 {
		cfg.LogTopResults = DefaultLogTopResults
	}
	return &Service{
		retriever: retriever,
		lexical:   NewLexicalScorer(cfg.BM25K1, cfg.BM25B),
		paginator: paginator,
		queryLog:  queryLog,
		cfg:       cfg,
		now:       time.Now,
		logger:    logger,
	}, nil
}

// Search answers one page of req. A query with no needs, or no candidates
// above the threshold, yields an empty page rather than an error.
func (s *Service) Search(ctx context.Context, req *request.Request) (Response, error) {
	start := time.Now()
	defer func() { metrics.SearchDuration.Observe(time.Since(start).Seconds()) }()

	needs := Decompose(req.Query())
	metrics.SearchNeeds.Observe(float64(len(needs)))

	fragments, err := s.retrieveAll(ctx, needs, req.TopK())
	if err != nil {
		return Response{}, err
	}

	ranked := CombineAndRank(fragments, req.Threshold(), s.cfg.Weights, s.cfg.Policy)
	metrics.SearchResults.Observe(float64(len(ranked)))

	page, err := s.paginator.Paginate(ranked, req.Limit(), req.Cursor(), req.SessionID())
	if err != nil {
		return Response{}, fmt.Errorf("paginate: %w", err)
	}

	// Only first pages are logged; later pages repeat the same query.
	if req.Cursor() == "" {
		s.logQuery(ctx, page.SessionID, req.Query(), ranked)
	}

	s.logger.Debug("Search completed",
		zap.String("session_id", page.SessionID),
		zap.Strings("needs", needs),
		zap.Int("total", page.TotalCount),
		zap.Int("returned", len(page.Items)),
	)

	return Response{
		SessionID:  page.SessionID,
		Items:      page.Items,
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
		TotalCount: page.TotalCount,
	}, nil
}

// retrieveAll runs retrieval and lexical scoring for every need concurrently.
// The first failure cancels the rest.
func (s *Service) retrieveAll(ctx context.Context, needs []string, breadth int) ([]NeedResult, error) {
	out := make([]NeedResult, len(needs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxParallelNeeds)

	for i, need := range needs {
		g.Go(func() error {
			cands, err := s.retriever.Retrieve(gctx, need, breadth)
			if err != nil {
				return fmt.Errorf("retrieve %q: %w", need, err)
			}
			schemes := make([]scheme.Scheme, len(cands))
			for j := range cands {
				schemes[j] = cands[j].Scheme
			}
			out[i] = NeedResult{
				Need:       need,
				Candidates: cands,
				Lexical:    s.lexical.Score(need, schemes),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) logQuery(ctx context.Context, sessionID, query string, ranked result.Ranked) {
	if s.queryLog == nil {
		return
	}
	top := ranked[:min(len(ranked), s.cfg.LogTopResults)]
	refs := make([]chat.ResultRef, len(top))
	for i := range top {
		sc := &top[i].Scheme
		refs[i] = chat.ResultRef{
			SchemeID: top[i].SchemeID,
			Name:     sc.Name(),
			Agency:   sc.Agency(),
			Link:     sc.Link(),
			Score:    top[i].Score,
		}
	}
	entry := &chat.QueryLogEntry{Query: query, Results: refs, CreatedAt: s.now().UTC()}
	if err := s.queryLog.AppendQuery(ctx, sessionID, entry); err != nil {
		s.logger.Warn("Failed to append query log",
			zap.String("session_id", sessionID), zap.Error(err))
	}
}
