package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/schemefinder/internal/domain"
	"github.com/kailas-cloud/schemefinder/internal/domain/chat"
)

// CacheNamespace partitions chat replies in the response cache.
const CacheNamespace = "chat"

// Defaults for Config.
const (
	DefaultHistoryTurns      = 6
	DefaultCacheTTL          = time.Hour
	DefaultRequestsPerSecond = 5
	DefaultBurst             = 10
)

const systemPrompt = "You help people find public assistance schemes they may be eligible for. " +
	"Answer using the search results below. If they do not cover the question, say so."

// Config tunes the chat pipeline.
type Config struct {
	CacheTTL          time.Duration
	HistoryTurns      int
	RequestsPerSecond float64
	Burst             int
}

// Service answers follow-up questions about a session's latest search.
type Service struct {
	log     SessionLog
	cache   ResponseCache
	gen     domain.Generator
	limiter *rate.Limiter
	cfg     Config
	now     func() time.Time
	logger  *zap.Logger
}

// New creates a chat service.
func New(log SessionLog, cache ResponseCache, gen domain.Generator, cfg Config, logger *zap.Logger) *Service {
	if cfg.HistoryTurns <= 0 {
		cfg.HistoryTurns = DefaultHistoryTurns
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultBurst
	}
	return &Service{
		log:     log,
		cache:   cache,
		gen:     gen,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		cfg:     cfg,
		now:     time.Now,
		logger:  logger,
	}
}

// Chat answers message in the context of the session's latest search.
// Identical conversation states are served from the response cache.
func (s *Service) Chat(ctx context.Context, sessionID, message string) (chat.Reply, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return chat.Reply{}, fmt.Errorf("%w: session id is required", domain.ErrInvalidRequest)
	}
	msg, err := chat.ValidateMessage(message)
	if err != nil {
		return chat.Reply{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}

	latest, err := s.log.LatestQuery(ctx, sessionID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return chat.Reply{}, fmt.Errorf("load latest query: %w", err)
	}

	fp := chat.Fingerprint(latest.QueryContext(), latest.ResultsContext(), msg)
	if v, ok := s.cache.Get(CacheNamespace, []string{fp})[fp]; ok {
		text := string(v)
		s.record(ctx, sessionID, msg, text)
		return chat.Reply{SessionID: sessionID, Text: text, Cached: true}, nil
	}

	history, err := s.log.RecentTurns(ctx, sessionID, s.cfg.HistoryTurns)
	if err != nil {
		s.logger.Warn("Failed to load chat history", zap.String("session_id", sessionID), zap.Error(err))
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return chat.Reply{}, fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
	}

	gen, err := s.gen.Generate(ctx, buildMessages(&latest, history, msg))
	if err != nil {
		return chat.Reply{}, fmt.Errorf("generate reply: %w", err)
	}

	entry := chat.CacheEntry{Key: fp, Value: []byte(gen.Text), TTL: s.cfg.CacheTTL}
	if err := s.cache.Set(CacheNamespace, []chat.CacheEntry{entry}); err != nil {
		s.logger.Warn("Failed to cache chat reply", zap.Error(err))
	}
	s.record(ctx, sessionID, msg, gen.Text)

	return chat.Reply{SessionID: sessionID, Text: gen.Text}, nil
}

// record appends the exchange to the session history. Failures are logged only.
func (s *Service) record(ctx context.Context, sessionID, msg, reply string) {
	now := s.now().UTC()
	err := s.log.AppendTurns(ctx, sessionID,
		chat.Turn{Role: domain.RoleUser, Content: msg, CreatedAt: now},
		chat.Turn{Role: domain.RoleAssistant, Content: reply, CreatedAt: now},
	)
	if err != nil {
		s.logger.Warn("Failed to append chat turns", zap.String("session_id", sessionID), zap.Error(err))
	}
}

func buildMessages(latest *chat.QueryLogEntry, history []chat.Turn, msg string) []domain.Message {
	var b strings.Builder
	b.WriteString(systemPrompt)
	if latest.Query != "" {
		fmt.Fprintf(&b, "\n\nThe person searched for: %q", latest.Query)
	}
	if len(latest.Results) > 0 {
		b.WriteString("\nTop results:")
		for i, r := range latest.Results {
			fmt.Fprintf(&b, "\n%d. %s", i+1, r.Name)
			if r.Agency != "" {
				fmt.Fprintf(&b, " (%s)", r.Agency)
			}
			if r.Link != "" {
				fmt.Fprintf(&b, " %s", r.Link)
			}
		}
	}

	msgs := make([]domain.Message, 0, len(history)+2)
	msgs = append(msgs, domain.Message{Role: domain.RoleSystem, Content: b.String()})
	for _, t := range history {
		msgs = append(msgs, domain.Message{Role: t.Role, Content: t.Content})
	}
	return append(msgs, domain.Message{Role: domain.RoleUser, Content: msg})
}
