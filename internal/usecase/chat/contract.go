package chat

import (
	"context"

	"github.com/kailas-cloud/schemefinder/internal/domain/chat"
)

// SessionLog reads the session's search context and keeps its chat history.
type SessionLog interface {
	LatestQuery(ctx context.Context, sessionID string) (chat.QueryLogEntry, error)
	RecentTurns(ctx context.Context, sessionID string, n int) ([]chat.Turn, error)
	AppendTurns(ctx context.Context, sessionID string, turns ...chat.Turn) error
}

// ResponseCache stores generated replies by conversation fingerprint.
type ResponseCache interface {
	Get(ns string, keys []string) map[string][]byte
	Set(ns string, entries []chat.CacheEntry) error
}
