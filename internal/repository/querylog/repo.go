// Package querylog keeps per-session search and chat history in Redis lists.
package querylog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kailas-cloud/schemefinder/internal/domain"
	"github.com/kailas-cloud/schemefinder/internal/domain/chat"
)

// DefaultMaxEntries caps each session list.
const DefaultMaxEntries = 100

// store is the consumer interface for session history (ISP).
type store interface {
	RPush(ctx context.Context, key string, values ...[]byte) error
	LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error)
	LTrim(ctx context.Context, key string, start, stop int64) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Repo appends and reads session history. Every write refreshes the TTL.
type Repo struct {
	store      store
	keyPrefix  string
	ttl        time.Duration
	maxEntries int64
}

// New creates a query log repository. ttl <= 0 keeps history forever.
func New(s store, keyPrefix string, ttl time.Duration, maxEntries int) *Repo {
	if keyPrefix == "" {
		keyPrefix = domain.DefaultKeyPrefix
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Repo{
		store:      s,
		keyPrefix:  keyPrefix + "session:",
		ttl:        ttl,
		maxEntries: int64(maxEntries),
	}
}

// AppendQuery records a search made in a session.
func (r *Repo) AppendQuery(ctx context.Context, sessionID string, entry *chat.QueryLogEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal query log entry: %w", err)
	}
	return r.push(ctx, r.queriesKey(sessionID), data)
}

// LatestQuery returns the most recent search of a session, or domain.ErrNotFound.
func (r *Repo) LatestQuery(ctx context.Context, sessionID string) (chat.QueryLogEntry, error) {
	raw, err := r.store.LRange(ctx, r.queriesKey(sessionID), -1, -1)
	if err != nil {
		return chat.QueryLogEntry{}, fmt.Errorf("read query log: %w", err)
	}
	if len(raw) == 0 {
		return chat.QueryLogEntry{}, fmt.Errorf("session %s has no queries: %w", sessionID, domain.ErrNotFound)
	}
	var entry chat.QueryLogEntry
	if err := json.Unmarshal(raw[0], &entry); err != nil {
		return chat.QueryLogEntry{}, fmt.Errorf("unmarshal query log entry: %w", err)
	}
	return entry, nil
}

// AppendTurns records chat turns in order.
func (r *Repo) AppendTurns(ctx context.Context, sessionID string, turns ...chat.Turn) error {
	if len(turns) == 0 {
		return nil
	}
	values := make([][]byte, len(turns))
	for i := range turns {
		data, err := json.Marshal(turns[i])
		if err != nil {
			return fmt.Errorf("marshal chat turn: %w", err)
		}
		values[i] = data
	}
	return r.push(ctx, r.chatKey(sessionID), values...)
}

// RecentTurns returns up to n most recent chat turns, oldest first.
func (r *Repo) RecentTurns(ctx context.Context, sessionID string, n int) ([]chat.Turn, error) {
	if n <= 0 {
		return nil, nil
	}
	raw, err := r.store.LRange(ctx, r.chatKey(sessionID), -int64(n), -1)
	if err != nil {
		return nil, fmt.Errorf("read chat log: %w", err)
	}
	turns := make([]chat.Turn, 0, len(raw))
	for _, b := range raw {
		var t chat.Turn
		if err := json.Unmarshal(b, &t); err != nil {
			return nil, fmt.Errorf("unmarshal chat turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, nil
}

func (r *Repo) push(ctx context.Context, key string, values ...[]byte) error {
	if err := r.store.RPush(ctx, key, values...); err != nil {
		return fmt.Errorf("append %s: %w", key, err)
	}
	if err := r.store.LTrim(ctx, key, -r.maxEntries, -1); err != nil {
		return fmt.Errorf("trim %s: %w", key, err)
	}
	if r.ttl > 0 {
		if err := r.store.Expire(ctx, key, r.ttl, false); err != nil {
			return fmt.Errorf("expire %s: %w", key, err)
		}
	}
	return nil
}

func (r *Repo) queriesKey(sessionID string) string {
	return r.keyPrefix + sessionID + ":queries"
}

func (r *Repo) chatKey(sessionID string) string {
	return r.keyPrefix + sessionID + ":chat"
}
