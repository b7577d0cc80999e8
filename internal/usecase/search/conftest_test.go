package search

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/schemefinder/internal/domain"
	"github.com/kailas-cloud/schemefinder/internal/domain/chat"
	"github.com/kailas-cloud/schemefinder/internal/domain/scheme"
	"github.com/kailas-cloud/schemefinder/internal/domain/search/result"
)

// --- Mocks ---

// mockEmbedder encodes each known text as a one-element vector holding its id.
type mockEmbedder struct {
	mu    sync.Mutex
	ids   map[string]float32
	err   error
	calls int
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	id, ok := m.ids[text]
	if !ok {
		return domain.EmbeddingResult{}, fmt.Errorf("unexpected text %q", text)
	}
	return domain.EmbeddingResult{Embedding: []float32{id}}, nil
}

type mockIndex struct {
	byVec map[float32][]result.Neighbor
	err   error
}

func (m *mockIndex) Nearest(_ context.Context, vec []float32, k int) ([]result.Neighbor, error) {
	if m.err != nil {
		return nil, m.err
	}
	nb := m.byVec[vec[0]]
	return nb[:min(k, len(nb))], nil
}

type mockSchemes struct {
	mu    sync.Mutex
	byID  map[string]scheme.Scheme
	err   error
	calls int
}

func (m *mockSchemes) BatchGet(_ context.Context, ids []string) (map[string]scheme.Scheme, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[string]scheme.Scheme, len(ids))
	for _, id := range ids {
		if s, ok := m.byID[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

type mapCache struct {
	mu      sync.Mutex
	entries map[string][]result.Candidate
	puts    int
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string][]result.Candidate)}
}

func (c *mapCache) Get(need string, breadth int) ([]result.Candidate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[fmt.Sprintf("%s|%d", need, breadth)]
	return result.Clone(v), ok
}

func (c *mapCache) Put(need string, breadth int, v []result.Candidate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.puts++
	c.entries[fmt.Sprintf("%s|%d", need, breadth)] = result.Clone(v)
}

type mockQueryLog struct {
	mu       sync.Mutex
	sessions []string
	entries  []*chat.QueryLogEntry
	err      error
}

func (m *mockQueryLog) AppendQuery(_ context.Context, sessionID string, entry *chat.QueryLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = append(m.sessions, sessionID)
	m.entries = append(m.entries, entry)
	return m.err
}

// --- Helpers ---

func activeScheme(id, name string) scheme.Scheme {
	return scheme.Reconstruct(id, name, "", "", "https://example.org/"+id, nil, scheme.Active)
}

func neighbors(distance float64, ids ...string) []result.Neighbor {
	out := make([]result.Neighbor, len(ids))
	for i, id := range ids {
		out[i] = result.Neighbor{IndexID: "vec:" + id, SchemeID: id, Distance: distance}
	}
	return out
}

// fixture wires a retriever over in-memory collaborators.
type fixture struct {
	embed   *mockEmbedder
	index   *mockIndex
	schemes *mockSchemes
	cache   *mapCache
}

func newFixture() *fixture {
	return &fixture{
		embed:   &mockEmbedder{ids: make(map[string]float32)},
		index:   &mockIndex{byVec: make(map[float32][]result.Neighbor)},
		schemes: &mockSchemes{byID: make(map[string]scheme.Scheme)},
		cache:   newMapCache(),
	}
}

// need registers the neighbours returned for a need's vector.
func (f *fixture) need(text string, nb []result.Neighbor) {
	id := float32(len(f.embed.ids) + 1)
	f.embed.ids[text] = id
	f.index.byVec[id] = nb
}

func (f *fixture) add(schemes ...scheme.Scheme) {
	for i := range schemes {
		f.schemes.byID[schemes[i].ID()] = schemes[i]
	}
}

func (f *fixture) retriever() *Retriever {
	return NewRetriever(f.embed, f.index, f.schemes, f.cache, nil, zap.NewNop())
}
