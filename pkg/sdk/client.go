package schemefinder

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/schemefinder/internal/db"
	dbRedis "github.com/kailas-cloud/schemefinder/internal/db/redis"
	"github.com/kailas-cloud/schemefinder/internal/domain"
	"github.com/kailas-cloud/schemefinder/internal/domain/batch"
	domscheme "github.com/kailas-cloud/schemefinder/internal/domain/scheme"
	"github.com/kailas-cloud/schemefinder/internal/domain/search/cursor"
	"github.com/kailas-cloud/schemefinder/internal/domain/search/request"
	"github.com/kailas-cloud/schemefinder/internal/repository/querylog"
	"github.com/kailas-cloud/schemefinder/internal/repository/resultcache"
	schemerepo "github.com/kailas-cloud/schemefinder/internal/repository/scheme"
	"github.com/kailas-cloud/schemefinder/internal/repository/vectorindex"
	healthuc "github.com/kailas-cloud/schemefinder/internal/usecase/health"
	"github.com/kailas-cloud/schemefinder/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/schemefinder/internal/usecase/search"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	queryLogTTL             = 24 * time.Hour
)

// Internal interfaces, swapped for fakes in tests.
type searchUseCase interface {
	Search(ctx context.Context, req *request.Request) (searchuc.Response, error)
}

type schemeReader interface {
	Get(ctx context.Context, id string) (domscheme.Scheme, error)
}

type ingestUseCase interface {
	EnsureIndex(ctx context.Context) (bool, error)
	Ingest(ctx context.Context, records []ingest.Record) (batch.Report, error)
	Reindex(ctx context.Context) (batch.Report, error)
}

// Client is the schemefinder SDK entry point.
type Client struct {
	store     db.Store
	searchSvc searchUseCase
	schemes   schemeReader
	ingestSvc ingestUseCase
	healthSvc healthUseCase
	obs       *observer
}

// New creates a Client and connects to Redis.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := defaultClientConfig()
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("schemefinder: database address required (use WithRedis)")
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Password: cfg.password,
	})
	if err != nil {
		return nil, fmt.Errorf("schemefinder: create redis store: %w", err)
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("schemefinder: database not ready: %w", err)
	}

	c, err := wireClient(store, cfg)
	if err != nil {
		store.Close()
		return nil, err
	}
	return c, nil
}

func wireClient(store db.Store, cfg *clientConfig) (*Client, error) {
	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	secret := cfg.cursorSecret
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("schemefinder: cursor secret: %w", err)
		}
	}
	codec, err := cursor.NewCodec(secret, 0)
	if err != nil {
		return nil, fmt.Errorf("schemefinder: %w", err)
	}

	policy, err := searchuc.ParseMergePolicy(cfg.mergePolicy)
	if err != nil {
		return nil, fmt.Errorf("schemefinder: %w", err)
	}

	var emb domain.Embedder = noopEmbedder{}
	if cfg.embedder != nil {
		emb = &embedderAdapter{inner: cfg.embedder}
	}

	schemes := schemerepo.New(store, cfg.keyPrefix, 0, logger)
	vectors := vectorindex.New(store, vectorindex.Config{
		KeyPrefix:      cfg.keyPrefix,
		Dimension:      cfg.vectorDimensions,
		M:              cfg.hnswM,
		EFConstruction: cfg.hnswEFConstruct,
	})
	cache, err := resultcache.New(cfg.resultCacheSize, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("schemefinder: %w", err)
	}
	queryLog := querylog.New(store, cfg.keyPrefix, queryLogTTL, 0)

	retriever := searchuc.NewRetriever(emb, vectors, schemes, cache, nil, logger)
	searchCfg := searchuc.DefaultConfig()
	searchCfg.Weights = searchuc.Weights{Vector: cfg.vectorWeight, Lexical: cfg.lexicalWeight}
	searchCfg.Policy = policy
	searchSvc, err := searchuc.New(retriever, searchuc.NewPaginator(codec, logger), queryLog, searchCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("schemefinder: %w", err)
	}

	return &Client{
		store:     store,
		searchSvc: searchSvc,
		schemes:   schemes,
		ingestSvc: ingest.New(schemes, vectors, emb, 0, logger),
		healthSvc: healthuc.New(store, vectors, nil, nil, logger),
		obs:       obs,
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// EnsureIndex creates the vector index if it does not exist.
func (c *Client) EnsureIndex(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ensure_index", start, err) }()

	if _, err = c.ingestSvc.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("ensure index: %w", err)
	}
	return nil
}

// Search decomposes q.Query into needs and returns one ranked page.
// Pass the previous page's NextCursor and SessionID to continue.
func (c *Client) Search(ctx context.Context, q SearchQuery) (page SearchPage, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err) }()

	req, err := request.New(q.Query, q.TopK, q.Threshold, q.Limit, q.Cursor, q.SessionID)
	if err != nil {
		return SearchPage{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	resp, err := c.searchSvc.Search(ctx, &req)
	if err != nil {
		return SearchPage{}, fmt.Errorf("search: %w", err)
	}
	return pageFromResponse(&resp), nil
}

// Scheme loads a single scheme by id.
func (c *Client) Scheme(ctx context.Context, id string) (s Scheme, err error) {
	start := time.Now()
	defer func() { c.obs.observe("get_scheme", start, err) }()

	ds, err := c.schemes.Get(ctx, id)
	if err != nil {
		return Scheme{}, fmt.Errorf("get scheme: %w", err)
	}
	return schemeFromDomain(&ds), nil
}

// Ingest validates, embeds and stores schemes. Per-scheme failures are
// reported in the result; the error covers request-level failures only.
func (c *Client) Ingest(ctx context.Context, schemes []Scheme) (res IngestResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("ingest", start, err) }()

	records := make([]ingest.Record, len(schemes))
	for i := range schemes {
		records[i] = schemes[i].toRecord()
	}
	rep, err := c.ingestSvc.Ingest(ctx, records)
	if err != nil {
		return IngestResult{}, fmt.Errorf("ingest: %w", err)
	}
	return ingestResult(&rep), nil
}

// Reindex re-embeds every stored scheme and rewrites its vector.
func (c *Client) Reindex(ctx context.Context) (res IngestResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("reindex", start, err) }()

	rep, err := c.ingestSvc.Reindex(ctx)
	if err != nil {
		return IngestResult{}, fmt.Errorf("reindex: %w", err)
	}
	return ingestResult(&rep), nil
}

func ingestResult(rep *batch.Report) IngestResult {
	out := IngestResult{Succeeded: rep.Succeeded(), Failed: map[string]error{}}
	for _, f := range rep.Failed() {
		out.Failed[f.ID()] = f.Err()
	}
	return out
}
