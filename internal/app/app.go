// Package app wires configuration into repositories, services and the HTTP
// handler. It is shared by the API server and the curation CLI.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/schemefinder/internal/config"
	"github.com/kailas-cloud/schemefinder/internal/db"
	dbRedis "github.com/kailas-cloud/schemefinder/internal/db/redis"
	"github.com/kailas-cloud/schemefinder/internal/domain"
	"github.com/kailas-cloud/schemefinder/internal/domain/search/cursor"
	"github.com/kailas-cloud/schemefinder/internal/metrics"
	"github.com/kailas-cloud/schemefinder/internal/repository/chatcache"
	"github.com/kailas-cloud/schemefinder/internal/repository/embcache"
	"github.com/kailas-cloud/schemefinder/internal/repository/querylog"
	"github.com/kailas-cloud/schemefinder/internal/repository/resultcache"
	schemerepo "github.com/kailas-cloud/schemefinder/internal/repository/scheme"
	"github.com/kailas-cloud/schemefinder/internal/repository/vectorindex"
	chiTransport "github.com/kailas-cloud/schemefinder/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/schemefinder/internal/transport/openai"
	chatuc "github.com/kailas-cloud/schemefinder/internal/usecase/chat"
	embeddinguc "github.com/kailas-cloud/schemefinder/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/schemefinder/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/schemefinder/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/schemefinder/internal/usecase/search"
)

// Deps holds the long-lived components built from Config.
type Deps struct {
	Store   db.Store
	Schemes *schemerepo.Repo
	Vectors *vectorindex.Repo
	Search  *searchuc.Service
	Chat    chiTransport.Chatter // nil when no chat model is configured
	Ingest  *ingestuc.Service
	Health  *healthuc.Service
	logger  *zap.Logger
}

// Close releases the store connection.
func (d *Deps) Close() {
	d.Store.Close()
}

// Build connects to the store and assembles every service.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Deps, error) {
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("create database store: %w", err)
	}

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}
	logger.Info("Connected to database")

	deps, err := assemble(store, cfg, logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	return deps, nil
}

func assemble(store db.Store, cfg *config.Config, logger *zap.Logger) (*Deps, error) {
	// Metrics are registered explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterCacheMetrics()
	metrics.RegisterSearchMetrics()
	metrics.RegisterLLMMetrics()

	distance, err := db.ParseDistanceMetric(cfg.Index.Distance)
	if err != nil {
		return nil, fmt.Errorf("index distance: %w", err)
	}

	prefix := cfg.Storage.KeyPrefix
	schemes := schemerepo.New(store, prefix, cfg.Search.BatchGetChunkSize, logger)
	vectors := vectorindex.New(store, vectorindex.Config{
		KeyPrefix:      prefix,
		IndexName:      cfg.Index.Name,
		Dimension:      cfg.Embedding.Dimensions,
		Distance:       distance,
		M:              cfg.Index.HNSWM,
		EFConstruction: cfg.Index.HNSWEFConstruct,
	})
	queryLog := querylog.New(store, prefix,
		time.Duration(cfg.Storage.QueryLogTTLSec)*time.Second, cfg.Storage.QueryLogMaxEntries)

	provider := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})
	docEmb := buildEmbedder(provider, cfg, cfg.Embedding.DocumentInstruction, store, logger)
	queryEmb := buildEmbedder(provider, cfg, cfg.Embedding.QueryInstruction, store, logger)
	logger.Info("Embedders created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	searchSvc, err := buildSearch(cfg, queryEmb, vectors, schemes, queryLog, logger)
	if err != nil {
		return nil, err
	}

	ingestSvc := ingestuc.New(schemes, vectors, docEmb, cfg.Embedding.MaxBatchSize, logger)

	deps := &Deps{
		Store:   store,
		Schemes: schemes,
		Vectors: vectors,
		Search:  searchSvc,
		Ingest:  ingestSvc,
		logger:  logger,
	}

	var llmChecker healthuc.Checker
	if cfg.LLM.Enabled() {
		gen := openaiTransport.NewGenerator(generatorConfig(cfg, logger))
		requests, evictions := metrics.CacheCounters(metrics.CacheChat)
		cache := chatcache.New(cfg.Chat.CacheSizePerNamespace, requests, evictions)
		deps.Chat = chatuc.New(queryLog, cache, gen, chatuc.Config{
			CacheTTL:          time.Duration(cfg.Chat.CacheTTLSec) * time.Second,
			HistoryTurns:      cfg.Chat.HistoryTurns,
			RequestsPerSecond: cfg.LLM.RequestsPerSecond,
			Burst:             cfg.LLM.Burst,
		}, logger)
		llmChecker = gen
		logger.Info("Chat enabled", zap.String("model", cfg.LLM.Model))
	}

	deps.Health = healthuc.New(store, vectors, provider, llmChecker, logger)
	return deps, nil
}

func buildSearch(
	cfg *config.Config,
	queryEmb domain.Embedder,
	vectors *vectorindex.Repo,
	schemes *schemerepo.Repo,
	queryLog *querylog.Repo,
	logger *zap.Logger,
) (*searchuc.Service, error) {
	policy, err := searchuc.ParseMergePolicy(cfg.Search.MergePolicy)
	if err != nil {
		return nil, fmt.Errorf("search config: %w", err)
	}

	requests, evictions := metrics.CacheCounters(metrics.CacheResult)
	cache, err := resultcache.New(cfg.Search.ResultCacheSize, requests, evictions)
	if err != nil {
		return nil, err
	}

	codec, err := cursor.NewCodec([]byte(cfg.Search.CursorSecret), time.Duration(cfg.Search.CursorTTLSec)*time.Second)
	if err != nil {
		return nil, fmt.Errorf("cursor codec: %w", err)
	}

	retriever := searchuc.NewRetriever(queryEmb, vectors, schemes, cache, metrics.RetrievalDroppedTotal, logger)
	svc, err := searchuc.New(retriever, searchuc.NewPaginator(codec, logger), queryLog, searchuc.Config{
		Weights:          searchuc.Weights{Vector: cfg.Search.VectorWeight, Lexical: cfg.Search.LexicalWeight},
		Policy:           policy,
		BM25K1:           cfg.Search.BM25K1,
		BM25B:            cfg.Search.BM25B,
		MaxParallelNeeds: cfg.Search.MaxParallelNeeds,
		LogTopResults:    searchuc.DefaultLogTopResults,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("search service: %w", err)
	}
	return svc, nil
}

// Handler builds the HTTP handler with the full middleware chain.
func (d *Deps) Handler(cfg *config.Config) http.Handler {
	server := chiTransport.NewServer(d.Search, d.Chat, d.Schemes, d.Health, d.logger)
	server.SetTopKBounds(cfg.Search.DefaultTopK, cfg.Search.MaxTopK)
	return chiTransport.NewRouter(server, cfg.Auth.APIKeys, d.logger)
}

func generatorConfig(cfg *config.Config, logger *zap.Logger) *openaiTransport.GeneratorConfig {
	return &openaiTransport.GeneratorConfig{
		Config: openaiTransport.Config{
			APIKey:   cfg.LLM.APIKey,
			BaseURL:  cfg.LLM.BaseURL,
			Model:    cfg.LLM.Model,
			Provider: cfg.LLM.Provider,
			Logger:   logger,
		},
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	}
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction
func buildEmbedder(
	base domain.Embedder, cfg *config.Config, instruction string, store db.Store, logger *zap.Logger,
) domain.Embedder {
	ec := cfg.Embedding

	requests, _ := metrics.CacheCounters(metrics.CacheEmbedding)
	var embedder domain.Embedder = embcache.New(base, store, cfg.Storage.KeyPrefix,
		time.Duration(ec.CacheTTLSec)*time.Second, requests, logger)

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, ec.Provider, ec.Model, ec.MaxBatchSize, logger)

	// Instruction prefix (outermost, so the cache key includes it)
	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction)
	}
	return embedder
}
