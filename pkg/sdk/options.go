package schemefinder

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	addrs    []string
	password string

	embedder Embedder

	keyPrefix        string
	vectorDimensions int
	hnswM            int
	hnswEFConstruct  int

	vectorWeight    float64
	lexicalWeight   float64
	mergePolicy     string
	resultCacheSize int
	cursorSecret    []byte

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

func defaultClientConfig() *clientConfig {
	return &clientConfig{
		vectorDimensions: 1024,
		vectorWeight:     0.7,
		lexicalWeight:    0.3,
		mergePolicy:      "sum",
	}
}

// WithRedis configures the client to connect to a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithEmbedder sets the text embedding provider. Required for Search and Ingest.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithVectorDimensions sets the vector dimension of the scheme index.
// Defaults to 1024 (Qwen3-Embedding-8B).
func WithVectorDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.vectorDimensions = dim
	})
}

// WithHNSW configures HNSW index parameters (M and EF construction).
func WithHNSW(m, efConstruct int) Option {
	return optionFunc(func(c *clientConfig) {
		c.hnswM = m
		c.hnswEFConstruct = efConstruct
	})
}

// WithKeyPrefix namespaces every key the client writes. Default "schemefinder:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithRanking sets the vector/lexical blend weights and the merge policy
// ("sum" or "max"). Defaults: 0.7, 0.3, "sum".
func WithRanking(vectorWeight, lexicalWeight float64, mergePolicy string) Option {
	return optionFunc(func(c *clientConfig) {
		c.vectorWeight = vectorWeight
		c.lexicalWeight = lexicalWeight
		c.mergePolicy = mergePolicy
	})
}

// WithResultCacheSize bounds the per-need result cache.
func WithResultCacheSize(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.resultCacheSize = n
	})
}

// WithCursorSecret sets the key that signs pagination cursors. Without it a
// random key is generated, so cursors only work within one Client.
func WithCursorSecret(secret []byte) Option {
	return optionFunc(func(c *clientConfig) {
		c.cursorSecret = secret
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
