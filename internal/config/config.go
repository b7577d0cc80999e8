package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the schemefinder configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Auth      AuthConfig      `yaml:"auth"`
	Index     IndexConfig     `yaml:"index"`
	Search    SearchConfig    `yaml:"search"`
	Chat      ChatConfig      `yaml:"chat"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// IndexConfig holds vector index settings.
type IndexConfig struct {
	Name            string `yaml:"name"`
	Distance        string `yaml:"distance"` // COSINE, L2, IP
	HNSWM           int    `yaml:"hnsw_m"`
	HNSWEFConstruct int    `yaml:"hnsw_ef_construction"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix          string `yaml:"key_prefix"`
	QueryLogTTLSec     int    `yaml:"query_log_ttl_sec"`
	QueryLogMaxEntries int    `yaml:"query_log_max_entries"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider            string `yaml:"provider"`
	APIKey              string `yaml:"api_key"`
	BaseURL             string `yaml:"base_url"`
	Model               string `yaml:"model"`
	Dimensions          int    `yaml:"dimensions"`
	MaxBatchSize        int    `yaml:"max_batch_size"`
	CacheTTLSec         int    `yaml:"cache_ttl_sec"` // 0 = no expiry
	DocumentInstruction string `yaml:"document_instruction"`
	QueryInstruction    string `yaml:"query_instruction"`
}

// LLMConfig holds chat completion settings.
type LLMConfig struct {
	Provider          string  `yaml:"provider"`
	APIKey            string  `yaml:"api_key"`
	BaseURL           string  `yaml:"base_url"`
	Model             string  `yaml:"model"`
	MaxTokens         int     `yaml:"max_tokens"`
	Temperature       float32 `yaml:"temperature"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// Enabled reports whether a chat model is configured.
func (c LLMConfig) Enabled() bool {
	return c.Model != ""
}

// SearchConfig holds retrieval and ranking settings.
type SearchConfig struct {
	DefaultTopK       int     `yaml:"default_top_k"`
	MaxTopK           int     `yaml:"max_top_k"`
	VectorWeight      float64 `yaml:"vector_weight"`
	LexicalWeight     float64 `yaml:"lexical_weight"`
	MergePolicy       string  `yaml:"merge_policy"` // sum, max
	BM25K1            float64 `yaml:"bm25_k1"`
	BM25B             float64 `yaml:"bm25_b"`
	BatchGetChunkSize int     `yaml:"batch_get_chunk_size"`
	MaxParallelNeeds  int     `yaml:"max_parallel_needs"`
	ResultCacheSize   int     `yaml:"result_cache_size"`
	CursorSecret      string  `yaml:"cursor_secret"`
	CursorTTLSec      int     `yaml:"cursor_ttl_sec"` // 0 = cursors never expire
}

// ChatConfig holds conversational cache settings.
type ChatConfig struct {
	CacheSizePerNamespace int `yaml:"cache_size_per_namespace"`
	CacheTTLSec           int `yaml:"cache_ttl_sec"`
	HistoryTurns          int `yaml:"history_turns"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.MaxBatchSize <= 0 {
		c.Embedding.MaxBatchSize = 64
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.RequestsPerSecond <= 0 {
		c.LLM.RequestsPerSecond = 5
	}
	if c.LLM.Burst <= 0 {
		c.LLM.Burst = 10
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = 512
	}
	if c.Index.Distance == "" {
		c.Index.Distance = "COSINE"
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 200
	}
	c.applySearchDefaults()
	if c.Chat.CacheSizePerNamespace <= 0 {
		c.Chat.CacheSizePerNamespace = 512
	}
	if c.Chat.CacheTTLSec <= 0 {
		c.Chat.CacheTTLSec = 3600
	}
	if c.Chat.HistoryTurns <= 0 {
		c.Chat.HistoryTurns = 6
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "schemefinder:"
	}
	if c.Storage.QueryLogTTLSec <= 0 {
		c.Storage.QueryLogTTLSec = 7 * 24 * 3600
	}
	if c.Storage.QueryLogMaxEntries <= 0 {
		c.Storage.QueryLogMaxEntries = 100
	}
}

func (c *Config) applySearchDefaults() {
	s := &c.Search
	if s.DefaultTopK <= 0 {
		s.DefaultTopK = 20
	}
	if s.MaxTopK <= 0 {
		s.MaxTopK = 100
	}
	if s.VectorWeight == 0 && s.LexicalWeight == 0 {
		s.VectorWeight, s.LexicalWeight = 0.7, 0.3
	}
	if s.MergePolicy == "" {
		s.MergePolicy = "sum"
	}
	if s.BM25K1 <= 0 {
		s.BM25K1 = 1.5
	}
	if s.BM25B <= 0 {
		s.BM25B = 0.75
	}
	if s.BatchGetChunkSize <= 0 {
		s.BatchGetChunkSize = 30
	}
	if s.MaxParallelNeeds <= 0 {
		s.MaxParallelNeeds = 4
	}
	if s.ResultCacheSize <= 0 {
		s.ResultCacheSize = 1024
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	switch c.Search.MergePolicy {
	case "sum", "max":
	default:
		return fmt.Errorf("search.merge_policy must be \"sum\" or \"max\", got %q", c.Search.MergePolicy)
	}
	if c.Search.VectorWeight < 0 || c.Search.LexicalWeight < 0 {
		return fmt.Errorf("search weights must be non-negative")
	}
	if c.Search.DefaultTopK > c.Search.MaxTopK {
		return fmt.Errorf("search.default_top_k (%d) exceeds search.max_top_k (%d)",
			c.Search.DefaultTopK, c.Search.MaxTopK)
	}
	if len(c.Search.CursorSecret) < 16 {
		return fmt.Errorf("search.cursor_secret must be at least 16 bytes")
	}
	switch c.Index.Distance {
	case "COSINE", "L2", "IP":
	default:
		return fmt.Errorf("index.distance must be COSINE, L2 or IP, got %q", c.Index.Distance)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
