package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		HTTP:      HTTPConfig{Port: 8080},
		Database:  DatabaseConfig{Addrs: []string{"localhost:6379"}},
		Embedding: EmbeddingConfig{Model: "text-embedding-3-small", Dimensions: 1536},
		Search:    SearchConfig{CursorSecret: "0123456789abcdef"},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_OK(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for port 0")
	}
}

func TestValidate_MissingAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Addrs = nil
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing addrs")
	}
}

func TestValidate_Errors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no model", func(c *Config) { c.Embedding.Model = "" }, "embedding.model"},
		{"no dims", func(c *Config) { c.Embedding.Dimensions = 0 }, "embedding.dimensions"},
		{"merge policy", func(c *Config) { c.Search.MergePolicy = "avg" }, "merge_policy"},
		{"negative weight", func(c *Config) { c.Search.LexicalWeight = -1 }, "weights"},
		{"top_k", func(c *Config) { c.Search.DefaultTopK = 200 }, "default_top_k"},
		{"short secret", func(c *Config) { c.Search.CursorSecret = "short" }, "cursor_secret"},
		{"distance", func(c *Config) { c.Index.Distance = "HAMMING" }, "index.distance"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("ReadTimeoutSec = %d, want 10", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Search.VectorWeight != 0.7 || cfg.Search.LexicalWeight != 0.3 {
		t.Errorf("weights = %v/%v, want 0.7/0.3", cfg.Search.VectorWeight, cfg.Search.LexicalWeight)
	}
	if cfg.Search.MergePolicy != "sum" {
		t.Errorf("MergePolicy = %q, want sum", cfg.Search.MergePolicy)
	}
	if cfg.Search.BM25K1 != 1.5 || cfg.Search.BM25B != 0.75 {
		t.Errorf("bm25 = %v/%v", cfg.Search.BM25K1, cfg.Search.BM25B)
	}
	if cfg.Search.BatchGetChunkSize != 30 {
		t.Errorf("BatchGetChunkSize = %d, want 30", cfg.Search.BatchGetChunkSize)
	}
	if cfg.Storage.KeyPrefix != "schemefinder:" {
		t.Errorf("KeyPrefix = %q", cfg.Storage.KeyPrefix)
	}
	if cfg.Chat.HistoryTurns != 6 || cfg.Chat.CacheTTLSec != 3600 {
		t.Errorf("chat defaults = %+v", cfg.Chat)
	}
	if cfg.LLM.Enabled() {
		t.Error("LLM must be disabled without a model")
	}
	if cfg.LLM.Provider != "openai" {
		t.Errorf("LLM.Provider = %q, want openai", cfg.LLM.Provider)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:    HTTPConfig{ReadTimeoutSec: 30},
		Search:  SearchConfig{VectorWeight: 1, MergePolicy: "max", BatchGetChunkSize: 10},
		Storage: StorageConfig{KeyPrefix: "custom:"},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("ReadTimeoutSec = %d, want 30", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Search.VectorWeight != 1 || cfg.Search.LexicalWeight != 0 {
		t.Errorf("explicit weights overridden: %v/%v", cfg.Search.VectorWeight, cfg.Search.LexicalWeight)
	}
	if cfg.Search.MergePolicy != "max" || cfg.Search.BatchGetChunkSize != 10 {
		t.Errorf("search overridden: %+v", cfg.Search)
	}
	if cfg.Storage.KeyPrefix != "custom:" {
		t.Errorf("KeyPrefix = %q", cfg.Storage.KeyPrefix)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("SF_TEST_KEY", "secret")
	got := string(expandEnvVars([]byte("a: ${SF_TEST_KEY}\nb: ${SF_TEST_MISSING:-fallback}\nc: ${SF_TEST_MISSING}")))
	want := "a: secret\nb: fallback\nc: "
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatal(err)
	}
	yaml := `
http:
  port: 9090
database:
  addrs: ["${SF_TEST_REDIS:-localhost:6379}"]
embedding:
  model: m
  dimensions: 8
search:
  cursor_secret: "0123456789abcdef0123"
  merge_policy: max
`
	if err := os.WriteFile(filepath.Join(dir, "config", "unit.yaml"), []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	cfg, err := Load("unit")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Port != 9090 || cfg.Database.Addrs[0] != "localhost:6379" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.Search.MergePolicy != "max" || cfg.Search.DefaultTopK != 20 {
		t.Errorf("search = %+v", cfg.Search)
	}
}
