// Package config defines all configuration structures for the policyaudit
// service.  No I/O or parsing logic lives here — only plain data types and
// validation.
package config

import (
	"fmt"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format string `mapstructure:"format"` // "json" | "console"
}

// CorpusConfig holds the legal-article corpus source parameters.
type CorpusConfig struct {
	// Path is the JSON file holding the article corpus.
	Path string `mapstructure:"path"`

	// Watch enables fsnotify-driven hot reload of the corpus file.  Indexes
	// are rebuilt aside and swapped atomically; in-flight analyses keep the
	// snapshot they started with.
	Watch bool `mapstructure:"watch"`

	// ScopeArticles is the article-number set that the overall score is
	// averaged over.  Empty means every loaded article.
	ScopeArticles []int `mapstructure:"scope_articles"`
}

// RetrievalConfig holds hybrid-retrieval tunables.
type RetrievalConfig struct {
	LexicalTopK   int  `mapstructure:"lexical_top_k"`
	FinalTopK     int  `mapstructure:"final_top_k"`
	RerankEnabled bool `mapstructure:"rerank_enabled"`
	RerankLimit   int  `mapstructure:"rerank_limit"`

	// BroadenFactor multiplies FinalTopK when retrieval feeds the coverage
	// pipeline, trading precision for recall.
	BroadenFactor int `mapstructure:"broaden_factor"`

	// JudgeWeight and EmbeddingWeight blend the normalized judge relevance
	// score with the embedding score during re-ranking.
	JudgeWeight     float64 `mapstructure:"judge_weight"`
	EmbeddingWeight float64 `mapstructure:"embedding_weight"`
}

// ScoringConfig holds coverage-scoring tunables.
type ScoringConfig struct {
	// SimilarityFloor is the minimum embedding similarity for a retrieval
	// candidate to enter coverage scoring.
	SimilarityFloor float64 `mapstructure:"similarity_floor"`

	// JudgeOnly, when true by default, makes judge unavailability a fatal
	// per-article error instead of triggering the traditional fallback.
	// Requests may still override this per call.
	JudgeOnly bool `mapstructure:"judge_only"`

	// Parallelism bounds concurrent per-article judge calls.  1 disables
	// parallel scoring.
	Parallelism int `mapstructure:"parallelism"`
}

// OpenAIConfig holds LLM transport and embeddings parameters.
type OpenAIConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	ChatModel      string        `mapstructure:"chat_model"`
	EmbeddingModel string        `mapstructure:"embedding_model"`
	JudgeTimeout   time.Duration `mapstructure:"judge_timeout"`
	RerankTimeout  time.Duration `mapstructure:"rerank_timeout"`
}

// OpenSearchConfig holds the optional keyword-store cluster parameters.
type OpenSearchConfig struct {
	Enabled            bool     `mapstructure:"enabled"`
	Addresses          []string `mapstructure:"addresses"`
	User               string   `mapstructure:"user"`
	Password           string   `mapstructure:"password"`
	InsecureSkipVerify bool     `mapstructure:"insecure_skip_verify"`
	IndexPrefix        string   `mapstructure:"index_prefix"`
}

// MilvusConfig holds the optional vector-store connection parameters.
type MilvusConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	Addr             string `mapstructure:"addr"`
	DBName           string `mapstructure:"db_name"`
	EmbeddingDim     int    `mapstructure:"embedding_dim"`
	CollectionPrefix string `mapstructure:"collection_prefix"`
}

// RedisConfig holds the optional embedding-cache parameters.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	DefaultTTL   time.Duration `mapstructure:"default_ttl"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// MetricsConfig holds prometheus exposition parameters.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure for the entire service.  Every
// infrastructure component and pipeline stage reads its settings from the
// relevant sub-struct.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Corpus     CorpusConfig     `mapstructure:"corpus"`
	Retrieval  RetrievalConfig  `mapstructure:"retrieval"`
	Scoring    ScoringConfig    `mapstructure:"scoring"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	OpenSearch OpenSearchConfig `mapstructure:"opensearch"`
	Milvus     MilvusConfig     `mapstructure:"milvus"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config.
// It returns the first error encountered; callers should treat any error as
// fatal and refuse to start the application.
func (c *Config) Validate() error {
	// Server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}

	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	// Corpus
	if c.Corpus.Path == "" {
		return fmt.Errorf("config: corpus.path is required")
	}
	for _, n := range c.Corpus.ScopeArticles {
		if n < 1 {
			return fmt.Errorf("config: corpus.scope_articles contains invalid article number %d", n)
		}
	}

	// Retrieval
	if c.Retrieval.LexicalTopK < 1 {
		return fmt.Errorf("config: retrieval.lexical_top_k must be ≥ 1, got %d", c.Retrieval.LexicalTopK)
	}
	if c.Retrieval.FinalTopK < 1 {
		return fmt.Errorf("config: retrieval.final_top_k must be ≥ 1, got %d", c.Retrieval.FinalTopK)
	}
	if c.Retrieval.RerankLimit < 1 {
		return fmt.Errorf("config: retrieval.rerank_limit must be ≥ 1, got %d", c.Retrieval.RerankLimit)
	}
	if c.Retrieval.BroadenFactor < 1 {
		return fmt.Errorf("config: retrieval.broaden_factor must be ≥ 1, got %d", c.Retrieval.BroadenFactor)
	}
	if c.Retrieval.JudgeWeight < 0 || c.Retrieval.JudgeWeight > 1 {
		return fmt.Errorf("config: retrieval.judge_weight %v is out of range [0, 1]", c.Retrieval.JudgeWeight)
	}
	if c.Retrieval.EmbeddingWeight < 0 || c.Retrieval.EmbeddingWeight > 1 {
		return fmt.Errorf("config: retrieval.embedding_weight %v is out of range [0, 1]", c.Retrieval.EmbeddingWeight)
	}

	// Scoring
	if c.Scoring.SimilarityFloor < 0 || c.Scoring.SimilarityFloor > 1 {
		return fmt.Errorf("config: scoring.similarity_floor %v is out of range [0, 1]", c.Scoring.SimilarityFloor)
	}
	if c.Scoring.Parallelism < 1 {
		return fmt.Errorf("config: scoring.parallelism must be ≥ 1, got %d", c.Scoring.Parallelism)
	}

	// OpenSearch (only when enabled)
	if c.OpenSearch.Enabled && len(c.OpenSearch.Addresses) == 0 {
		return fmt.Errorf("config: opensearch.addresses must contain at least one address when enabled")
	}

	// Milvus (only when enabled)
	if c.Milvus.Enabled {
		if c.Milvus.Addr == "" {
			return fmt.Errorf("config: milvus.addr is required when enabled")
		}
		if c.Milvus.EmbeddingDim < 1 {
			return fmt.Errorf("config: milvus.embedding_dim must be ≥ 1, got %d", c.Milvus.EmbeddingDim)
		}
	}

	// Redis (only when enabled)
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required when enabled")
	}

	return nil
}
