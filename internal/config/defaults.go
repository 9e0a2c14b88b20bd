// Package config provides configuration loading, defaults, and validation for
// the policyaudit service.
package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerPort = 8080
	DefaultServerMode = "debug"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultCorpusPath = "corpus/articles.json"

	DefaultLexicalTopK   = 200
	DefaultFinalTopK     = 20
	DefaultRerankLimit   = 50
	DefaultBroadenFactor = 3

	DefaultJudgeWeight     = 0.7
	DefaultEmbeddingWeight = 0.3

	DefaultSimilarityFloor = 0.70

	DefaultChatModel      = "gpt-4o-mini"
	DefaultEmbeddingModel = "text-embedding-3-small"
	DefaultJudgeTimeout   = 12 * time.Second
	DefaultRerankTimeout  = 15 * time.Second

	DefaultRedisAddr     = "localhost:6379"
	DefaultRedisTTL      = 24 * time.Hour
	DefaultRedisPrefix   = "policyaudit:emb:"
	DefaultMilvusAddr    = "localhost:19530"
	DefaultEmbeddingDim  = 1536
	DefaultIndexPrefix   = "policyaudit"
	DefaultMetricsPath   = "/metrics"
)

// ApplyDefaults fills every zero-value field in cfg with the service default.
// Fields that have already been set by the caller (non-zero values) are left
// unchanged so that explicit configuration always wins.  It must be called
// after unmarshalling raw config data and before Validate().
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 120 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// ── Corpus ────────────────────────────────────────────────────────────────
	if cfg.Corpus.Path == "" {
		cfg.Corpus.Path = DefaultCorpusPath
	}

	// ── Retrieval ─────────────────────────────────────────────────────────────
	if cfg.Retrieval.LexicalTopK == 0 {
		cfg.Retrieval.LexicalTopK = DefaultLexicalTopK
	}
	if cfg.Retrieval.FinalTopK == 0 {
		cfg.Retrieval.FinalTopK = DefaultFinalTopK
	}
	if cfg.Retrieval.RerankLimit == 0 {
		cfg.Retrieval.RerankLimit = DefaultRerankLimit
	}
	if cfg.Retrieval.BroadenFactor == 0 {
		cfg.Retrieval.BroadenFactor = DefaultBroadenFactor
	}
	if cfg.Retrieval.JudgeWeight == 0 {
		cfg.Retrieval.JudgeWeight = DefaultJudgeWeight
	}
	if cfg.Retrieval.EmbeddingWeight == 0 {
		cfg.Retrieval.EmbeddingWeight = DefaultEmbeddingWeight
	}

	// ── Scoring ───────────────────────────────────────────────────────────────
	if cfg.Scoring.SimilarityFloor == 0 {
		cfg.Scoring.SimilarityFloor = DefaultSimilarityFloor
	}
	if cfg.Scoring.Parallelism == 0 {
		cfg.Scoring.Parallelism = 1
	}

	// ── OpenAI ────────────────────────────────────────────────────────────────
	if cfg.OpenAI.ChatModel == "" {
		cfg.OpenAI.ChatModel = DefaultChatModel
	}
	if cfg.OpenAI.EmbeddingModel == "" {
		cfg.OpenAI.EmbeddingModel = DefaultEmbeddingModel
	}
	if cfg.OpenAI.JudgeTimeout == 0 {
		cfg.OpenAI.JudgeTimeout = DefaultJudgeTimeout
	}
	if cfg.OpenAI.RerankTimeout == 0 {
		cfg.OpenAI.RerankTimeout = DefaultRerankTimeout
	}

	// ── OpenSearch ────────────────────────────────────────────────────────────
	if cfg.OpenSearch.IndexPrefix == "" {
		cfg.OpenSearch.IndexPrefix = DefaultIndexPrefix
	}

	// ── Milvus ────────────────────────────────────────────────────────────────
	if cfg.Milvus.Addr == "" {
		cfg.Milvus.Addr = DefaultMilvusAddr
	}
	if cfg.Milvus.EmbeddingDim == 0 {
		cfg.Milvus.EmbeddingDim = DefaultEmbeddingDim
	}
	if cfg.Milvus.CollectionPrefix == "" {
		cfg.Milvus.CollectionPrefix = DefaultIndexPrefix
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.DefaultTTL == 0 {
		cfg.Redis.DefaultTTL = DefaultRedisTTL
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisPrefix
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
}
