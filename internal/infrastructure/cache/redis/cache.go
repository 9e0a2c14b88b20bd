// Package redis provides the optional embedding cache: a decorator over the
// embedder keyed by content hash, so corpus reloads and repeated queries do
// not re-bill the embeddings API.  The cache fails open — any redis error
// degrades to a direct embedder call.
package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/verilex/policyaudit/internal/compliance/embedding"
	"github.com/verilex/policyaudit/internal/config"
	"github.com/verilex/policyaudit/internal/infrastructure/monitoring/logging"
	"github.com/verilex/policyaudit/internal/infrastructure/monitoring/metrics"
	"github.com/verilex/policyaudit/pkg/errors"
)

// EmbeddingCache wraps an embedder with a redis lookaside cache.
type EmbeddingCache struct {
	inner   embedding.Embedder
	rdb     redis.UniversalClient
	ttl     time.Duration
	prefix  string
	logger  logging.Logger
	metrics *metrics.PipelineMetrics
}

// NewEmbeddingCache connects to redis and wraps inner.  The connection is
// verified with a ping so a misconfigured cache fails at startup, not on the
// first request.
func NewEmbeddingCache(cfg config.RedisConfig, inner embedding.Embedder, logger logging.Logger, m *metrics.PipelineMetrics) (*EmbeddingCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "redis connection failed")
	}

	return newWithClient(rdb, cfg, inner, logger, m), nil
}

func newWithClient(rdb redis.UniversalClient, cfg config.RedisConfig, inner embedding.Embedder, logger logging.Logger, m *metrics.PipelineMetrics) *EmbeddingCache {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &EmbeddingCache{
		inner:   inner,
		rdb:     rdb,
		ttl:     cfg.DefaultTTL,
		prefix:  cfg.KeyPrefix,
		logger:  logger.Named("embedcache"),
		metrics: m,
	}
}

// Close releases the redis connection.
func (c *EmbeddingCache) Close() error {
	return c.rdb.Close()
}

// EmbedTexts implements embedding.Embedder.  Hits come from redis, misses
// from the inner embedder, and fresh vectors are written back best-effort.
func (c *EmbeddingCache) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	keys := make([]string, len(texts))
	for i, t := range texts {
		keys[i] = c.key(t)
	}

	out := make([][]float32, len(texts))
	missIdx := make([]int, 0, len(texts))

	cached, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		c.logger.Warn("cache lookup failed, embedding directly", logging.Err(err))
		return c.inner.EmbedTexts(ctx, texts)
	}

	for i, raw := range cached {
		vec := decodeVector(raw)
		if vec == nil {
			missIdx = append(missIdx, i)
			continue
		}
		out[i] = vec
		c.countHit()
	}

	if len(missIdx) == 0 {
		return out, nil
	}

	missTexts := make([]string, len(missIdx))
	for j, i := range missIdx {
		missTexts[j] = texts[i]
		c.countMiss()
	}
	fresh, err := c.inner.EmbedTexts(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missTexts) {
		return nil, errors.Newf(errors.ErrCodeEmbeddingFailed,
			"embedder returned %d vectors for %d texts", len(fresh), len(missTexts))
	}

	pipe := c.rdb.Pipeline()
	for j, i := range missIdx {
		out[i] = fresh[j]
		if payload, err := json.Marshal(fresh[j]); err == nil {
			pipe.Set(ctx, keys[i], payload, c.ttl)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("cache write-back failed", logging.Err(err))
	}
	return out, nil
}

func (c *EmbeddingCache) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return c.prefix + hex.EncodeToString(sum[:])
}

func decodeVector(raw interface{}) []float32 {
	s, ok := raw.(string)
	if !ok || s == "" {
		return nil
	}
	var vec []float32
	if err := json.Unmarshal([]byte(s), &vec); err != nil || len(vec) == 0 {
		return nil
	}
	return vec
}

func (c *EmbeddingCache) countHit() {
	if c.metrics != nil {
		c.metrics.EmbeddingCacheHits.Inc()
	}
}

func (c *EmbeddingCache) countMiss() {
	if c.metrics != nil {
		c.metrics.EmbeddingCacheMisses.Inc()
	}
}
