package main

import (
	"context"
	"time"

	"github.com/verilex/policyaudit/internal/compliance/embedding"
	"github.com/verilex/policyaudit/internal/compliance/judge"
	"github.com/verilex/policyaudit/internal/compliance/lexical"
	"github.com/verilex/policyaudit/internal/compliance/pipeline"
	"github.com/verilex/policyaudit/internal/compliance/retrieval"
	"github.com/verilex/policyaudit/internal/compliance/scoring"
	"github.com/verilex/policyaudit/internal/config"
	"github.com/verilex/policyaudit/internal/domain/corpus"
	rediscache "github.com/verilex/policyaudit/internal/infrastructure/cache/redis"
	openaiclient "github.com/verilex/policyaudit/internal/infrastructure/llm/openai"
	"github.com/verilex/policyaudit/internal/infrastructure/monitoring/logging"
	"github.com/verilex/policyaudit/internal/infrastructure/monitoring/metrics"
	milvusstore "github.com/verilex/policyaudit/internal/infrastructure/search/milvus"
	opensearchstore "github.com/verilex/policyaudit/internal/infrastructure/search/opensearch"
)

// rebuildTimeout bounds index rebuilds triggered by corpus reloads.
const rebuildTimeout = 5 * time.Minute

// application holds the wired object graph behind the HTTP interface.
type application struct {
	metrics *metrics.PipelineMetrics
	corpus  *corpus.Store
	service *pipeline.Service
	closers []func() error
}

func (a *application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}

// buildApplication wires the analysis pipeline from configuration.  The
// in-process BM25 and vector indexes are the default engines; OpenSearch and
// Milvus take their place when enabled.
func buildApplication(ctx context.Context, cfg *config.Config, logger logging.Logger) (*application, error) {
	app := &application{}

	if cfg.Metrics.Enabled {
		app.metrics = metrics.NewPipelineMetrics()
	}

	store, err := corpus.NewStore(cfg.Corpus.Path, logger)
	if err != nil {
		return nil, err
	}
	app.corpus = store

	llm, err := openaiclient.NewClient(cfg.OpenAI, logger)
	if err != nil {
		return nil, err
	}

	var embedder embedding.Embedder = llm
	if cfg.Redis.Enabled {
		cache, err := rediscache.NewEmbeddingCache(cfg.Redis, llm, logger, app.metrics)
		if err != nil {
			logger.Warn("embedding cache unavailable, continuing without it", logging.Err(err))
		} else {
			embedder = cache
		}
	}

	adapter := judge.NewAdapter(llm, judge.Config{
		JudgeTimeout:  cfg.OpenAI.JudgeTimeout,
		RerankTimeout: cfg.OpenAI.RerankTimeout,
	}, logger, app.metrics)

	lex, err := buildLexical(ctx, cfg, store, logger)
	if err != nil {
		return nil, err
	}
	vec, err := buildVector(ctx, cfg, store, embedder, logger, app)
	if err != nil {
		return nil, err
	}

	orchestrator := retrieval.NewOrchestrator(lex, vec, adapter, store, cfg.Retrieval, logger, app.metrics)
	scorer := scoring.NewScorer(adapter, logger, app.metrics)
	app.service = pipeline.NewService(
		orchestrator, scorer, adapter, store,
		cfg.Scoring, cfg.Corpus.ScopeArticles, logger, app.metrics)

	if cfg.Corpus.Watch {
		if err := store.Watch(ctx); err != nil {
			return nil, err
		}
	}
	return app, nil
}

func buildLexical(ctx context.Context, cfg *config.Config, store *corpus.Store, logger logging.Logger) (retrieval.LexicalSearcher, error) {
	if cfg.OpenSearch.Enabled {
		osStore, err := opensearchstore.NewStore(cfg.OpenSearch, logger)
		if err != nil {
			return nil, err
		}
		if err := osStore.Rebuild(ctx, store.Snapshot()); err != nil {
			return nil, err
		}
		store.OnReload(func(snap *corpus.Snapshot) {
			rctx, cancel := context.WithTimeout(context.Background(), rebuildTimeout)
			defer cancel()
			if err := osStore.Rebuild(rctx, snap); err != nil {
				logger.Error("keyword index rebuild failed, previous index keeps serving", logging.Err(err))
			}
		})
		return osStore, nil
	}

	memLex := retrieval.NewMemoryLexical(lexical.Build(store.Snapshot()))
	store.OnReload(func(snap *corpus.Snapshot) {
		memLex.Update(lexical.Build(snap))
	})
	return memLex, nil
}

func buildVector(ctx context.Context, cfg *config.Config, store *corpus.Store, embedder embedding.Embedder, logger logging.Logger, app *application) (retrieval.VectorSearcher, error) {
	if cfg.Milvus.Enabled {
		mStore, err := milvusstore.NewStore(ctx, cfg.Milvus, embedder, logger)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, mStore.Close)
		if err := mStore.Rebuild(ctx, store.Snapshot()); err != nil {
			return nil, err
		}
		store.OnReload(func(snap *corpus.Snapshot) {
			rctx, cancel := context.WithTimeout(context.Background(), rebuildTimeout)
			defer cancel()
			if err := mStore.Rebuild(rctx, snap); err != nil {
				logger.Error("vector collection rebuild failed, previous collection keeps serving", logging.Err(err))
			}
		})
		return mStore, nil
	}

	idx := embedding.NewIndex(embedder)
	if err := idx.Rebuild(ctx, store.Snapshot()); err != nil {
		return nil, err
	}
	store.OnReload(func(snap *corpus.Snapshot) {
		rctx, cancel := context.WithTimeout(context.Background(), rebuildTimeout)
		defer cancel()
		if err := idx.Rebuild(rctx, snap); err != nil {
			logger.Error("vector index rebuild failed, previous index keeps serving", logging.Err(err))
		}
	})
	return retrieval.NewMemoryVector(idx), nil
}
