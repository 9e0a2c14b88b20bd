// Package retrieval implements the hybrid three-stage article retrieval:
// lexical shortlist, embedding re-rank, optional model re-rank.  Every stage
// degrades rather than fails: a dead lexical index falls back to pure vector
// search, a dead reranker keeps the embedding order, and only a total loss of
// both indexes surfaces an error.
package retrieval

import (
	"context"
	"sort"

	"github.com/verilex/policyaudit/internal/compliance/judge"
	"github.com/verilex/policyaudit/internal/compliance/textutil"
	"github.com/verilex/policyaudit/internal/config"
	"github.com/verilex/policyaudit/internal/infrastructure/monitoring/logging"
	"github.com/verilex/policyaudit/internal/infrastructure/monitoring/metrics"
	"github.com/verilex/policyaudit/pkg/errors"
)

// Candidate is one retrieved article with its per-stage scores.  FinalScore
// is the ranking key: the embedding score until the rerank stage blends a
// model relevance score in.
type Candidate struct {
	ArticleNumber  int
	LexicalScore   float64
	EmbeddingScore float64
	JudgeRelevance float64 // [0, 1]; meaningful only when Judged
	Judged         bool
	FinalScore     float64
}

// Options tunes one retrieval call.
type Options struct {
	// TopK bounds the returned candidate count; 0 uses the configured
	// default.
	TopK int
	// Rerank requests the model re-rank stage; it still requires the stage
	// to be enabled and a reranker to be wired.
	Rerank bool
	// Broaden multiplies TopK by the configured broaden factor.  The
	// coverage pipeline uses this to over-fetch before its similarity-floor
	// filter thins the set out.
	Broaden bool
}

// Orchestrator runs the staged retrieval pipeline.
type Orchestrator struct {
	lexical   LexicalSearcher
	vector    VectorSearcher
	reranker  Reranker
	snapshots SnapshotProvider
	cfg       config.RetrievalConfig
	logger    logging.Logger
	metrics   *metrics.PipelineMetrics
}

// NewOrchestrator wires the retrieval stages.  reranker and m may be nil.
func NewOrchestrator(
	lex LexicalSearcher,
	vec VectorSearcher,
	reranker Reranker,
	snapshots SnapshotProvider,
	cfg config.RetrievalConfig,
	logger logging.Logger,
	m *metrics.PipelineMetrics,
) *Orchestrator {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Orchestrator{
		lexical:   lex,
		vector:    vec,
		reranker:  reranker,
		snapshots: snapshots,
		cfg:       cfg,
		logger:    logger.Named("retrieval"),
		metrics:   m,
	}
}

// Retrieve returns the top candidates for the query, ranked by FinalScore
// descending.  An error is returned only when both indexes are unusable.
func (o *Orchestrator) Retrieve(ctx context.Context, query string, opts Options) ([]Candidate, error) {
	topK := opts.TopK
	if topK <= 0 {
		topK = o.cfg.FinalTopK
	}
	if opts.Broaden && o.cfg.BroadenFactor > 1 {
		topK *= o.cfg.BroadenFactor
	}

	cands, err := o.hybrid(ctx, query, topK, opts.Rerank)
	if err != nil {
		// Whatever broke inside the hybrid path, pure vector search is the
		// fallback of last resort.
		o.recordFallback("hybrid_failed")
		o.logger.Warn("hybrid retrieval failed, falling back to vector search", logging.Err(err))
		cands, err = o.vectorOnly(ctx, query, topK)
		if err != nil {
			return nil, err
		}
	}

	if o.metrics != nil {
		o.metrics.CandidatesReturned.Observe(float64(len(cands)))
	}
	return cands, nil
}

func (o *Orchestrator) hybrid(ctx context.Context, query string, topK int, rerank bool) ([]Candidate, error) {
	// Stage 1: lexical shortlist over the whole corpus.
	timer := o.stageTimer("lexical")
	lexHits, err := o.lexical.SearchLexical(ctx, query, o.cfg.LexicalTopK)
	timer.ObserveDuration()
	if err != nil || len(lexHits) == 0 {
		if err != nil {
			o.logger.Warn("lexical stage unavailable, using vector search only", logging.Err(err))
		}
		o.recordFallback("lexical_empty")
		return o.vectorOnly(ctx, query, topK)
	}

	// Stage 2: embedding re-rank of the shortlist.  The vector search runs
	// over the whole corpus; shortlist members it does not reach keep an
	// embedding score of zero.
	timer = o.stageTimer("embedding")
	vecHits, err := o.vector.SearchVector(ctx, query, o.cfg.LexicalTopK)
	timer.ObserveDuration()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeVectorSearchFailed, "embedding stage failed")
	}
	vecScore := make(map[int]float64, len(vecHits))
	for _, h := range vecHits {
		vecScore[h.ArticleNumber] = h.Score
	}

	cands := make([]Candidate, 0, len(lexHits))
	for _, h := range lexHits {
		emb := vecScore[h.ArticleNumber]
		cands = append(cands, Candidate{
			ArticleNumber:  h.ArticleNumber,
			LexicalScore:   h.Score,
			EmbeddingScore: emb,
			FinalScore:     emb,
		})
	}
	sortByFinalScore(cands)

	// Stage 3: optional model re-rank of the head of the list.
	if rerank && o.cfg.RerankEnabled && o.reranker != nil && o.reranker.Available() {
		o.rerank(ctx, query, cands)
	}

	if len(cands) > topK {
		cands = cands[:topK]
	}
	return cands, nil
}

// rerank blends model relevance into the top candidates in place.  Candidates
// beyond the rerank limit, and candidates the model did not score, keep their
// embedding score.
func (o *Orchestrator) rerank(ctx context.Context, query string, cands []Candidate) {
	limit := o.cfg.RerankLimit
	if len(cands) < limit {
		limit = len(cands)
	}
	if limit == 0 {
		return
	}

	snap := o.snapshots.Snapshot()
	items := make([]judge.RankItem, limit)
	for i := 0; i < limit; i++ {
		text := ""
		if art := snap.ByNumber(cands[i].ArticleNumber); art != nil {
			text = art.FullText
		}
		items[i] = judge.RankItem{ArticleNumber: cands[i].ArticleNumber, Text: text}
	}

	timer := o.stageTimer("rerank")
	scores := o.reranker.RankRelevance(ctx, textutil.Truncate(query, 800), items)
	timer.ObserveDuration()
	if scores == nil {
		o.recordFallback("rerank_failed")
		o.logger.Warn("rerank stage degraded to embedding order")
		return
	}

	for i := 0; i < limit && i < len(scores); i++ {
		relevance := scores[i] / 100
		if relevance < 0 {
			relevance = 0
		}
		if relevance > 1 {
			relevance = 1
		}
		cands[i].JudgeRelevance = relevance
		cands[i].Judged = true
		cands[i].FinalScore = o.cfg.JudgeWeight*relevance + o.cfg.EmbeddingWeight*cands[i].EmbeddingScore
	}
	sortByFinalScore(cands)
}

// vectorOnly is the degraded path: pure embedding search, no blending.
func (o *Orchestrator) vectorOnly(ctx context.Context, query string, topK int) ([]Candidate, error) {
	timer := o.stageTimer("embedding")
	hits, err := o.vector.SearchVector(ctx, query, topK)
	timer.ObserveDuration()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRetrievalFailed, "vector fallback search failed")
	}
	cands := make([]Candidate, len(hits))
	for i, h := range hits {
		cands[i] = Candidate{
			ArticleNumber:  h.ArticleNumber,
			EmbeddingScore: h.Score,
			FinalScore:     h.Score,
		}
	}
	return cands, nil
}

func (o *Orchestrator) stageTimer(stage string) *metrics.Timer {
	if o.metrics == nil {
		return metrics.NewTimer(nil)
	}
	return metrics.NewTimer(o.metrics.StageDuration.WithLabelValues(stage))
}

func (o *Orchestrator) recordFallback(reason string) {
	if o.metrics != nil {
		o.metrics.RetrievalFallbacks.WithLabelValues(reason).Inc()
	}
}

func sortByFinalScore(cands []Candidate) {
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].FinalScore > cands[j].FinalScore })
}
