// Package pipeline runs the end-to-end document analysis: page join, hybrid
// retrieval, similarity-floor filtering, per-article coverage scoring,
// aggregation, and optional remediation recommendations.
package pipeline

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/verilex/policyaudit/internal/compliance/judge"
	"github.com/verilex/policyaudit/internal/compliance/retrieval"
	"github.com/verilex/policyaudit/internal/compliance/scoring"
	"github.com/verilex/policyaudit/internal/compliance/textutil"
	"github.com/verilex/policyaudit/internal/config"
	"github.com/verilex/policyaudit/internal/domain/corpus"
	"github.com/verilex/policyaudit/internal/domain/document"
	"github.com/verilex/policyaudit/internal/infrastructure/monitoring/logging"
	"github.com/verilex/policyaudit/internal/infrastructure/monitoring/metrics"
)

// Diagnostic read path floors: stricter than the scoring pipeline so its
// output lists only near-certain matches.
const (
	diagnosticSimilarityFloor = 0.80
	diagnosticOverlapFloor    = 0.15
)

// Retriever is the hybrid retrieval surface; satisfied by
// *retrieval.Orchestrator.
type Retriever interface {
	Retrieve(ctx context.Context, query string, opts retrieval.Options) ([]retrieval.Candidate, error)
}

// ArticleScorer is the coverage scoring surface; satisfied by
// *scoring.Scorer.
type ArticleScorer interface {
	ScoreArticle(ctx context.Context, article *corpus.LegalArticle, cand retrieval.Candidate, documentText string, opts scoring.ScoreOptions) (*scoring.CoverageRecord, error)
}

// Recommender drafts remediation guidance; satisfied by *judge.Adapter.  A
// nil Recommender disables recommendations.
type Recommender interface {
	Available() bool
	RecommendRemediations(ctx context.Context, documentText string, missing, partial []judge.Gap) []judge.Recommendation
}

// Options tunes one analysis request.  Everything here is request-scoped;
// nothing is written back to shared configuration.
type Options struct {
	// Scope overrides the configured article scope for this request.
	Scope []int
	// JudgeOnly makes judge unavailability fatal instead of falling back.
	JudgeOnly bool
	// Rerank requests the model re-rank stage during retrieval.
	Rerank bool
	// TopK bounds retrieval before the similarity floor; 0 uses the default.
	TopK int
	// Recommendations requests remediation drafting for coverage gaps.
	Recommendations bool
}

// Report is the analysis outcome returned to the interface layers.
type Report struct {
	AnalysisID      string                     `json:"analysis_id"`
	Overall         scoring.OverallScoreReport `json:"overall"`
	Recommendations []judge.Recommendation     `json:"recommendations,omitempty"`
	ElapsedMS       int64                      `json:"elapsed_ms"`
}

// DirectMatch is one article matched by the diagnostic text-similarity path.
type DirectMatch struct {
	ArticleNumber      int     `json:"article_number"`
	Title              string  `json:"title"`
	EmbeddingScore     float64 `json:"embedding_score"`
	KeywordOverlap     float64 `json:"keyword_overlap"`
	SequenceSimilarity float64 `json:"sequence_similarity"`
}

// Service orchestrates one analysis per call.  Safe for concurrent use: all
// per-request state lives on the stack.
type Service struct {
	retriever   Retriever
	scorer      ArticleScorer
	recommender Recommender
	snapshots   retrieval.SnapshotProvider
	cfg         config.ScoringConfig
	scope       []int
	logger      logging.Logger
	metrics     *metrics.PipelineMetrics
}

// NewService wires the pipeline.  defaultScope empty means "every loaded
// article"; recommender and m may be nil.
func NewService(
	retriever Retriever,
	scorer ArticleScorer,
	recommender Recommender,
	snapshots retrieval.SnapshotProvider,
	cfg config.ScoringConfig,
	defaultScope []int,
	logger logging.Logger,
	m *metrics.PipelineMetrics,
) *Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Service{
		retriever:   retriever,
		scorer:      scorer,
		recommender: recommender,
		snapshots:   snapshots,
		cfg:         cfg,
		scope:       defaultScope,
		logger:      logger.Named("pipeline"),
		metrics:     m,
	}
}

// Analyze scores the document pages against the article scope and returns
// the aggregated report.  An empty document yields a well-formed zero report.
func (s *Service) Analyze(ctx context.Context, pages []document.Page, opts Options) (*Report, error) {
	start := time.Now()
	analysisID := uuid.NewString()
	log := s.logger.With(logging.String("analysis_id", analysisID))

	scope := s.resolveScope(opts.Scope)
	text := document.Join(pages)

	if text == "" || len(scope) == 0 {
		log.Warn("nothing to analyze",
			logging.Int("pages", len(pages)), logging.Int("scope", len(scope)))
		report := s.finish(analysisID, scoring.Aggregate(nil, scope), nil, start, opts, "empty")
		return report, nil
	}

	cands, err := s.retriever.Retrieve(ctx, text, retrieval.Options{
		TopK:    opts.TopK,
		Rerank:  opts.Rerank,
		Broaden: true,
	})
	if err != nil {
		s.countAnalysis("error")
		return nil, err
	}
	cands = filterByFloor(cands, s.cfg.SimilarityFloor)
	log.Info("retrieval complete", logging.Int("candidates", len(cands)))

	records, err := s.scoreCandidates(ctx, cands, text, opts)
	if err != nil {
		s.countAnalysis("error")
		return nil, err
	}

	overall := scoring.Aggregate(records, scope)

	var recs []judge.Recommendation
	if opts.Recommendations && s.recommender != nil && s.recommender.Available() {
		recs = s.recommend(ctx, text, overall)
	}

	report := s.finish(analysisID, overall, recs, start, opts, "ok")
	log.Info("analysis complete",
		logging.Float64("overall_score", overall.OverallScore),
		logging.String("compliance_level", string(overall.ComplianceLevel)),
		logging.Int64("elapsed_ms", report.ElapsedMS))
	return report, nil
}

// Diagnose is the strict read path: candidates must clear a 0.80 embedding
// floor and a 0.15 keyword overlap against the document.  No judging, no
// aggregation.
func (s *Service) Diagnose(ctx context.Context, pages []document.Page) ([]DirectMatch, error) {
	text := document.Join(pages)
	if text == "" {
		return []DirectMatch{}, nil
	}

	cands, err := s.retriever.Retrieve(ctx, text, retrieval.Options{Broaden: true})
	if err != nil {
		return nil, err
	}

	snap := s.snapshots.Snapshot()
	matches := []DirectMatch{}
	for _, c := range cands {
		if c.EmbeddingScore < diagnosticSimilarityFloor {
			continue
		}
		art := snap.ByNumber(c.ArticleNumber)
		if art == nil {
			continue
		}
		overlap := textutil.KeywordOverlap(art.FullText, text)
		if overlap < diagnosticOverlapFloor {
			continue
		}
		matches = append(matches, DirectMatch{
			ArticleNumber:      art.Number,
			Title:              art.Title,
			EmbeddingScore:     c.EmbeddingScore,
			KeywordOverlap:     overlap,
			SequenceSimilarity: textutil.SequenceSimilarity(art.FullText, text),
		})
	}
	return matches, nil
}

// scoreCandidates produces one record per candidate, in candidate order.
// With parallelism configured the judge calls fan out, bounded, each with
// its own context slot so prompts never leak across articles.
func (s *Service) scoreCandidates(ctx context.Context, cands []retrieval.Candidate, text string, opts Options) ([]scoring.CoverageRecord, error) {
	snap := s.snapshots.Snapshot()
	scoreOpts := scoring.ScoreOptions{JudgeOnly: opts.JudgeOnly || s.cfg.JudgeOnly}

	records := make([]*scoring.CoverageRecord, len(cands))

	if s.cfg.Parallelism > 1 && len(cands) > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.cfg.Parallelism)
		var mu sync.Mutex
		for i, cand := range cands {
			i, cand := i, cand
			g.Go(func() error {
				rec, err := s.scorer.ScoreArticle(gctx, snap.ByNumber(cand.ArticleNumber), cand, text, scoreOpts)
				if err != nil {
					return err
				}
				mu.Lock()
				records[i] = rec
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i, cand := range cands {
			rec, err := s.scorer.ScoreArticle(ctx, snap.ByNumber(cand.ArticleNumber), cand, text, scoreOpts)
			if err != nil {
				return nil, err
			}
			records[i] = rec
		}
	}

	out := make([]scoring.CoverageRecord, 0, len(records))
	for _, rec := range records {
		if rec != nil {
			out = append(out, *rec)
		}
	}
	return out, nil
}

// recommend turns the report's worst gaps into judge remediation input.
func (s *Service) recommend(ctx context.Context, text string, overall scoring.OverallScoreReport) []judge.Recommendation {
	snap := s.snapshots.Snapshot()

	var missing, partial []judge.Gap
	for _, n := range overall.MissingArticles {
		if art := snap.ByNumber(n); art != nil {
			missing = append(missing, judge.Gap{
				Reference: art.Heading(),
				Text:      art.FullText,
				Detail:    "not addressed anywhere in the policy",
			})
		}
	}
	for _, rec := range overall.Records {
		for _, cj := range rec.MissingClauses {
			missing = append(missing, judge.Gap{Reference: cj.Label, Text: cj.Text, Detail: cj.Explanation})
		}
		for _, cj := range rec.PartialClauses {
			partial = append(partial, judge.Gap{Reference: cj.Label, Text: cj.Text, Detail: cj.Explanation})
		}
	}
	if len(missing) == 0 && len(partial) == 0 {
		return nil
	}
	return s.recommender.RecommendRemediations(ctx, text, missing, partial)
}

func (s *Service) resolveScope(override []int) []int {
	if len(override) > 0 {
		return dedupeSorted(override)
	}
	if len(s.scope) > 0 {
		return dedupeSorted(s.scope)
	}
	return s.snapshots.Snapshot().Numbers()
}

func (s *Service) finish(id string, overall scoring.OverallScoreReport, recs []judge.Recommendation, start time.Time, opts Options, status string) *Report {
	s.countAnalysis(status)
	if s.metrics != nil {
		mode := "hybrid"
		if opts.JudgeOnly || s.cfg.JudgeOnly {
			mode = "judge_only"
		}
		s.metrics.AnalysisDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
		s.metrics.OverallScore.Observe(overall.OverallScore)
	}
	return &Report{
		AnalysisID:      id,
		Overall:         overall,
		Recommendations: recs,
		ElapsedMS:       time.Since(start).Milliseconds(),
	}
}

func (s *Service) countAnalysis(status string) {
	if s.metrics != nil {
		s.metrics.AnalysesTotal.WithLabelValues(status).Inc()
	}
}

func filterByFloor(cands []retrieval.Candidate, floor float64) []retrieval.Candidate {
	out := make([]retrieval.Candidate, 0, len(cands))
	for _, c := range cands {
		if c.EmbeddingScore >= floor {
			out = append(out, c)
		}
	}
	return out
}

func dedupeSorted(nums []int) []int {
	seen := make(map[int]bool, len(nums))
	out := make([]int, 0, len(nums))
	for _, n := range nums {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.Ints(out)
	return out
}
