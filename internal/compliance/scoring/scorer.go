package scoring

import (
	"context"

	"github.com/verilex/policyaudit/internal/compliance/judge"
	"github.com/verilex/policyaudit/internal/compliance/retrieval"
	"github.com/verilex/policyaudit/internal/compliance/textutil"
	"github.com/verilex/policyaudit/internal/domain/corpus"
	"github.com/verilex/policyaudit/internal/infrastructure/monitoring/logging"
	"github.com/verilex/policyaudit/internal/infrastructure/monitoring/metrics"
	"github.com/verilex/policyaudit/pkg/errors"
)

// Weights of the traditional (non-judge) clause score and of the diagnostic
// retrieval confidence.  Lexical BM25 scores are unbounded, so they are
// squashed by /10 capped at 1 before blending.
const (
	lexicalWeight   = 0.4
	embeddingWeight = 0.6
	lexicalNorm     = 10.0

	clausePreviewLen = 200
)

// JudgePort is the judge surface the scorer needs; satisfied by
// *judge.Adapter.
type JudgePort interface {
	Available() bool
	JudgeCoverage(ctx context.Context, reference, requirement, documentText string) *judge.Judgment
}

// ScoreOptions tunes one scoring call.  Options are per request, never shared
// state: a strict mode set for one request must not leak into another.
type ScoreOptions struct {
	// JudgeOnly promotes judge unavailability from a silent fallback to a
	// fatal per-article error.
	JudgeOnly bool
}

// Scorer computes one CoverageRecord per retrieved article.
type Scorer struct {
	judge   JudgePort
	logger  logging.Logger
	metrics *metrics.PipelineMetrics
}

// NewScorer builds a Scorer.  judgePort and m may be nil; without a judge
// every article takes the traditional path.
func NewScorer(judgePort JudgePort, logger logging.Logger, m *metrics.PipelineMetrics) *Scorer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Scorer{judge: judgePort, logger: logger.Named("scoring"), metrics: m}
}

// ScoreArticle produces the coverage record for one article against the
// document text.  When the judge is reachable, a single judge call on the
// whole article determines the percentage outright; otherwise each clause is
// scored from the candidate's retrieval signals.  In JudgeOnly mode a failed
// judge call is fatal for the article instead of degrading.
func (s *Scorer) ScoreArticle(
	ctx context.Context,
	article *corpus.LegalArticle,
	cand retrieval.Candidate,
	documentText string,
	opts ScoreOptions,
) (*CoverageRecord, error) {
	if article == nil {
		return nil, errors.Newf(errors.ErrCodeArticleNotFound, "no corpus article for candidate %d", cand.ArticleNumber)
	}

	confidence := retrievalConfidence(cand)

	if s.judge != nil && s.judge.Available() {
		if j := s.judge.JudgeCoverage(ctx, article.Heading(), article.FullText, documentText); j != nil {
			return s.recordFromJudgment(article, j, confidence), nil
		}
		s.logger.Warn("judge unavailable for article, degrading to traditional scoring",
			logging.Int("article", article.Number))
	}

	if opts.JudgeOnly {
		return nil, errors.Newf(errors.ErrCodeJudgeRequired,
			"judge-only scoring requested but judge unavailable for article %d", article.Number)
	}

	return s.traditionalRecord(article, cand, confidence), nil
}

// recordFromJudgment builds the article record on the judge path.  The judge
// score is the sole determinant of the percentage; retrieval confidence rides
// along for diagnostics only.
func (s *Scorer) recordFromJudgment(article *corpus.LegalArticle, j *judge.Judgment, confidence float64) *CoverageRecord {
	s.countMethod(MethodLLM)

	rec := &CoverageRecord{
		ArticleNumber:       article.Number,
		Title:               article.Title,
		CoveragePercentage:  clampPercentage(j.ScorePercentage),
		Band:                BandFor(j.ScorePercentage),
		Method:              MethodLLM,
		RetrievalConfidence: confidence,
	}
	rec.placeClause(ClauseJudgment{
		Label:         article.ArticleID(),
		Text:          textutil.Truncate(article.FullText, clausePreviewLen),
		CoverageScore: rec.CoveragePercentage,
		Method:        MethodLLM,
		Explanation:   j.Explanation,
		Confidence:    j.Confidence,
	})
	return rec
}

// traditionalRecord scores every clause from the candidate's retrieval
// signals and averages them with equal weight.  An article without clauses is
// scored as a single unit.
func (s *Scorer) traditionalRecord(article *corpus.LegalArticle, cand retrieval.Candidate, confidence float64) *CoverageRecord {
	s.countMethod(MethodTraditional)

	score := clampPercentage(100 * traditionalScore(cand))

	rec := &CoverageRecord{
		ArticleNumber:       article.Number,
		Title:               article.Title,
		CoveragePercentage:  score,
		Band:                BandFor(score),
		Method:              MethodTraditional,
		RetrievalConfidence: confidence,
	}

	flat := article.FlattenClauses()
	if len(flat) == 0 {
		rec.placeClause(ClauseJudgment{
			Label:         article.ArticleID(),
			Text:          textutil.Truncate(article.FullText, clausePreviewLen),
			CoverageScore: score,
			Method:        MethodTraditional,
		})
		return rec
	}

	total := 0.0
	for _, clause := range flat {
		cj := ClauseJudgment{
			Label:         clause.Path,
			Text:          textutil.Truncate(clause.Text, clausePreviewLen),
			CoverageScore: score,
			Method:        MethodTraditional,
		}
		total += cj.CoverageScore
		rec.placeClause(cj)
	}
	rec.CoveragePercentage = clampPercentage(total / float64(len(flat)))
	rec.Band = BandFor(rec.CoveragePercentage)
	return rec
}

// placeClause files the judgment under the band list its score falls in.
func (r *CoverageRecord) placeClause(cj ClauseJudgment) {
	switch BandFor(cj.CoverageScore) {
	case BandFull:
		r.CoveredClauses = append(r.CoveredClauses, cj)
	case BandPartial:
		r.PartialClauses = append(r.PartialClauses, cj)
	default:
		r.MissingClauses = append(r.MissingClauses, cj)
	}
}

// traditionalScore blends the candidate's retrieval signals into [0, 1].
func traditionalScore(cand retrieval.Candidate) float64 {
	normLex := cand.LexicalScore / lexicalNorm
	if normLex > 1 {
		normLex = 1
	}
	emb := cand.EmbeddingScore
	if emb < 0 {
		emb = 0
	}
	return lexicalWeight*normLex + embeddingWeight*emb
}

// retrievalConfidence is the diagnostic lexical+embedding blend attached to
// every record.
func retrievalConfidence(cand retrieval.Candidate) float64 {
	return traditionalScore(cand)
}

func clampPercentage(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

func (s *Scorer) countMethod(m CoverageMethod) {
	if s.metrics != nil {
		s.metrics.CoverageMethodTotal.WithLabelValues(string(m)).Inc()
	}
}
