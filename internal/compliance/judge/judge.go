// Package judge adapts a chat-completion model into the three advisory roles
// the compliance pipeline uses it for: scoring requirement coverage, reranking
// retrieval candidates, and drafting remediation recommendations.
//
// Every operation is fail-soft.  The model is an unreliable dependency, so a
// transport error, timeout, or unparseable response never propagates: coverage
// judging returns nil (callers fall back to similarity scoring), reranking
// returns nil (callers keep the embedding order), and recommendations return
// an empty slice.
package judge

import (
	"context"
	"strings"
	"time"

	"github.com/verilex/policyaudit/internal/infrastructure/monitoring/logging"
	"github.com/verilex/policyaudit/internal/infrastructure/monitoring/metrics"
)

// Operation token ceilings; the outputs are short and structured.
const (
	coverageMaxTokens       = 150
	rerankMaxTokens         = 100
	recommendationMaxTokens = 800
)

// CompletionRequest is one chat exchange with the model.
type CompletionRequest struct {
	System    string
	Prompt    string
	MaxTokens int
}

// Transport sends a completion request to the model and returns the raw
// response text.  The OpenAI implementation lives in the infrastructure
// layer.
type Transport interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Judgment is the model's verdict on how well a policy covers a requirement.
type Judgment struct {
	Score           float64 // [0, 1]
	ScorePercentage float64 // [0, 100], the raw model score
	Confidence      string  // high, medium, low
	Explanation     string
}

// Recommendation is one remediation suggestion for a coverage gap.
type Recommendation struct {
	Number            int    `json:"recommendation_number"`
	Reference         string `json:"pdpl_reference"`
	CurrentPolicyText string `json:"current_policy_text"`
	Action            string `json:"action"`
	SampleWording     string `json:"sample_policy_wording"`
}

// RankItem is one retrieval candidate submitted for reranking.
type RankItem struct {
	ArticleNumber int
	Text          string
}

// Config bounds the adapter's calls.
type Config struct {
	JudgeTimeout  time.Duration
	RerankTimeout time.Duration
}

// Adapter wires a Transport into the pipeline's judge operations.
type Adapter struct {
	transport Transport
	cfg       Config
	logger    logging.Logger
	metrics   *metrics.PipelineMetrics
}

// NewAdapter builds an Adapter.  A nil transport yields an unavailable
// adapter whose operations all take their degraded path immediately; metrics
// may be nil.
func NewAdapter(transport Transport, cfg Config, logger logging.Logger, m *metrics.PipelineMetrics) *Adapter {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if cfg.JudgeTimeout <= 0 {
		cfg.JudgeTimeout = 12 * time.Second
	}
	if cfg.RerankTimeout <= 0 {
		cfg.RerankTimeout = 15 * time.Second
	}
	return &Adapter{
		transport: transport,
		cfg:       cfg,
		logger:    logger.Named("judge"),
		metrics:   m,
	}
}

// Available reports whether the adapter can reach a model at all.
func (a *Adapter) Available() bool {
	return a != nil && a.transport != nil
}

// JudgeCoverage asks the model how well documentText covers the requirement.
// The reference names the requirement for the prompt ("Article 4(1)").
// Returns nil when the model is unavailable, errors, or times out.
func (a *Adapter) JudgeCoverage(ctx context.Context, reference, requirement, documentText string) *Judgment {
	if !a.Available() {
		return nil
	}

	policyContext := ExtractRelevantContext(documentText, requirement, coverageContextBudget)
	prompt := buildCoveragePrompt(reference, requirement, policyContext)

	raw, err := a.complete(ctx, "coverage", coverageSystemMessage, prompt, coverageMaxTokens, a.cfg.JudgeTimeout)
	if err != nil {
		a.logger.Warn("coverage judgment failed",
			logging.String("reference", reference), logging.Err(err))
		return nil
	}

	j := parseJudgment(raw)
	a.logger.Debug("coverage judged",
		logging.String("reference", reference),
		logging.Float64("score", j.ScorePercentage),
		logging.String("confidence", j.Confidence))
	return &j
}

// RankRelevance asks the model to score the candidates against the query.
// The returned slice is in candidate order and may be shorter than items when
// the model scores only a prefix; callers keep their own scores for the rest.
// Returns nil when no numeric scores could be recovered, so callers keep the
// embedding order.
func (a *Adapter) RankRelevance(ctx context.Context, query string, items []RankItem) []float64 {
	if !a.Available() || len(items) == 0 {
		return nil
	}

	prompt := buildRerankPrompt(query, items)
	raw, err := a.complete(ctx, "rerank", rerankSystemMessage, prompt, rerankMaxTokens, a.cfg.RerankTimeout)
	if err != nil {
		a.logger.Warn("rerank call failed", logging.Int("candidates", len(items)), logging.Err(err))
		return nil
	}

	scores, strategy := parseScoreArray(raw)
	if scores == nil {
		a.logger.Warn("rerank response had no scores", logging.String("response", raw))
		return nil
	}
	a.recordParseStrategy("rerank", strategy)
	if len(scores) > len(items) {
		scores = scores[:len(items)]
	}
	return scores
}

// RecommendRemediations drafts remediation guidance for the worst coverage
// gaps.  Returns an empty slice on any failure; recommendations are advisory
// and never block a report.
func (a *Adapter) RecommendRemediations(ctx context.Context, documentText string, missing, partial []Gap) []Recommendation {
	if !a.Available() || (len(missing) == 0 && len(partial) == 0) {
		return []Recommendation{}
	}

	gapTerms := make([]string, 0, len(missing)+len(partial))
	for _, g := range missing {
		gapTerms = append(gapTerms, g.Text)
	}
	for _, g := range partial {
		gapTerms = append(gapTerms, g.Text)
	}
	policyContext := ExtractRelevantContext(documentText, strings.Join(gapTerms, " "), recommendationContextBudget)

	prompt := buildRecommendationPrompt(policyContext, missing, partial)
	raw, err := a.complete(ctx, "recommend", recommendationSystemMessage, prompt, recommendationMaxTokens, a.cfg.RerankTimeout)
	if err != nil {
		a.logger.Warn("recommendation call failed", logging.Err(err))
		return []Recommendation{}
	}

	recs, strategy := parseRecommendations(raw)
	if recs == nil {
		a.logger.Warn("recommendation response unparseable")
		return []Recommendation{}
	}
	a.recordParseStrategy("recommendations", strategy)
	return recs
}

func (a *Adapter) complete(ctx context.Context, operation, system, prompt string, maxTokens int, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var timer *metrics.Timer
	if a.metrics != nil {
		timer = metrics.NewTimer(a.metrics.JudgeCallDuration.WithLabelValues(operation))
	}
	raw, err := a.transport.Complete(ctx, CompletionRequest{
		System:    system,
		Prompt:    prompt,
		MaxTokens: maxTokens,
	})
	if timer != nil {
		timer.ObserveDuration()
	}

	if a.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		a.metrics.JudgeCallsTotal.WithLabelValues(operation, status).Inc()
	}
	return raw, err
}

func (a *Adapter) recordParseStrategy(parser, strategy string) {
	if a.metrics == nil || strategy == "" {
		return
	}
	a.metrics.JudgeParseFallbacks.WithLabelValues(parser, strategy).Inc()
}
