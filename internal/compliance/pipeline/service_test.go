package pipeline

import (
	"context"
	"math"
	"reflect"
	"testing"

	"github.com/verilex/policyaudit/internal/compliance/judge"
	"github.com/verilex/policyaudit/internal/compliance/retrieval"
	"github.com/verilex/policyaudit/internal/compliance/scoring"
	"github.com/verilex/policyaudit/internal/config"
	"github.com/verilex/policyaudit/internal/domain/corpus"
	"github.com/verilex/policyaudit/internal/domain/document"
	"github.com/verilex/policyaudit/pkg/errors"
)

type stubRetriever struct {
	retrieveFunc func(ctx context.Context, query string, opts retrieval.Options) ([]retrieval.Candidate, error)
	lastOpts     retrieval.Options
}

func (s *stubRetriever) Retrieve(ctx context.Context, query string, opts retrieval.Options) ([]retrieval.Candidate, error) {
	s.lastOpts = opts
	return s.retrieveFunc(ctx, query, opts)
}

type stubScorer struct {
	scoreFunc func(ctx context.Context, article *corpus.LegalArticle, cand retrieval.Candidate, text string, opts scoring.ScoreOptions) (*scoring.CoverageRecord, error)
}

func (s *stubScorer) ScoreArticle(ctx context.Context, article *corpus.LegalArticle, cand retrieval.Candidate, text string, opts scoring.ScoreOptions) (*scoring.CoverageRecord, error) {
	return s.scoreFunc(ctx, article, cand, text, opts)
}

type stubRecommender struct {
	recs      []judge.Recommendation
	available bool
	calls     int
}

func (s *stubRecommender) Available() bool { return s.available }

func (s *stubRecommender) RecommendRemediations(context.Context, string, []judge.Gap, []judge.Gap) []judge.Recommendation {
	s.calls++
	return s.recs
}

type stubSnapshots struct{ snap *corpus.Snapshot }

func (s *stubSnapshots) Snapshot() *corpus.Snapshot { return s.snap }

func fixtureSnapshot(t *testing.T) *corpus.Snapshot {
	t.Helper()
	raw := []byte(`{"articles": [
		{"number": 4, "title": "Rights", "text": "rights of the data subject"},
		{"number": 5, "title": "Consent", "text": "consent must be freely given"},
		{"number": 10, "title": "Collection", "text": "collect directly from the subject"}
	]}`)
	articles, err := corpus.Parse(raw)
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return corpus.NewSnapshot(articles)
}

func fixedScore(pct float64) *stubScorer {
	return &stubScorer{scoreFunc: func(_ context.Context, article *corpus.LegalArticle, _ retrieval.Candidate, _ string, _ scoring.ScoreOptions) (*scoring.CoverageRecord, error) {
		return &scoring.CoverageRecord{
			ArticleNumber:      article.Number,
			CoveragePercentage: pct,
			Band:               scoring.BandFor(pct),
			Method:             scoring.MethodLLM,
		}, nil
	}}
}

func scoringConfig() config.ScoringConfig {
	return config.ScoringConfig{SimilarityFloor: 0.70, Parallelism: 1}
}

func pages(texts ...string) []document.Page {
	out := make([]document.Page, len(texts))
	for i, txt := range texts {
		out[i] = document.Page{Number: i + 1, Text: txt}
	}
	return out
}

func TestAnalyze_EndToEndScoreAggregation(t *testing.T) {
	// Scope {4,5,10}; only article 4 retrieved, judged at 90%.
	ret := &stubRetriever{retrieveFunc: func(context.Context, string, retrieval.Options) ([]retrieval.Candidate, error) {
		return []retrieval.Candidate{{ArticleNumber: 4, EmbeddingScore: 0.92, FinalScore: 0.92}}, nil
	}}
	svc := NewService(ret, fixedScore(90), nil, &stubSnapshots{snap: fixtureSnapshot(t)},
		scoringConfig(), []int{4, 5, 10}, nil, nil)

	report, err := svc.Analyze(context.Background(), pages("policy text"), Options{})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if math.Abs(report.Overall.OverallScore-30.0) > 1e-9 {
		t.Errorf("overall = %v, want 30.0 (90/3)", report.Overall.OverallScore)
	}
	if report.Overall.ComplianceLevel != scoring.LevelNotCompliant {
		t.Errorf("level = %v, want not_compliant", report.Overall.ComplianceLevel)
	}
	if !reflect.DeepEqual(report.Overall.MissingArticles, []int{5, 10}) {
		t.Errorf("missing = %v", report.Overall.MissingArticles)
	}
	if !reflect.DeepEqual(report.Overall.CoveredArticles, []int{4}) {
		t.Errorf("covered = %v", report.Overall.CoveredArticles)
	}
	if report.AnalysisID == "" {
		t.Error("report must carry an analysis id")
	}
}

func TestAnalyze_SimilarityFloorFiltersCandidates(t *testing.T) {
	ret := &stubRetriever{retrieveFunc: func(context.Context, string, retrieval.Options) ([]retrieval.Candidate, error) {
		return []retrieval.Candidate{
			{ArticleNumber: 4, EmbeddingScore: 0.92},
			{ArticleNumber: 5, EmbeddingScore: 0.55}, // below the 0.70 floor
		}, nil
	}}
	scored := 0
	sc := &stubScorer{scoreFunc: func(_ context.Context, article *corpus.LegalArticle, _ retrieval.Candidate, _ string, _ scoring.ScoreOptions) (*scoring.CoverageRecord, error) {
		scored++
		return &scoring.CoverageRecord{ArticleNumber: article.Number, CoveragePercentage: 80, Band: scoring.BandFull}, nil
	}}
	svc := NewService(ret, sc, nil, &stubSnapshots{snap: fixtureSnapshot(t)}, scoringConfig(), []int{4, 5}, nil, nil)

	report, err := svc.Analyze(context.Background(), pages("text"), Options{})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if scored != 1 {
		t.Errorf("expected 1 candidate to survive the floor, %d scored", scored)
	}
	if !reflect.DeepEqual(report.Overall.MissingArticles, []int{5}) {
		t.Errorf("missing = %v", report.Overall.MissingArticles)
	}
}

func TestAnalyze_EmptyDocumentYieldsZeroReport(t *testing.T) {
	ret := &stubRetriever{retrieveFunc: func(context.Context, string, retrieval.Options) ([]retrieval.Candidate, error) {
		t.Fatal("retriever must not be called for an empty document")
		return nil, nil
	}}
	svc := NewService(ret, fixedScore(90), nil, &stubSnapshots{snap: fixtureSnapshot(t)}, scoringConfig(), []int{4, 5}, nil, nil)

	report, err := svc.Analyze(context.Background(), nil, Options{})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if report.Overall.OverallScore != 0 {
		t.Errorf("overall = %v", report.Overall.OverallScore)
	}
	if !reflect.DeepEqual(report.Overall.MissingArticles, []int{4, 5}) {
		t.Errorf("missing = %v", report.Overall.MissingArticles)
	}
}

func TestAnalyze_ScopeOverrideAndDefaultToAllArticles(t *testing.T) {
	ret := &stubRetriever{retrieveFunc: func(context.Context, string, retrieval.Options) ([]retrieval.Candidate, error) {
		return nil, nil
	}}
	svc := NewService(ret, fixedScore(90), nil, &stubSnapshots{snap: fixtureSnapshot(t)}, scoringConfig(), nil, nil, nil)

	// No configured scope: every loaded article counts.
	report, err := svc.Analyze(context.Background(), pages("text"), Options{})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !reflect.DeepEqual(report.Overall.MissingArticles, []int{4, 5, 10}) {
		t.Errorf("default scope missing = %v", report.Overall.MissingArticles)
	}

	// Per-request override narrows it.
	report, err = svc.Analyze(context.Background(), pages("text"), Options{Scope: []int{5}})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !reflect.DeepEqual(report.Overall.MissingArticles, []int{5}) {
		t.Errorf("override scope missing = %v", report.Overall.MissingArticles)
	}
}

func TestAnalyze_StrictModeErrorPropagates(t *testing.T) {
	ret := &stubRetriever{retrieveFunc: func(context.Context, string, retrieval.Options) ([]retrieval.Candidate, error) {
		return []retrieval.Candidate{{ArticleNumber: 4, EmbeddingScore: 0.9}}, nil
	}}
	sc := &stubScorer{scoreFunc: func(_ context.Context, _ *corpus.LegalArticle, _ retrieval.Candidate, _ string, opts scoring.ScoreOptions) (*scoring.CoverageRecord, error) {
		if !opts.JudgeOnly {
			t.Error("judge-only option must reach the scorer")
		}
		return nil, errors.New(errors.ErrCodeJudgeRequired, "judge unavailable")
	}}
	svc := NewService(ret, sc, nil, &stubSnapshots{snap: fixtureSnapshot(t)}, scoringConfig(), []int{4}, nil, nil)

	_, err := svc.Analyze(context.Background(), pages("text"), Options{JudgeOnly: true})
	if !errors.IsCode(err, errors.ErrCodeJudgeRequired) {
		t.Fatalf("err = %v, want judge-required failure", err)
	}
}

func TestAnalyze_BroadensRetrieval(t *testing.T) {
	ret := &stubRetriever{retrieveFunc: func(context.Context, string, retrieval.Options) ([]retrieval.Candidate, error) {
		return nil, nil
	}}
	svc := NewService(ret, fixedScore(90), nil, &stubSnapshots{snap: fixtureSnapshot(t)}, scoringConfig(), []int{4}, nil, nil)

	if _, err := svc.Analyze(context.Background(), pages("text"), Options{}); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !ret.lastOpts.Broaden {
		t.Error("coverage pipeline must request broadened retrieval")
	}
}

func TestAnalyze_RecommendationsForGaps(t *testing.T) {
	ret := &stubRetriever{retrieveFunc: func(context.Context, string, retrieval.Options) ([]retrieval.Candidate, error) {
		return []retrieval.Candidate{{ArticleNumber: 4, EmbeddingScore: 0.9}}, nil
	}}
	rr := &stubRecommender{available: true, recs: []judge.Recommendation{{Number: 1, Reference: "Article 5", Action: "add consent section"}}}
	svc := NewService(ret, fixedScore(90), rr, &stubSnapshots{snap: fixtureSnapshot(t)}, scoringConfig(), []int{4, 5}, nil, nil)

	report, err := svc.Analyze(context.Background(), pages("text"), Options{Recommendations: true})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if rr.calls != 1 || len(report.Recommendations) != 1 {
		t.Errorf("recommender calls = %d, recs = %v", rr.calls, report.Recommendations)
	}
}

func TestAnalyze_ParallelScoringPreservesPerArticleRecords(t *testing.T) {
	ret := &stubRetriever{retrieveFunc: func(context.Context, string, retrieval.Options) ([]retrieval.Candidate, error) {
		return []retrieval.Candidate{
			{ArticleNumber: 4, EmbeddingScore: 0.9},
			{ArticleNumber: 5, EmbeddingScore: 0.85},
			{ArticleNumber: 10, EmbeddingScore: 0.8},
		}, nil
	}}
	cfg := scoringConfig()
	cfg.Parallelism = 4
	svc := NewService(ret, fixedScore(80), nil, &stubSnapshots{snap: fixtureSnapshot(t)}, cfg, []int{4, 5, 10}, nil, nil)

	report, err := svc.Analyze(context.Background(), pages("text"), Options{})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(report.Overall.Records) != 3 {
		t.Fatalf("records = %d, want 3", len(report.Overall.Records))
	}
	if math.Abs(report.Overall.OverallScore-80.0) > 1e-9 {
		t.Errorf("overall = %v", report.Overall.OverallScore)
	}
}

func TestDiagnose_StrictFloors(t *testing.T) {
	snap := fixtureSnapshot(t)
	ret := &stubRetriever{retrieveFunc: func(context.Context, string, retrieval.Options) ([]retrieval.Candidate, error) {
		return []retrieval.Candidate{
			{ArticleNumber: 5, EmbeddingScore: 0.92}, // passes both floors
			{ArticleNumber: 4, EmbeddingScore: 0.75}, // below 0.80 embedding floor
			{ArticleNumber: 10, EmbeddingScore: 0.9}, // fails keyword overlap
		}, nil
	}}
	svc := NewService(ret, fixedScore(90), nil, &stubSnapshots{snap: snap}, scoringConfig(), nil, nil, nil)

	// Document shares tokens with article 5's text only.
	matches, err := svc.Diagnose(context.Background(), pages("consent must be freely given willingly"))
	if err != nil {
		t.Fatalf("diagnose: %v", err)
	}
	if len(matches) != 1 || matches[0].ArticleNumber != 5 {
		t.Fatalf("matches = %+v, want only article 5", matches)
	}
	if matches[0].KeywordOverlap < diagnosticOverlapFloor {
		t.Errorf("reported overlap %v below floor", matches[0].KeywordOverlap)
	}
}
