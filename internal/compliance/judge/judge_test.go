package judge

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type stubTransport struct {
	completeFunc func(ctx context.Context, req CompletionRequest) (string, error)
	requests     []CompletionRequest
}

func (s *stubTransport) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	s.requests = append(s.requests, req)
	return s.completeFunc(ctx, req)
}

func fixedResponse(text string) *stubTransport {
	return &stubTransport{completeFunc: func(context.Context, CompletionRequest) (string, error) {
		return text, nil
	}}
}

func newTestAdapter(t *stubTransport) *Adapter {
	return NewAdapter(t, Config{JudgeTimeout: time.Second, RerankTimeout: time.Second}, nil, nil)
}

// ─── Coverage judging ────────────────────────────────────────────────────────

func TestJudgeCoverage_ParsesWellFormedResponse(t *testing.T) {
	tr := fixedResponse("SCORE: 85\nCONFIDENCE: high\nEXPLANATION: Breach notification is clearly committed to.\n")
	j := newTestAdapter(tr).JudgeCoverage(context.Background(), "Article 20", "notify the authority of any breach", "we will notify you of incidents")
	if j == nil {
		t.Fatal("expected a judgment")
	}
	if j.ScorePercentage != 85 || j.Score != 0.85 {
		t.Errorf("score = %v / %v, want 85 / 0.85", j.ScorePercentage, j.Score)
	}
	if j.Confidence != "high" {
		t.Errorf("confidence = %q", j.Confidence)
	}
	if !strings.Contains(j.Explanation, "Breach notification") {
		t.Errorf("explanation = %q", j.Explanation)
	}
}

func TestJudgeCoverage_TransportErrorReturnsNil(t *testing.T) {
	tr := &stubTransport{completeFunc: func(context.Context, CompletionRequest) (string, error) {
		return "", errors.New("model unavailable")
	}}
	if j := newTestAdapter(tr).JudgeCoverage(context.Background(), "Article 4", "req", "doc"); j != nil {
		t.Fatalf("expected nil judgment, got %+v", j)
	}
}

func TestJudgeCoverage_NilTransport(t *testing.T) {
	a := NewAdapter(nil, Config{}, nil, nil)
	if a.Available() {
		t.Error("adapter without transport must not report available")
	}
	if j := a.JudgeCoverage(context.Background(), "Article 4", "req", "doc"); j != nil {
		t.Fatal("expected nil judgment from unavailable adapter")
	}
}

func TestJudgeCoverage_DefaultsOnSparseResponse(t *testing.T) {
	j := newTestAdapter(fixedResponse("SCORE: 40")).JudgeCoverage(context.Background(), "Article 5", "req", "doc")
	if j == nil {
		t.Fatal("expected a judgment")
	}
	if j.Confidence != "medium" {
		t.Errorf("confidence default = %q, want medium", j.Confidence)
	}
	if j.Explanation == "" {
		t.Error("explanation must default to a placeholder")
	}
}

func TestJudgeCoverage_ScoreClampedTo100(t *testing.T) {
	j := newTestAdapter(fixedResponse("SCORE: 250")).JudgeCoverage(context.Background(), "Article 5", "req", "doc")
	if j == nil || j.ScorePercentage != 100 {
		t.Fatalf("judgment = %+v, want score 100", j)
	}
}

func TestJudgeCoverage_PromptCarriesRequirementAndFormat(t *testing.T) {
	tr := fixedResponse("SCORE: 50\nCONFIDENCE: low\nEXPLANATION: x")
	newTestAdapter(tr).JudgeCoverage(context.Background(), "Article 12(3)", "erasure on request", "policy body")

	if len(tr.requests) != 1 {
		t.Fatalf("expected 1 transport call, got %d", len(tr.requests))
	}
	req := tr.requests[0]
	if req.MaxTokens != coverageMaxTokens {
		t.Errorf("max tokens = %d, want %d", req.MaxTokens, coverageMaxTokens)
	}
	for _, want := range []string{"Article 12(3)", "erasure on request", "policy body", "SCORE:"} {
		if !strings.Contains(req.Prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

// ─── Reranking ───────────────────────────────────────────────────────────────

func rankItems() []RankItem {
	return []RankItem{
		{ArticleNumber: 4, Text: "rights of the data subject"},
		{ArticleNumber: 5, Text: "consent"},
		{ArticleNumber: 20, Text: "breach notification"},
	}
}

func TestRankRelevance_JSONArray(t *testing.T) {
	scores := newTestAdapter(fixedResponse("[95, 80, 60]")).RankRelevance(context.Background(), "query", rankItems())
	if len(scores) != 3 || scores[0] != 95 || scores[2] != 60 {
		t.Fatalf("scores = %v", scores)
	}
}

func TestRankRelevance_ArrayEmbeddedInProse(t *testing.T) {
	raw := "Here are the relevance scores:\n[90, 40, 10]\nLet me know if you need more."
	scores := newTestAdapter(fixedResponse(raw)).RankRelevance(context.Background(), "query", rankItems())
	if len(scores) != 3 || scores[0] != 90 {
		t.Fatalf("scores = %v", scores)
	}
}

func TestRankRelevance_BareNumbersFallback(t *testing.T) {
	raw := "Article 4: 85\nArticle 5: 70\nArticle 20: 30"
	scores := newTestAdapter(fixedResponse(raw)).RankRelevance(context.Background(), "query", rankItems())
	if scores == nil {
		t.Fatal("expected numeric-regex fallback to recover scores")
	}
}

func TestRankRelevance_NoNumbersReturnsNil(t *testing.T) {
	if scores := newTestAdapter(fixedResponse("I cannot rank these.")).RankRelevance(context.Background(), "query", rankItems()); scores != nil {
		t.Fatalf("expected nil, got %v", scores)
	}
}

func TestRankRelevance_ExcessScoresTruncated(t *testing.T) {
	scores := newTestAdapter(fixedResponse("[1, 2, 3, 4, 5, 6]")).RankRelevance(context.Background(), "query", rankItems())
	if len(scores) != 3 {
		t.Fatalf("scores = %v, want 3 entries", scores)
	}
}

func TestRankRelevance_EmptyItems(t *testing.T) {
	tr := fixedResponse("[1]")
	if scores := newTestAdapter(tr).RankRelevance(context.Background(), "query", nil); scores != nil {
		t.Fatalf("expected nil for empty candidate list, got %v", scores)
	}
	if len(tr.requests) != 0 {
		t.Error("no transport call expected for empty candidate list")
	}
}

// ─── Recommendations ─────────────────────────────────────────────────────────

func TestRecommendRemediations_JSONEnvelope(t *testing.T) {
	raw := `{"recommendations": [{"recommendation_number": 1, "pdpl_reference": "Article 4(1)", "current_policy_text": "Not found", "action": "Add an access-rights section", "sample_policy_wording": "You may request a copy of your data."}]}`
	recs := newTestAdapter(fixedResponse(raw)).RecommendRemediations(context.Background(), "doc",
		[]Gap{{Reference: "Article 4(1)", Text: "right of access", Detail: "not found"}}, nil)
	if len(recs) != 1 {
		t.Fatalf("recs = %v", recs)
	}
	if recs[0].Reference != "Article 4(1)" || recs[0].Number != 1 {
		t.Errorf("rec = %+v", recs[0])
	}
}

func TestRecommendRemediations_MarkdownFallback(t *testing.T) {
	raw := "### Recommendation 1:\n**PDPL Reference:** Article 5(2)\n**Action:** State that consent can be withdrawn.\n**Sample Policy Wording:** You may withdraw consent at any time.\n---\n### Recommendation 2:\n**PDPL Reference:** Article 20\n**Action:** Add a breach notification commitment.\n**Sample Policy Wording:** We will notify you of breaches promptly.\n"
	recs := newTestAdapter(fixedResponse(raw)).RecommendRemediations(context.Background(), "doc",
		[]Gap{{Reference: "Article 5(2)", Text: "withdrawal of consent", Detail: "not found"}}, nil)
	if len(recs) != 2 {
		t.Fatalf("expected 2 recommendations, got %v", recs)
	}
	if recs[0].Reference != "Article 5(2)" || recs[1].Number != 2 {
		t.Errorf("recs = %+v", recs)
	}
	if recs[0].CurrentPolicyText != "Not found" {
		t.Errorf("current policy text default = %q", recs[0].CurrentPolicyText)
	}
}

func TestRecommendRemediations_UnparseableReturnsEmpty(t *testing.T) {
	recs := newTestAdapter(fixedResponse("Sorry, I can't help with that.")).RecommendRemediations(context.Background(), "doc",
		[]Gap{{Reference: "Article 4", Text: "x", Detail: "y"}}, nil)
	if recs == nil || len(recs) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", recs)
	}
}

func TestRecommendRemediations_NoGapsSkipsTransport(t *testing.T) {
	tr := fixedResponse("{}")
	recs := newTestAdapter(tr).RecommendRemediations(context.Background(), "doc", nil, nil)
	if len(recs) != 0 || len(tr.requests) != 0 {
		t.Fatalf("expected no call and no recs, got %v (%d calls)", recs, len(tr.requests))
	}
}

// ─── Context extraction ──────────────────────────────────────────────────────

func TestExtractRelevantContext_ShortDocumentUnchanged(t *testing.T) {
	doc := "short policy text"
	if got := ExtractRelevantContext(doc, "requirement", 4000); got != doc {
		t.Errorf("got %q", got)
	}
}

func TestExtractRelevantContext_KeepsHeaderAndRelevantChunks(t *testing.T) {
	header := strings.Repeat("intro ", 150) // ~900 chars
	filler := strings.Repeat("lorem ipsum dolor sit amet ", 200)
	relevant := strings.Repeat("breach notification supervisory authority incident ", 20)
	doc := header + filler + relevant

	got := ExtractRelevantContext(doc, "notify the supervisory authority of a personal data breach", 2000)
	if len(got) > 2000 {
		t.Fatalf("result exceeds budget: %d", len(got))
	}
	if !strings.HasPrefix(got, header[:100]) {
		t.Error("header must be preserved")
	}
	if !strings.Contains(got, "breach notification supervisory") {
		t.Error("relevant chunk must be selected over filler")
	}
	if !strings.Contains(got, "[...sections selected for relevance...]") {
		t.Error("joined sections must be marked")
	}
}

func TestExtractRelevantContext_ZeroDensityChunksDropped(t *testing.T) {
	doc := strings.Repeat("a", 1000) + strings.Repeat("b", 5000)
	got := ExtractRelevantContext(doc, "completely unrelated requirement keywords", 1500)
	// Header survives; pure-filler chunks with zero keyword density do not.
	if strings.Contains(got, "bbbbbbbbbb") {
		t.Error("zero-density chunks must not be included")
	}
}
