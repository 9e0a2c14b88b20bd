package client

import "context"

// Page is one extracted page of a policy document.
type Page struct {
	Number int    `json:"page_number"`
	Text   string `json:"page_text"`
}

// AnalyzeRequest is the analysis request.  Send extracted Pages or a raw
// Text; Pages win when both are set.
type AnalyzeRequest struct {
	Pages []Page `json:"pages,omitempty"`
	Text  string `json:"text,omitempty"`

	ScopeArticles   []int `json:"scope_articles,omitempty"`
	JudgeOnly       bool  `json:"judge_only,omitempty"`
	Rerank          bool  `json:"rerank,omitempty"`
	TopK            int   `json:"top_k,omitempty"`
	Recommendations bool  `json:"recommendations,omitempty"`
}

// ClauseJudgment is one scored clause within an article.
type ClauseJudgment struct {
	Label         string  `json:"label"`
	Text          string  `json:"text"`
	CoverageScore float64 `json:"coverage_score"`
	Method        string  `json:"method"`
	Explanation   string  `json:"explanation,omitempty"`
	Confidence    string  `json:"confidence,omitempty"`
}

// CoverageRecord is the per-article coverage outcome.
type CoverageRecord struct {
	ArticleNumber       int              `json:"article_number"`
	Title               string           `json:"title"`
	Band                string           `json:"band"`
	CoveragePercentage  float64          `json:"coverage_percentage"`
	Method              string           `json:"method"`
	CoveredClauses      []ClauseJudgment `json:"covered_clauses"`
	PartialClauses      []ClauseJudgment `json:"partially_covered_clauses"`
	MissingClauses      []ClauseJudgment `json:"missing_clauses"`
	RetrievalConfidence float64          `json:"retrieval_confidence"`
}

// OverallScoreReport aggregates coverage across the article scope.
type OverallScoreReport struct {
	OverallScore             float64          `json:"overall_score"`
	ComplianceLevel          string           `json:"compliance_level"`
	CoveredArticles          []int            `json:"covered_articles"`
	PartiallyCoveredArticles []int            `json:"partially_covered_articles"`
	LowCoverageArticles      []int            `json:"low_coverage_articles"`
	MissingArticles          []int            `json:"missing_articles"`
	AverageArticleCoverage   float64          `json:"average_article_coverage"`
	Records                  []CoverageRecord `json:"records"`
}

// Recommendation is one remediation suggestion.
type Recommendation struct {
	Number            int    `json:"recommendation_number"`
	Reference         string `json:"pdpl_reference"`
	CurrentPolicyText string `json:"current_policy_text"`
	Action            string `json:"action"`
	SampleWording     string `json:"sample_policy_wording"`
}

// Report is the analysis response.
type Report struct {
	AnalysisID      string             `json:"analysis_id"`
	Overall         OverallScoreReport `json:"overall"`
	Recommendations []Recommendation   `json:"recommendations,omitempty"`
	ElapsedMS       int64              `json:"elapsed_ms"`
}

// DirectMatch is one article matched by the diagnostic similarity path.
type DirectMatch struct {
	ArticleNumber      int     `json:"article_number"`
	Title              string  `json:"title"`
	EmbeddingScore     float64 `json:"embedding_score"`
	KeywordOverlap     float64 `json:"keyword_overlap"`
	SequenceSimilarity float64 `json:"sequence_similarity"`
}

type diagnoseResponse struct {
	Matches []DirectMatch `json:"matches"`
}

// Analyze runs a full compliance analysis of the document.
func (c *Client) Analyze(ctx context.Context, req AnalyzeRequest) (*Report, error) {
	var report Report
	if err := c.post(ctx, "/api/v1/analyze", req, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// Diagnose runs the strict text-similarity read path.
func (c *Client) Diagnose(ctx context.Context, req AnalyzeRequest) ([]DirectMatch, error) {
	var resp diagnoseResponse
	if err := c.post(ctx, "/api/v1/diagnose", req, &resp); err != nil {
		return nil, err
	}
	return resp.Matches, nil
}
