// Package scoring turns retrieval candidates into per-article coverage
// records and aggregates those into one overall compliance report.
package scoring

// Band thresholds.  Fixed by the scoring model, deliberately not tunable per
// request: reports from different requests must be comparable.
const (
	FullThreshold    = 75.0
	PartialThreshold = 40.0
)

// Band classifies a coverage percentage.
type Band string

const (
	BandFull    Band = "full"
	BandPartial Band = "partial"
	BandMissing Band = "missing"
)

// BandFor maps a coverage percentage to its band.  Boundary values belong to
// the higher band: 75.0 is Full, 40.0 is Partial.
func BandFor(percentage float64) Band {
	switch {
	case percentage >= FullThreshold:
		return BandFull
	case percentage >= PartialThreshold:
		return BandPartial
	default:
		return BandMissing
	}
}

// ComplianceLevel is the report-level classification, mirroring the band
// thresholds.
type ComplianceLevel string

const (
	LevelCompliant          ComplianceLevel = "compliant"
	LevelPartiallyCompliant ComplianceLevel = "partially_compliant"
	LevelNotCompliant       ComplianceLevel = "not_compliant"
)

func levelFor(score float64) ComplianceLevel {
	switch {
	case score >= FullThreshold:
		return LevelCompliant
	case score >= PartialThreshold:
		return LevelPartiallyCompliant
	default:
		return LevelNotCompliant
	}
}

// CoverageMethod records which path produced a judgment.
type CoverageMethod string

const (
	MethodLLM         CoverageMethod = "llm"
	MethodTraditional CoverageMethod = "traditional"
)

// ClauseJudgment is one scored requirement unit within an article.
type ClauseJudgment struct {
	Label         string         `json:"label"`
	Text          string         `json:"text"`
	CoverageScore float64        `json:"coverage_score"`
	Method        CoverageMethod `json:"method"`
	Explanation   string         `json:"explanation,omitempty"`
	Confidence    string         `json:"confidence,omitempty"`
}

// CoverageRecord is the per-article scoring result.  Transient: built per
// request, never persisted.
type CoverageRecord struct {
	ArticleNumber      int              `json:"article_number"`
	Title              string           `json:"title"`
	Band               Band             `json:"band"`
	CoveragePercentage float64          `json:"coverage_percentage"`
	Method             CoverageMethod   `json:"method"`
	CoveredClauses     []ClauseJudgment `json:"covered_clauses"`
	PartialClauses     []ClauseJudgment `json:"partially_covered_clauses"`
	MissingClauses     []ClauseJudgment `json:"missing_clauses"`

	// RetrievalConfidence is the lexical+embedding blend, reported for
	// diagnostics.  It never feeds the coverage percentage on the judge
	// path.
	RetrievalConfidence float64 `json:"retrieval_confidence"`
}

// OverallScoreReport is the aggregated outcome over the configured article
// scope.
type OverallScoreReport struct {
	OverallScore             float64          `json:"overall_score"`
	ComplianceLevel          ComplianceLevel  `json:"compliance_level"`
	CoveredArticles          []int            `json:"covered_articles"`
	PartiallyCoveredArticles []int            `json:"partially_covered_articles"`
	LowCoverageArticles      []int            `json:"low_coverage_articles"`
	MissingArticles          []int            `json:"missing_articles"`
	AverageArticleCoverage   float64          `json:"average_article_coverage"`
	Records                  []CoverageRecord `json:"records"`
}
