package scoring

import "sort"

// Aggregate folds per-article coverage records into one report over the
// configured scope.
//
// The denominator is always the scope size: an article in scope that was
// never retrieved contributes zero to the overall score and is listed under
// MissingArticles.  Records for articles outside the scope are ignored.
// Duplicate records for one article must not happen upstream, but the
// aggregator defends anyway: the first occurrence wins.
//
// An empty scope yields a well-formed zero report rather than an error.
func Aggregate(records []CoverageRecord, scope []int) OverallScoreReport {
	inScope := make(map[int]bool, len(scope))
	for _, n := range scope {
		inScope[n] = true
	}

	found := make(map[int]CoverageRecord, len(records))
	report := OverallScoreReport{
		CoveredArticles:          []int{},
		PartiallyCoveredArticles: []int{},
		LowCoverageArticles:      []int{},
		MissingArticles:          []int{},
		Records:                  []CoverageRecord{},
		ComplianceLevel:          LevelNotCompliant,
	}

	for _, rec := range records {
		if !inScope[rec.ArticleNumber] {
			continue
		}
		if _, dup := found[rec.ArticleNumber]; dup {
			continue
		}
		found[rec.ArticleNumber] = rec
		report.Records = append(report.Records, rec)

		switch rec.Band {
		case BandFull:
			report.CoveredArticles = append(report.CoveredArticles, rec.ArticleNumber)
		case BandPartial:
			report.PartiallyCoveredArticles = append(report.PartiallyCoveredArticles, rec.ArticleNumber)
		default:
			report.LowCoverageArticles = append(report.LowCoverageArticles, rec.ArticleNumber)
		}
	}

	for _, n := range scope {
		if _, ok := found[n]; !ok {
			report.MissingArticles = append(report.MissingArticles, n)
		}
	}
	sort.Ints(report.CoveredArticles)
	sort.Ints(report.PartiallyCoveredArticles)
	sort.Ints(report.LowCoverageArticles)
	sort.Ints(report.MissingArticles)

	if len(scope) == 0 {
		return report
	}

	total := 0.0
	for _, rec := range found {
		total += rec.CoveragePercentage
	}
	report.OverallScore = total / float64(len(scope))
	report.ComplianceLevel = levelFor(report.OverallScore)
	if len(found) > 0 {
		report.AverageArticleCoverage = total / float64(len(found))
	}
	return report
}
