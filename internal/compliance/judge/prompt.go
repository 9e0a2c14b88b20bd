package judge

import (
	"fmt"
	"strings"

	"github.com/verilex/policyaudit/internal/compliance/textutil"
)

// Context budgets per operation, in characters of policy text.
const (
	coverageContextBudget       = 4000
	recommendationContextBudget = 3000
)

const (
	coverageSystemMessage       = "You are a meticulous privacy-law compliance analyst. You compare legal requirements against privacy policy text and respond only in the requested format."
	rerankSystemMessage         = "You are a legal relevance ranker. You respond only with the requested JSON."
	recommendationSystemMessage = "You are a privacy-law compliance consultant drafting concrete remediation guidance for a privacy policy."
)

// buildCoveragePrompt asks the model to score how well the policy text covers
// one legal requirement.  The few-shot examples anchor the scoring bands so
// answers cluster consistently instead of drifting toward the extremes.
func buildCoveragePrompt(reference, requirement, policyContext string) string {
	var b strings.Builder

	b.WriteString("Score how well the privacy policy excerpt below covers the legal requirement.\n\n")
	b.WriteString("Scoring bands:\n")
	b.WriteString("- 80-100: the requirement is clearly and substantively addressed\n")
	b.WriteString("- 50-79: the requirement is addressed but with gaps, vagueness, or missing specifics\n")
	b.WriteString("- 20-49: the topic is mentioned but the requirement is not meaningfully met\n")
	b.WriteString("- 0-19: the requirement is absent from the policy\n\n")
	b.WriteString("Be lenient about wording: equivalent meaning in different words still counts. ")
	b.WriteString("Judge substance, not phrasing. Credit partial coverage proportionally.\n\n")

	b.WriteString("Examples:\n\n")
	b.WriteString("Requirement: The controller shall notify the data subject of a breach without undue delay.\n")
	b.WriteString("Policy: \"If a security incident affects your information, we will inform you promptly and explain what happened.\"\n")
	b.WriteString("SCORE: 88\nCONFIDENCE: high\nEXPLANATION: Prompt notification to affected individuals is clearly committed to; only the formal timeline is unspecified.\n\n")

	b.WriteString("Requirement: The data subject has the right to request erasure of personal data.\n")
	b.WriteString("Policy: \"You may contact us about your data. We review deletion requests case by case.\"\n")
	b.WriteString("SCORE: 62\nCONFIDENCE: medium\nEXPLANATION: Deletion requests are acknowledged but the right is framed as discretionary rather than guaranteed.\n\n")

	b.WriteString("Requirement: Consent must be obtained before processing for marketing purposes.\n")
	b.WriteString("Policy: \"We use your information to improve our services.\"\n")
	b.WriteString("SCORE: 18\nCONFIDENCE: high\nEXPLANATION: Marketing consent is never mentioned; the policy only covers service improvement.\n\n")

	b.WriteString("Requirement: The policy must identify the data controller and provide contact details.\n")
	b.WriteString("Policy: \"Acme Ltd, 1 Main Street, is the controller of your data. Contact our privacy office at privacy@acme.example.\"\n")
	b.WriteString("SCORE: 95\nCONFIDENCE: high\nEXPLANATION: Controller identity and contact details are stated explicitly.\n\n")

	b.WriteString("Now score this case.\n\n")
	fmt.Fprintf(&b, "Requirement (%s):\n%s\n\n", reference, requirement)
	fmt.Fprintf(&b, "Policy excerpt:\n%s\n\n", policyContext)

	b.WriteString("Respond in exactly this format:\n")
	b.WriteString("SCORE: <0-100>\nCONFIDENCE: <high|medium|low>\nEXPLANATION: <one or two sentences>\n")

	return b.String()
}

// buildRerankPrompt asks the model for relevance scores over the candidate
// articles.  The response must be a bare JSON array so parsing stays trivial.
func buildRerankPrompt(query string, items []RankItem) string {
	var b strings.Builder

	b.WriteString("Rate the relevance of each legal article to the document below, 0-100.\n\n")
	fmt.Fprintf(&b, "Document:\n%s\n\n", textutil.Truncate(query, 800))
	b.WriteString("Articles:\n")
	for i, item := range items {
		fmt.Fprintf(&b, "%d. Article %d: %s...\n", i+1, item.ArticleNumber, textutil.Truncate(item.Text, 200))
	}
	b.WriteString("\nRespond with ONLY a JSON array of numbers, one score per article in order.\n")
	b.WriteString("Example: [95, 80, 60, 45]\n")

	return b.String()
}

// Gap is one missing or partially-covered requirement fed into remediation
// drafting.
type Gap struct {
	Reference string
	Text      string
	Detail    string
}

// buildRecommendationPrompt asks for remediation guidance on the top coverage
// gaps, as a JSON object matching the Recommendation field names.
func buildRecommendationPrompt(policyContext string, missing, partial []Gap) string {
	var b strings.Builder

	b.WriteString("A privacy policy was audited against legal requirements. ")
	b.WriteString("Draft remediation recommendations for the gaps below.\n\n")
	fmt.Fprintf(&b, "Policy excerpt:\n%s\n\n", policyContext)

	if len(missing) > 0 {
		b.WriteString("Requirements not found in the policy:\n")
		for _, g := range topGaps(missing, 3) {
			fmt.Fprintf(&b, "- %s: %s\n  Reason: %s\n", g.Reference, textutil.Truncate(g.Text, 200), g.Detail)
		}
		b.WriteString("\n")
	}
	if len(partial) > 0 {
		b.WriteString("Requirements only partially covered:\n")
		for _, g := range topGaps(partial, 3) {
			fmt.Fprintf(&b, "- %s: %s\n  Gap: %s\n", g.Reference, textutil.Truncate(g.Text, 200), g.Detail)
		}
		b.WriteString("\n")
	}

	b.WriteString("Respond with ONLY a JSON object of this shape:\n")
	b.WriteString(`{"recommendations": [{"recommendation_number": 1, "pdpl_reference": "Article 4(1)", "current_policy_text": "Not found", "action": "...", "sample_policy_wording": "..."}]}` + "\n")

	return b.String()
}

func topGaps(gaps []Gap, n int) []Gap {
	if len(gaps) > n {
		return gaps[:n]
	}
	return gaps
}
