package judge

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

var (
	scoreRe      = regexp.MustCompile(`(?i)SCORE:\s*(\d+)`)
	confidenceRe = regexp.MustCompile(`(?i)CONFIDENCE:\s*(high|medium|low)`)
	// Explanation runs until a blank line, the next labeled field, or the end
	// of the response.
	explanationRe        = regexp.MustCompile(`(?is)EXPLANATION:\s*(.+?)(?:\n\n|\nSCORE:|\nCONFIDENCE:|\z)`)
	explanationLooseRe   = regexp.MustCompile(`(?is)EXPLANATION:\s*(.+)`)
	numberRe             = regexp.MustCompile(`\d+\.?\d*`)
	defaultNoExplanation = "judge provided a score but no explanation"
)

// parseJudgment extracts SCORE / CONFIDENCE / EXPLANATION from a judge
// response.  Missing fields degrade to defaults rather than failing the call:
// score 0, confidence medium, placeholder explanation.
func parseJudgment(raw string) Judgment {
	j := Judgment{Confidence: "medium", Explanation: defaultNoExplanation}

	if m := scoreRe.FindStringSubmatch(raw); m != nil {
		score, err := strconv.Atoi(m[1])
		if err == nil {
			if score > 100 {
				score = 100
			}
			j.ScorePercentage = float64(score)
			j.Score = float64(score) / 100
		}
	}
	if m := confidenceRe.FindStringSubmatch(raw); m != nil {
		j.Confidence = strings.ToLower(m[1])
	}
	if m := explanationRe.FindStringSubmatch(raw); m != nil {
		j.Explanation = strings.TrimSpace(m[1])
	} else if m := explanationLooseRe.FindStringSubmatch(raw); m != nil {
		j.Explanation = strings.TrimSpace(m[1])
	}
	return j
}

// parseScoreArray pulls a numeric score list out of a rerank response.  Three
// strategies, strictest first: the whole response as a JSON array, then the
// first '['..']' slice, then every bare number in the text.  Returns the
// strategy used ("json", "bracket", "regex") for instrumentation, or nil and
// "" when nothing numeric could be found.
func parseScoreArray(raw string) ([]float64, string) {
	trimmed := strings.TrimSpace(raw)

	var scores []float64
	if err := json.Unmarshal([]byte(trimmed), &scores); err == nil && len(scores) > 0 {
		return scores, "json"
	}

	if start, end := strings.Index(trimmed, "["), strings.LastIndex(trimmed, "]"); start >= 0 && end > start {
		if err := json.Unmarshal([]byte(trimmed[start:end+1]), &scores); err == nil && len(scores) > 0 {
			return scores, "bracket"
		}
	}

	for _, m := range numberRe.FindAllString(trimmed, -1) {
		if v, err := strconv.ParseFloat(m, 64); err == nil {
			scores = append(scores, v)
		}
	}
	if len(scores) > 0 {
		return scores, "regex"
	}
	return nil, ""
}

var (
	mdRecHeaderRe = regexp.MustCompile(`(?i)###\s*Recommendation\s*(\d+):`)
	mdFieldRes    = map[string]*regexp.Regexp{
		"reference": regexp.MustCompile(`(?is)\*\*PDPL Reference:\*\*\s*([^*]+?)\s*(?:\*\*|\z)`),
		"current":   regexp.MustCompile(`(?is)\*\*Current Policy Text:\*\*\s*([^*]+?)\s*(?:\*\*|\z)`),
		"action":    regexp.MustCompile(`(?is)\*\*Action:\*\*\s*([^*]+?)\s*(?:\*\*|\z)`),
		"wording":   regexp.MustCompile(`(?is)\*\*Sample Policy Wording:\*\*\s*(.+?)\s*(?:---|\z)`),
	}
)

// parseRecommendations decodes a recommendations response.  JSON first: an
// object holding the list under "recommendations" or "data" (or any key whose
// value is a list), or a bare JSON list.  Models that ignore the JSON
// instruction tend to emit "### Recommendation N:" markdown blocks, so that
// is the fallback.  Returns the strategy used, or nil and "".
func parseRecommendations(raw string) ([]Recommendation, string) {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	if recs := decodeRecommendationJSON(trimmed); recs != nil {
		return recs, "json"
	}
	if recs := decodeRecommendationMarkdown(raw); recs != nil {
		return recs, "markdown"
	}
	return nil, ""
}

func decodeRecommendationJSON(trimmed string) []Recommendation {
	var direct []Recommendation
	if err := json.Unmarshal([]byte(trimmed), &direct); err == nil && len(direct) > 0 {
		return direct
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &envelope); err != nil {
		return nil
	}
	for _, key := range []string{"recommendations", "data"} {
		if rawList, ok := envelope[key]; ok {
			var recs []Recommendation
			if err := json.Unmarshal(rawList, &recs); err == nil {
				return recs
			}
		}
	}
	// Last JSON resort: any value that decodes as a recommendation list.
	for _, rawList := range envelope {
		var recs []Recommendation
		if err := json.Unmarshal(rawList, &recs); err == nil && len(recs) > 0 {
			return recs
		}
	}
	return nil
}

func decodeRecommendationMarkdown(raw string) []Recommendation {
	headers := mdRecHeaderRe.FindAllStringSubmatchIndex(raw, -1)
	if len(headers) == 0 {
		return nil
	}

	var recs []Recommendation
	for i, h := range headers {
		blockEnd := len(raw)
		if i+1 < len(headers) {
			blockEnd = headers[i+1][0]
		}
		block := raw[h[1]:blockEnd]

		number, _ := strconv.Atoi(raw[h[2]:h[3]])
		rec := Recommendation{Number: number, CurrentPolicyText: "Not found"}
		if m := mdFieldRes["reference"].FindStringSubmatch(block); m != nil {
			rec.Reference = strings.TrimSpace(m[1])
		}
		if m := mdFieldRes["current"].FindStringSubmatch(block); m != nil {
			rec.CurrentPolicyText = strings.TrimSpace(m[1])
		}
		if m := mdFieldRes["action"].FindStringSubmatch(block); m != nil {
			rec.Action = strings.TrimSpace(m[1])
		}
		if m := mdFieldRes["wording"].FindStringSubmatch(block); m != nil {
			rec.SampleWording = strings.TrimSpace(m[1])
		}
		if rec.Reference == "" && rec.Action == "" {
			continue
		}
		recs = append(recs, rec)
	}
	return recs
}
