package judge

import (
	"sort"
	"strings"

	"github.com/verilex/policyaudit/internal/compliance/textutil"
)

// chunkSeparator marks where non-adjacent document sections were joined.
const chunkSeparator = "\n\n[...sections selected for relevance...]\n\n"

const (
	headerBudget = 800
	chunkSize    = 800
)

// domainStopwords are terms so ubiquitous in both the law and any privacy
// policy that they carry no discriminative weight when ranking chunks.
var domainStopwords = map[string]struct{}{
	"data": {}, "personal": {}, "controller": {}, "processing": {},
	"article": {}, "policy": {}, "subject": {},
}

// requirementKeywords extracts the discriminative keywords of a requirement
// text for chunk-density ranking.
func requirementKeywords(requirement string) []string {
	var out []string
	for _, kw := range textutil.ContentKeywords(requirement) {
		if _, skip := domainStopwords[kw]; skip {
			continue
		}
		out = append(out, kw)
	}
	return out
}

type scoredChunk struct {
	text  string
	score float64
}

// ExtractRelevantContext bounds documentText to maxSize characters while
// keeping the sections most relevant to the requirement.  The first ~800
// characters (intro, scope, definitions) are always kept; the remainder is
// split into 800-character chunks ranked by keyword density against the
// requirement's keywords, and the best chunks fill the remaining budget.
// Chunks with zero density never make it in.
func ExtractRelevantContext(documentText, requirement string, maxSize int) string {
	if maxSize <= 0 || len(documentText) <= maxSize {
		return documentText
	}

	headerSize := headerBudget
	if maxSize/3 < headerSize {
		headerSize = maxSize / 3
	}
	header := documentText[:headerSize]

	keywords := requirementKeywords(requirement)

	remaining := documentText[headerSize:]
	chunks := make([]scoredChunk, 0, len(remaining)/chunkSize+1)
	for i := 0; i < len(remaining); i += chunkSize {
		end := i + chunkSize
		if end > len(remaining) {
			end = len(remaining)
		}
		chunk := remaining[i:end]

		score := 0.0
		if len(keywords) > 0 {
			lower := strings.ToLower(chunk)
			matches := 0
			for _, kw := range keywords {
				if strings.Contains(lower, kw) {
					matches++
				}
			}
			// Density: matches per thousand characters.
			score = float64(matches) / (float64(len(chunk))/1000 + 1e-6)
		}
		chunks = append(chunks, scoredChunk{text: chunk, score: score})
	}

	sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].score > chunks[j].score })

	parts := []string{header}
	size := len(header)
	for _, c := range chunks {
		if size >= maxSize || c.score == 0 {
			break
		}
		available := maxSize - size
		text := c.text
		if len(text) > available {
			text = text[:available]
		}
		parts = append(parts, text)
		size += len(text)
	}

	result := strings.Join(parts, chunkSeparator)
	if len(result) > maxSize {
		result = result[:maxSize]
	}
	return result
}
