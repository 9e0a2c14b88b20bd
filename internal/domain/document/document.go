// Package document defines the contract with the upstream text-extraction
// collaborator.  Extraction itself (PDF parsing, upload handling) is outside
// this service; it delivers ordered page texts, which the pipeline joins into
// one document string.
package document

import (
	"sort"
	"strings"
)

// Page is one extracted page of an uploaded policy document.
type Page struct {
	Number int    `json:"page_number"`
	Text   string `json:"page_text"`
}

// Join concatenates page texts in page order into a single document string
// with single-space separators.  Blank pages are skipped.
func Join(pages []Page) string {
	if len(pages) == 0 {
		return ""
	}

	ordered := make([]Page, len(pages))
	copy(ordered, pages)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Number < ordered[j].Number })

	parts := make([]string, 0, len(ordered))
	for _, p := range ordered {
		if t := strings.TrimSpace(p.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
