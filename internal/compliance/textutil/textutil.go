// Package textutil provides the pure text primitives used across the
// compliance pipeline: normalization, tokenization, directional keyword
// overlap, and sequence similarity.  Everything here is side-effect free and
// safe for concurrent use.
package textutil

import (
	"regexp"
	"strings"
)

var (
	nonWordRe    = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Normalize lowercases the input, strips punctuation and other non-word
// characters, and collapses whitespace runs to single spaces.  It is
// idempotent: Normalize(Normalize(x)) == Normalize(x).
func Normalize(text string) string {
	s := strings.ToLower(text)
	s = nonWordRe.ReplaceAllString(s, " ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Tokenize splits text into lowercase whitespace tokens after normalization.
// Empty input yields a nil slice.
func Tokenize(text string) []string {
	s := Normalize(text)
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}

// KeywordOverlap returns the fraction of a's unique tokens that also appear
// in b's token set, in [0, 1].  Returns 0 when a has no tokens.  The measure
// is directional by design: overlap(a, b) generally differs from
// overlap(b, a).
func KeywordOverlap(a, b string) float64 {
	aTokens := Tokenize(a)
	if len(aTokens) == 0 {
		return 0
	}

	bSet := make(map[string]struct{})
	for _, tok := range Tokenize(b) {
		bSet[tok] = struct{}{}
	}

	aSet := make(map[string]struct{}, len(aTokens))
	for _, tok := range aTokens {
		aSet[tok] = struct{}{}
	}

	matched := 0
	for tok := range aSet {
		if _, ok := bSet[tok]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(aSet))
}

// SequenceSimilarity returns a normalized edit-distance ratio between the
// normalized forms of a and b, in [0, 1].  Identical strings score 1; fully
// disjoint strings approach 0.
func SequenceSimilarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == nb {
		return 1
	}
	if na == "" || nb == "" {
		return 0
	}

	dist := levenshtein(na, nb)
	longest := len(na)
	if len(nb) > longest {
		longest = len(nb)
	}
	return 1 - float64(dist)/float64(longest)
}

// levenshtein computes the edit distance between two strings using a
// two-row dynamic-programming table.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// Truncate returns s cut to at most n bytes on a rune boundary.  Used to
// bound prompt segments.
func Truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		if n <= 0 {
			return ""
		}
		return s
	}
	runes := []rune(s)
	out := make([]rune, 0, n)
	size := 0
	for _, r := range runes {
		size += len(string(r))
		if size > n {
			break
		}
		out = append(out, r)
	}
	return string(out)
}

// stopwords filtered out of keyword extraction for relevance ranking.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "can": {}, "had": {}, "her": {}, "was": {},
	"one": {}, "our": {}, "out": {}, "has": {}, "have": {}, "this": {},
	"that": {}, "with": {}, "from": {}, "they": {}, "will": {}, "your": {},
	"which": {}, "their": {}, "shall": {}, "must": {}, "may": {}, "any": {},
	"such": {}, "other": {}, "these": {}, "those": {}, "been": {}, "were": {},
	"when": {}, "where": {}, "what": {}, "upon": {}, "into": {}, "than": {},
}

// ContentKeywords extracts the unique non-stopword tokens longer than three
// characters from text, preserving first-occurrence order.  Used to rank
// document chunks by relevance to a requirement.
func ContentKeywords(text string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, tok := range Tokenize(text) {
		if len(tok) <= 3 {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}
