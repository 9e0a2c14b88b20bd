// Package lexical provides the in-process keyword index over the article
// corpus: Okapi BM25 scoring with smoothed IDF.  The index is built once per
// corpus snapshot and immutable afterwards, so queries need no locking.
package lexical

import (
	"math"
	"sort"

	"github.com/verilex/policyaudit/internal/compliance/textutil"
	"github.com/verilex/policyaudit/internal/domain/corpus"
)

const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// Hit is one scored article.
type Hit struct {
	ArticleNumber int
	Score         float64
}

// Index is an immutable BM25 index over one corpus snapshot.
type Index struct {
	numbers   []int            // article number per document position
	termFreqs []map[string]int // per-document term frequencies
	docLens   []int
	avgDocLen float64
	docFreqs  map[string]int
}

// Build constructs the index from the snapshot's article full texts.
func Build(snap *corpus.Snapshot) *Index {
	articles := snap.Articles()
	idx := &Index{
		numbers:   make([]int, len(articles)),
		termFreqs: make([]map[string]int, len(articles)),
		docLens:   make([]int, len(articles)),
		docFreqs:  make(map[string]int),
	}

	totalLen := 0
	for i := range articles {
		idx.numbers[i] = articles[i].Number
		tokens := textutil.Tokenize(articles[i].FullText)
		tf := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			tf[tok]++
		}
		idx.termFreqs[i] = tf
		idx.docLens[i] = len(tokens)
		totalLen += len(tokens)
		for term := range tf {
			idx.docFreqs[term]++
		}
	}
	if len(articles) > 0 {
		idx.avgDocLen = float64(totalLen) / float64(len(articles))
	}
	return idx
}

// Len returns the number of indexed documents.
func (idx *Index) Len() int { return len(idx.numbers) }

// idf uses the smoothed formulation log((N+1)/(df+1)) + 1, which never goes
// negative for terms present in most documents.
func (idx *Index) idf(term string) float64 {
	df := idx.docFreqs[term]
	n := len(idx.numbers)
	return math.Log(float64(n+1)/float64(df+1)) + 1
}

// Scores computes the BM25 score of every indexed document against the query
// tokens, in document (corpus) order.
func (idx *Index) Scores(queryTokens []string) []float64 {
	scores := make([]float64, len(idx.numbers))
	if len(queryTokens) == 0 || idx.avgDocLen == 0 {
		return scores
	}

	for _, term := range queryTokens {
		if idx.docFreqs[term] == 0 {
			continue
		}
		idf := idx.idf(term)
		for i := range idx.numbers {
			tf := float64(idx.termFreqs[i][term])
			if tf == 0 {
				continue
			}
			norm := 1 - bm25B + bm25B*float64(idx.docLens[i])/idx.avgDocLen
			scores[i] += idf * tf * (bm25K1 + 1) / (tf + bm25K1*norm)
		}
	}
	return scores
}

// Search tokenizes the query, scores all documents, and returns the top k
// hits in descending score order.  Documents scoring zero are omitted.
func (idx *Index) Search(query string, k int) []Hit {
	scores := idx.Scores(textutil.Tokenize(query))

	hits := make([]Hit, 0, len(scores))
	for i, s := range scores {
		if s > 0 {
			hits = append(hits, Hit{ArticleNumber: idx.numbers[i], Score: s})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits
}
