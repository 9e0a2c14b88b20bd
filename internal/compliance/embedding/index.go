// Package embedding provides the in-memory dense-vector index over the
// article corpus: one vector per article, cosine-similarity search, and a
// full rebuild with atomic swap on every corpus (re)load.
package embedding

import (
	"context"
	"math"
	"sort"
	"sync/atomic"

	"github.com/verilex/policyaudit/internal/domain/corpus"
	"github.com/verilex/policyaudit/pkg/errors"
)

// E5-style instruction prefixes.  Passages and queries are embedded in
// different "roles" so the model places them in a shared retrieval space.
const (
	PassagePrefix = "passage: "
	QueryPrefix   = "query: "
)

// Embedder produces dense vectors for texts.  Implementations live in the
// infrastructure layer (OpenAI embeddings, optionally wrapped in a redis
// cache).
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Hit is one scored article from a vector search.
type Hit struct {
	ArticleNumber int
	Score         float64 // cosine similarity in [-1, 1]
}

// snapshot is one immutable generation of the vector collection.
type snapshot struct {
	numbers []int
	vectors [][]float32
}

// Index is the cosine-similarity article index.  Rebuild constructs a new
// generation aside and swaps it in atomically; readers always see a complete
// collection.
type Index struct {
	embedder Embedder
	current  atomic.Pointer[snapshot]
}

// NewIndex returns an empty index backed by the given embedder.
func NewIndex(embedder Embedder) *Index {
	idx := &Index{embedder: embedder}
	idx.current.Store(&snapshot{})
	return idx
}

// Rebuild drops the previous collection and embeds every article in the
// snapshot.  Old entries never survive a rebuild.
func (idx *Index) Rebuild(ctx context.Context, snap *corpus.Snapshot) error {
	articles := snap.Articles()
	texts := make([]string, len(articles))
	numbers := make([]int, len(articles))
	for i := range articles {
		texts[i] = PassagePrefix + articles[i].FullText
		numbers[i] = articles[i].Number
	}

	vectors, err := idx.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeEmbeddingFailed, "failed to embed article corpus")
	}
	if len(vectors) != len(articles) {
		return errors.Newf(errors.ErrCodeEmbeddingFailed,
			"embedder returned %d vectors for %d articles", len(vectors), len(articles))
	}

	idx.current.Store(&snapshot{numbers: numbers, vectors: vectors})
	return nil
}

// Len returns the number of indexed articles.
func (idx *Index) Len() int {
	return len(idx.current.Load().numbers)
}

// EmbedQuery produces the query-space vector for text.
func (idx *Index) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := idx.embedder.EmbedTexts(ctx, []string{QueryPrefix + text})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeEmbeddingFailed, "failed to embed query")
	}
	if len(vecs) != 1 {
		return nil, errors.Newf(errors.ErrCodeEmbeddingFailed, "embedder returned %d query vectors", len(vecs))
	}
	return vecs[0], nil
}

// SearchVector returns the top k articles by cosine similarity to vec,
// descending.
func (idx *Index) SearchVector(vec []float32, k int) []Hit {
	snap := idx.current.Load()
	hits := make([]Hit, 0, len(snap.numbers))
	for i := range snap.numbers {
		hits = append(hits, Hit{
			ArticleNumber: snap.numbers[i],
			Score:         Cosine(vec, snap.vectors[i]),
		})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// Search embeds the query text and returns the top k articles.
func (idx *Index) Search(ctx context.Context, query string, k int) ([]Hit, error) {
	vec, err := idx.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	return idx.SearchVector(vec, k), nil
}

// Cosine computes the cosine similarity between two vectors.  Mismatched or
// zero-length vectors score 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
