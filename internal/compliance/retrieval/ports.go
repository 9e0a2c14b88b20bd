package retrieval

import (
	"context"
	"sync/atomic"

	"github.com/verilex/policyaudit/internal/compliance/embedding"
	"github.com/verilex/policyaudit/internal/compliance/judge"
	"github.com/verilex/policyaudit/internal/compliance/lexical"
	"github.com/verilex/policyaudit/internal/domain/corpus"
	"github.com/verilex/policyaudit/pkg/errors"
)

// LexicalSearcher ranks corpus articles by keyword relevance.  Served by the
// in-memory BM25 index or by an opensearch-backed adapter.
type LexicalSearcher interface {
	SearchLexical(ctx context.Context, query string, k int) ([]LexicalHit, error)
}

// VectorSearcher ranks corpus articles by dense-vector similarity.  Served by
// the in-memory embedding index or by a milvus-backed adapter.
type VectorSearcher interface {
	SearchVector(ctx context.Context, query string, k int) ([]embedding.Hit, error)
}

// LexicalHit is one keyword-ranked article.
type LexicalHit struct {
	ArticleNumber int
	Score         float64
}

// Reranker scores candidates for relevance to the query.  Satisfied by the
// judge adapter; a nil Reranker disables the rerank stage.
type Reranker interface {
	Available() bool
	RankRelevance(ctx context.Context, query string, items []judge.RankItem) []float64
}

// SnapshotProvider exposes the current corpus generation; satisfied by
// *corpus.Store.
type SnapshotProvider interface {
	Snapshot() *corpus.Snapshot
}

// ─── In-memory port adapters ─────────────────────────────────────────────────

// BM25Index is the query surface of the in-memory lexical index; satisfied by
// *lexical.Index.
type BM25Index interface {
	Search(query string, k int) []lexical.Hit
	Len() int
}

// MemoryLexical adapts a BM25 index generation to the LexicalSearcher port.
// Update installs a new generation atomically after a corpus reload.
type MemoryLexical struct {
	current atomic.Pointer[indexHolder]
}

type indexHolder struct{ idx BM25Index }

// NewMemoryLexical wraps the given index; idx may be nil until the first
// Update.
func NewMemoryLexical(idx BM25Index) *MemoryLexical {
	m := &MemoryLexical{}
	m.current.Store(&indexHolder{idx: idx})
	return m
}

// Update swaps in a freshly built index generation.
func (m *MemoryLexical) Update(idx BM25Index) {
	m.current.Store(&indexHolder{idx: idx})
}

// SearchLexical implements LexicalSearcher.
func (m *MemoryLexical) SearchLexical(_ context.Context, query string, k int) ([]LexicalHit, error) {
	holder := m.current.Load()
	if holder.idx == nil || holder.idx.Len() == 0 {
		return nil, errors.New(errors.ErrCodeLexicalIndexEmpty, "lexical index is empty")
	}
	raw := holder.idx.Search(query, k)
	hits := make([]LexicalHit, len(raw))
	for i, h := range raw {
		hits[i] = LexicalHit{ArticleNumber: h.ArticleNumber, Score: h.Score}
	}
	return hits, nil
}

// MemoryVector adapts the in-memory embedding index to the VectorSearcher
// port; the index handles its own atomic generation swaps.
type MemoryVector struct {
	idx *embedding.Index
}

// NewMemoryVector wraps the given embedding index.
func NewMemoryVector(idx *embedding.Index) *MemoryVector {
	return &MemoryVector{idx: idx}
}

// SearchVector implements VectorSearcher.
func (m *MemoryVector) SearchVector(ctx context.Context, query string, k int) ([]embedding.Hit, error) {
	return m.idx.Search(ctx, query, k)
}
