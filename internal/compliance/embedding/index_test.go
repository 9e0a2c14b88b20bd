package embedding

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/verilex/policyaudit/internal/domain/corpus"
)

// stubEmbedder maps texts to fixed vectors by keyword.
type stubEmbedder struct {
	embedFunc func(ctx context.Context, texts []string) ([][]float32, error)
	calls     [][]string
}

func (s *stubEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	s.calls = append(s.calls, texts)
	return s.embedFunc(ctx, texts)
}

// axisEmbedder assigns each text a unit vector on an axis chosen by content.
func axisEmbedder() *stubEmbedder {
	axis := func(text string) []float32 {
		switch {
		case strings.Contains(text, "consent"):
			return []float32{1, 0, 0}
		case strings.Contains(text, "breach"):
			return []float32{0, 1, 0}
		default:
			return []float32{0, 0, 1}
		}
	}
	return &stubEmbedder{
		embedFunc: func(_ context.Context, texts []string) ([][]float32, error) {
			out := make([][]float32, len(texts))
			for i, t := range texts {
				out[i] = axis(t)
			}
			return out, nil
		},
	}
}

func testSnapshot(t *testing.T) *corpus.Snapshot {
	t.Helper()
	raw := []byte(`{"articles": [
		{"number": 5, "title": "Consent", "text": "consent must be freely given"},
		{"number": 20, "title": "Breach", "text": "notify the authority of any breach"},
		{"number": 10, "title": "Collection", "text": "collect directly from the subject"}
	]}`)
	articles, err := corpus.Parse(raw)
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return corpus.NewSnapshot(articles)
}

func TestRebuild_UsesPassagePrefix(t *testing.T) {
	emb := axisEmbedder()
	idx := NewIndex(emb)
	if err := idx.Rebuild(context.Background(), testSnapshot(t)); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if idx.Len() != 3 {
		t.Fatalf("expected 3 vectors, got %d", idx.Len())
	}
	for _, text := range emb.calls[0] {
		if !strings.HasPrefix(text, PassagePrefix) {
			t.Errorf("passage text missing prefix: %q", text)
		}
	}
}

func TestSearch_UsesQueryPrefixAndRanksByCosine(t *testing.T) {
	idx := NewIndex(axisEmbedder())
	if err := idx.Rebuild(context.Background(), testSnapshot(t)); err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	hits, err := idx.Search(context.Background(), "user consent requirements", 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].ArticleNumber != 5 {
		t.Errorf("expected consent article first, got %d", hits[0].ArticleNumber)
	}
	if hits[0].Score < hits[1].Score {
		t.Error("hits not sorted descending")
	}
	if math.Abs(hits[0].Score-1.0) > 1e-6 {
		t.Errorf("aligned axis should score 1.0, got %v", hits[0].Score)
	}
}

func TestRebuild_DropsOldEntries(t *testing.T) {
	idx := NewIndex(axisEmbedder())
	if err := idx.Rebuild(context.Background(), testSnapshot(t)); err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	raw := []byte(`{"articles": [{"number": 99, "title": "Only", "text": "breach"}]}`)
	articles, err := corpus.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := idx.Rebuild(context.Background(), corpus.NewSnapshot(articles)); err != nil {
		t.Fatalf("second rebuild: %v", err)
	}
	if idx.Len() != 1 {
		t.Fatalf("old entries survived rebuild: %d", idx.Len())
	}
}

func TestRebuild_EmbedderFailure(t *testing.T) {
	emb := &stubEmbedder{embedFunc: func(context.Context, []string) ([][]float32, error) {
		return nil, errors.New("api down")
	}}
	idx := NewIndex(emb)
	if err := idx.Rebuild(context.Background(), testSnapshot(t)); err == nil {
		t.Fatal("expected error from failing embedder")
	}
	if idx.Len() != 0 {
		t.Error("failed rebuild must not install a snapshot")
	}
}

func TestRebuild_VectorCountMismatch(t *testing.T) {
	emb := &stubEmbedder{embedFunc: func(_ context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{1}}, nil
	}}
	idx := NewIndex(emb)
	if err := idx.Rebuild(context.Background(), testSnapshot(t)); err == nil {
		t.Fatal("expected error on vector count mismatch")
	}
}

func TestCosine(t *testing.T) {
	if got := Cosine([]float32{1, 0}, []float32{1, 0}); math.Abs(got-1) > 1e-9 {
		t.Errorf("identical vectors = %v, want 1", got)
	}
	if got := Cosine([]float32{1, 0}, []float32{0, 1}); math.Abs(got) > 1e-9 {
		t.Errorf("orthogonal vectors = %v, want 0", got)
	}
	if got := Cosine([]float32{1, 0}, []float32{-1, 0}); math.Abs(got+1) > 1e-9 {
		t.Errorf("opposite vectors = %v, want -1", got)
	}
	if got := Cosine([]float32{1}, []float32{1, 2}); got != 0 {
		t.Errorf("mismatched lengths = %v, want 0", got)
	}
	if got := Cosine(nil, nil); got != 0 {
		t.Errorf("empty vectors = %v, want 0", got)
	}
}
