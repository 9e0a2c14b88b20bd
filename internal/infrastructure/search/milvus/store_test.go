package milvus

import (
	"context"
	"testing"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verilex/policyaudit/internal/compliance/embedding"
	"github.com/verilex/policyaudit/internal/domain/corpus"
	"github.com/verilex/policyaudit/internal/infrastructure/monitoring/logging"
)

// mockMilvusClient embeds client.Client for interface completeness and
// overrides only the calls the Store makes.
type mockMilvusClient struct {
	client.Client

	hasCollectionFunc    func(ctx context.Context, name string) (bool, error)
	dropCollectionFunc   func(ctx context.Context, name string) error
	createCollectionFunc func(ctx context.Context, schema *entity.Schema, shards int32, opts ...client.CreateCollectionOption) error
	insertFunc           func(ctx context.Context, collName, partitionName string, columns ...entity.Column) (entity.Column, error)
	searchFunc           func(ctx context.Context, collName string, partitions []string, expr string, outputFields []string, vectors []entity.Vector, vectorField string, metricType entity.MetricType, topK int, sp entity.SearchParam, opts ...client.SearchQueryOptionFunc) ([]client.SearchResult, error)
}

func (m *mockMilvusClient) HasCollection(ctx context.Context, name string) (bool, error) {
	if m.hasCollectionFunc != nil {
		return m.hasCollectionFunc(ctx, name)
	}
	return false, nil
}

func (m *mockMilvusClient) DropCollection(ctx context.Context, name string) error {
	if m.dropCollectionFunc != nil {
		return m.dropCollectionFunc(ctx, name)
	}
	return nil
}

func (m *mockMilvusClient) CreateCollection(ctx context.Context, schema *entity.Schema, shards int32, opts ...client.CreateCollectionOption) error {
	if m.createCollectionFunc != nil {
		return m.createCollectionFunc(ctx, schema, shards, opts...)
	}
	return nil
}

func (m *mockMilvusClient) Insert(ctx context.Context, collName, partitionName string, columns ...entity.Column) (entity.Column, error) {
	if m.insertFunc != nil {
		return m.insertFunc(ctx, collName, partitionName, columns...)
	}
	return entity.NewColumnInt64(fieldArticleNumber, nil), nil
}

func (m *mockMilvusClient) Flush(context.Context, string, bool, ...client.FlushOption) error {
	return nil
}

func (m *mockMilvusClient) CreateIndex(context.Context, string, string, entity.Index, bool, ...client.IndexOption) error {
	return nil
}

func (m *mockMilvusClient) LoadCollection(context.Context, string, bool, ...client.LoadCollectionOption) error {
	return nil
}

func (m *mockMilvusClient) Search(ctx context.Context, collName string, partitions []string, expr string, outputFields []string, vectors []entity.Vector, vectorField string, metricType entity.MetricType, topK int, sp entity.SearchParam, opts ...client.SearchQueryOptionFunc) ([]client.SearchResult, error) {
	if m.searchFunc != nil {
		return m.searchFunc(ctx, collName, partitions, expr, outputFields, vectors, vectorField, metricType, topK, sp, opts...)
	}
	return nil, nil
}

type stubEmbedder struct {
	embedFunc func(ctx context.Context, texts []string) ([][]float32, error)
}

func (s *stubEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	return s.embedFunc(ctx, texts)
}

func constantEmbedder(dim int) *stubEmbedder {
	return &stubEmbedder{embedFunc: func(_ context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = make([]float32, dim)
			out[i][0] = 1
		}
		return out, nil
	}}
}

func newTestStore(mc client.Client) *Store {
	return &Store{
		mc:         mc,
		embedder:   constantEmbedder(4),
		collection: "policyaudit_articles",
		dim:        4,
		logger:     logging.NewNopLogger(),
	}
}

func testSnapshot(t *testing.T) *corpus.Snapshot {
	t.Helper()
	raw := []byte(`{"articles": [
		{"number": 4, "title": "Rights", "text": "rights of the data subject"},
		{"number": 5, "title": "Consent", "text": "consent must be freely given"}
	]}`)
	articles, err := corpus.Parse(raw)
	require.NoError(t, err)
	return corpus.NewSnapshot(articles)
}

func TestRebuild_DropsAndRecreatesCollection(t *testing.T) {
	var dropped, created bool
	var inserted int
	mc := &mockMilvusClient{
		hasCollectionFunc: func(context.Context, string) (bool, error) { return true, nil },
		dropCollectionFunc: func(_ context.Context, name string) error {
			dropped = true
			assert.Equal(t, "policyaudit_articles", name)
			return nil
		},
		createCollectionFunc: func(_ context.Context, schema *entity.Schema, _ int32, _ ...client.CreateCollectionOption) error {
			created = true
			require.Len(t, schema.Fields, 2)
			assert.Equal(t, fieldArticleNumber, schema.Fields[0].Name)
			return nil
		},
		insertFunc: func(_ context.Context, _, _ string, columns ...entity.Column) (entity.Column, error) {
			ids := columns[0].(*entity.ColumnInt64)
			inserted = len(ids.Data())
			return ids, nil
		},
	}

	require.NoError(t, newTestStore(mc).Rebuild(context.Background(), testSnapshot(t)))
	assert.True(t, dropped)
	assert.True(t, created)
	assert.Equal(t, 2, inserted)
}

func TestRebuild_EmbedderFailure(t *testing.T) {
	st := newTestStore(&mockMilvusClient{})
	st.embedder = &stubEmbedder{embedFunc: func(context.Context, []string) ([][]float32, error) {
		return nil, assert.AnError
	}}
	require.Error(t, st.Rebuild(context.Background(), testSnapshot(t)))
}

func TestSearchVector_ReturnsScoredHits(t *testing.T) {
	mc := &mockMilvusClient{
		searchFunc: func(_ context.Context, _ string, _ []string, _ string, _ []string, vectors []entity.Vector, _ string, metricType entity.MetricType, topK int, _ entity.SearchParam, _ ...client.SearchQueryOptionFunc) ([]client.SearchResult, error) {
			assert.Equal(t, entity.COSINE, metricType)
			assert.Equal(t, 2, topK)
			require.Len(t, vectors, 1)
			return []client.SearchResult{{
				ResultCount: 2,
				IDs:         entity.NewColumnInt64(fieldArticleNumber, []int64{5, 4}),
				Scores:      []float32{0.93, 0.71},
			}}, nil
		},
	}

	hits, err := newTestStore(mc).SearchVector(context.Background(), "consent", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, embedding.Hit{ArticleNumber: 5, Score: float64(float32(0.93))}, hits[0])
}

func TestSearchVector_SearchError(t *testing.T) {
	mc := &mockMilvusClient{
		searchFunc: func(context.Context, string, []string, string, []string, []entity.Vector, string, entity.MetricType, int, entity.SearchParam, ...client.SearchQueryOptionFunc) ([]client.SearchResult, error) {
			return nil, assert.AnError
		},
	}
	_, err := newTestStore(mc).SearchVector(context.Background(), "consent", 2)
	require.Error(t, err)
}
