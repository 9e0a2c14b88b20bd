// Package milvus adapts a Milvus cluster to the vector retrieval port for
// deployments where the article vectors should live in a shared store instead
// of the in-process embedding index.
package milvus

import (
	"context"
	"strconv"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/verilex/policyaudit/internal/compliance/embedding"
	"github.com/verilex/policyaudit/internal/config"
	"github.com/verilex/policyaudit/internal/domain/corpus"
	"github.com/verilex/policyaudit/internal/infrastructure/monitoring/logging"
	"github.com/verilex/policyaudit/pkg/errors"
)

const (
	fieldArticleNumber = "article_number"
	fieldVector        = "vector"

	connectTimeout = 10 * time.Second
	searchTimeout  = 10 * time.Second
)

// newMilvusClient is a factory variable so tests can inject a mock client.
var newMilvusClient = client.NewClient

// Store holds one collection of article vectors and serves cosine top-k
// searches over it.
type Store struct {
	mc         client.Client
	embedder   embedding.Embedder
	collection string
	dim        int
	logger     logging.Logger
}

// NewStore connects to Milvus.  The embedder produces query vectors; article
// vectors arrive via Rebuild.
func NewStore(ctx context.Context, cfg config.MilvusConfig, embedder embedding.Embedder, logger logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	mc, err := newMilvusClient(ctx, client.Config{Address: cfg.Addr, DBName: cfg.DBName})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeVectorSearchFailed, "failed to connect to milvus")
	}

	return &Store{
		mc:         mc,
		embedder:   embedder,
		collection: cfg.CollectionPrefix + "articles",
		dim:        cfg.EmbeddingDim,
		logger:     logger.Named("milvus"),
	}, nil
}

// Close releases the connection.
func (s *Store) Close() error {
	return s.mc.Close()
}

// Rebuild drops the collection and recreates it from the snapshot: one
// passage-prefixed vector per article.  Old entries never survive.
func (s *Store) Rebuild(ctx context.Context, snap *corpus.Snapshot) error {
	articles := snap.Articles()
	texts := make([]string, len(articles))
	numbers := make([]int64, len(articles))
	for i := range articles {
		texts[i] = embedding.PassagePrefix + articles[i].FullText
		numbers[i] = int64(articles[i].Number)
	}

	vectors, err := s.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeEmbeddingFailed, "failed to embed article corpus")
	}
	if len(vectors) != len(articles) {
		return errors.Newf(errors.ErrCodeEmbeddingFailed,
			"embedder returned %d vectors for %d articles", len(vectors), len(articles))
	}

	has, err := s.mc.HasCollection(ctx, s.collection)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeVectorSearchFailed, "failed to check collection")
	}
	if has {
		if err := s.mc.DropCollection(ctx, s.collection); err != nil {
			return errors.Wrap(err, errors.ErrCodeVectorSearchFailed, "failed to drop collection")
		}
	}

	schema := &entity.Schema{
		CollectionName: s.collection,
		Description:    "one embedding per legal article",
		Fields: []*entity.Field{
			{Name: fieldArticleNumber, DataType: entity.FieldTypeInt64, PrimaryKey: true},
			{Name: fieldVector, DataType: entity.FieldTypeFloatVector, TypeParams: map[string]string{
				entity.TypeParamDim: strconv.Itoa(s.dim),
			}},
		},
	}
	if err := s.mc.CreateCollection(ctx, schema, 1); err != nil {
		return errors.Wrap(err, errors.ErrCodeVectorSearchFailed, "failed to create collection")
	}

	cols := []entity.Column{
		entity.NewColumnInt64(fieldArticleNumber, numbers),
		entity.NewColumnFloatVector(fieldVector, s.dim, vectors),
	}
	if _, err := s.mc.Insert(ctx, s.collection, "", cols...); err != nil {
		return errors.Wrap(err, errors.ErrCodeVectorSearchFailed, "failed to insert article vectors")
	}
	if err := s.mc.Flush(ctx, s.collection, false); err != nil {
		return errors.Wrap(err, errors.ErrCodeVectorSearchFailed, "failed to flush collection")
	}

	idx, err := entity.NewIndexFlat(entity.COSINE)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeVectorSearchFailed, "failed to build index descriptor")
	}
	if err := s.mc.CreateIndex(ctx, s.collection, fieldVector, idx, false); err != nil {
		return errors.Wrap(err, errors.ErrCodeVectorSearchFailed, "failed to create vector index")
	}
	if err := s.mc.LoadCollection(ctx, s.collection, false); err != nil {
		return errors.Wrap(err, errors.ErrCodeVectorSearchFailed, "failed to load collection")
	}

	s.logger.Info("article collection rebuilt",
		logging.String("collection", s.collection), logging.Int("articles", len(articles)))
	return nil
}

// SearchVector implements the vector retrieval port: embed the query, cosine
// top-k over the collection.
func (s *Store) SearchVector(ctx context.Context, query string, k int) ([]embedding.Hit, error) {
	vecs, err := s.embedder.EmbedTexts(ctx, []string{embedding.QueryPrefix + query})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeEmbeddingFailed, "failed to embed query")
	}
	if len(vecs) != 1 {
		return nil, errors.Newf(errors.ErrCodeEmbeddingFailed, "embedder returned %d query vectors", len(vecs))
	}

	sp, err := entity.NewIndexFlatSearchParam()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeVectorSearchFailed, "failed to build search params")
	}

	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()
	results, err := s.mc.Search(ctx, s.collection, nil, "",
		[]string{fieldArticleNumber},
		[]entity.Vector{entity.FloatVector(vecs[0])},
		fieldVector, entity.COSINE, k, sp)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeVectorSearchFailed, "vector search failed")
	}

	var hits []embedding.Hit
	for _, res := range results {
		ids, ok := res.IDs.(*entity.ColumnInt64)
		if !ok {
			return nil, errors.New(errors.ErrCodeVectorSearchFailed, "unexpected primary key column type")
		}
		for i, id := range ids.Data() {
			hits = append(hits, embedding.Hit{
				ArticleNumber: int(id),
				Score:         float64(res.Scores[i]),
			})
		}
	}
	return hits, nil
}
