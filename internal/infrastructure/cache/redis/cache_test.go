package redis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verilex/policyaudit/internal/config"
)

type stubEmbedder struct {
	embedFunc func(ctx context.Context, texts []string) ([][]float32, error)
	calls     [][]string
}

func (s *stubEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	s.calls = append(s.calls, texts)
	return s.embedFunc(ctx, texts)
}

func cacheConfig() config.RedisConfig {
	return config.RedisConfig{KeyPrefix: "policyaudit:emb:", DefaultTTL: time.Hour}
}

func newTestCache(t *testing.T, inner *stubEmbedder) (*EmbeddingCache, redismock.ClientMock) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	return newWithClient(db, cacheConfig(), inner, nil, nil), mock
}

func TestEmbedTexts_CacheHit(t *testing.T) {
	inner := &stubEmbedder{embedFunc: func(context.Context, []string) ([][]float32, error) {
		t.Fatal("inner embedder must not be called on a full cache hit")
		return nil, nil
	}}
	cache, mock := newTestCache(t, inner)

	vec := []float32{0.1, 0.2}
	payload, _ := json.Marshal(vec)
	mock.ExpectMGet(cache.key("hello")).SetVal([]interface{}{string(payload)})

	out, err := cache.EmbedTexts(context.Background(), []string{"hello"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, vec, out[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmbedTexts_MissFillsAndWritesBack(t *testing.T) {
	fresh := []float32{0.5, 0.6}
	inner := &stubEmbedder{embedFunc: func(_ context.Context, texts []string) ([][]float32, error) {
		require.Equal(t, []string{"world"}, texts)
		return [][]float32{fresh}, nil
	}}
	cache, mock := newTestCache(t, inner)

	key := cache.key("world")
	payload, _ := json.Marshal(fresh)
	mock.ExpectMGet(key).SetVal([]interface{}{nil})
	mock.ExpectSet(key, payload, time.Hour).SetVal("OK")

	out, err := cache.EmbedTexts(context.Background(), []string{"world"})
	require.NoError(t, err)
	assert.Equal(t, fresh, out[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmbedTexts_MixedHitAndMissPreservesOrder(t *testing.T) {
	freshB := []float32{2}
	inner := &stubEmbedder{embedFunc: func(_ context.Context, texts []string) ([][]float32, error) {
		require.Equal(t, []string{"b"}, texts)
		return [][]float32{freshB}, nil
	}}
	cache, mock := newTestCache(t, inner)

	cachedA, _ := json.Marshal([]float32{1})
	payloadB, _ := json.Marshal(freshB)
	mock.ExpectMGet(cache.key("a"), cache.key("b")).SetVal([]interface{}{string(cachedA), nil})
	mock.ExpectSet(cache.key("b"), payloadB, time.Hour).SetVal("OK")

	out, err := cache.EmbedTexts(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, out[0])
	assert.Equal(t, freshB, out[1])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmbedTexts_RedisDownFailsOpen(t *testing.T) {
	inner := &stubEmbedder{embedFunc: func(_ context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{9}}, nil
	}}
	cache, mock := newTestCache(t, inner)

	mock.ExpectMGet(cache.key("x")).SetErr(errors.New("connection refused"))

	out, err := cache.EmbedTexts(context.Background(), []string{"x"})
	require.NoError(t, err)
	assert.Equal(t, []float32{9}, out[0])
	assert.Len(t, inner.calls, 1)
}

func TestEmbedTexts_CorruptEntryTreatedAsMiss(t *testing.T) {
	inner := &stubEmbedder{embedFunc: func(_ context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{7}}, nil
	}}
	cache, mock := newTestCache(t, inner)

	key := cache.key("y")
	payload, _ := json.Marshal([]float32{7})
	mock.ExpectMGet(key).SetVal([]interface{}{"not json"})
	mock.ExpectSet(key, payload, time.Hour).SetVal("OK")

	out, err := cache.EmbedTexts(context.Background(), []string{"y"})
	require.NoError(t, err)
	assert.Equal(t, []float32{7}, out[0])
}

func TestEmbedTexts_InnerErrorPropagates(t *testing.T) {
	inner := &stubEmbedder{embedFunc: func(context.Context, []string) ([][]float32, error) {
		return nil, errors.New("api down")
	}}
	cache, mock := newTestCache(t, inner)

	mock.ExpectMGet(cache.key("z")).SetVal([]interface{}{nil})

	_, err := cache.EmbedTexts(context.Background(), []string{"z"})
	require.Error(t, err)
}

func TestEmbedTexts_Empty(t *testing.T) {
	cache, _ := newTestCache(t, &stubEmbedder{})
	out, err := cache.EmbedTexts(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, out)
}
