package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

func TestApplyDefaults_FillsZeroValues(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, DefaultCorpusPath, cfg.Corpus.Path)
	assert.Equal(t, 200, cfg.Retrieval.LexicalTopK)
	assert.Equal(t, 20, cfg.Retrieval.FinalTopK)
	assert.Equal(t, 50, cfg.Retrieval.RerankLimit)
	assert.Equal(t, 3, cfg.Retrieval.BroadenFactor)
	assert.Equal(t, 0.7, cfg.Retrieval.JudgeWeight)
	assert.Equal(t, 0.3, cfg.Retrieval.EmbeddingWeight)
	assert.Equal(t, 0.70, cfg.Scoring.SimilarityFloor)
	assert.Equal(t, 1, cfg.Scoring.Parallelism)
	assert.Equal(t, DefaultJudgeTimeout, cfg.OpenAI.JudgeTimeout)
}

func TestApplyDefaults_DoesNotOverrideExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Port = 9999
	cfg.Retrieval.FinalTopK = 5
	cfg.Scoring.SimilarityFloor = 0.5
	ApplyDefaults(cfg)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Retrieval.FinalTopK)
	assert.Equal(t, 0.5, cfg.Scoring.SimilarityFloor)
}

func TestApplyDefaults_NilIsSafe(t *testing.T) {
	ApplyDefaults(nil)
}

func TestValidate_DefaultsAreValid(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidate_Failures(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }},
		{"bad server mode", func(c *Config) { c.Server.Mode = "production" }},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Log.Format = "text" }},
		{"missing corpus path", func(c *Config) { c.Corpus.Path = "" }},
		{"negative scope article", func(c *Config) { c.Corpus.ScopeArticles = []int{4, -1} }},
		{"zero lexical top k", func(c *Config) { c.Retrieval.LexicalTopK = -1 }},
		{"judge weight above one", func(c *Config) { c.Retrieval.JudgeWeight = 1.5 }},
		{"similarity floor above one", func(c *Config) { c.Scoring.SimilarityFloor = 1.2 }},
		{"opensearch enabled without addresses", func(c *Config) { c.OpenSearch.Enabled = true }},
		{"milvus enabled without addr", func(c *Config) { c.Milvus.Enabled = true; c.Milvus.Addr = "" }},
		{"redis enabled without addr", func(c *Config) { c.Redis.Enabled = true; c.Redis.Addr = "" }},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
