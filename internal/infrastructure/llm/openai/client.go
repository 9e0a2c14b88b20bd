// Package openai implements the judge transport and the embedder against the
// OpenAI-compatible chat and embeddings APIs.
package openai

import (
	"context"

	openai "github.com/sashabaranov/go-openai"

	"github.com/verilex/policyaudit/internal/compliance/judge"
	"github.com/verilex/policyaudit/internal/config"
	"github.com/verilex/policyaudit/internal/infrastructure/monitoring/logging"
	"github.com/verilex/policyaudit/pkg/errors"
)

// Client serves both model roles of the pipeline: chat completions for the
// judge and embeddings for retrieval.
type Client struct {
	api            *openai.Client
	chatModel      string
	embeddingModel string
	logger         logging.Logger
}

// NewClient builds a Client from configuration.  A missing API key returns
// ErrCodeJudgeDisabled: model access is mandatory because retrieval depends
// on the embeddings endpoint, so the server refuses to start without it.
// Judge degradation is a runtime concern, handled downstream of a working
// client.
func NewClient(cfg config.OpenAIConfig, logger logging.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New(errors.ErrCodeJudgeDisabled, "no API key configured, model access disabled")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}

	return &Client{
		api:            openai.NewClientWithConfig(apiCfg),
		chatModel:      cfg.ChatModel,
		embeddingModel: cfg.EmbeddingModel,
		logger:         logger.Named("openai"),
	}, nil
}

// Complete implements judge.Transport.
func (c *Client) Complete(ctx context.Context, req judge.CompletionRequest) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.chatModel,
		MaxTokens:   req.MaxTokens,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
	})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeJudgeUnavailable, "chat completion failed")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New(errors.ErrCodeJudgeUnavailable, "chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// EmbedTexts implements embedding.Embedder.  Vectors come back in input
// order.
func (c *Client) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(c.embeddingModel),
		Input: texts,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeEmbeddingFailed, "embeddings request failed")
	}
	if len(resp.Data) != len(texts) {
		return nil, errors.Newf(errors.ErrCodeEmbeddingFailed,
			"embeddings response has %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, errors.Newf(errors.ErrCodeEmbeddingFailed, "embedding index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}
