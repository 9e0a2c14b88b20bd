package client

import (
	"context"
	"fmt"
)

// ArticleSummary is the list-view shape of one corpus article.
type ArticleSummary struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	Clauses int    `json:"clauses"`
}

// Clause is one sub-requirement within an article.
type Clause struct {
	Label   string   `json:"label"`
	Text    string   `json:"text"`
	Clauses []Clause `json:"clauses,omitempty"`
}

// ArticleDetail is a single article with its clause tree.
type ArticleDetail struct {
	Number  int      `json:"number"`
	Title   string   `json:"title"`
	Text    string   `json:"text,omitempty"`
	Clauses []Clause `json:"clauses,omitempty"`
}

type articleListResponse struct {
	Version  uint64           `json:"version"`
	Articles []ArticleSummary `json:"articles"`
}

// ReloadResult reports the corpus state after a manual reload.
type ReloadResult struct {
	Version  uint64 `json:"version"`
	Articles int    `json:"articles"`
}

// ListArticles returns the loaded corpus articles.
func (c *Client) ListArticles(ctx context.Context) ([]ArticleSummary, error) {
	var resp articleListResponse
	if err := c.get(ctx, "/api/v1/articles", &resp); err != nil {
		return nil, err
	}
	return resp.Articles, nil
}

// GetArticle returns one article with its clause tree.
func (c *Client) GetArticle(ctx context.Context, number int) (*ArticleDetail, error) {
	var detail ArticleDetail
	if err := c.get(ctx, fmt.Sprintf("/api/v1/articles/%d", number), &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ReloadCorpus triggers a corpus reload on the server.
func (c *Client) ReloadCorpus(ctx context.Context) (*ReloadResult, error) {
	var result ReloadResult
	if err := c.post(ctx, "/api/v1/corpus/reload", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Health checks server liveness.
func (c *Client) Health(ctx context.Context) error {
	return c.get(ctx, "/healthz", nil)
}
