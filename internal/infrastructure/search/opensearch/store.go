// Package opensearch adapts an OpenSearch cluster to the lexical retrieval
// port for deployments where the article corpus should be served by a shared
// keyword index instead of the in-process BM25 engine.
package opensearch

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/verilex/policyaudit/internal/compliance/retrieval"
	"github.com/verilex/policyaudit/internal/config"
	"github.com/verilex/policyaudit/internal/domain/corpus"
	"github.com/verilex/policyaudit/internal/infrastructure/monitoring/logging"
	"github.com/verilex/policyaudit/pkg/errors"
)

const requestTimeout = 10 * time.Second

// articleDoc is the indexed document shape.
type articleDoc struct {
	ArticleNumber int    `json:"article_number"`
	Title         string `json:"title"`
	FullText      string `json:"full_text"`
}

// Store indexes the article corpus and serves keyword searches over it.  One
// index per corpus generation: Rebuild drops and recreates the index so a
// reload never serves a mix of generations.
type Store struct {
	client *opensearch.Client
	index  string
	logger logging.Logger
}

// NewStore connects to the cluster and verifies it with a ping.
func NewStore(cfg config.OpenSearchConfig, logger logging.Logger) (*Store, error) {
	if len(cfg.Addresses) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "no opensearch addresses configured")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	transport := &http.Transport{}
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	client, err := opensearch.NewClient(opensearch.Config{
		Addresses:     cfg.Addresses,
		Username:      cfg.User,
		Password:      cfg.Password,
		Transport:     transport,
		RetryOnStatus: []int{502, 503, 504, 429},
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeKeywordSearchFailed, "failed to create opensearch client")
	}

	st := &Store{
		client: client,
		index:  cfg.IndexPrefix + "articles",
		logger: logger.Named("opensearch"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	resp, err := client.Ping(client.Ping.WithContext(ctx))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeKeywordSearchFailed, "opensearch ping failed")
	}
	resp.Body.Close()
	if resp.IsError() {
		return nil, errors.Newf(errors.ErrCodeKeywordSearchFailed, "opensearch ping returned status %d", resp.StatusCode)
	}
	return st, nil
}

// Rebuild drops the article index and indexes the snapshot from scratch.
func (s *Store) Rebuild(ctx context.Context, snap *corpus.Snapshot) error {
	del := opensearchapi.IndicesDeleteRequest{
		Index:             []string{s.index},
		IgnoreUnavailable: opensearchapi.BoolPtr(true),
	}
	if resp, err := del.Do(ctx, s.client); err != nil {
		return errors.Wrap(err, errors.ErrCodeKeywordSearchFailed, "failed to drop article index")
	} else {
		resp.Body.Close()
	}

	for _, art := range snap.Articles() {
		doc := articleDoc{ArticleNumber: art.Number, Title: art.Title, FullText: art.FullText}
		payload, err := json.Marshal(doc)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal article document")
		}
		idx := opensearchapi.IndexRequest{
			Index:      s.index,
			DocumentID: strconv.Itoa(art.Number),
			Body:       bytes.NewReader(payload),
		}
		resp, err := idx.Do(ctx, s.client)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeKeywordSearchFailed, "failed to index article").
				WithDetail(fmt.Sprintf("article=%d", art.Number))
		}
		resp.Body.Close()
		if resp.IsError() {
			return errors.Newf(errors.ErrCodeKeywordSearchFailed,
				"indexing article %d returned status %d", art.Number, resp.StatusCode)
		}
	}

	refresh := opensearchapi.IndicesRefreshRequest{Index: []string{s.index}}
	if resp, err := refresh.Do(ctx, s.client); err == nil {
		resp.Body.Close()
	}

	s.logger.Info("article index rebuilt",
		logging.String("index", s.index), logging.Int("articles", snap.Len()))
	return nil
}

// SearchLexical implements the lexical retrieval port with a match query on
// the article full text.
func (s *Store) SearchLexical(ctx context.Context, query string, k int) ([]retrieval.LexicalHit, error) {
	dsl := map[string]interface{}{
		"size": k,
		"query": map[string]interface{}{
			"match": map[string]interface{}{
				"full_text": query,
			},
		},
		"_source": []string{"article_number"},
	}
	body, err := json.Marshal(dsl)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal search query")
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req := opensearchapi.SearchRequest{
		Index: []string{s.index},
		Body:  bytes.NewReader(body),
	}
	resp, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeKeywordSearchFailed, "search request failed")
	}
	defer resp.Body.Close()
	if resp.IsError() {
		return nil, errors.Newf(errors.ErrCodeKeywordSearchFailed, "search returned status %d", resp.StatusCode)
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Score  float64 `json:"_score"`
				Source struct {
					ArticleNumber int `json:"article_number"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode search response")
	}

	hits := make([]retrieval.LexicalHit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		hits = append(hits, retrieval.LexicalHit{ArticleNumber: h.Source.ArticleNumber, Score: h.Score})
	}
	return hits, nil
}
