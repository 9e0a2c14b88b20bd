package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL, WithRetryWait(time.Millisecond, 2*time.Millisecond))
	require.NoError(t, err)
	return c, srv
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient("")
	assert.Error(t, err)

	_, err = NewClient("ftp://example.com")
	assert.Error(t, err)

	c, err := NewClient("http://localhost:8080/")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", c.baseURL)
}

func TestAnalyze_RoundTrip(t *testing.T) {
	var got AnalyzeRequest
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/analyze", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(Report{
			AnalysisID: "a-1",
			Overall: OverallScoreReport{
				OverallScore:    30,
				ComplianceLevel: "not_compliant",
				MissingArticles: []int{5, 10},
			},
		})
	}))

	report, err := c.Analyze(context.Background(), AnalyzeRequest{
		Text:          "we collect personal data",
		ScopeArticles: []int{4, 5, 10},
		JudgeOnly:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, "a-1", report.AnalysisID)
	assert.Equal(t, []int{5, 10}, report.Overall.MissingArticles)
	assert.Equal(t, []int{4, 5, 10}, got.ScopeArticles)
	assert.True(t, got.JudgeOnly)
}

func TestAnalyze_APIError(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"code":    "SCORE_003",
			"message": "judge required but unavailable",
		})
	}))

	_, err := c.Analyze(context.Background(), AnalyzeRequest{Text: "x"})
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "SCORE_003", apiErr.Code)
	assert.True(t, apiErr.IsUnavailable())
}

func TestDo_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(Report{AnalysisID: "a-2"})
	}))

	report, err := c.Analyze(context.Background(), AnalyzeRequest{Text: "x"})
	require.NoError(t, err)
	assert.Equal(t, "a-2", report.AnalysisID)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDo_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"code": "COMMON_002", "message": "bad request"})
	}))

	_, err := c.Analyze(context.Background(), AnalyzeRequest{Text: "x"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestListArticlesAndGet(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/articles":
			_ = json.NewEncoder(w).Encode(articleListResponse{
				Version:  2,
				Articles: []ArticleSummary{{Number: 4, Title: "Rights", Clauses: 3}},
			})
		case "/api/v1/articles/4":
			_ = json.NewEncoder(w).Encode(ArticleDetail{Number: 4, Title: "Rights"})
		default:
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"code": "CORP_004", "message": "article not found"})
		}
	}))

	articles, err := c.ListArticles(context.Background())
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, 4, articles[0].Number)

	detail, err := c.GetArticle(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, "Rights", detail.Title)

	_, err = c.GetArticle(context.Background(), 99)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsNotFound())
}

func TestDiagnose(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/diagnose", r.URL.Path)
		_ = json.NewEncoder(w).Encode(diagnoseResponse{
			Matches: []DirectMatch{{ArticleNumber: 5, EmbeddingScore: 0.9}},
		})
	}))

	matches, err := c.Diagnose(context.Background(), AnalyzeRequest{Text: "consent"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 5, matches[0].ArticleNumber)
}

func TestRequestHeaders(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		assert.Contains(t, r.Header.Get("User-Agent"), "policyaudit-go-sdk")
		w.WriteHeader(http.StatusOK)
	}))

	require.NoError(t, c.Health(context.Background()))
}
