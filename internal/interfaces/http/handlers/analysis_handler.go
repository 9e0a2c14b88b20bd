package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/verilex/policyaudit/internal/compliance/pipeline"
	"github.com/verilex/policyaudit/internal/domain/document"
	"github.com/verilex/policyaudit/pkg/errors"
)

// AnalysisService is the pipeline surface the handler depends on; satisfied
// by *pipeline.Service.
type AnalysisService interface {
	Analyze(ctx context.Context, pages []document.Page, opts pipeline.Options) (*pipeline.Report, error)
	Diagnose(ctx context.Context, pages []document.Page) ([]pipeline.DirectMatch, error)
}

// AnalyzeRequest is the analysis request body.  Callers send either extracted
// pages or a single raw text; pages win when both are present.
type AnalyzeRequest struct {
	Pages []document.Page `json:"pages"`
	Text  string          `json:"text"`

	ScopeArticles   []int `json:"scope_articles"`
	JudgeOnly       bool  `json:"judge_only"`
	Rerank          bool  `json:"rerank"`
	TopK            int   `json:"top_k"`
	Recommendations bool  `json:"recommendations"`
}

func (r *AnalyzeRequest) pages() []document.Page {
	if len(r.Pages) > 0 {
		return r.Pages
	}
	if r.Text != "" {
		return []document.Page{{Number: 1, Text: r.Text}}
	}
	return nil
}

// DiagnoseResponse wraps the direct-match list.
type DiagnoseResponse struct {
	Matches []pipeline.DirectMatch `json:"matches"`
}

// AnalysisHandler serves the analysis and diagnostic endpoints.
type AnalysisHandler struct {
	service AnalysisService
}

// NewAnalysisHandler constructs the handler.
func NewAnalysisHandler(service AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{service: service}
}

// Analyze handles POST /api/v1/analyze.
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	pages := req.pages()
	if len(pages) == 0 {
		respondError(c, errors.New(errors.ErrCodeBadRequest, "request must carry pages or text"))
		return
	}
	for _, n := range req.ScopeArticles {
		if n < 1 {
			respondError(c, errors.Newf(errors.ErrCodeValidation, "invalid article number %d in scope", n))
			return
		}
	}

	report, err := h.service.Analyze(c.Request.Context(), pages, pipeline.Options{
		Scope:           req.ScopeArticles,
		JudgeOnly:       req.JudgeOnly,
		Rerank:          req.Rerank,
		TopK:            req.TopK,
		Recommendations: req.Recommendations,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Diagnose handles POST /api/v1/diagnose: the strict text-similarity read
// path, useful for checking which articles a passage speaks to directly.
func (h *AnalysisHandler) Diagnose(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	pages := req.pages()
	if len(pages) == 0 {
		respondError(c, errors.New(errors.ErrCodeBadRequest, "request must carry pages or text"))
		return
	}

	matches, err := h.service.Diagnose(c.Request.Context(), pages)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, DiagnoseResponse{Matches: matches})
}
