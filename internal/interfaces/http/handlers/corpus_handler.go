package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/verilex/policyaudit/internal/domain/corpus"
	"github.com/verilex/policyaudit/pkg/errors"
)

// CorpusProvider is the corpus surface the handler depends on; satisfied by
// *corpus.Store.
type CorpusProvider interface {
	Snapshot() *corpus.Snapshot
	Reload() error
}

// ArticleSummary is the list-view shape of one article.
type ArticleSummary struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	Clauses int    `json:"clauses"`
}

// ArticleDetail is the single-article shape with the full clause tree.
type ArticleDetail struct {
	Number  int             `json:"number"`
	Title   string          `json:"title"`
	Text    string          `json:"text,omitempty"`
	Clauses []corpus.Clause `json:"clauses,omitempty"`
}

// CorpusHandler serves read access to the loaded article corpus and the
// manual reload endpoint.
type CorpusHandler struct {
	store CorpusProvider
}

// NewCorpusHandler constructs the handler.
func NewCorpusHandler(store CorpusProvider) *CorpusHandler {
	return &CorpusHandler{store: store}
}

// List handles GET /api/v1/articles.
func (h *CorpusHandler) List(c *gin.Context) {
	snap := h.store.Snapshot()
	out := make([]ArticleSummary, 0, snap.Len())
	for _, art := range snap.Articles() {
		out = append(out, ArticleSummary{
			Number:  art.Number,
			Title:   art.Title,
			Clauses: len(art.FlattenClauses()),
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"version":  snap.Version(),
		"articles": out,
	})
}

// Get handles GET /api/v1/articles/:number.
func (h *CorpusHandler) Get(c *gin.Context) {
	number, err := strconv.Atoi(c.Param("number"))
	if err != nil || number < 1 {
		respondError(c, errors.Newf(errors.ErrCodeBadRequest, "invalid article number %q", c.Param("number")))
		return
	}

	art := h.store.Snapshot().ByNumber(number)
	if art == nil {
		respondError(c, errors.Newf(errors.ErrCodeArticleNotFound, "article %d not in corpus", number))
		return
	}
	c.JSON(http.StatusOK, ArticleDetail{
		Number:  art.Number,
		Title:   art.Title,
		Text:    art.Text,
		Clauses: art.Clauses,
	})
}

// Reload handles POST /api/v1/corpus/reload.  A failed reload keeps the
// previous snapshot serving, so the error is reported without downtime.
func (h *CorpusHandler) Reload(c *gin.Context) {
	if err := h.store.Reload(); err != nil {
		respondError(c, err)
		return
	}
	snap := h.store.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"version":  snap.Version(),
		"articles": snap.Len(),
	})
}
