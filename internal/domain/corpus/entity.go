// Package corpus holds the legal-article domain model: the clause tree as
// loaded from the corpus file, the flattened clause view used for display and
// per-clause scoring, and the process-lifetime article store.
package corpus

import (
	"fmt"
	"strings"
)

// lawCode prefixes flattened clause IDs, e.g. "PDPL:4:4/1/a".
const lawCode = "PDPL"

// Clause is one sub-requirement within an article.  The nested Clauses slice
// is the source of truth for structure; ParentID is a weak back-reference used
// only for path reconstruction, never an ownership edge.
type Clause struct {
	Label    string   `json:"label"`
	Text     string   `json:"text"`
	ParentID string   `json:"parent_id,omitempty"`
	Clauses  []Clause `json:"clauses,omitempty"`
}

// FlatClause is a clause flattened out of the tree, annotated with its full
// path and a stable ID.
type FlatClause struct {
	// ID is "<law>:<articleNumber>:<path>", unique within the corpus.
	ID string

	// Label is the clause's own label, unique within its article.
	Label string

	// Text is the clause text without descendants.
	Text string

	// ParentID is the ID of the enclosing clause, or the article ID
	// ("<law>:<n>") for top-level clauses.
	ParentID string

	// Path is "<articleNumber>/<label>/<sublabel>/..." from the article root
	// down to this clause.
	Path string
}

// LegalArticle is a top-level legal requirement unit.  Immutable after load.
type LegalArticle struct {
	// Number uniquely identifies the article and is stable for the process
	// lifetime.
	Number int `json:"number"`

	Title string `json:"title"`

	// Text is the article's own body text, excluding clauses.
	Text string `json:"text"`

	// Clauses is the ordered clause tree.
	Clauses []Clause `json:"clauses,omitempty"`

	// FullText is the heading concatenated with all descendant clause text.
	// This is the text that gets indexed and embedded.
	FullText string `json:"-"`
}

// ArticleID returns the stable corpus ID of the article, e.g. "PDPL:4".
func (a *LegalArticle) ArticleID() string {
	return fmt.Sprintf("%s:%d", lawCode, a.Number)
}

// Heading returns "Article <n>: <title>".
func (a *LegalArticle) Heading() string {
	return fmt.Sprintf("Article %d: %s", a.Number, a.Title)
}

// FlattenClauses walks the clause tree depth-first and returns the flat
// annotated view.  The tree remains the source of truth; paths are built
// during the walk rather than re-derived from string splitting.
func (a *LegalArticle) FlattenClauses() []FlatClause {
	var out []FlatClause
	rootPath := fmt.Sprintf("%d", a.Number)
	walkClauses(a.Clauses, a.ArticleID(), rootPath, a.Number, &out)
	return out
}

func walkClauses(clauses []Clause, parentID, parentPath string, articleNumber int, out *[]FlatClause) {
	for _, c := range clauses {
		path := parentPath + "/" + c.Label
		id := fmt.Sprintf("%s:%d:%s", lawCode, articleNumber, path)
		*out = append(*out, FlatClause{
			ID:       id,
			Label:    c.Label,
			Text:     c.Text,
			ParentID: parentID,
			Path:     path,
		})
		if len(c.Clauses) > 0 {
			walkClauses(c.Clauses, id, path, articleNumber, out)
		}
	}
}

// buildFullText assembles the indexable text: heading, article body, then all
// descendant clause text in tree order.
func (a *LegalArticle) buildFullText() string {
	var sb strings.Builder
	sb.WriteString(a.Heading())
	if a.Text != "" {
		sb.WriteString(" ")
		sb.WriteString(a.Text)
	}
	appendClauseText(&sb, a.Clauses)
	return sb.String()
}

func appendClauseText(sb *strings.Builder, clauses []Clause) {
	for _, c := range clauses {
		if c.Text != "" {
			sb.WriteString(" ")
			sb.WriteString(c.Text)
		}
		appendClauseText(sb, c.Clauses)
	}
}
