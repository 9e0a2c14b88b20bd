package corpus

import (
	"encoding/json"
	"os"

	"github.com/verilex/policyaudit/pkg/errors"
)

// corpusFile mirrors the on-disk JSON layout:
//
//	{"articles": [{"number", "title", "text", "clauses": [{"label", "text", "clauses": [...]}]}]}
type corpusFile struct {
	Articles []LegalArticle `json:"articles"`
}

// LoadFile reads and parses the corpus JSON at path, builds each article's
// FullText, and validates the set.  Article numbers must be unique positive
// integers; clause labels must be unique within their article.
func LoadFile(path string) ([]LegalArticle, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCorpusLoadFailed, "failed to read corpus file").
			WithDetail("path=" + path)
	}
	return Parse(raw)
}

// Parse decodes corpus JSON bytes and finalizes the articles.
func Parse(raw []byte) ([]LegalArticle, error) {
	var f corpusFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCorpusParseFailed, "failed to parse article corpus")
	}
	if len(f.Articles) == 0 {
		return nil, errors.New(errors.ErrCodeCorpusEmpty, "article corpus is empty")
	}

	seen := make(map[int]struct{}, len(f.Articles))
	for i := range f.Articles {
		a := &f.Articles[i]
		if a.Number < 1 {
			return nil, errors.Newf(errors.ErrCodeCorpusParseFailed,
				"article at index %d has invalid number %d", i, a.Number)
		}
		if _, dup := seen[a.Number]; dup {
			return nil, errors.Newf(errors.ErrCodeDuplicateArticle,
				"article number %d appears more than once", a.Number)
		}
		seen[a.Number] = struct{}{}

		if err := validateClauseLabels(a); err != nil {
			return nil, err
		}
		a.FullText = a.buildFullText()
	}
	return f.Articles, nil
}

func validateClauseLabels(a *LegalArticle) error {
	labels := make(map[string]struct{})
	for _, fc := range a.FlattenClauses() {
		if fc.Label == "" {
			return errors.Newf(errors.ErrCodeCorpusParseFailed,
				"article %d contains a clause with no label", a.Number)
		}
		if _, dup := labels[fc.Path]; dup {
			return errors.Newf(errors.ErrCodeCorpusParseFailed,
				"article %d contains duplicate clause path %q", a.Number, fc.Path)
		}
		labels[fc.Path] = struct{}{}
	}
	return nil
}
