package lexical

import (
	"testing"

	"github.com/verilex/policyaudit/internal/compliance/textutil"
	"github.com/verilex/policyaudit/internal/domain/corpus"
)

func testSnapshot(t *testing.T) *corpus.Snapshot {
	t.Helper()
	raw := []byte(`{"articles": [
		{"number": 4, "title": "Data Subject Rights", "text": "the data subject has the right to access personal data"},
		{"number": 5, "title": "Consent", "text": "consent of the data subject must be freely given and documented"},
		{"number": 10, "title": "Collection", "text": "the controller collects data directly from the subject"},
		{"number": 20, "title": "Breach Notification", "text": "the controller shall notify the authority of any breach of personal data"}
	]}`)
	articles, err := corpus.Parse(raw)
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return corpus.NewSnapshot(articles)
}

func TestBuild_IndexShape(t *testing.T) {
	idx := Build(testSnapshot(t))
	if idx.Len() != 4 {
		t.Fatalf("expected 4 documents, got %d", idx.Len())
	}
}

func TestScores_RelevantDocumentRanksHighest(t *testing.T) {
	idx := Build(testSnapshot(t))

	scores := idx.Scores(textutil.Tokenize("breach notification authority"))
	if len(scores) != 4 {
		t.Fatalf("expected 4 scores, got %d", len(scores))
	}

	// Article 20 (position 3) mentions breach, notify, authority.
	best := 0
	for i, s := range scores {
		if s > scores[best] {
			best = i
		}
	}
	if best != 3 {
		t.Errorf("expected document 3 (article 20) to rank highest, scores=%v", scores)
	}
}

func TestScores_EmptyQuery(t *testing.T) {
	idx := Build(testSnapshot(t))
	for _, s := range idx.Scores(nil) {
		if s != 0 {
			t.Fatal("empty query must yield all-zero scores")
		}
	}
}

func TestScores_UnknownTermsIgnored(t *testing.T) {
	idx := Build(testSnapshot(t))
	for _, s := range idx.Scores([]string{"zzzzz", "qqqqq"}) {
		if s != 0 {
			t.Fatal("unknown terms must not contribute score")
		}
	}
}

func TestSearch_TopKDescending(t *testing.T) {
	idx := Build(testSnapshot(t))

	hits := idx.Search("consent of the data subject", 2)
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Score < hits[1].Score {
		t.Error("hits not sorted descending")
	}
	if hits[0].ArticleNumber != 5 {
		t.Errorf("expected article 5 first, got %d", hits[0].ArticleNumber)
	}
}

func TestSearch_OmitsZeroScores(t *testing.T) {
	idx := Build(testSnapshot(t))
	if hits := idx.Search("zzzzz", 10); len(hits) != 0 {
		t.Errorf("expected no hits, got %v", hits)
	}
}
