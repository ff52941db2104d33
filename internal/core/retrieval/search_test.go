package retrieval

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/markocampo/campus-assistant/internal/core/domain"
)

type fakeCorrector struct {
	correct func(text string) (string, bool)
}

func (f *fakeCorrector) Correct(text string) (string, bool) {
	if f.correct == nil {
		return text, false
	}
	return f.correct(text)
}

func newTestService(t *testing.T, knowledge *fakeKnowledge, corrector *fakeCorrector) *Service {
	t.Helper()
	rules, err := DefaultRuleSet()
	if err != nil {
		t.Fatalf("DefaultRuleSet() error = %v", err)
	}
	engine := newTestEngine(t, knowledge, nil, nil)
	if corrector == nil {
		return NewService(nil, NewClassifier(rules.Rules), engine, testLogger(), nil, time.Second)
	}
	return NewService(corrector, NewClassifier(rules.Rules), engine, testLogger(), nil, time.Second)
}

func generalChunks(n int) []domain.ScoredChunk {
	out := make([]domain.ScoredChunk, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.ScoredChunk{
			Chunk:     domain.Chunk{ID: fmt.Sprintf("g-%02d", i), Text: "campus facts"},
			Relevance: 1.0 - float64(i)*0.05,
		})
	}
	return out
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	service := newTestService(t, &fakeKnowledge{}, nil)

	_, err := service.Search(context.Background(), "   ", domain.SearchOptions{})
	if !domain.IsKind(err, domain.ErrInvalidQuery) {
		t.Fatalf("expected invalid query error, got %v", err)
	}
}

func TestSearchRejectsOverlongQuery(t *testing.T) {
	service := newTestService(t, &fakeKnowledge{}, nil)

	_, err := service.Search(context.Background(), strings.Repeat("a", maxQueryLength+1), domain.SearchOptions{})
	if !domain.IsKind(err, domain.ErrInvalidQuery) {
		t.Fatalf("expected invalid query error, got %v", err)
	}
}

func TestSearchHonorsMaxSections(t *testing.T) {
	knowledge := &fakeKnowledge{
		filtered: func(context.Context, domain.ChunkFilter, int) ([]domain.ScoredChunk, error) {
			return generalChunks(12), nil
		},
	}
	service := newTestService(t, knowledge, nil)

	outcome, err := service.Search(context.Background(), "tell me campus facts", domain.SearchOptions{MaxSections: 4})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(outcome.Results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(outcome.Results))
	}
}

func TestSearchDefaultBoundsApply(t *testing.T) {
	knowledge := &fakeKnowledge{
		filtered: func(context.Context, domain.ChunkFilter, int) ([]domain.ScoredChunk, error) {
			return generalChunks(12), nil
		},
	}
	service := newTestService(t, knowledge, nil)

	outcome, err := service.Search(context.Background(), "tell me campus facts", domain.SearchOptions{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(outcome.Results) != defaultMaxSections {
		t.Fatalf("expected default bound %d, got %d", defaultMaxSections, len(outcome.Results))
	}
}

func TestSearchTotalOutageIsDegradedNotAnError(t *testing.T) {
	providerDown := domain.WrapError(domain.ErrProviderUnavailable, "qdrant", fmt.Errorf("down"))
	knowledge := &fakeKnowledge{
		filtered: func(context.Context, domain.ChunkFilter, int) ([]domain.ScoredChunk, error) {
			return nil, providerDown
		},
		vector: func(context.Context, []float32, int) ([]domain.ScoredChunk, error) {
			return nil, providerDown
		},
		keyword: func(context.Context, []string, int) ([]domain.ScoredChunk, error) {
			return nil, providerDown
		},
	}
	service := newTestService(t, knowledge, nil)

	outcome, err := service.Search(context.Background(), "what is the history of the university", domain.SearchOptions{})
	if err != nil {
		t.Fatalf("outage must not surface as an error, got %v", err)
	}
	if !outcome.Degraded {
		t.Fatalf("expected degraded outcome")
	}
	if len(outcome.Results) != 0 {
		t.Fatalf("expected empty results, got %d", len(outcome.Results))
	}
}

func TestSearchFallsBackToGeneralWhenCategoryIsEmpty(t *testing.T) {
	knowledge := &fakeKnowledge{
		filtered: func(_ context.Context, filter domain.ChunkFilter, _ int) ([]domain.ScoredChunk, error) {
			if filter.Section != "" || filter.MetadataEquals != nil {
				return nil, nil
			}
			return generalChunks(3), nil
		},
	}
	service := newTestService(t, knowledge, nil)

	outcome, err := service.Search(context.Background(), "what scholarships are available", domain.SearchOptions{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if outcome.Category != domain.CategoryScholarship {
		t.Fatalf("classification must be reported even after fallback, got %s", outcome.Category)
	}
	if len(outcome.Results) == 0 {
		t.Fatalf("expected general fallback results")
	}
}

func TestSearchQueryTypeOverrideSkipsClassification(t *testing.T) {
	var lastSection string
	knowledge := &fakeKnowledge{
		filtered: func(_ context.Context, filter domain.ChunkFilter, _ int) ([]domain.ScoredChunk, error) {
			if filter.MetadataEquals == nil {
				lastSection = filter.Section
			}
			return generalChunks(3), nil
		},
	}
	service := newTestService(t, knowledge, nil)

	forced := domain.CategoryHistory
	outcome, err := service.Search(context.Background(), "what scholarships are available", domain.SearchOptions{QueryType: &forced})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if outcome.Category != domain.CategoryHistory {
		t.Fatalf("expected forced category history, got %s", outcome.Category)
	}
	if lastSection != "history" {
		t.Fatalf("expected history section filter, got %q", lastSection)
	}
}

func TestSearchReportsCorrections(t *testing.T) {
	corrector := &fakeCorrector{
		correct: func(string) (string, bool) {
			return "what scholarships are available", true
		},
	}
	knowledge := &fakeKnowledge{
		filtered: func(context.Context, domain.ChunkFilter, int) ([]domain.ScoredChunk, error) {
			return generalChunks(3), nil
		},
	}
	service := newTestService(t, knowledge, corrector)

	outcome, err := service.Search(context.Background(), "what scholarhsips are available", domain.SearchOptions{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if !outcome.HadCorrections {
		t.Fatalf("expected correction flag")
	}
	if outcome.CorrectedQuery != "what scholarships are available" {
		t.Fatalf("unexpected corrected query %q", outcome.CorrectedQuery)
	}
	if outcome.Category != domain.CategoryScholarship {
		t.Fatalf("classification must run on the corrected text, got %s", outcome.Category)
	}
}

func TestQueryPrefixKeepsRuneBoundaries(t *testing.T) {
	short := "kurze anfrage"
	if got := queryPrefix(short); got != short {
		t.Fatalf("short query must pass through, got %q", got)
	}

	// A two-byte rune straddles the cut position.
	long := strings.Repeat("a", 47) + "é" + strings.Repeat("b", 10)
	got := queryPrefix(long)
	if len(got) > 48 {
		t.Fatalf("prefix length %d exceeds bound", len(got))
	}
	if !utf8.ValidString(got) {
		t.Fatalf("prefix is not valid UTF-8: %q", got)
	}
	if got != strings.Repeat("a", 47) {
		t.Fatalf("expected cut before the split rune, got %q", got)
	}
}

func TestSearchRepeatedQueriesReturnIdenticalResults(t *testing.T) {
	knowledge := &fakeKnowledge{
		filtered: func(context.Context, domain.ChunkFilter, int) ([]domain.ScoredChunk, error) {
			return generalChunks(6), nil
		},
		vector: func(context.Context, []float32, int) ([]domain.ScoredChunk, error) {
			return generalChunks(4), nil
		},
	}
	service := newTestService(t, knowledge, nil)

	first, err := service.Search(context.Background(), "tell me campus facts", domain.SearchOptions{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	for i := 0; i < 5; i++ {
		next, err := service.Search(context.Background(), "tell me campus facts", domain.SearchOptions{})
		if err != nil {
			t.Fatalf("run %d: Search() error = %v", i, err)
		}
		if len(next.Results) != len(first.Results) {
			t.Fatalf("run %d: %d results, want %d", i, len(next.Results), len(first.Results))
		}
		for j := range first.Results {
			if next.Results[j].ID != first.Results[j].ID || next.Results[j].Score != first.Results[j].Score {
				t.Fatalf("run %d: result %d differs", i, j)
			}
		}
	}
}
