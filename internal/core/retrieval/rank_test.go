package retrieval

import (
	"testing"

	"github.com/markocampo/campus-assistant/internal/core/domain"
)

func hymnOrder() OrderSpec {
	return OrderSpec{
		Kind:     orderSequence,
		Field:    "part",
		Sequence: []string{"verse1", "chorus", "verse2", "finalChorus"},
	}
}

func TestRankResultsSequenceOrderBeatsScore(t *testing.T) {
	results := []domain.SearchResult{
		{ID: "h-4", Score: 9.0, Metadata: map[string]string{"part": "finalChorus"}},
		{ID: "h-2", Score: 5.0, Metadata: map[string]string{"part": "chorus"}},
		{ID: "h-1", Score: 0.1, Metadata: map[string]string{"part": "verse1"}},
		{ID: "h-3", Score: 7.5, Metadata: map[string]string{"part": "verse2"}},
	}

	ranked := rankResults(results, hymnOrder())
	want := []string{"verse1", "chorus", "verse2", "finalChorus"}
	for i, part := range want {
		if ranked[i].Metadata["part"] != part {
			t.Fatalf("position %d: expected %s, got %s", i, part, ranked[i].Metadata["part"])
		}
	}
}

func TestRankResultsSequencePutsUnknownPartsLast(t *testing.T) {
	results := []domain.SearchResult{
		{ID: "x-1", Score: 9.0, Metadata: map[string]string{"part": "bridge"}},
		{ID: "h-1", Score: 0.5, Metadata: map[string]string{"part": "verse1"}},
	}

	ranked := rankResults(results, hymnOrder())
	if ranked[0].ID != "h-1" {
		t.Fatalf("expected sequenced part first, got %s", ranked[0].ID)
	}
}

func TestRankResultsChronologicalAscending(t *testing.T) {
	order := OrderSpec{Kind: orderChronological, Field: "year", Direction: "asc"}
	results := []domain.SearchResult{
		{ID: "c-2", Score: 9.0, Metadata: map[string]string{"year": "2005"}},
		{ID: "c-1", Score: 1.0, Metadata: map[string]string{"year": "1958"}},
		{ID: "c-3", Score: 5.0, Metadata: map[string]string{"year": "2021"}},
	}

	ranked := rankResults(results, order)
	want := []string{"1958", "2005", "2021"}
	for i, year := range want {
		if ranked[i].Metadata["year"] != year {
			t.Fatalf("position %d: expected year %s, got %s", i, year, ranked[i].Metadata["year"])
		}
	}
}

func TestRankResultsChronologicalDescendingForYearBuckets(t *testing.T) {
	order := OrderSpec{Kind: orderChronological, Field: "year", Direction: "desc"}
	results := []domain.SearchResult{
		{ID: "s-1", Score: 1.0, Metadata: map[string]string{"year": "2019"}},
		{ID: "s-2", Score: 9.0, Metadata: map[string]string{"year": "2024"}},
	}

	ranked := rankResults(results, order)
	if ranked[0].Metadata["year"] != "2024" {
		t.Fatalf("expected newest bucket first, got %s", ranked[0].Metadata["year"])
	}
}

func TestRankResultsScoreDescendingWithStableIDTieBreak(t *testing.T) {
	results := []domain.SearchResult{
		{ID: "b", Score: 1.0},
		{ID: "c", Score: 2.0},
		{ID: "a", Score: 1.0},
	}

	ranked := rankResults(results, OrderSpec{Kind: orderScore})
	got := []string{ranked[0].ID, ranked[1].ID, ranked[2].ID}
	want := []string{"c", "a", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
}

func TestAssembleResultsTruncatesWithoutResorting(t *testing.T) {
	ranked := []domain.SearchResult{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	assembled := assembleResults(ranked, 2)
	if len(assembled) != 2 {
		t.Fatalf("expected 2 results, got %d", len(assembled))
	}
	if assembled[0].ID != "a" || assembled[1].ID != "b" {
		t.Fatalf("assembly must preserve ranked order, got %s,%s", assembled[0].ID, assembled[1].ID)
	}
	if got := assembleResults(ranked, 0); len(got) != 3 {
		t.Fatalf("non-positive bound must not truncate, got %d", len(got))
	}
}
