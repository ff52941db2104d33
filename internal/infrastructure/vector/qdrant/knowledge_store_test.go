package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/markocampo/campus-assistant/internal/core/domain"
)

func newStoreWithServer(t *testing.T, handler http.HandlerFunc) *KnowledgeStore {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewKnowledgeStore(NewClient(server.URL, Options{}), "knowledge_chunks")
}

func TestVectorSearchDecodesPayload(t *testing.T) {
	store := newStoreWithServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/knowledge_chunks/points/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": []map[string]any{
				{
					"score": 0.87,
					"payload": map[string]any{
						"chunk_id": "hist-001",
						"section":  "history",
						"type":     "fact",
						"category": "history",
						"text":     "The university was founded in 1958.",
						"keywords": []string{"founded", "1958"},
						"metadata": map[string]any{"year": "1958"},
					},
				},
			},
		})
	})

	chunks, err := store.VectorSearch(context.Background(), []float32{0.1, 0.2}, 5)
	if err != nil {
		t.Fatalf("VectorSearch() error = %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}

	chunk := chunks[0]
	if chunk.ID != "hist-001" || chunk.Section != "history" || chunk.Relevance != 0.87 {
		t.Fatalf("unexpected chunk: %+v", chunk)
	}
	if chunk.Metadata["year"] != "1958" {
		t.Fatalf("metadata not decoded: %v", chunk.Metadata)
	}
	if len(chunk.Keywords) != 2 {
		t.Fatalf("keywords not decoded: %v", chunk.Keywords)
	}
}

func TestFilteredQuerySendsMatchClauses(t *testing.T) {
	var captured map[string]any
	store := newStoreWithServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/knowledge_chunks/points/scroll" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]any{
				"points": []map[string]any{
					{"payload": map[string]any{"chunk_id": "fac-1", "text": "FACET faculty of engineering"}},
				},
			},
		})
	})

	filter := domain.ChunkFilter{
		Section:        "faculties",
		MetadataEquals: map[string]string{"acronym": "FACET"},
		Terms:          []string{"facet", "engineering"},
	}
	chunks, err := store.FilteredQuery(context.Background(), filter, 4)
	if err != nil {
		t.Fatalf("FilteredQuery() error = %v", err)
	}

	must, _ := captured["filter"].(map[string]any)["must"].([]any)
	if len(must) != 2 {
		t.Fatalf("expected 2 match clauses, got %v", captured["filter"])
	}
	keys := map[string]bool{}
	for _, clause := range must {
		keys[clause.(map[string]any)["key"].(string)] = true
	}
	if !keys["section"] || !keys["metadata.acronym"] {
		t.Fatalf("unexpected clause keys %v", keys)
	}

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Relevance != 1.0 {
		t.Fatalf("expected full term relevance, got %f", chunks[0].Relevance)
	}
}

func TestFilteredQueryTrimsByRelevance(t *testing.T) {
	store := newStoreWithServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]any{
				"points": []map[string]any{
					{"payload": map[string]any{"chunk_id": "a", "text": "nothing relevant"}},
					{"payload": map[string]any{"chunk_id": "b", "text": "scholarship details"}},
					{"payload": map[string]any{"chunk_id": "c", "text": "scholarship grant details"}},
				},
			},
		})
	})

	chunks, err := store.FilteredQuery(context.Background(), domain.ChunkFilter{Terms: []string{"scholarship", "grant"}}, 2)
	if err != nil {
		t.Fatalf("FilteredQuery() error = %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected trimmed result, got %d", len(chunks))
	}
	if chunks[0].ID != "c" || chunks[1].ID != "b" {
		t.Fatalf("expected relevance ordering c,b got %s,%s", chunks[0].ID, chunks[1].ID)
	}
}

func TestKeywordQuerySkipsShortTermsWithoutCalling(t *testing.T) {
	called := false
	store := newStoreWithServer(t, func(w http.ResponseWriter, _ *http.Request) {
		called = true
		_ = json.NewEncoder(w).Encode(map[string]any{})
	})

	chunks, err := store.KeywordQuery(context.Background(), []string{"is", "of"}, 4)
	if err != nil {
		t.Fatalf("KeywordQuery() error = %v", err)
	}
	if chunks != nil || called {
		t.Fatalf("short terms must short-circuit, called=%v", called)
	}
}

func TestServerErrorMapsToProviderUnavailable(t *testing.T) {
	store := newStoreWithServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := store.VectorSearch(context.Background(), []float32{0.1}, 3)
	if !domain.IsKind(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected provider unavailable, got %v", err)
	}
}
