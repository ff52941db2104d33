package qdrant

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/markocampo/campus-assistant/internal/core/domain"
)

// KnowledgeStore reads the chunk collection. Point ids are opaque; the
// chunk identity lives in the chunk_id payload field because ingestion ids
// are arbitrary strings Qdrant would reject as point ids.
type KnowledgeStore struct {
	client     *Client
	collection string
}

func NewKnowledgeStore(client *Client, collection string) *KnowledgeStore {
	return &KnowledgeStore{client: client, collection: collection}
}

type searchResponse struct {
	Result []struct {
		Score   float64        `json:"score"`
		Payload map[string]any `json:"payload"`
	} `json:"result"`
}

type scrollResponse struct {
	Result struct {
		Points []struct {
			Payload map[string]any `json:"payload"`
		} `json:"points"`
	} `json:"result"`
}

func (s *KnowledgeStore) VectorSearch(ctx context.Context, vector []float32, k int) ([]domain.ScoredChunk, error) {
	reqBody := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}

	var resp searchResponse
	path := fmt.Sprintf("/collections/%s/points/search", s.collection)
	if err := s.client.postJSON(ctx, "knowledge_vector_search", path, reqBody, &resp); err != nil {
		return nil, err
	}

	out := make([]domain.ScoredChunk, 0, len(resp.Result))
	for _, r := range resp.Result {
		out = append(out, domain.ScoredChunk{
			Chunk:     payloadChunk(r.Payload),
			Relevance: r.Score,
		})
	}
	return out, nil
}

// FilteredQuery scrolls the collection with server-side payload filters and
// attaches a base relevance computed from term overlap against the chunk
// text and keywords.
func (s *KnowledgeStore) FilteredQuery(ctx context.Context, filter domain.ChunkFilter, limit int) ([]domain.ScoredChunk, error) {
	must := make([]map[string]any, 0, 4)
	if filter.Section != "" {
		must = append(must, matchClause("section", filter.Section))
	}
	if filter.Type != "" {
		must = append(must, matchClause("type", filter.Type))
	}
	if filter.Category != "" {
		must = append(must, matchClause("category", filter.Category))
	}
	for key, value := range filter.MetadataEquals {
		must = append(must, matchClause("metadata."+key, value))
	}

	reqBody := map[string]any{
		"limit":        scrollLimit(limit),
		"with_payload": true,
	}
	if len(must) > 0 {
		reqBody["filter"] = map[string]any{"must": must}
	}

	var resp scrollResponse
	path := fmt.Sprintf("/collections/%s/points/scroll", s.collection)
	if err := s.client.postJSON(ctx, "knowledge_filtered_query", path, reqBody, &resp); err != nil {
		return nil, err
	}

	out := make([]domain.ScoredChunk, 0, len(resp.Result.Points))
	for _, point := range resp.Result.Points {
		chunk := payloadChunk(point.Payload)
		out = append(out, domain.ScoredChunk{
			Chunk:     chunk,
			Relevance: termRelevance(filter.Terms, chunk),
		})
	}
	return capResults(out, limit), nil
}

// KeywordQuery is the low-confidence fallback: full-text match on any term.
func (s *KnowledgeStore) KeywordQuery(ctx context.Context, terms []string, limit int) ([]domain.ScoredChunk, error) {
	should := make([]map[string]any, 0, len(terms))
	for _, term := range terms {
		if len(term) < 3 {
			continue
		}
		should = append(should, map[string]any{
			"key":   "text",
			"match": map[string]any{"text": term},
		})
	}
	if len(should) == 0 {
		return nil, nil
	}

	reqBody := map[string]any{
		"limit":        scrollLimit(limit),
		"with_payload": true,
		"filter":       map[string]any{"should": should},
	}

	var resp scrollResponse
	path := fmt.Sprintf("/collections/%s/points/scroll", s.collection)
	if err := s.client.postJSON(ctx, "knowledge_keyword_query", path, reqBody, &resp); err != nil {
		return nil, err
	}

	out := make([]domain.ScoredChunk, 0, len(resp.Result.Points))
	for _, point := range resp.Result.Points {
		chunk := payloadChunk(point.Payload)
		out = append(out, domain.ScoredChunk{
			Chunk:     chunk,
			Relevance: termRelevance(terms, chunk),
		})
	}
	return capResults(out, limit), nil
}

func payloadChunk(payload map[string]any) domain.Chunk {
	return domain.Chunk{
		ID:       getString(payload, "chunk_id"),
		Section:  getString(payload, "section"),
		Type:     getString(payload, "type"),
		Category: getString(payload, "category"),
		Text:     getString(payload, "text"),
		Keywords: getStringSlice(payload, "keywords"),
		Metadata: getStringMap(payload, "metadata"),
	}
}

func matchClause(key, value string) map[string]any {
	return map[string]any{
		"key":   key,
		"match": map[string]any{"value": value},
	}
}

// termRelevance is the fraction of query terms present in the chunk text or
// keywords. It is the base number strategies add boosts to.
func termRelevance(terms []string, chunk domain.Chunk) float64 {
	if len(terms) == 0 {
		return 0
	}
	haystack := strings.ToLower(chunk.Text + " " + strings.Join(chunk.Keywords, " "))
	matches := 0
	for _, term := range terms {
		if term == "" {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(term)) {
			matches++
		}
	}
	return float64(matches) / float64(len(terms))
}

// scrollLimit over-fetches a little so capResults can trim deterministically
// after relevance is attached.
func scrollLimit(limit int) int {
	if limit <= 0 {
		return 16
	}
	return limit * 2
}

func capResults(chunks []domain.ScoredChunk, limit int) []domain.ScoredChunk {
	sort.SliceStable(chunks, func(i, j int) bool {
		if chunks[i].Relevance != chunks[j].Relevance {
			return chunks[i].Relevance > chunks[j].Relevance
		}
		return chunks[i].ID < chunks[j].ID
	})
	if limit <= 0 || len(chunks) <= limit {
		return chunks
	}
	return chunks[:limit]
}
