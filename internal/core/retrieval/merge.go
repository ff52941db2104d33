package retrieval

import "github.com/markocampo/campus-assistant/internal/core/domain"

// mergeResults combines partial result sets keyed by item identity. On an id
// collision the entry with the higher score wins; the output never carries
// two entries with the same id. Input order is preserved for first
// occurrences so the merge stays deterministic across runs.
func mergeResults(partials ...[]domain.SearchResult) []domain.SearchResult {
	total := 0
	for _, partial := range partials {
		total += len(partial)
	}

	out := make([]domain.SearchResult, 0, total)
	index := make(map[string]int, total)
	for _, partial := range partials {
		for _, result := range partial {
			if result.ID == "" {
				continue
			}
			at, seen := index[result.ID]
			if !seen {
				index[result.ID] = len(out)
				out = append(out, result)
				continue
			}
			if result.Score > out[at].Score {
				out[at] = result
			}
		}
	}
	return out
}
