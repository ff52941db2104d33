package retrieval

import (
	"sort"
	"strconv"

	"github.com/markocampo/campus-assistant/internal/core/domain"
)

// rankResults orders a merged result set. Categories with a structural
// ordering (hymn verses, timelines) sort by it first; everything else sorts
// by score descending. Ties always fall back to id ascending so repeated
// queries against an unchanged snapshot produce identical output.
func rankResults(results []domain.SearchResult, order OrderSpec) []domain.SearchResult {
	out := make([]domain.SearchResult, len(results))
	copy(out, results)

	switch order.Kind {
	case orderSequence:
		position := make(map[string]int, len(order.Sequence))
		for i, value := range order.Sequence {
			position[value] = i
		}
		sort.SliceStable(out, func(i, j int) bool {
			pi, iKnown := position[out[i].Metadata[order.Field]]
			pj, jKnown := position[out[j].Metadata[order.Field]]
			if iKnown != jKnown {
				return iKnown
			}
			if iKnown && pi != pj {
				return pi < pj
			}
			return lessByScoreThenID(out[i], out[j])
		})
	case orderChronological:
		descending := order.Direction == "desc"
		sort.SliceStable(out, func(i, j int) bool {
			vi, iOK := chronoKey(out[i], order.Field)
			vj, jOK := chronoKey(out[j], order.Field)
			if iOK != jOK {
				return iOK
			}
			if iOK && vi != vj {
				if descending {
					return vi > vj
				}
				return vi < vj
			}
			return lessByScoreThenID(out[i], out[j])
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			return lessByScoreThenID(out[i], out[j])
		})
	}
	return out
}

func lessByScoreThenID(a, b domain.SearchResult) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.ID < b.ID
}

// chronoKey reads the ordering field as a sortable string. Numeric values
// (years) are zero-padded so "999" sorts before "1998"; ISO dates compare
// correctly as-is.
func chronoKey(result domain.SearchResult, field string) (string, bool) {
	raw := result.Metadata[field]
	if raw == "" {
		return "", false
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return padNumeric(n), true
	}
	return raw, true
}

func padNumeric(n int) string {
	s := strconv.Itoa(n)
	for len(s) < 8 {
		s = "0" + s
	}
	return s
}

// assembleResults truncates the ranked list to the caller's bound. It never
// re-sorts.
func assembleResults(ranked []domain.SearchResult, maxSections int) []domain.SearchResult {
	if maxSections <= 0 || len(ranked) <= maxSections {
		return ranked
	}
	return ranked[:maxSections]
}
