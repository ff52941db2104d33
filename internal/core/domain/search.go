package domain

// Stage source tags recorded on each result for observability.
const (
	SourceStructured = "structured"
	SourceVector     = "vector"
	SourceKeyword    = "keyword"
	SourceCoverage   = "coverage"
)

// SearchResult wraps a chunk or schedule event reference plus its per-query
// score. Scores are recomputed on every query and never persisted.
type SearchResult struct {
	ID       string            `json:"id"`
	Section  string            `json:"section"`
	Type     string            `json:"type"`
	Text     string            `json:"text"`
	Keywords []string          `json:"keywords,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Score    float64           `json:"score"`
	Category Category          `json:"category"`
	Source   string            `json:"source"`
}

// SearchOptions are caller-supplied bounds for a single search.
type SearchOptions struct {
	MaxResults  int
	MaxSections int
	// QueryType, when set, skips classification and forces a strategy.
	QueryType *Category
}

// SearchOutcome is the full result of one search. An empty Results slice with
// Degraded=true means every retrieval stage failed; that is a legitimate
// outcome, not an error.
type SearchOutcome struct {
	Results        []SearchResult `json:"results"`
	Category       Category       `json:"category"`
	CorrectedQuery string         `json:"corrected_query,omitempty"`
	HadCorrections bool           `json:"had_corrections"`
	Degraded       bool           `json:"degraded"`
}
