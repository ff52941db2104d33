package ports

import (
	"context"

	"github.com/markocampo/campus-assistant/internal/core/domain"
)

// EmbeddingProvider converts text into a fixed-dimension vector. It fails
// with domain.ErrProviderUnavailable when the underlying model is not ready.
type EmbeddingProvider interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// KnowledgeStore is the read-only store of knowledge chunks. FilteredQuery
// returns candidates with a server-computed base relevance; the retrieval
// strategies add boosts on top of that number.
type KnowledgeStore interface {
	FilteredQuery(ctx context.Context, filter domain.ChunkFilter, limit int) ([]domain.ScoredChunk, error)
	VectorSearch(ctx context.Context, vector []float32, k int) ([]domain.ScoredChunk, error)
	KeywordQuery(ctx context.Context, terms []string, limit int) ([]domain.ScoredChunk, error)
}

// ScheduleStore is the read-only store of schedule events.
type ScheduleStore interface {
	FilteredQuery(ctx context.Context, filter domain.EventFilter, limit int) ([]domain.ScoredEvent, error)
	VectorSearch(ctx context.Context, vector []float32, k int) ([]domain.ScoredEvent, error)
}

// TypoCorrector normalizes a raw query against the known vocabulary.
type TypoCorrector interface {
	Correct(text string) (corrected string, hadCorrections bool)
}

// VocabularyReloader is implemented by correctors whose vocabulary can be
// swapped when the knowledge base is refreshed.
type VocabularyReloader interface {
	ReloadVocabulary(words []string)
}

// EmbeddingCache memoizes query vectors. Implementations must be bounded.
type EmbeddingCache interface {
	Get(text string) ([]float32, bool)
	Set(text string, vector []float32)
	Clear()
}
