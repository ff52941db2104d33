package domain

import "time"

// Chunk is a unit of retrievable knowledge. Chunks are created and replaced
// in bulk by the external ingestion process; the retrieval core only reads
// them and must never mutate one mid-query.
type Chunk struct {
	ID       string            `json:"id"`
	Section  string            `json:"section"`
	Type     string            `json:"type"`
	Category string            `json:"category"`
	Text     string            `json:"text"`
	Keywords []string          `json:"keywords,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ScoredChunk is a chunk plus the store-computed base relevance for the
// query that produced it.
type ScoredChunk struct {
	Chunk
	Relevance float64 `json:"relevance"`
}

// ScheduleEvent is a calendar or announcement item. Same read-only contract
// as Chunk.
type ScheduleEvent struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	EventTime   string    `json:"event_time,omitempty"`
	Category    string    `json:"category"`
	Semester    string    `json:"semester"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ScoredEvent struct {
	ScheduleEvent
	Relevance float64 `json:"relevance"`
}

// ChunkFilter is the predicate shape for structured knowledge queries.
// Zero-valued fields are ignored by the store.
type ChunkFilter struct {
	Section        string
	Type           string
	Category       string
	MetadataEquals map[string]string
	Terms          []string
}

// EventFilter is the predicate shape for structured schedule queries.
type EventFilter struct {
	Category string
	Semester string
	From     *time.Time
	To       *time.Time
	Terms    []string
}
