package qdrant

import (
	"context"
	"fmt"
	"time"

	"github.com/markocampo/campus-assistant/internal/core/domain"
)

// ScheduleIndex serves the vector half of the schedule store; structured
// schedule queries go to Postgres.
type ScheduleIndex struct {
	client     *Client
	collection string
}

func NewScheduleIndex(client *Client, collection string) *ScheduleIndex {
	return &ScheduleIndex{client: client, collection: collection}
}

func (s *ScheduleIndex) VectorSearch(ctx context.Context, vector []float32, k int) ([]domain.ScoredEvent, error) {
	reqBody := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}

	var resp searchResponse
	path := fmt.Sprintf("/collections/%s/points/search", s.collection)
	if err := s.client.postJSON(ctx, "schedule_vector_search", path, reqBody, &resp); err != nil {
		return nil, err
	}

	out := make([]domain.ScoredEvent, 0, len(resp.Result))
	for _, r := range resp.Result {
		out = append(out, domain.ScoredEvent{
			ScheduleEvent: payloadEvent(r.Payload),
			Relevance:     r.Score,
		})
	}
	return out, nil
}

func payloadEvent(payload map[string]any) domain.ScheduleEvent {
	return domain.ScheduleEvent{
		ID:          getString(payload, "event_id"),
		Title:       getString(payload, "title"),
		Description: getString(payload, "description"),
		StartDate:   parseDate(getString(payload, "start_date")),
		EndDate:     parseDate(getString(payload, "end_date")),
		EventTime:   getString(payload, "event_time"),
		Category:    getString(payload, "category"),
		Semester:    getString(payload, "semester"),
		UpdatedAt:   parseDate(getString(payload, "updated_at")),
	}
}

func parseDate(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts
	}
	if ts, err := time.Parse("2006-01-02", raw); err == nil {
		return ts
	}
	return time.Time{}
}
