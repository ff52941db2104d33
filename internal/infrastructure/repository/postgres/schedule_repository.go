package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/markocampo/campus-assistant/internal/core/domain"
)

// ScheduleRepository serves the structured half of the schedule store. The
// schedule_events table is populated by the external ingestion process; only
// reads happen here.
type ScheduleRepository struct {
	db *sql.DB
}

func NewScheduleRepository(db *sql.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

const eventColumns = "id, title, description, start_date, end_date, event_time, category, semester, updated_at"

func (r *ScheduleRepository) FilteredQuery(ctx context.Context, filter domain.EventFilter, limit int) ([]domain.ScoredEvent, error) {
	if limit <= 0 {
		limit = 16
	}

	var (
		clauses []string
		args    []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Category != "" {
		clauses = append(clauses, "category = "+arg(filter.Category))
	}
	if filter.Semester != "" {
		clauses = append(clauses, "semester = "+arg(filter.Semester))
	}
	if filter.From != nil {
		clauses = append(clauses, "end_date >= "+arg(*filter.From))
	}
	if filter.To != nil {
		clauses = append(clauses, "start_date <= "+arg(*filter.To))
	}
	if termClause := buildTermClause(filter.Terms, arg); termClause != "" {
		clauses = append(clauses, termClause)
	}

	query := "SELECT " + eventColumns + "\nFROM schedule_events\n"
	if len(clauses) > 0 {
		query += "WHERE " + strings.Join(clauses, " AND ") + "\n"
	}
	query += "ORDER BY start_date ASC, id ASC\nLIMIT " + arg(limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.WrapError(domain.ErrProviderUnavailable, "schedule filtered query", err)
	}
	defer rows.Close()

	out := make([]domain.ScoredEvent, 0, limit)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.ScoredEvent{
			ScheduleEvent: event,
			Relevance:     eventRelevance(filter.Terms, event),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schedule events: %w", err)
	}
	return out, nil
}

func buildTermClause(terms []string, arg func(any) string) string {
	parts := make([]string, 0, len(terms))
	for _, term := range terms {
		if len(term) < 3 {
			continue
		}
		placeholder := arg("%" + term + "%")
		parts = append(parts, "(title ILIKE "+placeholder+" OR description ILIKE "+placeholder+")")
	}
	if len(parts) == 0 {
		return ""
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

// eventRelevance is the fraction of query terms found in the event title or
// description, the base number strategies boost from.
func eventRelevance(terms []string, event domain.ScheduleEvent) float64 {
	if len(terms) == 0 {
		return 0
	}
	haystack := strings.ToLower(event.Title + " " + event.Description)
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

type eventScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row eventScanner) (domain.ScheduleEvent, error) {
	var (
		event     domain.ScheduleEvent
		eventTime sql.NullString
		endDate   sql.NullTime
	)
	err := row.Scan(
		&event.ID,
		&event.Title,
		&event.Description,
		&event.StartDate,
		&endDate,
		&eventTime,
		&event.Category,
		&event.Semester,
		&event.UpdatedAt,
	)
	if err != nil {
		return domain.ScheduleEvent{}, fmt.Errorf("scan schedule event: %w", err)
	}
	if endDate.Valid {
		event.EndDate = endDate.Time
	}
	if eventTime.Valid {
		event.EventTime = eventTime.String
	}
	return event, nil
}
