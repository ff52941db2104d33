package ports

import (
	"context"

	"github.com/markocampo/campus-assistant/internal/core/domain"
)

// SearchService is the inbound contract for hybrid knowledge retrieval.
type SearchService interface {
	Search(ctx context.Context, query string, opts domain.SearchOptions) (*domain.SearchOutcome, error)
}
