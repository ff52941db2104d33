package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/markocampo/campus-assistant/internal/core/domain"
	"github.com/markocampo/campus-assistant/internal/core/ports"
)

const (
	defaultMaxSections = 6
	defaultMaxResults  = 10
	maxQueryLength     = 512
)

// Service orchestrates one search: validate, typo-correct, classify,
// dispatch the category strategy, and truncate. It is safe for concurrent
// use; the only shared state is the read-only rule set and the injected
// collaborators.
type Service struct {
	corrector  ports.TypoCorrector
	classifier *Classifier
	engine     *Engine
	logger     *slog.Logger
	telemetry  Telemetry
	timeout    time.Duration
	now        func() time.Time
}

func NewService(
	corrector ports.TypoCorrector,
	classifier *Classifier,
	engine *Engine,
	logger *slog.Logger,
	telemetry Telemetry,
	timeout time.Duration,
) *Service {
	if telemetry == nil {
		telemetry = NopTelemetry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Service{
		corrector:  corrector,
		classifier: classifier,
		engine:     engine,
		logger:     logger,
		telemetry:  telemetry,
		timeout:    timeout,
		now:        time.Now,
	}
}

func (s *Service) Search(ctx context.Context, query string, opts domain.SearchOptions) (*domain.SearchOutcome, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, domain.WrapError(domain.ErrInvalidQuery, "search", fmt.Errorf("query is empty"))
	}
	if len(trimmed) > maxQueryLength {
		return nil, domain.WrapError(domain.ErrInvalidQuery, "search", fmt.Errorf("query exceeds %d characters", maxQueryLength))
	}

	corrected := trimmed
	hadCorrections := false
	if s.corrector != nil {
		corrected, hadCorrections = s.corrector.Correct(trimmed)
	}

	category := s.classifier.Classify(corrected)
	if opts.QueryType != nil {
		category = *opts.QueryType
	}

	start := s.now()
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	results, degraded := s.engine.Dispatch(ctx, corrected, category)

	// A category with no matching chunks is not a failure: fall back to the
	// general strategy so callers still get generic evidence.
	if len(results) == 0 && !degraded && category != domain.CategoryGeneral {
		results, degraded = s.engine.Dispatch(ctx, corrected, domain.CategoryGeneral)
	}

	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	maxSections := opts.MaxSections
	if maxSections <= 0 {
		maxSections = defaultMaxSections
	}
	results = assembleResults(results, maxResults)
	results = assembleResults(results, maxSections)

	elapsed := s.now().Sub(start)
	s.telemetry.SearchCompleted(category, len(results), degraded, elapsed)
	s.logger.Info("search_completed",
		"query_prefix", queryPrefix(corrected),
		"category", category,
		"corrected", hadCorrections,
		"results", len(results),
		"degraded", degraded,
		"duration_ms", float64(elapsed.Microseconds())/1000.0,
	)

	outcome := &domain.SearchOutcome{
		Results:        results,
		Category:       category,
		HadCorrections: hadCorrections,
		Degraded:       degraded,
	}
	if hadCorrections {
		outcome.CorrectedQuery = corrected
	}
	return outcome, nil
}

// queryPrefix bounds what ends up in logs; full query text stays out of the
// telemetry channel. The cut backs up to a rune boundary so the logged
// prefix is always valid UTF-8.
func queryPrefix(q string) string {
	const limit = 48
	if len(q) <= limit {
		return q
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(q[cut]) {
		cut--
	}
	return q[:cut]
}
