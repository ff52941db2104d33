package retrieval

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/markocampo/campus-assistant/internal/core/domain"
	"github.com/markocampo/campus-assistant/internal/core/ports"
)

const (
	// coverageScore force-includes required sub-entities above every boosted
	// stage score, guaranteeing completeness for enumeration queries.
	coverageScore = 10.0

	// vectorScale maps cosine similarity (0..1) into a band below exact
	// identity matches from the structured stage.
	vectorScale = 2.0

	// keywordBand caps the fallback stage below both other stages.
	keywordBand = 0.9

	// recencyWindow bounds the last-update tie-break boost.
	recencyWindow = 180 * 24 * time.Hour

	maxMarkerBoosts = 2
)

// Engine runs the per-category retrieval strategies. All strategies share the
// same three-stage shape; the profile supplies the category-specific
// parameters. Stages are independently fault-tolerant: a failed stage is
// logged and skipped, and only a query where every stage failed produces a
// degraded empty outcome.
type Engine struct {
	rules     *RuleSet
	knowledge ports.KnowledgeStore
	schedule  ports.ScheduleStore
	embedder  ports.EmbeddingProvider
	logger    *slog.Logger
	telemetry Telemetry
	now       func() time.Time
}

func NewEngine(
	rules *RuleSet,
	knowledge ports.KnowledgeStore,
	schedule ports.ScheduleStore,
	embedder ports.EmbeddingProvider,
	logger *slog.Logger,
	telemetry Telemetry,
) *Engine {
	if telemetry == nil {
		telemetry = NopTelemetry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		rules:     rules,
		knowledge: knowledge,
		schedule:  schedule,
		embedder:  embedder,
		logger:    logger,
		telemetry: telemetry,
		now:       time.Now,
	}
}

// Dispatch runs the strategy registered for a category and returns the
// ranked (not yet truncated) result list plus a degraded flag. Every
// category maps to a profile; unknown ones fall back to general.
func (e *Engine) Dispatch(ctx context.Context, query string, category domain.Category) ([]domain.SearchResult, bool) {
	profile := e.rules.Profile(category)

	// Stages 1 and 2 only depend on the query text, never on each other's
	// output, so they run concurrently and land in fixed slots. Merging in
	// stage order after the join keeps the output independent of completion
	// order.
	var (
		wg       sync.WaitGroup
		slots    [2][]domain.SearchResult
		failures [3]bool
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		slots[0], failures[0] = e.runStage(ctx, profile, domain.SourceStructured, func(ctx context.Context) ([]domain.SearchResult, error) {
			return e.structuredStage(ctx, profile, query)
		})
	}()
	go func() {
		defer wg.Done()
		slots[1], failures[1] = e.runStage(ctx, profile, domain.SourceVector, func(ctx context.Context) ([]domain.SearchResult, error) {
			return e.vectorStage(ctx, profile, query)
		})
	}()
	wg.Wait()

	merged := mergeResults(slots[0], slots[1])

	keywordRan := false
	if len(merged) < profile.MinResults {
		keywordRan = true
		var fallback []domain.SearchResult
		fallback, failures[2] = e.runStage(ctx, profile, domain.SourceKeyword, func(ctx context.Context) ([]domain.SearchResult, error) {
			return e.keywordStage(ctx, profile, query)
		})
		merged = mergeResults(merged, fallback)
	}

	// Bail out before coverage lookups: with every stage down there is no
	// result set to complete, only more calls against a failing store.
	allFailed := failures[0] && failures[1] && (!keywordRan || failures[2])
	if allFailed {
		return nil, true
	}

	if profile.Required != nil {
		merged = e.ensureCoverage(ctx, profile, merged)
	}

	degraded := failures[0] || failures[1] || (keywordRan && failures[2])
	return rankResults(merged, profile.Order), degraded
}

func (e *Engine) runStage(
	ctx context.Context,
	profile Profile,
	stage string,
	fn func(context.Context) ([]domain.SearchResult, error),
) ([]domain.SearchResult, bool) {
	start := e.now()
	results, err := fn(ctx)
	if err != nil {
		e.telemetry.StageFailed(profile.Category, stage)
		e.logger.Warn("retrieval_stage_failed",
			"category", profile.Category,
			"stage", stage,
			"error", err,
		)
		return nil, true
	}
	e.telemetry.StageCompleted(profile.Category, stage, len(results), e.now().Sub(start))
	return results, false
}

func (e *Engine) structuredStage(ctx context.Context, profile Profile, query string) ([]domain.SearchResult, error) {
	terms := tokenize(query)

	if profile.Store == storeSchedule {
		events, err := e.schedule.FilteredQuery(ctx, domain.EventFilter{Terms: terms}, profile.StageLimit)
		if err != nil {
			return nil, err
		}
		return e.scoreEvents(profile, query, events, domain.SourceStructured, 0), nil
	}

	filter := domain.ChunkFilter{Terms: terms}
	if len(profile.Sections) > 0 {
		filter.Section = profile.Sections[0]
	}
	if len(profile.Types) == 1 {
		filter.Type = profile.Types[0]
	}

	chunks, err := e.knowledge.FilteredQuery(ctx, filter, profile.StageLimit)
	if err != nil {
		return nil, err
	}

	queryTokens := tokenSet(query)
	out := make([]domain.SearchResult, 0, len(chunks))
	for _, scored := range chunks {
		result := chunkResult(scored.Chunk, profile.Category, domain.SourceStructured)
		result.Score = scored.Relevance + e.boost(profile, scored.Chunk, queryTokens)
		out = append(out, result)
	}
	return out, nil
}

func (e *Engine) vectorStage(ctx context.Context, profile Profile, query string) ([]domain.SearchResult, error) {
	text := query
	if profile.Enrich != "" {
		text = query + " " + profile.Enrich
	}

	vector, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}

	if profile.Store == storeSchedule {
		events, err := e.schedule.VectorSearch(ctx, vector, profile.VectorTopK)
		if err != nil {
			return nil, err
		}
		return e.scoreEvents(profile, query, events, domain.SourceVector, vectorScale), nil
	}

	chunks, err := e.knowledge.VectorSearch(ctx, vector, profile.VectorTopK)
	if err != nil {
		return nil, err
	}

	out := make([]domain.SearchResult, 0, len(chunks))
	for _, scored := range chunks {
		if !e.plausibleMember(profile, scored.Chunk) {
			continue
		}
		result := chunkResult(scored.Chunk, profile.Category, domain.SourceVector)
		result.Score = scored.Relevance * vectorScale
		out = append(out, result)
	}
	return out, nil
}

func (e *Engine) keywordStage(ctx context.Context, profile Profile, query string) ([]domain.SearchResult, error) {
	terms := tokenize(query)

	if profile.Store == storeSchedule {
		events, err := e.schedule.FilteredQuery(ctx, domain.EventFilter{Terms: terms}, profile.StageLimit)
		if err != nil {
			return nil, err
		}
		out := e.scoreEvents(profile, query, events, domain.SourceKeyword, 0)
		for i := range out {
			out[i].Score = clampBand(out[i].Score, keywordBand)
		}
		return out, nil
	}

	chunks, err := e.knowledge.KeywordQuery(ctx, terms, profile.StageLimit)
	if err != nil {
		return nil, err
	}

	out := make([]domain.SearchResult, 0, len(chunks))
	for _, scored := range chunks {
		result := chunkResult(scored.Chunk, profile.Category, domain.SourceKeyword)
		result.Score = clampBand(scored.Relevance, keywordBand)
		out = append(out, result)
	}
	return out, nil
}

// ensureCoverage checks that every required sub-entity is represented and
// issues direct targeted lookups for the ones that are missing. Coverage
// lookups that fail are skipped; completeness is best effort once the store
// is degraded.
func (e *Engine) ensureCoverage(ctx context.Context, profile Profile, merged []domain.SearchResult) []domain.SearchResult {
	spec := profile.Required
	present := make(map[string]bool, len(spec.Values))
	for _, result := range merged {
		if value := result.Metadata[spec.Field]; value != "" {
			present[strings.ToLower(value)] = true
		}
	}

	for _, value := range spec.Values {
		if present[strings.ToLower(value)] {
			continue
		}
		filter := domain.ChunkFilter{
			MetadataEquals: map[string]string{spec.Field: value},
		}
		if len(profile.Sections) > 0 {
			filter.Section = profile.Sections[0]
		}
		chunks, err := e.knowledge.FilteredQuery(ctx, filter, 1)
		if err != nil {
			e.logger.Warn("coverage_lookup_failed",
				"category", profile.Category,
				"field", spec.Field,
				"value", value,
				"error", err,
			)
			continue
		}
		if len(chunks) == 0 {
			continue
		}
		result := chunkResult(chunks[0].Chunk, profile.Category, domain.SourceCoverage)
		result.Score = spec.Score
		merged = mergeResults(merged, []domain.SearchResult{result})
	}
	return merged
}

// boost adds the category-specific adjustments on top of the store's base
// relevance. Identity > entity > keyword > recency, additive and bounded.
func (e *Engine) boost(profile Profile, chunk domain.Chunk, queryTokens map[string]struct{}) float64 {
	var total float64

	if chunk.Category == string(profile.Category) ||
		(len(profile.Types) > 0 && containsString(profile.Types, chunk.Type)) {
		total += profile.Boosts.Identity
	}

	if entityMatch(chunk, queryTokens) {
		total += profile.Boosts.Entity
	}

	hits := countMarkerHits(chunk.Text+" "+strings.Join(chunk.Keywords, " "), profile.Markers)
	if hits > maxMarkerBoosts {
		hits = maxMarkerBoosts
	}
	total += float64(hits) * profile.Boosts.Keyword

	if e.isRecent(chunk.Metadata["updated_at"]) {
		total += profile.Boosts.Recency
	}
	return total
}

func (e *Engine) scoreEvents(profile Profile, query string, events []domain.ScoredEvent, source string, scale float64) []domain.SearchResult {
	queryTokens := tokenSet(query)
	out := make([]domain.SearchResult, 0, len(events))
	for _, scored := range events {
		result := eventResult(scored.ScheduleEvent, profile.Category, source)
		score := scored.Relevance
		if scale > 0 {
			score = scored.Relevance * scale
		} else {
			score += tokenOverlap(queryTokens, tokenSet(scored.Title)) * profile.Boosts.Keyword
			if e.now().Sub(scored.UpdatedAt) < recencyWindow {
				score += profile.Boosts.Recency
			}
		}
		result.Score = score
		out = append(out, result)
	}
	return out
}

// plausibleMember filters vector hits to chunks that plausibly belong to the
// target category, by section, type, category label, or domain markers in
// the text. General-purpose profiles accept everything.
func (e *Engine) plausibleMember(profile Profile, chunk domain.Chunk) bool {
	if len(profile.Sections) == 0 && len(profile.Types) == 0 {
		return true
	}
	if containsString(profile.Sections, chunk.Section) {
		return true
	}
	if containsString(profile.Types, chunk.Type) {
		return true
	}
	if chunk.Category == string(profile.Category) {
		return true
	}
	return containsAnyFold(chunk.Text, profile.Markers)
}

func (e *Engine) isRecent(raw string) bool {
	if raw == "" {
		return false
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		ts, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return false
		}
	}
	return e.now().Sub(ts) < recencyWindow
}

func chunkResult(chunk domain.Chunk, category domain.Category, source string) domain.SearchResult {
	return domain.SearchResult{
		ID:       chunk.ID,
		Section:  chunk.Section,
		Type:     chunk.Type,
		Text:     chunk.Text,
		Keywords: chunk.Keywords,
		Metadata: chunk.Metadata,
		Category: category,
		Source:   source,
	}
}

func eventResult(event domain.ScheduleEvent, category domain.Category, source string) domain.SearchResult {
	metadata := map[string]string{
		"date":     event.StartDate.Format("2006-01-02"),
		"semester": event.Semester,
	}
	if !event.EndDate.IsZero() {
		metadata["end_date"] = event.EndDate.Format("2006-01-02")
	}
	if event.EventTime != "" {
		metadata["time"] = event.EventTime
	}
	text := event.Title
	if event.Description != "" {
		text = event.Title + ". " + event.Description
	}
	return domain.SearchResult{
		ID:       event.ID,
		Section:  "schedule",
		Type:     "event",
		Text:     text,
		Metadata: metadata,
		Category: category,
		Source:   source,
	}
}

func entityMatch(chunk domain.Chunk, queryTokens map[string]struct{}) bool {
	for _, key := range []string{"acronym", "code", "name"} {
		value := chunk.Metadata[key]
		if value == "" {
			continue
		}
		for _, token := range tokenize(value) {
			if _, ok := queryTokens[token]; ok {
				return true
			}
		}
	}
	return false
}

func clampBand(score, band float64) float64 {
	if score < 0 {
		return 0
	}
	if score > band {
		return band
	}
	return score
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if strings.EqualFold(s, needle) {
			return true
		}
	}
	return false
}
