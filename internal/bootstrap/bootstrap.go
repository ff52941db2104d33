package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/markocampo/campus-assistant/internal/config"
	"github.com/markocampo/campus-assistant/internal/core/ports"
	"github.com/markocampo/campus-assistant/internal/core/retrieval"
	"github.com/markocampo/campus-assistant/internal/core/retrieval/spell"
	"github.com/markocampo/campus-assistant/internal/infrastructure/cache"
	"github.com/markocampo/campus-assistant/internal/infrastructure/embedding/ollama"
	natsqueue "github.com/markocampo/campus-assistant/internal/infrastructure/queue/nats"
	"github.com/markocampo/campus-assistant/internal/infrastructure/repository/postgres"
	"github.com/markocampo/campus-assistant/internal/infrastructure/resilience"
	"github.com/markocampo/campus-assistant/internal/infrastructure/vector/qdrant"
	"github.com/markocampo/campus-assistant/internal/observability/metrics"
)

const serviceName = "campus-assistant"

type App struct {
	Config      config.Config
	Search      ports.SearchService
	HTTPMetrics *metrics.HTTPMetrics

	closeFn func()
}

// scheduleStore composes the structured (Postgres) and vector (Qdrant)
// halves of the schedule store behind one port.
type scheduleStore struct {
	*postgres.ScheduleRepository
	*qdrant.ScheduleIndex
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	httpMetrics := metrics.NewHTTPMetrics(serviceName)
	searchMetrics := metrics.NewSearchMetrics(httpMetrics.Registry(), serviceName)

	executor := resilience.NewExecutor(resilience.DefaultConfig(), resilience.RetrievalClassifier, logger)

	qdrantClient := qdrant.NewClient(cfg.QdrantURL, qdrant.Options{Executor: executor})
	knowledgeStore := qdrant.NewKnowledgeStore(qdrantClient, cfg.QdrantChunkCollection)
	schedules := &scheduleStore{
		ScheduleRepository: postgres.NewScheduleRepository(db),
		ScheduleIndex:      qdrant.NewScheduleIndex(qdrantClient, cfg.QdrantScheduleCollection),
	}

	embedCache, err := cache.NewEmbeddingCache(cfg.EmbedCacheMaxBytes)
	if err != nil {
		return nil, fmt.Errorf("init embedding cache: %w", err)
	}
	embedder := cache.NewCachedEmbedder(
		ollama.NewEmbedder(cfg.OllamaURL, cfg.OllamaEmbedModel, ollama.Options{Executor: executor}),
		embedCache,
		searchMetrics.EmbedCacheHit,
		searchMetrics.EmbedCacheMiss,
	)

	rules, err := retrieval.DefaultRuleSet()
	if err != nil {
		return nil, fmt.Errorf("load retrieval rules: %w", err)
	}
	corrector := spell.NewCorrector(rules.Vocabulary())
	classifier := retrieval.NewClassifier(rules.Rules)
	engine := retrieval.NewEngine(rules, knowledgeStore, schedules, embedder, logger, searchMetrics)
	search := retrieval.NewService(corrector, classifier, engine, logger, searchMetrics, cfg.SearchTimeout)

	subscriber, err := natsqueue.NewSubscriber(cfg.NATSURL, cfg.NATSRefreshSubject, natsqueue.Options{Logger: logger})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init refresh subscriber: %w", err)
	}
	refreshHandler := func(_ context.Context, event natsqueue.RefreshEvent) error {
		embedCache.Clear()
		if len(event.Vocabulary) > 0 {
			corrector.ReloadVocabulary(append(rules.Vocabulary(), event.Vocabulary...))
		}
		logger.Info("knowledge_base_refreshed", "snapshot", event.Snapshot, "vocabulary_terms", len(event.Vocabulary))
		return nil
	}
	if err := subscriber.SubscribeRefreshed(ctx, refreshHandler); err != nil {
		subscriber.Close()
		_ = db.Close()
		return nil, fmt.Errorf("subscribe refresh events: %w", err)
	}

	return &App{
		Config:      cfg,
		Search:      search,
		HTTPMetrics: httpMetrics,
		closeFn: func() {
			subscriber.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
