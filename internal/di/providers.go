package di

import (
	"context"
	"fmt"
	"time"

	"SignalDeck/internal/domain/models"
	"SignalDeck/internal/domain/repository"
	"SignalDeck/internal/handler/api"
	mid "SignalDeck/internal/middleware"
	internalrepo "SignalDeck/internal/repository"
	svccache "SignalDeck/internal/service/cache"
	"SignalDeck/internal/service/dispatch"
	"SignalDeck/internal/service/feed"
	"SignalDeck/internal/usecase"
	pkgcache "SignalDeck/pkg/cache"
	pkgch "SignalDeck/pkg/clickhouse"
	"SignalDeck/pkg/config"
	xhttp "SignalDeck/pkg/http"
	pkgkafka "SignalDeck/pkg/kafka"
	applogger "SignalDeck/pkg/logger"
	"SignalDeck/pkg/metrics"
	"SignalDeck/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClock supplies the wall clock.
func ProvideClock() usecase.Clock {
	return usecase.SystemClock{}
}

// ProvideCacheService builds the key-value backend for durable state. Redis
// gets a small in-process L1 in front of it.
func ProvideCacheService(cfg *config.Config) (pkgcache.Service, error) {
	if cfg.State.Backend == "memory" {
		return pkgcache.NewMemoryCache(), nil
	}
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(cfg.State.Redis.Host),
		pkgcache.WithRedisPort(cfg.State.Redis.Port),
		pkgcache.WithRedisPassword(cfg.State.Redis.Password),
		pkgcache.WithRedisDB(cfg.State.Redis.DB),
		pkgcache.WithRedisPrefix(cfg.State.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return pkgcache.NewLayeredCache(rc), nil
}

// ProvideStateStore creates the durable state store.
func ProvideStateStore(cache pkgcache.Service, logger *applogger.Logger) repository.StateStore {
	return internalrepo.NewCacheStateStore(cache, logger)
}

// ProvideFeedSource creates the feed client with a last-good fallback cache.
func ProvideFeedSource(cfg *config.Config, logger *applogger.Logger) repository.FeedSource {
	httpc := xhttp.NewClient(xhttp.WithTimeout(cfg.Feed.Timeout))
	return feed.New(cfg.Feed.URL, httpc, svccache.NewTTLCache(), cfg.Feed.StaleTTL, logger)
}

// ProvideDispatcher creates the generation dispatch client.
func ProvideDispatcher(cfg *config.Config, logger *applogger.Logger) repository.Dispatcher {
	httpc := xhttp.NewClient(xhttp.WithTimeout(cfg.Dispatch.Timeout))
	return dispatch.New(dispatch.Config{
		URL:           cfg.Dispatch.URL,
		Token:         cfg.Dispatch.Token,
		Ref:           cfg.Dispatch.Ref,
		SuccessStatus: cfg.Dispatch.SuccessStatus,
	}, httpc, logger)
}

// ProvideKafkaProducer creates the shared producer, or nil when eventing is
// disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Events.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Events.Brokers),
		pkgkafka.WithCompression(cfg.Events.Compression),
		pkgkafka.WithRequiredAcks(cfg.Events.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Events.Producer.BatchSize),
		pkgkafka.WithBatchTimeout(cfg.Events.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Events.Producer.WriteTimeout, cfg.Events.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Events.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Events.Producer.Async),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideEventPublisher creates the lifecycle event publisher.
func ProvideEventPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.EventPublisher {
	if producer == nil {
		return internalrepo.NoopEventPublisher{}
	}
	return internalrepo.NewKafkaEventPublisher(producer, cfg.Events.Topic)
}

// ProvideEventPipeline creates the buffered emit-side pipeline.
func ProvideEventPipeline(pub repository.EventPublisher, m repository.Metrics, cfg *config.Config) *mid.EventPipeline {
	return mid.NewEventPipeline(pub, m, mid.WithBufferSize(cfg.Events.BufferSize))
}

// ProvideClickHouseClient creates the history database client, or nil when
// archival is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.History.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.History.ClickHouse.Host),
		pkgch.WithPort(cfg.History.ClickHouse.Port),
		pkgch.WithDatabase(cfg.History.ClickHouse.Database),
		pkgch.WithCredentials(cfg.History.ClickHouse.User, cfg.History.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithTimeouts(cfg.History.ClickHouse.DialTimeout, cfg.History.ClickHouse.ReadTimeout, cfg.History.ClickHouse.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideHistoryArchive creates the answered-signal archive.
func ProvideHistoryArchive(client *pkgch.Client, cfg *config.Config, logger *applogger.Logger) repository.HistoryArchive {
	if client == nil {
		return internalrepo.NoopHistoryArchive{}
	}
	table := cfg.History.Table
	if table == "" {
		table = "answered_signals"
	}
	return internalrepo.NewCHHistoryArchive(client, table, logger)
}

// ProvideLifecycleEngine creates the classification engine in the configured
// timezone.
func ProvideLifecycleEngine(cfg *config.Config) (*usecase.LifecycleEngine, error) {
	loc, err := time.LoadLocation(cfg.Signals.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", cfg.Signals.Timezone, err)
	}
	return usecase.NewLifecycleEngine(loc, cfg.Signals.RolloverThreshold), nil
}

// ProvideSignalStore creates the batch store with the filtering pipeline.
func ProvideSignalStore(
	engine *usecase.LifecycleEngine,
	state repository.StateStore,
	m repository.Metrics,
	logger *applogger.Logger,
	cfg *config.Config,
) *usecase.SignalStore {
	return usecase.NewSignalStore(engine, state, m, logger, usecase.StoreConfig{
		MinConfidence:      cfg.Signals.MinConfidence,
		MaxDisplay:         cfg.Signals.MaxDisplay,
		MaxDurationMinutes: cfg.Signals.MaxDurationMinutes,
		GraceWindow:        cfg.Signals.GraceWindow,
	})
}

// ProvideStreamHub creates the WebSocket presentation hub.
func ProvideStreamHub(logger *applogger.Logger) *api.StreamHub {
	return api.NewStreamHub(logger)
}

// ProvideScheduler creates the tick loop and binds the hub's epoch source.
func ProvideScheduler(
	clock usecase.Clock,
	store *usecase.SignalStore,
	hub *api.StreamHub,
	pipeline *mid.EventPipeline,
	m repository.Metrics,
	logger *applogger.Logger,
	cfg *config.Config,
) *usecase.Scheduler {
	sched := usecase.NewScheduler(clock, store, hub, pipeline, m, logger, cfg.Signals.TickInterval)
	hub.SetEpochSource(sched)
	return sched
}

// ProvideFeedPoller creates the feed refresh loop.
func ProvideFeedPoller(
	source repository.FeedSource,
	store *usecase.SignalStore,
	sched *usecase.Scheduler,
	pipeline *mid.EventPipeline,
	m repository.Metrics,
	logger *applogger.Logger,
	cfg *config.Config,
) *usecase.FeedPoller {
	return usecase.NewFeedPoller(source, store, sched, pipeline, m, logger, cfg.Feed.PollInterval, cfg.Feed.Timeout)
}

// ProvideCooldownGate creates the generation cooldown gate.
func ProvideCooldownGate(state repository.StateStore, cfg *config.Config, logger *applogger.Logger) *usecase.CooldownGate {
	return usecase.NewCooldownGate(state, cfg.Cooldown.Duration, logger)
}

// ProvideDashboardHandler assembles the HTTP API.
func ProvideDashboardHandler(
	logger *applogger.Logger,
	clock usecase.Clock,
	store *usecase.SignalStore,
	gate *usecase.CooldownGate,
	sched *usecase.Scheduler,
	state repository.StateStore,
	dispatcher repository.Dispatcher,
	archive repository.HistoryArchive,
	pipeline *mid.EventPipeline,
	m repository.Metrics,
	hub *api.StreamHub,
) *api.DashboardHandler {
	h := api.NewDashboardHandler(logger, clock, store, gate, sched, state, dispatcher, archive, pipeline, m)
	h.SetStream(hub)
	return h
}

// ProvideApp assembles the application and the auto-skip completion hook.
func ProvideApp(
	cfg *config.Config,
	logger *applogger.Logger,
	poller *usecase.FeedPoller,
	sched *usecase.Scheduler,
	pipeline *mid.EventPipeline,
	eventPub repository.EventPublisher,
	archive repository.HistoryArchive,
	handler *api.DashboardHandler,
	hub *api.StreamHub,
	store *usecase.SignalStore,
	producer *pkgkafka.Producer,
) *server.App {
	store.SetOnAnswered(func(row models.AnsweredSignal) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := archive.Archive(ctx, row); err != nil {
			logger.Warn("auto-skip archive failed",
				applogger.String("signal_id", row.SignalID),
				applogger.Error(err),
			)
		}
		pipeline.Emit(models.Event{
			Type:      models.EventFeedbackRecorded,
			SignalID:  row.SignalID,
			Verdict:   row.Verdict,
			Language:  row.Language,
			Timestamp: row.AnsweredAt,
		})
	})
	app := server.New(cfg, logger, poller, sched, pipeline, eventPub, archive, handler)
	app.SetCloser(hub.Close)

	if producer != nil {
		// Aggregated error logs ship on their own topic next to the
		// lifecycle events.
		logger.AddCollector(&applogger.CollectionConfig{
			TimeInterval: 30 * time.Second,
			Topic:        cfg.Events.Topic + ".errors",
			Publisher:    producer,
		})
	}
	return app
}
