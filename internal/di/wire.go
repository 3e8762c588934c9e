//go:build wireinject
// +build wireinject

package di

import (
	"SignalDeck/pkg/config"
	"SignalDeck/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,
		ProvideClock,

		// Infrastructure clients
		ProvideCacheService,
		ProvideKafkaProducer,
		ProvideClickHouseClient,

		// Repositories
		ProvideStateStore,
		ProvideFeedSource,
		ProvideDispatcher,
		ProvideEventPublisher,
		ProvideHistoryArchive,

		// Use cases
		ProvideLifecycleEngine,
		ProvideSignalStore,
		ProvideCooldownGate,
		ProvideEventPipeline,
		ProvideStreamHub,
		ProvideScheduler,
		ProvideFeedPoller,

		// HTTP
		ProvideDashboardHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
