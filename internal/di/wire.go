//go:build wireinject
// +build wireinject

package di

import (
	"CANProbe/pkg/config"
	"CANProbe/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideSampleStorage,
		ProvideSamplePublisher,
		ProvideSignalStore,

		// Engine, gateway and local services
		ProvideOfflineCorrelator,
		ProvideStreamDialer,
		ProvideGatewayClient,
		ProvideBytesCache,
		ProvideObserver,
		ProvideRing,

		// Archive path
		ProvideArchiveRouter,
		ProvideArchivePipeline,

		// Use cases
		ProvideDiscoverySession,
		ProvideFuzzer,
		ProvideRangesUseCase,
		ProvideHistoryUseCase,
		ProvideCaptureFeed,

		// HTTP surface
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
