//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"PriceCast/pkg/config"
	"PriceCast/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideRegistry,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideRedisCache,
		ProvideKafkaProducer,

		// Repositories
		ProvideSeriesCache,
		ProvideSeriesSource,
		ProvideModelStore,
		ProvideRecorder,
		ProvidePublisher,

		// Services and use cases
		ProvideChartRenderer,
		ProvideForecastUseCase,
		ProvideForecastService,

		// HTTP
		ProvideRateLimiter,
		ProvideForecastHandler,
		ProvideHTTPServer,

		// Application
		ProvideResources,
		ProvideApp,
	)
	return &server.App{}, nil
}
