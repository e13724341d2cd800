package di

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"PriceCast/internal/domain/repository"
	"PriceCast/internal/handler/api"
	internalrepo "PriceCast/internal/repository"
	"PriceCast/internal/service/ratelimit"
	"PriceCast/internal/services/chart"
	"PriceCast/internal/services/forecaster"
	"PriceCast/internal/usecase"
	"PriceCast/pkg/cache"
	pkgch "PriceCast/pkg/clickhouse"
	"PriceCast/pkg/config"
	xhttp "PriceCast/pkg/http"
	pkgkafka "PriceCast/pkg/kafka"
	applogger "PriceCast/pkg/logger"
	"PriceCast/pkg/metrics"
	"PriceCast/pkg/server"
)

// ProvideLogger creates the application logger from the logger section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
		Output: cfg.Logger.Output,
	})
}

// ProvideRegistry creates the Prometheus registry shared by every collector.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics creates a Prometheus metrics recorder, or a no-op one when
// metrics are disabled.
func ProvideMetrics(cfg *config.Config, reg *prometheus.Registry) repository.Metrics {
	if !cfg.Metrics.Enabled {
		return metrics.Nop{}
	}
	return metrics.New(reg)
}

// ProvideClickHouseClient connects only when a component reads from or writes
// to ClickHouse; otherwise it returns nil.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	needSource := cfg.Data.Source == "clickhouse"
	needRecorder := cfg.Recorder.Type == "clickhouse"
	if !needSource && !needRecorder {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := pkgch.NewClient(ctx,
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	var schema []string
	if needSource {
		schema = append(schema, internalrepo.CandleSchema(cfg.ClickHouse.CandleTable)...)
	}
	if needRecorder {
		schema = append(schema, internalrepo.RunSchema(cfg.ClickHouse.RunTable)...)
	}
	if err := client.InitSchema(ctx, schema); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideRedisCache connects only when the layered series cache or a redis://
// model location needs it.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	needCache := cfg.Data.Cache == "layered"
	needStore := strings.HasPrefix(cfg.Forecast.ModelLocation, "redis://")
	if !needCache && !needStore {
		return nil, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.KeyPrefix),
		cache.WithRedisPool(cfg.Redis.PoolSize, cfg.Redis.MinIdleConns, cfg.Redis.PoolTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	return rc, nil
}

// ProvideSeriesCache builds the cache that backs CachedSeriesSource.
func ProvideSeriesCache(cfg *config.Config, rc *cache.RedisCache) cache.Service {
	switch cfg.Data.Cache {
	case "memory":
		return cache.NewMemoryCache(cache.WithMemoryMaxSize(64), cache.WithMemoryCleanup(cfg.Data.CacheSweep))
	case "layered":
		return cache.NewLayeredCache(rc, cache.WithLayeredMemorySize(64), cache.WithLayeredMemoryTTL(cfg.Data.CacheTTL))
	default:
		return nil
	}
}

// ProvideSeriesSource selects the series loader and wraps it in the cache.
func ProvideSeriesSource(cfg *config.Config, ch *pkgch.Client, c cache.Service, l *applogger.Logger) repository.SeriesSource {
	var src repository.SeriesSource
	if cfg.Data.Source == "clickhouse" {
		src = internalrepo.NewCHSeriesSource(ch, cfg.ClickHouse.CandleTable, l)
	} else {
		src = internalrepo.NewFileSeriesSource(cfg.Data.Dir, l)
	}
	if c == nil {
		return src
	}
	return internalrepo.NewCachedSeriesSource(src, c, cfg.Data.CacheTTL, l)
}

// ProvideModelStore routes file:// (and bare paths) to disk and redis:// to Redis.
func ProvideModelStore(rc *cache.RedisCache, l *applogger.Logger) repository.ModelStore {
	router := internalrepo.NewModelStoreRouter().Register("file", internalrepo.NewFileModelStore(l))
	if rc != nil {
		router.Register("redis", internalrepo.NewCacheModelStore(rc, l))
	}
	return router
}

// ProvideChartRenderer returns nil when charts are disabled.
func ProvideChartRenderer(cfg *config.Config, l *applogger.Logger) (usecase.ChartRenderer, error) {
	if !cfg.Chart.Enabled {
		return nil, nil
	}
	r, err := chart.NewRenderer(cfg.Chart.OutputDir, cfg.Chart.Sizes, l)
	if err != nil {
		return nil, fmt.Errorf("chart renderer: %w", err)
	}
	return r, nil
}

// ProvideForecastUseCase wires the orchestrator; the textual report goes to stdout.
func ProvideForecastUseCase(
	cfg *config.Config,
	src repository.SeriesSource,
	store repository.ModelStore,
	renderer usecase.ChartRenderer,
	l *applogger.Logger,
	m repository.Metrics,
) *usecase.ForecastUseCase {
	return usecase.NewForecastUseCase(src, store, renderer, os.Stdout, l, m,
		forecaster.WithBatchSize(cfg.Forecast.BatchSize),
		forecaster.WithLearningRate(cfg.Forecast.LearningRate),
		forecaster.WithSeed(cfg.Forecast.Seed),
	)
}

// ProvideRecorder selects the run history backend.
func ProvideRecorder(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger) (repository.Recorder, error) {
	switch cfg.Recorder.Type {
	case "sqlite":
		rec, err := internalrepo.NewSQLiteRecorder(cfg.Recorder.SQLitePath, l)
		if err != nil {
			return nil, fmt.Errorf("sqlite recorder: %w", err)
		}
		return rec, nil
	case "clickhouse":
		return internalrepo.NewCHRecorder(ch, cfg.ClickHouse.RunTable), nil
	default:
		return internalrepo.NoopRecorder{}, nil
	}
}

// ProvideKafkaProducer returns nil when Kafka publishing is disabled.
func ProvideKafkaProducer(cfg *config.Config, reg *prometheus.Registry) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.WriteTimeout),
		pkgkafka.WithBatchTimeout(cfg.Kafka.BatchTimeout),
		pkgkafka.WithRegisterer(reg),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvidePublisher announces forecasts on Kafka when a producer exists.
func ProvidePublisher(cfg *config.Config, producer *pkgkafka.Producer) repository.Publisher {
	if producer == nil {
		return internalrepo.NoopPublisher{}
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

// ProvideForecastService wraps the use case with run serialisation and sinks.
func ProvideForecastService(
	uc *usecase.ForecastUseCase,
	rec repository.Recorder,
	pub repository.Publisher,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.ForecastService {
	return usecase.NewForecastService(uc, rec, pub, m, l)
}

// ProvideRateLimiter limits HTTP-triggered runs per symbol.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Server.RunRateLimit, cfg.Server.RunBurst)
}

// ProvideForecastHandler creates the forecast API routes.
func ProvideForecastHandler(cfg *config.Config, svc *usecase.ForecastService, limiter *ratelimit.Limiter, l *applogger.Logger) *api.ForecastHandler {
	return api.NewForecastHandler(l, svc, cfg.Forecast, cfg.Chart.OutputDir, limiter)
}

// ProvideHTTPServer creates the Echo server for serve mode.
func ProvideHTTPServer(cfg *config.Config, h *api.ForecastHandler, reg *prometheus.Registry, l *applogger.Logger) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(cfg.Metrics.Path, reg, reg))
	}
	return xhttp.NewServer(h, l, opts...)
}

// ProvideResources lists the clients the App closes on shutdown.
func ProvideResources(ch *pkgch.Client, rc *cache.RedisCache, c cache.Service) server.Resources {
	var res server.Resources
	if c != nil {
		res = append(res, c)
	}
	if ch != nil {
		res = append(res, ch)
	}
	if rc != nil {
		res = append(res, rc)
	}
	return res
}

// ProvideApp creates the application.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	svc *usecase.ForecastService,
	httpServer *xhttp.Server,
	res server.Resources,
) *server.App {
	return server.New(cfg, l, svc, httpServer, res)
}
