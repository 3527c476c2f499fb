package di

import (
	"context"
	"fmt"
	"time"

	"GoldPulse/internal/connection"
	"GoldPulse/internal/domain/repository"
	"GoldPulse/internal/domain/service"
	"GoldPulse/internal/engine"
	"GoldPulse/internal/handler/api"
	"GoldPulse/internal/history"
	"GoldPulse/internal/predictor"
	internalrepo "GoldPulse/internal/repository"
	"GoldPulse/internal/service/terminal"
	"GoldPulse/internal/usecase"
	"GoldPulse/pkg/cache"
	pkgch "GoldPulse/pkg/clickhouse"
	"GoldPulse/pkg/config"
	xhttp "GoldPulse/pkg/http"
	pkgkafka "GoldPulse/pkg/kafka"
	applogger "GoldPulse/pkg/logger"
	"GoldPulse/pkg/metrics"
	"GoldPulse/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + cfg.ClickHouse.Database,
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideTickStore creates the ClickHouse tick store and ensures its table.
func ProvideTickStore(chClient *pkgch.Client, cfg *config.Config) (repository.TickStore, error) {
	store := internalrepo.NewClickHouseTickStore(chClient.DB(), cfg.ClickHouse.Database+".price_data")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("tick store init: %w", err)
	}
	return store, nil
}

// ProvideForecastStore creates the ClickHouse forecast store and ensures its table.
// Initialization failure is fatal: the engine must not run without a
// working forecast log.
func ProvideForecastStore(chClient *pkgch.Client, cfg *config.Config) (repository.ForecastStore, error) {
	store := internalrepo.NewClickHouseForecastStore(chClient.DB(), cfg.ClickHouse.Database+".predictions")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("forecast store init: %w", err)
	}
	return store, nil
}

// ProvideKafkaProducer creates a Kafka producer when the kafka backend is
// selected; otherwise it returns nil and ticks go straight to ClickHouse.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if cfg.Backend.Type != "kafka" {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideTickPublisher creates the Kafka tick publisher when a producer exists.
func ProvideTickPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.TickPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaTickPublisher(producer, cfg.Kafka.Topic)
}

// ProvideKafkaConsumer creates a Kafka consumer when enabled.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaTicksHandler ingests the tick topic into ClickHouse.
func ProvideKafkaTicksHandler(store repository.TickStore, m repository.Metrics, cfg *config.Config) pkgkafka.MessageHandler {
	return usecase.NewKafkaTicksHandler(cfg.Kafka.Topic, store, m)
}

// ProvideTerminal creates the terminal bridge client.
func ProvideTerminal(cfg *config.Config) repository.Terminal {
	return terminal.New(cfg.Terminal.BridgeURL, cfg.Terminal.RequestTimeout)
}

// ProvideConnectionManager creates the terminal connection manager.
func ProvideConnectionManager(t repository.Terminal, m repository.Metrics, log *applogger.Logger, cfg *config.Config) *connection.Manager {
	return connection.New(t, m, log, connection.Config{
		SymbolPriorities: cfg.Terminal.SymbolPriorities,
		SymbolKeyword:    cfg.Terminal.SymbolKeyword,
		SymbolCacheTTL:   cfg.Terminal.SymbolCacheTTL,
		QuoteRetries:     cfg.Terminal.QuoteRetries,
		RetryDelay:       cfg.Terminal.RetryDelay,
	})
}

// ProvideHistory creates the in-memory price history buffer.
func ProvideHistory(cfg *config.Config) *history.Buffer {
	return history.New(cfg.Engine.HistorySize)
}

// ProvidePredictors builds the forecast tiers.
func ProvidePredictors(cfg *config.Config, log *applogger.Logger) []service.Predictor {
	return predictor.Build(predictor.RegistryConfig{
		Horizon:           cfg.Engine.Horizon,
		StatisticalWindow: cfg.Predictors.StatisticalWindow,
		ModelServiceURL:   cfg.Predictors.ModelServiceURL,
		ModelTimeout:      cfg.Predictors.ModelTimeout,
	}, log)
}

// ProvideTickProcessor routes collected ticks to the configured backend.
func ProvideTickProcessor(pub repository.TickPublisher, store repository.TickStore, m repository.Metrics, cfg *config.Config) *usecase.TickProcessor {
	return usecase.NewTickProcessor(pub, store, m, cfg.Backend.Type)
}

// ProvideEngine assembles the forecast engine.
func ProvideEngine(
	cfg *config.Config,
	conn *connection.Manager,
	hist *history.Buffer,
	predictors []service.Predictor,
	ticks *usecase.TickProcessor,
	forecasts repository.ForecastStore,
	m repository.Metrics,
	log *applogger.Logger,
) *engine.Engine {
	return engine.New(engine.Config{
		CollectInterval: cfg.Engine.CollectInterval,
		Horizon:         cfg.Engine.Horizon,
		VerifyInterval:  cfg.Engine.VerifyInterval,
		VerifyTolerance: cfg.Engine.VerifyTolerance,
		MinSamples:      cfg.Engine.MinSamples,
	}, conn, hist, predictors, ticks, forecasts, m, log)
}

// ProvideCache creates the stats cache, Redis when enabled, in-memory otherwise.
func ProvideCache(cfg *config.Config, log *applogger.Logger) cache.Service {
	if cfg.Cache.Redis.Enabled {
		rc, err := cache.NewRedisCache(
			cache.WithAddr(cfg.Cache.Redis.Addr),
			cache.WithPassword(cfg.Cache.Redis.Password),
			cache.WithDB(cfg.Cache.Redis.DB),
		)
		if err == nil {
			return rc
		}
		log.Warn("redis unavailable, using in-memory cache", applogger.Error(err))
	}
	return cache.NewMemoryCache()
}

// ProvideHTTPHandler creates the API handler.
func ProvideHTTPHandler(log *applogger.Logger, eng *engine.Engine, ticks repository.TickStore, c cache.Service) xhttp.Handler {
	return api.NewEngineHandler(log, eng, ticks, c)
}

// ProvideApp creates the application.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	eng *engine.Engine,
	ticks *usecase.TickProcessor,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	chClient *pkgch.Client,
	handler xhttp.Handler,
) *server.App {
	return server.New(cfg, log, eng, ticks, consumer, kh, chClient, handler)
}
