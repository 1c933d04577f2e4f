package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pitabwire/sdui/internal/binding"
	"github.com/pitabwire/sdui/internal/cache"
	"github.com/pitabwire/sdui/internal/config"
	"github.com/pitabwire/sdui/internal/mapper"
	"github.com/pitabwire/sdui/internal/microapp"
	"github.com/pitabwire/sdui/internal/observability"
	"github.com/pitabwire/sdui/internal/openapi"
	"github.com/pitabwire/sdui/internal/parser"
)

// metricsRegisterer receives the process metrics. Replaced in tests, where
// several apps are wired in one process.
var metricsRegisterer prometheus.Registerer = prometheus.DefaultRegisterer

// app holds the wired runtime shared by every command.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	metrics   *observability.Metrics
	service   *microapp.Service
	readiness observability.ReadinessChecks

	closers []func()
}

// newApp loads configuration and wires storage, the query index and the
// microapp service.
func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	observability.Version = version
	observability.Commit = commit

	logger, err := observability.NewLogger(cfg.Observability)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: observability.InitMetrics(metricsRegisterer),
	}

	store, health, closer, err := buildStorage(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		a.closers = append(a.closers, closer)
	}
	a.readiness.Storage = health

	opts := []microapp.Option{
		microapp.WithLogger(logger),
		microapp.WithRecorder(a.metrics),
		microapp.WithParser(parser.New(
			parser.WithLogger(logger),
			parser.WithMaxDepth(cfg.Parser.MaxDepth),
			parser.WithObserver(a.metrics),
		)),
		microapp.WithMapper(mapper.New(mapper.WithLogger(logger), mapper.WithObserver(a.metrics))),
		microapp.WithEngine(binding.NewEngine(binding.WithLogger(logger))),
	}

	if len(cfg.Queries.Specs) > 0 {
		idx := openapi.NewIndex()
		if err := idx.Load(buildSpecSources(cfg.Queries.Specs)); err != nil {
			a.close()
			return nil, fmt.Errorf("openapi index: %w", err)
		}
		a.metrics.SetOperationsIndexed(idx.Len())
		a.readiness.OpenAPILoaded = func() bool { return idx.Len() > 0 }
		opts = append(opts, microapp.WithQueryIndex(idx, cfg.Queries.Strict))
		logger.Info("openapi specs indexed",
			zap.Strings("services", idx.Services()),
			zap.Int("operations", idx.Len()))
	}

	a.service = microapp.NewService(cache.NewInstrumented(store, a.metrics), opts...)
	return a, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
	_ = a.logger.Sync()
}

// buildSpecSources converts config spec sources to openapi.SpecSource.
func buildSpecSources(specs []config.SpecSource) []openapi.SpecSource {
	sources := make([]openapi.SpecSource, len(specs))
	for i, s := range specs {
		sources[i] = openapi.SpecSource{
			ServiceID: s.ServiceID,
			BaseURL:   s.BaseURL,
			SpecPath:  s.SpecFile,
		}
	}
	return sources
}

type healthStorage interface {
	cache.MicroappStorage
	observability.HealthChecker
}

// buildStorage creates the microapp store selected by cfg.Driver.
func buildStorage(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (cache.MicroappStorage, observability.HealthChecker, func(), error) {
	var (
		store  healthStorage
		closer func()
	)

	switch cfg.Driver {
	case config.DriverMemory, "":
		logger.Info("using in-memory microapp store")
		store = cache.NewMemoryStorage()

	case config.DriverFile:
		fs, err := cache.NewFileStorage(cfg.File.Directory)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("file store: %w", err)
		}
		logger.Info("using file microapp store", zap.String("directory", cfg.File.Directory))
		store = fs

	case config.DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, nil, fmt.Errorf("redis store: ping: %w", err)
		}
		logger.Info("using redis microapp store", zap.String("addr", cfg.Redis.Addr))
		store = cache.NewRedisStorage(client, cfg.Redis.Prefix)
		closer = func() { _ = client.Close() }

	case config.DriverPostgres:
		poolCfg, err := pgxpool.ParseConfig(cfg.Postgres.DSN)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("postgres store: parse DSN: %w", err)
		}
		poolCfg.MaxConns = cfg.Postgres.MaxConns
		poolCfg.MaxConnLifetime = cfg.Postgres.ConnMaxLifetime

		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("postgres store: connect: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("postgres store: ping: %w", err)
		}

		pg := cache.NewPgStorage(pool)
		if cfg.Postgres.Migrate {
			if err := pg.Migrate(ctx); err != nil {
				pool.Close()
				return nil, nil, nil, fmt.Errorf("postgres store: migrate: %w", err)
			}
		}
		logger.Info("using postgres microapp store")
		store = pg
		closer = pool.Close

	default:
		return nil, nil, nil, fmt.Errorf("unsupported storage driver: %q", cfg.Driver)
	}

	if cfg.Breaker.Enabled && (cfg.Driver == config.DriverRedis || cfg.Driver == config.DriverPostgres) {
		store = cache.NewGuarded(store, cache.BreakerSettings{
			FailureThreshold: cfg.Breaker.FailureThreshold,
			SuccessThreshold: cfg.Breaker.SuccessThreshold,
			OpenTimeout:      cfg.Breaker.OpenTimeout,
		})
	}

	return store, store, closer, nil
}
