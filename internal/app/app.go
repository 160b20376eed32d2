package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/inventory-es/internal/cache"
	"github.com/utafrali/inventory-es/internal/command"
	"github.com/utafrali/inventory-es/internal/config"
	"github.com/utafrali/inventory-es/internal/event"
	"github.com/utafrali/inventory-es/internal/eventbus"
	"github.com/utafrali/inventory-es/internal/eventstore"
	filestore "github.com/utafrali/inventory-es/internal/eventstore/file"
	pgstore "github.com/utafrali/inventory-es/internal/eventstore/postgres"
	handler "github.com/utafrali/inventory-es/internal/handler/http"
	"github.com/utafrali/inventory-es/internal/migrations"
	"github.com/utafrali/inventory-es/internal/query"
	"github.com/utafrali/inventory-es/internal/readmodel"
	filerm "github.com/utafrali/inventory-es/internal/readmodel/file"
	pgrm "github.com/utafrali/inventory-es/internal/readmodel/postgres"
	"github.com/utafrali/inventory-es/internal/service"
	"github.com/utafrali/inventory-es/pkg/breaker"
	"github.com/utafrali/inventory-es/pkg/database"
	"github.com/utafrali/inventory-es/pkg/health"
	pkgkafka "github.com/utafrali/inventory-es/pkg/kafka"
)

// App wires together all dependencies and runs the inventory service.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server

	pool        *pgxpool.Pool
	redisClient *redis.Client
	memCache    *cache.Memory
	producer    *pkgkafka.Producer
	bus         *eventbus.Bus
}

// NewApp creates the application, initializing the storage and cache backends
// selected by configuration.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	healthHandler := health.NewHandler()

	store, rm, err := a.initStorage(ctx, healthHandler)
	if err != nil {
		return nil, err
	}

	readCache, err := a.initCache(ctx, healthHandler)
	if err != nil {
		a.closeBackends()
		return nil, err
	}

	a.bus = eventbus.New(logger)
	event.NewInvalidator(readCache, logger).Attach(a.bus)

	if cfg.Kafka.Enabled {
		a.initRelay(ctx, healthHandler)
	}

	svc := service.New(
		command.NewCommands(store, rm, a.bus, logger),
		query.NewQueries(rm, readCache, cfg.Cache.TTL, logger),
		logger,
	)

	router := handler.NewRouter(handler.NewInventoryHandler(svc, logger), handler.RouterConfig{
		Logger:      logger,
		Health:      healthHandler,
		CORSOrigins: cfg.HTTP.CORSOrigins,
		Environment: cfg.Environment,
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           router,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// initStorage builds the event store and read model for the configured
// backend.
func (a *App) initStorage(ctx context.Context, healthHandler *health.Handler) (eventstore.Store, readmodel.Repository, error) {
	switch a.cfg.Storage.Backend {
	case config.StoragePostgres:
		pool, err := database.NewPostgresPoolWithLogger(ctx, a.cfg.Postgres.Pool(), a.logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		a.pool = pool
		a.logger.Info("connected to PostgreSQL",
			slog.String("host", a.cfg.Postgres.Host),
			slog.Int("port", a.cfg.Postgres.Port),
			slog.String("database", a.cfg.Postgres.DBName),
		)
		database.RegisterPoolMetrics(pool, "inventory-es")

		if err := database.RunMigrations(ctx, pool, migrations.FS, a.logger); err != nil {
			pool.Close()
			a.pool = nil
			return nil, nil, fmt.Errorf("run migrations: %w", err)
		}
		a.logger.Info("database migrations completed")

		healthHandler.Register("postgres", func(ctx context.Context) error {
			return pool.Ping(ctx)
		})

		return pgstore.NewStore(pool, a.logger), pgrm.NewRepository(pool, a.logger), nil

	default:
		store, err := filestore.New(filepath.Join(a.cfg.Storage.Dir, "events"), a.logger)
		if err != nil {
			return nil, nil, fmt.Errorf("init file event store: %w", err)
		}
		rm, err := filerm.New(filepath.Join(a.cfg.Storage.Dir, "readmodel"), a.logger)
		if err != nil {
			return nil, nil, fmt.Errorf("init file read model: %w", err)
		}
		a.logger.Info("file storage initialized", slog.String("dir", a.cfg.Storage.Dir))
		return store, rm, nil
	}
}

// initCache builds the read-side cache for the configured backend.
func (a *App) initCache(ctx context.Context, healthHandler *health.Handler) (cache.Cache, error) {
	switch a.cfg.Cache.Backend {
	case config.CacheRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     a.cfg.Redis.Addr,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.redisClient = client
		a.logger.Info("connected to Redis", slog.String("addr", a.cfg.Redis.Addr))

		healthHandler.Register("redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})

		return cache.NewRedis(client, a.cfg.Cache.TTL, a.logger), nil

	default:
		a.memCache = cache.NewMemory(a.cfg.Cache.TTL, a.cfg.Cache.MaxSize, a.logger)
		return a.memCache, nil
	}
}

// initRelay attaches the Kafka relay behind its circuit breaker. An
// unreachable broker degrades the relay but never blocks startup: the breaker
// fails fast and events stay replayable from the store.
func (a *App) initRelay(ctx context.Context, healthHandler *health.Handler) {
	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(a.cfg.Kafka.Brokers), a.logger)
	a.producer = producer

	if err := producer.Ping(ctx); err != nil {
		a.logger.Warn("kafka producer ping failed, continuing in degraded mode",
			slog.String("error", err.Error()),
		)
	} else {
		a.logger.Info("kafka producer initialized", slog.Any("brokers", a.cfg.Kafka.Brokers))
	}

	relayBreaker := breaker.New(breaker.Config{
		Name:             "kafka-relay",
		FailureThreshold: a.cfg.Breaker.FailureThreshold,
		Timeout:          a.cfg.Breaker.Timeout,
	}, a.logger)

	event.NewRelay(producer, relayBreaker, a.logger).Attach(a.bus)

	healthHandler.Register("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})
}

// Run starts the HTTP server and background jobs, then blocks until the
// context is canceled or a component fails.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if a.memCache != nil {
		go a.runCacheSweeper(ctx)
	}

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// runCacheSweeper periodically drops expired entries from the memory cache.
func (a *App) runCacheSweeper(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.Cache.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := a.memCache.CleanupExpired(ctx)
			if err != nil {
				a.logger.Error("cache sweep error", slog.String("error", err.Error()))
			} else if removed > 0 {
				a.logger.Debug("expired cache entries swept", slog.Int("removed", removed))
			}
		}
	}
}

// Shutdown gracefully stops all components: drain HTTP, then close the
// outbound producer and storage backends.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.closeBackends()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

func (a *App) closeBackends() {
	if a.redisClient != nil {
		_ = a.redisClient.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
