package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/wordfreq/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/wordfreq/internal/analytics/snapshot"
	"github.com/Adithya-Monish-Kumar-K/wordfreq/internal/api"
	"github.com/Adithya-Monish-Kumar-K/wordfreq/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/wordfreq/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/wordfreq/internal/rules"
	"github.com/Adithya-Monish-Kumar-K/wordfreq/internal/texts"
	"github.com/Adithya-Monish-Kumar-K/wordfreq/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/wordfreq/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/wordfreq/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/wordfreq/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/wordfreq/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/wordfreq/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/wordfreq/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/wordfreq/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/wordfreq/pkg/resilience"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve ranked word counts over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting wordfreq service",
		"port", cfg.Server.Port,
		"workers", cfg.Pipeline.Workers,
		"texts_dir", cfg.Texts.Dir,
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := shutdownMetrics(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown error", "error", err)
			}
		}()
	}

	checker := health.NewChecker("wordfreq")

	pg, err := connectPostgres(ctx, cfg)
	if err != nil {
		return err
	}
	if pg != nil {
		defer pg.Close()
		check := health.Ping(pg.Ping)
		if cfg.Rules.SynonymsSource != config.SynonymsFromPostgres {
			check = health.Optional(check)
		}
		checker.Register("postgres", check)
	}

	store, err := buildRules(ctx, cfg, pg, m)
	if err != nil {
		return err
	}
	checker.Register("rules", func(context.Context) health.ComponentHealth {
		snap := store.Current()
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("generation %d loaded %s", snap.Generation, snap.LoadedAt.Format("15:04:05")),
		}
	})
	if cfg.Rules.Watch {
		watcher, err := rules.NewWatcher(store, cfg.Rules.WatchDebounce)
		if err != nil {
			slog.Warn("rules watcher unavailable, reload with POST /api/v1/rules/reload", "error", err)
		} else {
			watcher.Start(ctx)
			defer watcher.Stop()
		}
	}

	library := texts.NewLibrary(cfg.Texts.Dir, cfg.Texts.Extension)
	checker.Register("texts", health.Ping(func(context.Context) error {
		_, err := library.List()
		return err
	}))

	resultCache, redisClient := buildCache(ctx, cfg, m)
	if redisClient != nil {
		defer redisClient.Close()
		checker.Register("redis", health.Optional(health.Ping(redisClient.Ping)))
	}

	aggregator := analytics.NewAggregator()
	var publisher analytics.Publisher = aggregator
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka)
		defer producer.Close()
		consumer := kafka.NewConsumer(cfg.Kafka, aggregator.HandleMessage)
		defer consumer.Close()
		aggregator.ConsumeFrom(consumer)
		publisher = producer
		checker.Register("kafka", health.Optional(health.Ping(producer.Ping)))
		slog.Info("analytics publishing to kafka", "topic", cfg.Kafka.Topic, "brokers", cfg.Kafka.Brokers)
	}
	collector := analytics.NewCollector(publisher, cfg.Analytics.BufferSize, cfg.Analytics.BatchSize, cfg.Analytics.FlushInterval)
	collector.Start(ctx)
	defer collector.Close()
	go func() {
		if err := aggregator.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("analytics aggregator error", "error", err)
		}
	}()
	if pg != nil {
		snapshot.NewStore(pg.DB).StartPeriodicSave(ctx, aggregator, cfg.Analytics.SnapshotInterval)
	}

	dispatcher, err := pipeline.New(cfg.Pipeline.Workers, pipeline.WithQueueSize(cfg.Pipeline.QueueSize))
	if err != nil {
		return err
	}
	var sampleRate float64
	if cfg.Tracing.Enabled {
		sampleRate = cfg.Tracing.SampleRate
	}
	svc := api.NewService(library, store, dispatcher, resultCache,
		api.ServiceConfig{
			TopK:            cfg.Pipeline.TopK,
			LogTopN:         cfg.Pipeline.LogTopN,
			TraceSampleRate: sampleRate,
		},
		api.WithTracker(collector),
		api.WithMetrics(m),
	)

	corsCfg := middleware.DefaultCORSConfig()
	if len(cfg.Server.AllowOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.Server.AllowOrigins
	}
	var limiter *middleware.RateLimiter
	if cfg.Server.RateLimit > 0 {
		limiter = middleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateWindow)
	}
	router := api.NewRouter(api.NewHandler(svc, library, store, resultCache), api.RouterConfig{
		Analytics:      analytics.NewHandler(aggregator),
		Health:         checker,
		Metrics:        m,
		CORS:           corsCfg,
		RateLimiter:    limiter,
		RequestTimeout: cfg.Server.RequestTimeout,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("wordfreq service listening", "addr", server.Addr, "cache", resultCache.Backend())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving http: %w", err)
	}
	slog.Info("wordfreq service stopped")
	return nil
}

// connectPostgres returns nil when postgres is disabled, or unreachable and
// not the synonym source.
func connectPostgres(ctx context.Context, cfg *config.Config) (*postgres.Client, error) {
	if !cfg.Postgres.Enabled {
		return nil, nil
	}
	var pg *postgres.Client
	err := resilience.Retry(ctx, "postgres-connect", resilience.RetryConfig{MaxAttempts: 5}, func() error {
		var err error
		pg, err = postgres.New(ctx, cfg.Postgres)
		return err
	})
	if err == nil {
		err = pg.EnsureSchema(ctx)
		if err != nil {
			pg.Close()
		}
	}
	if err != nil {
		if cfg.Rules.SynonymsSource == config.SynonymsFromPostgres {
			return nil, fmt.Errorf("postgres is the synonym source: %w", err)
		}
		slog.Warn("postgres unavailable, analytics snapshots disabled", "error", err)
		return nil, nil
	}
	slog.Info("postgres connected", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
	return pg, nil
}

func buildRules(ctx context.Context, cfg *config.Config, pg *postgres.Client, m *metrics.Metrics) (*rules.Store, error) {
	src := rules.Source{
		SeparatorsFile: cfg.Rules.SeparatorsFile,
		NoiseWordsFile: cfg.Rules.NoiseWordsFile,
		SynonymsFile:   cfg.Rules.SynonymsFile,
	}
	if cfg.Rules.SynonymsSource == config.SynonymsFromPostgres {
		src.SynonymsDB = pg
	}
	return rules.NewStore(ctx, src, rules.WithReloadHook(func(snap *rules.Snapshot, err error) {
		if err != nil {
			m.RulesReloadsTotal.WithLabelValues("error").Inc()
			return
		}
		m.RulesReloadsTotal.WithLabelValues("ok").Inc()
		m.RulesGeneration.Set(float64(snap.Generation))
	}))
}

// buildCache falls back to the in-process LRU when Redis cannot be reached
// at startup. The returned client is nil unless Redis is in use.
func buildCache(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*cache.Cache, *pkgredis.Client) {
	local := func() *cache.Cache {
		store, err := cache.NewLocalStore(cfg.Cache.LocalSize)
		if err != nil {
			slog.Warn("local cache unavailable, caching disabled", "error", err)
			return cache.New(cache.NopStore{}, cache.WithMetrics(m))
		}
		return cache.New(store, cache.WithMetrics(m))
	}

	switch cfg.Cache.Backend {
	case config.CacheNone:
		return cache.New(cache.NopStore{}, cache.WithMetrics(m)), nil
	case config.CacheLocal:
		return local(), nil
	}

	var client *pkgredis.Client
	err := resilience.Retry(ctx, "redis-connect", resilience.RetryConfig{MaxAttempts: 3}, func() error {
		var err error
		client, err = pkgredis.NewClient(ctx, cfg.Redis)
		return err
	})
	if err != nil {
		slog.Warn("redis unavailable, using local cache", "addr", cfg.Redis.Addr, "error", err)
		return local(), nil
	}

	breaker := resilience.NewCircuitBreaker("cache-redis", resilience.CircuitBreakerConfig{
		FailureThreshold: cfg.Cache.FailureThreshold,
		ResetTimeout:     cfg.Cache.ResetTimeout,
		OnStateChange: func(name string, to resilience.State) {
			m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
	})
	m.CircuitBreakerState.WithLabelValues(breaker.Name()).Set(float64(resilience.StateClosed))
	slog.Info("result cache enabled", "backend", "redis", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	return cache.New(cache.NewRedisStore(client, cfg.Redis.CacheTTL),
		cache.WithMetrics(m),
		cache.WithBreaker(breaker),
	), client
}
