package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dmitrymomot/forumnotify/db"
	"github.com/dmitrymomot/forumnotify/handler"
	api "github.com/dmitrymomot/forumnotify/modules/notifications"
	"github.com/dmitrymomot/forumnotify/pkg/broadcast"
	"github.com/dmitrymomot/forumnotify/pkg/clientip"
	"github.com/dmitrymomot/forumnotify/pkg/config"
	"github.com/dmitrymomot/forumnotify/pkg/httpserver"
	"github.com/dmitrymomot/forumnotify/pkg/jwt"
	"github.com/dmitrymomot/forumnotify/pkg/logger"
	"github.com/dmitrymomot/forumnotify/pkg/metrics"
	"github.com/dmitrymomot/forumnotify/pkg/notifications"
	"github.com/dmitrymomot/forumnotify/pkg/pg"
	"github.com/dmitrymomot/forumnotify/pkg/ratelimiter"
	"github.com/dmitrymomot/forumnotify/pkg/redis"
	"github.com/dmitrymomot/forumnotify/pkg/requestid"
)

func main() {
	var cfg appConfig
	config.MustLoad(&cfg)

	opts := []logger.Option{
		logger.WithEnvironment(cfg.AppEnv, cfg.AppName),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	}
	if cfg.LogLevel != "" {
		opts = append(opts, logger.WithLevel(logger.ParseLevel(cfg.LogLevel)))
	}
	log := logger.New(opts...)
	logger.SetAsDefault(log)

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error("server stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	var (
		pgCfg     pg.Config
		redisCfg  redis.Config
		serverCfg httpserver.Config
	)
	if err := errors.Join(
		config.Load(&pgCfg),
		config.Load(&redisCfg),
		config.Load(&serverCfg),
	); err != nil {
		return err
	}

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, db.Migrations, db.MigrationsDir, pgCfg, log); err != nil {
		return err
	}

	healthChecks := []func(context.Context) error{pg.Healthcheck(pool)}

	var limiterStore ratelimiter.Store
	if redisCfg.Enabled() {
		client, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()
		limiterStore = ratelimiter.NewRedisStore(client, ratelimiter.WithKeyPrefix(redisCfg.KeyPrefix+"ratelimit:"))
		healthChecks = append(healthChecks, redis.Healthcheck(client))
	} else {
		log.Info("REDIS_URL not set, rate limiting state is kept in memory")
		memStore := ratelimiter.NewMemoryStore()
		defer memStore.Close()
		limiterStore = memStore
	}

	bucket, err := ratelimiter.NewBucket(limiterStore, ratelimiter.Config{
		Capacity:       cfg.StreamRateCapacity,
		RefillRate:     cfg.StreamRateRefill,
		RefillInterval: cfg.StreamRateInterval,
	})
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(registry)
	if err != nil {
		return err
	}

	bus := broadcast.New[int64, notifications.Event](
		broadcast.WithLogger(log),
		broadcast.WithPanicHook(m.BusPanic),
	)
	defer bus.Close()

	var jwtOpts []jwt.Option
	if cfg.JWTIssuer != "" {
		jwtOpts = append(jwtOpts, jwt.WithIssuer(cfg.JWTIssuer))
	}
	tokens, err := jwt.NewFromString(cfg.JWTSecret, jwtOpts...)
	if err != nil {
		return err
	}

	store := notifications.NewPostgresStorage(pool)
	svc := notifications.NewService(store, store, store, bus,
		notifications.WithLogger(log),
		notifications.WithRecorder(m),
	)

	module := api.New(svc, bus, tokens,
		api.WithLogger(log),
		api.WithObserver(m),
		api.WithStreamConfig(cfg.Stream),
		api.WithStreamLimiter(bucket),
	)

	r := chi.NewRouter()
	r.Use(
		requestid.Middleware,
		clientip.NewResolver(serverCfg.TrustedIPHeaders...).Middleware,
		middleware.Recoverer,
		m.Middleware,
	)
	r.Handle("/metrics", metrics.Handler(registry))
	r.Get("/health/live", httpserver.HealthCheckHandler(log))
	r.Get("/health/ready", httpserver.HealthCheckHandler(log, healthChecks...))
	r.Mount("/api/notifications", module.Handle())
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = handler.JSONError(handler.ErrNotFound).Render(w, r)
	})

	return httpserver.NewFromConfig(serverCfg, httpserver.WithLogger(log)).Run(ctx, r)
}
