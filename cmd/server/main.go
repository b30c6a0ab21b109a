package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/api-marketplace-gateway/internal/config"
	"github.com/api-marketplace-gateway/internal/middleware"
	"github.com/api-marketplace-gateway/internal/payment"
	"github.com/api-marketplace-gateway/internal/server"
	"github.com/api-marketplace-gateway/internal/service"
	"github.com/api-marketplace-gateway/internal/store"
	"github.com/api-marketplace-gateway/internal/upstream"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	zerolog.TimeFieldFormat = time.RFC3339

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	zerolog.SetGlobalLevel(level)

	sentryEnabled := cfg.SentryDSN != ""
	if sentryEnabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.SentryEnvironment,
			Release:          version,
			EnableTracing:    cfg.SentrySampleRate > 0,
			TracesSampleRate: cfg.SentrySampleRate,
		}); err != nil {
			log.Fatal().Err(err).Msg("failed to initialize sentry")
		}
		defer sentry.Flush(2 * time.Second)
		log.Info().Str("environment", cfg.SentryEnvironment).Msg("sentry error reporting enabled")
	}

	ctx := context.Background()

	if cfg.MigrateOnStart {
		if err := store.Migrate(cfg.DatabaseURL); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create database pool")
	}
	defer pool.Close()

	db := store.NewPostgres(pool)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	var events store.EventLog
	if cfg.RedisURL != "" {
		client, err := store.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer client.Close()
		events = store.NewRedisEventLog(client, cfg.WebhookDedupTTL)
		log.Info().Msg("webhook deduplication backed by redis")
	} else {
		events = store.NewMemoryEventLog(cfg.WebhookDedupTTL)
		log.Warn().Msg("REDIS_URL not set; webhook deduplication is process-local")
	}

	provider := payment.NewChargily(cfg.ChargilyAPIURL, cfg.ChargilySecretKey, cfg.ChargilyCurrency)
	forwarder := upstream.NewForwarder(cfg.UpstreamTimeout)

	gateway := service.NewGateway(
		service.NewAuthorizer(db, db),
		service.NewUpstreamResolver(db),
		service.NewUsageRecorder(db, db),
		forwarder,
	)

	router := server.NewRouter(server.Deps{
		DB:          db,
		Version:     version,
		CORSOrigins: cfg.CORSOrigins,
		Sentry:      sentryEnabled,

		Verifier: middleware.NewJWTVerifier(cfg.JWTSecret),
		Attempts: middleware.NewAttemptLimiter(middleware.AttemptPolicy{
			MaxFailures: cfg.AuthMaxFailures,
			Window:      cfg.AuthFailureWindow,
			Block:       cfg.AuthBlockDuration,
		}),
		CallLimiter: middleware.NewCallRateLimiter(cfg.CallRateLimitMax, cfg.CallRateLimitWindow),

		Catalog:       service.NewCatalogService(db, provider),
		Subscriptions: service.NewSubscriptionService(db, db, provider, events),
		APIKeys:       service.NewAPIKeyService(db, db, cfg.APIKeyPrefix),
		Requests:      service.NewRequestLogService(db, db),
		Gateway:       gateway,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	log.Info().Msg("server stopped")
}
