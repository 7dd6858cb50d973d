package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vitikevich-landau/event-booking-api/internal/app"
	"github.com/vitikevich-landau/event-booking-api/internal/clock"
	"github.com/vitikevich-landau/event-booking-api/internal/config"
	"github.com/vitikevich-landau/event-booking-api/internal/outbox"
	"github.com/vitikevich-landau/event-booking-api/internal/storage/postgres"
	transporthttp "github.com/vitikevich-landau/event-booking-api/internal/transport/http"
	"github.com/vitikevich-landau/event-booking-api/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	startupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		logger.Fatal("parse database url", zap.Error(err))
	}
	poolCfg.MaxConns = cfg.Database.MaxConns
	poolCfg.MinConns = cfg.Database.MinConns
	poolCfg.MaxConnIdleTime = cfg.Database.MaxConnIdle
	poolCfg.MaxConnLifetime = cfg.Database.ConnLifetime

	pool, err := pgxpool.NewWithConfig(startupCtx, poolCfg)
	if err != nil {
		logger.Fatal("connect to db", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		logger.Fatal("db ping", zap.Error(err))
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		logger.Fatal("apply migrations", zap.Error(err))
	}

	eventRepo := postgres.NewEventRepository(pool)
	reservationRepo := postgres.NewReservationRepository(pool)
	outboxRepo := postgres.NewOutboxRepository(pool)

	var appender app.OutboxAppender
	if cfg.AMQP.Enabled() {
		appender = outboxRepo
	}

	eventSvc := app.NewEventService(eventRepo, clock.NewSystem())
	reservationSvc := app.NewReservationService(reservationRepo, appender, clock.NewSystem())

	var limiter *transporthttp.RateLimiter
	if cfg.RateLimit.Enabled {
		var redisClient *redis.Client
		if cfg.Redis.Enabled() {
			redisClient = redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			defer func() { _ = redisClient.Close() }()
			if err := redisClient.Ping(startupCtx).Err(); err != nil {
				logger.Warn("redis unreachable, rate limiting falls back to local buckets", zap.Error(err))
			}
		}
		limiter = transporthttp.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, redisClient, logger)
	}

	handler := transporthttp.NewRouter(transporthttp.RouterConfig{
		Events:       eventSvc,
		Admin:        eventSvc,
		Reservations: reservationSvc,
		Logger:       logger,
		CORSOrigins:  cfg.Server.CORSOrigins,
		RateLimiter:  limiter,
	})

	relayCtx, stopRelay := context.WithCancel(context.Background())
	defer stopRelay()
	relayDone := make(chan struct{})
	close(relayDone)

	if cfg.AMQP.Enabled() {
		publisher := outbox.NewAMQPPublisher(cfg.AMQP.URL)
		defer func() { _ = publisher.Close() }()

		relay := outbox.NewRelay(outboxRepo, publisher, logger, clock.NewSystem(), cfg.Outbox.PollInterval, cfg.Outbox.BatchSize)
		relayDone = make(chan struct{})
		go func() {
			defer close(relayDone)
			relay.Run(relayCtx)
		}()
		logger.Info("outbox relay started",
			zap.Duration("poll_interval", cfg.Outbox.PollInterval),
			zap.Int("batch_size", cfg.Outbox.BatchSize),
		)
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	logger.Info("api listening", zap.String("addr", cfg.Server.Addr()))

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
		}
	case <-stopCtx.Done():
		logger.Info("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server shutdown error", zap.Error(err))
	}

	stopRelay()
	select {
	case <-relayDone:
	case <-shutdownCtx.Done():
		logger.Warn("outbox relay did not stop before deadline")
	}

	logger.Info("server stopped")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
