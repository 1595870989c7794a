package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	goIAM "github.com/MrEthical07/goIAM"
	"github.com/MrEthical07/goIAM/internal/config"
	"github.com/MrEthical07/goIAM/internal/handlers"
	"github.com/MrEthical07/goIAM/internal/jobs"
	"github.com/MrEthical07/goIAM/internal/log"
	"github.com/MrEthical07/goIAM/internal/server"
	"github.com/MrEthical07/goIAM/mail"
	promexport "github.com/MrEthical07/goIAM/metrics/export/prometheus"
	"github.com/MrEthical07/goIAM/middleware"
	"github.com/MrEthical07/goIAM/store"
	"github.com/MrEthical07/goIAM/store/memstore"
	"github.com/MrEthical07/goIAM/store/mongostore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := log.New(cfg.Environment)

	ctx := context.Background()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open store")
	}

	redisClient := openRedis(ctx, cfg, logger)

	mailer, err := newMailer(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure mail")
	}

	builder := goIAM.New().
		WithConfig(cfg.EngineConfig()).
		WithStore(st).
		WithLogger(logger).
		WithMailer(mailer)
	if redisClient != nil {
		builder = builder.WithRedis(redisClient)
	}
	engine, err := builder.Build()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build engine")
	}
	if cfg.DisableAuth {
		logger.Warn().Msg("DISABLE_AUTH is set: every request runs with a wildcard development identity")
	}

	var (
		metricsHandler http.Handler
		httpMetrics    *middleware.HTTPMetrics
	)
	if cfg.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			promexport.NewCollector(engine),
		)
		httpMetrics = middleware.NewHTTPMetrics(reg, "goiam")
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	handlerSet := handlers.NewHandlerSet(logger, engine, handlers.Options{
		Environment: cfg.Environment,
		Metrics:     metricsHandler,
	})
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet, httpMetrics)

	scheduler := jobs.NewScheduler(engine, cfg.AuditRetention(), logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, engine, st, redisClient)
}

func openStore(ctx context.Context, cfg *config.AppConfig, logger zerolog.Logger) (store.Store, error) {
	if cfg.Store.Driver == config.DriverMemory {
		logger.Warn().Msg("using the in-memory store: data is lost on restart")
		return memstore.New(), nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	return mongostore.NewStore(connectCtx, cfg.Store.MongoURI, cfg.Store.MongoDB)
}

// openRedis returns nil when no address is configured. An unreachable
// server is kept: the limiter fails open until it comes back.
func openRedis(ctx context.Context, cfg *config.AppConfig, logger zerolog.Logger) *redis.Client {
	if cfg.Redis.Addr == "" {
		logger.Info().Msg("REDIS_ADDR not set: login and code-request rate limits are disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unreachable at startup")
	}
	return client
}

// newMailer returns the SMTP sender. Outside production a missing account
// falls back to the log-only sender; in production it is an error.
func newMailer(cfg *config.AppConfig, logger zerolog.Logger) (mail.Sender, error) {
	mailer, err := mail.NewSMTPMailer(cfg.SMTPConfig())
	if err == nil {
		return mailer, nil
	}
	if cfg.Production() {
		return nil, err
	}
	logger.Warn().Err(err).Msg("GMAIL_USER/GMAIL_APP_PASSWORD not set: emails are logged, not sent")
	return mail.LogMailer{Logger: logger}, nil
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, engine *goIAM.Engine, st store.Store, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("forced shutdown failed")
		}
	}

	scheduler.Stop(shutdownCtx)

	engine.Shutdown(shutdownCtx)
	if err := st.Close(); err != nil {
		logger.Error().Err(err).Msg("store close error")
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("redis close error")
		}
	}

	logger.Info().Msg("server exited cleanly")
}
