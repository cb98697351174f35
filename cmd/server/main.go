package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/haventalk/voice-ingest-go/internal/config"
	"github.com/haventalk/voice-ingest-go/internal/database"
	"github.com/haventalk/voice-ingest-go/internal/events"
	"github.com/haventalk/voice-ingest-go/internal/handler"
	"github.com/haventalk/voice-ingest-go/internal/jobs"
	"github.com/haventalk/voice-ingest-go/internal/middleware"
	"github.com/haventalk/voice-ingest-go/internal/observability/metrics"
	"github.com/haventalk/voice-ingest-go/internal/pipeline"
	"github.com/haventalk/voice-ingest-go/internal/redis"
	"github.com/haventalk/voice-ingest-go/internal/repository"
	"github.com/haventalk/voice-ingest-go/internal/service"
	"github.com/haventalk/voice-ingest-go/internal/sse"
	"github.com/haventalk/voice-ingest-go/internal/voice"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("FLY_APP_NAME") != ""
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	sessionRepo := repository.NewSessionRepository(db.DB)
	turnRepo := repository.NewTurnRepository(db.DB)
	profileRepo := repository.NewProfileRepository(db.DB)

	broker := sse.NewBroker(redisClient)
	defer broker.Close()

	publisher := events.New(events.Config{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.KafkaTopic,
		Enabled: cfg.KafkaEnabled,
	})
	defer publisher.Close()

	fanout := service.NewTurnFanout(broker, publisher)
	pendingStore := pipeline.NewRedisPendingStore(redisClient, config.WatchdogWindow)

	deps := pipeline.Deps{
		Sessions: sessionRepo,
		Turns:    turnRepo,
		Profiles: profileRepo,
		Pending:  pendingStore,
		Fanout:   fanout,
		Metrics:  metrics.DefaultMetrics,
	}

	var listener *voice.Listener
	if cfg.VoiceEventsURL != "" {
		listener = voice.NewListener(cfg.VoiceEventsURL, cfg.VoiceAPIKey)
	}

	manager := service.NewConnectionManager(deps, pipeline.DefaultOptions(), listener)
	sessionService := service.NewSessionService(sessionRepo, turnRepo)

	authMiddleware := middleware.NewAuthMiddleware(profileRepo)
	rateLimitMiddleware := middleware.NewRedisRateLimitMiddleware(redisClient.Client)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)
	signatureMiddleware := middleware.NewWebhookSignatureMiddleware(cfg.VoiceWebhookSecret)

	connectionHandler := handler.NewConnectionHandler(manager, signatureMiddleware.Handler)
	sessionHandler := handler.NewSessionHandler(sessionService)
	eventsHandler := handler.NewEventsHandler(broker)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(bodyLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(authMiddleware.Handler)
		r.Use(rateLimitMiddleware.Handler)

		r.Mount("/connections", connectionHandler.Routes())
		r.Mount("/sessions", sessionHandler.Routes())
		r.Get("/events", eventsHandler.ServeHTTP)
	})

	cleanupJob := jobs.NewCleanupJob(sessionRepo)
	cleanupJob.Start()
	defer cleanupJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	// Drain live connections so in-flight sessions get their final stamp.
	manager.StopAll(shutdownCtx)

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
