package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tomfuertes/murmur/internal/config"
	"github.com/tomfuertes/murmur/internal/events"
	"github.com/tomfuertes/murmur/internal/handler"
	"github.com/tomfuertes/murmur/internal/limiter"
	"github.com/tomfuertes/murmur/internal/oracle"
	"github.com/tomfuertes/murmur/internal/room"
	"github.com/tomfuertes/murmur/internal/sanitize"
	"github.com/tomfuertes/murmur/internal/service"
	"github.com/tomfuertes/murmur/internal/store"
	"github.com/tomfuertes/murmur/internal/verify"
	"github.com/tomfuertes/murmur/pkg/database"
	pkglog "github.com/tomfuertes/murmur/pkg/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Initialize structured logger
	pkglog.Init(pkglog.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty, ServiceName: "murmur"})
	logger := pkglog.L()

	logger.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str(pkglog.FieldRoomID, cfg.Room.ID).
		Msg("starting murmur")

	// Durable store
	db, err := database.New(cfg.Database.Database())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open database")
	}
	gormStore := store.NewGormStore(db)
	if err := gormStore.AutoMigrate(); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	// Rate bucket backend
	var bucketStore limiter.BucketStore = gormStore
	if cfg.RateLimit.Backend == "redis" {
		redisBuckets, err := store.NewRedisBucketStore(cfg.Redis, cfg.Redis.Prefix)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisBuckets.Close()
		bucketStore = redisBuckets
		logger.Info().Str("address", cfg.Redis.Address).Msg("rate buckets on redis")
	}

	// Prompt prefilter
	sanitizer, err := sanitize.New(cfg.Prefilter.ExtraPatterns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to compile prefilter patterns")
	}

	// Oracle client for moderation and interpretation
	oracleClient := oracle.NewHTTPClient(oracle.Config{
		BaseURL: cfg.Oracle.BaseURL,
		APIKey:  cfg.Oracle.APIKey,
		Model:   cfg.Oracle.Model,
	})
	moderator := oracle.NewModerator(oracleClient, cfg.Oracle.ModerationTimeout)
	interpreter := oracle.NewInterpreter(oracleClient, cfg.Oracle.InterpretTimeout)

	// Bot verification
	var verifier verify.Verifier = verify.Disabled{}
	if cfg.Verify.Enabled {
		verifier = verify.NewTurnstile(cfg.Verify.Endpoint, cfg.Verify.Secret)
		logger.Info().Msg("bot verification enabled")
	}

	// Update events
	var producer events.Producer = events.NoopProducer{}
	if cfg.Kafka.Brokers != "" {
		kp, err := events.NewConfluentProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to create kafka producer, update events disabled")
		} else {
			producer = kp
			logger.Info().Str("topic", cfg.Kafka.Topic).Msg("kafka producer started")
		}
	}

	// Room coordinator
	coordinator := room.New(cfg.Room, cfg.RateLimit, room.Deps{
		Store:       gormStore,
		Limiter:     limiter.New(bucketStore),
		Sanitizer:   sanitizer,
		Moderator:   moderator,
		Interpreter: interpreter,
		Verifier:    verifier,
		Producer:    producer,
	})
	startCtx, startCancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = coordinator.Start(startCtx)
	startCancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to start room coordinator")
	}

	// HTTP + WebSocket surface
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(pkglog.GinMiddleware(logger))

	queryService := service.NewRoomQueryService(coordinator, gormStore, cfg.Room.ID, cfg.Room.RecentPrompts)
	handler.NewWSHandler(coordinator, cfg.WebSocket).RegisterRoutes(router)
	handler.NewHTTPHandler(queryService).RegisterRoutes(router)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().Str("addr", addr).Msg("murmur listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down murmur")

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		// 1. stop accepting HTTP and WebSocket traffic
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("server shutdown error")
		}

		// 2. drain queued commands, close every listener
		if err := coordinator.Stop(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("coordinator shutdown error")
		}

		// 3. flush pending update events
		if err := producer.Close(); err != nil {
			logger.Error().Err(err).Msg("producer close error")
		}
	}()

	select {
	case <-shutdownDone:
		logger.Info().Msg("murmur stopped")
	case <-time.After(30 * time.Second):
		logger.Warn().Msg("shutdown timed out after 30s")
	}
}
