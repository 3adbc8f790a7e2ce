package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	syncapi "github.com/vishu3131/civisync/api/echo"
	"github.com/vishu3131/civisync/config"
	"github.com/vishu3131/civisync/identity"
	"github.com/vishu3131/civisync/internal/syncer"
	"github.com/vishu3131/civisync/log"
	"github.com/vishu3131/civisync/postgres"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fallback := zerolog.New(os.Stderr).With().Timestamp().Logger()
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logLevel, parseErr := zerolog.ParseLevel(cfg.LogLevel)
	if parseErr != nil {
		logLevel = zerolog.InfoLevel
	}
	logger := log.NewZerologAdapter(logLevel, cfg.LogPretty)

	ctx := context.Background()
	logger.Info(ctx, "Starting identity sync engine", map[string]any{
		"http_port":     cfg.HTTPPort,
		"mongo_db_name": cfg.MongoDBName,
		"redis_addr":    cfg.RedisAddr,
		"log_level":     logLevel.String(),
	})

	// Identity provider backends.
	mongoClient, mongoDB, err := identity.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		logger.Fatal(ctx, "Failed to connect to identity provider document store", err)
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			logger.Error(ctx, "Error closing MongoDB connection", err)
		}
	}()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal(ctx, "Failed to connect to Redis", err)
	}
	defer rdb.Close()

	provider, err := identity.NewProvider(mongoDB, rdb, cfg.AuthEventsChannel, logger)
	if err != nil {
		logger.Fatal(ctx, "Failed to initialize identity provider adapter", err)
	}

	// Application store.
	db, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal(ctx, "Failed to connect to application store", err)
	}
	defer db.Close()

	profileRepo := postgres.NewProfileRepository(db)
	mappingRepo := postgres.NewMappingRepository(db)
	syncLogRepo := postgres.NewSyncLogRepository(db)

	// Sync core.
	reconciler := syncer.NewReconciler()
	executor := syncer.NewExecutor(profileRepo, mappingRepo, syncLogRepo, logger)
	stats := syncer.NewStatsReporter(profileRepo, cfg.StatsCacheTTL())
	defer stats.Close()
	service := syncer.NewService(provider, profileRepo, syncLogRepo, reconciler, executor, stats, logger)

	trigger := syncer.NewTriggerManager(service, provider, syncer.Options{
		SyncOnAuthChange:    cfg.SyncOnAuthChange,
		SyncOnProfileChange: cfg.SyncOnProfileChange,
		BatchInterval:       cfg.BatchInterval(),
		DebounceDelay:       cfg.DebounceDelay(),
		MaxRetries:          cfg.SyncMaxRetries,
		RetryDelay:          cfg.RetryDelay(),
	}, logger)
	if err := trigger.Start(ctx); err != nil {
		logger.Fatal(ctx, "Failed to start trigger manager", err)
	}
	defer trigger.Cleanup()

	// HTTP surface.
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	syncapi.NewSyncAPI(service, trigger, logger).RegisterRoutes(e)

	go func() {
		if err := e.Start(":" + cfg.HTTPPort); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "HTTP server failed", err)
		}
	}()
	logger.Info(ctx, "HTTP server listening", map[string]any{"port": cfg.HTTPPort})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info(ctx, "Shutting down")

	trigger.Cleanup()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "HTTP server shutdown failed", err)
	}
}
