package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/clinic-matching-server/internal/api"
	"github.com/clinic-matching-server/internal/cache"
	"github.com/clinic-matching-server/internal/config"
	"github.com/clinic-matching-server/internal/database"
	"github.com/clinic-matching-server/internal/history"
	"github.com/clinic-matching-server/internal/repository"
	"github.com/clinic-matching-server/internal/service"
)

func main() {
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}
	cfg := configManager.GetConfig()

	logger := newLogger(cfg.Logging.Level, cfg.Logging.Format)
	logger.WithFields(logrus.Fields{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Starting clinic matching server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Run migrations before opening the pool.
	runner, err := database.NewMigrationRunner(configManager.GetDatabaseURL(), cfg.Database.MigrationsPath, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create migration runner")
	}
	if err := runner.Up(); err != nil {
		logger.WithError(err).Fatal("Failed to run migrations")
	}
	if err := runner.Close(); err != nil {
		logger.WithError(err).Warn("Failed to close migration runner")
	}

	db, err := database.NewConnection(ctx, cfg.Database, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	userRepo := repository.NewUserRepository(db.Pool, logger)
	answerRepo := repository.NewAnswerRepository(db.Pool, logger)
	testRepo, err := repository.NewTestRepository(db.Pool, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create test repository")
	}

	var resultCache service.ResultCache
	if cfg.Cache.Enabled {
		matchCache, err := cache.NewMatchCache(cfg.Cache, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to redis")
		}
		defer matchCache.Close()
		resultCache = matchCache
	}

	var historyStore history.Store
	if cfg.History.Enabled {
		historyStore, err = openHistoryStore(cfg.History.Driver, cfg.History.Path, configManager)
		if err != nil {
			logger.WithError(err).Fatal("Failed to open history store")
		}
		defer historyStore.Close()
		logger.WithField("driver", cfg.History.Driver).Info("Match run history enabled")
	}

	engine := service.NewMatchingEngine(logger)
	matcher := service.NewMatchingService(logger, userRepo, testRepo, answerRepo, engine, resultCache, historyStore)

	server := api.NewServer(cfg, logger, matcher, testRepo, historyStore, db.Health)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}

func newLogger(level, format string) *logrus.Logger {
	logger := logrus.New()

	parsed, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)

	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logger
}

func openHistoryStore(driver, path string, configManager *config.Manager) (history.Store, error) {
	if driver == "postgres" {
		return history.OpenPostgresStore(configManager.GetDatabaseConnectionString())
	}
	return history.NewSQLiteStore(path)
}
