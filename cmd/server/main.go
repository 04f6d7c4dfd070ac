package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/pa-workflow-server/internal/api"
	"github.com/pa-workflow-server/internal/config"
	"github.com/pa-workflow-server/internal/database"
	"github.com/pa-workflow-server/internal/domain"
	"github.com/pa-workflow-server/internal/llm"
	"github.com/pa-workflow-server/internal/logging"
	"github.com/pa-workflow-server/internal/repository"
	"github.com/pa-workflow-server/internal/service"
	"github.com/pa-workflow-server/internal/vector"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := logging.NewLogger(&cfg.Logging)
	logger.WithField("provider", cfg.LLM.Provider).Info("Starting PA workflow server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage
	db, err := database.NewConnection(ctx, &cfg.Database, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	migrations, err := database.NewMigrationRunner(db, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create migration runner")
	}
	if err := migrations.Up(); err != nil {
		logger.WithError(err).Fatal("Failed to run migrations")
	}

	patientRepo := repository.NewPatientRepository(db, logger)
	coverageRepo := repository.NewCoverageRepository(db, logger)

	// Policy index
	policyIndex := vector.NewIndex(&cfg.Vector, logger)

	// Language model: provider from factory, wrapped with telemetry and the
	// optional redis completion cache
	factory := llm.NewFactory(&cfg.LLM, logger)
	baseModel, err := factory.Default()
	if err != nil {
		logger.WithError(err).Fatal("Failed to create LLM client")
	}

	var model domain.LanguageModel = llm.NewInstrumentedModel(baseModel, logger)
	if cfg.Cache.RedisEnabled {
		opts, err := redis.ParseURL(cfg.Cache.RedisURL)
		if err != nil {
			logger.WithError(err).Fatal("Invalid redis URL")
		}
		redisClient := redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Warn("Redis unreachable, completion cache disabled")
		} else {
			model = llm.NewCachedModel(model, redisClient, cfg.Cache.CompletionTTL, logger)
			logger.Info("LLM completion cache enabled")
		}
	}

	// Services
	coverageService, err := service.NewCoverageService(patientRepo, coverageRepo, cfg.Cache.CoverageCacheSize, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create coverage service")
	}
	retriever := service.NewPolicyRetriever(policyIndex, logger)
	eligibilityService := service.NewEligibilityService(patientRepo, retriever, model, logger)
	formService := service.NewFormService(patientRepo, model, logger)
	orchestrator := service.NewOrchestrator(patientRepo, coverageService, retriever, eligibilityService, formService, logger)

	server := api.NewServer(cfg, coverageService, retriever, eligibilityService, formService, orchestrator, logger)

	// Graceful shutdown on SIGINT/SIGTERM
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
