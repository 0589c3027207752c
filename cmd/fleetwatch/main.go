// Package main is the entry point for the FleetWatch service.
// It initializes all components and starts the HTTP server, the tag-update
// batch runner, and the suppression scheduler.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pugnascotia/fleetwatch/internal/api"
	"github.com/pugnascotia/fleetwatch/internal/banner"
	"github.com/pugnascotia/fleetwatch/internal/config"
	"github.com/pugnascotia/fleetwatch/internal/es"
	"github.com/pugnascotia/fleetwatch/internal/fleet"
	"github.com/pugnascotia/fleetwatch/internal/notification"
	"github.com/pugnascotia/fleetwatch/internal/queue"
	kafkaqueue "github.com/pugnascotia/fleetwatch/internal/queue/kafka"
	memoryqueue "github.com/pugnascotia/fleetwatch/internal/queue/memory"
	"github.com/pugnascotia/fleetwatch/internal/scheduler"
	"github.com/pugnascotia/fleetwatch/internal/store"
	memorystor "github.com/pugnascotia/fleetwatch/internal/store/memory"
	postgresstor "github.com/pugnascotia/fleetwatch/internal/store/postgres"
	redisstor "github.com/pugnascotia/fleetwatch/internal/store/redis"
	"github.com/pugnascotia/fleetwatch/internal/suppression"
)

func main() {
	banner.Print()

	// Parse command line flags
	configPath := flag.String("config", "config/config.yaml", "path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err, "path", *configPath)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(&cfg.Logger)

	logger.Info("configuration loaded",
		"path", *configPath,
		"storage_mode", cfg.Storage.Mode,
	)

	// Initialize dependencies based on storage mode
	deps, cleanup, err := initDependencies(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize dependencies", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	// Create context that listens for shutdown signals
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Start the tag-update batch runner in background
	go func() {
		if err := deps.runner.Start(ctx); err != nil && ctx.Err() == nil {
			logger.Error("batch runner error", "error", err)
			cancel()
		}
	}()

	// Start the suppression scheduler in background
	go func() {
		if err := deps.scheduler.Start(ctx); err != nil && ctx.Err() == nil {
			logger.Error("scheduler error", "error", err)
			cancel()
		}
	}()

	// Start HTTP server
	go func() {
		if err := deps.server.Start(); err != nil {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	logger.Info("FleetWatch started",
		"address", cfg.Server.Address(),
		"storage_mode", cfg.Storage.Mode,
	)

	// Wait for shutdown signal
	<-ctx.Done()
	logger.Info("shutdown signal received")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer shutdownCancel()

	if err := deps.server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if err := deps.runner.Stop(); err != nil {
		logger.Error("batch runner shutdown error", "error", err)
	}

	logger.Info("FleetWatch stopped")
}

// dependencies holds all initialized service dependencies.
type dependencies struct {
	server    *api.Server
	runner    *fleet.Runner
	scheduler *scheduler.Scheduler
}

// initDependencies creates and wires all service dependencies based on config.
// Returns the dependencies and a cleanup function.
func initDependencies(cfg *config.Config, logger *slog.Logger) (*dependencies, func(), error) {
	var (
		historyStore store.BucketHistoryStore
		ruleRepo     store.SuppressionRuleRepository
		policyRepo   store.AgentPolicyRepository
		producer     queue.Producer
		consumer     queue.Consumer
		cleanupFuncs []func()
	)

	engine, err := es.New(&cfg.Elasticsearch)
	if err != nil {
		return nil, nil, err
	}

	if cfg.Storage.UseMemory() {
		// Initialize in-memory implementations
		logger.Info("initializing in-memory storage")

		memHistory := memorystor.NewBucketHistoryStore()
		historyStore = memHistory
		cleanupFuncs = append(cleanupFuncs, func() { _ = memHistory.Close() })

		ruleRepo = memorystor.NewSuppressionRuleRepository()
		policyRepo = memorystor.NewAgentPolicyRepository()

		memQueue := memoryqueue.NewQueue(10000)
		producer = memQueue
		consumer = memQueue
		cleanupFuncs = append(cleanupFuncs, func() { _ = memQueue.Close() })
	} else {
		// Initialize real storage implementations
		logger.Info("initializing production storage (Kafka, Redis, PostgreSQL)")

		// Initialize PostgreSQL
		ctx := context.Background()
		db, err := postgresstor.NewDB(ctx, &cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		cleanupFuncs = append(cleanupFuncs, db.Close)

		// Run migrations
		if err := db.RunMigrations(ctx); err != nil {
			return nil, nil, err
		}
		logger.Info("database migrations completed")

		ruleRepo = postgresstor.NewSuppressionRuleRepository(db)
		policyRepo = postgresstor.NewAgentPolicyRepository(db)

		// Initialize Redis
		redisHistory, err := redisstor.NewBucketHistoryStore(&cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		historyStore = redisHistory
		cleanupFuncs = append(cleanupFuncs, func() { _ = redisHistory.Close() })

		// Initialize Kafka
		kafkaProducer := kafkaqueue.NewProducer(&cfg.Kafka)
		producer = kafkaProducer
		cleanupFuncs = append(cleanupFuncs, func() { _ = kafkaProducer.Close() })

		kafkaConsumer := kafkaqueue.NewConsumer(&cfg.Kafka, logger)
		consumer = kafkaConsumer
		cleanupFuncs = append(cleanupFuncs, func() { _ = kafkaConsumer.Close() })
	}

	// Initialize the tag-update controller and its batch runner
	fleetService := fleet.NewService(engine, policyRepo, producer, &cfg.Fleet, logger)
	runner := fleet.NewRunner(consumer, fleetService, logger)

	// Initialize the suppression aggregator and scheduler
	notifier := notification.NewLogNotifier(logger)
	aggregator := suppression.NewService(engine, suppression.NewDefaultWrapper(), &cfg.Suppression, logger)
	sched := scheduler.New(ruleRepo, historyStore, aggregator, notifier, cfg.Suppression.Interval, logger)

	// Initialize API handlers
	tagUpdateHandler := api.NewTagUpdateHandler(fleetService, logger)
	suppressionRuleHandler := api.NewSuppressionRuleHandler(ruleRepo, sched, logger)
	alertHandler := api.NewAlertHandler(engine, &cfg.Suppression, logger)

	// Initialize HTTP server
	server := api.NewServer(api.ServerDeps{
		Config:                 &cfg.Server,
		Logger:                 logger,
		TagUpdateHandler:       tagUpdateHandler,
		SuppressionRuleHandler: suppressionRuleHandler,
		AlertHandler:           alertHandler,
	})

	// Build cleanup function
	cleanup := func() {
		for i := len(cleanupFuncs) - 1; i >= 0; i-- {
			cleanupFuncs[i]()
		}
	}

	return &dependencies{
		server:    server,
		runner:    runner,
		scheduler: sched,
	}, cleanup, nil
}

// initLogger creates and configures the application logger.
func initLogger(cfg *config.LoggerConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}
