// Package setup bootstraps the shared dependencies of every binary.
package setup

import (
	"context"
	"fmt"
	"log"

	"github.com/kwservices/xptracker/internal/database"
	"github.com/kwservices/xptracker/internal/database/migrations"
	"github.com/kwservices/xptracker/internal/metrics"
	"github.com/kwservices/xptracker/internal/redis"
	"github.com/kwservices/xptracker/internal/setup/client"
	"github.com/kwservices/xptracker/internal/setup/config"
	"github.com/kwservices/xptracker/internal/setup/telemetry"
	"github.com/kwservices/xptracker/internal/stats"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"
)

// Version is the build version reported with traces. Set with -ldflags at build time.
var Version = "dev"

// App bundles all core dependencies and services needed by the application.
type App struct {
	Config       *config.Config     // Application configuration
	Logger       *zap.Logger        // Main application logger
	DBLogger     *zap.Logger        // Database-specific logger
	DB           database.Client    // Database connection pool
	RedisManager *redis.Manager     // Redis connection manager
	Stats        *stats.Client      // Stats API client
	Metrics      *metrics.Registry  // Prometheus metrics
	LogManager   *telemetry.Manager // Log management system
	debugServer  *debugServer       // Debug HTTP server for pprof and metrics
	stopTracing  func(context.Context)
}

// InitializeApp bootstraps all application dependencies in the correct order.
// Workers pass their type so each gets its own component name.
func InitializeApp(
	ctx context.Context, serviceType telemetry.ServiceType, logDir string, workerType ...string,
) (*App, error) {
	cfg, _, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	var wType string
	if len(workerType) > 0 {
		wType = workerType[0]
	}

	// Logging comes first to capture setup issues
	logManager := telemetry.NewManager(serviceType, logDir, &cfg.Common.Debug, wType)
	if cfg.Common.Uptrace.DSN != "" {
		logManager.EnableTracing()
	}

	logger, dbLogger, err := logManager.GetLoggers()
	if err != nil {
		return nil, err
	}

	logger.Info("Starting",
		zap.String("version", Version),
		zap.String("instanceID", logManager.GetInstanceID()),
		zap.String("sessionDir", logManager.GetCurrentSessionDir()))

	stopTracing := telemetry.ConfigureTracing(&cfg.Common.Uptrace, logManager.ComponentName(), Version, logger)

	redisManager := redis.NewManager(&cfg.Common.Redis, logger)

	db, err := checkAndRunMigrations(ctx, &cfg.Common.PostgreSQL, dbLogger)
	if err != nil {
		redisManager.Close()
		return nil, err
	}

	clients, err := client.GetStatsClients(&cfg.Common, redisManager, logger, serviceType.GetRequestTimeout(cfg))
	if err != nil {
		_ = db.Close()
		redisManager.Close()

		return nil, err
	}

	registry := metrics.New(logManager.ComponentName())

	var debugSrv *debugServer

	if cfg.Common.Debug.EnableDebugServer {
		srv, err := startDebugServer(cfg.Common.Debug.DebugPort, registry.Handler(), logger)
		if err != nil {
			logger.Error("Failed to start debug server", zap.Error(err))
		} else {
			debugSrv = srv

			logger.Warn("Debug server enabled - this should not be used in production!")
		}
	}

	return &App{
		Config:       cfg,
		Logger:       logger,
		DBLogger:     dbLogger.Named("database"),
		DB:           db,
		RedisManager: redisManager,
		Stats:        stats.New(clients.Live, clients.Resolve, cfg.Common.Stats.BaseURL, logger),
		Metrics:      registry,
		LogManager:   logManager,
		debugServer:  debugSrv,
		stopTracing:  stopTracing,
	}, nil
}

// Cleanup shuts down all components in reverse initialization order.
// Errors are logged so every component gets a cleanup attempt.
func (s *App) Cleanup(ctx context.Context) {
	if s.debugServer != nil {
		if err := s.debugServer.srv.Shutdown(ctx); err != nil {
			s.Logger.Error("Failed to shutdown debug server", zap.Error(err))
		}

		s.debugServer.listener.Close()
	}

	// Flush pending spans before the loggers go away
	s.stopTracing(ctx)

	if err := s.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	if err := s.DBLogger.Sync(); err != nil {
		log.Printf("Failed to sync DB logger: %v", err)
	}

	if err := s.DB.Close(); err != nil {
		log.Printf("Failed to close database connection: %v", err)
	}

	// Redis goes last as other components might need it during cleanup
	s.RedisManager.Close()
}

// checkAndRunMigrations asks before applying pending database migrations.
func checkAndRunMigrations(ctx context.Context, cfg *config.PostgreSQL, dbLogger *zap.Logger) (database.Client, error) {
	tempDB, err := database.NewConnection(ctx, cfg, dbLogger, false)
	if err != nil {
		return nil, err
	}

	migrator := migrate.NewMigrator(tempDB.DB(), migrations.Migrations)

	ms, err := migrator.MigrationsWithStatus(ctx)
	if err != nil {
		tempDB.Close()
		return nil, fmt.Errorf("failed to check migration status: %w", err)
	}

	if len(ms.Unapplied()) == 0 {
		return tempDB, nil
	}

	log.Println("Database migrations are pending. Would you like to run them now? (y/N)")

	var response string

	_, _ = fmt.Scanln(&response)

	if response != "y" && response != "Y" {
		tempDB.Close()
		log.Fatalf("Closing program due to incomplete migrations")
	}

	tempDB.Close()

	return database.NewConnection(ctx, cfg, dbLogger, true)
}
