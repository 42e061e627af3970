package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"starview/internal/config"
	"starview/internal/database"
	"starview/internal/monitoring"
	"starview/internal/response"
	"starview/internal/router"
	"starview/internal/services"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(&cfg.Logging)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	logger.Info("Starting Starview badge engine")
	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
	)

	dbManager, err := database.NewManager(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbManager.Close()

	if cfg.Database.MigrationsPath != "" {
		if err := dbManager.Migrate(cfg.Database.MigrationsPath); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
	}

	healthCtx, healthCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := dbManager.Health(healthCtx); err != nil {
		healthCancel()
		logger.Fatal("Database is not healthy", zap.Error(err))
	}
	healthCancel()
	logger.Info("Database initialized successfully")

	serviceCollection, err := services.NewServiceCollection(dbManager, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}

	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := serviceCollection.Start(startCtx); err != nil {
		startCancel()
		logger.Fatal("Failed to start services", zap.Error(err))
	}
	startCancel()

	responseConfig := response.DefaultConfig()
	responseConfig.MaskInternalErrors = cfg.Server.Environment == "production"
	responseBuilder := response.NewBuilder(responseConfig, logger)

	handler := router.SetupRouter(serviceCollection, responseBuilder, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server",
			zap.String("address", server.Addr),
			zap.String("environment", cfg.Server.Environment),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Shutting down application...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := serviceCollection.Shutdown(shutdownCtx); err != nil {
		logger.Error("Service shutdown reported errors", zap.Error(err))
	}

	metrics := dbManager.Metrics()
	var totalQueries, totalErrors int64
	for _, count := range metrics.QueryCounts {
		totalQueries += count
	}
	for _, count := range metrics.ErrorCounts {
		totalErrors += count
	}
	logger.Info("Final database metrics",
		zap.Int64("total_queries", totalQueries),
		zap.Int64("total_errors", totalErrors),
		zap.Int64("slow_queries", metrics.SlowQueries),
	)

	logger.Info("Application shutdown completed")
}

func initLogger(cfg *config.LoggingConfig) (*zap.Logger, error) {
	zapConfig := zap.NewDevelopmentConfig()
	if monitoring.Environment() == "production" {
		zapConfig = zap.NewProductionConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	zapConfig.Level = level
	zapConfig.Encoding = cfg.Format

	return zapConfig.Build()
}
