package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cuongbtq/scout-jobs/internal/bootstrap"
	"github.com/cuongbtq/scout-jobs/internal/config"
	"github.com/cuongbtq/scout-jobs/internal/metrics"
	"github.com/cuongbtq/scout-jobs/internal/players"
	"github.com/cuongbtq/scout-jobs/internal/queue"
	"github.com/cuongbtq/scout-jobs/internal/store/redisstore"
	"github.com/cuongbtq/scout-jobs/internal/worker"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("WORKER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/worker-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateWorkerConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := bootstrap.Logger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting worker service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.Int("concurrency", cfg.Worker.Concurrency),
		slog.String("scout_provider", cfg.Scout.Provider),
	)

	dbClient, err := bootstrap.PostgreSQL(&cfg.Database, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbClient.Close()

	playerStore := players.NewPostgres(dbClient.GetDB())
	if cfg.Database.EnsureSchema {
		if err := playerStore.EnsureSchema(context.Background()); err != nil {
			return fmt.Errorf("failed to ensure players schema: %w", err)
		}
	}

	redisClient, err := bootstrap.Redis(&cfg.Redis, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	defer redisClient.Close()

	rabbitClient, err := bootstrap.RabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}
	defer rabbitClient.Close()

	generator, err := bootstrap.Generator(&cfg.Scout, cfg.Worker.CallTimeout)
	if err != nil {
		return fmt.Errorf("failed to initialize scouting report provider: %w", err)
	}

	analyticsClient, err := bootstrap.Analytics(&cfg.Analytics, cfg.Worker.CallTimeout)
	if err != nil {
		return fmt.Errorf("failed to initialize analytics client: %w", err)
	}

	executor := bootstrap.Executor(cfg, bootstrap.ExecutorDeps{
		Logger:       appLogger.Component("executor"),
		Markers:      redisstore.NewMarkers(redisClient.GetClient()),
		Players:      playerStore,
		Generator:    generator,
		Observer:     metrics.Observer{},
		Insights:     analyticsClient,
		InsightCache: redisstore.NewInsights(redisClient.GetClient()),
	})

	pool := worker.NewPool(&worker.Config{
		Logger:      appLogger.Component("worker"),
		Queue:       queue.NewRabbitMQ(rabbitClient, cfg.RabbitMQ.Consumer.Tag, appLogger.Component("queue")),
		Executor:    executor,
		Records:     redisstore.NewRecords(redisClient.GetClient()),
		Concurrency: cfg.Worker.Concurrency,
	})

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.StartMetricsServer(cfg.Metrics.Addr, appLogger.Logger)
	}

	if err := pool.Start(context.Background()); err != nil {
		return fmt.Errorf("failed to start worker pool: %w", err)
	}

	appLogger.Info("Worker service started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	stopped := make(chan struct{})
	go func() {
		pool.Wait()
		close(stopped)
	}()

	var runErr error
	select {
	case sig := <-quit:
		appLogger.Info("Received signal, shutting down gracefully",
			slog.String("signal", sig.String()),
		)
	case <-stopped:
		runErr = poolExited(pool.Err())
		appLogger.Error("Worker pool exited on its own, shutting down",
			slog.String("error", runErr.Error()),
		)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		pool.Stop()
		close(done)
	}()

	select {
	case <-done:
		appLogger.Info("Worker stopped gracefully")
	case <-shutdownCtx.Done():
		appLogger.Warn("Worker shutdown timeout exceeded, forcing exit")
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			appLogger.Warn("Metrics server shutdown failed", slog.Any("error", err))
		}
	}

	appLogger.Info("Worker service shutdown complete")
	return runErr
}

var errPoolExited = errors.New("worker pool exited unexpectedly")

// poolExited is the process error for a pool that stopped without being asked to
func poolExited(cause error) error {
	if cause == nil {
		return errPoolExited
	}
	return fmt.Errorf("%w: %w", errPoolExited, cause)
}
