// Package bootstrap turns loaded configuration into the clients and components the
// services are assembled from.
package bootstrap

import (
	"log/slog"
	"time"

	"github.com/cuongbtq/scout-jobs/internal/analytics"
	"github.com/cuongbtq/scout-jobs/internal/config"
	"github.com/cuongbtq/scout-jobs/internal/jobs"
	"github.com/cuongbtq/scout-jobs/internal/market"
	"github.com/cuongbtq/scout-jobs/internal/players"
	"github.com/cuongbtq/scout-jobs/internal/scout"
	"github.com/cuongbtq/scout-jobs/internal/tasks"
	"github.com/cuongbtq/scout-jobs/shared/logger"
	"github.com/cuongbtq/scout-jobs/shared/postgresql"
	"github.com/cuongbtq/scout-jobs/shared/rabbitmq"
	"github.com/cuongbtq/scout-jobs/shared/redis"
)

// Logger initializes and configures the application logger
func Logger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	})
}

// PostgreSQL initializes the PostgreSQL database client
func PostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	return postgresql.NewClient(&postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}, logger)
}

// RabbitMQ initializes the RabbitMQ client
func RabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	return rabbitmq.NewClient(RabbitMQConfig(cfg), logger)
}

// RabbitMQConfig maps the file configuration onto the client configuration
func RabbitMQConfig(cfg *config.RabbitMQConfig) *rabbitmq.Config {
	return &rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		QueueName:          cfg.Queue.Name,
		QueueDurable:       cfg.Queue.Durable,
		DeadLetterExchange: cfg.Queue.DeadLetterExchange,
		RoutingKey:         cfg.RoutingKey,
		Prefetch:           cfg.Consumer.PrefetchCount,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		PublishRetries:     cfg.Publish.RetryAttempts,
		PublishRetryDelay:  cfg.Publish.RetryInterval,
	}
}

// Redis initializes the Redis client backing job records and idempotency markers
func Redis(cfg *config.RedisConfig, logger *slog.Logger) (*redis.Client, error) {
	return redis.NewClient(&redis.Config{
		Host:          cfg.Host,
		Port:          cfg.Port,
		Password:      cfg.Password,
		DB:            cfg.DB,
		PoolSize:      cfg.PoolSize,
		DialTimeout:   cfg.DialTimeout,
		ReadTimeout:   cfg.ReadTimeout,
		WriteTimeout:  cfg.WriteTimeout,
		RetryAttempts: cfg.RetryAttempts,
		RetryInterval: cfg.RetryInterval,
	}, logger)
}

// Generator builds the configured scouting report provider
func Generator(cfg *config.ScoutConfig, callTimeout time.Duration) (scout.Generator, error) {
	serviceTimeout := cfg.Service.Timeout
	if serviceTimeout <= 0 {
		serviceTimeout = callTimeout
	}
	return scout.New(scout.Config{
		Provider: cfg.Provider,
		OpenAI: scout.OpenAIConfig{
			APIKey:      cfg.OpenAI.APIKey,
			Model:       cfg.OpenAI.Model,
			BaseURL:     cfg.OpenAI.BaseURL,
			Temperature: cfg.OpenAI.Temperature,
			MaxTokens:   cfg.OpenAI.MaxTokens,
		},
		Service: scout.ServiceConfig{
			BaseURL: cfg.Service.BaseURL,
			Timeout: serviceTimeout,
		},
	})
}

// Analytics builds the analytics service client
func Analytics(cfg *config.AnalyticsConfig, callTimeout time.Duration) (*analytics.Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = callTimeout
	}
	return analytics.NewClient(analytics.Config{
		BaseURL: cfg.BaseURL,
		Timeout: timeout,
	})
}

// Policy converts the retry section into a retry policy
func Policy(cfg *config.RetryConfig) jobs.Policy {
	return jobs.Policy{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.BaseDelay,
		MaxDelay:    cfg.MaxDelay,
	}
}

// ExecutorDeps are the runtime collaborators of an executor
type ExecutorDeps struct {
	Logger    *slog.Logger
	Markers   jobs.MarkerStore
	Players   players.Store
	Generator scout.Generator
	Observer  jobs.Observer
	Now       func() time.Time

	// Insights and InsightCache enable analytics_batch items when both are set
	Insights     analytics.Fetcher
	InsightCache analytics.Cache
}

// Executor assembles the gate, limiter, retry policy and units of work
func Executor(cfg *config.Config, deps ExecutorDeps) *jobs.Executor {
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	pricer := market.NewSimulated(cfg.Market.Swing, now)

	return jobs.NewExecutor(&jobs.ExecutorConfig{
		Logger:      deps.Logger,
		Gate:        jobs.NewGate(deps.Markers, cfg.Idempotency.MarkerTTL, now),
		Limiter:     jobs.NewLimiter(cfg.Worker.Concurrency),
		Policy:      Policy(&cfg.Retry),
		CallTimeout: cfg.Worker.CallTimeout,
		Units: tasks.Units(tasks.Deps{
			Logger:       deps.Logger,
			Players:      deps.Players,
			Pricer:       pricer,
			Generator:    deps.Generator,
			Insights:     deps.Insights,
			InsightCache: deps.InsightCache,
			InsightTTL:   cfg.Analytics.CacheTTL,
		}),
		Observer: deps.Observer,
	})
}
