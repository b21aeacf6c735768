package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Defaults applied to unset fields
const (
	DefaultConcurrency     = 5
	DefaultMaxAttempts     = 3
	DefaultBaseDelay       = time.Second
	DefaultMaxDelay        = 30 * time.Second
	DefaultCallTimeout     = 30 * time.Second
	DefaultRecordTTL       = time.Hour
	DefaultMarkerTTL       = 24 * time.Hour
	DefaultShutdownTimeout = 30 * time.Second
	DefaultPollInterval    = 500 * time.Millisecond
	DefaultMaxPolls        = 120
	DefaultAnalyticsURL    = "http://localhost:8001"
	DefaultAnalyticsTTL    = time.Hour
)

// Environment variables that override secrets in the file
const (
	EnvOpenAIKey        = "OPENAI_API_KEY"
	EnvDatabasePassword = "DATABASE_PASSWORD"
	EnvRedisPassword    = "REDIS_PASSWORD"
	EnvAnalyticsURL     = "ANALYTICS_URL"
)

// Config represents the complete application configuration
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	RabbitMQ    RabbitMQConfig    `yaml:"rabbitmq"`
	Redis       RedisConfig       `yaml:"redis"`
	Logging     LoggingConfig     `yaml:"logging"`
	App         AppConfig         `yaml:"app"`
	Worker      WorkerConfig      `yaml:"worker"`
	Retry       RetryConfig       `yaml:"retry"`
	Idempotency IdempotencyConfig `yaml:"idempotency"`
	Jobs        JobsConfig        `yaml:"jobs"`
	Scout       ScoutConfig       `yaml:"scout"`
	Market      MarketConfig      `yaml:"market"`
	Analytics   AnalyticsConfig   `yaml:"analytics"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	EnsureSchema    bool          `yaml:"ensure_schema"`
}

// RabbitMQConfig holds RabbitMQ connection and exchange/queue configuration
type RabbitMQConfig struct {
	Host       string           `yaml:"host"`
	Port       int              `yaml:"port"`
	User       string           `yaml:"user"`
	Password   string           `yaml:"password"`
	VHost      string           `yaml:"vhost"`
	Exchange   ExchangeConfig   `yaml:"exchange"`
	Queue      QueueConfig      `yaml:"queue"`
	RoutingKey string           `yaml:"routing_key"`
	Connection ConnectionConfig `yaml:"connection"`
	Publish    PublishConfig    `yaml:"publish"`
	Consumer   ConsumerConfig   `yaml:"consumer"`
}

// ExchangeConfig holds RabbitMQ exchange configuration
type ExchangeConfig struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	Durable bool   `yaml:"durable"`
}

// QueueConfig holds RabbitMQ queue configuration
type QueueConfig struct {
	Name               string `yaml:"name"`
	Durable            bool   `yaml:"durable"`
	DeadLetterExchange string `yaml:"dead_letter_exchange"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryInterval time.Duration `yaml:"retry_interval"`
	Heartbeat     time.Duration `yaml:"heartbeat"`
}

// PublishConfig holds RabbitMQ publish retry settings
type PublishConfig struct {
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryInterval time.Duration `yaml:"retry_interval"`
}

// ConsumerConfig holds RabbitMQ consumer settings
type ConsumerConfig struct {
	Tag           string `yaml:"tag"`
	PrefetchCount int    `yaml:"prefetch_count"`
}

// RedisConfig holds the connection to the store backing job records and idempotency markers
type RedisConfig struct {
	Host          string        `yaml:"host"`
	Port          int           `yaml:"port"`
	Password      string        `yaml:"password"`
	DB            int           `yaml:"db"`
	PoolSize      int           `yaml:"pool_size"`
	DialTimeout   time.Duration `yaml:"dial_timeout"`
	ReadTimeout   time.Duration `yaml:"read_timeout"`
	WriteTimeout  time.Duration `yaml:"write_timeout"`
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryInterval time.Duration `yaml:"retry_interval"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// WorkerConfig holds worker pool configuration
type WorkerConfig struct {
	Concurrency     int           `yaml:"concurrency"`
	CallTimeout     time.Duration `yaml:"call_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// RetryConfig holds the retry policy of units of work
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
}

// IdempotencyConfig holds the lifetime of completion markers
type IdempotencyConfig struct {
	MarkerTTL time.Duration `yaml:"marker_ttl"`
}

// JobsConfig holds job record retention and status polling settings
type JobsConfig struct {
	RecordTTL    time.Duration `yaml:"record_ttl"`
	PollInterval time.Duration `yaml:"poll_interval"`
	MaxPolls     int           `yaml:"max_polls"`
}

// ScoutConfig selects the scouting report provider
type ScoutConfig struct {
	Provider string        `yaml:"provider"`
	OpenAI   OpenAIConfig  `yaml:"openai"`
	Service  ServiceConfig `yaml:"service"`
}

// OpenAIConfig holds OpenAI chat completion settings
type OpenAIConfig struct {
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// ServiceConfig holds the AI report service endpoint
type ServiceConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// MarketConfig holds the market value simulation settings
type MarketConfig struct {
	Swing float64 `yaml:"swing"`
}

// AnalyticsConfig holds the analytics service endpoint and the insight cache lifetime
type AnalyticsConfig struct {
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// MetricsConfig holds the Prometheus endpoint settings
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Load reads and parses the configuration file, then applies environment overrides and defaults
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.ApplyEnv()
	config.ApplyDefaults()

	return &config, nil
}

// ApplyEnv overrides secrets from the environment when set
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvOpenAIKey); v != "" {
		c.Scout.OpenAI.APIKey = v
	}
	if v := os.Getenv(EnvDatabasePassword); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv(EnvRedisPassword); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv(EnvAnalyticsURL); v != "" {
		c.Analytics.BaseURL = v
	}
}

// ApplyDefaults fills unset fields
func (c *Config) ApplyDefaults() {
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.Worker.Concurrency <= 0 {
		c.Worker.Concurrency = DefaultConcurrency
	}
	if c.Worker.CallTimeout <= 0 {
		c.Worker.CallTimeout = DefaultCallTimeout
	}
	if c.Worker.ShutdownTimeout <= 0 {
		c.Worker.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = DefaultMaxAttempts
	}
	if c.Retry.BaseDelay <= 0 {
		c.Retry.BaseDelay = DefaultBaseDelay
	}
	if c.Retry.MaxDelay <= 0 {
		c.Retry.MaxDelay = DefaultMaxDelay
	}
	if c.Idempotency.MarkerTTL <= 0 {
		c.Idempotency.MarkerTTL = DefaultMarkerTTL
	}
	if c.Jobs.RecordTTL <= 0 {
		c.Jobs.RecordTTL = DefaultRecordTTL
	}
	if c.Jobs.PollInterval <= 0 {
		c.Jobs.PollInterval = DefaultPollInterval
	}
	if c.Jobs.MaxPolls <= 0 {
		c.Jobs.MaxPolls = DefaultMaxPolls
	}
	if c.Analytics.BaseURL == "" {
		c.Analytics.BaseURL = DefaultAnalyticsURL
	}
	if c.Analytics.CacheTTL <= 0 {
		c.Analytics.CacheTTL = DefaultAnalyticsTTL
	}
	if c.Scout.Provider == "" {
		c.Scout.Provider = "mock"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
}

// ValidateAPIConfig checks what the API service needs
func (c *Config) ValidateAPIConfig() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateRabbitMQ(); err != nil {
		return err
	}
	return c.validateRedis()
}

// ValidateWorkerConfig checks what the worker service needs
func (c *Config) ValidateWorkerConfig() error {
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateRabbitMQ(); err != nil {
		return err
	}
	if err := c.validateRedis(); err != nil {
		return err
	}
	if err := c.validateExecution(); err != nil {
		return err
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics addr is required when metrics are enabled")
	}

	return nil
}

// ValidateRefreshConfig checks what the standalone refresh command needs
func (c *Config) ValidateRefreshConfig() error {
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateRedis(); err != nil {
		return err
	}
	return c.validateExecution()
}

func (c *Config) validateDatabase() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < MinPort || c.Database.Port > MaxPort {
		return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	return nil
}

func (c *Config) validateRabbitMQ() error {
	if c.RabbitMQ.Host == "" {
		return fmt.Errorf("rabbitmq host is required")
	}

	if c.RabbitMQ.Port < MinPort || c.RabbitMQ.Port > MaxPort {
		return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.RabbitMQ.Port, MinPort, MaxPort)
	}

	if c.RabbitMQ.Exchange.Name == "" {
		return fmt.Errorf("rabbitmq exchange name is required")
	}

	if c.RabbitMQ.Queue.Name == "" {
		return fmt.Errorf("rabbitmq queue name is required")
	}

	return nil
}

func (c *Config) validateRedis() error {
	if c.Redis.Host == "" {
		return fmt.Errorf("redis host is required")
	}

	if c.Redis.Port < MinPort || c.Redis.Port > MaxPort {
		return fmt.Errorf("invalid redis port: %d (must be between %d and %d)", c.Redis.Port, MinPort, MaxPort)
	}

	return nil
}

func (c *Config) validateExecution() error {
	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker concurrency must be greater than 0")
	}

	if c.Worker.CallTimeout <= 0 {
		return fmt.Errorf("worker call_timeout must be greater than 0")
	}

	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry max_attempts must be greater than 0")
	}

	if c.Retry.MaxDelay < c.Retry.BaseDelay {
		return fmt.Errorf("retry max_delay must not be below base_delay")
	}

	switch c.Scout.Provider {
	case "mock":
	case "openai":
		if c.Scout.OpenAI.APIKey == "" {
			return fmt.Errorf("scout openai api_key is required (or set %s)", EnvOpenAIKey)
		}
	case "service":
		if c.Scout.Service.BaseURL == "" {
			return fmt.Errorf("scout service base_url is required")
		}
	default:
		return fmt.Errorf("unknown scout provider: %q", c.Scout.Provider)
	}

	if c.Market.Swing < 0 || c.Market.Swing >= 1 {
		return fmt.Errorf("market swing must be in [0, 1)")
	}

	return nil
}
