package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"chiron/pkg/errors"
)

type Config struct {
	App           AppConfig
	Postgres      PostgresConfig
	ClickHouse    ClickHouseConfig
	Redis         RedisConfig
	AI            AIConfig
	Analysis      AnalysisConfig
	ErrorTracking ErrorTrackingConfig
	Workers       WorkerConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"chiron"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" required:"true"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" required:"true"`
	Password string `envconfig:"POSTGRES_PASSWORD" required:"true"`
	Database string `envconfig:"POSTGRES_DB" required:"true"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"25"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

type ClickHouseConfig struct {
	Host     string `envconfig:"CLICKHOUSE_HOST" required:"true"`
	Port     int    `envconfig:"CLICKHOUSE_PORT" default:"9000"`
	User     string `envconfig:"CLICKHOUSE_USER" default:"default"`
	Password string `envconfig:"CLICKHOUSE_PASSWORD"`
	Database string `envconfig:"CLICKHOUSE_DB" default:"marketdata"`
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" required:"true"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type AIConfig struct {
	OpenAIKey     string        `envconfig:"OPENAI_API_KEY"`
	OpenAIModel   string        `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	OpenAITimeout time.Duration `envconfig:"OPENAI_TIMEOUT" default:"30s"`
}

// AnalysisConfig tunes the technical analysis engine.
// Defaults match the monthly-bar configuration used in production.
type AnalysisConfig struct {
	Granularity    string        `envconfig:"ANALYSIS_GRANULARITY" default:"monthly"`
	MinBars        int           `envconfig:"ANALYSIS_MIN_BARS" default:"50"`
	HistoryLimit   int           `envconfig:"ANALYSIS_HISTORY_LIMIT" default:"240"`
	BundleTTL      time.Duration `envconfig:"ANALYSIS_BUNDLE_TTL" default:"720h"`
	FibonacciBars  int           `envconfig:"ANALYSIS_FIBONACCI_BARS" default:"12"`
	LevelLookback  int           `envconfig:"ANALYSIS_LEVEL_LOOKBACK" default:"20"`
	LevelTolerance float64       `envconfig:"ANALYSIS_LEVEL_TOLERANCE" default:"0.015"`
	CacheEnabled   bool          `envconfig:"ANALYSIS_CACHE_ENABLED" default:"true"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"true"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// WorkerConfig contains intervals for all background workers
type WorkerConfig struct {
	// Nightly full refresh of every instrument that carries an active bundle
	RefreshInterval time.Duration `envconfig:"WORKER_REFRESH_INTERVAL" default:"24h"`
	RefreshEnabled  bool          `envconfig:"WORKER_REFRESH_ENABLED" default:"true"`

	// Max recomputations per second during a refresh sweep
	RefreshRateLimit float64 `envconfig:"WORKER_REFRESH_RATE_LIMIT" default:"2"`

	// Metrics endpoint
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9091"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	return &cfg, nil
}
