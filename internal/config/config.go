package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/trogers1052/vault-valuation-service/internal/fees"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `envPrefix:"SERVER_"`
	Database DatabaseConfig `envPrefix:"DB_"`
	Kafka    KafkaConfig    `envPrefix:"KAFKA_"`
	Redis    RedisConfig    `envPrefix:"REDIS_"`
	Oracle   OracleConfig   `envPrefix:"ORACLE_"`
	Fees     FeesConfig     `envPrefix:"FEE_"`
	Batch    BatchConfig    `envPrefix:"BATCH_"`
	Log      LogConfig      `envPrefix:"LOG_"`

	MigrationsPath  string `env:"MIGRATIONS_PATH" envDefault:"db/migrations"`
	ReserveAssetKey string `env:"RESERVE_ASSET_KEY" envDefault:"USDC"`

	// Zero keeps price ticks forever
	TickRetentionDays int `env:"TICK_RETENTION_DAYS" envDefault:"0"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string `env:"PORT" envDefault:"8080"`
	Host string `env:"HOST" envDefault:"0.0.0.0"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     string `env:"PORT" envDefault:"5432"`
	User     string `env:"USER" envDefault:"postgres"`
	Password string `env:"PASSWORD" envDefault:"postgres"`
	DBName   string `env:"NAME" envDefault:"vaultservice"`
	SSLMode  string `env:"SSLMODE" envDefault:"disable"`
}

// KafkaConfig holds Kafka configuration. An empty broker list disables
// tick ingestion and accrual events.
type KafkaConfig struct {
	Brokers   []string `env:"BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	TickTopic string   `env:"TICK_TOPIC" envDefault:"price-ticks"`
	FeeTopic  string   `env:"FEE_TOPIC" envDefault:"fee-accruals"`
	GroupID   string   `env:"GROUP_ID" envDefault:"vault-valuation-service"`
}

// RedisConfig holds the distributed batch lock settings. An empty URL keeps
// the batch guard process-local.
type RedisConfig struct {
	URL        string `env:"URL"`
	LockKey    string `env:"LOCK_KEY" envDefault:"vault-valuation:fee-batch"`
	LockTTLSec int    `env:"LOCK_TTL_SEC" envDefault:"900"`

	LockTTL time.Duration `env:"-"`
	// LockRefresh renews the lock while a batch runs, a third of LockTTL
	LockRefresh time.Duration `env:"-"`
}

// OracleConfig holds price oracle client settings
type OracleConfig struct {
	BaseURL     string `env:"BASE_URL" envDefault:"https://lite-api.jup.ag"`
	APIKey      string `env:"API_KEY"`
	BatchSize   int    `env:"BATCH_SIZE" envDefault:"50"`
	MaxRetries  int    `env:"MAX_RETRIES" envDefault:"5"`
	BaseDelayMs int    `env:"BASE_DELAY_MS" envDefault:"1000"`
	TimeoutSec  int    `env:"TIMEOUT_SEC" envDefault:"10"`

	BaseDelay time.Duration `env:"-"`
	Timeout   time.Duration `env:"-"`
}

// FeesConfig holds the platform fee schedule and the creator/platform split
type FeesConfig struct {
	CreatorRatioBps     int `env:"CREATOR_RATIO_BPS" envDefault:"7000"`
	PlatformRatioBps    int `env:"PLATFORM_RATIO_BPS" envDefault:"3000"`
	EntryFeeBps         int `env:"ENTRY_BPS" envDefault:"25"`
	ExitFeeBps          int `env:"EXIT_BPS" envDefault:"25"`
	MinManagementFeeBps int `env:"MIN_MANAGEMENT_BPS" envDefault:"50"`
	MaxManagementFeeBps int `env:"MAX_MANAGEMENT_BPS" envDefault:"300"`
}

// BatchConfig holds the fee accrual batch job settings
type BatchConfig struct {
	IntervalMin  int `env:"INTERVAL_MIN" envDefault:"60"`
	VaultDelayMs int `env:"VAULT_DELAY_MS" envDefault:"2000"`

	Interval   time.Duration `env:"-"`
	VaultDelay time.Duration `env:"-"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `env:"LEVEL" envDefault:"info"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	for i := range cfg.Kafka.Brokers {
		cfg.Kafka.Brokers[i] = strings.TrimSpace(cfg.Kafka.Brokers[i])
	}
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))

	cfg.Redis.LockTTL = time.Duration(cfg.Redis.LockTTLSec) * time.Second
	cfg.Redis.LockRefresh = cfg.Redis.LockTTL / 3
	cfg.Oracle.BaseDelay = time.Duration(cfg.Oracle.BaseDelayMs) * time.Millisecond
	cfg.Oracle.Timeout = time.Duration(cfg.Oracle.TimeoutSec) * time.Second
	cfg.Batch.Interval = time.Duration(cfg.Batch.IntervalMin) * time.Minute
	cfg.Batch.VaultDelay = time.Duration(cfg.Batch.VaultDelayMs) * time.Millisecond

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Fees.Split().Validate(); err != nil {
		return err
	}
	if err := c.Fees.Schedule().Validate(); err != nil {
		return err
	}

	if c.Oracle.BaseURL == "" {
		return fmt.Errorf("oracle base URL must be set")
	}
	if c.Oracle.BatchSize <= 0 {
		return fmt.Errorf("oracle batch size must be positive")
	}
	if c.Oracle.MaxRetries < 0 {
		return fmt.Errorf("oracle max retries cannot be negative")
	}
	if c.Oracle.BaseDelay < 0 {
		return fmt.Errorf("oracle base delay cannot be negative")
	}
	if c.Oracle.Timeout <= 0 {
		return fmt.Errorf("oracle timeout must be positive")
	}

	if c.Batch.Interval <= 0 {
		return fmt.Errorf("batch interval must be positive")
	}
	if c.Batch.VaultDelay < 0 {
		return fmt.Errorf("batch vault delay cannot be negative")
	}
	if c.Redis.URL != "" && c.Redis.LockTTL <= 0 {
		return fmt.Errorf("redis lock TTL must be positive")
	}

	if c.TickRetentionDays < 0 {
		return fmt.Errorf("tick retention cannot be negative")
	}
	if c.ReserveAssetKey == "" {
		return fmt.Errorf("reserve asset key must be set")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}

	return nil
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

// Enabled reports whether any broker is configured
func (k *KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0 && k.Brokers[0] != ""
}

// Split returns the configured creator/platform fee split
func (f FeesConfig) Split() fees.Split {
	return fees.Split{CreatorBps: f.CreatorRatioBps, PlatformBps: f.PlatformRatioBps}
}

// Schedule returns the configured platform fee schedule
func (f FeesConfig) Schedule() fees.Schedule {
	return fees.Schedule{
		EntryFeeBps:         f.EntryFeeBps,
		ExitFeeBps:          f.ExitFeeBps,
		MinManagementFeeBps: f.MinManagementFeeBps,
		MaxManagementFeeBps: f.MaxManagementFeeBps,
	}
}
