package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Gateway  GatewayConfig
	Scanner  ScannerConfig
	Sentry   SentryConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL          string
	Password     string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolTimeout  time.Duration
}

// GatewayConfig holds payment gateway client configuration
type GatewayConfig struct {
	StripeAPIKey       string
	WebhookSecret      string
	Timeout            time.Duration
	RetryDelay         time.Duration
	MaxRecoveryRetries int
}

// ScannerConfig holds expiry scanner configuration
type ScannerConfig struct {
	HorizonDays int
	UrgentDays  int
	Cron        string
}

// SentryConfig holds Sentry configuration
type SentryConfig struct {
	DSN         string
	Environment string
	Release     string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// .env file is optional for production (env vars are used)
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDatabaseDefaults(&cfg.Database)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server_port", 8080)
	viper.SetDefault("server_read_timeout", 10*time.Second)
	viper.SetDefault("server_write_timeout", 10*time.Second)
	viper.SetDefault("server_shutdown_timeout", 30*time.Second)

	// Redis defaults
	viper.SetDefault("redis_pool_size", 10)
	viper.SetDefault("redis_min_idle_conns", 3)
	viper.SetDefault("redis_dial_timeout", 5*time.Second)
	viper.SetDefault("redis_read_timeout", 3*time.Second)
	viper.SetDefault("redis_write_timeout", 3*time.Second)
	viper.SetDefault("redis_pool_timeout", 4*time.Second)

	// Gateway defaults
	viper.SetDefault("gateway_timeout", 15*time.Second)
	viper.SetDefault("gateway_retry_delay", 4*time.Hour)
	viper.SetDefault("gateway_max_recovery_retries", 3)

	// Scanner defaults
	viper.SetDefault("scanner_horizon_days", 30)
	viper.SetDefault("scanner_urgent_days", 7)
	viper.SetDefault("scanner_cron", "0 6 * * *")
}

// applyDatabaseDefaults fills unset pool-sizing fields so the pool never
// starts with zero connections.
func applyDatabaseDefaults(cfg *DatabaseConfig) {
	defaults := DefaultDatabaseConfig()
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = defaults.MaxConnections
	}
	if cfg.MinConnections <= 0 {
		cfg.MinConnections = defaults.MinConnections
	}
	if cfg.MaxLifetime <= 0 {
		cfg.MaxLifetime = defaults.MaxLifetime
	}
	if cfg.MaxIdleTime <= 0 {
		cfg.MaxIdleTime = defaults.MaxIdleTime
	}
	if cfg.HealthCheck <= 0 {
		cfg.HealthCheck = defaults.HealthCheck
	}
}

func validate(cfg *Config) error {
	if cfg.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}
	if cfg.Gateway.StripeAPIKey == "" {
		return fmt.Errorf("GATEWAY_STRIPE_API_KEY is required")
	}
	if cfg.Scanner.UrgentDays > cfg.Scanner.HorizonDays {
		return fmt.Errorf("SCANNER_URGENT_DAYS must not exceed SCANNER_HORIZON_DAYS")
	}
	return nil
}
