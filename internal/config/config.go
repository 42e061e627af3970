package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Logging  LoggingConfig
	Badges   BadgeConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host            string
	Port            string
	Environment     string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	GracefulTimeout time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL                 string
	MaxOpenConns        int
	MaxIdleConns        int
	ConnMaxLifetime     time.Duration
	ConnMaxIdleTime     time.Duration
	SlowQueryThreshold  time.Duration
	HealthCheckInterval time.Duration
	MigrationsPath      string
}

// CacheConfig holds progress-cache configuration
type CacheConfig struct {
	Provider      string // "memory", "redis"
	RedisURL      string
	RedisDB       int
	RedisPassword string
	PoolSize      int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// BadgeConfig holds achievement-engine tuning knobs
type BadgeConfig struct {
	// ProgressTTL bounds the staleness window of a cached category view.
	ProgressTTL time.Duration
	// PinLimit caps the pinned selection length.
	PinLimit int
	// MinRatioVotes is the default minimum vote sample before any
	// ratio-keyed badge may be evaluated. Catalog rows may override it.
	MinRatioVotes int
	// QualityRatingFloor is the average rating at which a location starts
	// counting toward quality badges.
	QualityRatingFloor float64
	// BackfillPageSize controls how many users one backfill batch scans.
	BackfillPageSize int
}

// Load reads configuration from the environment, with per-environment
// defaults the way the deployment expects them.
func Load() (*Config, error) {
	env := getEnv("GO_ENV", "development")
	if env != "production" {
		envFile := fmt.Sprintf(".env.%s", env)
		if _, err := os.Stat(envFile); err == nil {
			_ = godotenv.Load(envFile)
		} else {
			_ = godotenv.Load() // fallback to .env
		}
	}

	config := &Config{
		Server:   loadServerConfig(env),
		Database: loadDatabaseConfig(env),
		Cache:    loadCacheConfig(env),
		Logging:  loadLoggingConfig(env),
		Badges:   loadBadgeConfig(),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func loadServerConfig(env string) ServerConfig {
	return ServerConfig{
		Host:            getEnv("SERVER_HOST", "0.0.0.0"),
		Port:            getEnv("PORT", "9000"),
		Environment:     env,
		ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getDurationEnv("SERVER_IDLE_TIMEOUT", 60*time.Second),
		GracefulTimeout: getDurationEnv("SERVER_GRACEFUL_TIMEOUT", 30*time.Second),
	}
}

func loadDatabaseConfig(env string) DatabaseConfig {
	cfg := DatabaseConfig{
		URL:                 getEnv("DATABASE_URL", ""),
		MaxOpenConns:        getIntEnv("DB_MAX_OPEN_CONNS", 0),
		MaxIdleConns:        getIntEnv("DB_MAX_IDLE_CONNS", 0),
		ConnMaxLifetime:     getDurationEnv("DB_CONN_MAX_LIFETIME", 0),
		ConnMaxIdleTime:     getDurationEnv("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		SlowQueryThreshold:  getDurationEnv("DB_SLOW_QUERY_THRESHOLD", 0),
		HealthCheckInterval: getDurationEnv("DB_HEALTH_CHECK_INTERVAL", 30*time.Second),
		MigrationsPath:      getEnv("DB_MIGRATIONS_PATH", ""),
	}

	// Environment-specific pool sizing
	switch env {
	case "production":
		if cfg.MaxOpenConns == 0 {
			cfg.MaxOpenConns = 50
		}
		if cfg.MaxIdleConns == 0 {
			cfg.MaxIdleConns = 20
		}
		if cfg.ConnMaxLifetime == 0 {
			cfg.ConnMaxLifetime = 15 * time.Minute
		}
		if cfg.SlowQueryThreshold == 0 {
			cfg.SlowQueryThreshold = 200 * time.Millisecond
		}
		if cfg.URL != "" && !strings.Contains(cfg.URL, "sslmode=") {
			cfg.URL += "?sslmode=require"
		}
	case "staging":
		if cfg.MaxOpenConns == 0 {
			cfg.MaxOpenConns = 25
		}
		if cfg.MaxIdleConns == 0 {
			cfg.MaxIdleConns = 10
		}
		if cfg.ConnMaxLifetime == 0 {
			cfg.ConnMaxLifetime = 10 * time.Minute
		}
		if cfg.SlowQueryThreshold == 0 {
			cfg.SlowQueryThreshold = 100 * time.Millisecond
		}
	default: // development
		if cfg.MaxOpenConns == 0 {
			cfg.MaxOpenConns = 10
		}
		if cfg.MaxIdleConns == 0 {
			cfg.MaxIdleConns = 5
		}
		if cfg.ConnMaxLifetime == 0 {
			cfg.ConnMaxLifetime = 5 * time.Minute
		}
		if cfg.SlowQueryThreshold == 0 {
			cfg.SlowQueryThreshold = 50 * time.Millisecond
		}
	}

	if cfg.MaxIdleConns > cfg.MaxOpenConns {
		cfg.MaxIdleConns = cfg.MaxOpenConns
	}

	return cfg
}

func loadCacheConfig(env string) CacheConfig {
	provider := getEnv("CACHE_PROVIDER", "")
	if provider == "" {
		if env == "production" || env == "staging" {
			provider = "redis"
		} else {
			provider = "memory"
		}
	}

	return CacheConfig{
		Provider:      provider,
		RedisURL:      getEnv("REDIS_URL", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		PoolSize:      getIntEnv("REDIS_POOL_SIZE", 10),
	}
}

func loadLoggingConfig(env string) LoggingConfig {
	defaultLevel := "debug"
	defaultFormat := "console"
	if env == "production" || env == "staging" {
		defaultLevel = "info"
		defaultFormat = "json"
	}
	return LoggingConfig{
		Level:  getEnv("LOG_LEVEL", defaultLevel),
		Format: getEnv("LOG_FORMAT", defaultFormat),
	}
}

func loadBadgeConfig() BadgeConfig {
	return BadgeConfig{
		ProgressTTL:        getDurationEnv("BADGE_PROGRESS_TTL", 5*time.Minute),
		PinLimit:           getIntEnv("BADGE_PIN_LIMIT", 3),
		MinRatioVotes:      getIntEnv("BADGE_MIN_RATIO_VOTES", 10),
		QualityRatingFloor: getFloatEnv("BADGE_QUALITY_RATING_FLOOR", 4.0),
		BackfillPageSize:   getIntEnv("BADGE_BACKFILL_PAGE_SIZE", 500),
	}
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Cache.Provider == "redis" && c.Cache.RedisURL == "" && c.Server.Environment == "production" {
		return fmt.Errorf("REDIS_URL is required when CACHE_PROVIDER=redis in production")
	}
	if c.Badges.PinLimit <= 0 {
		return fmt.Errorf("BADGE_PIN_LIMIT must be positive")
	}
	if c.Badges.MinRatioVotes < 1 {
		return fmt.Errorf("BADGE_MIN_RATIO_VOTES must be at least 1")
	}
	return nil
}

// ===============================
// ENV HELPERS
// ===============================

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getFloatEnv(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
