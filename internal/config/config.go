package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the reportstore server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Jobs     JobsConfig
	Cache    CacheConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig is optional; when URL is empty the API runs without rate
// limiting.
type RedisConfig struct {
	URL string
}

type JobsConfig struct {
	TTL             time.Duration
	CleanupInterval time.Duration
}

type CacheConfig struct {
	MerchantNameTTL time.Duration
	AIInsightTTL    time.Duration
	QueryResultTTL  time.Duration
	LogoTTL         time.Duration
	CleanupInterval time.Duration
}

// Load reads configuration from environment variables and returns a validated
// Config. Returns an error with a descriptive message if any required value
// is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("REPORTSTORE_PORT", 8080),
			Env:  envString("REPORTSTORE_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 1),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Jobs: JobsConfig{
			TTL:             envDuration("JOB_TTL", 24*time.Hour),
			CleanupInterval: envDuration("JOB_CLEANUP_INTERVAL", time.Hour),
		},
		Cache: CacheConfig{
			MerchantNameTTL: envDuration("CACHE_MERCHANT_NAME_TTL", 30*24*time.Hour),
			AIInsightTTL:    envDuration("CACHE_AI_INSIGHT_TTL", 7*24*time.Hour),
			QueryResultTTL:  envDuration("CACHE_QUERY_RESULT_TTL", 24*time.Hour),
			LogoTTL:         envDuration("CACHE_LOGO_TTL", 60*24*time.Hour),
			CleanupInterval: envDuration("CACHE_CLEANUP_INTERVAL", 6*time.Hour),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("DATABASE_MAX_OPEN_CONNS must be at least 1, got %d", c.Database.MaxOpenConns)
	}
	if c.Jobs.TTL <= 0 {
		return fmt.Errorf("JOB_TTL must be positive, got %s", c.Jobs.TTL)
	}
	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
