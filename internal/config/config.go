package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const defaultTreeCacheTTL = 5 * time.Minute

type Config struct {
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	DBSSLMode  string
	AppPort    string
	AppEnv     string
	JWTSecret  string
	// AutoMigrate applies embedded migrations at server start.
	AutoMigrate bool
	// InternalKey authenticates trusted services via X-Service-Auth.
	InternalKey string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TreeCacheTTL  time.Duration
}

func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:        os.Getenv("DB_HOST"),
		DBUser:        os.Getenv("DB_USER"),
		DBPassword:    os.Getenv("DB_PASSWORD"),
		DBName:        os.Getenv("DB_NAME"),
		DBPort:        envOrDefault("DB_PORT", "5432"),
		DBSSLMode:     envOrDefault("DB_SSLMODE", "disable"),
		AppPort:       envOrDefault("APP_PORT", "8080"),
		AppEnv:        envOrDefault("APP_ENV", "development"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		InternalKey:   os.Getenv("INTERNAL_SECRET_KEY"),
		AutoMigrate:   os.Getenv("AUTO_MIGRATE") == "true",
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		TreeCacheTTL:  defaultTreeCacheTTL,
	}

	if cfg.DBHost == "" {
		return nil, errors.New("DB_HOST is not set")
	}

	if v := os.Getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB %q: %w", v, err)
		}
		cfg.RedisDB = n
	}

	if v := os.Getenv("TREE_CACHE_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid TREE_CACHE_TTL %q: %w", v, err)
		}
		cfg.TreeCacheTTL = ttl
	}

	return cfg, nil
}

// ValidateServer checks settings only the HTTP server depends on.
func (c *Config) ValidateServer() error {
	if c.IsProduction() && c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set in production")
	}
	return nil
}

// DSN returns the lib/pq keyword/value connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode,
	)
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// CacheEnabled reports whether a Redis address was configured.
func (c *Config) CacheEnabled() bool {
	return c.RedisAddr != ""
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
