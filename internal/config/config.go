package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime settings, read from the environment. A local
// .env file is loaded when present so development setups need no exports.
type Config struct {
	DatabaseURL string
	Port        int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool
	ManifestBucket string

	ExpiryHorizon  time.Duration
	SweepInterval  time.Duration
	ResyncInterval time.Duration

	LogLevel string
}

// Load reads configuration from the environment. DATABASE_URL is the only
// required setting; everything else has development defaults matching a
// local docker-compose stack.
func Load() (*Config, error) {
	// Missing .env is fine, env vars may come from the host.
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		Port:           envInt("PORT", 8080),
		RedisAddr:      envString("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        envInt("REDIS_DB", 0),
		MinioEndpoint:  envString("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: envString("MINIO_ACCESS_KEY", "minioadmin"),
		MinioSecretKey: envString("MINIO_SECRET_KEY", "minioadmin"),
		MinioUseSSL:    os.Getenv("MINIO_USE_SSL") == "true",
		ManifestBucket: envString("MINIO_MANIFEST_BUCKET", "intake-manifests"),
		ExpiryHorizon:  time.Duration(envInt("EXPIRY_HORIZON_DAYS", 7)) * 24 * time.Hour,
		SweepInterval:  envDuration("SWEEP_INTERVAL", 24*time.Hour),
		ResyncInterval: envDuration("RESYNC_INTERVAL", time.Hour),
		LogLevel:       envString("LOG_LEVEL", "info"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	return cfg, nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
