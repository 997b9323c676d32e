// Package config collects all environment-driven settings in one place.
package config

import (
	"errors"
	"os"
	"time"
)

// Config holds the runtime configuration for the server process.
type Config struct {
	Port        string
	Environment string

	MongoURI string
	MongoDB  string

	RedisHost     string
	RedisPort     string
	RedisPassword string

	JWTSecret string
	JWTExpiry time.Duration

	AWSRegion  string
	AWSBucket  string
	CDNBaseURL string

	LogLevel string
	LogFile  string

	OTLPEndpoint   string
	TracingEnabled bool
}

// Load reads the configuration from the environment. The caller is expected
// to have run godotenv.Load first.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnvOrDefault("PORT", "5000"),
		Environment: getEnvOrDefault("ENVIRONMENT", "development"),

		MongoURI: os.Getenv("MONGO_URI"),
		MongoDB:  getEnvOrDefault("MONGO_DB", "socialapp"),

		RedisHost:     getEnvOrDefault("REDIS_HOST", "localhost"),
		RedisPort:     getEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		AWSRegion:  getEnvOrDefault("AWS_REGION", "us-east-1"),
		AWSBucket:  os.Getenv("AWS_BUCKET"),
		CDNBaseURL: os.Getenv("CDN_BASE_URL"),

		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		LogFile:  getEnvOrDefault("LOG_FILE", "server.log"),

		OTLPEndpoint:   getEnvOrDefault("OTLP_ENDPOINT", "localhost:4318"),
		TracingEnabled: os.Getenv("TRACING_ENABLED") == "true",
	}

	// Tokens live as long as the auth cookie (15 days, matching the cookie
	// max age set by the auth service).
	expiry, err := time.ParseDuration(getEnvOrDefault("JWT_EXPIRY", "360h"))
	if err != nil {
		return nil, errors.New("invalid JWT_EXPIRY format")
	}
	cfg.JWTExpiry = expiry

	if cfg.MongoURI == "" {
		return nil, errors.New("MONGO_URI is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
