// Package config provides configuration for essayd.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the service configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Durable store
	DatabaseURL string

	// Ephemeral store
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Model runtime
	ModelURL string

	// Identity
	JWKSURL string

	// Topic suggestion service
	TopicServiceURL string
	TopicsPath      string

	// Model request quota per user per minute
	ModelRateLimitPerMinute int

	// Logging
	LogLevel string
}

// Load loads configuration from a .env file (if present) and the environment.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPPort:                getEnvInt("API_PORT", 8001),
		DatabaseURL:             getEnv("DATABASE_URL", "file:essayd.db?cache=shared&mode=rwc"),
		RedisAddr:               getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:           getEnv("REDIS_PASSWORD", ""),
		RedisDB:                 getEnvInt("REDIS_DB", 0),
		ModelURL:                getEnv("MODEL_URL", "http://localhost:8080"),
		JWKSURL:                 getEnv("JWKS_URL", "http://localhost:8000/.well-known/jwks.json"),
		TopicServiceURL:         getEnv("TOPIC_SERVICE_URL", "http://localhost:4200"),
		TopicsPath:              getEnv("TOPICS_PATH", "all_themes.txt"),
		ModelRateLimitPerMinute: getEnvInt("MODEL_RATE_LIMIT_PER_MINUTE", 30),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
