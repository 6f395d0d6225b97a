package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"creatorx/internal/market"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Server
	Env  string
	Port string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT
	JWTSecret        string
	JWTExpirationDur time.Duration

	// Pipeline (reward collaborator, payment gateway, feed ingest)
	PipelineAPIKey string

	// Background work
	RepriceInterval  time.Duration
	WorkerCount      int
	TaskMaxAttempts  int
	TaskBaseBackoff  time.Duration
	TaskQueueSize    int
	MarketParamsFile string

	// Market holds the pricing parameters after applying MARKET_PARAMS_FILE.
	Market market.Params
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		Env:  getEnv("ENV", "development"),
		Port: getEnv("PORT", "8080"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "creatorx"),
		DBPassword: getEnv("DB_PASSWORD", "creatorx"),
		DBName:     getEnv("DB_NAME", "creatorx"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret: getEnv("JWT_SECRET", "fallback-secret-key-for-dev-only"),

		PipelineAPIKey: getEnv("PIPELINE_API_KEY", ""),

		JWTExpirationDur: getDuration("JWT_EXPIRES_IN", 15*time.Minute),
		RepriceInterval:  getDuration("REPRICE_INTERVAL", 15*time.Minute),
		WorkerCount:      getInt("WORKER_COUNT", 4),
		TaskMaxAttempts:  getInt("TASK_MAX_ATTEMPTS", 5),
		TaskBaseBackoff:  getDuration("TASK_BASE_BACKOFF", 500*time.Millisecond),
		TaskQueueSize:    getInt("TASK_QUEUE_SIZE", 1024),
		MarketParamsFile: getEnv("MARKET_PARAMS_FILE", ""),
	}

	params, err := LoadMarketParams(config.MarketParamsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load market params: %w", err)
	}
	config.Market = params

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// MigrationURL returns the postgres:// URL golang-migrate expects.
func (c *Config) MigrationURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("Warning: invalid %s value '%s', falling back to %s\n", key, raw, defaultValue)
		return defaultValue
	}
	return d
}

func getInt(key string, defaultValue int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		log.Printf("Warning: invalid %s value '%s', falling back to %d\n", key, raw, defaultValue)
		return defaultValue
	}
	return n
}
