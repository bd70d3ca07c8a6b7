// Package config provides environment-driven configuration for agentflow,
// grounded on the teacher's internal/config.Load (env-var loading via
// godotenv, getEnv*/validate shape), trimmed from the teacher's SaaS
// surface (server/auth/redis/file-storage/service-keys) down to the
// sections an embeddable workflow engine actually needs: the optional
// Postgres-backed event journal, structured logging, tracing, and the
// engine-wide defaults a Session falls back to when its own
// configuration surface (§6.5) leaves a field unset.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds agentflow's process-wide configuration.
type Config struct {
	Database DatabaseConfig
	Logging  LoggingConfig
	Tracing  TracingConfig
	Engine   EngineConfig
}

// DatabaseConfig configures the optional execution event journal
// (internal/infrastructure/storage). Unset (empty URL) means the journal
// is disabled and events are only delivered via the in-process stream.
type DatabaseConfig struct {
	URL             string
	MaxConnections  int
	MinConnections  int
	MaxIdleTime     time.Duration
	MaxConnLifetime time.Duration
}

// LoggingConfig configures the structured session logger.
type LoggingConfig struct {
	Level  string
	Format string // "json" or "text"
}

// TracingConfig configures OpenTelemetry span export for node execution.
type TracingConfig struct {
	Enabled     bool
	ServiceName string
}

// EngineConfig holds engine-wide defaults a Session falls back to when a
// field in its own configuration surface (§6.5) is left unset.
type EngineConfig struct {
	DefaultModel         string
	DefaultTimeout       time.Duration
	DefaultMaxIterations int
	DefaultMaxRetries    int
	ContextLimit         int
	WorkflowDir          string
	MemoryDir            string
}

// Load loads configuration from environment variables, falling back to a
// .env file in the working directory if present (teacher idiom: silently
// ignore a missing .env). An unparseable integer, boolean or duration
// value silently falls back to that setting's default.
func Load() (*Config, error) {
	godotenv.Load()

	cfg := &Config{
		Database: DatabaseConfig{
			URL:             getEnv("AGENTFLOW_DATABASE_URL", ""),
			MaxConnections:  getEnvAsInt("AGENTFLOW_DB_MAX_CONNECTIONS", 20),
			MinConnections:  getEnvAsInt("AGENTFLOW_DB_MIN_CONNECTIONS", 5),
			MaxIdleTime:     getEnvAsDuration("AGENTFLOW_DB_MAX_IDLE_TIME", 30*time.Minute),
			MaxConnLifetime: getEnvAsDuration("AGENTFLOW_DB_MAX_CONN_LIFETIME", time.Hour),
		},
		Logging: LoggingConfig{
			Level:  getEnv("AGENTFLOW_LOG_LEVEL", "info"),
			Format: getEnv("AGENTFLOW_LOG_FORMAT", "json"),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvAsBool("AGENTFLOW_TRACING_ENABLED", false),
			ServiceName: getEnv("AGENTFLOW_SERVICE_NAME", "agentflow"),
		},
		Engine: EngineConfig{
			DefaultModel:         getEnv("AGENTFLOW_DEFAULT_MODEL", "gpt-4o-mini"),
			DefaultTimeout:       getEnvAsDuration("AGENTFLOW_DEFAULT_TIMEOUT", 60*time.Second),
			DefaultMaxIterations: getEnvAsInt("AGENTFLOW_DEFAULT_MAX_ITERATIONS", 10),
			DefaultMaxRetries:    getEnvAsInt("AGENTFLOW_DEFAULT_MAX_RETRIES", 3),
			ContextLimit:         getEnvAsInt("AGENTFLOW_CONTEXT_LIMIT", 128000),
			WorkflowDir:          getEnv("AGENTFLOW_WORKFLOW_DIR", "./data/workflows"),
			MemoryDir:            getEnv("AGENTFLOW_MEMORY_DIR", "./data/memory"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the loaded configuration for internally-inconsistent
// values (a bad log level, an impossible connection-pool range).
func (c *Config) Validate() error {
	if c.Database.URL != "" {
		if c.Database.MaxConnections < 1 {
			return fmt.Errorf("database max connections must be at least 1")
		}
		if c.Database.MinConnections < 1 {
			return fmt.Errorf("database min connections must be at least 1")
		}
		if c.Database.MinConnections > c.Database.MaxConnections {
			return fmt.Errorf("database min connections cannot exceed max connections")
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("invalid log format: %s (must be json or text)", c.Logging.Format)
	}

	if c.Engine.DefaultMaxIterations < 1 {
		return fmt.Errorf("default max iterations must be at least 1")
	}
	if c.Engine.ContextLimit < 1 {
		return fmt.Errorf("context limit must be at least 1")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
