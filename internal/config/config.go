package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"demounit/internal"
	"demounit/internal/errors"
	"demounit/internal/validation"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	LogLevel   internal.LogLevel
	Database   DatabaseConfig
	Server     ServerConfig
	Validation ValidationConfig
}

// DatabaseConfig selects the score ledger backend.
type DatabaseConfig struct {
	Driver string // sqlite or postgres
	URL    string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port string
}

// ValidationConfig controls how suites are run and scored.
type ValidationConfig struct {
	Concurrency      int
	AbsentPolicy     validation.AbsentPolicy
	ObservationsFile string
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	defaultSQLiteURL = "file:demounit.db?_pragma=busy_timeout(5000)"
)

// Load reads a .env file when present, then the environment, and validates
// the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ConfigInvalid(err.Error()), "failed to read .env")
	}
	return FromEnv()
}

// FromEnv builds the configuration from environment variables only.
func FromEnv() (*Config, error) {
	config := &Config{}

	level, err := loadLogLevel()
	if err != nil {
		return nil, err
	}
	config.LogLevel = level

	dbConfig, err := loadDatabaseConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load database configuration")
	}
	config.Database = *dbConfig

	serverConfig, err := loadServerConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load server configuration")
	}
	config.Server = *serverConfig

	validationConfig, err := loadValidationConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load validation configuration")
	}
	config.Validation = *validationConfig

	return config, nil
}

// Logger returns a logger at the configured level.
func (c *Config) Logger() *internal.Logger {
	return internal.NewLogger(c.LogLevel)
}

func loadLogLevel() (internal.LogLevel, error) {
	value := getEnvOrDefault("LOG_LEVEL", "INFO")
	level, ok := internal.ParseLogLevel(value)
	if !ok {
		return 0, errors.ConfigInvalid(fmt.Sprintf("LOG_LEVEL %q is not one of ERROR, WARN, INFO, DEBUG, TRACE", value))
	}
	return level, nil
}

func loadDatabaseConfig() (*DatabaseConfig, error) {
	driver := strings.ToLower(getEnvOrDefault("DB_DRIVER", DriverSQLite))
	url := os.Getenv("DATABASE_URL")

	switch driver {
	case DriverSQLite:
		if url == "" {
			url = defaultSQLiteURL
		}
	case DriverPostgres:
		if url == "" {
			return nil, errors.ConfigInvalid("DATABASE_URL is required for the postgres driver")
		}
	default:
		return nil, errors.ConfigInvalid(fmt.Sprintf("DB_DRIVER %q is not sqlite or postgres", driver))
	}

	return &DatabaseConfig{Driver: driver, URL: url}, nil
}

func loadServerConfig() (*ServerConfig, error) {
	port := getEnvOrDefault("PORT", "8080")
	if n, err := strconv.Atoi(port); err != nil || n <= 0 || n > 65535 {
		return nil, errors.ConfigInvalid(fmt.Sprintf("PORT %q is not a valid port", port))
	}
	return &ServerConfig{Port: port}, nil
}

func loadValidationConfig() (*ValidationConfig, error) {
	concurrency, err := getEnvIntOrDefault("SUITE_CONCURRENCY", 4)
	if err != nil || concurrency < 1 {
		return nil, errors.ConfigInvalid("SUITE_CONCURRENCY must be a positive integer")
	}

	policy, err := validation.ParseAbsentPolicy(os.Getenv("ABSENT_SCORE_POLICY"))
	if err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, err)
	}

	return &ValidationConfig{
		Concurrency:      concurrency,
		AbsentPolicy:     policy,
		ObservationsFile: getEnvOrDefault("OBSERVATIONS_FILE", ""),
	}, nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) (int, error) {
	if value := os.Getenv(key); value != "" {
		return strconv.Atoi(value)
	}
	return defaultValue, nil
}
