package config

import (
	"testing"

	"demounit/internal"
	"demounit/internal/errors"
	"demounit/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{"LOG_LEVEL", "DB_DRIVER", "DATABASE_URL", "PORT", "SUITE_CONCURRENCY", "ABSENT_SCORE_POLICY", "OBSERVATIONS_FILE"} {
		t.Setenv(key, "")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, internal.LogLevelInfo, cfg.LogLevel)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, defaultSQLiteURL, cfg.Database.URL)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 4, cfg.Validation.Concurrency)
	assert.Equal(t, validation.AbsentSentinel, cfg.Validation.AbsentPolicy)
	assert.Empty(t, cfg.Validation.ObservationsFile)
}

func TestFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/demounit?sslmode=disable")
	t.Setenv("PORT", "9090")
	t.Setenv("SUITE_CONCURRENCY", "8")
	t.Setenv("ABSENT_SCORE_POLICY", "insufficient_data")
	t.Setenv("OBSERVATIONS_FILE", "obs.yaml")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, internal.LogLevelDebug, cfg.LogLevel)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 8, cfg.Validation.Concurrency)
	assert.Equal(t, validation.AbsentInsufficientData, cfg.Validation.AbsentPolicy)
	assert.Equal(t, "obs.yaml", cfg.Validation.ObservationsFile)
}

func TestFromEnvInvalid(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"LOG_LEVEL", "LOUD"},
		{"DB_DRIVER", "mysql"},
		{"PORT", "http"},
		{"SUITE_CONCURRENCY", "0"},
		{"SUITE_CONCURRENCY", "many"},
		{"ABSENT_SCORE_POLICY", "skip"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := FromEnv()
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
		})
	}
}

func TestPostgresRequiresURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_DRIVER", "postgres")

	_, err := FromEnv()
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}
