package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDevelopmentDefaults(t *testing.T) {
	t.Setenv("GO_ENV", "development")
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/starview_test?sslmode=disable")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Server.GracefulTimeout)
	assert.Equal(t, 50*time.Millisecond, cfg.Database.SlowQueryThreshold)
	assert.Equal(t, 5*time.Minute, cfg.Database.ConnMaxIdleTime)
	assert.Equal(t, 30*time.Second, cfg.Database.HealthCheckInterval)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, 3, cfg.Badges.PinLimit)
}

func TestLoadHonorsOverrides(t *testing.T) {
	t.Setenv("GO_ENV", "development")
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/starview_test?sslmode=disable")
	t.Setenv("SERVER_GRACEFUL_TIMEOUT", "5s")
	t.Setenv("DB_SLOW_QUERY_THRESHOLD", "250ms")
	t.Setenv("DB_CONN_MAX_IDLE_TIME", "10m")
	t.Setenv("DB_HEALTH_CHECK_INTERVAL", "1m")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("BADGE_PIN_LIMIT", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Server.GracefulTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Database.SlowQueryThreshold)
	assert.Equal(t, 10*time.Minute, cfg.Database.ConnMaxIdleTime)
	assert.Equal(t, time.Minute, cfg.Database.HealthCheckInterval)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 5, cfg.Badges.PinLimit)
}

func TestLoadValidation(t *testing.T) {
	t.Run("missing database url", func(t *testing.T) {
		t.Setenv("GO_ENV", "development")
		t.Setenv("DATABASE_URL", "")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DATABASE_URL")
	})

	t.Run("non-positive pin limit", func(t *testing.T) {
		t.Setenv("GO_ENV", "development")
		t.Setenv("DATABASE_URL", "postgres://localhost:5432/starview_test?sslmode=disable")
		t.Setenv("BADGE_PIN_LIMIT", "0")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "BADGE_PIN_LIMIT")
	})
}
