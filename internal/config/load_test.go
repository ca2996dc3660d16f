package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setRequiredEnv fills in the settings that have no defaults. t.Setenv
// restores the environment when the test finishes.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("INKDRAFT_DATABASE_URL", "postgres://localhost:5432/inkdraft_test")
	t.Setenv("INKDRAFT_AUTH_JWT_SECRET", strings.Repeat("s", 32))
	t.Setenv("INKDRAFT_LLM_GEMINI_API_KEY", "test-api-key")
}

func TestLoadWithDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, 60, cfg.Auth.TokenLifetimeMinutes)
	assert.Equal(t, 4, cfg.Queue.JobWorkers)
	assert.Equal(t, 3, cfg.Queue.ItemConcurrency)
	assert.Equal(t, 120, cfg.Queue.ItemTimeoutSeconds)
	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.ModelName)
}

func TestLoadEnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("INKDRAFT_SERVER_PORT", "9090")
	t.Setenv("INKDRAFT_SERVER_LOG_LEVEL", "debug")
	t.Setenv("INKDRAFT_QUEUE_ITEM_CONCURRENCY", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, 5, cfg.Queue.ItemConcurrency)
}

func TestLoadMissingSecrets(t *testing.T) {
	t.Setenv("INKDRAFT_DATABASE_URL", "")
	t.Setenv("INKDRAFT_AUTH_JWT_SECRET", "")
	t.Setenv("INKDRAFT_LLM_GEMINI_API_KEY", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadShortJWTSecret(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("INKDRAFT_AUTH_JWT_SECRET", "too-short")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadInvalidLogLevel(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("INKDRAFT_SERVER_LOG_LEVEL", "verbose")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadItemConcurrencyCap(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("INKDRAFT_QUEUE_ITEM_CONCURRENCY", "50")

	_, err := Load()
	assert.Error(t, err)
}
