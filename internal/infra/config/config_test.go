package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dongjiahong/qa-system/internal/infra/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := config.Load()

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "9020", cfg.Port)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.InDelta(t, 0.7, cfg.GenTemperature, 0.001)
	assert.InDelta(t, 0.3, cfg.EvalTemperature, 0.001)
	assert.Equal(t, 4000, cfg.MaxContextLength)
	assert.InDelta(t, 6.0, cfg.CorrectThreshold, 0.001)
	assert.True(t, cfg.WorkerEnabled)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("QUIZ_MAX_RETRIES", "5")
	t.Setenv("QUIZ_GEN_TEMPERATURE", "0.9")
	t.Setenv("ENRICHMENT_WORKER_ENABLED", "false")

	cfg := config.Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.InDelta(t, 0.9, cfg.GenTemperature, 0.001)
	assert.False(t, cfg.WorkerEnabled)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("QUIZ_MAX_RETRIES", "not-a-number")
	t.Setenv("QUIZ_CORRECT_THRESHOLD", "high")

	cfg := config.Load()

	assert.Equal(t, 3, cfg.MaxRetries)
	assert.InDelta(t, 6.0, cfg.CorrectThreshold, 0.001)
}

func TestLoad_SecretFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db_password")
	require.NoError(t, os.WriteFile(path, []byte("s3cret\n"), 0o600))

	t.Setenv("DB_PASSWORD_FILE", path)

	cfg := config.Load()
	assert.Equal(t, "s3cret", cfg.DBPassword)
}
