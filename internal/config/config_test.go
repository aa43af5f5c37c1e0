package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/bricks/internal/mq"
	"github.com/shaiso/bricks/internal/repo"
)

// clearEnv сбрасывает переменные, которые читает Load.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"DB_URL", "RABBITMQ_URL", "API_PORT", "WORKER_PORT", "RUN_TIMEOUT_SEC", "WORKER_PREFETCH"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, repo.DefaultDSN, cfg.DatabaseURL)
	assert.Equal(t, mq.DefaultURL(), cfg.RabbitMQURL)
	assert.Equal(t, DefaultAPIPort, cfg.APIPort)
	assert.Equal(t, DefaultWorkerPort, cfg.WorkerPort)
	assert.Equal(t, DefaultRunTimeout, cfg.RunTimeout)
	assert.Equal(t, DefaultWorkerPrefetch, cfg.WorkerPrefetch)
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), ".env")
	content := "API_PORT=9000\nRUN_TIMEOUT_SEC=5\nDB_URL=postgres://file\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	// Окружение важнее файла
	t.Setenv("DB_URL", "postgres://env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.APIPort)
	assert.Equal(t, 5*time.Second, cfg.RunTimeout)
	assert.Equal(t, "postgres://env", cfg.DatabaseURL)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"RUN_TIMEOUT_SEC", "soon"},
		{"RUN_TIMEOUT_SEC", "-1"},
		{"WORKER_PREFETCH", "many"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			assert.ErrorContains(t, err, tt.key)
		})
	}
}
