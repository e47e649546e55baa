package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiredFieldMissing(t *testing.T) {
	t.Setenv("DATABASE_FILE_PATH", "")
	t.Setenv("JWT_SECRET", "test-secret-key")
	t.Setenv("CONFIG_FILE", "/nonexistent/config.yaml")

	cfg, err := New()
	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required config")
	assert.Contains(t, err.Error(), "DATABASE_FILE_PATH")
	assert.Contains(t, err.Error(), "database_file_path")
	assert.NotContains(t, err.Error(), "JWT_SECRET")
}

func TestNew_WithEnvVar(t *testing.T) {
	t.Setenv("DATABASE_FILE_PATH", "/tmp/test.db")
	t.Setenv("JWT_SECRET", "test-secret-key")
	t.Setenv("CONFIG_FILE", "/nonexistent/config.yaml")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/test.db", cfg.DatabaseFilePath)
}

func TestNew_WithConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
database_file_path: /data/ludotheque.db
server_port: 8080
database_debug: true
jwt_secret: test-secret-from-file
catalog_sync_interval: 6h
catalog_sync_lookback_days: 30
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	t.Setenv("CONFIG_FILE", configPath)

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "/data/ludotheque.db", cfg.DatabaseFilePath)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.True(t, cfg.DatabaseDebug)
	assert.Equal(t, 6*time.Hour, cfg.CatalogSyncInterval)
	assert.Equal(t, 30*24*time.Hour, cfg.CatalogSyncLookback())
}

func TestNew_EnvVarOverridesConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
database_file_path: /data/from-file.db
server_port: 8080
jwt_secret: test-secret-from-file
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	t.Setenv("CONFIG_FILE", configPath)
	t.Setenv("DATABASE_FILE_PATH", "/data/from-env.db")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("CATALOG_SYNC_BACKOFF", "10s")
	t.Setenv("JOB_RETENTION", "72h")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "/data/from-env.db", cfg.DatabaseFilePath)
	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, 10*time.Second, cfg.CatalogSyncBackoff)
	assert.Equal(t, 72*time.Hour, cfg.JobRetention)
}

func TestNew_Defaults(t *testing.T) {
	t.Setenv("DATABASE_FILE_PATH", "/tmp/test.db")
	t.Setenv("JWT_SECRET", "test-secret-key")
	t.Setenv("CONFIG_FILE", "/nonexistent/config.yaml")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.DatabaseConnectRetryCount)
	assert.Equal(t, 2*time.Second, cfg.DatabaseConnectRetryDelay)
	assert.False(t, cfg.DatabaseDebug)
	assert.Equal(t, "0.0.0.0", cfg.ServerHost)
	assert.Equal(t, 3689, cfg.ServerPort)
	assert.Equal(t, 2, cfg.WorkerProcesses)
	assert.Equal(t, 365, cfg.CatalogSyncLookbackDays)
	assert.Equal(t, 5*time.Second, cfg.CatalogSyncBackoff)
	assert.Equal(t, 5, cfg.CatalogSyncErrorThreshold)
	assert.Equal(t, time.Second, cfg.CatalogSyncRequestInterval)
	assert.Equal(t, 500, cfg.CatalogSyncPageSize)
	assert.Equal(t, 30*24*time.Hour, cfg.JobRetention)
	assert.False(t, cfg.IsTest())
}

func TestNew_CredentialSecretFallsBackToJWTSecret(t *testing.T) {
	t.Setenv("DATABASE_FILE_PATH", "/tmp/test.db")
	t.Setenv("JWT_SECRET", "test-secret-key")
	t.Setenv("CONFIG_FILE", "/nonexistent/config.yaml")

	t.Run("falls back when unset", func(t *testing.T) {
		cfg, err := New()
		require.NoError(t, err)
		assert.Equal(t, "test-secret-key", cfg.CredentialSecret)
	})

	t.Run("uses explicit value", func(t *testing.T) {
		t.Setenv("CREDENTIAL_SECRET", "other-secret")
		cfg, err := New()
		require.NoError(t, err)
		assert.Equal(t, "other-secret", cfg.CredentialSecret)
	})
}

func TestNew_InvalidSyncSettings(t *testing.T) {
	t.Setenv("DATABASE_FILE_PATH", "/tmp/test.db")
	t.Setenv("JWT_SECRET", "test-secret-key")
	t.Setenv("CONFIG_FILE", "/nonexistent/config.yaml")
	t.Setenv("CATALOG_SYNC_ERROR_THRESHOLD", "0")

	cfg, err := New()
	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog_sync_error_threshold")
}

func TestIGDBCredentialsPresent(t *testing.T) {
	cfg := NewForTest()
	assert.False(t, cfg.IGDBCredentialsPresent())

	cfg.IGDBClientID = "id"
	assert.False(t, cfg.IGDBCredentialsPresent())

	cfg.IGDBClientSecret = "secret"
	assert.True(t, cfg.IGDBCredentialsPresent())
}
