package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SERVER_PORT", "")
	t.Setenv("STORAGE_BUCKET", "")

	cfg := Load(filepath.Join(t.TempDir(), "missing.env"))

	assert.Equal(t, ":8080", cfg.GetServerAddr())
	assert.Equal(t, "service-assets", cfg.Storage.Bucket)
	assert.Contains(t, cfg.GetDatabaseConnectionString(), "dbname=collab_lists")
}

func TestLoadFromEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("STORAGE_ENDPOINT=minio:9000\nSTORAGE_USE_SSL=true\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("STORAGE_ENDPOINT")
		os.Unsetenv("STORAGE_USE_SSL")
	})
	t.Setenv("STORAGE_PUBLIC_URL", "")

	cfg := Load(path)

	assert.Equal(t, "minio:9000", cfg.Storage.Endpoint)
	assert.True(t, cfg.Storage.UseSSL)
	assert.Equal(t, "https://minio:9000", cfg.GetStoragePublicURL())
}

func TestDatabaseURLWins(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{URL: "postgres://u@db/x", Host: "ignored"}}
	assert.Equal(t, "postgres://u@db/x", cfg.GetDatabaseConnectionString())
}

func TestValidateReportsMissingKeys(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{Host: "localhost"}}

	err := cfg.Validate()

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingConfig)
	assert.Contains(t, err.Error(), "STORAGE_ENDPOINT")
	assert.Contains(t, err.Error(), "STORAGE_SECRET_KEY")

	cfg.Storage = StorageConfig{Endpoint: "minio:9000", AccessKey: "a", SecretKey: "s"}
	assert.NoError(t, cfg.Validate())
}

func TestValidateReportsInvalidValues(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{URL: "mysql://root@db/lists"},
		Storage: StorageConfig{
			Endpoint:  "http://minio:9000",
			AccessKey: "a",
			SecretKey: "s",
			PublicURL: "cdn.example.com",
		},
	}

	err := cfg.Validate()

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.NotErrorIs(t, err, ErrMissingConfig)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "STORAGE_ENDPOINT")
	assert.Contains(t, err.Error(), "STORAGE_PUBLIC_URL")

	cfg.Database.URL = "postgres://u:p@db:5432/lists?sslmode=disable"
	cfg.Storage.Endpoint = "minio:9000"
	cfg.Storage.PublicURL = "https://cdn.example.com/assets"
	assert.NoError(t, cfg.Validate())
}

func TestValidateMissingBeforeInvalid(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{URL: "mysql://root@db/lists"}}

	err := cfg.Validate()

	assert.ErrorIs(t, err, ErrMissingConfig)
	assert.NotErrorIs(t, err, ErrInvalidConfig)
}

func TestServerSettings(t *testing.T) {
	t.Setenv("SERVER_HOST", "127.0.0.1")
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("CORS_ALLOWED_ORIGIN", "https://lists.example.com")
	t.Setenv("SESSION_SECURE_COOKIE", "true")

	cfg := Load(filepath.Join(t.TempDir(), "missing.env"))

	assert.Equal(t, "127.0.0.1:9000", cfg.GetServerAddr())
	assert.Equal(t, "https://lists.example.com", cfg.Server.AllowedOrigin)
	assert.True(t, cfg.Server.SecureCookies)
}
