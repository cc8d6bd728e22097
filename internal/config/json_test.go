package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTempJSON(t, map[string]any{
		"database_dsn":          "sync.db",
		"app_secret":            "my_secret_key",
		"identity_base_url":     "https://identity.example.com/v1",
		"identity_api_key":      "api-key",
		"docs_base_url":         "https://docs.example.com/v1",
		"docs_auth_token":       "token",
		"s3_access_key":         "user",
		"s3_secret_key":         "password",
		"s3_bucket":             "bucket",
		"s3_region":             "region",
		"s3_base_endpoint":      "base_endpoint",
		"online_check_interval": "5s",
		"sync_interval":         "2m",
		"uploads_per_second":    4,
		"log_file":              "sync.log",
	})

	t.Run("loads from json", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", path}

		cfg := &Config{}
		parseJson(cfg)

		assert.Equal(t, "sync.db", cfg.DatabaseDSN)
		assert.Equal(t, "my_secret_key", cfg.AppSecret)
		assert.Equal(t, "https://identity.example.com/v1", cfg.IdentityBaseURL)
		assert.Equal(t, "api-key", cfg.IdentityAPIKey)
		assert.Equal(t, "https://docs.example.com/v1", cfg.DocsBaseURL)
		assert.Equal(t, "token", cfg.DocsAuthToken)
		assert.Equal(t, "user", cfg.S3AccessKey)
		assert.Equal(t, "password", cfg.S3SecretKey)
		assert.Equal(t, "bucket", cfg.S3Bucket)
		assert.Equal(t, "region", cfg.S3Region)
		assert.Equal(t, "base_endpoint", cfg.S3BaseEndpoint)
		assert.Equal(t, 5*time.Second, cfg.OnlineCheckInterval)
		assert.Equal(t, 2*time.Minute, cfg.SyncInterval)
		assert.Equal(t, 4.0, cfg.UploadsPerSecond)
		assert.Equal(t, "sync.log", cfg.LogFile)
	})

	t.Run("no config flag means no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{DatabaseDSN: "untouched.db", SyncInterval: 7 * time.Minute}
		parseJson(cfg)

		assert.Equal(t, "untouched.db", cfg.DatabaseDSN)
		assert.Equal(t, 7*time.Minute, cfg.SyncInterval)
	})

	t.Run("unreadable file panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", filepath.Join(t.TempDir(), "missing.json")}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})
}
