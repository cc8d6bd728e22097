package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, c.DatabaseDSN, "syncengine.db")
	assert.Equal(t, c.AppSecret, "secretKey")
	assert.Equal(t, c.IdentityBaseURL, "http://127.0.0.1:9099/v1")
	assert.Equal(t, c.IdentityAPIKey, "dev-api-key")
	assert.Equal(t, c.DocsBaseURL, "http://127.0.0.1:8080/v1")
	assert.Equal(t, c.DocsAuthToken, "")
	assert.Equal(t, c.S3AccessKey, "admin")
	assert.Equal(t, c.S3SecretKey, "secretpassword")
	assert.Equal(t, c.S3Bucket, "assets")
	assert.Equal(t, c.S3Region, "us-east-1")
	assert.Equal(t, c.S3BaseEndpoint, "http://127.0.0.1:9000/")
	assert.Equal(t, c.OnlineCheckInterval, 3*time.Second)
	assert.Equal(t, c.SyncInterval, 5*time.Minute)
	assert.Equal(t, c.UploadsPerSecond, 2.0)
	assert.Equal(t, c.LogFile, "")
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	c := LoadConfig()

	require.NotNil(t, c, "LoadConfig must not return nil")

	assert.Equal(t, c.DatabaseDSN, "syncengine.db")
	assert.Equal(t, c.AppSecret, "secretKey")
	assert.Equal(t, c.OnlineCheckInterval, 3*time.Second)
	assert.Equal(t, c.SyncInterval, 5*time.Minute)
}
