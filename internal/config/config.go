// Package config handles configuration for the sync engine, including
// defaults, JSON overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the sync engine.
//
// Fields:
//   - DatabaseDSN: SQLite DSN for the local store.
//   - AppSecret: secret the credential guard derives its sealing key from.
//     Do not use test defaults in prod.
//   - IdentityBaseURL / IdentityAPIKey: REST identity provider settings.
//   - DocsBaseURL / DocsAuthToken: remote document store settings.
//   - S3AccessKey / S3SecretKey / S3Bucket / S3Region / S3BaseEndpoint:
//     object storage settings for binary assets.
//   - OnlineCheckInterval: how often connectivity is probed.
//   - SyncInterval: period of the background synchronization timer.
//   - UploadsPerSecond: rate limit applied to asset uploads.
//   - LogFile: path of the rotated JSON log; empty logs to stdout only.
type Config struct {
	DatabaseDSN         string
	AppSecret           string
	IdentityBaseURL     string
	IdentityAPIKey      string
	DocsBaseURL         string
	DocsAuthToken       string
	S3AccessKey         string
	S3SecretKey         string
	S3Bucket            string
	S3Region            string
	S3BaseEndpoint      string
	OnlineCheckInterval time.Duration
	SyncInterval        time.Duration
	UploadsPerSecond    float64
	LogFile             string
}

// LoadDefaults populates Config with sensible development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.DatabaseDSN = "syncengine.db"
	c.AppSecret = "secretKey"
	c.IdentityBaseURL = "http://127.0.0.1:9099/v1"
	c.IdentityAPIKey = "dev-api-key"
	c.DocsBaseURL = "http://127.0.0.1:8080/v1"
	c.DocsAuthToken = ""
	c.S3AccessKey = "admin"
	c.S3SecretKey = "secretpassword"
	c.S3Bucket = "assets"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
	c.OnlineCheckInterval = 3 * time.Second
	c.SyncInterval = 5 * time.Minute
	c.UploadsPerSecond = 2
	c.LogFile = ""
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
