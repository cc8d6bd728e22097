package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/modicscan/syncengine/internal/flagx"
	"github.com/modicscan/syncengine/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "3s"
// or as integer nanoseconds. After parsing, values are copied into the
// runtime Config (which uses time.Duration).
type JsonConfig struct {
	DatabaseDSN         string         `json:"database_dsn"`
	AppSecret           string         `json:"app_secret"`
	IdentityBaseURL     string         `json:"identity_base_url"`
	IdentityAPIKey      string         `json:"identity_api_key"`
	DocsBaseURL         string         `json:"docs_base_url"`
	DocsAuthToken       string         `json:"docs_auth_token"`
	S3AccessKey         string         `json:"s3_access_key"`
	S3SecretKey         string         `json:"s3_secret_key"`
	S3Bucket            string         `json:"s3_bucket"`
	S3Region            string         `json:"s3_region"`
	S3BaseEndpoint      string         `json:"s3_base_endpoint"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	SyncInterval        timex.Duration `json:"sync_interval"`
	UploadsPerSecond    float64        `json:"uploads_per_second"`
	LogFile             string         `json:"log_file"`
}

// parseJson overlays Config with values loaded from a JSON file.
//
// Lookup order for the JSON file path:
//  1. Command-line flags (-c or -config) via flagx.JsonConfigFlags().
//  2. If empty, no JSON is loaded and the function returns.
//
// Reads and unmarshals the JSON into JsonConfig and copies known fields
// into the provided Config; panics on read or unmarshal errors. Intended
// usage is: defaults -> parseJson -> parseFlags, where later stages
// override earlier ones.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.DatabaseDSN = c.DatabaseDSN
	config.AppSecret = c.AppSecret
	config.IdentityBaseURL = c.IdentityBaseURL
	config.IdentityAPIKey = c.IdentityAPIKey
	config.DocsBaseURL = c.DocsBaseURL
	config.DocsAuthToken = c.DocsAuthToken
	config.S3AccessKey = c.S3AccessKey
	config.S3SecretKey = c.S3SecretKey
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
	config.OnlineCheckInterval = time.Duration(c.OnlineCheckInterval.Duration)
	config.SyncInterval = time.Duration(c.SyncInterval.Duration)
	config.UploadsPerSecond = c.UploadsPerSecond
	config.LogFile = c.LogFile
}
