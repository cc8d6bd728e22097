package config

import (
	"flag"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "Test1 OK", args: []string{"cmd",
			"-d", "sync.db", "-s", "secret",
			"-u", "https://identity.example.com/v1", "-k", "api-key",
			"-o", "https://docs.example.com/v1", "-t", "token",
			"-ak", "user", "-sk", "password", "-b", "bucket", "-g", "us-west-1", "-e", "http://endpoint",
			"-i", "5", "-y", "120", "-l", "sync.log",
		}, expectPanic: false,
			expected: &Config{
				DatabaseDSN:         "sync.db",
				AppSecret:           "secret",
				IdentityBaseURL:     "https://identity.example.com/v1",
				IdentityAPIKey:      "api-key",
				DocsBaseURL:         "https://docs.example.com/v1",
				DocsAuthToken:       "token",
				S3AccessKey:         "user",
				S3SecretKey:         "password",
				S3Bucket:            "bucket",
				S3Region:            "us-west-1",
				S3BaseEndpoint:      "http://endpoint",
				OnlineCheckInterval: 5 * time.Second,
				SyncInterval:        120 * time.Second,
				LogFile:             "sync.log",
			}},
		{name: "Test2 bad interval panics", args: []string{"cmd", "-i", "zzz"},
			expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.PanicOnError)

			os.Args = tt.args

			config := &Config{}

			if !tt.expectPanic {
				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(config, tt.expected))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}
