package config

import (
	"flag"
	"os"
	"time"

	"github.com/modicscan/syncengine/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   SQLite DSN of the local store
//	-s string   credential guard app secret
//	-u string   identity provider base URL
//	-k string   identity provider API key
//	-o string   document store base URL
//	-t string   document store auth token
//	-ak string  S3 access key
//	-sk string  S3 secret key
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-i int      online check interval, seconds
//	-y int      background sync interval, seconds
//	-l string   log file path (empty: stderr)
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components. Interval
// flags are accepted as integers in seconds and converted to time.Duration.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:],
		[]string{"-d", "-s", "-u", "-k", "-o", "-t", "-ak", "-sk", "-b", "-g", "-e", "-i", "-y", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.AppSecret, "s", config.AppSecret, "app secret")
	fs.StringVar(&config.IdentityBaseURL, "u", config.IdentityBaseURL, "identity provider base URL")
	fs.StringVar(&config.IdentityAPIKey, "k", config.IdentityAPIKey, "identity provider API key")
	fs.StringVar(&config.DocsBaseURL, "o", config.DocsBaseURL, "document store base URL")
	fs.StringVar(&config.DocsAuthToken, "t", config.DocsAuthToken, "document store auth token")
	fs.StringVar(&config.S3AccessKey, "ak", config.S3AccessKey, "S3 access key")
	fs.StringVar(&config.S3SecretKey, "sk", config.S3SecretKey, "S3 secret key")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	onlineCheckInterval := fs.Int("i", int(config.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	syncInterval := fs.Int("y", int(config.SyncInterval.Seconds()), "background sync interval (in seconds)")

	fs.StringVar(&config.LogFile, "l", config.LogFile, "log file path")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
	config.SyncInterval = time.Duration(*syncInterval) * time.Second
}
