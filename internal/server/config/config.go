// Package config handles runtime configuration for cubicd, including
// defaults, JSON overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the device service.
//
// Device settings proper (timezone, NTP host) live in the persistent store;
// DefaultTimezone and DefaultNTP only seed them on first boot or when the
// stored document is unreadable.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	StoreBackend string
	DataDir      string
	DatabaseDSN  string

	S3RootUser     string
	S3RootPassword string
	S3Bucket       string
	S3Region       string
	S3BaseEndpoint string
	S3Prefix       string

	DefaultTimezone  string
	DefaultNTP       string
	NTPSyncInterval  time.Duration
	WiFiInterface    string
	IndexAsset       string
	GzipAssets       bool
	MaxUploadSizeMiB int64
}

// LoadDefaults populates Config with values suitable for a development box.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":8080"
	c.LogLevel = "info"
	c.LogFormat = "json"
	c.ShutdownTimeout = 10 * time.Second
	c.StoreBackend = "local"
	c.DataDir = "./data"
	c.DatabaseDSN = "file:cubicd.db"
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "cubic"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
	c.S3Prefix = ""
	c.DefaultTimezone = "ICT-7"
	c.DefaultNTP = "pool.ntp.org"
	c.NTPSyncInterval = 60 * time.Minute
	c.WiFiInterface = "wlan0"
	c.IndexAsset = "/settings.html"
	c.GzipAssets = true
	c.MaxUploadSizeMiB = 8
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
