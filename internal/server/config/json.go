package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/cubicd/internal/flagx"
	"github.com/dmitrijs2005/cubicd/internal/timex"
)

// ConfigEnv names the environment variable consulted when no -c/-config
// flag is given.
const ConfigEnv = "CUBICD_CONFIG"

// JsonConfig is the on-disk shape of the runtime configuration file.
// Pointer fields distinguish "absent" from "zero", so a file may override
// only some settings and leave the rest at their defaults.
type JsonConfig struct {
	HTTPAddr         *string         `json:"http_addr"`
	LogLevel         *string         `json:"log_level"`
	LogFormat        *string         `json:"log_format"`
	ShutdownTimeout  *timex.Duration `json:"shutdown_timeout"`
	StoreBackend     *string         `json:"store_backend"`
	DataDir          *string         `json:"data_dir"`
	DatabaseDSN      *string         `json:"database_dsn"`
	S3RootUser       *string         `json:"s3_root_user"`
	S3RootPassword   *string         `json:"s3_root_password"`
	S3Bucket         *string         `json:"s3_bucket"`
	S3Region         *string         `json:"s3_region"`
	S3BaseEndpoint   *string         `json:"s3_base_endpoint"`
	S3Prefix         *string         `json:"s3_prefix"`
	DefaultTimezone  *string         `json:"default_timezone"`
	DefaultNTP       *string         `json:"default_ntp"`
	NTPSyncInterval  *timex.Duration `json:"ntp_sync_interval"`
	WiFiInterface    *string         `json:"wifi_interface"`
	IndexAsset       *string         `json:"index_asset"`
	GzipAssets       *bool           `json:"gzip_assets"`
	MaxUploadSizeMiB *int64          `json:"max_upload_size_mib"`
}

// parseJson overlays values from the file named by -c/-config (or
// CUBICD_CONFIG) onto config. No file means no changes. An unreadable file
// or invalid JSON panics: a half-applied runtime config is worse than
// refusing to start.
func parseJson(config *Config) {

	jsonConfigFile := flagx.ConfigPath(ConfigEnv)

	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)
	if c.ShutdownTimeout != nil {
		config.ShutdownTimeout = c.ShutdownTimeout.Duration
	}
	setString(&config.StoreBackend, c.StoreBackend)
	setString(&config.DataDir, c.DataDir)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3Prefix, c.S3Prefix)
	setString(&config.DefaultTimezone, c.DefaultTimezone)
	setString(&config.DefaultNTP, c.DefaultNTP)
	if c.NTPSyncInterval != nil {
		config.NTPSyncInterval = c.NTPSyncInterval.Duration
	}
	setString(&config.WiFiInterface, c.WiFiInterface)
	setString(&config.IndexAsset, c.IndexAsset)
	if c.GzipAssets != nil {
		config.GzipAssets = *c.GzipAssets
	}
	if c.MaxUploadSizeMiB != nil {
		config.MaxUploadSizeMiB = *c.MaxUploadSizeMiB
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
