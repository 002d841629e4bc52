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

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	t.Setenv(ConfigEnv, "")

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"http_addr":           ":80",
		"store_backend":       "sqlite",
		"database_dsn":        "file:/flash/cubic.db",
		"default_timezone":    "CET-1CEST,M3.5.0,M10.5.0/3",
		"default_ntp":         "ntp.example",
		"ntp_sync_interval":   "30m",
		"shutdown_timeout":    "3s",
		"gzip_assets":         false,
		"max_upload_size_mib": 16,
		"s3_prefix":           "dev/",
	})

	t.Run("loads from json, keeps unspecified fields", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, ":80", cfg.HTTPAddr)
		assert.Equal(t, "sqlite", cfg.StoreBackend)
		assert.Equal(t, "file:/flash/cubic.db", cfg.DatabaseDSN)
		assert.Equal(t, "CET-1CEST,M3.5.0,M10.5.0/3", cfg.DefaultTimezone)
		assert.Equal(t, "ntp.example", cfg.DefaultNTP)
		assert.Equal(t, 30*time.Minute, cfg.NTPSyncInterval)
		assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
		assert.False(t, cfg.GzipAssets)
		assert.Equal(t, int64(16), cfg.MaxUploadSizeMiB)
		assert.Equal(t, "dev/", cfg.S3Prefix)

		assert.Equal(t, "./data", cfg.DataDir)
		assert.Equal(t, "wlan0", cfg.WiFiInterface)
	})

	t.Run("environment variable names the file", func(t *testing.T) {
		os.Args = []string{"testbin"}
		t.Setenv(ConfigEnv, pathFlag)

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "sqlite", cfg.StoreBackend)
	})

	t.Run("no config and no flags → no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}
		t.Setenv(ConfigEnv, "")

		cfg := &Config{HTTPAddr: "defaults:1234", DefaultNTP: "a", GzipAssets: true}
		parseJson(cfg)

		assert.Equal(t, &Config{HTTPAddr: "defaults:1234", DefaultNTP: "a", GzipAssets: true}, cfg)
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})

	t.Run("missing file → panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", filepath.Join(dir, "missing.json")}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})
}

func TestLoadConfig_SubMinuteSyncIntervalSurvivesFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	t.Setenv(ConfigEnv, "")

	path := writeTempJSON(t, "", "", map[string]any{"ntp_sync_interval": "30s"})

	os.Args = []string{"cubicd", "-config", path}
	cfg := LoadConfig()
	assert.Equal(t, 30*time.Second, cfg.NTPSyncInterval)

	os.Args = []string{"cubicd", "-config", path, "-r", "5"}
	cfg = LoadConfig()
	assert.Equal(t, 5*time.Minute, cfg.NTPSyncInterval)
}
