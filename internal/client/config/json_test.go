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

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"server_url": "http://device.local",
		"timeout":    "30s",
	})
	pathEnv := writeTempJSON(t, dir, "env.json", map[string]any{
		"server_url": "http://from-env",
	})

	t.Run("loads from flags", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}
		t.Setenv(ConfigEnv, pathEnv)

		cfg := &Config{}
		parseJson(cfg)

		assert.Equal(t, "http://device.local", cfg.ServerURL)
		assert.Equal(t, 30*time.Second, cfg.Timeout)
	})

	t.Run("env when no flag, absent keys untouched", func(t *testing.T) {
		os.Args = []string{"testbin"}
		t.Setenv(ConfigEnv, pathEnv)

		cfg := &Config{Timeout: 7 * time.Second}
		parseJson(cfg)

		assert.Equal(t, "http://from-env", cfg.ServerURL)
		assert.Equal(t, 7*time.Second, cfg.Timeout)
	})

	t.Run("no CONFIG and no flags → no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}
		t.Setenv(ConfigEnv, "")

		cfg := &Config{ServerURL: "http://defaults", Timeout: 42 * time.Second}
		parseJson(cfg)

		assert.Equal(t, "http://defaults", cfg.ServerURL)
		assert.Equal(t, 42*time.Second, cfg.Timeout)
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})
}
