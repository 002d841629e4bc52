package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/cubicd/internal/flagx"
	"github.com/dmitrijs2005/cubicd/internal/timex"
)

const ConfigEnv = "CUBICCTL_CONFIG"

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
type JsonConfig struct {
	ServerURL *string         `json:"server_url"`
	Timeout   *timex.Duration `json:"timeout"`
}

// parseJson overlays Config with values loaded from a JSON file. Panics on
// read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.ConfigPath(ConfigEnv)
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerURL != nil {
		cfg.ServerURL = *jc.ServerURL
	}
	if jc.Timeout != nil {
		cfg.Timeout = jc.Timeout.Duration
	}
}
