package config

import (
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
		{name: "flags and command", args: []string{"cmd", "-a", "http://10.0.0.5", "-t", "3", "put", "./a.txt", "/www/a.txt"},
			expected: &Config{ServerURL: "http://10.0.0.5", Timeout: 3 * time.Second, Args: []string{"put", "./a.txt", "/www/a.txt"}}},
		{name: "config flag is skipped", args: []string{"cmd", "-c", "ctl.json", "time"},
			expected: &Config{Args: []string{"time"}}},
		{name: "equals form", args: []string{"cmd", "-a=http://h", "ls"},
			expected: &Config{ServerURL: "http://h", Args: []string{"ls"}}},
		{name: "incorrect timeout", args: []string{"cmd", "-t", "abc"}, expectPanic: true, expected: &Config{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args

			config := &Config{}

			if !tt.expectPanic {
				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(tt.expected, config))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}

func TestCommandArgs(t *testing.T) {
	assert.Nil(t, commandArgs(nil))
	assert.Nil(t, commandArgs([]string{"-a", "http://h"}))
	assert.Equal(t, []string{"rm", "-x"}, commandArgs([]string{"-test.v=true", "rm", "-x"}))
}
