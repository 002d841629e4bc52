package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/cubicd/internal/flagx"
)

var valueFlags = []string{"-a", "-t", "-c", "-config", "--config"}

// parseFlags populates selected Config fields from command-line flags and
// collects the command words that follow them.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the device")
	timeout := fs.Int("t", int(cfg.Timeout.Seconds()), "request timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.Timeout = time.Duration(*timeout) * time.Second
	cfg.Args = commandArgs(os.Args[1:])
}

// commandArgs returns everything from the first argument that is neither a
// flag nor a flag's value.
func commandArgs(args []string) []string {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			return args[i:]
		}
		if strings.Contains(arg, "=") {
			continue
		}
		for _, f := range valueFlags {
			if arg == f {
				i++
				break
			}
		}
	}
	return nil
}
