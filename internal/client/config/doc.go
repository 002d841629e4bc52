// Package config loads runtime configuration for cubicctl.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c/-config or CUBICCTL_CONFIG.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the device (http://host:port)
//	-t int      request timeout in seconds
//
// Everything after the flags is the command to run, e.g.
//
//	cubicctl -a http://192.168.1.42 put ./settings.html.gz
//
// # JSON schema
//
//	{
//	  "server_url": "http://192.168.1.42",
//	  "timeout": "10s"
//	}
package config
