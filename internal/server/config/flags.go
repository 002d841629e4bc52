package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/cubicd/internal/flagx"
)

var (
	valueFlags = []string{"-a", "-l", "-f", "-s", "-d", "-n", "-u", "-p", "-b", "-g", "-e", "-x", "-z", "-t", "-r", "-i", "-w", "-m"}
	boolFlags  = []string{"-gz"}
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g. ":80")
//	-l string   log level: debug, info, warn, error
//	-f string   log format: json or text
//	-s string   store backend: local, sqlite, postgres, s3
//	-d string   data directory for the local backend
//	-n string   database DSN for the sqlite/postgres backends
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g. "http://127.0.0.1:9000/")
//	-x string   S3 key prefix
//	-z string   default POSIX timezone (e.g. "ICT-7")
//	-t string   default NTP server
//	-r int      NTP resync interval, minutes
//	-i string   Wi-Fi interface name
//	-w string   web UI index asset
//	-m int      max upload request size, MiB
//	-gz bool    prefer pre-compressed (.gz) static assets
func parseFlags(config *Config) {
	args := flagx.FilterArgsWithBools(os.Args[1:], valueFlags, boolFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.LogFormat, "f", config.LogFormat, "log format")
	fs.StringVar(&config.StoreBackend, "s", config.StoreBackend, "store backend")
	fs.StringVar(&config.DataDir, "d", config.DataDir, "data directory")
	fs.StringVar(&config.DatabaseDSN, "n", config.DatabaseDSN, "database DSN")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.S3Prefix, "x", config.S3Prefix, "S3 key prefix")

	fs.StringVar(&config.DefaultTimezone, "z", config.DefaultTimezone, "default timezone")
	fs.StringVar(&config.DefaultNTP, "t", config.DefaultNTP, "default NTP server")
	ntpSyncInterval := fs.Int("r", int(config.NTPSyncInterval.Minutes()), "NTP resync interval (in minutes)")
	fs.StringVar(&config.WiFiInterface, "i", config.WiFiInterface, "Wi-Fi interface")
	fs.StringVar(&config.IndexAsset, "w", config.IndexAsset, "web UI index asset")
	fs.Int64Var(&config.MaxUploadSizeMiB, "m", config.MaxUploadSizeMiB, "max upload size (in MiB)")
	fs.BoolVar(&config.GzipAssets, "gz", config.GzipAssets, "prefer .gz static assets")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "r" {
			config.NTPSyncInterval = time.Duration(*ntpSyncInterval) * time.Minute
		}
	})
}
