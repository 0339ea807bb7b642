package config

import (
	"flag"
	"os"
	"time"

	"github.com/possamhq/possam/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-b string   base URL of the identity backend
//	-k string   public API key
//	-f string   path of the local data file
//	-d int      splash delay in seconds
//
// Args are filtered with flagx.FilterArgs so flags owned by other
// components (like -config) do not interfere.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-b", "-k", "-f", "-d"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.BackendURL, "b", cfg.BackendURL, "base URL of the identity backend")
	fs.StringVar(&cfg.AnonKey, "k", cfg.AnonKey, "public API key for the identity backend")
	fs.StringVar(&cfg.DataFile, "f", cfg.DataFile, "path of the local data file")
	launchDelay := fs.Int("d", int(cfg.LaunchDelay.Seconds()), "splash delay (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.LaunchDelay = time.Duration(*launchDelay) * time.Second
}
