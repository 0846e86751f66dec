package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/authkeep/internal/flagx"
)

// parseFlags overlays Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the auth service
//	-d string   path to the local session database
//	-t int      request timeout in seconds
//	-i int      inactivity threshold in minutes
//
// Args are filtered through flagx.FilterArgs so flags owned by other
// components (such as -c for the config file) do not trip parsing.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-t", "-i"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerBaseURL, "a", cfg.ServerBaseURL, "base URL of the auth service")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "path to the local session database")
	requestTimeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	inactivity := fs.Int("i", int(cfg.InactivityThreshold.Minutes()), "inactivity threshold (in minutes)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*requestTimeout) * time.Second
	cfg.InactivityThreshold = time.Duration(*inactivity) * time.Minute
}
