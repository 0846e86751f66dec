// Package config loads runtime settings for the authkeep client from
// defaults, an optional JSON file, and command-line flags, in that order of
// precedence.
package config

import "time"

// Config holds runtime settings for the authkeep client.
//
// All intervals are time.Duration values; the JSON overlay accepts strings
// like "15m" (see timex.Duration).
type Config struct {
	// ServerBaseURL is the base URL of the remote auth service.
	ServerBaseURL string

	// DatabasePath is the sqlite file holding the stored credential pair.
	DatabasePath string

	// RequestTimeout bounds every remote call; a timeout surfaces as a
	// network failure.
	RequestTimeout time.Duration

	// LoginSettleDelay is how long to wait after a successful credential
	// exchange before re-fetching the identity.
	LoginSettleDelay time.Duration

	// RefreshInterval is the proactive refresh check period; RefreshWindow
	// is how close to expiry a token must be to be refreshed.
	RefreshInterval time.Duration
	RefreshWindow   time.Duration

	// InactivityCheckInterval is the inactivity check period;
	// InactivityThreshold is how long without interaction ends the session.
	InactivityCheckInterval time.Duration
	InactivityThreshold     time.Duration
}

// LoadDefaults populates c with the reference values.
func (c *Config) LoadDefaults() {
	c.ServerBaseURL = "http://127.0.0.1:8000/api/"
	c.DatabasePath = "session.db"
	c.RequestTimeout = 15 * time.Second
	c.LoginSettleDelay = 1 * time.Second
	c.RefreshInterval = 15 * time.Minute
	c.RefreshWindow = 15 * time.Minute
	c.InactivityCheckInterval = 1 * time.Minute
	c.InactivityThreshold = 20 * time.Minute
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if a config file is given) and command-line flags. Later
// sources win.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJSON(cfg)
	parseFlags(cfg)
	return cfg
}
