package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/authkeep/internal/flagx"
	"github.com/dmitrijs2005/authkeep/internal/timex"
)

// JSONConfig is the DTO used exclusively for JSON unmarshalling.
// timex.Duration lets intervals be written as strings like "20m" or as
// integer nanoseconds. Absent fields leave the current Config value alone.
type JSONConfig struct {
	ServerBaseURL           string          `json:"server_base_url"`
	DatabasePath            string          `json:"database_path"`
	RequestTimeout          *timex.Duration `json:"request_timeout"`
	LoginSettleDelay        *timex.Duration `json:"login_settle_delay"`
	RefreshInterval         *timex.Duration `json:"refresh_interval"`
	RefreshWindow           *timex.Duration `json:"refresh_window"`
	InactivityCheckInterval *timex.Duration `json:"inactivity_check_interval"`
	InactivityThreshold     *timex.Duration `json:"inactivity_threshold"`
}

// parseJSON overlays Config with values from the JSON file named by the -c
// or -config flag. No flag means no JSON overlay. Read or unmarshal errors
// panic; intended usage is defaults -> parseJSON -> parseFlags.
func parseJSON(cfg *Config) {
	path := flagx.JSONConfigFlag()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var jc JSONConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerBaseURL != "" {
		cfg.ServerBaseURL = jc.ServerBaseURL
	}
	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.LoginSettleDelay != nil {
		cfg.LoginSettleDelay = jc.LoginSettleDelay.Duration
	}
	if jc.RefreshInterval != nil {
		cfg.RefreshInterval = jc.RefreshInterval.Duration
	}
	if jc.RefreshWindow != nil {
		cfg.RefreshWindow = jc.RefreshWindow.Duration
	}
	if jc.InactivityCheckInterval != nil {
		cfg.InactivityCheckInterval = jc.InactivityCheckInterval.Duration
	}
	if jc.InactivityThreshold != nil {
		cfg.InactivityThreshold = jc.InactivityThreshold.Duration
	}
}
