package config

import "fmt"

// OBDConfig drives the diagnostic adapter manager. The in-tree adapter is the
// simulator; hardware adapters plug in through the core obd Opener interface.
type OBDConfig struct {
	// Enabled starts the adapter manager loop.
	Enabled bool `json:"enabled"`
	// RetryDelayS is the seconds between adapter scans while none is found.
	RetryDelayS int `json:"retry_delay_s"`
	// StatusIntervalS is the seconds between adapter session health checks.
	StatusIntervalS int `json:"status_interval_s"`
	// SimIntervalMS is the milliseconds between simulated watch readings.
	SimIntervalMS int `json:"sim_interval_ms"`
}

// SetDefaults applies sane defaults.
func (c *OBDConfig) SetDefaults() {
	if c.RetryDelayS == 0 {
		c.RetryDelayS = 15
	}
	if c.StatusIntervalS == 0 {
		c.StatusIntervalS = 10
	}
	if c.SimIntervalMS == 0 {
		c.SimIntervalMS = 500
	}
}

// Validate checks the pacing values.
func (c OBDConfig) Validate() error {
	if c.RetryDelayS < 0 || c.StatusIntervalS < 0 || c.SimIntervalMS < 0 {
		return fmt.Errorf("intervals must be positive")
	}
	return nil
}
