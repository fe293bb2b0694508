package config

import "fmt"

// GPSConfig selects and paces the position source.
type GPSConfig struct {
	// Enabled starts the GPS publisher loop.
	Enabled bool `json:"enabled"`
	// Simulate replaces the serial receiver with the built-in simulator.
	Simulate bool `json:"simulate"`
	// Port is the serial device of the receiver. Empty means scan for one.
	Port string `json:"port"`
	// Baud is the serial line rate of the receiver.
	Baud int `json:"baud"`
	// IntervalS is the seconds between position publishes.
	IntervalS int `json:"interval_s"`
	// ErrorDelayS is the seconds to wait after a failed receiver read or a
	// failed receiver scan before trying again.
	ErrorDelayS int `json:"error_delay_s"`
	// SimLatitude and SimLongitude set the simulator's base position. Zero
	// uses the built-in circuit location.
	SimLatitude  float64 `json:"sim_latitude"`
	SimLongitude float64 `json:"sim_longitude"`
}

// SetDefaults applies sane defaults.
func (c *GPSConfig) SetDefaults() {
	if c.Baud == 0 {
		c.Baud = 9600
	}
	if c.IntervalS == 0 {
		c.IntervalS = 1
	}
	if c.ErrorDelayS == 0 {
		c.ErrorDelayS = 10
	}
}

// Validate checks the pacing values.
func (c GPSConfig) Validate() error {
	if c.Baud < 0 {
		return fmt.Errorf("baud must be positive: %d", c.Baud)
	}
	if c.IntervalS < 0 || c.ErrorDelayS < 0 {
		return fmt.Errorf("intervals must be positive")
	}
	return nil
}
