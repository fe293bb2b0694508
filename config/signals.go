package config

import "fmt"

// GPIO modes for the signal lamps.
const (
	// GPIOAuto drives the lamps only when running on a Raspberry Pi.
	GPIOAuto = "auto"
	// GPIOOn always drives the lamps.
	GPIOOn = "on"
	// GPIOOff never touches the header.
	GPIOOff = "off"
)

// SignalsConfig selects how the driver-facing signal lamps are driven.
type SignalsConfig struct {
	// GPIO is one of auto, on or off.
	GPIO string `json:"gpio"`
}

// SetDefaults applies sane defaults.
func (c *SignalsConfig) SetDefaults() {
	if c.GPIO == "" {
		c.GPIO = GPIOAuto
	}
}

// Validate checks the GPIO mode.
func (c SignalsConfig) Validate() error {
	switch c.GPIO {
	case GPIOAuto, GPIOOn, GPIOOff:
		return nil
	default:
		return fmt.Errorf("unknown gpio mode %q", c.GPIO)
	}
}
