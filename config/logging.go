package config

import "fmt"

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is the minimum severity that gets logged: trace, debug, info,
	// warn, error, fatal or panic.
	Level string `json:"level"`
}

// SetDefaults applies sane defaults.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
}

// Validate checks the level name.
func (c LoggingConfig) Validate() error {
	switch c.Level {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic":
		return nil
	default:
		return fmt.Errorf("unknown level %s", c.Level)
	}
}
