package config

import "fmt"

// StorageConfig drives the on-board telemetry log.
type StorageConfig struct {
	// Enabled turns telemetry persistence on.
	Enabled bool `json:"enabled"`
	// Path is the SQLite database file.
	Path string `json:"path"`
}

// SetDefaults applies sane defaults.
func (c *StorageConfig) SetDefaults() {
	if c.Path == "" {
		c.Path = "telemetry.db"
	}
}

// Validate checks mandatory fields.
func (c StorageConfig) Validate() error {
	if c.Enabled && c.Path == "" {
		return fmt.Errorf("path is required when storage is enabled")
	}
	return nil
}
