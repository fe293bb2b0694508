package config

import (
	"fmt"
	"strings"
)

// TopicsConfig names the bus namespace every gateway topic lives under.
type TopicsConfig struct {
	// Namespace prefixes every published and subscribed topic.
	Namespace string `json:"namespace"`
}

// SetDefaults applies sane defaults.
func (c *TopicsConfig) SetDefaults() {
	if c.Namespace == "" {
		c.Namespace = "vtms"
	}
}

// Validate checks the namespace is usable as a topic prefix.
func (c TopicsConfig) Validate() error {
	if strings.ContainsAny(c.Namespace, "#+") {
		return fmt.Errorf("namespace must not contain wildcards: %s", c.Namespace)
	}
	if strings.HasPrefix(c.Namespace, "/") || strings.HasSuffix(c.Namespace, "/") {
		return fmt.Errorf("namespace must not start or end with a slash: %s", c.Namespace)
	}
	return nil
}

// BufferConfig bounds the store-and-forward queue.
type BufferConfig struct {
	// Capacity is the maximum number of buffered messages; the oldest entry
	// is evicted when a push would exceed it.
	Capacity int `json:"capacity"`
	// MaxAgeS drops buffered messages older than this many seconds during a
	// flush.
	MaxAgeS int `json:"max_age_s"`
}

// SetDefaults applies sane defaults.
func (c *BufferConfig) SetDefaults() {
	if c.Capacity == 0 {
		c.Capacity = 1000
	}
	if c.MaxAgeS == 0 {
		c.MaxAgeS = 300
	}
}

// Validate checks the bounds are positive.
func (c BufferConfig) Validate() error {
	if c.Capacity < 0 {
		return fmt.Errorf("capacity must be positive: %d", c.Capacity)
	}
	if c.MaxAgeS < 0 {
		return fmt.Errorf("max_age_s must be positive: %d", c.MaxAgeS)
	}
	return nil
}

// MonitorConfig drives the connection monitor's reconnect policy.
type MonitorConfig struct {
	// IntervalS is the seconds between connection checks.
	IntervalS int `json:"interval_s"`
	// BackoffStepS is multiplied by the failed attempt count to compute the
	// reconnect wait.
	BackoffStepS int `json:"backoff_step_s"`
	// BackoffCapS bounds the reconnect wait.
	BackoffCapS int `json:"backoff_cap_s"`
}

// SetDefaults applies sane defaults.
func (c *MonitorConfig) SetDefaults() {
	if c.IntervalS == 0 {
		c.IntervalS = 30
	}
	if c.BackoffStepS == 0 {
		c.BackoffStepS = 2
	}
	if c.BackoffCapS == 0 {
		c.BackoffCapS = 30
	}
}

// Validate checks the backoff parameters are consistent.
func (c MonitorConfig) Validate() error {
	if c.IntervalS < 0 || c.BackoffStepS < 0 || c.BackoffCapS < 0 {
		return fmt.Errorf("intervals must be positive")
	}
	if c.BackoffCapS < c.BackoffStepS {
		return fmt.Errorf("backoff_cap_s %d is below backoff_step_s %d", c.BackoffCapS, c.BackoffStepS)
	}
	return nil
}

// HealthConfig drives the periodic health snapshot.
type HealthConfig struct {
	// IntervalS is the seconds between health publishes.
	IntervalS int `json:"interval_s"`
}

// SetDefaults applies sane defaults.
func (c *HealthConfig) SetDefaults() {
	if c.IntervalS == 0 {
		c.IntervalS = 60
	}
}

// Validate checks the interval is positive.
func (c HealthConfig) Validate() error {
	if c.IntervalS < 0 {
		return fmt.Errorf("interval_s must be positive: %d", c.IntervalS)
	}
	return nil
}
