package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/pitwall/vtms/core/metrics"
	"github.com/pitwall/vtms/infra/mqtt"
)

// Config is the root gateway configuration.
type Config struct {
	MQTT    mqtt.Config    `json:"mqtt"`
	Topics  TopicsConfig   `json:"topics"`
	Buffer  BufferConfig   `json:"buffer"`
	Monitor MonitorConfig  `json:"monitor"`
	Health  HealthConfig   `json:"health"`
	GPS     GPSConfig      `json:"gps"`
	OBD     OBDConfig      `json:"obd"`
	Signals SignalsConfig  `json:"signals"`
	Storage StorageConfig  `json:"storage"`
	Metrics metrics.Config `json:"metrics"`
	Logging LoggingConfig  `json:"logging"`
}

// Load reads the configuration file, applies environment overrides, fills
// defaults and validates every section.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides, e.g. VTMS_MQTT__BROKER.
	if err := k.Load(env.Provider("VTMS_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "vtms_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills the defaults of every section.
func (c *Config) SetDefaults() {
	c.MQTT.SetDefaults()
	c.Topics.SetDefaults()
	c.Buffer.SetDefaults()
	c.Monitor.SetDefaults()
	c.Health.SetDefaults()
	c.GPS.SetDefaults()
	c.OBD.SetDefaults()
	c.Signals.SetDefaults()
	c.Storage.SetDefaults()
	c.Metrics.SetDefaults()
	c.Logging.SetDefaults()
}

// Validate checks every section, naming the failing one.
func (c *Config) Validate() error {
	sections := []struct {
		name string
		err  error
	}{
		{"mqtt", c.MQTT.Validate()},
		{"topics", c.Topics.Validate()},
		{"buffer", c.Buffer.Validate()},
		{"monitor", c.Monitor.Validate()},
		{"health", c.Health.Validate()},
		{"gps", c.GPS.Validate()},
		{"obd", c.OBD.Validate()},
		{"signals", c.Signals.Validate()},
		{"storage", c.Storage.Validate()},
		{"metrics", c.Metrics.Validate()},
		{"logging", c.Logging.Validate()},
	}
	for _, s := range sections {
		if s.err != nil {
			return fmt.Errorf("%s: %w", s.name, s.err)
		}
	}
	return nil
}
