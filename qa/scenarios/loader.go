package scenarios

import (
	"os"

	"gopkg.in/yaml.v3"
)

// MessageDef is one inbound control message. The topic is relative to the
// namespace, e.g. "pit" or "flag/red".
type MessageDef struct {
	Topic   string `yaml:"topic"`
	Payload string `yaml:"payload"`
}

// Expected captures the observable outcome of a scenario.
type Expected struct {
	Routed   int             `yaml:"routed"`
	Fallback int             `yaml:"fallback"`
	Debug    bool            `yaml:"debug"`
	Lamps    map[string]bool `yaml:"lamps,omitempty"`
}

type Scenario struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description,omitempty"`
	Namespace   string       `yaml:"namespace,omitempty"`
	Messages    []MessageDef `yaml:"messages"`
	Expected    Expected     `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}
