package types

import (
	"fmt"
	"time"
)

// RelayEntry is one item of enabled_relays. It accepts either a bare relay
// number ("1" or 1) or a mapping with an id and an optional display name.
type RelayEntry struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name,omitempty"`
}

func (r *RelayEntry) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var scalar interface{}
	if err := unmarshal(&scalar); err != nil {
		return err
	}

	switch v := scalar.(type) {
	case string:
		r.ID = v
		return nil
	case int, int64, uint64, float64:
		r.ID = fmt.Sprint(v)
		return nil
	case nil:
		return fmt.Errorf("relay entry cannot be empty")
	}

	var entry struct {
		ID   string `yaml:"id"`
		Name string `yaml:"name"`
	}
	if err := unmarshal(&entry); err != nil {
		return fmt.Errorf("relay entry must be a number or a mapping with id and name: %w", err)
	}
	r.ID = entry.ID
	r.Name = entry.Name
	return nil
}

type MQTT struct {
	Broker          string `yaml:"broker"`
	ClientID        string `yaml:"client_id"`
	DiscoveryPrefix string `yaml:"discovery_prefix"`
	BaseTopic       string `yaml:"base_topic"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config mirrors the configuration file. Optional device settings are
// pointers or slices so that absence is distinguishable from emptiness.
type Config struct {
	Host               *string      `yaml:"host"`
	Port               *string      `yaml:"port"`
	APIKey             *string      `yaml:"api_key"`
	Username           *string      `yaml:"username"`
	Password           *string      `yaml:"password"`
	EnabledRelays      []RelayEntry `yaml:"enabled_relays"`
	EnabledPWMChannels []string     `yaml:"enabled_pwm_channels"`

	MQTT         MQTT          `yaml:"mqtt"`
	ScanInterval time.Duration `yaml:"scan_interval"`
	Listen       string        `yaml:"listen"`
	Logging      Logging       `yaml:"logging"`
}
