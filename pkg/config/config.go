package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	types "github.com/automatedhome/ipx800-lights/pkg/types"
)

const (
	DefaultBroker          = "tcp://localhost:1883"
	DefaultClientID        = "ipx800-lights"
	DefaultDiscoveryPrefix = "homeassistant"
	DefaultBaseTopic       = "ipx800"
	DefaultScanInterval    = 30 * time.Second
	DefaultListen          = ":7002"
)

// Relay is a validated enabled_relays entry.
type Relay struct {
	Number int
	Name   string
}

// Config is the validated, typed configuration. It is only produced by Parse
// or Load, so every required field is set.
type Config struct {
	Host     string
	Port     string
	APIKey   string
	Username *string
	Password *string

	Relays      []Relay
	PWMChannels []int

	MQTT         types.MQTT
	ScanInterval time.Duration
	Listen       string
	Logging      types.Logging
}

// PWMEnabled reports whether PWM channels should be set up: both credentials
// must be present and at least one channel enabled.
func (c *Config) PWMEnabled() bool {
	return c.Username != nil && c.Password != nil && len(c.PWMChannels) > 0
}

// ValidationError lists every problem found in a configuration document.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s", strings.Join(e.Problems, "; "))
}

func (e *ValidationError) add(format string, args ...interface{}) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

// Load reads the file at path, applies environment overrides and validates
// the result.
func Load(path string) (*Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML document, applies environment overrides and validates
// the result.
func Parse(data []byte) (*Config, error) {
	var raw types.Config
	if err := yaml.UnmarshalStrict(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(&raw)

	return Validate(&raw)
}

func applyEnvOverrides(raw *types.Config) {
	override := func(dst **string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = &v
		}
	}
	override(&raw.Host, "IPX800_HOST")
	override(&raw.Port, "IPX800_PORT")
	override(&raw.APIKey, "IPX800_API_KEY")
	override(&raw.Username, "IPX800_USERNAME")
	override(&raw.Password, "IPX800_PASSWORD")

	if v := os.Getenv("IPX800_MQTT_BROKER"); v != "" {
		raw.MQTT.Broker = v
	}
}

// Validate turns the raw document into a Config, filling defaults for the
// optional ambient sections.
func Validate(raw *types.Config) (*Config, error) {
	verr := &ValidationError{}

	cfg := &Config{
		Host:         required(verr, "host", raw.Host),
		Port:         required(verr, "port", raw.Port),
		APIKey:       required(verr, "api_key", raw.APIKey),
		Username:     raw.Username,
		Password:     raw.Password,
		MQTT:         raw.MQTT,
		ScanInterval: raw.ScanInterval,
		Listen:       raw.Listen,
		Logging:      raw.Logging,
	}

	if raw.Username != nil && *raw.Username == "" {
		verr.add("username must not be empty when set")
	}
	if raw.Password != nil && *raw.Password == "" {
		verr.add("password must not be empty when set")
	}

	seen := make(map[int]bool)
	for i, entry := range raw.EnabledRelays {
		n, err := parseID(entry.ID)
		if err != nil {
			verr.add("enabled_relays[%d]: %v", i, err)
			continue
		}
		if seen[n] {
			verr.add("enabled_relays[%d]: relay %d listed twice", i, n)
			continue
		}
		seen[n] = true

		name := entry.Name
		if name == "" {
			name = fmt.Sprintf("Relay %d", n)
		}
		cfg.Relays = append(cfg.Relays, Relay{Number: n, Name: name})
	}

	seen = make(map[int]bool)
	for i, id := range raw.EnabledPWMChannels {
		n, err := parseID(id)
		if err != nil {
			verr.add("enabled_pwm_channels[%d]: %v", i, err)
			continue
		}
		if seen[n] {
			verr.add("enabled_pwm_channels[%d]: channel %d listed twice", i, n)
			continue
		}
		seen[n] = true
		cfg.PWMChannels = append(cfg.PWMChannels, n)
	}

	if cfg.ScanInterval < 0 {
		verr.add("scan_interval must not be negative")
	}

	if len(verr.Problems) > 0 {
		return nil, verr
	}

	applyDefaults(cfg)

	return cfg, nil
}

func required(verr *ValidationError, key string, value *string) string {
	if value == nil {
		verr.add("%s is required", key)
		return ""
	}
	if strings.TrimSpace(*value) == "" {
		verr.add("%s must not be empty", key)
		return ""
	}
	return *value
}

func parseID(id string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(id))
	if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
		return 0, fmt.Errorf("%s is out of range", id)
	}
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", id)
	}
	if n < 1 {
		return 0, fmt.Errorf("%d is not a valid identifier", n)
	}
	return n, nil
}

func applyDefaults(cfg *Config) {
	if cfg.MQTT.Broker == "" {
		cfg.MQTT.Broker = DefaultBroker
	}
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = DefaultClientID
	}
	if cfg.MQTT.DiscoveryPrefix == "" {
		cfg.MQTT.DiscoveryPrefix = DefaultDiscoveryPrefix
	}
	if cfg.MQTT.BaseTopic == "" {
		cfg.MQTT.BaseTopic = DefaultBaseTopic
	}
	if cfg.ScanInterval == 0 {
		cfg.ScanInterval = DefaultScanInterval
	}
	if cfg.Listen == "" {
		cfg.Listen = DefaultListen
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}
