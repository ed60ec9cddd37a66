package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFullConfig(t *testing.T) {
	data := `
host: 192.168.1.20
port: "80"
api_key: secret
username: admin
password: hunter2
enabled_relays:
  - "1"
  - 2
  - id: "5"
    name: Kitchen
enabled_pwm_channels: ["1", "3"]
mqtt:
  broker: tcp://broker:1883
scan_interval: 10s
logging:
  level: debug
`
	cfg, err := Parse([]byte(data))
	require.NoError(t, err)

	assert.Equal(t, "192.168.1.20", cfg.Host)
	assert.Equal(t, "80", cfg.Port)
	assert.Equal(t, "secret", cfg.APIKey)
	require.NotNil(t, cfg.Username)
	assert.Equal(t, "admin", *cfg.Username)
	assert.Equal(t, []Relay{
		{Number: 1, Name: "Relay 1"},
		{Number: 2, Name: "Relay 2"},
		{Number: 5, Name: "Kitchen"},
	}, cfg.Relays)
	assert.Equal(t, []int{1, 3}, cfg.PWMChannels)
	assert.True(t, cfg.PWMEnabled())

	assert.Equal(t, "tcp://broker:1883", cfg.MQTT.Broker)
	assert.Equal(t, DefaultDiscoveryPrefix, cfg.MQTT.DiscoveryPrefix)
	assert.Equal(t, DefaultBaseTopic, cfg.MQTT.BaseTopic)
	assert.Equal(t, 10*time.Second, cfg.ScanInterval)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestParseMinimalConfig(t *testing.T) {
	cfg, err := Parse([]byte("host: ipx\nport: \"80\"\napi_key: k\n"))
	require.NoError(t, err)

	assert.Empty(t, cfg.Relays)
	assert.Empty(t, cfg.PWMChannels)
	assert.Nil(t, cfg.Username)
	assert.Nil(t, cfg.Password)
	assert.False(t, cfg.PWMEnabled())
	assert.Equal(t, DefaultScanInterval, cfg.ScanInterval)
	assert.Equal(t, DefaultListen, cfg.Listen)
}

func TestParseMissingRequired(t *testing.T) {
	_, err := Parse([]byte("port: \"80\"\n"))
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.ElementsMatch(t, []string{"host is required", "api_key is required"}, verr.Problems)
}

func TestParseWrongTypes(t *testing.T) {
	for name, doc := range map[string]string{
		"host as mapping":      "host: {a: b}\nport: \"80\"\napi_key: k\n",
		"relays as scalar":     "host: h\nport: \"80\"\napi_key: k\nenabled_relays: 1\n",
		"pwm channels as map":  "host: h\nport: \"80\"\napi_key: k\nenabled_pwm_channels: {a: 1}\n",
		"unknown key":          "host: h\nport: \"80\"\napi_key: k\nrelays: [1]\n",
		"relay entry as list":  "host: h\nport: \"80\"\napi_key: k\nenabled_relays: [[1]]\n",
		"relay unknown subkey": "host: h\nport: \"80\"\napi_key: k\nenabled_relays: [{id: 1, label: x}]\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestParseInvalidIdentifiers(t *testing.T) {
	doc := `
host: h
port: "80"
api_key: k
enabled_relays: ["one", "0", "2", "2"]
enabled_pwm_channels: ["x"]
`
	_, err := Parse([]byte(doc))

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Problems, 4)
}

func TestParseLargeRelayNumbers(t *testing.T) {
	doc := `
host: h
port: "80"
api_key: k
enabled_relays: [18446744073709551615, 1.5, 3]
`
	_, err := Parse([]byte(doc))

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{
		"enabled_relays[0]: 18446744073709551615 is out of range",
		`enabled_relays[1]: "1.5" is not a number`,
	}, verr.Problems)
}

func TestPWMEnabledNeedsCredentials(t *testing.T) {
	user, pass := "u", "p"

	cases := []struct {
		name     string
		cfg      Config
		expected bool
	}{
		{"all present", Config{Username: &user, Password: &pass, PWMChannels: []int{1}}, true},
		{"no channels", Config{Username: &user, Password: &pass}, false},
		{"no username", Config{Password: &pass, PWMChannels: []int{1}}, false},
		{"no password", Config{Username: &user, PWMChannels: []int{1}}, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.expected, c.cfg.PWMEnabled(), c.name)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("IPX800_API_KEY", "from-env")
	t.Setenv("IPX800_PASSWORD", "pw")

	cfg, err := Parse([]byte("host: h\nport: \"80\"\n"))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.APIKey)
	require.NotNil(t, cfg.Password)
	assert.Equal(t, "pw", *cfg.Password)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("host: h\nport: \"80\"\napi_key: k\nenabled_relays: [\"3\"]\n"), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []Relay{{Number: 3, Name: "Relay 3"}}, cfg.Relays)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
