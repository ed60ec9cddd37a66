// Package ipx800 is a small client for the IPX800 V4 JSON API. It keeps the
// last state read from the controller for every configured relay and X-PWM
// channel; nothing is refreshed unless asked for.
package ipx800

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	apiPath        = "/api/xdevices.json"
	defaultTimeout = 10 * time.Second
)

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	username string
	password string

	relays       map[int]*Relay
	relayOrder   []int
	channels     map[int]*PWMChannel
	channelOrder []int
}

type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// New creates a session for the controller at host:port. No request is sent
// until relays or PWM channels are configured.
func New(host, port, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    "http://" + net.JoinHostPort(host, port),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
		relays:     make(map[int]*Relay),
		channels:   make(map[int]*PWMChannel),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type RelayDefinition struct {
	Number int
	Name   string
}

type RelaysConfig struct {
	Relays []RelayDefinition
}

type PWMConfig struct {
	Username string
	Password string
	Channels []int
}

// ConfigureRelays registers the enabled relays and loads their current state.
func (c *Client) ConfigureRelays(ctx context.Context, cfg RelaysConfig) error {
	if len(cfg.Relays) == 0 {
		return ErrNoRelays
	}

	relays := make(map[int]*Relay, len(cfg.Relays))
	order := make([]int, 0, len(cfg.Relays))
	for _, def := range cfg.Relays {
		if _, ok := relays[def.Number]; !ok {
			order = append(order, def.Number)
		}
		relays[def.Number] = &Relay{client: c, number: def.Number, name: def.Name}
	}

	states, err := c.get(ctx, false, url.Values{"Get": {"R"}})
	if err != nil {
		return fmt.Errorf("failed to load relay states: %w", err)
	}
	for n, r := range relays {
		r.on = states.value(relayKey(n)) > 0
	}

	c.relays = relays
	c.relayOrder = order
	return nil
}

// ConfigurePWM registers the enabled X-PWM channels and loads their power
// levels. The credentials are used for every later PWM request.
func (c *Client) ConfigurePWM(ctx context.Context, cfg PWMConfig) error {
	if len(cfg.Channels) == 0 {
		return ErrNoChannels
	}
	if cfg.Username == "" || cfg.Password == "" {
		return ErrMissingCredentials
	}
	c.username = cfg.Username
	c.password = cfg.Password

	channels := make(map[int]*PWMChannel, len(cfg.Channels))
	order := make([]int, 0, len(cfg.Channels))
	for _, n := range cfg.Channels {
		if _, ok := channels[n]; !ok {
			order = append(order, n)
		}
		channels[n] = &PWMChannel{client: c, number: n}
	}

	levels, err := c.get(ctx, true, url.Values{"Get": {"PWM"}})
	if err != nil {
		return fmt.Errorf("failed to load PWM levels: %w", err)
	}
	for n, ch := range channels {
		ch.power = clampPercent(levels.value(channelKey(n)))
	}

	c.channels = channels
	c.channelOrder = order
	return nil
}

// Relays returns the configured relays in configuration order.
func (c *Client) Relays() []*Relay {
	out := make([]*Relay, 0, len(c.relayOrder))
	for _, n := range c.relayOrder {
		out = append(out, c.relays[n])
	}
	return out
}

func (c *Client) Relay(number int) (*Relay, error) {
	r, ok := c.relays[number]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRelay, number)
	}
	return r, nil
}

// PWMChannels returns the configured channels in configuration order.
func (c *Client) PWMChannels() []*PWMChannel {
	out := make([]*PWMChannel, 0, len(c.channelOrder))
	for _, n := range c.channelOrder {
		out = append(out, c.channels[n])
	}
	return out
}

func (c *Client) PWMChannel(number int) (*PWMChannel, error) {
	ch, ok := c.channels[number]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownChannel, number)
	}
	return ch, nil
}

// response is the decoded JSON object returned by the API.
type response map[string]interface{}

func (r response) value(key string) float64 {
	switch v := r[key].(type) {
	case float64:
		return v
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return 0
}

func (c *Client) get(ctx context.Context, auth bool, params url.Values) (response, error) {
	params.Set("key", c.apiKey)
	address := c.baseURL + apiPath + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, address, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if auth {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach IPX800: %w", err)
	}
	defer resp.Body.Close()

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: HTTP %d", ErrDeviceStatus, resp.StatusCode)
	}

	var data response
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("failed to parse received data: %w", err)
	}

	if status, ok := data["status"].(string); ok && status == "Error" {
		return nil, fmt.Errorf("%w: %s", ErrDeviceStatus, body)
	}

	return data, nil
}

func relayKey(n int) string {
	return fmt.Sprintf("R%d", n)
}

func channelKey(n int) string {
	return fmt.Sprintf("PWM%d", n)
}
