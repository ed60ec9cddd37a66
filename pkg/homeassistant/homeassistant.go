// Package homeassistant publishes lights to Home Assistant through MQTT
// discovery, forwards commands from Home Assistant to them and refreshes
// their state periodically.
package homeassistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/automatedhome/ipx800-lights/pkg/light"
	"github.com/automatedhome/ipx800-lights/pkg/metrics"
)

const (
	stateOn  = "ON"
	stateOff = "OFF"

	payloadOnline  = "online"
	payloadOffline = "offline"

	commandQueueSize = 64
)

// Broker publishes MQTT messages.
type Broker interface {
	Publish(topic string, retained bool, payload []byte) error
}

// StateSink receives every published light state as JSON.
type StateSink interface {
	Broadcast(payload []byte)
}

type HostOptions struct {
	DiscoveryPrefix string
	BaseTopic       string
	DeviceID        string
	DeviceName      string
}

// State is the last known state of a registered light.
type State struct {
	UniqueID   string `json:"unique_id"`
	Name       string `json:"name"`
	State      string `json:"state"`
	Brightness *uint8 `json:"brightness,omitempty"`
	Dimmable   bool   `json:"dimmable"`
}

// Host plays the home automation platform for the registered lights. Every
// call into a light goes through mu, so lights see one call at a time.
type Host struct {
	opts     HostOptions
	metrics  *metrics.Metrics
	commands chan inbound

	mu      sync.Mutex
	broker  Broker
	sink    StateSink
	lights  map[string]light.Light
	order   []string
	started bool

	stateMu    sync.RWMutex
	states     map[string]State
	stateOrder []string
	lastPoll   time.Time
}

func NewHost(opts HostOptions, m *metrics.Metrics) *Host {
	return &Host{
		opts:     opts,
		metrics:  m,
		commands: make(chan inbound, commandQueueSize),
		lights:   make(map[string]light.Light),
		states:   make(map[string]State),
	}
}

// SetStateSink sets an additional receiver for published states.
func (h *Host) SetStateSink(sink StateSink) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sink = sink
}

// Register is the device registration callback handed to light.Setup.
func (h *Host) Register(lights ...light.Light) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, l := range lights {
		id := l.UniqueID()
		if _, ok := h.lights[id]; !ok {
			h.order = append(h.order, id)
		}
		h.lights[id] = l
		h.recordState(l)
		log.Printf("Registered light %q (%s)", l.Name(), id)

		if h.started {
			h.publishDiscovery(l)
			h.publishState(l)
		}
	}
	h.metrics.RegisteredLights.Set(float64(len(h.lights)))
}

// Start announces availability and publishes discovery and state for every
// registered light.
func (h *Host) Start(broker Broker) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.broker = broker
	h.started = true

	if err := h.broker.Publish(h.availabilityTopic(), true, []byte(payloadOnline)); err != nil {
		return fmt.Errorf("could not publish availability: %w", err)
	}
	for _, id := range h.order {
		l := h.lights[id]
		h.publishDiscovery(l)
		h.publishState(l)
	}
	return nil
}

// Stop marks the lights unavailable.
func (h *Host) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.broker == nil {
		return nil
	}
	h.started = false
	return h.broker.Publish(h.availabilityTopic(), true, []byte(payloadOffline))
}

// Run polls immediately and then every interval until ctx is done.
func (h *Host) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		h.Poll(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Poll refreshes every light and publishes its state. A light that fails to
// refresh keeps its previous published state.
func (h *Host) Poll(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, id := range h.order {
		if ctx.Err() != nil {
			return
		}
		l := h.lights[id]
		if err := l.Update(ctx); err != nil {
			log.WithField("light", id).Errorf("Could not refresh state: %v", err)
			h.metrics.UpdateErrorsTotal.WithLabelValues(id).Inc()
			continue
		}
		h.recordState(l)
		h.publishState(l)
	}

	h.stateMu.Lock()
	h.lastPoll = time.Now()
	h.stateMu.Unlock()
}

type inbound struct {
	topic   string
	payload []byte
}

// Submit queues a command message for ServeCommands without blocking. It
// reports false when the queue is full and the message was dropped.
func (h *Host) Submit(topic string, payload []byte) bool {
	msg := inbound{topic: topic, payload: append([]byte(nil), payload...)}
	select {
	case h.commands <- msg:
		return true
	default:
		h.metrics.DroppedCommands.Inc()
		log.Warnf("Command queue full, dropping message on %s", topic)
		return false
	}
}

// ServeCommands executes queued commands in order until ctx is done. Errors
// are logged and counted by HandleCommand.
func (h *Host) ServeCommands(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-h.commands:
			_ = h.HandleCommand(ctx, msg.topic, msg.payload)
		}
	}
}

type command struct {
	State      string `json:"state"`
	Brightness *int   `json:"brightness"`
}

// HandleCommand executes a JSON schema light command received on topic.
func (h *Host) HandleCommand(ctx context.Context, topic string, payload []byte) error {
	id, ok := h.lightIDFromCommandTopic(topic)
	if !ok {
		h.metrics.InvalidCommands.Inc()
		return fmt.Errorf("unexpected command topic %q", topic)
	}

	var cmd command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		h.metrics.InvalidCommands.Inc()
		log.WithField("light", id).Warnf("Could not parse command %q: %v", payload, err)
		return fmt.Errorf("could not parse command: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	l, ok := h.lights[id]
	if !ok {
		h.metrics.InvalidCommands.Inc()
		log.Warnf("Received command for unknown light %q", id)
		return fmt.Errorf("unknown light %q", id)
	}

	var err error
	switch strings.ToUpper(cmd.State) {
	case stateOn:
		params := light.TurnOnParams{}
		if cmd.Brightness != nil {
			if *cmd.Brightness < 0 || *cmd.Brightness > light.MaxBrightness {
				h.metrics.InvalidCommands.Inc()
				return fmt.Errorf("brightness %d out of range", *cmd.Brightness)
			}
			b := uint8(*cmd.Brightness)
			params.Brightness = &b
		}
		h.metrics.CommandsTotal.WithLabelValues(id, "on").Inc()
		err = l.TurnOn(ctx, params)
	case stateOff:
		h.metrics.CommandsTotal.WithLabelValues(id, "off").Inc()
		err = l.TurnOff(ctx)
	default:
		h.metrics.InvalidCommands.Inc()
		return fmt.Errorf("unknown state %q", cmd.State)
	}

	if err != nil {
		h.metrics.CommandErrorsTotal.WithLabelValues(id).Inc()
		log.WithField("light", id).Errorf("Command %s failed: %v", cmd.State, err)
		return err
	}

	h.recordState(l)
	h.publishState(l)
	return nil
}

// States returns the last known state of every registered light in
// registration order.
func (h *Host) States() []State {
	h.stateMu.RLock()
	defer h.stateMu.RUnlock()

	out := make([]State, 0, len(h.stateOrder))
	for _, id := range h.stateOrder {
		out = append(out, h.states[id])
	}
	return out
}

func (h *Host) LastPoll() time.Time {
	h.stateMu.RLock()
	defer h.stateMu.RUnlock()
	return h.lastPoll
}

// CommandTopicFilter matches the command topics of all lights.
func (h *Host) CommandTopicFilter() string {
	return fmt.Sprintf("%s/+/set", h.opts.BaseTopic)
}

func (h *Host) recordState(l light.Light) {
	s := State{
		UniqueID: l.UniqueID(),
		Name:     l.Name(),
		State:    stateOff,
	}
	on := 0.0
	if l.IsOn() {
		s.State = stateOn
		on = 1
	}
	h.metrics.LightOn.WithLabelValues(s.UniqueID).Set(on)

	if d, ok := l.(light.Dimmable); ok && l.SupportedFeatures()&light.SupportBrightness != 0 {
		b := d.Brightness()
		s.Brightness = &b
		s.Dimmable = true
		h.metrics.LightBrightness.WithLabelValues(s.UniqueID).Set(float64(b))
	}

	h.stateMu.Lock()
	if _, ok := h.states[s.UniqueID]; !ok {
		h.stateOrder = append(h.stateOrder, s.UniqueID)
	}
	h.states[s.UniqueID] = s
	h.stateMu.Unlock()
}

func (h *Host) publishState(l light.Light) {
	h.stateMu.RLock()
	s := h.states[l.UniqueID()]
	h.stateMu.RUnlock()

	if h.sink != nil {
		if data, err := json.Marshal(s); err == nil {
			h.sink.Broadcast(data)
		}
	}

	if h.broker == nil || !h.started {
		return
	}

	payload, err := json.Marshal(struct {
		State      string `json:"state"`
		Brightness *uint8 `json:"brightness,omitempty"`
	}{s.State, s.Brightness})
	if err != nil {
		log.Printf("Could not encode state of %s: %v", s.UniqueID, err)
		return
	}
	if err := h.broker.Publish(h.stateTopic(s.UniqueID), true, payload); err != nil {
		log.WithField("light", s.UniqueID).Errorf("Could not publish state: %v", err)
	}
}

func (h *Host) publishDiscovery(l light.Light) {
	payload, err := json.Marshal(h.discoveryConfig(l))
	if err != nil {
		log.Printf("Could not encode discovery config of %s: %v", l.UniqueID(), err)
		return
	}
	if err := h.broker.Publish(h.discoveryTopic(l.UniqueID()), true, payload); err != nil {
		log.WithField("light", l.UniqueID()).Errorf("Could not publish discovery config: %v", err)
	}
}

func (h *Host) lightIDFromCommandTopic(topic string) (string, bool) {
	prefix := h.opts.BaseTopic + "/"
	if !strings.HasPrefix(topic, prefix) || !strings.HasSuffix(topic, "/set") {
		return "", false
	}
	id := strings.TrimSuffix(strings.TrimPrefix(topic, prefix), "/set")
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}
