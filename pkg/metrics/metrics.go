package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ipx800"

type Metrics struct {
	CommandsTotal      *prometheus.CounterVec
	CommandErrorsTotal *prometheus.CounterVec
	UpdateErrorsTotal  *prometheus.CounterVec
	InvalidCommands    prometheus.Counter
	DroppedCommands    prometheus.Counter
	LightOn            *prometheus.GaugeVec
	LightBrightness    *prometheus.GaugeVec
	RegisteredLights   prometheus.Gauge
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands forwarded to lights",
		}, []string{"light", "command"}),
		CommandErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "command_errors_total",
			Help:      "Commands the controller failed to execute",
		}, []string{"light"}),
		UpdateErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "update_errors_total",
			Help:      "Failed state refreshes",
		}, []string{"light"}),
		InvalidCommands: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invalid_commands_total",
			Help:      "Malformed command messages or commands for unknown lights",
		}),
		DroppedCommands: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_commands_total",
			Help:      "Commands discarded because the command queue was full",
		}),
		LightOn: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "light_on",
			Help:      "Last known light state, 1 when on",
		}, []string{"light"}),
		LightBrightness: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "light_brightness",
			Help:      "Last known brightness of dimmable lights (0-255)",
		}, []string{"light"}),
		RegisteredLights: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registered_lights",
			Help:      "Number of lights registered with Home Assistant",
		}),
	}

	reg.MustRegister(
		m.CommandsTotal,
		m.CommandErrorsTotal,
		m.UpdateErrorsTotal,
		m.InvalidCommands,
		m.DroppedCommands,
		m.LightOn,
		m.LightBrightness,
		m.RegisteredLights,
	)

	return m
}
