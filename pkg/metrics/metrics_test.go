package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.CommandsTotal.WithLabelValues("hall", "on").Inc()
	m.LightOn.WithLabelValues("hall").Set(1)
	m.RegisteredLights.Set(3)
	m.DroppedCommands.Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CommandsTotal.WithLabelValues("hall", "on")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RegisteredLights))

	families, err := reg.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["ipx800_commands_total"])
	assert.True(t, names["ipx800_light_on"])
	assert.True(t, names["ipx800_registered_lights"])
	assert.True(t, names["ipx800_dropped_commands_total"])
}

func TestNewPanicsOnDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
