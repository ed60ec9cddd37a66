package light

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/automatedhome/ipx800-lights/pkg/config"
	"github.com/automatedhome/ipx800-lights/pkg/ipx800"
)

func newSession(t *testing.T) (*ipx800.Client, *int32) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		out := map[string]interface{}{"status": "Success", "R1": 1, "R2": 0, "PWM1": 60}
		_ = json.NewEncoder(w).Encode(out)
	}))
	t.Cleanup(srv.Close)

	host, port, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)
	return ipx800.New(host, port, "key"), &requests
}

func collect(dst *[]Light) AddDevicesFunc {
	return func(lights ...Light) {
		*dst = append(*dst, lights...)
	}
}

func strPtr(s string) *string {
	return &s
}

func TestSetupRegistersRelays(t *testing.T) {
	session, requests := newSession(t)
	cfg := &config.Config{
		Host: "10.0.0.5",
		Relays: []config.Relay{
			{Number: 1, Name: "Hall"},
			{Number: 2, Name: "Garden"},
		},
	}

	var lights []Light
	require.NoError(t, Setup(context.Background(), cfg, session, collect(&lights)))
	require.Len(t, lights, 2)

	before := atomic.LoadInt32(requests)
	assert.Equal(t, "Hall", lights[0].Name())
	assert.True(t, lights[0].IsOn())
	assert.Equal(t, "Garden", lights[1].Name())
	assert.False(t, lights[1].IsOn())
	assert.Equal(t, "ipx800_10_0_0_5_relay_1", lights[0].UniqueID())
	assert.Equal(t, before, atomic.LoadInt32(requests), "reading state must not hit the device")
}

func TestSetupWithoutRelays(t *testing.T) {
	session, requests := newSession(t)

	var lights []Light
	require.NoError(t, Setup(context.Background(), &config.Config{Host: "h"}, session, collect(&lights)))
	assert.Empty(t, lights)
	assert.Zero(t, atomic.LoadInt32(requests))
}

func TestSetupPWMNeedsCredentials(t *testing.T) {
	session, requests := newSession(t)
	cfg := &config.Config{Host: "h", Username: strPtr("admin"), PWMChannels: []int{1, 2}}

	var lights []Light
	require.NoError(t, Setup(context.Background(), cfg, session, collect(&lights)))
	assert.Empty(t, lights)
	assert.Zero(t, atomic.LoadInt32(requests))
}

func TestSetupRegistersPWMChannels(t *testing.T) {
	session, _ := newSession(t)
	cfg := &config.Config{
		Host:        "h",
		Username:    strPtr("admin"),
		Password:    strPtr("secret"),
		Relays:      []config.Relay{{Number: 1, Name: "Relay 1"}},
		PWMChannels: []int{1},
	}

	var lights []Light
	require.NoError(t, Setup(context.Background(), cfg, session, collect(&lights)))
	require.Len(t, lights, 2)

	dimmable, ok := lights[1].(Dimmable)
	require.True(t, ok)
	assert.Equal(t, "PWM 1", dimmable.Name())
	assert.True(t, dimmable.IsOn())
	assert.Equal(t, uint8(153), dimmable.Brightness())
	assert.Equal(t, SupportBrightness, dimmable.SupportedFeatures())
}

func TestDimmableLightLowBrightnessStaysOn(t *testing.T) {
	var mu sync.Mutex
	var sent []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if v := r.URL.Query().Get("PWMValue"); v != "" {
			mu.Lock()
			sent = append(sent, v)
			mu.Unlock()
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"status": "Success", "PWM1": 0})
	}))
	defer srv.Close()

	host, port, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)
	session := ipx800.New(host, port, "key")
	cfg := &config.Config{Host: "h", Username: strPtr("admin"), Password: strPtr("secret"), PWMChannels: []int{1}}

	var lights []Light
	require.NoError(t, Setup(context.Background(), cfg, session, collect(&lights)))
	require.Len(t, lights, 1)
	dimmable := lights[0].(Dimmable)
	require.False(t, dimmable.IsOn())

	require.NoError(t, dimmable.TurnOn(context.Background(), WithBrightness(1)))
	assert.True(t, dimmable.IsOn())
	assert.NotZero(t, dimmable.Brightness())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"1"}, sent)
}

func TestSetupReturnsSessionErrors(t *testing.T) {
	session := ipx800.New("127.0.0.1", "1", "key")
	cfg := &config.Config{Host: "h", Relays: []config.Relay{{Number: 1, Name: "Relay 1"}}}

	var lights []Light
	err := Setup(context.Background(), cfg, session, collect(&lights))
	assert.Error(t, err)
	assert.Empty(t, lights)
}

func TestIDPrefix(t *testing.T) {
	assert.Equal(t, "ipx800_192_168_1_20", IDPrefix("192.168.1.20"))
	assert.Equal(t, "ipx800_ipx_local", IDPrefix("IPX.local"))
}
