package ipx800

import (
	"context"
	"fmt"
	"net/url"
)

// Relay is one relay output of the controller.
type Relay struct {
	client *Client
	number int
	name   string
	on     bool
}

func (r *Relay) Number() int {
	return r.number
}

func (r *Relay) Name() string {
	return r.name
}

// IsOn returns the last state read from or written to the controller.
func (r *Relay) IsOn() bool {
	return r.on
}

func (r *Relay) TurnOn(ctx context.Context) error {
	if _, err := r.client.get(ctx, false, url.Values{"SetR": {r.code()}}); err != nil {
		return fmt.Errorf("failed to turn on relay %d: %w", r.number, err)
	}
	r.on = true
	return nil
}

func (r *Relay) TurnOff(ctx context.Context) error {
	if _, err := r.client.get(ctx, false, url.Values{"ClearR": {r.code()}}); err != nil {
		return fmt.Errorf("failed to turn off relay %d: %w", r.number, err)
	}
	r.on = false
	return nil
}

// ReloadState reads the relay state from the controller.
func (r *Relay) ReloadState(ctx context.Context) error {
	states, err := r.client.get(ctx, false, url.Values{"Get": {"R"}})
	if err != nil {
		return fmt.Errorf("failed to reload relay %d: %w", r.number, err)
	}
	r.on = states.value(relayKey(r.number)) > 0
	return nil
}

// code is the two digit relay number used by SetR and ClearR.
func (r *Relay) code() string {
	return fmt.Sprintf("%02d", r.number)
}
