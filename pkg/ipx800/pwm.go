package ipx800

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
)

const fullPower = 100.0

// PWMChannel is one X-PWM output. Its power is a percentage in [0, 100].
type PWMChannel struct {
	client *Client
	number int
	power  float64
}

func (c *PWMChannel) Number() int {
	return c.number
}

// Power returns the last power level read from or written to the controller.
func (c *PWMChannel) Power() float64 {
	return c.power
}

func (c *PWMChannel) IsOn() bool {
	return c.power > 0
}

// TurnOn drives the channel at full power.
func (c *PWMChannel) TurnOn(ctx context.Context) error {
	return c.SetPower(ctx, fullPower)
}

func (c *PWMChannel) TurnOff(ctx context.Context) error {
	return c.SetPower(ctx, 0)
}

// SetPower sets the channel to pct percent. The controller only accepts whole
// percentages, so pct is clamped to [0, 100] and rounded half up. Any
// positive pct keeps the channel on with at least 1%.
func (c *PWMChannel) SetPower(ctx context.Context, pct float64) error {
	pct = clampPercent(pct)
	value := math.Round(pct)
	if pct > 0 {
		value = math.Max(1, value)
	}

	params := url.Values{
		"SetPWM":   {strconv.Itoa(c.number)},
		"PWMValue": {strconv.Itoa(int(value))},
	}
	if _, err := c.client.get(ctx, true, params); err != nil {
		return fmt.Errorf("failed to set PWM %d to %v%%: %w", c.number, value, err)
	}
	c.power = value
	return nil
}

// ReloadPower reads the channel power level from the controller.
func (c *PWMChannel) ReloadPower(ctx context.Context) error {
	levels, err := c.client.get(ctx, true, url.Values{"Get": {"PWM"}})
	if err != nil {
		return fmt.Errorf("failed to reload PWM %d: %w", c.number, err)
	}
	c.power = clampPercent(levels.value(channelKey(c.number)))
	return nil
}

func clampPercent(pct float64) float64 {
	if math.IsNaN(pct) || pct < 0 {
		return 0
	}
	if pct > fullPower {
		return fullPower
	}
	return pct
}
