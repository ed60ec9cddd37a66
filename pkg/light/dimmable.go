package light

import (
	"context"
	"fmt"
)

// PWMChannel is the part of an X-PWM channel the adapter needs.
type PWMChannel interface {
	Number() int
	Power() float64
	IsOn() bool
	TurnOn(ctx context.Context) error
	SetPower(ctx context.Context, pct float64) error
	TurnOff(ctx context.Context) error
	ReloadPower(ctx context.Context) error
}

// DimmableLight exposes a PWM channel as a light with brightness.
type DimmableLight struct {
	id      string
	channel PWMChannel
}

func NewDimmableLight(idPrefix string, channel PWMChannel) *DimmableLight {
	return &DimmableLight{
		id:      uniqueID(idPrefix, "pwm", channel.Number()),
		channel: channel,
	}
}

func (l *DimmableLight) UniqueID() string {
	return l.id
}

func (l *DimmableLight) Name() string {
	return fmt.Sprintf("PWM %d", l.channel.Number())
}

func (l *DimmableLight) IsOn() bool {
	return l.channel.IsOn()
}

// TurnOn forwards the requested brightness as a power percentage, or lets the
// channel pick its own level when none is given.
func (l *DimmableLight) TurnOn(ctx context.Context, params TurnOnParams) error {
	if params.Brightness != nil {
		return l.channel.SetPower(ctx, BrightnessToPercent(*params.Brightness))
	}
	return l.channel.TurnOn(ctx)
}

func (l *DimmableLight) TurnOff(ctx context.Context) error {
	return l.channel.TurnOff(ctx)
}

func (l *DimmableLight) Brightness() uint8 {
	return PercentToBrightness(l.channel.Power())
}

func (l *DimmableLight) Update(ctx context.Context) error {
	return l.channel.ReloadPower(ctx)
}

func (l *DimmableLight) SupportedFeatures() Feature {
	return SupportBrightness
}
