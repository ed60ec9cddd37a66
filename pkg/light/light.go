// Package light maps IPX800 relays and X-PWM channels onto the light entity
// model of the home automation host: on/off for relays, on/off plus
// brightness for PWM channels.
//
// Adapters never log, retry or translate errors. Whatever the device session
// returns is handed back to the caller untouched.
package light

import (
	"context"
	"math"
)

// Feature is a bit set of optional light capabilities.
type Feature int

const (
	SupportBrightness Feature = 1 << iota
)

// MaxBrightness is the top of the host brightness scale.
const MaxBrightness = 255

// TurnOnParams carries the optional arguments of a turn on request.
type TurnOnParams struct {
	// Brightness on the host scale [0, 255]. Nil means a plain turn on.
	Brightness *uint8
}

// WithBrightness is a shorthand for a turn on request with a brightness.
func WithBrightness(b uint8) TurnOnParams {
	return TurnOnParams{Brightness: &b}
}

// Light is the entity interface expected by the host.
type Light interface {
	UniqueID() string
	Name() string
	IsOn() bool
	TurnOn(ctx context.Context, params TurnOnParams) error
	TurnOff(ctx context.Context) error
	Update(ctx context.Context) error
	SupportedFeatures() Feature
}

// Dimmable is a Light that reports a brightness.
type Dimmable interface {
	Light
	Brightness() uint8
}

// AddDevicesFunc is the registration callback supplied by the host.
type AddDevicesFunc func(lights ...Light)

// BrightnessToPercent converts a host brightness to a PWM power percentage.
// The result is not rounded.
func BrightnessToPercent(b uint8) float64 {
	return float64(b) / MaxBrightness * 100
}

// PercentToBrightness converts a PWM power percentage to the host scale,
// rounding half up and clamping to [0, 255].
func PercentToBrightness(pct float64) uint8 {
	v := math.Floor(pct/100*MaxBrightness + 0.5)
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > MaxBrightness:
		return MaxBrightness
	}
	return uint8(v)
}
