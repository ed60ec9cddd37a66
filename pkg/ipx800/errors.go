package ipx800

import "errors"

var (
	ErrNoRelays           = errors.New("ipx800: no relays to configure")
	ErrNoChannels         = errors.New("ipx800: no PWM channels to configure")
	ErrMissingCredentials = errors.New("ipx800: PWM control requires username and password")
	ErrUnknownRelay       = errors.New("ipx800: relay not configured")
	ErrUnknownChannel     = errors.New("ipx800: PWM channel not configured")
	ErrDeviceStatus       = errors.New("ipx800: device reported an error")
)
