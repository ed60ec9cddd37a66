package light

import "context"

// Relay is the part of an IPX800 relay the adapter needs.
type Relay interface {
	Number() int
	Name() string
	IsOn() bool
	TurnOn(ctx context.Context) error
	TurnOff(ctx context.Context) error
	ReloadState(ctx context.Context) error
}

// RelayLight exposes a relay as a non-dimmable light.
type RelayLight struct {
	id    string
	relay Relay
}

func NewRelayLight(idPrefix string, relay Relay) *RelayLight {
	return &RelayLight{
		id:    uniqueID(idPrefix, "relay", relay.Number()),
		relay: relay,
	}
}

func (l *RelayLight) UniqueID() string {
	return l.id
}

func (l *RelayLight) Name() string {
	return l.relay.Name()
}

// IsOn returns the relay state from the last command or reload.
func (l *RelayLight) IsOn() bool {
	return l.relay.IsOn()
}

// TurnOn switches the relay on. Brightness is ignored.
func (l *RelayLight) TurnOn(ctx context.Context, _ TurnOnParams) error {
	return l.relay.TurnOn(ctx)
}

func (l *RelayLight) TurnOff(ctx context.Context) error {
	return l.relay.TurnOff(ctx)
}

func (l *RelayLight) Update(ctx context.Context) error {
	return l.relay.ReloadState(ctx)
}

func (l *RelayLight) SupportedFeatures() Feature {
	return 0
}
