package light

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/automatedhome/ipx800-lights/pkg/config"
	"github.com/automatedhome/ipx800-lights/pkg/ipx800"
)

// Session is the device session Setup configures. *ipx800.Client implements it.
type Session interface {
	ConfigureRelays(ctx context.Context, cfg ipx800.RelaysConfig) error
	ConfigurePWM(ctx context.Context, cfg ipx800.PWMConfig) error
	Relays() []*ipx800.Relay
	PWMChannels() []*ipx800.PWMChannel
}

// Setup configures the enabled relays and PWM channels on the session and
// registers one light per relay and per channel through add.
//
// Relays are only configured when at least one is enabled. PWM channels
// additionally need both credentials.
func Setup(ctx context.Context, cfg *config.Config, session Session, add AddDevicesFunc) error {
	prefix := IDPrefix(cfg.Host)

	if len(cfg.Relays) > 0 {
		defs := make([]ipx800.RelayDefinition, 0, len(cfg.Relays))
		for _, r := range cfg.Relays {
			defs = append(defs, ipx800.RelayDefinition{Number: r.Number, Name: r.Name})
		}
		if err := session.ConfigureRelays(ctx, ipx800.RelaysConfig{Relays: defs}); err != nil {
			return fmt.Errorf("configuring relays: %w", err)
		}

		var lights []Light
		for _, r := range session.Relays() {
			lights = append(lights, NewRelayLight(prefix, r))
		}
		add(lights...)
	}

	if cfg.PWMEnabled() {
		pwm := ipx800.PWMConfig{
			Username: *cfg.Username,
			Password: *cfg.Password,
			Channels: cfg.PWMChannels,
		}
		if err := session.ConfigurePWM(ctx, pwm); err != nil {
			return fmt.Errorf("configuring PWM channels: %w", err)
		}

		var lights []Light
		for _, c := range session.PWMChannels() {
			lights = append(lights, NewDimmableLight(prefix, c))
		}
		add(lights...)
	}

	return nil
}

// IDPrefix derives a stable unique id prefix from the controller address.
func IDPrefix(host string) string {
	clean := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return '_'
	}, host)
	return "ipx800_" + strings.Trim(clean, "_")
}

func uniqueID(prefix, kind string, number int) string {
	return fmt.Sprintf("%s_%s_%d", prefix, kind, number)
}
