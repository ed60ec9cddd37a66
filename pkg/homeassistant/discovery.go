package homeassistant

import (
	"fmt"

	"github.com/automatedhome/ipx800-lights/pkg/light"
)

// lightConfiguration is the MQTT discovery payload of a JSON schema light.
type lightConfiguration struct {
	Name              string     `json:"name"`
	UniqueID          string     `json:"unique_id"`
	CommandTopic      string     `json:"command_topic"`
	StateTopic        string     `json:"state_topic"`
	AvailabilityTopic string     `json:"availability_topic"`
	Schema            string     `json:"schema"`
	Brightness        bool       `json:"brightness"`
	BrightnessScale   int        `json:"brightness_scale,omitempty"`
	Device            deviceInfo `json:"device"`
}

type deviceInfo struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
}

func (h *Host) discoveryConfig(l light.Light) lightConfiguration {
	cfg := lightConfiguration{
		Name:              l.Name(),
		UniqueID:          l.UniqueID(),
		CommandTopic:      h.commandTopic(l.UniqueID()),
		StateTopic:        h.stateTopic(l.UniqueID()),
		AvailabilityTopic: h.availabilityTopic(),
		Schema:            "json",
		Device: deviceInfo{
			Identifiers:  []string{h.opts.DeviceID},
			Name:         h.opts.DeviceName,
			Manufacturer: "GCE Electronics",
			Model:        "IPX800 V4",
		},
	}
	if l.SupportedFeatures()&light.SupportBrightness != 0 {
		cfg.Brightness = true
		cfg.BrightnessScale = light.MaxBrightness
	}
	return cfg
}

func (h *Host) discoveryTopic(id string) string {
	return fmt.Sprintf("%s/light/%s/config", h.opts.DiscoveryPrefix, id)
}

func (h *Host) commandTopic(id string) string {
	return fmt.Sprintf("%s/%s/set", h.opts.BaseTopic, id)
}

func (h *Host) stateTopic(id string) string {
	return fmt.Sprintf("%s/%s/state", h.opts.BaseTopic, id)
}

func (h *Host) availabilityTopic() string {
	return h.opts.BaseTopic + "/status"
}
