package homeassistant

import (
	"fmt"
	"net/url"

	"github.com/automatedhome/common/pkg/mqttclient"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTBroker publishes through a paho client.
type MQTTBroker struct {
	client mqtt.Client
	qos    byte
}

// Connect opens the broker connection and subscribes to topics. Every
// received message is passed to handler.
func Connect(broker, clientID string, topics []string, handler func(topic string, payload []byte)) (*MQTTBroker, error) {
	uri, err := url.Parse(broker)
	if err != nil {
		return nil, fmt.Errorf("invalid broker address %q: %w", broker, err)
	}
	if uri.Host == "" {
		return nil, fmt.Errorf("invalid broker address %q: missing host", broker)
	}

	client := mqttclient.New(clientID, uri, topics, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Topic(), msg.Payload())
	})

	return &MQTTBroker{client: client, qos: 1}, nil
}

func (b *MQTTBroker) Publish(topic string, retained bool, payload []byte) error {
	return mqttclient.Publish(b.client, topic, b.qos, retained, string(payload))
}

// Disconnect waits up to quiesce milliseconds for pending work.
func (b *MQTTBroker) Disconnect(quiesce uint) {
	b.client.Disconnect(quiesce)
}
