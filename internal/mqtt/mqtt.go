// Package mqtt publishes reminder payloads to an MQTT broker.
package mqtt

import (
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

const defaultTimeout = 5 * time.Second

// Options describes one broker connection and target topic.
type Options struct {
	Broker   string // e.g. tcp://localhost:1883
	Topic    string
	ClientID string // random planner-<uuid> when empty
	Username string
	Password string
	QoS      byte
	Retain   bool
	Timeout  time.Duration
}

func (o Options) clientID() string {
	if o.ClientID != "" {
		return o.ClientID
	}
	return "planner-" + uuid.NewString()
}

func (o Options) timeout() time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	return defaultTimeout
}

// Publish connects, publishes payload and disconnects. Reminders are
// rare, so every call uses a fresh connection.
func Publish(o Options, payload []byte) error {
	if o.Broker == "" || o.Topic == "" {
		return fmt.Errorf("mqtt: broker and topic are required")
	}
	opts := pahomqtt.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.clientID()).
		SetConnectTimeout(o.timeout())
	if o.Username != "" {
		opts.SetUsername(o.Username)
	}
	if o.Password != "" {
		opts.SetPassword(o.Password)
	}

	client := pahomqtt.NewClient(opts)
	tok := client.Connect()
	if !tok.WaitTimeout(o.timeout()) {
		return fmt.Errorf("mqtt: connect timeout")
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("mqtt: connect: %w", err)
	}
	defer client.Disconnect(250)

	pub := client.Publish(o.Topic, o.QoS, o.Retain, payload)
	if !pub.WaitTimeout(o.timeout()) {
		return fmt.Errorf("mqtt: publish timeout")
	}
	if err := pub.Error(); err != nil {
		return fmt.Errorf("mqtt: publish: %w", err)
	}
	return nil
}
