package command

import (
	"encoding/json"
	"fmt"

	"github.com/tamsinwray/meshconsole/internal/infrastructure/logging"
	"github.com/tamsinwray/meshconsole/internal/infrastructure/mqtt"
)

// commandQoS is at-least-once. Losing a command is worse than a device
// seeing it twice; the slots are absolute values, not toggles.
const commandQoS = 1

// Publisher is the broker-facing side of the sender.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Sender publishes device commands to the gateway's command topics.
type Sender struct {
	publisher   Publisher
	application string
	logger      *logging.Logger
}

// NewSender creates a sender for one application.
func NewSender(publisher Publisher, application string, logger *logging.Logger) *Sender {
	return &Sender{
		publisher:   publisher,
		application: application,
		logger:      logger.With("component", "command"),
	}
}

// Send publishes a command payload to a device's sensor channel.
func (s *Sender) Send(deviceID string, payload *Payload) error {
	if deviceID == "" {
		return fmt.Errorf("device id is required")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode command: %w", err)
	}

	topic := mqtt.Topics{}.SensorCommand(s.application, deviceID)
	if err := s.publisher.Publish(topic, data, commandQoS, false); err != nil {
		return fmt.Errorf("failed to publish command to %s: %w", topic, err)
	}

	s.logger.Info("Sent device command", "device", deviceID, "address", payload.Address)

	return nil
}
