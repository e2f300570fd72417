package ingest

import (
	"encoding/json"
	"time"

	"github.com/tamsinwray/meshconsole/internal/twin"
)

// Envelope filter values. The gateway wraps device messages in a
// CloudEvents-style JSON envelope; only telemetry events on the sensor
// channel carry device state.
const (
	eventType     = "io.meshconsole.event.v1"
	sensorChannel = "sensor"
)

// envelope is the gateway's JSON event wrapper.
type envelope struct {
	Type    string              `json:"type"`
	Subject string              `json:"subject"`
	Device  string              `json:"device"`
	Time    *time.Time          `json:"time"`
	Data    *twin.DevicePayload `json:"data"`
}

// Decode parses a raw broker message into a device event.
//
// Messages that are malformed, are not telemetry events, are not on the
// sensor channel, or lack a device id or payload decode to (nil, false).
// Callers drop those silently; a noisy gateway is normal.
//
// Events without a timestamp are stamped with the current time.
func Decode(payload []byte) (*twin.DeviceEvent, bool) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, false
	}

	if env.Type != eventType || env.Subject != sensorChannel {
		return nil, false
	}
	if env.Device == "" || env.Data == nil {
		return nil, false
	}

	ts := time.Now()
	if env.Time != nil {
		ts = *env.Time
	}

	return &twin.DeviceEvent{
		DeviceID:  env.Device,
		Timestamp: ts,
		Payload:   env.Data,
	}, true
}
