package twin

import (
	"time"
)

// OnOffStatus is the state of a device's on/off element (button, speaker).
type OnOffStatus struct {
	// Location is the mesh element address the status was reported from.
	Location int16 `json:"location"`

	// On indicates whether the element is active.
	On bool `json:"on"`
}

// BatteryStatus is a device's reported battery state.
type BatteryStatus struct {
	Location int16 `json:"location"`

	// Level is the battery charge level as a fraction (0.0 to 1.0).
	Level float64 `json:"level"`
}

// Acceleration is a three-axis accelerometer reading.
type Acceleration struct {
	X int64 `json:"x"`
	Y int64 `json:"y"`
	Z int64 `json:"z"`
}

// SensorPayload carries the environmental readings of a sensor element.
// All fields are optional; devices report only what they measured.
type SensorPayload struct {
	// Temperature in degrees Celsius.
	Temperature *float64 `json:"temperature,omitempty"`

	Acceleration *Acceleration `json:"acceleration,omitempty"`

	// Noise is the ambient noise level reading.
	Noise *int64 `json:"noise,omitempty"`
}

// SensorStatus wraps a sensor payload with its element location.
type SensorStatus struct {
	Location int16 `json:"location"`

	Payload *SensorPayload `json:"payload,omitempty"`
}

// DeviceState is the known state of a device across its three elements.
//
// Each slot is independently optional. A nil slot means the device has not
// reported that element (or a partial update did not touch it), which is
// distinct from an element reporting a zero value.
type DeviceState struct {
	Button  *OnOffStatus   `json:"button,omitempty"`
	Battery *BatteryStatus `json:"battery,omitempty"`
	Sensor  *SensorStatus  `json:"sensor,omitempty"`
}

// Merge combines an update into this state, returning the result.
//
// Non-nil slots in the update replace the corresponding slot wholesale;
// nil slots leave the existing value untouched. Neither input is modified.
// Slot values are shared, not deep-copied, so callers must treat them as
// immutable once merged.
//
// Merging is order-sensitive: deltas touching the same slot do not commute.
func (s DeviceState) Merge(update DeviceState) DeviceState {
	out := s

	if update.Button != nil {
		out.Button = update.Button
	}
	if update.Battery != nil {
		out.Battery = update.Battery
	}
	if update.Sensor != nil {
		out.Sensor = update.Sensor
	}

	return out
}

// IsEmpty reports whether no element has reported state.
func (s DeviceState) IsEmpty() bool {
	return s.Button == nil && s.Battery == nil && s.Sensor == nil
}

// State pairs a device state with the time of its most recent update.
// This is the value stored per device and sent to websocket subscribers.
type State struct {
	LastUpdate time.Time `json:"lastUpdate"`

	DeviceState `json:"deviceState"`
}

// Merge combines another state into this one, returning the result.
// The device states merge slot-wise and the timestamps resolve to the
// later of the two.
func (s State) Merge(other State) State {
	t := s.LastUpdate
	if t.Before(other.LastUpdate) {
		t = other.LastUpdate
	}
	return State{
		LastUpdate:  t,
		DeviceState: s.DeviceState.Merge(other.DeviceState),
	}
}

// DevicePayload is the body of an incoming device event.
//
// Partial indicates whether State carries only the slots that changed
// (merge into the stored state) or the device's complete state (replace).
type DevicePayload struct {
	Partial bool        `json:"partial"`
	State   DeviceState `json:"state"`
}

// DeviceEvent is a decoded incoming device message.
type DeviceEvent struct {
	DeviceID  string
	Timestamp time.Time
	Payload   *DevicePayload
}
