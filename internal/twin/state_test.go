package twin

import (
	"testing"
	"time"
)

func floatPtr(v float64) *float64 {
	return &v
}

func sensorWithTemperature(temp float64) *SensorStatus {
	return &SensorStatus{
		Payload: &SensorPayload{
			Temperature: floatPtr(temp),
		},
	}
}

// TestDeviceStateMerge verifies slot-wise merge behaviour.
func TestDeviceStateMerge(t *testing.T) {
	t.Run("non-nil slot overrides", func(t *testing.T) {
		base := DeviceState{
			Battery: &BatteryStatus{Level: 0.9},
			Sensor:  sensorWithTemperature(20),
		}
		update := DeviceState{
			Battery: &BatteryStatus{Level: 0.7},
		}

		merged := base.Merge(update)

		if merged.Battery == nil || merged.Battery.Level != 0.7 {
			t.Errorf("Battery = %+v, want level 0.7", merged.Battery)
		}
		if merged.Sensor == nil || *merged.Sensor.Payload.Temperature != 20 {
			t.Errorf("Sensor = %+v, want temperature 20 preserved", merged.Sensor)
		}
	})

	t.Run("nil slots leave existing values", func(t *testing.T) {
		base := DeviceState{
			Button:  &OnOffStatus{On: true},
			Battery: &BatteryStatus{Level: 0.5},
		}

		merged := base.Merge(DeviceState{})

		if merged.Button == nil || !merged.Button.On {
			t.Errorf("Button = %+v, want on", merged.Button)
		}
		if merged.Battery == nil || merged.Battery.Level != 0.5 {
			t.Errorf("Battery = %+v, want level 0.5", merged.Battery)
		}
	})

	t.Run("does not modify inputs", func(t *testing.T) {
		base := DeviceState{Battery: &BatteryStatus{Level: 0.9}}
		update := DeviceState{Battery: &BatteryStatus{Level: 0.1}}

		_ = base.Merge(update)

		if base.Battery.Level != 0.9 {
			t.Errorf("base modified: Battery.Level = %v, want 0.9", base.Battery.Level)
		}
		if update.Battery.Level != 0.1 {
			t.Errorf("update modified: Battery.Level = %v, want 0.1", update.Battery.Level)
		}
	})

	t.Run("order sensitivity", func(t *testing.T) {
		a := DeviceState{Battery: &BatteryStatus{Level: 0.3}}
		b := DeviceState{Battery: &BatteryStatus{Level: 0.8}}

		ab := DeviceState{}.Merge(a).Merge(b)
		ba := DeviceState{}.Merge(b).Merge(a)

		if ab.Battery.Level != 0.8 {
			t.Errorf("a then b: Battery.Level = %v, want 0.8", ab.Battery.Level)
		}
		if ba.Battery.Level != 0.3 {
			t.Errorf("b then a: Battery.Level = %v, want 0.3", ba.Battery.Level)
		}
	})
}

// TestDeviceStateIsEmpty verifies empty-state detection.
func TestDeviceStateIsEmpty(t *testing.T) {
	if !(DeviceState{}).IsEmpty() {
		t.Error("IsEmpty() = false for zero state, want true")
	}

	populated := DeviceState{Button: &OnOffStatus{}}
	if populated.IsEmpty() {
		t.Error("IsEmpty() = true with button slot set, want false")
	}
}

// TestStateMerge verifies the timestamped merge keeps the later timestamp.
func TestStateMerge(t *testing.T) {
	earlier := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	later := earlier.Add(5 * time.Minute)

	t.Run("newer update wins timestamp", func(t *testing.T) {
		merged := State{
			LastUpdate:  earlier,
			DeviceState: DeviceState{Battery: &BatteryStatus{Level: 0.9}},
		}.Merge(State{
			LastUpdate:  later,
			DeviceState: DeviceState{Battery: &BatteryStatus{Level: 0.7}},
		})

		if !merged.LastUpdate.Equal(later) {
			t.Errorf("LastUpdate = %v, want %v", merged.LastUpdate, later)
		}
		if merged.DeviceState.Battery.Level != 0.7 {
			t.Errorf("Battery.Level = %v, want 0.7", merged.DeviceState.Battery.Level)
		}
	})

	t.Run("stale timestamp does not rewind", func(t *testing.T) {
		merged := State{
			LastUpdate:  later,
			DeviceState: DeviceState{Battery: &BatteryStatus{Level: 0.9}},
		}.Merge(State{
			LastUpdate:  earlier,
			DeviceState: DeviceState{Battery: &BatteryStatus{Level: 0.7}},
		})

		if !merged.LastUpdate.Equal(later) {
			t.Errorf("LastUpdate = %v, want %v (max of both)", merged.LastUpdate, later)
		}
		// Slot content still applies even when the timestamp is stale.
		if merged.DeviceState.Battery.Level != 0.7 {
			t.Errorf("Battery.Level = %v, want 0.7", merged.DeviceState.Battery.Level)
		}
	})
}
