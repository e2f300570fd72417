package ingest

import (
	"testing"
	"time"
)

func TestDecode(t *testing.T) {
	payload := []byte(`{
		"specversion": "1.0",
		"type": "io.meshconsole.event.v1",
		"subject": "sensor",
		"device": "dev-1",
		"time": "2026-02-10T12:00:00Z",
		"data": {
			"partial": true,
			"state": {
				"battery": {"location": 256, "level": 0.73}
			}
		}
	}`)

	event, ok := Decode(payload)
	if !ok {
		t.Fatal("Decode() ok = false, want true")
	}

	if event.DeviceID != "dev-1" {
		t.Errorf("DeviceID = %q, want dev-1", event.DeviceID)
	}
	want := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	if !event.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", event.Timestamp, want)
	}
	if !event.Payload.Partial {
		t.Error("Payload.Partial = false, want true")
	}
	if event.Payload.State.Battery == nil || event.Payload.State.Battery.Level != 0.73 {
		t.Errorf("Battery = %+v, want level 0.73", event.Payload.State.Battery)
	}
}

func TestDecode_MissingTimeDefaultsToNow(t *testing.T) {
	payload := []byte(`{
		"type": "io.meshconsole.event.v1",
		"subject": "sensor",
		"device": "dev-1",
		"data": {"partial": false, "state": {}}
	}`)

	before := time.Now()
	event, ok := Decode(payload)
	after := time.Now()

	if !ok {
		t.Fatal("Decode() ok = false, want true")
	}
	if event.Timestamp.Before(before) || event.Timestamp.After(after) {
		t.Errorf("Timestamp = %v, want between %v and %v", event.Timestamp, before, after)
	}
}

func TestDecode_Dropped(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{
			name:    "malformed json",
			payload: `{not json`,
		},
		{
			name:    "wrong event type",
			payload: `{"type":"io.meshconsole.command.v1","subject":"sensor","device":"dev-1","data":{"partial":false,"state":{}}}`,
		},
		{
			name:    "wrong channel",
			payload: `{"type":"io.meshconsole.event.v1","subject":"display","device":"dev-1","data":{"partial":false,"state":{}}}`,
		},
		{
			name:    "missing device",
			payload: `{"type":"io.meshconsole.event.v1","subject":"sensor","data":{"partial":false,"state":{}}}`,
		},
		{
			name:    "missing payload",
			payload: `{"type":"io.meshconsole.event.v1","subject":"sensor","device":"dev-1"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := Decode([]byte(tt.payload)); ok {
				t.Error("Decode() ok = true, want false")
			}
		})
	}
}
