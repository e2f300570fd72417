package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/tamsinwray/meshconsole/internal/claim"
	"github.com/tamsinwray/meshconsole/internal/identity"
	"github.com/tamsinwray/meshconsole/internal/infrastructure/logging"
	"github.com/tamsinwray/meshconsole/internal/twin"
)

type fakeClaims struct {
	claims map[string]string // user id -> device id
}

func (f *fakeClaims) GetClaimFor(_ context.Context, userID string) (*claim.DeviceClaim, error) {
	deviceID, ok := f.claims[userID]
	if !ok {
		return nil, claim.ErrNotClaimed
	}
	return &claim.DeviceClaim{ID: deviceID, ProvisioningID: deviceID}, nil
}

type fakeIdentities struct {
	idents map[string]*identity.Identity // token -> identity
}

func (f *fakeIdentities) Authenticate(_ context.Context, token string) (*identity.Identity, error) {
	ident, ok := f.idents[token]
	if !ok {
		return nil, identity.ErrTokenInvalid
	}
	return ident, nil
}

type fakeConn struct {
	mu     sync.Mutex
	sent   [][]byte
	closed bool
	code   int
	reason string
}

func (c *fakeConn) SendText(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	c.sent = append(c.sent, buf)
	return nil
}

func (c *fakeConn) Close(code int, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		c.code = code
		c.reason = reason
	}
	return nil
}

func (c *fakeConn) sentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func (c *fakeConn) lastSent() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sent) == 0 {
		return nil
	}
	return c.sent[len(c.sent)-1]
}

func (c *fakeConn) closeState() (bool, int, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed, c.code, c.reason
}

type fakeMetrics struct {
	mu           sync.Mutex
	batteries    []float64
	temperatures []float64
}

func (m *fakeMetrics) WriteBatteryLevel(_ string, level float64, _ time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batteries = append(m.batteries, level)
}

func (m *fakeMetrics) WriteSensorTemperature(_ string, temperature float64, _ time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.temperatures = append(m.temperatures, temperature)
}

func newTestDispatcher(claims map[string]string, idents map[string]*identity.Identity, tick time.Duration) *Dispatcher {
	return NewDispatcher(Options{
		Claims:      &fakeClaims{claims: claims},
		Identities:  &fakeIdentities{idents: idents},
		Logger:      logging.Default(),
		SessionTick: tick,
	})
}

func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func batteryEvent(deviceID string, level float64, ts time.Time) *twin.DeviceEvent {
	return &twin.DeviceEvent{
		DeviceID:  deviceID,
		Timestamp: ts,
		Payload: &twin.DevicePayload{
			Partial: true,
			State: twin.DeviceState{
				Battery: &twin.BatteryStatus{Location: 256, Level: level},
			},
		},
	}
}

func TestHandleEvent_DropsIncomplete(t *testing.T) {
	d := newTestDispatcher(nil, nil, 0)
	ts := time.Now()

	d.HandleEvent(nil)
	d.HandleEvent(&twin.DeviceEvent{Timestamp: ts, Payload: &twin.DevicePayload{}})
	d.HandleEvent(&twin.DeviceEvent{DeviceID: "dev-1", Timestamp: ts})

	if d.store.Len() != 0 {
		t.Errorf("store.Len() = %d after incomplete events, want 0", d.store.Len())
	}
}

func TestSubscribe_SnapshotThenLive(t *testing.T) {
	d := newTestDispatcher(map[string]string{"alice": "dev-1"}, nil, 0)
	base := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

	d.HandleEvent(batteryEvent("dev-1", 0.73, base))

	sub, err := d.Subscribe(context.Background(), &identity.Identity{Principal: "alice"})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer sub.Cancel()

	snapshot := <-sub.C
	if snapshot.Battery == nil || snapshot.Battery.Level != 0.73 {
		t.Errorf("snapshot battery = %+v, want level 0.73", snapshot.Battery)
	}

	temp := 21.5
	d.HandleEvent(&twin.DeviceEvent{
		DeviceID:  "dev-1",
		Timestamp: base.Add(time.Minute),
		Payload: &twin.DevicePayload{
			Partial: true,
			State: twin.DeviceState{
				Sensor: &twin.SensorStatus{Location: 256, Payload: &twin.SensorPayload{Temperature: &temp}},
			},
		},
	})

	live := <-sub.C
	if live.Battery == nil || live.Battery.Level != 0.73 {
		t.Errorf("live battery = %+v, want level 0.73 carried through the merge", live.Battery)
	}
	if live.Sensor == nil || live.Sensor.Payload == nil || *live.Sensor.Payload.Temperature != 21.5 {
		t.Errorf("live sensor = %+v, want temperature 21.5", live.Sensor)
	}
}

func TestSubscribe_Unclaimed(t *testing.T) {
	d := newTestDispatcher(map[string]string{}, nil, 0)

	sub, err := d.Subscribe(context.Background(), &identity.Identity{Principal: "alice"})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if _, ok := <-sub.C; ok {
		t.Error("unclaimed subscriber received a state, want completed stream")
	}
}

func TestReleaseDevice(t *testing.T) {
	d := newTestDispatcher(map[string]string{"alice": "dev-1"}, nil, 0)
	base := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

	d.HandleEvent(batteryEvent("dev-1", 0.73, base))

	sub, err := d.Subscribe(context.Background(), &identity.Identity{Principal: "alice"})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer sub.Cancel()
	<-sub.C // snapshot

	d.ReleaseDevice("dev-1")

	reset := <-sub.C
	if !reset.DeviceState.IsEmpty() {
		t.Errorf("state after release = %+v, want empty", reset.DeviceState)
	}

	stored, ok := d.store.Latest("dev-1")
	if !ok {
		t.Fatal("Latest() ok = false after release, want present and empty")
	}
	if !stored.DeviceState.IsEmpty() {
		t.Errorf("stored state after release = %+v, want empty", stored.DeviceState)
	}
}

func TestRecordMetrics(t *testing.T) {
	metrics := &fakeMetrics{}
	d := NewDispatcher(Options{
		Claims:     &fakeClaims{},
		Identities: &fakeIdentities{},
		Metrics:    metrics,
		Logger:     logging.Default(),
	})
	base := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

	temp := 19.0
	d.HandleEvent(&twin.DeviceEvent{
		DeviceID:  "dev-1",
		Timestamp: base,
		Payload: &twin.DevicePayload{
			Partial: true,
			State: twin.DeviceState{
				Battery: &twin.BatteryStatus{Location: 256, Level: 0.5},
				Sensor:  &twin.SensorStatus{Location: 256, Payload: &twin.SensorPayload{Temperature: &temp}},
			},
		},
	})
	d.HandleEvent(&twin.DeviceEvent{
		DeviceID:  "dev-1",
		Timestamp: base.Add(time.Minute),
		Payload: &twin.DevicePayload{
			Partial: true,
			State: twin.DeviceState{
				Button: &twin.OnOffStatus{Location: 1, On: true},
			},
		},
	})

	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	if len(metrics.batteries) != 1 || metrics.batteries[0] != 0.5 {
		t.Errorf("battery writes = %v, want [0.5]", metrics.batteries)
	}
	if len(metrics.temperatures) != 1 || metrics.temperatures[0] != 19.0 {
		t.Errorf("temperature writes = %v, want [19]", metrics.temperatures)
	}
}

func TestDispatcherClose(t *testing.T) {
	d := newTestDispatcher(map[string]string{"alice": "dev-1"}, nil, 0)

	sub, err := d.Subscribe(context.Background(), &identity.Identity{Principal: "alice"})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	conn := &fakeConn{}
	d.CreateSession("s1", conn)
	if d.SessionCount() != 1 {
		t.Fatalf("SessionCount() = %d, want 1", d.SessionCount())
	}

	d.Close()

	if d.SessionCount() != 0 {
		t.Errorf("SessionCount() = %d after Close, want 0", d.SessionCount())
	}
	if closed, code, _ := conn.closeState(); !closed || code != CloseNormal {
		t.Errorf("conn close = (%v, %d), want closed with %d", closed, code, CloseNormal)
	}
	if _, ok := <-sub.C; ok {
		t.Error("subscription still open after Close")
	}
}
