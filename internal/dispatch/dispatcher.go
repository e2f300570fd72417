package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tamsinwray/meshconsole/internal/claim"
	"github.com/tamsinwray/meshconsole/internal/identity"
	"github.com/tamsinwray/meshconsole/internal/infrastructure/logging"
	"github.com/tamsinwray/meshconsole/internal/twin"
)

// ClaimResolver maps a subscriber to their claimed device.
type ClaimResolver interface {
	GetClaimFor(ctx context.Context, userID string) (*claim.DeviceClaim, error)
}

// MetricsWriter records telemetry values as they pass through.
// Implementations must not block; writes happen on the intake path.
type MetricsWriter interface {
	WriteBatteryLevel(deviceID string, level float64, timestamp time.Time)
	WriteSensorTemperature(deviceID string, temperature float64, timestamp time.Time)
}

// Options configures a Dispatcher.
type Options struct {
	Claims     ClaimResolver
	Identities identity.Provider
	Metrics    MetricsWriter // optional
	Logger     *logging.Logger
	// SessionTick is the token expiry check interval, default 15s.
	SessionTick time.Duration
}

// Dispatcher is the hub between device telemetry and client sessions.
//
// Inbound events update the latest-state store and fan out to the
// per-device broadcast channels. Client sessions attach through
// Subscribe, which resolves the subscriber's claimed device and hands
// out a snapshot-then-live stream.
type Dispatcher struct {
	store      *Store
	registry   *Registry
	claims     ClaimResolver
	identities identity.Provider
	metrics    MetricsWriter
	logger     *logging.Logger
	tick       time.Duration

	sessionsMu sync.RWMutex
	sessions   map[string]*Session
}

// NewDispatcher creates a dispatcher with an empty store and no sessions.
func NewDispatcher(opts Options) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}

	return &Dispatcher{
		store:      NewStore(),
		registry:   NewRegistry(),
		claims:     opts.Claims,
		identities: opts.Identities,
		metrics:    opts.Metrics,
		logger:     logger.With("component", "dispatch"),
		tick:       opts.SessionTick,
		sessions:   make(map[string]*Session),
	}
}

// HandleEvent folds a device event into the store and broadcasts the
// merged state. Events without a device id or payload are dropped.
func (d *Dispatcher) HandleEvent(event *twin.DeviceEvent) {
	if event == nil || event.DeviceID == "" || event.Payload == nil {
		d.logger.Debug("Dropping incomplete device event")
		return
	}

	update := twin.State{
		LastUpdate:  event.Timestamp,
		DeviceState: event.Payload.State,
	}

	ch := d.registry.Get(event.DeviceID)
	ch.Broadcast(func() twin.State {
		return d.store.Apply(event.DeviceID, update, event.Payload.Partial)
	})

	d.recordMetrics(event)
}

// recordMetrics forwards measurable slots of the update to the metrics
// sink. Only the values present in this event are written, not the
// merged state, so each reading lands once.
func (d *Dispatcher) recordMetrics(event *twin.DeviceEvent) {
	if d.metrics == nil {
		return
	}

	state := event.Payload.State
	if state.Battery != nil {
		d.metrics.WriteBatteryLevel(event.DeviceID, state.Battery.Level, event.Timestamp)
	}
	if state.Sensor != nil && state.Sensor.Payload != nil && state.Sensor.Payload.Temperature != nil {
		d.metrics.WriteSensorTemperature(event.DeviceID, *state.Sensor.Payload.Temperature, event.Timestamp)
	}
}

// ReleaseDevice resets a device to an empty state and broadcasts the
// reset, so attached clients see the device go blank rather than a
// frozen last reading.
func (d *Dispatcher) ReleaseDevice(deviceID string) {
	if deviceID == "" {
		return
	}

	empty := twin.State{LastUpdate: time.Now()}

	ch := d.registry.Get(deviceID)
	ch.Broadcast(func() twin.State {
		return d.store.Apply(deviceID, empty, false)
	})

	d.logger.Info("Device state released", "device", deviceID)
}

// Subscribe resolves the identity's claimed device and returns its
// state stream, seeded with the latest stored state when one exists.
//
// Subscribers without a claimed device get an already-completed stream
// rather than an error; the claim may arrive later over a new session.
func (d *Dispatcher) Subscribe(ctx context.Context, ident *identity.Identity) (*Subscription, error) {
	dc, err := d.claims.GetClaimFor(ctx, ident.Principal)
	if errors.Is(err, claim.ErrNotClaimed) {
		d.logger.Debug("Subscriber has no claimed device", "principal", ident.Principal)
		return emptySubscription(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve claim for %q: %w", ident.Principal, err)
	}

	ch := d.registry.Get(dc.ID)
	return ch.Listen(func() (twin.State, bool) {
		return d.store.Latest(dc.ID)
	}), nil
}

// CreateSession registers a new client connection and returns its
// session id. The session stays anonymous until a token arrives.
func (d *Dispatcher) CreateSession(id string, conn Conn) {
	s := newSession(id, conn, d.Subscribe, d.identities, d.tick, d.logger)

	d.sessionsMu.Lock()
	d.sessions[id] = s
	d.sessionsMu.Unlock()

	d.logger.Debug("Session created", "session", id)
}

// DisposeSession tears down a session after its connection is gone.
// Unknown ids are ignored.
func (d *Dispatcher) DisposeSession(id string) {
	d.sessionsMu.Lock()
	s := d.sessions[id]
	delete(d.sessions, id)
	d.sessionsMu.Unlock()

	if s == nil {
		return
	}
	s.close()

	d.logger.Debug("Session disposed", "session", id)
}

// HandleMessage routes an inbound client message to its session.
// A message the session cannot handle closes the connection with a
// protocol error.
func (d *Dispatcher) HandleMessage(id string, message []byte) {
	d.sessionsMu.RLock()
	s := d.sessions[id]
	d.sessionsMu.RUnlock()

	if s == nil {
		d.logger.Warn("Message for unknown session", "session", id)
		return
	}

	if err := s.handleMessage(message); err != nil {
		d.logger.Warn("Failed to handle session message", "session", id, "error", err)
		//nolint:errcheck
		s.conn.Close(CloseProtocolError, fmt.Sprintf("failed to handle message: %v", err))
	}
}

// SessionCount returns the number of attached sessions.
func (d *Dispatcher) SessionCount() int {
	d.sessionsMu.RLock()
	defer d.sessionsMu.RUnlock()
	return len(d.sessions)
}

// Close tears down all sessions and completes every listener stream.
func (d *Dispatcher) Close() {
	d.sessionsMu.Lock()
	sessions := d.sessions
	d.sessions = make(map[string]*Session)
	d.sessionsMu.Unlock()

	for _, s := range sessions {
		s.close()
		//nolint:errcheck
		s.conn.Close(CloseNormal, "server shutting down")
	}

	detached := d.registry.CloseAll()
	d.logger.Info("Dispatcher closed", "sessions", len(sessions), "listeners", detached)
}
