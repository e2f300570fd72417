package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/tamsinwray/meshconsole/internal/identity"
	"github.com/tamsinwray/meshconsole/internal/infrastructure/logging"
)

// WebSocket close codes used when the dispatcher terminates a session.
const (
	CloseNormal          = 1000
	CloseProtocolError   = 1002
	ClosePolicyViolation = 1008
	CloseInternalError   = 1011
)

// defaultSessionTick is how often a session checks its token for expiry.
const defaultSessionTick = 15 * time.Second

// Conn is the transport side of a session. Implementations must allow
// concurrent SendText and Close calls.
type Conn interface {
	SendText(data []byte) error
	Close(code int, reason string) error
}

// subscribeFunc resolves an identity to a state stream.
type subscribeFunc func(ctx context.Context, ident *identity.Identity) (*Subscription, error)

// Session is one client connection's view of the dispatcher.
//
// A session starts anonymous. The first valid token subscribes it to the
// stream of its claimed device; later tokens only refresh the identity
// so the stream survives re-authentication without duplication. A
// background ticker closes the connection once the current token expires
// without a replacement.
type Session struct {
	id         string
	conn       Conn
	subscribe  subscribeFunc
	identities identity.Provider
	logger     *logging.Logger

	// ctx spans the session's lifetime. Closing the session cancels it,
	// which aborts in-flight token validation and claim lookups.
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	ident  *identity.Identity
	sub    *Subscription
	closed bool
}

func newSession(id string, conn Conn, subscribe subscribeFunc, identities identity.Provider, tick time.Duration, logger *logging.Logger) *Session {
	if tick <= 0 {
		tick = defaultSessionTick
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:         id,
		conn:       conn,
		subscribe:  subscribe,
		identities: identities,
		logger:     logger.With("session", id),
		ctx:        ctx,
		cancel:     cancel,
	}

	go s.watchExpiry(tick)

	return s
}

// watchExpiry closes the connection when the session's token expires.
// Clients are expected to submit a fresh token before that happens.
func (s *Session) watchExpiry(tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case now := <-ticker.C:
			s.mu.Lock()
			ident := s.ident
			s.mu.Unlock()

			if ident != nil && ident.Expired(now) {
				s.logger.Info("Session token expired, closing connection")
				//nolint:errcheck
				s.conn.Close(ClosePolicyViolation, "token expired without submitting a new one")
				return
			}
		}
	}
}

// handleMessage processes one inbound client message.
//
// The only message clients send is a token submission, a JSON object
// with a "token" field. Well-formed messages without that field are
// ignored; malformed JSON is an error and the caller closes the
// connection.
func (s *Session) handleMessage(message []byte) error {
	var msg struct {
		Token *string `json:"token"`
	}
	if err := json.Unmarshal(message, &msg); err != nil {
		return fmt.Errorf("malformed message: %w", err)
	}
	if msg.Token == nil {
		return nil
	}

	// Token validation can hit slow paths, keep it off the read loop.
	go s.authenticate(*msg.Token)

	return nil
}

func (s *Session) authenticate(token string) {
	ident, err := s.identities.Authenticate(s.ctx, token)
	if err != nil {
		// A canceled validation means the session is already gone.
		if s.ctx.Err() != nil {
			return
		}
		s.logger.Warn("Session token rejected", "error", err)
		//nolint:errcheck
		s.conn.Close(CloseInternalError, fmt.Sprintf("failed to validate token: %v", err))
		return
	}

	s.setIdentity(ident)
}

// setIdentity installs a validated identity.
//
// The first identity also resolves the device subscription and starts
// forwarding states. Subsequent identities replace the old one in place,
// extending the session's lifetime without touching the stream.
func (s *Session) setIdentity(ident *identity.Identity) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	first := s.ident == nil
	s.ident = ident
	s.mu.Unlock()

	if !first {
		return
	}

	// The claim lookup may hit the database; keep it off the lock so the
	// expiry ticker and close() stay responsive.
	sub, err := s.subscribe(s.ctx, ident)
	if err != nil {
		if s.ctx.Err() != nil {
			return
		}
		s.logger.Error("Failed to resolve device subscription", "principal", ident.Principal, "error", err)
		//nolint:errcheck
		s.conn.Close(CloseInternalError, "failed to resolve device subscription")
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		sub.Cancel()
		return
	}
	s.sub = sub
	s.mu.Unlock()

	go s.forward(sub)
}

// forward streams device states to the client as JSON text frames.
// It exits when the subscription completes or the connection breaks.
func (s *Session) forward(sub *Subscription) {
	for st := range sub.C {
		data, err := json.Marshal(st)
		if err != nil {
			s.logger.Error("Failed to encode device state", "error", err)
			continue
		}
		if err := s.conn.SendText(data); err != nil {
			s.logger.Debug("Session send failed, stopping forwarder", "error", err)
			return
		}
	}
}

// close releases the session's subscription, stops its ticker and
// cancels any in-flight validation or claim lookup. It does not close
// the transport; the transport owns that. Idempotent.
func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.cancel()

	if s.sub != nil {
		s.sub.Cancel()
		s.sub = nil
	}
}
