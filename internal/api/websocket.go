package api

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tamsinwray/meshconsole/internal/dispatch"
)

// wsWriteTimeout bounds every write to a WebSocket peer.
const wsWriteTimeout = 10 * time.Second

// upgrader configures the WebSocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by CORS middleware
		return true
	},
}

// wsConn adapts a gorilla connection to the dispatcher's transport
// interface. The mutex serializes writes; gorilla connections allow only
// one concurrent writer.
type wsConn struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	closed bool
}

// SendText writes a text frame to the peer.
func (c *wsConn) SendText(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("connection closed")
	}

	//nolint:errcheck // deadline errors surface on the write below
	c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Close sends a close frame with the given code and reason, then closes
// the underlying connection. Idempotent.
func (c *wsConn) Close(code int, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	deadline := time.Now().Add(wsWriteTimeout)
	//nolint:errcheck // best-effort close frame; the peer may already be gone
	c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	return c.conn.Close()
}

// ping sends a ping control frame.
func (c *wsConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("connection closed")
	}
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout))
}

// handleWebSocket upgrades the connection and attaches it to the
// dispatcher as a session.
//
// The socket starts anonymous; the client authenticates by sending a
// token message. All inbound messages are routed to the session, and the
// session pushes device states back as JSON text frames.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	wc := &wsConn{conn: conn}
	sessionID := uuid.NewString()

	s.dispatcher.CreateSession(sessionID, wc)
	defer func() {
		s.dispatcher.DisposeSession(sessionID)
		//nolint:errcheck // connection may already be closed
		wc.Close(dispatch.CloseNormal, "")
	}()

	if s.wsCfg.MaxMessageSize > 0 {
		conn.SetReadLimit(int64(s.wsCfg.MaxMessageSize))
	}

	// Keepalive: ping on an interval, expect a pong before the deadline.
	if s.wsCfg.PingInterval > 0 {
		pongWait := time.Duration(s.wsCfg.PingInterval+s.wsCfg.PongTimeout) * time.Second
		//nolint:errcheck // deadline errors surface on the next read
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			//nolint:errcheck // deadline errors surface on the next read
			conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})

		stop := make(chan struct{})
		defer close(stop)
		go s.pingLoop(wc, stop)
	}

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("websocket read error", "session", sessionID, "error", err)
			}
			return
		}
		s.dispatcher.HandleMessage(sessionID, message)
	}
}

// pingLoop sends periodic pings until the connection goes away.
func (s *Server) pingLoop(wc *wsConn, stop <-chan struct{}) {
	ticker := time.NewTicker(time.Duration(s.wsCfg.PingInterval) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := wc.ping(); err != nil {
				return
			}
		}
	}
}
