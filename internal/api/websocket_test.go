package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tamsinwray/meshconsole/internal/dispatch"
	"github.com/tamsinwray/meshconsole/internal/twin"
)

// dialWS connects a websocket client to the test server.
func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to dial %s: %v", wsURL, err)
	}
	if resp != nil {
		resp.Body.Close() //nolint:errcheck // Test cleanup
	}
	t.Cleanup(func() { conn.Close() }) //nolint:errcheck // Test cleanup

	return conn
}

func TestWebSocketStateStream(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	rec := env.request(t, http.MethodPut, "/api/deviceClaims/v1alpha1?claimId=0100", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT claim status = %d, want 200", rec.Code)
	}

	base := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	env.dispatcher.HandleEvent(&twin.DeviceEvent{
		DeviceID:  "0100",
		Timestamp: base,
		Payload: &twin.DevicePayload{
			Partial: true,
			State: twin.DeviceState{
				Battery: &twin.BatteryStatus{Location: 256, Level: 0.73},
			},
		},
	})

	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	conn := dialWS(t, srv)
	if err := conn.WriteJSON(map[string]string{"token": token}); err != nil {
		t.Fatalf("failed to send token: %v", err)
	}

	//nolint:errcheck // deadline errors surface on the read
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, frame, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read snapshot frame: %v", err)
	}

	var snapshot twin.State
	if err := json.Unmarshal(frame, &snapshot); err != nil {
		t.Fatalf("failed to decode snapshot: %v", err)
	}
	if snapshot.Battery == nil || snapshot.Battery.Level != 0.73 {
		t.Errorf("snapshot battery = %+v, want level 0.73", snapshot.Battery)
	}

	// a live update follows on the same stream
	env.dispatcher.HandleEvent(&twin.DeviceEvent{
		DeviceID:  "0100",
		Timestamp: base.Add(time.Minute),
		Payload: &twin.DevicePayload{
			Partial: true,
			State: twin.DeviceState{
				Button: &twin.OnOffStatus{Location: 1, On: true},
			},
		},
	})

	//nolint:errcheck // deadline errors surface on the read
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, frame, err = conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read live frame: %v", err)
	}

	var live twin.State
	if err := json.Unmarshal(frame, &live); err != nil {
		t.Fatalf("failed to decode live state: %v", err)
	}
	if live.Button == nil || !live.Button.On {
		t.Errorf("live button = %+v, want on", live.Button)
	}
	if live.Battery == nil || live.Battery.Level != 0.73 {
		t.Errorf("live battery = %+v, want level carried through the merge", live.Battery)
	}
}

func TestWebSocketInvalidToken(t *testing.T) {
	env := newTestEnv(t)

	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	conn := dialWS(t, srv)
	if err := conn.WriteJSON(map[string]string{"token": "junk"}); err != nil {
		t.Fatalf("failed to send token: %v", err)
	}

	//nolint:errcheck // deadline errors surface on the read
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if err == nil {
		t.Fatal("ReadMessage() error = nil, want close")
	}

	var closeErr *websocket.CloseError
	if !errors.As(err, &closeErr) {
		t.Fatalf("error = %v, want close error", err)
	}
	if closeErr.Code != dispatch.CloseInternalError {
		t.Errorf("close code = %d, want %d", closeErr.Code, dispatch.CloseInternalError)
	}
	if !strings.Contains(closeErr.Text, "failed to validate token") {
		t.Errorf("close reason = %q, want token validation failure", closeErr.Text)
	}
}

func TestWebSocketMalformedMessage(t *testing.T) {
	env := newTestEnv(t)

	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	conn := dialWS(t, srv)
	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("failed to send message: %v", err)
	}

	//nolint:errcheck // deadline errors surface on the read
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()

	var closeErr *websocket.CloseError
	if !errors.As(err, &closeErr) {
		t.Fatalf("error = %v, want close error", err)
	}
	if closeErr.Code != dispatch.CloseProtocolError {
		t.Errorf("close code = %d, want %d", closeErr.Code, dispatch.CloseProtocolError)
	}
}
