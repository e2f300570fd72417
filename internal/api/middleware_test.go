package api

import (
	"bufio"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
)

// hijackRecorder is a response recorder that also offers Hijack, the
// shape a real server connection has during a WebSocket upgrade.
type hijackRecorder struct {
	*httptest.ResponseRecorder
	hijacked bool
}

func (h *hijackRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h.hijacked = true
	return nil, nil, nil
}

// TestStatusWriterPassesThroughHijack verifies the logging middleware's
// response wrapper does not hide the connection from WebSocket upgrades.
func TestStatusWriterPassesThroughHijack(t *testing.T) {
	rec := &hijackRecorder{ResponseRecorder: httptest.NewRecorder()}
	var w http.ResponseWriter = &statusWriter{ResponseWriter: rec, status: http.StatusOK}

	hj, ok := w.(http.Hijacker)
	if !ok {
		t.Fatal("statusWriter does not expose Hijack")
	}
	if _, _, err := hj.Hijack(); err != nil {
		t.Fatalf("Hijack() error = %v", err)
	}
	if !rec.hijacked {
		t.Error("Hijack() did not reach the underlying connection")
	}
}

func TestStatusWriterHijackUnsupported(t *testing.T) {
	w := &statusWriter{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}
	if _, _, err := w.Hijack(); err == nil {
		t.Error("Hijack() on a non-hijackable writer should fail")
	}
}
