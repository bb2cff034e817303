package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"keyoverlay/internal/broadcast"
	"keyoverlay/internal/protocol"
)

type fakeBackend struct{}

func (fakeBackend) Greeting() []protocol.Message {
	return []protocol.Message{protocol.Settings(json.RawMessage(`{"comboMode":true}`))}
}

func (fakeBackend) Status() Status {
	return Status{Capture: "running", Clients: 1, Trusted: true}
}

func (fakeBackend) Settings() json.RawMessage { return json.RawMessage(`{"comboMode":true}`) }

func (fakeBackend) UpdateSettings([]byte) {}

type settingsBackend struct {
	fakeBackend
	updates []string
}

func (b *settingsBackend) UpdateSettings(raw []byte) {
	b.updates = append(b.updates, string(raw))
}

func dial(t *testing.T, srv *httptest.Server, header http.Header) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) protocol.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg protocol.Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	return msg
}

func waitCount(t *testing.T, hub *broadcast.Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Count() != n {
		if time.Now().After(deadline) {
			t.Fatalf("Expected %d subscribers, got %d", n, hub.Count())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSubscriberReceivesSettingsThenKeys(t *testing.T) {
	hub := broadcast.NewHub(16)
	srv := httptest.NewServer(New(hub, fakeBackend{}).WSHandler())
	defer srv.Close()

	conn := dial(t, srv, nil)
	waitCount(t, hub, 1)

	msg := read(t, conn)
	if msg.Type != protocol.TypeSettings || string(msg.Data) != `{"comboMode":true}` {
		t.Errorf("Expected settings greeting, got %+v", msg)
	}

	hub.Publish(protocol.KeyPress("Ctrl+Shift+A"))
	msg = read(t, conn)
	if msg.Type != protocol.TypeKeyPress || msg.Combo != "Ctrl+Shift+A" {
		t.Errorf("Expected keypress Ctrl+Shift+A, got %+v", msg)
	}
}

func TestFanOutAndDisconnect(t *testing.T) {
	hub := broadcast.NewHub(16)
	srv := httptest.NewServer(New(hub, fakeBackend{}).WSHandler())
	defer srv.Close()

	a := dial(t, srv, nil)
	b := dial(t, srv, nil)
	waitCount(t, hub, 2)
	read(t, a)
	read(t, b)

	b.Close()
	waitCount(t, hub, 1)

	hub.Publish(protocol.KeyPress("X"))
	if msg := read(t, a); msg.Combo != "X" {
		t.Errorf("Expected X, got %+v", msg)
	}
}

func TestForeignOriginRejected(t *testing.T) {
	hub := broadcast.NewHub(16)
	srv := httptest.NewServer(New(hub, fakeBackend{}).WSHandler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	header := http.Header{"Origin": {"https://example.com"}}
	if _, _, err := websocket.DefaultDialer.Dial(url, header); err == nil {
		t.Error("Expected handshake from a foreign origin to fail")
	}

	dial(t, srv, http.Header{"Origin": {"http://127.0.0.1:9002"}})
	waitCount(t, hub, 1)
}

func TestStatusAndPage(t *testing.T) {
	hub := broadcast.NewHub(16)
	srv := httptest.NewServer(New(hub, fakeBackend{}).HTTPHandler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/status")
	if err != nil {
		t.Fatalf("GET /api/status failed: %v", err)
	}
	var st Status
	json.NewDecoder(resp.Body).Decode(&st)
	resp.Body.Close()
	if st.Capture != "running" || st.Clients != 1 || !st.Trusted {
		t.Errorf("Unexpected status %+v", st)
	}

	resp, err = http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("GET / failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "WebSocket") {
		t.Errorf("Expected overlay page, got %d", resp.StatusCode)
	}

	resp, err = http.Post(srv.URL+"/api/status", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", resp.StatusCode)
	}
}

func TestSettingsEndpoint(t *testing.T) {
	b := &settingsBackend{}
	h := New(broadcast.NewHub(1), b).HTTPHandler()

	do := func(method, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/api/settings", strings.NewReader(body))
		req.RemoteAddr = "127.0.0.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := do(http.MethodGet, "")
	if rec.Code != http.StatusOK || rec.Body.String() != `{"comboMode":true}` {
		t.Errorf("Expected current settings, got %d %q", rec.Code, rec.Body.String())
	}

	rec = do(http.MethodPut, `{"comboMode":false}`)
	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", rec.Code)
	}
	if len(b.updates) != 1 || b.updates[0] != `{"comboMode":false}` {
		t.Errorf("Expected one settings update, got %v", b.updates)
	}

	for _, bad := range []string{`{"comboMode":`, `[1]`, `"x"`, `null`} {
		rec = do(http.MethodPut, bad)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400 for %s, got %d", bad, rec.Code)
		}
	}
	if len(b.updates) != 1 {
		t.Errorf("Expected malformed settings to be rejected, got %v", b.updates)
	}

	rec = do(http.MethodDelete, "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rec.Code)
	}
}

func TestLocalOnly(t *testing.T) {
	s := New(broadcast.NewHub(1), fakeBackend{})
	h := s.HTTPHandler()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "192.168.1.20:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for remote peer, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "127.0.0.1:5555"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 for local peer, got %d", rec.Code)
	}
}

func TestStartRejectsBadAddress(t *testing.T) {
	s := New(broadcast.NewHub(1), fakeBackend{})
	if err := s.Start("127.0.0.1:0", "bad address"); err == nil {
		t.Error("Expected error for invalid listen address")
	}
}
