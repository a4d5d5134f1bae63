package web

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer("127.0.0.1:0")
	ts := httptest.NewServer(s.httpServer.Handler)
	t.Cleanup(ts.Close)
	return s, ts
}

func TestFrameEndpoint(t *testing.T) {
	s, ts := newTestServer(t)

	t.Run("EmptyBeforeFirstFrame", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/frame")
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		if string(body) != "{}" {
			t.Errorf("Expected empty object, got %q", body)
		}
	})

	t.Run("LastFrameServed", func(t *testing.T) {
		s.Broadcast([]byte(`{"state":"active"}`))
		resp, err := http.Get(ts.URL + "/frame")
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		if string(body) != `{"state":"active"}` {
			t.Errorf("Expected broadcast frame, got %q", body)
		}
	})
}

func TestWebsocketStream(t *testing.T) {
	s, ts := newTestServer(t)
	s.Broadcast([]byte(`{"state":"before_first"}`))

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to dial websocket: %v", err)
	}
	defer conn.Close()

	// Replay of the last frame on connect.
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read replayed frame: %v", err)
	}
	if string(msg) != `{"state":"before_first"}` {
		t.Errorf("Expected replayed frame, got %q", msg)
	}

	time.Sleep(50 * time.Millisecond) // let the server finish registering the client
	s.Broadcast([]byte(`{"state":"active"}`))
	_, msg, err = conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read live frame: %v", err)
	}
	if string(msg) != `{"state":"active"}` {
		t.Errorf("Expected live frame, got %q", msg)
	}
}
