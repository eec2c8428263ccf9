package telemetry

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestServeHTTPStreamsPublishedEvents(t *testing.T) {
	h := NewHub(nil)
	server := httptest.NewServer(h)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	// Give the server goroutine a moment to register the client before
	// publishing, since Upgrade -> register happens asynchronously from
	// the dialer's perspective.
	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("server never registered the client")
		}
		time.Sleep(10 * time.Millisecond)
	}

	h.Publish(TaskTransition(7, 1, "ready", "running"))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if ev.Kind != EventTaskTransition || ev.TaskID != 7 || ev.ToState != "running" {
		t.Fatalf("got %+v", ev)
	}
}

func TestServeHTTPUnregistersClientOnDisconnect(t *testing.T) {
	h := NewHub(nil)
	server := httptest.NewServer(h)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("server never registered the client")
		}
		time.Sleep(10 * time.Millisecond)
	}

	conn.Close()

	deadline = time.Now().Add(2 * time.Second)
	for h.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("server never unregistered the client after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
