package main

import (
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// The shared hub singleton stays up for the other ws tests, so the
// start/stop lifecycle is exercised on a hub of its own.
func TestHubStopWaitsForLoopExit(t *testing.T) {
	h := newHub()
	h.start()

	h.register <- &Client{userID: "loner"}

	stopped := make(chan struct{})
	go func() {
		h.stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("stop should return once the loop drains")
	}
}

func TestWebSocketHandshakeAndCommands(t *testing.T) {
	srv := startTestServer(t)

	conn := wsDial(t, srv, "alice", "")
	defer conn.Close()

	// A fresh name is registered on connect and greeted with its code.
	ev := wsReadUntil(t, conn, "private")
	if !strings.Contains(ev.Text, "Welcome, alice") {
		t.Fatalf("greeting = %q", ev.Text)
	}

	wsSend(t, conn, "host")
	ev = wsReadUntil(t, conn, "reply")
	if !strings.Contains(ev.Text, "Room opened") {
		t.Errorf("host reply = %q", ev.Text)
	}

	wsSend(t, conn, "frobnicate")
	ev = wsReadUntil(t, conn, "error")
	if !strings.Contains(ev.Text, "unknown command") {
		t.Errorf("error frame = %q", ev.Text)
	}
}

func TestWebSocketRejectsWrongCode(t *testing.T) {
	srv := startTestServer(t)

	conn := wsDial(t, srv, "bob", "")
	wsReadUntil(t, conn, "private")
	conn.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?name=bob&code=bogus"
	if _, _, err := websocket.DefaultDialer.Dial(url, nil); err == nil {
		t.Fatal("handshake with a wrong code should fail")
	}
}

func TestWebSocketBadFrames(t *testing.T) {
	srv := startTestServer(t)

	conn := wsDial(t, srv, "carol", "")
	defer conn.Close()
	wsReadUntil(t, conn, "private")

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	ev := wsReadUntil(t, conn, "error")
	if ev.Text != "bad frame" {
		t.Errorf("error = %q, want bad frame", ev.Text)
	}

	wsSend(t, conn, "  ")
	ev = wsReadUntil(t, conn, "error")
	if ev.Text != "missing action" {
		t.Errorf("error = %q, want missing action", ev.Text)
	}
}
