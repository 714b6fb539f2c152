package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jmoiron/sqlx"
)

// ============================================================================
// Engine fixtures
// ============================================================================

// recordingNotifier captures engine output so tests can assert on what
// players were told without a hub.
type recordingNotifier struct {
	mu       sync.Mutex
	privates map[string][]string
	groups   []string
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{privates: make(map[string][]string)}
}

func (n *recordingNotifier) SendPrivate(playerID, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.privates[playerID] = append(n.privates[playerID], text)
}

func (n *recordingNotifier) SendGroup(groupID, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.groups = append(n.groups, text)
}

// PrivateTo returns everything sent privately to one player.
func (n *recordingNotifier) PrivateTo(playerID string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.privates[playerID]...)
}

// GroupContains reports whether any group announcement contains substr.
func (n *recordingNotifier) GroupContains(substr string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, g := range n.groups {
		if strings.Contains(g, substr) {
			return true
		}
	}
	return false
}

// PrivateContains reports whether any private message to playerID contains substr.
func (n *recordingNotifier) PrivateContains(playerID, substr string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, m := range n.privates[playerID] {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

func (n *recordingNotifier) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.privates = make(map[string][]string)
	n.groups = nil
}

// testRules uses hour-long windows so phase timers never fire during a
// test; resolution happens through the everyone-acted fast path.
func testRules() GameRules {
	return GameRules{
		NightSeconds:    3600,
		DaySeconds:      3600,
		RevengeSeconds:  3600,
		PairVictoryRule: PairRuleThreeAlive,
	}
}

func newTestCatalog() (*Catalog, *HookBus) {
	catalog := NewCatalog()
	bus := NewHookBus()
	chaos := ChaosPack{}
	bus.Register(chaos)
	catalog.RegisterExtension(chaos.ID(), chaos.Roles())
	return catalog, bus
}

// newTestSession builds a session where seat i+1 holds codes[i]. Role
// assignment is normally shuffled, so the fixture re-pins each seat's
// role after construction to keep scenarios deterministic.
func newTestSession(t *testing.T, codes []string, exts ...string) (*Session, *recordingNotifier) {
	t.Helper()

	catalog, bus := newTestCatalog()
	notify := newRecordingNotifier()

	members := make([]seatAssignment, len(codes))
	counts := make(map[string]int)
	for i, code := range codes {
		members[i] = seatAssignment{
			UserID: fmt.Sprintf("u%d", i+1),
			Name:   fmt.Sprintf("Player%d", i+1),
		}
		counts[code]++
	}

	s, err := NewSession("room-test", "", members, counts, exts,
		catalog, bus, notify, testRules(), rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	for i, code := range codes {
		def, ok := catalog.Resolve(code, s.enabledSet())
		if !ok {
			t.Fatalf("unknown role %q", code)
		}
		p := s.PlayerAtSeat(i + 1)
		p.Role = def
		p.Team = def.Team
		p.HealAvailable = def.HasPotions
		p.PoisonAvailable = def.HasPotions
	}

	t.Cleanup(func() {
		s.mu.Lock()
		if s.timer != nil {
			s.timer.Stop()
		}
		s.mu.Unlock()
	})
	return s, notify
}

// startedSession runs Begin and clears the opening chatter so tests
// only see messages from the phase under test.
func startedSession(t *testing.T, codes []string, exts ...string) (*Session, *recordingNotifier) {
	t.Helper()
	s, notify := newTestSession(t, codes, exts...)
	s.Begin()
	notify.Reset()
	return s, notify
}

// seatUser maps a seat back to the user id commands are submitted under.
func seatUser(t *testing.T, s *Session, seat int) string {
	t.Helper()
	p := s.PlayerAtSeat(seat)
	if p == nil {
		t.Fatalf("no player at seat %d", seat)
	}
	return p.UserID
}

// mockStoryteller returns a canned narration without any LLM calls.
type mockStoryteller struct {
	response string
	calls    int
	mu       sync.Mutex
}

func (m *mockStoryteller) Tell(ctx context.Context, history []string, onChunk func(string)) (string, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if onChunk != nil {
		onChunk(m.response)
	}
	return m.response, nil
}

// ============================================================================
// Database fixtures
// ============================================================================

// setupTestDB points the global db at a fresh in-memory database for
// one test and restores the previous value afterwards.
func setupTestDB(t *testing.T) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	fresh, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		t.Fatalf("connect test db: %v", err)
	}

	prev := db
	db = fresh
	if err := initDB(); err != nil {
		t.Fatalf("init test db: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
		db = prev
	})
}

// ============================================================================
// WebSocket fixtures
// ============================================================================

// testServer wires fresh registries through the real dispatcher and
// serves /ws on an httptest server.
type testServer struct {
	*httptest.Server
	notify *hubNotifier
}

// hubLoopOnce starts the shared hub loop for ws tests. The hub is a
// process-wide singleton, so the loop is started at most once.
var hubLoopOnce sync.Once

// startTestServer stands up the full stack minus the storyteller. The
// global registries are swapped in for the duration of the test so
// handleWebSocket and endGame see the same wiring as production.
func startTestServer(t *testing.T) *testServer {
	t.Helper()
	setupTestDB(t)
	hubLoopOnce.Do(hub.start)

	cfg := defaultConfig()
	cfg.MinPlayers = 3 // small games keep ws tests short

	catalog, bus := newTestCatalog()

	prevRooms, prevSessions, prevDispatcher := rooms, sessions, dispatcher
	rooms = NewRoomRegistry()
	sessions = NewSessionRegistry()
	notify := &hubNotifier{hub: hub, sessions: sessions, rooms: rooms}
	dispatcher = NewDispatcher(catalog, bus, rooms, sessions, notify, &cfg)

	srv := httptest.NewServer(http.HandlerFunc(handleWebSocket))
	t.Cleanup(func() {
		srv.Close()
		rooms, sessions, dispatcher = prevRooms, prevSessions, prevDispatcher
	})
	return &testServer{Server: srv, notify: notify}
}

// wsDial connects a named player. A fresh name registers itself and
// receives a greeting frame carrying the secret code.
func wsDial(t *testing.T, srv *testServer, name, code string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?name=" + name
	if code != "" {
		url += "&code=" + code
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", name, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// wsSend writes one command frame.
func wsSend(t *testing.T, conn *websocket.Conn, action string, params ...string) {
	t.Helper()
	msg := WSMessage{Action: action, Params: params}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("send %s: %v", action, err)
	}
}

// wsRead returns the next frame, failing the test on timeout.
func wsRead(t *testing.T, conn *websocket.Conn) WSEvent {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var ev WSEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return ev
}

// wsReadUntil keeps reading until a frame of the given type arrives.
func wsReadUntil(t *testing.T, conn *websocket.Conn, evType string) WSEvent {
	t.Helper()
	for i := 0; i < 50; i++ {
		ev := wsRead(t, conn)
		if ev.Type == evType {
			return ev
		}
	}
	t.Fatalf("no %q frame received", evType)
	return WSEvent{}
}
