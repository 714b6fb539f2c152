package main

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	RoomWaiting = "waiting"
	RoomStarted = "started"
	RoomExpired = "expired"
)

// Room is the pregame lobby object. It only exists between host and
// start; starting replaces it with a Session, idling expires it.
type Room struct {
	ID          string
	HostID      string
	Members     []seatAssignment
	PlayerCount int
	RoleCounts  map[string]int
	Extensions  []string
	Status      string
	CreatedAt   time.Time
}

// defaultRoleCounts is the stock eight-player setup.
func defaultRoleCounts() map[string]int {
	return map[string]int{"vil": 3, "seer": 1, "witch": 1, "hunt": 1, "wolf": 2}
}

func (r *Room) member(userID string) bool {
	for _, m := range r.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// SettingsLine renders the room configuration for the lobby.
func (r *Room) SettingsLine() string {
	codes := make([]string, 0, len(r.RoleCounts))
	for code := range r.RoleCounts {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	parts := make([]string, 0, len(codes))
	for _, code := range codes {
		parts = append(parts, fmt.Sprintf("%s=%d", code, r.RoleCounts[code]))
	}
	exts := "none"
	if len(r.Extensions) > 0 {
		exts = strings.Join(r.Extensions, ",")
	}
	return fmt.Sprintf("Room %s: %d/%d players, roles %s, extensions %s",
		r.ID, len(r.Members), r.PlayerCount, strings.Join(parts, " "), exts)
}

type RoomRegistry struct {
	mu     sync.Mutex
	byID   map[string]*Room
	byUser map[string]*Room
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{byID: make(map[string]*Room), byUser: make(map[string]*Room)}
}

// Create opens a room with the host as its first member.
func (rr *RoomRegistry) Create(hostID, hostName string) (*Room, error) {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	if old, ok := rr.byUser[hostID]; ok && old.Status == RoomWaiting {
		return nil, fmt.Errorf("%w: you are already in room %s", ErrActionNotPermitted, old.ID)
	}
	r := &Room{
		ID:          uuid.NewString()[:8],
		HostID:      hostID,
		Members:     []seatAssignment{{UserID: hostID, Name: hostName}},
		PlayerCount: 8,
		RoleCounts:  defaultRoleCounts(),
		Status:      RoomWaiting,
		CreatedAt:   time.Now(),
	}
	rr.byID[r.ID] = r
	rr.byUser[hostID] = r
	log.Printf("room %s created by %s", r.ID, hostID)
	return r, nil
}

// Join adds a member to a waiting room.
func (rr *RoomRegistry) Join(roomID, userID, name string) (*Room, error) {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	r, ok := rr.byID[roomID]
	if !ok || r.Status != RoomWaiting {
		return nil, fmt.Errorf("%w: no open room %s", ErrInvalidTarget, roomID)
	}
	if old, in := rr.byUser[userID]; in && old.Status == RoomWaiting {
		return nil, fmt.Errorf("%w: you are already in room %s", ErrActionNotPermitted, old.ID)
	}
	if r.member(userID) {
		return nil, fmt.Errorf("%w: already joined", ErrActionNotPermitted)
	}
	if len(r.Members) >= r.PlayerCount {
		return nil, fmt.Errorf("%w: room %s is full", ErrActionNotPermitted, roomID)
	}
	r.Members = append(r.Members, seatAssignment{UserID: userID, Name: name})
	rr.byUser[userID] = r
	return r, nil
}

// Configure applies a host-only settings change.
func (rr *RoomRegistry) Configure(roomID, userID string, fn func(*Room) error) error {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	r, ok := rr.byID[roomID]
	if !ok || r.Status != RoomWaiting {
		return fmt.Errorf("%w: no open room %s", ErrInvalidTarget, roomID)
	}
	if r.HostID != userID {
		return fmt.Errorf("%w: only the host changes settings", ErrActionNotPermitted)
	}
	return fn(r)
}

func (rr *RoomRegistry) Get(roomID string) (*Room, bool) {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	r, ok := rr.byID[roomID]
	return r, ok
}

func (rr *RoomRegistry) ByUser(userID string) (*Room, bool) {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	r, ok := rr.byUser[userID]
	return r, ok
}

// Waiting lists open rooms, newest first.
func (rr *RoomRegistry) Waiting() []*Room {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	out := make([]*Room, 0, len(rr.byID))
	for _, r := range rr.byID {
		if r.Status == RoomWaiting {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// remove drops a room and its member index entries.
func (rr *RoomRegistry) remove(r *Room) {
	delete(rr.byID, r.ID)
	for _, m := range r.Members {
		if rr.byUser[m.UserID] == r {
			delete(rr.byUser, m.UserID)
		}
	}
}

// ExpireIdle sweeps rooms that sat waiting past the timeout. Returns
// the expired rooms so the caller can notify members.
func (rr *RoomRegistry) ExpireIdle(maxAge time.Duration) []*Room {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	var expired []*Room
	for _, r := range rr.byID {
		if r.Status == RoomWaiting && time.Since(r.CreatedAt) > maxAge {
			r.Status = RoomExpired
			rr.remove(r)
			expired = append(expired, r)
			log.Printf("room %s expired after %s idle", r.ID, maxAge)
		}
	}
	return expired
}

// Start validates the room, assigns roles, and atomically replaces the
// room with a running session. Host only; the min/max bounds and the
// role-count balance are checked before anything is created.
func (rr *RoomRegistry) Start(roomID, userID string, catalog *Catalog, bus *HookBus,
	notify Notifier, reg *SessionRegistry, cfg *AppConfig) (*Session, error) {

	rr.mu.Lock()
	defer rr.mu.Unlock()
	r, ok := rr.byID[roomID]
	if !ok || r.Status != RoomWaiting {
		return nil, fmt.Errorf("%w: no open room %s", ErrInvalidTarget, roomID)
	}
	if r.HostID != userID {
		return nil, fmt.Errorf("%w: only the host starts the game", ErrActionNotPermitted)
	}
	if len(r.Members) != r.PlayerCount {
		return nil, fmt.Errorf("%w: %d of %d players joined", ErrConfigMismatch, len(r.Members), r.PlayerCount)
	}
	if r.PlayerCount < cfg.MinPlayers || r.PlayerCount > cfg.MaxPlayers {
		return nil, fmt.Errorf("%w: player count must be %d..%d", ErrConfigMismatch, cfg.MinPlayers, cfg.MaxPlayers)
	}

	s, err := NewSession(r.ID, "", r.Members, r.RoleCounts, r.Extensions,
		catalog, bus, notify, cfg.gameRules(), newGameRand())
	if err != nil {
		return nil, err
	}
	r.Status = RoomStarted
	rr.remove(r)
	reg.Add(s)
	log.Printf("room %s started as session %s with %d players", r.ID, s.ID, len(s.Players))
	return s, nil
}

// newGameRand seeds the per-game RNG from the OS.
func newGameRand() *rand.Rand {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return rand.New(rand.NewSource(int64(binary.LittleEndian.Uint64(b[:]))))
}
