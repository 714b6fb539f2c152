package main

import (
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	PhaseNight   = "night"
	PhaseDay     = "day"
	PhaseRevenge = "revenge"
	PhaseEnded   = "ended"
)

// Death reasons as they appear in announcements and archives.
const (
	ReasonKilled   = "killed"
	ReasonPoisoned = "poisoned"
	ReasonVoted    = "voted"
	ReasonShot     = "shot"
	ReasonLinked   = "linked death"
	ReasonExploded = "exploded"
	ReasonTimeout  = "timeout"
)

type Player struct {
	UserID string
	Name   string
	Seat   int

	Role  RoleDef // effective role; inheritance swaps this out mid-game
	Team  Team    // current team, diverges from Role.Team after conversion
	Alive bool

	DeathReason string
	DeathOrder  int // 1-based order of death, 0 while alive

	HealAvailable   bool
	PoisonAvailable bool
	DisguiseUsed    bool
	DisguisedAs     string // dead player's role code, "" when no disguise
	LastGuarded     int    // seat guarded last night, 0 = none
	Partner         int    // linked-fate partner seat, 0 = unbound
	KillUnlocked    bool   // gained the pack kill mid-game
	InheritedFrom   string // role code learned from a dead neighbor

	VoteTarget int // day phase: seat voted for, -1 = skip, 0 = no vote yet
}

// canKill reports whether the player currently joins the kill vote,
// either by role or by a mid-game unlock.
func (p *Player) canKill() bool { return p.Role.CanKill || p.KillUnlocked }

// actsAtNight reports whether the player is expected to submit a night
// action (counts toward the early-resolution fast path).
func (p *Player) actsAtNight() bool {
	return p.Alive && (p.Role.HasNightAction || p.KillUnlocked)
}

// Session is one running game. All mutable state is guarded by mu;
// sessions never share state with each other. The epoch counter is the
// single-resolution gate: each phase instance gets one epoch value and
// whichever trigger (timer or all-acted fast path) claims it first
// resolves the phase.
type Session struct {
	ID      string
	RoomID  string
	GroupID string // outbound group-channel id, defaults to session id

	catalog *Catalog
	bus     *HookBus
	notify  Notifier
	rules   GameRules

	mu         sync.Mutex
	Phase      string
	Night      int
	Players    []*Player // seat order, Players[i].Seat == i+1
	byUser     map[string]*Player
	extensions []string // enabled extension ids, registration order
	enabled    map[string]bool

	actions     map[int]*NightAction // by actor seat, cleared each night
	swapA       int                  // this night's swap pair, 0 = none
	swapB       int
	pairA       int // linked-fate pair, set once on night one
	pairB       int
	pairActor   int
	revengeSeat int // designated shooter during the revenge phase
	deathOrder  int

	epoch      int
	timer      *time.Timer
	Winner     string
	StartedAt  time.Time
	EndedAt    time.Time
	LastActive time.Time

	rng *rand.Rand
}

// GameRules is the configuration slice a session reads; values are
// captured at session creation and at each timer start.
type GameRules struct {
	NightSeconds     int
	DaySeconds       int
	RevengeSeconds   int
	PairVictoryRule  string // "three_alive" or "last_two"
	GameIdleTimeout  int    // seconds without activity before cleanup
}

type seatAssignment struct {
	UserID string
	Name   string
}

// NewSession assigns roles and builds a session in the waiting state;
// the caller starts the first night. Fails with ErrConfigMismatch when
// the role counts don't balance, and before any state is created.
func NewSession(roomID, groupID string, members []seatAssignment, roleCounts map[string]int,
	extensions []string, catalog *Catalog, bus *HookBus, notify Notifier,
	rules GameRules, rng *rand.Rand) (*Session, error) {

	enabled := make(map[string]bool, len(extensions))
	for _, id := range extensions {
		enabled[id] = true
	}

	total := 0
	pool := make([]RoleDef, 0, len(members))
	for code, n := range roleCounts {
		def, ok := catalog.Resolve(code, enabled)
		if !ok {
			return nil, fmt.Errorf("%w: unknown role %q", ErrConfigMismatch, code)
		}
		for i := 0; i < n; i++ {
			pool = append(pool, def)
		}
		total += n
	}
	if total != len(members) {
		return nil, fmt.Errorf("%w: %d roles for %d players", ErrConfigMismatch, total, len(members))
	}

	// Shuffle seats and roles independently, then zip.
	order := rng.Perm(len(members))
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	s := &Session{
		ID:         uuid.NewString(),
		RoomID:     roomID,
		GroupID:    groupID,
		catalog:    catalog,
		bus:        bus,
		notify:     notify,
		rules:      rules,
		Phase:      PhaseNight,
		Night:      0,
		byUser:     make(map[string]*Player, len(members)),
		extensions: extensions,
		enabled:    enabled,
		actions:    make(map[int]*NightAction),
		StartedAt:  time.Now(),
		LastActive: time.Now(),
		rng:        rng,
	}
	if s.GroupID == "" {
		s.GroupID = s.ID
	}
	for seat := 1; seat <= len(members); seat++ {
		m := members[order[seat-1]]
		def := pool[seat-1]
		p := &Player{
			UserID:          m.UserID,
			Name:            m.Name,
			Seat:            seat,
			Role:            def,
			Team:            def.Team,
			Alive:           true,
			HealAvailable:   def.HasPotions,
			PoisonAvailable: def.HasPotions,
		}
		s.Players = append(s.Players, p)
		s.byUser[m.UserID] = p
	}
	return s, nil
}

func (s *Session) PlayerAtSeat(seat int) *Player {
	if seat < 1 || seat > len(s.Players) {
		return nil
	}
	return s.Players[seat-1]
}

func (s *Session) PlayerByUser(userID string) *Player { return s.byUser[userID] }

func (s *Session) ExtensionEnabled(id string) bool { return s.enabled[id] }

func (s *Session) enabledSet() map[string]bool { return s.enabled }

func (s *Session) touch() { s.LastActive = time.Now() }

// IdleFor reports whether no command has touched this session for at
// least maxAge. Ended sessions never count as idle.
func (s *Session) IdleFor(maxAge time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Phase == PhaseEnded {
		return false
	}
	return time.Since(s.LastActive) >= maxAge
}

// effectiveSeat applies this night's swap redirect.
func (s *Session) effectiveSeat(seat int) int {
	switch seat {
	case s.swapA:
		return s.swapB
	case s.swapB:
		return s.swapA
	}
	return seat
}

func (s *Session) alive() []*Player {
	out := make([]*Player, 0, len(s.Players))
	for _, p := range s.Players {
		if p.Alive {
			out = append(out, p)
		}
	}
	return out
}

func (s *Session) aliveCounts() (wolves, village, third int) {
	for _, p := range s.Players {
		if !p.Alive {
			continue
		}
		switch p.Team {
		case TeamWolf:
			wolves++
		case TeamThird:
			third++
		default:
			village++
		}
	}
	return
}

// applyDeath runs the deferred-conversion check and, if the death
// stands, marks the player dead and cascades a linked-fate partner.
// Returns the players that actually died, in order.
func (s *Session) applyDeath(p *Player, reason string) []*Player {
	if !p.Alive {
		return nil
	}
	if p.Role.ConvertsOnDeath {
		switch reason {
		case ReasonKilled:
			p.Role.ConvertsOnDeath = false
			p.Team = TeamWolf
			s.notify.SendPrivate(p.UserID, "The wolves came for you in the night. You live, and you are one of them now.")
			log.Printf("session %s: seat %d converted to wolf team instead of dying", s.ID, p.Seat)
			return nil
		case ReasonVoted:
			p.Role.ConvertsOnDeath = false
			p.Team = TeamVillage
			s.notify.SendGroup(s.GroupID, fmt.Sprintf("Seat %d survives the vote and stands with the village.", p.Seat))
			log.Printf("session %s: seat %d converted to village team instead of dying", s.ID, p.Seat)
			return nil
		}
	}
	dead := []*Player{p}
	s.markDead(p, reason)

	// Linked fate: exactly one extra death, never a second cascade.
	if p.Partner != 0 {
		if partner := s.PlayerAtSeat(p.Partner); partner != nil && partner.Alive {
			s.markDead(partner, ReasonLinked)
			dead = append(dead, partner)
		}
	}
	return dead
}

func (s *Session) markDead(p *Player, reason string) {
	p.Alive = false
	p.DeathReason = reason
	s.deathOrder++
	p.DeathOrder = s.deathOrder
	DebugLog("markDead", "session=%s seat=%d reason=%s order=%d", s.ID, p.Seat, reason, p.DeathOrder)
	s.bus.onPlayerDeath(s, p, reason)
}

// SessionRegistry tracks active sessions by id and by room.
type SessionRegistry struct {
	mu     sync.Mutex
	byID   map[string]*Session
	byRoom map[string]*Session
	byUser map[string]*Session
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		byID:   make(map[string]*Session),
		byRoom: make(map[string]*Session),
		byUser: make(map[string]*Session),
	}
}

func (r *SessionRegistry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[s.ID] = s
	r.byRoom[s.RoomID] = s
	for _, p := range s.Players {
		r.byUser[p.UserID] = s
	}
}

func (r *SessionRegistry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	return s, ok
}

func (r *SessionRegistry) ByRoom(roomID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byRoom[roomID]
	return s, ok
}

func (r *SessionRegistry) ByUser(userID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byUser[userID]
	return s, ok
}

func (r *SessionRegistry) Remove(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, s.ID)
	delete(r.byRoom, s.RoomID)
	for _, p := range s.Players {
		if r.byUser[p.UserID] == s {
			delete(r.byUser, p.UserID)
		}
	}
}

func (r *SessionRegistry) All() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.byID))
	for _, s := range r.byID {
		out = append(out, s)
	}
	return out
}
