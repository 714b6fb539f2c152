package main

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"
)

func testMembers(n int) []seatAssignment {
	members := make([]seatAssignment, n)
	for i := range members {
		members[i] = seatAssignment{
			UserID: fmt.Sprintf("u%d", i+1),
			Name:   fmt.Sprintf("Player%d", i+1),
		}
	}
	return members
}

func TestNewSessionRejectsUnbalancedRoleCounts(t *testing.T) {
	catalog, bus := newTestCatalog()
	notify := newRecordingNotifier()

	_, err := NewSession("r", "", testMembers(6), map[string]int{"vil": 4, "wolf": 1},
		nil, catalog, bus, notify, testRules(), rand.New(rand.NewSource(1)))
	if !errors.Is(err, ErrConfigMismatch) {
		t.Errorf("got %v, want ErrConfigMismatch for 5 roles over 6 players", err)
	}
}

func TestNewSessionRejectsUnknownRole(t *testing.T) {
	catalog, bus := newTestCatalog()
	notify := newRecordingNotifier()

	_, err := NewSession("r", "", testMembers(6), map[string]int{"nonsense": 6},
		nil, catalog, bus, notify, testRules(), rand.New(rand.NewSource(1)))
	if !errors.Is(err, ErrConfigMismatch) {
		t.Errorf("got %v, want ErrConfigMismatch for an unknown role", err)
	}
}

func TestNewSessionRejectsDisabledExtensionRole(t *testing.T) {
	catalog, bus := newTestCatalog()
	notify := newRecordingNotifier()
	counts := map[string]int{"vil": 4, "wolf": 1, "guard": 1}

	_, err := NewSession("r", "", testMembers(6), counts,
		nil, catalog, bus, notify, testRules(), rand.New(rand.NewSource(1)))
	if !errors.Is(err, ErrConfigMismatch) {
		t.Errorf("got %v, want ErrConfigMismatch while chaos is off", err)
	}

	if _, err := NewSession("r", "", testMembers(6), counts,
		[]string{"chaos"}, catalog, bus, notify, testRules(), rand.New(rand.NewSource(1))); err != nil {
		t.Errorf("with chaos on the same setup should work: %v", err)
	}
}

func TestRoleAssignmentMatchesConfiguredCounts(t *testing.T) {
	catalog, bus := newTestCatalog()
	notify := newRecordingNotifier()
	counts := map[string]int{"vil": 3, "seer": 1, "witch": 1, "wolf": 1}

	s, err := NewSession("r", "", testMembers(6), counts,
		nil, catalog, bus, notify, testRules(), rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	got := make(map[string]int)
	seenUsers := make(map[string]bool)
	for i, p := range s.Players {
		if p.Seat != i+1 {
			t.Errorf("player %d holds seat %d", i, p.Seat)
		}
		if !p.Alive {
			t.Errorf("seat %d starts dead", p.Seat)
		}
		got[p.Role.Code]++
		seenUsers[p.UserID] = true
		if s.PlayerByUser(p.UserID) != p {
			t.Errorf("byUser lookup broken for %s", p.UserID)
		}
	}
	for code, n := range counts {
		if got[code] != n {
			t.Errorf("role %s dealt %d times, want %d", code, got[code], n)
		}
	}
	if len(seenUsers) != 6 {
		t.Errorf("only %d distinct users seated", len(seenUsers))
	}
}

func TestWitchStartsWithBothPotions(t *testing.T) {
	s, _ := newTestSession(t, []string{"wolf", "witch", "vil", "vil", "vil", "vil"})
	witch := s.PlayerAtSeat(2)
	if !witch.HealAvailable || !witch.PoisonAvailable {
		t.Error("the witch starts with both potions")
	}
	vil := s.PlayerAtSeat(3)
	if vil.HealAvailable || vil.PoisonAvailable {
		t.Error("only potion holders carry potions")
	}
}

func TestApplyDeathCascadesOncePerPair(t *testing.T) {
	s, _ := newTestSession(t, []string{"wolf", "cupid", "seer", "vil", "vil", "vil"}, "chaos")
	a, b := s.PlayerAtSeat(4), s.PlayerAtSeat(5)
	a.Partner, b.Partner = 5, 4

	dead := s.applyDeath(a, ReasonKilled)
	if len(dead) != 2 {
		t.Fatalf("applyDeath returned %d deaths, want 2", len(dead))
	}
	if b.DeathReason != ReasonLinked {
		t.Errorf("partner reason = %q, want %q", b.DeathReason, ReasonLinked)
	}
	if a.DeathOrder != 1 || b.DeathOrder != 2 {
		t.Errorf("death order = %d/%d, want 1/2", a.DeathOrder, b.DeathOrder)
	}

	// Dead players cannot die again.
	if again := s.applyDeath(a, ReasonPoisoned); len(again) != 0 {
		t.Errorf("second death returned %d deaths, want 0", len(again))
	}
}

func TestIdleForTracksActivityAndEnd(t *testing.T) {
	s, _ := newTestSession(t, []string{"wolf", "seer", "vil", "vil", "vil", "vil"})

	s.LastActive = time.Now().Add(-2 * time.Hour)
	if !s.IdleFor(time.Hour) {
		t.Error("an untouched session should read as idle")
	}
	s.touch()
	if s.IdleFor(time.Hour) {
		t.Error("a touched session is not idle")
	}

	s.Phase = PhaseEnded
	s.LastActive = time.Now().Add(-2 * time.Hour)
	if s.IdleFor(time.Hour) {
		t.Error("ended sessions are never idle")
	}
}

func TestSessionRegistryIndexes(t *testing.T) {
	reg := NewSessionRegistry()
	s, _ := newTestSession(t, []string{"wolf", "seer", "vil", "vil", "vil", "vil"})
	reg.Add(s)

	if got, ok := reg.Get(s.ID); !ok || got != s {
		t.Error("Get by id failed")
	}
	if got, ok := reg.ByRoom(s.RoomID); !ok || got != s {
		t.Error("ByRoom failed")
	}
	if got, ok := reg.ByUser(s.Players[0].UserID); !ok || got != s {
		t.Error("ByUser failed")
	}
	if got := len(reg.All()); got != 1 {
		t.Errorf("All returned %d sessions, want 1", got)
	}

	reg.Remove(s)
	if _, ok := reg.ByUser(s.Players[0].UserID); ok {
		t.Error("Remove should clear the user index")
	}
}
