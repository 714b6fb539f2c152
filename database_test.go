package main

import (
	"strings"
	"testing"
	"time"
)

func TestRegisterAndAuthenticatePlayer(t *testing.T) {
	setupTestDB(t)

	code, err := registerPlayer("alice")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if len(code) != 8 {
		t.Errorf("secret code %q should be 8 hex chars", code)
	}

	ok, err := authenticatePlayer("alice", code)
	if err != nil || !ok {
		t.Errorf("right code: ok=%v err=%v", ok, err)
	}
	ok, err = authenticatePlayer("alice", "wrong")
	if err != nil || ok {
		t.Errorf("wrong code: ok=%v err=%v", ok, err)
	}
	if _, err := authenticatePlayer("nobody", code); err == nil {
		t.Error("unknown player should error")
	}

	// Names are unique.
	if _, err := registerPlayer("alice"); err == nil {
		t.Error("re-registering a taken name should fail")
	}
}

func TestRecordResultUpsertsProfile(t *testing.T) {
	setupTestDB(t)

	if err := recordResult("bob", true); err != nil {
		t.Fatalf("first result: %v", err)
	}
	if err := recordResult("bob", false); err != nil {
		t.Fatalf("second result: %v", err)
	}
	if err := recordResult("bob", true); err != nil {
		t.Fatalf("third result: %v", err)
	}

	p, err := getProfile("bob")
	if err != nil {
		t.Fatalf("getProfile: %v", err)
	}
	if p.Games != 3 || p.Wins != 2 || p.Losses != 1 {
		t.Errorf("profile = %d/%d/%d, want 3 games, 2 wins, 1 loss", p.Games, p.Wins, p.Losses)
	}

	if _, err := getProfile("nobody"); err == nil {
		t.Error("missing profile should error")
	}
}

func TestArchiveRoundTrip(t *testing.T) {
	setupTestDB(t)

	s, _ := newTestSession(t, []string{"wolf", "seer", "vil", "vil", "vil", "vil"})
	s.Winner = WinnerVillage
	s.Night = 3
	s.EndedAt = time.Now()
	victim := s.PlayerAtSeat(1)
	victim.Alive = false
	victim.DeathReason = ReasonVoted
	victim.DeathOrder = 1

	code, err := archiveGame(s)
	if err != nil {
		t.Fatalf("archiveGame: %v", err)
	}
	if len(code) != 8 {
		t.Errorf("archive code %q should be 8 chars", code)
	}

	rec, roster, err := getArchive(code)
	if err != nil {
		t.Fatalf("getArchive: %v", err)
	}
	if rec.Winner != WinnerVillage || rec.Nights != 3 {
		t.Errorf("record = winner %q after %d nights, want village/3", rec.Winner, rec.Nights)
	}
	if len(roster) != 6 {
		t.Fatalf("roster has %d entries, want 6", len(roster))
	}
	if roster[0].Role != "wolf" || roster[0].Alive || roster[0].DeathReason != ReasonVoted {
		t.Errorf("roster[0] = %+v, want the voted-out wolf", roster[0])
	}

	out := formatArchive(rec, roster)
	if !strings.Contains(out, "winner village") || !strings.Contains(out, ReasonVoted) {
		t.Errorf("formatted archive missing fields: %q", out)
	}

	if _, _, err := getArchive("missing1"); err == nil {
		t.Error("missing archive should error")
	}
}
