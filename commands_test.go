package main

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *recordingNotifier) {
	t.Helper()
	catalog, bus := newTestCatalog()
	cfg := defaultConfig()
	notify := newRecordingNotifier()
	return NewDispatcher(catalog, bus, NewRoomRegistry(), NewSessionRegistry(), notify, &cfg), notify
}

func dispatchOK(t *testing.T, d *Dispatcher, player, action string, params ...string) string {
	t.Helper()
	reply, err := d.Dispatch(player, "", action, params)
	if err != nil {
		t.Fatalf("%s %s %v: %v", player, action, params, err)
	}
	return reply
}

func TestDispatchLobbyLifecycle(t *testing.T) {
	d, notify := newTestDispatcher(t)

	reply := dispatchOK(t, d, "alice", "host")
	if !strings.Contains(reply, "Room opened") {
		t.Fatalf("host reply = %q", reply)
	}
	room, ok := d.rooms.ByUser("alice")
	if !ok {
		t.Fatal("host should be in the new room")
	}

	// Shrink to a six-player game: drop two villagers.
	reply = dispatchOK(t, d, "alice", "settings", "players", "6")
	if !strings.Contains(reply, "/6 players") {
		t.Errorf("settings reply = %q", reply)
	}
	dispatchOK(t, d, "alice", "settings", "roles", "vil", "2")
	dispatchOK(t, d, "alice", "settings", "roles", "wolf", "1")

	// Only the host configures.
	dispatchOK(t, d, "bob", "join", room.ID)
	if _, err := d.Dispatch("bob", "", "settings", []string{"players", "8"}); !errors.Is(err, ErrActionNotPermitted) {
		t.Errorf("settings by guest: got %v, want ErrActionNotPermitted", err)
	}
	if !notify.GroupContains("bob joined") {
		t.Error("joins should be announced to the room")
	}

	// Starting short-handed is a config mismatch.
	if _, err := d.Dispatch("alice", "", "start", nil); !errors.Is(err, ErrConfigMismatch) {
		t.Errorf("early start: got %v, want ErrConfigMismatch", err)
	}

	for _, name := range []string{"carol", "dave", "erin", "frank"} {
		dispatchOK(t, d, name, "join", room.ID)
	}
	if _, err := d.Dispatch("bob", "", "start", nil); !errors.Is(err, ErrActionNotPermitted) {
		t.Errorf("start by guest: got %v, want ErrActionNotPermitted", err)
	}

	reply = dispatchOK(t, d, "alice", "start")
	if !strings.Contains(reply, "The game begins") {
		t.Errorf("start reply = %q", reply)
	}
	s, ok := d.sessions.ByUser("alice")
	if !ok {
		t.Fatal("starting should register a session")
	}
	if len(s.Players) != 6 || s.Phase != PhaseNight {
		t.Errorf("session has %d players in phase %s", len(s.Players), s.Phase)
	}
	if _, ok := d.rooms.ByUser("alice"); ok {
		t.Error("the room should be gone once the game starts")
	}

	status := dispatchOK(t, d, "alice", "status")
	if !strings.Contains(status, "Phase: night") {
		t.Errorf("status = %q", status)
	}
}

func TestDispatchNightAndDayCommands(t *testing.T) {
	d, _ := newTestDispatcher(t)

	dispatchOK(t, d, "alice", "host")
	room, _ := d.rooms.ByUser("alice")
	dispatchOK(t, d, "alice", "settings", "players", "6")
	dispatchOK(t, d, "alice", "settings", "roles", "vil", "2")
	dispatchOK(t, d, "alice", "settings", "roles", "wolf", "1")
	names := []string{"bob", "carol", "dave", "erin", "frank"}
	for _, name := range names {
		dispatchOK(t, d, name, "join", room.ID)
	}
	dispatchOK(t, d, "alice", "start")
	s, _ := d.sessions.ByUser("alice")

	var wolf, witch, seer, vill *Player
	for _, p := range s.Players {
		switch p.Role.Code {
		case "wolf":
			wolf = p
		case "witch":
			witch = p
		case "seer":
			seer = p
		case "vil":
			if vill == nil {
				vill = p
			}
		}
	}

	if _, err := d.Dispatch(vill.UserID, "", "kill", []string{fmt.Sprint(wolf.Seat)}); !errors.Is(err, ErrActionNotPermitted) {
		t.Errorf("kill by villager: got %v, want ErrActionNotPermitted", err)
	}
	if _, err := d.Dispatch(witch.UserID, "", "potion", []string{"3", "1"}); !errors.Is(err, ErrInvalidTarget) {
		t.Errorf("bad potion index: got %v, want ErrInvalidTarget", err)
	}
	if _, err := d.Dispatch(seer.UserID, "", "check", []string{"first"}); !errors.Is(err, ErrInvalidTarget) {
		t.Errorf("non-numeric seat: got %v, want ErrInvalidTarget", err)
	}

	if reply := dispatchOK(t, d, wolf.UserID, "kill", fmt.Sprint(vill.Seat)); reply != "Noted." {
		t.Errorf("kill reply = %q", reply)
	}
	dispatchOK(t, d, seer.UserID, "check", fmt.Sprint(wolf.Seat))
	dispatchOK(t, d, witch.UserID, "potion", "1", fmt.Sprint(vill.Seat))
	// hunter has no night action; the night resolves with the heal in.
	if s.Phase != PhaseDay {
		t.Fatalf("phase = %s, want day", s.Phase)
	}
	if !vill.Alive {
		t.Fatal("the healed villager should be alive")
	}

	if reply := dispatchOK(t, d, vill.UserID, "vote", "skip"); reply != "Abstention noted." {
		t.Errorf("skip reply = %q", reply)
	}
	if reply := dispatchOK(t, d, wolf.UserID, "vote", fmt.Sprint(vill.Seat)); reply != "Vote noted." {
		t.Errorf("vote reply = %q", reply)
	}
}

func TestDispatchRejectsOutsiders(t *testing.T) {
	d, _ := newTestDispatcher(t)

	for _, action := range []string{"status", "vote", "kill", "revenge", "explode", "start"} {
		if _, err := d.Dispatch("ghost", "", action, []string{"1"}); !errors.Is(err, ErrActionNotPermitted) {
			t.Errorf("%s by outsider: got %v, want ErrActionNotPermitted", action, err)
		}
	}
	if _, err := d.Dispatch("ghost", "", "frobnicate", nil); !errors.Is(err, ErrActionNotPermitted) {
		t.Errorf("unknown command: got %v, want ErrActionNotPermitted", err)
	}
}

func TestDispatchListAndRoles(t *testing.T) {
	d, _ := newTestDispatcher(t)

	if reply := dispatchOK(t, d, "alice", "list"); reply != "No open rooms." {
		t.Errorf("empty list = %q", reply)
	}
	dispatchOK(t, d, "alice", "host")
	if reply := dispatchOK(t, d, "bob", "list"); !strings.Contains(reply, "8 players") {
		t.Errorf("list = %q", reply)
	}

	roles := dispatchOK(t, d, "alice", "roles")
	if !strings.Contains(roles, "Werewolf") || strings.Contains(roles, "Hidden Wolf") {
		t.Errorf("roles without chaos should list base only, got %q", roles)
	}
	dispatchOK(t, d, "alice", "settings", "extends", "chaos", "on")
	roles = dispatchOK(t, d, "alice", "roles")
	if !strings.Contains(roles, "Hidden Wolf") {
		t.Errorf("roles with chaos should include the pack, got %q", roles)
	}

	if _, err := d.Dispatch("alice", "", "settings", []string{"extends", "bogus", "on"}); !errors.Is(err, ErrInvalidTarget) {
		t.Errorf("unknown extension: got %v, want ErrInvalidTarget", err)
	}
}

func TestDispatchProfileUnavailableWithoutDB(t *testing.T) {
	d, _ := newTestDispatcher(t)

	if _, err := d.Dispatch("alice", "", "profile", nil); !errors.Is(err, ErrActionNotPermitted) {
		t.Errorf("profile without db: got %v, want ErrActionNotPermitted", err)
	}
	if _, err := d.Dispatch("alice", "", "archive", []string{"deadbeef"}); !errors.Is(err, ErrActionNotPermitted) {
		t.Errorf("archive without db: got %v, want ErrActionNotPermitted", err)
	}
}
