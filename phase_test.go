package main

import (
	"errors"
	"strings"
	"testing"
)

// quietNight pushes the session through a no-death night so the day
// phase under test starts from a full roster.
func quietNight(t *testing.T, s *Session) {
	t.Helper()
	for _, p := range append([]*Player(nil), s.Players...) {
		if !p.actsAtNight() {
			continue
		}
		var err error
		if p.Role.CanInvestigate {
			target := 1
			if p.Seat == 1 {
				target = 2
			}
			err = s.SubmitNightAction(p.UserID, ActionCheck, target, 0)
		} else {
			err = s.SubmitNightAction(p.UserID, ActionSkip, 0, 0)
		}
		if err != nil {
			t.Fatalf("night action for seat %d: %v", p.Seat, err)
		}
	}
	if s.Phase != PhaseDay {
		t.Fatalf("expected day after quiet night, got %s", s.Phase)
	}
}

func TestDayVoteExecutesByPlurality(t *testing.T) {
	s, notify := startedSession(t, []string{"wolf", "seer", "vil", "vil", "vil", "vil"})
	quietNight(t, s)

	// Everyone but the wolf votes the wolf out.
	for _, seat := range []int{2, 3, 4, 5, 6} {
		if err := s.SubmitVote(seatUser(t, s, seat), 1); err != nil {
			t.Fatalf("vote from seat %d: %v", seat, err)
		}
	}
	if err := s.SubmitVote(seatUser(t, s, 1), 0); err != nil {
		t.Fatalf("abstain: %v", err)
	}

	wolf := s.PlayerAtSeat(1)
	if wolf.Alive {
		t.Fatal("the plurality target should be executed")
	}
	if wolf.DeathReason != ReasonVoted {
		t.Errorf("death reason = %q, want %q", wolf.DeathReason, ReasonVoted)
	}
	if !notify.GroupContains("The village has spoken") {
		t.Error("execution should be announced")
	}
	// The last wolf died, so the game ends immediately.
	if s.Phase != PhaseEnded || s.Winner != WinnerVillage {
		t.Errorf("phase=%s winner=%s, want ended/village", s.Phase, s.Winner)
	}
}

func TestDayVoteTieExecutesNobody(t *testing.T) {
	s, notify := startedSession(t, []string{"wolf", "seer", "vil", "vil", "vil", "vil"})
	quietNight(t, s)

	if err := s.SubmitVote(seatUser(t, s, 1), 3); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if err := s.SubmitVote(seatUser(t, s, 2), 4); err != nil {
		t.Fatalf("vote: %v", err)
	}
	for _, seat := range []int{3, 4, 5, 6} {
		if err := s.SubmitVote(seatUser(t, s, seat), 0); err != nil {
			t.Fatalf("abstain from seat %d: %v", seat, err)
		}
	}

	if got := len(s.alive()); got != 6 {
		t.Errorf("alive = %d, want 6 after a tied vote", got)
	}
	if !notify.GroupContains("The vote settles nothing") {
		t.Error("a tie should be announced as settling nothing")
	}
	if s.Phase != PhaseNight || s.Night != 2 {
		t.Errorf("phase=%s night=%d, want night 2", s.Phase, s.Night)
	}
}

func TestVoteRejections(t *testing.T) {
	s, _ := startedSession(t, []string{"wolf", "seer", "vil", "vil", "vil", "vil"})

	// Voting at night is not a thing.
	if err := s.SubmitVote(seatUser(t, s, 3), 1); !errors.Is(err, ErrActionNotPermitted) {
		t.Errorf("night vote: got %v, want ErrActionNotPermitted", err)
	}

	quietNight(t, s)
	if err := s.SubmitVote(seatUser(t, s, 3), 9); !errors.Is(err, ErrInvalidTarget) {
		t.Errorf("vote for missing seat: got %v, want ErrInvalidTarget", err)
	}
	if err := s.SubmitVote("nobody", 1); !errors.Is(err, ErrActionNotPermitted) {
		t.Errorf("vote by outsider: got %v, want ErrActionNotPermitted", err)
	}
}

func TestHunterRevengeAfterExecution(t *testing.T) {
	s, notify := startedSession(t, []string{"wolf", "seer", "hunt", "vil", "vil", "vil"})
	quietNight(t, s)

	for _, seat := range []int{1, 2, 4, 5, 6} {
		if err := s.SubmitVote(seatUser(t, s, seat), 3); err != nil {
			t.Fatalf("vote from seat %d: %v", seat, err)
		}
	}
	if err := s.SubmitVote(seatUser(t, s, 3), 0); err != nil {
		t.Fatalf("abstain: %v", err)
	}

	if s.Phase != PhaseRevenge {
		t.Fatalf("phase = %s, want revenge after executing the hunter", s.Phase)
	}
	if !notify.GroupContains("one last shot") {
		t.Error("the revenge window should be announced")
	}

	// Only the executed hunter may shoot.
	if err := s.SubmitRevenge(seatUser(t, s, 4), 1); !errors.Is(err, ErrActionNotPermitted) {
		t.Errorf("revenge by bystander: got %v, want ErrActionNotPermitted", err)
	}

	if err := s.SubmitRevenge(seatUser(t, s, 3), 1); err != nil {
		t.Fatalf("revenge: %v", err)
	}
	wolf := s.PlayerAtSeat(1)
	if wolf.Alive || wolf.DeathReason != ReasonShot {
		t.Errorf("revenge target: alive=%v reason=%q, want dead/%q", wolf.Alive, wolf.DeathReason, ReasonShot)
	}
	if got := s.PlayerAtSeat(3).DeathReason; got != ReasonVoted {
		t.Errorf("hunter death reason = %q, want %q", got, ReasonVoted)
	}
	if s.Phase != PhaseEnded || s.Winner != WinnerVillage {
		t.Errorf("phase=%s winner=%s, want ended/village", s.Phase, s.Winner)
	}
}

func TestRevengeTimeoutGoesQuietly(t *testing.T) {
	s, notify := startedSession(t, []string{"wolf", "seer", "hunt", "vil", "vil", "vil"})
	quietNight(t, s)

	for _, seat := range []int{1, 2, 4, 5, 6} {
		if err := s.SubmitVote(seatUser(t, s, seat), 3); err != nil {
			t.Fatalf("vote from seat %d: %v", seat, err)
		}
	}
	if err := s.SubmitVote(seatUser(t, s, 3), 0); err != nil {
		t.Fatalf("abstain: %v", err)
	}
	if s.Phase != PhaseRevenge {
		t.Fatalf("phase = %s, want revenge", s.Phase)
	}

	// Simulate the window expiring without a shot.
	s.mu.Lock()
	s.finishRevengeLocked(s.epoch, 0)
	s.mu.Unlock()

	if !notify.GroupContains("goes quietly") {
		t.Error("an unused revenge should be announced")
	}
	if s.Phase != PhaseNight || s.Night != 2 {
		t.Errorf("phase=%s night=%d, want night 2", s.Phase, s.Night)
	}
	if got := len(s.alive()); got != 5 {
		t.Errorf("alive = %d, want 5", got)
	}
}

func TestWhiteWolfKingExplodesByDay(t *testing.T) {
	s, notify := startedSession(t, []string{"white_wolf_king", "seer", "vil", "vil", "vil", "vil"}, "chaos")
	quietNight(t, s)

	// Exploding is the king's ability alone.
	if err := s.SubmitExplode(seatUser(t, s, 2), 3); !errors.Is(err, ErrActionNotPermitted) {
		t.Errorf("explode by seer: got %v, want ErrActionNotPermitted", err)
	}

	// A pending vote is discarded by the blast.
	if err := s.SubmitVote(seatUser(t, s, 3), 2); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if err := s.SubmitExplode(seatUser(t, s, 1), 3); err != nil {
		t.Fatalf("explode: %v", err)
	}

	king, victim := s.PlayerAtSeat(1), s.PlayerAtSeat(3)
	if king.Alive || king.DeathReason != ReasonExploded {
		t.Errorf("king: alive=%v reason=%q, want dead/%q", king.Alive, king.DeathReason, ReasonExploded)
	}
	if victim.Alive || victim.DeathReason != ReasonExploded {
		t.Errorf("victim: alive=%v reason=%q, want dead/%q", victim.Alive, victim.DeathReason, ReasonExploded)
	}
	if !notify.GroupContains("abandoned in the panic") {
		t.Error("the vote abandonment should be announced")
	}
	if s.Phase != PhaseEnded || s.Winner != WinnerVillage {
		t.Errorf("phase=%s winner=%s, want ended/village", s.Phase, s.Winner)
	}
}

func TestAbortEndsSessionOnce(t *testing.T) {
	s, notify := startedSession(t, []string{"wolf", "seer", "vil", "vil", "vil", "vil"})

	s.Abort("test shutdown")
	if s.Phase != PhaseEnded || s.Winner != WinnerNone {
		t.Fatalf("phase=%s winner=%s, want ended/none", s.Phase, s.Winner)
	}
	if !notify.GroupContains("called off") {
		t.Error("the abort should be announced")
	}

	before := len(notify.groups)
	s.Abort("again")
	if len(notify.groups) != before {
		t.Error("a second abort must be a no-op")
	}
}

func TestStatusSnapshot(t *testing.T) {
	s, _ := startedSession(t, []string{"wolf", "seer", "vil", "vil", "vil", "vil"})

	if err := s.SubmitNightAction(seatUser(t, s, 1), ActionKill, 3, 0); err != nil {
		t.Fatalf("kill: %v", err)
	}
	if err := s.SubmitNightAction(seatUser(t, s, 2), ActionCheck, 1, 0); err != nil {
		t.Fatalf("check: %v", err)
	}

	status := s.Status()
	if !strings.Contains(status, "Phase: day") {
		t.Errorf("status %q should name the phase", status)
	}
	if !strings.Contains(status, "seat 3") || !strings.Contains(status, ReasonKilled) {
		t.Errorf("status %q should list the dead with their cause", status)
	}
}
