package main

import (
	"fmt"
	"strings"
	"time"
)

// Phase transitions are serialized by the session lock. Each phase
// instance owns one epoch value; its timer callback and its fast-path
// trigger both have to present that epoch, and whichever gets the lock
// first advances the machine. The loser sees a stale epoch (or a
// changed phase) and does nothing, so a phase can never resolve twice.

// Begin announces roles and opens the first night.
func (s *Session) Begin() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.Players {
		s.notify.SendPrivate(p.UserID, fmt.Sprintf(
			"You are seat %d: %s (%s team). %s", p.Seat, p.Role.Name, p.Team, p.Role.Description))
	}
	// Wolves learn their packmates; hidden wolves stay unknown to the
	// pack and the pack unknown to them.
	var pack []string
	for _, p := range s.Players {
		if p.Role.CanKill && !p.Role.HiddenFromInvestigation {
			pack = append(pack, fmt.Sprintf("seat %d (%s)", p.Seat, p.Name))
		}
	}
	if len(pack) > 1 {
		msg := "Your pack: " + strings.Join(pack, ", ")
		for _, p := range s.Players {
			if p.Role.CanKill && !p.Role.HiddenFromInvestigation {
				s.notify.SendPrivate(p.UserID, msg)
			}
		}
	}
	s.bus.onGameStart(s)
	s.startNightLocked()
}

func (s *Session) armTimerLocked(d time.Duration, fn func()) {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(d, fn)
}

func (s *Session) startNightLocked() {
	s.Night++
	s.Phase = PhaseNight
	s.actions = make(map[int]*NightAction)
	s.epoch++
	epoch := s.epoch
	s.bus.onNightStart(s)
	s.notify.SendGroup(s.GroupID, fmt.Sprintf(
		"Night %d falls. Those with night abilities, act now (%ds).", s.Night, s.rules.NightSeconds))
	s.armTimerLocked(time.Duration(s.rules.NightSeconds)*time.Second, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.resolveNightLocked(epoch)
	})
}

// maybeResolveNightLocked is the fast path: resolve as soon as every
// living player with a night ability has submitted.
func (s *Session) maybeResolveNightLocked() {
	if s.Phase != PhaseNight {
		return
	}
	for _, p := range s.Players {
		if p.actsAtNight() {
			if _, ok := s.actions[p.Seat]; !ok {
				return
			}
		}
	}
	s.resolveNightLocked(s.epoch)
}

func (s *Session) resolveNightLocked(epoch int) {
	if s.Phase != PhaseNight || epoch != s.epoch {
		return
	}
	out := s.resolveNight()
	LogDBState(fmt.Sprintf("after night %d resolution", s.Night))

	if len(out.deaths) == 0 {
		s.announce("Dawn breaks. The night was quiet; everyone wakes.")
	} else {
		s.announce("Dawn breaks. Dead: " + seatList(out.deaths) + ".")
	}
	maybeNarrate(s, nightSummary(s, out.deaths))

	if s.checkWinLocked() {
		return
	}
	s.startDayLocked()
}

func (s *Session) startDayLocked() {
	s.Phase = PhaseDay
	s.epoch++
	epoch := s.epoch
	for _, p := range s.Players {
		p.VoteTarget = 0
	}
	s.bus.onDayStart(s)
	s.announce(fmt.Sprintf("Day %d. Living seats: %s. Vote for a seat or vote skip (%ds).",
		s.Night, seatList(s.alive()), s.rules.DaySeconds))
	s.armTimerLocked(time.Duration(s.rules.DaySeconds)*time.Second, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.resolveDayLocked(epoch)
	})
}

// maybeResolveDayLocked closes the vote early once every living player
// has voted or abstained.
func (s *Session) maybeResolveDayLocked() {
	if s.Phase != PhaseDay {
		return
	}
	for _, p := range s.Players {
		if p.Alive && p.VoteTarget == 0 {
			return
		}
	}
	s.resolveDayLocked(s.epoch)
}

func (s *Session) resolveDayLocked(epoch int) {
	if s.Phase != PhaseDay || epoch != s.epoch {
		return
	}

	tally := make(map[int]int)
	for _, p := range s.Players {
		if p.Alive && p.VoteTarget > 0 {
			tally[p.VoteTarget]++
		}
	}
	executed := 0
	best := 0
	for seat, n := range tally {
		switch {
		case n > best:
			best = n
			executed = seat
		case n == best:
			executed = 0 // tie, nobody hangs
		}
	}

	if executed == 0 {
		s.announce("The vote settles nothing. Nobody is executed.")
		if s.checkWinLocked() {
			return
		}
		s.startNightLocked()
		return
	}

	victim := s.PlayerAtSeat(executed)
	deaths := s.applyDeath(victim, ReasonVoted)
	if len(deaths) == 0 {
		// deferred conversion vetoed the execution; announcement came
		// from applyDeath
		if s.checkWinLocked() {
			return
		}
		s.startNightLocked()
		return
	}
	s.announce(fmt.Sprintf("The village has spoken. Seat %d (%s) is executed.", victim.Seat, victim.Name))
	if len(deaths) > 1 {
		s.announce(fmt.Sprintf("Seat %d follows their bound partner into death.", deaths[1].Seat))
	}

	if victim.Role.CanRevenge {
		s.startRevengeLocked(victim.Seat)
		return
	}
	if s.checkWinLocked() {
		return
	}
	s.startNightLocked()
}

func (s *Session) startRevengeLocked(seat int) {
	s.Phase = PhaseRevenge
	s.epoch++
	epoch := s.epoch
	s.revengeSeat = seat
	shooter := s.PlayerAtSeat(seat)
	s.announce(fmt.Sprintf("Seat %d was the %s and gets one last shot (%ds).",
		seat, shooter.Role.Name, s.rules.RevengeSeconds))
	s.notify.SendPrivate(shooter.UserID, "Name a living seat to take with you, or stay your hand.")
	s.armTimerLocked(time.Duration(s.rules.RevengeSeconds)*time.Second, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.finishRevengeLocked(epoch, 0)
	})
}

// finishRevengeLocked ends the revenge phase; target 0 means the shot
// was never taken.
func (s *Session) finishRevengeLocked(epoch int, target int) {
	if s.Phase != PhaseRevenge || epoch != s.epoch {
		return
	}
	if target != 0 {
		if victim := s.PlayerAtSeat(target); victim != nil && victim.Alive {
			deaths := s.applyDeath(victim, ReasonShot)
			if len(deaths) > 0 {
				s.announce(fmt.Sprintf("Seat %d takes seat %d with them.", s.revengeSeat, target))
				if len(deaths) > 1 {
					s.announce(fmt.Sprintf("Seat %d follows their bound partner into death.", deaths[1].Seat))
				}
			}
		}
	} else {
		s.announce(fmt.Sprintf("Seat %d goes quietly.", s.revengeSeat))
	}
	s.revengeSeat = 0
	if s.checkWinLocked() {
		return
	}
	s.startNightLocked()
}

// resolveExplodeLocked is the day self-destruct: both deaths land at
// once, pending votes are discarded, and the day ends.
func (s *Session) resolveExplodeLocked(actor *Player, target int) {
	victim := s.PlayerAtSeat(target)
	s.announce(fmt.Sprintf("Seat %d (%s) reveals as the %s and explodes, taking seat %d!",
		actor.Seat, actor.Name, actor.Role.Name, target))
	deaths := s.applyDeath(actor, ReasonExploded)
	deaths = append(deaths, s.applyDeath(victim, ReasonExploded)...)
	if len(deaths) > 2 {
		s.announce(fmt.Sprintf("Seat %d follows their bound partner into death.", deaths[len(deaths)-1].Seat))
	}
	s.announce("The vote is abandoned in the panic.")
	if s.checkWinLocked() {
		return
	}
	s.startNightLocked()
}

func (s *Session) checkWinLocked() bool {
	winner := evaluateWin(s)
	if winner == "" {
		return false
	}
	s.endGameLocked(winner)
	return true
}

// Abort ends a session from the outside (idle cleanup). Idempotent.
func (s *Session) Abort(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Phase == PhaseEnded {
		return
	}
	s.announce("The game is called off: " + reason + ".")
	s.endGameLocked(WinnerNone)
}

// Status returns a public snapshot line for the status command.
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var b strings.Builder
	fmt.Fprintf(&b, "Phase: %s (night %d). ", s.Phase, s.Night)
	fmt.Fprintf(&b, "Alive: %s. Dead:", seatList(s.alive()))
	any := false
	for _, p := range s.Players {
		if !p.Alive {
			fmt.Fprintf(&b, " seat %d (%s, %s)", p.Seat, p.Name, p.DeathReason)
			any = true
		}
	}
	if !any {
		b.WriteString(" none")
	}
	return b.String()
}

func (s *Session) announce(text string) {
	s.notify.SendGroup(s.GroupID, text)
}

func seatList(players []*Player) string {
	parts := make([]string, 0, len(players))
	for _, p := range players {
		parts = append(parts, fmt.Sprintf("seat %d (%s)", p.Seat, p.Name))
	}
	return strings.Join(parts, ", ")
}
