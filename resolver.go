package main

import (
	"fmt"
	"log"
	"sort"
)

// faceValue is what a basic investigation reports for a team: wolves
// read as wolf, everyone else reads as village.
func faceValue(t Team) string {
	if t == TeamWolf {
		return "wolf"
	}
	return "village"
}

type nightOutcome struct {
	deaths []*Player // in death order, causes already set
}

// resolveNight runs the fixed resolution pipeline over the current
// action buffer. Order matters: the swap table feeds every later
// target lookup, kill cancellation depends on heal and guard, deaths
// must be final before inheritance, and unlocks come last. Each
// mutating step offers the hook bus the default outcome before
// committing it. Caller holds the session lock.
func (s *Session) resolveNight() nightOutcome {
	acts := s.actions

	// 1. Swap: record this night's mutual redirect.
	s.swapA, s.swapB = 0, 0
	for seat := 1; seat <= len(s.Players); seat++ {
		if a, ok := acts[seat]; ok && a.Kind == ActionSwap {
			s.swapA, s.swapB = a.Target, a.Target2
			DebugLog("resolveNight", "session=%s swap %d<->%d", s.ID, s.swapA, s.swapB)
			break
		}
	}

	// 2. Kill intent: tally per effective seat, strict plurality,
	// uniform random among tied seats.
	tally := make(map[int]int)
	for seat := 1; seat <= len(s.Players); seat++ {
		if a, ok := acts[seat]; ok && a.Kind == ActionKill {
			tally[s.effectiveSeat(a.Target)]++
		}
	}
	killTarget := s.pickKillTarget(tally)
	kev := &KillEvent{Target: killTarget}
	s.bus.modifyKill(s, kev)
	if kev.Cancelled {
		kev.Target = 0
	}
	killTarget = kev.Target

	// 3. Heal and poison. A heal only saves the kill target, but the
	// potion is spent either way. Poison deaths are independent.
	healed := false
	var poisoned []int
	for seat := 1; seat <= len(s.Players); seat++ {
		a, ok := acts[seat]
		if !ok {
			continue
		}
		switch a.Kind {
		case ActionHeal:
			actor := s.PlayerAtSeat(a.Actor)
			actor.HealAvailable = false
			target := s.effectiveSeat(a.Target)
			hev := &HealEvent{Healer: a.Actor, Target: target}
			s.bus.modifyHeal(s, hev)
			if !hev.Cancelled && target == killTarget {
				healed = true
			}
		case ActionPoison:
			actor := s.PlayerAtSeat(a.Actor)
			actor.PoisonAvailable = false
			target := s.effectiveSeat(a.Target)
			pev := &PoisonEvent{Poisoner: a.Actor, Target: target}
			s.bus.modifyPoison(s, pev)
			if !pev.Cancelled {
				poisoned = append(poisoned, target)
			}
		}
	}

	// 4. Guard cancels the kill unless the bus objects. The no-repeat
	// rule was already enforced at submission.
	guarded := false
	for seat := 1; seat <= len(s.Players); seat++ {
		if a, ok := acts[seat]; ok && a.Kind == ActionGuard {
			actor := s.PlayerAtSeat(a.Actor)
			actor.LastGuarded = a.Target
			target := s.effectiveSeat(a.Target)
			gev := &GuardEvent{Guard: a.Actor, Target: target}
			s.bus.modifyGuard(s, gev)
			if !gev.Cancelled && target == killTarget {
				guarded = true
			}
		}
	}

	// 5. Investigation. Runs before deaths land, so tonight's victim
	// still reads as alive.
	for seat := 1; seat <= len(s.Players); seat++ {
		a, ok := acts[seat]
		if !ok || (a.Kind != ActionCheck && a.Kind != ActionReveal) {
			continue
		}
		target := s.effectiveSeat(a.Target)
		t := s.PlayerAtSeat(target)
		ev := &InvestigationEvent{Inspector: a.Actor, Target: target, Detailed: a.Kind == ActionReveal}
		if ev.Detailed {
			ev.Result = t.Role.Name
		} else {
			ev.Result = faceValue(t.Team)
		}
		s.bus.modifyInvestigation(s, ev)
		inspector := s.PlayerAtSeat(a.Actor)
		if ev.Detailed {
			s.notify.SendPrivate(inspector.UserID, fmt.Sprintf("Seat %d is the %s.", target, ev.Result))
		} else {
			s.notify.SendPrivate(inspector.UserID, fmt.Sprintf("Seat %d reads as %s.", target, ev.Result))
		}
	}

	// 6. Disguise: bind the actor to a dead player's role code for
	// future basic checks.
	for seat := 1; seat <= len(s.Players); seat++ {
		if a, ok := acts[seat]; ok && a.Kind == ActionDisguise {
			actor := s.PlayerAtSeat(a.Actor)
			donor := s.PlayerAtSeat(a.Target)
			actor.DisguisedAs = donor.Role.Code
			actor.DisguiseUsed = true
			s.notify.SendPrivate(actor.UserID, fmt.Sprintf("You now wear the %s's face.", donor.Role.Name))
		}
	}

	// 7. Pairing: first night only, binds the pair and its actor.
	for seat := 1; seat <= len(s.Players); seat++ {
		if a, ok := acts[seat]; ok && a.Kind == ActionPair {
			s.pairA, s.pairB = a.Target, a.Target2
			s.pairActor = a.Actor
			pa, pb := s.PlayerAtSeat(a.Target), s.PlayerAtSeat(a.Target2)
			pa.Partner = pb.Seat
			pb.Partner = pa.Seat
			s.notify.SendPrivate(pa.UserID, fmt.Sprintf("Your fate is bound to seat %d.", pb.Seat))
			s.notify.SendPrivate(pb.UserID, fmt.Sprintf("Your fate is bound to seat %d.", pa.Seat))
			s.notify.SendPrivate(s.PlayerAtSeat(a.Actor).UserID,
				fmt.Sprintf("Seats %d and %d are bound.", pa.Seat, pb.Seat))
		}
	}

	// 8. Deaths land now. applyDeath runs the deferred-conversion
	// check and the linked-fate cascade.
	var out nightOutcome
	if killTarget != 0 && !healed && !guarded {
		if victim := s.PlayerAtSeat(killTarget); victim != nil {
			out.deaths = append(out.deaths, s.applyDeath(victim, ReasonKilled)...)
		}
	}
	for _, seat := range poisoned {
		if victim := s.PlayerAtSeat(seat); victim != nil {
			out.deaths = append(out.deaths, s.applyDeath(victim, ReasonPoisoned)...)
		}
	}

	// 9-10. Inheritance, then unlocks, over the finalized roster.
	s.applyInheritance()
	s.applyUnlocks()

	s.actions = make(map[int]*NightAction)
	s.swapA, s.swapB = 0, 0
	return out
}

// pickKillTarget returns the strict-plurality seat, breaking ties
// uniformly at random. Zero when nobody voted.
func (s *Session) pickKillTarget(tally map[int]int) int {
	best := 0
	var tied []int
	for seat, n := range tally {
		switch {
		case n > best:
			best = n
			tied = []int{seat}
		case n == best:
			tied = append(tied, seat)
		}
	}
	if len(tied) == 0 {
		return 0
	}
	sort.Ints(tied)
	return tied[s.rng.Intn(len(tied))]
}

// applyInheritance gives each living inheritor the ability of a dead
// village neighbor: the lower seat is checked first, the first match
// wins, and the adopted one-shots start fresh.
func (s *Session) applyInheritance() {
	for _, p := range s.Players {
		if !p.Alive || !p.Role.InheritsAdjacent || p.InheritedFrom != "" {
			continue
		}
		for _, seat := range []int{p.Seat - 1, p.Seat + 1} {
			donor := s.PlayerAtSeat(seat)
			if donor == nil || donor.Alive || donor.Team != TeamVillage || !donor.Role.special() {
				continue
			}
			p.InheritedFrom = donor.Role.Code
			p.Role = donor.Role
			p.HealAvailable = donor.Role.HasPotions
			p.PoisonAvailable = donor.Role.HasPotions
			p.DisguiseUsed = false
			s.notify.SendPrivate(p.UserID,
				fmt.Sprintf("Seat %d has fallen. You take up the %s's mantle.", seat, donor.Role.Name))
			log.Printf("session %s: seat %d inherited %s from seat %d", s.ID, p.Seat, donor.Role.Code, seat)
			break
		}
	}
}

// applyUnlocks transforms roles that gain the pack kill once every
// other living teammate is gone.
func (s *Session) applyUnlocks() {
	for _, p := range s.Players {
		if !p.Alive || !p.Role.UnlocksOnLastStanding || p.KillUnlocked {
			continue
		}
		alone := true
		for _, other := range s.Players {
			if other != p && other.Alive && other.Team == p.Team {
				alone = false
				break
			}
		}
		if alone {
			p.KillUnlocked = true
			s.notify.SendPrivate(p.UserID, "Your packmates are gone. The kill is yours now.")
			log.Printf("session %s: seat %d unlocked the kill", s.ID, p.Seat)
		}
	}
}
