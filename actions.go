package main

import (
	"fmt"
)

type ActionKind string

const (
	ActionCheck    ActionKind = "check"
	ActionReveal   ActionKind = "reveal"
	ActionKill     ActionKind = "kill"
	ActionHeal     ActionKind = "heal"
	ActionPoison   ActionKind = "poison"
	ActionGuard    ActionKind = "guard"
	ActionSwap     ActionKind = "swap"
	ActionDisguise ActionKind = "disguise"
	ActionPair     ActionKind = "pair"
	ActionSkip     ActionKind = "skip"
)

// NightAction is one player's submission for the current night. The
// buffer holds at most one per seat; resubmitting replaces the earlier
// record. Cleared after resolution.
type NightAction struct {
	Actor   int // seat
	Role    string
	Kind    ActionKind
	Target  int
	Target2 int // second seat for swap/pair
}

// SubmitNightAction validates and buffers a night action. Rejections
// use the shared error taxonomy and leave no state behind; an accepted
// submission may trigger the all-acted fast path.
func (s *Session) SubmitNightAction(userID string, kind ActionKind, target, target2 int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Phase != PhaseNight {
		return fmt.Errorf("%w: it is not night", ErrActionNotPermitted)
	}
	actor := s.byUser[userID]
	if actor == nil || !actor.Alive {
		return fmt.Errorf("%w: you are not a living player in this game", ErrActionNotPermitted)
	}
	if !actor.actsAtNight() {
		return fmt.Errorf("%w: your role has no night action", ErrActionNotPermitted)
	}

	if kind != ActionSkip {
		if err := s.validateNightAction(actor, kind, target, target2); err != nil {
			return err
		}
	}

	s.actions[actor.Seat] = &NightAction{
		Actor:   actor.Seat,
		Role:    actor.Role.Code,
		Kind:    kind,
		Target:  target,
		Target2: target2,
	}
	s.touch()
	DebugLog("SubmitNightAction", "session=%s seat=%d kind=%s target=%d/%d",
		s.ID, actor.Seat, kind, target, target2)

	if kind == ActionKill {
		s.announceKillVote(actor, target)
	}

	s.maybeResolveNightLocked()
	return nil
}

func (s *Session) validateNightAction(actor *Player, kind ActionKind, target, target2 int) error {
	switch kind {
	case ActionCheck:
		if !actor.Role.CanInvestigate {
			return wrongRole()
		}
		return s.checkLivingTarget(actor, target, false)
	case ActionReveal:
		if !actor.Role.CanReveal {
			return wrongRole()
		}
		return s.checkLivingTarget(actor, target, false)
	case ActionKill:
		if !actor.canKill() {
			return wrongRole()
		}
		return s.checkLivingTarget(actor, target, false)
	case ActionHeal:
		if !actor.Role.HasPotions {
			return wrongRole()
		}
		if !actor.HealAvailable {
			return fmt.Errorf("%w: the antidote is already spent", ErrActionNotPermitted)
		}
		return s.checkLivingTarget(actor, target, true)
	case ActionPoison:
		if !actor.Role.HasPotions {
			return wrongRole()
		}
		if !actor.PoisonAvailable {
			return fmt.Errorf("%w: the poison is already spent", ErrActionNotPermitted)
		}
		return s.checkLivingTarget(actor, target, false)
	case ActionGuard:
		if !actor.Role.CanGuard {
			return wrongRole()
		}
		if target == actor.LastGuarded {
			return fmt.Errorf("%w: you guarded seat %d last night", ErrActionNotPermitted, target)
		}
		return s.checkLivingTarget(actor, target, true)
	case ActionSwap:
		if !actor.Role.CanSwap {
			return wrongRole()
		}
		if target == target2 {
			return fmt.Errorf("%w: pick two different seats", ErrInvalidTarget)
		}
		if err := s.checkLivingTarget(actor, target, true); err != nil {
			return err
		}
		return s.checkLivingTarget(actor, target2, true)
	case ActionDisguise:
		if !actor.Role.CanDisguise {
			return wrongRole()
		}
		if s.Night < 2 {
			return fmt.Errorf("%w: disguise is available from the second night", ErrActionNotPermitted)
		}
		if actor.DisguiseUsed {
			return fmt.Errorf("%w: disguise already used", ErrActionNotPermitted)
		}
		t := s.PlayerAtSeat(target)
		if t == nil {
			return fmt.Errorf("%w: no seat %d", ErrInvalidTarget, target)
		}
		if t.Alive {
			return fmt.Errorf("%w: seat %d is still alive", ErrInvalidTarget, target)
		}
		return nil
	case ActionPair:
		if !actor.Role.CanPair {
			return wrongRole()
		}
		if s.Night != 1 {
			return fmt.Errorf("%w: pairing happens on the first night only", ErrActionNotPermitted)
		}
		if s.pairA != 0 {
			return fmt.Errorf("%w: a pair is already bound", ErrActionNotPermitted)
		}
		if target == target2 {
			return fmt.Errorf("%w: pick two different seats", ErrInvalidTarget)
		}
		if err := s.checkLivingTarget(actor, target, true); err != nil {
			return err
		}
		return s.checkLivingTarget(actor, target2, true)
	default:
		return fmt.Errorf("%w: unknown action", ErrActionNotPermitted)
	}
}

func wrongRole() error {
	return fmt.Errorf("%w: your role cannot do that", ErrActionNotPermitted)
}

// checkLivingTarget rejects missing or dead seats, and the actor's own
// seat unless self-targeting is allowed for this action.
func (s *Session) checkLivingTarget(actor *Player, seat int, selfAllowed bool) error {
	t := s.PlayerAtSeat(seat)
	if t == nil {
		return fmt.Errorf("%w: no seat %d", ErrInvalidTarget, seat)
	}
	if !t.Alive {
		return fmt.Errorf("%w: seat %d is dead", ErrInvalidTarget, seat)
	}
	if !selfAllowed && t == actor {
		return fmt.Errorf("%w: you cannot target yourself", ErrInvalidTarget)
	}
	return nil
}

// announceKillVote keeps the pack coordinated: living packmates see
// each other's votes (hidden wolves stay out of the loop until they
// unlock), and a witch who still holds the antidote hears where the
// pack is circling. Caller holds the lock.
func (s *Session) announceKillVote(actor *Player, target int) {
	msg := fmt.Sprintf("Seat %d votes to kill seat %d.", actor.Seat, target)
	for _, p := range s.Players {
		if !p.Alive || p == actor {
			continue
		}
		if p.canKill() && !p.Role.HiddenFromInvestigation {
			s.notify.SendPrivate(p.UserID, msg)
		}
		if p.Role.HasPotions && p.HealAvailable {
			s.notify.SendPrivate(p.UserID, fmt.Sprintf("The wolves are circling seat %d.", target))
		}
	}
}

// SubmitVote records or changes a day vote. A target of 0 is an
// explicit abstention.
func (s *Session) SubmitVote(userID string, target int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Phase != PhaseDay {
		return fmt.Errorf("%w: it is not day", ErrActionNotPermitted)
	}
	voter := s.byUser[userID]
	if voter == nil || !voter.Alive {
		return fmt.Errorf("%w: you are not a living player in this game", ErrActionNotPermitted)
	}
	if target == 0 {
		voter.VoteTarget = -1
	} else {
		if err := s.checkLivingTarget(voter, target, false); err != nil {
			return err
		}
		voter.VoteTarget = target
	}
	s.touch()
	DebugLog("SubmitVote", "session=%s seat=%d target=%d", s.ID, voter.Seat, voter.VoteTarget)
	s.maybeResolveDayLocked()
	return nil
}

// SubmitRevenge is the executed player's parting shot.
func (s *Session) SubmitRevenge(userID string, target int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Phase != PhaseRevenge {
		return fmt.Errorf("%w: there is no revenge to take", ErrActionNotPermitted)
	}
	actor := s.byUser[userID]
	if actor == nil || actor.Seat != s.revengeSeat {
		return fmt.Errorf("%w: it is not your revenge", ErrActionNotPermitted)
	}
	t := s.PlayerAtSeat(target)
	if t == nil {
		return fmt.Errorf("%w: no seat %d", ErrInvalidTarget, target)
	}
	if !t.Alive {
		return fmt.Errorf("%w: seat %d is dead", ErrInvalidTarget, target)
	}
	if t == actor {
		return fmt.Errorf("%w: you cannot target yourself", ErrInvalidTarget)
	}
	s.finishRevengeLocked(s.epoch, target)
	return nil
}

// SubmitExplode is a day-phase self-destruct: the actor reveals, takes
// one living player down, and the day ends immediately with all votes
// discarded.
func (s *Session) SubmitExplode(userID string, target int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Phase != PhaseDay {
		return fmt.Errorf("%w: it is not day", ErrActionNotPermitted)
	}
	actor := s.byUser[userID]
	if actor == nil || !actor.Alive {
		return fmt.Errorf("%w: you are not a living player in this game", ErrActionNotPermitted)
	}
	if !actor.Role.CanExplode {
		return wrongRole()
	}
	if err := s.checkLivingTarget(actor, target, false); err != nil {
		return err
	}
	s.resolveExplodeLocked(actor, target)
	return nil
}
