package main

import (
	"fmt"
	"log"
	"strings"
	"time"
)

const (
	WinnerDraw    = "draw"
	WinnerPair    = "lovers"
	WinnerVillage = "village"
	WinnerWolf    = "wolf"
	WinnerNone    = "none" // abandoned / timed out
)

// Pair-victory trigger variants, selected by config.
const (
	PairRuleThreeAlive = "three_alive" // pair + binder alive, exactly three alive
	PairRuleLastTwo    = "last_two"    // pair are the last two standing
)

// evaluateWin checks the win rules in their fixed order and returns
// the winner, or "" while play continues.
func evaluateWin(s *Session) string {
	wolves, village, third := s.aliveCounts()
	total := wolves + village + third
	log.Printf("session %s win check: %d wolves, %d village, %d third alive", s.ID, wolves, village, third)

	if total == 0 {
		return WinnerDraw
	}

	if s.pairA != 0 {
		pa, pb := s.PlayerAtSeat(s.pairA), s.PlayerAtSeat(s.pairB)
		binder := s.PlayerAtSeat(s.pairActor)
		switch s.rules.PairVictoryRule {
		case PairRuleLastTwo:
			if total == 2 && pa.Alive && pb.Alive {
				return WinnerPair
			}
		default: // PairRuleThreeAlive
			if total == 3 && pa.Alive && pb.Alive && binder != nil && binder.Alive {
				return WinnerPair
			}
		}
	}

	if wolves == 0 && third == 0 {
		return WinnerVillage
	}
	if wolves >= village+third {
		return WinnerWolf
	}
	return ""
}

// endGameLocked closes the session: announces the result with a full
// role reveal, archives the game, updates profiles, and removes the
// session from the active registry. Caller holds the lock.
func (s *Session) endGameLocked(winner string) {
	if s.Phase == PhaseEnded {
		return
	}
	s.Phase = PhaseEnded
	s.Winner = winner
	s.EndedAt = time.Now()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}

	log.Printf("session %s ended: winner=%s after night %d", s.ID, winner, s.Night)
	s.bus.onGameEnd(s, winner)

	s.announce("The game is over. " + winnerLine(winner))
	var reveal strings.Builder
	reveal.WriteString("Final roles:")
	for _, p := range s.Players {
		fate := "alive"
		if !p.Alive {
			fate = p.DeathReason
		}
		fmt.Fprintf(&reveal, "\n  seat %d %s — %s (%s), %s", p.Seat, p.Name, p.Role.Name, p.Team, fate)
	}
	s.announce(reveal.String())
	maybeNarrate(s, endSummary(s, winner))

	if db != nil {
		code, err := archiveGame(s)
		if err != nil {
			logError("endGame: archive", err)
		} else {
			s.announce("Archived as " + code + ".")
		}
		for _, p := range s.Players {
			if err := recordResult(p.UserID, s.playerWon(p)); err != nil {
				logError("endGame: record result", err)
			}
		}
	}
	if sessions != nil {
		sessions.Remove(s)
	}
}

// playerWon decides a player's profile outcome for this game.
func (s *Session) playerWon(p *Player) bool {
	switch s.Winner {
	case WinnerPair:
		return p.Seat == s.pairA || p.Seat == s.pairB || p.Seat == s.pairActor
	case WinnerVillage:
		return p.Team == TeamVillage
	case WinnerWolf:
		return p.Team == TeamWolf
	default:
		return false
	}
}

func winnerLine(winner string) string {
	switch winner {
	case WinnerVillage:
		return "The village prevails."
	case WinnerWolf:
		return "The wolves overrun the village."
	case WinnerPair:
		return "The bound pair outlasts everyone. Love wins."
	case WinnerDraw:
		return "Nobody is left alive. A draw."
	default:
		return "No winner."
	}
}
