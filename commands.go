package main

import (
	"fmt"
	"strconv"
	"strings"
)

// Dispatcher is the command entry point: one call per recognized
// command, returning a direct reply or a rejection error from the
// shared taxonomy. Everything else the engine wants to say goes out
// through the notifier.
type Dispatcher struct {
	catalog  *Catalog
	bus      *HookBus
	rooms    *RoomRegistry
	sessions *SessionRegistry
	notify   Notifier
	cfg      *AppConfig
}

func NewDispatcher(catalog *Catalog, bus *HookBus, rooms *RoomRegistry,
	reg *SessionRegistry, notify Notifier, cfg *AppConfig) *Dispatcher {
	return &Dispatcher{catalog: catalog, bus: bus, rooms: rooms, sessions: reg, notify: notify, cfg: cfg}
}

// Dispatch runs one command for one player. scopeID may carry a room
// id for commands that need one; most commands find their room or
// session through the player.
func (d *Dispatcher) Dispatch(playerID, scopeID, action string, params []string) (reply string, err error) {
	defer func() { LogCommand(playerID, action, params, err) }()

	switch action {
	case "host":
		r, err := d.rooms.Create(playerID, playerID)
		if err != nil {
			return "", err
		}
		return "Room opened. " + r.SettingsLine(), nil

	case "join":
		roomID := scopeID
		if len(params) > 0 {
			roomID = params[0]
		}
		r, err := d.rooms.Join(roomID, playerID, playerID)
		if err != nil {
			return "", err
		}
		d.notify.SendGroup(r.ID, fmt.Sprintf("%s joined (%d/%d).", playerID, len(r.Members), r.PlayerCount))
		return "Joined room " + r.ID + ".", nil

	case "settings":
		return d.configure(playerID, params)

	case "start":
		r, ok := d.rooms.ByUser(playerID)
		if !ok {
			return "", fmt.Errorf("%w: you are not in a room", ErrActionNotPermitted)
		}
		s, err := d.rooms.Start(r.ID, playerID, d.catalog, d.bus, d.notify, d.sessions, d.cfg)
		if err != nil {
			return "", err
		}
		s.Begin()
		return "The game begins.", nil

	case "list":
		rooms := d.rooms.Waiting()
		if len(rooms) == 0 {
			return "No open rooms.", nil
		}
		lines := make([]string, 0, len(rooms))
		for _, r := range rooms {
			lines = append(lines, r.SettingsLine())
		}
		return strings.Join(lines, "\n"), nil

	case "roles":
		return d.listRoles(playerID), nil

	case "profile":
		if db == nil {
			return "", fmt.Errorf("%w: profiles are unavailable", ErrActionNotPermitted)
		}
		target := playerID
		if len(params) > 0 {
			target = params[0]
		}
		p, err := getProfile(target)
		if err != nil {
			return "", fmt.Errorf("%w: no profile for %s", ErrInvalidTarget, target)
		}
		return fmt.Sprintf("%s: %d games, %d wins, %d losses.", p.PlayerID, p.Games, p.Wins, p.Losses), nil

	case "archive":
		if db == nil {
			return "", fmt.Errorf("%w: archives are unavailable", ErrActionNotPermitted)
		}
		if len(params) < 1 {
			return "", fmt.Errorf("%w: archive code required", ErrInvalidTarget)
		}
		rec, roster, err := getArchive(params[0])
		if err != nil {
			return "", fmt.Errorf("%w: no archive %s", ErrInvalidTarget, params[0])
		}
		return formatArchive(rec, roster), nil

	case "status":
		s, ok := d.sessions.ByUser(playerID)
		if !ok {
			return "", fmt.Errorf("%w: you are not in a game", ErrActionNotPermitted)
		}
		return s.Status(), nil

	case "vote":
		s, ok := d.sessions.ByUser(playerID)
		if !ok {
			return "", fmt.Errorf("%w: you are not in a game", ErrActionNotPermitted)
		}
		if len(params) > 0 && params[0] == "skip" {
			return "Abstention noted.", s.SubmitVote(playerID, 0)
		}
		seat, err := seatParam(params, 0)
		if err != nil {
			return "", err
		}
		return "Vote noted.", s.SubmitVote(playerID, seat)

	case "revenge":
		s, ok := d.sessions.ByUser(playerID)
		if !ok {
			return "", fmt.Errorf("%w: you are not in a game", ErrActionNotPermitted)
		}
		seat, err := seatParam(params, 0)
		if err != nil {
			return "", err
		}
		return "So be it.", s.SubmitRevenge(playerID, seat)

	case "explode":
		s, ok := d.sessions.ByUser(playerID)
		if !ok {
			return "", fmt.Errorf("%w: you are not in a game", ErrActionNotPermitted)
		}
		seat, err := seatParam(params, 0)
		if err != nil {
			return "", err
		}
		return "", s.SubmitExplode(playerID, seat)

	case "skip", "check", "reveal", "kill", "guard", "disguise", "potion", "swap", "couple":
		return d.nightCommand(playerID, action, params)

	default:
		return "", fmt.Errorf("%w: unknown command %q", ErrActionNotPermitted, action)
	}
}

// nightCommand maps the per-role commands onto night-action records.
func (d *Dispatcher) nightCommand(playerID, action string, params []string) (string, error) {
	s, ok := d.sessions.ByUser(playerID)
	if !ok {
		return "", fmt.Errorf("%w: you are not in a game", ErrActionNotPermitted)
	}

	var kind ActionKind
	var target, target2 int
	var err error
	switch action {
	case "skip":
		kind = ActionSkip
	case "check":
		kind = ActionCheck
		target, err = seatParam(params, 0)
	case "reveal":
		kind = ActionReveal
		target, err = seatParam(params, 0)
	case "kill":
		kind = ActionKill
		target, err = seatParam(params, 0)
	case "guard":
		kind = ActionGuard
		target, err = seatParam(params, 0)
	case "disguise":
		kind = ActionDisguise
		target, err = seatParam(params, 0)
	case "potion":
		if len(params) < 1 {
			return "", fmt.Errorf("%w: potion 1 (antidote) or 2 (poison)", ErrInvalidTarget)
		}
		switch params[0] {
		case "1":
			kind = ActionHeal
		case "2":
			kind = ActionPoison
		default:
			return "", fmt.Errorf("%w: potion 1 (antidote) or 2 (poison)", ErrInvalidTarget)
		}
		target, err = seatParam(params, 1)
	case "swap":
		kind = ActionSwap
		target, err = seatParam(params, 0)
		if err == nil {
			target2, err = seatParam(params, 1)
		}
	case "couple":
		kind = ActionPair
		target, err = seatParam(params, 0)
		if err == nil {
			target2, err = seatParam(params, 1)
		}
	}
	if err != nil {
		return "", err
	}
	if err := s.SubmitNightAction(playerID, kind, target, target2); err != nil {
		return "", err
	}
	return "Noted.", nil
}

// configure handles the host-only room settings subcommands.
func (d *Dispatcher) configure(playerID string, params []string) (string, error) {
	r, ok := d.rooms.ByUser(playerID)
	if !ok {
		return "", fmt.Errorf("%w: you are not in a room", ErrActionNotPermitted)
	}
	if len(params) < 2 {
		return "", fmt.Errorf("%w: settings players|roles|extends ...", ErrInvalidTarget)
	}
	err := d.rooms.Configure(r.ID, playerID, func(r *Room) error {
		switch params[0] {
		case "players":
			n, err := strconv.Atoi(params[1])
			if err != nil || n < d.cfg.MinPlayers || n > d.cfg.MaxPlayers {
				return fmt.Errorf("%w: player count must be %d..%d", ErrInvalidTarget, d.cfg.MinPlayers, d.cfg.MaxPlayers)
			}
			r.PlayerCount = n
		case "roles":
			if len(params) < 3 {
				return fmt.Errorf("%w: settings roles <code> <count>", ErrInvalidTarget)
			}
			enabled := make(map[string]bool, len(r.Extensions))
			for _, id := range r.Extensions {
				enabled[id] = true
			}
			if _, ok := d.catalog.Resolve(params[1], enabled); !ok {
				return fmt.Errorf("%w: unknown role %q", ErrInvalidTarget, params[1])
			}
			n, err := strconv.Atoi(params[2])
			if err != nil || n < 0 {
				return fmt.Errorf("%w: bad count %q", ErrInvalidTarget, params[2])
			}
			if n == 0 {
				delete(r.RoleCounts, params[1])
			} else {
				r.RoleCounts[params[1]] = n
			}
		case "extends":
			if len(params) < 3 {
				return fmt.Errorf("%w: settings extends <id> <on|off>", ErrInvalidTarget)
			}
			if _, ok := d.bus.Get(params[1]); !ok {
				return fmt.Errorf("%w: unknown extension %q", ErrInvalidTarget, params[1])
			}
			on := params[2] == "on"
			var kept []string
			for _, id := range r.Extensions {
				if id != params[1] {
					kept = append(kept, id)
				}
			}
			if on {
				kept = append(kept, params[1])
			}
			r.Extensions = kept
		default:
			return fmt.Errorf("%w: settings players|roles|extends ...", ErrInvalidTarget)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	r, _ = d.rooms.Get(r.ID)
	return r.SettingsLine(), nil
}

func (d *Dispatcher) listRoles(playerID string) string {
	enabled := make(map[string]bool)
	if r, ok := d.rooms.ByUser(playerID); ok {
		for _, id := range r.Extensions {
			enabled[id] = true
		}
	}
	var b strings.Builder
	b.WriteString("Roles:")
	for _, def := range d.catalog.AllRoles(enabled) {
		fmt.Fprintf(&b, "\n  %s (%s, %s): %s", def.Name, def.Code, def.Team, def.Description)
	}
	return b.String()
}

func formatArchive(rec ArchiveRecord, roster []ArchivedPlayer) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Game %s: winner %s after %d nights (%s).",
		rec.Code, rec.Winner, rec.Nights, rec.EndedAt.Format("2006-01-02 15:04"))
	for _, p := range roster {
		fate := "survived"
		if !p.Alive {
			fate = p.DeathReason
		}
		fmt.Fprintf(&b, "\n  seat %d %s — %s (%s), %s", p.Seat, p.Name, p.Role, p.Team, fate)
	}
	return b.String()
}

func seatParam(params []string, i int) (int, error) {
	if len(params) <= i {
		return 0, fmt.Errorf("%w: seat number required", ErrInvalidTarget)
	}
	n, err := strconv.Atoi(params[i])
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: bad seat %q", ErrInvalidTarget, params[i])
	}
	return n, nil
}
