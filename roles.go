package main

import "sort"

type Team string

const (
	TeamVillage Team = "village"
	TeamWolf    Team = "wolf"
	TeamThird   Team = "third"
)

// RoleDef describes one role: its team, which commands it may use, and
// the passive traits the resolver and extensions consult. Definitions
// are loaded once at process start and never mutated during a game.
type RoleDef struct {
	Code        string
	Name        string
	Team        Team
	Description string

	HasNightAction bool
	HasDayAction   bool
	Command        string // ability command name, e.g. "kill", "check"

	// active abilities
	CanKill        bool // joins the wolf kill vote
	CanInvestigate bool // basic check: team face value
	CanReveal      bool // detailed check: true role
	HasPotions     bool // one heal and one poison, one-shot each
	CanGuard       bool
	CanSwap        bool
	CanDisguise    bool
	CanPair        bool
	CanRevenge     bool // shoots one target when executed by vote
	CanExplode     bool // day ability: self-destruct taking one target

	// passive traits
	HiddenFromInvestigation bool // basic checks read the opposing face
	Unguardable             bool
	HealIneffective         bool
	PoisonImmune            bool
	ConvertsOnDeath         bool // team flips by death cause, death vetoed
	InheritsAdjacent        bool // learns a dead neighbor's skill
	UnlocksOnLastStanding   bool // gains kill when all packmates are dead
}

// special reports whether the role carries any ability worth inheriting.
func (r RoleDef) special() bool {
	return r.CanInvestigate || r.CanReveal || r.HasPotions || r.CanGuard ||
		r.CanSwap || r.CanDisguise || r.CanPair || r.CanRevenge
}

var baseRoles = []RoleDef{
	{Code: "vil", Name: "Villager", Team: TeamVillage,
		Description: "No special ability. Wins with the village."},
	{Code: "seer", Name: "Seer", Team: TeamVillage,
		HasNightAction: true, Command: "check", CanInvestigate: true,
		Description: "Each night, learns whether one player reads as wolf or village."},
	{Code: "witch", Name: "Witch", Team: TeamVillage,
		HasNightAction: true, Command: "potion", HasPotions: true,
		Description: "Holds one antidote and one poison, each usable once per game."},
	{Code: "hunt", Name: "Hunter", Team: TeamVillage,
		CanRevenge: true,
		Description: "When executed by vote, takes one player down too."},
	{Code: "wolf", Name: "Werewolf", Team: TeamWolf,
		HasNightAction: true, Command: "kill", CanKill: true,
		Description: "Votes with the pack each night on who to kill."},
}

// Catalog merges the base role set with the role sets of registered
// extensions. Pure lookup; extension entries win on code collision,
// later registrations winning over earlier ones.
type Catalog struct {
	base map[string]RoleDef
	ext  []extRoles // registration order
}

type extRoles struct {
	extID string
	roles map[string]RoleDef
}

func NewCatalog() *Catalog {
	c := &Catalog{base: make(map[string]RoleDef)}
	for _, r := range baseRoles {
		c.base[r.Code] = r
	}
	return c
}

// RegisterExtension adds an extension's roles to the catalog.
// Registering the same extension id again replaces its previous set.
func (c *Catalog) RegisterExtension(extID string, roles []RoleDef) {
	m := make(map[string]RoleDef, len(roles))
	for _, r := range roles {
		m[r.Code] = r
	}
	for i, e := range c.ext {
		if e.extID == extID {
			c.ext[i].roles = m
			return
		}
	}
	c.ext = append(c.ext, extRoles{extID: extID, roles: m})
}

// Resolve looks up a role code against the base catalog plus the given
// enabled extensions.
func (c *Catalog) Resolve(code string, enabled map[string]bool) (RoleDef, bool) {
	for i := len(c.ext) - 1; i >= 0; i-- {
		if !enabled[c.ext[i].extID] {
			continue
		}
		if r, ok := c.ext[i].roles[code]; ok {
			return r, true
		}
	}
	r, ok := c.base[code]
	return r, ok
}

// AllRoles returns every resolvable role for the enabled extensions,
// sorted by code for stable listings.
func (c *Catalog) AllRoles(enabled map[string]bool) []RoleDef {
	merged := make(map[string]RoleDef, len(c.base))
	for code, r := range c.base {
		merged[code] = r
	}
	for _, e := range c.ext {
		if !enabled[e.extID] {
			continue
		}
		for code, r := range e.roles {
			merged[code] = r
		}
	}
	out := make([]RoleDef, 0, len(merged))
	for _, r := range merged {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
