package main

import "log"

// Extension is an optional role pack. Beyond its identity and roles it
// may implement any of the modifier or lifecycle interfaces below; the
// bus discovers those by type assertion, so an extension only declares
// the hooks it actually needs.
type Extension interface {
	ID() string
	Name() string
	Roles() []RoleDef
}

// Modifier hooks. Each receives a mutable event holding the default
// outcome computed by the resolver; extensions run in registration
// order and the value left after the last one is authoritative.
type KillModifier interface {
	ModifyKill(s *Session, ev *KillEvent) error
}
type GuardModifier interface {
	ModifyGuard(s *Session, ev *GuardEvent) error
}
type HealModifier interface {
	ModifyHeal(s *Session, ev *HealEvent) error
}
type PoisonModifier interface {
	ModifyPoison(s *Session, ev *PoisonEvent) error
}
type InvestigationModifier interface {
	ModifyInvestigation(s *Session, ev *InvestigationEvent) error
}

// Lifecycle hooks.
type GameStartListener interface {
	OnGameStart(s *Session)
}
type NightStartListener interface {
	OnNightStart(s *Session)
}
type DayStartListener interface {
	OnDayStart(s *Session)
}
type DeathListener interface {
	OnPlayerDeath(s *Session, p *Player, reason string)
}
type GameEndListener interface {
	OnGameEnd(s *Session, winner string)
}

type KillEvent struct {
	Target    int // seat, 0 = no kill tonight
	Cancelled bool
}

type GuardEvent struct {
	Guard     int // guarding seat
	Target    int // guarded seat (post-swap)
	Cancelled bool
}

type HealEvent struct {
	Healer    int
	Target    int
	Cancelled bool
}

type PoisonEvent struct {
	Poisoner  int
	Target    int
	Cancelled bool
}

type InvestigationEvent struct {
	Inspector int
	Target    int
	Detailed  bool
	Result    string // team face value, or role name for detailed checks
}

// HookBus holds the registered extensions in registration order and
// fans resolver events out to the ones enabled for a session. A hook
// that returns an error is logged and skipped; the event keeps
// whatever value it had before that extension ran.
type HookBus struct {
	exts []Extension
}

func NewHookBus() *HookBus { return &HookBus{} }

func (b *HookBus) Register(e Extension) {
	for i, old := range b.exts {
		if old.ID() == e.ID() {
			b.exts[i] = e
			return
		}
	}
	b.exts = append(b.exts, e)
}

func (b *HookBus) Get(id string) (Extension, bool) {
	for _, e := range b.exts {
		if e.ID() == id {
			return e, true
		}
	}
	return nil, false
}

func (b *HookBus) All() []Extension { return b.exts }

func (b *HookBus) enabledFor(s *Session) []Extension {
	out := make([]Extension, 0, len(b.exts))
	for _, e := range b.exts {
		if s.ExtensionEnabled(e.ID()) {
			out = append(out, e)
		}
	}
	return out
}

func hookFailed(ext Extension, hook string, err error) {
	log.Printf("hook failure: extension %s hook %s: %v (skipped)", ext.ID(), hook, err)
	DebugLog("hookFailed", "extension=%s hook=%s err=%v", ext.ID(), hook, err)
}

func (b *HookBus) modifyKill(s *Session, ev *KillEvent) {
	for _, e := range b.enabledFor(s) {
		m, ok := e.(KillModifier)
		if !ok {
			continue
		}
		if err := m.ModifyKill(s, ev); err != nil {
			hookFailed(e, "modifyKill", err)
		}
	}
}

func (b *HookBus) modifyGuard(s *Session, ev *GuardEvent) {
	for _, e := range b.enabledFor(s) {
		m, ok := e.(GuardModifier)
		if !ok {
			continue
		}
		if err := m.ModifyGuard(s, ev); err != nil {
			hookFailed(e, "modifyGuard", err)
		}
	}
}

func (b *HookBus) modifyHeal(s *Session, ev *HealEvent) {
	for _, e := range b.enabledFor(s) {
		m, ok := e.(HealModifier)
		if !ok {
			continue
		}
		if err := m.ModifyHeal(s, ev); err != nil {
			hookFailed(e, "modifyHeal", err)
		}
	}
}

func (b *HookBus) modifyPoison(s *Session, ev *PoisonEvent) {
	for _, e := range b.enabledFor(s) {
		m, ok := e.(PoisonModifier)
		if !ok {
			continue
		}
		if err := m.ModifyPoison(s, ev); err != nil {
			hookFailed(e, "modifyPoison", err)
		}
	}
}

func (b *HookBus) modifyInvestigation(s *Session, ev *InvestigationEvent) {
	for _, e := range b.enabledFor(s) {
		m, ok := e.(InvestigationModifier)
		if !ok {
			continue
		}
		if err := m.ModifyInvestigation(s, ev); err != nil {
			hookFailed(e, "modifyInvestigation", err)
		}
	}
}

func (b *HookBus) onGameStart(s *Session) {
	for _, e := range b.enabledFor(s) {
		if l, ok := e.(GameStartListener); ok {
			l.OnGameStart(s)
		}
	}
}

func (b *HookBus) onNightStart(s *Session) {
	for _, e := range b.enabledFor(s) {
		if l, ok := e.(NightStartListener); ok {
			l.OnNightStart(s)
		}
	}
}

func (b *HookBus) onDayStart(s *Session) {
	for _, e := range b.enabledFor(s) {
		if l, ok := e.(DayStartListener); ok {
			l.OnDayStart(s)
		}
	}
}

func (b *HookBus) onPlayerDeath(s *Session, p *Player, reason string) {
	for _, e := range b.enabledFor(s) {
		if l, ok := e.(DeathListener); ok {
			l.OnPlayerDeath(s, p, reason)
		}
	}
}

func (b *HookBus) onGameEnd(s *Session, winner string) {
	for _, e := range b.enabledFor(s) {
		if l, ok := e.(GameEndListener); ok {
			l.OnGameEnd(s, winner)
		}
	}
}
