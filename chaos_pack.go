package main

// ChaosPack is the bundled role pack. Its passive role traits (hidden
// wolf masking, disguise face values, guard/heal/poison immunities)
// are implemented as bus modifiers so the resolver stays ignorant of
// the specific roles involved.
type ChaosPack struct{}

func (ChaosPack) ID() string   { return "chaos" }
func (ChaosPack) Name() string { return "Chaos Pack" }

func (ChaosPack) Roles() []RoleDef {
	return []RoleDef{
		{Code: "hidden_wolf", Name: "Hidden Wolf", Team: TeamWolf,
			HiddenFromInvestigation: true, UnlocksOnLastStanding: true,
			Description: "Reads as village to basic checks. Gains the pack's kill once every other wolf is dead."},
		{Code: "guard", Name: "Guard", Team: TeamVillage,
			HasNightAction: true, Command: "guard", CanGuard: true,
			Description: "Protects one player per night from the wolf kill. May not guard the same player twice in a row."},
		{Code: "magician", Name: "Magician", Team: TeamVillage,
			HasNightAction: true, Command: "swap", CanSwap: true,
			Description: "Swaps two seats for the night; anything aimed at one lands on the other."},
		{Code: "double_face", Name: "Double Face", Team: TeamThird,
			ConvertsOnDeath: true, PoisonImmune: true,
			Description: "Neutral survivor. Joins the wolves if they come for it, joins the village if voted out. Poison has no effect."},
		{Code: "spiritualist", Name: "Spiritualist", Team: TeamVillage,
			HasNightAction: true, Command: "reveal", CanReveal: true,
			Unguardable: true, HealIneffective: true,
			Description: "Learns one player's exact role per night. Too attuned to the beyond to be guarded or healed."},
		{Code: "successor", Name: "Successor", Team: TeamVillage,
			InheritsAdjacent: true,
			Description: "Inherits the ability of an adjacent villager who dies."},
		{Code: "skin_walker", Name: "Skin Walker", Team: TeamWolf,
			HasNightAction: true, Command: "disguise", CanDisguise: true,
			Description: "Once per game, from the second night, wears a dead player's role for basic checks."},
		{Code: "white_wolf_king", Name: "White Wolf King", Team: TeamWolf,
			HasNightAction: true, HasDayAction: true, Command: "kill",
			CanKill: true, CanExplode: true,
			Description: "A wolf that may reveal itself by day, taking one player with it."},
		{Code: "cupid", Name: "Cupid", Team: TeamThird,
			HasNightAction: true, Command: "couple", CanPair: true,
			Description: "On the first night, binds two players' fates. When one dies, both do."},
	}
}

func (ChaosPack) ModifyInvestigation(s *Session, ev *InvestigationEvent) error {
	target := s.PlayerAtSeat(ev.Target)
	if target == nil || ev.Detailed {
		return nil
	}
	if target.DisguisedAs != "" {
		if def, ok := s.catalog.Resolve(target.DisguisedAs, s.enabledSet()); ok {
			ev.Result = faceValue(def.Team)
		}
		return nil
	}
	if target.Role.HiddenFromInvestigation {
		ev.Result = faceValue(TeamVillage)
	}
	return nil
}

func (ChaosPack) ModifyGuard(s *Session, ev *GuardEvent) error {
	if target := s.PlayerAtSeat(ev.Target); target != nil && target.Role.Unguardable {
		ev.Cancelled = true
	}
	return nil
}

func (ChaosPack) ModifyHeal(s *Session, ev *HealEvent) error {
	if target := s.PlayerAtSeat(ev.Target); target != nil && target.Role.HealIneffective {
		ev.Cancelled = true
	}
	return nil
}

func (ChaosPack) ModifyPoison(s *Session, ev *PoisonEvent) error {
	if target := s.PlayerAtSeat(ev.Target); target != nil && target.Role.PoisonImmune {
		ev.Cancelled = true
	}
	return nil
}
