package roles

// Role identifies one of the closed set of abilities a player can hold.
type Role string

const (
	Villager      Role = "villager"
	Werewolf      Role = "werewolf"
	Seer          Role = "seer"
	Bodyguard     Role = "bodyguard"
	Hunter        Role = "hunter"
	Cupid         Role = "cupid"
	WolfCub       Role = "wolf_cub"
	Traitor       Role = "traitor"
	Witch         Role = "witch"
	Fool          Role = "fool"
	AlphaWerewolf Role = "alpha_werewolf"
)

// Team is a role's win-condition affiliation.
type Team string

const (
	TeamVillagers  Team = "villagers"
	TeamWerewolves Team = "werewolves"
	TeamNeutral    Team = "neutral"
)

// All lists every role in a stable order (used for iteration and validation).
var All = []Role{
	Villager, Werewolf, Seer, Bodyguard, Hunter, Cupid,
	WolfCub, Traitor, Witch, Fool, AlphaWerewolf,
}

var teams = map[Role]Team{
	Villager:      TeamVillagers,
	Seer:          TeamVillagers,
	Bodyguard:     TeamVillagers,
	Hunter:        TeamVillagers,
	Cupid:         TeamVillagers,
	Witch:         TeamVillagers,
	Werewolf:      TeamWerewolves,
	WolfCub:       TeamWerewolves,
	Traitor:       TeamWerewolves,
	AlphaWerewolf: TeamWerewolves,
	Fool:          TeamNeutral,
}

var descriptions = map[Role]string{
	Villager:      "An ordinary villager. Find the werewolves and vote them out.",
	Werewolf:      "Each night, vote with your pack to kill a villager.",
	Seer:          "Each night, inspect one player and learn whether they are hostile.",
	Bodyguard:     "Each night, protect one player from the werewolves. Never the same player twice in a row.",
	Hunter:        "When you die, you immediately take one other player down with you.",
	Cupid:         "Once per game, bond two players. If one of them dies, so does the other.",
	WolfCub:       "A young werewolf. If you die, the pack kills two players every night from then on.",
	Traitor:       "You win with the werewolves. The pack is revealed to you, and they know you.",
	Witch:         "You own one healing potion and one poison. At most one may be used per night.",
	Fool:          "You win alone if the village votes you out.",
	AlphaWerewolf: "Pack leader. Each night, either join the kill vote or convert a villager into a werewolf.",
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := teams[r]
	return ok
}

// Team returns the role's win-condition team.
func (r Role) Team() Team {
	return teams[r]
}

// Description returns the player-facing description of the role.
func (r Role) Description() string {
	return descriptions[r]
}

// IsWerewolfTeam reports whether the role wins with the werewolves.
// This includes the traitor, who has no kill ability.
func (r Role) IsWerewolfTeam() bool {
	return teams[r] == TeamWerewolves
}

// CanNightKill reports whether the role takes part in the pack's night kill
// ballot. The traitor is on the werewolf team but cannot act.
func (r Role) CanNightKill() bool {
	return r == Werewolf || r == WolfCub || r == AlphaWerewolf
}

// IsLeader reports whether the role is the pack leader with the
// kill-or-convert choice.
func (r Role) IsLeader() bool {
	return r == AlphaWerewolf
}

// ActsIndividually reports whether the role submits its own night action
// outside the pack ballot.
func (r Role) ActsIndividually() bool {
	switch r {
	case Seer, Bodyguard, Witch, Cupid:
		return true
	}
	return false
}

// HasRevenge reports whether the role fires a revenge shot on death.
func (r Role) HasRevenge() bool {
	return r == Hunter
}

// ReadsHostile reports how the role appears to a seer's inspection.
// The traitor is werewolf-team but deliberately reads as not hostile.
func (r Role) ReadsHostile() bool {
	return r.IsWerewolfTeam() && r != Traitor
}
