package game

import "github.com/vntrieu/werewolf/internal/roles"

// Seat identifies one participant handed to a session at start.
type Seat struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsBot    bool   `json:"is_bot"`
	Observer bool   `json:"observer,omitempty"`
}

// Player is one seat in a running session. Players are owned exclusively by
// the Session; nothing else mutates them after creation.
type Player struct {
	ID    string
	Name  string
	IsBot bool
	Role  roles.Role

	// Alive flips true -> false exactly once.
	Alive bool

	// Day-phase vote state, reset on every phase entry.
	HasVoted   bool
	VoteTarget string

	// NightAction records the last submitted action kind for UI purposes
	// only; resolution reads the dedicated buffers, never this field.
	NightAction string

	// Protected is recomputed during each night resolution.
	Protected bool

	// BondUsed is the sticky once-per-game flag for matchmaker roles.
	BondUsed bool

	// Witch charges. Independent, single use each.
	HealPotion bool
	HarmPotion bool
}
