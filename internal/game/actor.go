package game

import (
	"time"

	"github.com/vntrieu/werewolf/internal/roles"
)

// IntentKind names a night action.
type IntentKind string

const (
	IntentKill    IntentKind = "kill"
	IntentConvert IntentKind = "convert"
	IntentProtect IntentKind = "protect"
	IntentInspect IntentKind = "inspect"
	IntentHeal    IntentKind = "heal"
	IntentHarm    IntentKind = "harm"
	IntentBond    IntentKind = "bond"
)

// NightIntent is one night action submission. SecondTarget is only used by
// bond intents, which link two players.
type NightIntent struct {
	Kind         IntentKind `json:"kind"`
	Target       string     `json:"target_id"`
	SecondTarget string     `json:"second_target_id,omitempty"`
}

// ActorView is the information an automated player is allowed to act on.
// It is a filtered copy; mutating it has no effect on the session.
type ActorView struct {
	SelfID        string
	Name          string
	Role          roles.Role
	Day           int
	Alive         []Seat         // living players, self included
	Teammates     []string       // living werewolf-team member IDs (wolf viewers only)
	Tally         map[string]int // current day vote tally
	WolfTarget    string         // current leading pack kill target
	LastProtected string
	HealPotion    bool
	HarmPotion    bool
	BondUsed      bool
	CubEffect     bool
}

// Actor decides actions for an automated player. Implementations must return
// actions that pass the same legality checks as human submissions; the
// session ignores illegal bot actions rather than erroring.
type Actor interface {
	// NightIntent picks the actor's night action, or ok=false to sit out.
	NightIntent(v ActorView) (intent NightIntent, ok bool)

	// VoteTarget picks a day-vote target, or ok=false to skip.
	VoteTarget(v ActorView) (target string, ok bool)

	// RevengeTarget picks the victim of a revenge shot. Must be a living
	// player other than the actor; the session falls back to a uniform
	// random pick if the returned target is illegal.
	RevengeTarget(v ActorView) string

	// ObserveInspect feeds an inspection result back to a seer actor.
	ObserveInspect(targetID string, hostile bool)

	// ChatLine optionally produces a day-phase chat message.
	ChatLine(v ActorView) (line string, ok bool)

	// Think delays model human pacing. The session schedules submissions
	// after these delays; it never sleeps.
	NightDelay() time.Duration
	VoteDelay() time.Duration
	ChatDelay() time.Duration
}
