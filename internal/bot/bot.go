// Package bot implements the automated player. Bots act through the same
// submission paths as humans and must respect the same legality rules; the
// heuristics here are flavor, the legality contract is the session's.
package bot

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/vntrieu/werewolf/internal/game"
	"github.com/vntrieu/werewolf/internal/roles"
)

// Personality shades a bot's targeting and voting.
type Personality string

const (
	Aggressive Personality = "aggressive"
	Defensive  Personality = "defensive"
	Analytical Personality = "analytical"
	Random     Personality = "random"
	Strategic  Personality = "strategic"
)

var personalities = []Personality{Aggressive, Defensive, Analytical, Random, Strategic}

// Think-delay ranges modeling human pacing.
const (
	nightDelayMin = 5 * time.Second
	nightDelayMax = 25 * time.Second
	voteDelayMin  = 10 * time.Second
	voteDelayMax  = 40 * time.Second
	chatDelayMin  = 8 * time.Second
	chatDelayMax  = 30 * time.Second
)

var botNames = []string{
	"Greta", "Otto", "Mabel", "Silas", "Ingrid", "Bram",
	"Hazel", "Conrad", "Petra", "Ansel", "Wilma", "Jasper",
}

// Name returns a themed display name for the nth bot in a room.
func Name(n int) string {
	base := botNames[n%len(botNames)]
	if n < len(botNames) {
		return base + " (bot)"
	}
	return fmt.Sprintf("%s %d (bot)", base, n/len(botNames)+1)
}

var chatLines = []string{
	"Someone was awfully quiet last night...",
	"I don't trust the quiet ones.",
	"We should think about who benefits from that death.",
	"I'm just a simple villager, I swear.",
	"Anyone else notice something odd yesterday?",
	"We can't keep skipping votes forever.",
	"I have a bad feeling about this.",
}

// Bot is one automated player's decision engine. It is only ever called
// from its session's event processing, so it needs no locking.
type Bot struct {
	rng         *rand.Rand
	personality Personality

	// suspicion maps player IDs to 0..100; seer results pin it to the
	// extremes, day observations nudge it.
	suspicion map[string]int
}

// New creates a bot with a random personality.
func New(rng *rand.Rand) *Bot {
	return &Bot{
		rng:         rng,
		personality: personalities[rng.Intn(len(personalities))],
		suspicion:   make(map[string]int),
	}
}

// NightIntent picks a night action for the bot's role.
func (b *Bot) NightIntent(v game.ActorView) (game.NightIntent, bool) {
	switch {
	case v.Role == roles.AlphaWerewolf:
		return b.alphaIntent(v)
	case v.Role.CanNightKill():
		target := b.killTarget(v)
		if target == "" {
			return game.NightIntent{}, false
		}
		return game.NightIntent{Kind: game.IntentKill, Target: target}, true
	case v.Role == roles.Seer:
		target := b.inspectTarget(v)
		if target == "" {
			return game.NightIntent{}, false
		}
		return game.NightIntent{Kind: game.IntentInspect, Target: target}, true
	case v.Role == roles.Bodyguard:
		target := b.protectTarget(v)
		if target == "" {
			return game.NightIntent{}, false
		}
		return game.NightIntent{Kind: game.IntentProtect, Target: target}, true
	case v.Role == roles.Witch:
		return b.witchIntent(v)
	case v.Role == roles.Cupid:
		return b.bondIntent(v)
	}
	return game.NightIntent{}, false
}

func (b *Bot) alphaIntent(v game.ActorView) (game.NightIntent, bool) {
	// The alpha kills most nights but occasionally grows the pack.
	if b.rng.Float64() < 0.3 {
		if target := b.randomNonPack(v, ""); target != "" {
			return game.NightIntent{Kind: game.IntentConvert, Target: target}, true
		}
	}
	target := b.killTarget(v)
	if target == "" {
		return game.NightIntent{}, false
	}
	return game.NightIntent{Kind: game.IntentKill, Target: target}, true
}

func (b *Bot) killTarget(v game.ActorView) string {
	// Pile onto the pack's current leader more often than not, so the
	// ballot converges.
	if v.WolfTarget != "" && b.personality != Random && b.rng.Float64() < 0.6 {
		return v.WolfTarget
	}
	return b.randomNonPack(v, "")
}

func (b *Bot) inspectTarget(v game.ActorView) string {
	// Prefer players the bot knows nothing about yet.
	unknown := make([]string, 0)
	for _, p := range v.Alive {
		if p.ID == v.SelfID {
			continue
		}
		if _, seen := b.suspicion[p.ID]; !seen {
			unknown = append(unknown, p.ID)
		}
	}
	if len(unknown) > 0 {
		return unknown[b.rng.Intn(len(unknown))]
	}
	return b.randomOther(v, v.SelfID)
}

func (b *Bot) protectTarget(v game.ActorView) string {
	candidates := make([]string, 0)
	for _, p := range v.Alive {
		if p.ID == v.LastProtected {
			continue
		}
		// Defensive guards favor themselves a little by keeping
		// self in the candidate pool twice.
		if p.ID == v.SelfID && b.personality == Defensive {
			candidates = append(candidates, p.ID)
		}
		candidates = append(candidates, p.ID)
	}
	if len(candidates) == 0 {
		return ""
	}
	return candidates[b.rng.Intn(len(candidates))]
}

func (b *Bot) witchIntent(v game.ActorView) (game.NightIntent, bool) {
	// Save the pack's target most of the time while the heal remains.
	if v.HealPotion && v.WolfTarget != "" && b.rng.Float64() < 0.7 {
		return game.NightIntent{Kind: game.IntentHeal, Target: v.WolfTarget}, true
	}
	if v.HarmPotion && b.rng.Float64() < 0.3 {
		if target := b.mostSuspicious(v); target != "" {
			return game.NightIntent{Kind: game.IntentHarm, Target: target}, true
		}
	}
	return game.NightIntent{}, false
}

func (b *Bot) bondIntent(v game.ActorView) (game.NightIntent, bool) {
	if v.BondUsed || len(v.Alive) < 2 {
		return game.NightIntent{}, false
	}
	i := b.rng.Intn(len(v.Alive))
	j := b.rng.Intn(len(v.Alive) - 1)
	if j >= i {
		j++
	}
	return game.NightIntent{
		Kind:         game.IntentBond,
		Target:       v.Alive[i].ID,
		SecondTarget: v.Alive[j].ID,
	}, true
}

// VoteTarget picks a day vote, or skips.
func (b *Bot) VoteTarget(v game.ActorView) (string, bool) {
	// Pack members never vote for each other.
	pack := make(map[string]bool, len(v.Teammates))
	for _, id := range v.Teammates {
		pack[id] = true
	}

	if target := b.mostSuspicious(v); target != "" && !pack[target] {
		return target, true
	}

	// Bandwagon: join the current leader about half the time.
	if len(v.Tally) > 0 && b.rng.Float64() < 0.5 {
		leader, best := "", 0
		for id, n := range v.Tally {
			if n > best && id != v.SelfID && !pack[id] {
				leader, best = id, n
			}
		}
		if leader != "" {
			return leader, true
		}
	}

	switch b.personality {
	case Analytical, Defensive:
		// Without evidence, sit out.
		return "", false
	}
	candidates := make([]string, 0)
	for _, p := range v.Alive {
		if p.ID != v.SelfID && !pack[p.ID] {
			candidates = append(candidates, p.ID)
		}
	}
	if len(candidates) == 0 || b.rng.Float64() < 0.25 {
		return "", false
	}
	return candidates[b.rng.Intn(len(candidates))], true
}

// RevengeTarget picks the victim of a dying shot.
func (b *Bot) RevengeTarget(v game.ActorView) string {
	if target := b.mostSuspicious(v); target != "" {
		return target
	}
	return b.randomOther(v, v.SelfID)
}

// ObserveInspect pins suspicion from a seer result.
func (b *Bot) ObserveInspect(targetID string, hostile bool) {
	if hostile {
		b.suspicion[targetID] = 100
	} else {
		b.suspicion[targetID] = 0
	}
}

// ChatLine occasionally produces day-phase table talk.
func (b *Bot) ChatLine(v game.ActorView) (string, bool) {
	if b.rng.Float64() > 0.35 {
		return "", false
	}
	return chatLines[b.rng.Intn(len(chatLines))], true
}

func (b *Bot) NightDelay() time.Duration { return b.delay(nightDelayMin, nightDelayMax) }
func (b *Bot) VoteDelay() time.Duration  { return b.delay(voteDelayMin, voteDelayMax) }
func (b *Bot) ChatDelay() time.Duration  { return b.delay(chatDelayMin, chatDelayMax) }

func (b *Bot) delay(min, max time.Duration) time.Duration {
	return min + time.Duration(b.rng.Int63n(int64(max-min)))
}

// mostSuspicious returns the living player with suspicion >= 60, if any.
func (b *Bot) mostSuspicious(v game.ActorView) string {
	best, bestScore := "", 59
	for _, p := range v.Alive {
		if p.ID == v.SelfID {
			continue
		}
		if score, ok := b.suspicion[p.ID]; ok && score > bestScore {
			best, bestScore = p.ID, score
		}
	}
	return best
}

func (b *Bot) randomOther(v game.ActorView, exclude string) string {
	candidates := make([]string, 0, len(v.Alive))
	for _, p := range v.Alive {
		if p.ID != exclude {
			candidates = append(candidates, p.ID)
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	return candidates[b.rng.Intn(len(candidates))]
}

func (b *Bot) randomNonPack(v game.ActorView, exclude string) string {
	pack := make(map[string]bool, len(v.Teammates))
	for _, id := range v.Teammates {
		pack[id] = true
	}
	candidates := make([]string, 0, len(v.Alive))
	for _, p := range v.Alive {
		if p.ID != exclude && p.ID != v.SelfID && !pack[p.ID] {
			candidates = append(candidates, p.ID)
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	return candidates[b.rng.Intn(len(candidates))]
}
