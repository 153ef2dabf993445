package roles

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// MaxWerewolfFraction caps the werewolf-team share of a room, rounded up.
const MaxWerewolfFraction = 0.4

// DefaultDistribution returns the fallback role distribution for a player
// count, used when the host never configured one.
func DefaultDistribution(playerCount int) map[Role]int {
	dist := map[Role]int{
		Werewolf:  1,
		Seer:      1,
		Bodyguard: 1,
	}
	switch {
	case playerCount >= 13:
		dist[Werewolf] = 3
		dist[Hunter] = 1
		dist[Witch] = 1
	case playerCount >= 9:
		dist[Werewolf] = 2
		dist[Hunter] = 1
	case playerCount >= 6:
		dist[Werewolf] = 2
	}
	assigned := 0
	for _, n := range dist {
		assigned += n
	}
	if rest := playerCount - assigned; rest > 0 {
		dist[Villager] = rest
	}
	return dist
}

// ValidateDistribution checks a configured role distribution against the
// player count. Returns a descriptive error on the first violated rule.
func ValidateDistribution(dist map[Role]int, playerCount int) error {
	total := 0
	wolves := 0
	for role, n := range dist {
		if !role.Valid() {
			return fmt.Errorf("unknown role %q", role)
		}
		if n < 0 {
			return fmt.Errorf("role %q has negative count", role)
		}
		total += n
		if role.IsWerewolfTeam() {
			wolves += n
		}
	}
	if total != playerCount {
		return fmt.Errorf("role distribution totals %d but room has %d players", total, playerCount)
	}
	if wolves == 0 {
		return fmt.Errorf("at least one werewolf-team role is required")
	}
	if dist[Villager] == 0 {
		return fmt.Errorf("at least one plain villager is required")
	}
	maxWolves := int(math.Ceil(MaxWerewolfFraction * float64(playerCount)))
	if wolves > maxWolves {
		return fmt.Errorf("too many werewolf-team roles: %d (max %d for %d players)", wolves, maxWolves, playerCount)
	}
	return nil
}

// Deal builds the flat role list from the distribution and returns it in a
// uniformly shuffled order. The caller assigns position-for-position to its
// order-stable player list. Deal assumes the distribution already passed
// ValidateDistribution.
func Deal(rng *rand.Rand, dist map[Role]int) []Role {
	keys := make([]Role, 0, len(dist))
	for role := range dist {
		keys = append(keys, role)
	}
	// Map iteration order is random; sort so the pre-shuffle list is
	// reproducible for a fixed rng seed.
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	deck := make([]Role, 0)
	for _, role := range keys {
		for i := 0; i < dist[role]; i++ {
			deck = append(deck, role)
		}
	}
	for i := len(deck) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		deck[i], deck[j] = deck[j], deck[i]
	}
	return deck
}
