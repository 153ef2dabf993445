package game

import (
	"fmt"

	"github.com/vntrieu/werewolf/internal/roles"
)

// SubmitNightAction validates and buffers a night action. Illegal actions
// are rejected without consuming the actor's turn or mutating state, except
// for witch charges, which are consumed at submission time.
func (s *Session) SubmitNightAction(playerID string, intent NightIntent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.actingPlayer(playerID, PhaseNight)
	if err != nil {
		return err
	}
	return s.submitNight(p, intent)
}

// submitNight applies one night intent. Caller holds the lock.
func (s *Session) submitNight(p *Player, intent NightIntent) error {
	switch intent.Kind {
	case IntentKill:
		return s.submitKill(p, intent.Target)
	case IntentConvert:
		return s.submitConvert(p, intent.Target)
	case IntentProtect:
		return s.submitProtect(p, intent.Target)
	case IntentInspect:
		return s.submitInspect(p, intent.Target)
	case IntentHeal, IntentHarm:
		return s.submitPotion(p, intent.Kind, intent.Target)
	case IntentBond:
		return s.submitBond(p, intent.Target, intent.SecondTarget)
	default:
		return fmt.Errorf("unknown night action %q", intent.Kind)
	}
}

func (s *Session) submitKill(p *Player, targetID string) error {
	if !p.Role.CanNightKill() {
		return fmt.Errorf("your role cannot join the night kill")
	}
	target, err := s.livingTarget(targetID)
	if err != nil {
		return err
	}
	if target.Role.IsWerewolfTeam() {
		return fmt.Errorf("you cannot target a member of your own pack")
	}
	s.recordWolfVote(p.ID, target.ID)
	p.NightAction = string(IntentKill)
	s.broadcastWolfBallot()
	s.checkEarlyResolve()
	return nil
}

func (s *Session) submitConvert(p *Player, targetID string) error {
	if !p.Role.IsLeader() {
		return fmt.Errorf("only the pack leader can convert")
	}
	target, err := s.livingTarget(targetID)
	if err != nil {
		return err
	}
	if target.Role.IsWerewolfTeam() {
		return fmt.Errorf("%s already runs with the pack", target.Name)
	}
	// Resubmission overwrites: one convert per leader per night.
	s.converts[p.ID] = target.ID
	p.NightAction = string(IntentConvert)
	s.checkEarlyResolve()
	return nil
}

func (s *Session) submitProtect(p *Player, targetID string) error {
	if p.Role != roles.Bodyguard {
		return fmt.Errorf("your role cannot protect")
	}
	target, err := s.livingTarget(targetID)
	if err != nil {
		return err
	}
	if s.lastProtected[p.ID] == target.ID {
		return fmt.Errorf("you cannot protect %s two nights in a row", target.Name)
	}
	s.guards[p.ID] = target.ID
	p.NightAction = string(IntentProtect)
	s.checkEarlyResolve()
	return nil
}

// submitInspect resolves immediately and privately; this is the one action
// whose feedback is not batched into phase resolution.
func (s *Session) submitInspect(p *Player, targetID string) error {
	if p.Role != roles.Seer {
		return fmt.Errorf("your role cannot inspect")
	}
	if s.seerDone[p.ID] {
		return fmt.Errorf("you have already inspected someone tonight")
	}
	target, err := s.livingTarget(targetID)
	if err != nil {
		return err
	}
	if target.ID == p.ID {
		return fmt.Errorf("you cannot inspect yourself")
	}
	hostile := target.Role.ReadsHostile()
	s.seerDone[p.ID] = true
	p.NightAction = string(IntentInspect)
	s.sink.ToPlayer(p.ID, EventInspectResult, map[string]interface{}{
		"target_id":   target.ID,
		"target_name": target.Name,
		"is_hostile":  hostile,
	})
	if actor := s.actors[p.ID]; actor != nil {
		actor.ObserveInspect(target.ID, hostile)
	}
	s.checkEarlyResolve()
	return nil
}

// submitPotion spends a witch charge. The charge is consumed immediately on
// a legal submission so it cannot be double-spent before resolution runs.
func (s *Session) submitPotion(p *Player, kind IntentKind, targetID string) error {
	if p.Role != roles.Witch {
		return fmt.Errorf("your role has no potions")
	}
	if s.witchUsed[p.ID] {
		return fmt.Errorf("you have already used a potion tonight")
	}
	target, err := s.livingTarget(targetID)
	if err != nil {
		return err
	}
	switch kind {
	case IntentHeal:
		if !p.HealPotion {
			return fmt.Errorf("your healing potion is already spent")
		}
		p.HealPotion = false
		s.heals = append(s.heals, target.ID)
	case IntentHarm:
		if !p.HarmPotion {
			return fmt.Errorf("your poison is already spent")
		}
		p.HarmPotion = false
		s.harms = append(s.harms, target.ID)
	}
	s.witchUsed[p.ID] = true
	p.NightAction = string(kind)
	s.sink.ToPlayer(p.ID, EventPotions, map[string]interface{}{
		"heal": p.HealPotion,
		"harm": p.HarmPotion,
	})
	s.checkEarlyResolve()
	return nil
}

func (s *Session) submitBond(p *Player, firstID, secondID string) error {
	if p.Role != roles.Cupid {
		return fmt.Errorf("your role cannot bond players")
	}
	if p.BondUsed {
		return fmt.Errorf("your bond has already been used")
	}
	if firstID == secondID {
		return fmt.Errorf("choose two different players to bond")
	}
	first, err := s.livingTarget(firstID)
	if err != nil {
		return err
	}
	second, err := s.livingTarget(secondID)
	if err != nil {
		return err
	}
	p.BondUsed = true
	s.bonds = append(s.bonds, [2]string{first.ID, second.ID})
	p.NightAction = string(IntentBond)
	s.checkEarlyResolve()
	return nil
}

// SubmitVote records a day-phase elimination vote. Resubmission replaces
// the voter's earlier choice.
func (s *Session) SubmitVote(playerID, targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.actingPlayer(playerID, PhaseDay)
	if err != nil {
		return err
	}
	target, err := s.livingTarget(targetID)
	if err != nil {
		return err
	}
	return s.recordDayVote(p, target.ID)
}

// SubmitSkip records an explicit pass on the day vote.
func (s *Session) SubmitSkip(playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.actingPlayer(playerID, PhaseDay)
	if err != nil {
		return err
	}
	return s.recordDayVote(p, VoteSkip)
}

func (s *Session) recordDayVote(p *Player, target string) error {
	p.HasVoted = true
	p.VoteTarget = target
	replaced := false
	for i := range s.votes {
		if s.votes[i].Voter == p.ID {
			s.votes[i].Target = target
			replaced = true
			break
		}
	}
	if !replaced {
		s.votes = append(s.votes, dayVote{Voter: p.ID, Target: target})
	}
	s.broadcastDayBallot()
	s.checkEarlyResolve()
	return nil
}

// SubmitRevengeShot resolves a pending revenge wait for the given player.
func (s *Session) SubmitRevengeShot(playerID, targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.over {
		return fmt.Errorf("the game is over")
	}
	if len(s.pendingRevenge) == 0 || s.pendingRevenge[0] != playerID {
		return fmt.Errorf("no revenge shot is pending for you")
	}
	target, err := s.livingTarget(targetID)
	if err != nil {
		return err
	}
	if target.ID == playerID {
		return fmt.Errorf("you cannot shoot yourself")
	}
	s.fireRevenge(playerID, target.ID)
	return nil
}

// fireRevenge consumes the head of the revenge queue, settles the shot and
// its cascades, then either prompts the next waiting shooter or runs the
// stored continuation. Caller holds the lock.
func (s *Session) fireRevenge(hunterID, targetID string) {
	if s.revengeTimer != nil {
		s.revengeTimer.Stop()
	}
	s.pendingRevenge = s.pendingRevenge[1:]
	s.promptedRevenge = ""
	hunter := s.byID[hunterID]
	target := s.byID[targetID]
	s.addLog("revenge", fmt.Sprintf("With their dying breath, %s shoots %s.", hunter.Name, target.Name))
	s.deathQueue = append(s.deathQueue, pendingDeath{ID: targetID, Cause: "revenge"})
	s.processDeaths()
	s.continueAfterRevenge()
}

// actingPlayer runs the common legality gate: game running, right phase,
// submitter alive. Caller holds the lock.
func (s *Session) actingPlayer(playerID string, phase Phase) (*Player, error) {
	if s.over {
		return nil, fmt.Errorf("the game is over")
	}
	if !s.phaseActive || s.phase != phase {
		return nil, fmt.Errorf("it is not %s right now", phase)
	}
	p := s.byID[playerID]
	if p == nil {
		return nil, fmt.Errorf("player not in game")
	}
	if !p.Alive {
		return nil, fmt.Errorf("the dead do not act")
	}
	return p, nil
}

func (s *Session) livingTarget(targetID string) (*Player, error) {
	t := s.byID[targetID]
	if t == nil {
		return nil, fmt.Errorf("target not in game")
	}
	if !t.Alive {
		return nil, fmt.Errorf("%s is already dead", t.Name)
	}
	return t, nil
}

// recordWolfVote replaces the voter's earlier choice in place, preserving
// first-submission order for the stable tie-break.
func (s *Session) recordWolfVote(voterID, targetID string) {
	for i := range s.wolfVotes {
		if s.wolfVotes[i].Voter == voterID {
			s.wolfVotes[i].Target = targetID
			return
		}
	}
	s.wolfVotes = append(s.wolfVotes, wolfVote{Voter: voterID, Target: targetID})
}

// ballotLeaders returns distinct targets ordered by vote count, ties broken
// by which target reached its final count first in submission order.
func ballotLeaders(votes []wolfVote) []string {
	counts := make(map[string]int)
	reached := make(map[string]int)
	order := make([]string, 0)
	for i, v := range votes {
		if _, seen := counts[v.Target]; !seen {
			order = append(order, v.Target)
		}
		counts[v.Target]++
		reached[v.Target] = i
	}
	// Insertion sort by (count desc, reached asc); ballots are tiny.
	for i := 1; i < len(order); i++ {
		for j := i; j > 0; j-- {
			a, b := order[j-1], order[j]
			if counts[b] > counts[a] || (counts[b] == counts[a] && reached[b] < reached[a]) {
				order[j-1], order[j] = b, a
			} else {
				break
			}
		}
	}
	return order
}

// leadingKillTargets picks the pack's victim(s) for this night: the ballot
// leader, plus a second distinct target while the cub effect is active. A
// missing second choice is filled with a random eligible non-pack target.
func (s *Session) leadingKillTargets() []string {
	leaders := ballotLeaders(s.wolfVotes)
	want := 1
	if s.cubEffect {
		want = 2
	}
	if len(leaders) > want {
		leaders = leaders[:want]
	}
	if want == 2 && len(leaders) == 1 {
		exclude := []string{leaders[0]}
		for _, p := range s.players {
			if p.Role.IsWerewolfTeam() {
				exclude = append(exclude, p.ID)
			}
		}
		if extra := s.randomLivingTarget(exclude...); extra != "" {
			leaders = append(leaders, extra)
		}
	}
	return leaders
}

// broadcastWolfBallot sends the live kill tally to every living pack member
// able to vote, so the pack can coordinate.
func (s *Session) broadcastWolfBallot() {
	counts := make(map[string]interface{})
	for _, target := range ballotLeaders(s.wolfVotes) {
		n := 0
		for _, v := range s.wolfVotes {
			if v.Target == target {
				n++
			}
		}
		counts[target] = n
	}
	leaders := ballotLeaders(s.wolfVotes)
	leading := ""
	if len(leaders) > 0 {
		leading = leaders[0]
	}
	payload := map[string]interface{}{"tally": counts, "leading": leading}
	for _, p := range s.players {
		if p.Alive && p.Role.CanNightKill() {
			s.sink.ToPlayer(p.ID, EventWolfBallot, payload)
		}
	}
}

// broadcastDayBallot sends the public vote tally, skips excluded.
func (s *Session) broadcastDayBallot() {
	counts := make(map[string]interface{})
	for _, v := range s.votes {
		if v.Target == VoteSkip {
			continue
		}
		n, _ := counts[v.Target].(int)
		counts[v.Target] = n + 1
	}
	s.sink.ToRoom(EventDayBallot, map[string]interface{}{"tally": counts})
}
