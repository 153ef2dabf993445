package game

import (
	"fmt"

	"github.com/vntrieu/werewolf/internal/roles"
)

// resolveNight runs the fixed-order night resolution. Caller holds the
// lock. The step order is a contract: bonds, protection, healing,
// conversion, pack kill, poison, cascades, win check.
func (s *Session) resolveNight() {
	s.phaseActive = false
	s.stopPhaseTimers()

	// 1. Merge matchmaker bonds into the love network, then tell every
	// member of each touched component who shares their fate. A new edge
	// can grow the reachable set of players bonded nights ago, so the
	// whole component is re-notified, not just the new endpoints.
	for _, bond := range s.bonds {
		s.addLoveEdge(bond[0], bond[1])
	}
	if len(s.bonds) > 0 {
		notified := make(map[string]bool)
		for _, bond := range s.bonds {
			for _, id := range bond {
				for _, member := range s.loveComponent(id) {
					if notified[member] {
						continue
					}
					notified[member] = true
					s.sendLoverInfo(member)
				}
			}
		}
		s.addLog("cupid", "An arrow found its mark in the night.")
	}

	// 2. Guardian protection. Per-guardian memory updates here, not at
	// submission, so an unresolved night does not burn the choice.
	for guardID, targetID := range s.guards {
		if t := s.byID[targetID]; t != nil && t.Alive {
			t.Protected = true
			s.lastProtected[guardID] = targetID
		}
	}

	// 3. Witch healing counts as protection for this resolution only.
	for _, targetID := range s.heals {
		if t := s.byID[targetID]; t != nil && t.Alive {
			t.Protected = true
		}
	}

	// 4. Alpha conversions. Every submitted convert resolves.
	for _, targetID := range s.converts {
		t := s.byID[targetID]
		if t == nil || !t.Alive || t.Role.IsWerewolfTeam() {
			continue
		}
		t.Role = roles.Werewolf
		s.convertedThisNight = true
		s.sink.ToPlayer(t.ID, EventRoleChanged, map[string]interface{}{
			"role":        string(roles.Werewolf),
			"team":        string(roles.TeamWerewolves),
			"description": roles.Werewolf.Description(),
		})
		s.addLog("convert", "The alpha werewolf has turned a villager.")
	}
	if s.convertedThisNight {
		s.sendWolfTeam()
	}

	// 5. Pack kill against the ballot leader(s).
	for _, targetID := range s.leadingKillTargets() {
		t := s.byID[targetID]
		if t == nil || !t.Alive {
			continue
		}
		if t.Protected {
			s.phaseSaved = append(s.phaseSaved, t)
			s.addLog("saved", fmt.Sprintf("The werewolves attacked %s, but they were saved.", t.Name))
			continue
		}
		s.deathQueue = append(s.deathQueue, pendingDeath{ID: t.ID, Cause: "werewolves"})
	}

	// 6. Witch poison ignores protection.
	for _, targetID := range s.harms {
		if t := s.byID[targetID]; t != nil && t.Alive {
			s.deathQueue = append(s.deathQueue, pendingDeath{ID: t.ID, Cause: "poison"})
		}
	}

	// 7-8. Cascades and revenge run in the shared death pipeline; a human
	// revenge shot pauses the phase until it arrives.
	if s.processDeaths() {
		s.pendingFinish = s.finishNight
		s.promptNextRevenge()
		s.broadcastState()
		return
	}
	s.finishNight()
}

// finishNight completes night resolution once all deaths have settled.
func (s *Session) finishNight() {
	if s.checkWin() {
		s.endGame()
		return
	}
	s.sink.ToRoom(EventNightSummary, map[string]interface{}{
		"deaths": playerReveals(s.phaseDeaths),
		"saved":  len(s.phaseSaved),
	})
	s.broadcastState()

	if s.convertedThisNight {
		seq := s.seq
		s.delayTimer = s.clock.AfterFunc(convertNoticeDelay, func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.over || s.seq != seq {
				return
			}
			s.beginDay()
		})
		return
	}
	s.beginDay()
}

// resolveDay tallies the vote and applies the elimination. Caller holds the
// lock.
func (s *Session) resolveDay() {
	s.phaseActive = false
	s.stopPhaseTimers()

	// Living players who never voted count as implicit skips.
	counts := make(map[string]int)
	for _, v := range s.votes {
		counts[v.Target]++
	}
	for _, p := range s.players {
		if p.Alive && !p.HasVoted {
			counts[VoteSkip]++
		}
	}
	s.lastTally = counts

	// Only a strict unique leader eliminates, and never "skip".
	best, bestCount, tied := "", 0, false
	for option, n := range counts {
		switch {
		case n > bestCount:
			best, bestCount, tied = option, n, false
		case n == bestCount && n > 0:
			tied = true
		}
	}

	if bestCount == 0 || tied || best == VoteSkip {
		s.addLog("vote", "The village could not agree. Nobody was eliminated.")
		s.finishDay()
		return
	}

	victim := s.byID[best]
	if victim == nil || !victim.Alive {
		s.finishDay()
		return
	}

	s.addLog("vote", fmt.Sprintf("The village voted out %s with %d votes.", victim.Name, bestCount))

	// The fool wins alone the instant the vote lands; nothing else runs.
	if victim.Role == roles.Fool {
		victim.Alive = false
		s.phaseDeaths = append(s.phaseDeaths, victim)
		s.over = true
		s.winner = WinnerFool
		s.soloWinner = victim
		s.addLog("game", fmt.Sprintf("%s was the fool all along, and wins alone.", victim.Name))
		s.announceGameOver()
		return
	}

	s.lastEliminated = victim
	s.killPlayer(victim, "voted out")
	// The roster change is visible to the room before cascades and revenge
	// shots settle.
	s.broadcastState()
	if s.queueRevenge(victim) || s.processDeaths() {
		s.pendingFinish = s.finishDay
		s.promptNextRevenge()
		s.broadcastState()
		return
	}
	s.finishDay()
}

// finishDay completes day resolution once all deaths have settled.
func (s *Session) finishDay() {
	if s.checkWin() {
		s.endGame()
		return
	}
	payload := map[string]interface{}{
		"tally": tallyPayload(s.lastTally),
	}
	if s.lastEliminated != nil {
		payload["eliminated"] = revealPlayer(s.lastEliminated)
	} else {
		payload["eliminated"] = nil
	}
	s.sink.ToRoom(EventDaySummary, payload)
	s.broadcastState()
	s.day++
	s.beginNight()
}

// processDeaths drains the death queue. Bots and disconnected humans fire
// their revenge inline; a reachable human's revenge pauses the pipeline and
// returns true, leaving the rest of the queue for later.
func (s *Session) processDeaths() (paused bool) {
	for len(s.deathQueue) > 0 {
		d := s.deathQueue[0]
		s.deathQueue = s.deathQueue[1:]
		p := s.byID[d.ID]
		if p == nil || !p.Alive {
			continue
		}
		s.killPlayer(p, d.Cause)
		if s.queueRevenge(p) {
			return true
		}
	}
	return false
}

// killPlayer applies one death: the mark, the log line, the cub upgrade,
// and heartbreak cascades queued behind it. Revenge stays with the caller.
func (s *Session) killPlayer(p *Player, cause string) {
	p.Alive = false
	s.phaseDeaths = append(s.phaseDeaths, p)
	s.addLog("death", fmt.Sprintf("%s (%s) died: %s.", p.Name, p.Role, cause))

	// Any death of the cub permanently upgrades the pack to two kills
	// per night.
	if p.Role == roles.WolfCub {
		if !s.cubEffect {
			s.addLog("pack", "The pack howls in fury over the cub. Their hunger doubles.")
		}
		s.cubEffect = true
	}

	for loverID := range s.loveNetwork[p.ID] {
		if lover := s.byID[loverID]; lover != nil && lover.Alive {
			s.addLog("heartbreak", fmt.Sprintf("%s dies of a broken heart.", lover.Name))
			s.deathQueue = append(s.deathQueue, pendingDeath{ID: loverID, Cause: "heartbreak"})
		}
	}
}

// queueRevenge settles a dead shooter's revenge. Bots and disconnected
// humans fire immediately; a reachable human joins the wait queue and the
// pipeline pauses.
func (s *Session) queueRevenge(p *Player) (paused bool) {
	if !p.Role.HasRevenge() {
		return false
	}
	actor := s.actors[p.ID]
	if actor == nil && !s.disconnected[p.ID] {
		s.pendingRevenge = append(s.pendingRevenge, p.ID)
		return true
	}
	var targetID string
	if actor != nil {
		targetID = actor.RevengeTarget(s.actorView(p))
	}
	if t := s.byID[targetID]; t == nil || !t.Alive || targetID == p.ID {
		targetID = s.randomLivingTarget(p.ID)
	}
	if targetID != "" {
		target := s.byID[targetID]
		s.addLog("revenge", fmt.Sprintf("With their dying breath, %s shoots %s.", p.Name, target.Name))
		s.deathQueue = append(s.deathQueue, pendingDeath{ID: targetID, Cause: "revenge"})
	}
	return false
}

// promptNextRevenge asks the head of the revenge queue for their shot if
// they have not been asked yet.
func (s *Session) promptNextRevenge() {
	if len(s.pendingRevenge) == 0 || s.promptedRevenge == s.pendingRevenge[0] {
		return
	}
	if p := s.byID[s.pendingRevenge[0]]; p != nil {
		s.promptedRevenge = p.ID
		s.promptRevenge(p)
	}
}

// continueAfterRevenge prompts the next waiting shooter, or runs the stored
// continuation once every shot has settled.
func (s *Session) continueAfterRevenge() {
	if len(s.pendingRevenge) > 0 {
		s.promptNextRevenge()
		s.broadcastState()
		return
	}
	finish := s.pendingFinish
	s.pendingFinish = nil
	if finish != nil {
		finish()
	}
}

// skipRevenge discards the head shooter's pending shot without firing.
func (s *Session) skipRevenge() {
	if s.revengeTimer != nil {
		s.revengeTimer.Stop()
	}
	s.pendingRevenge = s.pendingRevenge[1:]
	s.promptedRevenge = ""
	s.continueAfterRevenge()
}

// promptRevenge asks a human hunter for their shot and arms the timeout
// that fires a random one if they never answer.
func (s *Session) promptRevenge(p *Player) {
	candidates := make([]map[string]interface{}, 0)
	for _, c := range s.players {
		if c.Alive && c.ID != p.ID {
			candidates = append(candidates, map[string]interface{}{"id": c.ID, "name": c.Name})
		}
	}
	s.sink.ToPlayer(p.ID, EventRevengePrompt, map[string]interface{}{
		"candidates":      candidates,
		"timeout_seconds": int(s.revengeTimeout.Seconds()),
	})
	hunterID := p.ID
	s.revengeTimer = s.clock.AfterFunc(s.revengeTimeout, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.over || len(s.pendingRevenge) == 0 || s.pendingRevenge[0] != hunterID {
			return
		}
		target := s.randomLivingTarget(hunterID)
		if target == "" {
			s.skipRevenge()
			return
		}
		s.fireRevenge(hunterID, target)
	})
}

// checkWin evaluates the general win condition and records the winner.
// Returns true when the game is decided. The fool's solo win is handled
// earlier, at the moment of the vote.
func (s *Session) checkWin() bool {
	if s.over {
		return true
	}
	wolves, others := 0, 0
	living := s.livingPlayers()
	for _, p := range living {
		if p.Role.IsWerewolfTeam() {
			wolves++
		} else {
			others++
		}
	}

	// Lovers from opposite sides outlasting everyone win together.
	if len(living) == 2 && s.loveNetwork[living[0].ID][living[1].ID] &&
		living[0].Role.IsWerewolfTeam() != living[1].Role.IsWerewolfTeam() {
		s.over = true
		s.winner = WinnerLovers
		s.addLog("game", fmt.Sprintf("Love conquers all: %s and %s win together.", living[0].Name, living[1].Name))
		return true
	}

	if wolves == 0 {
		s.over = true
		s.winner = WinnerVillagers
		s.addLog("game", "Every werewolf is dead. The village wins.")
		return true
	}
	if wolves >= others {
		s.over = true
		s.winner = WinnerWerewolves
		s.addLog("game", "The werewolves overrun the village.")
		return true
	}
	return false
}

// endGame stops all timers and reveals every role.
func (s *Session) endGame() {
	s.phaseActive = false
	s.stopPhaseTimers()
	if s.delayTimer != nil {
		s.delayTimer.Stop()
	}
	if s.revengeTimer != nil {
		s.revengeTimer.Stop()
	}
	s.announceGameOver()
}

func (s *Session) announceGameOver() {
	payload := map[string]interface{}{
		"winner":  s.winner,
		"players": playerReveals(s.players),
	}
	if s.soloWinner != nil {
		payload["solo_winner"] = s.soloWinner.Name
	}
	s.sink.ToRoom(EventGameOver, payload)
	s.broadcastState()
}

func (s *Session) addLoveEdge(a, b string) {
	if s.loveNetwork[a] == nil {
		s.loveNetwork[a] = make(map[string]bool)
	}
	if s.loveNetwork[b] == nil {
		s.loveNetwork[b] = make(map[string]bool)
	}
	s.loveNetwork[a][b] = true
	s.loveNetwork[b][a] = true
}

// loveComponent returns every player connected to id through love bonds,
// the starting player included.
func (s *Session) loveComponent(id string) []string {
	seen := map[string]bool{id: true}
	queue := []string{id}
	out := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for next := range s.loveNetwork[cur] {
			if seen[next] {
				continue
			}
			seen[next] = true
			queue = append(queue, next)
			out = append(out, next)
		}
	}
	return out
}

// sendLoverInfo tells a player everyone reachable through love bonds.
func (s *Session) sendLoverInfo(playerID string) {
	partners := make([]map[string]interface{}, 0)
	for _, id := range s.loveComponent(playerID) {
		if id == playerID {
			continue
		}
		if p := s.byID[id]; p != nil {
			partners = append(partners, map[string]interface{}{"id": p.ID, "name": p.Name})
		}
	}
	s.sink.ToPlayer(playerID, EventLoverInfo, map[string]interface{}{"partners": partners})
}

func revealPlayer(p *Player) map[string]interface{} {
	return map[string]interface{}{
		"id":    p.ID,
		"name":  p.Name,
		"role":  string(p.Role),
		"alive": p.Alive,
	}
}

func playerReveals(players []*Player) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(players))
	for _, p := range players {
		out = append(out, revealPlayer(p))
	}
	return out
}

func tallyPayload(counts map[string]int) map[string]interface{} {
	out := make(map[string]interface{}, len(counts))
	for k, v := range counts {
		out[k] = v
	}
	return out
}
