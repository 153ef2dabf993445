package game

// Per-viewer information filtering. Every roster broadcast is projected for
// its recipient: own role always, pack roles for pack members (traitor
// included), everything for observers, dead players revealed to all. The
// projection is recomputed on every broadcast because conversions move
// players between teams mid-game.

// Snapshot returns the filtered state for one viewer, used to answer
// sync_state requests after a reconnect.
func (s *Session) Snapshot(viewerID string) map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotFor(viewerID)
}

// broadcastState sends each participant their own projection. Caller holds
// the lock.
func (s *Session) broadcastState() {
	for _, p := range s.players {
		s.sink.ToPlayer(p.ID, EventState, s.snapshotFor(p.ID))
	}
	for _, o := range s.observers {
		s.sink.ToPlayer(o.ID, EventState, s.snapshotFor(o.ID))
	}
}

func (s *Session) snapshotFor(viewerID string) map[string]interface{} {
	viewer := s.byID[viewerID]
	observer := viewer == nil && s.observerSeat(viewerID) != nil
	wolfViewer := viewer != nil && viewer.Role.IsWerewolfTeam()

	players := make([]map[string]interface{}, 0, len(s.players))
	for _, p := range s.players {
		entry := map[string]interface{}{
			"id":        p.ID,
			"name":      p.Name,
			"is_bot":    p.IsBot,
			"is_alive":  p.Alive,
			"has_voted": p.HasVoted,
		}
		if s.roleVisible(p, viewerID, observer, wolfViewer) {
			entry["role"] = string(p.Role)
			entry["team"] = string(p.Role.Team())
		}
		players = append(players, entry)
	}

	snap := map[string]interface{}{
		"room_code":    s.roomCode,
		"phase":        string(s.phase),
		"day":          s.day,
		"seconds_left": s.remaining,
		"awaiting_ack": s.awaitingAck,
		"players":      players,
		"log":          s.gameLog,
		"game_over":    s.over,
	}
	if viewer != nil {
		snap["you"] = map[string]interface{}{
			"id":           viewer.ID,
			"role":         string(viewer.Role),
			"team":         string(viewer.Role.Team()),
			"is_alive":     viewer.Alive,
			"night_action": viewer.NightAction,
		}
	}
	if observer {
		snap["observer"] = true
	}
	if s.over {
		snap["winner"] = s.winner
		if s.soloWinner != nil {
			snap["solo_winner"] = s.soloWinner.Name
		}
	}
	return snap
}

func (s *Session) roleVisible(p *Player, viewerID string, observer, wolfViewer bool) bool {
	switch {
	case observer:
		return true
	case p.ID == viewerID:
		return true
	case !p.Alive:
		return true
	case s.over:
		return true
	case wolfViewer && p.Role.IsWerewolfTeam():
		return true
	}
	return false
}

func (s *Session) observerSeat(id string) *Seat {
	for i := range s.observers {
		if s.observers[i].ID == id {
			return &s.observers[i]
		}
	}
	return nil
}

// actorView builds the filtered view a bot decides on. Caller holds the
// lock.
func (s *Session) actorView(p *Player) ActorView {
	v := ActorView{
		SelfID:     p.ID,
		Name:       p.Name,
		Role:       p.Role,
		Day:        s.day,
		HealPotion: p.HealPotion,
		HarmPotion: p.HarmPotion,
		BondUsed:   p.BondUsed,
		CubEffect:  s.cubEffect,
	}
	for _, other := range s.livingPlayers() {
		v.Alive = append(v.Alive, Seat{ID: other.ID, Name: other.Name, IsBot: other.IsBot})
		if p.Role.IsWerewolfTeam() && other.Role.IsWerewolfTeam() {
			v.Teammates = append(v.Teammates, other.ID)
		}
	}
	v.LastProtected = s.lastProtected[p.ID]
	if leaders := ballotLeaders(s.wolfVotes); len(leaders) > 0 {
		v.WolfTarget = leaders[0]
	}
	if s.phase == PhaseDay {
		v.Tally = make(map[string]int)
		for _, vote := range s.votes {
			if vote.Target != VoteSkip {
				v.Tally[vote.Target]++
			}
		}
	}
	return v
}

// scheduleBotNightActions arms one delayed submission per acting bot. Late
// callbacks from a previous phase are defused by the seq guard.
func (s *Session) scheduleBotNightActions(seq int) {
	for _, p := range s.players {
		if !p.Alive || !p.IsBot {
			continue
		}
		actor := s.actors[p.ID]
		if actor == nil {
			continue
		}
		if !p.Role.CanNightKill() && !p.Role.ActsIndividually() {
			continue
		}
		id := p.ID
		s.clock.AfterFunc(actor.NightDelay(), func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.over || !s.phaseActive || s.seq != seq || s.phase != PhaseNight {
				return
			}
			bot := s.byID[id]
			if bot == nil || !bot.Alive {
				return
			}
			intent, ok := actor.NightIntent(s.actorView(bot))
			if !ok {
				return
			}
			// Bots play by the same rules; an illegal pick is
			// simply dropped.
			_ = s.submitNight(bot, intent)
		})
	}
}

func (s *Session) scheduleBotVotes(seq int) {
	for _, p := range s.players {
		if !p.Alive || !p.IsBot {
			continue
		}
		actor := s.actors[p.ID]
		if actor == nil {
			continue
		}
		id := p.ID
		s.clock.AfterFunc(actor.VoteDelay(), func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.over || !s.phaseActive || s.seq != seq || s.phase != PhaseDay {
				return
			}
			bot := s.byID[id]
			if bot == nil || !bot.Alive {
				return
			}
			target, ok := actor.VoteTarget(s.actorView(bot))
			if !ok {
				_ = s.recordDayVote(bot, VoteSkip)
				return
			}
			if t := s.byID[target]; t == nil || !t.Alive {
				_ = s.recordDayVote(bot, VoteSkip)
				return
			}
			_ = s.recordDayVote(bot, target)
		})
	}
}

func (s *Session) scheduleBotChat(seq int) {
	for _, p := range s.players {
		if !p.Alive || !p.IsBot {
			continue
		}
		actor := s.actors[p.ID]
		if actor == nil {
			continue
		}
		id := p.ID
		s.clock.AfterFunc(actor.ChatDelay(), func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.over || !s.phaseActive || s.seq != seq || s.phase != PhaseDay {
				return
			}
			bot := s.byID[id]
			if bot == nil || !bot.Alive {
				return
			}
			line, ok := actor.ChatLine(s.actorView(bot))
			if !ok {
				return
			}
			s.sink.ToRoom(EventChat, map[string]interface{}{
				"player_id":    bot.ID,
				"display_name": bot.Name,
				"message":      line,
			})
		})
	}
}
