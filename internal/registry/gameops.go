package registry

import (
	"errors"
	"log"
	"math/rand"
	"strings"
	"unicode/utf8"

	"github.com/vntrieu/werewolf/internal/bot"
	"github.com/vntrieu/werewolf/internal/game"
	"github.com/vntrieu/werewolf/internal/metrics"
	"github.com/vntrieu/werewolf/internal/roles"
)

var (
	ErrNotEnoughPlayers = errors.New("not enough players to start")
	ErrGameNotOver      = errors.New("the game is still running")
	ErrEmptyMessage     = errors.New("message is empty")
	ErrNotWolf          = errors.New("pack chat is for the pack")
	ErrDeadSilent       = errors.New("the dead cannot speak")
)

// StartGame deals roles and hands the room over to a session. Host only.
func (r *Registry) StartGame(code, playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[code]
	if !ok {
		return ErrRoomNotFound
	}
	if rm.hostID != playerID {
		return ErrNotHost
	}
	if rm.session != nil {
		return ErrGameInProgress
	}
	count := rm.playerCount()
	if count < MinPlayers {
		return ErrNotEnoughPlayers
	}
	if len(rm.settings.Distribution) > 0 {
		if err := roles.ValidateDistribution(rm.settings.Distribution, count); err != nil {
			return err
		}
	}

	seats := make([]game.Seat, 0, len(rm.seats))
	actors := make(map[string]game.Actor)
	for _, s := range rm.seats {
		seats = append(seats, game.Seat{ID: s.ID, Name: s.Name, IsBot: s.IsBot, Observer: s.Observer})
		if s.IsBot {
			actors[s.ID] = bot.New(rand.New(rand.NewSource(r.rng.Int63())))
		}
	}

	sess, err := game.NewSession(game.Config{
		RoomCode: code,
		Seats:    seats,
		Settings: rm.settings,
		Clock:    r.clock,
		Sink:     roomSink{notifier: r.notifier, code: code},
		Rng:      rand.New(rand.NewSource(r.rng.Int63())),
		Actors:   actors,
	})
	if err != nil {
		return err
	}
	rm.session = sess
	metrics.GamesStarted.Inc()
	log.Printf("registry game started code=%s players=%d", code, count)
	r.broadcastRoom(rm)
	sess.Start()
	return nil
}

// AckRole forwards a role acknowledgement to the room's session.
func (r *Registry) AckRole(code, playerID string) error {
	sess, err := r.sessionFor(code)
	if err != nil {
		return err
	}
	return sess.AcknowledgeRole(playerID)
}

// NightAction forwards a night submission to the room's session.
func (r *Registry) NightAction(code, playerID string, intent game.NightIntent) error {
	sess, err := r.sessionFor(code)
	if err != nil {
		return err
	}
	return sess.SubmitNightAction(playerID, intent)
}

// Vote forwards a day vote to the room's session.
func (r *Registry) Vote(code, playerID, targetID string) error {
	sess, err := r.sessionFor(code)
	if err != nil {
		return err
	}
	return sess.SubmitVote(playerID, targetID)
}

// SkipVote forwards an explicit skip to the room's session.
func (r *Registry) SkipVote(code, playerID string) error {
	sess, err := r.sessionFor(code)
	if err != nil {
		return err
	}
	return sess.SubmitSkip(playerID)
}

// RevengeShot forwards a dying shot to the room's session.
func (r *Registry) RevengeShot(code, playerID, targetID string) error {
	sess, err := r.sessionFor(code)
	if err != nil {
		return err
	}
	return sess.SubmitRevengeShot(playerID, targetID)
}

// Chat relays a table-talk message to the whole room. Dead players are
// muted while a game runs; observers may always chat.
func (r *Registry) Chat(code, playerID, message string) error {
	message, err := validateChat(message)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms[code]
	if !ok {
		return ErrRoomNotFound
	}
	sender := rm.seatByID(playerID)
	if sender == nil {
		return ErrNotInRoom
	}
	if rm.session != nil && !sender.Observer && !rm.session.IsAlive(playerID) {
		return ErrDeadSilent
	}
	r.notifier.ToRoom(code, game.EventChat, map[string]interface{}{
		"player_id":    sender.ID,
		"display_name": sender.Name,
		"message":      message,
	})
	return nil
}

// WolfChat relays a message to living werewolf-team members only.
func (r *Registry) WolfChat(code, playerID, message string) error {
	message, err := validateChat(message)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms[code]
	if !ok {
		return ErrRoomNotFound
	}
	if rm.session == nil {
		return ErrNoGame
	}
	sender := rm.seatByID(playerID)
	if sender == nil {
		return ErrNotInRoom
	}
	if !rm.session.IsWolfTeam(playerID) || !rm.session.IsAlive(playerID) {
		return ErrNotWolf
	}
	payload := map[string]interface{}{
		"player_id":    sender.ID,
		"display_name": sender.Name,
		"message":      message,
	}
	for _, id := range rm.session.WolfTeamMembers() {
		r.notifier.ToPlayer(code, id, EventWolfChat, payload)
	}
	return nil
}

// SyncState pushes the caller's current view of the room, either the lobby
// snapshot or their filtered game projection. Used after reconnects.
func (r *Registry) SyncState(code, playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms[code]
	if !ok {
		return ErrRoomNotFound
	}
	if rm.seatByID(playerID) == nil {
		return ErrNotInRoom
	}
	if rm.session != nil {
		r.notifier.ToPlayer(code, playerID, game.EventState, rm.session.Snapshot(playerID))
		return nil
	}
	info := rm.info()
	r.notifier.ToPlayer(code, playerID, EventRoomUpdated, map[string]interface{}{
		"code":         info.Code,
		"host_id":      info.HostID,
		"players":      info.Players,
		"settings":     info.Settings,
		"has_password": info.HasPassword,
		"in_game":      info.InGame,
	})
	return nil
}

// ReturnToLobby tears down a finished game and reopens the lobby with the
// surviving human seats. Bot seats are dropped. Host only.
func (r *Registry) ReturnToLobby(code, playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms[code]
	if !ok {
		return ErrRoomNotFound
	}
	if rm.hostID != playerID {
		return ErrNotHost
	}
	if rm.session == nil {
		return ErrNoGame
	}
	if !rm.session.Over() {
		return ErrGameNotOver
	}
	kept := rm.seats[:0]
	for _, s := range rm.seats {
		if !s.IsBot {
			kept = append(kept, s)
		}
	}
	rm.seats = kept
	rm.session = nil
	log.Printf("registry room reopened code=%s", code)
	r.broadcastRoom(rm)
	return nil
}

func (r *Registry) sessionFor(code string) (*game.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	if rm.session == nil {
		return nil, ErrNoGame
	}
	return rm.session, nil
}

func (rm *room) seatByID(id string) *seat {
	for i := range rm.seats {
		if rm.seats[i].ID == id {
			return &rm.seats[i]
		}
	}
	return nil
}

func validateChat(message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyMessage
	}
	if utf8.RuneCountInString(message) > MaxChatLength {
		return "", ErrMessageTooLong
	}
	return message, nil
}
