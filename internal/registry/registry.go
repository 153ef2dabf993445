// Package registry owns the in-memory room directory: lobby membership,
// host privileges, bot seats, and the handoff into a running game session.
package registry

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/vntrieu/werewolf/internal/bot"
	"github.com/vntrieu/werewolf/internal/game"
	"github.com/vntrieu/werewolf/internal/metrics"
)

// Room capacity bounds.
const (
	MinPlayers = 3
	MaxPlayers = 30
)

// Input limits, enforced before anything reaches a room.
const (
	MaxNameLength = 20
	MaxChatLength = 200
)

// Phase duration bounds accepted from the host.
const (
	minPhaseSeconds = 15
	maxPhaseSeconds = 600
)

// Events emitted by the registry itself, outside a running session.
const (
	EventRoomUpdated = "room_updated"
	EventWolfChat    = "wolf_chat"
)

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomFull        = errors.New("room is full")
	ErrNameTaken       = errors.New("display name already taken in this room")
	ErrInvalidName     = errors.New("display name must be 1-20 characters")
	ErrBadPassword     = errors.New("invalid password")
	ErrNotHost         = errors.New("only the host can do that")
	ErrGameInProgress  = errors.New("game already in progress")
	ErrNoGame          = errors.New("no game in progress")
	ErrNotInRoom       = errors.New("player not in room")
	ErrMessageTooLong  = errors.New("message too long")
	ErrInvalidSettings = errors.New("invalid settings")
)

// Notifier pushes events to connected clients. Implemented by the websocket
// hub; tests use an in-memory fake.
type Notifier interface {
	ToRoom(code, event string, payload map[string]interface{})
	ToPlayer(code, playerID, event string, payload map[string]interface{})
}

// roomSink narrows the Notifier to one room so a session never sees codes.
type roomSink struct {
	notifier Notifier
	code     string
}

func (s roomSink) ToRoom(event string, payload map[string]interface{}) {
	s.notifier.ToRoom(s.code, event, payload)
}

func (s roomSink) ToPlayer(playerID, event string, payload map[string]interface{}) {
	s.notifier.ToPlayer(s.code, playerID, event, payload)
}

type seat struct {
	ID       string
	Name     string
	IsBot    bool
	Observer bool
}

type room struct {
	code         string
	passwordHash []byte // nil for open rooms
	hostID       string
	seats        []seat
	settings     game.Settings
	session      *game.Session
	botSeq       int
}

// Config wires a new Registry.
type Config struct {
	Notifier Notifier
	Clock    game.Clock
	Rng      *rand.Rand
	// SpectatorKey admits observers when non-empty and matched.
	SpectatorKey string
}

// Registry is the in-memory directory of all rooms.
type Registry struct {
	mu           sync.Mutex
	rooms        map[string]*room
	notifier     Notifier
	clock        game.Clock
	rng          *rand.Rand
	spectatorKey string
}

// New creates an empty registry.
func New(cfg Config) *Registry {
	clock := cfg.Clock
	if clock == nil {
		clock = game.RealClock()
	}
	rng := cfg.Rng
	if rng == nil {
		rng = rand.New(rand.NewSource(clock.Now().UnixNano()))
	}
	return &Registry{
		rooms:        make(map[string]*room),
		notifier:     cfg.Notifier,
		clock:        clock,
		rng:          rng,
		spectatorKey: cfg.SpectatorKey,
	}
}

var nameSanitizer = strings.NewReplacer("<", "", ">", "", "{", "", "}", "", "[", "", "]", "")

func sanitizeName(name string) (string, error) {
	name = strings.TrimSpace(nameSanitizer.Replace(name))
	if name == "" || utf8.RuneCountInString(name) > MaxNameLength {
		return "", ErrInvalidName
	}
	return name, nil
}

// generateCode returns an unused 5-digit room code. Caller holds the lock.
func (r *Registry) generateCode() string {
	for {
		code := fmt.Sprintf("%05d", r.rng.Intn(100000))
		if _, taken := r.rooms[code]; !taken {
			return code
		}
	}
}

// CreateResult reports a freshly created room and its host seat.
type CreateResult struct {
	Code     string
	PlayerID string
	Name     string
}

// CreateRoom creates a room with the caller as host.
func (r *Registry) CreateRoom(hostName, password string, settings *game.Settings) (*CreateResult, error) {
	name, err := sanitizeName(hostName)
	if err != nil {
		return nil, err
	}

	var hash []byte
	if password != "" {
		hash, err = bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
	}

	cfg := game.DefaultSettings()
	if settings != nil {
		if err := validateSettings(*settings); err != nil {
			return nil, err
		}
		cfg = *settings
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	hostID := uuid.NewString()
	rm := &room{
		code:         r.generateCode(),
		passwordHash: hash,
		hostID:       hostID,
		seats:        []seat{{ID: hostID, Name: name}},
		settings:     cfg,
	}
	r.rooms[rm.code] = rm
	metrics.RoomsCreated.Inc()
	log.Printf("registry room created code=%s host=%s", rm.code, name)
	return &CreateResult{Code: rm.code, PlayerID: hostID, Name: name}, nil
}

// JoinResult reports a successful join.
type JoinResult struct {
	Code     string
	PlayerID string
	Name     string
	Observer bool
}

// JoinRoom adds a player to a room's lobby. A matching spectator key admits
// the caller as an observer, even mid-game.
func (r *Registry) JoinRoom(code, displayName, password, spectatorKey string) (*JoinResult, error) {
	name, err := sanitizeName(displayName)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	if rm.passwordHash != nil {
		if bcrypt.CompareHashAndPassword(rm.passwordHash, []byte(password)) != nil {
			return nil, ErrBadPassword
		}
	}
	observer := r.spectatorKey != "" && spectatorKey == r.spectatorKey
	if !observer {
		if rm.session != nil {
			return nil, ErrGameInProgress
		}
		if rm.playerCount() >= MaxPlayers {
			return nil, ErrRoomFull
		}
	}
	for _, s := range rm.seats {
		if strings.EqualFold(s.Name, name) {
			return nil, ErrNameTaken
		}
	}

	id := uuid.NewString()
	rm.seats = append(rm.seats, seat{ID: id, Name: name, Observer: observer})
	if rm.session != nil && observer {
		rm.session.AddObserver(game.Seat{ID: id, Name: name, Observer: true})
	}
	log.Printf("registry player joined code=%s player=%s observer=%t", code, name, observer)
	r.broadcastRoom(rm)
	return &JoinResult{Code: code, PlayerID: id, Name: name, Observer: observer}, nil
}

// RoomInfo is the public snapshot of a room, returned by the REST API and
// pushed as room_updated.
type RoomInfo struct {
	Code        string        `json:"code"`
	HostID      string        `json:"host_id"`
	Players     []PlayerInfo  `json:"players"`
	Settings    game.Settings `json:"settings"`
	HasPassword bool          `json:"has_password"`
	InGame      bool          `json:"in_game"`
}

// PlayerInfo is one lobby member in a RoomInfo.
type PlayerInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsBot    bool   `json:"is_bot"`
	IsHost   bool   `json:"is_host"`
	Observer bool   `json:"observer,omitempty"`
}

// GetRoom returns the public snapshot of a room.
func (r *Registry) GetRoom(code string) (*RoomInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	info := rm.info()
	return &info, nil
}

// Member resolves a participant's display name, or reports absence. Used by
// the websocket upgrade path to verify token claims against live state.
func (r *Registry) Member(code, playerID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms[code]
	if !ok {
		return "", false
	}
	for _, s := range rm.seats {
		if s.ID == playerID {
			return s.Name, true
		}
	}
	return "", false
}

// Configure replaces the room settings. Host only, lobby only.
func (r *Registry) Configure(code, playerID string, settings game.Settings) error {
	if err := validateSettings(settings); err != nil {
		return err
	}
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
	rm.settings = settings
	r.broadcastRoom(rm)
	return nil
}

// AddBot seats a bot in the lobby. Host only.
func (r *Registry) AddBot(code, playerID string) error {
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
	if rm.playerCount() >= MaxPlayers {
		return ErrRoomFull
	}
	rm.seats = append(rm.seats, seat{
		ID:    uuid.NewString(),
		Name:  bot.Name(rm.botSeq),
		IsBot: true,
	})
	rm.botSeq++
	r.broadcastRoom(rm)
	return nil
}

// RemoveBot unseats a bot from the lobby. Host only.
func (r *Registry) RemoveBot(code, playerID, botID string) error {
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
	for i, s := range rm.seats {
		if s.ID == botID && s.IsBot {
			rm.seats = append(rm.seats[:i], rm.seats[i+1:]...)
			r.broadcastRoom(rm)
			return nil
		}
	}
	return ErrNotInRoom
}

// HandleDisconnect removes a dropped participant. In the lobby the seat is
// freed and the host migrates if needed; mid-game the session treats the
// drop as a death. A room with no humans left is reaped.
func (r *Registry) HandleDisconnect(code, playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms[code]
	if !ok {
		return
	}
	idx := -1
	for i, s := range rm.seats {
		if s.ID == playerID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return
	}
	left := rm.seats[idx]
	rm.seats = append(rm.seats[:idx], rm.seats[idx+1:]...)
	log.Printf("registry player left code=%s player=%s", code, left.Name)

	if rm.hostID == playerID {
		rm.hostID = ""
		for _, s := range rm.seats {
			if !s.IsBot && !s.Observer {
				rm.hostID = s.ID
				log.Printf("registry host migrated code=%s host=%s", code, s.Name)
				break
			}
		}
	}

	if !rm.hasHumans() {
		if rm.session != nil {
			// Tear the game down so no timer keeps a bots-only session
			// running against a deleted room code.
			rm.session.Abandon()
		}
		delete(r.rooms, code)
		log.Printf("registry room reaped code=%s", code)
		return
	}

	if rm.session != nil && !left.Observer {
		// The session runs its own win check; release the registry
		// lock ordering concern by calling after lobby bookkeeping.
		rm.session.HandleDisconnect(playerID)
	}
	r.broadcastRoom(rm)
}

func validateSettings(s game.Settings) error {
	if s.NightSeconds < minPhaseSeconds || s.NightSeconds > maxPhaseSeconds {
		return fmt.Errorf("%w: night_seconds must be between %d and %d", ErrInvalidSettings, minPhaseSeconds, maxPhaseSeconds)
	}
	if s.DaySeconds < minPhaseSeconds || s.DaySeconds > maxPhaseSeconds {
		return fmt.Errorf("%w: day_seconds must be between %d and %d", ErrInvalidSettings, minPhaseSeconds, maxPhaseSeconds)
	}
	return nil
}

// playerCount counts playing seats, observers excluded.
func (rm *room) playerCount() int {
	n := 0
	for _, s := range rm.seats {
		if !s.Observer {
			n++
		}
	}
	return n
}

func (rm *room) hasHumans() bool {
	for _, s := range rm.seats {
		if !s.IsBot && !s.Observer {
			return true
		}
	}
	return false
}

func (rm *room) info() RoomInfo {
	players := make([]PlayerInfo, 0, len(rm.seats))
	for _, s := range rm.seats {
		players = append(players, PlayerInfo{
			ID:       s.ID,
			Name:     s.Name,
			IsBot:    s.IsBot,
			IsHost:   s.ID == rm.hostID,
			Observer: s.Observer,
		})
	}
	return RoomInfo{
		Code:        rm.code,
		HostID:      rm.hostID,
		Players:     players,
		Settings:    rm.settings,
		HasPassword: rm.passwordHash != nil,
		InGame:      rm.session != nil,
	}
}

// broadcastRoom pushes the lobby snapshot to everyone in the room. Caller
// holds the lock.
func (r *Registry) broadcastRoom(rm *room) {
	if r.notifier == nil {
		return
	}
	info := rm.info()
	payload := map[string]interface{}{
		"code":         info.Code,
		"host_id":      info.HostID,
		"players":      info.Players,
		"settings":     info.Settings,
		"has_password": info.HasPassword,
		"in_game":      info.InGame,
	}
	r.notifier.ToRoom(rm.code, EventRoomUpdated, payload)
}
