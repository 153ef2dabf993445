package game

import (
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/vntrieu/werewolf/internal/roles"
)

// Phase is the session's current half of a round.
type Phase string

const (
	PhaseNight Phase = "night"
	PhaseDay   Phase = "day"
)

// Timing constants for phase transitions.
const (
	// Grace delay between "everyone has acted" and actually resolving,
	// so last-moment UI settles before results arrive.
	earlyResolveGrace = 2 * time.Second

	// Delay before Night -> Day when a conversion happened, so the
	// conversion notice is visible before the Day UI replaces it.
	convertNoticeDelay = 3 * time.Second

	// Delay between the last role acknowledgement and the first Night.
	ackSettleDelay = time.Second

	// DefaultRevengeTimeout bounds the wait for a human revenge shot.
	// When it expires the shot is fired at a random living target.
	DefaultRevengeTimeout = 30 * time.Second
)

// Default phase durations in seconds.
const (
	DefaultNightSeconds = 60
	DefaultDaySeconds   = 180
)

// VoteSkip is the ballot option for explicitly passing on the day vote.
const VoteSkip = "skip"

// Winner identifiers for game_over payloads.
const (
	WinnerVillagers  = "villagers"
	WinnerWerewolves = "werewolves"
	WinnerFool       = "fool"
	WinnerLovers     = "lovers"
)

// Server event names emitted through the Sink.
const (
	EventRoleAssigned  = "role_assigned"
	EventWolfTeam      = "wolf_team"
	EventAckStatus     = "ack_status"
	EventPhaseStarted  = "phase_started"
	EventCountdown     = "countdown"
	EventWolfBallot    = "wolf_ballot"
	EventDayBallot     = "day_ballot"
	EventInspectResult = "inspect_result"
	EventPotions       = "potions"
	EventLoverInfo     = "lover_info"
	EventRoleChanged   = "role_changed"
	EventNightSummary  = "night_summary"
	EventDaySummary    = "day_summary"
	EventRevengePrompt = "revenge_prompt"
	EventGameOver      = "game_over"
	EventChat          = "chat"
	EventState         = "state"
)

// Sink delivers session output. Implemented by the websocket hub; tests use
// an in-memory fake.
type Sink interface {
	ToRoom(event string, payload map[string]interface{})
	ToPlayer(playerID, event string, payload map[string]interface{})
}

// Settings are the host-configurable game parameters.
type Settings struct {
	NightSeconds int                `json:"night_seconds"`
	DaySeconds   int                `json:"day_seconds"`
	Distribution map[roles.Role]int `json:"role_distribution,omitempty"`
}

// DefaultSettings returns the out-of-the-box phase durations with no
// explicit role distribution.
func DefaultSettings() Settings {
	return Settings{NightSeconds: DefaultNightSeconds, DaySeconds: DefaultDaySeconds}
}

// LogEntry is one line of the append-only game log shown in the event feed.
type LogEntry struct {
	Day     int    `json:"day"`
	Phase   Phase  `json:"phase"`
	Type    string `json:"type"`
	Message string `json:"message"`
	At      int64  `json:"at"`
}

// Config wires a new session.
type Config struct {
	RoomCode string
	Seats    []Seat
	Settings Settings
	Clock    Clock
	Sink     Sink
	Rng      *rand.Rand
	// Actors maps bot player IDs to their decision engines.
	Actors map[string]Actor
	// RevengeTimeout overrides DefaultRevengeTimeout when positive.
	RevengeTimeout time.Duration
}

type wolfVote struct {
	Voter  string
	Target string
}

type dayVote struct {
	Voter  string
	Target string // VoteSkip for an explicit skip
}

type pendingDeath struct {
	ID    string
	Cause string
}

// Session is the authoritative state machine for one running game. All
// public methods lock; a session's state is never mutated concurrently.
type Session struct {
	mu sync.Mutex

	roomCode       string
	clock          Clock
	sink           Sink
	rng            *rand.Rand
	actors         map[string]Actor
	settings       Settings
	revengeTimeout time.Duration

	players   []*Player
	byID      map[string]*Player
	observers []Seat

	phase       Phase
	day         int
	phaseActive bool
	awaitingAck bool
	over        bool
	winner      string
	soloWinner  *Player

	// seq increments on every phase entry; scheduled callbacks carry the
	// seq they were armed under and bail out if it moved on.
	seq        int
	remaining  int
	tickTimer  Timer
	graceTimer Timer
	delayTimer Timer
	startTimer Timer
	graceArmed bool

	acked map[string]bool

	// Night buffers, cleared on phase entry.
	wolfVotes []wolfVote
	converts  map[string]string
	guards    map[string]string
	seerDone  map[string]bool
	witchUsed map[string]bool
	heals     []string
	harms     []string
	bonds     [][2]string

	// Day ballot, cleared on phase entry.
	votes []dayVote

	// Cross-phase state. Never cleared mid-game.
	lastProtected map[string]string
	loveNetwork   map[string]map[string]bool
	cubEffect     bool
	gameLog       []LogEntry

	convertedThisNight bool

	deathQueue      []pendingDeath
	phaseDeaths     []*Player
	phaseSaved      []*Player
	pendingRevenge  []string
	promptedRevenge string
	pendingFinish   func()
	revengeTimer    Timer

	disconnected map[string]bool

	lastTally      map[string]int
	lastEliminated *Player
}

// NewSession builds a session from a lobby's roster. The role distribution
// must already be validated; observers are kept out of the playing roster.
func NewSession(cfg Config) (*Session, error) {
	if cfg.Sink == nil {
		return nil, fmt.Errorf("sink is required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = RealClock()
	}
	rng := cfg.Rng
	if rng == nil {
		rng = rand.New(rand.NewSource(clock.Now().UnixNano()))
	}
	settings := cfg.Settings
	if settings.NightSeconds <= 0 {
		settings.NightSeconds = DefaultNightSeconds
	}
	if settings.DaySeconds <= 0 {
		settings.DaySeconds = DefaultDaySeconds
	}
	revengeTimeout := cfg.RevengeTimeout
	if revengeTimeout <= 0 {
		revengeTimeout = DefaultRevengeTimeout
	}

	s := &Session{
		roomCode:       cfg.RoomCode,
		clock:          clock,
		sink:           cfg.Sink,
		rng:            rng,
		actors:         cfg.Actors,
		settings:       settings,
		revengeTimeout: revengeTimeout,
		byID:           make(map[string]*Player),
		phase:          PhaseNight,
		day:            1,
		acked:          make(map[string]bool),
		lastProtected:  make(map[string]string),
		loveNetwork:    make(map[string]map[string]bool),
		disconnected:   make(map[string]bool),
	}
	for _, seat := range cfg.Seats {
		if seat.Observer {
			s.observers = append(s.observers, seat)
			continue
		}
		p := &Player{ID: seat.ID, Name: seat.Name, IsBot: seat.IsBot, Alive: true}
		s.players = append(s.players, p)
		s.byID[p.ID] = p
	}
	if len(s.players) == 0 {
		return nil, fmt.Errorf("session needs at least one player")
	}
	return s, nil
}

// Start deals roles, notifies every player, and waits for humans to
// acknowledge before the first Night begins. Bots acknowledge instantly.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	dist := s.settings.Distribution
	if len(dist) == 0 {
		dist = roles.DefaultDistribution(len(s.players))
	}
	deck := roles.Deal(s.rng, dist)
	for i, p := range s.players {
		p.Role = deck[i]
		if p.Role == roles.Witch {
			p.HealPotion = true
			p.HarmPotion = true
		}
	}

	s.awaitingAck = true
	for _, p := range s.players {
		s.sink.ToPlayer(p.ID, EventRoleAssigned, map[string]interface{}{
			"role":        string(p.Role),
			"team":        string(p.Role.Team()),
			"description": p.Role.Description(),
		})
		if p.IsBot {
			s.acked[p.ID] = true
		}
	}
	s.sendWolfTeam()
	s.addLog("game", "The game has started. Roles have been dealt.")
	s.broadcastAckStatus()
	s.broadcastState()
	s.maybeFinishAck()
}

// AcknowledgeRole records that a human has seen their role. The first Night
// starts shortly after the last acknowledgement.
func (s *Session) AcknowledgeRole(playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.awaitingAck {
		return fmt.Errorf("the game is already underway")
	}
	p := s.byID[playerID]
	if p == nil {
		return fmt.Errorf("player not in game")
	}
	if s.acked[playerID] {
		return nil
	}
	s.acked[playerID] = true
	s.broadcastAckStatus()
	s.maybeFinishAck()
	return nil
}

func (s *Session) maybeFinishAck() {
	for _, p := range s.players {
		if p.Alive && !s.acked[p.ID] {
			return
		}
	}
	s.awaitingAck = false
	seq := s.seq
	s.startTimer = s.clock.AfterFunc(ackSettleDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.over || s.phaseActive || s.seq != seq {
			return
		}
		s.beginNight()
	})
}

func (s *Session) broadcastAckStatus() {
	total, ackedCount := 0, 0
	waiting := make([]string, 0)
	for _, p := range s.players {
		if !p.Alive {
			continue
		}
		total++
		if s.acked[p.ID] {
			ackedCount++
		} else {
			waiting = append(waiting, p.Name)
		}
	}
	s.sink.ToRoom(EventAckStatus, map[string]interface{}{
		"total":        total,
		"acknowledged": ackedCount,
		"waiting":      waiting,
	})
}

// beginNight enters the Night phase. Caller holds the lock.
func (s *Session) beginNight() {
	s.seq++
	s.phase = PhaseNight
	s.phaseActive = true
	s.clearPhaseBuffers()
	s.remaining = s.settings.NightSeconds
	s.addLog("phase", fmt.Sprintf("Night %d falls over the village.", s.day))
	s.sink.ToRoom(EventPhaseStarted, map[string]interface{}{
		"phase":   string(PhaseNight),
		"day":     s.day,
		"seconds": s.remaining,
	})
	s.broadcastState()
	s.armTick(s.seq)
	s.scheduleBotNightActions(s.seq)
}

// beginDay enters the Day phase. Caller holds the lock.
func (s *Session) beginDay() {
	s.seq++
	s.phase = PhaseDay
	s.phaseActive = true
	s.clearPhaseBuffers()
	s.remaining = s.settings.DaySeconds
	s.addLog("phase", fmt.Sprintf("Day %d breaks. The village debates.", s.day))
	s.sink.ToRoom(EventPhaseStarted, map[string]interface{}{
		"phase":   string(PhaseDay),
		"day":     s.day,
		"seconds": s.remaining,
	})
	s.broadcastState()
	s.armTick(s.seq)
	s.scheduleBotVotes(s.seq)
	s.scheduleBotChat(s.seq)
}

// clearPhaseBuffers resets everything scoped to a single phase. Guardian
// memory, the love network, sticky flags, and the log survive.
func (s *Session) clearPhaseBuffers() {
	s.wolfVotes = nil
	s.converts = make(map[string]string)
	s.guards = make(map[string]string)
	s.seerDone = make(map[string]bool)
	s.witchUsed = make(map[string]bool)
	s.heals = nil
	s.harms = nil
	s.bonds = nil
	s.votes = nil
	s.phaseDeaths = nil
	s.phaseSaved = nil
	s.convertedThisNight = false
	s.graceArmed = false
	s.lastTally = nil
	s.lastEliminated = nil
	for _, p := range s.players {
		p.HasVoted = false
		p.VoteTarget = ""
		p.NightAction = ""
		p.Protected = false
	}
}

func (s *Session) armTick(seq int) {
	s.tickTimer = s.clock.AfterFunc(time.Second, func() { s.onTick(seq) })
}

// onTick is the 1Hz countdown; it doubles as the phase timer.
func (s *Session) onTick(seq int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.over || !s.phaseActive || s.seq != seq {
		return
	}
	s.remaining--
	s.sink.ToRoom(EventCountdown, map[string]interface{}{
		"phase":   string(s.phase),
		"seconds": s.remaining,
	})
	if s.remaining <= 0 {
		s.resolvePhase()
		return
	}
	s.armTick(seq)
}

// checkEarlyResolve arms the grace timer once every required actor has
// acted. Caller holds the lock.
func (s *Session) checkEarlyResolve() {
	if !s.phaseActive || s.graceArmed || len(s.pendingRevenge) > 0 || !s.allRequiredActed() {
		return
	}
	s.graceArmed = true
	if s.tickTimer != nil {
		s.tickTimer.Stop()
	}
	seq := s.seq
	s.graceTimer = s.clock.AfterFunc(earlyResolveGrace, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.over || !s.phaseActive || s.seq != seq {
			return
		}
		s.resolvePhase()
	})
}

// allRequiredActed reports phase completeness per the early-resolution rule.
func (s *Session) allRequiredActed() bool {
	if s.phase == PhaseDay {
		for _, p := range s.players {
			if p.Alive && !p.HasVoted {
				return false
			}
		}
		return true
	}

	// Night: one collective unit for the pack, plus one unit per alive
	// individually-acting role that still has something to do.
	packAlive := false
	for _, p := range s.players {
		if p.Alive && p.Role.CanNightKill() {
			packAlive = true
			break
		}
	}
	if packAlive && len(s.wolfVotes) == 0 && len(s.converts) == 0 {
		return false
	}
	for _, p := range s.players {
		if !p.Alive {
			continue
		}
		switch p.Role {
		case roles.Bodyguard:
			if _, ok := s.guards[p.ID]; !ok {
				return false
			}
		case roles.Seer:
			if !s.seerDone[p.ID] {
				return false
			}
		case roles.Witch:
			if (p.HealPotion || p.HarmPotion) && !s.witchUsed[p.ID] {
				return false
			}
		case roles.Cupid:
			if !p.BondUsed {
				return false
			}
		}
	}
	return true
}

func (s *Session) resolvePhase() {
	if s.phase == PhaseNight {
		s.resolveNight()
	} else {
		s.resolveDay()
	}
}

func (s *Session) stopPhaseTimers() {
	if s.tickTimer != nil {
		s.tickTimer.Stop()
	}
	if s.graceTimer != nil {
		s.graceTimer.Stop()
	}
}

// HandleDisconnect models a dropped participant as an immediate death and
// re-runs the win check. Disconnects before the first Night still count. A
// shooter who drops while their revenge shot is pending fires at random so
// the session never waits on an empty chair.
func (s *Session) HandleDisconnect(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.over {
		return
	}
	p := s.byID[playerID]
	if p == nil || s.disconnected[playerID] {
		return
	}
	s.disconnected[playerID] = true
	log.Printf("session room=%s player=%s disconnected mid-game", s.roomCode, p.Name)
	if !p.Alive {
		if len(s.pendingRevenge) > 0 && s.pendingRevenge[0] == playerID {
			if target := s.randomLivingTarget(playerID); target != "" {
				s.fireRevenge(playerID, target)
			} else {
				s.skipRevenge()
			}
		}
		return
	}
	s.addLog("disconnect", fmt.Sprintf("%s left the village.", p.Name))
	s.deathQueue = append(s.deathQueue, pendingDeath{ID: p.ID, Cause: "disconnected"})
	if s.processDeaths() || len(s.pendingRevenge) > 0 {
		// A continuation stored by a paused resolution step stays in
		// place; only a pause that starts here suspends the phase clock
		// and resumes it once the queued shots settle.
		if s.pendingFinish == nil {
			s.stopPhaseTimers()
			s.graceArmed = false
			s.pendingFinish = s.resumePhase
		}
		s.promptNextRevenge()
		s.broadcastState()
		return
	}
	s.afterMidPhaseDeath()
}

// afterMidPhaseDeath runs the win check and completeness re-check after a
// death outside the normal resolution pipeline.
func (s *Session) afterMidPhaseDeath() {
	if s.checkWin() {
		s.endGame()
		return
	}
	s.broadcastState()
	if s.awaitingAck {
		s.broadcastAckStatus()
		s.maybeFinishAck()
		return
	}
	s.checkEarlyResolve()
}

// resumePhase restarts the phase clock after a revenge pause that began
// outside a resolution step.
func (s *Session) resumePhase() {
	if s.checkWin() {
		s.endGame()
		return
	}
	s.broadcastState()
	if s.awaitingAck {
		s.broadcastAckStatus()
		s.maybeFinishAck()
		return
	}
	if s.phaseActive {
		s.armTick(s.seq)
		s.checkEarlyResolve()
	}
}

// Abandon ends the session without a winner when its room goes away. Phase
// timers stop here; any callback already scheduled bails on the over flag.
func (s *Session) Abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.over {
		return
	}
	s.over = true
	s.phaseActive = false
	s.stopPhaseTimers()
	if s.startTimer != nil {
		s.startTimer.Stop()
	}
	if s.delayTimer != nil {
		s.delayTimer.Stop()
	}
	if s.revengeTimer != nil {
		s.revengeTimer.Stop()
	}
	log.Printf("session room=%s abandoned", s.roomCode)
}

// Over reports whether the game has ended.
func (s *Session) Over() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.over
}

// RoomCode returns the room this session belongs to.
func (s *Session) RoomCode() string { return s.roomCode }

// Roster returns the seats of every participant, observers included, for
// rebuilding the lobby after game over.
func (s *Session) Roster() []Seat {
	s.mu.Lock()
	defer s.mu.Unlock()
	seats := make([]Seat, 0, len(s.players)+len(s.observers))
	for _, p := range s.players {
		seats = append(seats, Seat{ID: p.ID, Name: p.Name, IsBot: p.IsBot})
	}
	seats = append(seats, s.observers...)
	return seats
}

// IsWolfTeam reports whether the player currently wins with the werewolves.
// Used to route pack-only chat.
func (s *Session) IsWolfTeam(playerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.byID[playerID]
	return p != nil && p.Role.IsWerewolfTeam()
}

// IsAlive reports whether the player is still in the game.
func (s *Session) IsAlive(playerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.byID[playerID]
	return p != nil && p.Alive
}

// AddObserver registers a spectator joining mid-game. Observers see the
// unfiltered state but never act.
func (s *Session) AddObserver(seat Seat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.observers {
		if o.ID == seat.ID {
			return
		}
	}
	seat.Observer = true
	s.observers = append(s.observers, seat)
}

// WolfTeamMembers returns the IDs of living werewolf-team players. Used to
// route pack-only chat.
func (s *Session) WolfTeamMembers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0)
	for _, p := range s.players {
		if p.Alive && p.Role.IsWerewolfTeam() {
			out = append(out, p.ID)
		}
	}
	return out
}

// IsObserver reports whether the participant is a non-playing viewer.
func (s *Session) IsObserver(playerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.observers {
		if o.ID == playerID {
			return true
		}
	}
	return false
}

func (s *Session) addLog(entryType, message string) {
	s.gameLog = append(s.gameLog, LogEntry{
		Day:     s.day,
		Phase:   s.phase,
		Type:    entryType,
		Message: message,
		At:      s.clock.Now().Unix(),
	})
}

// sendWolfTeam refreshes every werewolf-team member's view of the pack
// roster. Called at start and again after every conversion.
func (s *Session) sendWolfTeam() {
	pack := make([]map[string]interface{}, 0)
	for _, p := range s.players {
		if p.Role.IsWerewolfTeam() {
			pack = append(pack, map[string]interface{}{
				"id":    p.ID,
				"name":  p.Name,
				"role":  string(p.Role),
				"alive": p.Alive,
			})
		}
	}
	for _, p := range s.players {
		if p.Role.IsWerewolfTeam() {
			s.sink.ToPlayer(p.ID, EventWolfTeam, map[string]interface{}{"members": pack})
		}
	}
}

func (s *Session) livingPlayers() []*Player {
	out := make([]*Player, 0, len(s.players))
	for _, p := range s.players {
		if p.Alive {
			out = append(out, p)
		}
	}
	return out
}

// randomLivingTarget picks a uniform random living player excluding the
// given IDs. Returns "" when nobody qualifies.
func (s *Session) randomLivingTarget(exclude ...string) string {
	excluded := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}
	candidates := make([]string, 0)
	for _, p := range s.players {
		if p.Alive && !excluded[p.ID] {
			candidates = append(candidates, p.ID)
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	return candidates[s.rng.Intn(len(candidates))]
}
