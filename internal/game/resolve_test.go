package game

import (
	"testing"
	"time"

	"github.com/vntrieu/werewolf/internal/roles"
)

// advanceToDay resolves the current night via timer expiry.
func advanceToDay(t *testing.T, s *Session, clock *fakeClock) {
	t.Helper()
	s.mu.Lock()
	remaining := s.remaining
	s.mu.Unlock()
	clock.Advance(time.Duration(remaining) * time.Second)
	if phase, _, _ := s.phaseInfo(); phase != PhaseDay {
		t.Fatalf("expected day phase, got %s", phase)
	}
}

// advanceToNight resolves the current day via timer expiry.
func advanceToNight(t *testing.T, s *Session, clock *fakeClock) {
	t.Helper()
	s.mu.Lock()
	remaining := s.remaining
	s.mu.Unlock()
	clock.Advance(time.Duration(remaining) * time.Second)
	if phase, _, _ := s.phaseInfo(); phase != PhaseNight {
		t.Fatalf("expected night phase, got %s", phase)
	}
}

func TestBasicNightElimination(t *testing.T) {
	s, clock, sink := newTestSession(t, humanSeats("wolf", "seer", "v1", "v2", "v3"),
		map[string]roles.Role{
			"wolf": roles.Werewolf, "seer": roles.Seer,
			"v1": roles.Villager, "v2": roles.Villager, "v3": roles.Villager,
		}, nil)

	if err := s.SubmitNightAction("wolf", NightIntent{Kind: IntentKill, Target: "v1"}); err != nil {
		t.Fatalf("kill: %v", err)
	}
	if err := s.SubmitNightAction("seer", NightIntent{Kind: IntentInspect, Target: "wolf"}); err != nil {
		t.Fatalf("inspect: %v", err)
	}

	// Seer feedback is synchronous and private.
	result, ok := sink.lastPlayerEvent("seer", EventInspectResult)
	if !ok {
		t.Fatal("seer received no inspect result")
	}
	if result.Payload["is_hostile"] != true {
		t.Error("werewolf should read as hostile")
	}

	// Both required units acted: the grace delay resolves the night.
	clock.Advance(earlyResolveGrace)
	phase, day, _ := s.phaseInfo()
	if phase != PhaseDay || day != 1 {
		t.Fatalf("expected day 1, got phase=%s day=%d", phase, day)
	}
	if s.livingCount() != 4 {
		t.Fatalf("expected 4 living players, got %d", s.livingCount())
	}

	summaries := sink.roomEvents(EventNightSummary)
	if len(summaries) != 1 {
		t.Fatalf("expected one night summary, got %d", len(summaries))
	}
	deaths := summaries[0].Payload["deaths"].([]map[string]interface{})
	if len(deaths) != 1 || deaths[0]["id"] != "v1" {
		t.Fatalf("expected v1 to die, got %v", deaths)
	}
}

func TestTraitorReadsNotHostile(t *testing.T) {
	s, _, sink := newTestSession(t, humanSeats("wolf", "traitor", "seer", "v1", "v2"),
		map[string]roles.Role{
			"wolf": roles.Werewolf, "traitor": roles.Traitor, "seer": roles.Seer,
			"v1": roles.Villager, "v2": roles.Villager,
		}, nil)

	if err := s.SubmitNightAction("seer", NightIntent{Kind: IntentInspect, Target: "traitor"}); err != nil {
		t.Fatalf("inspect: %v", err)
	}
	result, _ := sink.lastPlayerEvent("seer", EventInspectResult)
	if result.Payload["is_hostile"] != false {
		t.Error("traitor must read as not hostile")
	}
}

func TestProtectedSurvivalIsLoggedAsSaved(t *testing.T) {
	s, clock, sink := newTestSession(t, humanSeats("wolf", "guard", "seer", "v1", "v2"),
		map[string]roles.Role{
			"wolf": roles.Werewolf, "guard": roles.Bodyguard, "seer": roles.Seer,
			"v1": roles.Villager, "v2": roles.Villager,
		}, nil)

	if err := s.SubmitNightAction("guard", NightIntent{Kind: IntentProtect, Target: "v1"}); err != nil {
		t.Fatalf("protect: %v", err)
	}
	if err := s.SubmitNightAction("wolf", NightIntent{Kind: IntentKill, Target: "v1"}); err != nil {
		t.Fatalf("kill: %v", err)
	}
	if err := s.SubmitNightAction("seer", NightIntent{Kind: IntentInspect, Target: "v2"}); err != nil {
		t.Fatalf("inspect: %v", err)
	}
	clock.Advance(earlyResolveGrace)

	if s.livingCount() != 5 {
		t.Fatalf("expected zero deaths, got %d living", s.livingCount())
	}
	if !s.hasLogEntry("saved", "v1") {
		t.Error("expected a saved log entry naming v1")
	}
	summary := sink.roomEvents(EventNightSummary)[0]
	if summary.Payload["saved"].(int) != 1 {
		t.Errorf("expected saved=1 in summary, got %v", summary.Payload["saved"])
	}
}

func TestGuardianNonRepeatInvariant(t *testing.T) {
	s, clock, _ := newTestSession(t, humanSeats("wolf", "guard", "v1", "v2", "v3"),
		map[string]roles.Role{
			"wolf": roles.Werewolf, "guard": roles.Bodyguard,
			"v1": roles.Villager, "v2": roles.Villager, "v3": roles.Villager,
		}, nil)

	// Night 1: protect v1.
	if err := s.SubmitNightAction("guard", NightIntent{Kind: IntentProtect, Target: "v1"}); err != nil {
		t.Fatalf("protect night 1: %v", err)
	}
	advanceToDay(t, s, clock)
	advanceToNight(t, s, clock)

	// Night 2: v1 again is rejected, another target is fine.
	if err := s.SubmitNightAction("guard", NightIntent{Kind: IntentProtect, Target: "v1"}); err == nil {
		t.Fatal("repeat protection of v1 should be rejected")
	}
	if err := s.SubmitNightAction("guard", NightIntent{Kind: IntentProtect, Target: "v2"}); err != nil {
		t.Fatalf("protect v2 night 2: %v", err)
	}
	advanceToDay(t, s, clock)
	advanceToNight(t, s, clock)

	// Night 3: v1 is allowed again.
	if err := s.SubmitNightAction("guard", NightIntent{Kind: IntentProtect, Target: "v1"}); err != nil {
		t.Fatalf("protect v1 night 3: %v", err)
	}
}

func TestWolfCannotTargetPackAndTurnNotConsumed(t *testing.T) {
	s, _, _ := newTestSession(t, humanSeats("wolf", "cub", "v1", "v2", "v3"),
		map[string]roles.Role{
			"wolf": roles.Werewolf, "cub": roles.WolfCub,
			"v1": roles.Villager, "v2": roles.Villager, "v3": roles.Villager,
		}, nil)

	if err := s.SubmitNightAction("wolf", NightIntent{Kind: IntentKill, Target: "cub"}); err == nil {
		t.Fatal("targeting a pack member should be rejected")
	}
	// The illegal submission must not count as the pack's action.
	s.mu.Lock()
	votes := len(s.wolfVotes)
	s.mu.Unlock()
	if votes != 0 {
		t.Fatalf("illegal kill was buffered: %d votes", votes)
	}
}

func TestWolfBallotStableTieBreak(t *testing.T) {
	votes := []wolfVote{
		{Voter: "w1", Target: "a"},
		{Voter: "w2", Target: "b"},
		{Voter: "w3", Target: "b"},
		{Voter: "w4", Target: "a"},
	}
	// a and b both have 2; b reached 2 first (index 2 vs index 3).
	leaders := ballotLeaders(votes)
	if leaders[0] != "b" {
		t.Fatalf("expected b to lead on first-reached tie-break, got %s", leaders[0])
	}

	// A replacement keeps the voter's original position.
	votes[1].Target = "a" // w2 re-votes a: a=3 (reached at idx 3), b=1
	leaders = ballotLeaders(votes)
	if leaders[0] != "a" {
		t.Fatalf("expected a to lead after re-vote, got %s", leaders[0])
	}
}

func TestDayPluralityTieEliminatesNobody(t *testing.T) {
	s, clock, sink := newTestSession(t, humanSeats("wolf", "v1", "v2", "v3", "v4"),
		map[string]roles.Role{
			"wolf": roles.Werewolf,
			"v1":   roles.Villager, "v2": roles.Villager, "v3": roles.Villager, "v4": roles.Villager,
		}, nil)
	advanceToDay(t, s, clock)

	// Two targets tie at 2 votes each, one skip.
	mustVote(t, s, "wolf", "v1")
	mustVote(t, s, "v2", "v1")
	mustVote(t, s, "v1", "wolf")
	mustVote(t, s, "v3", "wolf")
	if err := s.SubmitSkip("v4"); err != nil {
		t.Fatalf("skip: %v", err)
	}
	clock.Advance(earlyResolveGrace)

	if s.livingCount() != 5 {
		t.Fatalf("tie should eliminate nobody, got %d living", s.livingCount())
	}
	summary := sink.roomEvents(EventDaySummary)[0]
	if summary.Payload["eliminated"] != nil {
		t.Errorf("expected no elimination, got %v", summary.Payload["eliminated"])
	}
	if phase, day, _ := s.phaseInfo(); phase != PhaseNight || day != 2 {
		t.Errorf("expected night 2, got phase=%s day=%d", phase, day)
	}
}

func TestSkipMajorityEliminatesNobody(t *testing.T) {
	s, clock, _ := newTestSession(t, humanSeats("wolf", "v1", "v2", "v3", "v4"),
		map[string]roles.Role{
			"wolf": roles.Werewolf,
			"v1":   roles.Villager, "v2": roles.Villager, "v3": roles.Villager, "v4": roles.Villager,
		}, nil)
	advanceToDay(t, s, clock)

	mustVote(t, s, "v1", "wolf")
	for _, id := range []string{"wolf", "v2", "v3", "v4"} {
		if err := s.SubmitSkip(id); err != nil {
			t.Fatalf("skip %s: %v", id, err)
		}
	}
	clock.Advance(earlyResolveGrace)
	if s.livingCount() != 5 {
		t.Fatalf("skip majority should eliminate nobody, got %d living", s.livingCount())
	}
}

func TestImplicitSkipForSilentVoters(t *testing.T) {
	s, clock, _ := newTestSession(t, humanSeats("wolf", "v1", "v2", "v3", "v4"),
		map[string]roles.Role{
			"wolf": roles.Werewolf,
			"v1":   roles.Villager, "v2": roles.Villager, "v3": roles.Villager, "v4": roles.Villager,
		}, nil)
	advanceToDay(t, s, clock)

	// Only two actual votes for the wolf; three silent players count as
	// skips. Skip (3) beats wolf (2): nobody is eliminated.
	mustVote(t, s, "v1", "wolf")
	mustVote(t, s, "v2", "wolf")
	advanceToNight(t, s, clock)
	if s.livingCount() != 5 {
		t.Fatalf("expected no elimination, got %d living", s.livingCount())
	}
}

func TestStrictLeaderIsEliminated(t *testing.T) {
	s, clock, sink := newTestSession(t, humanSeats("wolf", "v1", "v2", "v3", "v4"),
		map[string]roles.Role{
			"wolf": roles.Werewolf,
			"v1":   roles.Villager, "v2": roles.Villager, "v3": roles.Villager, "v4": roles.Villager,
		}, nil)
	advanceToDay(t, s, clock)

	mustVote(t, s, "wolf", "v1")
	mustVote(t, s, "v2", "v1")
	mustVote(t, s, "v3", "v1")
	mustVote(t, s, "v1", "wolf")
	mustVote(t, s, "v4", "wolf")
	clock.Advance(earlyResolveGrace)

	if s.Over() {
		t.Fatal("game should not be over yet")
	}
	if s.livingCount() != 4 {
		t.Fatalf("expected v1 eliminated, got %d living", s.livingCount())
	}
	summary := sink.roomEvents(EventDaySummary)[0]
	eliminated := summary.Payload["eliminated"].(map[string]interface{})
	if eliminated["id"] != "v1" {
		t.Errorf("expected v1 eliminated, got %v", eliminated)
	}
}

func TestLoveNetworkCascadeClosure(t *testing.T) {
	s, clock, _ := newTestSession(t, humanSeats("wolf", "c1", "c2", "v1", "v2", "v3"),
		map[string]roles.Role{
			"wolf": roles.Werewolf, "c1": roles.Cupid, "c2": roles.Cupid,
			"v1": roles.Villager, "v2": roles.Villager, "v3": roles.Villager,
		}, nil)

	// Two matchmakers chain v1-v2 and v2-v3.
	if err := s.SubmitNightAction("c1", NightIntent{Kind: IntentBond, Target: "v1", SecondTarget: "v2"}); err != nil {
		t.Fatalf("bond c1: %v", err)
	}
	if err := s.SubmitNightAction("c2", NightIntent{Kind: IntentBond, Target: "v2", SecondTarget: "v3"}); err != nil {
		t.Fatalf("bond c2: %v", err)
	}
	if err := s.SubmitNightAction("wolf", NightIntent{Kind: IntentKill, Target: "v1"}); err != nil {
		t.Fatalf("kill: %v", err)
	}
	clock.Advance(earlyResolveGrace)

	// Killing v1 takes the whole connected component, nobody else.
	if s.livingCount() != 3 {
		t.Fatalf("expected exactly 3 survivors, got %d", s.livingCount())
	}
	s.mu.Lock()
	for _, p := range s.players {
		wantAlive := p.ID == "wolf" || p.ID == "c1" || p.ID == "c2"
		if p.Alive != wantAlive {
			t.Errorf("player %s: alive=%v, want %v", p.ID, p.Alive, wantAlive)
		}
	}
	s.mu.Unlock()
}

func TestCupidBondIsOncePerGame(t *testing.T) {
	s, _, _ := newTestSession(t, humanSeats("wolf", "cupid", "v1", "v2", "v3"),
		map[string]roles.Role{
			"wolf": roles.Werewolf, "cupid": roles.Cupid,
			"v1": roles.Villager, "v2": roles.Villager, "v3": roles.Villager,
		}, nil)

	if err := s.SubmitNightAction("cupid", NightIntent{Kind: IntentBond, Target: "v1", SecondTarget: "v2"}); err != nil {
		t.Fatalf("bond: %v", err)
	}
	if err := s.SubmitNightAction("cupid", NightIntent{Kind: IntentBond, Target: "v2", SecondTarget: "v3"}); err == nil {
		t.Fatal("second bond should be rejected")
	}
}

func TestWitchDoubleSpendRejected(t *testing.T) {
	s, clock, _ := newTestSession(t, humanSeats("wolf", "witch", "v1", "v2", "v3"),
		map[string]roles.Role{
			"wolf": roles.Werewolf, "witch": roles.Witch,
			"v1": roles.Villager, "v2": roles.Villager, "v3": roles.Villager,
		}, nil)

	if err := s.SubmitNightAction("witch", NightIntent{Kind: IntentHeal, Target: "v1"}); err != nil {
		t.Fatalf("heal: %v", err)
	}
	if err := s.SubmitNightAction("witch", NightIntent{Kind: IntentHarm, Target: "v2"}); err == nil {
		t.Fatal("second potion in the same night should be rejected")
	}

	s.mu.Lock()
	witch := s.byID["witch"]
	healLeft, harmLeft := witch.HealPotion, witch.HarmPotion
	s.mu.Unlock()
	if healLeft {
		t.Error("heal charge should be consumed")
	}
	if !harmLeft {
		t.Error("harm charge should not be consumed")
	}

	// Only the heal applies: the wolf's victim is saved.
	if err := s.SubmitNightAction("wolf", NightIntent{Kind: IntentKill, Target: "v1"}); err != nil {
		t.Fatalf("kill: %v", err)
	}
	clock.Advance(earlyResolveGrace)
	if s.livingCount() != 5 {
		t.Fatalf("expected zero deaths, got %d living", s.livingCount())
	}
}

func TestWitchPoisonIgnoresProtection(t *testing.T) {
	s, clock, _ := newTestSession(t, humanSeats("wolf", "witch", "guard", "v1", "v2"),
		map[string]roles.Role{
			"wolf": roles.Werewolf, "witch": roles.Witch, "guard": roles.Bodyguard,
			"v1": roles.Villager, "v2": roles.Villager,
		}, nil)

	if err := s.SubmitNightAction("guard", NightIntent{Kind: IntentProtect, Target: "v1"}); err != nil {
		t.Fatalf("protect: %v", err)
	}
	if err := s.SubmitNightAction("witch", NightIntent{Kind: IntentHarm, Target: "v1"}); err != nil {
		t.Fatalf("harm: %v", err)
	}
	if err := s.SubmitNightAction("wolf", NightIntent{Kind: IntentKill, Target: "v2"}); err != nil {
		t.Fatalf("kill: %v", err)
	}
	clock.Advance(earlyResolveGrace)

	s.mu.Lock()
	v1Alive := s.byID["v1"].Alive
	s.mu.Unlock()
	if v1Alive {
		t.Error("poison must kill through protection")
	}
}

func TestCubDeathUpgradesPackToTwoKills(t *testing.T) {
	s, clock, _ := newTestSession(t, humanSeats("wolf", "cub", "witch", "v1", "v2", "v3", "v4", "v5"),
		map[string]roles.Role{
			"wolf": roles.Werewolf, "cub": roles.WolfCub, "witch": roles.Witch,
			"v1": roles.Villager, "v2": roles.Villager, "v3": roles.Villager,
			"v4": roles.Villager, "v5": roles.Villager,
		}, nil)

	// Night 1: the witch poisons the cub.
	if err := s.SubmitNightAction("witch", NightIntent{Kind: IntentHarm, Target: "cub"}); err != nil {
		t.Fatalf("harm: %v", err)
	}
	if err := s.SubmitNightAction("wolf", NightIntent{Kind: IntentKill, Target: "v1"}); err != nil {
		t.Fatalf("kill: %v", err)
	}
	if err := s.SubmitNightAction("cub", NightIntent{Kind: IntentKill, Target: "v1"}); err != nil {
		t.Fatalf("cub kill: %v", err)
	}
	clock.Advance(earlyResolveGrace)
	if s.livingCount() != 6 {
		t.Fatalf("expected v1 and cub dead, got %d living", s.livingCount())
	}
	advanceToNight(t, s, clock)

	// Night 2: one vote, but the cub effect fills a second random target.
	if err := s.SubmitNightAction("wolf", NightIntent{Kind: IntentKill, Target: "v2"}); err != nil {
		t.Fatalf("kill night 2: %v", err)
	}
	advanceToDay(t, s, clock)
	if s.livingCount() != 4 {
		t.Fatalf("expected two night-2 deaths under cub effect, got %d living", s.livingCount())
	}
}

func TestFoolWinsAloneWhenVotedOut(t *testing.T) {
	s, clock, sink := newTestSession(t, humanSeats("wolf", "fool", "v1", "v2", "v3"),
		map[string]roles.Role{
			"wolf": roles.Werewolf, "fool": roles.Fool,
			"v1": roles.Villager, "v2": roles.Villager, "v3": roles.Villager,
		}, nil)
	advanceToDay(t, s, clock)

	for _, id := range []string{"wolf", "v1", "v2", "v3"} {
		mustVote(t, s, id, "fool")
	}
	if err := s.SubmitSkip("fool"); err != nil {
		t.Fatalf("skip: %v", err)
	}
	clock.Advance(earlyResolveGrace)

	if !s.Over() {
		t.Fatal("voting out the fool must end the game")
	}
	over := sink.roomEvents(EventGameOver)[0]
	if over.Payload["winner"] != WinnerFool {
		t.Errorf("expected fool win, got %v", over.Payload["winner"])
	}
	if over.Payload["solo_winner"] != "fool" {
		t.Errorf("expected solo winner fool, got %v", over.Payload["solo_winner"])
	}
}

func TestWinConditionBoundary(t *testing.T) {
	// 1 wolf vs 2 others: no win yet.
	s, clock, _ := newTestSession(t, humanSeats("wolf", "v1", "v2", "v3"),
		map[string]roles.Role{
			"wolf": roles.Werewolf,
			"v1":   roles.Villager, "v2": roles.Villager, "v3": roles.Villager,
		}, nil)
	if err := s.SubmitNightAction("wolf", NightIntent{Kind: IntentKill, Target: "v1"}); err != nil {
		t.Fatalf("kill: %v", err)
	}
	clock.Advance(earlyResolveGrace)
	if s.Over() {
		t.Fatal("1 wolf vs 2 others must not end the game")
	}

	// Equal counts favor the wolves.
	advanceToNight(t, s, clock)
	if err := s.SubmitNightAction("wolf", NightIntent{Kind: IntentKill, Target: "v2"}); err != nil {
		t.Fatalf("kill: %v", err)
	}
	clock.Advance(earlyResolveGrace)
	if !s.Over() {
		t.Fatal("1 wolf vs 1 other must end the game in the wolves' favor")
	}
}

func TestVillagersWinWhenLastWolfDies(t *testing.T) {
	s, clock, sink := newTestSession(t, humanSeats("wolf", "v1", "v2", "v3", "v4"),
		map[string]roles.Role{
			"wolf": roles.Werewolf,
			"v1":   roles.Villager, "v2": roles.Villager, "v3": roles.Villager, "v4": roles.Villager,
		}, nil)
	advanceToDay(t, s, clock)

	for _, id := range []string{"v1", "v2", "v3", "v4"} {
		mustVote(t, s, id, "wolf")
	}
	mustVote(t, s, "wolf", "v1")
	clock.Advance(earlyResolveGrace)

	if !s.Over() {
		t.Fatal("eliminating the last wolf must end the game")
	}
	over := sink.roomEvents(EventGameOver)[0]
	if over.Payload["winner"] != WinnerVillagers {
		t.Errorf("expected villagers win, got %v", over.Payload["winner"])
	}
	// Game over reveals every role.
	players := over.Payload["players"].([]map[string]interface{})
	for _, p := range players {
		if p["role"] == "" || p["role"] == nil {
			t.Errorf("game over must reveal all roles, got %v", p)
		}
	}
}

func TestHumanRevengePausesResolution(t *testing.T) {
	s, clock, sink := newTestSession(t, humanSeats("wolf", "hunter", "v1", "v2", "v3", "v4"),
		map[string]roles.Role{
			"wolf": roles.Werewolf, "hunter": roles.Hunter,
			"v1": roles.Villager, "v2": roles.Villager, "v3": roles.Villager, "v4": roles.Villager,
		}, nil)

	if err := s.SubmitNightAction("wolf", NightIntent{Kind: IntentKill, Target: "hunter"}); err != nil {
		t.Fatalf("kill: %v", err)
	}
	clock.Advance(earlyResolveGrace)

	// The phase must not advance while the shot is pending.
	if phase, _, _ := s.phaseInfo(); phase != PhaseNight {
		t.Fatalf("resolution should be paused in night, got %s", phase)
	}
	if _, ok := sink.lastPlayerEvent("hunter", EventRevengePrompt); !ok {
		t.Fatal("hunter received no revenge prompt")
	}

	// Nobody else may fire the shot.
	if err := s.SubmitRevengeShot("v1", "wolf"); err == nil {
		t.Error("revenge shot from the wrong player should be rejected")
	}

	if err := s.SubmitRevengeShot("hunter", "v1"); err != nil {
		t.Fatalf("revenge shot: %v", err)
	}
	if phase, _, _ := s.phaseInfo(); phase != PhaseDay {
		t.Fatalf("expected day after revenge resolved, got %s", phase)
	}
	if s.livingCount() != 4 {
		t.Fatalf("expected hunter and v1 dead, got %d living", s.livingCount())
	}
}

func TestRevengeTimeoutAutoFires(t *testing.T) {
	s, clock, _ := newTestSession(t, humanSeats("wolf", "hunter", "v1", "v2", "v3", "v4"),
		map[string]roles.Role{
			"wolf": roles.Werewolf, "hunter": roles.Hunter,
			"v1": roles.Villager, "v2": roles.Villager, "v3": roles.Villager, "v4": roles.Villager,
		}, nil)

	if err := s.SubmitNightAction("wolf", NightIntent{Kind: IntentKill, Target: "hunter"}); err != nil {
		t.Fatalf("kill: %v", err)
	}
	clock.Advance(earlyResolveGrace)
	if phase, _, _ := s.phaseInfo(); phase != PhaseNight {
		t.Fatalf("resolution should be paused, got %s", phase)
	}

	clock.Advance(DefaultRevengeTimeout)
	if phase, _, _ := s.phaseInfo(); phase != PhaseDay {
		t.Fatalf("timeout should auto-fire and advance to day, got %s", phase)
	}
	if s.livingCount() != 4 {
		t.Fatalf("expected 4 living after auto shot, got %d", s.livingCount())
	}
}

func TestBotHunterRevengesInline(t *testing.T) {
	seats := humanSeats("wolf", "v1", "v2", "v3", "v4")
	seats = append(seats, Seat{ID: "hunter", Name: "hunter", IsBot: true})
	actors := map[string]Actor{"hunter": &scriptedActor{revenge: "v1"}}
	s, clock, _ := newTestSession(t, seats,
		map[string]roles.Role{
			"wolf": roles.Werewolf, "hunter": roles.Hunter,
			"v1": roles.Villager, "v2": roles.Villager, "v3": roles.Villager, "v4": roles.Villager,
		}, actors)

	if err := s.SubmitNightAction("wolf", NightIntent{Kind: IntentKill, Target: "hunter"}); err != nil {
		t.Fatalf("kill: %v", err)
	}
	clock.Advance(earlyResolveGrace)

	// Bot revenge resolves without pausing.
	if phase, _, _ := s.phaseInfo(); phase != PhaseDay {
		t.Fatalf("expected day, got %s", phase)
	}
	s.mu.Lock()
	v1Alive := s.byID["v1"].Alive
	s.mu.Unlock()
	if v1Alive {
		t.Error("bot hunter should have shot v1")
	}
}

func TestConversionDelaysDayAndRefreshesPack(t *testing.T) {
	s, clock, sink := newTestSession(t, humanSeats("alpha", "v1", "v2", "v3", "v4"),
		map[string]roles.Role{
			"alpha": roles.AlphaWerewolf,
			"v1":    roles.Villager, "v2": roles.Villager, "v3": roles.Villager, "v4": roles.Villager,
		}, nil)

	if err := s.SubmitNightAction("alpha", NightIntent{Kind: IntentConvert, Target: "v1"}); err != nil {
		t.Fatalf("convert: %v", err)
	}
	clock.Advance(earlyResolveGrace)

	// Converted player is told, and the pack roster is refreshed.
	if _, ok := sink.lastPlayerEvent("v1", EventRoleChanged); !ok {
		t.Fatal("converted player received no role_changed")
	}
	team, ok := sink.lastPlayerEvent("v1", EventWolfTeam)
	if !ok {
		t.Fatal("converted player received no pack roster")
	}
	members := team.Payload["members"].([]map[string]interface{})
	if len(members) != 2 {
		t.Fatalf("expected 2 pack members after conversion, got %d", len(members))
	}

	// The Night -> Day transition is delayed for the conversion notice.
	if phase, _, _ := s.phaseInfo(); phase != PhaseNight {
		t.Fatalf("day should be delayed after conversion, got %s", phase)
	}
	clock.Advance(convertNoticeDelay)
	if phase, _, _ := s.phaseInfo(); phase != PhaseDay {
		t.Fatalf("expected day after conversion delay, got %s", phase)
	}
}

func TestDisconnectDuringRevengePauseDoesNotStall(t *testing.T) {
	s, clock, sink := newTestSession(t, humanSeats("wolf", "cub", "h1", "h2", "v1", "v2", "v3", "v4", "v5"),
		map[string]roles.Role{
			"wolf": roles.Werewolf, "cub": roles.WolfCub,
			"h1": roles.Hunter, "h2": roles.Hunter,
			"v1": roles.Villager, "v2": roles.Villager, "v3": roles.Villager,
			"v4": roles.Villager, "v5": roles.Villager,
		}, nil)

	if err := s.SubmitNightAction("wolf", NightIntent{Kind: IntentKill, Target: "h1"}); err != nil {
		t.Fatalf("kill: %v", err)
	}
	clock.Advance(earlyResolveGrace)
	if phase, _, _ := s.phaseInfo(); phase != PhaseNight {
		t.Fatalf("resolution should be paused in night, got %s", phase)
	}

	// A second hunter drops while the first shot is pending. Their own
	// revenge fires automatically and must not displace the stored night
	// continuation.
	s.HandleDisconnect("h2")
	if s.Over() {
		t.Fatal("game should not be over")
	}
	if phase, _, _ := s.phaseInfo(); phase != PhaseNight {
		t.Fatalf("still waiting on the first shot, got %s", phase)
	}
	s.mu.Lock()
	if s.byID["h2"].Alive {
		t.Error("disconnected hunter should be dead")
	}
	var target string
	for _, p := range s.players {
		if p.Alive && p.ID != "wolf" && p.ID != "cub" {
			target = p.ID
			break
		}
	}
	s.mu.Unlock()

	if err := s.SubmitRevengeShot("h1", target); err != nil {
		t.Fatalf("revenge shot: %v", err)
	}
	if phase, _, _ := s.phaseInfo(); phase != PhaseDay {
		t.Fatalf("night resolution was lost, got phase=%s", phase)
	}
	if got := len(sink.roomEvents(EventNightSummary)); got != 1 {
		t.Fatalf("expected one night summary, got %d", got)
	}
	if s.livingCount() != 5 {
		t.Errorf("expected 5 living, got %d", s.livingCount())
	}
}

func TestTwoHumanShootersResolveInTurn(t *testing.T) {
	s, clock, sink := newTestSession(t, humanSeats("wolf", "witch", "h1", "h2", "v1", "v2", "v3"),
		map[string]roles.Role{
			"wolf": roles.Werewolf, "witch": roles.Witch,
			"h1": roles.Hunter, "h2": roles.Hunter,
			"v1": roles.Villager, "v2": roles.Villager, "v3": roles.Villager,
		}, nil)

	if err := s.SubmitNightAction("witch", NightIntent{Kind: IntentHarm, Target: "h2"}); err != nil {
		t.Fatalf("harm: %v", err)
	}
	if err := s.SubmitNightAction("wolf", NightIntent{Kind: IntentKill, Target: "h1"}); err != nil {
		t.Fatalf("kill: %v", err)
	}
	clock.Advance(earlyResolveGrace)

	// Only the head of the queue is prompted.
	if _, ok := sink.lastPlayerEvent("h1", EventRevengePrompt); !ok {
		t.Fatal("first hunter received no revenge prompt")
	}
	if _, ok := sink.lastPlayerEvent("h2", EventRevengePrompt); ok {
		t.Fatal("second hunter prompted before the first shot resolved")
	}

	if err := s.SubmitRevengeShot("h1", "v1"); err != nil {
		t.Fatalf("first shot: %v", err)
	}
	if phase, _, _ := s.phaseInfo(); phase != PhaseNight {
		t.Fatalf("still waiting on the second shooter, got %s", phase)
	}
	if _, ok := sink.lastPlayerEvent("h2", EventRevengePrompt); !ok {
		t.Fatal("second hunter received no prompt after the first shot")
	}

	if err := s.SubmitRevengeShot("h2", "v2"); err != nil {
		t.Fatalf("second shot: %v", err)
	}
	if phase, _, _ := s.phaseInfo(); phase != PhaseDay {
		t.Fatalf("expected day after both shots, got %s", phase)
	}
	if got := len(sink.roomEvents(EventNightSummary)); got != 1 {
		t.Fatalf("expected one night summary, got %d", got)
	}
	if s.livingCount() != 3 {
		t.Errorf("expected 3 living, got %d", s.livingCount())
	}
}

func TestDisconnectedShooterFiresAutomatically(t *testing.T) {
	s, clock, sink := newTestSession(t, humanSeats("wolf", "cub", "h1", "v1", "v2", "v3", "v4"),
		map[string]roles.Role{
			"wolf": roles.Werewolf, "cub": roles.WolfCub, "h1": roles.Hunter,
			"v1": roles.Villager, "v2": roles.Villager, "v3": roles.Villager, "v4": roles.Villager,
		}, nil)

	if err := s.SubmitNightAction("wolf", NightIntent{Kind: IntentKill, Target: "h1"}); err != nil {
		t.Fatalf("kill: %v", err)
	}
	clock.Advance(earlyResolveGrace)
	if phase, _, _ := s.phaseInfo(); phase != PhaseNight {
		t.Fatalf("resolution should be paused, got %s", phase)
	}

	// The prompted shooter vanishes: a random shot fires and the night
	// completes without waiting out the timeout.
	s.HandleDisconnect("h1")
	if phase, _, _ := s.phaseInfo(); phase != PhaseDay {
		t.Fatalf("expected day after automatic shot, got %s", phase)
	}
	if got := len(sink.roomEvents(EventNightSummary)); got != 1 {
		t.Fatalf("expected one night summary, got %d", got)
	}
	if s.livingCount() != 5 {
		t.Errorf("expected 5 living, got %d", s.livingCount())
	}
}

func TestMidPhaseRevengePauseResumesClock(t *testing.T) {
	s, clock, sink := newTestSession(t, humanSeats("wolf", "cub", "cupid", "h1", "v1", "v2", "v3", "v4", "v5"),
		map[string]roles.Role{
			"wolf": roles.Werewolf, "cub": roles.WolfCub, "cupid": roles.Cupid, "h1": roles.Hunter,
			"v1": roles.Villager, "v2": roles.Villager, "v3": roles.Villager,
			"v4": roles.Villager, "v5": roles.Villager,
		}, nil)

	if err := s.SubmitNightAction("cupid", NightIntent{Kind: IntentBond, Target: "h1", SecondTarget: "v1"}); err != nil {
		t.Fatalf("bond: %v", err)
	}
	if err := s.SubmitNightAction("wolf", NightIntent{Kind: IntentKill, Target: "v5"}); err != nil {
		t.Fatalf("kill: %v", err)
	}
	advanceToDay(t, s, clock)

	// v1 drops mid-day; heartbreak takes the bonded hunter, whose shot
	// pauses the running phase.
	s.HandleDisconnect("v1")
	if phase, _, _ := s.phaseInfo(); phase != PhaseDay {
		t.Fatalf("expected day, got %s", phase)
	}
	if _, ok := sink.lastPlayerEvent("h1", EventRevengePrompt); !ok {
		t.Fatal("hunter received no revenge prompt")
	}

	// The countdown holds while the shot is pending.
	before := len(sink.roomEvents(EventCountdown))
	clock.Advance(3 * time.Second)
	if got := len(sink.roomEvents(EventCountdown)); got != before {
		t.Fatalf("countdown ran during the pause: %d -> %d ticks", before, got)
	}

	if err := s.SubmitRevengeShot("h1", "v2"); err != nil {
		t.Fatalf("revenge shot: %v", err)
	}
	if phase, _, active := s.phaseInfo(); phase != PhaseDay || !active {
		t.Fatalf("day should continue, got phase=%s active=%v", phase, active)
	}
	clock.Advance(2 * time.Second)
	if got := len(sink.roomEvents(EventCountdown)); got <= before {
		t.Error("countdown did not resume after the shot")
	}
}

func TestEliminationRosterPrecedesRevenge(t *testing.T) {
	s, clock, sink := newTestSession(t, humanSeats("wolf", "h1", "v1", "v2", "v3", "v4"),
		map[string]roles.Role{
			"wolf": roles.Werewolf, "h1": roles.Hunter,
			"v1": roles.Villager, "v2": roles.Villager, "v3": roles.Villager, "v4": roles.Villager,
		}, nil)
	advanceToDay(t, s, clock)

	for _, id := range []string{"wolf", "v1", "v2", "v3", "v4"} {
		mustVote(t, s, id, "h1")
	}
	if err := s.SubmitSkip("h1"); err != nil {
		t.Fatalf("skip: %v", err)
	}
	clock.Advance(earlyResolveGrace)

	// While the shot is still pending, the room already sees the victim
	// dead; the summary waits for the shot.
	if got := len(sink.roomEvents(EventDaySummary)); got != 0 {
		t.Fatalf("day summary sent before revenge resolved: %d", got)
	}
	snap, ok := sink.lastPlayerEvent("wolf", EventState)
	if !ok {
		t.Fatal("no state snapshot after the vote landed")
	}
	found := false
	for _, entry := range snap.Payload["players"].([]map[string]interface{}) {
		if entry["id"] == "h1" {
			found = true
			if entry["is_alive"] != false {
				t.Error("eliminated player should read dead before the shot")
			}
		}
	}
	if !found {
		t.Fatal("eliminated player missing from the snapshot")
	}

	if err := s.SubmitRevengeShot("h1", "v1"); err != nil {
		t.Fatalf("revenge shot: %v", err)
	}
	if got := len(sink.roomEvents(EventDaySummary)); got != 1 {
		t.Fatalf("expected one day summary, got %d", got)
	}
	eliminated := sink.roomEvents(EventDaySummary)[0].Payload["eliminated"].(map[string]interface{})
	if eliminated["id"] != "h1" {
		t.Errorf("expected h1 eliminated, got %v", eliminated)
	}
}

func TestBondExtensionRenotifiesComponent(t *testing.T) {
	s, clock, sink := newTestSession(t, humanSeats("wolf", "c1", "c2", "v1", "v2", "v3"),
		map[string]roles.Role{
			"wolf": roles.Werewolf, "c1": roles.Cupid, "c2": roles.Cupid,
			"v1": roles.Villager, "v2": roles.Villager, "v3": roles.Villager,
		}, nil)

	// Night 1: only the first matchmaker acts.
	if err := s.SubmitNightAction("c1", NightIntent{Kind: IntentBond, Target: "v1", SecondTarget: "v2"}); err != nil {
		t.Fatalf("bond c1: %v", err)
	}
	advanceToDay(t, s, clock)
	first, ok := sink.lastPlayerEvent("v1", EventLoverInfo)
	if !ok {
		t.Fatal("v1 received no lover info on night 1")
	}
	if partners := first.Payload["partners"].([]map[string]interface{}); len(partners) != 1 || partners[0]["id"] != "v2" {
		t.Fatalf("night 1 partners = %v, want just v2", partners)
	}
	advanceToNight(t, s, clock)

	// Night 2: a new edge extends v1's component through v2.
	if err := s.SubmitNightAction("c2", NightIntent{Kind: IntentBond, Target: "v2", SecondTarget: "v3"}); err != nil {
		t.Fatalf("bond c2: %v", err)
	}
	advanceToDay(t, s, clock)

	if got := len(sink.playerEvents("v1", EventLoverInfo)); got != 2 {
		t.Fatalf("v1 should be re-notified when the component grows, got %d notices", got)
	}
	last, _ := sink.lastPlayerEvent("v1", EventLoverInfo)
	ids := make(map[string]bool)
	for _, p := range last.Payload["partners"].([]map[string]interface{}) {
		ids[p["id"].(string)] = true
	}
	if !ids["v2"] || !ids["v3"] || len(ids) != 2 {
		t.Errorf("v1 partners = %v, want v2 and v3", ids)
	}
}

func TestAbandonStopsScheduledWork(t *testing.T) {
	s, clock, sink := newTestSession(t, humanSeats("wolf", "v1", "v2", "v3", "v4"),
		map[string]roles.Role{
			"wolf": roles.Werewolf,
			"v1":   roles.Villager, "v2": roles.Villager, "v3": roles.Villager, "v4": roles.Villager,
		}, nil)

	s.Abandon()
	if !s.Over() {
		t.Fatal("abandoned session should read as over")
	}
	before := len(sink.roomEvents(EventCountdown))
	clock.Advance(2 * time.Minute)
	if got := len(sink.roomEvents(EventCountdown)); got != before {
		t.Errorf("countdown kept running after abandon: %d -> %d ticks", before, got)
	}
	if err := s.SubmitNightAction("wolf", NightIntent{Kind: IntentKill, Target: "v1"}); err == nil {
		t.Error("actions should be rejected after abandon")
	}
}

func mustVote(t *testing.T, s *Session, voter, target string) {
	t.Helper()
	if err := s.SubmitVote(voter, target); err != nil {
		t.Fatalf("vote %s -> %s: %v", voter, target, err)
	}
}
