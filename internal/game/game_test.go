// internal/game/game_test.go
package game

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bunkergame/bunker/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockBroadcaster collects events instead of sending them over WS.
type mockBroadcaster struct {
	mu           sync.Mutex
	allEvents    []GameEvent               // Events sent to everyone
	playerEvents map[uuid.UUID][]GameEvent // Events sent to specific players
}

func newMockBroadcaster() *mockBroadcaster {
	return &mockBroadcaster{
		playerEvents: make(map[uuid.UUID][]GameEvent),
	}
}

func (mb *mockBroadcaster) broadcastFn(ev GameEvent) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.allEvents = append(mb.allEvents, ev)
}

func (mb *mockBroadcaster) broadcastToPlayerFn(playerID uuid.UUID, ev GameEvent) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.playerEvents[playerID] = append(mb.playerEvents[playerID], ev)
}

func (mb *mockBroadcaster) clear() {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.allEvents = []GameEvent{}
	mb.playerEvents = make(map[uuid.UUID][]GameEvent)
}

func (mb *mockBroadcaster) getLastEvent() *GameEvent {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if len(mb.allEvents) == 0 {
		return nil
	}
	return &mb.allEvents[len(mb.allEvents)-1]
}

func (mb *mockBroadcaster) getLastPlayerEvent(playerID uuid.UUID) *GameEvent {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	events, ok := mb.playerEvents[playerID]
	if !ok || len(events) == 0 {
		return nil
	}
	return &events[len(events)-1]
}

func (mb *mockBroadcaster) eventsOfType(tp GameEventType) []GameEvent {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	var out []GameEvent
	for _, ev := range mb.allEvents {
		if ev.Type == tp {
			out = append(out, ev)
		}
	}
	return out
}

// setupTestGame initializes a lobby with the given number of players and mock
// broadcasters. Timers default to values long enough to never fire during a
// test; timeout tests shorten the relevant duration before starting the game.
func setupTestGame(t *testing.T, numPlayers int) (*BunkerGame, []*models.Player, *mockBroadcaster) {
	g := NewBunkerGame()
	mb := newMockBroadcaster()
	g.BroadcastFn = mb.broadcastFn
	g.BroadcastToPlayerFn = mb.broadcastToPlayerFn

	g.TurnDuration = 5 * time.Second
	g.RevealGrace = 5 * time.Second
	g.DiscussionDuration = 5 * time.Second
	g.DefenseDuration = 5 * time.Second
	g.CancelWindow = 5 * time.Second
	g.ResultsGrace = 20 * time.Millisecond

	players := make([]*models.Player, numPlayers)
	for i := 0; i < numPlayers; i++ {
		p := &models.Player{
			ID:        uuid.New(),
			Username:  fmt.Sprintf("player%d", i),
			Connected: true,
		}
		players[i] = p
		require.True(t, g.AddPlayer(p), "player %d should join the lobby", i)
	}
	return g, players, mb
}

// startToTurn starts the game and advances past the introduction phase.
func startToTurn(t *testing.T, g *BunkerGame, hostID uuid.UUID) {
	require.True(t, g.StartGame(hostID))
	require.True(t, g.AdvancePhase(hostID))
	g.Mu.Lock()
	defer g.Mu.Unlock()
	require.Equal(t, PhaseTurn, g.Phase)
}

// dispatch routes one player message the way the WS read loop does.
func dispatch(g *BunkerGame, playerID uuid.UUID, actionType string, payload map[string]interface{}) {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	g.HandlePlayerAction(playerID, models.GameAction{ActionType: actionType, Payload: payload})
}

func enterPhase(g *BunkerGame, p Phase) {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	g.transitionTo(p)
}

func currentPhase(g *BunkerGame) Phase {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.Phase
}

func TestJoinCodeFormat(t *testing.T) {
	g := NewBunkerGame()
	require.Len(t, g.ID, 6)
	for _, r := range g.ID {
		assert.Contains(t, string(codeAlphabet), string(r))
	}
}

func TestBunkerSlotsForPlayerCount(t *testing.T) {
	cases := map[int]int{6: 3, 7: 3, 8: 4, 9: 4, 10: 5, 11: 5, 12: 6, 13: 6, 14: 7, 15: 7}
	for players, slots := range cases {
		assert.Equal(t, slots, BunkerSlotsForPlayerCount(players), "%d players", players)
	}
}

func TestLobbyJoinRules(t *testing.T) {
	g, players, _ := setupTestGame(t, MaxPlayers)

	// First player took the host seat.
	assert.True(t, players[0].IsHost)
	for _, p := range players[1:] {
		assert.False(t, p.IsHost)
	}

	// Table is full.
	extra := &models.Player{ID: uuid.New(), Username: "late", Connected: true}
	assert.False(t, g.AddPlayer(extra))

	// Every player got a full characteristic sheet with two action cards.
	for _, p := range players {
		require.Len(t, p.Characteristics, len(models.AllCharacteristicKeys))
		assert.NotEqual(t,
			p.Characteristics[models.CharActionOne],
			p.Characteristics[models.CharActionTwo],
			"action slots should hold distinct cards")
	}
}

func TestLobbyDisconnectFreesSeatAndHost(t *testing.T) {
	g, players, _ := setupTestGame(t, 6)

	g.HandleDisconnect(players[0].ID)

	g.Mu.Lock()
	defer g.Mu.Unlock()
	require.Len(t, g.Players, 5)
	assert.True(t, g.Players[0].IsHost, "host seat should pass to the next player")
	assert.Equal(t, players[1].ID, g.Players[0].ID)
}

func TestStartGameRequirements(t *testing.T) {
	g, players, mb := setupTestGame(t, 5)

	// Five players is below the minimum.
	assert.False(t, g.StartGame(players[0].ID))
	assert.Equal(t, PhaseLobby, currentPhase(g))

	sixth := &models.Player{ID: uuid.New(), Username: "sixth", Connected: true}
	require.True(t, g.AddPlayer(sixth))

	// Only the host can start.
	assert.False(t, g.StartGame(players[1].ID))
	assert.Equal(t, PhaseLobby, currentPhase(g))

	mb.clear()
	require.True(t, g.StartGame(players[0].ID))

	g.Mu.Lock()
	assert.Equal(t, PhaseIntroduction, g.Phase)
	assert.Equal(t, 1, g.CurrentRound)
	assert.Equal(t, 3, g.BunkerSlots)
	g.Mu.Unlock()

	// The scenario went out publicly, the sheets privately.
	startEvents := mb.eventsOfType(EventGameStart)
	require.Len(t, startEvents, 1)
	assert.NotEmpty(t, startEvents[0].Payload["bunker"])
	assert.NotEmpty(t, startEvents[0].Payload["catastrophe"])

	sheet := mb.getLastPlayerEvent(players[0].ID)
	require.NotNil(t, sheet)
	assert.Equal(t, EventPrivateCharSheet, sheet.Type)

	// Starting twice is rejected, and late joins are too.
	assert.False(t, g.StartGame(players[0].ID))
	late := &models.Player{ID: uuid.New(), Username: "late", Connected: true}
	assert.False(t, g.AddPlayer(late))
}

func TestRevealFirstRoundProfessionOnly(t *testing.T) {
	g, players, mb := setupTestGame(t, 6)
	startToTurn(t, g, players[0].ID)
	mb.clear()

	// Round 1: anything but the profession is rejected.
	dispatch(g, players[0].ID, "action_reveal", map[string]interface{}{"key": "hobby"})
	assert.False(t, players[0].Revealed[models.CharHobby])
	errEv := mb.getLastPlayerEvent(players[0].ID)
	require.NotNil(t, errEv)
	assert.Equal(t, EventPrivateError, errEv.Type)

	dispatch(g, players[0].ID, "action_reveal", map[string]interface{}{"key": "profession"})
	assert.True(t, players[0].Revealed[models.CharProfession])

	revealEvents := mb.eventsOfType(EventCharacteristic)
	require.Len(t, revealEvents, 1)
	assert.Equal(t, players[0].Characteristics[models.CharProfession], revealEvents[0].Payload["value"])

	// One reveal per turn.
	dispatch(g, players[0].ID, "action_reveal", map[string]interface{}{"key": "profession"})
	assert.Len(t, mb.eventsOfType(EventCharacteristic), 1)
}

func TestRevealOutOfTurnRejected(t *testing.T) {
	g, players, mb := setupTestGame(t, 6)
	startToTurn(t, g, players[0].ID)
	mb.clear()

	dispatch(g, players[1].ID, "action_reveal", map[string]interface{}{"key": "profession"})
	assert.False(t, players[1].Revealed[models.CharProfession])
	errEv := mb.getLastPlayerEvent(players[1].ID)
	require.NotNil(t, errEv)
	assert.Equal(t, EventPrivateError, errEv.Type)
}

func TestTurnCycleEndsInDiscussion(t *testing.T) {
	g, players, _ := setupTestGame(t, 6)
	startToTurn(t, g, players[0].ID)

	for _, p := range players {
		dispatch(g, p.ID, "action_reveal", map[string]interface{}{"key": "profession"})
		dispatch(g, p.ID, "action_end_turn", nil)
	}

	assert.Equal(t, PhaseDiscussion, currentPhase(g))
	for _, p := range players {
		assert.True(t, p.Revealed[models.CharProfession])
	}
}

func TestEndTurnRequiresReveal(t *testing.T) {
	g, players, mb := setupTestGame(t, 6)
	startToTurn(t, g, players[0].ID)
	mb.clear()

	dispatch(g, players[0].ID, "action_end_turn", nil)

	g.Mu.Lock()
	assert.Equal(t, 0, g.CurrentPlayerIndex, "turn should not advance without a reveal")
	g.Mu.Unlock()
	errEv := mb.getLastPlayerEvent(players[0].ID)
	require.NotNil(t, errEv)
	assert.Equal(t, EventPrivateError, errEv.Type)
}

func TestTurnTimeoutAutoReveals(t *testing.T) {
	g, players, mb := setupTestGame(t, 6)
	g.TurnDuration = 50 * time.Millisecond
	g.RevealGrace = 300 * time.Millisecond
	startToTurn(t, g, players[0].ID)
	mb.clear()

	// First expiry: a hidden characteristic is revealed on the silent
	// player's behalf; the turn does not advance yet.
	time.Sleep(150 * time.Millisecond)
	g.Mu.Lock()
	assert.Equal(t, PhaseTurn, g.Phase)
	assert.Equal(t, 0, g.CurrentPlayerIndex)
	assert.True(t, g.TurnHasRevealed)
	g.Mu.Unlock()
	assert.True(t, players[0].Revealed[models.CharProfession], "round 1 auto-reveal must pick the profession")

	revealEvents := mb.eventsOfType(EventCharacteristic)
	require.Len(t, revealEvents, 1)
	assert.Equal(t, true, revealEvents[0].Payload["auto"])

	// Second expiry: the turn finally passes on.
	time.Sleep(400 * time.Millisecond)
	g.Mu.Lock()
	assert.Equal(t, 1, g.CurrentPlayerIndex)
	g.Mu.Unlock()
}

func TestTurnTimeoutAfterRevealAdvances(t *testing.T) {
	g, players, _ := setupTestGame(t, 6)
	g.RevealGrace = 80 * time.Millisecond
	startToTurn(t, g, players[0].ID)

	dispatch(g, players[0].ID, "action_reveal", map[string]interface{}{"key": "profession"})

	time.Sleep(250 * time.Millisecond)
	g.Mu.Lock()
	assert.Equal(t, 1, g.CurrentPlayerIndex, "grace expiry should advance a revealed turn")
	g.Mu.Unlock()
}

func TestStaleTimerIsIgnored(t *testing.T) {
	g, players, _ := setupTestGame(t, 6)
	g.TurnDuration = 60 * time.Millisecond
	startToTurn(t, g, players[0].ID)

	// Revealing replaces the turn deadline; the original expiry must not
	// auto-reveal a second characteristic.
	dispatch(g, players[0].ID, "action_reveal", map[string]interface{}{"key": "profession"})

	time.Sleep(150 * time.Millisecond)
	g.Mu.Lock()
	defer g.Mu.Unlock()
	assert.Equal(t, 0, g.CurrentPlayerIndex)
	assert.Len(t, players[0].Revealed, 1)
}

func TestGameEndsWhenAliveFitBunker(t *testing.T) {
	g, players, mb := setupTestGame(t, 6)

	done := make(chan []uuid.UUID, 1)
	g.OnGameEnd = func(gameID string, survivors []uuid.UUID) {
		done <- survivors
	}

	startToTurn(t, g, players[0].ID)

	g.Mu.Lock()
	g.eliminatePlayer(players[3].ID)
	g.eliminatePlayer(players[4].ID)
	g.eliminatePlayer(players[5].ID)
	g.transitionTo(PhaseDiscussion)
	g.Mu.Unlock()

	assert.Equal(t, PhaseGameOver, currentPhase(g))

	select {
	case survivors := <-done:
		assert.ElementsMatch(t, []uuid.UUID{players[0].ID, players[1].ID, players[2].ID}, survivors)
	case <-time.After(time.Second):
		t.Fatal("OnGameEnd was not invoked")
	}

	overEvents := mb.eventsOfType(EventGameOver)
	require.Len(t, overEvents, 1)

	// A terminal game ignores everything.
	mb.clear()
	dispatch(g, players[0].ID, "action_reveal", map[string]interface{}{"key": "profession"})
	assert.Nil(t, mb.getLastEvent())
}

func TestRebindPlayerCarriesSeatState(t *testing.T) {
	g, players, _ := setupTestGame(t, 6)
	startToTurn(t, g, players[0].ID)
	enterPhase(g, PhaseVoting)

	dispatch(g, players[1].ID, "action_vote", map[string]interface{}{"targetId": players[2].ID.String()})

	oldID := players[1].ID
	newID := uuid.New()
	require.True(t, g.RebindPlayer(oldID, newID))

	g.Mu.Lock()
	defer g.Mu.Unlock()
	assert.Nil(t, g.getPlayerByID(oldID))
	p := g.getPlayerByID(newID)
	require.NotNil(t, p)
	assert.True(t, p.HasVoted)
	assert.Equal(t, players[2].ID, g.Votes[newID], "the recorded ballot follows the new identity")
}

func TestObfuscatedStateHidesUnrevealed(t *testing.T) {
	g, players, _ := setupTestGame(t, 6)
	startToTurn(t, g, players[0].ID)
	dispatch(g, players[0].ID, "action_reveal", map[string]interface{}{"key": "profession"})

	g.Mu.Lock()
	state := g.obfuscatedState(players[1].ID)
	g.Mu.Unlock()

	require.Len(t, state.Players, 6)
	for _, ps := range state.Players {
		if ps.PlayerID == players[1].ID {
			assert.Len(t, ps.Characteristics, len(models.AllCharacteristicKeys), "requester sees their own sheet")
			continue
		}
		assert.Empty(t, ps.Characteristics, "other sheets stay hidden")
		if ps.PlayerID == players[0].ID {
			assert.Equal(t,
				players[0].Characteristics[models.CharProfession],
				ps.Revealed[models.CharProfession])
		}
	}
}
