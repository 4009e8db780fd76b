// internal/game/game.go
package game

import (
	"context"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/bunkergame/bunker/internal/cache"
	"github.com/bunkergame/bunker/internal/content"
	"github.com/bunkergame/bunker/internal/models"
)

// OnGameEndFunc can handle a finished game, e.g. persist results or notify a lobby list.
type OnGameEndFunc func(gameID string, survivors []uuid.UUID)

// GameEventType is an enum-like type for broadcasting game events.
type GameEventType string

const (
	EventPlayerJoin         GameEventType = "player_join"
	EventPlayerLeave        GameEventType = "player_leave"
	EventGameStart          GameEventType = "game_start"
	EventPhaseChange        GameEventType = "phase_change"
	EventPlayerTurn         GameEventType = "player_turn"
	EventCharacteristic     GameEventType = "characteristic_revealed"
	EventVoteCast           GameEventType = "vote_cast"
	EventVotingResults      GameEventType = "voting_results"
	EventPlayerEliminated   GameEventType = "player_eliminated"
	EventActionActivated    GameEventType = "action_activated"
	EventActionCancelled    GameEventType = "action_cancelled"
	EventActionNeedsTarget  GameEventType = "action_needs_target"
	EventActionApplied      GameEventType = "action_applied"
	EventActionFizzled      GameEventType = "action_fizzled"
	EventGameOver           GameEventType = "game_over"
	EventPrivateError       GameEventType = "private_error"
	EventPrivateSyncState   GameEventType = "private_sync_state"
	EventPrivateCharSheet   GameEventType = "private_characteristics"
)

// GameEvent holds data about an event broadcast to clients.
type GameEvent struct {
	Type    GameEventType          `json:"type"`
	Payload map[string]interface{} `json:"payload,omitempty"`

	// State is filled for private sync events.
	State *ObfGameState `json:"state,omitempty"`
}

// EffectFunc applies a named action-card effect. Effects are game content,
// not engine logic; the engine invokes them as a black box once an action
// survives its cancel window and resolves a target.
type EffectFunc func(g *BunkerGame, effect string, activatorID uuid.UUID, targetID *uuid.UUID)

// BunkerGame holds the entire authoritative state for one match. All
// mutations happen under Mu; every exported operation is a single indivisible
// step from the perspective of concurrent callers, which is how racing votes,
// activations and timer expiries stay coherent.
type BunkerGame struct {
	ID string // short join code, immutable

	Phase              Phase
	CurrentRound       int
	CurrentPlayerIndex int // index into the alive-player sequence during the turn phase
	BunkerSlots        int
	PhaseEndsAt        *time.Time
	TurnHasRevealed    bool

	// Votes maps voter -> target and is the canonical tally; the per-player
	// VotesAgainst counters are caches recomputed from it on every cast.
	Votes       map[uuid.UUID]uuid.UUID
	TiedPlayers map[uuid.UUID]bool
	IsRevote    bool

	// PendingAction is the single in-flight action card, nil when none.
	// Activation does a conditional set under Mu so two activations can
	// never race into existence.
	PendingAction *PendingAction

	Scenario content.Scenario

	Players []*models.Player

	Mu sync.Mutex

	// phaseSeq increments whenever the phase deadline changes; timer
	// callbacks compare it to detect staleness before firing side effects.
	phaseSeq   int
	phaseTimer *time.Timer

	actionSeq   int
	actionTimer *time.Timer

	resultsTimer *time.Timer

	actionIndex int // historian ordering counter

	rng *rand.Rand

	// Phase/turn durations. Overridable for tests; zero disables a deadline.
	TurnDuration       time.Duration
	RevealGrace        time.Duration
	DiscussionDuration time.Duration
	DefenseDuration    time.Duration
	CancelWindow       time.Duration
	ResultsGrace       time.Duration

	// BroadcastFn sends an event to all connected players. If nil, no broadcast is done.
	BroadcastFn func(ev GameEvent)

	// BroadcastToPlayerFn sends an event to a single specific player.
	BroadcastToPlayerFn func(playerID uuid.UUID, ev GameEvent)

	// ApplyEffectFn resolves action-card effects. Defaults to the built-in
	// content effects when nil.
	ApplyEffectFn EffectFunc

	// OnGameEnd is invoked once when the game reaches gameover.
	OnGameEnd OnGameEndFunc
}

const (
	MinPlayers = 6
	MaxPlayers = 15
)

var codeAlphabet = []rune("ABCDEFGHJKMNPQRSTUVWXYZ23456789")

func newJoinCode(r *rand.Rand) string {
	var b strings.Builder
	for i := 0; i < 6; i++ {
		b.WriteRune(codeAlphabet[r.Intn(len(codeAlphabet))])
	}
	return b.String()
}

// NewBunkerGame builds an empty game in the lobby phase with a freshly
// rolled scenario.
func NewBunkerGame() *BunkerGame {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	g := &BunkerGame{
		ID:           newJoinCode(rng),
		Phase:        PhaseLobby,
		CurrentRound: 0,
		Votes:        make(map[uuid.UUID]uuid.UUID),
		TiedPlayers:  make(map[uuid.UUID]bool),
		Scenario:     content.NewScenario(rng),
		rng:          rng,

		TurnDuration:       60 * time.Second,
		RevealGrace:        5 * time.Minute,
		DiscussionDuration: 30 * time.Second,
		DefenseDuration:    3 * time.Minute,
		CancelWindow:       4 * time.Second,
		ResultsGrace:       2 * time.Second,
	}
	return g
}

// BunkerSlotsForPlayerCount is the fixed survivor lookup set at game start.
func BunkerSlotsForPlayerCount(n int) int {
	switch {
	case n <= 7:
		return 3
	case n <= 9:
		return 4
	case n <= 11:
		return 5
	case n <= 13:
		return 6
	default:
		return 7
	}
}

// AddPlayer joins a participant to the lobby, dealing their characteristic
// sheet, or re-attaches the connection if the id is already seated. Joins are
// rejected once the game has left the lobby.
func (g *BunkerGame) AddPlayer(p *models.Player) bool {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	for i, pl := range g.Players {
		if pl.ID == p.ID {
			g.Players[i].Conn = p.Conn
			g.Players[i].Connected = true
			log.Printf("Player %s reconnected to game %s", p.ID, g.ID)
			g.logAction(p.ID, "player_add", map[string]interface{}{"reconnect": true})
			return true
		}
	}

	if g.Phase != PhaseLobby {
		log.Printf("Player %s cannot join game %s: game already started.", p.ID, g.ID)
		return false
	}
	if len(g.Players) >= MaxPlayers {
		log.Printf("Player %s cannot join game %s: table is full.", p.ID, g.ID)
		return false
	}

	if len(g.Players) == 0 {
		p.IsHost = true
	}
	p.Characteristics = content.GenerateCharacteristics(g.rng)
	p.Revealed = make(map[models.CharacteristicKey]bool)
	p.UsedActionCards = make(map[models.CharacteristicKey]bool)
	g.Players = append(g.Players, p)

	g.logAction(p.ID, "player_add", map[string]interface{}{"reconnect": false})
	g.fireEvent(GameEvent{
		Type: EventPlayerJoin,
		Payload: map[string]interface{}{
			"playerId":    p.ID.String(),
			"username":    p.Username,
			"playerCount": len(g.Players),
		},
	})
	g.sendSyncState(p.ID)
	return true
}

// alivePlayers returns the stable alive sequence: original join order with
// eliminated players skipped, never re-indexed.
// Assumes lock is held.
func (g *BunkerGame) alivePlayers() []*models.Player {
	alive := make([]*models.Player, 0, len(g.Players))
	for _, p := range g.Players {
		if !p.IsEliminated {
			alive = append(alive, p)
		}
	}
	return alive
}

// currentTurnPlayer returns the alive player whose turn it is, or nil.
// Assumes lock is held.
func (g *BunkerGame) currentTurnPlayer() *models.Player {
	alive := g.alivePlayers()
	if g.Phase != PhaseTurn || g.CurrentPlayerIndex < 0 || g.CurrentPlayerIndex >= len(alive) {
		return nil
	}
	return alive[g.CurrentPlayerIndex]
}

func (g *BunkerGame) getPlayerByID(playerID uuid.UUID) *models.Player {
	for _, p := range g.Players {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

func (g *BunkerGame) hostID() uuid.UUID {
	for _, p := range g.Players {
		if p.IsHost {
			return p.ID
		}
	}
	return uuid.Nil
}

// RebindPlayer reassigns a seated player's slot to a new session identity,
// preserving every other field. Used by the rejoin-token recovery flow.
func (g *BunkerGame) RebindPlayer(oldID, newID uuid.UUID) bool {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if g.getPlayerByID(newID) != nil {
		return false
	}
	p := g.getPlayerByID(oldID)
	if p == nil {
		return false
	}

	// Carry votes and tie membership over to the new identity.
	if target, ok := g.Votes[oldID]; ok {
		delete(g.Votes, oldID)
		g.Votes[newID] = target
	}
	for voter, target := range g.Votes {
		if target == oldID {
			g.Votes[voter] = newID
		}
	}
	if g.TiedPlayers[oldID] {
		delete(g.TiedPlayers, oldID)
		g.TiedPlayers[newID] = true
	}
	if g.PendingAction != nil {
		if g.PendingAction.PlayerID == oldID {
			g.PendingAction.PlayerID = newID
		}
		if g.PendingAction.TargetID != nil && *g.PendingAction.TargetID == oldID {
			g.PendingAction.TargetID = &newID
		}
	}

	p.ID = newID
	p.Connected = false
	p.Conn = nil
	g.logAction(newID, "player_rebind", map[string]interface{}{"oldId": oldID.String()})
	return true
}

// HandleDisconnect marks a player disconnected. During the lobby phase the
// seat is released entirely; once the game is running the seat survives so
// the player can rejoin.
func (g *BunkerGame) HandleDisconnect(playerID uuid.UUID) {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	p := g.getPlayerByID(playerID)
	if p == nil || !p.Connected {
		return
	}
	p.Connected = false
	p.Conn = nil
	g.logAction(playerID, "player_disconnect", nil)

	if g.Phase == PhaseLobby {
		wasHost := p.IsHost
		for i, pl := range g.Players {
			if pl.ID == playerID {
				g.Players = append(g.Players[:i], g.Players[i+1:]...)
				break
			}
		}
		if wasHost && len(g.Players) > 0 {
			g.Players[0].IsHost = true
		}
		g.fireEvent(GameEvent{
			Type: EventPlayerLeave,
			Payload: map[string]interface{}{
				"playerId":    playerID.String(),
				"playerCount": len(g.Players),
			},
		})
		return
	}

	g.broadcastSyncStateToAll()
}

// HandleReconnect re-attaches a connection mid-game and replays the current
// state privately.
func (g *BunkerGame) HandleReconnect(playerID uuid.UUID, conn *websocket.Conn) {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	p := g.getPlayerByID(playerID)
	if p == nil {
		if conn != nil {
			conn.Close(websocket.StatusPolicyViolation, "you are not seated in this game")
		}
		return
	}
	p.Conn = conn
	p.Connected = true
	g.logAction(playerID, "player_reconnect", nil)
	g.sendSyncState(playerID)
	g.broadcastSyncStateToAll()
}

// fireEvent broadcasts an event to all connected players.
// Assumes lock is held.
func (g *BunkerGame) fireEvent(ev GameEvent) {
	if g.BroadcastFn != nil {
		g.BroadcastFn(ev)
	}
}

// fireEventToPlayer sends an event only to a specific player.
// Assumes lock is held.
func (g *BunkerGame) fireEventToPlayer(playerID uuid.UUID, ev GameEvent) {
	if g.BroadcastToPlayerFn == nil {
		return
	}
	p := g.getPlayerByID(playerID)
	if p != nil && p.Connected {
		g.BroadcastToPlayerFn(playerID, ev)
	}
}

// rejectAction reports a validation failure back to the caller without
// mutating anything.
// Assumes lock is held.
func (g *BunkerGame) rejectAction(playerID uuid.UUID, reason string) {
	g.fireEventToPlayer(playerID, GameEvent{
		Type:    EventPrivateError,
		Payload: map[string]interface{}{"message": reason},
	})
}

// logAction sends the action details to the historian service via Redis.
// Assumes lock is held by caller.
func (g *BunkerGame) logAction(actorID uuid.UUID, actionType string, payload map[string]interface{}) {
	g.actionIndex++
	if payload == nil {
		payload = make(map[string]interface{})
	}
	record := cache.GameActionRecord{
		GameID:        g.ID,
		ActionIndex:   g.actionIndex,
		ActorUserID:   actorID,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	}
	go func(rec cache.GameActionRecord) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if cache.Rdb == nil {
			return
		}
		if err := cache.PublishGameAction(ctx, rec); err != nil {
			log.Printf("Error publishing game action %d to Redis for game %s: %v", rec.ActionIndex, g.ID, err)
		}
	}(record)
}

// sendSyncState sends the obfuscated game state to a specific player.
// Assumes lock is held by caller.
func (g *BunkerGame) sendSyncState(playerID uuid.UUID) {
	if g.BroadcastToPlayerFn == nil {
		return
	}
	state := g.obfuscatedState(playerID)
	g.fireEventToPlayer(playerID, GameEvent{
		Type:  EventPrivateSyncState,
		State: &state,
	})
}

// broadcastSyncStateToAll sends a per-player state snapshot to every
// connected player.
// Assumes lock is held by caller.
func (g *BunkerGame) broadcastSyncStateToAll() {
	for _, p := range g.Players {
		if p.Connected {
			g.sendSyncState(p.ID)
		}
	}
}
