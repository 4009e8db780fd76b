// internal/game/actions_test.go
package game

import (
	"testing"
	"time"

	"github.com/bunkergame/bunker/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// giveCard plants a specific action card into a player's slot for the test.
func giveCard(g *BunkerGame, p *models.Player, slot models.CharacteristicKey, cardID string) {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	p.Characteristics[slot] = cardID
	delete(p.UsedActionCards, slot)
}

func pendingSnapshot(g *BunkerGame) *PendingAction {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	if g.PendingAction == nil {
		return nil
	}
	cp := *g.PendingAction
	return &cp
}

func TestActivateActionCard(t *testing.T) {
	g, players, mb := setupTestGame(t, 6)
	startToTurn(t, g, players[0].ID)
	giveCard(g, players[0], models.CharActionOne, "swap_profession")
	mb.clear()

	dispatch(g, players[0].ID, "action_play_card", map[string]interface{}{"slot": "action1"})

	pending := pendingSnapshot(g)
	require.NotNil(t, pending)
	assert.Equal(t, "swap_profession", pending.CardID)
	assert.Equal(t, players[0].ID, pending.PlayerID)
	assert.False(t, pending.IsCancelled)

	last := mb.getLastEvent()
	require.NotNil(t, last)
	assert.Equal(t, EventActionActivated, last.Type)
}

func TestAtMostOnePendingAction(t *testing.T) {
	g, players, mb := setupTestGame(t, 6)
	startToTurn(t, g, players[0].ID)
	giveCard(g, players[0], models.CharActionOne, "swap_profession")
	giveCard(g, players[1], models.CharActionOne, "steal_baggage")
	mb.clear()

	dispatch(g, players[0].ID, "action_play_card", map[string]interface{}{"slot": "action1"})
	dispatch(g, players[1].ID, "action_play_card", map[string]interface{}{"slot": "action1"})

	pending := pendingSnapshot(g)
	require.NotNil(t, pending)
	assert.Equal(t, players[0].ID, pending.PlayerID, "the first activation wins")
	assert.False(t, players[1].UsedActionCards[models.CharActionOne], "the loser keeps their card")

	errEv := mb.getLastPlayerEvent(players[1].ID)
	require.NotNil(t, errEv)
	assert.Equal(t, EventPrivateError, errEv.Type)
}

func TestActionActivationValidation(t *testing.T) {
	g, players, mb := setupTestGame(t, 6)
	startToTurn(t, g, players[0].ID)
	mb.clear()

	// A cancel card cannot be led with.
	giveCard(g, players[0], models.CharActionOne, "cancel")
	dispatch(g, players[0].ID, "action_play_card", map[string]interface{}{"slot": "action1"})
	assert.Nil(t, pendingSnapshot(g))

	// Non-slot keys are rejected.
	dispatch(g, players[0].ID, "action_play_card", map[string]interface{}{"slot": "hobby"})
	assert.Nil(t, pendingSnapshot(g))

	// Spent cards stay spent.
	giveCard(g, players[0], models.CharActionTwo, "reroll_health")
	g.Mu.Lock()
	players[0].UsedActionCards[models.CharActionTwo] = true
	g.Mu.Unlock()
	dispatch(g, players[0].ID, "action_play_card", map[string]interface{}{"slot": "action2"})
	assert.Nil(t, pendingSnapshot(g))

	// Eliminated players are out of the game.
	giveCard(g, players[1], models.CharActionOne, "reroll_health")
	g.Mu.Lock()
	players[1].IsEliminated = true
	g.Mu.Unlock()
	dispatch(g, players[1].ID, "action_play_card", map[string]interface{}{"slot": "action1"})
	assert.Nil(t, pendingSnapshot(g))
}

func TestCancelConsumesBothCards(t *testing.T) {
	g, players, _ := setupTestGame(t, 6)
	g.CancelWindow = 60 * time.Millisecond
	startToTurn(t, g, players[0].ID)
	giveCard(g, players[0], models.CharActionOne, "swap_profession")
	giveCard(g, players[1], models.CharActionOne, "cancel")

	applied := false
	g.ApplyEffectFn = func(g *BunkerGame, effect string, activatorID uuid.UUID, targetID *uuid.UUID) {
		applied = true
	}

	dispatch(g, players[0].ID, "action_play_card", map[string]interface{}{"slot": "action1"})
	dispatch(g, players[1].ID, "action_cancel_card", nil)

	pending := pendingSnapshot(g)
	require.NotNil(t, pending, "the cancelled action still resolves through the window expiry")
	assert.True(t, pending.IsCancelled)
	assert.Equal(t, players[1].ID, pending.CancelledBy)
	assert.True(t, players[1].UsedActionCards[models.CharActionOne], "the cancel card is spent immediately")

	time.Sleep(200 * time.Millisecond)
	assert.Nil(t, pendingSnapshot(g))
	assert.True(t, players[0].UsedActionCards[models.CharActionOne], "the cancelled card is spent too")
	assert.False(t, applied, "a cancelled effect never applies")
}

func TestCancelValidation(t *testing.T) {
	g, players, _ := setupTestGame(t, 6)
	startToTurn(t, g, players[0].ID)
	giveCard(g, players[0], models.CharActionOne, "swap_profession")
	giveCard(g, players[0], models.CharActionTwo, "cancel")
	giveCard(g, players[1], models.CharActionOne, "reroll_health")
	giveCard(g, players[1], models.CharActionTwo, "steal_baggage")

	// Nothing pending yet.
	dispatch(g, players[1].ID, "action_cancel_card", nil)

	dispatch(g, players[0].ID, "action_play_card", map[string]interface{}{"slot": "action1"})

	// The activator cannot cancel themselves, and a player without a cancel
	// card cannot cancel at all.
	dispatch(g, players[0].ID, "action_cancel_card", nil)
	dispatch(g, players[1].ID, "action_cancel_card", nil)

	pending := pendingSnapshot(g)
	require.NotNil(t, pending)
	assert.False(t, pending.IsCancelled)
}

func TestCancelDuringTargetSelectionFreesPendingSlot(t *testing.T) {
	g, players, _ := setupTestGame(t, 6)
	g.CancelWindow = 40 * time.Millisecond
	startToTurn(t, g, players[0].ID)
	giveCard(g, players[0], models.CharActionOne, "swap_profession")
	giveCard(g, players[1], models.CharActionOne, "cancel")
	giveCard(g, players[2], models.CharActionOne, "reroll_health")

	applied := false
	g.ApplyEffectFn = func(g *BunkerGame, effect string, activatorID uuid.UUID, targetID *uuid.UUID) {
		applied = true
	}

	dispatch(g, players[0].ID, "action_play_card", map[string]interface{}{"slot": "action1"})
	time.Sleep(120 * time.Millisecond)

	pending := pendingSnapshot(g)
	require.NotNil(t, pending)
	require.True(t, pending.AwaitingTarget, "the window has closed and the card waits on a target")

	// A cancel landing after the window timer has fired must resolve the
	// action on the spot; nothing else will ever clear it.
	dispatch(g, players[1].ID, "action_cancel_card", nil)

	assert.Nil(t, pendingSnapshot(g), "a cancelled target selection frees the pending slot")
	assert.True(t, players[0].UsedActionCards[models.CharActionOne])
	assert.True(t, players[1].UsedActionCards[models.CharActionOne])
	assert.False(t, applied, "a cancelled effect never applies")

	// The freed slot accepts the next activation.
	dispatch(g, players[2].ID, "action_play_card", map[string]interface{}{"slot": "action1"})
	next := pendingSnapshot(g)
	require.NotNil(t, next)
	assert.Equal(t, "reroll_health", next.CardID)
}

func TestNoTargetEffectAppliesAfterWindow(t *testing.T) {
	g, players, mb := setupTestGame(t, 6)
	g.CancelWindow = 50 * time.Millisecond
	startToTurn(t, g, players[0].ID)
	giveCard(g, players[0], models.CharActionOne, "reroll_health")

	var gotEffect string
	g.ApplyEffectFn = func(g *BunkerGame, effect string, activatorID uuid.UUID, targetID *uuid.UUID) {
		gotEffect = effect
		assert.Nil(t, targetID)
	}
	mb.clear()

	dispatch(g, players[0].ID, "action_play_card", map[string]interface{}{"slot": "action1"})
	require.NotNil(t, pendingSnapshot(g))

	time.Sleep(200 * time.Millisecond)
	assert.Nil(t, pendingSnapshot(g))
	assert.Equal(t, "reroll_health", gotEffect)
	assert.True(t, players[0].UsedActionCards[models.CharActionOne])

	appliedEvents := mb.eventsOfType(EventActionApplied)
	require.Len(t, appliedEvents, 1)
}

func TestTargetSelectionFlow(t *testing.T) {
	g, players, mb := setupTestGame(t, 6)
	g.CancelWindow = 50 * time.Millisecond
	startToTurn(t, g, players[0].ID)
	giveCard(g, players[0], models.CharActionOne, "swap_profession")

	profA := players[0].Characteristics[models.CharProfession]
	profB := players[1].Characteristics[models.CharProfession]
	mb.clear()

	dispatch(g, players[0].ID, "action_play_card", map[string]interface{}{"slot": "action1"})
	time.Sleep(200 * time.Millisecond)

	pending := pendingSnapshot(g)
	require.NotNil(t, pending)
	assert.True(t, pending.AwaitingTarget)
	require.NotEmpty(t, mb.eventsOfType(EventActionNeedsTarget))

	// Only the activator picks, and self-targeting is outside the pool.
	dispatch(g, players[1].ID, "action_choose_target", map[string]interface{}{"targetId": players[2].ID.String()})
	dispatch(g, players[0].ID, "action_choose_target", map[string]interface{}{"targetId": players[0].ID.String()})
	require.NotNil(t, pendingSnapshot(g))

	dispatch(g, players[0].ID, "action_choose_target", map[string]interface{}{"targetId": players[1].ID.String()})
	assert.Nil(t, pendingSnapshot(g))
	assert.Equal(t, profB, players[0].Characteristics[models.CharProfession])
	assert.Equal(t, profA, players[1].Characteristics[models.CharProfession])
}

func TestEmptyTargetPoolFizzles(t *testing.T) {
	g, players, mb := setupTestGame(t, 6)
	g.CancelWindow = 50 * time.Millisecond
	startToTurn(t, g, players[0].ID)
	// Nobody is eliminated, so a grave-robbing card has no legal target.
	giveCard(g, players[0], models.CharActionOne, "loot_baggage")

	applied := false
	g.ApplyEffectFn = func(g *BunkerGame, effect string, activatorID uuid.UUID, targetID *uuid.UUID) {
		applied = true
	}
	mb.clear()

	dispatch(g, players[0].ID, "action_play_card", map[string]interface{}{"slot": "action1"})
	time.Sleep(200 * time.Millisecond)

	assert.Nil(t, pendingSnapshot(g))
	assert.False(t, applied)
	assert.True(t, players[0].UsedActionCards[models.CharActionOne], "a fizzled card is still spent")
	require.Len(t, mb.eventsOfType(EventActionFizzled), 1)
}

func TestResultsOnlyCard(t *testing.T) {
	g, players, _ := setupTestGame(t, 6)
	g.CancelWindow = 50 * time.Millisecond
	startToTurn(t, g, players[0].ID)
	giveCard(g, players[0], models.CharActionOne, "expand_bunker")

	// Not during the turn phase.
	dispatch(g, players[0].ID, "action_play_card", map[string]interface{}{"slot": "action1"})
	assert.Nil(t, pendingSnapshot(g))

	enterPhase(g, PhaseVoting)
	enterPhase(g, PhaseResults)

	g.Mu.Lock()
	slotsBefore := g.BunkerSlots
	g.Mu.Unlock()

	dispatch(g, players[0].ID, "action_play_card", map[string]interface{}{"slot": "action1"})
	require.NotNil(t, pendingSnapshot(g))
	time.Sleep(200 * time.Millisecond)

	g.Mu.Lock()
	assert.Equal(t, slotsBefore+1, g.BunkerSlots)
	g.Mu.Unlock()
	assert.Nil(t, pendingSnapshot(g))
}

func TestForceRevealBiologyTargetsClosedOnly(t *testing.T) {
	g, players, _ := setupTestGame(t, 6)
	g.CancelWindow = 50 * time.Millisecond
	startToTurn(t, g, players[0].ID)
	giveCard(g, players[0], models.CharActionOne, "reveal_biology")

	// Everyone except players[1] has already shown their biology.
	g.Mu.Lock()
	for _, p := range players[2:] {
		p.Revealed[models.CharBiology] = true
	}
	g.Mu.Unlock()

	dispatch(g, players[0].ID, "action_play_card", map[string]interface{}{"slot": "action1"})
	time.Sleep(200 * time.Millisecond)

	pending := pendingSnapshot(g)
	require.NotNil(t, pending)
	require.True(t, pending.AwaitingTarget)

	// An open biology is not a legal target.
	dispatch(g, players[0].ID, "action_choose_target", map[string]interface{}{"targetId": players[2].ID.String()})
	require.NotNil(t, pendingSnapshot(g))

	dispatch(g, players[0].ID, "action_choose_target", map[string]interface{}{"targetId": players[1].ID.String()})
	assert.Nil(t, pendingSnapshot(g))
	assert.True(t, players[1].Revealed[models.CharBiology])
}
