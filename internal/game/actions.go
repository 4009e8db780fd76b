// internal/game/actions.go
package game

import (
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/bunkergame/bunker/internal/content"
	"github.com/bunkergame/bunker/internal/models"
)

// PendingAction is the single in-flight activated action card. Card fields
// are copied from the static pool at activation time so concurrent edits to
// the content can never alter an effect already in motion.
type PendingAction struct {
	PlayerID uuid.UUID                `json:"playerId"`
	Slot     models.CharacteristicKey `json:"slot"`

	CardID         string            `json:"cardId"`
	Name           string            `json:"name"`
	Description    string            `json:"description"`
	Effect         string            `json:"effect"`
	RequiresTarget bool              `json:"requiresTarget"`
	TargetType     models.TargetType `json:"targetType"`

	ExpiresAt   time.Time `json:"expiresAt"`
	IsCancelled bool      `json:"isCancelled"`
	CancelledBy uuid.UUID `json:"cancelledBy,omitempty"`

	// AwaitingTarget is set once the cancel window closes on a card that
	// still needs its target chosen by the activator.
	AwaitingTarget bool       `json:"awaitingTarget"`
	TargetID       *uuid.UUID `json:"targetId,omitempty"`
}

// activateActionCard plays one of the activator's action slots. The nil check
// on PendingAction under the game lock is the conditional set that keeps the
// at-most-one-pending invariant: two racing activations resolve to exactly
// one winner and one clean rejection.
// Assumes lock is held.
func (g *BunkerGame) activateActionCard(playerID uuid.UUID, slot models.CharacteristicKey) bool {
	p := g.getPlayerByID(playerID)
	if p == nil || p.IsEliminated {
		g.rejectAction(playerID, "eliminated players cannot play action cards")
		return false
	}
	if g.Phase == PhaseLobby || g.Phase == PhaseGameOver {
		g.rejectAction(playerID, "action cards cannot be played right now")
		return false
	}
	if !slot.IsActionSlot() {
		g.rejectAction(playerID, "not an action card slot")
		return false
	}
	if p.UsedActionCards[slot] {
		g.rejectAction(playerID, "that action card has already been used")
		return false
	}
	card, ok := content.ActionCardByID(p.Characteristics[slot])
	if !ok {
		g.rejectAction(playerID, "unknown action card")
		return false
	}
	if card.IsCancel {
		g.rejectAction(playerID, "cancel cards can only interrupt another action")
		return false
	}
	if card.OnlyAfterResults && g.Phase != PhaseResults {
		g.rejectAction(playerID, "this card can only be played after voting results")
		return false
	}
	if g.PendingAction != nil {
		g.rejectAction(playerID, "another action is already pending")
		return false
	}

	g.PendingAction = &PendingAction{
		PlayerID:       playerID,
		Slot:           slot,
		CardID:         card.ID,
		Name:           card.Name,
		Description:    card.Description,
		Effect:         card.Effect,
		RequiresTarget: card.RequiresTarget,
		TargetType:     card.TargetType,
		ExpiresAt:      time.Now().Add(g.CancelWindow),
	}
	g.scheduleActionWindow()

	g.logAction(playerID, string(EventActionActivated), map[string]interface{}{
		"cardId": card.ID, "slot": string(slot),
	})
	g.fireEvent(GameEvent{
		Type: EventActionActivated,
		Payload: map[string]interface{}{
			"playerId":  playerID.String(),
			"cardId":    card.ID,
			"name":      card.Name,
			"expiresAt": g.PendingAction.ExpiresAt.UnixMilli(),
		},
	})
	return true
}

// scheduleActionWindow arms the cancel-window expiry with the usual staleness
// guard.
// Assumes lock is held.
func (g *BunkerGame) scheduleActionWindow() {
	g.actionSeq++
	seq := g.actionSeq
	if g.actionTimer != nil {
		g.actionTimer.Stop()
	}
	g.actionTimer = time.AfterFunc(g.CancelWindow, func() {
		g.Mu.Lock()
		defer g.Mu.Unlock()
		if g.actionSeq != seq || g.PendingAction == nil || g.Phase == PhaseGameOver {
			return
		}
		g.resolveActionWindow()
	})
}

// cancelActionCard lets another player interrupt the pending action with an
// unused cancel card, at any point before the effect applies. Within the
// cancel window the cancelled action still resolves through the window expiry
// so every observer sees the cancelled state render before the slot frees up.
// A cancel landing during target selection resolves immediately instead: the
// window timer has already fired and would never run again.
// Assumes lock is held.
func (g *BunkerGame) cancelActionCard(playerID uuid.UUID) bool {
	pending := g.PendingAction
	if pending == nil {
		g.rejectAction(playerID, "no action to cancel")
		return false
	}
	if pending.IsCancelled {
		g.rejectAction(playerID, "the action is already cancelled")
		return false
	}
	if pending.PlayerID == playerID {
		g.rejectAction(playerID, "you cannot cancel your own action")
		return false
	}
	p := g.getPlayerByID(playerID)
	if p == nil || p.IsEliminated {
		g.rejectAction(playerID, "eliminated players cannot cancel actions")
		return false
	}

	var cancelSlot models.CharacteristicKey
	for _, slot := range models.ActionSlots() {
		if p.UsedActionCards[slot] {
			continue
		}
		card, ok := content.ActionCardByID(p.Characteristics[slot])
		if ok && card.IsCancel {
			cancelSlot = slot
			break
		}
	}
	if cancelSlot == "" {
		g.rejectAction(playerID, "you have no unused cancel card")
		return false
	}

	wasAwaitingTarget := pending.AwaitingTarget
	pending.IsCancelled = true
	pending.CancelledBy = playerID
	pending.AwaitingTarget = false
	p.UsedActionCards[cancelSlot] = true

	g.logAction(playerID, string(EventActionCancelled), map[string]interface{}{
		"cardId": pending.CardID, "activatorId": pending.PlayerID.String(),
	})
	g.fireEvent(GameEvent{
		Type: EventActionCancelled,
		Payload: map[string]interface{}{
			"playerId":    playerID.String(),
			"activatorId": pending.PlayerID.String(),
			"cardId":      pending.CardID,
		},
	})

	if wasAwaitingTarget {
		g.consumePendingAction("cancelled")
	}
	return true
}

// targetPool computes the selectable targets for the pending action's type.
// Assumes lock is held.
func (g *BunkerGame) targetPool(pending *PendingAction) []*models.Player {
	var pool []*models.Player
	switch pending.TargetType {
	case models.TargetOther:
		for _, p := range g.alivePlayers() {
			if p.ID != pending.PlayerID {
				pool = append(pool, p)
			}
		}
	case models.TargetAny:
		pool = g.alivePlayers()
	case models.TargetEliminated:
		for _, p := range g.Players {
			if p.IsEliminated && p.ID != pending.PlayerID {
				pool = append(pool, p)
			}
		}
	case models.TargetClosedBiology:
		for _, p := range g.alivePlayers() {
			if p.ID != pending.PlayerID && !p.Revealed[models.CharBiology] {
				pool = append(pool, p)
			}
		}
	}
	return pool
}

// resolveActionWindow runs when the cancel window closes: a cancelled action
// is consumed with no effect, a card needing a target opens the selection
// sub-state (or fizzles when the pool is empty), and anything else applies
// immediately.
// Assumes lock is held.
func (g *BunkerGame) resolveActionWindow() {
	pending := g.PendingAction
	if pending == nil {
		return
	}

	if pending.IsCancelled {
		g.consumePendingAction("cancelled")
		return
	}

	if pending.RequiresTarget {
		pool := g.targetPool(pending)
		if len(pool) == 0 {
			// No valid targets; resolve with no effect rather than hang.
			log.Printf("Game %s: action %s has no valid targets, fizzling.", g.ID, pending.CardID)
			g.logAction(pending.PlayerID, string(EventActionFizzled), map[string]interface{}{"cardId": pending.CardID})
			g.fireEvent(GameEvent{
				Type: EventActionFizzled,
				Payload: map[string]interface{}{
					"playerId": pending.PlayerID.String(),
					"cardId":   pending.CardID,
				},
			})
			g.consumePendingAction("fizzled")
			return
		}

		pending.AwaitingTarget = true
		ids := make([]string, len(pool))
		for i, p := range pool {
			ids[i] = p.ID.String()
		}
		g.fireEvent(GameEvent{
			Type: EventActionNeedsTarget,
			Payload: map[string]interface{}{
				"playerId": pending.PlayerID.String(),
				"cardId":   pending.CardID,
				"targets":  ids,
			},
		})
		return
	}

	g.applyPendingAction()
}

// chooseActionTarget is the activator picking a target during the selection
// sub-state, which applies the action.
// Assumes lock is held.
func (g *BunkerGame) chooseActionTarget(playerID, targetID uuid.UUID) bool {
	pending := g.PendingAction
	if pending == nil || !pending.AwaitingTarget {
		g.rejectAction(playerID, "no action is waiting for a target")
		return false
	}
	if pending.PlayerID != playerID {
		g.rejectAction(playerID, "only the activator chooses the target")
		return false
	}
	valid := false
	for _, p := range g.targetPool(pending) {
		if p.ID == targetID {
			valid = true
			break
		}
	}
	if !valid {
		g.rejectAction(playerID, "invalid target for this card")
		return false
	}

	pending.TargetID = &targetID
	pending.AwaitingTarget = false
	g.applyPendingAction()
	return true
}

// applyPendingAction invokes the effect and retires the card.
// Assumes lock is held.
func (g *BunkerGame) applyPendingAction() {
	pending := g.PendingAction
	if pending == nil || pending.IsCancelled {
		return
	}

	fn := g.ApplyEffectFn
	if fn == nil {
		fn = applyContentEffect
	}
	fn(g, pending.Effect, pending.PlayerID, pending.TargetID)

	payload := map[string]interface{}{
		"playerId": pending.PlayerID.String(),
		"cardId":   pending.CardID,
		"effect":   pending.Effect,
	}
	if pending.TargetID != nil {
		payload["targetId"] = pending.TargetID.String()
	}
	g.logAction(pending.PlayerID, string(EventActionApplied), payload)
	g.fireEvent(GameEvent{Type: EventActionApplied, Payload: payload})

	g.consumePendingAction("applied")
}

// consumePendingAction marks the activator's slot used and frees the global
// pending slot, always within the same locked step.
// Assumes lock is held.
func (g *BunkerGame) consumePendingAction(outcome string) {
	pending := g.PendingAction
	if pending == nil {
		return
	}
	if p := g.getPlayerByID(pending.PlayerID); p != nil {
		p.UsedActionCards[pending.Slot] = true
	}
	g.PendingAction = nil
	if g.actionTimer != nil {
		g.actionTimer.Stop()
		g.actionTimer = nil
	}
	g.logAction(pending.PlayerID, "action_resolved", map[string]interface{}{
		"cardId": pending.CardID, "outcome": outcome,
	})
}

// applyContentEffect is the default effect implementation for the built-in
// card pool. Effects are content behavior, so unknown names are ignored
// rather than treated as engine errors.
func applyContentEffect(g *BunkerGame, effect string, activatorID uuid.UUID, targetID *uuid.UUID) {
	activator := g.getPlayerByID(activatorID)
	if activator == nil {
		return
	}
	var target *models.Player
	if targetID != nil {
		target = g.getPlayerByID(*targetID)
	}

	switch effect {
	case "swap_profession":
		if target != nil {
			a, b := activator.Characteristics, target.Characteristics
			a[models.CharProfession], b[models.CharProfession] = b[models.CharProfession], a[models.CharProfession]
		}
	case "force_reveal_biology":
		if target != nil && !target.Revealed[models.CharBiology] {
			target.Revealed[models.CharBiology] = true
			g.fireEvent(GameEvent{
				Type: EventCharacteristic,
				Payload: map[string]interface{}{
					"playerId": target.ID.String(),
					"key":      string(models.CharBiology),
					"value":    target.Characteristics[models.CharBiology],
					"forced":   true,
				},
			})
		}
	case "reroll_health":
		activator.Characteristics[models.CharHealth] = content.RandomHealth(g.rng)
	case "reroll_health_target":
		if target != nil {
			target.Characteristics[models.CharHealth] = content.RandomHealth(g.rng)
		}
	case "steal_baggage":
		if target != nil {
			a, b := activator.Characteristics, target.Characteristics
			a[models.CharBaggage], b[models.CharBaggage] = b[models.CharBaggage], a[models.CharBaggage]
		}
	case "loot_baggage":
		if target != nil {
			activator.Characteristics[models.CharBaggage] = target.Characteristics[models.CharBaggage]
		}
	case "expand_bunker":
		g.BunkerSlots++
	}
}
