// internal/game/turn.go
package game

import (
	"log"

	"github.com/google/uuid"

	"github.com/bunkergame/bunker/internal/models"
)

// canReveal validates a reveal attempt without mutating anything.
// Assumes lock is held.
func (g *BunkerGame) canReveal(p *models.Player, key models.CharacteristicKey) (bool, string) {
	if g.Phase != PhaseTurn {
		return false, "characteristics can only be revealed during the turn phase"
	}
	cur := g.currentTurnPlayer()
	if cur == nil || cur.ID != p.ID {
		return false, "it's not your turn"
	}
	if g.TurnHasRevealed {
		return false, "you have already revealed a characteristic this turn"
	}
	if _, ok := p.Characteristics[key]; !ok {
		return false, "unknown characteristic"
	}
	if key.IsActionSlot() {
		return false, "action cards are played, not revealed"
	}
	if p.Revealed[key] {
		return false, "characteristic already revealed"
	}
	if g.CurrentRound == 1 && key != models.CharProfession {
		return false, "only the profession may be revealed in the first round"
	}
	return true, ""
}

// RevealCharacteristic discloses one characteristic for the turn player and
// pushes the deadline out by the discussion grace so the table can react
// before the turn auto-advances.
// Assumes lock is held (called from the action router and timeout path).
func (g *BunkerGame) revealCharacteristic(playerID uuid.UUID, key models.CharacteristicKey) bool {
	p := g.getPlayerByID(playerID)
	if p == nil {
		return false
	}
	ok, reason := g.canReveal(p, key)
	if !ok {
		g.rejectAction(playerID, reason)
		return false
	}

	p.Revealed[key] = true
	g.TurnHasRevealed = true
	g.setPhaseDeadline(g.RevealGrace)

	value := p.Characteristics[key]
	g.logAction(playerID, string(EventCharacteristic), map[string]interface{}{
		"key": string(key), "value": value,
	})
	g.fireEvent(GameEvent{
		Type: EventCharacteristic,
		Payload: map[string]interface{}{
			"playerId": playerID.String(),
			"key":      string(key),
			"value":    value,
			"round":    g.CurrentRound,
		},
	})
	return true
}

// nextPlayerTurn moves to the next alive player, or hands the round over to
// the discussion stage once everyone has gone.
// Assumes lock is held.
func (g *BunkerGame) nextPlayerTurn() {
	if g.Phase != PhaseTurn {
		return
	}
	g.CurrentPlayerIndex++
	alive := g.alivePlayers()
	if g.CurrentPlayerIndex >= len(alive) {
		g.transitionTo(PhaseDiscussion)
		return
	}

	g.TurnHasRevealed = false
	g.setPhaseDeadline(g.TurnDuration)
	g.fireEvent(GameEvent{
		Type: EventPlayerTurn,
		Payload: map[string]interface{}{
			"currentPlayerId": alive[g.CurrentPlayerIndex].ID.String(),
			"phaseEndsAt":     g.PhaseEndsAt.UnixMilli(),
			"round":           g.CurrentRound,
		},
	})
}

// hiddenRevealableKeys lists the characteristics the timeout auto-reveal may
// pick from, honoring the round-1 profession restriction.
// Assumes lock is held.
func (g *BunkerGame) hiddenRevealableKeys(p *models.Player) []models.CharacteristicKey {
	var keys []models.CharacteristicKey
	for _, key := range models.AllCharacteristicKeys {
		if key.IsActionSlot() || p.Revealed[key] {
			continue
		}
		if g.CurrentRound == 1 && key != models.CharProfession {
			continue
		}
		keys = append(keys, key)
	}
	return keys
}

// handleTurnTimeout is the two-stage timeout policy: a silent turn player
// first has a random hidden characteristic revealed on their behalf, and the
// turn only advances after a second expiry. Every player's information is
// eventually revealed even if they are unresponsive, and no turn is skipped
// silently.
// Assumes lock is held.
func (g *BunkerGame) handleTurnTimeout() {
	cur := g.currentTurnPlayer()
	if cur == nil {
		return
	}

	if g.TurnHasRevealed {
		g.logAction(cur.ID, "turn_timeout_advance", nil)
		g.nextPlayerTurn()
		return
	}

	keys := g.hiddenRevealableKeys(cur)
	if len(keys) == 0 {
		// Nothing left to disclose; treat as a completed turn.
		log.Printf("Game %s: player %s timed out with nothing left to reveal. Advancing.", g.ID, cur.ID)
		g.nextPlayerTurn()
		return
	}

	key := keys[g.rng.Intn(len(keys))]
	log.Printf("Game %s: player %s timed out without revealing. Auto-revealing %s.", g.ID, cur.ID, key)
	g.logAction(cur.ID, "turn_timeout_autoreveal", map[string]interface{}{"key": string(key)})

	cur.Revealed[key] = true
	g.TurnHasRevealed = true
	g.setPhaseDeadline(g.RevealGrace)
	g.fireEvent(GameEvent{
		Type: EventCharacteristic,
		Payload: map[string]interface{}{
			"playerId": cur.ID.String(),
			"key":      string(key),
			"value":    cur.Characteristics[key],
			"round":    g.CurrentRound,
			"auto":     true,
		},
	})
}

// EndTurn lets the turn player pass voluntarily once they have revealed.
// Assumes lock is held.
func (g *BunkerGame) endTurn(playerID uuid.UUID) bool {
	cur := g.currentTurnPlayer()
	if cur == nil || cur.ID != playerID {
		g.rejectAction(playerID, "it's not your turn")
		return false
	}
	if !g.TurnHasRevealed {
		g.rejectAction(playerID, "reveal a characteristic before ending your turn")
		return false
	}
	g.nextPlayerTurn()
	return true
}
