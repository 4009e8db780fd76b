// internal/game/handlers.go
package game

import (
	"log"

	"github.com/google/uuid"

	"github.com/bunkergame/bunker/internal/models"
)

// HandlePlayerAction interprets a participant's message and routes it to the
// matching engine operation. Each branch is a single atomic step under the
// game lock; validation failures reply privately and mutate nothing.
// Assumes lock is held by the caller (e.g. the WS read loop).
func (g *BunkerGame) HandlePlayerAction(playerID uuid.UUID, action models.GameAction) {
	if g.Phase == PhaseGameOver {
		log.Printf("Game %s: action %s from %s after game over. Ignoring.", g.ID, action.ActionType, playerID)
		return
	}

	p := g.getPlayerByID(playerID)
	if p == nil {
		log.Printf("Game %s: action %s from unknown player %s. Ignoring.", g.ID, action.ActionType, playerID)
		return
	}

	switch action.ActionType {
	case "action_start_game":
		g.startGame(playerID)

	case "action_advance_phase":
		g.advancePhase(playerID)

	case "action_reveal":
		key, ok := action.Payload["key"].(string)
		if !ok {
			g.rejectAction(playerID, "missing characteristic key")
			return
		}
		g.revealCharacteristic(playerID, models.CharacteristicKey(key))

	case "action_end_turn":
		g.endTurn(playerID)

	case "action_vote":
		targetStr, _ := action.Payload["targetId"].(string)
		targetID, err := uuid.Parse(targetStr)
		if err != nil {
			g.rejectAction(playerID, "invalid vote target id")
			return
		}
		g.castVote(playerID, targetID)

	case "action_play_card":
		slot, ok := action.Payload["slot"].(string)
		if !ok {
			g.rejectAction(playerID, "missing action card slot")
			return
		}
		g.activateActionCard(playerID, models.CharacteristicKey(slot))

	case "action_cancel_card":
		g.cancelActionCard(playerID)

	case "action_choose_target":
		targetStr, _ := action.Payload["targetId"].(string)
		targetID, err := uuid.Parse(targetStr)
		if err != nil {
			g.rejectAction(playerID, "invalid target id")
			return
		}
		g.chooseActionTarget(playerID, targetID)

	default:
		log.Printf("Game %s: unknown action type %q from player %s.", g.ID, action.ActionType, playerID)
		g.rejectAction(playerID, "unknown action type")
	}
}
