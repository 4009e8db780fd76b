// internal/game/phases.go
package game

import (
	"log"
	"time"

	"github.com/google/uuid"
)

// Phase is one discrete stage of a round.
type Phase string

const (
	PhaseLobby        Phase = "lobby"
	PhaseIntroduction Phase = "introduction"
	PhaseTurn         Phase = "turn"
	PhaseDiscussion   Phase = "discussion"
	PhaseDefense      Phase = "defense"
	PhaseVoting       Phase = "voting"
	PhaseResults      Phase = "results"
	PhaseFarewell     Phase = "farewell"
	PhaseGameOver     Phase = "gameover"
)

func (p Phase) String() string { return string(p) }

// transitionTo performs a phase change with its bundled side effects. Every
// transition first checks the end condition: once the alive players fit the
// bunker, the game goes terminal regardless of the requested phase.
// Assumes lock is held.
func (g *BunkerGame) transitionTo(next Phase) {
	if g.Phase == PhaseGameOver {
		return
	}
	if next != PhaseGameOver && len(g.alivePlayers()) <= g.BunkerSlots && g.Phase != PhaseLobby {
		g.endGame()
		return
	}

	prev := g.Phase
	g.Phase = next

	switch next {
	case PhaseIntroduction:
		g.clearPhaseDeadline()

	case PhaseTurn:
		g.CurrentPlayerIndex = 0
		g.TurnHasRevealed = false
		g.setPhaseDeadline(g.TurnDuration)

	case PhaseDiscussion:
		// Round 1 gets a timed discussion before a second reveal round;
		// later rounds discuss until the host moves to the defense stage.
		if g.CurrentRound == 1 {
			g.setPhaseDeadline(g.DiscussionDuration)
		} else {
			g.clearPhaseDeadline()
		}

	case PhaseDefense:
		if g.IsRevote {
			g.setPhaseDeadline(g.DefenseDuration)
		} else {
			g.clearPhaseDeadline()
		}

	case PhaseVoting:
		g.resetVotes()
		g.clearPhaseDeadline()

	case PhaseResults:
		g.clearPhaseDeadline()

	case PhaseFarewell:
		g.clearPhaseDeadline()

	case PhaseGameOver:
		g.endGame()
		return
	}

	log.Printf("Game %s: phase %s -> %s (round %d)", g.ID, prev, g.Phase, g.CurrentRound)
	g.logAction(uuid.Nil, string(EventPhaseChange), map[string]interface{}{
		"from": string(prev), "to": string(g.Phase), "round": g.CurrentRound,
	})
	g.fireEvent(GameEvent{
		Type:    EventPhaseChange,
		Payload: g.phasePayload(),
	})
}

// phasePayload is the common broadcast body for phase-affecting events.
// Assumes lock is held.
func (g *BunkerGame) phasePayload() map[string]interface{} {
	payload := map[string]interface{}{
		"phase":       string(g.Phase),
		"round":       g.CurrentRound,
		"bunkerSlots": g.BunkerSlots,
	}
	if g.PhaseEndsAt != nil {
		payload["phaseEndsAt"] = g.PhaseEndsAt.UnixMilli()
	}
	if g.Phase == PhaseTurn {
		if cur := g.currentTurnPlayer(); cur != nil {
			payload["currentPlayerId"] = cur.ID.String()
		}
	}
	if g.IsRevote {
		tied := make([]string, 0, len(g.TiedPlayers))
		for id := range g.TiedPlayers {
			tied = append(tied, id.String())
		}
		payload["tiedPlayers"] = tied
		payload["isRevote"] = true
	}
	return payload
}

// StartGame moves the lobby into the introduction phase. Host only, at least
// six players required; the survivor count is fixed from the table size here
// and never changes (short of an action card saying otherwise).
func (g *BunkerGame) StartGame(requesterID uuid.UUID) bool {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.startGame(requesterID)
}

// Assumes lock is held.
func (g *BunkerGame) startGame(requesterID uuid.UUID) bool {
	if g.Phase != PhaseLobby {
		g.rejectAction(requesterID, "game already started")
		return false
	}
	if requesterID != g.hostID() {
		g.rejectAction(requesterID, "only the host can start the game")
		return false
	}
	if len(g.Players) < MinPlayers {
		g.rejectAction(requesterID, "at least 6 players are required")
		return false
	}

	g.CurrentRound = 1
	g.BunkerSlots = BunkerSlotsForPlayerCount(len(g.Players))
	g.transitionTo(PhaseIntroduction)

	g.logAction(requesterID, string(EventGameStart), map[string]interface{}{
		"players":     len(g.Players),
		"bunkerSlots": g.BunkerSlots,
	})
	g.fireEvent(GameEvent{
		Type: EventGameStart,
		Payload: map[string]interface{}{
			"bunkerSlots": g.BunkerSlots,
			"bunker":      g.Scenario.Bunker,
			"catastrophe": g.Scenario.Catastrophe,
		},
	})
	// Each player privately receives their full characteristic sheet.
	for _, p := range g.Players {
		g.fireEventToPlayer(p.ID, GameEvent{
			Type:    EventPrivateCharSheet,
			Payload: map[string]interface{}{"characteristics": p.Characteristics},
		})
	}
	return true
}

// AdvancePhase is the host's manual progression control. It dispatches on the
// current phase; phases that advance automatically (turn, voting results)
// reject it.
func (g *BunkerGame) AdvancePhase(requesterID uuid.UUID) bool {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.advancePhase(requesterID)
}

// Assumes lock is held.
func (g *BunkerGame) advancePhase(requesterID uuid.UUID) bool {
	if requesterID != g.hostID() {
		g.rejectAction(requesterID, "only the host can advance the phase")
		return false
	}

	switch g.Phase {
	case PhaseIntroduction:
		g.transitionTo(PhaseTurn)
	case PhaseDiscussion:
		if g.CurrentRound == 1 {
			g.beginNextRound()
		} else {
			g.transitionTo(PhaseDefense)
		}
	case PhaseDefense:
		g.transitionTo(PhaseVoting)
	case PhaseVoting:
		// Force-close the ballot with whatever votes exist.
		g.closeBallot()
	case PhaseResults:
		g.processVotingResults()
	case PhaseFarewell:
		g.beginNextRound()
	default:
		g.rejectAction(requesterID, "phase cannot be advanced manually")
		return false
	}
	return true
}

// beginNextRound increments the round and starts a fresh turn cycle.
// Assumes lock is held.
func (g *BunkerGame) beginNextRound() {
	g.CurrentRound++
	g.resetVotes()
	g.transitionTo(PhaseTurn)
}

// resetVotes clears the vote map and every player's voting flags for a new
// ballot. Tie state is left alone; the tie resolution paths manage it.
// Assumes lock is held.
func (g *BunkerGame) resetVotes() {
	g.Votes = make(map[uuid.UUID]uuid.UUID)
	for _, p := range g.Players {
		p.VotesAgainst = 0
		p.HasVoted = false
	}
	if g.resultsTimer != nil {
		g.resultsTimer.Stop()
		g.resultsTimer = nil
	}
}

// clearTieState ends an open tie after it resolves one way or the other.
// Assumes lock is held.
func (g *BunkerGame) clearTieState() {
	g.TiedPlayers = make(map[uuid.UUID]bool)
	g.IsRevote = false
}

// endGame makes the game terminal, stops all timers and reports survivors.
// Assumes lock is held.
func (g *BunkerGame) endGame() {
	if g.Phase == PhaseGameOver {
		return
	}
	g.Phase = PhaseGameOver
	g.clearPhaseDeadline()
	if g.actionTimer != nil {
		g.actionTimer.Stop()
		g.actionTimer = nil
	}
	if g.resultsTimer != nil {
		g.resultsTimer.Stop()
		g.resultsTimer = nil
	}
	g.PendingAction = nil

	survivors := []uuid.UUID{}
	survivorStrs := []string{}
	for _, p := range g.alivePlayers() {
		survivors = append(survivors, p.ID)
		survivorStrs = append(survivorStrs, p.ID.String())
	}

	log.Printf("Game %s: over, %d survivor(s) enter the bunker.", g.ID, len(survivors))
	g.logAction(uuid.Nil, string(EventGameOver), map[string]interface{}{"survivors": survivorStrs})
	g.fireEvent(GameEvent{
		Type: EventGameOver,
		Payload: map[string]interface{}{
			"survivors": survivorStrs,
			"round":     g.CurrentRound,
		},
	})

	if g.OnGameEnd != nil {
		// Invoke outside the lock; the handler may call back into the store.
		go g.OnGameEnd(g.ID, survivors)
	}
}

// setPhaseDeadline stamps an absolute deadline, bumps the phase sequence and
// schedules the expiry handler. A non-positive duration clears the deadline.
// Assumes lock is held.
func (g *BunkerGame) setPhaseDeadline(d time.Duration) {
	if d <= 0 {
		g.clearPhaseDeadline()
		return
	}
	t := time.Now().Add(d)
	g.PhaseEndsAt = &t
	g.schedulePhaseTimer(d)
}

// Assumes lock is held.
func (g *BunkerGame) clearPhaseDeadline() {
	g.PhaseEndsAt = nil
	g.phaseSeq++
	if g.phaseTimer != nil {
		g.phaseTimer.Stop()
		g.phaseTimer = nil
	}
}
