// internal/game/timers.go
package game

import (
	"log"
	"time"
)

// schedulePhaseTimer arms the expiry handler for the current deadline. The
// captured sequence number is compared under the lock when the timer fires so
// a stale callback (deadline replaced or cleared in the meantime) is a no-op;
// this makes duplicate or late executions harmless, which is the property the
// whole timeout design leans on.
// Assumes lock is held.
func (g *BunkerGame) schedulePhaseTimer(d time.Duration) {
	g.phaseSeq++
	seq := g.phaseSeq
	if g.phaseTimer != nil {
		g.phaseTimer.Stop()
	}
	g.phaseTimer = time.AfterFunc(d, func() {
		g.Mu.Lock()
		defer g.Mu.Unlock()
		if g.phaseSeq != seq || g.Phase == PhaseGameOver {
			log.Printf("Game %s: stale phase timer fired (seq %d, current %d). Ignoring.", g.ID, seq, g.phaseSeq)
			return
		}
		g.handlePhaseDeadline()
	})
}

// handlePhaseDeadline executes the timeout side effect for the current phase.
// Assumes lock is held.
func (g *BunkerGame) handlePhaseDeadline() {
	log.Printf("Game %s: deadline elapsed in phase %s (round %d).", g.ID, g.Phase, g.CurrentRound)

	switch g.Phase {
	case PhaseTurn:
		g.handleTurnTimeout()

	case PhaseDiscussion:
		// Only round 1 carries a discussion deadline; it rolls straight into
		// the second reveal round.
		if g.CurrentRound == 1 {
			g.beginNextRound()
		}

	case PhaseDefense:
		// A timed defense only exists during a revote; expiry continues into
		// the restricted ballot.
		if g.IsRevote {
			g.transitionTo(PhaseVoting)
		}

	default:
		// Other phases have no deadline-driven effects.
	}
}

// scheduleResultsGrace arms the short delay between the last ballot landing
// and the tally being processed, so every client sees the final vote render
// first. Re-arming replaces the previous grace timer.
// Assumes lock is held.
func (g *BunkerGame) scheduleResultsGrace() {
	if g.resultsTimer != nil {
		g.resultsTimer.Stop()
	}
	g.resultsTimer = time.AfterFunc(g.ResultsGrace, func() {
		g.Mu.Lock()
		defer g.Mu.Unlock()
		// The grace timer is stopped whenever votes reset or the phase moves
		// on; the phase check below catches the remaining races.
		if g.Phase != PhaseVoting {
			return
		}
		g.closeBallot()
	})
}
