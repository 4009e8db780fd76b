// internal/game/voting.go
package game

import (
	"log"

	"github.com/google/uuid"
)

// castVote records voter -> target and recomputes every player's tally from
// the full vote map. The map is canonical; VotesAgainst is only a cache, and
// recomputing it wholesale on each cast keeps the two trivially consistent.
// Assumes lock is held.
func (g *BunkerGame) castVote(voterID, targetID uuid.UUID) bool {
	if g.Phase != PhaseVoting {
		g.rejectAction(voterID, "voting is not open")
		return false
	}
	voter := g.getPlayerByID(voterID)
	if voter == nil || voter.IsEliminated {
		g.rejectAction(voterID, "eliminated players cannot vote")
		return false
	}
	if voter.HasVoted {
		g.rejectAction(voterID, "you have already voted")
		return false
	}
	target := g.getPlayerByID(targetID)
	if target == nil || target.IsEliminated {
		g.rejectAction(voterID, "invalid vote target")
		return false
	}
	if g.IsRevote && !g.TiedPlayers[targetID] {
		g.rejectAction(voterID, "the revote is restricted to the tied players")
		return false
	}

	g.Votes[voterID] = targetID
	voter.HasVoted = true
	g.recomputeTallies()

	g.logAction(voterID, string(EventVoteCast), map[string]interface{}{"targetId": targetID.String()})
	g.fireEvent(GameEvent{
		Type: EventVoteCast,
		Payload: map[string]interface{}{
			"voterId":  voterID.String(),
			"targetId": targetID.String(),
			"tallies":  g.tallySnapshot(),
		},
	})

	if g.allAliveVoted() {
		g.scheduleResultsGrace()
	}
	return true
}

// recomputeTallies rebuilds every VotesAgainst counter from the vote map.
// Assumes lock is held.
func (g *BunkerGame) recomputeTallies() {
	for _, p := range g.Players {
		p.VotesAgainst = 0
	}
	for _, targetID := range g.Votes {
		if target := g.getPlayerByID(targetID); target != nil {
			target.VotesAgainst++
		}
	}
}

// Assumes lock is held.
func (g *BunkerGame) tallySnapshot() map[string]int {
	tally := make(map[string]int)
	for _, p := range g.alivePlayers() {
		tally[p.ID.String()] = p.VotesAgainst
	}
	return tally
}

// Assumes lock is held.
func (g *BunkerGame) allAliveVoted() bool {
	for _, p := range g.alivePlayers() {
		if !p.HasVoted {
			return false
		}
	}
	return true
}

// closeBallot moves a finished vote into the results phase, where the tally
// is on display and results-gated action cards may be played before the host
// confirms the outcome.
// Assumes lock is held.
func (g *BunkerGame) closeBallot() {
	if g.Phase != PhaseVoting {
		return
	}
	g.transitionTo(PhaseResults)
	g.fireEvent(GameEvent{
		Type: EventVotingResults,
		Payload: map[string]interface{}{
			"outcome": "tally",
			"tallies": g.tallySnapshot(),
		},
	})
}

// processVotingResults resolves the ballot: no votes skips the elimination
// entirely, a unique maximum eliminates that player, a tie opens a restricted
// defense-plus-revote, and a tied revote eliminates every tied player at once
// so the game always makes progress.
// Assumes lock is held.
func (g *BunkerGame) processVotingResults() {
	if g.Phase != PhaseResults {
		return
	}

	maxVotes := 0
	for _, p := range g.alivePlayers() {
		if p.VotesAgainst > maxVotes {
			maxVotes = p.VotesAgainst
		}
	}

	if maxVotes == 0 {
		// Nobody voted; skip straight to the next round's reveals.
		log.Printf("Game %s: round %d ballot empty, no elimination.", g.ID, g.CurrentRound)
		g.logAction(uuid.Nil, string(EventVotingResults), map[string]interface{}{"outcome": "no_votes"})
		g.fireEvent(GameEvent{
			Type:    EventVotingResults,
			Payload: map[string]interface{}{"outcome": "no_votes"},
		})
		g.clearTieState()
		g.beginNextRound()
		return
	}

	var topPlayers []uuid.UUID
	for _, p := range g.alivePlayers() {
		if p.VotesAgainst == maxVotes {
			topPlayers = append(topPlayers, p.ID)
		}
	}

	if len(topPlayers) == 1 {
		g.eliminatePlayer(topPlayers[0])
		g.clearTieState()
		g.logAction(uuid.Nil, string(EventVotingResults), map[string]interface{}{
			"outcome": "eliminated", "playerId": topPlayers[0].String(),
		})
		g.fireEvent(GameEvent{
			Type: EventVotingResults,
			Payload: map[string]interface{}{
				"outcome":  "eliminated",
				"playerId": topPlayers[0].String(),
				"tallies":  g.tallySnapshot(),
			},
		})
		g.transitionTo(PhaseFarewell)
		return
	}

	if !g.IsRevote {
		// First tie: the tied players defend themselves, then a ballot
		// restricted to them follows.
		g.TiedPlayers = make(map[uuid.UUID]bool, len(topPlayers))
		tied := make([]string, 0, len(topPlayers))
		for _, id := range topPlayers {
			g.TiedPlayers[id] = true
			tied = append(tied, id.String())
		}
		g.IsRevote = true
		g.resetVotes()

		log.Printf("Game %s: round %d vote tied between %d players; opening revote.", g.ID, g.CurrentRound, len(topPlayers))
		g.logAction(uuid.Nil, string(EventVotingResults), map[string]interface{}{
			"outcome": "tie", "tiedPlayers": tied,
		})
		g.fireEvent(GameEvent{
			Type: EventVotingResults,
			Payload: map[string]interface{}{
				"outcome":     "tie",
				"tiedPlayers": tied,
			},
		})
		g.transitionTo(PhaseDefense)
		return
	}

	// Second consecutive tie among the same ballot: escalate and eliminate
	// all tied players simultaneously.
	tied := make([]string, 0, len(topPlayers))
	for _, id := range topPlayers {
		tied = append(tied, id.String())
	}
	log.Printf("Game %s: revote tied again; eliminating all %d tied players.", g.ID, len(topPlayers))
	for _, id := range topPlayers {
		g.eliminatePlayer(id)
	}
	g.clearTieState()
	g.logAction(uuid.Nil, string(EventVotingResults), map[string]interface{}{
		"outcome": "tie_escalation", "eliminated": tied,
	})
	g.fireEvent(GameEvent{
		Type: EventVotingResults,
		Payload: map[string]interface{}{
			"outcome":    "tie_escalation",
			"eliminated": tied,
		},
	})
	g.transitionTo(PhaseFarewell)
}

// eliminatePlayer flips the monotonic elimination flag. Players are never
// removed from the roster; the game-over summary needs them.
// Assumes lock is held.
func (g *BunkerGame) eliminatePlayer(playerID uuid.UUID) {
	p := g.getPlayerByID(playerID)
	if p == nil || p.IsEliminated {
		return
	}
	p.IsEliminated = true
	log.Printf("Game %s: player %s eliminated in round %d.", g.ID, playerID, g.CurrentRound)
	g.logAction(playerID, string(EventPlayerEliminated), map[string]interface{}{"round": g.CurrentRound})
	g.fireEvent(GameEvent{
		Type: EventPlayerEliminated,
		Payload: map[string]interface{}{
			"playerId": playerID.String(),
			"round":    g.CurrentRound,
		},
	})
}
