// internal/game/sync_state.go
package game

import (
	"github.com/google/uuid"

	"github.com/bunkergame/bunker/internal/models"
)

// ObfPlayerState is one player as seen by a particular requesting user: the
// requester's own characteristics are always visible to them, other players
// expose only what they have revealed.
type ObfPlayerState struct {
	PlayerID     uuid.UUID `json:"playerId"`
	Username     string    `json:"username"`
	IsHost       bool      `json:"isHost"`
	IsEliminated bool      `json:"isEliminated"`
	Connected    bool      `json:"connected"`

	IsCurrentTurn bool `json:"isCurrentTurn"`
	VotesAgainst  int  `json:"votesAgainst"`
	HasVoted      bool `json:"hasVoted"`

	// Revealed holds the publicly visible characteristics.
	Revealed map[models.CharacteristicKey]string `json:"revealed,omitempty"`

	// Characteristics is the full sheet; only populated for the requester.
	Characteristics map[models.CharacteristicKey]string `json:"characteristics,omitempty"`
	UsedActionCards []models.CharacteristicKey          `json:"usedActionCards,omitempty"`
}

// ObfGameState is the per-player projection sent on connect and reconnect.
type ObfGameState struct {
	GameID          string           `json:"gameId"`
	Phase           Phase            `json:"phase"`
	CurrentRound    int              `json:"currentRound"`
	BunkerSlots     int              `json:"bunkerSlots"`
	PhaseEndsAt     *int64           `json:"phaseEndsAt,omitempty"`
	TurnHasRevealed bool             `json:"turnHasRevealed"`
	CurrentPlayerID *uuid.UUID       `json:"currentPlayerId,omitempty"`
	IsRevote        bool             `json:"isRevote"`
	TiedPlayers     []uuid.UUID      `json:"tiedPlayers,omitempty"`
	Bunker          string           `json:"bunker"`
	Catastrophe     string           `json:"catastrophe"`
	PendingAction   *PendingAction   `json:"pendingAction,omitempty"`
	Players         []ObfPlayerState `json:"players"`
}

// obfuscatedState builds the snapshot for one requesting user.
// Assumes lock is held.
func (g *BunkerGame) obfuscatedState(forUser uuid.UUID) ObfGameState {
	obf := ObfGameState{
		GameID:          g.ID,
		Phase:           g.Phase,
		CurrentRound:    g.CurrentRound,
		BunkerSlots:     g.BunkerSlots,
		TurnHasRevealed: g.TurnHasRevealed,
		IsRevote:        g.IsRevote,
		Bunker:          g.Scenario.Bunker,
		Catastrophe:     g.Scenario.Catastrophe,
		PendingAction:   g.PendingAction,
	}
	if g.PhaseEndsAt != nil {
		ms := g.PhaseEndsAt.UnixMilli()
		obf.PhaseEndsAt = &ms
	}
	if cur := g.currentTurnPlayer(); cur != nil {
		id := cur.ID
		obf.CurrentPlayerID = &id
	}
	for id := range g.TiedPlayers {
		obf.TiedPlayers = append(obf.TiedPlayers, id)
	}

	cur := g.currentTurnPlayer()
	for _, pl := range g.Players {
		ps := ObfPlayerState{
			PlayerID:      pl.ID,
			Username:      pl.Username,
			IsHost:        pl.IsHost,
			IsEliminated:  pl.IsEliminated,
			Connected:     pl.Connected,
			IsCurrentTurn: cur != nil && cur.ID == pl.ID,
			VotesAgainst:  pl.VotesAgainst,
			HasVoted:      pl.HasVoted,
		}
		revealed := make(map[models.CharacteristicKey]string)
		for key := range pl.Revealed {
			revealed[key] = pl.Characteristics[key]
		}
		if len(revealed) > 0 {
			ps.Revealed = revealed
		}
		if pl.ID == forUser {
			ps.Characteristics = pl.Characteristics
			for _, slot := range models.ActionSlots() {
				if pl.UsedActionCards[slot] {
					ps.UsedActionCards = append(ps.UsedActionCards, slot)
				}
			}
		}
		obf.Players = append(obf.Players, ps)
	}
	return obf
}
