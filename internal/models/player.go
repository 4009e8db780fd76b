package models

import (
	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// Player is one participant's seat in a bunker game. The ID is the session
// identity of the participant; rebinding a slot to a new identity (the rejoin
// flow) swaps the ID and preserves everything else.
type Player struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	IsHost   bool      `json:"isHost"`

	// IsEliminated only ever flips false -> true. Eliminated players stay in
	// the roster for the game-over summary.
	IsEliminated bool `json:"isEliminated"`

	// Characteristics is assigned once at join time and never mutated.
	Characteristics map[CharacteristicKey]string `json:"-"`

	// Revealed is the monotonically growing set of characteristic keys this
	// player has disclosed to the table.
	Revealed map[CharacteristicKey]bool `json:"-"`

	// VotesAgainst is a display cache recomputed from the game's vote map on
	// every cast; the map is the source of truth.
	VotesAgainst int  `json:"votesAgainst"`
	HasVoted     bool `json:"hasVoted"`

	// UsedActionCards holds the action-card slots this player has spent.
	UsedActionCards map[CharacteristicKey]bool `json:"-"`

	Connected bool            `json:"connected"`
	Conn      *websocket.Conn `json:"-"`

	User *User `json:"-"`
}

// ActionSlots returns the two action-card slot keys.
func ActionSlots() []CharacteristicKey {
	return []CharacteristicKey{CharActionOne, CharActionTwo}
}
