// internal/models/action_card.go
package models

// TargetType describes which players an action card may target.
type TargetType string

const (
	TargetNone       TargetType = "none"       // no target selection step
	TargetOther      TargetType = "other"      // any alive player except the activator
	TargetAny        TargetType = "any"        // any alive player including the activator
	TargetEliminated TargetType = "eliminated" // eliminated players except the activator
	// TargetClosedBiology restricts targeting to alive players (excluding the
	// activator) who have not yet revealed their biology characteristic.
	TargetClosedBiology TargetType = "has_closed_biology"
)

// ActionCard is a static card definition from the content pool. The game
// never mutates these; an activated card is snapshotted into a PendingAction
// so later pool edits cannot alter an in-flight effect.
type ActionCard struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	Effect         string     `json:"effect"`
	RequiresTarget bool       `json:"requiresTarget"`
	TargetType     TargetType `json:"targetType"`

	// IsCancel marks reactive cards that can only be used to cancel another
	// player's pending action.
	IsCancel bool `json:"isCancel"`

	// OnlyAfterResults restricts activation to the results phase.
	OnlyAfterResults bool `json:"onlyAfterResults"`
}
