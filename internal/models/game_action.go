package models

// GameAction is one decoded client message routed into the engine. ActionType
// selects the handler; Payload carries its arguments untyped.
type GameAction struct {
	ActionType string                 `json:"action_type"`
	Payload    map[string]interface{} `json:"payload"`
}
