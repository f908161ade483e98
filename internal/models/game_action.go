package models

// ActionType names a client intent decoded from one protocol line.
type ActionType string

const (
	ActionStart   ActionType = "start_game"
	ActionRestart ActionType = "restart"
	ActionPlay    ActionType = "play"
	ActionDraw    ActionType = "draw"
	ActionSuit    ActionType = "suit"
	ActionChat    ActionType = "chat"
)

// GameAction captures a participant's request. Only the field relevant to
// ActionType is populated.
type GameAction struct {
	ActionType ActionType `json:"action_type"`
	Card       Card       `json:"card,omitempty"`
	Suit       Suit       `json:"suit,omitempty"`
	Text       string     `json:"text,omitempty"`
}
