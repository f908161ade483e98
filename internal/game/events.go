package game

import "github.com/jason-s-yu/eights/internal/models"

// GameEventType tags every message the table sends to participants.
type GameEventType string

const (
	EventHand        GameEventType = "hand"         // private: full hand replacement
	EventDrawnCard   GameEventType = "drawn_card"   // private: card just drawn
	EventCurrentCard GameEventType = "current_card" // top of the discard pile
	EventYourTurn    GameEventType = "your_turn"    // private
	EventChooseSuit  GameEventType = "choose_suit"  // private prompt after a wild play
	EventChosenSuit  GameEventType = "chosen_suit"
	EventClearChat   GameEventType = "clear_chat"
	EventGameOver    GameEventType = "game_over" // operator-forced end
	EventNoCardsLeft GameEventType = "no_cards_left"
	EventWinner      GameEventType = "winner"
	EventTurn        GameEventType = "turn"
	EventPlayed      GameEventType = "played"
	EventChat        GameEventType = "chat"
	EventNotice      GameEventType = "notice"
)

// GameEvent is one structured outbound message. Fields irrelevant to Type are empty.
type GameEvent struct {
	Type   GameEventType `json:"type"`
	Player string        `json:"player,omitempty"`
	Card   *models.Card  `json:"card,omitempty"`
	Cards  []models.Card `json:"cards,omitempty"`
	Suit   models.Suit   `json:"suit,omitempty"`
	Text   string        `json:"text,omitempty"`
}

func noticeEvent(text string) GameEvent {
	return GameEvent{Type: EventNotice, Text: text}
}

func cardEvent(t GameEventType, c models.Card) GameEvent {
	return GameEvent{Type: t, Card: &c}
}
