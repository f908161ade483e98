package models

import "github.com/google/uuid"

// Player is one seat at the table. ID is assigned per connection, so two
// participants sharing a display name remain distinct.
type Player struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Hand []Card    `json:"hand"`

	// DealtIn is false for participants who joined after the current deal;
	// they sit out turns until the next game starts.
	DealtIn bool `json:"dealtIn"`
}

// HasCard reports whether the card is in the player's hand.
func (p *Player) HasCard(c Card) bool {
	for _, h := range p.Hand {
		if h == c {
			return true
		}
	}
	return false
}

// RemoveCard removes the first copy of c from the hand and reports whether it was present.
func (p *Player) RemoveCard(c Card) bool {
	for i, h := range p.Hand {
		if h == c {
			p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
			return true
		}
	}
	return false
}
