// internal/models/card.go
package models

import (
	"fmt"
	"strings"
)

// Suit is one of the four French suits, spelled the way it appears on the wire.
type Suit string

const (
	Hearts   Suit = "Hearts"
	Diamonds Suit = "Diamonds"
	Clubs    Suit = "Clubs"
	Spades   Suit = "Spades"
)

// Suits lists every suit in deck-building order.
var Suits = []Suit{Hearts, Diamonds, Clubs, Spades}

// Ranks lists every rank in deck-building order.
var Ranks = []string{"2", "3", "4", "5", "6", "7", "8", "9", "10", "Jack", "Queen", "King", "Ace"}

// WildRank may be played on any card; its player names the next suit.
const WildRank = "8"

// cardSeparator joins rank and suit in the textual form of a card.
const cardSeparator = " of "

// Card is an immutable playing card. Its text form "<rank> of <suit>" is both the
// in-memory identity and the wire representation.
type Card struct {
	Rank string `json:"rank"`
	Suit Suit   `json:"suit"`
}

// String renders the card as "<rank> of <suit>".
func (c Card) String() string {
	return c.Rank + cardSeparator + string(c.Suit)
}

// IsWild reports whether the card carries the wild rank.
func (c Card) IsWild() bool {
	return c.Rank == WildRank
}

// ParseSuit validates a suit name.
func ParseSuit(s string) (Suit, error) {
	s = strings.TrimSpace(s)
	for _, suit := range Suits {
		if string(suit) == s {
			return suit, nil
		}
	}
	return "", fmt.Errorf("unknown suit %q", s)
}

// ParseCard parses "<rank> of <suit>".
func ParseCard(s string) (Card, error) {
	rank, suitStr, ok := strings.Cut(strings.TrimSpace(s), cardSeparator)
	if !ok {
		return Card{}, fmt.Errorf("malformed card %q", s)
	}
	if !validRank(rank) {
		return Card{}, fmt.Errorf("unknown rank %q in card %q", rank, s)
	}
	suit, err := ParseSuit(suitStr)
	if err != nil {
		return Card{}, fmt.Errorf("card %q: %w", s, err)
	}
	return Card{Rank: rank, Suit: suit}, nil
}

func validRank(rank string) bool {
	for _, r := range Ranks {
		if r == rank {
			return true
		}
	}
	return false
}
