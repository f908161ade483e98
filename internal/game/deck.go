// internal/game/deck.go
package game

import (
	"errors"
	"math/rand"
	"time"

	"github.com/jason-s-yu/eights/internal/models"
)

// DeckSize is the number of cards in play at all times during a game.
const DeckSize = 52

var (
	// ErrEmptyDeck is returned when drawing from an exhausted draw pile.
	ErrEmptyDeck = errors.New("no cards left in the deck")
	// ErrEmptyPile is returned when the discard pile has no top card.
	ErrEmptyPile = errors.New("discard pile is empty")
)

// Deck is the draw pile. The top of the deck is the last element.
type Deck []models.Card

// newRand returns a time-seeded source for shuffling.
func newRand() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// NewShuffledDeck builds the standard 52 cards and applies a Fisher-Yates shuffle.
func NewShuffledDeck(r *rand.Rand) Deck {
	deck := make(Deck, 0, DeckSize)
	for _, suit := range models.Suits {
		for _, rank := range models.Ranks {
			deck = append(deck, models.Card{Rank: rank, Suit: suit})
		}
	}
	for i := len(deck) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		deck[i], deck[j] = deck[j], deck[i]
	}
	return deck
}

// Draw removes and returns the top card.
func (d *Deck) Draw() (models.Card, error) {
	n := len(*d)
	if n == 0 {
		return models.Card{}, ErrEmptyDeck
	}
	card := (*d)[n-1]
	*d = (*d)[:n-1]
	return card, nil
}

// PutBottom slides cards under the deck so they are drawn last.
func (d *Deck) PutBottom(cards ...models.Card) {
	if len(cards) == 0 {
		return
	}
	merged := make(Deck, 0, len(cards)+len(*d))
	merged = append(merged, cards...)
	*d = append(merged, *d...)
}

// DiscardPile is append-only from the player side; its last card is the current card.
type DiscardPile []models.Card

// Push places a card on top of the pile.
func (p *DiscardPile) Push(c models.Card) {
	*p = append(*p, c)
}

// Top returns the current card.
func (p DiscardPile) Top() (models.Card, error) {
	if len(p) == 0 {
		return models.Card{}, ErrEmptyPile
	}
	return p[len(p)-1], nil
}
