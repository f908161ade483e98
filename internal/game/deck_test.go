package game

import (
	"math/rand"
	"testing"

	"github.com/jason-s-yu/eights/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewShuffledDeckHasEveryCardOnce(t *testing.T) {
	deck := NewShuffledDeck(rand.New(rand.NewSource(1)))
	require.Len(t, deck, DeckSize)

	seen := make(map[models.Card]bool)
	for _, c := range deck {
		assert.False(t, seen[c], "duplicate card %s", c)
		seen[c] = true
	}
	assert.Len(t, seen, DeckSize)
}

func TestNewShuffledDeckOrderDependsOnSeed(t *testing.T) {
	a := NewShuffledDeck(rand.New(rand.NewSource(1)))
	b := NewShuffledDeck(rand.New(rand.NewSource(2)))
	assert.NotEqual(t, a, b)
}

func TestDeckDrawUntilEmpty(t *testing.T) {
	deck := Deck{{Rank: "2", Suit: models.Hearts}, {Rank: "3", Suit: models.Hearts}}

	c, err := deck.Draw()
	require.NoError(t, err)
	assert.Equal(t, "3 of Hearts", c.String())

	c, err = deck.Draw()
	require.NoError(t, err)
	assert.Equal(t, "2 of Hearts", c.String())

	_, err = deck.Draw()
	assert.ErrorIs(t, err, ErrEmptyDeck)
}

func TestDeckPutBottom(t *testing.T) {
	deck := Deck{{Rank: "2", Suit: models.Hearts}}
	deck.PutBottom(models.Card{Rank: "King", Suit: models.Spades})

	top, err := deck.Draw()
	require.NoError(t, err)
	assert.Equal(t, "2 of Hearts", top.String())
	bottom, err := deck.Draw()
	require.NoError(t, err)
	assert.Equal(t, "King of Spades", bottom.String())
}

func TestDiscardPileTop(t *testing.T) {
	var pile DiscardPile
	_, err := pile.Top()
	assert.ErrorIs(t, err, ErrEmptyPile)

	pile.Push(models.Card{Rank: "5", Suit: models.Clubs})
	pile.Push(models.Card{Rank: "8", Suit: models.Hearts})
	top, err := pile.Top()
	require.NoError(t, err)
	assert.Equal(t, "8 of Hearts", top.String())
}
