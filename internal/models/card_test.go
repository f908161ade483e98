package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCard(t *testing.T) {
	tests := []struct {
		in      string
		want    Card
		wantErr bool
	}{
		{in: "8 of Hearts", want: Card{Rank: "8", Suit: Hearts}},
		{in: "10 of Clubs", want: Card{Rank: "10", Suit: Clubs}},
		{in: "  Queen of Spades ", want: Card{Rank: "Queen", Suit: Spades}},
		{in: "Ace of Diamonds", want: Card{Rank: "Ace", Suit: Diamonds}},
		{in: "1 of Hearts", wantErr: true},
		{in: "8 of hearts", wantErr: true},
		{in: "8 Hearts", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCard(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCardString(t *testing.T) {
	assert.Equal(t, "King of Hearts", Card{Rank: "King", Suit: Hearts}.String())
	assert.True(t, Card{Rank: "8", Suit: Clubs}.IsWild())
	assert.False(t, Card{Rank: "9", Suit: Clubs}.IsWild())
}

func TestParseSuit(t *testing.T) {
	s, err := ParseSuit(" Clubs")
	require.NoError(t, err)
	assert.Equal(t, Clubs, s)

	_, err = ParseSuit("Stars")
	assert.Error(t, err)
}

func TestPlayerHand(t *testing.T) {
	p := &Player{Hand: []Card{{Rank: "2", Suit: Hearts}, {Rank: "3", Suit: Clubs}}}
	assert.True(t, p.HasCard(Card{Rank: "3", Suit: Clubs}))
	assert.True(t, p.RemoveCard(Card{Rank: "2", Suit: Hearts}))
	assert.False(t, p.RemoveCard(Card{Rank: "2", Suit: Hearts}))
	assert.Equal(t, []Card{{Rank: "3", Suit: Clubs}}, p.Hand)
}
