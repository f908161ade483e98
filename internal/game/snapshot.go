// internal/game/snapshot.go
package game

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/eights/internal/models"
)

// PlayerSnapshot is the public view of one seat. Hands are never exposed.
type PlayerSnapshot struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	HandSize      int       `json:"handSize"`
	DealtIn       bool      `json:"dealtIn"`
	Ready         bool      `json:"ready"`
	IsCurrentTurn bool      `json:"isCurrentTurn"`
}

// Snapshot is a read-only copy of the table, used by the admin API and tests.
type Snapshot struct {
	State              GameState        `json:"state"`
	GameID             uuid.UUID        `json:"gameId"`
	Players            []PlayerSnapshot `json:"players"`
	DrawPileSize       int              `json:"drawPileSize"`
	DiscardSize        int              `json:"discardSize"`
	CurrentCard        *models.Card     `json:"currentCard,omitempty"`
	EffectiveSuit      models.Suit      `json:"effectiveSuit,omitempty"`
	CurrentPlayer      string           `json:"currentPlayer,omitempty"`
	PendingSuitChooser string           `json:"pendingSuitChooser,omitempty"`
}

// Snapshot copies the current state under the lock.
func (g *EightsGame) Snapshot() Snapshot {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	snap := Snapshot{
		State:         g.State,
		GameID:        g.ID,
		Players:       make([]PlayerSnapshot, 0, len(g.Players)),
		DrawPileSize:  len(g.Deck),
		DiscardSize:   len(g.DiscardPile),
		EffectiveSuit: g.EffectiveSuit,
	}
	if top, err := g.DiscardPile.Top(); err == nil {
		snap.CurrentCard = &top
	}

	cur := g.currentPlayerUnsafe()
	if cur != nil && g.inGameUnsafe() {
		snap.CurrentPlayer = cur.Name
	}
	if g.pending != nil {
		if chooser := g.getPlayerByID(g.pending.PlayerID); chooser != nil {
			snap.PendingSuitChooser = chooser.Name
		}
	}

	for _, p := range g.Players {
		snap.Players = append(snap.Players, PlayerSnapshot{
			ID:            p.ID,
			Name:          p.Name,
			HandSize:      len(p.Hand),
			DealtIn:       p.DealtIn,
			Ready:         g.ready[p.ID],
			IsCurrentTurn: cur == p && g.inGameUnsafe(),
		})
	}
	return snap
}

// CardCount totals the cards held by the deck, the discard pile and every hand.
// While a game is running it always equals DeckSize.
func (g *EightsGame) CardCount() int {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	total := len(g.Deck) + len(g.DiscardPile)
	for _, p := range g.Players {
		total += len(p.Hand)
	}
	return total
}

// Hand returns a copy of a player's hand, or nil if they are not seated.
func (g *EightsGame) Hand(playerID uuid.UUID) []models.Card {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	p := g.getPlayerByID(playerID)
	if p == nil {
		return nil
	}
	out := make([]models.Card, len(p.Hand))
	copy(out, p.Hand)
	return out
}
