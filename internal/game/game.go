// internal/game/game.go
package game

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/jason-s-yu/eights/internal/cache"
	"github.com/jason-s-yu/eights/internal/models"
	log "github.com/sirupsen/logrus"
)

const (
	// DefaultMaxPlayers keeps a full deal (5 per seat plus the first card) within one deck.
	DefaultMaxPlayers = 10
	// HandSize is the number of cards dealt to each participant.
	HandSize = 5
)

// GameState is the coordinator's phase.
type GameState string

const (
	StateLobby              GameState = "lobby"
	StateInProgress         GameState = "in_progress"
	StateAwaitingSuitChoice GameState = "awaiting_suit_choice"
	StateFinished           GameState = "finished"
)

// ActionLogger receives one record per game transition. The Redis publisher satisfies it.
type ActionLogger interface {
	PublishGameAction(ctx context.Context, record cache.GameActionRecord) error
}

// pendingSuit binds an outstanding suit choice to the player who played the wild.
type pendingSuit struct {
	PlayerID uuid.UUID
	Card     models.Card
}

// EightsGame holds the entire state for the single table in memory.
type EightsGame struct {
	ID         uuid.UUID // regenerated on every deal
	MaxPlayers int

	Players       []*models.Player // seating (join) order
	Deck          Deck
	DiscardPile   DiscardPile
	EffectiveSuit models.Suit

	CurrentPlayerIndex int
	State              GameState

	pending     *pendingSuit
	ready       map[uuid.UUID]bool
	rng         *rand.Rand
	actionIndex int
	actionQueue chan cache.GameActionRecord

	Mu sync.Mutex

	// BroadcastFn is used to send events to all players. If nil, no broadcast is done.
	BroadcastFn func(ev GameEvent)

	// BroadcastToPlayerFn sends an event to a single specific player.
	BroadcastToPlayerFn func(playerID uuid.UUID, ev GameEvent)

	// ActionLog receives every transition asynchronously, in action order. Nil disables logging.
	ActionLog ActionLogger
}

// NewEightsGame builds an empty table in the lobby.
func NewEightsGame() *EightsGame {
	return &EightsGame{
		ID:                 uuid.New(),
		MaxPlayers:         DefaultMaxPlayers,
		Players:            []*models.Player{},
		CurrentPlayerIndex: -1,
		State:              StateLobby,
		ready:              make(map[uuid.UUID]bool),
		rng:                newRand(),
	}
}

// IsLegalPlay reports whether card may be placed on top given the effective suit.
func IsLegalPlay(card, top models.Card, effective models.Suit) bool {
	return card.IsWild() || card.Suit == effective || card.Rank == top.Rank
}

// reservedNamePrefixes open the untagged structured server lines. Every other tag
// carries a ':' and is covered by the separator check.
var reservedNamePrefixes = []string{"YOUR_TURN", "CHOOSE_SUIT", "CLEAR_CHAT"}

// validateName rejects names that would let chat or notice lines read as server lines.
func validateName(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	if strings.ContainsAny(name, ":|") {
		return ErrInvalidName
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return ErrInvalidName
		}
	}
	if strings.EqualFold(name, OperatorName) {
		return ErrInvalidName
	}
	upper := strings.ToUpper(name)
	for _, prefix := range reservedNamePrefixes {
		if strings.HasPrefix(upper, prefix) {
			return ErrInvalidName
		}
	}
	return nil
}

// HandlePlayerAction routes a decoded client command to the matching transition.
func (g *EightsGame) HandlePlayerAction(playerID uuid.UUID, action models.GameAction) error {
	switch action.ActionType {
	case models.ActionStart:
		return g.RequestStart(playerID)
	case models.ActionRestart:
		return g.RequestRestart(playerID)
	case models.ActionPlay:
		return g.RequestMove(playerID, action.Card)
	case models.ActionDraw:
		return g.RequestDraw(playerID)
	case models.ActionSuit:
		return g.ResolveSuitChoice(playerID, string(action.Suit))
	case models.ActionChat:
		return g.Chat(playerID, action.Text)
	default:
		return fmt.Errorf("unsupported action %q", action.ActionType)
	}
}

// AddPlayer seats a new participant. Someone joining during a game waits for the next deal.
func (g *EightsGame) AddPlayer(playerID uuid.UUID, name string) error {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return err
	}

	g.Mu.Lock()
	defer g.Mu.Unlock()

	if g.getPlayerByID(playerID) != nil {
		return nil
	}
	if len(g.Players) >= g.MaxPlayers {
		return ErrTableFull
	}

	p := &models.Player{ID: playerID, Name: name}
	g.Players = append(g.Players, p)
	log.WithFields(log.Fields{"game_id": g.ID, "player_id": playerID, "name": name}).Info("player joined")

	g.fireEvent(noticeEvent(fmt.Sprintf("%s has joined the game!", name)))
	if g.inGameUnsafe() {
		if top, err := g.DiscardPile.Top(); err == nil {
			g.fireEventToPlayer(playerID, cardEvent(EventCurrentCard, top))
		}
		g.fireEventToPlayer(playerID, noticeEvent("A game is in progress. You will be dealt in when the next game starts."))
	}
	g.logAction(playerID, "player_join", map[string]interface{}{"name": name})
	return nil
}

// RequestStart marks the player ready and deals once the whole table is ready.
func (g *EightsGame) RequestStart(playerID uuid.UUID) error {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	p := g.getPlayerByID(playerID)
	if p == nil {
		return g.rejectUnsafe(playerID, ErrUnknownPlayer)
	}
	if g.inGameUnsafe() {
		return g.rejectUnsafe(playerID, ErrGameInProgress)
	}

	g.ready[playerID] = true
	g.fireEvent(noticeEvent(fmt.Sprintf("%s is ready to start!", p.Name)))
	g.startGameUnsafe()
	return nil
}

// RequestMove plays a card from the player's hand.
func (g *EightsGame) RequestMove(playerID uuid.UUID, card models.Card) error {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	p, err := g.guardTurnUnsafe(playerID)
	if err != nil {
		return err
	}
	if !p.HasCard(card) {
		return g.rejectUnsafe(playerID, ErrCardNotInHand)
	}
	top, err := g.DiscardPile.Top()
	if err != nil {
		g.abortUnsafe(err)
		return err
	}
	if !IsLegalPlay(card, top, g.EffectiveSuit) {
		return g.rejectUnsafe(playerID, ErrIllegalCard)
	}

	p.RemoveCard(card)
	g.DiscardPile.Push(card)

	if card.IsWild() {
		g.pending = &pendingSuit{PlayerID: playerID, Card: card}
		g.State = StateAwaitingSuitChoice
		g.fireEventToPlayer(playerID, g.handEvent(p))
		g.fireEventToPlayer(playerID, GameEvent{Type: EventChooseSuit})
		g.logAction(playerID, "wild_play", map[string]interface{}{"card": card.String()})
		return nil
	}

	g.EffectiveSuit = card.Suit
	g.fireEvent(GameEvent{Type: EventPlayed, Player: p.Name, Card: &card})
	g.fireEvent(noticeEvent(fmt.Sprintf("%s played: %s", p.Name, card)))
	g.fireEvent(cardEvent(EventCurrentCard, card))
	g.fireEventToPlayer(playerID, g.handEvent(p))
	g.logAction(playerID, "play", map[string]interface{}{"card": card.String()})

	if len(p.Hand) == 0 {
		g.declareWinnerUnsafe(p)
		return nil
	}
	g.advanceTurnUnsafe()
	return nil
}

// RequestDraw moves the top of the deck into the player's hand. The turn does not pass.
func (g *EightsGame) RequestDraw(playerID uuid.UUID) error {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	p, err := g.guardTurnUnsafe(playerID)
	if err != nil {
		return err
	}

	card, err := g.Deck.Draw()
	if err != nil {
		g.fireEventToPlayer(playerID, GameEvent{Type: EventNoCardsLeft, Text: "The deck is empty."})
		return err
	}
	p.Hand = append(p.Hand, card)
	g.fireEventToPlayer(playerID, cardEvent(EventDrawnCard, card))
	g.fireEventToPlayer(playerID, g.handEvent(p))
	g.logAction(playerID, "draw", map[string]interface{}{"card": card.String(), "deck_size": len(g.Deck)})
	return nil
}

// ResolveSuitChoice completes a wild play for the player bound to the pending choice.
func (g *EightsGame) ResolveSuitChoice(playerID uuid.UUID, rawSuit string) error {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	p := g.getPlayerByID(playerID)
	if p == nil {
		return g.rejectUnsafe(playerID, ErrUnknownPlayer)
	}
	if g.pending == nil || g.pending.PlayerID != playerID {
		return g.rejectUnsafe(playerID, ErrUnexpectedSuit)
	}
	suit, err := models.ParseSuit(rawSuit)
	if err != nil {
		return g.rejectUnsafe(playerID, ErrInvalidSuit)
	}

	g.applySuitChoiceUnsafe(p.Name, suit)
	g.logAction(playerID, "suit_choice", map[string]interface{}{"suit": string(suit)})

	if len(p.Hand) == 0 {
		g.declareWinnerUnsafe(p)
		return nil
	}
	g.advanceTurnUnsafe()
	return nil
}

// RequestRestart abandons whatever is running and deals a new game to everyone seated.
func (g *EightsGame) RequestRestart(playerID uuid.UUID) error {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	p := g.getPlayerByID(playerID)
	if p == nil {
		return g.rejectUnsafe(playerID, ErrUnknownPlayer)
	}

	g.fireEvent(noticeEvent(fmt.Sprintf("%s requested a restart!", p.Name)))
	g.logAction(playerID, "restart", nil)
	g.resetTableUnsafe()
	for _, pl := range g.Players {
		g.ready[pl.ID] = true
	}
	g.fireEvent(noticeEvent("Game is restarting..."))
	g.startGameUnsafe()
	return nil
}

// Chat relays a line of text, as received, to the whole table in any state.
func (g *EightsGame) Chat(playerID uuid.UUID, text string) error {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	p := g.getPlayerByID(playerID)
	if p == nil {
		return g.rejectUnsafe(playerID, ErrUnknownPlayer)
	}
	g.fireEvent(GameEvent{Type: EventChat, Player: p.Name, Text: text})
	return nil
}

// HandleDisconnect removes a participant and repairs the game around their empty seat.
func (g *EightsGame) HandleDisconnect(playerID uuid.UUID) {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	idx := g.indexOfUnsafe(playerID)
	if idx < 0 {
		return
	}
	p := g.Players[idx]
	wasInGame := g.inGameUnsafe()
	wasTurn := wasInGame && idx == g.CurrentPlayerIndex

	g.Players = append(g.Players[:idx], g.Players[idx+1:]...)
	delete(g.ready, playerID)
	if wasInGame && len(p.Hand) > 0 {
		g.Deck.PutBottom(p.Hand...)
	}
	p.Hand = nil

	log.WithFields(log.Fields{"game_id": g.ID, "player_id": playerID, "name": p.Name}).Info("player left")
	g.fireEvent(noticeEvent(fmt.Sprintf("%s has left the game.", p.Name)))
	g.logAction(playerID, "player_leave", map[string]interface{}{"name": p.Name, "in_game": wasInGame})

	if !wasInGame {
		return
	}

	if g.pending != nil && g.pending.PlayerID == playerID {
		g.applySuitChoiceUnsafe(p.Name, g.pending.Card.Suit)
	}
	if idx < g.CurrentPlayerIndex {
		g.CurrentPlayerIndex--
	}

	var remaining []*models.Player
	for _, pl := range g.Players {
		if pl.DealtIn {
			remaining = append(remaining, pl)
		}
	}
	switch {
	case len(remaining) == 0:
		g.resetTableUnsafe()
		g.fireEvent(noticeEvent("Not enough players remain. The game has been reset."))
	case len(remaining) == 1:
		g.declareWinnerUnsafe(remaining[0])
	case wasTurn:
		g.CurrentPlayerIndex = idx - 1
		g.advanceTurnUnsafe()
	}
}

// OperatorStart deals a game for everyone seated, as if all had pressed start.
func (g *EightsGame) OperatorStart() error {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if g.inGameUnsafe() {
		return ErrGameInProgress
	}
	if len(g.Players) == 0 {
		return ErrNoPlayers
	}
	for _, p := range g.Players {
		g.ready[p.ID] = true
	}
	g.startGameUnsafe()
	return nil
}

// EndByOperator stops the running game and returns the table to the lobby.
func (g *EightsGame) EndByOperator() error {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if !g.inGameUnsafe() {
		return ErrGameNotStarted
	}
	g.fireEvent(GameEvent{Type: EventGameOver, Player: OperatorName})
	g.logAction(uuid.Nil, "operator_end", nil)
	g.resetTableUnsafe()
	return nil
}

// OperatorName is the speaker shown for messages that originate from the server.
const OperatorName = "Server"

// OperatorSay broadcasts a chat line from the server.
func (g *EightsGame) OperatorSay(msg string) {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return
	}
	g.Mu.Lock()
	defer g.Mu.Unlock()
	g.fireEvent(GameEvent{Type: EventChat, Player: OperatorName, Text: msg})
}

// startGameUnsafe deals only when every seated player is ready.
// Assumes lock is held.
func (g *EightsGame) startGameUnsafe() {
	readyCount := 0
	for _, p := range g.Players {
		if g.ready[p.ID] {
			readyCount++
		}
	}
	if len(g.Players) == 0 || readyCount < len(g.Players) {
		g.fireEvent(noticeEvent("Waiting for all players to press 'Start'..."))
		return
	}
	g.dealUnsafe()
}

// dealUnsafe shuffles a fresh deck, deals every seat and flips the first card.
// Assumes lock is held.
func (g *EightsGame) dealUnsafe() {
	g.ID = uuid.New()
	g.actionIndex = 0
	g.pending = nil

	g.fireEvent(GameEvent{Type: EventClearChat})
	g.fireEvent(noticeEvent("Game is starting..."))

	g.Deck = NewShuffledDeck(g.rng)
	g.DiscardPile = DiscardPile{}
	for _, p := range g.Players {
		p.Hand = make([]models.Card, 0, HandSize)
		p.DealtIn = true
		for i := 0; i < HandSize; i++ {
			c, err := g.Deck.Draw()
			if err != nil {
				g.abortUnsafe(fmt.Errorf("dealing to %s: %w", p.Name, err))
				return
			}
			p.Hand = append(p.Hand, c)
		}
		g.fireEventToPlayer(p.ID, g.handEvent(p))
	}

	first, err := g.Deck.Draw()
	if err != nil {
		g.abortUnsafe(fmt.Errorf("flipping first card: %w", err))
		return
	}
	g.DiscardPile.Push(first)
	g.EffectiveSuit = first.Suit
	g.fireEvent(noticeEvent(fmt.Sprintf("First card: %s", first)))
	g.fireEvent(cardEvent(EventCurrentCard, first))

	g.State = StateInProgress
	g.CurrentPlayerIndex = -1

	names := make([]string, len(g.Players))
	for i, p := range g.Players {
		names[i] = p.Name
	}
	log.WithFields(log.Fields{"game_id": g.ID, "players": len(g.Players), "first_card": first.String()}).Info("game started")
	g.logAction(uuid.Nil, "game_start", map[string]interface{}{"players": names, "first_card": first.String()})

	g.advanceTurnUnsafe()
}

// advanceTurnUnsafe passes the turn to the next dealt-in seat and notifies the table.
// Assumes lock is held.
func (g *EightsGame) advanceTurnUnsafe() {
	n := len(g.Players)
	if n == 0 {
		g.resetTableUnsafe()
		return
	}
	next := g.CurrentPlayerIndex
	for i := 0; i < n; i++ {
		next = ((next+1)%n + n) % n
		if g.Players[next].DealtIn {
			g.CurrentPlayerIndex = next
			g.notifyTurnUnsafe()
			return
		}
	}
	log.WithField("game_id", g.ID).Warn("no dealt-in players left to take a turn")
	g.resetTableUnsafe()
	g.fireEvent(noticeEvent("Not enough players remain. The game has been reset."))
}

// notifyTurnUnsafe announces the turn holder once per advance.
// Assumes lock is held.
func (g *EightsGame) notifyTurnUnsafe() {
	p := g.Players[g.CurrentPlayerIndex]
	top, err := g.DiscardPile.Top()
	if err != nil {
		g.abortUnsafe(err)
		return
	}
	g.fireEvent(GameEvent{Type: EventTurn, Player: p.Name})
	g.fireEvent(noticeEvent(fmt.Sprintf("It's %s's turn.", p.Name)))
	g.fireEventToPlayer(p.ID, cardEvent(EventCurrentCard, top))
	g.fireEventToPlayer(p.ID, g.handEvent(p))
	g.fireEventToPlayer(p.ID, GameEvent{Type: EventYourTurn})
}

// applySuitChoiceUnsafe fixes the effective suit after a wild and leaves AwaitingSuitChoice.
// Assumes lock is held and a choice is pending.
func (g *EightsGame) applySuitChoiceUnsafe(chooser string, suit models.Suit) {
	wild := g.pending.Card
	g.EffectiveSuit = suit
	g.pending = nil
	g.State = StateInProgress
	g.fireEvent(GameEvent{Type: EventChosenSuit, Player: chooser, Suit: suit})
	g.fireEvent(noticeEvent(fmt.Sprintf("%s chose suit: %s", chooser, suit)))
	g.fireEvent(cardEvent(EventCurrentCard, wild))
}

// declareWinnerUnsafe ends the game. A new one needs start or restart.
// Assumes lock is held.
func (g *EightsGame) declareWinnerUnsafe(p *models.Player) {
	g.fireEvent(GameEvent{Type: EventWinner, Player: p.Name})
	g.fireEvent(noticeEvent(fmt.Sprintf("%s wins the game!", p.Name)))
	g.State = StateFinished
	g.pending = nil
	g.ready = make(map[uuid.UUID]bool)
	g.CurrentPlayerIndex = -1
	log.WithFields(log.Fields{"game_id": g.ID, "winner": p.Name}).Info("game won")
	g.logAction(p.ID, "game_win", map[string]interface{}{"name": p.Name})
}

// resetTableUnsafe clears every card and returns to the lobby, keeping the roster.
// Assumes lock is held.
func (g *EightsGame) resetTableUnsafe() {
	g.Deck = nil
	g.DiscardPile = nil
	g.EffectiveSuit = ""
	g.pending = nil
	g.ready = make(map[uuid.UUID]bool)
	g.State = StateLobby
	g.CurrentPlayerIndex = -1
	for _, p := range g.Players {
		p.Hand = nil
		p.DealtIn = false
	}
}

// abortUnsafe recovers from a broken invariant by resetting the table.
// Assumes lock is held.
func (g *EightsGame) abortUnsafe(cause error) {
	log.WithFields(log.Fields{"game_id": g.ID, "state": g.State}).WithError(cause).Error("game invariant violated, resetting table")
	g.logAction(uuid.Nil, "game_abort", map[string]interface{}{"error": cause.Error()})
	g.resetTableUnsafe()
	g.fireEvent(noticeEvent("The game was reset after an internal error."))
}

// guardTurnUnsafe applies the checks shared by play and draw, in order.
// Assumes lock is held.
func (g *EightsGame) guardTurnUnsafe(playerID uuid.UUID) (*models.Player, error) {
	p := g.getPlayerByID(playerID)
	if p == nil {
		return nil, g.rejectUnsafe(playerID, ErrUnknownPlayer)
	}
	if !g.inGameUnsafe() {
		return nil, g.rejectUnsafe(playerID, ErrGameNotStarted)
	}
	if g.pending != nil {
		if g.pending.PlayerID == playerID {
			return nil, g.rejectUnsafe(playerID, ErrChooseSuitFirst)
		}
		if chooser := g.getPlayerByID(g.pending.PlayerID); chooser != nil {
			g.fireEventToPlayer(playerID, noticeEvent(fmt.Sprintf("Waiting for %s to choose a suit.", chooser.Name)))
			return nil, ErrSuitChoicePending
		}
		return nil, g.rejectUnsafe(playerID, ErrSuitChoicePending)
	}
	if cur := g.currentPlayerUnsafe(); cur == nil || cur.ID != playerID {
		return nil, g.rejectUnsafe(playerID, ErrNotYourTurn)
	}
	return p, nil
}

// rejectUnsafe tells only the offending player why their request failed.
func (g *EightsGame) rejectUnsafe(playerID uuid.UUID, gerr *GameError) error {
	g.fireEventToPlayer(playerID, noticeEvent(gerr.Message))
	return gerr
}

func (g *EightsGame) inGameUnsafe() bool {
	return g.State == StateInProgress || g.State == StateAwaitingSuitChoice
}

func (g *EightsGame) currentPlayerUnsafe() *models.Player {
	if g.CurrentPlayerIndex < 0 || g.CurrentPlayerIndex >= len(g.Players) {
		return nil
	}
	return g.Players[g.CurrentPlayerIndex]
}

func (g *EightsGame) handEvent(p *models.Player) GameEvent {
	cards := make([]models.Card, len(p.Hand))
	copy(cards, p.Hand)
	return GameEvent{Type: EventHand, Cards: cards}
}

// fireEvent broadcasts an event to all connected players.
// Assumes lock is held.
func (g *EightsGame) fireEvent(ev GameEvent) {
	if g.BroadcastFn != nil {
		g.BroadcastFn(ev)
	}
}

// fireEventToPlayer sends an event only to a specific player.
// Assumes lock is held.
func (g *EightsGame) fireEventToPlayer(playerID uuid.UUID, ev GameEvent) {
	if g.BroadcastToPlayerFn != nil {
		g.BroadcastToPlayerFn(playerID, ev)
	}
}

// getPlayerByID is a helper to find a player struct by their ID.
// Assumes lock is held by caller.
func (g *EightsGame) getPlayerByID(playerID uuid.UUID) *models.Player {
	for _, p := range g.Players {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

func (g *EightsGame) indexOfUnsafe(playerID uuid.UUID) int {
	for i, p := range g.Players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}

// logAction sends the action details to the historian queue. Lobby traffic belongs
// to no game and is not recorded.
// Assumes lock is held by caller.
func (g *EightsGame) logAction(actorID uuid.UUID, actionType string, payload map[string]interface{}) {
	if g.ActionLog == nil || g.State == StateLobby {
		return
	}
	g.actionIndex++
	if payload == nil {
		payload = make(map[string]interface{})
	}
	record := cache.GameActionRecord{
		GameID:        g.ID,
		ActionIndex:   g.actionIndex,
		ActorID:       actorID,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	}
	if p := g.getPlayerByID(actorID); p != nil {
		record.ActorName = p.Name
	}
	if g.actionQueue == nil {
		g.actionQueue = make(chan cache.GameActionRecord, actionQueueSize)
		go publishActions(g.ActionLog, g.actionQueue)
	}
	select {
	case g.actionQueue <- record:
	default:
		log.WithFields(log.Fields{"game_id": record.GameID, "action_index": record.ActionIndex}).Warn("action log backlog full, dropping record")
	}
}

// actionQueueSize bounds records waiting for the publisher.
const actionQueueSize = 1024

// publishActions is the single publisher goroutine, so records reach the log in the
// order they were taken.
func publishActions(sink ActionLogger, queue <-chan cache.GameActionRecord) {
	for rec := range queue {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := sink.PublishGameAction(ctx, rec); err != nil {
			log.WithFields(log.Fields{"game_id": rec.GameID, "action_index": rec.ActionIndex}).WithError(err).Warn("failed to publish game action")
		}
		cancel()
	}
}
