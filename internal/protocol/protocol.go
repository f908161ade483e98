// Package protocol converts between text lines on the wire and the table's
// structured actions and events.
package protocol

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jason-s-yu/eights/internal/game"
	"github.com/jason-s-yu/eights/internal/models"
)

// Client command tags.
const (
	CmdStart   = "START_GAME"
	CmdRestart = "RESTART"
	CmdPlay    = "PLAY:"
	CmdDraw    = "DRAW"
	CmdSuit    = "SUIT:"
	CmdChat    = "CHAT:"
)

// Server line tags.
const (
	TagHand        = "HAND:"
	TagDrawnCard   = "DRAWN_CARD:"
	TagCurrentCard = "CURRENT_CARD:"
	TagYourTurn    = "YOUR_TURN"
	TagChooseSuit  = "CHOOSE_SUIT"
	TagChosenSuit  = "CHOSEN_SUIT:"
	TagClearChat   = "CLEAR_CHAT"
	TagGameOver    = "GAME_OVER:"
	TagNoCardsLeft = "NO_CARDS_LEFT:"
	TagWinner      = "WINNER:"
	TagTurn        = "TURN:"
	TagPlayed      = "PLAYED:"
)

const (
	cardListSep = ","
	playedSep   = "|"
	chatSep     = ": "
)

// MaxLineBytes bounds a single client line, newline excluded.
const MaxLineBytes = 4096

var (
	// ErrEmptyLine is returned for blank lines, which clients may send freely.
	ErrEmptyLine = errors.New("empty line")
	// ErrUnknownCommand is returned for any line that matches no command.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrInvalidCard wraps card parse failures inside PLAY commands.
	ErrInvalidCard = errors.New("invalid card")
	// ErrMalformedLine is returned by DecodeServerLine for a tagged line with a bad payload.
	ErrMalformedLine = errors.New("malformed server line")
)

// ParseCommand decodes one client line. The display name line is not a command
// and must be consumed by the caller first.
func ParseCommand(line string) (models.GameAction, error) {
	line = strings.TrimRight(line, "\r\n")
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "":
		return models.GameAction{}, ErrEmptyLine
	case trimmed == CmdStart:
		return models.GameAction{ActionType: models.ActionStart}, nil
	case strings.EqualFold(trimmed, CmdRestart):
		return models.GameAction{ActionType: models.ActionRestart}, nil
	case trimmed == CmdDraw:
		return models.GameAction{ActionType: models.ActionDraw}, nil
	case strings.HasPrefix(line, CmdPlay):
		arg := strings.TrimSpace(line[len(CmdPlay):])
		// older clients send PLAY:DRAW instead of DRAW
		if arg == CmdDraw {
			return models.GameAction{ActionType: models.ActionDraw}, nil
		}
		c, err := models.ParseCard(arg)
		if err != nil {
			return models.GameAction{}, fmt.Errorf("%w: %v", ErrInvalidCard, err)
		}
		return models.GameAction{ActionType: models.ActionPlay, Card: c}, nil
	case strings.HasPrefix(line, CmdSuit):
		return models.GameAction{ActionType: models.ActionSuit, Suit: models.Suit(strings.TrimSpace(line[len(CmdSuit):]))}, nil
	case strings.HasPrefix(line, CmdChat):
		return models.GameAction{ActionType: models.ActionChat, Text: line[len(CmdChat):]}, nil
	default:
		return models.GameAction{}, fmt.Errorf("%w: %q", ErrUnknownCommand, trimmed)
	}
}

// ErrorNotice renders a parse failure as the text sent back to the client.
func ErrorNotice(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCard):
		return "Invalid move: Unrecognized card."
	case errors.Is(err, ErrUnknownCommand):
		return "Unknown command."
	default:
		return err.Error()
	}
}

// Encode renders an event as one wire line without the trailing newline.
func Encode(ev game.GameEvent) string {
	switch ev.Type {
	case game.EventHand:
		parts := make([]string, len(ev.Cards))
		for i, c := range ev.Cards {
			parts[i] = c.String()
		}
		return TagHand + strings.Join(parts, cardListSep)
	case game.EventDrawnCard:
		return TagDrawnCard + cardString(ev.Card)
	case game.EventCurrentCard:
		return TagCurrentCard + cardString(ev.Card)
	case game.EventYourTurn:
		return TagYourTurn
	case game.EventChooseSuit:
		return TagChooseSuit
	case game.EventChosenSuit:
		return TagChosenSuit + string(ev.Suit)
	case game.EventClearChat:
		return TagClearChat
	case game.EventGameOver:
		return TagGameOver + ev.Player
	case game.EventNoCardsLeft:
		return TagNoCardsLeft + " " + ev.Text
	case game.EventWinner:
		return TagWinner + ev.Player
	case game.EventTurn:
		return TagTurn + ev.Player
	case game.EventPlayed:
		return TagPlayed + ev.Player + playedSep + cardString(ev.Card)
	case game.EventChat:
		return ev.Player + chatSep + ev.Text
	default:
		return ev.Text
	}
}

func cardString(c *models.Card) string {
	if c == nil {
		return ""
	}
	return c.String()
}

// DecodeServerLine is the inverse of Encode for tagged lines. Chat and notice lines
// share a free-text form, so every untagged line decodes as a notice.
func DecodeServerLine(line string) (game.GameEvent, error) {
	line = strings.TrimRight(line, "\r\n")
	switch {
	case strings.HasPrefix(line, TagHand):
		payload := line[len(TagHand):]
		ev := game.GameEvent{Type: game.EventHand, Cards: []models.Card{}}
		if payload == "" {
			return ev, nil
		}
		for _, s := range strings.Split(payload, cardListSep) {
			c, err := models.ParseCard(s)
			if err != nil {
				return game.GameEvent{}, fmt.Errorf("%w: %v", ErrMalformedLine, err)
			}
			ev.Cards = append(ev.Cards, c)
		}
		return ev, nil
	case strings.HasPrefix(line, TagDrawnCard):
		return decodeCard(game.EventDrawnCard, line[len(TagDrawnCard):])
	case strings.HasPrefix(line, TagCurrentCard):
		return decodeCard(game.EventCurrentCard, line[len(TagCurrentCard):])
	case line == TagYourTurn:
		return game.GameEvent{Type: game.EventYourTurn}, nil
	case line == TagChooseSuit:
		return game.GameEvent{Type: game.EventChooseSuit}, nil
	case strings.HasPrefix(line, TagChosenSuit):
		suit, err := models.ParseSuit(line[len(TagChosenSuit):])
		if err != nil {
			return game.GameEvent{}, fmt.Errorf("%w: %v", ErrMalformedLine, err)
		}
		return game.GameEvent{Type: game.EventChosenSuit, Suit: suit}, nil
	case line == TagClearChat:
		return game.GameEvent{Type: game.EventClearChat}, nil
	case strings.HasPrefix(line, TagGameOver):
		return game.GameEvent{Type: game.EventGameOver, Player: line[len(TagGameOver):]}, nil
	case strings.HasPrefix(line, TagNoCardsLeft):
		return game.GameEvent{Type: game.EventNoCardsLeft, Text: strings.TrimPrefix(line[len(TagNoCardsLeft):], " ")}, nil
	case strings.HasPrefix(line, TagWinner):
		return game.GameEvent{Type: game.EventWinner, Player: line[len(TagWinner):]}, nil
	case strings.HasPrefix(line, TagTurn):
		return game.GameEvent{Type: game.EventTurn, Player: line[len(TagTurn):]}, nil
	case strings.HasPrefix(line, TagPlayed):
		name, cardText, ok := cutLast(line[len(TagPlayed):], playedSep)
		if !ok {
			return game.GameEvent{}, fmt.Errorf("%w: missing %q in %q", ErrMalformedLine, playedSep, line)
		}
		ev, err := decodeCard(game.EventPlayed, cardText)
		if err != nil {
			return game.GameEvent{}, err
		}
		ev.Player = name
		return ev, nil
	default:
		return game.GameEvent{Type: game.EventNotice, Text: line}, nil
	}
}

func decodeCard(t game.GameEventType, s string) (game.GameEvent, error) {
	c, err := models.ParseCard(s)
	if err != nil {
		return game.GameEvent{}, fmt.Errorf("%w: %v", ErrMalformedLine, err)
	}
	return game.GameEvent{Type: t, Card: &c}, nil
}

// cutLast splits around the last sep so display names may contain it.
func cutLast(s, sep string) (before, after string, found bool) {
	i := strings.LastIndex(s, sep)
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+len(sep):], true
}
