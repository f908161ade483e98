package game

// GameError is a rule or protocol rejection reported to the offending participant only.
type GameError struct {
	Code    int
	Message string
}

func (e *GameError) Error() string {
	return e.Message
}

const (
	CodeUnknownPlayer = 1000 + iota
	CodeTableFull
	CodeEmptyName
	CodeGameNotStarted
	CodeGameInProgress
	CodeNotYourTurn
	CodeSuitChoicePending
	CodeChooseSuitFirst
	CodeCardNotInHand
	CodeIllegalCard
	CodeUnexpectedSuit
	CodeInvalidSuit
	CodeNoPlayers
	CodeInvalidName
)

var (
	ErrUnknownPlayer     = &GameError{Code: CodeUnknownPlayer, Message: "You are not seated at this table."}
	ErrTableFull         = &GameError{Code: CodeTableFull, Message: "The table is full."}
	ErrEmptyName         = &GameError{Code: CodeEmptyName, Message: "Name must not be empty."}
	ErrGameNotStarted    = &GameError{Code: CodeGameNotStarted, Message: "No game is in progress."}
	ErrGameInProgress    = &GameError{Code: CodeGameInProgress, Message: "A game is already in progress."}
	ErrNotYourTurn       = &GameError{Code: CodeNotYourTurn, Message: "Invalid move: It's not your turn."}
	ErrSuitChoicePending = &GameError{Code: CodeSuitChoicePending, Message: "Please wait until the suit has been chosen."}
	ErrChooseSuitFirst   = &GameError{Code: CodeChooseSuitFirst, Message: "Please choose a suit before making another move."}
	ErrCardNotInHand     = &GameError{Code: CodeCardNotInHand, Message: "Invalid move: You don't have that card."}
	ErrIllegalCard       = &GameError{Code: CodeIllegalCard, Message: "Invalid move: Card does not match the current suit or rank."}
	ErrUnexpectedSuit    = &GameError{Code: CodeUnexpectedSuit, Message: "Not expecting a suit selection from you."}
	ErrInvalidSuit       = &GameError{Code: CodeInvalidSuit, Message: "Invalid suit. Choose Hearts, Diamonds, Clubs or Spades."}
	ErrNoPlayers         = &GameError{Code: CodeNoPlayers, Message: "There are no players at the table."}
	ErrInvalidName       = &GameError{Code: CodeInvalidName, Message: "That name is reserved or contains ':' or '|'."}
)
