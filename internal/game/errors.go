package game

import "errors"

// Business errors surfaced to the client as a single error frame. The
// session is never mutated when one of these is returned.
var (
	ErrAlreadyInGame     = errors.New("player is already in an active game")
	ErrNotJoinable       = errors.New("game is not accepting players")
	ErrWrongGameState    = errors.New("operation not valid in current game state")
	ErrTransientInternal = errors.New("temporary internal error, try again")
)
