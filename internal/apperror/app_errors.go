package apperror

import "errors"

var (
	ErrGameFinished         = errors.New("game is already finished")
	ErrNotYourTurn          = errors.New("it's not your turn")
	ErrInvalidMatchState    = errors.New("invalid match state")
	ErrPlayerNotFound       = errors.New("player not found")
	ErrPlayerNotInSession   = errors.New("player is not part of the session")
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrDuplicatePlayer      = errors.New("player is already queued")
	ErrInvariantViolation   = errors.New("invariant violation")
)
