package wildchess

import "errors"

// Rejections leave the board and phase untouched; callers relay the
// message to the requester only.
var (
	ErrPhaseViolation      = errors.New("operation not permitted in current game phase")
	ErrNotYourTurn         = errors.New("not your turn")
	ErrWrongPlacementColor = errors.New("not your turn to place a piece")
	ErrSquareOccupied      = errors.New("square is occupied")
	ErrInvalidMove         = errors.New("invalid move")
	ErrPlacementIncomplete = errors.New("not all pieces have been placed")
)
