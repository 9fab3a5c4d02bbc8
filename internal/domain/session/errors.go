package session

import "errors"

// Sentinel errors for lifecycle operations.
var (
	ErrWrongStatus    = errors.New("operation not allowed in current match status")
	ErrMissingUser    = errors.New("registration needs a user id")
	ErrNotParticipant = errors.New("not a participant of this match")
	ErrInvalidScore   = errors.New("scores must not be negative")
	ErrNotConfirmed   = errors.New("not every participant confirmed the result")
	ErrNotVoted       = errors.New("not every participant voted")
)
