package ledger

import "errors"

// Sentinel errors for bet settlement.
var (
	ErrBetClosed     = errors.New("bet is not open")
	ErrUnknownWinner = errors.New("winner is not part of the bet")
)
