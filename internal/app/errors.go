package service

import "errors"

// Sentinel errors returned by the service in addition to the domain and
// repository ones it passes through.
var (
	ErrNotStarted   = errors.New("service not started")
	ErrInvalidInput = errors.New("invalid input")
)
