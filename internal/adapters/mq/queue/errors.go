package queue

import "errors"

// Sentinel errors surfaced to callers when Enqueue refuses an update.
var (
	ErrFull   = errors.New("update queue is full")
	ErrClosed = errors.New("update queue is closed")
)
