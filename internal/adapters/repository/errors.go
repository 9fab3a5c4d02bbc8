package repository

import "errors"

// Sentinel errors shared by every Store implementation.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)
