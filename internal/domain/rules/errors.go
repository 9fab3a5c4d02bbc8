package rules

import "errors"

// Sentinel errors returned by Validate.
var (
	ErrEmptyDescription = errors.New("rule description must not be empty")
	ErrEmptyValue       = errors.New("rule value must not be empty")
	ErrUnknownVariable  = errors.New("unknown rule variable")
	ErrUnknownOperator  = errors.New("unknown rule operator")
	ErrUnknownAction    = errors.New("unknown rule action")
	ErrInvalidThreshold = errors.New("invalid rule threshold")
)
