package domain

import (
	"errors"
	"fmt"
)

var ErrUnknownFactor = errors.New("unknown factor")

// ConfigurationError is raised before any simulation runs
type ConfigurationError struct {
	Field   string
	Message string
}

func (e ConfigurationError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Message)
}

// MalformedInputError means the data handed to the engine violates its
// shape guarantees (unordered bars, bad prices, broken snapshots)
type MalformedInputError struct {
	Symbol string
	Reason string
}

func (e MalformedInputError) Error() string {
	if e.Symbol == "" {
		return fmt.Sprintf("malformed input: %s", e.Reason)
	}
	return fmt.Sprintf("malformed input for %s: %s", e.Symbol, e.Reason)
}
