package store

import (
	"errors"
	"fmt"
)

// Kind is a coarse-grained categorization for store errors.
type Kind string

const (
	// KindConnectivity means the store could not be reached at all
	KindConnectivity Kind = "connectivity"
	// KindOperation means a single call against a reachable store failed
	KindOperation Kind = "operation"
)

// Error wraps an underlying store error with the operation and key it happened on.
type Error struct {
	Op   string
	Key  string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	base := fmt.Sprintf("store %s: %s", e.Op, e.Kind)
	if e.Key != "" {
		base += fmt.Sprintf(" (key=%s)", e.Key)
	}
	if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}
	return base
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsKind helps callers classify errors without depending on a specific engine.
func IsKind(err error, kind Kind) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind == kind
	}
	return false
}

func opError(op, key string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Key: key, Kind: KindOperation, Err: err}
}
