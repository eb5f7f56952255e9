package orchestrator

import (
	"errors"
	"fmt"
)

var (
	// ErrNoModels is returned when no model manager was configured.
	ErrNoModels = errors.New("orchestrator: model manager is required")
	// ErrTypeRequired is returned when a request names no root type.
	ErrTypeRequired = errors.New("orchestrator: root type is required")
	// ErrThemeNotFound is returned by StaticThemes for unknown themes.
	ErrThemeNotFound = errors.New("orchestrator: theme not found")
	// ErrVariantNotFound is returned by StaticThemes for unknown variants.
	ErrVariantNotFound = errors.New("orchestrator: theme variant not found")
	// ErrUnknownAction is returned by Form.Apply for unsupported actions.
	ErrUnknownAction = errors.New("orchestrator: unknown form action")
	// ErrUnknownType is returned by ResolveType when no concrete class
	// matches.
	ErrUnknownType = errors.New("orchestrator: unknown type")
	// ErrAmbiguousType is returned by ResolveType when a short name matches
	// classes in several namespaces.
	ErrAmbiguousType = errors.New("orchestrator: ambiguous type")
)

// ValueError reports a submitted value that could not be converted for the
// element bound to Key.
type ValueError struct {
	Key string
	Err error
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("orchestrator: %s: %v", e.Key, e.Err)
}

func (e *ValueError) Unwrap() error { return e.Err }
