package visitor

import (
	"errors"
	"fmt"
)

var (
	// ErrUnrecognizedNode is returned when Visit receives a node that is not a
	// class, enumeration, field or relationship.
	ErrUnrecognizedNode = errors.New("visitor: unrecognized node type")
	// ErrMissingCustomSelector is returned when a field names a custom
	// selector key that Params.CustomSelectors does not provide.
	ErrMissingCustomSelector = errors.New("visitor: missing custom selector")
	// ErrMaxDepth is returned when class nesting exceeds the configured bound.
	ErrMaxDepth = errors.New("visitor: maximum nesting depth exceeded")
	// ErrNoModels is returned when a non-primitive type must be resolved but
	// Params.Models is nil.
	ErrNoModels = errors.New("visitor: model manager is required")
)

// NodeError reports the node Visit could not dispatch.
type NodeError struct {
	Name string
	Type string
}

func (e *NodeError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s: %s", ErrUnrecognizedNode, e.Type)
	}
	return fmt.Sprintf("%s: %s (%s)", ErrUnrecognizedNode, e.Name, e.Type)
}

func (e *NodeError) Unwrap() error { return ErrUnrecognizedNode }

// SelectorError reports a field whose custom selector key is not registered.
type SelectorError struct {
	Field string
	Key   string
}

func (e *SelectorError) Error() string {
	return fmt.Sprintf("%s: %q required by %s", ErrMissingCustomSelector, e.Key, e.Field)
}

func (e *SelectorError) Unwrap() error { return ErrMissingCustomSelector }
