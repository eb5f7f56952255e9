package concerto

import "errors"

var (
	// ErrTypeNotFound is returned when a qualified name is not registered.
	ErrTypeNotFound = errors.New("concerto: type not found")
	// ErrUnsupportedFormat signals a model file extension the loader cannot read.
	ErrUnsupportedFormat = errors.New("concerto: unsupported model format")
)
