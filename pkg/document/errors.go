package document

import "errors"

var (
	// ErrInvalidKey indicates a malformed lookup key.
	ErrInvalidKey = errors.New("document: invalid key")
	// ErrNotArray is returned when an array operation targets a non-array.
	ErrNotArray = errors.New("document: value is not an array")
	// ErrIndexOutOfRange is returned by Remove for indices past the end.
	ErrIndexOutOfRange = errors.New("document: index out of range")
	// ErrShapeMismatch is returned when a key disagrees with the stored shape.
	ErrShapeMismatch = errors.New("document: key does not match document shape")
)
