package urivalidator

import "errors"

var (
	// ErrInvalidURI is returned when a URI fails policy validation
	ErrInvalidURI = errors.New("invalid redirect URI")

	// ErrInvalidSettings is returned when a settings update violates a
	// policy invariant
	ErrInvalidSettings = errors.New("invalid validation settings")
)
