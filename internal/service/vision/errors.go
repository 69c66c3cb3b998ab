package vision

import "github.com/pkg/errors"

var (
	// ErrConfiguration marks a classifier that could not be loaded at startup.
	ErrConfiguration = errors.New("configuration error")
	// ErrInvalidInput marks an empty or malformed frame.
	ErrInvalidInput = errors.New("invalid input")
)
