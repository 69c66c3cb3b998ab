package sound

import "github.com/pkg/errors"

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrEmptyCategory    = errors.New("category has no wav files")
	ErrClosed           = errors.New("categorizer is closed")
	ErrAudioInit        = errors.New("audio initialization failed")
)
