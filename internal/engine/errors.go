package engine

import "errors"

var (
	ErrUnknownCategory   = errors.New("autocomplete: unknown category")
	ErrRebuildInProgress = errors.New("autocomplete: rebuild already in progress")
	ErrClosed            = errors.New("autocomplete: index closed")
	ErrInvalidInput      = errors.New("autocomplete: invalid input")
	ErrReadOnly          = errors.New("autocomplete: index is read-only")
)
