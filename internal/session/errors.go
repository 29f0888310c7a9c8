package session

import "errors"

// Common errors for session store operations.
var (
	ErrNotFound         = errors.New("session not found")
	ErrInvalidConfig    = errors.New("invalid session store configuration")
	ErrInvalidStoreType = errors.New("invalid session store type")
)
