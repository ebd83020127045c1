package core

import (
	"errors"
)

// Sentinels shared across subsystems so callers can branch with
// errors.Is instead of matching message text.
var (
	ErrNotInitialized = errors.New("not initialized")
	ErrShuttingDown   = errors.New("shutting down")
)
