package loopstate

import (
	"errors"

	"github.com/randalmurphal/loopstate/pkg/loopstate/backend"
)

// Sentinel errors for iteration and persistence.
var (
	// ErrCorruptCheckpoint indicates malformed checkpoint content on load.
	// It is propagated, never silently replaced with an empty state.
	// Aliases backend.ErrCorrupt so errors.Is matches across packages.
	ErrCorruptCheckpoint = backend.ErrCorrupt

	// ErrClosed indicates the iterator or tracker was already closed.
	ErrClosed = errors.New("already closed")

	// ErrTooManyRemaining indicates the remaining sequence exceeded the
	// materialization limit while persisting in unsafe mode.
	ErrTooManyRemaining = errors.New("remaining sequence exceeds materialization limit")

	// ErrStop tells Each to stop the loop and persist the remaining
	// items. It is consumed by Each and not returned to the caller.
	ErrStop = errors.New("stop iteration")
)
