package instrument

import "errors"

// Sentinel errors for instrument operations.
var (
	// ErrUnknownBackend indicates the configured backend name has no
	// registered driver set.
	ErrUnknownBackend = errors.New("instrument: unknown backend")

	// ErrNotConnected indicates an operation was attempted on an
	// instrument whose session is down.
	ErrNotConnected = errors.New("instrument: not connected")
)
