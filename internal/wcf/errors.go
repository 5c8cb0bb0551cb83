package wcf

import "errors"

var (
	// ErrPanic wraps a panic raised inside a guarded backend call.
	ErrPanic = errors.New("wcf: backend call panicked")

	// ErrBackendUnavailable is returned by backends that cannot reach the session.
	ErrBackendUnavailable = errors.New("wcf: backend unavailable")
)
