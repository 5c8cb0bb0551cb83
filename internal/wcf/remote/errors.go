package remote

import "errors"

var (
	// ErrTimeout is returned when the bridge does not answer within the
	// call timeout.
	ErrTimeout = errors.New("remote: bridge did not respond")

	// ErrRemote wraps an error reported by the bridge (ok=false).
	ErrRemote = errors.New("remote: bridge error")

	// ErrClosed is returned for calls made or pending when the client closes.
	ErrClosed = errors.New("remote: client closed")
)
