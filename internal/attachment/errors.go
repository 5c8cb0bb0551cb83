package attachment

import "errors"

// Pipeline errors. Their text is what API clients see.
var (
	// ErrDownloadRejected is returned when the backend declines the download.
	ErrDownloadRejected = errors.New("download failed")

	// ErrDownloadTimeout is returned when the attempt budget runs out
	// before the attachment resolves.
	ErrDownloadTimeout = errors.New("download timed out")

	// ErrReadFile wraps an I/O error reading a resolved attachment.
	ErrReadFile = errors.New("read file failed")
)
