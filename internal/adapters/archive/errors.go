package archive

import "errors"

var (
	// ErrCorrupt is returned when an archive or one of its members cannot be decoded.
	ErrCorrupt = errors.New("archive is corrupt")
	// ErrInvalidLabels is returned when decoded data is not a map of non-negative integer labels.
	ErrInvalidLabels = errors.New("invalid label data")
	// ErrUnsupportedDType is returned for array element types that cannot hold labels.
	ErrUnsupportedDType = errors.New("unsupported array dtype")
	// ErrTooLarge is returned when an upload or archive member exceeds its size cap.
	ErrTooLarge = errors.New("file too large")
	// ErrNotFound is returned when an archive file does not exist.
	ErrNotFound = errors.New("archive not found")
	// ErrUnknownFormat is returned by ForFormat for unregistered format names.
	ErrUnknownFormat = errors.New("unknown archive format")
)
