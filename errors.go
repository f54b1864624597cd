package bgcut

import "errors"

// Error taxonomy. Callers match with errors.Is; wrapped errors carry the
// underlying detail.
var (
	// ErrModelNotFound means the configured model file does not exist.
	// Fatal for the call; recoverable by pointing the config at a real model.
	ErrModelNotFound = errors.New("model not found")

	// ErrInvalidImage means the input could not be decoded or is empty.
	// Batch runs skip the item.
	ErrInvalidImage = errors.New("invalid image")

	// ErrProviderUnavailable means the requested execution provider is not
	// usable on this machine. Non-fatal: callers may fall back to CPU.
	ErrProviderUnavailable = errors.New("execution provider unavailable")

	// ErrInferenceFailed means the backend rejected or failed the run.
	// Never retried automatically.
	ErrInferenceFailed = errors.New("inference failed")

	// ErrIO covers read/write/permission failures on image files.
	ErrIO = errors.New("i/o failure")
)
