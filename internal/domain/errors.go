package domain

import "errors"

// Domain errors can be checked with errors.Is.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("firehose: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("firehose: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("firehose: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("firehose: invalid configuration")

	// ErrMissingCredentials is returned when the credentials file does not exist.
	ErrMissingCredentials = errors.New("firehose: credentials file not found")

	// ErrInvalidCredentials is returned when the credentials token cannot be decoded.
	ErrInvalidCredentials = errors.New("firehose: invalid credentials")

	// ErrInvalidOutput is returned when the output destination is missing or unusable.
	ErrInvalidOutput = errors.New("firehose: invalid output destination")

	// ErrReadTimeout is returned by a stream body when no bytes arrived within the read timeout.
	ErrReadTimeout = errors.New("firehose: read timeout")

	// ErrFrameTooLarge is returned when the frame buffer grows past the record size limit.
	ErrFrameTooLarge = errors.New("firehose: record exceeds size limit")

	// ErrInvalidTransition is returned for a state change the supervisor does not allow.
	ErrInvalidTransition = errors.New("firehose: invalid state transition")
)
