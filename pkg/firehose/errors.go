package firehose

import "github.com/bft-labs/firehose/internal/domain"

// Errors returned by the engine. Check them with errors.Is.
var (
	ErrAlreadyRunning     = domain.ErrAlreadyRunning
	ErrNotRunning         = domain.ErrNotRunning
	ErrShutdownTimeout    = domain.ErrShutdownTimeout
	ErrInvalidConfig      = domain.ErrInvalidConfig
	ErrInvalidOutput      = domain.ErrInvalidOutput
	ErrMissingCredentials = domain.ErrMissingCredentials
	ErrInvalidCredentials = domain.ErrInvalidCredentials
)
