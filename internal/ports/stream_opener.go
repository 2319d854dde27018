package ports

import (
	"context"
	"io"
)

// StreamOpener establishes one stream session.
type StreamOpener interface {
	// Open connects to the configured endpoint and returns the raw,
	// still gzip-compressed response body. The body must be closed by the
	// caller. Canceling ctx aborts both the connect and any pending read.
	Open(ctx context.Context) (io.ReadCloser, error)
}

// CredentialSource supplies the Basic auth token for each connect attempt.
type CredentialSource interface {
	Token() string
}
