package log

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/bft-labs/firehose/internal/domain"
)

// ErrorLog implements ports.ErrorSink as JSON lines. The writer is wrapped in
// zerolog.SyncWriter, so entries from concurrent workers never interleave.
type ErrorLog struct {
	logger zerolog.Logger
	closer io.Closer
}

// NewErrorLog writes entries to w.
func NewErrorLog(w io.Writer) *ErrorLog {
	return &ErrorLog{
		logger: zerolog.New(zerolog.SyncWriter(w)).With().Timestamp().Logger(),
	}
}

// OpenErrorLog appends entries to the file at path. An empty path or "-"
// selects stderr.
func OpenErrorLog(path string) (*ErrorLog, error) {
	if path == "" || path == "-" {
		return NewErrorLog(os.Stderr), nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open error log: %w", err)
	}
	l := NewErrorLog(f)
	l.closer = f
	return l, nil
}

// ReportFault implements ports.ErrorSink.
func (l *ErrorLog) ReportFault(sessionID string, fault *domain.Fault) {
	ev := l.logger.Error()
	if fault.Kind == domain.FaultEndOfStream {
		ev = l.logger.Warn()
	}
	ev.Str("kind", fault.Kind.String()).
		Str("op", fault.Op).
		Str("session", sessionID).
		Str("error", fault.Error()).
		Msg("stream session ended")
}

// ReportMalformed implements ports.ErrorSink.
func (l *ErrorLog) ReportMalformed(rec domain.Record, err error) {
	l.logger.Error().
		Str("kind", "malformed_record").
		Err(err).
		Bytes("payload", rec).
		Msg("error processing JSON")
}

// ReportSinkError implements ports.ErrorSink.
func (l *ErrorLog) ReportSinkError(err error) {
	l.logger.Error().
		Str("kind", "output").
		Err(err).
		Msg("output write failed")
}

// Close closes the underlying file, if any.
func (l *ErrorLog) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}
