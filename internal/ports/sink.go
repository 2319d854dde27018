package ports

import "github.com/bft-labs/firehose/internal/domain"

// LineSink receives complete output lines. Implementations serialize
// concurrent writers so a line is never interleaved with another.
type LineSink interface {
	WriteLine(line []byte) error
}

// ErrorSink receives diagnostics. Like LineSink, every entry is written whole.
type ErrorSink interface {
	// ReportFault records the fault that ended a session.
	ReportFault(sessionID string, fault *domain.Fault)

	// ReportMalformed records a record that failed structural decoding.
	ReportMalformed(rec domain.Record, err error)

	// ReportSinkError records a failed write to the output sink.
	ReportSinkError(err error)
}
