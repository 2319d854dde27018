package log

import "github.com/bft-labs/firehose/internal/domain"

// NopErrorSink implements ports.ErrorSink by discarding every entry.
type NopErrorSink struct{}

// ReportFault discards the entry.
func (NopErrorSink) ReportFault(sessionID string, fault *domain.Fault) {}

// ReportMalformed discards the entry.
func (NopErrorSink) ReportMalformed(rec domain.Record, err error) {}

// ReportSinkError discards the entry.
func (NopErrorSink) ReportSinkError(err error) {}
