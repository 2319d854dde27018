package ports

import "github.com/bft-labs/firehose/internal/domain"

// RecordHandler processes one framed record. It runs on a dispatcher worker
// and must be safe for concurrent use.
type RecordHandler interface {
	Handle(rec domain.Record)
}

// RecordHandlerFunc adapts a function to RecordHandler.
type RecordHandlerFunc func(rec domain.Record)

// Handle calls f(rec).
func (f RecordHandlerFunc) Handle(rec domain.Record) { f(rec) }
