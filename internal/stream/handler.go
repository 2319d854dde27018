package stream

import (
	"bytes"
	"encoding/json"

	"github.com/valyala/bytebufferpool"

	"github.com/bft-labs/firehose/internal/domain"
	"github.com/bft-labs/firehose/internal/ports"
)

// JSONHandler validates each record as a JSON document and writes its
// compact form to the output sink. Records that fail to decode go to the
// error sink with their raw payload; they never reach the output.
type JSONHandler struct {
	out      ports.LineSink
	errs     ports.ErrorSink
	observer ports.Observer
	pool     bytebufferpool.Pool
}

// NewJSONHandler creates a handler writing to out and errs.
func NewJSONHandler(out ports.LineSink, errs ports.ErrorSink, observer ports.Observer) *JSONHandler {
	if observer == nil {
		observer = ports.NopObserver{}
	}
	return &JSONHandler{out: out, errs: errs, observer: observer}
}

// Handle implements ports.RecordHandler.
func (h *JSONHandler) Handle(rec domain.Record) {
	buf := h.pool.Get()
	defer h.pool.Put(buf)

	if err := Canonicalize(buf, rec); err != nil {
		h.observer.OnRecordMalformed()
		h.errs.ReportMalformed(rec, err)
		return
	}
	if err := h.out.WriteLine(buf.B); err != nil {
		h.errs.ReportSinkError(err)
		return
	}
	h.observer.OnRecordWritten()
}

// Canonicalize decodes rec as one JSON document and appends its compact
// encoding to buf, without a trailing newline. Member order and number
// literals are preserved and HTML characters are not escaped.
func Canonicalize(buf *bytebufferpool.ByteBuffer, rec []byte) error {
	var doc json.RawMessage
	if err := json.Unmarshal(rec, &doc); err != nil {
		return err
	}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	buf.B = bytes.TrimSuffix(buf.B, newline)
	return nil
}

var newline = []byte("\n")
