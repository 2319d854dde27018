package stream

import (
	"bytes"

	"github.com/bft-labs/firehose/internal/domain"
)

// DefaultDelimiter separates records on the wire.
var DefaultDelimiter = []byte("\r\n")

// DefaultMaxRecordBytes bounds the frame buffer.
const DefaultMaxRecordBytes = 16 << 20

// Framer splits inflated bytes into records. It keeps the trailing partial
// record between calls. Not safe for concurrent use.
type Framer struct {
	delim []byte
	max   int
	buf   []byte
}

// NewFramer creates a framer. maxRecord <= 0 disables the size limit.
func NewFramer(delim []byte, maxRecord int) *Framer {
	if len(delim) == 0 {
		delim = DefaultDelimiter
	}
	return &Framer{delim: bytes.Clone(delim), max: maxRecord}
}

// Feed appends p to the frame buffer and returns every complete record, in
// arrival order. Blank segments are dropped. Returned records never alias
// the frame buffer or p.
//
// If the retained remainder exceeds the size limit, the records found so far
// are returned along with domain.ErrFrameTooLarge.
func (f *Framer) Feed(p []byte) ([]domain.Record, error) {
	// A delimiter may straddle the old buffer and p.
	from := len(f.buf) - len(f.delim) + 1
	if from < 0 {
		from = 0
	}
	f.buf = append(f.buf, p...)

	var out []domain.Record
	start := 0
	for {
		i := bytes.Index(f.buf[from:], f.delim)
		if i < 0 {
			break
		}
		end := from + i
		seg := domain.Record(f.buf[start:end])
		if !seg.Blank() {
			out = append(out, domain.Record(bytes.Clone(seg)))
		}
		start = end + len(f.delim)
		from = start
	}
	if start > 0 {
		n := copy(f.buf, f.buf[start:])
		f.buf = f.buf[:n]
	}
	if f.max > 0 && len(f.buf) > f.max {
		return out, domain.ErrFrameTooLarge
	}
	return out, nil
}

// Buffered returns the size of the held-back partial record.
func (f *Framer) Buffered() int {
	return len(f.buf)
}

// Remainder returns a copy of the held-back partial record.
func (f *Framer) Remainder() []byte {
	return bytes.Clone(f.buf)
}

// Reset empties the frame buffer.
func (f *Framer) Reset() {
	f.buf = f.buf[:0]
}
