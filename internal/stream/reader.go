package stream

import (
	"io"

	"github.com/klauspost/compress/gzip"
)

// DefaultChunkSize is the largest compressed read issued to the transport.
// Larger values reduce syscalls on busy streams; smaller values reduce the
// latency added on quiet ones. About 1 KiB is the practical minimum.
const DefaultChunkSize = 4 * 1024

// minInflateBuffer bounds how much inflated output one Pull can return.
const minInflateBuffer = 32 * 1024

// chunkReader caps every transport read at max bytes and counts them.
type chunkReader struct {
	r   io.Reader
	max int
	n   int64
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(p) > c.max {
		p = p[:c.max]
	}
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// Reader inflates a gzip-wrapped HTTP body incrementally.
// It belongs to exactly one session and is not safe for concurrent use.
type Reader struct {
	src      *chunkReader
	zr       *gzip.Reader
	buf      []byte
	inflated int64
}

// NewReader wraps body. The gzip header is read lazily on the first Pull so
// that constructing a Reader never blocks.
func NewReader(body io.Reader, chunkSize int) *Reader {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	size := chunkSize * 8
	if size < minInflateBuffer {
		size = minInflateBuffer
	}
	return &Reader{
		src: &chunkReader{r: body, max: chunkSize},
		buf: make([]byte, size),
	}
}

// Pull returns the next inflated bytes. The returned slice is only valid
// until the next call. It returns io.EOF when the transport ends cleanly
// between gzip members, and any other error for transport or format faults.
// A call may return no bytes and a nil error; callers simply pull again.
func (r *Reader) Pull() ([]byte, error) {
	if r.zr == nil {
		zr, err := gzip.NewReader(r.src)
		if err != nil {
			return nil, err
		}
		r.zr = zr
	}
	n, err := r.zr.Read(r.buf)
	if n > 0 {
		// gzip.Reader keeps a sticky error, so a non-nil err resurfaces
		// on the next call.
		r.inflated += int64(n)
		return r.buf[:n], nil
	}
	return nil, err
}

// Compressed returns the number of bytes read from the transport so far.
func (r *Reader) Compressed() int64 {
	return r.src.n
}

// Inflated returns the number of bytes produced so far.
func (r *Reader) Inflated() int64 {
	return r.inflated
}
