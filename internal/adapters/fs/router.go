package fs

import (
	"errors"
	"io"
	"sync"
)

// ErrNoSink is returned by a Router that has no active output.
var ErrNoSink = errors.New("fs: no active output")

// Router owns the active output sink. Writers look the sink up on every
// write, so a Swap takes effect from the next line on without restarting
// the writers.
type Router struct {
	mu   sync.Mutex
	sink io.WriteCloser
	name string
	line []byte
}

// NewRouter creates a router with no active sink.
func NewRouter() *Router {
	return &Router{}
}

// Write implements io.Writer on the active sink.
func (r *Router) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sink == nil {
		return 0, ErrNoSink
	}
	return r.sink.Write(p)
}

// WriteLine writes line followed by a newline in a single write.
func (r *Router) WriteLine(line []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sink == nil {
		return ErrNoSink
	}
	r.line = append(r.line[:0], line...)
	r.line = append(r.line, '\n')
	_, err := r.sink.Write(r.line)
	return err
}

// Swap installs sink as the active output and closes the previous one.
// The returned error is the close error of the previous sink.
func (r *Router) Swap(sink io.WriteCloser, name string) error {
	r.mu.Lock()
	old := r.sink
	r.sink = sink
	r.name = name
	r.mu.Unlock()

	if old != nil {
		return old.Close()
	}
	return nil
}

// Name returns the name given to the active sink, or "" if there is none.
func (r *Router) Name() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.name
}

// Close closes the active sink. Later writes return ErrNoSink.
func (r *Router) Close() error {
	r.mu.Lock()
	sink := r.sink
	r.sink = nil
	r.name = ""
	r.mu.Unlock()

	if sink != nil {
		return sink.Close()
	}
	return nil
}
