package stream

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/firehose/internal/domain"
	"github.com/bft-labs/firehose/internal/ports"
	"github.com/bft-labs/firehose/pkg/log"
)

var noopLogger = log.NewNoopLogger()

func gzipBytes(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// memSink collects output lines.
type memSink struct {
	mu    sync.Mutex
	lines []string
}

func (m *memSink) WriteLine(line []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = append(m.lines, string(line))
	return nil
}

func (m *memSink) Lines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.lines...)
}

// memErrors collects error sink entries.
type memErrors struct {
	mu        sync.Mutex
	faults    []*domain.Fault
	malformed []string
	sinkErrs  []error
}

func (m *memErrors) ReportFault(sessionID string, f *domain.Fault) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults = append(m.faults, f)
}

func (m *memErrors) ReportMalformed(rec domain.Record, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.malformed = append(m.malformed, string(rec))
}

func (m *memErrors) ReportSinkError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sinkErrs = append(m.sinkErrs, err)
}

func (m *memErrors) Faults() []*domain.Fault {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.Fault(nil), m.faults...)
}

func (m *memErrors) Malformed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.malformed...)
}

// errReader fails every read with err.
type errReader struct{ err error }

func (e errReader) Read([]byte) (int, error) { return 0, e.err }

// blockingReader blocks until ctx is done.
type blockingReader struct{ ctx context.Context }

func (b blockingReader) Read([]byte) (int, error) {
	<-b.ctx.Done()
	return 0, b.ctx.Err()
}

// scriptedOpener hands out one prepared body per Open call. Once the script
// is exhausted it returns a body that blocks until ctx is canceled.
type scriptedOpener struct {
	mu     sync.Mutex
	script []func(ctx context.Context) (io.ReadCloser, error)
	calls  int
}

func (o *scriptedOpener) Open(ctx context.Context) (io.ReadCloser, error) {
	o.mu.Lock()
	i := o.calls
	o.calls++
	o.mu.Unlock()
	if i < len(o.script) {
		return o.script[i](ctx)
	}
	return io.NopCloser(blockingReader{ctx}), nil
}

func (o *scriptedOpener) Calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}

// recordingObserver captures state changes, session ends and queue depths.
type recordingObserver struct {
	ports.NopObserver

	mu       sync.Mutex
	states   []string
	sessions []domain.Session
	discards []int
	faults   []domain.FaultKind
	depths   []int
}

func (o *recordingObserver) OnQueueDepth(depth int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.depths = append(o.depths, depth)
}

func (o *recordingObserver) Depths() []int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]int(nil), o.depths...)
}

func (o *recordingObserver) OnStateChange(_, current string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.states = append(o.states, current)
}

func (o *recordingObserver) OnSessionEnd(s domain.Session, discarded int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sessions = append(o.sessions, s)
	o.discards = append(o.discards, discarded)
}

func (o *recordingObserver) OnFault(kind domain.FaultKind) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.faults = append(o.faults, kind)
}

func (o *recordingObserver) States() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.states...)
}

func (o *recordingObserver) Discards() []int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]int(nil), o.discards...)
}
