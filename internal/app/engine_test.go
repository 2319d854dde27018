package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/firehose/internal/adapters/fs"
	logAdapter "github.com/bft-labs/firehose/internal/adapters/log"
	"github.com/bft-labs/firehose/internal/domain"
	"github.com/bft-labs/firehose/internal/stream"
)

// onceOpener serves one gzip body, then blocks until ctx is canceled.
type onceOpener struct {
	mu    sync.Mutex
	body  []byte
	calls int
}

func (o *onceOpener) Open(ctx context.Context) (io.ReadCloser, error) {
	o.mu.Lock()
	o.calls++
	n := o.calls
	o.mu.Unlock()
	if n == 1 {
		return io.NopCloser(bytes.NewReader(o.body)), nil
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func gzipped(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

type failingRotator struct{}

func (failingRotator) Open() error             { return domain.ErrInvalidOutput }
func (failingRotator) Run(ctx context.Context) {}

// countingRotator records how often the output was opened.
type countingRotator struct{ opens atomic.Int32 }

func (r *countingRotator) Open() error             { r.opens.Add(1); return nil }
func (r *countingRotator) Run(ctx context.Context) { <-ctx.Done() }

func TestEngine_RunDoesNotReopenOutput(t *testing.T) {
	rot := &countingRotator{}
	eng := NewEngine(EngineConfig{Workers: 1, QueueSize: 1}, &onceOpener{body: gzipped(t, "")},
		fs.NewRouter(), rot, logAdapter.NopErrorSink{}, testLogger, nil)
	require.NoError(t, eng.Open())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, int32(1), rot.opens.Load())
}

func TestEngine_StreamsToDatedFile(t *testing.T) {
	dir := t.TempDir()
	var errBuf bytes.Buffer
	errs := logAdapter.NewErrorLog(&errBuf)

	router := fs.NewRouter()
	rotator := fs.NewRotator(fs.RotatorConfig{Dir: dir, Interval: time.Hour}, router, errs, testLogger)
	opener := &onceOpener{body: gzipped(t, "{\"id\":1, \"b\": 2}\r\n{oops}\r\n{\"id\":2}\r\n")}

	eng := NewEngine(EngineConfig{
		Stream: stream.Config{
			ChunkSize:      16,
			BackoffInitial: time.Millisecond,
			BackoffMax:     time.Millisecond,
		},
		Workers:   1,
		QueueSize: 4,
	}, opener, router, rotator, errs, testLogger, nil)
	assert.Equal(t, stream.StateIdle, eng.StreamState())
	require.NoError(t, eng.Open())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()

	path := filepath.Join(dir, time.Now().UTC().Format(fs.DefaultLayout)+fs.DefaultExt)
	require.Eventually(t, func() bool {
		b, err := os.ReadFile(path)
		return err == nil && strings.Count(string(b), "\n") == 2
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop")
	}
	require.NoError(t, router.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\"id\":1,\"b\":2}\n{\"id\":2}\n", string(b))
	assert.Contains(t, errBuf.String(), `"payload":"{oops}"`)
	assert.Equal(t, stream.StateStopped, eng.StreamState())
}

func TestEngine_OutputFailureIsFatal(t *testing.T) {
	opener := &onceOpener{}
	eng := NewEngine(EngineConfig{}, opener, fs.NewRouter(), failingRotator{}, logAdapter.NopErrorSink{}, testLogger, nil)

	err := eng.Open()
	require.True(t, errors.Is(err, domain.ErrInvalidOutput))
	assert.Zero(t, opener.calls, "must not connect when the output is unusable")
}
