package stream

import (
	"bytes"
	"context"
	"errors"
	"io"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/firehose/internal/domain"
)

type harness struct {
	opener *scriptedOpener
	out    *memSink
	errs   *memErrors
	obs    *recordingObserver
	sup    *Supervisor
}

func newHarness(script ...func(ctx context.Context) (io.ReadCloser, error)) *harness {
	h := &harness{
		opener: &scriptedOpener{script: script},
		out:    &memSink{},
		errs:   &memErrors{},
		obs:    &recordingObserver{},
	}
	d := NewDispatcher(NewJSONHandler(h.out, h.errs, h.obs), 2, 16, noopLogger, h.obs)
	h.sup = NewSupervisor(Config{
		ChunkSize:      64,
		BackoffInitial: time.Millisecond,
		BackoffMax:     5 * time.Millisecond,
	}, h.opener, d, h.errs, noopLogger, h.obs)
	return h
}

// run starts the supervisor and returns a stop function that cancels it and
// waits for Run to return.
func (h *harness) run(t *testing.T) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.sup.Run(ctx) }()
	return func() {
		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("supervisor did not stop")
		}
	}
}

func body(r io.Reader) func(context.Context) (io.ReadCloser, error) {
	return func(context.Context) (io.ReadCloser, error) {
		return io.NopCloser(r), nil
	}
}

func TestSupervisor_ReconnectsWithFreshFramer(t *testing.T) {
	first := io.MultiReader(
		bytes.NewReader(gzipBytes(t, "{\"id\":1}\r\n{\"id\":2}\r\n{\"par")),
		errReader{syscall.ECONNRESET},
	)
	second := bytes.NewReader(gzipBytes(t, "tial\":true}\r\n{\"id\":3}\r\n"))
	h := newHarness(body(first), body(second))

	stop := h.run(t)
	require.Eventually(t, func() bool {
		return len(h.out.Lines()) >= 3 && h.opener.Calls() >= 3
	}, 5*time.Second, 5*time.Millisecond)
	stop()

	// The half record from the first session is never joined with the
	// start of the second.
	assert.Equal(t, []string{`{"id":1}`, `{"id":2}`, `{"id":3}`}, h.out.Lines())
	assert.Equal(t, []string{"tial\":true}"}, h.errs.Malformed())

	faults := h.errs.Faults()
	require.GreaterOrEqual(t, len(faults), 2)
	assert.Equal(t, domain.FaultSocket, faults[0].Kind)
	assert.Equal(t, domain.FaultEndOfStream, faults[1].Kind)
	assert.Equal(t, len(`{"par`), h.obs.Discards()[0])
	assert.GreaterOrEqual(t, h.opener.Calls(), 3)
	assert.Equal(t, StateStopped, h.sup.State())
}

func TestSupervisor_RetriesFailedConnects(t *testing.T) {
	refused := func(context.Context) (io.ReadCloser, error) {
		return nil, &domain.StatusError{Code: 503, Status: "503 Service Unavailable"}
	}
	h := newHarness(refused, refused, body(bytes.NewReader(gzipBytes(t, "{\"ok\":1}\r\n"))))

	stop := h.run(t)
	require.Eventually(t, func() bool { return len(h.out.Lines()) == 1 }, 5*time.Second, 5*time.Millisecond)
	stop()

	faults := h.errs.Faults()
	require.GreaterOrEqual(t, len(faults), 2)
	assert.Equal(t, domain.FaultHTTPStatus, faults[0].Kind)
	assert.Equal(t, domain.FaultHTTPStatus, faults[1].Kind)
	assert.Equal(t, "connect", faults[0].Op)
}

func TestSupervisor_StateSequence(t *testing.T) {
	h := newHarness(body(bytes.NewReader(gzipBytes(t, "{\"a\":1}\r\n"))))

	stop := h.run(t)
	require.Eventually(t, func() bool { return h.opener.Calls() >= 2 }, 5*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return h.sup.State() == StateStreaming }, 5*time.Second, 5*time.Millisecond)
	stop()

	assert.Equal(t, []string{
		"Connecting", "Streaming", "Draining", "Idle",
		"Connecting", "Streaming", "Draining", "Stopped",
	}, h.obs.States())
}

func TestSupervisor_GracefulStopDrainsQueue(t *testing.T) {
	var payload bytes.Buffer
	for i := 0; i < 500; i++ {
		payload.WriteString("{\"n\":1}\r\n")
	}
	h := newHarness(body(bytes.NewReader(gzipBytes(t, payload.String()))))

	stop := h.run(t)
	require.Eventually(t, func() bool { return h.opener.Calls() >= 2 }, 5*time.Second, 5*time.Millisecond)
	stop()

	assert.Len(t, h.out.Lines(), 500)
}

func TestSupervisor_StopWhileConnecting(t *testing.T) {
	blocked := func(ctx context.Context) (io.ReadCloser, error) {
		<-ctx.Done()
		return nil, errors.Join(errors.New("dial aborted"), ctx.Err())
	}
	h := newHarness(blocked)

	stop := h.run(t)
	require.Eventually(t, func() bool { return h.sup.State() == StateConnecting }, 5*time.Second, time.Millisecond)
	stop()

	assert.Equal(t, StateStopped, h.sup.State())
	assert.Empty(t, h.errs.Faults())
}
