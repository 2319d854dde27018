package stream

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/bft-labs/firehose/internal/domain"
	"github.com/bft-labs/firehose/internal/ports"
)

// DefaultQueueSize is the dispatch queue capacity.
const DefaultQueueSize = 1024

// Dispatcher runs record processing on a fixed pool of workers fed by a
// bounded queue. Submit blocks while the queue is full, which applies
// backpressure to the read loop instead of growing memory.
type Dispatcher struct {
	handler  ports.RecordHandler
	logger   ports.Logger
	observer ports.Observer

	queue chan domain.Record
	done  chan struct{}
	wg    sync.WaitGroup

	// senders counts Submit calls past the closed check; the queue is
	// closed only once they have all returned.
	senders sync.WaitGroup
	mu      sync.Mutex
	closed  bool
}

// NewDispatcher starts workers goroutines. Zero values pick defaults.
func NewDispatcher(handler ports.RecordHandler, workers, queueSize int, logger ports.Logger, observer ports.Observer) *Dispatcher {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if observer == nil {
		observer = ports.NopObserver{}
	}
	d := &Dispatcher{
		handler:  handler,
		logger:   logger,
		observer: observer,
		queue:    make(chan domain.Record, queueSize),
		done:     make(chan struct{}),
	}
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.worker()
	}
	return d
}

// Submit enqueues rec. It blocks while the queue is full and returns
// ctx.Err() if ctx ends first. After Close, or once a concurrent Close
// begins, it returns ErrNotRunning.
func (d *Dispatcher) Submit(ctx context.Context, rec domain.Record) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return domain.ErrNotRunning
	}
	d.senders.Add(1)
	d.mu.Unlock()
	defer d.senders.Done()

	select {
	case d.queue <- rec:
		d.observer.OnQueueDepth(len(d.queue))
		return nil
	case <-d.done:
		return domain.ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns the number of queued records not yet picked up by a worker.
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}

// Close stops accepting records and waits until every queued record has
// been handled. Submit calls blocked on a full queue return ErrNotRunning.
// It is safe to call more than once and from any goroutine.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	first := !d.closed
	if first {
		d.closed = true
		close(d.done)
	}
	d.mu.Unlock()

	if first {
		d.senders.Wait()
		close(d.queue)
	}
	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for rec := range d.queue {
		d.observer.OnQueueDepth(len(d.queue))
		d.handle(rec)
	}
}

// handle isolates a panicking handler so the worker keeps serving the queue.
func (d *Dispatcher) handle(rec domain.Record) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("record handler panicked",
				ports.Err(fmt.Errorf("%v", r)),
				ports.Int("bytes", len(rec)),
			)
		}
	}()
	d.handler.Handle(rec)
}
