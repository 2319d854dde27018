package app

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/bft-labs/firehose/internal/ports"
	"github.com/bft-labs/firehose/internal/stream"
)

// EngineConfig tunes the ingestion pipeline.
type EngineConfig struct {
	Stream    stream.Config
	Workers   int
	QueueSize int
}

// Rotator owns the output file schedule. Open performs the first rotation
// and fails when the destination is unusable; Run rotates until ctx ends.
type Rotator interface {
	Open() error
	Run(ctx context.Context)
}

// Engine wires the read path (opener, reader, framer, supervisor) to the
// write path (dispatcher, JSON handler, output sink) for one run.
type Engine struct {
	cfg      EngineConfig
	opener   ports.StreamOpener
	output   ports.LineSink
	rotator  Rotator
	errs     ports.ErrorSink
	logger   ports.Logger
	observer ports.Observer

	supervisor atomic.Pointer[stream.Supervisor]
}

// NewEngine creates an engine. observer may be nil.
func NewEngine(
	cfg EngineConfig,
	opener ports.StreamOpener,
	output ports.LineSink,
	rotator Rotator,
	errs ports.ErrorSink,
	logger ports.Logger,
	observer ports.Observer,
) *Engine {
	if observer == nil {
		observer = ports.NopObserver{}
	}
	return &Engine{
		cfg:      cfg,
		opener:   opener,
		output:   output,
		rotator:  rotator,
		errs:     errs,
		logger:   logger,
		observer: observer,
	}
}

// Open performs the first output rotation. Call it once before Run; a
// failure means the destination is unusable and nothing should connect.
func (e *Engine) Open() error {
	return e.rotator.Open()
}

// Run streams until ctx is canceled, rotating the output opened by Open.
// On return every record framed before cancellation has been written.
func (e *Engine) Run(ctx context.Context) error {
	handler := stream.NewJSONHandler(e.output, e.errs, e.observer)
	dispatcher := stream.NewDispatcher(handler, e.cfg.Workers, e.cfg.QueueSize, e.logger, e.observer)
	sup := stream.NewSupervisor(e.cfg.Stream, e.opener, dispatcher, e.errs, e.logger, e.observer)
	e.supervisor.Store(sup)

	// Rotation runs until the supervisor has drained.
	rotCtx, stopRotation := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		e.rotator.Run(rotCtx)
	}()

	err := sup.Run(ctx)

	stopRotation()
	wg.Wait()
	return err
}

// StreamState reports the supervisor state, or Idle before Run.
func (e *Engine) StreamState() stream.State {
	if sup := e.supervisor.Load(); sup != nil {
		return sup.State()
	}
	return stream.StateIdle
}
