package stream

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/firehose/internal/domain"
	"github.com/bft-labs/firehose/internal/ports"
)

// Config tunes the supervisor's read path and reconnect pacing.
type Config struct {
	// ChunkSize is the largest compressed read per Pull.
	ChunkSize int

	// Delimiter separates records. Defaults to CRLF.
	Delimiter []byte

	// MaxRecordBytes bounds the frame buffer; 0 disables the limit.
	MaxRecordBytes int

	BackoffInitial time.Duration
	BackoffMax     time.Duration
}

// Supervisor owns the reconnect loop. It never stops on its own: every
// fault, and every clean end of stream, leads to a new connection attempt.
type Supervisor struct {
	cfg        Config
	opener     ports.StreamOpener
	dispatcher *Dispatcher
	errs       ports.ErrorSink
	logger     ports.Logger
	observer   ports.Observer

	sm      *stateMachine
	backoff *Backoff
	newID   func() string
}

// NewSupervisor wires a supervisor. The supervisor takes ownership of
// dispatcher and closes it when Run returns.
func NewSupervisor(
	cfg Config,
	opener ports.StreamOpener,
	dispatcher *Dispatcher,
	errs ports.ErrorSink,
	logger ports.Logger,
	observer ports.Observer,
) *Supervisor {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if len(cfg.Delimiter) == 0 {
		cfg.Delimiter = DefaultDelimiter
	}
	if observer == nil {
		observer = ports.NopObserver{}
	}
	return &Supervisor{
		cfg:        cfg,
		opener:     opener,
		dispatcher: dispatcher,
		errs:       errs,
		logger:     logger,
		observer:   observer,
		sm:         newStateMachine(logger, observer),
		backoff:    NewBackoff(cfg.BackoffInitial, cfg.BackoffMax),
		newID:      func() string { return uuid.NewString() },
	}
}

// State returns the current supervisor state.
func (s *Supervisor) State() State {
	return s.sm.State()
}

// Run connects and streams until ctx is canceled. On return every record
// already submitted has been handled and the state is Stopped.
func (s *Supervisor) Run(ctx context.Context) error {
	defer func() {
		s.dispatcher.Close()
		s.transition(StateStopped, "shutdown")
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}
		s.transition(StateConnecting, "connect")

		sess := &domain.Session{ID: s.newID(), StartedAt: time.Now()}
		body, err := s.opener.Open(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.endSession(sess, Classify("connect", err), 0)
			s.backoff.Wait(ctx)
			continue
		}

		s.transition(StateStreaming, "connected")
		s.observer.OnSessionStart(sess.ID)
		s.logger.Info("stream connected", ports.String("session", sess.ID))

		fault, discarded := s.stream(ctx, sess, body)
		_ = body.Close()
		s.transition(StateDraining, "session ended")

		if ctx.Err() != nil {
			s.logger.Info("stream closed for shutdown",
				ports.String("session", sess.ID),
				ports.Int("discarded_bytes", discarded),
			)
			return nil
		}
		s.endSession(sess, fault, discarded)

		// A session that delivered data reconnects at once; an empty one is
		// paced like a failed connect.
		if sess.BytesInflated > 0 {
			s.backoff.Reset()
		} else {
			s.backoff.Wait(ctx)
		}
		s.transition(StateIdle, "reconnect")
	}
}

// stream drives one session's read path. The reader and framer are created
// here and dropped on return, so nothing carries over to the next session.
func (s *Supervisor) stream(ctx context.Context, sess *domain.Session, body io.Reader) (*domain.Fault, int) {
	reader := NewReader(body, s.cfg.ChunkSize)
	framer := NewFramer(s.cfg.Delimiter, s.cfg.MaxRecordBytes)

	for {
		data, err := reader.Pull()
		s.account(sess, reader)

		if len(data) > 0 {
			recs, ferr := framer.Feed(data)
			for _, rec := range recs {
				if serr := s.dispatcher.Submit(ctx, rec); serr != nil {
					if ctx.Err() != nil {
						return nil, framer.Buffered()
					}
					return Classify("read", serr), framer.Buffered()
				}
				sess.Records++
				s.observer.OnRecordFramed()
			}
			if ferr != nil {
				return Classify("read", ferr), framer.Buffered()
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, framer.Buffered()
			}
			return Classify("read", err), framer.Buffered()
		}
	}
}

func (s *Supervisor) account(sess *domain.Session, r *Reader) {
	dc := r.Compressed() - sess.BytesIn
	di := r.Inflated() - sess.BytesInflated
	if dc == 0 && di == 0 {
		return
	}
	sess.BytesIn = r.Compressed()
	sess.BytesInflated = r.Inflated()
	s.observer.OnBytes(int(dc), int(di))
}

// endSession reports the fault that ended a session. A partial record still
// buffered at this point is lost; it is logged so the loss is visible.
func (s *Supervisor) endSession(sess *domain.Session, fault *domain.Fault, discarded int) {
	sess.LastErr = fault
	s.observer.OnFault(fault.Kind)
	s.observer.OnSessionEnd(*sess, discarded)
	s.errs.ReportFault(sess.ID, fault)

	fields := []ports.Field{
		ports.String("session", sess.ID),
		ports.String("kind", fault.Kind.String()),
		ports.Err(fault),
		ports.Int64("records", sess.Records),
		ports.Int64("bytes_in", sess.BytesIn),
		ports.Duration("duration", sess.Duration()),
	}
	if discarded > 0 {
		fields = append(fields, ports.Int("discarded_bytes", discarded))
	}
	if fault.Kind == domain.FaultEndOfStream {
		s.logger.Warn("stream disconnected", fields...)
		return
	}
	s.logger.Error("stream fault", fields...)
}

func (s *Supervisor) transition(next State, reason string) {
	if err := s.sm.TransitionTo(next, reason); err != nil {
		s.logger.Error("state machine", ports.Err(err))
	}
}
