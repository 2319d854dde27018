package firehose

import (
	"time"

	"github.com/bft-labs/firehose/internal/app"
	"github.com/bft-labs/firehose/internal/domain"
	"github.com/bft-labs/firehose/internal/ports"
)

// StateChangeEvent reports a lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// SessionEvent reports a finished stream session.
type SessionEvent struct {
	ID            string
	Duration      time.Duration
	BytesIn       int64
	BytesInflated int64
	Records       int64

	// Fault is the kind that ended the session, or "" when it ended for shutdown.
	Fault string

	// DiscardedBytes is the size of the partial record dropped at session end.
	DiscardedBytes int
}

// FaultEvent reports one classified fault.
type FaultEvent struct {
	Kind string
}

// EventHandler receives engine events.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
	OnSessionEnd(event SessionEvent)
	OnFault(event FaultEvent)
}

// BaseEventHandler implements EventHandler with no-ops. Embed it to
// override a subset.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent) {}
func (BaseEventHandler) OnSessionEnd(SessionEvent)      {}
func (BaseEventHandler) OnFault(FaultEvent)             {}

// eventEmitter adapts EventHandler to the lifecycle emitter.
type eventEmitter struct {
	handler EventHandler
}

func (e *eventEmitter) OnStateChange(previous, current app.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}

// pipelineEvents adapts EventHandler to the pipeline observer.
type pipelineEvents struct {
	ports.NopObserver
	handler EventHandler
}

func (p pipelineEvents) OnSessionEnd(s domain.Session, discarded int) {
	ev := SessionEvent{
		ID:             s.ID,
		Duration:       s.Duration(),
		BytesIn:        s.BytesIn,
		BytesInflated:  s.BytesInflated,
		Records:        s.Records,
		DiscardedBytes: discarded,
	}
	if s.LastErr != nil {
		ev.Fault = s.LastErr.Kind.String()
	}
	p.handler.OnSessionEnd(ev)
}

func (p pipelineEvents) OnFault(kind domain.FaultKind) {
	p.handler.OnFault(FaultEvent{Kind: kind.String()})
}
