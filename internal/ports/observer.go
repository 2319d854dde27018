package ports

import "github.com/bft-labs/firehose/internal/domain"

// Observer is notified of engine events. Calls are synchronous from the
// goroutine that produced the event, so implementations must be fast and
// safe for concurrent use.
type Observer interface {
	OnStateChange(previous, current string)
	OnSessionStart(sessionID string)
	OnSessionEnd(session domain.Session, discarded int)
	OnFault(kind domain.FaultKind)
	OnBytes(compressed, inflated int)
	OnRecordFramed()
	OnRecordWritten()
	OnRecordMalformed()
	OnQueueDepth(depth int)
}

// NopObserver implements Observer with no-ops. Embed it to override a subset.
type NopObserver struct{}

func (NopObserver) OnStateChange(previous, current string)             {}
func (NopObserver) OnSessionStart(sessionID string)                    {}
func (NopObserver) OnSessionEnd(session domain.Session, discarded int) {}
func (NopObserver) OnFault(kind domain.FaultKind)                      {}
func (NopObserver) OnBytes(compressed, inflated int)                   {}
func (NopObserver) OnRecordFramed()                                    {}
func (NopObserver) OnRecordWritten()                                   {}
func (NopObserver) OnRecordMalformed()                                 {}
func (NopObserver) OnQueueDepth(depth int)                             {}

// Observers fans every event out to each observer in order.
type Observers []Observer

func (o Observers) OnStateChange(previous, current string) {
	for _, ob := range o {
		ob.OnStateChange(previous, current)
	}
}

func (o Observers) OnSessionStart(sessionID string) {
	for _, ob := range o {
		ob.OnSessionStart(sessionID)
	}
}

func (o Observers) OnSessionEnd(session domain.Session, discarded int) {
	for _, ob := range o {
		ob.OnSessionEnd(session, discarded)
	}
}

func (o Observers) OnFault(kind domain.FaultKind) {
	for _, ob := range o {
		ob.OnFault(kind)
	}
}

func (o Observers) OnBytes(compressed, inflated int) {
	for _, ob := range o {
		ob.OnBytes(compressed, inflated)
	}
}

func (o Observers) OnRecordFramed() {
	for _, ob := range o {
		ob.OnRecordFramed()
	}
}

func (o Observers) OnRecordWritten() {
	for _, ob := range o {
		ob.OnRecordWritten()
	}
}

func (o Observers) OnRecordMalformed() {
	for _, ob := range o {
		ob.OnRecordMalformed()
	}
}

func (o Observers) OnQueueDepth(depth int) {
	for _, ob := range o {
		ob.OnQueueDepth(depth)
	}
}
