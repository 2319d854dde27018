package stream

import (
	"fmt"
	"sync"

	"github.com/bft-labs/firehose/internal/domain"
	"github.com/bft-labs/firehose/internal/ports"
)

// State is a supervisor state.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateStreaming
	StateDraining
	StateStopped
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateConnecting:
		return "Connecting"
	case StateStreaming:
		return "Streaming"
	case StateDraining:
		return "Draining"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// transitions lists the allowed moves. Stopped is terminal.
var transitions = map[State][]State{
	StateIdle:       {StateConnecting, StateStopped},
	StateConnecting: {StateConnecting, StateStreaming, StateStopped},
	StateStreaming:  {StateDraining},
	StateDraining:   {StateIdle, StateStopped},
}

// stateMachine guards the supervisor state and reports every change.
type stateMachine struct {
	mu       sync.RWMutex
	state    State
	logger   ports.Logger
	observer ports.Observer
}

func newStateMachine(logger ports.Logger, observer ports.Observer) *stateMachine {
	return &stateMachine{state: StateIdle, logger: logger, observer: observer}
}

func (m *stateMachine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// TransitionTo moves to next or returns ErrInvalidTransition.
func (m *stateMachine) TransitionTo(next State, reason string) error {
	m.mu.Lock()
	prev := m.state
	if !allowed(prev, next) {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, prev, next)
	}
	m.state = next
	m.mu.Unlock()

	m.observer.OnStateChange(prev.String(), next.String())
	m.logger.Debug("state transition",
		ports.String("from", prev.String()),
		ports.String("to", next.String()),
		ports.String("reason", reason),
	)
	return nil
}

func allowed(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
