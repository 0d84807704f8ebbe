package loop

import "sync/atomic"

// State is the loop's run-state, adapted from the teacher's FastState
// lock-free CAS machine (state.go) and re-targeted at this package's
// Run/Shutdown lifecycle instead of the original's microtask-aware states.
type State uint64

const (
	// StateAwake means the loop has been created but Run has not started.
	StateAwake State = iota
	// StateRunning means Run's poll/dispatch cycle is active.
	StateRunning
	// StateTerminating means Shutdown has been requested but Run has not
	// yet observed it and returned.
	StateTerminating
	// StateTerminated means Run has returned; the loop is fully stopped.
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateAwake:
		return "awake"
	case StateRunning:
		return "running"
	case StateTerminating:
		return "terminating"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// fastState is a lock-free state machine: pure CAS, no internal locking,
// matching the teacher's "no validation, trusts the stored value"
// performance stance.
type fastState struct {
	v atomic.Uint64
}

func newFastState() *fastState {
	s := &fastState{}
	s.v.Store(uint64(StateAwake))
	return s
}

func (s *fastState) Load() State { return State(s.v.Load()) }

func (s *fastState) Store(state State) { s.v.Store(uint64(state)) }

func (s *fastState) TryTransition(from, to State) bool {
	return s.v.CompareAndSwap(uint64(from), uint64(to))
}
