package live

import (
	"sync"
)

// State is the connection lifecycle state. Transitions are monotonic:
// Connecting -> Open -> Finishing -> Closed, with Closed terminal and
// reachable from any state.
type State int

const (
	StateConnecting State = iota
	StateOpen
	StateFinishing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateFinishing:
		return "finishing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// CloseInfo records how a session ended.
type CloseInfo struct {
	Code   int
	Reason string
	Err    error
}

// Lifecycle is the session state machine. The first close wins: once
// MarkClosed succeeds the state never changes again. Closing is split in
// two steps so the winner can publish the Close event before waiters wake:
// MarkClosed records the outcome, Settle releases Done().
type Lifecycle struct {
	mu      sync.Mutex
	state   State
	close   CloseInfo
	settled bool
	done    chan struct{}
}

// NewLifecycle returns a lifecycle in the Connecting state.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{done: make(chan struct{})}
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// MarkOpen transitions Connecting -> Open. It reports whether the
// transition happened.
func (l *Lifecycle) MarkOpen() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateConnecting {
		return false
	}
	l.state = StateOpen
	return true
}

// BeginFinish transitions Open -> Finishing. It reports whether this call
// performed the transition; callers use that to send the terminal frame
// exactly once. Calling it while already Finishing or Closed is a no-op.
func (l *Lifecycle) BeginFinish() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateOpen {
		return false
	}
	l.state = StateFinishing
	return true
}

// MarkClosed transitions to Closed from any state and records how the
// session ended. Only the first call wins and it reports whether this call
// performed the transition. The winner must call Settle once it has
// finished its close bookkeeping (event publication); Done() stays open
// until then.
func (l *Lifecycle) MarkClosed(info CloseInfo) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == StateClosed {
		return false
	}
	l.state = StateClosed
	l.close = info
	return true
}

// Settle releases Done(). Idempotent.
func (l *Lifecycle) Settle() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.settled {
		return
	}
	l.settled = true
	close(l.done)
}

// CloseInfo returns the recorded close details and whether the session has
// closed.
func (l *Lifecycle) CloseInfo() (CloseInfo, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateClosed {
		return CloseInfo{}, false
	}
	return l.close, true
}

// Done returns a channel closed when the session reaches Closed.
func (l *Lifecycle) Done() <-chan struct{} {
	return l.done
}

// CanSend reports whether audio sends are permitted (Open only).
func (l *Lifecycle) CanSend() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state == StateOpen
}
