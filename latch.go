package hsm

import (
	"context"
	"strings"
	"sync"
)

// StateTransitionLatch blocks a caller until a StateMachine enters a target
// state (or, optionally, the map's error state). It implements
// StateChangeListener so it can be registered directly on a StateMachine,
// but is normally obtained through StateMachine.CreateStateTransitionLatch,
// which seeds it with the machine's current state and registers it
// atomically under the machine's own lock - constructing one independently
// and registering it afterward would leave a window in which a transition
// to the target could be missed entirely.
type StateTransitionLatch struct {
	machine    *StateMachine
	expected   *State
	endOnError bool

	mu     sync.Mutex
	queue  []*State
	done   bool
	result *State
	isErr  bool
	notify chan struct{} // buffered, non-blocking send: a wakeup signal, not a queue
}

func newStateTransitionLatch(machine *StateMachine, expected *State, endOnError bool, seed *State) *StateTransitionLatch {
	return &StateTransitionLatch{
		machine:    machine,
		expected:   expected,
		endOnError: endOnError,
		queue:      []*State{seed},
		notify:     make(chan struct{}, 1),
	}
}

// StateChanged implements StateChangeListener. It only ever appends to the
// latch's internal queue; matching happens in Call, so that a burst of
// transitions delivered before anyone calls Call is never lost.
func (l *StateTransitionLatch) StateChanged(_ Entity, _, to *State, _ Event) {
	l.mu.Lock()
	if l.done {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, to)
	l.mu.Unlock()
	select {
	case l.notify <- struct{}{}:
	default:
	}
}

// matchesExpected reports whether s is the expected state or a descendant
// of it, by comparing qualified names: equal, or a strict path-segment
// prefix (so a state named "Idle2" never spuriously matches an expected
// state named "Idle").
func matchesExpected(s, expected *State) bool {
	q, e := s.QualifiedName(), expected.QualifiedName()
	return q == e || strings.HasPrefix(q, e+":")
}

// Call blocks until the machine enters the expected state (or a descendant
// of it), or, if endOnError was set, the map's error state, or until ctx is
// done - Go's substitute for "the waiting thread is interrupted". It
// returns the matching state, or nil if ctx ended the wait first. The latch
// deregisters itself from the machine before returning, either way.
func (l *StateTransitionLatch) Call(ctx context.Context) *State {
	defer l.machine.RemoveListener(l)
	for {
		l.mu.Lock()
		for len(l.queue) > 0 {
			s := l.queue[0]
			l.queue = l.queue[1:]
			if matchesExpected(s, l.expected) {
				l.done, l.result = true, s
				l.mu.Unlock()
				return s
			}
			if l.endOnError {
				if errState := l.machine.ErrorState(); errState != nil && s == errState {
					l.done, l.result, l.isErr = true, s, true
					l.mu.Unlock()
					return s
				}
			}
		}
		l.mu.Unlock()

		select {
		case <-l.notify:
			// loop back and re-drain the queue: several transitions may
			// have landed before this wakeup was observed.
		case <-ctx.Done():
			return nil
		}
	}
}

// IsDone reports whether Call has already matched a target state.
func (l *StateTransitionLatch) IsDone() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done
}

// IsExpected reports whether the match (if any) was the expected state
// rather than the error state.
func (l *StateTransitionLatch) IsExpected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done && !l.isErr
}

// IsError reports whether the match (if any) was the error state.
func (l *StateTransitionLatch) IsError() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.isErr
}
