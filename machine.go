package hsm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// StateChangeListener is notified after every transition a StateMachine
// completes that changes its current state, including moves into the
// configured error state. Internal (self) transitions, which leave the
// current state unchanged, are not reported.
type StateChangeListener interface {
	StateChanged(entity Entity, from, to *State, event Event)
}

// StateChangeListenerFunc adapts a plain function to StateChangeListener.
type StateChangeListenerFunc func(entity Entity, from, to *State, event Event)

// StateChanged implements StateChangeListener.
func (f StateChangeListenerFunc) StateChanged(entity Entity, from, to *State, event Event) {
	f(entity, from, to, event)
}

// MachineOption configures a StateMachine at construction.
type MachineOption func(*StateMachine)

// WithLogger overrides the StateMachine's logger. The default is
// slog.Default().
func WithLogger(logger *slog.Logger) MachineOption {
	return func(m *StateMachine) { m.logger = logger }
}

// WithMaxTransitions bounds how many forward-chained transitions ApplyEvent
// will fire for a single incoming event before giving up with a
// *MaxTransitionsExceededError. The default is 100.
func WithMaxTransitions(n int) MachineOption {
	return func(m *StateMachine) { m.maxTransitions = n }
}

// WithForwardChainEnabled controls whether, after a transition completes,
// the machine immediately re-evaluates the new current state's outgoing
// transitions against the same event (Moore-style completion transitions).
// The default is true.
func WithForwardChainEnabled(enabled bool) MachineOption {
	return func(m *StateMachine) { m.forwardChain = enabled }
}

// StateMachine drives a single Entity through a TransitionMap's graph. A
// StateMachine is safe for concurrent use: ApplyEvent and the accessor
// methods all take the same mutex, so only one transition is ever in
// flight at a time for a given StateMachine.
//
// A StateMachine is not itself concurrent - it does not schedule or queue
// events. Concurrent delivery from multiple goroutines is the
// EventDispatcher's job; a StateMachine driven directly is expected to have
// ApplyEvent called from a single goroutine, or to accept the serialization
// its internal mutex imposes.
type StateMachine struct {
	mu sync.Mutex

	tmap    *TransitionMap
	entity  Entity
	current *State

	logger         *slog.Logger
	maxTransitions int
	forwardChain   bool

	listeners []StateChangeListener
}

// NewStateMachine creates a StateMachine positioned at tmap's Start state,
// driving entity. tmap must already have been built successfully with
// TransitionMap.Build.
func NewStateMachine(tmap *TransitionMap, entity Entity, opts ...MachineOption) (*StateMachine, error) {
	if tmap == nil || !tmap.built {
		return nil, &FiniteStateFailureError{Cause: errors.New("NewStateMachine requires a built TransitionMap")}
	}
	m := &StateMachine{
		tmap:           tmap,
		entity:         entity,
		current:        tmap.StartState(),
		logger:         slog.Default(),
		maxTransitions: 100,
		forwardChain:   true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// State returns the machine's current state.
func (m *StateMachine) State() *State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Entity returns the entity the machine drives.
func (m *StateMachine) Entity() Entity {
	return m.entity
}

// IsEnd reports whether the machine's current state is of kind End.
func (m *StateMachine) IsEnd() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.Kind() == End
}

// ErrorState returns the underlying map's configured error state, or nil.
func (m *StateMachine) ErrorState() *State {
	return m.tmap.ErrorState()
}

// AddListener registers l to be notified after every completed transition
// that changes the current state.
func (m *StateMachine) AddListener(l StateChangeListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// RemoveListener unregisters l. It is a no-op if l was never registered.
func (m *StateMachine) RemoveListener(l StateChangeListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.listeners {
		if existing == l {
			m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
			return
		}
	}
}

// SetMaxTransitions changes the forward-chain transition bound. 0 means
// unbounded.
func (m *StateMachine) SetMaxTransitions(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxTransitions = n
}

// SetForwardChainEnabled toggles forward chaining.
func (m *StateMachine) SetForwardChainEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forwardChain = enabled
}

// ApplyEvent delivers event to the machine. It finds the first matching
// transition reachable from the current state (consulting ancestors when
// the current state itself has no matching transition), fires the
// transition's exit/transition/entry actions, moves the current state
// pointer, and notifies listeners.
//
// If forward chaining is enabled (the default) and the transition changed
// the current state, ApplyEvent re-evaluates the new current state against
// the same event and repeats; the absence of a further match silently ends
// the chain rather than being reported as an error. This loops rather than
// recurses specifically so that a forward chain never re-acquires m.mu
// while already holding it - Go's sync.Mutex is not reentrant.
//
// ctx is threaded into every Action.Do call as the action's cancellation
// signal; pass context.Background() when there is nothing to cancel.
func (m *StateMachine) ApplyEvent(ctx context.Context, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		count++
		if m.maxTransitions > 0 && count > m.maxTransitions {
			return &MaxTransitionsExceededError{Limit: m.maxTransitions}
		}

		t, err := m.tmap.nextTransition(m.current, event, m.entity)
		if err != nil {
			if count > 1 {
				return nil
			}
			return err
		}

		changed, err := m.fireTransition(ctx, event, t)
		if err != nil {
			return err
		}
		if !changed || !m.forwardChain {
			return nil
		}
	}
}

// fireTransition runs the exit/transition/entry actions for t, in order,
// and moves the current state pointer on success. It reports changed ==
// true when the current state ended up different from where it started -
// either because t's destination differed, or because an action routed the
// machine to the error state.
func (m *StateMachine) fireTransition(ctx context.Context, event Event, t *Transition) (changed bool, err error) {
	from := m.current
	next := t.To()
	lca := from
	if from != next {
		lca = LeastCommonAncestor(from, next)
	}

	for _, s := range ancestorsAbove(from, lca) {
		if s.Exit() == nil {
			continue
		}
		if rerr := m.runAction(ctx, s.Exit(), event, t, ActionExit); rerr != nil {
			return m.handleActionError(ctx, event, rerr)
		}
	}

	if t.Action() != nil {
		if rerr := m.runAction(ctx, t.Action(), event, t, ActionTransition); rerr != nil {
			return m.handleActionError(ctx, event, rerr)
		}
	}

	for _, s := range ancestorsBelow(next, lca) {
		if s.Entry() == nil {
			continue
		}
		if rerr := m.runAction(ctx, s.Entry(), event, t, ActionEntry); rerr != nil {
			return m.handleActionError(ctx, event, rerr)
		}
	}

	if from == next {
		return false, nil
	}
	m.current = next
	m.notify(from, next, event)
	return true, nil
}

// handleActionError classifies an error returned by an Action. A
// *TransitionRollback aborts the transition in flight with the state
// pointer untouched. A *TransitionFailure redirects to the configured error
// state. Any other error is treated as a bug in the action and propagated
// unchanged, with no state change and no listener notification.
func (m *StateMachine) handleActionError(ctx context.Context, event Event, err error) (changed bool, result error) {
	var rollback *TransitionRollback
	var failure *TransitionFailure
	switch {
	case errors.As(err, &rollback):
		return false, err
	case errors.As(err, &failure):
		return m.routeToErrorState(ctx, event, failure)
	default:
		return false, err
	}
}

// runAction invokes a single Action and logs its identity for debugging
// before returning its error unchanged.
func (m *StateMachine) runAction(ctx context.Context, a Action, event Event, t *Transition, kind ActionKind) error {
	m.logger.Debug("firing action", "kind", kind, "transition", t.Name())
	return a.Do(ctx, event, m.entity, t, kind)
}

// routeToErrorState redirects the machine to its configured error state
// after a TransitionFailure and notifies listeners exactly once. The exit
// chain for the state being left was already fired by fireTransition before
// the failing action ran (up to LeastCommonAncestor(from, the transition's
// original destination)) - routeToErrorState must not recompute and re-fire
// a second exit chain against the error state, since that would both
// re-fire actions already fired and fire ancestor exits the original
// transition never actually left. Only the error state's own entry action
// fires here, per the spec's "fire the error state's entry action" - not a
// hierarchical entry chain down to it. If no error state was configured, or
// its entry action fails, the failure is reported to the caller as a
// FiniteStateFailureError instead of the original failure; otherwise the
// original failure is returned as a deferred error once the state has moved
// and listeners have been notified.
func (m *StateMachine) routeToErrorState(ctx context.Context, event Event, failure *TransitionFailure) (bool, error) {
	errState := m.tmap.ErrorState()
	if errState == nil {
		return false, &FiniteStateFailureError{Cause: failure}
	}
	from := m.current
	if errState.Entry() != nil {
		if err := m.runAction(ctx, errState.Entry(), event, nil, ActionEntry); err != nil {
			return false, &FiniteStateFailureError{Cause: err}
		}
	}
	m.current = errState
	m.notify(from, errState, event)
	return true, failure
}

func (m *StateMachine) notify(from, to *State, event Event) {
	for _, l := range m.listeners {
		l.StateChanged(m.entity, from, to, event)
	}
}

// CreateStateTransitionLatch returns a StateTransitionLatch that blocks
// until the machine enters expected (or any of its descendants), or, if
// endOnError is true, the map's configured error state. Seeding the latch
// with the machine's current state and registering it as a listener happen
// atomically under m.mu, so no transition firing concurrently with this
// call can be missed between "read current state" and "start listening".
func (m *StateMachine) CreateStateTransitionLatch(expected *State, endOnError bool) *StateTransitionLatch {
	m.mu.Lock()
	defer m.mu.Unlock()
	latch := newStateTransitionLatch(m, expected, endOnError, m.current)
	m.listeners = append(m.listeners, latch)
	return latch
}

func (m *StateMachine) String() string {
	return fmt.Sprintf("StateMachine{current=%s}", m.State().QualifiedName())
}
