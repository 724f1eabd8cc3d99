package hsm

import "context"

// ActionKind identifies which phase of a transition an Action is firing for.
type ActionKind int

const (
	// ActionExit fires for a state being left, walking up from the old
	// current state to (but not including) the least common ancestor.
	ActionExit ActionKind = iota
	// ActionTransition fires for the transition itself, between the exit
	// and entry phases. It fires even when the state does not change.
	ActionTransition
	// ActionEntry fires for a state being entered, walking down from just
	// below the least common ancestor to the new current state.
	ActionEntry
)

// String returns a lower-case name for the kind, used in log output.
func (k ActionKind) String() string {
	switch k {
	case ActionExit:
		return "exit"
	case ActionTransition:
		return "transition"
	case ActionEntry:
		return "entry"
	default:
		return "unknown"
	}
}

// Action is a user-supplied procedure run during a transition: on exit from
// a state being left, on the transition itself, or on entry into a state
// being entered. Actions run serially inside the StateMachine's critical
// section; they may perform I/O, but must not call back into the same
// StateMachine synchronously (it would deadlock on a non-reentrant mutex).
//
// ctx carries the cancellation signal of the EventDispatcher request that
// triggered this action, when the machine is driven through a dispatcher;
// actions that want to honor "cancel the in-flight request" should check
// ctx.Err(). A directly-driven StateMachine.ApplyEvent call may pass
// context.Background() when there is nothing to cancel.
//
// Do may return a *TransitionRollback or a *TransitionFailure to signal one
// of the two recognized action failures (see the package doc); any other
// error is treated as a bug and propagated unchanged.
type Action interface {
	Do(ctx context.Context, event Event, entity Entity, transition *Transition, kind ActionKind) error
}

// ActionFunc adapts a plain function to the Action interface.
type ActionFunc func(ctx context.Context, event Event, entity Entity, transition *Transition, kind ActionKind) error

// Do implements Action.
func (f ActionFunc) Do(ctx context.Context, event Event, entity Entity, transition *Transition, kind ActionKind) error {
	return f(ctx, event, entity, transition, kind)
}
