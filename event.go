package hsm

// Event is any message delivered to a StateMachine. Guards and actions never
// inspect an Event's payload directly except through Guard.Accept /
// Action.Do; the engine itself only ever asks for Payload().
//
// Identity for the purposes of the TypeOf guard is the dynamic type of the
// Event interface value itself, never its payload - define a distinct Go
// type per logical event class (as the example BasicEvent below does not
// attempt to do; real callers typically define their own named types).
type Event interface {
	// Payload returns the event's optional typed payload, or nil.
	Payload() any
}

// OutOfBandEvent is implemented by events that must preempt an
// EventDispatcher's queue: every pending request is cancelled and the
// currently-running one is asked to cancel before the out-of-band event is
// enqueued. EventDispatcher.Put type-asserts for this interface.
type OutOfBandEvent interface {
	Event
	// OutOfBand reports whether this event should preempt the dispatcher.
	OutOfBand() bool
}

// BasicEvent is a minimal Event implementation for callers that only need a
// payload and no distinct event class of their own.
type BasicEvent struct {
	payload any
}

// NewEvent wraps payload in a BasicEvent.
func NewEvent(payload any) BasicEvent {
	return BasicEvent{payload: payload}
}

// Payload implements Event.
func (e BasicEvent) Payload() any {
	return e.payload
}

// outOfBandEvent wraps a BasicEvent and reports OutOfBand() == true.
type outOfBandEvent struct {
	BasicEvent
}

// NewOutOfBandEvent wraps payload in an event that preempts the dispatcher.
func NewOutOfBandEvent(payload any) OutOfBandEvent {
	return outOfBandEvent{BasicEvent{payload: payload}}
}

// OutOfBand implements OutOfBandEvent.
func (e outOfBandEvent) OutOfBand() bool {
	return true
}
