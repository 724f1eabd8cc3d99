package hsm

import "regexp"

// Guard is a pure, side-effect-free predicate evaluated to decide whether a
// Transition may fire for a given (event, entity, current state). Guards
// must be fast: they run inside the StateMachine's critical section.
type Guard interface {
	Accept(event Event, entity Entity, state *State) bool
}

// GuardFunc adapts a plain function to the Guard interface.
type GuardFunc func(event Event, entity Entity, state *State) bool

// Accept implements Guard.
func (f GuardFunc) Accept(event Event, entity Entity, state *State) bool {
	return f(event, entity, state)
}

// Always is a Guard that accepts every event.
var Always Guard = alwaysGuard{}

type alwaysGuard struct{}

func (alwaysGuard) Accept(Event, Entity, *State) bool { return true }

// Not returns a Guard that accepts exactly when g does not.
func Not(g Guard) Guard {
	return negationGuard{inner: g}
}

type negationGuard struct {
	inner Guard
}

func (n negationGuard) Accept(event Event, entity Entity, state *State) bool {
	return !n.inner.Accept(event, entity, state)
}

// TypeOf returns a Guard that accepts iff the event's dynamic type is (or
// implements) T. It compares the Event interface value itself, never its
// payload - two events carrying the same payload but of different concrete
// types are distinguished.
func TypeOf[T Event]() Guard {
	return typeOfGuard[T]{}
}

type typeOfGuard[T Event] struct{}

func (typeOfGuard[T]) Accept(event Event, _ Entity, _ *State) bool {
	_, ok := event.(T)
	return ok
}

// RegexMatch returns a Guard that accepts iff the event's payload is a string
// that fully matches pattern (an anchored match over the whole string, not a
// substring search). The pattern is compiled once, at construction; a
// malformed pattern panics, consistent with regexp.MustCompile.
func RegexMatch(pattern string) Guard {
	return regexGuard{re: regexp.MustCompile(`\A(?:` + pattern + `)\z`)}
}

type regexGuard struct {
	re *regexp.Regexp
}

func (r regexGuard) Accept(event Event, _ Entity, _ *State) bool {
	s, ok := event.Payload().(string)
	if !ok {
		return false
	}
	return r.re.MatchString(s)
}
