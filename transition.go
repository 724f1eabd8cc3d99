package hsm

// Transition is a single directed edge in a TransitionMap: from a source
// state, on a guard's acceptance, to a destination state, running an
// optional action. Transitions are immutable once constructed.
type Transition struct {
	name   string
	from   *State
	to     *State
	guard  Guard
	action Action
}

// NewTransition creates a Transition. guard may be nil, which is treated the
// same as Always. action may be nil, in which case the transition fires no
// ActionTransition phase.
func NewTransition(name string, from, to *State, guard Guard, action Action) *Transition {
	if guard == nil {
		guard = Always
	}
	return &Transition{name: name, from: from, to: to, guard: guard, action: action}
}

// Name returns the transition's name, used in error messages and diagrams.
func (t *Transition) Name() string {
	return t.name
}

// From returns the transition's declared source state. A transition
// declared against an ancestor state matches events raised while the
// machine is in any of that ancestor's descendants, per the state graph's
// inheritance rule.
func (t *Transition) From() *State {
	return t.from
}

// To returns the transition's destination state.
func (t *Transition) To() *State {
	return t.to
}

// Guard returns the transition's guard.
func (t *Transition) Guard() Guard {
	return t.guard
}

// Action returns the transition's action, or nil.
func (t *Transition) Action() Action {
	return t.action
}

// IsInternal reports whether the transition's source and destination are the
// same state - a self-transition that still fires the ActionTransition phase
// but fires no exit or entry actions.
func (t *Transition) IsInternal() bool {
	return t.from == t.to
}
