package hsm

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// TransitionMap is the immutable, validated graph of states and transitions
// a StateMachine is driven through. Build a TransitionMap with AddState,
// AddTransition, and AddTransitionGroup, then call Build once to validate
// it; the resulting map can be shared by any number of StateMachine
// instances (typically one per Entity), since it holds no per-instance
// state itself.
//
// States are enumerated with an ordered map so that error messages,
// diagram output, and any future iteration are deterministic across runs,
// rather than at the mercy of Go's randomized map ordering.
type TransitionMap struct {
	states      *orderedmap.OrderedMap[string, *State]
	transitions map[string][]*Transition // keyed by From().QualifiedName()
	start       *State
	errorState  *State
	built       bool
}

// NewTransitionMap creates an empty TransitionMap.
func NewTransitionMap() *TransitionMap {
	return &TransitionMap{
		states:      orderedmap.New[string, *State](),
		transitions: make(map[string][]*Transition),
	}
}

// AddState registers s with the map. A duplicate qualified name is rejected
// immediately, since it would silently shadow the earlier registration;
// registering a second state of kind Start is also reported immediately as
// a configuration error.
func (m *TransitionMap) AddState(s *State) error {
	if m.built {
		return configErrorf("AddState called after Build")
	}
	if s == nil {
		return configErrorf("AddState: nil state")
	}
	if _, exists := m.states.Get(s.QualifiedName()); exists {
		return configErrorf("duplicate state %q", s.QualifiedName())
	}
	m.states.Set(s.QualifiedName(), s)
	if s.Kind() == Start {
		if m.start != nil {
			return configErrorf("duplicate START state: %q and %q", m.start.QualifiedName(), s.QualifiedName())
		}
		m.start = s
	}
	return nil
}

// AddTransition registers t. Both t.From() and t.To() must already have been
// added with AddState.
func (m *TransitionMap) AddTransition(t *Transition) error {
	if m.built {
		return configErrorf("AddTransition called after Build")
	}
	if t == nil {
		return configErrorf("AddTransition: nil transition")
	}
	if _, ok := m.states.Get(t.From().QualifiedName()); !ok {
		return configErrorf("transition %q: source state %q not registered", t.Name(), t.From().QualifiedName())
	}
	if _, ok := m.states.Get(t.To().QualifiedName()); !ok {
		return configErrorf("transition %q: destination state %q not registered", t.Name(), t.To().QualifiedName())
	}
	key := t.From().QualifiedName()
	m.transitions[key] = append(m.transitions[key], t)
	return nil
}

// AddTransitionGroup adds one self-loop transition per state in states, all
// sharing guard and action, each named name+":"+state.QualifiedName(). It is
// a convenience for declaring the same reflexive transition (e.g. a
// ping/heartbeat event) across many otherwise-unrelated states at once.
func (m *TransitionMap) AddTransitionGroup(name string, guard Guard, states []*State, action Action) error {
	for _, s := range states {
		t := NewTransition(name+":"+s.QualifiedName(), s, s, guard, action)
		if err := m.AddTransition(t); err != nil {
			return err
		}
	}
	return nil
}

// SetErrorState designates s as the destination for any TransitionFailure
// raised by an action that is not otherwise recovered. s must already have
// been added with AddState.
func (m *TransitionMap) SetErrorState(s *State) error {
	if m.built {
		return configErrorf("SetErrorState called after Build")
	}
	if _, ok := m.states.Get(s.QualifiedName()); !ok {
		return configErrorf("error state %q not registered", s.QualifiedName())
	}
	m.errorState = s
	return nil
}

// ErrorState returns the map's configured error state, or nil if none was
// set.
func (m *TransitionMap) ErrorState() *State {
	return m.errorState
}

// StartState returns the map's unique Start state. Build guarantees this is
// non-nil on any successfully built map.
func (m *TransitionMap) StartState() *State {
	return m.start
}

// States returns every registered state, in registration order. The
// returned slice must not be mutated by the caller.
func (m *TransitionMap) States() []*State {
	out := make([]*State, 0, m.states.Len())
	for pair := m.states.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// Build validates the graph and freezes the map against further mutation.
// It enforces:
//   - exactly one Start state exists;
//   - at least one End state exists;
//   - every state other than Start and the error state is reachable from
//     Start, following transitions whose destination is not an
//     ancestor-or-self of the state already current when the transition
//     fires (a purely internal move within a composite does not count as
//     reaching anything new);
//   - every non-End state, or one of its ancestors, declares a transition
//     whose destination lies outside that level's own subtree (no dead
//     ends);
//   - if an error state was configured, it was registered with AddState.
//
// Build may be called at most once; a map that fails to Build must not be
// used to construct a StateMachine.
func (m *TransitionMap) Build() error {
	if m.built {
		return configErrorf("Build called more than once")
	}
	if m.start == nil {
		return configErrorf("no START state registered")
	}
	var ends []*State
	for pair := m.states.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.Kind() == End {
			ends = append(ends, pair.Value)
		}
	}
	if len(ends) == 0 {
		return configErrorf("no END state registered")
	}

	// A transition credits every ancestor a of its destination (including the
	// destination itself) as "reached", unless the transition's own source is
	// itself a-or-a-descendant-of-a - that exclusion is what keeps a purely
	// internal move inside a composite state from counting as an external
	// entry into it. Composite states are frequently never a transition's
	// literal destination (only their leaf descendants are), so crediting
	// just the destination itself would leave every composite ancestor
	// flagged unreachable even though the graph clearly enters its subtree.
	reachable := map[string]bool{}
	for _, a := range m.start.Ancestors() {
		reachable[a.QualifiedName()] = true
	}
	visited := map[string]bool{m.start.QualifiedName(): true}
	queue := []*State{m.start}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		for _, t := range m.outgoing(s) {
			dst, src := t.To(), t.From()
			for _, a := range dst.Ancestors() {
				if src.isSubstateOfOrEqual(a) {
					continue
				}
				reachable[a.QualifiedName()] = true
			}
			if !visited[dst.QualifiedName()] {
				visited[dst.QualifiedName()] = true
				queue = append(queue, dst)
			}
		}
	}
	for pair := m.states.Oldest(); pair != nil; pair = pair.Next() {
		s := pair.Value
		if s == m.start || s == m.errorState || reachable[s.QualifiedName()] {
			continue
		}
		return configErrorf("state %q is unreachable from START", s.QualifiedName())
	}

	// Liveness: walking from a state up through its ancestors, a transition
	// declared directly at some ancestor level gives every descendant at
	// that level a way out, unless the transition's destination is itself
	// within that same ancestor's subtree (a self-loop at that level doesn't
	// count as an exit).
	for pair := m.states.Oldest(); pair != nil; pair = pair.Next() {
		s := pair.Value
		if s.Kind() == End {
			continue
		}
		if !m.hasExit(s) {
			return configErrorf("state %q has no outgoing transitions and is not an END state", s.QualifiedName())
		}
	}

	if m.errorState != nil {
		if _, ok := m.states.Get(m.errorState.QualifiedName()); !ok {
			return configErrorf("error state %q not registered", m.errorState.QualifiedName())
		}
	}

	m.built = true
	return nil
}

// outgoing returns every transition declared directly on s or inherited
// from one of its ancestors, nearest ancestor first.
func (m *TransitionMap) outgoing(s *State) []*Transition {
	var out []*Transition
	for cur := s; cur != nil; cur = cur.Parent() {
		out = append(out, m.transitions[cur.QualifiedName()]...)
	}
	return out
}

// hasExit reports whether s, or some ancestor of s, declares a transition
// that actually leaves that ancestor's own subtree. A transition declared at
// an ancestor level whose destination stays within that same subtree (a
// self-loop at that level) does not count.
func (m *TransitionMap) hasExit(s *State) bool {
	for cur := s; cur != nil; cur = cur.Parent() {
		for _, t := range m.transitions[cur.QualifiedName()] {
			if !t.To().isSubstateOfOrEqual(cur) {
				return true
			}
		}
	}
	return false
}

// nextTransition finds the first transition reachable from current (walking
// up the ancestor chain) whose guard accepts (event, entity). It returns a
// *NoExitTransitionsError if current and its ancestors declare no outgoing
// transitions at all, or a *NoMatchingTransitionError if transitions exist
// but none of their guards accepted the event.
func (m *TransitionMap) nextTransition(current *State, event Event, entity Entity) (*Transition, error) {
	candidates := m.outgoing(current)
	if len(candidates) == 0 {
		return nil, &NoExitTransitionsError{TransitionNotFoundError{State: current, Event: event}}
	}
	for _, t := range candidates {
		if t.Guard().Accept(event, entity, current) {
			return t, nil
		}
	}
	return nil, &NoMatchingTransitionError{TransitionNotFoundError{State: current, Event: event}}
}
