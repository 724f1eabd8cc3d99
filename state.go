package hsm

// StateKind classifies a State's role in the graph.
type StateKind int

const (
	// Start is the unique entry point of a TransitionMap.
	Start StateKind = iota
	// ActiveState is an ordinary intermediate state.
	ActiveState
	// End marks a terminal state; StateMachine.IsEnd reports true once the
	// machine reaches one.
	End
)

// String returns a lower-case name for the kind, used in log output and
// diagram generation.
func (k StateKind) String() string {
	switch k {
	case Start:
		return "start"
	case ActiveState:
		return "active"
	case End:
		return "end"
	default:
		return "unknown"
	}
}

// State is an immutable node in a hierarchical state graph. States are
// created with NewState and handed to a TransitionMap via AddState; once
// created, a State is never mutated. A State's qualified name and ancestor
// chain are computed once, at construction, from its parent.
type State struct {
	name      string
	kind      StateKind
	parent    *State
	children  []*State
	entry     Action
	exit      Action
	qualified string
	ancestors []*State // root ... self, inclusive
}

// StateOption configures optional attributes of a State being constructed
// with NewState.
type StateOption func(*State)

// WithEntry sets the state's entry action, fired with ActionEntry whenever
// the state is entered as part of a transition.
func WithEntry(a Action) StateOption {
	return func(s *State) { s.entry = a }
}

// WithExit sets the state's exit action, fired with ActionExit whenever the
// state is left as part of a transition.
func WithExit(a Action) StateOption {
	return func(s *State) { s.exit = a }
}

// NewState creates a State with the given base name, kind, and optional
// parent (nil for a top-level state). Constructing a state with a parent
// also registers it as a child of that parent, for enumeration and for
// diagram generation; it does not by itself create any transition.
func NewState(name string, kind StateKind, parent *State, opts ...StateOption) *State {
	s := &State{name: name, kind: kind, parent: parent}
	for _, opt := range opts {
		opt(s)
	}
	if parent == nil {
		s.qualified = name
		s.ancestors = []*State{s}
	} else {
		s.qualified = parent.qualified + ":" + name
		s.ancestors = make([]*State, len(parent.ancestors)+1)
		copy(s.ancestors, parent.ancestors)
		s.ancestors[len(parent.ancestors)] = s
		parent.children = append(parent.children, s)
	}
	return s
}

// Name returns the state's base (unqualified) name.
func (s *State) Name() string {
	if s == nil {
		return "<nil>"
	}
	return s.name
}

// QualifiedName returns parent.QualifiedName()+":"+Name(), or just Name()
// for a top-level state. Two States are considered equal iff their
// qualified names match.
func (s *State) QualifiedName() string {
	if s == nil {
		return "<nil>"
	}
	return s.qualified
}

// String implements fmt.Stringer as the qualified name, so States print
// legibly in error messages and logs.
func (s *State) String() string {
	return s.QualifiedName()
}

// Kind returns the state's kind.
func (s *State) Kind() StateKind {
	return s.kind
}

// Parent returns the state's parent, or nil for a top-level state.
func (s *State) Parent() *State {
	return s.parent
}

// Children returns the state's direct substates, in the order they were
// constructed. The returned slice must not be mutated by the caller.
func (s *State) Children() []*State {
	return s.children
}

// IsLeaf reports whether the state has no substates.
func (s *State) IsLeaf() bool {
	return len(s.children) == 0
}

// Entry returns the state's entry action, or nil.
func (s *State) Entry() Action {
	return s.entry
}

// Exit returns the state's exit action, or nil.
func (s *State) Exit() Action {
	return s.exit
}

// Ancestors returns the state's ancestor chain from the root down to and
// including itself. The returned slice must not be mutated by the caller.
func (s *State) Ancestors() []*State {
	return s.ancestors
}

// IsSubstateOf reports whether other is a strict (direct or transitive)
// ancestor of s. A state is never a substate of itself.
func (s *State) IsSubstateOf(other *State) bool {
	if other == nil {
		return false
	}
	for p := s.parent; p != nil; p = p.parent {
		if p == other {
			return true
		}
	}
	return false
}

// isSubstateOfOrEqual reports whether s is other or a substate of other. It
// underlies the validator's ancestor-exclusion rule (see TransitionMap.Build).
func (s *State) isSubstateOfOrEqual(other *State) bool {
	return s == other || s.IsSubstateOf(other)
}

// LeastCommonAncestor walks the ancestor chains of a and b from the root
// down, returning the deepest State that is a prefix of both chains, or nil
// if the two states share no common ancestor (e.g. two distinct top-level
// states).
func LeastCommonAncestor(a, b *State) *State {
	if a == nil || b == nil {
		return nil
	}
	aa, ba := a.ancestors, b.ancestors
	var lca *State
	for i := 0; i < len(aa) && i < len(ba); i++ {
		if aa[i] != ba[i] {
			break
		}
		lca = aa[i]
	}
	return lca
}

// ancestorsAbove returns the states from s up to (but not including) stop,
// in ascending (child-to-parent) order. stop may be nil, in which case the
// full ancestor chain up to and including the top-level state is returned.
func ancestorsAbove(s, stop *State) []*State {
	var out []*State
	for cur := s; cur != stop; cur = cur.parent {
		out = append(out, cur)
	}
	return out
}

// ancestorsBelow returns the states from just below stop down to and
// including s, in descending (parent-to-child) order, using s's own
// ancestor chain. stop may be nil, in which case the full chain (from the
// top-level state down to s) is returned.
func ancestorsBelow(s, stop *State) []*State {
	chain := s.ancestors
	start := 0
	if stop != nil {
		for i, a := range chain {
			if a == stop {
				start = i + 1
				break
			}
		}
	}
	return chain[start:]
}
