package hsm_test

import (
	"testing"

	"github.com/anomalizer/tungsten-fsm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linearMap(t *testing.T) (*hsm.TransitionMap, *hsm.State, *hsm.State, *hsm.State) {
	t.Helper()
	start := hsm.NewState("Start", hsm.Start, nil)
	middle := hsm.NewState("Middle", hsm.ActiveState, nil)
	end := hsm.NewState("End", hsm.End, nil)

	m := hsm.NewTransitionMap()
	require.NoError(t, m.AddState(start))
	require.NoError(t, m.AddState(middle))
	require.NoError(t, m.AddState(end))
	require.NoError(t, m.AddTransition(hsm.NewTransition("advance", start, middle, nil, nil)))
	require.NoError(t, m.AddTransition(hsm.NewTransition("finish", middle, end, nil, nil)))
	return m, start, middle, end
}

func TestBuildLinearGraph(t *testing.T) {
	m, start, _, _ := linearMap(t)
	require.NoError(t, m.Build())
	assert.Equal(t, start, m.StartState())
	assert.Len(t, m.States(), 3)
}

func TestBuildRejectsDuplicateStart(t *testing.T) {
	s1 := hsm.NewState("S1", hsm.Start, nil)
	s2 := hsm.NewState("S2", hsm.Start, nil)
	m := hsm.NewTransitionMap()
	require.NoError(t, m.AddState(s1))
	err := m.AddState(s2)
	require.Error(t, err)
	var cfgErr *hsm.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestBuildRejectsMissingEnd(t *testing.T) {
	start := hsm.NewState("Start", hsm.Start, nil)
	m := hsm.NewTransitionMap()
	require.NoError(t, m.AddState(start))
	err := m.Build()
	require.Error(t, err)
	var cfgErr *hsm.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestBuildRejectsUnreachableState(t *testing.T) {
	start := hsm.NewState("Start", hsm.Start, nil)
	end := hsm.NewState("End", hsm.End, nil)
	orphan := hsm.NewState("Orphan", hsm.ActiveState, nil)

	m := hsm.NewTransitionMap()
	require.NoError(t, m.AddState(start))
	require.NoError(t, m.AddState(end))
	require.NoError(t, m.AddState(orphan))
	require.NoError(t, m.AddTransition(hsm.NewTransition("finish", start, end, nil, nil)))

	err := m.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Orphan")
}

func TestBuildRejectsDeadEnd(t *testing.T) {
	start := hsm.NewState("Start", hsm.Start, nil)
	end := hsm.NewState("End", hsm.End, nil)
	deadEnd := hsm.NewState("DeadEnd", hsm.ActiveState, nil)

	m := hsm.NewTransitionMap()
	require.NoError(t, m.AddState(start))
	require.NoError(t, m.AddState(end))
	require.NoError(t, m.AddState(deadEnd))
	require.NoError(t, m.AddTransition(hsm.NewTransition("toDeadEnd", start, deadEnd, nil, nil)))
	require.NoError(t, m.AddTransition(hsm.NewTransition("finish", start, end, nil, nil)))

	err := m.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DeadEnd")
}

func TestBuildCannotBeCalledTwice(t *testing.T) {
	m, _, _, _ := linearMap(t)
	require.NoError(t, m.Build())
	require.Error(t, m.Build())
}

func TestMutatorsRejectedAfterBuild(t *testing.T) {
	m, start, _, end := linearMap(t)
	require.NoError(t, m.Build())

	assert.Error(t, m.AddState(hsm.NewState("Late", hsm.ActiveState, nil)))
	assert.Error(t, m.AddTransition(hsm.NewTransition("late", start, end, nil, nil)))
	assert.Error(t, m.SetErrorState(end))
}

func TestCompositeAncestorReachableOnlyThroughDescendant(t *testing.T) {
	// "Group" groups "Leaf" and "Inner" for qualified-naming and entry/exit
	// purposes, but declares no transition of its own - so it is never
	// separately registered with AddState, and never itself subject to the
	// reachability/liveness checks. A transition that targets Leaf directly
	// is enough to make the whole subtree usable.
	outside := hsm.NewState("Outside", hsm.Start, nil)
	group := hsm.NewState("Group", hsm.ActiveState, nil)
	leaf := hsm.NewState("Leaf", hsm.ActiveState, group)
	inner := hsm.NewState("Inner", hsm.ActiveState, group)
	done := hsm.NewState("Done", hsm.End, nil)

	m := hsm.NewTransitionMap()
	require.NoError(t, m.AddState(outside))
	require.NoError(t, m.AddState(leaf))
	require.NoError(t, m.AddState(inner))
	require.NoError(t, m.AddState(done))
	require.NoError(t, m.AddTransition(hsm.NewTransition("enter", outside, leaf, nil, nil)))
	require.NoError(t, m.AddTransition(hsm.NewTransition("toInner", leaf, inner, nil, nil)))
	require.NoError(t, m.AddTransition(hsm.NewTransition("finish", inner, done, nil, nil)))

	require.NoError(t, m.Build())
}

func TestInternalMoveDoesNotCreditAncestor(t *testing.T) {
	// "loop" is an internal move from Leaf up to its own ancestor Group; it
	// credits nothing, and Build must still report Unreached, a top-level
	// state that no transition ever enters.
	start := hsm.NewState("Start", hsm.Start, nil)
	group := hsm.NewState("Group", hsm.ActiveState, nil)
	leaf := hsm.NewState("Leaf", hsm.ActiveState, group)
	unreached := hsm.NewState("Unreached", hsm.ActiveState, nil)
	end := hsm.NewState("End", hsm.End, nil)

	m := hsm.NewTransitionMap()
	for _, s := range []*hsm.State{start, group, leaf, unreached, end} {
		require.NoError(t, m.AddState(s))
	}
	require.NoError(t, m.AddTransition(hsm.NewTransition("enter", start, leaf, nil, nil)))
	require.NoError(t, m.AddTransition(hsm.NewTransition("loop", leaf, group, nil, nil)))
	require.NoError(t, m.AddTransition(hsm.NewTransition("finish", leaf, end, nil, nil)))

	err := m.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unreached")
}

func TestAddTransitionGroup(t *testing.T) {
	start := hsm.NewState("Start", hsm.Start, nil)
	a := hsm.NewState("A", hsm.ActiveState, nil)
	b := hsm.NewState("B", hsm.ActiveState, nil)
	end := hsm.NewState("End", hsm.End, nil)

	m := hsm.NewTransitionMap()
	for _, s := range []*hsm.State{start, a, b, end} {
		require.NoError(t, m.AddState(s))
	}
	require.NoError(t, m.AddTransition(hsm.NewTransition("toA", start, a, nil, nil)))
	require.NoError(t, m.AddTransition(hsm.NewTransition("toB", a, b, nil, nil)))
	require.NoError(t, m.AddTransition(hsm.NewTransition("finish", b, end, nil, nil)))
	require.NoError(t, m.AddTransitionGroup("ping", nil, []*hsm.State{a, b}, nil))

	require.NoError(t, m.Build())
}

func TestSetErrorStateRequiresRegisteredState(t *testing.T) {
	m, _, _, _ := linearMap(t)
	unregistered := hsm.NewState("Unregistered", hsm.ActiveState, nil)
	assert.Error(t, m.SetErrorState(unregistered))
}
