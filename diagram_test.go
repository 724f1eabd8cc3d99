package hsm_test

import (
	"context"
	"testing"

	"github.com/anomalizer/tungsten-fsm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiagramPUMLRendersStatesAndTransitions(t *testing.T) {
	start := hsm.NewState("Start", hsm.Start, nil)
	group := hsm.NewState("Group", hsm.ActiveState, nil, hsm.WithEntry(hsm.ActionFunc(noopAction)))
	leaf := hsm.NewState("Leaf", hsm.ActiveState, group)
	end := hsm.NewState("End", hsm.End, nil)

	m := hsm.NewTransitionMap()
	for _, s := range []*hsm.State{start, group, leaf, end} {
		require.NoError(t, m.AddState(s))
	}
	require.NoError(t, m.AddTransition(hsm.NewTransition("enter", start, leaf, nil, nil)))
	require.NoError(t, m.AddTransition(hsm.NewTransition("finish", leaf, end, nil, nil)))
	require.NoError(t, m.AddTransition(hsm.NewTransition("escape", group, end, nil, nil)))
	require.NoError(t, m.Build())

	out := m.DiagramPUML()
	assert.Contains(t, out, "@startuml")
	assert.Contains(t, out, "@enduml")
	assert.Contains(t, out, `state "Start" as Start`)
	assert.Contains(t, out, `state "Group:Leaf" as Group_Leaf`)
	assert.Contains(t, out, "[*] --> Start")
	assert.Contains(t, out, "End --> [*]")
	assert.Contains(t, out, "enter")
	assert.Contains(t, out, "finish")
	assert.Contains(t, out, "escape")
	assert.Contains(t, out, "Group : entry /")
}

func TestDiagramBuilderCustomArrow(t *testing.T) {
	start := hsm.NewState("Start", hsm.Start, nil)
	end := hsm.NewState("End", hsm.End, nil)
	m := hsm.NewTransitionMap()
	require.NoError(t, m.AddState(start))
	require.NoError(t, m.AddState(end))
	require.NoError(t, m.AddTransition(hsm.NewTransition("finish", start, end, nil, nil)))
	require.NoError(t, m.Build())

	out := m.DiagramBuilder().Arrow(start, end, "-[#red]->").Build()
	assert.Contains(t, out, "-[#red]->")
}

func TestDiagramBuildPanicsBeforeMapBuild(t *testing.T) {
	start := hsm.NewState("Start", hsm.Start, nil)
	m := hsm.NewTransitionMap()
	require.NoError(t, m.AddState(start))
	assert.Panics(t, func() { m.DiagramPUML() })
}

func noopAction(_ context.Context, _ hsm.Event, _ hsm.Entity, _ *hsm.Transition, _ hsm.ActionKind) error {
	return nil
}
