package hsm_test

import (
	"testing"

	"github.com/anomalizer/tungsten-fsm"
	"github.com/stretchr/testify/assert"
)

type pingEvent struct{}

func (pingEvent) Payload() any { return nil }

type pongEvent struct{}

func (pongEvent) Payload() any { return nil }

func TestAlwaysGuard(t *testing.T) {
	assert.True(t, hsm.Always.Accept(pingEvent{}, nil, nil))
}

func TestNotGuard(t *testing.T) {
	accept := hsm.GuardFunc(func(hsm.Event, hsm.Entity, *hsm.State) bool { return true })
	assert.False(t, hsm.Not(accept).Accept(nil, nil, nil))
	assert.True(t, hsm.Not(hsm.Not(accept)).Accept(nil, nil, nil))
}

func TestTypeOfGuard(t *testing.T) {
	g := hsm.TypeOf[pingEvent]()
	assert.True(t, g.Accept(pingEvent{}, nil, nil))
	assert.False(t, g.Accept(pongEvent{}, nil, nil))
}

func TestRegexMatchGuard(t *testing.T) {
	g := hsm.RegexMatch(`foo-\d+`)
	assert.True(t, g.Accept(hsm.NewEvent("foo-42"), nil, nil))
	assert.False(t, g.Accept(hsm.NewEvent("xfoo-42"), nil, nil), "match is anchored, not a substring search")
	assert.False(t, g.Accept(hsm.NewEvent(42), nil, nil), "non-string payload never matches")
}

func TestRegexMatchGuardPanicsOnBadPattern(t *testing.T) {
	assert.Panics(t, func() { hsm.RegexMatch("(") })
}
