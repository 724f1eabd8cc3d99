package hsm_test

import (
	"errors"
	"testing"

	"github.com/anomalizer/tungsten-fsm"
	"github.com/stretchr/testify/assert"
)

func TestTransitionNotFoundMarkerUnwraps(t *testing.T) {
	s := hsm.NewState("S", hsm.ActiveState, nil)

	var noExit error = &hsm.NoExitTransitionsError{TransitionNotFoundError: hsm.TransitionNotFoundError{State: s}}
	var marker *hsm.TransitionNotFoundError
	assert.ErrorAs(t, noExit, &marker)
	assert.Same(t, s, marker.State)

	var noMatch error = &hsm.NoMatchingTransitionError{TransitionNotFoundError: hsm.TransitionNotFoundError{State: s}}
	marker = nil
	assert.ErrorAs(t, noMatch, &marker)
	assert.Same(t, s, marker.State)
}

func TestFiniteStateFailureErrorUnwrapsCause(t *testing.T) {
	sentinel := errors.New("boom")
	err := &hsm.FiniteStateFailureError{Cause: sentinel}
	assert.ErrorIs(t, err, sentinel)
}

func TestTransitionRollbackUnwrapsCause(t *testing.T) {
	sentinel := errors.New("rollback reason")
	err := &hsm.TransitionRollback{Cause: sentinel}
	assert.ErrorIs(t, err, sentinel)
	assert.Contains(t, err.Error(), "rollback reason")
}

func TestTransitionFailureUnwrapsCause(t *testing.T) {
	sentinel := errors.New("failure reason")
	err := &hsm.TransitionFailure{Cause: sentinel}
	assert.ErrorIs(t, err, sentinel)
}

func TestConfigurationErrorMessage(t *testing.T) {
	var err error = &hsm.ConfigurationError{Msg: "no START state registered"}
	assert.Contains(t, err.Error(), "no START state registered")
}
