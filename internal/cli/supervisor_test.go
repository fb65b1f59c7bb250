package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupervisorRestartsAfterPanic(t *testing.T) {
	plainColors(t)
	var stderr bytes.Buffer
	sup := &Supervisor{Retries: 3, Stderr: &stderr}
	calls := 0
	var seen []State
	err := sup.Run(func() error {
		seen = append(seen, sup.State())
		calls++
		if calls < 3 {
			panic("boom")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, sup.Crashes())
	assert.Equal(t, StateTerminated, sup.State())
	assert.Equal(t, []State{StateRunning, StateRunning, StateRunning}, seen)
	assert.Contains(t, stderr.String(), "restarting (1/3)")
	assert.Contains(t, stderr.String(), "restarting (2/3)")
	assert.Contains(t, stderr.String(), "goroutine")
}

func TestSupervisorGivesUp(t *testing.T) {
	var stderr bytes.Buffer
	sup := &Supervisor{Retries: 1, Stderr: &stderr}
	calls := 0
	err := sup.Run(func() error {
		calls++
		panic("always")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "giving up after 2 crashes")
	assert.Contains(t, err.Error(), "always")
	assert.Equal(t, 2, calls)
	assert.Equal(t, StateTerminated, sup.State())
}

func TestSupervisorReturnsSessionError(t *testing.T) {
	sup := &Supervisor{Retries: 3, Stderr: &bytes.Buffer{}}
	want := errors.New("terminal gone")
	calls := 0
	err := sup.Run(func() error {
		calls++
		return want
	})
	assert.ErrorIs(t, err, want)
	assert.Equal(t, 1, calls)
	assert.Zero(t, sup.Crashes())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "crashed", StateCrashed.String())
	assert.Equal(t, "State(9)", State(9).String())
}
