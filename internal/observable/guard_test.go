package observable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuard_ZeroValueIdle(t *testing.T) {
	var g Guard
	assert.False(t, g.Busy())
	assert.NoError(t, g.Check("Add", 5))
}

func TestGuard_CheckOnlyFailsWithSeveralSubscribers(t *testing.T) {
	var g Guard
	release := g.Enter()
	defer release()

	assert.True(t, g.Busy())
	assert.NoError(t, g.Check("Add", 0))
	assert.NoError(t, g.Check("Add", 1))

	err := g.Check("Add", 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReentrancy)
}

func TestGuard_ReleaseIsIdempotent(t *testing.T) {
	var g Guard
	outer := g.Enter()
	inner := g.Enter()

	inner()
	inner()
	assert.True(t, g.Busy(), "outer dispatch still in progress")

	outer()
	assert.False(t, g.Busy())
}

func TestGuard_ReleasedOnHandlerPanic(t *testing.T) {
	s := NewSequence[int]()
	s.Subscribe(func(Change[int]) error { panic("boom") })
	s.Subscribe(func(Change[int]) error { return nil })

	assert.Panics(t, func() { _, _ = s.Add(1) })
	assert.False(t, s.guard.Busy(), "deferred release must run during panic")
}
