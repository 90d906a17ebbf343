package execpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCtlOfRoundTrip(t *testing.T) {
	for _, rs := range []runState{running, shutdown, stop, tidying, terminated} {
		c := ctlOf(rs, 7)
		assert.Equal(t, rs, runStateOf(c))
		assert.Equal(t, int32(7), workerCountOf(c))
	}
}

func TestRunStateOrdering(t *testing.T) {
	assert.True(t, runStateLessThan(ctlOf(running, 0), shutdown))
	assert.False(t, runStateLessThan(ctlOf(shutdown, 0), shutdown))
	assert.True(t, runStateAtLeast(ctlOf(terminated, 0), stop))
	assert.False(t, runStateAtLeast(ctlOf(running, 0), shutdown))
}

func TestIsRunning(t *testing.T) {
	assert.True(t, isRunning(ctlOf(running, 3)))
	assert.False(t, isRunning(ctlOf(shutdown, 0)))
}

func TestControlCompareAndIncrementWorkerCount(t *testing.T) {
	c := newControl(running, 0)
	cur := c.load()
	require.True(t, c.compareAndIncrementWorkerCount(cur))
	assert.Equal(t, int32(1), workerCountOf(c.load()))

	// Stale snapshot must fail.
	assert.False(t, c.compareAndIncrementWorkerCount(cur))
}

func TestControlDecrementWorkerCount(t *testing.T) {
	c := newControl(running, 2)
	c.decrementWorkerCount()
	assert.Equal(t, int32(1), workerCountOf(c.load()))
}

func TestControlAdvanceIsMonotoneAndIdempotent(t *testing.T) {
	c := newControl(running, 5)
	c.advance(shutdown)
	assert.Equal(t, shutdown, runStateOf(c.load()))
	assert.Equal(t, int32(5), workerCountOf(c.load()))

	c.advance(running) // no-op: running < shutdown
	assert.Equal(t, shutdown, runStateOf(c.load()))

	c.advance(stop)
	assert.Equal(t, stop, runStateOf(c.load()))
}

func TestControlCompareAndSetZero(t *testing.T) {
	c := newControl(stop, 0)
	assert.True(t, c.compareAndSetZero(stop, tidying))
	assert.Equal(t, tidying, runStateOf(c.load()))

	// Worker count not zero: must fail.
	c2 := newControl(stop, 1)
	assert.False(t, c2.compareAndSetZero(stop, tidying))
}

func TestRunStateName(t *testing.T) {
	assert.Equal(t, "RUNNING", runStateName(running))
	assert.Equal(t, "TERMINATED", runStateName(terminated))
}
