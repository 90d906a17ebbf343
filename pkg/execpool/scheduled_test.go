package execpool

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduled(t *testing.T, core int) *ScheduledExecutor {
	t.Helper()
	e, err := NewScheduledExecutor(core, Options{NamePrefix: t.Name()})
	require.NoError(t, err)
	t.Cleanup(e.Stop)
	return e
}

func TestNewScheduledExecutorRejectsBadCore(t *testing.T) {
	_, err := NewScheduledExecutor(0, Options{})
	assert.ErrorIs(t, err, ErrBadConstruction)

	_, err = NewScheduledExecutor(-1, Options{})
	assert.ErrorIs(t, err, ErrBadConstruction)
}

func TestScheduleOnceFiresExactlyOnce(t *testing.T) {
	e := newTestScheduled(t, 1)

	var count int32
	_, err := e.Schedule(func() error {
		atomic.AddInt32(&count, 1)
		return nil
	}, 10*time.Millisecond)
	require.NoError(t, err)

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&count))
}

func TestScheduleAtFixedRateFiresRepeatedly(t *testing.T) {
	e := newTestScheduled(t, 1)

	var count int32
	id, err := e.ScheduleAtFixedRate(func() error {
		atomic.AddInt32(&count, 1)
		return nil
	}, 0, 20*time.Millisecond)
	require.NoError(t, err)

	time.Sleep(150 * time.Millisecond)
	e.Cancel(id)

	seen := atomic.LoadInt32(&count)
	assert.GreaterOrEqual(t, seen, int32(3))

	time.Sleep(50 * time.Millisecond)
	// Cancellation stops further reinsertion, though an in-flight fire
	// may still land; allow at most one more tick past the cancel point.
	assert.LessOrEqual(t, atomic.LoadInt32(&count)-seen, int32(1))
}

func TestScheduleWithFixedDelaySpacesRunsApart(t *testing.T) {
	e := newTestScheduled(t, 1)

	var fires []time.Time
	done := make(chan struct{}, 1)
	id, err := e.ScheduleWithFixedDelay(func() error {
		fires = append(fires, time.Now())
		if len(fires) == 3 {
			select {
			case done <- struct{}{}:
			default:
			}
		}
		return nil
	}, 0, 15*time.Millisecond)
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("fixed-delay task did not fire three times")
	}
	e.Cancel(id)

	require.GreaterOrEqual(t, len(fires), 3)
	for i := 1; i < 3; i++ {
		assert.GreaterOrEqual(t, fires[i].Sub(fires[i-1]), 10*time.Millisecond)
	}
}

func TestScheduledRejectedAfterShutdown(t *testing.T) {
	e := newTestScheduled(t, 1)
	e.Shutdown()
	assert.True(t, e.IsShutdown())

	_, err := e.Schedule(func() error { return nil }, time.Millisecond)
	assert.ErrorIs(t, err, ErrRejected)
}

func TestScheduledStopTerminates(t *testing.T) {
	e := newTestScheduled(t, 2)
	e.Stop()
	assert.True(t, e.IsTerminated())
}

func TestScheduledToStringReportsCoreSize(t *testing.T) {
	e := newTestScheduled(t, 3)
	assert.Contains(t, e.ToString(), "CORE_POOL_SIZE=3")
}
