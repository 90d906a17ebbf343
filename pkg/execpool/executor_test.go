package execpool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPool(t *testing.T, core, max int, steal bool) *Executor {
	t.Helper()
	e, err := newExecutor(Options{CoreSize: core, MaxSize: max, NamePrefix: t.Name()}, steal)
	require.NoError(t, err)
	t.Cleanup(e.Stop)
	return e
}

func TestNewPoolRejectsBadBounds(t *testing.T) {
	_, err := NewPool(Options{CoreSize: -1, MaxSize: 4})
	assert.ErrorIs(t, err, ErrBadConstruction)

	_, err = NewPool(Options{CoreSize: 4, MaxSize: 2})
	assert.ErrorIs(t, err, ErrBadConstruction)

	_, err = NewPool(Options{CoreSize: 0, MaxSize: 0})
	assert.ErrorIs(t, err, ErrBadConstruction)
}

func TestSubmitAndAwaitResult(t *testing.T) {
	e := newTestPool(t, 2, 2, false)

	fut, err := e.Submit(func() (interface{}, error) {
		return 21 * 2, nil
	}, true)
	require.NoError(t, err)

	val, err := fut.Get()
	require.NoError(t, err)
	assert.Equal(t, 42, val)
}

func TestExecuteRunsFn(t *testing.T) {
	e := newTestPool(t, 1, 1, false)

	done := make(chan struct{})
	err := e.Execute(func() error {
		close(done)
		return nil
	}, true)
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task never ran")
	}
}

func TestPerQueueOrderingUnderCoreRouting(t *testing.T) {
	e := newTestPool(t, 1, 1, false) // single core worker: one queue, strict FIFO

	var mu sync.Mutex
	var order []int

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		i := i
		wg.Add(1)
		require.NoError(t, e.Execute(func() error {
			defer wg.Done()
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		}, true))
	}
	wg.Wait()

	for i := 0; i < 20; i++ {
		assert.Equal(t, i, order[i])
	}
}

func TestNonCoreWorkerSpawnsUpToMax(t *testing.T) {
	e := newTestPool(t, 0, 3, false)

	var active int32
	var maxSeen int32
	release := make(chan struct{})
	var wg sync.WaitGroup

	for i := 0; i < 3; i++ {
		wg.Add(1)
		require.NoError(t, e.Execute(func() error {
			defer wg.Done()
			n := atomic.AddInt32(&active, 1)
			for {
				old := atomic.LoadInt32(&maxSeen)
				if n <= old || atomic.CompareAndSwapInt32(&maxSeen, old, n) {
					break
				}
			}
			<-release
			atomic.AddInt32(&active, -1)
			return nil
		}, false))
	}

	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(3), atomic.LoadInt32(&maxSeen))
}

func TestWorkStealingCrossesToNeighborQueue(t *testing.T) {
	e := newTestPool(t, 2, 2, true)
	e.PreStartCoreThreads()
	require.Equal(t, 2, e.queueCount())

	var ran int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		require.NoError(t, e.Execute(func() error {
			defer wg.Done()
			atomic.AddInt32(&ran, 1)
			return nil
		}, true))
	}
	wg.Wait()
	assert.Equal(t, int32(10), atomic.LoadInt32(&ran))

	// Two tasks placed on queue 0 that each wait for the other to start:
	// both can start only if worker 1 steals one of them from queue 0.
	aStarted, bStarted := make(chan struct{}), make(chan struct{})
	waitFor := func(ch chan struct{}) {
		select {
		case <-ch:
		case <-time.After(2 * time.Second):
		}
	}
	q0 := e.queueAt(0)
	q0.put(newBareTask("a", func() error { close(aStarted); waitFor(bStarted); return nil }))
	q0.put(newBareTask("b", func() error { close(bStarted); waitFor(aStarted); return nil }))
	e.wakeDispatcher()

	for _, ch := range []chan struct{}{aStarted, bStarted} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatal("a task on queue 0 was never taken by the neighbor worker")
		}
	}
}

func TestShutdownDrainsQueueBeforeExit(t *testing.T) {
	e := newTestPool(t, 1, 1, false)

	ran := make(chan int, 5)
	for i := 0; i < 5; i++ {
		i := i
		require.NoError(t, e.Execute(func() error {
			ran <- i
			return nil
		}, true))
	}

	e.Shutdown()
	assert.True(t, e.IsShutdown())

	for i := 0; i < 5; i++ {
		select {
		case <-ran:
		case <-time.After(time.Second):
			t.Fatalf("task %d never ran after shutdown", i)
		}
	}
}

func TestStopAbandonsQueueAndTerminates(t *testing.T) {
	e := newTestPool(t, 1, 1, false)

	block := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, e.Execute(func() error {
		close(started)
		<-block
		return nil
	}, true))

	<-started
	// Queue up extra work that should never run once Stop fires.
	ranExtra := int32(0)
	require.NoError(t, e.Execute(func() error {
		atomic.AddInt32(&ranExtra, 1)
		return nil
	}, true))

	// Release the running task only after Stop has advanced the run state,
	// so the worker exits instead of popping the queued task.
	go func() {
		time.Sleep(20 * time.Millisecond)
		close(block)
	}()
	e.Stop()

	assert.True(t, e.IsTerminated())
	assert.Equal(t, int32(0), atomic.LoadInt32(&ranExtra))
}

func TestExecuteRejectedAfterShutdown(t *testing.T) {
	e := newTestPool(t, 1, 1, false)
	e.Shutdown()

	err := e.Execute(func() error { return nil }, true)
	assert.ErrorIs(t, err, ErrRejected)
}

func TestDiscardPolicySwallowsRejection(t *testing.T) {
	e, err := newExecutor(Options{CoreSize: 1, MaxSize: 1, RejectPolicy: DiscardPolicy{}}, false)
	require.NoError(t, err)
	t.Cleanup(e.Stop)

	e.Shutdown()
	assert.NoError(t, e.Execute(func() error { return nil }, true))
}

func TestCallerRunsPolicyRunsInline(t *testing.T) {
	e, err := newExecutor(Options{CoreSize: 1, MaxSize: 1, RejectPolicy: CallerRunsPolicy{}}, false)
	require.NoError(t, err)
	t.Cleanup(e.Stop)

	e.Shutdown()

	ran := false
	assert.NoError(t, e.Execute(func() error {
		ran = true
		return nil
	}, true))
	assert.True(t, ran)
}

func TestToStringReportsState(t *testing.T) {
	e := newTestPool(t, 1, 2, false)
	assert.Contains(t, e.ToString(), "STATE=RUNNING")
	e.Shutdown()
}

func TestConstructionDoesNotEagerlySpawnWorkers(t *testing.T) {
	e := newTestPool(t, 3, 3, false)
	assert.Equal(t, 0, e.queueCount())
	assert.Equal(t, 0, e.GetEverPoolSize())

	e.PreStartCoreThreads()
	assert.Equal(t, 3, e.queueCount())
	assert.Equal(t, 3, e.GetEverPoolSize())
}

func TestCoreRoutedTaskNeverLandsOnNonCoreQueueThatGetsReleased(t *testing.T) {
	e := newTestPool(t, 1, 2, false)

	// Grow a non-core worker and keep it busy so the pool has one core
	// queue and one non-core queue before any core-routed submission.
	block := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, e.Execute(func() error {
		close(started)
		<-block
		return nil
	}, false))
	require.NoError(t, e.Execute(func() error {
		<-block
		return nil
	}, false))
	<-started
	require.Equal(t, 2, e.queueCount())

	ran := make(chan struct{}, 1)
	require.NoError(t, e.Execute(func() error {
		ran <- struct{}{}
		return nil
	}, true)) // core-routed: must land on queue 0, never queue 1

	close(block)

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("core-routed task never ran")
	}
	time.Sleep(20 * time.Millisecond) // let the non-core worker settle idle

	// Now release the non-core worker; if the core-routed task above had
	// been misrouted onto it, this would have raced with or discarded it.
	e.ReleaseNonCoreThreads()
	assert.Equal(t, 1, e.queueCount())
}

func TestReleaseNonCoreThreadsSkipsBusyWorkerFromTail(t *testing.T) {
	e := newTestPool(t, 0, 2, false)

	block := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, e.Execute(func() error {
		close(started)
		<-block
		return nil
	}, false))
	<-started
	require.Equal(t, 1, e.queueCount())

	e.ReleaseNonCoreThreads()
	// The sole non-core worker is still busy: release must not block on
	// it, and must not remove it either.
	assert.Equal(t, 1, e.queueCount())

	close(block)
}

func TestCircuitBreakerRejectionPolicyFallsBackThenTrips(t *testing.T) {
	policy := NewCircuitBreakerRejectionPolicy(t.Name(), AbortPolicy{})
	e, err := newExecutor(Options{CoreSize: 1, MaxSize: 1, RejectPolicy: policy}, false)
	require.NoError(t, err)
	t.Cleanup(e.Stop)

	e.Shutdown()

	// First rejections go through the fallback (AbortPolicy) and surface
	// its "not running" message while the breaker is still closed.
	err = e.Execute(func() error { return nil }, true)
	assert.ErrorIs(t, err, ErrRejected)

	// After the breaker's default FailureThreshold (5) fallback failures it
	// opens and fails fast without consulting the fallback.
	for i := 0; i < 4; i++ {
		_ = e.Execute(func() error { return nil }, true)
	}
	err = e.Execute(func() error { return nil }, true)
	require.ErrorIs(t, err, ErrRejected)
	assert.Contains(t, err.Error(), "circuit open")
}
