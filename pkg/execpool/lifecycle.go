package execpool

import (
	"fmt"

	"go.uber.org/zap"
)

// PreStartCoreThreads spawns all core_size workers immediately instead of
// waiting for the first core-routed submission to find them missing.
// Grounded in the original constructor, which unconditionally calls
// startCoreThreads() before returning; here it is a separate method so a
// caller may choose to start lazily instead (spec's constructors do not
// mandate eager start the way the C++ ctor did).
func (e *Executor) PreStartCoreThreads() {
	e.mu.Lock()
	alreadyStarted := len(e.queues)
	e.mu.Unlock()

	for i := alreadyStarted; i < int(e.coreSize); i++ {
		if !e.ctl.compareAndIncrementWorkerCount(e.ctl.load()) {
			continue
		}
		e.spawnWorker(nil)
	}
}

// SetMaxPoolSize changes the ceiling non-core workers may grow to. Shrinking
// below the current worker count triggers ReleaseNonCoreThreads, mirroring
// the original setMaxPoolSize.
func (e *Executor) SetMaxPoolSize(n int) error {
	if n <= 0 || int32(n) < e.coreSize {
		return fmt.Errorf("%w: max_size=%d must be >=1 and >= core_size=%d", ErrBadConstruction, n, e.coreSize)
	}
	e.maxSize = int32(n)
	if workerCountOf(e.ctl.load()) > e.maxSize {
		e.ReleaseNonCoreThreads()
	}
	return nil
}

// ReleaseNonCoreThreads tells non-core workers to retire, then joins and
// drops only those that are actually idle right now. Mirrors the
// original's releaseNonCoreThreads(): sets keep_non_core_alive false,
// broadcasts, then walks worker index >= core_size in reverse, joining and
// popping each one that is idle and stopping at the first one that is
// not — a busy non-core worker, and everything below it in index, is left
// in place rather than blocked on or skipped past (spec §4.5.5 / P10).
func (e *Executor) ReleaseNonCoreThreads() {
	e.keepNonCoreAlive.set(false)
	e.wakeDispatcher()

	e.mu.Lock()
	core := int(e.coreSize)
	cut := len(e.workers)
	for cut > core && e.workers[cut-1].isIdle() {
		cut--
	}
	tail := append([]*worker(nil), e.workers[cut:]...)
	e.workers = e.workers[:cut]
	e.queues = e.queues[:cut]
	e.mu.Unlock()

	for _, w := range tail {
		w.join()
		e.ctl.decrementWorkerCount()
	}
	e.keepNonCoreAlive.set(true)
}

// Shutdown advances run-state to SHUTDOWN: no new tasks are accepted, but
// every worker keeps draining its queue (and stealing, for a stealing
// pool). Once drained, workers stay parked until Stop joins them; Shutdown
// alone does not move the pool to TERMINATED. Matches spec §4.5.4 /
// original shutdown().
func (e *Executor) Shutdown() {
	e.ctl.advance(shutdown)
	e.wakeDispatcher()
	e.logger.Info("executor shutting down", zap.String("pool", e.name))
}

// Stop advances run-state to STOP, wakes every worker so it abandons its
// queue immediately instead of draining it, joins them all, then
// transitions through TIDYING to TERMINATED. Matches spec §4.5.4 /
// original stop().
func (e *Executor) Stop() {
	e.ctl.advance(stop)
	e.wakeDispatcher()

	e.mu.Lock()
	ws := append([]*worker(nil), e.workers...)
	e.workers = nil
	qs := append([]*blockingQueue(nil), e.queues...)
	e.mu.Unlock()

	for _, w := range ws {
		w.join()
		e.ctl.decrementWorkerCount()
	}

	// Tasks still queued are dropped; closing a dropped future task's
	// result channel makes its Future.Get return ErrBrokenFuture.
	for _, q := range qs {
		for t, ok := q.tryPop(); ok; t, ok = q.tryPop() {
			if t.resultCh != nil {
				close(t.resultCh)
			}
		}
	}

	if e.ctl.compareAndSetZero(stop, tidying) {
		e.logger.Info("executor terminated", zap.String("pool", e.name))
	}
	e.ctl.advance(terminated)
}

func (e *Executor) IsShutdown() bool {
	return runStateOf(e.ctl.load()) == shutdown
}

func (e *Executor) IsTerminated() bool {
	return runStateAtLeast(e.ctl.load(), terminated)
}

// ToString renders a one-line status summary, grounded in the original's
// toString() stream composition.
func (e *Executor) ToString() string {
	c := e.ctl.load()
	return fmt.Sprintf("STATE=%s EVER_POOL_SIZE=%d CORE_POOL_SIZE=%d MAX_POOL_SIZE=%d TASK_QUEUE_SIZE=%d",
		runStateName(runStateOf(c)), e.GetEverPoolSize(), e.GetCorePoolSize(), e.maxSize, e.GetTaskCount())
}

func (e *Executor) GetActiveCount() int {
	return e.activeWorkerCount()
}

func (e *Executor) GetEverPoolSize() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return int(e.everPoolSize)
}

func (e *Executor) GetCorePoolSize() int {
	return int(e.coreSize)
}

func (e *Executor) GetTaskCount() int {
	return e.totalQueued()
}

func (e *Executor) KeepNonCoreThreadAlive() bool {
	return e.keepNonCoreAlive.get()
}

func (e *Executor) SetKeepNonCoreThreadAlive(value bool) {
	e.keepNonCoreAlive.set(value)
	if value {
		e.wakeDispatcher()
	} else {
		e.ReleaseNonCoreThreads()
		e.keepNonCoreAlive.set(false)
	}
}

func (e *Executor) SetRejectedExecutionHandler(policy RejectionPolicy) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rejectPolicy = policy
}
