package execpool

import "go.uber.org/zap"

// runWorker is the body every worker goroutine runs, grounded in the
// original's coreWorkerThread/workerThread (plain pool) and the
// work-stealing overrides in workstealingthreadpoolexecutor.cpp: loop
// while run-state is still RUNNING or SHUTDOWN (draining queued work even
// after shutdown has been requested, per spec §4.5.4), pop from the owned
// queue — or, if stealing, the one neighbor queue — and run whatever comes
// back, parking on the pool-wide dispatch condition when both are empty.
//
// Unlike the per-worker blockingQueue's own condition variable (used by
// the standalone C1 primitive and its tests), the loop waits on the
// executor's shared dispatchCond: a task routed onto queue B must wake a
// worker blocked on empty queue A when A is B's neighbor, which a
// per-queue condvar can never do since put only signals its own queue.
//
// A non-core worker additionally exits once both queues it can see are
// empty and keep_non_core_alive is false, mirroring the original's
// `if (!nonCoreThreadAlive_) return;` branch.
// runWorker is passed to worker.start as the body it runs under
// worker.run's prelude/epilogue (thread naming, tid, idle bracketing) —
// it must not call w.run itself, only the loop below.
func (e *Executor) runWorker(w *worker, idx int, isCore bool) {
	for {
		if runStateOf(e.ctl.load()) > shutdown {
			return
		}

		t, ok := e.pollWork(idx, isCore)
		if !ok {
			return
		}
		if t == nil {
			continue
		}

		w.markBusy()
		if err := t.run(); err != nil {
			e.logger.Debug("task returned error", zap.String("pool", e.name), zap.Error(err))
		}
		w.markIdle()

		if e.metrics != nil {
			e.metrics.completedTotal.Inc()
			e.metrics.activeWorkers.Set(float64(e.activeWorkerCount()))
		}
	}
}

// pollWork returns the next task for worker idx to run, blocking on the
// shared dispatch condition while none is available. ok is false only
// when the worker should exit its loop entirely (run state advanced past
// SHUTDOWN, or a non-core worker was told to retire).
func (e *Executor) pollWork(idx int, isCore bool) (t *task, ok bool) {
	own := e.queueAt(idx)

	e.dispatchMu.Lock()
	defer e.dispatchMu.Unlock()
	for {
		if own != nil {
			if t, popped := own.tryPop(); popped {
				return t, true
			}
		}

		if e.steal {
			if nb := e.neighborQueue(idx); nb != nil {
				if t, stole := nb.tryPop(); stole {
					if e.metrics != nil {
						e.metrics.stolenTotal.Inc()
					}
					return t, true
				}
			}
		}

		if runStateOf(e.ctl.load()) > shutdown {
			return nil, false
		}
		if !isCore && !e.keepNonCoreAlive.get() {
			return nil, false
		}

		e.dispatchCond.Wait()
	}
}

// activeWorkerCount counts workers currently marked busy (spec's
// GetActiveCount / C10 active_workers gauge).
func (e *Executor) activeWorkerCount() int {
	e.mu.Lock()
	ws := append([]*worker(nil), e.workers...)
	e.mu.Unlock()

	n := 0
	for _, w := range ws {
		if !w.isIdle() {
			n++
		}
	}
	return n
}
