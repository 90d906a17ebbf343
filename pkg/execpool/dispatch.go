package execpool

import (
	"fmt"

	"go.uber.org/zap"
)

// addWorker implements the original's addWorker retry protocol: route to
// an existing queue round-robin when core-routing or when the pool is
// already at max, otherwise try to claim a worker-count slot and spin up a
// brand new queue+worker pair. The CAS retry distinguishes a run-state
// change (start over, since the pool may no longer be accepting work) from
// a worker-count race (just re-check and retry routing).
func (e *Executor) addWorker(t *task, useCore bool) bool {
	for {
		c := e.ctl.load()
		rs := runStateOf(c)
		if rs >= shutdown {
			return false
		}

		for {
			if useCore && e.queueCount() > 0 {
				e.routeToQueue(t, true)
				return true
			}

			wc := workerCountOf(c)
			if !useCore && wc >= e.maxSize && e.queueCount() > 0 {
				e.routeToQueue(t, false)
				return true
			}

			if e.ctl.compareAndIncrementWorkerCount(c) {
				e.spawnWorker(t)
				return true
			}

			c = e.ctl.load()
			if runStateOf(c) != rs {
				break // run state changed mid-claim: restart from scratch
			}
		}
	}
}

// routeToQueue round-robins a task onto an existing queue. Called only
// once at least one queue exists. useCore distinguishes the two modulus
// ranges spec §4.5.3 requires: a core-routed task is always round-robined
// across the core range only (queues[0:core_size], or however many of
// those have been spawned so far), matching the original's
// `submitId_++ % corePoolSize_`; a non-core task routed here because the
// pool is already at max_size round-robins across every existing queue,
// matching the original's `submitId_++ % workQueues_->size()`. Without
// this split a core-routed task could land on a non-core queue, which
// ReleaseNonCoreThreads/SetMaxPoolSize may later truncate out from under
// it, discarding the task silently.
func (e *Executor) routeToQueue(t *task, useCore bool) {
	e.mu.Lock()
	n := len(e.queues)
	mod := n
	if useCore {
		core := int(e.coreSize)
		if core > n {
			core = n
		}
		if core > 0 {
			mod = core
		}
	}
	idx := int(e.submitID % int64(mod))
	e.submitID++
	q := e.queues[idx]
	e.mu.Unlock()

	q.put(t)
	e.wakeDispatcher()
	if e.metrics != nil {
		e.metrics.queuedTasks.Set(float64(e.totalQueued()))
	}
}

// spawnWorker appends a fresh queue and worker, optionally seeds the queue
// with a first task (nil for PreStartCoreThreads, which starts workers
// with nothing queued), and starts the worker's run loop. Mirrors the
// original's pattern of growing workQueues_/threads_ together under the
// executor mutex before starting the new thread.
func (e *Executor) spawnWorker(first *task) {
	e.mu.Lock()
	idx := len(e.queues)
	q := newBlockingQueue()
	if first != nil {
		q.put(first)
	}
	e.queues = append(e.queues, q)

	w := newWorker(idx, fmt.Sprintf("%s-%d", e.name, idx))
	e.workers = append(e.workers, w)
	e.everPoolSize++
	e.mu.Unlock()

	isCore := idx < int(e.coreSize)
	w.start(func() { e.runWorker(w, idx, isCore) })

	e.wakeDispatcher()
	if e.metrics != nil {
		e.metrics.workerCount.Set(float64(e.queueCount()))
	}
}

// Execute submits a fire-and-forget task (spec §6.1). useCore requests
// core-queue round-robin routing even when a non-core worker slot is
// still available; once the pool is at max_size both kinds are
// round-robined, a core-routed task across the core queues only and any
// other task across every queue.
func (e *Executor) Execute(fn func() error, useCore bool) error {
	t := newBareTask(e.nextTaskID(), fn)
	return e.submitTask(t, useCore)
}

// Submit submits call and returns a Future observing its result (spec
// §6.2/§4.3).
func (e *Executor) Submit(call func() (interface{}, error), useCore bool) (*Future, error) {
	t, fut := newFutureTask(e.nextTaskID(), call)
	if err := e.submitTask(t, useCore); err != nil {
		return nil, err
	}
	return fut, nil
}

// ExecuteBatch submits every task currently sitting in tasks (a caller-
// owned slice) in order, routing each one with the given useCore and
// stopping at the first submission error. Grounded in the original's
// bulk execute(BlockingQueue<Runnable>&, bool) overload, simplified since
// Go call sites already hold the batch in a slice rather than a second
// blocking queue.
func (e *Executor) ExecuteBatch(tasks []func() error, useCore bool) error {
	for _, fn := range tasks {
		if err := e.Execute(fn, useCore); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) submitTask(t *task, useCore bool) error {
	c := e.ctl.load()
	if !isRunning(c) {
		return e.reject(t)
	}

	if e.metrics != nil {
		e.metrics.submittedTotal.Inc()
	}

	if e.addWorker(t, useCore) {
		return nil
	}

	c = e.ctl.load()
	if !isRunning(c) {
		return e.reject(t)
	}
	return fmt.Errorf("%w: %s could not accept task", ErrRejected, e.name)
}

func (e *Executor) reject(t *task) error {
	if e.metrics != nil {
		e.metrics.rejectedTotal.Inc()
	}
	e.logger.Warn("task rejected", zap.String("pool", e.name))
	e.mu.Lock()
	policy := e.rejectPolicy
	e.mu.Unlock()
	return policy.Reject(t, e)
}

// nextTaskID names each task "<pool>-<seq>", cheap and ordered and unique
// only within this executor — sufficient here since a Future is handed
// back to the same submitter that owns the id. The scheduled variant's
// entries (scheduled.go) use github.com/google/uuid instead, since
// Cancel needs an identity a caller can hold onto independent of
// submission order.
func (e *Executor) nextTaskID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.taskID
	e.taskID++
	return fmt.Sprintf("%s-%d", e.name, id)
}

func (e *Executor) totalQueued() int {
	e.mu.Lock()
	qs := append([]*blockingQueue(nil), e.queues...)
	e.mu.Unlock()

	total := 0
	for _, q := range qs {
		total += q.size()
	}
	return total
}
