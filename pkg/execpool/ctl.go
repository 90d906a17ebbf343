// Package execpool provides a family of in-process worker-pool executors —
// a plain pool, a work-stealing pool, a scheduled/timer pool, and a fixed
// pool — built on one shared lifecycle state machine, submission contract,
// and shutdown protocol.
//
// The hard part, and the subject of this package, is the shared executor
// core: an atomically updated control word that packs run-state and worker
// count into a single 32-bit integer, a per-worker-queue dispatch
// discipline, the addWorker fast/slow path, managed worker lifetimes, work
// stealing between adjacent queues, time-ordered dispatch for the scheduled
// variant, and a monotone shutdown protocol that joins every worker before
// declaring the pool terminated.
//
// Workers are real OS threads, pinned with runtime.LockOSThread, that block
// when their queue is empty — there is no cooperative suspension, no
// priority scheduling, and no persistence. Fairness across workers is
// best-effort only.
package execpool

import "go.uber.org/atomic"

// runState occupies the high 3 bits of ctl, stored pre-shifted so that the
// masked control word can be compared directly against these constants —
// numerically increasing values track the lifecycle, mirroring the packed
// encoding the original thread pool used.
type runState = int32

const (
	countBits = 29
	// capacity is the largest representable worker count, 2^29 - 1.
	capacity     = int32(1)<<countBits - 1
	runStateMask = ^capacity

	running    runState = -1 << countBits
	shutdown   runState = 0 << countBits
	stop       runState = 1 << countBits
	tidying    runState = 2 << countBits
	terminated runState = 3 << countBits
)

func runStateName(rs runState) string {
	switch rs {
	case running:
		return "RUNNING"
	case shutdown:
		return "SHUTDOWN"
	case stop:
		return "STOP"
	case tidying:
		return "TIDYING"
	case terminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}

// ctlOf packs a run-state and worker-count pair into the control word's
// wire format: run-state in the high 3 bits, worker count in the low 29.
func ctlOf(rs runState, wc int32) int32 {
	return rs | (wc & capacity)
}

func runStateOf(c int32) runState {
	return c & runStateMask
}

func workerCountOf(c int32) int32 {
	return c & capacity
}

func runStateLessThan(c int32, s runState) bool {
	return runStateOf(c) < s
}

func runStateAtLeast(c int32, s runState) bool {
	return runStateOf(c) >= s
}

func isRunning(c int32) bool {
	return runStateOf(c) == running
}

// control is the atomically updated 32-bit integer described in spec §3:
// high 3 bits run-state, low 29 bits worker count. All transitions go
// through compare-and-swap; run-state only ever increases and worker-count
// is only ever changed via CAS, never a plain store, except when resetting
// to 0 alongside a run-state advance (the shutdown path's terminal
// transitions, which happen only after worker-count is already 0).
type control struct {
	word atomic.Int32
}

func newControl(rs runState, wc int32) *control {
	c := &control{}
	c.word.Store(ctlOf(rs, wc))
	return c
}

func (c *control) load() int32 {
	return c.word.Load()
}

// compareAndIncrementWorkerCount attempts wc+1 against the snapshot cur.
// Returns false if the word changed underneath (run-state changed too, or
// another worker claim/release raced in) — callers must re-read and retry.
func (c *control) compareAndIncrementWorkerCount(cur int32) bool {
	return c.word.CAS(cur, cur+1)
}

// decrementWorkerCount spins until a decrement succeeds against whatever
// the current word happens to be; used by the release and stop paths after
// they have joined a worker (without holding the executor mutex), so a
// concurrent claim or run-state advance only costs a retry.
func (c *control) decrementWorkerCount() {
	for {
		cur := c.word.Load()
		if c.word.CAS(cur, cur-1) {
			return
		}
	}
}

// advance is the monotone, idempotent lifecycle transition described in
// spec §4.5.6: a no-op if already at or past target, otherwise a CAS of
// the run-state component, preserving whatever worker count currently
// holds.
func (c *control) advance(target runState) {
	for {
		cur := c.word.Load()
		if runStateAtLeast(cur, target) {
			return
		}
		if c.word.CAS(cur, ctlOf(target, workerCountOf(cur))) {
			return
		}
	}
}

// compareAndSetZero is used for the STOP -> TIDYING transition, which only
// succeeds once worker-count has already reached zero under the STOP
// state; TIDYING -> TERMINATED then goes through advance.
func (c *control) compareAndSetZero(from, to runState) bool {
	return c.word.CAS(ctlOf(from, 0), ctlOf(to, 0))
}
