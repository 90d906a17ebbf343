package execpool

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coreexec/execpool/pkg/execpool/osthread"
)

// worker is the managed OS thread described in spec §4.4 (C4): it owns one
// goroutine pinned to one OS thread, tracks idleness and last-active time,
// and runs a supplied body until that body returns. A worker is never
// reborn after its body returns — the executor always spawns a fresh
// worker to replace one that exited.
type worker struct {
	index    int
	name     string
	idle     atomic.Bool
	lastActive atomic.Int64 // unix nanos
	tid      atomic.Int64  // native OS thread id, -1 once exited

	startOnce sync.Once
	started   bool
	done      chan struct{}
}

func newWorker(index int, name string) *worker {
	w := &worker{index: index, name: name, done: make(chan struct{})}
	w.tid.Store(-1)
	w.idle.Store(true)
	return w
}

// start launches the body on a new, OS-thread-pinned goroutine. Calling
// start a second time on the same worker is a programming error — spec §9
// notes the original Thread::start() throws in that case; here it panics,
// since it can only happen from a bug in this package's own addWorker
// path, never from caller input.
func (w *worker) start(body func()) {
	started := false
	w.startOnce.Do(func() {
		started = true
		w.started = true
		go w.run(body)
	})
	if !started {
		panic(fmt.Sprintf("execpool: worker %d already started", w.index))
	}
}

// run is the prelude/epilogue wrapper described in spec §4.4: it names the
// thread, records tid, marks non-idle, runs body, then always restores
// idle=true and clears tid, even if body panics (a worker loop body should
// never itself panic — task panics are contained in task.run — but the
// epilogue is unconditional defense regardless).
func (w *worker) run(body func()) {
	defer close(w.done)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	_ = osthread.SetCurrentThreadName(w.name)
	w.tid.Store(int64(osthread.Gettid()))
	w.idle.Store(false)
	w.lastActive.Store(time.Now().UnixNano())

	defer func() {
		w.idle.Store(true)
		w.tid.Store(-1)
	}()

	body()
}

// join blocks until the body returns.
func (w *worker) join() {
	<-w.done
}

// detach releases ownership of the worker without waiting for its body to
// return — spec §4.4's other required sibling of join(). Nothing in this
// package's own shutdown/stop/release paths calls it (they always want to
// know a worker has actually finished before reporting termination), but a
// caller that only needs to stop tracking a worker handle without blocking
// the current goroutine has it available.
func (w *worker) detach() {
}

// markBusy/markIdle bracket a single task execution, keeping the idle
// flag and last-active timestamp current for get_active_count() and
// idle-release decisions.
func (w *worker) markBusy() {
	w.idle.Store(false)
	w.lastActive.Store(time.Now().UnixNano())
}

func (w *worker) markIdle() {
	w.idle.Store(true)
	w.lastActive.Store(time.Now().UnixNano())
}

func (w *worker) isIdle() bool {
	return w.idle.Load()
}

// isRunning probes liveness via the OS thread-naming collaborator's
// signal-0 check (spec §4.4) — best-effort, never load-bearing: the
// authoritative signal that a worker is gone is its done channel closing.
func (w *worker) isRunning() bool {
	tid := w.tid.Load()
	if tid < 0 {
		return false
	}
	return osthread.IsAlive(int(tid))
}

func (w *worker) lastActiveTime() time.Time {
	return time.Unix(0, w.lastActive.Load())
}

func (w *worker) getTid() int {
	return int(w.tid.Load())
}
