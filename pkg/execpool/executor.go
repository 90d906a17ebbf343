package execpool

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Executor is the shared core (C5) behind every variant this package
// exposes: a plain pool (NewPool), a work-stealing pool
// (NewWorkStealingPool), and a fixed pool (NewFixedPool). All three share
// the control word, queue-array dispatch discipline, worker lifetime
// management, and shutdown protocol described in spec §4.5; they differ
// only in the steal flag consulted by the worker loop (§4.6).
type Executor struct {
	name string

	coreSize int32
	maxSize  int32
	steal    bool

	ctl *control

	// mu guards queues, workers, and rejectPolicy — the executor-level
	// mutex of spec §5, never held while executing a task, joining a
	// worker, or sleeping. Lock order is always mu before any
	// individual queue's own mutex, never the reverse.
	mu      sync.Mutex
	queues  []*blockingQueue
	workers []*worker

	// dispatchMu/dispatchCond form the pool-wide "not empty" signal
	// (mirroring the original's single notEmpty_ condvar): every
	// routed put broadcasts here so a work-stealing worker blocked on
	// its own empty queue wakes when a *neighbor's* queue receives
	// work, not only its own.
	dispatchMu   sync.Mutex
	dispatchCond *sync.Cond

	submitID     int64 // round-robin routing cursor, accessed only under mu
	taskID       int64 // monotonic task id counter, accessed only under mu
	everPoolSize int32 // accessed only under mu

	keepNonCoreAlive boolFlag

	rejectPolicy RejectionPolicy

	logger  *zap.Logger
	metrics *poolMetrics
}

// boolFlag is a tiny CAS-free atomic-ish bool backed by a mutex-free
// pattern isn't needed here; kept as a named type purely so call sites
// read as e.keepNonCoreAlive.get() / .set(v) rather than bare bools
// guarded ad hoc.
type boolFlag struct {
	mu sync.RWMutex
	v  bool
}

func (b *boolFlag) get() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.v
}

func (b *boolFlag) set(v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.v = v
}

// newExecutor validates the (core_size, max_size) bounds from spec
// §4.5.1 and builds an Executor with no workers spawned yet — callers use
// PreStartCoreThreads or let the first submission spawn them lazily.
func newExecutor(opts Options, steal bool) (*Executor, error) {
	core, max := int32(opts.CoreSize), int32(opts.MaxSize)
	if core < 0 || max < 1 || max < core {
		return nil, fmt.Errorf("%w: core=%d max=%d (need 0<=core<=max, max>=1)", ErrBadConstruction, core, max)
	}

	name := opts.NamePrefix
	if name == "" {
		name = "execpool-" + uuid.NewString()[:8]
	}

	e := &Executor{
		name:         name,
		coreSize:     core,
		maxSize:      max,
		steal:        steal,
		ctl:          newControl(running, 0),
		rejectPolicy: opts.rejectPolicy(),
		logger:       opts.logger(),
	}
	e.dispatchCond = sync.NewCond(&e.dispatchMu)
	e.keepNonCoreAlive.set(true)

	if opts.Registerer != nil {
		m, err := newPoolMetrics(opts.Registerer, name)
		if err != nil {
			return nil, fmt.Errorf("execpool: registering metrics: %w", err)
		}
		e.metrics = m
	}

	return e, nil
}

// NewPool constructs the plain executor variant: round-robin dispatch
// across per-worker queues, no stealing.
func NewPool(opts Options) (*Executor, error) {
	return newExecutor(opts, false)
}

// NewWorkStealingPool constructs the work-stealing variant (C6): workers
// additionally probe their one adjacent neighbor's queue when their own is
// empty.
func NewWorkStealingPool(opts Options) (*Executor, error) {
	return newExecutor(opts, true)
}

// NewFixedPool constructs the fixed variant: core_size == max_size, so
// there are never any non-core workers to release. It is not a distinct
// implementation (spec §9) — just this constructor entry point over the
// same core.
func NewFixedPool(size int, namePrefix string, extra Options) (*Executor, error) {
	opts := extra
	opts.CoreSize = size
	opts.MaxSize = size
	opts.NamePrefix = namePrefix
	return newExecutor(opts, false)
}

func (e *Executor) queueCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queues)
}

func (e *Executor) queueAt(idx int) *blockingQueue {
	e.mu.Lock()
	defer e.mu.Unlock()
	if idx < 0 || idx >= len(e.queues) {
		return nil
	}
	return e.queues[idx]
}

func (e *Executor) neighborQueue(idx int) *blockingQueue {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := len(e.queues)
	if n == 0 {
		return nil
	}
	return e.queues[(idx+1)%n]
}

func (e *Executor) wakeDispatcher() {
	e.dispatchMu.Lock()
	e.dispatchMu.Unlock()
	e.dispatchCond.Broadcast()
}
