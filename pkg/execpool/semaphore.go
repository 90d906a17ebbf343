package execpool

import (
	"sync"
	"time"
)

// waitOutcome is the result of a timedWait call on countingSemaphore.
type waitOutcome int

const (
	acquired waitOutcome = iota
	timedOut
)

// countingSemaphore is the post/wait primitive (C2) the scheduled executor
// uses to coordinate its timer heap with its dispatcher worker: post()
// after pushing a task onto the heap, wait() before popping.
//
// No third-party counting semaphore in the reference corpus exposes a
// timed wait alongside plain post/wait/try-wait on a single object
// (golang.org/x/sync/semaphore.Weighted's Acquire takes a context but has
// no bounded-duration convenience, and its "weighted" model doesn't match
// a simple counter), so this is hand-rolled on sync.Cond the same way
// blockingQueue is — the stdlib is the right tool here, not a
// concession.
type countingSemaphore struct {
	mu      sync.Mutex
	cond    *sync.Cond
	permits int
}

func newCountingSemaphore() *countingSemaphore {
	s := &countingSemaphore{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// post increments the permit count and wakes exactly one waiter.
func (s *countingSemaphore) post() {
	s.mu.Lock()
	s.permits++
	s.mu.Unlock()
	s.cond.Signal()
}

// wait blocks until a permit is available, then consumes one.
func (s *countingSemaphore) wait() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.permits == 0 {
		s.cond.Wait()
	}
	s.permits--
}

// tryWait consumes a permit without blocking if one is immediately
// available.
func (s *countingSemaphore) tryWait() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.permits == 0 {
		return false
	}
	s.permits--
	return true
}

// timedWait blocks until a permit is available or the duration elapses.
// sync.Cond has no native timeout, so a watchdog goroutine broadcasts once
// the deadline passes; it is harmless if it fires after the real waiter
// already consumed a permit and left.
func (s *countingSemaphore) timedWait(d time.Duration) waitOutcome {
	deadline := time.Now().Add(d)

	timer := time.AfterFunc(d, s.cond.Broadcast)
	defer timer.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	for s.permits == 0 {
		if !time.Now().Before(deadline) {
			return timedOut
		}
		s.cond.Wait()
	}
	s.permits--
	return acquired
}
