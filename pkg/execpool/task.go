package execpool

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrBrokenFuture is returned by Future.Get when the task behind it was
// discarded (pool stopped, queue abandoned) before it ever ran.
var ErrBrokenFuture = errors.New("execpool: broken future: task was never fulfilled")

// task is the polymorphic one-shot callable described in spec §4.3 (C3).
// It is constructed by the submitter, transferred onto exactly one queue,
// invoked at most once, then discarded. A task is never shared across
// queues — only the shared-ownership case (bulk execute of a pre-built
// queue) reuses the same *task value across a move rather than a copy.
type task struct {
	id string
	// fn is the bare callable form: no result, errors are only logged.
	fn func() error
	// call is the future-carrying form: produces a value or error that
	// is published on resultCh. Exactly one of fn/call is set.
	call func() (interface{}, error)

	resultCh chan Result
	ran      bool
}

// Result is published on a future-carrying task's result channel after it
// runs: either Value is populated, or Err explains the failure.
type Result struct {
	Value interface{}
	Err   error
}

// Future is the consumer end of a task's result channel, returned by
// Submit. It mirrors a single-producer/single-consumer rendezvous: exactly
// one Result (or a broken-future error) is ever delivered.
type Future struct {
	ch  chan Result
	got bool
	res Result
}

// Get blocks until the task has run and returns its value or error. A
// second call to Get returns the same cached result without blocking
// again.
func (f *Future) Get() (interface{}, error) {
	if f.got {
		return f.res.Value, f.res.Err
	}
	res, ok := <-f.ch
	if !ok {
		res = Result{Err: ErrBrokenFuture}
	}
	f.got = true
	f.res = res
	return res.Value, res.Err
}

// newBareTask wraps a nullary callable with no result (spec §4.3 "bare"
// construction).
func newBareTask(id string, fn func() error) *task {
	return &task{id: id, fn: fn}
}

// newFutureTask wraps a callable returning a value, bound to a one-shot
// result channel whose consumer end is handed back as a Future (spec §4.3
// "future-carrying" construction).
func newFutureTask(id string, call func() (interface{}, error)) (*task, *Future) {
	ch := make(chan Result, 1)
	t := &task{id: id, call: call, resultCh: ch}
	return t, &Future{ch: ch}
}

// run invokes the inner callable at most once; a second invocation is a
// no-op, per the task handle's invocation contract. Panics are recovered
// and converted into a task failure (spec §7, kind 3) so a misbehaving
// callable can never take a worker, let alone the pool, down with it.
func (t *task) run() (err error) {
	if t.ran {
		return nil
	}
	t.ran = true

	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("execpool: task %s panicked: %v", t.id, r)
			if t.resultCh != nil {
				t.resultCh <- Result{Err: err}
				close(t.resultCh)
			}
		}
	}()

	switch {
	case t.call != nil:
		val, callErr := t.call()
		t.resultCh <- Result{Value: val, Err: callErr}
		close(t.resultCh)
		return callErr
	case t.fn != nil:
		return t.fn()
	default:
		return fmt.Errorf("execpool: task %s has neither callable form set", t.id)
	}
}
