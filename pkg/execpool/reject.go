package execpool

import (
	"context"
	"fmt"

	"github.com/coreexec/execpool/pkg/resilience"
)

// RejectionPolicy is the pluggable strategy (C8) invoked when a task
// cannot be accepted: run-state has advanced past RUNNING, or (for the
// circuit-breaker-backed policy below) the policy itself decides the pool
// is unhealthy enough to shed load early. A replacement may silently drop,
// route elsewhere, or run the task on the caller — the default surfaces a
// failure naming the pool's state, mirroring the original AbortPolicy.
type RejectionPolicy interface {
	Reject(t *task, e *Executor) error
}

// AbortPolicy is the default RejectionPolicy: it always fails, naming the
// pool's non-running state, and never runs or re-routes the task.
type AbortPolicy struct{}

func (AbortPolicy) Reject(t *task, e *Executor) error {
	return fmt.Errorf("%w: %s is not running (state=%s)", ErrRejected, e.name, runStateName(runStateOf(e.ctl.load())))
}

// DiscardPolicy silently drops the task and reports no error — useful when
// a caller has already decided lost tasks under shutdown are acceptable.
type DiscardPolicy struct{}

func (DiscardPolicy) Reject(t *task, e *Executor) error {
	return nil
}

// CallerRunsPolicy executes the rejected task synchronously on the
// submitting goroutine instead of on a pool worker — the classic
// backpressure policy: a saturated pool slows its callers down rather
// than dropping work.
type CallerRunsPolicy struct{}

func (CallerRunsPolicy) Reject(t *task, e *Executor) error {
	return t.run()
}

// CircuitBreakerRejectionPolicy adapts pkg/resilience.CircuitBreaker, a
// general-purpose trip/half-open/close breaker originally written for
// guarding outbound network calls, into a RejectionPolicy: instead of
// unconditionally failing every submission once the pool has stopped
// accepting core-routed work, it trips open after a run of rejections and
// fails fast without even touching the underlying AbortPolicy, then
// half-opens to probe recovery — the same state machine, repurposed here
// to decide how aggressively to complain about a struggling executor.
type CircuitBreakerRejectionPolicy struct {
	breaker *resilience.CircuitBreaker
	fallback RejectionPolicy
}

// NewCircuitBreakerRejectionPolicy wraps fallback (the policy that runs
// when the breaker is closed or half-open) with circuit-breaker
// protection so that a burst of rejections doesn't re-derive the same
// "why" string on every single call under heavy overload.
func NewCircuitBreakerRejectionPolicy(name string, fallback RejectionPolicy) *CircuitBreakerRejectionPolicy {
	if fallback == nil {
		fallback = AbortPolicy{}
	}
	return &CircuitBreakerRejectionPolicy{
		breaker:  resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig(name)),
		fallback: fallback,
	}
}

func (p *CircuitBreakerRejectionPolicy) Reject(t *task, e *Executor) error {
	var fallbackErr error
	err := p.breaker.Execute(context.Background(), func(context.Context) error {
		fallbackErr = p.fallback.Reject(t, e)
		return fallbackErr
	})
	if err != nil && fallbackErr == nil {
		// The breaker itself is open and short-circuited the call
		// before the fallback ran.
		return fmt.Errorf("%w: %s circuit open: %v", ErrRejected, e.name, err)
	}
	return fallbackErr
}
