package execpool

import "github.com/pkg/errors"

// Error kinds, per spec §7. These are sentinel causes created with
// github.com/pkg/errors and wrapped with fmt.Errorf's %w at the sites that
// return them — construction and rejection, both synchronous boundaries a
// caller is expected to branch on with errors.Is.
var (
	// ErrBadConstruction is wrapped when a constructor's parameter
	// bounds are violated (spec §4.5.1).
	ErrBadConstruction = errors.New("execpool: invalid executor construction parameters")

	// ErrRejected is wrapped when a task cannot be accepted because
	// run-state has advanced past RUNNING, or a custom RejectionPolicy
	// chose to fail (spec §7, kind 2).
	ErrRejected = errors.New("execpool: task rejected")

	// ErrWorkerStartFailed names the worker-start failure kind (spec §7,
	// kind 5). No code path in this package returns it: starting a
	// goroutine cannot fail the way the original pthread_create could.
	ErrWorkerStartFailed = errors.New("execpool: worker failed to start")
)
