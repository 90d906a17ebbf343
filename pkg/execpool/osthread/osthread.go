// Package osthread provides the thread-naming and liveness-probing OS
// bindings that the executor core treats as an external collaborator
// (spec §1): setting/getting the current OS thread's name, and checking
// whether a given thread id is still alive via a signal-0 probe.
//
// These are best-effort. On platforms without a native equivalent, every
// function degrades to a no-op that returns a zero value and a nil error
// (except Gettid, which returns -1, and IsAlive, which answers an
// optimistic "yes") rather than failing the caller.
package osthread

// SetCurrentThreadName sets the calling OS thread's name. The caller must
// have pinned the calling goroutine to its OS thread with
// runtime.LockOSThread before calling this, or the name may end up applied
// to a different thread the next time the Go scheduler reschedules the
// goroutine.
func SetCurrentThreadName(name string) error {
	return setCurrentThreadName(name)
}

// CurrentThreadName returns the calling OS thread's name, or "" where
// unsupported.
func CurrentThreadName() (string, error) {
	return currentThreadName()
}

// Gettid returns the calling OS thread's native id, or -1 where
// unsupported.
func Gettid() int {
	return gettid()
}

// IsAlive reports whether the OS thread with the given native id is still
// alive, probed via signal 0 (the classic "is this pid/tid valid" check).
// Where unsupported, it always reports true — the probe is advisory, never
// load-bearing for correctness.
func IsAlive(tid int) bool {
	return isAlive(tid)
}
