//go:build linux

package osthread

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// maxThreadNameLen is Linux's PR_SET_NAME / pthread_setname_np limit,
// including the trailing NUL.
const maxThreadNameLen = 16

func setCurrentThreadName(name string) error {
	if len(name) >= maxThreadNameLen {
		name = name[:maxThreadNameLen-1]
	}
	buf := make([]byte, len(name)+1)
	copy(buf, name)
	return unix.Prctl(unix.PR_SET_NAME, uintptr(unsafe.Pointer(&buf[0])), 0, 0, 0)
}

func currentThreadName() (string, error) {
	buf := make([]byte, maxThreadNameLen)
	if err := unix.Prctl(unix.PR_GET_NAME, uintptr(unsafe.Pointer(&buf[0])), 0, 0, 0); err != nil {
		return "", err
	}
	n := 0
	for n < len(buf) && buf[n] != 0 {
		n++
	}
	return string(buf[:n]), nil
}

func gettid() int {
	return unix.Gettid()
}

func isAlive(tid int) bool {
	if tid <= 0 {
		return false
	}
	pid := unix.Getpid()
	// Signal 0 performs no actual delivery: ESRCH means the thread is
	// gone, any other outcome (including nil) means it is still there.
	err := unix.Tgkill(pid, tid, 0)
	return err != unix.ESRCH
}
