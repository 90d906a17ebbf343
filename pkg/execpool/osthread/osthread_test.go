package osthread

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAndGetCurrentThreadName(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	require.NoError(t, SetCurrentThreadName("execpool-test"))

	got, err := CurrentThreadName()
	require.NoError(t, err)
	if runtime.GOOS == "linux" {
		assert.Equal(t, "execpool-test", got)
	}
}

func TestGettidAndIsAlive(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	tid := Gettid()
	if runtime.GOOS == "linux" {
		assert.Greater(t, tid, 0)
		assert.True(t, IsAlive(tid))
		assert.False(t, IsAlive(0))
	} else {
		assert.Equal(t, -1, tid)
		assert.True(t, IsAlive(tid))
	}
}

func TestSetCurrentThreadNameTruncatesLongNames(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	require.NoError(t, SetCurrentThreadName("a-name-much-longer-than-sixteen-bytes"))
}
