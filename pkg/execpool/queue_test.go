package execpool

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockingQueueFIFOOrder(t *testing.T) {
	q := newBlockingQueue()
	t1 := newBareTask("a", func() error { return nil })
	t2 := newBareTask("b", func() error { return nil })
	q.put(t1)
	q.put(t2)

	assert.Equal(t, 2, q.size())

	got, ok := q.tryPop()
	require.True(t, ok)
	assert.Equal(t, "a", got.id)

	got, ok = q.tryPop()
	require.True(t, ok)
	assert.Equal(t, "b", got.id)

	_, ok = q.tryPop()
	assert.False(t, ok)
}

func TestBlockingQueueTakeBlocksUntilPut(t *testing.T) {
	q := newBlockingQueue()
	done := make(chan *task, 1)

	go func() {
		tk, ok := q.take(func() bool { return false })
		if ok {
			done <- tk
		}
	}()

	time.Sleep(10 * time.Millisecond) // let the goroutine block on empty
	q.put(newBareTask("x", func() error { return nil }))

	select {
	case got := <-done:
		assert.Equal(t, "x", got.id)
	case <-time.After(time.Second):
		t.Fatal("take never observed the put")
	}
}

func TestBlockingQueueTakeStopsWaiting(t *testing.T) {
	q := newBlockingQueue()
	stop := false
	var mu sync.Mutex

	result := make(chan bool, 1)
	go func() {
		_, ok := q.take(func() bool {
			mu.Lock()
			defer mu.Unlock()
			return stop
		})
		result <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	mu.Lock()
	stop = true
	mu.Unlock()
	q.wake()

	select {
	case ok := <-result:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("take never observed stopWaiting")
	}
}

func TestBlockingQueueIsEmpty(t *testing.T) {
	q := newBlockingQueue()
	assert.True(t, q.isEmpty())
	q.put(newBareTask("a", func() error { return nil }))
	assert.False(t, q.isEmpty())
}
