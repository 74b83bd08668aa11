package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/gpulayers/device-comms/internal/protocol"
	"github.com/gpulayers/device-comms/internal/task"
)

func TestQueueFIFOOrder(t *testing.T) {
	q := New()
	m1 := task.New(1, protocol.KindTXAsync, 0, nil)
	m2 := task.New(2, protocol.KindTXAsync, 0, nil)
	m3 := task.New(3, protocol.KindTXAsync, 0, nil)

	q.Put(m1)
	q.Put(m2)
	q.Put(m3)

	assert.Same(t, m1, q.Get())
	assert.Same(t, m2, q.Get())
	assert.Same(t, m3, q.Get())
}

func TestQueueGetBlocksUntilPut(t *testing.T) {
	q := New()
	got := make(chan *task.Message, 1)
	go func() { got <- q.Get() }()

	select {
	case <-got:
		t.Fatal("Get returned before any Put")
	case <-time.After(20 * time.Millisecond):
	}

	m := task.New(0, protocol.KindTXAsync, 0, nil)
	q.Put(m)

	select {
	case g := <-got:
		assert.Same(t, m, g)
	case <-time.After(time.Second):
		t.Fatal("Get did not unblock after Put")
	}
}

func TestQueueIsEmpty(t *testing.T) {
	q := New()
	assert.True(t, q.IsEmpty())
	q.Put(task.New(0, protocol.KindTXAsync, 0, nil))
	assert.False(t, q.IsEmpty())
	q.Get()
	assert.True(t, q.IsEmpty())
}

func TestQueueLen(t *testing.T) {
	q := New()
	assert.Equal(t, 0, q.Len())
	q.Put(task.New(0, protocol.KindTXAsync, 0, nil))
	q.Put(task.New(0, protocol.KindTXAsync, 0, nil))
	assert.Equal(t, 2, q.Len())
	q.Get()
	assert.Equal(t, 1, q.Len())
}

func TestQueuePutNeverBlocks(t *testing.T) {
	q := New()
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			q.Put(task.New(0, protocol.KindTXAsync, 0, nil))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Put blocked with no consumer")
	}
}
