package pending

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gpulayers/device-comms/internal/protocol"
	"github.com/gpulayers/device-comms/internal/task"
)

func TestParkAndTake(t *testing.T) {
	m := New()
	msg := task.New(1, protocol.KindTXRX, 42, nil)
	m.Park(msg)
	assert.Equal(t, 1, m.Len())

	got, ok := m.Take(42)
	assert.True(t, ok)
	assert.Same(t, msg, got)
	assert.Equal(t, 0, m.Len())
}

func TestTakeUnknownID(t *testing.T) {
	m := New()
	_, ok := m.Take(99)
	assert.False(t, ok)
}

func TestTakeIsSingleShot(t *testing.T) {
	m := New()
	msg := task.New(1, protocol.KindTXRX, 1, nil)
	m.Park(msg)

	_, ok := m.Take(1)
	assert.True(t, ok)

	_, ok = m.Take(1)
	assert.False(t, ok, "a second Take for the same id must fail")
}

func TestLenReflectsMultipleEntries(t *testing.T) {
	m := New()
	for i := uint64(1); i <= 5; i++ {
		m.Park(task.New(0, protocol.KindTXRX, i, nil))
	}
	assert.Equal(t, 5, m.Len())
	m.Take(3)
	assert.Equal(t, 4, m.Len())
}
