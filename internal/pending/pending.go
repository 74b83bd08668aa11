// Package pending implements the response-parking map: MessageID ->
// *task.Message, guarded by a lock. A TX_RX message is parked before its
// bytes are written to the socket and removed when the receiver matches
// an inbound frame to it.
package pending

import (
	"sync"

	"github.com/gpulayers/device-comms/internal/task"
)

// Map is a thread-safe MessageID -> *task.Message parking table.
type Map struct {
	mu      sync.Mutex
	entries map[uint64]*task.Message
}

// New returns an empty parking map.
func New() *Map {
	return &Map{entries: make(map[uint64]*task.Message)}
}

// Park inserts a TX_RX message keyed by its id. Must be called before the
// message's bytes are written to the socket.
func (m *Map) Park(msg *task.Message) {
	m.mu.Lock()
	m.entries[msg.ID] = msg
	m.mu.Unlock()
}

// Take removes and returns the message parked under id, if any.
func (m *Map) Take(id uint64) (*task.Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.entries[id]
	if ok {
		delete(m.entries, id)
	}
	return msg, ok
}

// Len reports the number of currently parked messages. Used only for
// metrics/diagnostics; racy by nature of the domain.
func (m *Map) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
