// Package transmitter implements the transmitter worker: it
// drains the FIFO queue, parks TX_RX messages before writing, serialises
// each message as header+payload, and wakes TX callers once their bytes
// have left the process.
package transmitter

import (
	"sync"

	"github.com/gpulayers/device-comms/internal/logging"
	"github.com/gpulayers/device-comms/internal/metrics"
	"github.com/gpulayers/device-comms/internal/pending"
	"github.com/gpulayers/device-comms/internal/protocol"
	"github.com/gpulayers/device-comms/internal/queue"
	"github.com/gpulayers/device-comms/internal/task"
	"github.com/gpulayers/device-comms/internal/transport"
)

// Transmitter owns the one transmit goroutine for a connection.
type Transmitter struct {
	conn    *transport.Conn
	q       *queue.Queue
	parking *pending.Map

	stopRequested bool
	stopMu        sync.Mutex

	wg sync.WaitGroup
}

// New starts the transmitter's worker goroutine.
func New(conn *transport.Conn, q *queue.Queue, parking *pending.Map) *Transmitter {
	t := &Transmitter{conn: conn, q: q, parking: parking}
	t.wg.Add(1)
	go t.run()
	return t
}

func (t *Transmitter) stopping() bool {
	t.stopMu.Lock()
	defer t.stopMu.Unlock()
	return t.stopRequested
}

func (t *Transmitter) run() {
	defer t.wg.Done()
	for !t.stopping() || !t.q.IsEmpty() {
		msg := t.q.Get()

		if msg.Kind == protocol.KindStop {
			continue
		}

		if msg.Kind == protocol.KindTXRX {
			t.parking.Park(msg)
		}

		t.send(msg)

		if msg.Kind == protocol.KindTX {
			msg.Notify()
		}
	}
}

// send serialises one message's header and payload onto the wire. A
// failed or partial write still counts as "sent": there is no retry at
// this layer, and TX callers are still woken so they never deadlock on a
// dead link.
func (t *Transmitter) send(msg *task.Message) {
	hdr, err := protocol.Encode(protocol.Header{
		Kind:        msg.Kind,
		Endpoint:    msg.Endpoint,
		ID:          msg.ID,
		PayloadSize: uint32(len(msg.OutPayload)),
	})
	if err != nil {
		logging.L().Error("transmitter_encode_failed", "error", err)
		return
	}
	if err := t.conn.SendAll(hdr[:]); err != nil {
		metrics.IncTXError()
		logging.L().Error("transmitter_send_header_failed", "error", err)
		return
	}
	if len(msg.OutPayload) > 0 {
		if err := t.conn.SendAll(msg.OutPayload); err != nil {
			metrics.IncTXError()
			logging.L().Error("transmitter_send_payload_failed", "error", err)
			return
		}
	}
	metrics.IncFramesSent()
}

// Stop requests shutdown, enqueues a STOP sentinel so a blocked Get()
// returns even on an empty queue, and waits for the worker to flush any
// already-queued real messages and exit.
func (t *Transmitter) Stop() {
	t.stopMu.Lock()
	t.stopRequested = true
	t.stopMu.Unlock()

	stopMsg := task.New(0, protocol.KindStop, 0, nil)
	t.q.Put(stopMsg)

	t.wg.Wait()
}
