// Package receiver implements the receiver worker: it reads
// header+payload frames off the wire, looks up the parked message by id,
// and wakes its caller with the response payload. Any short read (EOF,
// error, or a shutdown interrupt on the self-pipe) ends the loop; any
// messages still parked at that point are never woken — callers are
// expected to tear down only after their own operations have returned.
package receiver

import (
	"sync"

	"github.com/gpulayers/device-comms/internal/logging"
	"github.com/gpulayers/device-comms/internal/metrics"
	"github.com/gpulayers/device-comms/internal/pending"
	"github.com/gpulayers/device-comms/internal/protocol"
	"github.com/gpulayers/device-comms/internal/transport"
)

// Receiver owns the one receive goroutine for a connection.
type Receiver struct {
	conn    *transport.Conn
	parking *pending.Map

	wg sync.WaitGroup
}

// New starts the receiver's worker goroutine.
func New(conn *transport.Conn, parking *pending.Map) *Receiver {
	r := &Receiver{conn: conn, parking: parking}
	r.wg.Add(1)
	go r.run()
	return r
}

func (r *Receiver) run() {
	defer r.wg.Done()
	for {
		var hdrBuf [protocol.HeaderSize]byte
		if !r.conn.RecvAll(hdrBuf[:]) {
			return
		}
		hdr := protocol.Decode(hdrBuf)

		payload := make([]byte, hdr.PayloadSize)
		if hdr.PayloadSize > 0 {
			if !r.conn.RecvAll(payload) {
				return
			}
		}

		metrics.IncFramesReceived()
		r.wake(hdr.ID, payload)
	}
}

func (r *Receiver) wake(id uint64, payload []byte) {
	msg, ok := r.parking.Take(id)
	if !ok {
		metrics.IncUnknownResponseID()
		logging.L().Warn("receiver_unknown_message_id", "id", id)
		return
	}
	msg.InPayload = payload
	msg.Notify()
}

// Stop interrupts any in-flight RecvAll via the connection's self-pipe and
// waits for the worker goroutine to exit.
func (r *Receiver) Stop() {
	r.conn.Interrupt()
	r.wg.Wait()
}
