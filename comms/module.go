// Package comms is the public facade of the device-to-host communications
// core: it owns the socket, the transmitter and receiver workers, the
// outbound FIFO queue, the response-parking map, and the endpoint
// registry, and exposes the client operations encoders call.
package comms

import (
	"sync"
	"sync/atomic"

	"github.com/gpulayers/device-comms/internal/logging"
	"github.com/gpulayers/device-comms/internal/metrics"
	"github.com/gpulayers/device-comms/internal/pending"
	"github.com/gpulayers/device-comms/internal/protocol"
	"github.com/gpulayers/device-comms/internal/queue"
	"github.com/gpulayers/device-comms/internal/receiver"
	"github.com/gpulayers/device-comms/internal/registry"
	"github.com/gpulayers/device-comms/internal/task"
	"github.com/gpulayers/device-comms/internal/transmitter"
	"github.com/gpulayers/device-comms/internal/transport"
)

// NoEndpoint is returned by EndpointID when a service name is absent from
// the registry.
const NoEndpoint = protocol.NoEndpoint

// Module is a single client-side connection to a host tool. Construct with
// NewUDS or NewTCP; release with Close.
type Module struct {
	conn *transport.Conn

	queue       *queue.Queue
	parking     *pending.Map
	reg         *registry.Registry
	regFetchMu  sync.Mutex // serialises the single registry-fetch tx_rx
	nextID      atomic.Uint64
	transmitter *transmitter.Transmitter
	receiver    *receiver.Receiver

	closeOnce sync.Once
}

// NewUDS connects to a host tool over an abstract-namespace UNIX domain
// socket. name excludes the leading NUL (injected internally). On failure
// the Module is returned in a "half-dead" state: IsConnected reports
// false and every send becomes a silent no-op, rather than aborting the
// caller's process.
func NewUDS(name string) (*Module, error) {
	conn, err := transport.DialUDS(name)
	if err != nil {
		return nil, err
	}
	return newModule(conn), nil
}

// NewTCP connects to a host tool over TCP/IPv4.
func NewTCP(host string, port uint16) (*Module, error) {
	conn, err := transport.DialTCP(host, port)
	if err != nil {
		return nil, err
	}
	return newModule(conn), nil
}

func newModule(conn *transport.Conn) *Module {
	m := &Module{
		conn:    conn,
		queue:   queue.New(),
		parking: pending.New(),
		reg:     registry.New(),
	}
	if conn.IsConnected() {
		m.transmitter = transmitter.New(conn, m.queue, m.parking)
		m.receiver = receiver.New(conn, m.parking)
	}
	return m
}

// IsConnected reports whether the underlying socket is valid.
func (m *Module) IsConnected() bool { return m.conn.IsConnected() }

// Close stops the transmitter first (draining any queued messages), then
// the receiver, then closes the socket. Reversing this order risks the
// receiver exiting while the transmitter is still writing, which would
// leak parked TX_RX messages.
func (m *Module) Close() error {
	var err error
	m.closeOnce.Do(func() {
		if m.transmitter != nil {
			m.transmitter.Stop()
		}
		if m.receiver != nil {
			m.receiver.Stop()
		}
		err = m.conn.Close()
	})
	return err
}

// TxAsync enqueues a fire-and-forget message and returns immediately; no
// completion is observed. A no-op on a disconnected Module.
func (m *Module) TxAsync(endpoint uint8, payload []byte) {
	if !m.conn.IsConnected() {
		return
	}
	msg := task.New(endpoint, protocol.KindTXAsync, 0, payload)
	m.enqueue(msg)
}

// Tx enqueues a send-and-wait message and blocks until its bytes have left
// the process. A no-op on a disconnected Module: there is no transmitter
// goroutine to drain the queue, so a disconnected Module must return
// immediately rather than wait on a completion that will never arrive.
func (m *Module) Tx(endpoint uint8, payload []byte) {
	if !m.conn.IsConnected() {
		return
	}
	msg := task.New(endpoint, protocol.KindTX, 0, payload)
	m.enqueue(msg)
	msg.Wait()
}

// TxRx enqueues a request/response message, blocks until a matching
// response arrives, and returns the response payload. Returns nil
// immediately on a disconnected Module.
//
// ID allocation uses an atomic fetch-add with relaxed ordering: the
// subsequent enqueue under the queue's own lock provides the
// happens-before ordering the transmitter and receiver need, since the id
// is fixed before the message becomes observable to those goroutines.
func (m *Module) TxRx(endpoint uint8, payload []byte) []byte {
	if !m.conn.IsConnected() {
		return nil
	}
	id := m.nextID.Add(1)
	msg := task.New(endpoint, protocol.KindTXRX, id, payload)
	m.enqueue(msg)
	msg.Wait()
	return msg.InPayload
}

func (m *Module) enqueue(msg *task.Message) {
	m.queue.Put(msg)
	metrics.SetQueueDepth(m.queue.Len())
	metrics.SetParkedTXRX(m.parking.Len())
}

// EndpointID resolves a service name to its endpoint id. On first call it
// issues a TX_RX to the registry endpoint (0) with an empty payload and
// decodes the response into the registry cache; subsequent calls read only
// from the cache. Returns NoEndpoint if the name is absent.
func (m *Module) EndpointID(name string) uint8 {
	m.ensureRegistryFetched()
	id, ok := m.reg.Lookup(name)
	if !ok {
		metrics.IncRegistryMiss()
		return NoEndpoint
	}
	return id
}

func (m *Module) ensureRegistryFetched() {
	if m.reg.Fetched() {
		return
	}
	m.regFetchMu.Lock()
	defer m.regFetchMu.Unlock()
	if m.reg.Fetched() {
		return
	}
	resp := m.TxRx(protocol.RegistryEndpoint, nil)
	protocol.ReadRegistryRecords(resp, func(name string, id uint8) {
		m.reg.Set(name, id)
	})
	m.reg.MarkFetched()
	if !m.conn.IsConnected() {
		logging.L().Warn("registry_fetch_skipped", "reason", "not connected")
	}
}
