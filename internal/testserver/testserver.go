// Package testserver implements the reference test server collaborator:
// it accepts one connection, records every received (endpoint, kind,
// payload), and echoes TX_RX payloads back byte-reversed, reusing the
// request's own header so the response id matches.
package testserver

import (
	"sync"

	"github.com/gpulayers/device-comms/internal/protocol"
	"github.com/gpulayers/device-comms/internal/transport"
)

// Received is one message recorded by the server.
type Received struct {
	Endpoint uint8
	Kind     protocol.Kind
	Payload  []byte
}

// Server is a minimal single-connection test collaborator; it is not part
// of the client-facing API and exists only to support tests.
type Server struct {
	listener *transport.Listener

	mu       sync.Mutex
	received []Received
	conn     *transport.Conn // accepted connection, nil until Accept returns
	stopped  bool

	wg sync.WaitGroup
}

// ListenUDS starts a server bound to an abstract-namespace UNIX domain
// socket.
func ListenUDS(name string) (*Server, error) {
	ln, err := transport.ListenUDS(name)
	if err != nil {
		return nil, err
	}
	return newServer(ln), nil
}

// ListenTCP starts a server bound to 0.0.0.0:port (port 0 picks a free
// port).
func ListenTCP(port int) (*Server, error) {
	ln, err := transport.ListenTCP(port)
	if err != nil {
		return nil, err
	}
	return newServer(ln), nil
}

func newServer(ln *transport.Listener) *Server {
	s := &Server{listener: ln}
	s.wg.Add(1)
	go s.run()
	return s
}

// Addr returns the bound local TCP address. Only meaningful for ListenTCP.
func (s *Server) Addr() (string, error) {
	addr, err := s.listener.Addr()
	if err != nil {
		return "", err
	}
	return addr.String(), nil
}

func (s *Server) run() {
	defer s.wg.Done()
	conn, err := s.listener.Accept()
	if err != nil {
		return
	}
	s.mu.Lock()
	s.conn = conn
	stopped := s.stopped
	s.mu.Unlock()
	defer func() { s.mu.Lock(); _ = conn.Close(); s.mu.Unlock() }()
	if stopped {
		return
	}

	for {
		var hdrBuf [protocol.HeaderSize]byte
		if !conn.RecvAll(hdrBuf[:]) {
			return
		}
		hdr := protocol.Decode(hdrBuf)

		payload := make([]byte, hdr.PayloadSize)
		if hdr.PayloadSize > 0 {
			if !conn.RecvAll(payload) {
				return
			}
		}

		s.record(hdr.Endpoint, hdr.Kind, payload)

		if hdr.Kind == protocol.KindTXRX {
			response := reverse(payload)
			respHdr, err := protocol.Encode(hdr)
			if err != nil {
				return
			}
			if err := conn.SendAll(respHdr[:]); err != nil {
				return
			}
			if len(response) > 0 {
				if err := conn.SendAll(response); err != nil {
					return
				}
			}
		}
	}
}

func (s *Server) record(endpoint uint8, kind protocol.Kind, payload []byte) {
	cp := make([]byte, len(payload))
	copy(cp, payload)
	s.mu.Lock()
	s.received = append(s.received, Received{Endpoint: endpoint, Kind: kind, Payload: cp})
	s.mu.Unlock()
}

// Received returns a snapshot of every message recorded so far.
func (s *Server) Received() []Received {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Received, len(s.received))
	copy(out, s.received)
	return out
}

// Stop interrupts any read on the accepted connection through its
// self-pipe, closes the listener (unblocking Accept if still pending), and
// waits for the worker goroutine to exit. Frames the server has already
// read are recorded; frames not yet read when Stop interrupts the
// connection are not, and responses to TX_RX messages still in flight are
// not guaranteed to be delivered.
func (s *Server) Stop() {
	s.mu.Lock()
	s.stopped = true
	if s.conn != nil {
		s.conn.Interrupt()
	}
	s.mu.Unlock()
	_ = s.listener.Close()
	s.wg.Wait()
}

func reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}
