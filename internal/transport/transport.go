//go:build linux

// Package transport owns connection establishment and raw byte send/receive
// for the comms core, over a UNIX domain socket (abstract namespace) or a
// TCP socket. It is built on raw file descriptors via golang.org/x/sys/unix
// rather than net.Conn so that a single self-pipe/select shutdown interrupt
// works the same way regardless of which constructor created the
// connection.
package transport

import (
	"errors"
	"fmt"
	"net"

	"golang.org/x/sys/unix"

	"github.com/gpulayers/device-comms/internal/logging"
)

// ErrNotConnected is returned by SendAll on a Conn whose underlying socket
// failed to set up (RecvAll on such a Conn returns false); such a Conn is
// intentionally kept "half-dead" rather than made unusable.
var ErrNotConnected = errors.New("transport: not connected")

// Conn is a single connected byte-stream socket plus the self-pipe used to
// interrupt a blocking receive on shutdown. The zero value is not usable;
// construct with DialUDS, DialTCP, or a Listener's Accept.
type Conn struct {
	fd        int // -1 if setup failed: the half-dead sentinel.
	pipeRead  int
	pipeWrite int
}

// invalidFD is the half-dead sentinel used throughout: a Conn with fd set
// to invalidFD is constructed successfully but every send/recv is a no-op.
const invalidFD = -1

func newHalfDead() *Conn {
	return &Conn{fd: invalidFD, pipeRead: invalidFD, pipeWrite: invalidFD}
}

// IsConnected reports whether the underlying socket is valid.
func (c *Conn) IsConnected() bool { return c != nil && c.fd >= 0 }

// DialUDS connects to a UNIX domain socket in the Linux abstract namespace.
// name excludes the leading NUL; it is injected by golang.org/x/sys/unix,
// which turns the leading '@' of the "@name" SockaddrUnix encoding into a
// NUL and sizes the address as offsetof(sun_path)+1+len(name) rather than
// a fixed-size buffer,
// so the socket address is never NUL-padded past the name.
func DialUDS(name string) (*Conn, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		logging.L().Error("transport_socket_failed", "kind", "uds", "error", err)
		return newHalfDead(), nil
	}
	sa := &unix.SockaddrUnix{Name: "@" + name}
	if err := unix.Connect(fd, sa); err != nil {
		logging.L().Error("transport_connect_failed", "kind", "uds", "name", name, "error", err)
		_ = unix.Close(fd)
		return newHalfDead(), nil
	}
	return newConnected(fd)
}

// DialTCP connects to host:port over TCP/IPv4.
func DialTCP(host string, port uint16) (*Conn, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		logging.L().Error("transport_socket_failed", "kind", "tcp", "error", err)
		return newHalfDead(), nil
	}
	ip := net.ParseIP(host)
	if ip == nil || ip.To4() == nil {
		logging.L().Error("transport_bad_address", "kind", "tcp", "host", host)
		_ = unix.Close(fd)
		return newHalfDead(), nil
	}
	var addr [4]byte
	copy(addr[:], ip.To4())
	sa := &unix.SockaddrInet4{Port: int(port), Addr: addr}
	if err := unix.Connect(fd, sa); err != nil {
		logging.L().Error("transport_connect_failed", "kind", "tcp", "host", host, "port", port, "error", err)
		_ = unix.Close(fd)
		return newHalfDead(), nil
	}
	return newConnected(fd)
}

func newConnected(fd int) (*Conn, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], 0); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("transport: create self-pipe: %w", err)
	}
	return &Conn{fd: fd, pipeRead: fds[0], pipeWrite: fds[1]}, nil
}

// NewFromAcceptedFD wraps an already-connected fd (e.g. from a raw accept(2)
// in internal/testserver) with its own self-pipe.
func NewFromAcceptedFD(fd int) (*Conn, error) { return newConnected(fd) }

// SendAll writes all of data to the socket, retrying short writes. A
// negative-returning write (an error) aborts the send; bytes already
// written have left the process and are not retried.
func (c *Conn) SendAll(data []byte) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	for len(data) > 0 {
		n, err := unix.Write(c.fd, data)
		if err != nil {
			return fmt.Errorf("transport: send: %w", err)
		}
		if n <= 0 {
			return fmt.Errorf("transport: send: short write")
		}
		data = data[n:]
	}
	return nil
}

// RecvAll reads exactly len(buf) bytes, blocking in select() over the
// socket and the self-pipe read end. Any activity on the self-pipe, EOF,
// or a read error causes RecvAll to return false with no partial result
// retained.
func (c *Conn) RecvAll(buf []byte) bool {
	if !c.IsConnected() {
		return false
	}
	for len(buf) > 0 {
		if !c.waitReadable() {
			return false
		}
		n, err := unix.Read(c.fd, buf)
		if err != nil || n <= 0 {
			return false
		}
		buf = buf[n:]
	}
	return true
}

func (c *Conn) waitReadable() bool {
	maxFD := c.fd
	if c.pipeRead > maxFD {
		maxFD = c.pipeRead
	}
	var rfds unix.FdSet
	fdZero(&rfds)
	fdSet(c.fd, &rfds)
	fdSet(c.pipeRead, &rfds)
	n, err := unix.Select(maxFD+1, &rfds, nil, nil, nil)
	if err != nil || n <= 0 {
		return false
	}
	if fdIsSet(c.pipeRead, &rfds) {
		return false
	}
	return fdIsSet(c.fd, &rfds)
}

// Interrupt wakes any goroutine blocked in RecvAll by writing a byte to the
// self-pipe. Safe to call multiple times.
func (c *Conn) Interrupt() {
	if c == nil || c.pipeWrite < 0 {
		return
	}
	_, _ = unix.Write(c.pipeWrite, []byte{0})
}

// Close releases the socket and self-pipe file descriptors.
func (c *Conn) Close() error {
	if c == nil {
		return nil
	}
	var err error
	if c.fd >= 0 {
		err = unix.Close(c.fd)
		c.fd = invalidFD
	}
	if c.pipeRead >= 0 {
		_ = unix.Close(c.pipeRead)
		c.pipeRead = invalidFD
	}
	if c.pipeWrite >= 0 {
		_ = unix.Close(c.pipeWrite)
		c.pipeWrite = invalidFD
	}
	return err
}
