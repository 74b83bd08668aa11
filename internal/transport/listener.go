//go:build linux

package transport

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// Listener accepts a single inbound connection. It exists only to support
// internal/testserver; the comms core itself never listens.
type Listener struct {
	fd        int
	pipeRead  int
	pipeWrite int
}

// ListenUDS binds and listens on an abstract-namespace UNIX domain socket.
func ListenUDS(name string) (*Listener, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("transport: listen socket: %w", err)
	}
	sa := &unix.SockaddrUnix{Name: "@" + name}
	if err := unix.Bind(fd, sa); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("transport: bind: %w", err)
	}
	return newListener(fd)
}

// ListenTCP binds and listens on 0.0.0.0:port (port 0 picks a free port;
// use Addr to discover it).
func ListenTCP(port int) (*Listener, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("transport: listen socket: %w", err)
	}
	_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	sa := &unix.SockaddrInet4{Port: port}
	if err := unix.Bind(fd, sa); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("transport: bind: %w", err)
	}
	return newListener(fd)
}

func newListener(fd int) (*Listener, error) {
	if err := unix.Listen(fd, 5); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("transport: listen: %w", err)
	}
	var fds [2]int
	if err := unix.Pipe2(fds[:], 0); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("transport: self-pipe: %w", err)
	}
	return &Listener{fd: fd, pipeRead: fds[0], pipeWrite: fds[1]}, nil
}

// Addr returns the bound local address (useful when ListenTCP(0) picked a
// free port).
func (l *Listener) Addr() (net.Addr, error) {
	sa, err := unix.Getsockname(l.fd)
	if err != nil {
		return nil, err
	}
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.TCPAddr{IP: net.IP(a.Addr[:]), Port: a.Port}, nil
	default:
		return nil, fmt.Errorf("transport: unsupported sockaddr %T", sa)
	}
}

// Accept blocks until one client connects, or Close is called. It returns a
// *Conn with its own independent self-pipe for the caller to interrupt its
// own RecvAll loop later.
func (l *Listener) Accept() (*Conn, error) {
	maxFD := l.fd
	if l.pipeRead > maxFD {
		maxFD = l.pipeRead
	}
	var rfds unix.FdSet
	fdZero(&rfds)
	fdSet(l.fd, &rfds)
	fdSet(l.pipeRead, &rfds)
	n, err := unix.Select(maxFD+1, &rfds, nil, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("transport: accept select: %w", err)
	}
	if n <= 0 || fdIsSet(l.pipeRead, &rfds) {
		return nil, fmt.Errorf("transport: listener closed")
	}
	connFD, _, err := unix.Accept(l.fd)
	if err != nil {
		return nil, fmt.Errorf("transport: accept: %w", err)
	}
	return NewFromAcceptedFD(connFD)
}

// Close unblocks any in-flight Accept and releases the listening socket.
func (l *Listener) Close() error {
	if l == nil {
		return nil
	}
	_, _ = unix.Write(l.pipeWrite, []byte{0})
	err := unix.Close(l.fd)
	_ = unix.Close(l.pipeRead)
	_ = unix.Close(l.pipeWrite)
	return err
}
