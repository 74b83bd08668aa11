//go:build linux

package transport

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func udsName(t *testing.T) string {
	t.Helper()
	return fmt.Sprintf("comms-transport-test-%d-%d", time.Now().UnixNano(), rand.Int())
}

func TestUDSSendRecvRoundTrip(t *testing.T) {
	name := udsName(t)
	ln, err := ListenUDS(name)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	accepted := make(chan *Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err == nil {
			accepted <- c
		}
	}()

	client, err := DialUDS(name)
	require.NoError(t, err)
	require.True(t, client.IsConnected())
	defer client.Close()

	server := <-accepted
	defer server.Close()

	require.NoError(t, client.SendAll([]byte("hello")))
	buf := make([]byte, 5)
	require.True(t, server.RecvAll(buf))
	assert.Equal(t, "hello", string(buf))
}

func TestDialUDSNoListenerIsHalfDead(t *testing.T) {
	conn, err := DialUDS("comms-transport-test-no-such-listener")
	require.NoError(t, err)
	assert.False(t, conn.IsConnected())
	assert.ErrorIs(t, conn.SendAll([]byte("x")), ErrNotConnected)
	assert.False(t, conn.RecvAll(make([]byte, 1)))
}

func TestInterruptUnblocksRecvAll(t *testing.T) {
	name := udsName(t)
	ln, err := ListenUDS(name)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	accepted := make(chan *Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err == nil {
			accepted <- c
		}
	}()

	client, err := DialUDS(name)
	require.NoError(t, err)
	defer client.Close()
	server := <-accepted
	defer server.Close()

	done := make(chan bool, 1)
	go func() {
		done <- server.RecvAll(make([]byte, 4))
	}()

	time.Sleep(20 * time.Millisecond)
	server.Interrupt()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("RecvAll did not unblock on Interrupt")
	}
}
