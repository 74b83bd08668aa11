package comms_test

import (
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gpulayers/device-comms/comms"
	"github.com/gpulayers/device-comms/internal/testserver"
)

func startEchoServer(t *testing.T) (*testserver.Server, string, int) {
	t.Helper()
	srv, err := testserver.ListenTCP(0)
	require.NoError(t, err)
	t.Cleanup(srv.Stop)

	addr, err := srv.Addr()
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return srv, host, port
}

func dial(t *testing.T, host string, port int) *comms.Module {
	t.Helper()
	m, err := comms.NewTCP(host, uint16(port))
	require.NoError(t, err)
	require.True(t, m.IsConnected())
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestTxZeroByte(t *testing.T) {
	srv, host, port := startEchoServer(t)
	m := dial(t, host, port)

	m.Tx(1, nil)
	require.Eventually(t, func() bool { return len(srv.Received()) == 1 }, time.Second, 5*time.Millisecond)

	got := srv.Received()
	assert.Equal(t, uint8(1), got[0].Endpoint)
	assert.Empty(t, got[0].Payload)
}

func TestTxWithPayload(t *testing.T) {
	srv, host, port := startEchoServer(t)
	m := dial(t, host, port)

	m.Tx(2, []byte{0xDE, 0xAD, 0xBE, 0xEF})
	require.Eventually(t, func() bool { return len(srv.Received()) == 1 }, time.Second, 5*time.Millisecond)

	got := srv.Received()[0]
	assert.Equal(t, uint8(2), got.Endpoint)
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, got.Payload)
}

func TestTxAsyncThenTxPreservesOrder(t *testing.T) {
	srv, host, port := startEchoServer(t)
	m := dial(t, host, port)

	m.TxAsync(3, []byte("first"))
	m.Tx(3, []byte("second")) // blocks until its own bytes are on the wire

	require.Eventually(t, func() bool { return len(srv.Received()) == 2 }, time.Second, 5*time.Millisecond)

	got := srv.Received()
	assert.Equal(t, []byte("first"), got[0].Payload)
	assert.Equal(t, []byte("second"), got[1].Payload)
}

func TestTxRxEmptyPayload(t *testing.T) {
	_, host, port := startEchoServer(t)
	m := dial(t, host, port)

	resp := m.TxRx(4, nil)
	assert.Empty(t, resp)
}

func TestTxRxNonEmptyPayloadIsReversed(t *testing.T) {
	_, host, port := startEchoServer(t)
	m := dial(t, host, port)

	resp := m.TxRx(5, []byte("abcd"))
	assert.Equal(t, []byte("dcba"), resp)
}

func TestBringUpTearDownNoTraffic(t *testing.T) {
	_, host, port := startEchoServer(t)
	m, err := comms.NewTCP(host, uint16(port))
	require.NoError(t, err)
	require.True(t, m.IsConnected())
	assert.NoError(t, m.Close())
}

func TestEndpointIDMissFromEmptyRegistry(t *testing.T) {
	_, host, port := startEchoServer(t)
	m := dial(t, host, port)

	// The test server echoes an empty registry (it reverses whatever it was
	// sent, and the registry fetch payload is empty), so every name misses.
	id := m.EndpointID("GPUProfile")
	assert.Equal(t, comms.NoEndpoint, id)
}

func TestDisconnectedModuleSendsAreNoOps(t *testing.T) {
	// Port 1 is reserved; connecting should fail to establish a live socket
	// and the Module should come up half-dead instead of erroring or
	// blocking forever on any send.
	m, err := comms.NewTCP("127.0.0.1", 1)
	require.NoError(t, err)
	assert.False(t, m.IsConnected())

	done := make(chan struct{})
	go func() {
		m.TxAsync(1, []byte("x"))
		m.Tx(1, []byte("x"))
		resp := m.TxRx(1, []byte("x"))
		assert.Nil(t, resp)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sends on a disconnected Module blocked instead of no-op'ing")
	}

	assert.NoError(t, m.Close())
}
