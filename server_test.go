package flowio

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uole/flowio/config"
)

func startEcho(t *testing.T) net.Addr {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = listener.Close()
	})
	go func() {
		for {
			conn, er := listener.Accept()
			if er != nil {
				return
			}
			go func(c net.Conn) {
				_, _ = io.Copy(c, c)
				_ = c.Close()
			}(conn)
		}
	}()
	return listener.Addr()
}

func TestProxySession(t *testing.T) {
	echo := startEcho(t)
	svr := New(config.New())
	svr.ctx = context.Background()

	local, remote := net.Pipe()
	go svr.process(remote)

	fl := Connect(local)
	require.NoError(t, OpenProxy(fl, echo.String(), time.Second))

	require.NoError(t, fl.Write([]byte("ping across the flow")))
	payload, err := fl.Read()
	require.NoError(t, err)
	assert.Equal(t, []byte("ping across the flow"), payload)

	require.NoError(t, fl.Close())
	assert.Eventually(t, func() bool {
		return len(svr.getSessionSnapshot()) == 0
	}, time.Second*2, time.Millisecond*10)
}

func TestProxyRefusesUnreachableHost(t *testing.T) {
	svr := New(config.New())
	svr.ctx = context.Background()

	local, remote := net.Pipe()
	go svr.process(remote)

	fl := Connect(local)
	err := OpenProxy(fl, "127.0.0.1:1", time.Millisecond*200)
	require.Error(t, err)
	assert.NotEqual(t, io.EOF, err, "refusal must carry the relay's reason")
	// the relay closes right after refusing; answer its handshake
	_, err = fl.Read()
	assert.Equal(t, io.EOF, err)
	assert.True(t, fl.isClosed())
}

func TestProxyReadInto(t *testing.T) {
	echo := startEcho(t)
	svr := New(config.New())
	svr.ctx = context.Background()

	local, remote := net.Pipe()
	go svr.process(remote)

	fl := Connect(local)
	require.NoError(t, OpenProxy(fl, echo.String(), time.Second))
	require.NoError(t, fl.Write([]byte("0123456789")))

	head := make([]byte, 4)
	require.NoError(t, fl.ReadInto(head))
	assert.Equal(t, []byte("0123"), head)
	tail, err := fl.Read()
	require.NoError(t, err)
	assert.Equal(t, []byte("456789"), tail)
	require.NoError(t, fl.Close())
}
