package transport_test

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	th "github.com/izzymg/rotcore/internal/testing"
	"github.com/izzymg/rotcore/internal/transport"
)

// skipZMQUnderRace skips tests that bind a ZeroMQ socket when built with -race:
// zmq4 v0.17.0 socket.Close races its own accept and reader goroutines
// (socket.go:146), independent of how the socket is used.
func skipZMQUnderRace(t *testing.T) {
	t.Helper()
	if th.RaceEnabled {
		t.Skip("zmq4 socket teardown is not race-clean")
	}
}

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	_ = ln.Close()
	return addr
}

// sendUntilReceived resends msg until the receiver sees it; PUB/SUB and a
// freshly connected PUSH may drop messages sent before the peer is attached.
func sendUntilReceived(t *testing.T, tx transport.Sender, rx transport.Receiver, msg string) string {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		require.NoError(t, tx.Send([]byte(msg)))
		got, ok, err := rx.Receive(100 * time.Millisecond)
		require.NoError(t, err)
		if ok {
			return string(got)
		}
	}
	t.Fatalf("message %q never arrived", msg)
	return ""
}

func TestZMQPushPull(t *testing.T) {
	skipZMQUnderRace(t)
	ctx := context.Background()
	addr := fmt.Sprintf("tcp://%s", freeAddr(t))

	rx, err := transport.Listen(ctx, addr, transport.Options{Socket: transport.SocketPull, Bind: true}, slog.Default())
	require.NoError(t, err)
	defer rx.Close()

	tx, err := transport.Dial(ctx, addr, transport.Options{Socket: transport.SocketPull}, slog.Default())
	require.NoError(t, err)
	defer tx.Close()

	assert.Equal(t, "M .98 .02", sendUntilReceived(t, tx, rx, "M .98 .02"))
}

func TestZMQPubSubStripsTopic(t *testing.T) {
	skipZMQUnderRace(t)
	ctx := context.Background()
	addr := fmt.Sprintf("tcp://%s", freeAddr(t))
	opts := transport.Options{Socket: transport.SocketSub, Bind: true, Topic: "X11"}

	rx, err := transport.Listen(ctx, addr, opts, slog.Default())
	require.NoError(t, err)
	defer rx.Close()

	opts.Bind = false
	tx, err := transport.Dial(ctx, addr, opts, slog.Default())
	require.NoError(t, err)
	defer tx.Close()

	assert.Equal(t, "C 1", sendUntilReceived(t, tx, rx, "C 1"))
}

func TestZMQReceiverClose(t *testing.T) {
	addr := fmt.Sprintf("tcp://%s", freeAddr(t))
	rx, err := transport.Listen(context.Background(), addr, transport.Options{Bind: true}, slog.Default())
	require.NoError(t, err)

	_, ok, err := rx.Receive(10 * time.Millisecond)
	assert.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, rx.Close())
	assert.NoError(t, rx.Close())
	_, _, err = rx.Receive(10 * time.Millisecond)
	assert.ErrorIs(t, err, transport.ErrClosed)
}

func TestWebsocket(t *testing.T) {
	ctx := context.Background()
	addr := fmt.Sprintf("ws://%s/xi", freeAddr(t))

	rx, err := transport.Listen(ctx, addr, transport.Options{}, slog.Default())
	require.NoError(t, err)
	defer rx.Close()

	tx, err := transport.Dial(ctx, addr, transport.Options{}, slog.Default())
	require.NoError(t, err)

	for _, m := range []string{"T hello", "X Return", "S -1"} {
		require.NoError(t, tx.Send([]byte(m)))
	}
	for _, want := range []string{"T hello", "X Return", "S -1"} {
		got, ok, err := rx.Receive(5 * time.Second)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, want, string(got))
	}
	require.NoError(t, tx.Close())

	_, ok, err := rx.Receive(10 * time.Millisecond)
	assert.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, rx.Close())
	_, _, err = rx.Receive(10 * time.Millisecond)
	assert.ErrorIs(t, err, transport.ErrClosed)
}

func TestUnsupportedAddress(t *testing.T) {
	_, err := transport.Listen(context.Background(), "http://127.0.0.1:1", transport.Options{}, slog.Default())
	assert.Error(t, err)
	_, err = transport.Dial(context.Background(), "127.0.0.1:1", transport.Options{}, slog.Default())
	assert.Error(t, err)
	_, err = transport.Listen(context.Background(), "tcp://127.0.0.1:1", transport.Options{Socket: "router", Bind: true}, slog.Default())
	assert.Error(t, err)
}

// Failed opens must return an untyped nil so callers can nil-check before Close.
func TestOpenFailureReturnsNil(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	rx, err := transport.Listen(context.Background(), "tcp://127.0.0.1:1", transport.Options{Socket: "router", Bind: true}, slog.Default())
	require.Error(t, err)
	assert.True(t, rx == nil, "receiver %#v", rx)

	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()
	rx, err = transport.Listen(context.Background(), "ws://"+busy.Addr().String()+"/xi", transport.Options{}, slog.Default())
	require.Error(t, err)
	assert.True(t, rx == nil, "receiver %#v", rx)

	tx, err := transport.Dial(context.Background(), "tcp://127.0.0.1:1", transport.Options{Socket: "dealer"}, slog.Default())
	require.Error(t, err)
	assert.True(t, tx == nil, "sender %#v", tx)

	tx, err = transport.Dial(cancelled, "tcp://127.0.0.1:1", transport.Options{}, slog.Default())
	require.Error(t, err)
	assert.True(t, tx == nil, "sender %#v", tx)

	tx, err = transport.Dial(cancelled, "ws://127.0.0.1:1/xi", transport.Options{}, slog.Default())
	require.Error(t, err)
	assert.True(t, tx == nil, "sender %#v", tx)
}
