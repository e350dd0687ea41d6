// Package transport delivers raw protocol messages to the daemon and sends
// them from the command line sender.
//
// Addresses select the implementation by scheme: tcp:// and ipc:// use
// ZeroMQ, ws:// uses WebSocket.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// DefaultAddress is used when neither the environment nor the command line
// name an endpoint.
const DefaultAddress = "tcp://127.0.0.1:9674"

// ErrClosed is returned by Receive once the receiver is closed or its socket
// has failed.
var ErrClosed = errors.New("transport closed")

// Socket types understood by the ZeroMQ transport.
const (
	SocketPull = "pull"
	SocketSub  = "sub"
)

// Receiver yields one message at a time in arrival order.
type Receiver interface {
	// Receive waits at most timeout for the next message. ok is false when the
	// timeout elapsed without a message.
	Receive(timeout time.Duration) (msg []byte, ok bool, err error)
	Close() error
}

// Sender publishes messages to a daemon.
type Sender interface {
	Send(msg []byte) error
	Close() error
}

// Options configures the ZeroMQ transport. WebSocket ignores everything but
// Bind on the sending side.
type Options struct {
	// Socket is SocketPull (default) or SocketSub. Senders use the matching
	// PUSH or PUB socket.
	Socket string
	// Bind listens on the address instead of connecting to it.
	Bind bool
	// Topic is the subscription prefix of SUB sockets.
	Topic string
	// User and Password enable PLAIN authentication on ZeroMQ sockets.
	User     string
	Password string
}

type scheme int

const (
	schemeZMQ scheme = iota
	schemeWS
)

func parseScheme(addr string) (scheme, error) {
	i := strings.Index(addr, "://")
	if i <= 0 {
		return 0, fmt.Errorf("address %q has no scheme", addr)
	}
	switch strings.ToLower(addr[:i]) {
	case "tcp", "ipc", "inproc":
		return schemeZMQ, nil
	case "ws", "wss":
		return schemeWS, nil
	default:
		return 0, fmt.Errorf("unsupported address scheme in %q", addr)
	}
}

// Listen opens a Receiver for addr.
func Listen(ctx context.Context, addr string, opts Options, logger *slog.Logger) (Receiver, error) {
	s, err := parseScheme(addr)
	if err != nil {
		return nil, err
	}
	var rx Receiver
	switch s {
	case schemeWS:
		r, err := newWSReceiver(addr, logger)
		if err != nil {
			return nil, err
		}
		rx = r
	default:
		r, err := newZMQReceiver(ctx, addr, opts, logger)
		if err != nil {
			return nil, err
		}
		rx = r
	}
	return rx, nil
}

// Dial opens a Sender for addr.
func Dial(ctx context.Context, addr string, opts Options, logger *slog.Logger) (Sender, error) {
	s, err := parseScheme(addr)
	if err != nil {
		return nil, err
	}
	var tx Sender
	switch s {
	case schemeWS:
		ws, err := dialWS(ctx, addr, logger)
		if err != nil {
			return nil, err
		}
		tx = ws
	default:
		z, err := newZMQSender(ctx, addr, opts, logger)
		if err != nil {
			return nil, err
		}
		tx = z
	}
	return tx, nil
}

// inbox hands messages from reader goroutines to the single consumer.
// Delivery blocks until the consumer takes the message, so at most one
// message per reader is in flight.
type inbox struct {
	msgs  chan []byte
	done  chan struct{}
	once  sync.Once
	timer *time.Timer

	mu    sync.Mutex
	cause error
}

func newInbox() *inbox {
	t := time.NewTimer(time.Hour)
	t.Stop()
	return &inbox{
		msgs:  make(chan []byte),
		done:  make(chan struct{}),
		timer: t,
	}
}

// deliver returns false once the inbox is closed.
func (in *inbox) deliver(msg []byte) bool {
	select {
	case in.msgs <- msg:
		return true
	case <-in.done:
		return false
	}
}

func (in *inbox) receive(timeout time.Duration) ([]byte, bool, error) {
	select {
	case <-in.done:
		return nil, false, in.err()
	default:
	}

	in.timer.Reset(timeout)
	defer in.timer.Stop()

	select {
	case msg := <-in.msgs:
		return msg, true, nil
	case <-in.timer.C:
		return nil, false, nil
	case <-in.done:
		return nil, false, in.err()
	}
}

// fail closes the inbox, recording why.
func (in *inbox) fail(cause error) {
	in.mu.Lock()
	if in.cause == nil {
		in.cause = cause
	}
	in.mu.Unlock()
	in.close()
}

func (in *inbox) closed() bool {
	select {
	case <-in.done:
		return true
	default:
		return false
	}
}

func (in *inbox) close() {
	in.once.Do(func() { close(in.done) })
}

func (in *inbox) err() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.cause != nil {
		return fmt.Errorf("%w: %v", ErrClosed, in.cause)
	}
	return ErrClosed
}
