package transport

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-zeromq/zmq4"
	"github.com/go-zeromq/zmq4/security/plain"
)

const dialRetry = 500 * time.Millisecond

type zmqReceiver struct {
	*inbox
	sock   zmq4.Socket
	cancel context.CancelFunc
	topic  []byte
	logger *slog.Logger
	once   sync.Once
}

func socketOptions(opts Options, logger *slog.Logger) []zmq4.Option {
	zopts := []zmq4.Option{
		zmq4.WithLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug)),
		zmq4.WithDialerRetry(dialRetry),
		zmq4.WithDialerMaxRetries(-1),
		zmq4.WithAutomaticReconnect(true),
	}
	if opts.User != "" || opts.Password != "" {
		zopts = append(zopts, zmq4.WithSecurity(plain.Security(opts.User, opts.Password)))
	}
	return zopts
}

func newZMQReceiver(ctx context.Context, addr string, opts Options, logger *slog.Logger) (*zmqReceiver, error) {
	ctx, cancel := context.WithCancel(ctx)
	logger = logger.With("transport", "zmq", "addr", addr)
	zopts := socketOptions(opts, logger)

	r := &zmqReceiver{inbox: newInbox(), cancel: cancel, logger: logger}
	switch opts.Socket {
	case SocketPull, "":
		r.sock = zmq4.NewPull(ctx, zopts...)
	case SocketSub:
		r.sock = zmq4.NewSub(ctx, zopts...)
		if err := r.sock.SetOption(zmq4.OptionSubscribe, opts.Topic); err != nil {
			cancel()
			_ = r.sock.Close()
			return nil, fmt.Errorf("subscribe to %q: %w", opts.Topic, err)
		}
		r.topic = []byte(opts.Topic)
	default:
		cancel()
		return nil, fmt.Errorf("unsupported socket type %q", opts.Socket)
	}

	if opts.Bind {
		if err := r.sock.Listen(addr); err != nil {
			cancel()
			_ = r.sock.Close()
			return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
		}
		logger.Info("Transport listening", "socket", opts.Socket)
		go r.read(ctx, nil)
		return r, nil
	}

	// Connecting retries until the peer shows up, which must not hold up startup.
	go r.read(ctx, func() error {
		if err := r.sock.Dial(addr); err != nil {
			return fmt.Errorf("failed to connect to %s: %w", addr, err)
		}
		logger.Info("Transport connected", "socket", opts.Socket)
		return nil
	})
	return r, nil
}

func (r *zmqReceiver) read(ctx context.Context, dial func() error) {
	if dial != nil {
		if err := dial(); err != nil {
			if ctx.Err() == nil && !r.closed() {
				r.logger.Error("Transport failed", "error", err)
				r.fail(err)
			}
			return
		}
	}
	for {
		msg, err := r.sock.Recv()
		if err != nil {
			if ctx.Err() != nil || r.closed() {
				r.close()
				return
			}
			r.logger.Error("Transport receive failed", "error", err)
			r.fail(err)
			return
		}
		data := msg.Bytes()
		if r.topic != nil {
			data = stripTopic(data, r.topic)
		}
		if !r.deliver(data) {
			return
		}
	}
}

func (r *zmqReceiver) Receive(timeout time.Duration) ([]byte, bool, error) {
	return r.receive(timeout)
}

func (r *zmqReceiver) Close() error {
	var err error
	r.once.Do(func() {
		r.close()
		err = r.sock.Close()
		r.cancel()
		r.logger.Debug("Transport closed")
	})
	return err
}

// stripTopic removes a SUB topic prefix and the single separator byte after it.
func stripTopic(msg, topic []byte) []byte {
	if !bytes.HasPrefix(msg, topic) {
		return msg
	}
	msg = msg[len(topic):]
	if len(msg) > 0 && (msg[0] == ' ' || msg[0] == '\t') {
		msg = msg[1:]
	}
	return msg
}

type zmqSender struct {
	sock   zmq4.Socket
	cancel context.CancelFunc
	topic  []byte
}

func newZMQSender(ctx context.Context, addr string, opts Options, logger *slog.Logger) (*zmqSender, error) {
	ctx, cancel := context.WithCancel(ctx)
	logger = logger.With("transport", "zmq", "addr", addr)
	zopts := socketOptions(opts, logger)

	s := &zmqSender{cancel: cancel}
	switch opts.Socket {
	case SocketPull, "":
		s.sock = zmq4.NewPush(ctx, zopts...)
	case SocketSub:
		s.sock = zmq4.NewPub(ctx, zopts...)
		s.topic = []byte(opts.Topic)
	default:
		cancel()
		return nil, fmt.Errorf("unsupported socket type %q", opts.Socket)
	}

	var err error
	if opts.Bind {
		err = s.sock.Listen(addr)
	} else {
		err = s.sock.Dial(addr)
	}
	if err != nil {
		cancel()
		_ = s.sock.Close()
		return nil, fmt.Errorf("failed to open %s: %w", addr, err)
	}
	return s, nil
}

func (s *zmqSender) Send(msg []byte) error {
	if s.topic != nil {
		framed := make([]byte, 0, len(s.topic)+1+len(msg))
		framed = append(framed, s.topic...)
		framed = append(framed, ' ')
		msg = append(framed, msg...)
	}
	return s.sock.Send(zmq4.NewMsg(msg))
}

func (s *zmqSender) Close() error {
	err := s.sock.Close()
	s.cancel()
	return err
}
