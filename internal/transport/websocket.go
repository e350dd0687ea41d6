package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/izzymg/rotcore/internal/protocol"
)

// Frames larger than this are dropped by the websocket library before they
// reach the parser.
const wsReadLimit = 4 * protocol.MaxMessageLen

var upgrader = websocket.Upgrader{
	ReadBufferSize:  256,
	WriteBufferSize: 256,
	// Commands come from local tooling; origin is not meaningful here.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type wsReceiver struct {
	*inbox
	srv    *http.Server
	ln     net.Listener
	logger *slog.Logger

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
	once  sync.Once
}

func newWSReceiver(addr string, logger *slog.Logger) (*wsReceiver, error) {
	u, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("parse address %q: %w", addr, err)
	}
	if u.Scheme != "ws" {
		return nil, fmt.Errorf("websocket listener needs a ws:// address, got %q", addr)
	}
	path := u.Path
	if path == "" {
		path = "/"
	}

	ln, err := net.Listen("tcp", u.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", u.Host, err)
	}

	r := &wsReceiver{
		inbox:  newInbox(),
		ln:     ln,
		logger: logger.With("transport", "ws", "addr", ln.Addr().String()),
		conns:  make(map[*websocket.Conn]struct{}),
	}
	mux := http.NewServeMux()
	mux.HandleFunc(path, r.handle)
	r.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := r.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.logger.Error("Transport server failed", "error", err)
			r.fail(err)
		}
	}()
	r.logger.Info("Transport listening", "path", path)
	return r, nil
}

// Addr returns the bound listener address.
func (r *wsReceiver) Addr() net.Addr { return r.ln.Addr() }

func (r *wsReceiver) handle(w http.ResponseWriter, req *http.Request) {
	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Warn("Websocket upgrade failed", "remote", req.RemoteAddr, "error", err)
		return
	}
	conn.SetReadLimit(wsReadLimit)

	r.mu.Lock()
	r.conns[conn] = struct{}{}
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.conns, conn)
		r.mu.Unlock()
		_ = conn.Close()
	}()

	connLogger := r.logger.With("remote", req.RemoteAddr)
	connLogger.Info("Sender connected")
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				connLogger.Debug("Sender read failed", "error", err)
			}
			connLogger.Info("Sender disconnected")
			return
		}
		if !r.deliver(data) {
			return
		}
	}
}

func (r *wsReceiver) Receive(timeout time.Duration) ([]byte, bool, error) {
	return r.receive(timeout)
}

func (r *wsReceiver) Close() error {
	var err error
	r.once.Do(func() {
		r.close()
		err = r.srv.Close()
		r.mu.Lock()
		for c := range r.conns {
			_ = c.Close()
		}
		r.mu.Unlock()
		r.logger.Debug("Transport closed")
	})
	return err
}

type wsSender struct {
	conn *websocket.Conn
}

func dialWS(ctx context.Context, addr string, logger *slog.Logger) (*wsSender, error) {
	d := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := d.DialContext(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	logger.Debug("Websocket connected", "addr", addr)
	return &wsSender{conn: conn}, nil
}

func (s *wsSender) Send(msg []byte) error {
	return s.conn.WriteMessage(websocket.TextMessage, msg)
}

func (s *wsSender) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return s.conn.Close()
}
