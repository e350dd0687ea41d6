package testing

import (
	"sync"
	"time"

	"github.com/izzymg/rotcore/internal/inject"
	"github.com/izzymg/rotcore/internal/motion"
	"github.com/izzymg/rotcore/internal/transport"
)

// MockInjector records every injected action and keeps a pointer position
// that Move updates and Location reports.
type MockInjector struct {
	mu      sync.Mutex
	size    motion.Size
	pos     motion.Point
	moves   []motion.Point
	clicks  []inject.Button
	scrolls []inject.ScrollDirection
	keys    []string
	texts   []string
	closed  int

	// Err, when set, is returned by every action.
	Err error
}

func NewMockInjector(size motion.Size, start motion.Point) *MockInjector {
	return &MockInjector{size: size, pos: start}
}

func (m *MockInjector) ScreenSize() motion.Size { return m.size }

func (m *MockInjector) Location() motion.Point {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pos
}

func (m *MockInjector) Move(p motion.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.pos = p
	m.moves = append(m.moves, p)
	return nil
}

func (m *MockInjector) Click(b inject.Button) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.clicks = append(m.clicks, b)
	return nil
}

func (m *MockInjector) Scroll(d inject.ScrollDirection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.scrolls = append(m.scrolls, d)
	return nil
}

func (m *MockInjector) KeySequence(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.keys = append(m.keys, name)
	return nil
}

func (m *MockInjector) TypeText(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.texts = append(m.texts, text)
	return nil
}

func (m *MockInjector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	return nil
}

func (m *MockInjector) Moves() []motion.Point {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]motion.Point(nil), m.moves...)
}

func (m *MockInjector) Clicks() []inject.Button {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]inject.Button(nil), m.clicks...)
}

func (m *MockInjector) Scrolls() []inject.ScrollDirection {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]inject.ScrollDirection(nil), m.scrolls...)
}

func (m *MockInjector) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.keys...)
}

func (m *MockInjector) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}

// Closed reports how many times Close was called.
func (m *MockInjector) Closed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// MockReceiver hands out queued messages in order and reports a timeout once
// the queue is empty. Timeouts return immediately unless Sleep is set.
type MockReceiver struct {
	mu     sync.Mutex
	queue  [][]byte
	idle   int
	closed int

	// Sleep makes an empty Receive block for the requested timeout.
	Sleep bool
	// OnIdle runs after every timeout with the number of timeouts so far.
	OnIdle func(n int)
}

func NewMockReceiver(msgs ...string) *MockReceiver {
	r := &MockReceiver{}
	for _, m := range msgs {
		r.queue = append(r.queue, []byte(m))
	}
	return r
}

// Push queues another message.
func (r *MockReceiver) Push(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queue = append(r.queue, []byte(msg))
}

func (r *MockReceiver) Receive(timeout time.Duration) ([]byte, bool, error) {
	r.mu.Lock()
	if r.closed > 0 {
		r.mu.Unlock()
		return nil, false, transport.ErrClosed
	}
	if len(r.queue) > 0 {
		msg := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return msg, true, nil
	}
	r.idle++
	n := r.idle
	onIdle := r.OnIdle
	r.mu.Unlock()

	if r.Sleep {
		time.Sleep(timeout)
	}
	if onIdle != nil {
		onIdle(n)
	}
	return nil, false, nil
}

func (r *MockReceiver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed++
	return nil
}

// Closed reports how many times Close was called.
func (r *MockReceiver) Closed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// MockSender records sent messages.
type MockSender struct {
	mu     sync.Mutex
	sent   []string
	closed int

	// Err, when set, is returned by Send.
	Err error
}

func (s *MockSender) Send(msg []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.sent = append(s.sent, string(msg))
	return nil
}

func (s *MockSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func (s *MockSender) Sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}
