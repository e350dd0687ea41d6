package transport

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInboxTimeout(t *testing.T) {
	in := newInbox()
	start := time.Now()
	msg, ok, err := in.receive(20 * time.Millisecond)
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, msg)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestInboxOrder(t *testing.T) {
	in := newInbox()
	go func() {
		for _, m := range []string{"C 1", "C 2", "C 3"} {
			in.deliver([]byte(m))
		}
	}()
	for _, want := range []string{"C 1", "C 2", "C 3"} {
		msg, ok, err := in.receive(time.Second)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, want, string(msg))
	}
}

func TestInboxClose(t *testing.T) {
	in := newInbox()
	done := make(chan bool)
	go func() { done <- in.deliver([]byte("T a")) }()

	in.close()
	in.close()
	assert.False(t, <-done)

	_, ok, err := in.receive(time.Second)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestInboxFailKeepsCause(t *testing.T) {
	in := newInbox()
	in.fail(errors.New("boom"))
	_, _, err := in.receive(time.Second)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorContains(t, err, "boom")
}

func TestStripTopic(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		expected string
	}{
		{"prefixed", "X11 M .5 .5", "M .5 .5"},
		{"no separator", "X11M .5 .5", "M .5 .5"},
		{"other topic", "Y M .5 .5", "Y M .5 .5"},
		{"topic only", "X11", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(stripTopic([]byte(tt.msg), []byte("X11"))))
		})
	}
}

func TestParseScheme(t *testing.T) {
	tests := []struct {
		addr     string
		expected scheme
		wantErr  bool
	}{
		{"tcp://127.0.0.1:9674", schemeZMQ, false},
		{"ipc:///tmp/xi.sock", schemeZMQ, false},
		{"ws://127.0.0.1:9675/xi", schemeWS, false},
		{"WSS://example.com/xi", schemeWS, false},
		{"http://127.0.0.1", 0, true},
		{"127.0.0.1:9674", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			s, err := parseScheme(tt.addr)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, s)
		})
	}
}
