package daemon_test

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/izzymg/rotcore/internal/daemon"
	"github.com/izzymg/rotcore/internal/dispatch"
	"github.com/izzymg/rotcore/internal/inject"
	"github.com/izzymg/rotcore/internal/motion"
	th "github.com/izzymg/rotcore/internal/testing"
	"github.com/izzymg/rotcore/internal/transport"
)

var screen = motion.Size{W: 1280, H: 720}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stopAfter stops loop once rx has reported n idle polls.
func stopAfter(rx *th.MockReceiver, n int, loop **daemon.Loop) {
	rx.OnIdle = func(idle int) {
		if idle >= n {
			(*loop).Stop()
		}
	}
}

func TestLoopMovesTowardTarget(t *testing.T) {
	rx := th.NewMockReceiver("M .98 .02")
	inj := th.NewMockInjector(screen, motion.Point{X: 640, Y: 360})

	var loop *daemon.Loop
	stopAfter(rx, 100, &loop)
	loop = daemon.New(rx, inj, daemon.Config{}, discard(), nil)

	require.NoError(t, loop.Run())
	assert.Equal(t, motion.Target{X: 0.98, Y: 0.02}, loop.Target())

	moves := inj.Moves()
	require.NotEmpty(t, moves)
	assert.Equal(t, motion.Point{X: 1254, Y: 14}, inj.Location())

	prev := motion.Point{X: 640, Y: 360}
	for _, m := range moves {
		assert.GreaterOrEqual(t, m.X, prev.X)
		assert.LessOrEqual(t, m.Y, prev.Y)
		assert.LessOrEqual(t, m.X-prev.X, motion.DefaultMaxDelta)
		assert.LessOrEqual(t, prev.Y-m.Y, motion.DefaultMaxDelta)
		prev = m
	}
	// 614px on X at 10px per tick.
	assert.Len(t, moves, 62)

	assert.Equal(t, 1, rx.Closed())
	assert.Equal(t, 1, inj.Closed())
}

func TestLoopIdlePointerStaysPut(t *testing.T) {
	rx := th.NewMockReceiver()
	inj := th.NewMockInjector(screen, motion.Point{X: 640, Y: 360})

	var loop *daemon.Loop
	stopAfter(rx, 20, &loop)
	loop = daemon.New(rx, inj, daemon.Config{}, discard(), nil)

	require.NoError(t, loop.Run())
	assert.Empty(t, inj.Moves())
}

func TestLoopCommands(t *testing.T) {
	tests := []struct {
		name    string
		msgs    []string
		opts    dispatch.Options
		clicks  []inject.Button
		scrolls []inject.ScrollDirection
		keys    []string
		texts   []string
	}{
		{
			name:   "oversized click button is clamped",
			msgs:   []string{"C 12309132909"},
			clicks: []inject.Button{inject.ButtonRight},
		},
		{
			name:   "click garbage means left",
			msgs:   []string{"C x", "C 2"},
			clicks: []inject.Button{inject.ButtonLeft, inject.ButtonMiddle},
		},
		{
			name:    "scroll normalization",
			msgs:    []string{"S 1", "S 0", "S -4", "S 300"},
			scrolls: []inject.ScrollDirection{inject.ScrollUp, inject.ScrollDown, inject.ScrollDown, inject.ScrollUp},
		},
		{
			name: "invalid special keys send nothing",
			msgs: []string{"X LShiftLShhift", "X Control"},
		},
		{
			name: "valid special key",
			msgs: []string{"X BackSpace"},
			keys: []string{"BackSpace"},
		},
		{
			name:  "text is typed without key lookup",
			msgs:  []string{"T Return"},
			texts: []string{"Return"},
		},
		{
			name:  "legacy text fallthrough",
			msgs:  []string{"T Return", "T hello"},
			opts:  dispatch.Options{TypeThenSpecial: true},
			texts: []string{"Return", "hello"},
			keys:  []string{"Return"},
		},
		{
			name:   "malformed and unknown messages are dropped",
			msgs:   []string{"", "C", "Q 1", "T 123456789012345678901", "X Tab", "C 1"},
			clicks: []inject.Button{inject.ButtonLeft},
			keys:   []string{"Tab"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rx := th.NewMockReceiver(tt.msgs...)
			inj := th.NewMockInjector(screen, motion.Point{X: 640, Y: 360})

			var loop *daemon.Loop
			stopAfter(rx, 1, &loop)
			loop = daemon.New(rx, inj, daemon.Config{Dispatch: tt.opts}, discard(), nil)

			require.NoError(t, loop.Run())
			assert.Equal(t, tt.clicks, inj.Clicks())
			assert.Equal(t, tt.scrolls, inj.Scrolls())
			assert.Equal(t, tt.keys, inj.Keys())
			assert.Equal(t, tt.texts, inj.Texts())
			assert.Equal(t, motion.Center(), loop.Target())
		})
	}
}

func TestLoopSurvivesInjectorErrors(t *testing.T) {
	rx := th.NewMockReceiver("C 1", "X Up", "S 1")
	inj := th.NewMockInjector(screen, motion.Point{X: 0, Y: 0})
	inj.Err = errors.New("display gone")

	var loop *daemon.Loop
	stopAfter(rx, 3, &loop)
	loop = daemon.New(rx, inj, daemon.Config{}, discard(), nil)

	require.NoError(t, loop.Run())
	assert.Empty(t, inj.Clicks())
	assert.Equal(t, 1, inj.Closed())
}

func TestLoopStopBeforeRun(t *testing.T) {
	rx := th.NewMockReceiver("C 1")
	inj := th.NewMockInjector(screen, motion.Point{})

	loop := daemon.New(rx, inj, daemon.Config{}, discard(), nil)
	loop.Stop()
	loop.Stop()

	require.NoError(t, loop.Run())
	assert.Empty(t, inj.Clicks())
	assert.Equal(t, 1, rx.Closed())
	assert.Equal(t, 1, inj.Closed())
}

func TestLoopStopFromAnotherGoroutine(t *testing.T) {
	rx := th.NewMockReceiver()
	rx.Sleep = true
	inj := th.NewMockInjector(screen, motion.Point{X: 640, Y: 360})

	loop := daemon.New(rx, inj, daemon.Config{PollInterval: time.Millisecond}, discard(), nil)

	done := make(chan error, 1)
	go func() { done <- loop.Run() }()

	time.Sleep(20 * time.Millisecond)
	loop.Stop()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}
	assert.Equal(t, 1, rx.Closed())
	assert.Equal(t, 1, inj.Closed())
}

func TestLoopTransportClosedUnexpectedly(t *testing.T) {
	rx := th.NewMockReceiver()
	require.NoError(t, rx.Close())
	inj := th.NewMockInjector(screen, motion.Point{})

	loop := daemon.New(rx, inj, daemon.Config{}, discard(), nil)
	err := loop.Run()
	require.Error(t, err)
	assert.ErrorIs(t, err, transport.ErrClosed)
	assert.Equal(t, 2, rx.Closed())
	assert.Equal(t, 1, inj.Closed())
}

func TestLoopCustomMaxDelta(t *testing.T) {
	rx := th.NewMockReceiver("M 1 0.5")
	inj := th.NewMockInjector(screen, motion.Point{X: 640, Y: 360})

	var loop *daemon.Loop
	stopAfter(rx, 1, &loop)
	loop = daemon.New(rx, inj, daemon.Config{MaxDelta: 100}, discard(), nil)

	require.NoError(t, loop.Run())
	assert.Equal(t, []motion.Point{{X: 740, Y: 360}}, inj.Moves())
}
