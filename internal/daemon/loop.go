// Package daemon runs the receive/interpolate control loop.
package daemon

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/izzymg/rotcore/internal/dispatch"
	"github.com/izzymg/rotcore/internal/inject"
	"github.com/izzymg/rotcore/internal/log"
	"github.com/izzymg/rotcore/internal/motion"
	"github.com/izzymg/rotcore/internal/protocol"
	"github.com/izzymg/rotcore/internal/transport"
)

// DefaultPollInterval bounds how long one idle poll waits for a message.
const DefaultPollInterval = 5 * time.Millisecond

// Config tunes the loop. Zero values select the defaults.
type Config struct {
	PollInterval time.Duration
	MaxDelta     int
	Dispatch     dispatch.Options
}

// Loop owns the receiver, the injector and the pointer target. Only Stop may
// be called from another goroutine.
type Loop struct {
	rx     transport.Receiver
	inj    inject.Injector
	disp   *dispatch.Dispatcher
	cfg    Config
	screen motion.Size
	target motion.Target
	logger *slog.Logger
	raw    log.RawLogger

	// stopRequested is the only state shared with the signal path.
	stopRequested atomic.Bool
	closeOnce     sync.Once
}

// New builds a loop with the target at the screen center. raw may be nil.
func New(rx transport.Receiver, inj inject.Injector, cfg Config, logger *slog.Logger, raw log.RawLogger) *Loop {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.MaxDelta <= 0 {
		cfg.MaxDelta = motion.DefaultMaxDelta
	}
	if raw == nil {
		raw = log.NewRaw(nil)
	}
	return &Loop{
		rx:     rx,
		inj:    inj,
		disp:   dispatch.New(inj, cfg.Dispatch, logger),
		cfg:    cfg,
		screen: inj.ScreenSize(),
		target: motion.Center(),
		logger: logger,
		raw:    raw,
	}
}

// Stop asks Run to return. It only stores a flag and may be called from a
// signal-handling goroutine at any time, any number of times.
func (l *Loop) Stop() {
	l.stopRequested.Store(true)
}

// Target returns the last commanded pointer target. Not safe to call while
// Run is active on another goroutine.
func (l *Loop) Target() motion.Target {
	return l.target
}

// Run processes messages until Stop is called or the receiver fails, then
// releases the receiver and the injector. It returns nil after Stop and the
// transport error otherwise.
func (l *Loop) Run() error {
	defer l.close()

	l.logger.Info("Control loop started",
		"poll", l.cfg.PollInterval,
		"maxDelta", l.cfg.MaxDelta,
		"screen", l.screen,
	)

	for !l.stopRequested.Load() {
		msg, ok, err := l.rx.Receive(l.cfg.PollInterval)
		if err != nil {
			if errors.Is(err, transport.ErrClosed) {
				if l.stopRequested.Load() {
					break
				}
				l.logger.Error("Transport closed unexpectedly", "error", err)
				return err
			}
			l.logger.Warn("Receive failed", "error", err)
			continue
		}
		if !ok {
			l.tick()
			continue
		}
		l.handle(msg)
	}

	l.logger.Info("Control loop stopping")
	return nil
}

// tick moves the pointer one step toward the target.
func (l *Loop) tick() {
	cur := l.inj.Location()
	next := motion.Step(l.target, cur, l.screen, l.cfg.MaxDelta)
	if next == cur {
		return
	}
	if err := l.inj.Move(next); err != nil {
		l.logger.Debug("Pointer move failed", "error", err)
	}
}

func (l *Loop) handle(msg []byte) {
	l.raw.Log(true, msg)

	cmd, err := protocol.Parse(msg)
	if err != nil {
		l.logger.Debug("Dropped message", "error", err, "len", len(msg))
		return
	}

	if err := l.disp.Dispatch(cmd, &l.target); err != nil {
		switch {
		case errors.Is(err, protocol.ErrUnknownCommand):
			l.logger.Warn("Ignoring unknown command", "error", err)
		case errors.Is(err, protocol.ErrInvalidSpecialKey):
			l.logger.Warn("Invalid special key sequence", "error", err)
		default:
			l.logger.Error("Injection failed", "command", cmd.Kind(), "error", err)
		}
		return
	}
	l.logger.Log(context.Background(), log.LevelTrace, "Dispatched", "command", cmd.String())
}

func (l *Loop) close() {
	l.closeOnce.Do(func() {
		if err := l.rx.Close(); err != nil {
			l.logger.Warn("Closing transport failed", "error", err)
		}
		if err := l.inj.Close(); err != nil {
			l.logger.Warn("Closing injector failed", "error", err)
		}
	})
}
