// Package dispatch turns decoded commands into injector calls.
package dispatch

import (
	"fmt"
	"log/slog"

	"github.com/izzymg/rotcore/internal/inject"
	"github.com/izzymg/rotcore/internal/motion"
	"github.com/izzymg/rotcore/internal/protocol"
)

// Options tune command handling.
type Options struct {
	// TypeThenSpecial makes every T command also attempt a special-key send with
	// the same payload, as the first protocol implementation did.
	TypeThenSpecial bool
}

// Dispatcher applies commands to an injector. It is not safe for concurrent use.
type Dispatcher struct {
	inj    inject.Injector
	opts   Options
	logger *slog.Logger
}

// New returns a Dispatcher driving inj.
func New(inj inject.Injector, opts Options, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{inj: inj, opts: opts, logger: logger}
}

// Dispatch executes cmd. Move commands only update target; the pointer follows
// through interpolation. Returned errors wrap protocol.ErrUnknownCommand,
// protocol.ErrInvalidSpecialKey or an injector failure.
func (d *Dispatcher) Dispatch(cmd protocol.Command, target *motion.Target) error {
	switch c := cmd.(type) {
	case protocol.Move:
		*target = motion.Target{X: c.X, Y: c.Y}.Clamp()
		d.logger.Debug("target set", "x", target.X, "y", target.Y)
		return nil
	case protocol.Scroll:
		dir := inject.ScrollDown
		if c.Up() {
			dir = inject.ScrollUp
		}
		if err := d.inj.Scroll(dir); err != nil {
			return fmt.Errorf("scroll %s: %w", dir, err)
		}
		return nil
	case protocol.Click:
		b := inject.ClampButton(c.Button)
		if err := d.inj.Click(b); err != nil {
			return fmt.Errorf("click %s: %w", b, err)
		}
		return nil
	case protocol.TypeText:
		if err := d.inj.TypeText(c.Text); err != nil {
			return fmt.Errorf("type text: %w", err)
		}
		if d.opts.TypeThenSpecial {
			return d.sendSpecial(c.Text)
		}
		return nil
	case protocol.SendSpecial:
		return d.sendSpecial(c.Name)
	case protocol.Unknown:
		return fmt.Errorf("%w: tag %q", protocol.ErrUnknownCommand, c.Tag)
	default:
		return fmt.Errorf("%w: %T", protocol.ErrUnknownCommand, cmd)
	}
}

func (d *Dispatcher) sendSpecial(name string) error {
	if !protocol.IsSpecialKey(name) {
		return fmt.Errorf("%w: %q", protocol.ErrInvalidSpecialKey, name)
	}
	if err := d.inj.KeySequence(name); err != nil {
		return fmt.Errorf("special key %q: %w", name, err)
	}
	return nil
}
