package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/izzymg/rotcore/internal/log"
	"github.com/izzymg/rotcore/internal/protocol"
	"github.com/izzymg/rotcore/internal/transport"
)

// Send writes protocol messages to a daemon, from arguments or stdin.
type Send struct {
	Commands []string `arg:"" optional:"" help:"Commands to send, one message each. Read from stdin when omitted."`

	Address  string `help:"Endpoint to send to. XI_ADDRESS takes precedence."`
	Socket   string `help:"Socket type of the receiving daemon" enum:"pull,sub" default:"pull"`
	Connect  bool   `help:"Connect to the endpoint instead of binding it"`
	Topic    string `help:"Topic prefix for sub daemons" default:"X11"`
	User     string `help:"PLAIN username for ZeroMQ sockets" env:"XI_USER"`
	Password string `help:"PLAIN password for ZeroMQ sockets" env:"XI_PASSWORD"`

	Force    bool          `help:"Send commands that fail local validation"`
	Delay    time.Duration `help:"Wait before the first message so the daemon can connect" default:"500ms"`
	Interval time.Duration `help:"Pause between messages" default:"0s"`
}

// Run is called by Kong when the send command is executed.
func (s *Send) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := resolveAddress(os.LookupEnv, s.Address)
	tx, err := transport.Dial(ctx, addr, transport.Options{
		Socket:   s.Socket,
		Bind:     !s.Connect,
		Topic:    s.Topic,
		User:     s.User,
		Password: s.Password,
	}, logger)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Close() }()

	if err := sleep(ctx, s.Delay); err != nil {
		return nil
	}

	switch {
	case len(s.Commands) > 0:
		return s.SendAll(ctx, tx, s.Commands, logger, rawLogger)
	case term.IsTerminal(int(os.Stdin.Fd())):
		return s.prompt(ctx, tx, logger, rawLogger)
	default:
		return s.SendLines(ctx, tx, os.Stdin, logger, rawLogger)
	}
}

// SendAll validates every command before sending any of them.
func (s *Send) SendAll(ctx context.Context, tx transport.Sender, cmds []string, logger *slog.Logger, rawLogger log.RawLogger) error {
	if !s.Force {
		for _, c := range cmds {
			if err := validate(c); err != nil {
				return fmt.Errorf("rejected %q: %w", c, err)
			}
		}
	}
	for i, c := range cmds {
		if i > 0 {
			if err := sleep(ctx, s.Interval); err != nil {
				return nil
			}
		}
		if err := s.send(tx, c, rawLogger); err != nil {
			return err
		}
		logger.Debug("Sent", "command", c)
	}
	return nil
}

// SendLines sends one message per non-empty line of r. Invalid lines are
// logged and skipped.
func (s *Send) SendLines(ctx context.Context, tx transport.Sender, r io.Reader, logger *slog.Logger, rawLogger log.RawLogger) error {
	sc := bufio.NewScanner(r)
	sent := 0
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		if !s.Force {
			if err := validate(line); err != nil {
				logger.Warn("Rejected command", "command", line, "error", err)
				continue
			}
		}
		if sent > 0 {
			if err := sleep(ctx, s.Interval); err != nil {
				return nil
			}
		}
		if err := s.send(tx, line, rawLogger); err != nil {
			return err
		}
		sent++
	}
	logger.Debug("Input exhausted", "sent", sent)
	return sc.Err()
}

func (s *Send) prompt(ctx context.Context, tx transport.Sender, logger *slog.Logger, rawLogger log.RawLogger) error {
	fd := int(os.Stdin.Fd())
	old, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("failed to enter raw mode: %w", err)
	}
	defer func() { _ = term.Restore(fd, old) }()

	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{os.Stdin, os.Stdout}, "xinteract> ")

	for ctx.Err() == nil {
		line, err := t.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if line == "" {
			continue
		}
		if !s.Force {
			if err := validate(line); err != nil {
				_, _ = fmt.Fprintf(t, "rejected: %v\n", err)
				continue
			}
		}
		if err := s.send(tx, line, rawLogger); err != nil {
			logger.Error("Send failed", "error", err)
			return err
		}
	}
	return nil
}

func (s *Send) send(tx transport.Sender, cmd string, rawLogger log.RawLogger) error {
	msg := []byte(cmd)
	rawLogger.Log(false, msg)
	if err := tx.Send(msg); err != nil {
		return fmt.Errorf("send %q: %w", cmd, err)
	}
	return nil
}

// validate accepts only commands the daemon would act on.
func validate(cmd string) error {
	c, err := protocol.Parse([]byte(cmd))
	if err != nil {
		return err
	}
	switch v := c.(type) {
	case protocol.Unknown:
		return fmt.Errorf("%w: tag %q", protocol.ErrUnknownCommand, v.Tag)
	case protocol.SendSpecial:
		if !protocol.IsSpecialKey(v.Name) {
			return fmt.Errorf("%w: %q", protocol.ErrInvalidSpecialKey, v.Name)
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
