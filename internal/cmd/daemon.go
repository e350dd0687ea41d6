package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/izzymg/rotcore/internal/daemon"
	"github.com/izzymg/rotcore/internal/dispatch"
	"github.com/izzymg/rotcore/internal/inject"
	"github.com/izzymg/rotcore/internal/log"
	"github.com/izzymg/rotcore/internal/motion"
	"github.com/izzymg/rotcore/internal/transport"
)

// InjectorFactory opens the input backend. A zero override selects the
// detected screen size.
type InjectorFactory func(override motion.Size, logger *slog.Logger) (inject.Injector, error)

// Daemon receives protocol messages and injects them into the local display.
type Daemon struct {
	Address string `arg:"" optional:"" help:"Endpoint to receive commands on. XI_ADDRESS takes precedence."`

	Socket   string `help:"ZeroMQ socket type" enum:"pull,sub" default:"pull"`
	Bind     bool   `help:"Bind the endpoint instead of connecting to it"`
	Topic    string `help:"Subscription topic for sub sockets" default:"X11"`
	User     string `help:"PLAIN username for ZeroMQ sockets" env:"XI_USER"`
	Password string `help:"PLAIN password for ZeroMQ sockets" env:"XI_PASSWORD"`

	PollInterval time.Duration `help:"How long one idle poll waits for a message" default:"5ms"`
	MaxStep      int           `help:"Maximum pointer movement per axis per poll, in pixels" default:"10"`
	ScreenWidth  int           `help:"Override the detected screen width"`
	ScreenHeight int           `help:"Override the detected screen height"`

	LegacyTextFallthrough bool `help:"Also send every T payload as a special key"`
}

// Run is called by Kong when the daemon command is executed.
func (d *Daemon) Run(logger *slog.Logger, rawLogger log.RawLogger, newInjector InjectorFactory) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	inj, err := newInjector(motion.Size{W: d.ScreenWidth, H: d.ScreenHeight}, logger)
	if err != nil {
		return err
	}
	return d.RunDaemon(ctx, os.LookupEnv, inj, logger, rawLogger)
}

// RunDaemon serves commands into inj until ctx is cancelled. inj is closed on
// return.
func (d *Daemon) RunDaemon(ctx context.Context, lookupEnv func(string) (string, bool), inj inject.Injector, logger *slog.Logger, rawLogger log.RawLogger) error {
	addr := resolveAddress(lookupEnv, d.Address)
	logger.Info("Starting xinteract daemon", "addr", addr, "socket", d.Socket, "bind", d.Bind)

	// Not ctx: the loop closes the socket itself once Stop has landed.
	rx, err := transport.Listen(context.Background(), addr, d.transportOptions(), logger)
	if err != nil {
		_ = inj.Close()
		return fmt.Errorf("failed to open %s: %w", addr, err)
	}

	loop := daemon.New(rx, inj, daemon.Config{
		PollInterval: d.PollInterval,
		MaxDelta:     d.MaxStep,
		Dispatch:     dispatch.Options{TypeThenSpecial: d.LegacyTextFallthrough},
	}, logger, rawLogger)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			logger.Info("Shutdown requested")
			loop.Stop()
		case <-done:
		}
	}()

	if err := loop.Run(); err != nil {
		return fmt.Errorf("control loop: %w", err)
	}
	logger.Info("Daemon stopped")
	return nil
}

func (d *Daemon) transportOptions() transport.Options {
	return transport.Options{
		Socket:   d.Socket,
		Bind:     d.Bind,
		Topic:    d.Topic,
		User:     d.User,
		Password: d.Password,
	}
}
