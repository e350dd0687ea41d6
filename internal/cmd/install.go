package cmd

import "log/slog"

// Install registers the daemon as a systemd service.
type Install struct {
	Display string `help:"X display the service injects into" default:":0"`
	Args    string `help:"Extra arguments appended to the daemon command line"`
}

// Run is called by Kong when the install command is executed.
func (i *Install) Run(logger *slog.Logger) error {
	return install(i.Display, i.Args, logger)
}

// Uninstall stops and removes the systemd service.
type Uninstall struct{}

// Run is called by Kong when the uninstall command is executed.
func (u *Uninstall) Run(logger *slog.Logger) error {
	return uninstall(logger)
}
