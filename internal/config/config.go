// Package config defines the command line and configuration file surface.
package config

import "github.com/izzymg/rotcore/internal/cmd"

type Log struct {
	Level   string `help:"Log level" enum:"trace,debug,info,warn,error" default:"info" env:"XINTERACT_LOG_LEVEL"`
	File    string `help:"Also write logs to this file" env:"XINTERACT_LOG_FILE"`
	RawFile string `help:"Write a trace of every protocol message to this file" env:"XINTERACT_LOG_RAW_FILE"`
}

// CLI is the root kong command tree. Running without a command starts the
// daemon, so "xinteract tcp://host:port" works as a bare invocation.
type CLI struct {
	ConfigFile string `name:"config" help:"Configuration file (json, yaml or toml)" type:"path" env:"XINTERACT_CONFIG"`
	Log        Log    `embed:"" prefix:"log."`

	Daemon    cmd.Daemon        `cmd:"" default:"withargs" help:"Receive commands and inject them into the display"`
	Send      cmd.Send          `cmd:"" help:"Send commands to a running daemon"`
	Config    cmd.ConfigCommand `cmd:"" help:"Configuration helpers"`
	Install   cmd.Install       `cmd:"" help:"Install the daemon as a systemd service (linux)"`
	Uninstall cmd.Uninstall     `cmd:"" help:"Remove the systemd service (linux)"`
}
