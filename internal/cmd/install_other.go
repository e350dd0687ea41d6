//go:build !linux

package cmd

import (
	"errors"
	"log/slog"
)

var errInstallUnsupported = errors.New("service installation is only supported on linux")

func install(_, _ string, _ *slog.Logger) error { return errInstallUnsupported }

func uninstall(_ *slog.Logger) error { return errInstallUnsupported }
