//go:build linux

package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

const (
	serviceName = "xinteract.service"
	serviceDir  = "/etc/systemd/system"
)

var servicePath = filepath.Join(serviceDir, serviceName)

func install(display, extraArgs string, logger *slog.Logger) error {
	if err := unix.Access(serviceDir, unix.W_OK); err != nil {
		return fmt.Errorf("cannot write %s (run as root): %w", serviceDir, err)
	}

	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to resolve executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exePath); err == nil {
		exePath = resolved
	}

	unit := systemdUnitContent(exePath, display, extraArgs)
	if err := os.WriteFile(servicePath, []byte(unit), 0o644); err != nil {
		return err
	}

	for _, args := range [][]string{
		{"daemon-reload"},
		{"enable", serviceName},
		{"restart", serviceName},
	} {
		if err := runSystemctl(args...); err != nil {
			return err
		}
	}

	logger.Info("xinteract systemd service installed", "path", servicePath, "exe", exePath, "display", display)
	return nil
}

func uninstall(logger *slog.Logger) error {
	var errs []error

	if err := runSystemctl("stop", serviceName); err != nil {
		errs = append(errs, err)
	}
	if err := runSystemctl("disable", serviceName); err != nil {
		errs = append(errs, err)
	}
	if err := os.Remove(servicePath); err != nil && !os.IsNotExist(err) {
		errs = append(errs, err)
	}
	if err := runSystemctl("daemon-reload"); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	logger.Info("xinteract systemd service removed", "path", servicePath)
	return nil
}

func systemdUnitContent(exePath, display, extraArgs string) string {
	execStart := fmt.Sprintf("%q daemon", exePath)
	if extraArgs = strings.TrimSpace(extraArgs); extraArgs != "" {
		execStart += " " + extraArgs
	}
	return fmt.Sprintf(`[Unit]
Description=xinteract input injection daemon
After=graphical.target network-online.target
Wants=network-online.target

[Service]
Type=simple
Environment=DISPLAY=%s
ExecStart=%s
WorkingDirectory=%s
Restart=on-failure

[Install]
WantedBy=graphical.target
`, display, execStart, filepath.Dir(exePath))
}

func runSystemctl(args ...string) error {
	cmd := exec.Command("systemctl", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("systemctl %s failed: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(output)))
	}
	return nil
}
