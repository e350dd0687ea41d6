//go:build linux

package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSystemdUnitContent(t *testing.T) {
	unit := systemdUnitContent("/opt/xinteract/xinteract", ":1", " --socket sub tcp://10.0.0.1:5555 ")

	assert.Contains(t, unit, "Environment=DISPLAY=:1\n")
	assert.Contains(t, unit, `ExecStart="/opt/xinteract/xinteract" daemon --socket sub tcp://10.0.0.1:5555`+"\n")
	assert.Contains(t, unit, "WorkingDirectory=/opt/xinteract\n")
	assert.Contains(t, unit, "WantedBy=graphical.target")

	plain := systemdUnitContent("/usr/bin/xinteract", ":0", "")
	assert.Contains(t, plain, `ExecStart="/usr/bin/xinteract" daemon`+"\n")
}
