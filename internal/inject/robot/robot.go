// Package robot implements inject.Injector on top of robotgo.
package robot

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"runtime"

	"github.com/go-vgo/robotgo"
	"github.com/kbinani/screenshot"

	"github.com/izzymg/rotcore/internal/inject"
	"github.com/izzymg/rotcore/internal/motion"
)

// keyNames maps the protocol's X11 keysym names onto robotgo key names.
var keyNames = map[string]string{
	"BackSpace": "backspace",
	"Down":      "down",
	"Left":      "left",
	"Return":    "enter",
	"Right":     "right",
	"Tab":       "tab",
	"Up":        "up",
	"space":     "space",
}

// Injector drives the primary display through robotgo. Pointer coordinates are
// relative to the primary display's origin.
type Injector struct {
	origin image.Point
	size   motion.Size
	logger *slog.Logger
}

// New attaches to the primary display. A non-zero override replaces the
// detected screen size.
func New(override motion.Size, logger *slog.Logger) (*Injector, error) {
	if runtime.GOOS == "linux" && os.Getenv("DISPLAY") == "" {
		return nil, fmt.Errorf("%w: DISPLAY is not set", inject.ErrInitialization)
	}

	var bounds image.Rectangle
	if screenshot.NumActiveDisplays() > 0 {
		bounds = screenshot.GetDisplayBounds(0)
	} else {
		w, h := robotgo.GetScreenSize()
		bounds = image.Rect(0, 0, w, h)
	}

	size := motion.Size{W: bounds.Dx(), H: bounds.Dy()}
	if override.W > 0 && override.H > 0 {
		size = override
	}
	if size.W <= 0 || size.H <= 0 {
		return nil, fmt.Errorf("%w: no usable display (size %dx%d)", inject.ErrInitialization, size.W, size.H)
	}

	logger.Info("Attached to display", "origin", bounds.Min, "width", size.W, "height", size.H)
	return &Injector{origin: bounds.Min, size: size, logger: logger}, nil
}

func (r *Injector) ScreenSize() motion.Size { return r.size }

func (r *Injector) Location() motion.Point {
	x, y := robotgo.Location()
	return motion.Point{X: x - r.origin.X, Y: y - r.origin.Y}
}

func (r *Injector) Move(p motion.Point) error {
	robotgo.Move(p.X+r.origin.X, p.Y+r.origin.Y)
	return nil
}

func (r *Injector) Click(b inject.Button) error {
	switch b {
	case inject.ButtonLeft:
		robotgo.Click("left")
	case inject.ButtonMiddle:
		robotgo.Click("center")
	case inject.ButtonRight:
		robotgo.Click("right")
	default:
		return fmt.Errorf("click: unsupported button %d", b)
	}
	return nil
}

func (r *Injector) Scroll(d inject.ScrollDirection) error {
	robotgo.ScrollDir(1, d.String())
	return nil
}

func (r *Injector) KeySequence(name string) error {
	key, ok := keyNames[name]
	if !ok {
		return fmt.Errorf("key sequence: no mapping for %q", name)
	}
	if err := robotgo.KeyTap(key); err != nil {
		return fmt.Errorf("key sequence %q: %w", name, err)
	}
	return nil
}

func (r *Injector) TypeText(text string) error {
	robotgo.TypeStr(text)
	return nil
}

// Close releases nothing; robotgo holds no per-injector handle.
func (r *Injector) Close() error {
	r.logger.Debug("Injector closed")
	return nil
}
