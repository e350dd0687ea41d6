// Package inject defines the input injection backend used by the daemon.
package inject

import (
	"errors"

	"github.com/izzymg/rotcore/internal/motion"
)

// ErrInitialization is returned when a backend cannot attach to the display.
var ErrInitialization = errors.New("injector initialization failed")

// Button is a pointer button code: 1 left, 2 middle, 3 right.
type Button int

const (
	ButtonLeft   Button = 1
	ButtonMiddle Button = 2
	ButtonRight  Button = 3
)

func (b Button) String() string {
	switch b {
	case ButtonLeft:
		return "left"
	case ButtonMiddle:
		return "middle"
	case ButtonRight:
		return "right"
	default:
		return "invalid"
	}
}

// ClampButton maps any integer onto a valid button.
func ClampButton(code int) Button {
	if code < int(ButtonLeft) {
		return ButtonLeft
	}
	if code > int(ButtonRight) {
		return ButtonRight
	}
	return Button(code)
}

// ScrollDirection is one wheel notch up or down.
type ScrollDirection int

const (
	ScrollDown ScrollDirection = iota
	ScrollUp
)

func (d ScrollDirection) String() string {
	if d == ScrollUp {
		return "up"
	}
	return "down"
}

// Injector simulates pointer and keyboard input on a display.
// Implementations are used from a single goroutine.
type Injector interface {
	// ScreenSize reports the size of the display pointer coordinates map onto.
	ScreenSize() motion.Size
	Location() motion.Point
	Move(p motion.Point) error
	Click(b Button) error
	Scroll(d ScrollDirection) error
	// KeySequence presses and releases a named key from the special-key table.
	KeySequence(name string) error
	// TypeText types text into the focused window verbatim.
	TypeText(text string) error
	Close() error
}
