// Package protocol decodes the xinteract text command protocol.
//
// Every message is a single ASCII command of at most MaxMessageLen bytes:
//
//	M <x> <y>   set the pointer target as fractions of the screen
//	S <n>       scroll, n < 1 scrolls down, otherwise up
//	C <n>       click button n (clamped to 1..3 by the dispatcher)
//	T <text>    type literal text into the focused window
//	X <name>    send a named special key from the allow-list
package protocol

import (
	"errors"
	"fmt"
)

const (
	// MinMessageLen is the shortest accepted message: a tag and one more byte.
	MinMessageLen = 2
	// MaxMessageLen bounds every message regardless of tag.
	MaxMessageLen = 20

	maxMoveLen    = 10 // whole message
	maxNumberLen  = 3  // field width of S/C integers
	maxTextLen    = 20 // payload
	maxSpecialLen = 10 // payload
)

// Command tags.
const (
	TagMove    byte = 'M'
	TagScroll  byte = 'S'
	TagClick   byte = 'C'
	TagText    byte = 'T'
	TagSpecial byte = 'X'
)

var (
	ErrMalformedMessage  = errors.New("malformed message")
	ErrUnknownCommand    = errors.New("unknown command")
	ErrInvalidSpecialKey = errors.New("invalid special key")
)

// Kind identifies a Command variant.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindMove
	KindScroll
	KindClick
	KindTypeText
	KindSendSpecial
)

func (k Kind) String() string {
	switch k {
	case KindMove:
		return "move"
	case KindScroll:
		return "scroll"
	case KindClick:
		return "click"
	case KindTypeText:
		return "type"
	case KindSendSpecial:
		return "special"
	default:
		return "unknown"
	}
}

// Command is one decoded message. The concrete type is one of Move, Scroll,
// Click, TypeText, SendSpecial or Unknown.
type Command interface {
	Kind() Kind
	fmt.Stringer
}

// Move sets the pointer target. X and Y are fractions of the screen size and
// are not clamped here.
type Move struct {
	X, Y float64
}

// Scroll carries the signed amount as sent; only its direction matters.
type Scroll struct {
	Amount int
}

// Click carries the button code as sent.
type Click struct {
	Button int
}

// TypeText is typed verbatim into the focused window.
type TypeText struct {
	Text string
}

// SendSpecial names a key from the special-key table. Membership is checked
// at dispatch, not here.
type SendSpecial struct {
	Name string
}

// Unknown is produced for any tag outside the protocol.
type Unknown struct {
	Tag byte
}

func (Move) Kind() Kind        { return KindMove }
func (Scroll) Kind() Kind      { return KindScroll }
func (Click) Kind() Kind       { return KindClick }
func (TypeText) Kind() Kind    { return KindTypeText }
func (SendSpecial) Kind() Kind { return KindSendSpecial }
func (Unknown) Kind() Kind     { return KindUnknown }

func (m Move) String() string        { return fmt.Sprintf("M %g %g", m.X, m.Y) }
func (s Scroll) String() string      { return fmt.Sprintf("S %d", s.Amount) }
func (c Click) String() string       { return fmt.Sprintf("C %d", c.Button) }
func (t TypeText) String() string    { return "T " + t.Text }
func (s SendSpecial) String() string { return "X " + s.Name }
func (u Unknown) String() string     { return fmt.Sprintf("unknown tag %q", u.Tag) }

// Up reports whether the scroll goes up. Any amount below 1 scrolls down.
func (s Scroll) Up() bool {
	return s.Amount >= 1
}
