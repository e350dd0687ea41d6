package log

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// RawLogger traces protocol messages as they cross the transport.
type RawLogger interface {
	Log(in bool, data []byte)
}

type rawLogger struct {
	w  io.Writer
	mu sync.Mutex
}

// NewRaw creates a RawLogger writing to w. A nil writer discards everything.
func NewRaw(w io.Writer) RawLogger {
	return &rawLogger{w: w}
}

// Log writes one line per message: timestamp, direction (in=true for
// received), length, quoted text and hex.
func (r *rawLogger) Log(in bool, data []byte) {
	if r.w == nil || len(data) == 0 {
		return
	}

	dir := "tx"
	if in {
		dir = "rx"
	}

	var hex strings.Builder
	const hexdigits = "0123456789abcdef"
	for i, b := range data {
		if i > 0 {
			hex.WriteByte(' ')
		}
		hex.WriteByte(hexdigits[b>>4])
		hex.WriteByte(hexdigits[b&0x0f])
	}

	line := fmt.Sprintf("%s %s %d bytes %q hex: %s\n",
		time.Now().Format("2006/01/02 15:04:05.000"),
		dir,
		len(data),
		data,
		hex.String())

	r.mu.Lock()
	_, _ = io.WriteString(r.w, line)
	r.mu.Unlock()
}
