package protocol

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Parse decodes one raw message. Length violations return ErrMalformedMessage;
// an unrecognized tag is not an error and yields Unknown.
func Parse(msg []byte) (Command, error) {
	if len(msg) < MinMessageLen || len(msg) > MaxMessageLen {
		return nil, fmt.Errorf("%w: length %d outside %d..%d", ErrMalformedMessage, len(msg), MinMessageLen, MaxMessageLen)
	}

	tag := msg[0]
	payload := ""
	if len(msg) > 2 {
		// tag, one separator byte, payload
		payload = string(msg[2:])
	}

	switch tag {
	case TagMove:
		if len(msg) > maxMoveLen {
			return nil, fmt.Errorf("%w: move length %d exceeds %d", ErrMalformedMessage, len(msg), maxMoveLen)
		}
		fields := strings.Fields(payload)
		var mv Move
		if len(fields) > 0 {
			mv.X = parseFraction(fields[0])
		}
		if len(fields) > 1 {
			mv.Y = parseFraction(fields[1])
		}
		return mv, nil
	case TagScroll:
		return Scroll{Amount: parseInt(payload, maxNumberLen)}, nil
	case TagClick:
		return Click{Button: parseInt(payload, maxNumberLen)}, nil
	case TagText:
		if payload == "" || len(payload) > maxTextLen {
			return nil, fmt.Errorf("%w: text length %d outside 1..%d", ErrMalformedMessage, len(payload), maxTextLen)
		}
		return TypeText{Text: payload}, nil
	case TagSpecial:
		if payload == "" || len(payload) > maxSpecialLen {
			return nil, fmt.Errorf("%w: key name length %d outside 1..%d", ErrMalformedMessage, len(payload), maxSpecialLen)
		}
		return SendSpecial{Name: payload}, nil
	default:
		return Unknown{Tag: tag}, nil
	}
}

// parseFraction falls back to 0 for text that is not a finite number, so a
// bad field never discards the other one.
func parseFraction(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return 0
	}
	return v
}

// parseInt reads a decimal integer the way a scanf conversion with a field
// width does: leading blanks are skipped, then at most width bytes of sign and
// digits are consumed. Anything unparsable is 0.
func parseInt(s string, width int) int {
	s = strings.TrimLeft(s, " \t")
	if len(s) > width {
		s = s[:width]
	}
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}
