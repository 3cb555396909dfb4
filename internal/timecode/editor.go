package timecode

import "strings"

const (
	maskLength   = len(Zero)
	hoursStart   = 0
	minutesStart = 3
	secondsStart = 6
)

// Field is the state of one masked HH:MM:SS text box: the buffer and the
// caret position. Start and end fields are independent instances.
type Field struct {
	text  string
	caret int
}

// NewField creates a field holding text with the caret at 0
func NewField(text string) *Field {
	return &Field{text: text}
}

// Text returns the current buffer
func (f *Field) Text() string {
	return f.text
}

// Caret returns the current caret position
func (f *Field) Caret() int {
	return f.caret
}

// SetText replaces the buffer and keeps the caret inside it
func (f *Field) SetText(text string) {
	f.text = text
	if f.caret > len(text) {
		f.caret = len(text)
	}
}

// Clear empties the buffer
func (f *Field) Clear() {
	f.text = ""
	f.caret = 0
}

// Focus resets the sub-field under pos to 00 and moves the caret to its start.
// A buffer without any colon is first normalized to 00:00:00.
func (f *Field) Focus(pos int) {
	if !strings.Contains(f.text, ":") {
		f.text = Zero
	}
	f.ensureMask()

	start := subFieldStart(clampCaret(pos))
	buf := []byte(f.text)
	buf[start] = '0'
	buf[start+1] = '0'
	f.text = string(buf)
	f.caret = start
}

// TypeDigit shifts the active sub-field left and inserts d as its low digit,
// then advances the caret past any colon. Non-digits are ignored.
func (f *Field) TypeDigit(d byte) {
	if d < '0' || d > '9' {
		return
	}
	f.ensureMask()

	start := subFieldStart(f.caret)
	buf := []byte(f.text)
	buf[start] = buf[start+1]
	buf[start+1] = d
	f.text = string(buf)

	next := f.caret + 1
	if next == 2 || next == 5 {
		next++
	}
	f.caret = clampCaret(next)
}

// Backspace shifts the active sub-field right: the high digit becomes 0 and
// the low digit takes the old high digit. The caret does not move.
func (f *Field) Backspace() {
	f.ensureMask()

	start := subFieldStart(f.caret)
	buf := []byte(f.text)
	buf[start+1] = buf[start]
	buf[start] = '0'
	f.text = string(buf)
}

// ensureMask rewrites a buffer that is not a well-formed 8-character mask
func (f *Field) ensureMask() {
	if isMask(f.text) {
		return
	}
	f.text = SecondsToText(TextToSeconds(f.text))
	if !isMask(f.text) {
		// more than 99 hours cannot be edited digit by digit
		f.text = Zero
	}
	f.caret = clampCaret(f.caret)
}

func isMask(text string) bool {
	if len(text) != maskLength || text[2] != ':' || text[5] != ':' {
		return false
	}
	for i := 0; i < maskLength; i++ {
		if i == 2 || i == 5 {
			continue
		}
		if text[i] < '0' || text[i] > '9' {
			return false
		}
	}
	return true
}

// subFieldStart maps a caret position to the first index of its sub-field.
// The colon at index 2 or 5 belongs to the following sub-field.
func subFieldStart(pos int) int {
	switch {
	case pos < 2:
		return hoursStart
	case pos < 5:
		return minutesStart
	default:
		return secondsStart
	}
}

func clampCaret(pos int) int {
	if pos < 0 {
		return 0
	}
	if pos > maskLength {
		return maskLength
	}
	return pos
}
