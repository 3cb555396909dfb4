package controller

import (
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/timecode"
)

// minimumWindow is the span kept before the end when start is clamped
const minimumWindow = 60

// RangeField selects the start or end time field
type RangeField string

const (
	FieldStart RangeField = "start"
	FieldEnd   RangeField = "end"
)

// KeyAction is one editing operation on a time field
type KeyAction string

const (
	KeyDigit     KeyAction = "digit"
	KeyBackspace KeyAction = "backspace"
	KeyFocus     KeyAction = "focus"
)

// KeyEvent is a single editor input. Digit is used by KeyDigit and Position
// by KeyFocus.
type KeyEvent struct {
	Action   KeyAction `json:"action"`
	Digit    string    `json:"digit,omitempty"`
	Position int       `json:"position,omitempty"`
}

// RangeCheck is the outcome of validating a time range against a duration
type RangeCheck struct {
	Start        string
	End          string
	EffectiveEnd int64
	Err          error
}

// ValidateRange applies the clamping corrections for a known duration and
// reports whether the corrected range is usable. An empty end means "to the
// end of the media" and is left empty.
func ValidateRange(start, end string, duration int64) RangeCheck {
	check := RangeCheck{Start: start, End: end}
	if duration <= 0 {
		return check
	}

	if end != "" && timecode.TextToSeconds(end) > duration {
		check.End = timecode.SecondsToText(duration)
	}
	if timecode.TextToSeconds(start) >= duration {
		clamped := duration - minimumWindow
		if clamped < 0 {
			clamped = 0
		}
		check.Start = timecode.SecondsToText(clamped)
	}

	check.EffectiveEnd = duration
	if check.End != "" {
		check.EffectiveEnd = timecode.TextToSeconds(check.End)
	}
	if timecode.TextToSeconds(check.Start) >= check.EffectiveEnd {
		check.Err = ErrInvalidRange
	}
	return check
}

// SetRange replaces the text of one time field and re-validates
func (c *Controller) SetRange(field RangeField, text string) error {
	return c.do(func() {
		c.field(field).SetText(text)
		c.validateRange()
		c.changed()
	})
}

// EditRange applies editor key events to one time field in order and
// re-validates after each of them.
func (c *Controller) EditRange(field RangeField, keys ...KeyEvent) error {
	return c.do(func() {
		f := c.field(field)
		for _, key := range keys {
			switch key.Action {
			case KeyDigit:
				if len(key.Digit) == 1 {
					f.TypeDigit(key.Digit[0])
				}
			case KeyBackspace:
				f.Backspace()
			case KeyFocus:
				f.Focus(key.Position)
			}
			c.validateRange()
		}
		c.changed()
	})
}

func (c *Controller) field(field RangeField) *timecode.Field {
	if field == FieldEnd {
		return c.end
	}
	return c.start
}

// validateRange clamps the fields in place. It only applies to videos with a
// known duration.
func (c *Controller) validateRange() {
	if !c.ref.IsVideo() || !c.preview.HasDuration() {
		return
	}

	check := ValidateRange(c.start.Text(), c.end.Text(), *c.preview.Duration)
	if check.Start != c.start.Text() {
		c.logger.Debugf("Clamped start time %s to %s", c.start.Text(), check.Start)
		c.start.SetText(check.Start)
	}
	if check.End != c.end.Text() {
		c.logger.Debugf("Clamped end time %s to %s", c.end.Text(), check.End)
		c.end.SetText(check.End)
	}
}

// rangeError returns the blocking range error, if any
func (c *Controller) rangeError() error {
	if !c.ref.IsVideo() || !c.preview.HasDuration() {
		return nil
	}
	return ValidateRange(c.start.Text(), c.end.Text(), *c.preview.Duration).Err
}

// rangeSeconds returns the selected span in seconds, or false when the
// duration is unknown.
func (c *Controller) rangeSeconds() (int64, bool) {
	if !c.ref.IsVideo() || !c.preview.HasDuration() {
		return 0, false
	}
	check := ValidateRange(c.start.Text(), c.end.Text(), *c.preview.Duration)
	span := check.EffectiveEnd - timecode.TextToSeconds(check.Start)
	if span < 0 {
		span = 0
	}
	return span, true
}
