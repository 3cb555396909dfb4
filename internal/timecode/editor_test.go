package timecode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestField_TypeDigitFillsHours(t *testing.T) {
	f := NewField(Zero)

	f.TypeDigit('5')
	assert.Equal(t, "05:00:00", f.Text())
	assert.Equal(t, 1, f.Caret())

	f.TypeDigit('3')
	assert.Equal(t, "53:00:00", f.Text())
	assert.Equal(t, 3, f.Caret())
}

func TestField_TypeDigitWalksAllFields(t *testing.T) {
	f := NewField(Zero)
	for _, d := range []byte("012345") {
		f.TypeDigit(d)
	}

	assert.Equal(t, "01:23:45", f.Text())
	assert.Equal(t, 8, f.Caret())

	// caret stays clamped at the end and keeps shifting seconds
	f.TypeDigit('9')
	assert.Equal(t, "01:23:59", f.Text())
	assert.Equal(t, 8, f.Caret())
}

func TestField_TypeDigitIgnoresNonDigits(t *testing.T) {
	f := NewField(Zero)
	f.TypeDigit('x')

	assert.Equal(t, Zero, f.Text())
	assert.Equal(t, 0, f.Caret())
}

func TestField_Backspace(t *testing.T) {
	f := NewField("12:34:56")
	f.Focus(7)
	assert.Equal(t, "12:34:00", f.Text())
	assert.Equal(t, 6, f.Caret())

	f.TypeDigit('4')
	f.TypeDigit('2')
	assert.Equal(t, "12:34:42", f.Text())
	assert.Equal(t, 8, f.Caret())

	f.Backspace()
	assert.Equal(t, "12:34:04", f.Text())
	assert.Equal(t, 8, f.Caret())

	f.Backspace()
	assert.Equal(t, "12:34:00", f.Text())
}

func TestField_FocusResetsOnlyActiveField(t *testing.T) {
	tests := []struct {
		name      string
		pos       int
		wantText  string
		wantCaret int
	}{
		{"hours", 1, "00:34:56", 0},
		{"colon belongs to minutes", 2, "12:00:56", 3},
		{"minutes", 4, "12:00:56", 3},
		{"colon belongs to seconds", 5, "12:34:00", 6},
		{"end of buffer", 8, "12:34:00", 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewField("12:34:56")
			f.Focus(tt.pos)
			assert.Equal(t, tt.wantText, f.Text())
			assert.Equal(t, tt.wantCaret, f.Caret())
		})
	}
}

func TestField_FocusNormalizesBufferWithoutColon(t *testing.T) {
	f := NewField("")
	f.Focus(4)

	assert.Equal(t, Zero, f.Text())
	assert.Equal(t, 3, f.Caret())
}

func TestField_MalformedBufferIsNormalized(t *testing.T) {
	f := NewField("1:2:3")
	f.TypeDigit('7')

	assert.Equal(t, "17:02:03", f.Text())
}

func TestField_Independent(t *testing.T) {
	start := NewField(Zero)
	end := NewField(Zero)

	start.TypeDigit('1')
	assert.Equal(t, "01:00:00", start.Text())
	assert.Equal(t, Zero, end.Text())
	assert.Equal(t, 0, end.Caret())
}
