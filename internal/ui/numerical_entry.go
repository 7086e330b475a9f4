package ui

import (
	"strconv"

	"fyne.io/fyne/v2/driver/mobile"
	"fyne.io/fyne/v2/widget"
)

// NumericalEntry is an Entry that only accepts digits. Min and Max bound the
// value returned by Value; a Max of zero leaves it unbounded.
type NumericalEntry struct {
	widget.Entry

	Min int
	Max int
}

// NewNumericalEntry creates a numeric entry bounded to [lo, hi].
func NewNumericalEntry(lo, hi int) *NumericalEntry {
	entry := &NumericalEntry{Min: lo, Max: hi}
	entry.ExtendBaseWidget(entry)
	return entry
}

// TypedRune drops anything but 0-9. Pasted text bypasses this and is caught
// by Value or the Validator.
func (e *NumericalEntry) TypedRune(r rune) {
	if r >= '0' && r <= '9' {
		e.Entry.TypedRune(r)
	}
}

// Keyboard shows a numeric keypad on mobile.
func (e *NumericalEntry) Keyboard() mobile.KeyboardType {
	return mobile.NumberKeyboard
}

// Value parses the text. It reports false when the text is not a number or
// falls outside the bounds.
func (e *NumericalEntry) Value() (int, bool) {
	v, err := strconv.Atoi(e.Text)
	if err != nil {
		return 0, false
	}
	if v < e.Min || (e.Max > 0 && v > e.Max) {
		return v, false
	}
	return v, true
}
