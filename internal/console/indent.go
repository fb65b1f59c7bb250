package console

import (
	"strings"
	"unicode"
)

// openers are the trailing characters that start a nested block.
const openers = ":[{("

// blankRunToTerminate is how many consecutive blank lines end a statement
// when automatic indentation is off.
const blankRunToTerminate = 3

// IndentTracker computes the whitespace pre-filled into each continuation
// line. It moves by at most one unit per line.
type IndentTracker struct {
	unit    string
	current string
	opener  rune
	enabled bool
	blanks  int
}

func NewIndentTracker(unit string, enabled bool) *IndentTracker {
	if unit == "" {
		unit = "    "
	}
	return &IndentTracker{unit: unit, enabled: enabled}
}

// Current is the indent to pre-fill on the next read.
func (t *IndentTracker) Current() string {
	if !t.enabled {
		return ""
	}
	return t.current
}

// Opener is the character that opened the current level, or zero.
func (t *IndentTracker) Opener() rune { return t.opener }

// Level counts whole indent units in the current indent.
func (t *IndentTracker) Level() int {
	return strings.Count(t.current, t.unit)
}

func (t *IndentTracker) Enabled() bool { return t.enabled }

// Toggle flips automatic indentation and returns the new setting.
func (t *IndentTracker) Toggle() bool {
	t.enabled = !t.enabled
	t.blanks = 0
	return t.enabled
}

func (t *IndentTracker) Reset() {
	t.current = ""
	t.opener = 0
	t.blanks = 0
}

// Update follows a line that was fed to the interpreter. more reports
// whether the statement is still open.
func (t *IndentTracker) Update(line string, more bool) {
	if !more {
		t.Reset()
		return
	}
	trimmed := strings.TrimRightFunc(line, unicode.IsSpace)
	if trimmed == "" {
		return
	}
	last := rune(trimmed[len(trimmed)-1])
	if strings.ContainsRune(openers, last) {
		t.current += t.unit
		t.opener = last
	}
}

// Filter adjusts a continuation line before it reaches the interpreter. It
// returns the line to feed and false when the line must be held back.
func (t *IndentTracker) Filter(line string) (string, bool) {
	blank := strings.TrimSpace(line) == ""
	if !t.enabled {
		if !blank {
			t.blanks = 0
			return line, true
		}
		t.blanks++
		if t.blanks < blankRunToTerminate {
			return "", false
		}
		t.blanks = 0
		return "", true
	}
	if blank {
		t.current = strings.TrimSuffix(t.current, t.unit)
		if t.current == "" {
			t.opener = 0
		}
		return t.current, true
	}
	if lead := leadingSpace(line); lead != t.current {
		t.current = lead
	}
	return line, true
}

func leadingSpace(s string) string {
	return s[:len(s)-len(strings.TrimLeftFunc(s, unicode.IsSpace))]
}
