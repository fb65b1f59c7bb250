package console

import "strings"

// Executor feeds lines to an Interpreter, holding fragments until they form
// a complete statement.
type Executor struct {
	interp  Interpreter
	history *SessionHistory
	buffer  []string
}

func NewExecutor(interp Interpreter, history *SessionHistory) *Executor {
	return &Executor{interp: interp, history: history}
}

// Push appends line to the pending buffer and runs it. more is true while
// the statement is incomplete. Once it completes, successfully or not, its
// lines move into the session history and the buffer is cleared.
func (e *Executor) Push(line string) (more bool, err error) {
	e.buffer = append(e.buffer, line)
	incomplete, err := e.interp.RunSource(strings.Join(e.buffer, "\n"))
	if incomplete && err == nil {
		return true, nil
	}
	if !blankLines(e.buffer) {
		e.history.Extend(e.buffer)
	}
	e.buffer = nil
	return false, err
}

func blankLines(lines []string) bool {
	for _, ln := range lines {
		if strings.TrimSpace(ln) != "" {
			return false
		}
	}
	return true
}

// Pending reports whether a statement is open.
func (e *Executor) Pending() bool { return len(e.buffer) > 0 }

// Buffer returns a copy of the pending fragments.
func (e *Executor) Buffer() []string {
	out := make([]string, len(e.buffer))
	copy(out, e.buffer)
	return out
}

// Reset discards the pending statement without running it.
func (e *Executor) Reset() { e.buffer = nil }
