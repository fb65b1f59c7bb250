package console

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	gv "github.com/hashicorp/go-version"
	"github.com/mitchellh/go-homedir"

	"github.com/flowave-io/hclsh/pkg/log"
)

// SessionHistory is the ordered record of every line that belonged to a
// submitted statement during this process.
type SessionHistory struct {
	lines []string
}

// Extend appends lines, never storing two blank entries in a row.
func (h *SessionHistory) Extend(lines []string) {
	for _, ln := range lines {
		if strings.TrimSpace(ln) == "" {
			if n := len(h.lines); n > 0 && strings.TrimSpace(h.lines[n-1]) == "" {
				continue
			}
			ln = ""
		}
		h.lines = append(h.lines, ln)
	}
}

// Lines returns a copy of the history.
func (h *SessionHistory) Lines() []string {
	out := make([]string, len(h.lines))
	copy(out, h.lines)
	return out
}

func (h *SessionHistory) Len() int { return len(h.lines) }

// Truncate drops everything after the first n lines.
func (h *SessionHistory) Truncate(n int) {
	if n >= 0 && n < len(h.lines) {
		h.lines = h.lines[:n]
	}
}

const (
	historyHeaderPrefix = "# hclsh-history "
	sessionMarkerPrefix = "#@session "
	historyFormat       = "1.0.0"
)

// PersistentLog is the on-disk history shared across runs. Each run appends
// a session marker, so the lines of the previous run can be recovered.
type PersistentLog struct {
	path      string
	sessionID string
	entries   []string
	previous  []string
	lastLine  string
	f         *os.File
}

// OpenPersistentLog reads path (if present) and opens it for appending. A
// file written by a newer major format is read but never appended to.
func OpenPersistentLog(path string) (*PersistentLog, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("history path: %w", err)
	}
	l := &PersistentLog{path: expanded, sessionID: uuid.NewString()}

	writable := true
	fresh := true
	if b, err := os.ReadFile(expanded); err == nil {
		fresh = len(b) == 0
		writable = l.parse(string(b))
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read history: %w", err)
	}
	if !writable {
		log.Warn("history file written by a newer hclsh; not recording", "path", expanded)
		return l, nil
	}

	f, err := os.OpenFile(expanded, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	l.f = f
	w := bufio.NewWriter(f)
	if fresh {
		fmt.Fprintf(w, "%s%s\n", historyHeaderPrefix, historyFormat)
	}
	fmt.Fprintf(w, "%s%s %s\n", sessionMarkerPrefix, l.sessionID, time.Now().UTC().Format(time.RFC3339))
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("write history: %w", err)
	}
	return l, nil
}

// parse loads entries and the last session block. It reports whether the
// format is one this build may append to.
func (l *PersistentLog) parse(content string) bool {
	supported := gv.Must(gv.NewVersion(historyFormat))
	var block []string
	for i, ln := range strings.Split(content, "\n") {
		ln = strings.TrimRight(ln, "\r")
		if i == 0 && strings.HasPrefix(ln, historyHeaderPrefix) {
			v, err := gv.NewVersion(strings.TrimSpace(strings.TrimPrefix(ln, historyHeaderPrefix)))
			if err != nil {
				log.Debug("unparseable history header", "header", ln)
				continue
			}
			if v.Segments()[0] > supported.Segments()[0] {
				return false
			}
			continue
		}
		if strings.HasPrefix(ln, sessionMarkerPrefix) {
			if len(block) > 0 {
				l.previous = block
			}
			block = nil
			continue
		}
		if strings.TrimSpace(ln) == "" {
			continue
		}
		block = append(block, ln)
		l.entries = append(l.entries, ln)
	}
	if len(block) > 0 {
		l.previous = block
	}
	if n := len(l.entries); n > 0 {
		l.lastLine = l.entries[n-1]
	}
	return true
}

func (l *PersistentLog) Path() string      { return l.path }
func (l *PersistentLog) SessionID() string { return l.sessionID }

// Previous returns the lines of the last session recorded before this one.
func (l *PersistentLog) Previous() []string {
	out := make([]string, len(l.previous))
	copy(out, l.previous)
	return out
}

// Entries returns at most limit of the most recent stored lines.
func (l *PersistentLog) Entries(limit int) []string {
	if limit <= 0 || limit > len(l.entries) {
		limit = len(l.entries)
	}
	return l.entries[len(l.entries)-limit:]
}

// Append records a raw input line. Blank lines and immediate repeats are
// skipped.
func (l *PersistentLog) Append(line string) error {
	if strings.TrimSpace(line) == "" || line == l.lastLine {
		return nil
	}
	l.lastLine = line
	l.entries = append(l.entries, line)
	if l.f == nil {
		return nil
	}
	_, err := l.f.WriteString(line + "\n")
	return err
}

func (l *PersistentLog) Close() error {
	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return err
}
