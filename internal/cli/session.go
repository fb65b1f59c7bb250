package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"github.com/flowave-io/hclsh/internal/console"
	"github.com/flowave-io/hclsh/pkg/log"
)

var (
	primaryColor      = color.New(color.FgGreen, color.Bold).SprintFunc()
	continuationColor = color.New(color.FgYellow).SprintFunc()
	hostColor         = color.New(color.FgMagenta).SprintFunc()
)

// Session is the interactive read loop over one console.
type Session struct {
	Console *console.Console
	Reader  console.LineReader
	// Log records every raw line. Optional.
	Log *console.PersistentLog
	// Bootstrap is replayed quietly whenever Reload fires.
	Bootstrap string
	Reload    <-chan struct{}
	Out       io.Writer
	// Host prefixes the prompt, usually set for remote logins.
	Host string
}

// Run reads and processes lines until end of input, an exit command or ctx
// is done. Interrupts abandon the pending statement.
func (s *Session) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		s.reloadIfChanged()

		line, err := s.Reader.ReadLine(s.prompt(), s.Console.Indent())
		switch {
		case errors.Is(err, readline.ErrInterrupt):
			fmt.Fprintln(s.Out, "KeyboardInterrupt")
			s.Console.Reset()
			continue
		case errors.Is(err, io.EOF):
			fmt.Fprintln(s.Out, "[exit]")
			return nil
		case err != nil:
			return fmt.Errorf("read line: %w", err)
		}

		if !s.Console.More() && isExit(line) {
			return nil
		}
		s.record(line)
		// Errors are already on screen.
		_, _ = s.Console.Process(line)
	}
}

func (s *Session) prompt() string {
	p := s.Console.Prompt()
	if s.Console.More() {
		p = continuationColor(p)
	} else {
		p = primaryColor(p)
	}
	if s.Host != "" {
		p = hostColor("["+s.Host+"]") + p
	}
	return p
}

func (s *Session) record(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	if s.Log != nil {
		if err := s.Log.Append(line); err != nil {
			log.Warn("write history", "path", s.Log.Path(), "err", err)
		}
	}
	if err := s.Reader.AddHistory(line); err != nil {
		log.Debug("add history", "err", err)
	}
}

// reloadIfChanged drains pending change signals and replays the bootstrap
// file once. A pending statement defers the reload to a later prompt.
func (s *Session) reloadIfChanged() {
	if s.Reload == nil || s.Bootstrap == "" || s.Console.More() {
		return
	}
	changed := false
drain:
	for {
		select {
		case <-s.Reload:
			changed = true
		default:
			break drain
		}
	}
	if !changed {
		return
	}
	log.Info("reloading", "file", s.Bootstrap)
	if err := s.Console.ReplayFile(s.Bootstrap, true); err != nil {
		log.Warn("reload failed", "file", s.Bootstrap, "err", err)
	}
}

func isExit(line string) bool {
	switch strings.TrimSpace(line) {
	case "exit", "quit", "exit()", "quit()":
		return true
	}
	return false
}

// remoteHost is the server address of an SSH login, taken from
// SSH_CONNECTION ("client_ip client_port server_ip server_port").
func remoteHost() string {
	fields := strings.Fields(os.Getenv("SSH_CONNECTION"))
	if len(fields) < 2 {
		return ""
	}
	return fields[len(fields)-2]
}
