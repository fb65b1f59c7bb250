package console

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/go-safetemp"

	"github.com/flowave-io/hclsh/pkg/log"
)

// EditSession writes the session to a scratch file, opens it in the editor
// and replays the result. Lines from this session are written commented
// out; with no history yet the previous session is offered as-is.
func (c *Console) EditSession() (err error) {
	lines, comment := c.history.Lines(), true
	if len(lines) == 0 {
		lines, comment = c.previous, false
	}

	dir, closer, err := safetemp.Dir("", "hclsh-edit-")
	if err != nil {
		return fmt.Errorf("scratch dir: %w", err)
	}
	defer func() {
		if cerr := closer.Close(); cerr != nil {
			err = multierror.Append(err, fmt.Errorf("remove scratch dir: %w", cerr)).ErrorOrNil()
		}
	}()
	// safetemp hands back a path inside its private directory, not yet created.
	if err := os.Mkdir(dir, 0o700); err != nil {
		return fmt.Errorf("scratch dir: %w", err)
	}

	path := filepath.Join(dir, "hclsh-edit-"+uuid.NewString()+c.lang.FileExt())
	if err := os.WriteFile(path, []byte(c.externalize(lines, comment)), 0o600); err != nil {
		return fmt.Errorf("write scratch file: %w", err)
	}
	argv, err := c.editorArgv(path, 0)
	if err != nil {
		return err
	}
	if err := c.runner.Edit(argv); err != nil {
		log.Warn("editor failed, not replaying", "editor", c.opts.Editor, "err", err)
		fmt.Fprintln(c.opts.Stderr, noteColor("editor exited with an error; nothing replayed"))
		return nil
	}
	return c.ReplayFile(path, false)
}

func (c *Console) externalize(lines []string, comment bool) string {
	var b strings.Builder
	prefix := c.lang.CommentPrefix()
	for _, ln := range lines {
		if comment && strings.TrimSpace(ln) != "" {
			b.WriteString(prefix)
		}
		b.WriteString(ln)
		b.WriteByte('\n')
	}
	return b.String()
}

// ReplayFile replays every line of path. See Replay.
func (c *Console) ReplayFile(path string, quiet bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return c.Replay(lines, quiet)
}

// Replay feeds lines to the interpreter as if typed. Blank runs collapse,
// blank lines inside an open statement are dropped, and comments and
// special commands are only echoed. An unindented line closes any open
// statement unless it is a clause of it. After the first failing statement
// the remaining lines are recorded in the history without running. A quiet
// replay prints nothing and leaves the session history as it found it. A
// statement the user had open before the replay is still open afterwards.
func (c *Console) Replay(lines []string, quiet bool) error {
	mark := c.history.Len()
	if quiet {
		defer c.history.Truncate(mark)
	}
	pending, indent, opener := c.exec.Buffer(), c.indent.current, c.indent.opener
	c.Reset()
	defer func() {
		c.exec.buffer = pending
		c.indent.current, c.indent.opener = indent, opener
	}()

	echo := !quiet && c.opts.EchoReplay
	prevBlank := false
	for i, line := range lines {
		blank := strings.TrimSpace(line) == ""
		if blank {
			if prevBlank || c.More() {
				continue
			}
			prevBlank = true
		} else {
			prevBlank = false
		}
		if !blank && (c.lang.IsComment(line) || c.router.Special(line, c.More())) {
			if echo {
				c.printf("%s\n", noteColor(line))
			}
			continue
		}
		if c.More() && !blank && leadingSpace(line) == "" && !c.lang.IsClause(line) {
			if _, err := c.Push(""); err != nil {
				c.history.Extend(lines[i:])
				return err
			}
		}
		if echo {
			c.printf("%s\n", replayColor(c.Prompt()+line))
		}
		if !quiet && c.reader != nil && !blank {
			if err := c.reader.AddHistory(line); err != nil {
				log.Debug("add replayed line to history", "err", err)
			}
		}
		if _, err := c.Push(line); err != nil {
			c.history.Extend(lines[i+1:])
			return err
		}
	}
	if c.More() {
		if _, err := c.Push(""); err != nil {
			return err
		}
	}
	return nil
}
