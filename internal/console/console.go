package console

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
)

var (
	errorColor  = color.New(color.FgRed).SprintFunc()
	replayColor = color.New(color.FgCyan).SprintFunc()
	noteColor   = color.New(color.Faint).SprintFunc()
)

// PrimaryPrompt and ContinuationPrompt are shown before fresh and
// continuation lines.
const (
	PrimaryPrompt      = ">>> "
	ContinuationPrompt = "... "
)

// Console wires the pipeline: router, indent tracker, executor and history.
type Console struct {
	opts      Options
	interp    Interpreter
	lang      Language
	runner    Runner
	reader    LineReader
	history   *SessionHistory
	previous  []string
	exec      *Executor
	indent    *IndentTracker
	router    *Router
	completer *Completer
	// shown is the last error Push printed, so Process does not repeat it.
	shown error
}

func New(interp Interpreter, lang Language, runner Runner, opts Options) *Console {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.IndentUnit == "" {
		opts.IndentUnit = "    "
	}
	c := &Console{
		opts:    opts,
		interp:  interp,
		lang:    lang,
		runner:  runner,
		history: &SessionHistory{},
		indent:  NewIndentTracker(opts.IndentUnit, opts.AutoIndent),
	}
	c.exec = NewExecutor(interp, c.history)
	c.completer = NewCompleter(interp.Namespace, lang, opts.IndentUnit)
	c.router = NewRouter(&c.opts, lang, runner.Browse)
	c.registerCommands()
	return c
}

// SetLineReader lets replayed lines reach the line editor's history.
func (c *Console) SetLineReader(r LineReader) { c.reader = r }

// SetPreviousSession supplies the lines edited when this session has no
// history of its own yet.
func (c *Console) SetPreviousSession(lines []string) { c.previous = lines }

func (c *Console) Completer() *Completer         { return c.completer }
func (c *Console) History() *SessionHistory      { return c.history }
func (c *Console) Router() *Router               { return c.router }
func (c *Console) Namespace() Namespace          { return c.interp.Namespace() }
func (c *Console) IndentTracker() *IndentTracker { return c.indent }

// More reports whether the next line continues an open statement.
func (c *Console) More() bool { return c.exec.Pending() }

// Indent is the whitespace to pre-fill on the next read.
func (c *Console) Indent() string { return c.indent.Current() }

// Prompt picks the primary or continuation prompt.
func (c *Console) Prompt() string {
	if c.More() {
		return ContinuationPrompt
	}
	return PrimaryPrompt
}

// Reset abandons the pending statement, as after an interrupt.
func (c *Console) Reset() {
	c.exec.Reset()
	c.indent.Reset()
}

// Process runs one raw input line through the whole pipeline and reports
// whether a statement is still open. Errors have already been shown to the
// user when they are returned.
func (c *Console) Process(line string) (bool, error) {
	c.shown = nil
	routed, special, err := c.router.Route(line, c.More())
	if special {
		if err != nil && !errors.Is(err, c.shown) {
			c.report(err)
		}
		if routed == "" {
			return c.More(), err
		}
		return c.Push(routed)
	}
	if c.More() {
		filtered, ok := c.indent.Filter(line)
		if !ok {
			return true, nil
		}
		line = filtered
	}
	return c.Push(line)
}

// Push hands line straight to the executor and updates the indent.
func (c *Console) Push(line string) (bool, error) {
	more, err := c.exec.Push(line)
	c.indent.Update(line, more)
	if err != nil {
		c.report(err)
		c.shown = err
	}
	return more, err
}

// report prints an error inline. Interpreter errors already carry their
// kind in the message.
func (c *Console) report(err error) {
	msg := err.Error()
	var kinded interface{ KindName() string }
	if !errors.As(err, &kinded) {
		msg = "Error: " + msg
	}
	fmt.Fprintln(c.opts.Stderr, errorColor(msg))
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.opts.Stdout, format, args...)
}
