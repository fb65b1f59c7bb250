package console

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/mitchellh/go-homedir"
)

const (
	editUsage = `usage: {{.Triggers.Edit}} [name|file]
  {{.Triggers.Edit}}          edit this session in {{.Editor}} and replay it on save
  {{.Triggers.Edit}} name     open the definition of name
  {{.Triggers.Edit}} file     open file
`
	listUsage = `usage: {{.Triggers.List}} name
  print the source of name with line numbers
`
	shellUsage = `usage: {{.Triggers.Shell}}[command]
  run command; {name} is replaced by the value bound to name.
  The result is bound to _ as {out, err, rc}. With no command the
  console is suspended until you return to it.
`
	toggleUsage = `usage: {{.Triggers.ToggleIndent}}
  turn automatic indentation on or off
`
	helpUsage = `hclsh interactive console

  {{.Triggers.Edit}} [name|file]  edit the session, a definition or a file
  {{.Triggers.List}} name         list the source of name
  {{.Triggers.Shell}}command       run a shell command (bare {{.Triggers.Shell}} suspends)
  name{{.Triggers.Doc}}           show documentation (bare {{.Triggers.Doc}} lists names)
  name{{.Triggers.Search}}          search the web for name
  {{.Triggers.ToggleIndent}}              toggle automatic indentation
  {{.Triggers.Help}}              show this help

Commands accept -h or --help.
`
)

var placeholderRe = regexp.MustCompile(`\{([A-Za-z_][\w.]*)\}`)

func (c *Console) registerCommands() {
	t := c.opts.Triggers
	c.router.Register("edit", t.Edit, editUsage, c.editCmd)
	c.router.Register("list", t.List, listUsage, c.listCmd)
	c.router.Register("shell", t.Shell, shellUsage, c.shellCmd)
	c.router.Register("toggle", t.ToggleIndent, toggleUsage, c.toggleIndentCmd)
	c.router.Register("help", t.Help, helpUsage, c.helpCmd)
}

func (c *Console) editCmd(arg string) (string, error) {
	if arg == "" {
		return "", c.EditSession()
	}
	file, line := arg, 0
	if obj, ok := Resolve(c.interp.Namespace(), arg); ok {
		if loc, ok := sourceOf(obj); ok {
			file, line = loc.File, loc.Line
		}
	}
	file, err := homedir.Expand(file)
	if err != nil {
		return "", err
	}
	argv, err := c.editorArgv(file, line)
	if err != nil {
		return "", err
	}
	return "", c.runner.Edit(argv)
}

func (c *Console) listCmd(arg string) (string, error) {
	if arg == "" {
		return c.router.Usage("list")
	}
	obj, ok := Resolve(c.interp.Namespace(), arg)
	if !ok {
		return "", fmt.Errorf("name %q is not defined", arg)
	}
	loc, ok := sourceOf(obj)
	if !ok {
		return "", fmt.Errorf("no source available for %s", arg)
	}
	return "", c.printSource(loc)
}

func (c *Console) printSource(loc SourceLocation) error {
	f, err := os.Open(loc.File)
	if err != nil {
		return err
	}
	defer f.Close()
	end := loc.EndLine
	if end < loc.Line {
		end = loc.Line
	}
	width := len(strconv.Itoa(end))
	sc := bufio.NewScanner(f)
	for n := 1; sc.Scan() && n <= end; n++ {
		if n >= loc.Line {
			c.printf("%*d  %s\n", width, n, sc.Text())
		}
	}
	return sc.Err()
}

func (c *Console) shellCmd(arg string) (string, error) {
	if arg == "" {
		return "", c.runner.Suspend()
	}
	cmdline := c.substitute(arg)
	argv, err := shellquote.Split(cmdline)
	if err != nil {
		return "", fmt.Errorf("parse command: %w", err)
	}
	if len(argv) == 0 {
		return "", nil
	}
	if argv[0] == "cd" {
		dir := "~"
		if len(argv) > 1 {
			dir = argv[1]
		}
		if dir, err = homedir.Expand(dir); err != nil {
			return "", err
		}
		return "", c.runner.Chdir(dir)
	}
	res, err := c.runner.Run(argv)
	if err != nil {
		return "", err
	}
	if res.Out != "" {
		fmt.Fprint(c.opts.Stdout, res.Out)
	}
	if res.Err != "" {
		fmt.Fprint(c.opts.Stderr, errorColor(res.Err))
	}
	return "", c.interp.Namespace().Set("_", res)
}

// substitute replaces {name} with the string form of a live value. Unknown
// names are left as typed.
func (c *Console) substitute(cmdline string) string {
	ns := c.interp.Namespace()
	return placeholderRe.ReplaceAllStringFunc(cmdline, func(m string) string {
		obj, ok := Resolve(ns, m[1:len(m)-1])
		if !ok {
			return m
		}
		if s, ok := obj.(fmt.Stringer); ok {
			return s.String()
		}
		return m
	})
}

func (c *Console) toggleIndentCmd(string) (string, error) {
	state := "off"
	if c.indent.Toggle() {
		state = "on"
	}
	c.opts.AutoIndent = c.indent.Enabled()
	c.printf("%s\n", noteColor("automatic indentation "+state))
	return "", nil
}

func (c *Console) helpCmd(string) (string, error) {
	return c.router.Usage("help")
}

func (c *Console) editorArgv(file string, line int) ([]string, error) {
	argv, err := shellquote.Split(c.opts.Editor)
	if err != nil {
		return nil, fmt.Errorf("parse editor %q: %w", c.opts.Editor, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("no editor configured")
	}
	if line > 0 && c.opts.LineNumOpt != "" {
		argv = append(argv, strings.ReplaceAll(c.opts.LineNumOpt, "{line}", strconv.Itoa(line)))
	}
	return append(argv, file), nil
}

func sourceOf(obj Object) (SourceLocation, bool) {
	l, ok := obj.(Located)
	if !ok {
		return SourceLocation{}, false
	}
	return l.Source()
}
