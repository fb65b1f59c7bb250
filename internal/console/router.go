package console

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/template"
)

// Handler runs a special command. arg is the rest of the line, trimmed. The
// returned line is fed to the interpreter unless it is empty.
type Handler func(arg string) (string, error)

type command struct {
	name    string
	trigger string
	usage   *template.Template
	handler Handler
}

// Router classifies input lines and dispatches special commands.
type Router struct {
	opts     *Options
	lang     Language
	commands []command
	browse   func(url string) error
}

func NewRouter(opts *Options, lang Language, browse func(url string) error) *Router {
	return &Router{opts: opts, lang: lang, browse: browse}
}

// Register binds trigger to h. usage is a text/template rendered against the
// live Options when the command gets -h or --help.
func (r *Router) Register(name, trigger, usage string, h Handler) {
	if trigger == "" {
		return
	}
	r.commands = append(r.commands, command{
		name:    name,
		trigger: trigger,
		usage:   template.Must(template.New(name).Parse(usage)),
		handler: h,
	})
	// Longest trigger wins, so "??" is tried before "?" and "\\" before "\".
	sort.SliceStable(r.commands, func(i, j int) bool {
		return len(r.commands[i].trigger) > len(r.commands[j].trigger)
	})
}

// Route inspects line. special reports that a command or documentation
// form matched; in that case the returned line replaces the input and an
// empty one means nothing is left to execute. Documentation forms only
// apply when no statement is pending.
func (r *Router) Route(line string, pending bool) (out string, special bool, err error) {
	trimmed := strings.TrimSpace(line)
	for _, c := range r.commands {
		if !strings.HasPrefix(trimmed, c.trigger) {
			continue
		}
		arg := strings.TrimSpace(strings.TrimPrefix(trimmed, c.trigger))
		if arg == "-h" || arg == "--help" {
			usage, err := r.Usage(c.name)
			return usage, true, err
		}
		out, err := c.handler(arg)
		return out, true, err
	}
	if pending || trimmed == "" {
		return line, false, nil
	}
	t := r.opts.Triggers
	if t.Search != "" && strings.HasSuffix(trimmed, t.Search) {
		return "", true, r.search(strings.TrimSuffix(trimmed, t.Search))
	}
	if t.Doc != "" && strings.HasSuffix(trimmed, t.Doc) {
		return r.docStatement(strings.TrimSuffix(trimmed, t.Doc)), true, nil
	}
	return line, false, nil
}

// Special reports whether Route would treat line as a command or
// documentation form, without running anything.
func (r *Router) Special(line string, pending bool) bool {
	trimmed := strings.TrimSpace(line)
	for _, c := range r.commands {
		if strings.HasPrefix(trimmed, c.trigger) {
			return true
		}
	}
	if pending || trimmed == "" {
		return false
	}
	t := r.opts.Triggers
	return (t.Search != "" && strings.HasSuffix(trimmed, t.Search)) ||
		(t.Doc != "" && strings.HasSuffix(trimmed, t.Doc))
}

// Usage renders the help text of a registered command. The result is
// printed by the caller, so Route hands back nothing to execute.
func (r *Router) Usage(name string) (string, error) {
	for _, c := range r.commands {
		if c.name != name {
			continue
		}
		var buf bytes.Buffer
		if err := c.usage.Execute(&buf, r.opts); err != nil {
			return "", fmt.Errorf("render %s usage: %w", name, err)
		}
		fmt.Fprint(r.opts.Stdout, buf.String())
		return "", nil
	}
	return "", fmt.Errorf("unknown command %q", name)
}

func (r *Router) docStatement(target string) string {
	target = strings.TrimRight(strings.TrimSpace(target), "?.(")
	switch {
	case target == "":
		return r.lang.ListStatement()
	case r.lang.IsKeyword(target):
		return r.lang.KeywordHelpStatement(target)
	default:
		return r.lang.DocStatement(target)
	}
}

func (r *Router) search(target string) error {
	term := strings.TrimRight(strings.TrimSpace(target), "?.(")
	term = strings.ReplaceAll(term, ".", "+")
	url := strings.ReplaceAll(r.opts.DocURL, "{term}", term)
	if err := r.browse(url); err != nil {
		return fmt.Errorf("open %s: %w", url, err)
	}
	return nil
}
