package console

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"testing"
)

// fakeObj is a live object in the fake namespace.
type fakeObj struct {
	str      string
	callable bool
	members  map[string]*fakeObj
	loc      *SourceLocation
}

func (o *fakeObj) Members() []string {
	out := make([]string, 0, len(o.members))
	for k := range o.members {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (o *fakeObj) Attr(name string) (Object, bool) {
	m, ok := o.members[name]
	if !ok {
		return nil, false
	}
	return m, true
}

func (o *fakeObj) Callable() bool { return o.callable }
func (o *fakeObj) String() string { return o.str }

func (o *fakeObj) Source() (SourceLocation, bool) {
	if o.loc == nil {
		return SourceLocation{}, false
	}
	return *o.loc, true
}

type fakeNamespace struct {
	vars  map[string]*fakeObj
	set   map[string]any
	panic bool
}

func newFakeNamespace() *fakeNamespace {
	return &fakeNamespace{vars: map[string]*fakeObj{}, set: map[string]any{}}
}

func (n *fakeNamespace) Names() []string {
	if n.panic {
		panic("namespace exploded")
	}
	out := make([]string, 0, len(n.vars))
	for k := range n.vars {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (n *fakeNamespace) Lookup(name string) (Object, bool) {
	if n.panic {
		panic("namespace exploded")
	}
	o, ok := n.vars[name]
	if !ok {
		return nil, false
	}
	return o, true
}

func (n *fakeNamespace) Set(name string, v any) error {
	n.set[name] = v
	n.vars[name] = &fakeObj{str: fmt.Sprint(v)}
	return nil
}

type fakeError struct{ kind, msg string }

func (e *fakeError) Error() string    { return e.kind + ": " + e.msg }
func (e *fakeError) KindName() string { return e.kind }

var (
	fakeAssignRe = regexp.MustCompile(`^(\w+)\s*=\s*(.+)$`)
	fakeClassRe  = regexp.MustCompile(`^class (\w+)`)
	fakeDefRe    = regexp.MustCompile(`^\s+def (\w+)`)
)

// fakeInterp understands just enough of an indentation based language:
// headers ending in ':' need a terminating empty line, brackets must
// balance, assignments and classes bind names, and adding a string to a
// number fails.
type fakeInterp struct {
	ns   *fakeNamespace
	runs []string
}

func newFakeInterp() *fakeInterp { return &fakeInterp{ns: newFakeNamespace()} }

func (f *fakeInterp) Namespace() Namespace { return f.ns }

func (f *fakeInterp) RunSource(src string) (bool, error) {
	lines := strings.Split(src, "\n")
	first := strings.TrimSpace(lines[0])
	if strings.HasSuffix(first, ":") && lines[len(lines)-1] != "" {
		return true, nil
	}
	opens := strings.Count(src, "(") + strings.Count(src, "[") + strings.Count(src, "{")
	closes := strings.Count(src, ")") + strings.Count(src, "]") + strings.Count(src, "}")
	if opens > closes {
		return true, nil
	}
	if first == "" {
		return false, nil
	}
	f.runs = append(f.runs, src)
	if strings.Contains(first, `+ "`) {
		return false, &fakeError{kind: "TypeError", msg: "unsupported operand type(s) for +"}
	}
	if m := fakeClassRe.FindStringSubmatch(first); m != nil {
		cls := &fakeObj{str: "<class " + m[1] + ">", callable: true, members: map[string]*fakeObj{}}
		for _, ln := range lines[1:] {
			if d := fakeDefRe.FindStringSubmatch(ln); d != nil {
				cls.members[d[1]] = &fakeObj{callable: true}
			}
		}
		f.ns.vars[m[1]] = cls
		return false, nil
	}
	if m := fakeAssignRe.FindStringSubmatch(first); m != nil && !strings.HasSuffix(first, ":") {
		f.ns.vars[m[1]] = &fakeObj{str: m[2]}
	}
	return false, nil
}

type fakeKind struct {
	name string
	subs []*fakeKind
}

func (k *fakeKind) Name() string { return k.name }

func (k *fakeKind) Subkinds() []ExceptionKind {
	out := make([]ExceptionKind, len(k.subs))
	for i, s := range k.subs {
		out[i] = s
	}
	return out
}

type fakeLanguage struct{}

var fakeKeywords = []string{"class", "def", "elif", "else", "except", "from", "if", "import", "pass", "raise", "True"}

func (fakeLanguage) Keywords() []string { return fakeKeywords }

func (fakeLanguage) KeywordSuffix(kw string) string {
	switch kw {
	case "else":
		return ":"
	case "True":
		return ""
	}
	return " "
}

func (fakeLanguage) IsKeyword(word string) bool {
	for _, k := range fakeKeywords {
		if k == word {
			return true
		}
	}
	return false
}

func (fakeLanguage) Modules() []string { return []string{"json", "os", "os.path"} }

func (fakeLanguage) ModuleMembers(module string) ([]string, error) {
	if module == "os.path" {
		return []string{"exists", "join"}, nil
	}
	return nil, fmt.Errorf("no module named %s", module)
}

func (fakeLanguage) BaseException() ExceptionKind {
	return &fakeKind{name: "BaseException", subs: []*fakeKind{
		{name: "Exception", subs: []*fakeKind{
			{name: "ValueError", subs: []*fakeKind{{name: "UnicodeError"}}},
			{name: "TypeError"},
		}},
		{name: "KeyboardInterrupt"},
	}}
}

func (fakeLanguage) DocStatement(target string) string { return "help(" + target + ")" }
func (fakeLanguage) ListStatement() string             { return "dir()" }
func (fakeLanguage) KeywordHelpStatement(kw string) string {
	return "help('" + kw + "')"
}
func (fakeLanguage) CommentPrefix() string { return "# " }

func (fakeLanguage) IsComment(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "#")
}

func (fakeLanguage) IsClause(line string) bool {
	f := strings.Fields(line)
	if len(f) == 0 {
		return false
	}
	switch strings.TrimSuffix(f[0], ":") {
	case "elif", "else", "except", "finally":
		return true
	}
	return false
}

func (fakeLanguage) FileExt() string { return ".py" }

// fakeRunner records calls. onEdit, if set, runs against the file passed
// to the editor.
type fakeRunner struct {
	ran       [][]string
	result    ShellResult
	chdirs    []string
	suspended int
	browsed   []string
	edits     [][]string
	edited    []string
	onEdit    func(path string) error
}

func (r *fakeRunner) Run(argv []string) (ShellResult, error) {
	r.ran = append(r.ran, argv)
	return r.result, nil
}

func (r *fakeRunner) Chdir(dir string) error {
	r.chdirs = append(r.chdirs, dir)
	return nil
}

func (r *fakeRunner) Suspend() error {
	r.suspended++
	return nil
}

func (r *fakeRunner) Browse(url string) error {
	r.browsed = append(r.browsed, url)
	return nil
}

func (r *fakeRunner) Edit(argv []string) error {
	r.edits = append(r.edits, argv)
	path := argv[len(argv)-1]
	if b, err := os.ReadFile(path); err == nil {
		r.edited = append(r.edited, string(b))
	}
	if r.onEdit != nil {
		return r.onEdit(path)
	}
	return nil
}

type fakeReader struct{ history []string }

func (r *fakeReader) ReadLine(string, string) (string, error) { return "", nil }

func (r *fakeReader) AddHistory(line string) error {
	r.history = append(r.history, line)
	return nil
}

type harness struct {
	console *Console
	interp  *fakeInterp
	runner  *fakeRunner
	stdout  *bytes.Buffer
	stderr  *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		interp: newFakeInterp(),
		runner: &fakeRunner{},
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
	}
	opts := DefaultOptions()
	opts.Editor = "vi"
	opts.DocURL = "https://docs.example/search?q={term}"
	opts.Stdout = h.stdout
	opts.Stderr = h.stderr
	h.console = New(h.interp, fakeLanguage{}, h.runner, opts)
	return h
}
