package console

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/chzyer/readline"
	"github.com/mitchellh/go-homedir"

	"github.com/flowave-io/hclsh/pkg/log"
)

var (
	// "from pkg " or "from pkg im"
	fromKeywordRe = regexp.MustCompile(`^\s*from\s+[\w.]+\s+(\w*)$`)
	// "from pkg.sub import a, b"
	fromImportRe = regexp.MustCompile(`^\s*from\s+([\w.]+)\s+import\s+`)
	// "import a.b" or "from a.b"
	importNameRe = regexp.MustCompile(`^\s*(import|from)\s+`)
	raiseRe      = regexp.MustCompile(`^\s*(raise|except)\b`)
)

// CompletionMatchSet holds the candidates of the active request.
type CompletionMatchSet struct {
	Text       string
	Line       string
	Candidates []string
}

// Completer resolves a partial token into candidates. It reads the
// namespace on every request so it always sees the live bindings.
type Completer struct {
	namespace  func() Namespace
	lang       Language
	indentUnit string
	matches    CompletionMatchSet
}

func NewCompleter(namespace func() Namespace, lang Language, indentUnit string) *Completer {
	return &Completer{namespace: namespace, lang: lang, indentUnit: indentUnit}
}

// Complete returns the state-th candidate for text typed on line. The
// candidate list is rebuilt whenever state is zero.
func (c *Completer) Complete(text string, state int, line string) (string, bool) {
	if state == 0 {
		c.matches = CompletionMatchSet{Text: text, Line: line, Candidates: c.Candidates(text, line)}
		if m := c.matches.Candidates; len(m) == 1 && isPathText(text) && isDirEqual(m[0], text) {
			c.matches.Candidates = c.Candidates(m[0], line)
		}
	}
	if state < 0 || state >= len(c.matches.Candidates) {
		return "", false
	}
	return c.matches.Candidates[state], true
}

// Matches returns the set built by the last state-zero call.
func (c *Completer) Matches() CompletionMatchSet { return c.matches }

// Candidates builds the sorted, unique candidate list. Any failure while
// gathering degrades to an empty list.
func (c *Completer) Candidates(text, line string) (out []string) {
	defer func() {
		if r := recover(); r != nil {
			log.Debug("completion failed", "text", text, "panic", r)
			out = nil
		}
	}()
	var cands []string
	switch {
	case strings.TrimSpace(line) == "":
		return []string{c.indentUnit}
	case importNameRe.MatchString(line):
		cands = c.importMatches(text, line)
	case raiseRe.MatchString(line):
		cands = c.exceptionMatches(text)
	case isPathText(text):
		cands = pathMatches(text)
	case strings.Contains(text, "."):
		cands = c.attrMatches(text)
	default:
		cands = c.globalMatches(text)
	}
	return uniqueSorted(cands)
}

func (c *Completer) importMatches(text, line string) []string {
	if m := fromKeywordRe.FindStringSubmatch(line); m != nil && m[1] == text {
		if strings.HasPrefix("import ", text) {
			return []string{"import "}
		}
		return nil
	}
	if m := fromImportRe.FindStringSubmatch(line); m != nil {
		members, err := c.lang.ModuleMembers(m[1])
		if err != nil {
			log.Debug("module members", "module", m[1], "err", err)
			return nil
		}
		return withPrefix(members, text)
	}
	return withPrefix(c.lang.Modules(), text)
}

// exceptionMatches walks the error taxonomy breadth first.
func (c *Completer) exceptionMatches(text string) []string {
	base := c.lang.BaseException()
	if base == nil {
		return nil
	}
	var names []string
	seen := map[string]bool{}
	queue := []ExceptionKind{base}
	for len(queue) > 0 {
		k := queue[0]
		queue = queue[1:]
		if seen[k.Name()] {
			continue
		}
		seen[k.Name()] = true
		if strings.HasPrefix(k.Name(), text) {
			names = append(names, k.Name())
		}
		queue = append(queue, k.Subkinds()...)
	}
	return names
}

func (c *Completer) attrMatches(text string) []string {
	i := strings.LastIndex(text, ".")
	owner, prefix := text[:i], text[i+1:]
	obj, ok := Resolve(c.namespace(), owner)
	if !ok {
		return nil
	}
	var out []string
	for _, m := range obj.Members() {
		if !strings.HasPrefix(m, prefix) {
			continue
		}
		cand := owner + "." + m
		if member, ok := obj.Attr(m); ok && isCallable(member) {
			cand += "("
		}
		out = append(out, cand)
	}
	return out
}

func (c *Completer) globalMatches(text string) []string {
	var out []string
	if ns := c.namespace(); ns != nil {
		for _, name := range ns.Names() {
			if !strings.HasPrefix(name, text) {
				continue
			}
			if obj, ok := ns.Lookup(name); ok && isCallable(obj) {
				name += "("
			}
			out = append(out, name)
		}
	}
	for _, kw := range c.lang.Keywords() {
		if strings.HasPrefix(kw, text) {
			out = append(out, kw+c.lang.KeywordSuffix(kw))
		}
	}
	return out
}

func isPathText(text string) bool {
	return strings.ContainsRune(text, '/') || strings.ContainsRune(text, filepath.Separator)
}

// pathMatches globs text*, marking directories with a trailing separator.
// Candidates keep the directory part exactly as typed, so "./" and "~/"
// forms survive the glob.
func pathMatches(text string) []string {
	expanded, err := homedir.Expand(text)
	if err != nil {
		return nil
	}
	matches, err := filepath.Glob(expanded + "*")
	if err != nil {
		return nil
	}
	typedDir := text[:strings.LastIndexAny(text, "/"+string(filepath.Separator))+1]
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		cand := typedDir + filepath.Base(m)
		if fi, err := os.Stat(m); err == nil && fi.IsDir() {
			cand += string(filepath.Separator)
		}
		out = append(out, cand)
	}
	return out
}

// isDirEqual reports a directory candidate that names exactly what was
// typed, so completion should descend into it.
func isDirEqual(cand, text string) bool {
	if !strings.HasSuffix(cand, string(filepath.Separator)) {
		return false
	}
	return strings.TrimSuffix(cand, string(filepath.Separator)) == strings.TrimSuffix(text, string(filepath.Separator))
}

func isCallable(obj Object) bool {
	c, ok := obj.(Callable)
	return ok && c.Callable()
}

func withPrefix(names []string, prefix string) []string {
	var out []string
	for _, n := range names {
		if strings.HasPrefix(n, prefix) {
			out = append(out, n)
		}
	}
	return out
}

func uniqueSorted(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	sort.Strings(in)
	out := in[:1]
	for _, s := range in[1:] {
		if s != out[len(out)-1] {
			out = append(out, s)
		}
	}
	return out
}

// completerDelims split the word under the cursor. Path and attribute
// characters are left out so whole paths and dotted names complete.
const completerDelims = " \t\n`!@#$%^&*()=+[{]}\\|;:'\",<>?"

// ReadlineCompleter adapts a Completer to readline.
type ReadlineCompleter struct {
	c *Completer
}

var _ readline.AutoCompleter = (*ReadlineCompleter)(nil)

func NewReadlineCompleter(c *Completer) *ReadlineCompleter {
	return &ReadlineCompleter{c: c}
}

// Do returns the suffixes that extend the word under the cursor.
func (r *ReadlineCompleter) Do(line []rune, pos int) ([][]rune, int) {
	if pos > len(line) {
		pos = len(line)
	}
	head := string(line[:pos])
	text := head[strings.LastIndexAny(head, completerDelims)+1:]
	var out [][]rune
	for state := 0; ; state++ {
		cand, ok := r.c.Complete(text, state, head)
		if !ok {
			break
		}
		if strings.HasPrefix(cand, text) {
			out = append(out, []rune(cand[len(text):]))
		}
	}
	return out, len([]rune(text))
}
