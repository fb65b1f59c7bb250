// Package interp is an interactive HCL interpreter. It runs one statement at
// a time against a session namespace: assignments, expressions, imports of
// HCL modules and indented if/for blocks.
package interp

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/flowave-io/hclsh/internal/console"
)

var (
	assignRe = regexp.MustCompile(`(?s)^([A-Za-z_][\w-]*)\s*=\s*([^=].*)$`)
	importRe = regexp.MustCompile(`^import\s+([\w.-]+)(?:\s+as\s+([A-Za-z_][\w-]*))?$`)
	fromRe   = regexp.MustCompile(`^from\s+([\w.-]+)\s+import\s+(.+)$`)
	aliasRe  = regexp.MustCompile(`^([A-Za-z_][\w-]*)(?:\s+as\s+([A-Za-z_][\w-]*))?$`)
	raiseRe  = regexp.MustCompile(`(?s)^raise(?:\s+([A-Za-z_]\w*)(?:\s+(.+))?)?$`)
	nameRe   = regexp.MustCompile(`^[A-Za-z_][\w-]*$`)
)

// Options configure an Interpreter.
type Options struct {
	Stdout io.Writer
	// ModulePath lists directories searched by import.
	ModulePath    []string
	ModuleSources map[string]string
	CacheDir      string
}

// Interpreter runs HCL statements.
type Interpreter struct {
	ctx    context.Context
	ns     *Namespace
	loader *Loader
	lang   *Language
	stdout io.Writer
}

var _ console.Interpreter = (*Interpreter)(nil)

func New(ctx context.Context, opts Options) *Interpreter {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	funcs := builtinFunctions()
	loader := NewLoader(opts.ModulePath, opts.ModuleSources, opts.CacheDir, funcs)
	return &Interpreter{
		ctx:    ctx,
		ns:     newNamespace(funcs),
		loader: loader,
		lang:   &Language{loader: loader},
		stdout: opts.Stdout,
	}
}

func (in *Interpreter) Namespace() console.Namespace { return in.ns }
func (in *Interpreter) Language() *Language          { return in.lang }

// RunSource runs src when it is a complete statement.
func (in *Interpreter) RunSource(src string) (bool, error) {
	if needsMore(src) {
		return true, nil
	}
	nodes, err := parseProgram(src)
	if err != nil {
		return false, err
	}
	// Line numbers only help once a statement spans several lines.
	numbered := len(nodes) > 1 || (len(nodes) == 1 && nodes[0].kind != nodeSimple)
	return false, in.execAll(nodes, numbered)
}

func (in *Interpreter) execAll(nodes []*node, numbered bool) error {
	for _, n := range nodes {
		if err := in.exec(n, numbered); err != nil {
			return err
		}
	}
	return nil
}

func (in *Interpreter) exec(n *node, numbered bool) error {
	line := 0
	if numbered {
		line = n.line
	}
	switch n.kind {
	case nodeIf:
		for _, b := range n.branches {
			if b.cond == "" {
				return in.execAll(b.body, numbered)
			}
			bl := 0
			if numbered {
				bl = b.line
			}
			ok, err := in.condition(b.cond, bl)
			if err != nil {
				return err
			}
			if ok {
				return in.execAll(b.body, numbered)
			}
		}
		return nil
	case nodeFor:
		return in.execFor(n, line, numbered)
	default:
		return in.statement(insertSeparators(n.text), line)
	}
}

func (in *Interpreter) condition(src string, line int) (bool, error) {
	v, err := in.eval(src, line)
	if err != nil {
		return false, err
	}
	if v.IsNull() {
		return false, &Error{Kind: TypeError, Msg: "condition is null", Line: line}
	}
	if !v.IsKnown() {
		return false, &Error{Kind: ValueError, Msg: "condition is not known", Line: line}
	}
	b, cerr := convert.Convert(v, cty.Bool)
	if cerr != nil {
		return false, &Error{Kind: TypeError, Msg: "condition must be bool, not " + v.Type().FriendlyName(), Line: line, Err: cerr}
	}
	return b.True(), nil
}

func (in *Interpreter) execFor(n *node, line int, numbered bool) error {
	coll, err := in.eval(n.iter, line)
	if err != nil {
		return err
	}
	if coll.IsNull() || !coll.IsKnown() || !coll.CanIterateElements() {
		return &Error{Kind: TypeError, Msg: coll.Type().FriendlyName() + " is not iterable", Line: line}
	}
	for it := coll.ElementIterator(); it.Next(); {
		k, v := it.Element()
		if n.keyVar != "" {
			in.ns.bind(n.keyVar, k)
		}
		in.ns.bind(n.valVar, v)
		if err := in.execAll(n.body, numbered); err != nil {
			return err
		}
	}
	return nil
}

// statement runs one simple statement. line is zero when the statement
// stands alone.
func (in *Interpreter) statement(text string, line int) error {
	switch word := firstWord(text); word {
	case "pass":
		if text != "pass" {
			return &Error{Kind: SyntaxError, Msg: "invalid syntax", Line: line}
		}
		return nil
	case "del":
		return in.del(strings.TrimSpace(strings.TrimPrefix(text, "del")), line)
	case "print":
		rest := strings.TrimSpace(strings.TrimPrefix(text, "print"))
		if rest == "" {
			fmt.Fprintln(in.stdout)
			return nil
		}
		v, err := in.eval(rest, line)
		if err != nil {
			return err
		}
		fmt.Fprintln(in.stdout, display(v))
		return nil
	case "import":
		return in.importStmt(text, line)
	case "from":
		return in.fromStmt(text, line)
	case "raise":
		return in.raise(text, line)
	case "doc":
		return in.doc(strings.TrimSpace(strings.TrimPrefix(text, "doc")), line)
	case "dir":
		return in.dir(strings.TrimSpace(strings.TrimPrefix(text, "dir")), line)
	case "help":
		return in.help(strings.TrimSpace(strings.TrimPrefix(text, "help")))
	}
	if m := assignRe.FindStringSubmatch(text); m != nil {
		v, err := in.eval(m[2], line)
		if err != nil {
			return err
		}
		in.ns.bind(m[1], v)
		return nil
	}
	v, err := in.eval(text, line)
	if err != nil {
		return err
	}
	fmt.Fprintln(in.stdout, render(v))
	if !v.IsNull() {
		in.ns.bind("_", v)
	}
	return nil
}

func (in *Interpreter) eval(src string, line int) (cty.Value, error) {
	expr, diags := hclsyntax.ParseExpression([]byte(src), stdinName, hcl.InitialPos)
	if diags.HasErrors() {
		return cty.NilVal, fromDiags(diags, SyntaxError, line)
	}
	v, diags := expr.Value(in.ns.EvalContext())
	if diags.HasErrors() {
		return cty.NilVal, fromDiags(diags, EvalError, line)
	}
	return v, nil
}

func (in *Interpreter) del(args string, line int) error {
	if args == "" {
		return &Error{Kind: SyntaxError, Msg: "del needs a name", Line: line}
	}
	for _, name := range strings.Split(args, ",") {
		name = strings.TrimSpace(name)
		if !in.ns.unbind(name) {
			return &Error{Kind: NameError, Msg: fmt.Sprintf("name '%s' is not defined", name), Line: line}
		}
	}
	return nil
}

func (in *Interpreter) importStmt(text string, line int) error {
	m := importRe.FindStringSubmatch(text)
	if m == nil {
		return &Error{Kind: SyntaxError, Msg: "invalid syntax: " + text, Line: line}
	}
	mod, err := in.load(m[1], line)
	if err != nil {
		return err
	}
	name := m[2]
	if name == "" {
		name = m[1][strings.LastIndex(m[1], ".")+1:]
	}
	in.ns.bindModule(name, mod)
	return nil
}

func (in *Interpreter) fromStmt(text string, line int) error {
	m := fromRe.FindStringSubmatch(text)
	if m == nil {
		return &Error{Kind: SyntaxError, Msg: "invalid syntax: " + text, Line: line}
	}
	modName, list := m[1], strings.TrimSpace(m[2])
	mod, err := in.load(modName, line)
	if err != nil {
		return err
	}
	if list == "*" {
		for k, v := range mod.Value.AsValueMap() {
			if k == "local" || k == "var" {
				continue
			}
			in.ns.bindMember(k, mod, k, v)
		}
		return nil
	}
	list = strings.TrimSuffix(strings.TrimPrefix(list, "("), ")")
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		am := aliasRe.FindStringSubmatch(item)
		if am == nil {
			return &Error{Kind: SyntaxError, Msg: "invalid syntax: " + item, Line: line}
		}
		member, bindAs := am[1], am[2]
		if bindAs == "" {
			bindAs = member
		}
		if mod.Value.Type().HasAttribute(member) {
			in.ns.bindMember(bindAs, mod, member, mod.Value.GetAttr(member))
			continue
		}
		sub, err := in.loader.Load(in.ctx, modName+"."+member)
		if err != nil {
			if IsKind(err, ModuleNotFoundError) {
				return &Error{Kind: ImportError, Msg: fmt.Sprintf("cannot import name '%s' from '%s'", member, modName), Line: line}
			}
			return err
		}
		in.ns.bindModule(bindAs, sub)
	}
	return nil
}

func (in *Interpreter) load(name string, line int) (*Module, error) {
	mod, err := in.loader.Load(in.ctx, name)
	if err != nil {
		if e, ok := err.(*Error); ok && e.Line == 0 {
			e.Line = line
		}
		return nil, err
	}
	return mod, nil
}

func (in *Interpreter) raise(text string, line int) error {
	m := raiseRe.FindStringSubmatch(text)
	if m == nil {
		return &Error{Kind: SyntaxError, Msg: "invalid syntax: " + text, Line: line}
	}
	if m[1] == "" {
		return &Error{Kind: RuntimeError, Msg: "No active exception to reraise", Line: line}
	}
	kind, ok := LookupKind(m[1])
	if !ok {
		return &Error{Kind: NameError, Msg: fmt.Sprintf("name '%s' is not defined", m[1]), Line: line}
	}
	msg := ""
	if m[2] != "" {
		v, err := in.eval(m[2], line)
		if err != nil {
			return err
		}
		msg = display(v)
	}
	return &Error{Kind: kind, Msg: msg, Line: line}
}

func (in *Interpreter) doc(target string, line int) error {
	if target == "" {
		return &Error{Kind: SyntaxError, Msg: "doc needs a target", Line: line}
	}
	if obj, ok := console.Resolve(in.ns, target); ok {
		if d, ok := obj.(console.Documented); ok {
			fmt.Fprintln(in.stdout, d.Doc())
			return nil
		}
	}
	if in.lang.IsKeyword(target) {
		return in.help(target)
	}
	if mod, err := in.loader.Load(in.ctx, target); err == nil {
		fmt.Fprintln(in.stdout, moduleDoc(mod))
		return nil
	}
	return &Error{Kind: NameError, Msg: fmt.Sprintf("name '%s' is not defined", target), Line: line}
}

func moduleDoc(m *Module) string {
	var b strings.Builder
	fmt.Fprintf(&b, "module %s (%s)", m.Name, m.Path)
	if m.Doc != "" {
		b.WriteString("\n\n" + m.Doc)
	}
	if members := m.Members(); len(members) > 0 {
		b.WriteString("\n\nmembers: " + strings.Join(members, ", "))
	}
	return b.String()
}

func (in *Interpreter) dir(target string, line int) error {
	var names []string
	if target == "" {
		names = in.ns.Names()
	} else {
		obj, ok := console.Resolve(in.ns, target)
		if !ok {
			return &Error{Kind: NameError, Msg: fmt.Sprintf("name '%s' is not defined", target), Line: line}
		}
		names = obj.Members()
	}
	sort.Strings(names)
	vals := make([]cty.Value, len(names))
	for i, n := range names {
		vals[i] = cty.StringVal(n)
	}
	if len(vals) == 0 {
		fmt.Fprintln(in.stdout, "[]")
		return nil
	}
	fmt.Fprintln(in.stdout, render(cty.TupleVal(vals)))
	return nil
}

func (in *Interpreter) help(word string) error {
	if word == "" {
		fmt.Fprintln(in.stdout, "keywords: "+strings.Join(in.lang.Keywords(), " "))
		return nil
	}
	text, ok := keywordHelp[word]
	if !ok {
		if nameRe.MatchString(word) {
			return in.doc(word, 0)
		}
		return newError(ValueError, "no help for %q", word)
	}
	fmt.Fprintln(in.stdout, text)
	return nil
}
