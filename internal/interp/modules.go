package interp

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/terraform-config-inspect/tfconfig"
	"github.com/mitchellh/go-homedir"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"

	"github.com/flowave-io/hclsh/internal/console"
	"github.com/flowave-io/hclsh/pkg/log"
)

const maxModuleDepth = 4

var identRe = regexp.MustCompile(`^[A-Za-z_][\w-]*$`)

var moduleSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "locals"},
		{Type: "variable", LabelNames: []string{"name"}},
	},
}

var variableSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "default"},
		{Name: "description"},
	},
}

// Module is a loaded HCL module: a directory of .hcl and .tf files, or a
// single .hcl file.
type Module struct {
	Name  string
	Path  string
	Files []string
	// Value is an object of the module's attributes, plus "local" and "var"
	// when the module declares any.
	Value cty.Value
	// Origins maps member paths such as "port" or "local.name" to where
	// they were defined.
	Origins map[string]console.SourceLocation
	// Doc is the comment block at the top of the first file.
	Doc string
	// Docs holds per-member descriptions, keyed like Origins.
	Docs map[string]string

	subs []string
}

// Location is where an editor should open the module.
func (m *Module) Location() console.SourceLocation {
	if len(m.Files) == 0 {
		return console.SourceLocation{File: m.Path}
	}
	return console.SourceLocation{File: m.Files[0], Line: 1}
}

// Members lists the module's values and its submodules.
func (m *Module) Members() []string {
	seen := map[string]bool{}
	var out []string
	if m.Value.Type().IsObjectType() {
		for k := range m.Value.Type().AttributeTypes() {
			seen[k] = true
			out = append(out, k)
		}
	}
	for _, s := range m.subs {
		if !seen[s] {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// Loader finds and evaluates modules named by dotted paths.
type Loader struct {
	// Path lists the directories searched in order.
	Path []string
	// Sources maps a top-level module name to a go-getter source. Sources
	// win over Path.
	Sources  map[string]string
	CacheDir string

	funcs  map[string]function.Function
	loaded map[string]*Module
}

func NewLoader(path []string, sources map[string]string, cacheDir string, funcs map[string]function.Function) *Loader {
	return &Loader{
		Path:     path,
		Sources:  sources,
		CacheDir: cacheDir,
		funcs:    funcs,
		loaded:   map[string]*Module{},
	}
}

// Available lists every importable module name, sorted.
func (l *Loader) Available() []string {
	seen := map[string]bool{}
	for name := range l.Sources {
		seen[name] = true
	}
	for _, root := range l.roots() {
		_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil || p == root {
				return nil
			}
			rel, rerr := filepath.Rel(root, p)
			if rerr != nil {
				return nil
			}
			if d.IsDir() {
				if strings.Count(rel, string(filepath.Separator)) >= maxModuleDepth || !validModulePath(rel) {
					return filepath.SkipDir
				}
				seen[dotted(rel)] = true
				return nil
			}
			if filepath.Ext(p) == ".hcl" {
				if stem := strings.TrimSuffix(rel, ".hcl"); validModulePath(stem) {
					seen[dotted(stem)] = true
				}
			}
			return nil
		})
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Members returns a module's member names, loading it if needed.
func (l *Loader) Members(name string) ([]string, error) {
	if m, ok := l.loaded[name]; ok {
		return m.Members(), nil
	}
	m, err := l.Load(context.Background(), name)
	if err != nil {
		return nil, err
	}
	return m.Members(), nil
}

// Load reads and evaluates a module. Every call reads the files again so
// that edits show up on the next import.
func (l *Loader) Load(ctx context.Context, name string) (*Module, error) {
	path, isDir, err := l.locate(ctx, name)
	if err != nil {
		return nil, err
	}
	var files, subs []string
	if isDir {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, &Error{Kind: ImportError, Msg: err.Error(), Err: err}
		}
		for _, e := range entries {
			n := e.Name()
			switch {
			case strings.HasPrefix(n, "."):
			case e.IsDir():
				if identRe.MatchString(n) {
					subs = append(subs, n)
				}
			case strings.HasSuffix(n, ".hcl") || strings.HasSuffix(n, ".tf"):
				files = append(files, filepath.Join(path, n))
			}
		}
	} else {
		files = []string{path}
	}
	m, err := l.evaluate(name, path, files, isDir)
	if err != nil {
		return nil, err
	}
	m.subs = subs
	l.loaded[name] = m
	log.Debug("loaded module", "name", name, "path", path, "files", len(files))
	return m, nil
}

func (l *Loader) roots() []string {
	out := make([]string, 0, len(l.Path))
	for _, p := range l.Path {
		if exp, err := homedir.Expand(p); err == nil {
			out = append(out, exp)
		}
	}
	return out
}

func (l *Loader) locate(ctx context.Context, name string) (string, bool, error) {
	notFound := newError(ModuleNotFoundError, "No module named '%s'", name)
	parts := strings.Split(name, ".")
	for _, p := range parts {
		if !identRe.MatchString(p) {
			return "", false, notFound
		}
	}
	if src, ok := l.Sources[parts[0]]; ok {
		root, err := fetchSource(ctx, src, l.CacheDir)
		if err != nil {
			return "", false, &Error{Kind: ImportError, Msg: fmt.Sprintf("cannot fetch %s: %v", parts[0], err), Err: err}
		}
		if p, dir, ok := findModule(root, parts[1:]); ok {
			return p, dir, nil
		}
		return "", false, notFound
	}
	for _, root := range l.roots() {
		if p, dir, ok := findModule(root, parts); ok {
			return p, dir, nil
		}
	}
	return "", false, notFound
}

func findModule(root string, parts []string) (string, bool, bool) {
	base := filepath.Join(append([]string{root}, parts...)...)
	if fi, err := os.Stat(base); err == nil {
		if fi.IsDir() {
			return base, true, true
		}
		if len(parts) == 0 {
			return base, false, true
		}
	}
	if len(parts) == 0 {
		return "", false, false
	}
	if fi, err := os.Stat(base + ".hcl"); err == nil && fi.Mode().IsRegular() {
		return base + ".hcl", false, true
	}
	return "", false, false
}

type pendingExpr struct {
	name  string
	local bool
	expr  hcl.Expression
	loc   console.SourceLocation
}

func (l *Loader) evaluate(name, path string, files []string, isDir bool) (*Module, error) {
	m := &Module{
		Name:    name,
		Path:    path,
		Files:   files,
		Origins: map[string]console.SourceLocation{},
		Docs:    map[string]string{},
	}
	var merr *multierror.Error
	parser := hclparse.NewParser()
	var pending []pendingExpr
	vars := map[string]cty.Value{}
	hasTerraform := false

	for i, file := range files {
		if strings.HasSuffix(file, ".tf") {
			hasTerraform = true
		}
		f, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			merr = multierror.Append(merr, inFile(fromDiags(diags, SyntaxError, 1), file))
			continue
		}
		if i == 0 {
			m.Doc = leadingComment(f.Bytes)
		}
		content, _, cdiags := f.Body.PartialContent(moduleSchema)
		if cdiags.HasErrors() {
			merr = multierror.Append(merr, inFile(fromDiags(cdiags, SyntaxError, 1), file))
			continue
		}
		if body, ok := f.Body.(*hclsyntax.Body); ok {
			for _, attr := range body.Attributes {
				if prev, dup := m.Origins[attr.Name]; dup {
					merr = multierror.Append(merr, newError(SyntaxError, "%s:%d: attribute %q already defined at %s:%d",
						file, attr.SrcRange.Start.Line, attr.Name, prev.File, prev.Line))
					continue
				}
				loc := rangeLocation(attr.SrcRange)
				m.Origins[attr.Name] = loc
				pending = append(pending, pendingExpr{name: attr.Name, expr: attr.Expr, loc: loc})
			}
		}
		for _, b := range content.Blocks {
			switch b.Type {
			case "locals":
				attrs, ldiags := b.Body.JustAttributes()
				if ldiags.HasErrors() {
					merr = multierror.Append(merr, inFile(fromDiags(ldiags, SyntaxError, 1), file))
				}
				for _, a := range attrs {
					loc := rangeLocation(a.Range)
					m.Origins["local."+a.Name] = loc
					pending = append(pending, pendingExpr{name: a.Name, local: true, expr: a.Expr, loc: loc})
				}
			case "variable":
				if strings.HasSuffix(file, ".tf") {
					continue
				}
				vn := b.Labels[0]
				m.Origins["var."+vn] = rangeLocation(b.DefRange)
				vc, _, vdiags := b.Body.PartialContent(variableSchema)
				if vdiags.HasErrors() {
					merr = multierror.Append(merr, inFile(fromDiags(vdiags, SyntaxError, 1), file))
					continue
				}
				if a, ok := vc.Attributes["description"]; ok {
					if v, d := a.Expr.Value(nil); !d.HasErrors() && v.Type() == cty.String && !v.IsNull() {
						m.Docs["var."+vn] = v.AsString()
					}
				}
				if a, ok := vc.Attributes["default"]; ok {
					v, d := a.Expr.Value(nil)
					if d.HasErrors() {
						merr = multierror.Append(merr, inFile(fromDiags(d, ValueError, 1), file))
						continue
					}
					vars[vn] = v
				}
			}
		}
	}
	if isDir && hasTerraform {
		l.terraformVariables(path, vars, m)
	}

	attrs := map[string]cty.Value{}
	locals := map[string]cty.Value{}
	for progressed := true; progressed && len(pending) > 0; {
		progressed = false
		ctx := l.moduleContext(attrs, locals, vars)
		var rest []pendingExpr
		for _, p := range pending {
			v, diags := p.expr.Value(ctx)
			if diags.HasErrors() || !v.IsWhollyKnown() {
				rest = append(rest, p)
				continue
			}
			if p.local {
				locals[p.name] = v
			} else {
				attrs[p.name] = v
			}
			progressed = true
		}
		pending = rest
	}
	if len(pending) > 0 {
		ctx := l.moduleContext(attrs, locals, vars)
		for _, p := range pending {
			_, diags := p.expr.Value(ctx)
			e := fromDiags(diags, EvalError, 1)
			if e == nil {
				e = newError(EvalError, "value of %s cannot be determined", p.name)
				e.Line = p.loc.Line
			}
			merr = multierror.Append(merr, inFile(e, p.loc.File))
		}
	}
	if err := merr.ErrorOrNil(); err != nil {
		merr.ErrorFormat = joinErrors
		return nil, &Error{Kind: ImportError, Msg: fmt.Sprintf("cannot import %s: %s", name, merr.Error()), Err: merr}
	}

	if len(locals) > 0 {
		attrs["local"] = cty.ObjectVal(locals)
	}
	if len(vars) > 0 {
		attrs["var"] = cty.ObjectVal(vars)
	}
	m.Value = cty.ObjectVal(attrs)
	return m, nil
}

// terraformVariables adds variable defaults declared in the directory's
// Terraform files.
func (l *Loader) terraformVariables(dir string, vars map[string]cty.Value, m *Module) {
	mod, diags := tfconfig.LoadModule(dir)
	if diags.HasErrors() {
		log.Warn("ignoring terraform variables", "dir", dir, "err", diags.Error())
	}
	if mod == nil {
		return
	}
	for name, v := range mod.Variables {
		if v == nil {
			continue
		}
		m.Origins["var."+name] = console.SourceLocation{File: v.Pos.Filename, Line: v.Pos.Line, EndLine: v.Pos.Line}
		if v.Description != "" {
			m.Docs["var."+name] = v.Description
		}
		if v.Default == nil {
			continue
		}
		if cv, ok := convertInterfaceToCty(v.Default); ok {
			vars[name] = cv
		}
	}
}

func (l *Loader) moduleContext(attrs, locals, vars map[string]cty.Value) *hcl.EvalContext {
	v := make(map[string]cty.Value, len(attrs)+2)
	for k, val := range attrs {
		v[k] = val
	}
	v["local"] = cty.ObjectVal(locals)
	v["var"] = cty.ObjectVal(vars)
	return &hcl.EvalContext{Variables: v, Functions: l.funcs}
}

func convertInterfaceToCty(v interface{}) (cty.Value, bool) {
	switch t := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), true
	case string:
		return cty.StringVal(t), true
	case bool:
		return cty.BoolVal(t), true
	case float64:
		return cty.NumberFloatVal(t), true
	case int:
		return cty.NumberIntVal(int64(t)), true
	case []interface{}:
		arr := make([]cty.Value, 0, len(t))
		for _, e := range t {
			cv, ok := convertInterfaceToCty(e)
			if !ok {
				return cty.NilVal, false
			}
			arr = append(arr, cv)
		}
		return cty.TupleVal(arr), true
	case map[string]interface{}:
		m := map[string]cty.Value{}
		for k, e := range t {
			cv, ok := convertInterfaceToCty(e)
			if !ok {
				return cty.NilVal, false
			}
			m[k] = cv
		}
		return cty.ObjectVal(m), true
	default:
		return cty.NilVal, false
	}
}

func rangeLocation(r hcl.Range) console.SourceLocation {
	return console.SourceLocation{File: r.Filename, Line: r.Start.Line, EndLine: r.End.Line}
}

// inFile prefixes a module error with the file it came from.
func inFile(e *Error, file string) error {
	if e == nil {
		return nil
	}
	if e.Line > 0 {
		e.Msg = fmt.Sprintf("%s:%d: %s", file, e.Line, e.Msg)
		e.Line = 0
	} else {
		e.Msg = file + ": " + e.Msg
	}
	return e
}

func joinErrors(es []error) string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// leadingComment returns the comment block a file starts with.
func leadingComment(src []byte) string {
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(src))
	for sc.Scan() {
		t := strings.TrimSpace(sc.Text())
		switch {
		case strings.HasPrefix(t, "#"):
			lines = append(lines, strings.TrimSpace(strings.TrimPrefix(t, "#")))
		case strings.HasPrefix(t, "//"):
			lines = append(lines, strings.TrimSpace(strings.TrimPrefix(t, "//")))
		default:
			return strings.TrimSpace(strings.Join(lines, "\n"))
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func validModulePath(rel string) bool {
	for _, p := range strings.Split(rel, string(filepath.Separator)) {
		if !identRe.MatchString(p) {
			return false
		}
	}
	return true
}

func dotted(rel string) string {
	return strings.ReplaceAll(rel, string(filepath.Separator), ".")
}
