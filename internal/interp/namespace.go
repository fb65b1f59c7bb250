package interp

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/flowave-io/hclsh/internal/console"
)

// shellResult mirrors console.ShellResult with cty field names.
type shellResult struct {
	Out string `cty:"out"`
	Err string `cty:"err"`
	RC  int    `cty:"rc"`
}

var shellResultType = cty.Object(map[string]cty.Type{
	"out": cty.String,
	"err": cty.String,
	"rc":  cty.Number,
})

// Namespace holds the session's bindings: values, functions and where
// imported values were defined.
type Namespace struct {
	vars    map[string]cty.Value
	funcs   map[string]function.Function
	origins map[string]console.SourceLocation
	docs    map[string]string
}

var _ console.Namespace = (*Namespace)(nil)

func newNamespace(funcs map[string]function.Function) *Namespace {
	return &Namespace{
		vars:    map[string]cty.Value{},
		funcs:   funcs,
		origins: map[string]console.SourceLocation{},
		docs:    map[string]string{},
	}
}

// EvalContext exposes the bindings to HCL expressions.
func (n *Namespace) EvalContext() *hcl.EvalContext {
	return &hcl.EvalContext{Variables: n.vars, Functions: n.funcs}
}

func (n *Namespace) Names() []string {
	names := make([]string, 0, len(n.vars)+len(n.funcs))
	for k := range n.vars {
		names = append(names, k)
	}
	for k := range n.funcs {
		if _, shadowed := n.vars[k]; !shadowed {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return names
}

func (n *Namespace) Lookup(name string) (console.Object, bool) {
	if v, ok := n.vars[name]; ok {
		return &valueObject{ns: n, path: name, val: v}, true
	}
	if f, ok := n.funcs[name]; ok {
		return &funcObject{name: name, fn: f}, true
	}
	return nil, false
}

// Value returns a bound value.
func (n *Namespace) Value(name string) (cty.Value, bool) {
	v, ok := n.vars[name]
	return v, ok
}

// Set binds v, converting Go values through gocty.
func (n *Namespace) Set(name string, v any) error {
	var val cty.Value
	switch t := v.(type) {
	case cty.Value:
		val = t
	case console.ShellResult:
		cv, err := gocty.ToCtyValue(shellResult{Out: t.Out, Err: t.Err, RC: t.RC}, shellResultType)
		if err != nil {
			return err
		}
		val = cv
	default:
		ty, err := gocty.ImpliedType(v)
		if err != nil {
			return fmt.Errorf("cannot bind %T: %w", v, err)
		}
		if val, err = gocty.ToCtyValue(v, ty); err != nil {
			return err
		}
	}
	n.bind(name, val)
	return nil
}

// bind replaces a binding and forgets what was known about the old one.
func (n *Namespace) bind(name string, v cty.Value) {
	n.forget(name)
	n.vars[name] = v
}

func (n *Namespace) unbind(name string) bool {
	if _, ok := n.vars[name]; !ok {
		return false
	}
	n.forget(name)
	delete(n.vars, name)
	return true
}

func (n *Namespace) forget(name string) {
	for k := range n.origins {
		if k == name || strings.HasPrefix(k, name+".") {
			delete(n.origins, k)
		}
	}
	for k := range n.docs {
		if k == name || strings.HasPrefix(k, name+".") {
			delete(n.docs, k)
		}
	}
}

// bindModule binds a module under name, remembering member locations.
func (n *Namespace) bindModule(name string, m *Module) {
	n.bind(name, m.Value)
	n.origins[name] = m.Location()
	for member, loc := range m.Origins {
		n.origins[name+"."+member] = loc
	}
	if m.Doc != "" {
		n.docs[name] = m.Doc
	}
	for member, doc := range m.Docs {
		n.docs[name+"."+member] = doc
	}
}

// bindMember binds one member of a module as a top-level name.
func (n *Namespace) bindMember(name string, m *Module, member string, v cty.Value) {
	n.bind(name, v)
	for path, loc := range m.Origins {
		if path == member {
			n.origins[name] = loc
		} else if strings.HasPrefix(path, member+".") {
			n.origins[name+strings.TrimPrefix(path, member)] = loc
		}
	}
	for path, doc := range m.Docs {
		if path == member {
			n.docs[name] = doc
		} else if strings.HasPrefix(path, member+".") {
			n.docs[name+strings.TrimPrefix(path, member)] = doc
		}
	}
}

// valueObject is a value reached from a binding.
type valueObject struct {
	ns   *Namespace
	path string
	val  cty.Value
}

func (o *valueObject) Members() []string {
	v := o.val
	if v.IsNull() || !v.IsKnown() {
		return nil
	}
	ty := v.Type()
	var out []string
	switch {
	case ty.IsObjectType():
		for k := range ty.AttributeTypes() {
			out = append(out, k)
		}
	case ty.IsMapType():
		for it := v.ElementIterator(); it.Next(); {
			k, _ := it.Element()
			out = append(out, k.AsString())
		}
	}
	sort.Strings(out)
	return out
}

func (o *valueObject) Attr(name string) (console.Object, bool) {
	v := o.val
	if v.IsNull() || !v.IsKnown() {
		return nil, false
	}
	ty := v.Type()
	var member cty.Value
	switch {
	case ty.IsObjectType() && ty.HasAttribute(name):
		member = v.GetAttr(name)
	case ty.IsMapType() && v.HasIndex(cty.StringVal(name)).True():
		member = v.Index(cty.StringVal(name))
	default:
		return nil, false
	}
	return &valueObject{ns: o.ns, path: o.path + "." + name, val: member}, true
}

func (o *valueObject) Doc() string {
	if d, ok := o.ns.docs[o.path]; ok {
		return d
	}
	return fmt.Sprintf("%s: %s\n%s", o.path, o.val.Type().FriendlyName(), render(o.val))
}

func (o *valueObject) Source() (console.SourceLocation, bool) {
	loc, ok := o.ns.origins[o.path]
	return loc, ok
}

// String is the value as substituted into shell commands: strings bare,
// everything else in HCL syntax.
func (o *valueObject) String() string { return display(o.val) }

// funcObject is a callable binding.
type funcObject struct {
	name string
	fn   function.Function
}

func (f *funcObject) Members() []string                  { return nil }
func (f *funcObject) Attr(string) (console.Object, bool) { return nil, false }
func (f *funcObject) Callable() bool                     { return true }
func (f *funcObject) String() string                     { return f.name }

func (f *funcObject) Doc() string {
	var params []string
	for _, p := range f.fn.Params() {
		params = append(params, p.Name+" "+p.Type.FriendlyName())
	}
	if vp := f.fn.VarParam(); vp != nil {
		params = append(params, vp.Name+"... "+vp.Type.FriendlyName())
	}
	sig := fmt.Sprintf("%s(%s)", f.name, strings.Join(params, ", "))
	if d := strings.TrimSpace(f.fn.Description()); d != "" {
		return sig + "\n\n" + d
	}
	return sig
}
