package interp

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"

	"github.com/flowave-io/hclsh/internal/console"
)

// Kind is a node in the error taxonomy. Kinds form a tree rooted at
// BaseError; raise and completion both walk it.
type Kind struct {
	name   string
	parent *Kind
	subs   []*Kind
}

func newKind(name string, parent *Kind) *Kind {
	k := &Kind{name: name, parent: parent}
	if parent != nil {
		parent.subs = append(parent.subs, k)
	}
	return k
}

var (
	BaseError           = newKind("Error", nil)
	EvalError           = newKind("EvalError", BaseError)
	NameError           = newKind("NameError", EvalError)
	TypeError           = newKind("TypeError", EvalError)
	ValueError          = newKind("ValueError", EvalError)
	SyntaxError         = newKind("SyntaxError", BaseError)
	IndentationError    = newKind("IndentationError", SyntaxError)
	ImportError         = newKind("ImportError", BaseError)
	ModuleNotFoundError = newKind("ModuleNotFoundError", ImportError)
	RuntimeError        = newKind("RuntimeError", BaseError)
)

func (k *Kind) Name() string { return k.name }

func (k *Kind) Subkinds() []console.ExceptionKind {
	out := make([]console.ExceptionKind, len(k.subs))
	for i, s := range k.subs {
		out[i] = s
	}
	return out
}

// Is reports whether k is other or descends from it.
func (k *Kind) Is(other *Kind) bool {
	for c := k; c != nil; c = c.parent {
		if c == other {
			return true
		}
	}
	return false
}

// LookupKind finds a kind by name anywhere in the tree.
func LookupKind(name string) (*Kind, bool) {
	queue := []*Kind{BaseError}
	for len(queue) > 0 {
		k := queue[0]
		queue = queue[1:]
		if k.name == name {
			return k, true
		}
		queue = append(queue, k.subs...)
	}
	return nil, false
}

// Error is a failed statement.
type Error struct {
	Kind *Kind
	Msg  string
	// Line is the 1-based line within the submitted source, or zero.
	Line int
	Err  error
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: %s (line %d)", e.Kind.name, e.Msg, e.Line)
	}
	return e.Kind.name + ": " + e.Msg
}

func (e *Error) KindName() string { return e.Kind.name }
func (e *Error) Unwrap() error    { return e.Err }

func newError(kind *Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// IsKind reports whether err is an *Error of kind k or one of its children.
func IsKind(err error, k *Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind.Is(k)
}

// diagKinds maps evaluation diagnostic summaries onto kinds.
var diagKinds = map[string]*Kind{
	"Unknown variable":                      NameError,
	"Variables not allowed":                 NameError,
	"Call to unknown function":              NameError,
	"Function calls not allowed":            NameError,
	"Unsupported attribute":                 NameError,
	"Invalid operand":                       TypeError,
	"Unsupported operator":                  TypeError,
	"Incorrect condition type":              TypeError,
	"Inconsistent conditional result types": TypeError,
	"Invalid template interpolation value":  TypeError,
	"Iteration over non-iterable value":     TypeError,
	"Incorrect value type":                  TypeError,
	"Not enough function arguments":         TypeError,
	"Too many function arguments":           TypeError,
	"Invalid index":                         ValueError,
	"Missing map element":                   ValueError,
	"Invalid function argument":             ValueError,
	"Error in function call":                ValueError,
}

// fromDiags converts the first error diagnostic. fallback is used for
// summaries with no specific kind. A non-zero line is the source line the
// parsed snippet started on; zero leaves the line unreported.
func fromDiags(diags hcl.Diagnostics, fallback *Kind, line int) *Error {
	for _, d := range diags {
		if d.Severity != hcl.DiagError {
			continue
		}
		kind, ok := diagKinds[d.Summary]
		if !ok {
			kind = fallback
		}
		msg := d.Summary
		if detail := strings.TrimSpace(d.Detail); detail != "" {
			msg += ": " + detail
		}
		e := &Error{Kind: kind, Msg: msg, Err: diags}
		if d.Subject != nil && line > 0 {
			e.Line = line + d.Subject.Start.Line - 1
		}
		return e
	}
	return nil
}
