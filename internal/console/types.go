// Package console implements the input-line pipeline that sits between a line
// editor and an interactive interpreter: completion, automatic indentation,
// special command routing and session history reconciliation.
//
// The package does not know any concrete language. Interpreters plug in
// through Interpreter, Namespace and Language; process and terminal access go
// through Runner and LineReader.
package console

import (
	"io"
	"strings"
)

// SourceLocation points at the definition of a live object.
type SourceLocation struct {
	File    string
	Line    int
	EndLine int
}

// Object is a live value reachable from a Namespace.
type Object interface {
	// Members lists attribute names usable after a dot.
	Members() []string
	// Attr returns the named member.
	Attr(name string) (Object, bool)
}

// Documented objects can describe themselves.
type Documented interface {
	Doc() string
}

// Located objects know where they were defined.
type Located interface {
	Source() (SourceLocation, bool)
}

// Callable reports whether completion should append an opening paren.
type Callable interface {
	Callable() bool
}

// Namespace is the interpreter's live global scope.
type Namespace interface {
	// Names returns every bound identifier, sorted.
	Names() []string
	Lookup(name string) (Object, bool)
	// Set binds a Go value. Implementations convert what they understand and
	// reject the rest.
	Set(name string, v any) error
}

// Resolve walks a dotted expression: the first segment is looked up in the
// namespace and each later segment as a member of the previous object.
func Resolve(ns Namespace, expr string) (Object, bool) {
	expr = strings.TrimSpace(expr)
	if ns == nil || expr == "" {
		return nil, false
	}
	parts := strings.Split(expr, ".")
	obj, ok := ns.Lookup(parts[0])
	if !ok {
		return nil, false
	}
	for _, p := range parts[1:] {
		if p == "" {
			return nil, false
		}
		obj, ok = obj.Attr(p)
		if !ok {
			return nil, false
		}
	}
	return obj, true
}

// ExceptionKind is a node in the interpreter's error taxonomy.
type ExceptionKind interface {
	Name() string
	Subkinds() []ExceptionKind
}

// Language describes the syntax facts the pipeline needs from an
// interpreter.
type Language interface {
	Keywords() []string
	// KeywordSuffix is appended to a completed keyword, usually a space.
	KeywordSuffix(keyword string) string
	IsKeyword(word string) bool

	// Modules lists importable dotted module names.
	Modules() []string
	ModuleMembers(module string) ([]string, error)

	BaseException() ExceptionKind

	// Statements the doc trigger is rewritten into.
	DocStatement(target string) string
	ListStatement() string
	KeywordHelpStatement(keyword string) string

	CommentPrefix() string
	IsComment(line string) bool
	// IsClause reports lines that continue an open compound statement at
	// the same indentation (else, elif and the like).
	IsClause(line string) bool
	// FileExt is used for files handed to an editor.
	FileExt() string
}

// Interpreter executes source one logical statement at a time.
type Interpreter interface {
	// RunSource runs src if it forms a complete statement. incomplete is
	// true when more lines are needed; err reports a failed statement.
	RunSource(src string) (incomplete bool, err error)
	Namespace() Namespace
}

// ShellResult is what a shell escape binds to "_".
type ShellResult struct {
	Out string
	Err string
	RC  int
}

// Runner is the process collaborator.
type Runner interface {
	// Run spawns argv and captures its output. A non-zero exit status is
	// reported through RC, not err.
	Run(argv []string) (ShellResult, error)
	Chdir(dir string) error
	// Suspend stops the process (or spawns a subshell where stopping is not
	// possible) until the user returns.
	Suspend() error
	Browse(url string) error
	// Edit runs an editor attached to the terminal. A non-zero exit status
	// is an error.
	Edit(argv []string) error
}

// LineReader is the line-editing collaborator.
type LineReader interface {
	// ReadLine shows prompt with prefill already in the edit buffer.
	ReadLine(prompt, prefill string) (string, error)
	AddHistory(line string) error
}

// Triggers are the tokens that select special commands.
type Triggers struct {
	Edit         string
	List         string
	Shell        string
	Doc          string
	Search       string
	Help         string
	ToggleIndent string
}

// Options tune the pipeline.
type Options struct {
	Triggers   Triggers
	IndentUnit string
	AutoIndent bool
	// Editor is a command line; LineNumOpt is inserted before the file
	// name with {line} substituted when a line is known.
	Editor     string
	LineNumOpt string
	// DocURL is the search URL template; {term} is replaced.
	DocURL     string
	EchoReplay bool

	Stdout io.Writer
	Stderr io.Writer
}

// DefaultTriggers returns the stock trigger tokens.
func DefaultTriggers() Triggers {
	return Triggers{
		Edit:         `\e`,
		List:         `\l`,
		Shell:        "!",
		Doc:          "?",
		Search:       "??",
		Help:         `\h`,
		ToggleIndent: `\\`,
	}
}

func DefaultOptions() Options {
	return Options{
		Triggers:   DefaultTriggers(),
		IndentUnit: "    ",
		AutoIndent: true,
		Editor:     "vi",
		LineNumOpt: "+{line}",
		DocURL:     "https://developer.hashicorp.com/search?q={term}",
		EchoReplay: true,
	}
}
