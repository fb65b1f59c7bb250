package interp

import (
	"sort"
	"strings"

	"github.com/flowave-io/hclsh/internal/console"
)

var keywordHelp = map[string]string{
	"as":     "import NAME as ALIAS\n\nBinds an imported module under ALIAS.",
	"del":    "del NAME[, NAME...]\n\nRemoves bindings from the session.",
	"dir":    "dir [EXPR]\n\nLists bound names, or the members of EXPR.",
	"doc":    "doc EXPR\n\nShows what is known about a value, function or module.",
	"elif":   "elif EXPR:\n\nAnother condition of an if statement.",
	"else":   "else:\n\nRuns when no earlier branch of an if statement matched.",
	"false":  "The boolean false.",
	"for":    "for [KEY,] VALUE in EXPR:\n\nRuns the indented body once per element. An empty line ends the body.",
	"from":   "from MODULE import NAME[, NAME as ALIAS...]\nfrom MODULE import *\n\nBinds members of a module.",
	"help":   "help WORD\n\nShows help for a statement keyword.",
	"if":     "if EXPR:\n\nRuns the indented body when EXPR is true. An empty line ends the statement.",
	"import": "import MODULE[.SUB] [as ALIAS]\n\nLoads a directory of .hcl files, or one .hcl file, from the module path.",
	"in":     "Separates loop variables from the collection in a for statement.",
	"null":   "The null value.",
	"pass":   "pass\n\nDoes nothing.",
	"print":  "print EXPR\n\nWrites EXPR, strings without quotes.",
	"raise":  "raise KIND [EXPR]\n\nFails the statement with an error of KIND.",
	"true":   "The boolean true.",
}

// Language describes HCL statement syntax to the console.
type Language struct {
	loader *Loader
}

var _ console.Language = (*Language)(nil)

func (l *Language) Keywords() []string {
	out := make([]string, 0, len(keywordHelp))
	for k := range keywordHelp {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (l *Language) KeywordSuffix(keyword string) string {
	switch keyword {
	case "else":
		return ":"
	case "true", "false", "null", "dir", "pass":
		return ""
	}
	return " "
}

func (l *Language) IsKeyword(word string) bool {
	_, ok := keywordHelp[word]
	return ok
}

func (l *Language) Modules() []string { return l.loader.Available() }

func (l *Language) ModuleMembers(module string) ([]string, error) {
	return l.loader.Members(module)
}

func (l *Language) BaseException() console.ExceptionKind { return BaseError }

func (l *Language) DocStatement(target string) string          { return "doc " + target }
func (l *Language) ListStatement() string                      { return "dir" }
func (l *Language) KeywordHelpStatement(keyword string) string { return "help " + keyword }

func (l *Language) CommentPrefix() string { return "# " }

func (l *Language) IsComment(line string) bool { return isCommentLine(line) }

func (l *Language) IsClause(line string) bool {
	switch firstWord(strings.TrimSpace(line)) {
	case "elif", "else":
		return true
	}
	return false
}

func (l *Language) FileExt() string { return ".hcl" }
