package interp

import (
	"regexp"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
)

const stdinName = "<stdin>"

var (
	ifRe     = regexp.MustCompile(`^(if|elif)\s+(.+):$`)
	elseRe   = regexp.MustCompile(`^else\s*:$`)
	forRe    = regexp.MustCompile(`^for\s+([A-Za-z_]\w*)(?:\s*,\s*([A-Za-z_]\w*))?\s+in\s+(.+):$`)
	headerRe = regexp.MustCompile(`^(if|elif|else|for)\b.*:$`)
)

func lex(src string) hclsyntax.Tokens {
	toks, _ := hclsyntax.LexExpression([]byte(src), stdinName, hcl.InitialPos)
	return toks
}

// bracketDepth counts unclosed brackets, template sequences and heredocs.
func bracketDepth(src string) int {
	depth := 0
	for _, t := range lex(src) {
		switch t.Type {
		case hclsyntax.TokenOBrace, hclsyntax.TokenOBrack, hclsyntax.TokenOParen,
			hclsyntax.TokenOHeredoc, hclsyntax.TokenTemplateInterp, hclsyntax.TokenTemplateControl:
			depth++
		case hclsyntax.TokenCBrace, hclsyntax.TokenCBrack, hclsyntax.TokenCParen,
			hclsyntax.TokenCHeredoc, hclsyntax.TokenTemplateSeqEnd:
			depth--
		}
	}
	return depth
}

func isHeader(line string) bool {
	return headerRe.MatchString(strings.TrimSpace(line))
}

func isBlank(line string) bool { return strings.TrimSpace(line) == "" }

func isCommentLine(line string) bool {
	t := strings.TrimSpace(line)
	return strings.HasPrefix(t, "#") || strings.HasPrefix(t, "//")
}

// needsMore reports whether src is an unfinished statement. A compound
// statement stays open until it ends in an empty line; anything else stays
// open while brackets are unbalanced.
func needsMore(src string) bool {
	lines := strings.Split(src, "\n")
	first := ""
	for _, ln := range lines {
		if !isBlank(ln) {
			first = ln
			break
		}
	}
	if first == "" {
		return false
	}
	if isHeader(first) {
		return len(lines) == 1 || lines[len(lines)-1] != "" || bracketDepth(src) > 0
	}
	return bracketDepth(src) > 0
}

// insertSeparators adds the commas HCL needs between newline-separated
// items of a tuple or an argument list, so those can be typed one item per
// line like object attributes.
func insertSeparators(src string) string {
	if !strings.Contains(src, "\n") {
		return src
	}
	toks := lex(src)
	type frame struct {
		open hclsyntax.TokenType
		// forExpr frames hold a for expression, whose clauses must not be
		// split by commas.
		forExpr bool
	}
	var stack []frame
	var at []int
	for i, t := range toks {
		switch t.Type {
		case hclsyntax.TokenOBrace, hclsyntax.TokenOBrack, hclsyntax.TokenOParen,
			hclsyntax.TokenOHeredoc, hclsyntax.TokenOQuote, hclsyntax.TokenTemplateInterp, hclsyntax.TokenTemplateControl:
			f := frame{open: t.Type}
			if n := nextNonNewline(toks, i); n >= 0 && toks[n].Type == hclsyntax.TokenIdent && string(toks[n].Bytes) == "for" {
				f.forExpr = true
			}
			stack = append(stack, f)
			continue
		case hclsyntax.TokenCBrace, hclsyntax.TokenCBrack, hclsyntax.TokenCParen,
			hclsyntax.TokenCHeredoc, hclsyntax.TokenCQuote, hclsyntax.TokenTemplateSeqEnd:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			continue
		}
		if !endsLine(t) || len(stack) == 0 {
			continue
		}
		if top := stack[len(stack)-1]; top.forExpr || (top.open != hclsyntax.TokenOBrack && top.open != hclsyntax.TokenOParen) {
			continue
		}
		prev := prevSignificant(toks, i)
		if prev < 0 || !endsValue(toks[prev].Type) || !startsValue(nextSignificant(toks, i)) {
			continue
		}
		if pos := toks[prev].Range.End.Byte; len(at) == 0 || at[len(at)-1] != pos {
			at = append(at, pos)
		}
	}
	for i := len(at) - 1; i >= 0; i-- {
		src = src[:at[i]] + "," + src[at[i]:]
	}
	return src
}

// endsLine matches newlines and line comments, which carry their newline.
func endsLine(t hclsyntax.Token) bool {
	return t.Type == hclsyntax.TokenNewline ||
		(t.Type == hclsyntax.TokenComment && strings.HasSuffix(string(t.Bytes), "\n"))
}

// prevSignificant returns the index of the last token before i that is not
// a newline or comment, or -1.
func prevSignificant(toks hclsyntax.Tokens, i int) int {
	for j := i - 1; j >= 0; j-- {
		if toks[j].Type != hclsyntax.TokenNewline && toks[j].Type != hclsyntax.TokenComment {
			return j
		}
	}
	return -1
}

func nextNonNewline(toks hclsyntax.Tokens, i int) int {
	for j := i + 1; j < len(toks); j++ {
		if toks[j].Type != hclsyntax.TokenNewline && toks[j].Type != hclsyntax.TokenComment {
			return j
		}
	}
	return -1
}

func nextSignificant(toks hclsyntax.Tokens, i int) hclsyntax.TokenType {
	if j := nextNonNewline(toks, i); j >= 0 {
		return toks[j].Type
	}
	return hclsyntax.TokenNil
}

func endsValue(t hclsyntax.TokenType) bool {
	switch t {
	case hclsyntax.TokenIdent, hclsyntax.TokenNumberLit, hclsyntax.TokenCQuote,
		hclsyntax.TokenCBrack, hclsyntax.TokenCBrace, hclsyntax.TokenCParen, hclsyntax.TokenCHeredoc:
		return true
	}
	return false
}

func startsValue(t hclsyntax.TokenType) bool {
	switch t {
	case hclsyntax.TokenIdent, hclsyntax.TokenNumberLit, hclsyntax.TokenOQuote,
		hclsyntax.TokenOBrack, hclsyntax.TokenOBrace, hclsyntax.TokenOParen,
		hclsyntax.TokenOHeredoc, hclsyntax.TokenMinus, hclsyntax.TokenBang:
		return true
	}
	return false
}

// logicalLine is one statement line, possibly spanning several physical
// lines while brackets are open.
type logicalLine struct {
	num    int
	indent int
	text   string
}

func splitLogical(src string) []logicalLine {
	var out []logicalLine
	var cur *logicalLine
	var parts []string
	for i, ln := range strings.Split(src, "\n") {
		if cur == nil {
			if isBlank(ln) || isCommentLine(ln) {
				continue
			}
			trimmed := strings.TrimLeft(ln, " \t")
			cur = &logicalLine{num: i + 1, indent: indentWidth(ln[:len(ln)-len(trimmed)])}
			parts = parts[:0]
		}
		parts = append(parts, strings.TrimRight(ln, " \t\r"))
		joined := strings.TrimLeft(strings.Join(parts, "\n"), " \t")
		if bracketDepth(joined) > 0 {
			continue
		}
		cur.text = joined
		out = append(out, *cur)
		cur = nil
	}
	if cur != nil {
		cur.text = strings.TrimLeft(strings.Join(parts, "\n"), " \t")
		out = append(out, *cur)
	}
	return out
}

// indentWidth counts a tab as advancing to the next multiple of eight.
func indentWidth(ws string) int {
	n := 0
	for _, r := range ws {
		if r == '\t' {
			n += 8 - n%8
			continue
		}
		n++
	}
	return n
}

type nodeKind int

const (
	nodeSimple nodeKind = iota
	nodeIf
	nodeFor
)

type branch struct {
	line int
	cond string // empty for else
	body []*node
}

type node struct {
	kind     nodeKind
	line     int
	text     string
	branches []branch
	keyVar   string
	valVar   string
	iter     string
	body     []*node
}

// parseSuite parses the statements at one indentation level starting at
// lines[i]. It returns the nodes and the index of the first line that does
// not belong to the suite.
func parseSuite(lines []logicalLine, i, indent int) ([]*node, int, error) {
	var out []*node
	for i < len(lines) && lines[i].indent == indent {
		ln := lines[i]
		switch {
		case ifRe.MatchString(ln.text) && strings.HasPrefix(ln.text, "if"):
			n := &node{kind: nodeIf, line: ln.num}
			for first := true; i < len(lines) && lines[i].indent == indent; first = false {
				text := lines[i].text
				var cond string
				if m := ifRe.FindStringSubmatch(text); m != nil && (m[1] == "if") == first {
					cond = m[2]
				} else if !first && elseRe.MatchString(text) {
					cond = ""
				} else {
					break
				}
				body, next, err := parseBody(lines, i+1, indent)
				if err != nil {
					return nil, 0, err
				}
				n.branches = append(n.branches, branch{line: lines[i].num, cond: cond, body: body})
				i = next
				if cond == "" {
					break
				}
			}
			out = append(out, n)
		case forRe.MatchString(ln.text):
			m := forRe.FindStringSubmatch(ln.text)
			n := &node{kind: nodeFor, line: ln.num, iter: m[3]}
			if m[2] != "" {
				n.keyVar, n.valVar = m[1], m[2]
			} else {
				n.valVar = m[1]
			}
			body, next, err := parseBody(lines, i+1, indent)
			if err != nil {
				return nil, 0, err
			}
			n.body = body
			i = next
			out = append(out, n)
		case strings.HasPrefix(ln.text, "elif") || elseRe.MatchString(ln.text):
			return nil, 0, &Error{Kind: SyntaxError, Msg: "invalid syntax: " + firstWord(ln.text) + " without if", Line: ln.num}
		case isHeader(ln.text):
			return nil, 0, &Error{Kind: SyntaxError, Msg: "invalid syntax: " + ln.text, Line: ln.num}
		default:
			out = append(out, &node{kind: nodeSimple, line: ln.num, text: ln.text})
			i++
		}
	}
	if i < len(lines) && lines[i].indent > indent {
		return nil, 0, &Error{Kind: IndentationError, Msg: "unexpected indent", Line: lines[i].num}
	}
	return out, i, nil
}

func parseBody(lines []logicalLine, i, parent int) ([]*node, int, error) {
	if i >= len(lines) || lines[i].indent <= parent {
		line := 0
		if i > 0 && i-1 < len(lines) {
			line = lines[i-1].num
		}
		return nil, 0, &Error{Kind: IndentationError, Msg: "expected an indented block", Line: line}
	}
	return parseSuite(lines, i, lines[i].indent)
}

// parseProgram parses a compound statement.
func parseProgram(src string) ([]*node, error) {
	lines := splitLogical(src)
	if len(lines) == 0 {
		return nil, nil
	}
	if lines[0].indent > 0 {
		return nil, &Error{Kind: IndentationError, Msg: "unexpected indent", Line: lines[0].num}
	}
	nodes, next, err := parseSuite(lines, 0, 0)
	if err != nil {
		return nil, err
	}
	if next < len(lines) {
		return nil, &Error{Kind: IndentationError, Msg: "unindent does not match any outer indentation level", Line: lines[next].num}
	}
	return nodes, nil
}

func firstWord(s string) string {
	if f := strings.Fields(s); len(f) > 0 {
		return strings.TrimSuffix(f[0], ":")
	}
	return ""
}
