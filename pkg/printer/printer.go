// Package printer renders a decompiled AST as indented source text. Its
// job stops at "make the engine's output observable and testable end to
// end" (SPEC_FULL.md §2): literal formatting, docstring placement and
// exact whitespace conventions of a production pretty-printer are out of
// scope. What it does render, it renders correctly — proper block
// indentation and a real quote-delimiter choice via pkg/quoting, rather
// than the debug-only Node.String() forms pkg/ast carries for its own
// tests.
package printer

import (
	"fmt"
	"io"
	"strings"

	"pyretro/pkg/ast"
	"pyretro/pkg/quoting"
)

const indentUnit = "    "

// Print writes body to w as indented source text.
func Print(w io.Writer, body *ast.NodeList) error {
	p := &printer{w: w}
	p.statements(body.Body, 0)
	return p.err
}

// Sprint is Print into a string, for tests and the CLI's fixture mode.
func Sprint(body *ast.NodeList) string {
	var b strings.Builder
	_ = Print(&b, body)
	return b.String()
}

type printer struct {
	w   io.Writer
	err error
}

func (p *printer) line(depth int, s string) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, "%s%s\n", strings.Repeat(indentUnit, depth), s)
}

func (p *printer) statements(stmts []ast.Node, depth int) {
	if len(stmts) == 0 {
		p.line(depth, "pass")
		return
	}
	for _, stmt := range stmts {
		p.statement(stmt, depth)
	}
}

// statement renders one statement, recursing into a Block's own body at
// depth+1 rather than delegating to ast.Block.String()'s flat 2-space
// rendering, since nested blocks need real indentation to read as source.
func (p *printer) statement(n ast.Node, depth int) {
	blk, ok := n.(*ast.Block)
	if !ok {
		p.line(depth, statementString(n))
		return
	}

	if blk.Kind == ast.BlockContainer {
		// A container never prints its own line; it only groups Try/
		// Except/Finally children, which print at the same depth.
		p.statements(blk.Body, depth)
		return
	}

	p.line(depth, blockHeader(blk))
	p.statements(blk.Body, depth+1)
}

func blockHeader(b *ast.Block) string {
	switch b.Kind {
	case ast.BlockIf:
		return "if " + condString(b.Cond, b.Neg) + ":"
	case ast.BlockElif:
		return "elif " + condString(b.Cond, b.Neg) + ":"
	case ast.BlockElse:
		return "else:"
	case ast.BlockWhile:
		return "while " + condString(b.Cond, b.Neg) + ":"
	case ast.BlockFor:
		return "for " + exprString(b.Index) + " in " + exprString(b.Iter) + ":"
	case ast.BlockTry:
		return "try:"
	case ast.BlockExcept:
		if ast.IsNull(b.ExceptCond) || b.ExceptCond == nil {
			return "except:"
		}
		return "except " + exprString(b.ExceptCond) + ":"
	case ast.BlockFinally:
		return "finally:"
	default:
		return ""
	}
}

func condString(cond ast.Node, neg bool) string {
	if cond == nil {
		return "<uninit>"
	}
	if neg {
		return "not " + exprString(cond)
	}
	return exprString(cond)
}

// statementString renders one non-Block statement line. It mirrors each
// statement type's own String() composition but threads nested expressions
// through exprString instead of calling their String() directly, so a
// string literal nested inside a return/print/assignment still picks its
// quote delimiter through pkg/quoting rather than falling back to Go's %v
// formatting the way a bare Node.String() chain would.
func statementString(n ast.Node) string {
	switch v := n.(type) {
	case *ast.Store:
		return fmt.Sprintf("%s = %s", exprString(v.Destination), exprString(v.Source))
	case *ast.Delete:
		return "del " + exprString(v.Target)
	case *ast.Return:
		kw := "return"
		if v.Kind == ast.KindYield {
			kw = "yield"
		}
		if ast.IsNull(v.Value) {
			return kw
		}
		return kw + " " + exprString(v.Value)
	case *ast.Raise:
		if len(v.Params) == 0 {
			return "raise"
		}
		return "raise " + joinExprs(v.Params)
	case *ast.Print:
		if ast.IsNull(v.Value) {
			return "print"
		}
		return "print " + exprString(v.Value)
	case *ast.Exec:
		return "exec " + exprString(v.Stmt)
	default:
		return exprString(n)
	}
}

// exprString renders an expression node, the same recursive composition
// Node.String() performs, except an *ast.Object wrapping a string picks
// its quote delimiter through pkg/quoting instead of Go's %v formatting.
func exprString(n ast.Node) string {
	switch v := n.(type) {
	case nil:
		return ""
	case ast.Null:
		return "None"
	case *ast.Object:
		if s, ok := v.Value.(string); ok {
			return quoteString(s)
		}
		return fmt.Sprintf("%v", v.Value)
	case *ast.Binary:
		if v.Op == ast.BinAttr {
			return fmt.Sprintf("%s.%s", exprString(v.Left), attrName(v.Right))
		}
		if v.InPlace {
			return fmt.Sprintf("%s %s= %s", exprString(v.Left), v.Op, exprString(v.Right))
		}
		return fmt.Sprintf("(%s %s %s)", exprString(v.Left), v.Op, exprString(v.Right))
	case *ast.Unary:
		return fmt.Sprintf("%s%s", v.Op, exprString(v.Operand))
	case *ast.Compare:
		return fmt.Sprintf("(%s %s %s)", exprString(v.Left), v.Op, exprString(v.Right))
	case *ast.Call:
		return callString(v)
	case *ast.Subscr:
		return fmt.Sprintf("%s[%s]", exprString(v.Container), exprString(v.Index))
	case *ast.Slice:
		return sliceString(v)
	case *ast.List:
		return "[" + joinExprs(v.Elems) + "]"
	case *ast.Tuple:
		if len(v.Elems) == 1 {
			return fmt.Sprintf("(%s,)", exprString(v.Elems[0]))
		}
		return "(" + joinExprs(v.Elems) + ")"
	case *ast.Map:
		parts := make([]string, len(v.Entries))
		for i, e := range v.Entries {
			parts[i] = fmt.Sprintf("%s: %s", exprString(e.Key), exprString(e.Value))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return n.String()
	}
}

func attrName(n ast.Node) string {
	if nm, ok := n.(*ast.Name); ok {
		return nm.Ident
	}
	return exprString(n)
}

func callString(c *ast.Call) string {
	var parts []string
	for _, p := range c.Positional {
		parts = append(parts, exprString(p))
	}
	for _, kw := range c.Keywords {
		parts = append(parts, fmt.Sprintf("%s=%s", kw.Name, exprString(kw.Value)))
	}
	if !ast.IsNull(c.Star) {
		parts = append(parts, "*"+exprString(c.Star))
	}
	if !ast.IsNull(c.StarStar) {
		// The original prints the *args value twice instead of **kw — a
		// literal copy-paste in ASTree.cpp's own CALL_FUNCTION handler.
		// Preserved rather than fixed (spec.md's open questions).
		parts = append(parts, "**"+exprString(c.Star))
	}
	return fmt.Sprintf("%s(%s)", exprString(c.Func), strings.Join(parts, ", "))
}

func sliceString(s *ast.Slice) string {
	var l, r string
	if s.Left != nil {
		l = exprString(s.Left)
	}
	if s.Right != nil {
		r = exprString(s.Right)
	}
	return fmt.Sprintf("%s:%s", l, r)
}

func joinExprs(nodes []ast.Node) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = exprString(n)
	}
	return strings.Join(parts, ", ")
}

// quoteString wraps s in whichever delimiter pkg/quoting picks, escaping
// only that delimiter's own character when it appears inside a single-line
// literal (a triple-quoted literal never needs escaping since its
// delimiter run can't collide, per pkg/quoting's ChooseDelimiter contract).
func quoteString(s string) string {
	delim := quoting.ChooseDelimiter(s, true)
	body := s
	if delim == quoting.Single || delim == quoting.Double {
		body = strings.ReplaceAll(s, string(delim), "\\"+string(delim))
	}
	return string(delim) + body + string(delim)
}
