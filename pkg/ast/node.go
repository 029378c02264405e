// Package ast defines the tagged Node sum type the decompiler builds and
// the out-of-scope pretty-printer consumes. Every variant owns its
// children outright; nothing here holds a back-reference to a parent, so
// the tree can never form a cycle (see spec.md §3.3).
package ast

import "strings"

// Node is implemented by every AST variant. String returns a debug
// rendering used by this module's own tests; pkg/printer formats most
// expressions and statements itself and falls back to String only for the
// node kinds it does not special-case (Import, Function, Class, Keyword,
// Comprehension, Name).
type Node interface {
	String() string
	astNode()
}

// Null is the dedicated sentinel for "no child present", distinct from a
// present child that happens to print as None. Comparing against Null
// (rather than a nil interface) lets emitters ask "was this omitted" and
// "does this evaluate to None" as two separate questions.
type Null struct{}

func (Null) String() string { return "<null>" }
func (Null) astNode()       {}

// IsNull reports whether n is the Null sentinel (nil counts as absent too,
// since a freshly zero-valued field defaults to nil rather than Null).
func IsNull(n Node) bool {
	if n == nil {
		return true
	}
	_, ok := n.(Null)
	return ok
}

// NodeList is the ordered sequence of statements making up a body: the
// top-level module body, or any block's finished child list once closed.
type NodeList struct {
	Body []Node
}

func (n *NodeList) astNode() {}
func (n *NodeList) String() string {
	var b strings.Builder
	for i, stmt := range n.Body {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(stmt.String())
	}
	return b.String()
}

// Append adds a finished statement to the body in bytecode order.
func (n *NodeList) Append(stmt Node) {
	n.Body = append(n.Body, stmt)
}
