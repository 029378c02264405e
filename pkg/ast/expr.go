package ast

import (
	"fmt"
	"strings"
)

// BinaryOp tags a Binary node. Attribute access (`a.b`) is modeled as a
// Binary too (spec.md §3.1), since it is structurally "left, right, op"
// just like arithmetic — the printer decides how each op renders.
type BinaryOp int

const (
	BinAdd BinaryOp = iota
	BinSub
	BinMul
	BinDiv
	BinFloorDiv
	BinTrueDiv
	BinMod
	BinPow
	BinLshift
	BinRshift
	BinAnd
	BinOr
	BinXor
	BinLogAnd
	BinLogOr
	BinAttr
)

var binaryOpSymbols = map[BinaryOp]string{
	BinAdd: "+", BinSub: "-", BinMul: "*", BinDiv: "/",
	BinFloorDiv: "//", BinTrueDiv: "/", BinMod: "%", BinPow: "**",
	BinLshift: "<<", BinRshift: ">>", BinAnd: "&", BinOr: "|", BinXor: "^",
	BinLogAnd: "and", BinLogOr: "or", BinAttr: ".",
}

func (op BinaryOp) String() string { return binaryOpSymbols[op] }

// Binary is a two-operand expression. InPlace is set by the INPLACE_*
// opcodes so the printer can emit `a += b` instead of `a = a + b`; it is
// meaningless (and always false) for comparison/logical/attribute ops.
type Binary struct {
	Left, Right Node
	Op          BinaryOp
	InPlace     bool
}

func (*Binary) astNode() {}
func (b *Binary) String() string {
	if b.Op == BinAttr {
		return fmt.Sprintf("%s.%s", b.Left, nameOf(b.Right))
	}
	eq := "="
	if b.InPlace {
		eq = b.Op.String() + "="
		return fmt.Sprintf("%s %s %s", b.Left, eq, b.Right)
	}
	return fmt.Sprintf("(%s %s %s)", b.Left, b.Op, b.Right)
}

func nameOf(n Node) string {
	if nm, ok := n.(*Name); ok {
		return nm.Ident
	}
	return n.String()
}

// UnaryOp tags a Unary node.
type UnaryOp int

const (
	UnaryNot UnaryOp = iota
	UnaryNeg
	UnaryPos
	UnaryInvert
)

var unaryOpSymbols = map[UnaryOp]string{
	UnaryNot: "not ", UnaryNeg: "-", UnaryPos: "+", UnaryInvert: "~",
}

func (op UnaryOp) String() string { return unaryOpSymbols[op] }

type Unary struct {
	Operand Node
	Op      UnaryOp
}

func (*Unary) astNode() {}
func (u *Unary) String() string { return fmt.Sprintf("%s%s", u.Op, u.Operand) }

// CompareOp tags a Compare node. CompareExcMatch never appears in
// user-facing output: it marks the exception-type test synthesized ahead
// of an except clause and is consumed structurally by the control-flow
// reconstructor (spec.md §4.3 rule 1), never printed.
type CompareOp int

const (
	CmpLt CompareOp = iota
	CmpLe
	CmpEq
	CmpNe
	CmpGt
	CmpGe
	CmpIn
	CmpNotIn
	CmpIs
	CmpIsNot
	CompareExcMatch
)

var compareOpSymbols = map[CompareOp]string{
	CmpLt: "<", CmpLe: "<=", CmpEq: "==", CmpNe: "!=", CmpGt: ">", CmpGe: ">=",
	CmpIn: "in", CmpNotIn: "not in", CmpIs: "is", CmpIsNot: "is not",
	CompareExcMatch: "<exc-match>",
}

func (op CompareOp) String() string { return compareOpSymbols[op] }

type Compare struct {
	Left, Right Node
	Op          CompareOp
}

func (*Compare) astNode() {}
func (c *Compare) String() string {
	return fmt.Sprintf("(%s %s %s)", c.Left, c.Op, c.Right)
}

// KeywordArg is one keyword-argument (name, value) pair in a Call, kept in
// declaration order. Distinct from the ast.Keyword statement node
// (break/continue/pass); the spec's node table names both "Keyword" for
// different things, so this one is disambiguated as KeywordArg.
type KeywordArg struct {
	Name  string
	Value Node
}

// Call models a function invocation, including the *args/**kwargs
// extensions CALL_FUNCTION_VAR/_KW/_VAR_KW attach.
type Call struct {
	Func       Node
	Positional []Node
	Keywords   []KeywordArg
	Star       Node // Null if absent
	StarStar   Node // Null if absent
}

func (*Call) astNode() {}
func (c *Call) String() string {
	var parts []string
	for _, p := range c.Positional {
		parts = append(parts, p.String())
	}
	for _, kw := range c.Keywords {
		parts = append(parts, fmt.Sprintf("%s=%s", kw.Name, kw.Value))
	}
	if !IsNull(c.Star) {
		parts = append(parts, "*"+c.Star.String())
	}
	if !IsNull(c.StarStar) {
		// The original prints the *args value twice instead of **kw — a
		// literal copy-paste in ASTree.cpp's own CALL_FUNCTION handler.
		// Preserved rather than fixed (spec.md's open questions).
		parts = append(parts, "**"+c.Star.String())
	}
	return fmt.Sprintf("%s(%s)", c.Func, strings.Join(parts, ", "))
}

// Name is a bare identifier reference (local, global, attribute, or
// module-level name — the decompiler doesn't distinguish scope kind in
// the node itself).
type Name struct {
	Ident string
}

func (*Name) astNode()        {}
func (n *Name) String() string { return n.Ident }

// Object wraps a constant-pool literal. LOAD_CONST downcasts at load time
// (spec.md §4.2): an empty tuple constant becomes Tuple{}, the None
// constant becomes Null{}, and everything else becomes Object so later
// emitters can cheaply test "no value" without inspecting the payload.
type Object struct {
	Value any
}

func (*Object) astNode() {}
func (o *Object) String() string { return fmt.Sprintf("%v", o.Value) }

// List and Tuple share an ordered-elements shape; Map is an ordered list
// of key/value pairs, since dict literal insertion order is
// observable (STORE_SUBSCR appends one entry at a time).
type List struct{ Elems []Node }

func (*List) astNode() {}
func (l *List) String() string { return "[" + joinNodes(l.Elems) + "]" }

type Tuple struct{ Elems []Node }

func (*Tuple) astNode() {}
func (t *Tuple) String() string {
	if len(t.Elems) == 0 {
		return "()"
	}
	if len(t.Elems) == 1 {
		return fmt.Sprintf("(%s,)", t.Elems[0])
	}
	return "(" + joinNodes(t.Elems) + ")"
}

type MapEntry struct{ Key, Value Node }

type Map struct{ Entries []MapEntry }

func (*Map) astNode() {}
func (m *Map) String() string {
	parts := make([]string, len(m.Entries))
	for i, e := range m.Entries {
		parts[i] = fmt.Sprintf("%s: %s", e.Key, e.Value)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Put appends one key/value pair, modeling the STORE_SUBSCR-onto-Map
// accumulation described in spec.md §4.2 and SPEC_FULL.md §6.
func (m *Map) Put(key, value Node) {
	m.Entries = append(m.Entries, MapEntry{Key: key, Value: value})
}

func joinNodes(nodes []Node) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = n.String()
	}
	return strings.Join(parts, ", ")
}

// Subscr is a container[index] expression; index may itself be a Slice.
type Subscr struct {
	Container, Index Node
}

func (*Subscr) astNode() {}
func (s *Subscr) String() string { return fmt.Sprintf("%s[%s]", s.Container, s.Index) }

// SliceKind tags which of the four slice shapes BUILD_SLICE produced.
type SliceKind int

const (
	SliceFull  SliceKind = iota // [:]
	SliceLeft                   // [a:]
	SliceRight                  // [:b]
	SliceBoth                   // [a:b]
)

// Slice models a[a:b] indexing. Left/Right are nil (not Null) when absent
// per Kind, matching BUILD_SLICE's own "None means absent" rule from
// spec.md §4.2 (BUILD_SLICE treats a None operand as absent, not as a
// present-but-null Slice bound).
type Slice struct {
	Kind        SliceKind
	Left, Right Node
}

func (*Slice) astNode() {}
func (s *Slice) String() string {
	var l, r string
	if s.Left != nil {
		l = s.Left.String()
	}
	if s.Right != nil {
		r = s.Right.String()
	}
	return fmt.Sprintf("%s:%s", l, r)
}
