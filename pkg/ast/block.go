package ast

import "strings"

// BlockKind tags which structural construct a Block reconstructs.
type BlockKind int

const (
	BlockMain BlockKind = iota
	BlockIf
	BlockElif
	BlockElse
	BlockWhile
	BlockFor
	BlockTry
	BlockExcept
	BlockFinally
	// BlockContainer spans a try/except[/else][/finally] composite. It is
	// never printed directly (spec.md §3.2); its ExceptOffset/FinallyOffset
	// steer the control-flow reconstructor toward opening the next Except
	// or a Finally.
	BlockContainer
)

func (k BlockKind) String() string {
	switch k {
	case BlockMain:
		return "Main"
	case BlockIf:
		return "If"
	case BlockElif:
		return "Elif"
	case BlockElse:
		return "Else"
	case BlockWhile:
		return "While"
	case BlockFor:
		return "For"
	case BlockTry:
		return "Try"
	case BlockExcept:
		return "Except"
	case BlockFinally:
		return "Finally"
	case BlockContainer:
		return "Container"
	default:
		return "?"
	}
}

// InitState tracks an If/Elif/Else block's pre-population state, set by
// the conditional-jump handler's `popped` computation (spec.md §4.3).
type InitState int

const (
	Uninited InitState = iota
	PrePopped
	Popped
)

// Block is both an AST node (once closed, it becomes a child of whatever
// block is beneath it) and, while open, an entry on the decompiler's block
// stack. Its End offset is monotonically >= the current bytecode position
// on entry, except for blocks opened without one (End 0): a Finally, an
// Except opened by a forward JUMP_ABSOLUTE, and a Container opened by
// SETUP_EXCEPT until a JUMP_FORWARD records where its handlers end
// (spec.md §3.2's invariant).
type Block struct {
	Kind BlockKind
	Body []Node
	End  int

	// If / Elif / While.
	Cond Node
	Neg  bool
	Init InitState

	// For.
	Iter          Node
	Index         Node
	Comprehension bool

	// Except.
	ExceptCond Node

	// Container.
	HasExceptOffset  bool
	ExceptOffset     int
	HasFinallyOffset bool
	FinallyOffset    int
}

func (*Block) astNode() {}

func (b *Block) String() string {
	var head string
	switch b.Kind {
	case BlockIf:
		head = "if " + condString(b.Cond, b.Neg) + ":"
	case BlockElif:
		head = "elif " + condString(b.Cond, b.Neg) + ":"
	case BlockElse:
		head = "else:"
	case BlockWhile:
		head = "while " + condString(b.Cond, b.Neg) + ":"
	case BlockFor:
		head = "for " + b.Index.String() + " in " + b.Iter.String() + ":"
	case BlockTry:
		head = "try:"
	case BlockExcept:
		if IsNull(b.ExceptCond) || b.ExceptCond == nil {
			head = "except:"
		} else {
			head = "except " + b.ExceptCond.String() + ":"
		}
	case BlockFinally:
		head = "finally:"
	case BlockContainer:
		head = "<container>"
	default:
		head = ""
	}
	var out strings.Builder
	if head != "" {
		out.WriteString(head)
		out.WriteString("\n")
	}
	if len(b.Body) == 0 {
		out.WriteString("  pass")
	}
	for i, stmt := range b.Body {
		if i > 0 {
			out.WriteString("\n")
		}
		out.WriteString("  " + stmt.String())
	}
	return out.String()
}

func condString(cond Node, neg bool) string {
	if cond == nil {
		return "<uninit>"
	}
	if neg {
		return "not " + cond.String()
	}
	return cond.String()
}

// Append adds a finished child statement to the block's body, in bytecode
// order — the only way statements accumulate inside an open block.
func (b *Block) Append(n Node) {
	b.Body = append(b.Body, n)
}

// Empty reports whether the block has accepted no children yet, used by
// the Else-collapse and empty-Except rules in the control-flow
// reconstructor (spec.md §4.3).
func (b *Block) Empty() bool { return len(b.Body) == 0 }
