package decompiler

import (
	"pyretro/pkg/ast"
	"pyretro/pkg/pyc"
)

// Options configures one Decompile call. It replaces the teacher's original
// process-global mutable flags (cleanBuild, inPrint, printGlobals) with an
// explicit, per-invocation value — no two concurrent Decompile calls can
// step on each other's state (spec.md §9's redesign flag).
type Options struct {
	// StrictComprehensions flags spec.md §4.3's two LIST_APPEND-adjacent
	// heuristics instead of applying them silently: popTop's comprehension-
	// append-target check records a StructuralAnomalyError when the popped
	// value isn't a Call and does not guess a Comprehension when the call's
	// first argument is itself a Call, and listAppend's bare-subscript
	// "total hack" for LIST_APPEND outside a comprehension records a
	// StructuralAnomalyError alongside its guess rather than staying quiet
	// about it.
	StrictComprehensions bool

	// MajorVersion / MinorVersion steer the handful of opcode handlers
	// whose stack effect changed across releases (LOAD_FAST's name-vs-
	// varname table, IMPORT_NAME's import-level operand, RAISE_VARARGS'
	// and RETURN_VALUE's look-ahead-and-skip quirk).
	MajorVersion int
	MinorVersion int
}

func (o Options) versionAtLeast(major, minor int) bool {
	if o.MajorVersion != major {
		return o.MajorVersion > major
	}
	return o.MinorVersion >= minor
}

// Context is the per-invocation state the reconstruction engine threads
// through the instruction stream: the operand stack, its snapshot history,
// and the block stack (spec.md §4.1's three coupled structures). It plays
// the role the teacher's *VM struct plays for bytecode execution
// (pkg/vm/vm.go) — one instance per Decompile call, never shared.
type Context struct {
	code pyc.Code
	mod  pyc.Module
	opts Options

	opStack   []ast.Node
	stackHist [][]ast.Node
	blocks    []*ast.Block

	unpack     int
	elsePop    bool
	needTry    bool
	CleanBuild bool

	InPrint bool

	pos    int
	diags  Diagnostics
}

func newContext(code pyc.Code, mod pyc.Module, opts Options) *Context {
	main := &ast.Block{Kind: ast.BlockMain}
	return &Context{
		code:       code,
		mod:        mod,
		opts:       opts,
		blocks:     []*ast.Block{main},
		CleanBuild: true,
	}
}

// -- operand stack --

func (c *Context) push(n ast.Node) { c.opStack = append(c.opStack, n) }

func (c *Context) pop() ast.Node {
	if len(c.opStack) == 0 {
		return ast.Null{}
	}
	n := c.opStack[len(c.opStack)-1]
	c.opStack = c.opStack[:len(c.opStack)-1]
	return n
}

func (c *Context) top() ast.Node {
	if len(c.opStack) == 0 {
		return ast.Null{}
	}
	return c.opStack[len(c.opStack)-1]
}

// -- stack history --

// pushHist snapshots the current operand stack, mirroring stack_hist.push
// in the original — every conditional-jump/SETUP_* handler that might need
// to reconstruct an alternate branch (else, except, finally) takes one of
// these before mutating the live stack.
func (c *Context) pushHist() {
	snap := make([]ast.Node, len(c.opStack))
	copy(snap, c.opStack)
	c.stackHist = append(c.stackHist, snap)
}

// popHist restores the operand stack from the most recent snapshot,
// discarding it.
func (c *Context) popHist() {
	if len(c.stackHist) == 0 {
		return
	}
	last := c.stackHist[len(c.stackHist)-1]
	c.stackHist = c.stackHist[:len(c.stackHist)-1]
	c.opStack = last
}

// discardHist drops the most recent snapshot without restoring it — used
// when a branch turns out not to need its saved alternate stack.
func (c *Context) discardHist() {
	if len(c.stackHist) == 0 {
		return
	}
	c.stackHist = c.stackHist[:len(c.stackHist)-1]
}

func (c *Context) histLen() int { return len(c.stackHist) }

// dropSecondHist collapses the two most recently pushed history entries
// into one, keeping only the top — used by the short-circuit AND/OR merge
// case, which pushes a snapshot on each of two chained conditional jumps
// but only needs the second by the time the merge completes.
func (c *Context) dropSecondHist() {
	if len(c.stackHist) < 2 {
		if len(c.stackHist) == 1 {
			c.stackHist = c.stackHist[:0]
		}
		return
	}
	top := c.stackHist[len(c.stackHist)-1]
	c.stackHist = c.stackHist[:len(c.stackHist)-2]
	c.stackHist = append(c.stackHist, top)
}

// -- block stack --

func (c *Context) curBlock() *ast.Block { return c.blocks[len(c.blocks)-1] }

func (c *Context) pushBlock(b *ast.Block) {
	c.blocks = append(c.blocks, b)
	debugf("push block %s (depth=%d)\n", b.Kind, len(c.blocks))
}

// popBlock removes and returns the current block, exposing the new top as
// the caller's new "curblock".
func (c *Context) popBlock() *ast.Block {
	b := c.blocks[len(c.blocks)-1]
	c.blocks = c.blocks[:len(c.blocks)-1]
	debugf("pop block %s (depth=%d)\n", b.Kind, len(c.blocks))
	return b
}

func (c *Context) blockDepth() int { return len(c.blocks) }

// closeInto pops the current block and appends it as a finished statement
// to whatever block is now on top, unless it is an empty Else — which the
// spec (and the original) drop rather than render as a no-op clause.
func (c *Context) closeInto(b *ast.Block) {
	if b.Kind == ast.BlockElse && b.Empty() {
		return
	}
	c.curBlock().Append(b)
}

func (c *Context) fail(err DecompileError) {
	c.diags.add(err)
	if _, ok := err.(*UnsupportedOpcodeError); ok {
		c.CleanBuild = false
	}
}
