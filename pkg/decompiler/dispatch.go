package decompiler

import (
	"pyretro/pkg/ast"
	"pyretro/pkg/pyc"
)

// Decompile reconstructs a code object's body as an AST, walking its
// instruction stream once and never backtracking. It never returns an
// error: every fault is non-fatal (spec.md §7) and recorded in the
// returned Diagnostics, alongside whatever partial tree the scan produced
// before or after the fault.
func Decompile(code pyc.Code, mod pyc.Module, opts Options) (*ast.NodeList, *Diagnostics) {
	c := newContext(code, mod, opts)
	buf := code.Bytes()

	for c.pos < len(buf) {
		curpos := c.pos
		op, operand, ok := pyc.Next(buf, mod, &c.pos)
		if !ok {
			c.fail(&StructuralAnomalyError{
				Position: Position{Offset: curpos},
				Msg:      "truncated instruction at end of code object",
			})
			break
		}

		c.preSwitchHook(op, curpos)

		if !c.dispatch(op, operand, curpos) {
			c.fail(&UnsupportedOpcodeError{
				Position: Position{Offset: curpos},
				Op:       op,
			})
			break
		}

		c.recomputeElsePop(curpos)
	}

	c.drainDanglingState()

	return &ast.NodeList{Body: c.mainBody()}, &c.diags
}

func (c *Context) mainBody() []ast.Node {
	return c.blocks[0].Body
}

// preSwitchHook runs the two checks the original performs before entering
// the opcode switch: opening the implicit Try block that SETUP_FINALLY
// deferred (need_try) unless a SETUP_EXCEPT follows and opens its own, and
// closing a chain of If/Elif/Except/Else blocks
// whose End has been reached by an opcode other than a jump or POP_BLOCK
// (else_pop). Both mutate curblock ahead of the opcode's own handler.
func (c *Context) preSwitchHook(op pyc.Opcode, pos int) {
	switch {
	case c.needTry && op != pyc.SETUP_EXCEPT:
		c.needTry = false
		c.pushHist()
		try := &ast.Block{Kind: ast.BlockTry, End: c.curBlock().End, Init: ast.Popped}
		c.pushBlock(try)

	case c.elsePop && !isJumpOrPopBlock(op):
		c.elsePop = false
		c.closeChainUpTo(pos)
	}
}

func isJumpOrPopBlock(op pyc.Opcode) bool {
	switch op {
	case pyc.JUMP_FORWARD, pyc.JUMP_IF_FALSE, pyc.JUMP_IF_FALSE_OR_POP,
		pyc.POP_JUMP_IF_FALSE, pyc.JUMP_IF_TRUE, pyc.JUMP_IF_TRUE_OR_POP,
		pyc.POP_JUMP_IF_TRUE, pyc.POP_BLOCK:
		return true
	}
	return false
}

// closeChainUpTo walks up the block stack closing every block whose End
// has already been reached, popping one stack-history snapshot per
// non-Container block closed along the way (spec.md §4.3's "walk up
// closing chained blocks" rule).
func (c *Context) closeChainUpTo(pos int) {
	for {
		prev := c.curBlock()
		if prev.End >= pos || prev.Kind == ast.BlockMain {
			return
		}
		if prev.Kind != ast.BlockContainer {
			if prev.End == 0 {
				return
			}
			c.discardHist()
		}
		c.popBlock()
		c.closeInto(prev)
	}
}

// recomputeElsePop mirrors the unconditional post-switch assignment the
// original performs after every instruction: an open If/Elif/Else block
// whose End has just been reached needs its chain closed on the very next
// instruction unless that instruction is itself a jump or POP_BLOCK
// (which already do the closing themselves).
func (c *Context) recomputeElsePop(pos int) {
	b := c.curBlock()
	c.elsePop = (b.Kind == ast.BlockElse || b.Kind == ast.BlockIf || b.Kind == ast.BlockElif) && b.End == pos
}

// drainDanglingState attaches any block left open at end-of-stream to its
// parent, best-effort, and records a DanglingStateWarning rather than
// dropping the partial reconstruction (spec.md §7).
func (c *Context) drainDanglingState() {
	if len(c.stackHist) > 0 {
		c.diags.add(&DanglingStateWarning{
			Position: Position{Offset: c.pos},
			Msg:      "stack history was not empty at end of stream",
		})
		c.stackHist = nil
	}
	if len(c.blocks) > 1 {
		c.diags.add(&DanglingStateWarning{
			Position: Position{Offset: c.pos},
			Msg:      "block stack was not empty at end of stream",
		})
		for len(c.blocks) > 1 {
			tmp := c.popBlock()
			c.curBlock().Append(tmp)
		}
	}
}
