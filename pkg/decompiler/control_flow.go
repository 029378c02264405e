package decompiler

import (
	"pyretro/pkg/ast"
	"pyretro/pkg/pyc"
)

// translateCompareOp maps COMPARE_OP's raw operand to the version-
// independent CompareOp tag, following the fixed ordering the bytecode's
// cmp_op table has carried since 1.x: <, <=, ==, !=, >, >=, in, not in,
// is, is not, exception-match.
func translateCompareOp(operand int) ast.CompareOp {
	switch operand {
	case 0:
		return ast.CmpLt
	case 1:
		return ast.CmpLe
	case 2:
		return ast.CmpEq
	case 3:
		return ast.CmpNe
	case 4:
		return ast.CmpGt
	case 5:
		return ast.CmpGe
	case 6:
		return ast.CmpIn
	case 7:
		return ast.CmpNotIn
	case 8:
		return ast.CmpIs
	case 9:
		return ast.CmpIsNot
	default:
		return ast.CompareExcMatch
	}
}

var binaryTable = map[pyc.Opcode]binarySpec{
	pyc.BINARY_ADD:          {ast.BinAdd, false},
	pyc.BINARY_SUBTRACT:     {ast.BinSub, false},
	pyc.BINARY_MULTIPLY:     {ast.BinMul, false},
	pyc.BINARY_DIVIDE:       {ast.BinDiv, false},
	pyc.BINARY_FLOOR_DIVIDE: {ast.BinFloorDiv, false},
	pyc.BINARY_TRUE_DIVIDE:  {ast.BinTrueDiv, false},
	pyc.BINARY_MODULO:       {ast.BinMod, false},
	pyc.BINARY_POWER:        {ast.BinPow, false},
	pyc.BINARY_LSHIFT:       {ast.BinLshift, false},
	pyc.BINARY_RSHIFT:       {ast.BinRshift, false},
	pyc.BINARY_AND:          {ast.BinAnd, false},
	pyc.BINARY_OR:           {ast.BinOr, false},
	pyc.BINARY_XOR:          {ast.BinXor, false},
	pyc.INPLACE_ADD:          {ast.BinAdd, true},
	pyc.INPLACE_SUBTRACT:     {ast.BinSub, true},
	pyc.INPLACE_MULTIPLY:     {ast.BinMul, true},
	pyc.INPLACE_DIVIDE:       {ast.BinDiv, true},
	pyc.INPLACE_FLOOR_DIVIDE: {ast.BinFloorDiv, true},
	pyc.INPLACE_TRUE_DIVIDE:  {ast.BinTrueDiv, true},
	pyc.INPLACE_MODULO:       {ast.BinMod, true},
	pyc.INPLACE_POWER:        {ast.BinPow, true},
	pyc.INPLACE_LSHIFT:       {ast.BinLshift, true},
	pyc.INPLACE_RSHIFT:       {ast.BinRshift, true},
	pyc.INPLACE_AND:          {ast.BinAnd, true},
	pyc.INPLACE_OR:           {ast.BinOr, true},
	pyc.INPLACE_XOR:          {ast.BinXor, true},
}

var unaryTable = map[pyc.Opcode]ast.UnaryOp{
	pyc.UNARY_POSITIVE: ast.UnaryPos,
	pyc.UNARY_NEGATIVE: ast.UnaryNeg,
	pyc.UNARY_NOT:      ast.UnaryNot,
	pyc.UNARY_INVERT:   ast.UnaryInvert,
}

// dispatch executes one decoded instruction against the context. pos is
// the instruction's own offset (curpos in the original); c.pos already
// holds the offset immediately following it (pos in the original) since
// the caller advances before dispatching. It returns false for an opcode
// this dispatcher has no handler for.
func (c *Context) dispatch(op pyc.Opcode, operand, pos int) bool {
	if spec, ok := binaryTable[op]; ok {
		c.buildBinary(spec)
		return true
	}
	if uop, ok := unaryTable[op]; ok {
		c.buildUnary(uop)
		return true
	}

	switch op {
	case pyc.POP_TOP:
		c.popTop()
	case pyc.ROT_TWO:
		one, two := c.pop(), c.pop()
		c.push(one)
		c.push(two)
	case pyc.ROT_THREE:
		one, two, three := c.pop(), c.pop(), c.pop()
		c.push(one)
		c.push(three)
		c.push(two)
	case pyc.DUP_TOP:
		c.push(c.top())
	case pyc.DUP_TOPX:
		items := make([]ast.Node, operand)
		for i := 0; i < operand; i++ {
			items[i] = c.pop()
		}
		for i := operand - 1; i >= 0; i-- {
			c.push(items[i])
		}
		for i := operand - 1; i >= 0; i-- {
			c.push(items[i])
		}

	case pyc.BINARY_SUBSCR:
		c.buildSubscr()

	case pyc.COMPARE_OP:
		c.buildCompare(translateCompareOp(operand))

	case pyc.LOAD_CONST:
		c.loadConst(c.code.Const(operand), pos)
	case pyc.LOAD_FAST:
		c.push(c.nameFromVar(operand))
	case pyc.LOAD_NAME, pyc.LOAD_GLOBAL:
		c.push(&ast.Name{Ident: c.code.Name(operand)})
	case pyc.LOAD_LOCALS:
		c.push(&ast.Name{Ident: "locals()"})
	case pyc.LOAD_ATTR:
		if _, ok := c.top().(*ast.Import); !ok {
			name := c.pop()
			c.push(&ast.Binary{Left: name, Right: &ast.Name{Ident: c.code.Name(operand)}, Op: ast.BinAttr})
		}

	case pyc.STORE_FAST:
		c.storeFast(operand, pos)
	case pyc.STORE_NAME:
		c.storeName(operand, pos)
	case pyc.STORE_GLOBAL:
		c.storeGlobal(operand)
	case pyc.STORE_ATTR:
		c.storeAttr(operand)
	case pyc.STORE_SUBSCR:
		c.storeSubscr()
	case pyc.STORE_SLICE:
		c.storeSlice(ast.SliceKind(operand))

	case pyc.DELETE_FAST:
		c.deleteFast(operand)
	case pyc.DELETE_NAME:
		c.deleteName(operand)
	case pyc.DELETE_GLOBAL:
		c.deleteGlobal(operand)
	case pyc.DELETE_ATTR:
		c.deleteAttr(operand)
	case pyc.DELETE_SUBSCR:
		c.deleteSubscr()
	case pyc.DELETE_SLICE:
		c.deleteSlice(ast.SliceKind(operand))

	case pyc.BUILD_SLICE:
		c.buildSlice(operand)
	case pyc.BUILD_LIST:
		c.buildList(operand)
	case pyc.BUILD_TUPLE:
		c.buildTuple(operand)
	case pyc.BUILD_MAP:
		c.push(&ast.Map{})
	case pyc.BUILD_CLASS:
		c.buildClass()
	case pyc.MAKE_FUNCTION, pyc.MAKE_CLOSURE:
		c.buildMakeFunction(operand)

	case pyc.CALL_FUNCTION:
		c.buildCall(operand&0xFF, (operand>>8)&0xFF, false, false)
	case pyc.CALL_FUNCTION_VAR:
		c.buildCall(operand&0xFF, (operand>>8)&0xFF, true, false)
	case pyc.CALL_FUNCTION_KW:
		c.buildCall(operand&0xFF, (operand>>8)&0xFF, false, true)
	case pyc.CALL_FUNCTION_VAR_KW:
		c.buildCall(operand&0xFF, (operand>>8)&0xFF, true, true)

	case pyc.RETURN_VALUE:
		return c.finishOrSkipNext(c.returnValue())
	case pyc.YIELD_VALUE:
		c.yieldValue()
	case pyc.RAISE_VARARGS:
		return c.finishOrSkipNext(c.raise(operand))
	case pyc.PRINT_ITEM:
		c.print(false)
	case pyc.PRINT_ITEM_TO:
		c.print(true)
	case pyc.PRINT_NEWLINE:
		c.printNewline(false)
	case pyc.PRINT_NEWLINE_TO:
		c.printNewline(true)
	case pyc.IMPORT_NAME:
		c.importName(operand)
	case pyc.IMPORT_FROM:
		c.importFrom(operand)
	case pyc.IMPORT_STAR:
		c.importStar()
	case pyc.EXEC_STMT:
		c.exec()

	case pyc.GET_ITER:
		// Ignored entirely, matching ASTree.cpp: FOR_ITER already treats
		// its popped operand as the iterable.

	case pyc.FOR_ITER:
		c.forIter()
	case pyc.FOR_LOOP:
		c.forLoop()
	case pyc.LIST_APPEND:
		c.listAppend(pos)
	case pyc.UNPACK_SEQUENCE:
		c.unpack = operand
		c.push(&ast.Tuple{})

	case pyc.SETUP_LOOP:
		blk := &ast.Block{Kind: ast.BlockWhile, End: c.pos + operand}
		c.pushBlock(blk)
	case pyc.SETUP_EXCEPT:
		c.setupExcept(operand)
	case pyc.SETUP_FINALLY:
		blk := &ast.Block{Kind: ast.BlockContainer, End: c.pos + operand,
			HasFinallyOffset: true, FinallyOffset: c.pos + operand}
		c.pushBlock(blk)
		c.needTry = true
	case pyc.POP_BLOCK:
		c.popBlockOp()
	case pyc.END_FINALLY:
		c.endFinally()
	case pyc.BREAK_LOOP:
		c.curBlock().Append(&ast.Keyword{Tag: ast.KwBreak})
	case pyc.CONTINUE_LOOP:
		c.curBlock().Append(&ast.Keyword{Tag: ast.KwContinue})
	case pyc.JUMP_FORWARD:
		c.jumpForward(operand)
	case pyc.JUMP_ABSOLUTE:
		c.jumpAbsolute(operand)
	case pyc.JUMP_IF_FALSE, pyc.JUMP_IF_TRUE,
		pyc.JUMP_IF_FALSE_OR_POP, pyc.JUMP_IF_TRUE_OR_POP,
		pyc.POP_JUMP_IF_FALSE, pyc.POP_JUMP_IF_TRUE:
		c.jumpIf(op, pos, operand)
	case pyc.JUMP_IF_NOT_DEBUG:
		// Assert lowering: treated exactly like a plain conditional jump,
		// the exception raised on the not-taken path is emitted by the
		// RAISE_VARARGS that follows.
		c.jumpIf(pyc.POP_JUMP_IF_TRUE, pos, operand)

	case pyc.SET_LINENO:
		// Silently ignored (SPEC_FULL.md §6): carries no AST-relevant state.

	default:
		return false
	}
	return true
}

// finishOrSkipNext advances past the instruction that immediately follows
// a return/raise when maybeCloseBranchOnExit reports the branch closed —
// the original calls bc_next one extra time and discards its result. We
// reproduce that by nudging c.pos forward one decoded instruction.
func (c *Context) finishOrSkipNext(skip bool) bool {
	if skip {
		buf := c.code.Bytes()
		if _, _, ok := pyc.Next(buf, c.mod, &c.pos); !ok {
			c.diags.add(&DanglingStateWarning{
				Position: Position{Offset: c.pos},
				Msg:      "look-ahead skip ran past end of stream",
			})
		}
	}
	return true
}

// forIter implements FOR_ITER_A: pops the iterable, decides — by whether
// the block beneath is still a bare While (a real for-loop) or something
// else (a comprehension's generator clause) — whether this is a genuine
// loop or a comprehension for-clause, and pushes the Null placeholder the
// original leaves for the loop variable slot.
func (c *Context) forIter() {
	iter := c.pop()
	top := c.curBlock()
	comprehension := true
	if top.Kind == ast.BlockWhile {
		c.popBlock()
		comprehension = false
	}
	forBlk := &ast.Block{Kind: ast.BlockFor, End: top.End, Iter: iter, Comprehension: comprehension}
	c.pushBlock(forBlk)
	c.push(ast.Null{})
}

// forLoop implements the legacy FOR_LOOP_A, which additionally threads an
// explicit index counter through the stack (`push iter, curidx, Null`)
// rather than relying on GET_ITER/FOR_ITER's opaque iterator object.
func (c *Context) forLoop() {
	curidx := c.pop()
	iter := c.pop()
	top := c.curBlock()
	comprehension := true
	if top.Kind == ast.BlockWhile {
		c.popBlock()
		comprehension = false
	}
	forBlk := &ast.Block{Kind: ast.BlockFor, End: top.End, Iter: iter, Comprehension: comprehension}
	c.pushBlock(forBlk)
	c.push(iter)
	c.push(curidx)
	c.push(ast.Null{})
}

func (c *Context) setupExcept(operand int) {
	target := c.pos + operand
	if c.curBlock().Kind == ast.BlockContainer {
		c.curBlock().HasExceptOffset = true
		c.curBlock().ExceptOffset = target
	} else {
		cont := &ast.Block{Kind: ast.BlockContainer, HasExceptOffset: true, ExceptOffset: target}
		c.pushBlock(cont)
	}
	c.pushHist()
	try := &ast.Block{Kind: ast.BlockTry, End: target, Init: ast.Popped}
	c.pushBlock(try)
	c.needTry = false
}

// jumpIf is the combined handler for JUMP_IF_FALSE/TRUE, their _OR_POP
// variants, and POP_JUMP_IF_FALSE/TRUE — six opcodes that all open a new
// conditional block but differ in when (or whether) the condition value
// is popped and whether the branch offset is absolute or relative
// (spec.md §4.3 rule set).
func (c *Context) jumpIf(op pyc.Opcode, pos, operand int) {
	cond := c.top()
	init := ast.Uninited

	if op == pyc.POP_JUMP_IF_FALSE || op == pyc.POP_JUMP_IF_TRUE {
		c.pop()
		init = ast.PrePopped
	}

	c.pushHist()

	if op == pyc.JUMP_IF_FALSE_OR_POP || op == pyc.JUMP_IF_TRUE_OR_POP {
		c.pop()
		init = ast.Popped
	}

	neg := op == pyc.JUMP_IF_TRUE || op == pyc.JUMP_IF_TRUE_OR_POP || op == pyc.POP_JUMP_IF_TRUE

	offs := operand
	if op == pyc.JUMP_IF_FALSE || op == pyc.JUMP_IF_TRUE {
		offs = c.pos + operand
	}

	var ifblk *ast.Block

	switch {
	case isExcMatch(cond):
		cmp := cond.(*ast.Compare)
		if c.curBlock().Kind == ast.BlockExcept && c.curBlock().ExceptCond == nil {
			c.popBlock()
			c.discardHist()
		}
		ifblk = &ast.Block{Kind: ast.BlockExcept, End: offs, ExceptCond: cmp.Right}

	case c.curBlock().Kind == ast.BlockElse && c.curBlock().Empty():
		c.popBlock()
		c.popHist()
		ifblk = &ast.Block{Kind: ast.BlockElif, End: offs, Cond: cond, Neg: neg}

	case c.curBlock().Empty() && c.curBlock().Init == ast.Uninited && c.curBlock().Kind == ast.BlockWhile:
		top := c.popBlock()
		ifblk = &ast.Block{Kind: top.Kind, End: offs, Cond: cond, Neg: neg}
		c.discardHist()

	case c.curBlock().Empty() && c.curBlock().End <= offs &&
		(c.curBlock().Kind == ast.BlockIf || c.curBlock().Kind == ast.BlockElif || c.curBlock().Kind == ast.BlockWhile):
		top := c.curBlock()
		cond1 := top.Cond
		c.popBlock()
		if top.Kind == ast.BlockWhile {
			c.discardHist()
		} else {
			c.dropSecondHist()
		}
		var newCond ast.Node
		if top.End == offs || (top.End == pos && !top.Neg) {
			newCond = &ast.Binary{Left: cond1, Right: cond, Op: ast.BinLogAnd}
		} else {
			newCond = &ast.Binary{Left: cond1, Right: cond, Op: ast.BinLogOr}
		}
		ifblk = &ast.Block{Kind: top.Kind, End: offs, Cond: newCond, Neg: neg}

	default:
		ifblk = &ast.Block{Kind: ast.BlockIf, End: offs, Cond: cond, Neg: neg}
	}

	if init != ast.Uninited {
		ifblk.Init = init
	}
	c.pushBlock(ifblk)
}

func isExcMatch(n ast.Node) bool {
	cmp, ok := n.(*ast.Compare)
	return ok && cmp.Op == ast.CompareExcMatch
}

// jumpAbsolute handles both directions: backward (closing a loop body —
// either attaching the finished generator clause to a Comprehension or
// emitting `continue`) and forward (the Container-except-open check,
// followed by the same chained-block-closing walk JUMP_FORWARD performs).
func (c *Context) jumpAbsolute(operand int) {
	if operand < c.pos {
		blk := c.curBlock()
		if blk.Kind == ast.BlockFor && blk.Comprehension {
			if comp, ok := c.top().(*ast.Comprehension); ok {
				comp.Fors = append(comp.Fors, ast.Generator{Target: blk.Index, Iter: blk.Iter})
			}
			c.popBlock()
		} else {
			blk.Append(&ast.Keyword{Tag: ast.KwContinue})
		}
		return
	}

	if c.curBlock().Kind == ast.BlockContainer {
		cont := c.curBlock()
		if cont.HasExceptOffset && c.pos < cont.ExceptOffset {
			except := &ast.Block{Kind: ast.BlockExcept, Init: ast.Popped}
			c.pushBlock(except)
		}
		return
	}

	c.popHist()
	// Unlike JUMP_FORWARD, the reopened Else/Except block's End is the
	// parent block's own End (blocks.top()->end() in the original),
	// evaluated fresh after each block in the chain closes — not the
	// jump's own operand.
	c.walkCloseChain(func() int { return c.curBlock().End })
}

// jumpForward covers the Container-except-open case (recording where the
// except clauses end), the While-condition's "push a fake truthy" bypass
// for `while 1:` bodies whose condition was optimized away, and otherwise
// the same chained-block-closing walk jumpAbsolute performs but with
// operand==0 short-circuiting each step (an empty forward jump signals
// "this branch has no else/next-except to open").
func (c *Context) jumpForward(operand int) {
	if c.curBlock().Kind == ast.BlockContainer {
		cont := c.curBlock()
		if cont.HasExceptOffset {
			c.pushHist()
			target := c.pos + operand
			cont.End = target
			except := &ast.Block{Kind: ast.BlockExcept, End: target, Init: ast.Popped}
			c.pushBlock(except)
		}
		return
	}

	if c.curBlock().Kind == ast.BlockWhile && c.curBlock().Init == ast.Uninited {
		c.push(&ast.Object{Value: 1})
		return
	}

	c.popHist()
	target := c.pos + operand
	c.walkCloseChain(func() int {
		if operand == 0 {
			return -1
		}
		return target
	})

	if c.curBlock().Kind == ast.BlockExcept {
		c.curBlock().End = target
	}
}

// walkCloseChain is the shared cascading-close loop JUMP_ABSOLUTE and
// JUMP_FORWARD both run once their own special cases are handled: pop the
// current block, append it to its parent, and if it was an If/Elif open
// an Else, if it was an Except open another Except, if it was an Else
// keep walking up without re-pushing a history snapshot on the second
// pass. nextTarget returning -1 (only reachable from JUMP_FORWARD's
// operand==0 case) stops the walk immediately after closing the current
// block, opening nothing.
func (c *Context) walkCloseChain(nextTarget func() int) {
	prev := c.curBlock()
	push := true

	for {
		c.popBlock()
		c.curBlock().Append(prev)

		switch prev.Kind {
		case ast.BlockIf, ast.BlockElif:
			target := nextTarget()
			if target < 0 {
				return
			}
			if push {
				c.pushHist()
			}
			next := &ast.Block{Kind: ast.BlockElse, End: target}
			if prev.Init == ast.PrePopped {
				next.Init = ast.PrePopped
			}
			c.pushBlock(next)
			return

		case ast.BlockExcept:
			target := nextTarget()
			if target < 0 {
				return
			}
			if push {
				c.pushHist()
			}
			next := &ast.Block{Kind: ast.BlockExcept, End: target, Init: ast.Popped}
			c.pushBlock(next)
			return

		case ast.BlockElse:
			prev = c.curBlock()
			if !push {
				c.popHist()
			}
			push = false
			continue

		default:
			return
		}
	}
}

// popBlockOp implements POP_BLOCK's cascade: strip a trailing bare
// keyword, restore the saved stack for any block type that pushed one on
// entry, close the block into its parent (dropping an empty Else
// entirely), reopen an Else after a For whose End lies ahead, and — when
// a Try just closed directly beneath an active Container — immediately
// close the Try too and decide whether the Container needs a Finally
// block opened next.
func (c *Context) popBlockOp() {
	if c.curBlock().Kind == ast.BlockContainer || c.curBlock().Kind == ast.BlockFinally {
		return
	}

	if len(c.curBlock().Body) > 0 {
		if _, ok := c.curBlock().Body[len(c.curBlock().Body)-1].(*ast.Keyword); ok {
			c.curBlock().Body = c.curBlock().Body[:len(c.curBlock().Body)-1]
		}
	}

	switch c.curBlock().Kind {
	case ast.BlockIf, ast.BlockElif, ast.BlockElse, ast.BlockTry, ast.BlockExcept, ast.BlockFinally:
		c.popHist()
	}

	tmp := c.popBlock()
	c.closeInto(tmp)

	if tmp.Kind == ast.BlockFor && tmp.End > c.pos {
		c.pushHist()
		elseBlk := &ast.Block{Kind: ast.BlockElse, End: tmp.End}
		c.pushBlock(elseBlk)
	}

	if c.curBlock().Kind == ast.BlockTry && tmp.Kind != ast.BlockFor && tmp.Kind != ast.BlockWhile {
		c.popHist()
		tmp = c.popBlock()
		c.closeInto(tmp)
	}

	if c.curBlock().Kind == ast.BlockContainer {
		cont := c.curBlock()
		switch {
		case tmp.Kind == ast.BlockElse && !cont.HasFinallyOffset:
			c.popBlock()
			c.curBlock().Append(cont)
		case (tmp.Kind == ast.BlockElse && cont.HasFinallyOffset) ||
			(tmp.Kind == ast.BlockTry && !cont.HasExceptOffset):
			c.pushHist()
			final := &ast.Block{Kind: ast.BlockFinally, Init: ast.Popped}
			c.pushBlock(final)
		}
	}
}

// endFinally implements END_FINALLY's dual reinterpretation: closing a
// genuine Finally block by restoring its saved stack, or — when the
// current block is instead an Except clause that fell all the way
// through — turning it into a trailing Else (or discarding it if it
// produced no statements and the Container has more to say). Either way,
// if the block now beneath is the enclosing Container and nothing more
// remains open (no Finally, or this was the Finally itself), the
// Container closes too.
func (c *Context) endFinally() {
	isFinally := false

	switch c.curBlock().Kind {
	case ast.BlockFinally:
		final := c.popBlock()
		c.popHist()
		c.curBlock().Append(final)
		isFinally = true

	case ast.BlockExcept:
		prev := c.popBlock()
		if !prev.Empty() {
			c.curBlock().Append(prev)
		}
		cont := c.curBlock()
		if cont.End != c.pos || cont.HasFinallyOffset {
			elseBlk := &ast.Block{Kind: ast.BlockElse, End: prev.End, Init: ast.Popped}
			c.pushBlock(elseBlk)
		} else {
			c.popHist()
		}
	}

	if c.curBlock().Kind == ast.BlockContainer {
		cont := c.curBlock()
		if !cont.HasFinallyOffset || isFinally {
			c.popBlock()
			c.curBlock().Append(cont)
		}
	}
}
