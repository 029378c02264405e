package decompiler

import (
	"fmt"
	"strings"

	"pyretro/pkg/ast"
)

// isCompAppendName reports whether an identifier is one of the synthetic
// "_[N]" names the compiler emits for a list comprehension's hidden
// accumulator — stores and deletes of these are suppressed rather than
// rendered, matching every STORE_*/DELETE_* handler's leading check in
// ASTree.cpp.
func isCompAppendName(name string) bool {
	return strings.HasPrefix(name, "_[")
}

func (c *Context) nameFromVar(operand int) *ast.Name {
	if c.opts.MajorVersion == 1 && c.opts.MinorVersion < 3 {
		return &ast.Name{Ident: c.code.Name(operand)}
	}
	return &ast.Name{Ident: c.code.VarName(operand)}
}

// storeFast implements STORE_FAST_A, including the tuple-unpacking branch
// UNPACK_SEQUENCE primes via c.unpack.
func (c *Context) storeFast(operand, pos int) {
	name := c.nameFromVar(operand)
	c.storeCommon(name.Ident, name, pos)
}

func (c *Context) storeName(operand, pos int) {
	varname := c.code.Name(operand)
	c.storeCommon(varname, &ast.Name{Ident: varname}, pos)
}

func (c *Context) storeGlobal(operand int) {
	value := c.pop()
	name := &ast.Name{Ident: c.code.Name(operand)}
	c.curBlock().Append(&ast.Store{Source: value, Destination: name})
	c.code.MarkGlobal(name.Ident)
}

// storeCommon threads the unpack-accumulation, comprehension-suppression,
// for-loop-index, and pending-Import special cases shared by
// STORE_FAST_A/STORE_NAME_A.
func (c *Context) storeCommon(rawName string, name *ast.Name, pos int) {
	if c.unpack > 0 {
		c.accumulateUnpack(name)
		return
	}

	if isCompAppendName(rawName) {
		c.pop()
		return
	}
	value := c.pop()

	blk := c.curBlock()
	if blk.Kind == ast.BlockFor && blk.Init == ast.Uninited {
		blk.Index = name
		blk.Init = ast.Popped
		return
	}
	if imp, ok := c.top().(*ast.Import); ok {
		imp.Stores = append(imp.Stores, &ast.Store{Source: value, Destination: name})
		return
	}
	blk.Append(&ast.Store{Source: value, Destination: name})
}

// accumulateUnpack implements UNPACK_SEQUENCE's tuple-building loop
// (STORE_FAST_A/STORE_NAME_A's `if (unpack)` branch): each STORE_* target
// while unpacking appends to the placeholder Tuple UNPACK_SEQUENCE pushed,
// and once the counter reaches zero the tuple and the original sequence
// are popped together into one Store.
func (c *Context) accumulateUnpack(name ast.Node) {
	tupNode := c.top()
	tup, ok := tupNode.(*ast.Tuple)
	if !ok {
		c.fail(&StructuralAnomalyError{
			Position: Position{Offset: c.pos},
			Msg:      "unpack target is not a tuple",
		})
		return
	}
	c.pop()
	tup.Elems = append(tup.Elems, name)
	c.push(tup)

	c.unpack--
	if c.unpack > 0 {
		return
	}

	finishedTup := c.pop()
	seq := c.pop()

	blk := c.curBlock()
	if blk.Kind == ast.BlockFor && blk.Init == ast.Uninited {
		blk.Index = finishedTup
		blk.Init = ast.Popped
		return
	}
	blk.Append(&ast.Store{Source: seq, Destination: finishedTup})
}

func (c *Context) storeAttr(operand int) {
	name := c.pop()
	value := c.pop()
	attr := &ast.Binary{Left: name, Right: &ast.Name{Ident: c.code.Name(operand)}, Op: ast.BinAttr}
	c.curBlock().Append(&ast.Store{Source: value, Destination: attr})
}

// storeSubscr implements STORE_SUBSCR's dual role: accumulating a dict
// literal in place when the destination is a Map still under
// construction, or emitting a real `dest[key] = value` statement
// otherwise.
func (c *Context) storeSubscr() {
	subscr := c.pop()
	dest := c.pop()
	src := c.pop()
	if m, ok := dest.(*ast.Map); ok {
		m.Put(subscr, src)
		return
	}
	c.curBlock().Append(&ast.Store{Source: src, Destination: &ast.Subscr{Container: dest, Index: subscr}})
}

func (c *Context) storeSlice(kind ast.SliceKind) {
	var left, right ast.Node
	switch kind {
	case ast.SliceLeft:
		left = c.pop()
	case ast.SliceRight:
		right = c.pop()
	case ast.SliceBoth:
		right = c.pop()
		left = c.pop()
	}
	dest := c.pop()
	value := c.pop()
	c.curBlock().Append(&ast.Store{
		Source:      value,
		Destination: &ast.Subscr{Container: dest, Index: &ast.Slice{Kind: kind, Left: left, Right: right}},
	})
}

func (c *Context) deleteFast(operand int) {
	name := c.nameFromVar(operand)
	if isCompAppendName(name.Ident) {
		return
	}
	c.curBlock().Append(&ast.Delete{Target: name})
}

func (c *Context) deleteName(operand int) {
	raw := c.code.Name(operand)
	if isCompAppendName(raw) {
		return
	}
	c.curBlock().Append(&ast.Delete{Target: &ast.Name{Ident: raw}})
}

func (c *Context) deleteGlobal(operand int) { c.deleteName(operand) }

func (c *Context) deleteAttr(operand int) {
	name := c.pop()
	attr := &ast.Binary{Left: name, Right: &ast.Name{Ident: c.code.Name(operand)}, Op: ast.BinAttr}
	c.curBlock().Append(&ast.Delete{Target: attr})
}

func (c *Context) deleteSubscr() {
	key := c.pop()
	name := c.pop()
	c.curBlock().Append(&ast.Delete{Target: &ast.Subscr{Container: name, Index: key}})
}

func (c *Context) deleteSlice(kind ast.SliceKind) {
	var left, right ast.Node
	switch kind {
	case ast.SliceLeft:
		left = c.pop()
	case ast.SliceRight:
		right = c.pop()
	case ast.SliceBoth:
		right = c.pop()
		left = c.pop()
	}
	name := c.pop()
	c.curBlock().Append(&ast.Delete{Target: &ast.Subscr{Container: name, Index: &ast.Slice{Kind: kind, Left: left, Right: right}}})
}

// popTop implements POP_TOP's three roles: initializing an as-yet-uninited
// conditional block (the condition value has already been consumed by the
// jump handler; this just flips Init), discarding an expression whose
// value would be inert as a statement (Binary/Name/the exception-match
// Compare), and otherwise emitting it as a bare-expression statement
// — with a further check for the list-comprehension append pattern.
func (c *Context) popTop() {
	value := c.pop()
	blk := c.curBlock()

	if blk.Init == ast.Uninited && (blk.Kind == ast.BlockIf || blk.Kind == ast.BlockElif ||
		blk.Kind == ast.BlockElse || blk.Kind == ast.BlockWhile || blk.Kind == ast.BlockExcept) {
		blk.Init = ast.Popped
		return
	}

	switch v := value.(type) {
	case *ast.Binary, *ast.Name:
		return
	case *ast.Compare:
		if v.Op == ast.CompareExcMatch {
			return
		}
	}

	blk.Append(value)

	if blk.Kind == ast.BlockFor && blk.Comprehension {
		if call, ok := value.(*ast.Call); ok && len(call.Positional) > 0 {
			if !c.opts.StrictComprehensions {
				c.push(&ast.Comprehension{Result: call.Positional[0]})
			} else if _, ok := call.Positional[0].(*ast.Call); !ok {
				c.push(&ast.Comprehension{Result: call.Positional[0]})
			}
		} else if c.opts.StrictComprehensions {
			c.fail(&StructuralAnomalyError{
				Position: Position{Offset: c.pos},
				Msg:      "comprehension append target was not a call",
			})
		}
	}
}

func (c *Context) print(hasStream bool) {
	var stream ast.Node = ast.Null{}
	if hasStream {
		stream = c.pop()
	}
	value := c.pop()
	c.curBlock().Append(&ast.Print{Value: value, Stream: stream})
}

func (c *Context) printNewline(hasStream bool) {
	var stream ast.Node = ast.Null{}
	if hasStream {
		stream = c.pop()
	}
	c.curBlock().Append(&ast.Print{Value: ast.Null{}, Stream: stream})
}

func (c *Context) exec() {
	locals := c.pop()
	globals := c.pop()
	stmt := c.pop()
	c.curBlock().Append(&ast.Exec{Stmt: stmt, Globals: globals, Locals: locals})
}

func (c *Context) importName(operand int) {
	name := &ast.Name{Ident: c.code.Name(operand)}
	if c.opts.MajorVersion == 1 {
		c.push(&ast.Import{Module: name.Ident})
		return
	}
	fromlist := c.pop()
	if c.opts.versionAtLeast(2, 5) {
		c.pop() // import level, unused by the reconstructed AST
	}
	imp := &ast.Import{Module: name.Ident}
	if tup, ok := fromlist.(*ast.Tuple); ok {
		for _, e := range tup.Elems {
			imp.From = append(imp.From, e.String())
		}
	} else if obj, ok := fromlist.(*ast.Object); ok {
		// loadConst wraps a non-empty tuple constant as an Object.
		if elems, ok := obj.Value.([]any); ok {
			for _, e := range elems {
				imp.From = append(imp.From, fmt.Sprint(e))
			}
		}
	}
	c.push(imp)
}

func (c *Context) importFrom(operand int) {
	c.push(&ast.Name{Ident: c.code.Name(operand)})
}

func (c *Context) importStar() {
	imp := c.pop()
	c.curBlock().Append(&ast.Store{Source: imp, Destination: ast.Null{}})
}

// raise pops RAISE_VARARGS' operand-count arguments and, on versions
// where a raise inside an If/Else with a pending stack-history snapshot
// implicitly closes that branch, performs the "read one more instruction
// and discard it" look-ahead the original hides inside its RAISE_VARARGS
// and RETURN_VALUE handlers (spec.md §9's documented oddity).
func (c *Context) raise(operand int) (skipNext bool) {
	params := make([]ast.Node, operand)
	for i := operand - 1; i >= 0; i-- {
		params[i] = c.pop()
	}
	c.curBlock().Append(&ast.Raise{Params: params})
	return c.maybeCloseBranchOnExit()
}

func (c *Context) returnValue() (skipNext bool) {
	value := c.pop()
	c.curBlock().Append(&ast.Return{Value: value, Kind: ast.KindReturn})
	return c.maybeCloseBranchOnExit()
}

func (c *Context) yieldValue() {
	value := c.pop()
	c.curBlock().Append(&ast.Return{Value: value, Kind: ast.KindYield})
}

// maybeCloseBranchOnExit implements the shared tail of RAISE_VARARGS_A and
// RETURN_VALUE: on 2.6+ (or any 3.x), a raise/return that terminates an
// If or Else branch which still has a saved alternate-branch stack
// snapshot closes that branch immediately, and the decoder is told to
// skip whatever instruction immediately follows (typically a redundant
// JUMP_FORWARD the compiler emitted for the branch that never falls
// through).
func (c *Context) maybeCloseBranchOnExit() bool {
	blk := c.curBlock()
	if (blk.Kind == ast.BlockIf || blk.Kind == ast.BlockElse) &&
		c.histLen() > 0 && c.opts.versionAtLeast(2, 6) {
		c.popHist()
		prev := c.popBlock()
		c.closeInto(prev)
		return true
	}
	return false
}

func (c *Context) listAppend(pos int) {
	value := c.pop()
	list := c.top()

	blk := c.curBlock()
	if blk.Kind == ast.BlockFor && blk.Comprehension {
		c.push(&ast.Comprehension{Result: value})
		return
	}
	if c.opts.StrictComprehensions {
		c.fail(&StructuralAnomalyError{
			Position: Position{Offset: pos},
			Msg:      "LIST_APPEND outside a comprehension",
		})
	}
	// "Total hack" (ASTree.cpp's own words): pre-comprehension bytecode
	// represents `list.append(x)` as a bare subscript push with no
	// enclosing statement; kept for parity with older streams. Strict mode
	// still records the anomaly above but leaves the reconstructed tree
	// intact rather than aborting the scan.
	c.push(&ast.Subscr{Container: list, Index: value})
}
