package decompiler

import (
	"testing"

	"pyretro/pkg/ast"
	"pyretro/pkg/pyc"
)

var v27 = pyc.FixtureModule{Major: 2, Minor: 7}

func assembleWithJump(t *testing.T, instrs []pyc.Instr, jumpIdx int, targetIdx int) []byte {
	t.Helper()
	offs := pyc.Offsets(instrs)
	if jumpIdx >= 0 {
		instrs[jumpIdx].Arg = offs[targetIdx]
	}
	return pyc.Assemble(instrs)
}

// Scenario: `return a + b` — the simplest possible body, one binary
// expression flowing straight into RETURN_VALUE with no open blocks left
// behind (spec.md §8's first concrete scenario).
func TestDecompileReturnBinaryExpression(t *testing.T) {
	instrs := []pyc.Instr{
		{Op: pyc.LOAD_FAST, Arg: 0},
		{Op: pyc.LOAD_FAST, Arg: 1},
		{Op: pyc.BINARY_ADD},
		{Op: pyc.RETURN_VALUE},
	}
	code := &pyc.FixtureCode{
		Instructions: pyc.Assemble(instrs),
		VarNames:     []string{"a", "b"},
		NArgCount:    2,
	}

	body, diags := Decompile(code, v27, Options{MajorVersion: 2, MinorVersion: 7})
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", diags.Entries)
	}
	if len(body.Body) != 1 {
		t.Fatalf("body has %d statements, want 1: %v", len(body.Body), body.Body)
	}
	ret, ok := body.Body[0].(*ast.Return)
	if !ok {
		t.Fatalf("statement is %T, want *ast.Return", body.Body[0])
	}
	bin, ok := ret.Value.(*ast.Binary)
	if !ok || bin.Op != ast.BinAdd {
		t.Fatalf("return value is %v, want a + b", ret.Value)
	}
	if bin.String() != "(a + b)" {
		t.Fatalf("rendered %q, want \"(a + b)\"", bin.String())
	}
}

// Scenario: `print 'hello'`, whose compiler-injected `return None` epilogue
// Clean strips once the build is clean (spec.md §7's cleanup pass).
func TestDecompilePrintStatementWithImplicitReturnStripped(t *testing.T) {
	instrs := []pyc.Instr{
		{Op: pyc.LOAD_CONST, Arg: 0},
		{Op: pyc.PRINT_ITEM},
		{Op: pyc.PRINT_NEWLINE},
		{Op: pyc.LOAD_CONST, Arg: 1},
		{Op: pyc.RETURN_VALUE},
	}
	code := &pyc.FixtureCode{
		Instructions: pyc.Assemble(instrs),
		Consts:       []any{"hello", nil},
	}

	body, diags := Decompile(code, v27, Options{MajorVersion: 2, MinorVersion: 7})
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", diags.Entries)
	}
	if len(body.Body) != 3 {
		t.Fatalf("raw body has %d statements, want 3 before Clean: %v", len(body.Body), body.Body)
	}

	cleaned := Clean(body, true)
	if len(cleaned.Body) != 2 {
		t.Fatalf("cleaned body has %d statements, want 2: %v", len(cleaned.Body), cleaned.Body)
	}
	printStmt, ok := cleaned.Body[0].(*ast.Print)
	if !ok || printStmt.String() != "print hello" {
		t.Fatalf("first statement = %v, want print hello", cleaned.Body[0])
	}
	newline, ok := cleaned.Body[1].(*ast.Print)
	if !ok || !ast.IsNull(newline.Value) {
		t.Fatalf("second statement = %v, want a bare newline print", cleaned.Body[1])
	}
}

// Scenario: `if a > 0: return 1` followed by `return 2` — the trailing
// return closes the If branch itself rather than opening an Else, exactly
// the look-ahead-and-skip mechanism spec.md §9 documents on 2.6+. The
// SET_LINENO between the two arms stands in for the harmless instruction
// the skip mechanism is expected to consume, matching real line-tracking
// bytecode of the era rather than swallowing the next real opcode.
func TestDecompileIfReturnCollapsesWithoutElse(t *testing.T) {
	instrs := []pyc.Instr{
		{Op: pyc.LOAD_FAST, Arg: 0},           // 0: a
		{Op: pyc.LOAD_CONST, Arg: 0},          // 1: 0
		{Op: pyc.COMPARE_OP, Arg: 4},          // 2: >
		{Op: pyc.POP_JUMP_IF_FALSE, Arg: 0},   // 3: -> idx 7 (patched below)
		{Op: pyc.LOAD_CONST, Arg: 1},          // 4: 1
		{Op: pyc.RETURN_VALUE},                // 5
		{Op: pyc.SET_LINENO},                  // 6: consumed by the post-return skip
		{Op: pyc.LOAD_CONST, Arg: 2},          // 7: 2
		{Op: pyc.RETURN_VALUE},                // 8
	}
	buf := assembleWithJump(t, instrs, 3, 7)
	code := &pyc.FixtureCode{
		Instructions: buf,
		VarNames:     []string{"a"},
		NArgCount:    1,
		Consts:       []any{0, 1, 2},
	}

	body, diags := Decompile(code, v27, Options{MajorVersion: 2, MinorVersion: 7})
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", diags.Entries)
	}
	if len(body.Body) != 2 {
		t.Fatalf("body has %d statements, want 2 (if-block, trailing return): %v", len(body.Body), body.Body)
	}

	ifBlk, ok := body.Body[0].(*ast.Block)
	if !ok || ifBlk.Kind != ast.BlockIf {
		t.Fatalf("first statement is %v, want an If block", body.Body[0])
	}
	if len(ifBlk.Body) != 1 {
		t.Fatalf("if-block body has %d statements, want 1: %v", len(ifBlk.Body), ifBlk.Body)
	}
	innerRet, ok := ifBlk.Body[0].(*ast.Return)
	if !ok || innerRet.Value.(*ast.Object).Value != 1 {
		t.Fatalf("if-block body = %v, want return 1", ifBlk.Body[0])
	}

	trailingRet, ok := body.Body[1].(*ast.Return)
	if !ok || trailingRet.Value.(*ast.Object).Value != 2 {
		t.Fatalf("second statement = %v, want return 2", body.Body[1])
	}
}

// Scenario: a bare try/except whose handler chain always ends in
// END_FINALLY's implicit re-raise, even with no finally clause present.
// The whole composite collapses into a single Container node in the
// enclosing body, never surfacing directly (spec.md §3.2).
func TestDecompileTryExceptClosesIntoContainer(t *testing.T) {
	instrs := []pyc.Instr{
		{Op: pyc.SETUP_EXCEPT, Arg: 0}, // 0: -> idx 3 (except handler)
		{Op: pyc.POP_BLOCK},            // 1: empty try body
		{Op: pyc.JUMP_FORWARD, Arg: 0}, // 2: -> idx 6 (end)
		{Op: pyc.LOAD_NAME, Arg: 0},    // 3: handle
		{Op: pyc.CALL_FUNCTION, Arg: 0},// 4
		{Op: pyc.POP_TOP},              // 5
		{Op: pyc.END_FINALLY},          // 6: implicit re-raise / composite close
	}
	offs := pyc.Offsets(instrs)
	// SETUP_EXCEPT and JUMP_FORWARD both encode targets relative to the
	// position immediately after the jump instruction itself, unlike
	// POP_JUMP_IF_FALSE's absolute operand.
	instrs[0].Arg = offs[3] - (offs[0] + 3) // -> the except handler at idx 3
	end := offs[6] + 1                      // END_FINALLY is argument-less, one byte
	instrs[2].Arg = end - (offs[2] + 3)     // -> past the whole handler chain
	buf := pyc.Assemble(instrs)

	code := &pyc.FixtureCode{
		Instructions: buf,
		Names:        []string{"handle"},
	}

	body, diags := Decompile(code, v27, Options{MajorVersion: 2, MinorVersion: 7})
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", diags.Entries)
	}
	if len(body.Body) != 1 {
		t.Fatalf("body has %d statements, want 1 (the composite Container): %v", len(body.Body), body.Body)
	}
	container, ok := body.Body[0].(*ast.Block)
	if !ok || container.Kind != ast.BlockContainer {
		t.Fatalf("statement is %v, want a Container block", body.Body[0])
	}
	if len(container.Body) != 2 {
		t.Fatalf("container has %d children, want 2 (Try, Except): %v", len(container.Body), container.Body)
	}

	tryBlk, ok := container.Body[0].(*ast.Block)
	if !ok || tryBlk.Kind != ast.BlockTry {
		t.Fatalf("first container child = %v, want Try", container.Body[0])
	}
	exceptBlk, ok := container.Body[1].(*ast.Block)
	if !ok || exceptBlk.Kind != ast.BlockExcept {
		t.Fatalf("second container child = %v, want Except", container.Body[1])
	}
	if len(exceptBlk.Body) != 1 {
		t.Fatalf("except body has %d statements, want 1 (handle()): %v", len(exceptBlk.Body), exceptBlk.Body)
	}
	call, ok := exceptBlk.Body[0].(*ast.Call)
	if !ok || call.String() != "handle()" {
		t.Fatalf("except body statement = %v, want handle()", exceptBlk.Body[0])
	}
}

// An opcode with no dispatcher handler must not abort the scan: the
// decompiler records an UnsupportedOpcodeError and returns whatever
// partial tree it had already assembled (spec.md §7).
func TestDecompileUnsupportedOpcodeIsNonFatal(t *testing.T) {
	instrs := []pyc.Instr{
		{Op: pyc.LOAD_FAST, Arg: 0},
		{Op: pyc.RETURN_VALUE},
	}
	buf := pyc.Assemble(instrs)
	// Append a byte the FixtureModule cannot resolve to a known opcode,
	// padded with two operand bytes since an unrecognized opcode is
	// conservatively assumed to carry one.
	buf = append(buf, 0xFF, 0x00, 0x00)

	code := &pyc.FixtureCode{
		Instructions: buf,
		VarNames:     []string{"a"},
		NArgCount:    1,
	}

	body, diags := Decompile(code, v27, Options{MajorVersion: 2, MinorVersion: 7})
	if !diags.HasErrors() {
		t.Fatalf("expected an UnsupportedOpcodeError, got none")
	}
	if len(body.Body) != 1 {
		t.Fatalf("partial body should still contain the return statement, got %v", body.Body)
	}
}

// Scenario: `for x in xs: print x` — SETUP_LOOP/GET_ITER/FOR_ITER opening a
// genuine loop (not a comprehension generator clause), with the trailing
// JUMP_ABSOLUTE's synthesized `continue` stripped by POP_BLOCK on close
// (spec.md §8 scenario 3).
func TestDecompileForLoopOverIterable(t *testing.T) {
	instrs := []pyc.Instr{
		{Op: pyc.SETUP_LOOP},          // 0: -> idx 10 (LOAD_CONST None)
		{Op: pyc.LOAD_FAST, Arg: 0},   // 1: xs
		{Op: pyc.GET_ITER},            // 2
		{Op: pyc.FOR_ITER},            // 3: operand unused by forIter
		{Op: pyc.STORE_FAST, Arg: 1},  // 4: x
		{Op: pyc.LOAD_FAST, Arg: 1},   // 5: x
		{Op: pyc.PRINT_ITEM},          // 6
		{Op: pyc.PRINT_NEWLINE},       // 7
		{Op: pyc.JUMP_ABSOLUTE},       // 8: -> idx 3 (FOR_ITER)
		{Op: pyc.POP_BLOCK},           // 9
		{Op: pyc.LOAD_CONST, Arg: 0},  // 10: None
		{Op: pyc.RETURN_VALUE},        // 11
	}
	offs := pyc.Offsets(instrs)
	// SETUP_LOOP's target is relative to the position right after its own
	// bytes; JUMP_ABSOLUTE's is a plain absolute offset.
	instrs[0].Arg = offs[10] - (offs[0] + 3)
	instrs[8].Arg = offs[3]
	buf := pyc.Assemble(instrs)

	code := &pyc.FixtureCode{
		Instructions: buf,
		VarNames:     []string{"xs", "x"},
		Consts:       []any{nil},
	}

	body, diags := Decompile(code, v27, Options{MajorVersion: 2, MinorVersion: 7})
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", diags.Entries)
	}
	if len(body.Body) != 2 {
		t.Fatalf("body has %d statements, want 2 (for-block, trailing return): %v", len(body.Body), body.Body)
	}
	if _, ok := body.Body[1].(*ast.Return); !ok {
		t.Fatalf("second statement = %v, want the implicit trailing return", body.Body[1])
	}

	forBlk, ok := body.Body[0].(*ast.Block)
	if !ok || forBlk.Kind != ast.BlockFor {
		t.Fatalf("statement is %v, want a For block", body.Body[0])
	}
	if forBlk.Comprehension {
		t.Fatalf("a genuine for-loop must not be marked as a comprehension clause")
	}
	if iter, ok := forBlk.Iter.(*ast.Name); !ok || iter.Ident != "xs" {
		t.Fatalf("for-block iterable = %v, want xs", forBlk.Iter)
	}
	if idx, ok := forBlk.Index.(*ast.Name); !ok || idx.Ident != "x" {
		t.Fatalf("for-block index = %v, want x", forBlk.Index)
	}
	if len(forBlk.Body) != 2 {
		t.Fatalf("for-block body has %d statements, want 2 (print x, bare newline): %v", len(forBlk.Body), forBlk.Body)
	}
	printX, ok := forBlk.Body[0].(*ast.Print)
	if !ok || printX.String() != "print x" {
		t.Fatalf("first for-block statement = %v, want print x", forBlk.Body[0])
	}
	newline, ok := forBlk.Body[1].(*ast.Print)
	if !ok || !ast.IsNull(newline.Value) {
		t.Fatalf("second for-block statement = %v, want a bare newline print", forBlk.Body[1])
	}
}

// Regression: `for x in xs: y = 1; print y` — a second STORE_* inside the
// loop body, after the loop-variable binding, must append a real Store
// rather than re-triggering the loop-index special case (which would
// silently rename the loop variable to y and drop the assignment).
func TestDecompileForLoopSecondStoreIsRealAssignment(t *testing.T) {
	instrs := []pyc.Instr{
		{Op: pyc.SETUP_LOOP},         // 0: -> idx 12 (LOAD_CONST None)
		{Op: pyc.LOAD_FAST, Arg: 0},  // 1: xs
		{Op: pyc.GET_ITER},           // 2
		{Op: pyc.FOR_ITER},           // 3: operand unused by forIter
		{Op: pyc.STORE_FAST, Arg: 1}, // 4: x (the loop variable)
		{Op: pyc.LOAD_CONST, Arg: 0}, // 5: 1
		{Op: pyc.STORE_FAST, Arg: 2}, // 6: y = 1 (a real assignment, not the index)
		{Op: pyc.LOAD_FAST, Arg: 2},  // 7: y
		{Op: pyc.PRINT_ITEM},         // 8
		{Op: pyc.PRINT_NEWLINE},      // 9
		{Op: pyc.JUMP_ABSOLUTE},      // 10: -> idx 3 (FOR_ITER)
		{Op: pyc.POP_BLOCK},          // 11
		{Op: pyc.LOAD_CONST, Arg: 1}, // 12: None
		{Op: pyc.RETURN_VALUE},       // 13
	}
	offs := pyc.Offsets(instrs)
	instrs[0].Arg = offs[12] - offs[1]
	instrs[10].Arg = offs[3]
	buf := pyc.Assemble(instrs)

	code := &pyc.FixtureCode{
		Instructions: buf,
		VarNames:     []string{"xs", "x", "y"},
		Consts:       []any{1, nil},
	}

	body, diags := Decompile(code, v27, Options{MajorVersion: 2, MinorVersion: 7})
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", diags.Entries)
	}

	forBlk, ok := body.Body[0].(*ast.Block)
	if !ok || forBlk.Kind != ast.BlockFor {
		t.Fatalf("statement is %v, want a For block", body.Body[0])
	}
	if idx, ok := forBlk.Index.(*ast.Name); !ok || idx.Ident != "x" {
		t.Fatalf("for-block index = %v, want x (must not be renamed by the second store)", forBlk.Index)
	}
	if len(forBlk.Body) != 3 {
		t.Fatalf("for-block body has %d statements, want 3 (y = 1, print y, bare newline): %v", len(forBlk.Body), forBlk.Body)
	}
	store, ok := forBlk.Body[0].(*ast.Store)
	if !ok || store.String() != "y = 1" {
		t.Fatalf("first for-block statement = %v, want y = 1", forBlk.Body[0])
	}
	printY, ok := forBlk.Body[1].(*ast.Print)
	if !ok || printY.String() != "print y" {
		t.Fatalf("second for-block statement = %v, want print y", forBlk.Body[1])
	}
}

// Scenario: `return [x for x in xs]` — BUILD_LIST/DUP_TOP/STORE_FAST "_[1]"
// opening the hidden accumulator, a FOR_ITER with no preceding SETUP_LOOP
// (so forIter tags the block as a comprehension clause rather than a real
// loop), LIST_APPEND folding the loop body into a Comprehension value, and
// the backward JUMP_ABSOLUTE attaching the generator clause and discarding
// the For block instead of emitting it as a statement (spec.md §8 scenario
// 6). This is the multi-store-in-a-loop-body shape (the "_[1]" store, then
// the real loop-variable store) that a broken Init-transition would have
// mishandled.
func TestDecompileListComprehension(t *testing.T) {
	instrs := []pyc.Instr{
		{Op: pyc.BUILD_LIST, Arg: 0},  // 0
		{Op: pyc.DUP_TOP},             // 1
		{Op: pyc.STORE_FAST, Arg: 1},  // 2: _[1]
		{Op: pyc.LOAD_FAST, Arg: 0},   // 3: xs
		{Op: pyc.GET_ITER},            // 4
		{Op: pyc.FOR_ITER},            // 5: operand unused by forIter
		{Op: pyc.STORE_FAST, Arg: 2},  // 6: x
		{Op: pyc.LOAD_FAST, Arg: 2},   // 7: x
		{Op: pyc.LIST_APPEND},         // 8
		{Op: pyc.JUMP_ABSOLUTE},       // 9: -> idx 5 (FOR_ITER)
		{Op: pyc.DELETE_FAST, Arg: 1}, // 10: _[1]
		{Op: pyc.RETURN_VALUE},        // 11
	}
	offs := pyc.Offsets(instrs)
	instrs[9].Arg = offs[5]
	buf := pyc.Assemble(instrs)

	code := &pyc.FixtureCode{
		Instructions: buf,
		VarNames:     []string{"xs", "_[1]", "x"},
	}

	body, diags := Decompile(code, v27, Options{MajorVersion: 2, MinorVersion: 7})
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", diags.Entries)
	}
	if len(body.Body) != 1 {
		t.Fatalf("body has %d statements, want 1 (the return): %v", len(body.Body), body.Body)
	}

	ret, ok := body.Body[0].(*ast.Return)
	if !ok {
		t.Fatalf("statement is %v, want a Return", body.Body[0])
	}
	comp, ok := ret.Value.(*ast.Comprehension)
	if !ok {
		t.Fatalf("return value is %v, want a Comprehension", ret.Value)
	}
	if result, ok := comp.Result.(*ast.Name); !ok || result.Ident != "x" {
		t.Fatalf("comprehension result = %v, want x", comp.Result)
	}
	if len(comp.Fors) != 1 {
		t.Fatalf("comprehension has %d for-clauses, want 1: %v", len(comp.Fors), comp.Fors)
	}
	if target, ok := comp.Fors[0].Target.(*ast.Name); !ok || target.Ident != "x" {
		t.Fatalf("for-clause target = %v, want x", comp.Fors[0].Target)
	}
	if iter, ok := comp.Fors[0].Iter.(*ast.Name); !ok || iter.Ident != "xs" {
		t.Fatalf("for-clause iterable = %v, want xs", comp.Fors[0].Iter)
	}
	if got, want := comp.String(), "[x for x in xs]"; got != want {
		t.Fatalf("comp.String() = %q, want %q", got, want)
	}
}
