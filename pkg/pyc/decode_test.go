package pyc

import "testing"

func TestNextDecodesArgumentLessAndArgumentInstructions(t *testing.T) {
	instrs := []Instr{
		{Op: LOAD_FAST, Arg: 0},
		{Op: LOAD_FAST, Arg: 1},
		{Op: BINARY_ADD},
		{Op: RETURN_VALUE},
	}
	buf := Assemble(instrs)
	mod := FixtureModule{Major: 2, Minor: 7}

	pos := 0
	var got []Opcode
	var args []int
	for pos < len(buf) {
		op, arg, ok := Next(buf, mod, &pos)
		if !ok {
			t.Fatalf("Next returned !ok before consuming full buffer at pos %d", pos)
		}
		got = append(got, op)
		args = append(args, arg)
	}

	want := []Opcode{LOAD_FAST, LOAD_FAST, BINARY_ADD, RETURN_VALUE}
	if len(got) != len(want) {
		t.Fatalf("decoded %d instructions, want %d", len(got), len(want))
	}
	for i, op := range want {
		if got[i] != op {
			t.Errorf("instr %d: got %s, want %s", i, got[i], op)
		}
	}
	if args[0] != 0 || args[1] != 1 {
		t.Errorf("unexpected operands: %v", args)
	}
}

func TestNextReportsTruncatedOperand(t *testing.T) {
	buf := []byte{byte(LOAD_FAST), 0x01} // missing second operand byte
	mod := FixtureModule{Major: 2, Minor: 7}
	pos := 0
	_, _, ok := Next(buf, mod, &pos)
	if ok {
		t.Fatalf("expected Next to report truncated stream")
	}
}

func TestOffsetsMatchAssembledLayout(t *testing.T) {
	instrs := []Instr{
		{Op: LOAD_FAST, Arg: 0},
		{Op: POP_TOP},
		{Op: RETURN_VALUE},
	}
	offs := Offsets(instrs)
	buf := Assemble(instrs)
	if offs[0] != 0 || offs[1] != 3 || offs[2] != 4 {
		t.Fatalf("unexpected offsets: %v", offs)
	}
	if len(buf) != 5 {
		t.Fatalf("unexpected assembled length: %d", len(buf))
	}
}
