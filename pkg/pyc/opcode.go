// Package pyc holds the surface the decompiler treats as an external
// collaborator: the canonical opcode enum, the Code/Module accessors the
// engine reads from, and a reference instruction decoder. None of this
// package understands control flow or expressions — that lives in
// pkg/decompiler. A real per-version bytecode file reader would replace
// Next and populate Code/Module without pkg/decompiler noticing.
package pyc

// Opcode is the canonical, version-independent instruction identifier the
// dispatcher switches on. Module.OpName maps a raw byte read from the
// instruction stream to one of these; how that mapping varies release to
// release is out of scope here.
type Opcode uint16

const (
	OpInvalid Opcode = iota

	// Stack shuffling.
	POP_TOP
	ROT_TWO
	ROT_THREE
	DUP_TOP
	DUP_TOPX

	// Unary.
	UNARY_POSITIVE
	UNARY_NEGATIVE
	UNARY_NOT
	UNARY_INVERT

	// Binary arithmetic.
	BINARY_ADD
	BINARY_SUBTRACT
	BINARY_MULTIPLY
	BINARY_DIVIDE
	BINARY_FLOOR_DIVIDE
	BINARY_TRUE_DIVIDE
	BINARY_MODULO
	BINARY_POWER
	BINARY_LSHIFT
	BINARY_RSHIFT
	BINARY_AND
	BINARY_OR
	BINARY_XOR
	BINARY_SUBSCR

	// In-place arithmetic.
	INPLACE_ADD
	INPLACE_SUBTRACT
	INPLACE_MULTIPLY
	INPLACE_DIVIDE
	INPLACE_FLOOR_DIVIDE
	INPLACE_TRUE_DIVIDE
	INPLACE_MODULO
	INPLACE_POWER
	INPLACE_LSHIFT
	INPLACE_RSHIFT
	INPLACE_AND
	INPLACE_OR
	INPLACE_XOR

	// Comparisons and logical.
	COMPARE_OP

	// Names / attributes / subscripts / slices.
	LOAD_CONST
	LOAD_FAST
	LOAD_NAME
	LOAD_GLOBAL
	LOAD_LOCALS
	LOAD_ATTR
	STORE_FAST
	STORE_NAME
	STORE_GLOBAL
	STORE_ATTR
	STORE_SUBSCR
	STORE_SLICE
	DELETE_FAST
	DELETE_NAME
	DELETE_GLOBAL
	DELETE_ATTR
	DELETE_SUBSCR
	DELETE_SLICE
	BUILD_SLICE

	// Composite construction.
	BUILD_LIST
	BUILD_TUPLE
	BUILD_MAP
	BUILD_CLASS
	MAKE_FUNCTION
	MAKE_CLOSURE

	// Calls.
	CALL_FUNCTION
	CALL_FUNCTION_VAR
	CALL_FUNCTION_KW
	CALL_FUNCTION_VAR_KW

	// Statements.
	RETURN_VALUE
	YIELD_VALUE
	RAISE_VARARGS
	PRINT_ITEM
	PRINT_ITEM_TO
	PRINT_NEWLINE
	PRINT_NEWLINE_TO
	IMPORT_NAME
	IMPORT_FROM
	IMPORT_STAR
	EXEC_STMT

	// Loops / iteration.
	GET_ITER
	FOR_ITER
	FOR_LOOP
	LIST_APPEND
	UNPACK_SEQUENCE

	// Control flow.
	SETUP_LOOP
	SETUP_EXCEPT
	SETUP_FINALLY
	POP_BLOCK
	END_FINALLY
	BREAK_LOOP
	CONTINUE_LOOP
	JUMP_FORWARD
	JUMP_ABSOLUTE
	JUMP_IF_FALSE
	JUMP_IF_TRUE
	JUMP_IF_FALSE_OR_POP
	JUMP_IF_TRUE_OR_POP
	POP_JUMP_IF_FALSE
	POP_JUMP_IF_TRUE
	JUMP_IF_NOT_DEBUG

	// Compatibility cruft the dispatcher must silently ignore rather than
	// fault on (see SPEC_FULL.md §6).
	SET_LINENO
)

var opcodeNames = map[Opcode]string{
	POP_TOP: "POP_TOP", ROT_TWO: "ROT_TWO", ROT_THREE: "ROT_THREE",
	DUP_TOP: "DUP_TOP", DUP_TOPX: "DUP_TOPX",
	UNARY_POSITIVE: "UNARY_POSITIVE", UNARY_NEGATIVE: "UNARY_NEGATIVE",
	UNARY_NOT: "UNARY_NOT", UNARY_INVERT: "UNARY_INVERT",
	BINARY_ADD: "BINARY_ADD", BINARY_SUBTRACT: "BINARY_SUBTRACT",
	BINARY_MULTIPLY: "BINARY_MULTIPLY", BINARY_DIVIDE: "BINARY_DIVIDE",
	BINARY_FLOOR_DIVIDE: "BINARY_FLOOR_DIVIDE", BINARY_TRUE_DIVIDE: "BINARY_TRUE_DIVIDE",
	BINARY_MODULO: "BINARY_MODULO", BINARY_POWER: "BINARY_POWER",
	BINARY_LSHIFT: "BINARY_LSHIFT", BINARY_RSHIFT: "BINARY_RSHIFT",
	BINARY_AND: "BINARY_AND", BINARY_OR: "BINARY_OR", BINARY_XOR: "BINARY_XOR",
	BINARY_SUBSCR: "BINARY_SUBSCR",
	INPLACE_ADD: "INPLACE_ADD", INPLACE_SUBTRACT: "INPLACE_SUBTRACT",
	INPLACE_MULTIPLY: "INPLACE_MULTIPLY", INPLACE_DIVIDE: "INPLACE_DIVIDE",
	INPLACE_FLOOR_DIVIDE: "INPLACE_FLOOR_DIVIDE", INPLACE_TRUE_DIVIDE: "INPLACE_TRUE_DIVIDE",
	INPLACE_MODULO: "INPLACE_MODULO", INPLACE_POWER: "INPLACE_POWER",
	INPLACE_LSHIFT: "INPLACE_LSHIFT", INPLACE_RSHIFT: "INPLACE_RSHIFT",
	INPLACE_AND: "INPLACE_AND", INPLACE_OR: "INPLACE_OR", INPLACE_XOR: "INPLACE_XOR",
	COMPARE_OP: "COMPARE_OP",
	LOAD_CONST: "LOAD_CONST", LOAD_FAST: "LOAD_FAST", LOAD_NAME: "LOAD_NAME",
	LOAD_GLOBAL: "LOAD_GLOBAL", LOAD_LOCALS: "LOAD_LOCALS", LOAD_ATTR: "LOAD_ATTR",
	STORE_FAST: "STORE_FAST", STORE_NAME: "STORE_NAME", STORE_GLOBAL: "STORE_GLOBAL",
	STORE_ATTR: "STORE_ATTR", STORE_SUBSCR: "STORE_SUBSCR", STORE_SLICE: "STORE_SLICE",
	DELETE_FAST: "DELETE_FAST", DELETE_NAME: "DELETE_NAME", DELETE_GLOBAL: "DELETE_GLOBAL",
	DELETE_ATTR: "DELETE_ATTR", DELETE_SUBSCR: "DELETE_SUBSCR", DELETE_SLICE: "DELETE_SLICE",
	BUILD_SLICE: "BUILD_SLICE",
	BUILD_LIST:  "BUILD_LIST", BUILD_TUPLE: "BUILD_TUPLE", BUILD_MAP: "BUILD_MAP",
	BUILD_CLASS: "BUILD_CLASS", MAKE_FUNCTION: "MAKE_FUNCTION", MAKE_CLOSURE: "MAKE_CLOSURE",
	CALL_FUNCTION: "CALL_FUNCTION", CALL_FUNCTION_VAR: "CALL_FUNCTION_VAR",
	CALL_FUNCTION_KW: "CALL_FUNCTION_KW", CALL_FUNCTION_VAR_KW: "CALL_FUNCTION_VAR_KW",
	RETURN_VALUE: "RETURN_VALUE", YIELD_VALUE: "YIELD_VALUE", RAISE_VARARGS: "RAISE_VARARGS",
	PRINT_ITEM: "PRINT_ITEM", PRINT_ITEM_TO: "PRINT_ITEM_TO",
	PRINT_NEWLINE: "PRINT_NEWLINE", PRINT_NEWLINE_TO: "PRINT_NEWLINE_TO",
	IMPORT_NAME: "IMPORT_NAME", IMPORT_FROM: "IMPORT_FROM", IMPORT_STAR: "IMPORT_STAR",
	EXEC_STMT: "EXEC_STMT",
	GET_ITER:  "GET_ITER", FOR_ITER: "FOR_ITER", FOR_LOOP: "FOR_LOOP",
	LIST_APPEND: "LIST_APPEND", UNPACK_SEQUENCE: "UNPACK_SEQUENCE",
	SETUP_LOOP: "SETUP_LOOP", SETUP_EXCEPT: "SETUP_EXCEPT", SETUP_FINALLY: "SETUP_FINALLY",
	POP_BLOCK: "POP_BLOCK", END_FINALLY: "END_FINALLY",
	BREAK_LOOP: "BREAK_LOOP", CONTINUE_LOOP: "CONTINUE_LOOP",
	JUMP_FORWARD: "JUMP_FORWARD", JUMP_ABSOLUTE: "JUMP_ABSOLUTE",
	JUMP_IF_FALSE: "JUMP_IF_FALSE", JUMP_IF_TRUE: "JUMP_IF_TRUE",
	JUMP_IF_FALSE_OR_POP: "JUMP_IF_FALSE_OR_POP", JUMP_IF_TRUE_OR_POP: "JUMP_IF_TRUE_OR_POP",
	POP_JUMP_IF_FALSE: "POP_JUMP_IF_FALSE", POP_JUMP_IF_TRUE: "POP_JUMP_IF_TRUE",
	JUMP_IF_NOT_DEBUG: "JUMP_IF_NOT_DEBUG",
	SET_LINENO:        "SET_LINENO",
}

// String returns a human-readable mnemonic, matching the teacher's
// OpCode.String() convention (pkg/vm/bytecode.go).
func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return "OpInvalid"
}

// HasArgument reports whether the instruction carries a 16-bit operand.
// Every opcode takes an argument except the stack, arithmetic, statement
// and block opcodes listed here, mirroring the "byte >= HAVE_ARGUMENT"
// convention of the language's real bytecode format.
func (op Opcode) HasArgument() bool {
	switch op {
	case POP_TOP, ROT_TWO, ROT_THREE, DUP_TOP,
		UNARY_POSITIVE, UNARY_NEGATIVE, UNARY_NOT, UNARY_INVERT,
		BINARY_ADD, BINARY_SUBTRACT, BINARY_MULTIPLY, BINARY_DIVIDE,
		BINARY_FLOOR_DIVIDE, BINARY_TRUE_DIVIDE, BINARY_MODULO, BINARY_POWER,
		BINARY_LSHIFT, BINARY_RSHIFT, BINARY_AND, BINARY_OR, BINARY_XOR, BINARY_SUBSCR,
		INPLACE_ADD, INPLACE_SUBTRACT, INPLACE_MULTIPLY, INPLACE_DIVIDE,
		INPLACE_FLOOR_DIVIDE, INPLACE_TRUE_DIVIDE, INPLACE_MODULO, INPLACE_POWER,
		INPLACE_LSHIFT, INPLACE_RSHIFT, INPLACE_AND, INPLACE_OR, INPLACE_XOR,
		STORE_SUBSCR, DELETE_SUBSCR,
		RETURN_VALUE, YIELD_VALUE, PRINT_ITEM, PRINT_ITEM_TO,
		PRINT_NEWLINE, PRINT_NEWLINE_TO, IMPORT_STAR, EXEC_STMT,
		GET_ITER, POP_BLOCK, END_FINALLY, BREAK_LOOP, LOAD_LOCALS,
		BUILD_CLASS, SET_LINENO:
		return false
	default:
		return true
	}
}
