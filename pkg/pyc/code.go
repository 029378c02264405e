package pyc

// CodeFlag bits mirror the flags word carried by a compiled code object.
type CodeFlag uint32

const (
	FlagVarArgs CodeFlag = 1 << iota
	FlagVarKeywords
	FlagNested
	FlagGenerator
)

// Code is the read-only view of a compiled unit that pkg/decompiler
// consumes. Loading it from a binary container is out of scope: something
// upstream (a bytecode file reader) is expected to produce a value
// satisfying this interface, whether that's a real parsed .pyc code object
// or, as in this module's tests and cmd/pyretro, a fixture built in memory.
type Code interface {
	// Bytes returns the raw instruction stream.
	Bytes() []byte
	StackSize() int
	ArgCount() int
	Flags() CodeFlag

	Name(i int) string
	VarName(i int) string
	Const(i int) any

	// Encoding names the charmap.Charmap codec (per pkg/textenc's registry)
	// that byte-string constants ([]byte entries returned by Const) were
	// written in, taken from the source's encoding cookie. Empty means the
	// constant pool carries no 8-bit string constants needing transcoding.
	Encoding() string

	// MarkGlobal records that name was the target of a STORE_GLOBAL,
	// consumed by the (out of scope) printer to emit `global ...`
	// declarations at function entry.
	MarkGlobal(name string)
	Globals() []string
}

// Module supplies the version numbers and opcode-name resolution of a
// compiled unit. pkg/decompiler uses only OpName (through Next); its
// per-version behaviour (spec.md §4.3's "language version >= 2.6" clause)
// reads the version from decompiler.Options, which callers fill from
// MajorVer/MinorVer.
type Module interface {
	MajorVer() int
	MinorVer() int

	// OpName resolves a raw opcode byte read from the instruction stream
	// to its canonical Opcode. Real per-version numbering tables are out
	// of scope; Module implementations own that mapping.
	OpName(raw byte) Opcode
}
