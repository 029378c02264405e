package decompiler

import "fmt"

// Position is a bytecode offset — the decompiler's only coordinate system.
// Unlike the teacher's line/column Position (pkg/errors/position.go), there
// is no source text to point into; everything is relative to the
// instruction stream a Code object exposes.
type Position struct {
	Offset int
}

// DecompileError is the interface every diagnostic in this package
// implements, mirroring the teacher's PaseratiError shape
// (pkg/errors/errors.go): an embedded error, a position, a Kind for
// grouping, and Unwrap support.
type DecompileError interface {
	error
	Pos() Position
	Kind() string
	Message() string
	Unwrap() error
}

// UnsupportedOpcodeError is raised when the dispatcher has no handler for
// an opcode (spec.md §7). It always sets cleanBuild = false on the
// enclosing Context and halts the scan, returning the partial AST.
type UnsupportedOpcodeError struct {
	Position
	Op    fmt.Stringer
	Cause error
}

func (e *UnsupportedOpcodeError) Error() string {
	return fmt.Sprintf("Unsupported Opcode at %d: %s", e.Offset, e.Op)
}
func (e *UnsupportedOpcodeError) Pos() Position   { return e.Position }
func (e *UnsupportedOpcodeError) Kind() string    { return "UnsupportedOpcode" }
func (e *UnsupportedOpcodeError) Message() string { return e.Error() }
func (e *UnsupportedOpcodeError) Unwrap() error   { return e.Cause }

// StructuralAnomalyError is logged ("Something TERRIBLE happened" in the
// original) when a STORE_* unpacking target isn't the tuple shape the
// dispatcher expected. The scan continues (spec.md §7); this is
// informational, not fatal.
type StructuralAnomalyError struct {
	Position
	Msg   string
	Cause error
}

func (e *StructuralAnomalyError) Error() string {
	return fmt.Sprintf("Something TERRIBLE happened at %d: %s", e.Offset, e.Msg)
}
func (e *StructuralAnomalyError) Pos() Position   { return e.Position }
func (e *StructuralAnomalyError) Kind() string    { return "StructuralAnomaly" }
func (e *StructuralAnomalyError) Message() string { return e.Msg }
func (e *StructuralAnomalyError) Unwrap() error   { return e.Cause }

// DanglingStateWarning is emitted at end-of-stream when the block stack or
// stack history is non-empty beyond Main (spec.md §7). Every residual
// block is still attached to its parent, best-effort.
type DanglingStateWarning struct {
	Position
	Msg string
}

func (e *DanglingStateWarning) Error() string {
	return fmt.Sprintf("Dangling state at end-of-stream (offset %d): %s", e.Offset, e.Msg)
}
func (e *DanglingStateWarning) Pos() Position   { return e.Position }
func (e *DanglingStateWarning) Kind() string    { return "DanglingState" }
func (e *DanglingStateWarning) Message() string { return e.Msg }
func (e *DanglingStateWarning) Unwrap() error   { return nil }

// Diagnostics accumulates the non-fatal diagnostics produced during one
// Decompile call. Nothing here is ever fatal (spec.md §7): the caller
// inspects Diagnostics after the fact, the way the teacher's
// errors.DisplayErrors is a post-hoc reporting step rather than a control
// flow mechanism.
type Diagnostics struct {
	Entries []DecompileError
}

func (d *Diagnostics) add(e DecompileError) { d.Entries = append(d.Entries, e) }

// HasErrors reports whether any UnsupportedOpcodeError was recorded —
// the condition that also flips Context.CleanBuild to false.
func (d *Diagnostics) HasErrors() bool {
	for _, e := range d.Entries {
		if _, ok := e.(*UnsupportedOpcodeError); ok {
			return true
		}
	}
	return false
}
