// Package errors reports decompiler diagnostics to a terminal, the way the
// teacher's pkg/errors reported SyntaxError/TypeError/CompileError/
// RuntimeError against source text (DisplayErrors, with a source line and a
// caret marker under the offending column). There is no source text here —
// only an instruction stream — so the excerpt under each diagnostic is the
// mnemonic of the instruction at fault rather than a line of source.
package errors

import (
	"fmt"
	"io"
	"os"

	"pyretro/pkg/decompiler"
	"pyretro/pkg/pyc"
)

// DisplayDiagnostics writes every entry in diags to stderr, most severe
// first is not assumed — entries are printed in recording order, matching
// DisplayErrors' behaviour of never re-sorting what it's given.
func DisplayDiagnostics(code pyc.Code, mod pyc.Module, diags *decompiler.Diagnostics) {
	FprintDiagnostics(os.Stderr, code, mod, diags)
}

// FprintDiagnostics is DisplayDiagnostics with an explicit writer, split out
// so tests and the CLI (which passes its own error writer) can capture
// output instead of contending over stderr.
func FprintDiagnostics(w io.Writer, code pyc.Code, mod pyc.Module, diags *decompiler.Diagnostics) {
	if diags == nil || len(diags.Entries) == 0 {
		return
	}
	buf := code.Bytes()
	for _, d := range diags.Entries {
		offset := d.Pos().Offset
		fmt.Fprintf(w, "%s Error at offset %d: %s\n", d.Kind(), offset, d.Message())

		if mnemonic, ok := instructionAt(buf, mod, offset); ok {
			fmt.Fprintf(w, "  %s\n", mnemonic)
			fmt.Fprintln(w, "  ^")
		}
		fmt.Fprintln(w)
	}
}

// instructionAt decodes the single instruction starting at offset purely
// for display, against a throwaway cursor — it never disturbs a decode in
// progress elsewhere.
func instructionAt(buf []byte, mod pyc.Module, offset int) (string, bool) {
	if offset < 0 || offset >= len(buf) {
		return "", false
	}
	cursor := offset
	op, operand, ok := pyc.Next(buf, mod, &cursor)
	if !ok {
		return "", false
	}
	if op.HasArgument() {
		return fmt.Sprintf("%s %d", op, operand), true
	}
	return op.String(), true
}
