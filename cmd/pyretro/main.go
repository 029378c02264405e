// Command pyretro decompiles a JSON bytecode fixture back into source
// text. It follows the teacher's flag-driven cmd/paserati/main.go
// structure: a single positional argument runs one fixture and exits, no
// argument drops into a REPL. Reading a real bytecode container is out of
// scope (SPEC_FULL.md §2); the fixture format stands in for it.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"pyretro/pkg/decompiler"
	"pyretro/pkg/errors"
	"pyretro/pkg/printer"
)

func main() {
	strictFlag := flag.Bool("strict", false, "flag LIST_APPEND-adjacent heuristic guesses as diagnostics instead of applying them quietly")
	diagsFlag := flag.Bool("diags", false, "print diagnostics to stderr even on a clean build")

	flag.Parse()

	if flag.NArg() > 1 {
		fmt.Fprintf(os.Stderr, "Usage: pyretro [fixture.json]\n")
		os.Exit(64)
	}

	if flag.NArg() == 1 {
		runFixtureFile(flag.Arg(0), *strictFlag, *diagsFlag)
		return
	}

	runRepl(*strictFlag, *diagsFlag)
}

func runFixtureFile(path string, strict, showDiags bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reading %q: %s\n", path, err)
		os.Exit(70)
	}
	out, ok := decompileFixture(data, strict, showDiags, os.Stdout, os.Stderr)
	fmt.Fprint(os.Stdout, out)
	if !ok {
		os.Exit(70)
	}
}

// decompileFixture is the shared file/REPL entry point: parse a fixture,
// run the engine, render the result, report diagnostics. Returns the
// rendered source plus whether the build was clean.
func decompileFixture(data []byte, strict, showDiags bool, _ io.Writer, errw io.Writer) (string, bool) {
	code, mod, err := loadFixture(data)
	if err != nil {
		fmt.Fprintf(errw, "%s\n", err)
		return "", false
	}

	opts := decompiler.Options{
		StrictComprehensions: strict,
		MajorVersion:         mod.Major,
		MinorVersion:         mod.Minor,
	}
	body, diags := decompiler.Decompile(code, mod, opts)
	cleaned := decompiler.Clean(body, !diags.HasErrors())

	if showDiags || diags.HasErrors() {
		errors.FprintDiagnostics(errw, code, mod, diags)
	}

	return printer.Sprint(cleaned), !diags.HasErrors()
}

// runRepl reads one JSON fixture per line, using readline for history and
// editing exactly as duhaifeng-light-lang's cmd/light/repl.go does for its
// own line-oriented input, wired to this domain's fixture shape instead of
// source text.
func runRepl(strict, showDiags bool) {
	historyFile := ""
	if home, err := os.UserHomeDir(); err == nil {
		historyFile = filepath.Join(home, ".pyretro_history")
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "pyretro> ",
		HistoryFile:       historyFile,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "readline init failed: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	fmt.Fprintln(rl.Stdout(), "pyretro REPL (type 'exit' or Ctrl+D to quit)")
	fmt.Fprintln(rl.Stdout(), "paste one JSON fixture per line")

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			if err == io.EOF {
				fmt.Fprintln(rl.Stdout())
			}
			break
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if trimmed == "exit" {
			break
		}
		if !json.Valid([]byte(trimmed)) {
			fmt.Fprintln(rl.Stderr(), "not valid JSON, try again")
			continue
		}

		out, _ := decompileFixture([]byte(trimmed), strict, showDiags, rl.Stdout(), rl.Stderr())
		fmt.Fprint(rl.Stdout(), out)
	}
}
