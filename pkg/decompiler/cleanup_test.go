package decompiler

import (
	"testing"

	"pyretro/pkg/ast"
	"pyretro/pkg/pyc"
)

func TestCleanSkipsEntirelyWhenBuildIsNotClean(t *testing.T) {
	body := &ast.NodeList{Body: []ast.Node{
		&ast.Store{
			Source:      &ast.Name{Ident: "__name__"},
			Destination: &ast.Name{Ident: "__module__"},
		},
		&ast.Return{Value: ast.Null{}, Kind: ast.KindReturn},
	}}
	got := Clean(body, false)
	if len(got.Body) != 2 {
		t.Fatalf("Clean(false) must be a no-op, got %d statements", len(got.Body))
	}
}

func TestCleanStripsLeadingModuleStore(t *testing.T) {
	body := &ast.NodeList{Body: []ast.Node{
		&ast.Store{
			Source:      &ast.Name{Ident: "__name__"},
			Destination: &ast.Name{Ident: "__module__"},
		},
		&ast.Store{
			Source:      &ast.Object{Value: 1},
			Destination: &ast.Name{Ident: "x"},
		},
	}}
	got := Clean(body, true)
	if len(got.Body) != 1 {
		t.Fatalf("expected the __module__ = __name__ prologue stripped, got %v", got.Body)
	}
	store, ok := got.Body[0].(*ast.Store)
	if !ok || store.String() != "x = 1" {
		t.Fatalf("remaining statement = %v, want x = 1", got.Body[0])
	}
}

// TestCleanStripsRealModulePrologue drives the actual decompiler over the
// `LOAD_NAME "__name__"; STORE_NAME "__module__"` prologue every top-level
// code object carries, rather than a hand-built fixture, so the strip is
// checked against storeCommon's genuine Store{Source, Destination} shape.
func TestCleanStripsRealModulePrologue(t *testing.T) {
	instrs := []pyc.Instr{
		{Op: pyc.LOAD_NAME, Arg: 0},  // __name__
		{Op: pyc.STORE_NAME, Arg: 1}, // __module__
		{Op: pyc.LOAD_CONST, Arg: 0}, // 1
		{Op: pyc.STORE_NAME, Arg: 2}, // x
		{Op: pyc.LOAD_CONST, Arg: 1}, // None
		{Op: pyc.RETURN_VALUE},
	}
	code := &pyc.FixtureCode{
		Instructions: pyc.Assemble(instrs),
		Names:        []string{"__name__", "__module__", "x"},
		Consts:       []any{1, nil},
	}

	body, diags := Decompile(code, v27, Options{MajorVersion: 2, MinorVersion: 7})
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", diags.Entries)
	}

	cleaned := Clean(body, true)
	if len(cleaned.Body) != 1 {
		t.Fatalf("expected the __module__ = __name__ prologue and trailing return stripped, got %v", cleaned.Body)
	}
	store, ok := cleaned.Body[0].(*ast.Store)
	if !ok || store.String() != "x = 1" {
		t.Fatalf("remaining statement = %v, want x = 1", cleaned.Body[0])
	}
}

func TestCleanLeavesUnrelatedLeadingStoreAlone(t *testing.T) {
	body := &ast.NodeList{Body: []ast.Node{
		&ast.Store{Source: &ast.Object{Value: 1}, Destination: &ast.Name{Ident: "x"}},
	}}
	got := Clean(body, true)
	if len(got.Body) != 1 {
		t.Fatalf("an unrelated leading Store must survive, got %v", got.Body)
	}
}

func TestCleanStripsTrailingReturnLocals(t *testing.T) {
	body := &ast.NodeList{Body: []ast.Node{
		&ast.Store{Source: &ast.Object{Value: 1}, Destination: &ast.Name{Ident: "x"}},
		&ast.Return{Value: &ast.Name{Ident: "locals()"}, Kind: ast.KindReturn},
	}}
	got := Clean(body, true)
	if len(got.Body) != 1 {
		t.Fatalf("expected the class-body `return locals()` epilogue stripped, got %v", got.Body)
	}
}

func TestCleanKeepsExplicitTrailingReturn(t *testing.T) {
	body := &ast.NodeList{Body: []ast.Node{
		&ast.Return{Value: &ast.Object{Value: 42}, Kind: ast.KindReturn},
	}}
	got := Clean(body, true)
	if len(got.Body) != 1 {
		t.Fatalf("an explicit `return 42` must never be stripped, got %v", got.Body)
	}
}

func TestCleanKeepsExplicitYield(t *testing.T) {
	body := &ast.NodeList{Body: []ast.Node{
		&ast.Return{Value: ast.Null{}, Kind: ast.KindYield},
	}}
	got := Clean(body, true)
	if len(got.Body) != 1 {
		t.Fatalf("a bare `yield` must not be mistaken for the return-strip epilogue, got %v", got.Body)
	}
}
