package decompiler

import "pyretro/pkg/ast"

// Clean applies the module-level and function-level tidying the original
// runs only when cleanBuild is still true: it strips the compiler-injected
// `__module__ = __name__` prologue every top-level code object carries and
// the trailing `return None`/`return locals()` epilogue every function and
// class body carries, neither of which the source ever wrote explicitly.
// A build that hit an unsupported opcode skips this pass entirely — the
// partial tree is returned exactly as decoded, unmassaged (spec.md §7).
func Clean(body *ast.NodeList, cleanBuild bool) *ast.NodeList {
	if !cleanBuild {
		return body
	}
	stmts := stripLeadingModuleStore(body.Body)
	stmts = stripTrailingImplicitReturn(stmts)
	return &ast.NodeList{Body: stmts}
}

func stripLeadingModuleStore(stmts []ast.Node) []ast.Node {
	if len(stmts) == 0 {
		return stmts
	}
	store, ok := stmts[0].(*ast.Store)
	if !ok {
		return stmts
	}
	src, ok := store.Source.(*ast.Name)
	if !ok || src.Ident != "__name__" {
		return stmts
	}
	dest, ok := store.Destination.(*ast.Name)
	if !ok || dest.Ident != "__module__" {
		return stmts
	}
	return stmts[1:]
}

func stripTrailingImplicitReturn(stmts []ast.Node) []ast.Node {
	if len(stmts) == 0 {
		return stmts
	}
	ret, ok := stmts[len(stmts)-1].(*ast.Return)
	if !ok || ret.Kind != ast.KindReturn {
		return stmts
	}
	if ast.IsNull(ret.Value) || isLocalsCall(ret.Value) {
		return stmts[:len(stmts)-1]
	}
	return stmts
}

func isLocalsCall(n ast.Node) bool {
	name, ok := n.(*ast.Name)
	return ok && name.Ident == "locals()"
}
