package decompiler

import (
	"pyretro/pkg/ast"
	"pyretro/pkg/textenc"
)

// binaryOps maps every fixed-arity BINARY_*/INPLACE_* opcode pair the
// dispatcher accepts to its ast.BinaryOp tag plus in-place flag, grounded
// on ASTree.cpp's per-opcode BINARY_ADD/INPLACE_ADD handlers, which all
// share the identical "pop right, pop left, push Binary" shape.
type binarySpec struct {
	op      ast.BinaryOp
	inPlace bool
}

func (c *Context) buildBinary(spec binarySpec) {
	right := c.pop()
	left := c.pop()
	c.push(&ast.Binary{Left: left, Right: right, Op: spec.op, InPlace: spec.inPlace})
}

func (c *Context) buildUnary(op ast.UnaryOp) {
	operand := c.pop()
	c.push(&ast.Unary{Operand: operand, Op: op})
}

// buildCompare pops right then left and tags the result with the
// version-independent compare code the caller has already translated
// COMPARE_OP's raw operand into. A COMPARE_OP whose translated op is
// CompareExcMatch is consumed structurally by the conditional-jump
// handler in control_flow.go — it never reaches the printer.
func (c *Context) buildCompare(op ast.CompareOp) {
	right := c.pop()
	left := c.pop()
	c.push(&ast.Compare{Left: left, Right: right, Op: op})
}

// buildCall assembles a Call from CALL_FUNCTION and its _VAR/_KW/_VAR_KW
// siblings. kwCount/posCount come from the low/high bytes of the opcode's
// operand; hasVar/hasKW select whether a *args/**kwargs value sits under
// the keyword/positional block, popped in the order the original's
// CALL_FUNCTION_VAR_KW_A handler uses: kw first, then var, then kwparams,
// then pparams, then func.
func (c *Context) buildCall(posCount, kwCount int, hasVar, hasKW bool) {
	var kw, star ast.Node = ast.Null{}, ast.Null{}
	if hasKW {
		kw = c.pop()
	}
	if hasVar {
		star = c.pop()
	}

	kwargs := make([]ast.KeywordArg, kwCount)
	for i := kwCount - 1; i >= 0; i-- {
		val := c.pop()
		key := c.pop()
		kwargs[i] = ast.KeywordArg{Name: nameOfConst(key), Value: val}
	}

	positional := make([]ast.Node, posCount)
	for i := posCount - 1; i >= 0; i-- {
		positional[i] = c.pop()
	}

	fn := c.pop()
	c.push(&ast.Call{
		Func:       fn,
		Positional: positional,
		Keywords:   kwargs,
		Star:       star,
		StarStar:   kw,
	})
}

// nameOfConst extracts a bare identifier from a keyword-argument key,
// which LOAD_CONST always pushes as an Object wrapping a string.
func nameOfConst(n ast.Node) string {
	if o, ok := n.(*ast.Object); ok {
		if s, ok := o.Value.(string); ok {
			return s
		}
	}
	return n.String()
}

func (c *Context) buildList(count int) {
	elems := make([]ast.Node, count)
	for i := count - 1; i >= 0; i-- {
		elems[i] = c.pop()
	}
	c.push(&ast.List{Elems: elems})
}

func (c *Context) buildTuple(count int) {
	elems := make([]ast.Node, count)
	for i := count - 1; i >= 0; i-- {
		elems[i] = c.pop()
	}
	c.push(&ast.Tuple{Elems: elems})
}

// buildSlice translates BUILD_SLICE's None-means-absent operands into the
// four ast.SliceKind shapes, following ASTree.cpp's BUILD_SLICE_A exactly:
// a None start or end collapses to "absent", and the 3-operand form
// (with a step) folds into a slice-of-a-slice so the printer can still
// render it as `[a:b:c]` once it recognizes the nesting.
func (c *Context) buildSlice(operandCount int) {
	asAbsent := func(n ast.Node) ast.Node {
		if o, ok := n.(*ast.Object); ok && o.Value == nil {
			return nil
		}
		if _, ok := n.(ast.Null); ok {
			return nil
		}
		return n
	}

	kindFor := func(start, end ast.Node) (ast.SliceKind, ast.Node, ast.Node) {
		switch {
		case start == nil && end == nil:
			return ast.SliceFull, nil, nil
		case start == nil:
			return ast.SliceRight, nil, end
		case end == nil:
			return ast.SliceLeft, start, nil
		default:
			return ast.SliceBoth, start, end
		}
	}

	if operandCount == 2 {
		end := asAbsent(c.pop())
		start := asAbsent(c.pop())
		kind, l, r := kindFor(start, end)
		c.push(&ast.Slice{Kind: kind, Left: l, Right: r})
		return
	}

	// Three operands: start, end, step. Build the start:end slice first,
	// then wrap it as the left side of a second slice against step.
	step := asAbsent(c.pop())
	end := asAbsent(c.pop())
	start := asAbsent(c.pop())
	kind, l, r := kindFor(start, end)
	inner := &ast.Slice{Kind: kind, Left: l, Right: r}

	if step == nil {
		c.push(&ast.Slice{Kind: ast.SliceLeft, Left: inner})
	} else {
		c.push(&ast.Slice{Kind: ast.SliceBoth, Left: inner, Right: step})
	}
}

func (c *Context) buildSubscr() {
	index := c.pop()
	container := c.pop()
	c.push(&ast.Subscr{Container: container, Index: index})
}

// buildMakeFunction pops the child code object then `defaultCount`
// default-argument expressions, in declaration order, matching
// MAKE_FUNCTION_A's defArgs.push_front loop.
func (c *Context) buildMakeFunction(defaultCount int) {
	code := c.pop()
	defaults := make([]ast.Node, defaultCount)
	for i := defaultCount - 1; i >= 0; i-- {
		defaults[i] = c.pop()
	}
	name := ""
	if o, ok := code.(*ast.Object); ok {
		if named, ok := o.Value.(interface{ Name() string }); ok {
			name = named.Name()
		}
	}
	c.push(&ast.Function{CodeChild: code, Name: name, Defaults: defaults})
}

func (c *Context) buildClass() {
	code := c.pop()
	bases := c.pop()
	name := c.pop()
	c.push(&ast.Class{CodeChild: code, Bases: bases, Name: nameOfConst(name)})
}

// loadConst downcasts a constant-pool literal the way LOAD_CONST_A does:
// an empty tuple becomes an empty ast.Tuple and a None constant becomes
// the ast.Null sentinel, so later handlers can test "is this absent" with
// a type switch instead of comparing against the raw constant payload. A
// raw []byte constant is an 8-bit string tagged with the code object's
// source encoding cookie (SPEC_FULL.md §4); pos is the LOAD_CONST
// instruction's own offset, recorded on a transcoding failure.
func (c *Context) loadConst(v any, pos int) {
	if v == nil {
		c.push(ast.Null{})
		return
	}
	if elems, ok := v.([]any); ok && len(elems) == 0 {
		c.push(&ast.Tuple{})
		return
	}
	if raw, ok := v.([]byte); ok {
		text, err := textenc.Decode(raw, c.code.Encoding())
		if err != nil {
			c.fail(&StructuralAnomalyError{
				Position: Position{Offset: pos},
				Msg:      err.Error(),
				Cause:    err,
			})
			c.push(&ast.Object{Value: string(raw)})
			return
		}
		c.push(&ast.Object{Value: text})
		return
	}
	c.push(&ast.Object{Value: v})
}
