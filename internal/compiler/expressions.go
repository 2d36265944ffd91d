package compiler

import (
	"github.com/nyxlang/nyx/internal/ast"
	"github.com/nyxlang/nyx/internal/code"
	"github.com/nyxlang/nyx/internal/value"
)

// compileExpr lowers e, returning an Operand that already holds the
// result — a register this call just wrote, or (for a literal/local/
// global read) one it found without emitting anything. Grounded on the
// teacher's internal/vm/compiler_expressions.go recursive-descent walk,
// re-targeted from "push" to "return the operand."
func compileExpr(c *fnState, e ast.Expr) (code.Operand, error) {
	switch ex := e.(type) {
	case *ast.Literal:
		return code.Const(int(c.addConst(literalValue(ex)))), nil

	case *ast.Variable:
		return compileVarRead(c, ex)

	case *ast.Binary:
		return compileBinary(c, ex)

	case *ast.Unary:
		return compileUnary(c, ex)

	case *ast.Logical:
		return compileLogical(c, ex)

	case *ast.Range:
		return compileRange(c, ex)

	case *ast.ListLit:
		return compileListLit(c, ex)

	case *ast.MapLit:
		return compileMapLit(c, ex)

	case *ast.TemplateLit:
		return compileTemplateLit(c, ex)

	case *ast.Access:
		return compileAccess(c, ex)

	case *ast.Conditional:
		return compileConditional(c, ex)

	case *ast.Call:
		return compileCall(c, ex)

	case *ast.Closure:
		return compileClosureExpr(c, ex)

	case *ast.Match:
		return compileMatch(c, ex)

	case *ast.StructLit:
		return compileStructLit(c, ex)

	case *ast.Select:
		return compileSelect(c, ex)

	default:
		return 0, compileErr(e.Position(), "unsupported expression %T", e)
	}
}

// compileInto compiles e and ensures the result lands in a concrete
// register (folding a Const operand into a LOAD_CONST when the caller
// needs a register, e.g. for a Regs list entry).
func compileInto(c *fnState, e ast.Expr) (int32, error) {
	op, err := compileExpr(c, e)
	if err != nil {
		return 0, err
	}
	return toReg(c, op), nil
}

func toReg(c *fnState, op code.Operand) int32 {
	if !op.IsConst() {
		return int32(op.Index())
	}
	dst := c.allocTemp()
	c.emit(code.Inst{Op: code.OpLoadConst, Dst: dst, A: op})
	return dst
}

func literalValue(l *ast.Literal) value.Value {
	switch l.Kind {
	case ast.LitNil:
		return value.Nil()
	case ast.LitBool:
		return value.Bool(l.B)
	case ast.LitInt:
		return value.Int(l.I)
	case ast.LitFloat:
		return value.Float(l.F)
	case ast.LitString:
		return value.StrVal(l.S)
	default:
		return value.Nil()
	}
}

// compileVarRead resolves name against, in order: this function's locals
// (unboxed fast path or boxed deref), an enclosing function's locals
// (turned into a capture chain via cellHandle), or a global.
func compileVarRead(c *fnState, v *ast.Variable) (code.Operand, error) {
	if reg, ok := c.resolveLocal(v.Name); ok && !c.boxed[reg] {
		return code.Reg(int(reg)), nil
	}
	handleReg, _, ok, err := cellHandle(c, v.Name)
	if err != nil {
		return 0, err
	}
	if ok {
		dst := c.allocTemp()
		c.emit(code.Inst{Op: code.OpLoadBoxed, Dst: dst, A: code.Reg(int(handleReg))})
		return code.Reg(int(dst)), nil
	}
	dst := c.allocTemp()
	nameIdx := c.addConstStr(v.Name)
	c.emit(code.Inst{Op: code.OpLoadGlobal, Dst: dst, Aux: nameIdx})
	return code.Reg(int(dst)), nil
}

func compileBinary(c *fnState, b *ast.Binary) (code.Operand, error) {
	if folded, ok := constFoldBinary(b); ok {
		return code.Const(int(c.addConst(folded))), nil
	}
	aOp, err := compileExpr(c, b.Left)
	if err != nil {
		return 0, err
	}
	bOp, err := compileExpr(c, b.Right)
	if err != nil {
		return 0, err
	}
	op, imm, ok := binaryOpcode(b.Op)
	dst := c.allocTemp()
	if ok && imm && bOp.IsConst() {
		c.emit(code.Inst{Op: op, Dst: dst, A: aOp, B: bOp})
		return code.Reg(int(dst)), nil
	}
	c.emit(code.Inst{Op: op, Dst: dst, A: aOp, B: bOp})
	return code.Reg(int(dst)), nil
}

// binaryOpcode maps an ast.BinaryOp to its code.Op. For the relational
// family it always returns the *Imm variant, whether B is a constant or a
// register, and the imm result is true; for every other op imm is false.
func binaryOpcode(op ast.BinaryOp) (code.Op, bool, bool) {
	switch op {
	case ast.OpAdd:
		return code.OpAdd, false, true
	case ast.OpSub, ast.OpListDiff, ast.OpMapRemove:
		return code.OpSub, false, true
	case ast.OpMul:
		return code.OpMul, false, true
	case ast.OpDiv:
		return code.OpDiv, false, true
	case ast.OpMod:
		return code.OpMod, false, true
	case ast.OpEq:
		return code.OpEqImm, true, true
	case ast.OpNe:
		return code.OpNeImm, true, true
	case ast.OpLt:
		return code.OpLtImm, true, true
	case ast.OpLe:
		return code.OpLeImm, true, true
	case ast.OpGt:
		return code.OpGtImm, true, true
	case ast.OpGe:
		return code.OpGeImm, true, true
	case ast.OpBitAnd:
		return code.OpBitAnd, false, true
	case ast.OpBitOr:
		return code.OpBitOr, false, true
	case ast.OpBitXor:
		return code.OpBitXor, false, true
	case ast.OpShl:
		return code.OpShl, false, true
	case ast.OpShr:
		return code.OpShr, false, true
	case ast.OpListConcat, ast.OpListAppend, ast.OpMapMerge:
		return code.OpAdd, false, true
	default:
		return 0, false, false
	}
}

func compileUnary(c *fnState, u *ast.Unary) (code.Operand, error) {
	aOp, err := compileExpr(c, u.Operand)
	if err != nil {
		return 0, err
	}
	var op code.Op
	switch u.Op {
	case ast.OpNeg:
		op = code.OpNeg
	case ast.OpBitNot:
		op = code.OpBitNot
	case ast.OpNot:
		op = code.OpNot
	}
	dst := c.allocTemp()
	c.emit(code.Inst{Op: op, Dst: dst, A: aOp})
	return code.Reg(int(dst)), nil
}

// compileLogical implements short-circuit &&, ||, ??, each as: evaluate
// left into dst, test it, conditionally skip evaluating right into the
// same dst (ast.go's Logical doc comment: "must not evaluate when
// short-circuited").
func compileLogical(c *fnState, l *ast.Logical) (code.Operand, error) {
	dst := c.allocTemp()
	leftOp, err := compileExpr(c, l.Left)
	if err != nil {
		return 0, err
	}
	c.emit(code.Inst{Op: code.OpMove, Dst: dst, A: leftOp})

	var skipJump int
	switch l.Op {
	case ast.LogAnd:
		skipJump = c.emit(code.Inst{Op: code.OpJumpIfFalse, A: code.Reg(int(dst)), Aux: 0})
	case ast.LogOr:
		skipJump = c.emit(code.Inst{Op: code.OpJumpIfTrue, A: code.Reg(int(dst)), Aux: 0})
	case ast.LogNullish:
		testReg := c.allocTemp()
		c.emit(code.Inst{Op: code.OpTestNotNil, Dst: testReg, A: code.Reg(int(dst))})
		skipJump = c.emit(code.Inst{Op: code.OpJumpIfTrue, A: code.Reg(int(testReg)), Aux: 0})
	}
	rightOp, err := compileExpr(c, l.Right)
	if err != nil {
		return 0, err
	}
	c.emit(code.Inst{Op: code.OpMove, Dst: dst, A: rightOp})
	c.patchJump(skipJump, c.here())
	return code.Reg(int(dst)), nil
}

func compileRange(c *fnState, r *ast.Range) (code.Operand, error) {
	startOp, err := compileExpr(c, r.Start)
	if err != nil {
		return 0, err
	}
	endOp, err := compileExpr(c, r.End)
	if err != nil {
		return 0, err
	}
	dst := c.allocTemp()
	aux := int32(0)
	if r.Inclusive {
		aux = 1
	}
	c.emit(code.Inst{Op: code.OpRange, Dst: dst, A: startOp, B: endOp, Aux: aux})
	return code.Reg(int(dst)), nil
}

func compileListLit(c *fnState, l *ast.ListLit) (code.Operand, error) {
	regs := make([]int32, 0, len(l.Elements))
	for i, el := range l.Elements {
		if i < len(l.Spreads) && l.Spreads[i] {
			return 0, compileErr(el.Position(), "list spread is not supported")
		}
		r, err := compileInto(c, el)
		if err != nil {
			return 0, err
		}
		regs = append(regs, r)
	}
	dst := c.allocTemp()
	c.emit(code.Inst{Op: code.OpBuildList, Dst: dst, Regs: regs})
	return code.Reg(int(dst)), nil
}

func compileMapLit(c *fnState, m *ast.MapLit) (code.Operand, error) {
	regs := make([]int32, 0, len(m.Entries)*2)
	for _, entry := range m.Entries {
		kr, err := compileInto(c, entry.Key)
		if err != nil {
			return 0, err
		}
		vr, err := compileInto(c, entry.Value)
		if err != nil {
			return 0, err
		}
		regs = append(regs, kr, vr)
	}
	dst := c.allocTemp()
	c.emit(code.Inst{Op: code.OpBuildMap, Dst: dst, Regs: regs})
	return code.Reg(int(dst)), nil
}

func compileTemplateLit(c *fnState, t *ast.TemplateLit) (code.Operand, error) {
	regs := make([]int32, 0, len(t.Fragments)+len(t.Embeds))
	fragIdx := make([]int32, len(t.Fragments))
	for i, frag := range t.Fragments {
		fragIdx[i] = c.addConstStr(frag)
	}
	for i, embed := range t.Embeds {
		regs = append(regs, fragIdx[i])
		r, err := compileInto(c, embed)
		if err != nil {
			return 0, err
		}
		regs = append(regs, r)
	}
	regs = append(regs, fragIdx[len(fragIdx)-1])
	dst := c.allocTemp()
	c.emit(code.Inst{Op: code.OpInterpConcat, Dst: dst, Regs: regs})
	return code.Reg(int(dst)), nil
}

func compileAccess(c *fnState, a *ast.Access) (code.Operand, error) {
	recvOp, err := compileExpr(c, a.Receiver)
	if err != nil {
		return 0, err
	}
	dst := c.allocTemp()
	if a.Field != "" {
		nameIdx := c.addConstStr(a.Field)
		op := code.OpFieldGet
		if a.Optional {
			op = code.OpOptionalFieldGet
		}
		c.emit(code.Inst{Op: op, Dst: dst, A: recvOp, Aux: nameIdx})
		return code.Reg(int(dst)), nil
	}
	idxOp, err := compileExpr(c, a.Index)
	if err != nil {
		return 0, err
	}
	c.emit(code.Inst{Op: code.OpIndexGet, Dst: dst, A: recvOp, B: idxOp})
	return code.Reg(int(dst)), nil
}

func compileConditional(c *fnState, cnd *ast.Conditional) (code.Operand, error) {
	condOp, err := compileExpr(c, cnd.Cond)
	if err != nil {
		return 0, err
	}
	condReg := toReg(c, condOp)
	falseJump := c.emit(code.Inst{Op: code.OpJumpIfFalse, A: code.Reg(int(condReg))})
	dst := c.allocTemp()
	thenOp, err := compileExpr(c, cnd.Then)
	if err != nil {
		return 0, err
	}
	c.emit(code.Inst{Op: code.OpMove, Dst: dst, A: thenOp})
	endJump := c.emit(code.Inst{Op: code.OpJump})
	c.patchJump(falseJump, c.here())
	elseOp, err := compileExpr(c, cnd.Else)
	if err != nil {
		return 0, err
	}
	c.emit(code.Inst{Op: code.OpMove, Dst: dst, A: elseOp})
	c.patchJump(endJump, c.here())
	return code.Reg(int(dst)), nil
}

func compileCall(c *fnState, call *ast.Call) (code.Operand, error) {
	calleeOp, err := compileExpr(c, call.Callee)
	if err != nil {
		return 0, err
	}
	calleeReg := toReg(c, calleeOp)
	argRegs := make([]int32, 0, len(call.Args))
	for i, a := range call.Args {
		if i < len(call.ArgSpread) && call.ArgSpread[i] {
			return 0, compileErr(a.Position(), "call-argument spread is not supported")
		}
		r, err := compileInto(c, a)
		if err != nil {
			return 0, err
		}
		argRegs = append(argRegs, r)
	}
	dst := c.allocTemp()
	if len(call.Named) == 0 {
		c.emit(code.Inst{Op: code.OpCall, Dst: dst, A: code.Reg(int(calleeReg)), Regs: argRegs, Aux: int32(len(argRegs))})
		return code.Reg(int(dst)), nil
	}
	named := make([]code.NamedSlot, 0, len(call.Named))
	for _, n := range call.Named {
		r, err := compileInto(c, n.Value)
		if err != nil {
			return 0, err
		}
		named = append(named, code.NamedSlot{NameConst: c.addConstStr(n.Name), Reg: r})
	}
	c.emit(code.Inst{Op: code.OpCallNamed, Dst: dst, A: code.Reg(int(calleeReg)), Regs: argRegs, Named: named, Aux: int32(len(argRegs))})
	return code.Reg(int(dst)), nil
}

func compileStructLit(c *fnState, s *ast.StructLit) (code.Operand, error) {
	regs := make([]int32, 0, len(s.Fields)*2)
	for _, f := range s.Fields {
		nameIdx := c.addConstStr(f.Name)
		vr, err := compileInto(c, f.Value)
		if err != nil {
			return 0, err
		}
		regs = append(regs, nameIdx, vr)
	}
	dst := c.allocTemp()
	typeIdx := c.addConstStr(s.TypeName)
	// Aux is 1-based here (0 means "plain map, no type tag") so a struct
	// literal whose type name happens to be constant-pool slot 0 is still
	// distinguishable from an ordinary MapLit.
	c.emit(code.Inst{Op: code.OpBuildMap, Dst: dst, Regs: regs, Aux: typeIdx + 1})
	return code.Reg(int(dst)), nil
}

// compileSelect lowers a select-expression to one native call per
// ast.go's doc comment on Select: "The VM treats select as a single native
// call whose arguments describe the cases." Each case contributes a
// (channel, thunk-closure) pair; the thunk defers the body's evaluation
// until the runtime scheduler picks that case.
func compileSelect(c *fnState, sel *ast.Select) (code.Operand, error) {
	calleeReg := c.allocTemp()
	nameIdx := c.addConstStr("__select__")
	c.emit(code.Inst{Op: code.OpLoadGlobal, Dst: calleeReg, Aux: nameIdx})
	argRegs := make([]int32, 0, len(sel.Cases)*2)
	for _, cs := range sel.Cases {
		chOp, err := compileExpr(c, cs.Chan)
		if err != nil {
			return 0, err
		}
		thunk := &ast.Closure{Body: []ast.Stmt{&ast.Return{Value: cs.Body}}}
		thunkOp, err := compileClosureExpr(c, thunk)
		if err != nil {
			return 0, err
		}
		argRegs = append(argRegs, toReg(c, chOp), toReg(c, thunkOp))
	}
	dst := c.allocTemp()
	c.emit(code.Inst{Op: code.OpCall, Dst: dst, A: code.Reg(int(calleeReg)), Regs: argRegs, Aux: int32(len(argRegs))})
	return code.Reg(int(dst)), nil
}
