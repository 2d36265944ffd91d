package compiler

import (
	"github.com/nyxlang/nyx/internal/ast"
	"github.com/nyxlang/nyx/internal/code"
	"github.com/nyxlang/nyx/internal/value"
)

// compileStmts lowers a statement list, resetting the temp-register
// high-water mark after each one (see fnState.mark/release's doc comment).
func compileStmts(c *fnState, body []ast.Stmt) error {
	for _, s := range body {
		mark := c.mark()
		if err := compileStmt(c, s); err != nil {
			return err
		}
		c.release(mark)
	}
	return nil
}

func compileStmt(c *fnState, s ast.Stmt) error {
	switch st := s.(type) {
	case *ast.Let:
		return compileLet(c, st)
	case *ast.Assign:
		return compileAssign(c, st)
	case *ast.CompoundAssign:
		return compileCompoundAssign(c, st)
	case *ast.Break:
		return compileBreak(c, st)
	case *ast.Continue:
		return compileContinue(c, st)
	case *ast.Return:
		return compileReturn(c, st)
	case *ast.If:
		return compileIf(c, st)
	case *ast.While:
		return compileWhile(c, st)
	case *ast.For:
		return compileFor(c, st)
	case *ast.Block:
		c.pushScope()
		err := compileStmts(c, st.Body)
		c.popScope()
		return err
	case *ast.FunctionStmt:
		return compileFunctionStmt(c, st)
	case *ast.ExprStmt:
		_, err := compileExpr(c, st.X)
		return err
	case *ast.StructDecl, *ast.TraitDecl, *ast.ImplDecl, *ast.TypeAlias, *ast.Import:
 // Type/trait/import declarations are resolved ahead of core
 // execution; the core only needs to skip them here.
		return nil
	default:
		return compileErr(s.Position(), "unsupported statement %T", s)
	}
}

func compileLet(c *fnState, l *ast.Let) error {
	srcOp, err := compileExpr(c, l.Value)
	if err != nil {
		return err
	}
	return bindPattern(c, l.Pat, srcOp, l.Const)
}

func compileAssign(c *fnState, a *ast.Assign) error {
	srcOp, err := compileExpr(c, a.Value)
	if err != nil {
		return err
	}
	switch t := a.Target.(type) {
	case *ast.Variable:
		return assignVariable(c, t.Name, srcOp, a.Position())
	case *ast.Access:
		return compileAccessAssign(c, t, srcOp)
	default:
		return compileErr(a.Position(), "invalid assignment target")
	}
}

func assignVariable(c *fnState, name string, srcOp code.Operand, pos ast.Pos) error {
	if reg, ok := c.resolveLocal(name); ok {
		if c.constLocal[reg] {
			return compileErr(pos, "cannot assign to const binding: %s", name)
		}
		c.assignLocal(reg, srcOp)
		return nil
	}
	handleReg, kind, ok, err := cellHandle(c, name)
	if err != nil {
		return err
	}
	if ok {
		if kind == value.ByConst {
			return compileErr(pos, "cannot assign to const binding: %s", name)
		}
		c.emit(code.Inst{Op: code.OpStoreBoxed, A: code.Reg(int(handleReg)), B: srcOp})
		return nil
	}
	nameIdx := c.addConstStr(name)
	c.emit(code.Inst{Op: code.OpStoreGlobal, A: srcOp, Aux: nameIdx})
	return nil
}

// compileAccessAssign compiles `receiver.field = value` / `receiver[idx] =
// value`. List/Map/struct values only ever change identity through their
// copy-on-write guards (see internal/interp/exec.go's fieldSet/
// execIndexSet), so the new receiver produced by the Set instruction is
// written back into whatever location produced the old one via
// writeBackReceiver — otherwise a second alias bound to the pre-mutation
// handle (`let n = m; n.b = 2`) would never see the write, and worse, the
// first alias (`m`) would if the guard mutated in place instead.
func compileAccessAssign(c *fnState, a *ast.Access, srcOp code.Operand) error {
	recvOp, err := compileExpr(c, a.Receiver)
	if err != nil {
		return err
	}
	newRecv := c.allocTemp()
	if a.Field != "" {
		nameIdx := c.addConstStr(a.Field)
		c.emit(code.Inst{Op: code.OpFieldSet, Dst: newRecv, A: recvOp, B: srcOp, Aux: nameIdx})
	} else {
		idxOp, err := compileExpr(c, a.Index)
		if err != nil {
			return err
		}
		tmp := c.allocTemp()
		c.emit(code.Inst{Op: code.OpMove, Dst: tmp, A: srcOp})
		c.emit(code.Inst{Op: code.OpIndexSet, Dst: newRecv, A: recvOp, B: idxOp, Regs: []int32{tmp}})
	}
	return writeBackReceiver(c, a.Receiver, code.Reg(int(newRecv)))
}

// writeBackReceiver rebinds whichever lvalue produced a mutated
// receiver's prior value to its (possibly reallocated) replacement. Plain
// expressions that aren't themselves assignable — call results, literals
// — have nowhere to rebind to, and the mutation is scoped to that
// ephemeral value, which is the correct behavior for a receiver nothing
// else can alias.
func writeBackReceiver(c *fnState, recv ast.Expr, newOp code.Operand) error {
	switch r := recv.(type) {
	case *ast.Variable:
		return assignVariable(c, r.Name, newOp, r.Position())
	case *ast.Access:
		if r.Field != "" {
			tmp := c.allocTemp()
			recvOp, err := compileExpr(c, r.Receiver)
			if err != nil {
				return err
			}
			nameIdx := c.addConstStr(r.Field)
			c.emit(code.Inst{Op: code.OpFieldSet, Dst: tmp, A: recvOp, B: newOp, Aux: nameIdx})
			return writeBackReceiver(c, r.Receiver, code.Reg(int(tmp)))
		}
		recvOp, err := compileExpr(c, r.Receiver)
		if err != nil {
			return err
		}
		idxOp, err := compileExpr(c, r.Index)
		if err != nil {
			return err
		}
		vtmp := c.allocTemp()
		c.emit(code.Inst{Op: code.OpMove, Dst: vtmp, A: newOp})
		tmp := c.allocTemp()
		c.emit(code.Inst{Op: code.OpIndexSet, Dst: tmp, A: recvOp, B: idxOp, Regs: []int32{vtmp}})
		return writeBackReceiver(c, r.Receiver, code.Reg(int(tmp)))
	default:
		return nil
	}
}

func compileCompoundAssign(c *fnState, ca *ast.CompoundAssign) error {
	var binOp ast.BinaryOp
	switch ca.Op {
	case ast.CAddAssign:
		binOp = ast.OpAdd
	case ast.CSubAssign:
		binOp = ast.OpSub
	case ast.CMulAssign:
		binOp = ast.OpMul
	case ast.CDivAssign:
		binOp = ast.OpDiv
	}
	combined := &ast.Assign{
		Target: ca.Target,
		Value:  &ast.Binary{Op: binOp, Left: ca.Target, Right: ca.Value},
	}
	return compileAssign(c, combined)
}

func compileBreak(c *fnState, b *ast.Break) error {
	if len(c.loops) == 0 {
		return compileErr(b.Position(), "break outside a loop")
	}
	top := c.loops[len(c.loops)-1]
	idx := c.emit(code.Inst{Op: code.OpJump})
	top.breaks = append(top.breaks, idx)
	return nil
}

func compileContinue(c *fnState, ct *ast.Continue) error {
	if len(c.loops) == 0 {
		return compileErr(ct.Position(), "continue outside a loop")
	}
	top := c.loops[len(c.loops)-1]
	idx := c.emit(code.Inst{Op: code.OpJump})
	top.continues = append(top.continues, idx)
	return nil
}

func compileReturn(c *fnState, r *ast.Return) error {
	if r.Value == nil {
		c.emit(code.Inst{Op: code.OpReturn, A: code.Const(int(c.addConstNil()))})
		return nil
	}
	op, err := compileExpr(c, r.Value)
	if err != nil {
		return err
	}
	c.emit(code.Inst{Op: code.OpReturn, A: op})
	return nil
}

func compileIf(c *fnState, i *ast.If) error {
	c.pushScope()
	defer c.popScope()

	var condOp code.Operand
	var err error
	if i.LetPattern != nil {
		condOp, err = compileIfLetCond(c, *i.LetPattern, i.Cond)
	} else {
		condOp, err = compileExpr(c, i.Cond)
	}
	if err != nil {
		return err
	}
	condReg := toReg(c, condOp)
	falseJump := c.emit(code.Inst{Op: code.OpJumpIfFalse, A: code.Reg(int(condReg))})
	if err := compileStmts(c, i.Then); err != nil {
		return err
	}
	if len(i.Else) == 0 {
		c.patchJump(falseJump, c.here())
		return nil
	}
	endJump := c.emit(code.Inst{Op: code.OpJump})
	c.patchJump(falseJump, c.here())
	if err := compileStmts(c, i.Else); err != nil {
		return err
	}
	c.patchJump(endJump, c.here())
	return nil
}

// compileIfLetCond compiles "if let pat = expr": evaluate expr, run the
// pattern's match test, bind on success, and return a register usable as
// the branch condition.
func compileIfLetCond(c *fnState, pat ast.Pattern, subject ast.Expr) (code.Operand, error) {
	subOp, err := compileExpr(c, subject)
	if err != nil {
		return 0, err
	}
	subReg := toReg(c, subOp)
	okReg := c.allocTemp()
	c.emit(code.Inst{Op: code.OpMatchTest, Dst: okReg, A: code.Reg(int(subReg))})
	if err := bindPatternConditionally(c, pat, code.Reg(int(subReg)), okReg); err != nil {
		return 0, err
	}
	return code.Reg(int(okReg)), nil
}

func compileWhile(c *fnState, w *ast.While) error {
	c.pushScope()
	defer c.popScope()
	loop := &loopCtx{}
	c.loops = append(c.loops, loop)
	defer func() { c.loops = c.loops[:len(c.loops)-1] }()

	top := c.here()
	var condOp code.Operand
	var err error
	if w.LetPattern != nil {
		condOp, err = compileIfLetCond(c, *w.LetPattern, w.Cond)
	} else {
		condOp, err = compileExpr(c, w.Cond)
	}
	if err != nil {
		return err
	}
	condReg := toReg(c, condOp)
	exitJump := c.emit(code.Inst{Op: code.OpJumpIfFalse, A: code.Reg(int(condReg))})
	if err := compileStmts(c, w.Body); err != nil {
		return err
	}
	continueTarget := c.here()
	c.emit(code.Inst{Op: code.OpJump, Aux: int32(top - c.here())})
	end := c.here()
	c.patchJump(exitJump, end)
	for _, idx := range loop.breaks {
		c.patchJump(idx, end)
	}
	for _, idx := range loop.continues {
		c.patchJump(idx, continueTarget)
	}
	return nil
}

// compileFor lowers "for x in iter": a Range iterates via OpForPrep/
// OpForLoop/OpForStep; any other iterable goes through OpToIter/
// OpIterNext. Grounded on the teacher's internal/vm/compiler_loops.go
// dual-path range/generic loop lowering.
func compileFor(c *fnState, f *ast.For) error {
	c.pushScope()
	defer c.popScope()
	loop := &loopCtx{}
	c.loops = append(c.loops, loop)
	defer func() { c.loops = c.loops[:len(c.loops)-1] }()

	varReg := c.declareLocal(f.VarName, false)

	if rng, ok := f.Iter.(*ast.Range); ok {
		return compileForRange(c, f, rng, loop, varReg)
	}
	return compileForGeneric(c, f, loop, varReg)
}

func compileForRange(c *fnState, f *ast.For, rng *ast.Range, loop *loopCtx, varReg int32) error {
	startOp, err := compileExpr(c, rng.Start)
	if err != nil {
		return err
	}
	endOp, err := compileExpr(c, rng.End)
	if err != nil {
		return err
	}
	endReg := toReg(c, endOp)
	aux := int32(0)
	if rng.Inclusive {
		aux = 1
	}
	c.bindLocal(varReg, startOp)
	top := c.here()
	testReg := c.allocTemp()
	c.emit(code.Inst{Op: code.OpForLoop, Dst: testReg, A: code.Reg(int(varReg)), B: code.Reg(int(endReg)), Aux: aux})
	exitJump := c.emit(code.Inst{Op: code.OpJumpIfFalse, A: code.Reg(int(testReg))})
	if err := compileStmts(c, f.Body); err != nil {
		return err
	}
	continueTarget := c.here()
	c.emit(code.Inst{Op: code.OpForStep, Dst: varReg, A: code.Reg(int(varReg))})
	c.emit(code.Inst{Op: code.OpJump, Aux: int32(top - c.here())})
	end := c.here()
	c.patchJump(exitJump, end)
	for _, idx := range loop.breaks {
		c.patchJump(idx, end)
	}
	for _, idx := range loop.continues {
		c.patchJump(idx, continueTarget)
	}
	return nil
}

func compileForGeneric(c *fnState, f *ast.For, loop *loopCtx, varReg int32) error {
	iterOp, err := compileExpr(c, f.Iter)
	if err != nil {
		return err
	}
	iterReg := c.allocTemp()
	c.emit(code.Inst{Op: code.OpToIter, Dst: iterReg, A: iterOp})
	top := c.here()
	moreReg := c.allocTemp()
	c.emit(code.Inst{Op: code.OpIterNext, Dst: varReg, A: code.Reg(int(iterReg)), B: code.Reg(int(moreReg))})
	exitJump := c.emit(code.Inst{Op: code.OpJumpIfFalse, A: code.Reg(int(moreReg))})
	if c.boxed[varReg] {
		c.emit(code.Inst{Op: code.OpMakeCell, Dst: varReg, A: code.Reg(int(varReg))})
	}
	if err := compileStmts(c, f.Body); err != nil {
		return err
	}
	continueTarget := c.here()
	c.emit(code.Inst{Op: code.OpJump, Aux: int32(top - c.here())})
	end := c.here()
	c.patchJump(exitJump, end)
	for _, idx := range loop.breaks {
		c.patchJump(idx, end)
	}
	for _, idx := range loop.continues {
		c.patchJump(idx, continueTarget)
	}
	return nil
}

func compileFunctionStmt(c *fnState, fs *ast.FunctionStmt) error {
	fs.Fn.Name = fs.Name
	reg := c.declareLocal(fs.Name, false)
	op, err := compileClosureExpr(c, fs.Fn)
	if err != nil {
		return err
	}
	c.bindLocal(reg, op)
	return nil
}

func (c *fnState) addConstNil() int32 {
	return c.addConst(value.Nil())
}
