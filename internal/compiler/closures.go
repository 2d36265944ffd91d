package compiler

import (
	"fmt"

	"github.com/nyxlang/nyx/internal/analysis"
	"github.com/nyxlang/nyx/internal/ast"
	"github.com/nyxlang/nyx/internal/code"
	"github.com/nyxlang/nyx/internal/value"
)

// cellHandle returns a register in c's own instruction stream holding a
// *value.Cell for name — boxing one just-in-time isn't attempted: a local
// reaching here unboxed means the escape pass failed to mark a slot that
// is, in fact, captured, which would silently corrupt already-emitted
// reads of it, so it is reported as an error instead. ok is false when
// name is bound nowhere up the enclosing-function chain (global).
func cellHandle(c *fnState, name string) (int32, value.CaptureKind, bool, error) {
	if reg, ok := c.resolveLocal(name); ok {
		if !c.boxed[reg] {
			return 0, 0, false, fmt.Errorf("internal: local %q captured without being boxed", name)
		}
		kind := value.ByRef
		if c.constLocal[reg] {
			kind = value.ByConst
		}
		return reg, kind, true, nil
	}
	if idx, ok := c.captureIndexByName[name]; ok {
		dst := c.allocTemp()
		c.emit(code.Inst{Op: code.OpLoadCapture, Dst: dst, Aux: int32(idx)})
		return dst, c.fn.CaptureKinds[idx], true, nil
	}
	if c.parent == nil {
		return 0, 0, false, nil
	}
	parentReg, kind, ok, err := cellHandle(c.parent, name)
	if err != nil || !ok {
		return 0, 0, false, err
	}
	idx := int32(len(c.captureSources))
	c.captureSources = append(c.captureSources, parentReg)
	c.fn.CaptureKinds = append(c.fn.CaptureKinds, kind)
	c.captureIndexByName[name] = int(idx)
	dst := c.allocTemp()
	c.emit(code.Inst{Op: code.OpLoadCapture, Dst: dst, Aux: idx})
	return dst, kind, true, nil
}

// bindLocal writes srcOp into the just-declared local reg, boxing it in a
// fresh Cell when the region plan marked it escaping.
func (c *fnState) bindLocal(reg int32, srcOp code.Operand) {
	if c.boxed[reg] {
		c.emit(code.Inst{Op: code.OpMakeCell, Dst: reg, A: srcOp})
		return
	}
	c.emit(code.Inst{Op: code.OpMove, Dst: reg, A: srcOp})
}

// assignLocal stores into an already-bound local (plain Assign, not a
// fresh declaration), going through OpStoreBoxed when the slot is boxed.
func (c *fnState) assignLocal(reg int32, srcOp code.Operand) {
	if c.boxed[reg] {
		c.emit(code.Inst{Op: code.OpStoreBoxed, A: code.Reg(int(reg)), B: srcOp})
		return
	}
	c.emit(code.Inst{Op: code.OpMove, Dst: reg, A: srcOp})
}

// compileClosureExpr lowers a closure literal into a child Function plus a
// MAKE_CLOSURE instruction in the enclosing stream. Grounded on the
// teacher's internal/vm/compiler.go nested-function handling, generalized
// to the cell-handle capture scheme above.
func compileClosureExpr(parent *fnState, cl *ast.Closure) (code.Operand, error) {
	child := newFnState(parent)
	child.fn.Name = cl.Name
	if child.fn.Name == "" {
		child.fn.Name = "<anonymous>"
	}
	child.fn.Variadic = cl.Variadic

	layout := analysis.ResolveFunction(cl.Params, cl.NamedParams, cl.Body)
	summary := analysis.AnalyzeEscape(cl.Body, flatten(layout))
	child.region = analysis.BuildRegionPlan(summary)
	child.fn.RegionPlan = child.region

	for _, p := range cl.Params {
		reg := child.declareLocal(p.Name, false)
		child.fn.ParamRegs = append(child.fn.ParamRegs, uint16(reg))
	}
	for _, np := range cl.NamedParams {
		reg := child.declareLocal(np.Name, false)
		child.fn.NamedParamRegs = append(child.fn.NamedParamRegs, uint16(reg))
		decl := code.NamedParamDecl{Name: np.Name, Type: np.Type, Optional: np.Optional, HasDefault: np.Default != nil}
		child.fn.NamedParamLayout = append(child.fn.NamedParamLayout, decl)
		if np.Default != nil {
			thunk, err := compileDefaultThunk(child, np.Default)
			if err != nil {
				return 0, err
			}
			child.fn.NamedParamDefaults = append(child.fn.NamedParamDefaults, thunk)
		} else {
			child.fn.NamedParamDefaults = append(child.fn.NamedParamDefaults, nil)
		}
	}
	// Re-box params the region plan marked escaping: declareLocal already
	// flagged child.boxed[reg], but the incoming argument arrives in the
	// register as a plain value (the interpreter's call-setup writes
	// arguments directly into ParamRegs); wrap it in place before any body
	// statement can observe it unboxed.
	for _, reg := range child.fn.ParamRegs {
		if child.boxed[int32(reg)] {
			child.emit(code.Inst{Op: code.OpMakeCell, Dst: int32(reg), A: code.Reg(int(reg))})
		}
	}
	for _, reg := range child.fn.NamedParamRegs {
		if child.boxed[int32(reg)] {
			child.emit(code.Inst{Op: code.OpMakeCell, Dst: int32(reg), A: code.Reg(int(reg))})
		}
	}

	if err := compileStmts(child, cl.Body); err != nil {
		return 0, err
	}
	child.emit(code.Inst{Op: code.OpLoadNil, Dst: child.allocTemp()})
	child.fn.NRegs = uint16(child.maxReg)
	code.TryPackFunction(child.fn)

	protoIdx := int32(len(parent.fn.Protos))
	parent.fn.Protos = append(parent.fn.Protos, child.fn)
	dst := parent.allocTemp()
	parent.emit(code.Inst{Op: code.OpMakeClosure, Dst: dst, Aux: protoIdx, Regs: child.captureSources})
	return code.Reg(int(dst)), nil
}

// compileDefaultThunk compiles a named parameter's default-value
// expression into its own zero-arg Function sharing the enclosing
// function's ParamRegs window, so a default expression that refers to an
// earlier parameter resolves it the same way the body would.
func compileDefaultThunk(enclosing *fnState, defaultExpr ast.Expr) (*code.Function, error) {
	thunk := &fnState{
		parent:             enclosing.parent,
		fn:                 &code.Function{Name: enclosing.fn.Name + ".default", IsDefaultThunk: true, ParamRegs: enclosing.fn.ParamRegs},
		scopes:             enclosing.scopes,
		boxed:              enclosing.boxed,
		constLocal:         enclosing.constLocal,
		region:             enclosing.region,
		localCursor:        enclosing.localCursor,
		nextReg:            enclosing.nextReg,
		constIdx:           make(map[string]int),
		captureIndexByName: make(map[string]int),
	}
	op, err := compileExpr(thunk, defaultExpr)
	if err != nil {
		return nil, err
	}
	thunk.emit(code.Inst{Op: code.OpReturn, A: op})
	if thunk.maxReg < thunk.nextReg {
		thunk.maxReg = thunk.nextReg
	}
	thunk.fn.NRegs = uint16(thunk.maxReg)
	return thunk.fn, nil
}
