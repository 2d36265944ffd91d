// Package compiler lowers the AST (internal/ast) into register bytecode
// (internal/code). Grounded on the teacher's internal/vm/compiler.go single-
// pass compile-while-you-walk design, generalized from its stack-machine
// operand discipline ("push the operand, let the next op pop it") to a
// register discipline: compileExpr returns the Operand holding a result
// (a register it just wrote, or a local/const it can reference directly)
// rather than always pushing.
package compiler

import (
	"fmt"

	"github.com/nyxlang/nyx/internal/analysis"
	"github.com/nyxlang/nyx/internal/ast"
	"github.com/nyxlang/nyx/internal/code"
	"github.com/nyxlang/nyx/internal/value"
	"github.com/nyxlang/nyx/internal/vmerr"
)

// loopCtx tracks one active loop's pending break/continue jump sites so
// they can be patched once the loop's end/step label is known.
type loopCtx struct {
	breaks    []int
	continues []int
}

// fnState is the compiler's working state for one function body (top-level
// program, or a Closure/FunctionStmt). Grounded on the teacher's
// internal/vm/compiler_scope.go FunctionCompiler, re-keyed from stack
// depth to register index.
type fnState struct {
	parent *fnState
	fn     *code.Function

	scopes     []map[string]int // name -> register, innermost last
	boxed      map[int32]bool   // register -> true once it holds a *value.Cell
	constLocal map[int32]bool   // register -> true if declared `let const`
	nextReg    int32            // first never-yet-used register
	maxReg     int32

	region *analysis.RegionPlan
	// localCursor mirrors analysis.ResolveFunction's declaration order so a
	// local's register and its RegionPlan slot index are the same number
	// by construction (see ResolveFunction's doc comment).
	localCursor int

	loops []*loopCtx

	constIdx map[string]int // serialized-value key -> Consts index, dedups literals

	// captureIndexByName/captureSources record this function's own upvalue
	// list: captureSources[i] is a register in parent's stream holding the
	// *value.Cell this function's Captures[i] shares.
	captureIndexByName map[string]int
	captureSources      []int32
}

func newFnState(parent *fnState) *fnState {
	return &fnState{
		parent:             parent,
		fn:                 &code.Function{},
		scopes:             []map[string]int{{}},
		boxed:              make(map[int32]bool),
		constLocal:         make(map[int32]bool),
		constIdx:           make(map[string]int),
		captureIndexByName: make(map[string]int),
	}
}

// Compile lowers a top-level program into an entry Function with no
// parameters, matching how the teacher treats a script's top level as an
// implicit zero-arg function (internal/vm/compiler.go's Compile entry
// point).
func Compile(prog *ast.Program) (*code.Function, error) {
	c := newFnState(nil)
	c.fn.Name = "<main>"
	layout := analysis.ResolveFunction(nil, nil, prog.Body)
	summary := analysis.AnalyzeEscape(prog.Body, flatten(layout))
	c.region = analysis.BuildRegionPlan(summary)
	c.fn.RegionPlan = c.region
	if err := compileStmts(c, prog.Body); err != nil {
		return nil, err
	}
	c.emit(code.Inst{Op: code.OpHalt, Dst: -1})
	c.fn.NRegs = uint16(c.maxReg)
	code.TryPackFunction(c.fn)
	return c.fn, nil
}

// flatten discards nesting to build the approximate name->slot map escape
// analysis consumes (see escape.go's doc comment on the acceptable
// imprecision this causes for shadowed names across unrelated scopes).
func flatten(layout *analysis.FunctionLayout) map[string]int {
	m := make(map[string]int, len(layout.Decls))
	for _, d := range layout.Decls {
		m[d.Name] = d.Index
	}
	return m
}

func (c *fnState) emit(in code.Inst) int {
	idx := len(c.fn.Code)
	c.fn.Code = append(c.fn.Code, in)
	return idx
}

func (c *fnState) patchJump(instIdx int, target int) {
	c.fn.Code[instIdx].Aux = int32(target - instIdx)
}

func (c *fnState) here() int { return len(c.fn.Code) }

// allocTemp reserves one fresh register for a short-lived intermediate.
func (c *fnState) allocTemp() int32 {
	r := c.nextReg
	c.nextReg++
	if c.nextReg > c.maxReg {
		c.maxReg = c.nextReg
	}
	return r
}

// mark/release implement the statement-boundary temp reset the teacher's
// stack machine gets for free (its sp naturally rewinds between
// statements); a register machine must do this explicitly or register
// pressure grows unbounded across a long function.
func (c *fnState) mark() int32 { return c.nextReg }
func (c *fnState) release(saved int32) {
	if saved < c.nextReg {
		c.nextReg = saved
	}
}

func (c *fnState) pushScope() { c.scopes = append(c.scopes, map[string]int{}) }
func (c *fnState) popScope()  { c.scopes = c.scopes[:len(c.scopes)-1] }

// declareLocal assigns name a fresh register in the innermost scope. The
// register number is also the next sequential local index (params then
// lets/for-vars in textual order), which is exactly ResolveFunction's
// declaration order, so RegionPlan lookups by this number line up with the
// escape pass's.
func (c *fnState) declareLocal(name string, isConst bool) int32 {
	reg := int32(c.localCursor)
	c.localCursor++
	if reg >= c.nextReg {
		c.nextReg = reg + 1
	}
	if c.nextReg > c.maxReg {
		c.maxReg = c.nextReg
	}
	c.scopes[len(c.scopes)-1][name] = int(reg)
	c.constLocal[reg] = isConst
	if c.region.RegionOf(int(reg)) == analysis.RegionHeap {
		c.boxed[reg] = true
	}
	return reg
}

// resolveLocal searches this function's scope stack only (not enclosing
// functions — those go through captures).
func (c *fnState) resolveLocal(name string) (int32, bool) {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if r, ok := c.scopes[i][name]; ok {
			return int32(r), true
		}
	}
	return 0, false
}

// addConst interns v into this function's constant pool.
func (c *fnState) addConst(v value.Value) int32 {
	key := constKey(v)
	if idx, ok := c.constIdx[key]; ok {
		return int32(idx)
	}
	idx := len(c.fn.Consts)
	c.fn.Consts = append(c.fn.Consts, v)
	c.constIdx[key] = idx
	return int32(idx)
}

func (c *fnState) addConstStr(s string) int32 {
	return c.addConst(value.FromObject(&value.Str{S: s}))
}

func constKey(v value.Value) string {
	switch v.Kind {
	case value.KNil:
		return "n"
	case value.KBool:
		return fmt.Sprintf("b%d", v.Data)
	case value.KInt:
		return fmt.Sprintf("i%d", v.AsInt())
	case value.KFloat:
		return fmt.Sprintf("f%d", v.Data)
	case value.KObj:
		if s, ok := v.Obj.(*value.Str); ok {
			return "s" + s.S
		}
	}
	// Non-literal objects never flow through addConst in practice; fall
	// back to a pointer-identity key so they're simply never deduped.
	return fmt.Sprintf("p%p", v.Obj)
}

func compileErr(pos ast.Pos, format string, args ...any) error {
	return vmerr.NewCompileError(pos.Line, pos.Col, format, args...)
}
