package compiler

import (
	"fmt"

	"github.com/nyxlang/nyx/internal/ast"
	"github.com/nyxlang/nyx/internal/code"
	"github.com/nyxlang/nyx/internal/value"
)

// bindPattern compiles an irrefutable-context binding (plain `let`):
// structural mismatches raise PatternMatchFailure at runtime rather than
// producing a boolean ("Pattern compilation").
func bindPattern(c *fnState, pat ast.Pattern, srcOp code.Operand, isConst bool) error {
	return compilePattern(c, pat, srcOp, isConst, nil)
}

// bindPatternConditionally compiles a refutable-context binding (if-let/
// while-let/match arm): every structural test ANDs into okReg instead of
// raising, and sub-bindings are emitted unconditionally right alongside
// their test so a later read only observes them once okReg gates entry to
// the branch that uses them.
func bindPatternConditionally(c *fnState, pat ast.Pattern, srcOp code.Operand, okReg int32) error {
	cond := okReg
	if err := compilePattern(c, pat, srcOp, false, &cond); err != nil {
		return err
	}
	if cond != okReg {
		c.emit(code.Inst{Op: code.OpMove, Dst: okReg, A: code.Reg(int(cond))})
	}
	return nil
}

// compilePattern is shared by both binding modes. cond == nil means
// "assert, don't branch" (let); cond != nil points at the running match
// register for a refutable pattern.
func compilePattern(c *fnState, pat ast.Pattern, srcOp code.Operand, isConst bool, cond *int32) error {
	switch pat.Kind {
	case ast.PatWildcard:
		return nil

	case ast.PatBind:
		reg := c.declareLocal(pat.Name, isConst)
		c.bindLocal(reg, srcOp)
		return nil

	case ast.PatLiteral:
		litOp := code.Const(int(c.addConst(literalValue(pat.Lit))))
		testReg := c.allocTemp()
		c.emit(code.Inst{Op: code.OpEqImm, Dst: testReg, A: srcOp, B: litOp})
		return applyTest(c, testReg, cond)

	case ast.PatList, ast.PatTuple:
		srcReg := toReg(c, srcOp)
		for i, sub := range pat.Elems {
			elemReg := c.allocTemp()
			idxConst := code.Const(int(c.addConst(value.Int(int64(i)))))
			c.emit(code.Inst{Op: code.OpIndexGet, Dst: elemReg, A: code.Reg(int(srcReg)), B: idxConst})
			if err := compilePattern(c, sub, code.Reg(int(elemReg)), isConst, cond); err != nil {
				return err
			}
		}
		if pat.Kind == ast.PatList && pat.HasRest && pat.RestName != "" {
			restReg := c.allocTemp()
			c.emit(code.Inst{Op: code.OpListRest, Dst: restReg, A: code.Reg(int(srcReg)), Aux: int32(len(pat.Elems))})
			reg := c.declareLocal(pat.RestName, isConst)
			c.bindLocal(reg, code.Reg(int(restReg)))
		}
		return nil

	case ast.PatMap:
		srcReg := toReg(c, srcOp)
		for i, key := range pat.Keys {
			keyIdx := c.addConstStr(key)
			fieldReg := c.allocTemp()
			c.emit(code.Inst{Op: code.OpFieldGet, Dst: fieldReg, A: code.Reg(int(srcReg)), Aux: keyIdx})
			if err := compilePattern(c, pat.Vals[i], code.Reg(int(fieldReg)), isConst, cond); err != nil {
				return err
			}
		}
		return nil

	case ast.PatTag:
		srcReg := toReg(c, srcOp)
		tagReg := c.allocTemp()
		c.emit(code.Inst{Op: code.OpFieldGet, Dst: tagReg, A: code.Reg(int(srcReg)), Aux: c.addConstStr("__tag__")})
		testReg := c.allocTemp()
		tagConst := code.Const(int(c.addConstStr(pat.Tag)))
		c.emit(code.Inst{Op: code.OpEqImm, Dst: testReg, A: code.Reg(int(tagReg)), B: tagConst})
		if err := applyTest(c, testReg, cond); err != nil {
			return err
		}
		for i, sub := range pat.Elems {
			fieldReg := c.allocTemp()
			c.emit(code.Inst{Op: code.OpFieldGet, Dst: fieldReg, A: code.Reg(int(srcReg)), Aux: c.addConstStr(fmt.Sprintf("_%d", i))})
			if err := compilePattern(c, sub, code.Reg(int(fieldReg)), isConst, cond); err != nil {
				return err
			}
		}
		return nil

	case ast.PatOr:
		if cond == nil {
			return fmt.Errorf("or-pattern is only valid in a refutable context (if-let/while-let/match)")
		}
 // Each alternative's bindings land in the same registers (the
 // caller's arm body must only reference names common to every
 // alternative); we simply run each alternative's test/bind in
 // turn and OR their outcomes together.
		combined := int32(-1)
		always := false
		for _, alt := range pat.Elems {
			altCond := int32(-1)
			if err := compilePattern(c, alt, srcOp, isConst, &altCond); err != nil {
				return err
			}
			if altCond == -1 {
				always = true // alt was irrefutable (e.g. wildcard): always matches
				continue
			}
			if combined == -1 {
				combined = altCond
			} else {
				// a || b computed as !(!a && !b).
				na, nb, both, next := c.allocTemp(), c.allocTemp(), c.allocTemp(), c.allocTemp()
				c.emit(code.Inst{Op: code.OpNot, Dst: na, A: code.Reg(int(combined))})
				c.emit(code.Inst{Op: code.OpNot, Dst: nb, A: code.Reg(int(altCond))})
				c.emit(code.Inst{Op: code.OpBoolAnd, Dst: both, A: code.Reg(int(na)), B: code.Reg(int(nb))})
				c.emit(code.Inst{Op: code.OpNot, Dst: next, A: code.Reg(int(both))})
				combined = next
			}
		}
		if combined != -1 && !always {
			return applyTest(c, combined, cond)
		}
		return nil

	case ast.PatRange:
		srcReg := toReg(c, srcOp)
		loOp, err := compileExpr(c, pat.Low)
		if err != nil {
			return err
		}
		hiOp, err := compileExpr(c, pat.High)
		if err != nil {
			return err
		}
		loTest := c.allocTemp()
		loOpCode := code.OpGeImm
		if !pat.LowInc {
			loOpCode = code.OpGtImm
		}
		c.emit(code.Inst{Op: loOpCode, Dst: loTest, A: code.Reg(int(srcReg)), B: loOp})
		hiTest := c.allocTemp()
		hiOpCode := code.OpLeImm
		if !pat.HighInc {
			hiOpCode = code.OpLtImm
		}
		c.emit(code.Inst{Op: hiOpCode, Dst: hiTest, A: code.Reg(int(srcReg)), B: hiOp})
		both := c.allocTemp()
		c.emit(code.Inst{Op: code.OpBoolAnd, Dst: both, A: code.Reg(int(loTest)), B: code.Reg(int(hiTest))})
		return applyTest(c, both, cond)

	default:
		return fmt.Errorf("unsupported pattern kind %d", pat.Kind)
	}
}

func applyTest(c *fnState, testReg int32, cond *int32) error {
	if cond == nil {
		c.emit(code.Inst{Op: code.OpAssertMatch, Dst: -1, A: code.Reg(int(testReg))})
		return nil
	}
	if *cond == -1 {
		*cond = testReg
		return nil
	}
	next := c.allocTemp()
	c.emit(code.Inst{Op: code.OpBoolAnd, Dst: next, A: code.Reg(int(*cond)), B: code.Reg(int(testReg))})
	*cond = next
	return nil
}

// compileMatch lowers a match expression: each arm's pattern test (and
// optional guard) chains into the next arm on failure, landing on a
// shared result register once an arm succeeds.
func compileMatch(c *fnState, m *ast.Match) (code.Operand, error) {
	subOp, err := compileExpr(c, m.Subject)
	if err != nil {
		return 0, err
	}
	subReg := toReg(c, subOp)
	dst := c.allocTemp()
	var endJumps []int
	var nextArmJump = -1

	for _, arm := range m.Arms {
		if nextArmJump != -1 {
			c.patchJump(nextArmJump, c.here())
			nextArmJump = -1
		}
		c.pushScope()
		okReg := c.allocTemp()
		c.emit(code.Inst{Op: code.OpLoadTrue, Dst: okReg})
		if err := bindPatternConditionally(c, arm.Pattern, code.Reg(int(subReg)), okReg); err != nil {
			c.popScope()
			return 0, err
		}
		condReg := okReg
		if arm.Guard != nil {
			guardOp, err := compileExpr(c, arm.Guard)
			if err != nil {
				c.popScope()
				return 0, err
			}
			combined := c.allocTemp()
			c.emit(code.Inst{Op: code.OpBoolAnd, Dst: combined, A: code.Reg(int(condReg)), B: toRegOperand(c, guardOp)})
			condReg = combined
		}
		nextArmJump = c.emit(code.Inst{Op: code.OpJumpIfFalse, A: code.Reg(int(condReg))})
		bodyOp, err := compileExpr(c, arm.Body)
		if err != nil {
			c.popScope()
			return 0, err
		}
		c.emit(code.Inst{Op: code.OpMove, Dst: dst, A: bodyOp})
		c.popScope()
		endJumps = append(endJumps, c.emit(code.Inst{Op: code.OpJump}))
	}
	if nextArmJump != -1 {
		c.patchJump(nextArmJump, c.here())
	}
	c.emit(code.Inst{Op: code.OpAssertMatch, Dst: -1, A: code.Reg(int(c.constFalseReg()))})
	end := c.here()
	for _, j := range endJumps {
		c.patchJump(j, end)
	}
	return code.Reg(int(dst)), nil
}

func toRegOperand(c *fnState, op code.Operand) code.Operand {
	return code.Reg(int(toReg(c, op)))
}

// constFalseReg materializes a literal `false` into a register for the
// match-exhaustion assertion: falling off every arm without a wildcard
// is a runtime PatternMatchFailure, not a panic.
func (c *fnState) constFalseReg() int32 {
	r := c.allocTemp()
	c.emit(code.Inst{Op: code.OpLoadFalse, Dst: r})
	return r
}
