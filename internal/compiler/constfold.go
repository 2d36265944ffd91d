package compiler

import (
	"github.com/nyxlang/nyx/internal/ast"
	"github.com/nyxlang/nyx/internal/value"
)

// constFoldBinary folds a Binary of two literal operands at compile time
// (step 5 "Constant folding"), grounded on the teacher's
// internal/vm/compiler.go literal-pair folding for +, -, *, /. Errors
// (e.g. division by zero) are left for the interpreter to raise at
// runtime rather than failing the compile, matching the note
// that "a folding candidate that would error is left unfolded."
func constFoldBinary(b *ast.Binary) (value.Value, bool) {
	left, ok := b.Left.(*ast.Literal)
	if !ok {
		return value.Value{}, false
	}
	right, ok := b.Right.(*ast.Literal)
	if !ok {
		return value.Value{}, false
	}
	lv, rv := literalValue(left), literalValue(right)

	var v value.Value
	var err error
	switch b.Op {
	case ast.OpAdd:
		v, err = value.Add(lv, rv)
	case ast.OpSub:
		v, err = value.Sub(lv, rv)
	case ast.OpMul:
		v, err = value.Mul(lv, rv)
	case ast.OpDiv:
		v, err = value.Div(lv, rv)
	case ast.OpMod:
		v, err = value.Mod(lv, rv)
	case ast.OpEq:
		return value.Bool(lv.Equals(rv)), true
	case ast.OpNe:
		return value.Bool(!lv.Equals(rv)), true
	default:
		return value.Value{}, false
	}
	if err != nil {
		return value.Value{}, false
	}
	return v, true
}
