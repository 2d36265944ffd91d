package interp

import (
	"testing"

	"github.com/nyxlang/nyx/internal/ast"
	"github.com/nyxlang/nyx/internal/compiler"
	"github.com/nyxlang/nyx/internal/environment"
)

func arithmeticProgram() *ast.Program {
	let := &ast.Let{
		Pat:   ast.Pattern{Kind: ast.PatBind, Name: "a"},
		Value: &ast.Literal{Kind: ast.LitInt, I: 2},
	}
	ret := &ast.Return{
		Value: &ast.Binary{
			Op:   ast.OpMul,
			Left: &ast.Variable{Name: "a"},
			Right: &ast.Binary{
				Op:    ast.OpAdd,
				Left:  &ast.Literal{Kind: ast.LitInt, I: 3},
				Right: &ast.Literal{Kind: ast.LitInt, I: 4},
			},
		},
	}
	return &ast.Program{Body: []ast.Stmt{let, ret}}
}

// TestDispatchEquivalence checks that a Function compiled with a usable
// packed encoding produces the same result whether it is executed via the
// packed loop or the sum-type loop, which is the whole reason both
// encodings are allowed to coexist.
func TestDispatchEquivalence(t *testing.T) {
	fn, err := compiler.Compile(arithmeticProgram())
	if err != nil {
		t.Fatal(err)
	}
	if fn.Code32 == nil {
		t.Fatal("expected this simple function to pack into code32")
	}

	packedVM := New(environment.New())
	packedResult, err := packedVM.Run(fn)
	if err != nil {
		t.Fatal(err)
	}

	sumTypeOnly := *fn
	sumTypeOnly.Code32 = nil
	sumVM := New(environment.New())
	sumResult, err := sumVM.Run(&sumTypeOnly)
	if err != nil {
		t.Fatal(err)
	}

	if !packedResult.Equals(sumResult) {
		t.Fatalf("packed=%v sum-type=%v, dispatch must agree", packedResult.Inspect(), sumResult.Inspect())
	}
	if packedResult.AsInt() != 14 {
		t.Fatalf("got %v, want 14", packedResult.Inspect())
	}
}
