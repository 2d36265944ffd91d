package nyx

import (
	"os"
	"strings"
	"testing"

	"golang.org/x/tools/txtar"

	"github.com/nyxlang/nyx/internal/ast"
)

// golden loads testdata/scenarios.txtar once and exposes each section's
// body (trimmed of its trailing newline) by name, giving the end-to-end
// scenarios below a fixture file instead of inline expected-string
// literals.
func golden(t *testing.T) map[string]string {
	t.Helper()
	raw, err := os.ReadFile("../../testdata/scenarios.txtar")
	if err != nil {
		t.Fatal(err)
	}
	arc := txtar.Parse(raw)
	out := make(map[string]string, len(arc.Files))
	for _, f := range arc.Files {
		out[f.Name] = strings.TrimRight(string(f.Data), "\n")
	}
	return out
}

func runProgram(t *testing.T, body []ast.Stmt) (Value, error) {
	t.Helper()
	fn, err := Compile(&ast.Program{Body: body})
	if err != nil {
		return Value{}, err
	}
	vm := New()
	return vm.Exec(fn, nil)
}

func lit(i int64) *ast.Literal { return &ast.Literal{Kind: ast.LitInt, I: i} }
func str(s string) *ast.Literal { return &ast.Literal{Kind: ast.LitString, S: s} }
func v(name string) *ast.Variable { return &ast.Variable{Name: name} }

func callOf(callee ast.Expr, args ...ast.Expr) *ast.Call {
	return &ast.Call{Callee: callee, Args: args}
}

// TestFibonacciNamedFunctionLoop is the named-function-plus-loop scenario:
// a function declared by a FunctionStmt, called through the global binding
// it installs, computes Fibonacci iteratively with a for-range loop.
func TestFibonacciNamedFunctionLoop(t *testing.T) {
	// fn f(n) {
	//   if n <= 1 { return n }
	//   let a = 0
	//   let b = 1
	//   for i in 2..=n { let t = a + b; a = b; b = t }
	//   return b
	// }
	// return f(30)
	fnDecl := &ast.FunctionStmt{
		Name: "f",
		Fn: &ast.Closure{
			Params: []ast.Param{{Name: "n"}},
			Body: []ast.Stmt{
				&ast.If{
					Cond: &ast.Binary{Op: ast.OpLe, Left: v("n"), Right: lit(1)},
					Then: []ast.Stmt{&ast.Return{Value: v("n")}},
				},
				&ast.Let{Pat: ast.Pattern{Kind: ast.PatBind, Name: "a"}, Value: lit(0)},
				&ast.Let{Pat: ast.Pattern{Kind: ast.PatBind, Name: "b"}, Value: lit(1)},
				&ast.For{
					VarName: "i",
					Iter:    &ast.Range{Start: lit(2), End: v("n"), Inclusive: true},
					Body: []ast.Stmt{
						&ast.Let{Pat: ast.Pattern{Kind: ast.PatBind, Name: "t"}, Value: &ast.Binary{Op: ast.OpAdd, Left: v("a"), Right: v("b")}},
						&ast.Assign{Target: v("a"), Value: v("b")},
						&ast.Assign{Target: v("b"), Value: v("t")},
					},
				},
				&ast.Return{Value: v("b")},
			},
		},
	}
	prog := []ast.Stmt{fnDecl, &ast.Return{Value: callOf(v("f"), lit(30))}}

	got, err := runProgram(t, prog)
	if err != nil {
		t.Fatal(err)
	}
	want := golden(t)["fibonacci.want"]
	if got.Inspect() != want {
		t.Fatalf("got %s, want %s", got.Inspect(), want)
	}
}

// TestNamedParamDefaults exercises named parameters with defaults: callers
// supplying neither named argument (twice) or both.
func TestNamedParamDefaults(t *testing.T) {
	// fn clamp(x, {min=0, max=100}) {
	//   if x < min { return min }
	//   if x > max { return max }
	//   return x
	// }
	// return [clamp(150), clamp(-5), clamp(5, min:2, max:4)]
	clampDecl := &ast.FunctionStmt{
		Name: "clamp",
		Fn: &ast.Closure{
			Params: []ast.Param{{Name: "x"}},
			NamedParams: []ast.NamedParam{
				{Name: "min", Default: lit(0)},
				{Name: "max", Default: lit(100)},
			},
			Body: []ast.Stmt{
				&ast.If{
					Cond: &ast.Binary{Op: ast.OpLt, Left: v("x"), Right: v("min")},
					Then: []ast.Stmt{&ast.Return{Value: v("min")}},
				},
				&ast.If{
					Cond: &ast.Binary{Op: ast.OpGt, Left: v("x"), Right: v("max")},
					Then: []ast.Stmt{&ast.Return{Value: v("max")}},
				},
				&ast.Return{Value: v("x")},
			},
		},
	}
	callWithNamed := callOf(v("clamp"), lit(5))
	callWithNamed.Named = []ast.NamedArg{{Name: "min", Value: lit(2)}, {Name: "max", Value: lit(4)}}

	prog := []ast.Stmt{
		clampDecl,
		&ast.Return{Value: &ast.ListLit{Elements: []ast.Expr{
			callOf(v("clamp"), lit(150)),
			callOf(v("clamp"), lit(-5)),
			callWithNamed,
		}}},
	}

	got, err := runProgram(t, prog)
	if err != nil {
		t.Fatal(err)
	}
	want := golden(t)["named_defaults.want"]
	if got.Inspect() != want {
		t.Fatalf("got %s, want %s", got.Inspect(), want)
	}
}

// TestListDestructureWithRest covers a let binding destructuring a list
// pattern with a rest capture.
func TestListDestructureWithRest(t *testing.T) {
	// let [a, ...rest] = [1, 2, 3, 4]
	// return [a, rest]
	prog := []ast.Stmt{
		&ast.Let{
			Pat: ast.Pattern{
				Kind:     ast.PatList,
				Elems:    []ast.Pattern{{Kind: ast.PatBind, Name: "a"}},
				HasRest:  true,
				RestName: "rest",
			},
			Value: &ast.ListLit{Elements: []ast.Expr{lit(1), lit(2), lit(3), lit(4)}},
		},
		&ast.Return{Value: &ast.ListLit{Elements: []ast.Expr{v("a"), v("rest")}}},
	}

	got, err := runProgram(t, prog)
	if err != nil {
		t.Fatal(err)
	}
	want := golden(t)["destructure_rest.want"]
	if got.Inspect() != want {
		t.Fatalf("got %s, want %s", got.Inspect(), want)
	}
}

// TestForRangeUnroll is the cache-transparency companion to
// TestDispatchEquivalence (internal/interp): a for-range loop's running
// total must match whether or not ForRangeIc ever gets to cache its bounds
// across iterations.
func TestForRangeUnroll(t *testing.T) {
	// let total = 0
	// for i in 1..=5 { total = total + i }
	// return total
	prog := []ast.Stmt{
		&ast.Let{Pat: ast.Pattern{Kind: ast.PatBind, Name: "total"}, Value: lit(0)},
		&ast.For{
			VarName: "i",
			Iter:    &ast.Range{Start: lit(1), End: lit(5), Inclusive: true},
			Body: []ast.Stmt{
				&ast.Assign{Target: v("total"), Value: &ast.Binary{Op: ast.OpAdd, Left: v("total"), Right: v("i")}},
			},
		},
		&ast.Return{Value: v("total")},
	}

	got, err := runProgram(t, prog)
	if err != nil {
		t.Fatal(err)
	}
	want := golden(t)["for_range_unroll.want"]
	if got.Inspect() != want {
		t.Fatalf("got %s, want %s", got.Inspect(), want)
	}
}

// TestMapCOWAliasingEndToEnd is the `let m={"a":1}; let n=m; n.b=2` scenario
// run through the full compiler+VM path, not just the internal/value guard
// directly (see internal/value/map_mutation_test.go for that).
func TestMapCOWAliasingEndToEnd(t *testing.T) {
	prog := []ast.Stmt{
		&ast.Let{Pat: ast.Pattern{Kind: ast.PatBind, Name: "m"}, Value: &ast.MapLit{Entries: []ast.MapEntry{{Key: str("a"), Value: lit(1)}}}},
		&ast.Let{Pat: ast.Pattern{Kind: ast.PatBind, Name: "n"}, Value: v("m")},
		&ast.Assign{Target: &ast.Access{Receiver: v("n"), Field: "b"}, Value: lit(2)},
		&ast.Return{Value: &ast.ListLit{Elements: []ast.Expr{
			callOf(v("len"), v("m")),
			callOf(v("len"), v("n")),
		}}},
	}

	got, err := runProgram(t, prog)
	if err != nil {
		t.Fatal(err)
	}
	if got.Inspect() != "[1, 2]" {
		t.Fatalf("got %s, want [1, 2] (n's mutation must not be visible through m)", got.Inspect())
	}
}

// TestConstAssignmentRejectedAtCompileTime is the const-immutability
// scenario: assigning to a `let const` binding is a compile error, not a
// runtime one, because the compiler already knows the binding is const.
func TestConstAssignmentRejectedAtCompileTime(t *testing.T) {
	prog := []ast.Stmt{
		&ast.Let{Pat: ast.Pattern{Kind: ast.PatBind, Name: "k"}, Const: true, Value: lit(10)},
		&ast.Assign{Target: v("k"), Value: lit(11)},
		&ast.Return{Value: v("k")},
	}
	if _, err := Compile(&ast.Program{Body: prog}); err == nil {
		t.Fatal("expected a compile error assigning to a const local, got nil")
	}
}
