// Package nyx is the embedding surface: compile, exec, and Value.call,
// plus a VM handle an embedder holds across multiple executions against
// the same VmContext. Grounded on the teacher's pkg/embed/vm.go ("VM
// wraps the underlying Funxy VM and provides a high-level embedding
// API"), narrowed to those three entry points: host-function binding via
// reflection (the teacher's Bind/hostCallHandler machinery) stays out of
// this core, so Nyx's surface stops at Compile/Exec/Call and leaves host
// bindings to whatever native functions the embedder registers directly
// against the VmContext.
package nyx

import (
	"io"

	"github.com/nyxlang/nyx/internal/ast"
	"github.com/nyxlang/nyx/internal/code"
	"github.com/nyxlang/nyx/internal/compiler"
	"github.com/nyxlang/nyx/internal/environment"
	"github.com/nyxlang/nyx/internal/interp"
	"github.com/nyxlang/nyx/internal/value"
)

// Value is the core's value type, re-exported so embedders never import
// internal/value directly.
type Value = value.Value

// Function is a compiled program, re-exported from internal/code.
type Function = code.Function

// VM holds one interpreter instance and its VmContext, the unit of state
// an embedder keeps alive across calls (teacher: pkg/embed.VM wrapping
// *vm.VM).
type VM struct {
	core *interp.VM
}

// New creates a VM with a fresh VmContext.
func New() *VM {
	return &VM{core: interp.New(environment.New())}
}

// Ctx exposes the underlying VmContext so an embedder can Define globals
// (host bindings, constants) before running a program.
func (v *VM) Ctx() *environment.VmContext { return v.core.Ctx }

// SetOutput redirects where `print` and similar natives write, defaulting
// to os.Stdout (teacher: VM.Out in internal/interp/vm.go).
func (v *VM) SetOutput(w io.Writer) {
	v.core.Out = w
}

// Compile lowers prog to a compiled Function.
func Compile(prog *ast.Program) (*Function, error) {
	return compiler.Compile(prog)
}

// Exec runs fn against v's VmContext with the given arguments. A
// top-level program compiled by Compile takes no parameters, so args is
// typically nil; ArityMismatch surfaces the usual way if it isn't.
func (v *VM) Exec(fn *Function, args []Value) (Value, error) {
	return v.core.Call(value.FromObject(&value.Closure{Name: fn.Name, Proto: fn}), args, nil)
}

// Call dispatches on callee's variant, invoking a closure or native
// function with already-evaluated arguments.
func (v *VM) Call(callee Value, args []Value, named []value.NamedArg) (Value, error) {
	return v.core.Call(callee, args, named)
}
