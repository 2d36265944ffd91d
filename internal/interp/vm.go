// Package interp executes a compiled *code.Function against an
// environment.VmContext. Grounded on the teacher's internal/vm/vm.go VM
// struct, re-keyed from a growable value stack plus CallFrame{base} pairs
// to a register-window-per-frame design: each call gets its own
// []value.Value sized to the callee's NRegs, recycled through a pool on
// return instead of being carved out of one shared stack.
package interp

import (
	"io"
	"os"

	"github.com/nyxlang/nyx/internal/code"
	"github.com/nyxlang/nyx/internal/environment"
	"github.com/nyxlang/nyx/internal/value"
	"github.com/nyxlang/nyx/internal/vmerr"
)

// frame is one activation record. Thunk frames (named-parameter default
// evaluation) share their regs slice with the call they're seeding rather
// than owning one, so ownsWindow is false for them and the pool never
// sees that slice twice.
type frame struct {
	closure    *value.Closure
	fn         *code.Function
	regs       []value.Value
	pc         int
	retReg     int32 // register in the frame below to receive our return value; -1 for the outermost frame
	ownsWindow bool
	// writeOnly marks a named-parameter default-thunk frame: on return the
	// resumed frame below only receives the written register, and is not
	// the frame that originated the call (it hasn't started executing
	// yet), so its pc must not be advanced.
	writeOnly bool
}

// VM is one interpreter instance. It is not safe for concurrent use by
// multiple goroutines against the same frame stack; separate goroutines
// should use separate VMs sharing a VmContext for globals, matching how
// the teacher's ForkVM splits a child VM off an existing one.
type VM struct {
	Ctx *environment.VmContext
	Out io.Writer

	frames []*frame
	pool   map[int][][]value.Value

	access    map[siteKey]*polyCache
	index     map[siteKey]*polyCache
	callSites map[siteKey]*polyCache
	globals   map[siteKey]*globalSlot
	forRanges map[siteKey]*forRangeSlot

	// steps counts executed instructions; reserved for the same kind of
	// periodic cancellation check the teacher's execute() performs every
	// 1000 ops, once a context.Context is threaded through for embedders
	// that need to cancel a long-running call.
	steps uint64
}

// siteKey identifies one program-counter location within one function,
// the unit every inline cache is scoped to.
type siteKey struct {
	fn *code.Function
	pc int
}

// New builds a VM sharing ctx for global/module state. A fresh VmContext
// is created if ctx is nil.
func New(ctx *environment.VmContext) *VM {
	if ctx == nil {
		ctx = environment.New()
	}
	vm := &VM{
		Ctx:       ctx,
		Out:       os.Stdout,
		pool:      make(map[int][][]value.Value),
		access:    make(map[siteKey]*polyCache),
		index:     make(map[siteKey]*polyCache),
		callSites: make(map[siteKey]*polyCache),
		globals:   make(map[siteKey]*globalSlot),
		forRanges: make(map[siteKey]*forRangeSlot),
	}
	RegisterBuiltins(vm)
	return vm
}

// Run executes fn's top level to completion with no arguments, the way
// the teacher treats a script's top level as an implicit zero-arg
// function.
func (vm *VM) Run(fn *code.Function) (value.Value, error) {
	cl := &value.Closure{Name: fn.Name, Proto: fn}
	return vm.Call(value.FromObject(cl), nil, nil)
}

// Call invokes a closure or native function value with positional args
// and named (key, value) pairs already evaluated by the caller. It is the
// entry point pkg/nyx uses to call back into Nyx from Go.
func (vm *VM) Call(callee value.Value, args []value.Value, named []value.NamedArg) (value.Value, error) {
	return vm.invoke(callee, args, named, "<embed>", 0)
}

// acquireWindow returns a zeroed register window of exactly n slots,
// reusing a pooled one when available.
func (vm *VM) acquireWindow(n int) []value.Value {
	bucket := vm.pool[n]
	if l := len(bucket); l > 0 {
		w := bucket[l-1]
		vm.pool[n] = bucket[:l-1]
		for i := range w {
			w[i] = value.Value{}
		}
		return w
	}
	return make([]value.Value, n)
}

func (vm *VM) releaseWindow(w []value.Value) {
	n := len(w)
	vm.pool[n] = append(vm.pool[n], w)
}

func (vm *VM) pushFrame(fr *frame) { vm.frames = append(vm.frames, fr) }

func (vm *VM) topFrame() *frame { return vm.frames[len(vm.frames)-1] }

func (vm *VM) popFrame() *frame {
	n := len(vm.frames)
	fr := vm.frames[n-1]
	vm.frames = vm.frames[:n-1]
	return fr
}

// raise attaches the current frame's site to err if it is a *vmerr.Error.
func (vm *VM) raise(fr *frame, err error) error {
	if ve, ok := err.(*vmerr.Error); ok {
		return ve.WithSite(fr.fn.Name, fr.pc)
	}
	return err
}

func callableTypeName(v value.Value) string {
	if v.Kind != value.KObj || v.Obj == nil {
		return v.TypeName()
	}
	return v.Obj.TypeName()
}

// invoke is the single call path for closures and natives alike, callable
// both from OpCall/OpCallNamed and from Go-level embedders. callerName/
// callerPC are used only for error-site reporting when there is no Nyx
// frame yet (the very first call from an embedder).
func (vm *VM) invoke(callee value.Value, args []value.Value, named []value.NamedArg, callerName string, callerPC int) (value.Value, error) {
	if callee.Kind != value.KObj || callee.Obj == nil {
		return value.Value{}, vmerr.New(vmerr.CallOnNonCallable, "cannot call a value of type %s", callee.TypeName()).WithSite(callerName, callerPC)
	}
	switch fnObj := callee.Obj.(type) {
	case *value.NativeFn:
		if len(named) != 0 {
			return value.Value{}, vmerr.New(vmerr.UnknownNamedArg, "%s does not accept named arguments", fnObj.Name).WithSite(callerName, callerPC)
		}
		res, err := fnObj.Fn(args, vm)
		return res, wrapNativeErr(err)
	case *value.NativeFnNamed:
		res, err := fnObj.Fn(args, named, vm)
		return res, wrapNativeErr(err)
	case *value.Closure:
		fn, ok := fnObj.Proto.(*code.Function)
		if !ok {
			return value.Value{}, vmerr.New(vmerr.CallOnNonCallable, "closure has no compiled body").WithSite(callerName, callerPC)
		}
		return vm.invokeClosure(fnObj, fn, args, named)
	default:
		return value.Value{}, vmerr.New(vmerr.CallOnNonCallable, "cannot call a value of type %s", callableTypeName(callee)).WithSite(callerName, callerPC)
	}
}

func wrapNativeErr(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*vmerr.Error); ok {
		return err
	}
	return vmerr.Wrap(err)
}

// invokeClosure runs fn to completion starting a fresh floor on the frame
// stack (used for embedder re-entry and for natives that call back into
// Nyx, e.g. list.map). Internal Nyx-to-Nyx calls instead go through
// setupClosureCall + the already-running execLoop, so bytecode-level
// recursion never grows the Go call stack.
func (vm *VM) invokeClosure(cl *value.Closure, fn *code.Function, args []value.Value, named []value.NamedArg) (value.Value, error) {
	base := len(vm.frames)
	if err := vm.setupClosureCall(cl, fn, args, named, -1); err != nil {
		return value.Value{}, err
	}
	return vm.execLoop(base)
}

type stepKind int

const (
	stepContinue stepKind = iota // plain instruction; pc++
	stepJumped                   // pc already updated by the handler
	stepReturned                 // current frame is done; unwind it
	stepCalled                   // a new frame was pushed; run it next
)

// execLoop runs frames until the stack unwinds back to floor, returning
// the value the frame at index floor produced via OpReturn.
func (vm *VM) execLoop(floor int) (value.Value, error) {
	for {
		fr := vm.topFrame()
		inst, ok := currentInst(fr)
		if !ok {
			return value.Value{}, vm.raise(fr, vmerr.New(vmerr.InvalidOperation, "program counter out of range"))
		}
		kind, retVal, err := vm.step(fr, &inst)
		if err != nil {
			return value.Value{}, vm.raise(fr, err)
		}
		switch kind {
		case stepContinue:
			fr.pc++
		case stepJumped, stepCalled:
			// nothing to do: the handler already left pc/frames correct
		case stepReturned:
			done := vm.popFrame()
			if done.ownsWindow {
				vm.releaseWindow(done.regs)
			}
			if len(vm.frames) <= floor {
				return retVal, nil
			}
			caller := vm.topFrame()
			if done.retReg >= 0 {
				caller.regs[done.retReg] = retVal
			}
			if !done.writeOnly {
				caller.pc++
			}
		}
		vm.steps++
	}
}
