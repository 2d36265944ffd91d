package interp

import (
	"github.com/nyxlang/nyx/internal/code"
	"github.com/nyxlang/nyx/internal/value"
	"github.com/nyxlang/nyx/internal/vmerr"
)

func displayName(fn *code.Function) string {
	if fn.Name == "" {
		return "<anonymous>"
	}
	return fn.Name
}

// setupClosureCall pushes whatever frames are needed to invoke cl/fn with
// already-evaluated args/named, used by the Go-embedding call path
// (VM.Call) where there is no call-site instruction to cache a
// NamedCallPlan against. Internal Nyx-to-Nyx calls use pushPositional/
// pushNamed directly from the OpCall/OpCallNamed handlers instead, so
// their plans are cached per call site.
func (vm *VM) setupClosureCall(cl *value.Closure, fn *code.Function, args []value.Value, named []value.NamedArg, retReg int32) error {
	if len(args) != len(fn.ParamRegs) {
		return arityError(fn, len(args))
	}
	if len(named) == 0 {
		return vm.pushPositional(cl, fn, args, retReg)
	}

	byName := make(map[string]int, len(fn.NamedParamLayout))
	for i, decl := range fn.NamedParamLayout {
		byName[decl.Name] = i
	}
	provided := make([]bool, len(fn.NamedParamLayout))
	seen := make(map[string]bool, len(named))
	for _, na := range named {
		if seen[na.Name] {
			return vmerr.New(vmerr.DuplicateNamedArg, "duplicate named argument: %s", na.Name)
		}
		seen[na.Name] = true
		idx, ok := byName[na.Name]
		if !ok {
			return vmerr.New(vmerr.UnknownNamedArg, "unknown named argument: %s", na.Name)
		}
		provided[idx] = true
	}
	var needDefault, needNil []int
	winSize := int(fn.NRegs)
	for i, decl := range fn.NamedParamLayout {
		if provided[i] {
			continue
		}
		switch {
		case decl.HasDefault:
			needDefault = append(needDefault, i)
			if t := fn.NamedParamDefaults[i]; t != nil && int(t.NRegs) > winSize {
				winSize = int(t.NRegs)
			}
		case decl.Optional:
			needNil = append(needNil, i)
		default:
			return vmerr.New(vmerr.MissingRequiredArg, "missing required named argument: %s", decl.Name)
		}
	}

	win := vm.acquireWindow(winSize)
	for i, r := range fn.ParamRegs {
		win[r] = args[i]
	}
	for _, na := range named {
		win[fn.NamedParamRegs[byName[na.Name]]] = na.Value
	}
	for _, i := range needNil {
		win[fn.NamedParamRegs[i]] = value.Nil()
	}
	vm.pushFrame(&frame{closure: cl, fn: fn, regs: win, pc: 0, retReg: retReg, ownsWindow: true})
	for k := len(needDefault) - 1; k >= 0; k-- {
		i := needDefault[k]
		thunk := fn.NamedParamDefaults[i]
		vm.pushFrame(&frame{closure: cl, fn: thunk, regs: win, pc: 0, retReg: int32(fn.NamedParamRegs[i]), writeOnly: true})
	}
	return nil
}

func arityError(fn *code.Function, got int) error {
	return vmerr.New(vmerr.ArityMismatch, "%s expects %d argument(s), got %d", displayName(fn), len(fn.ParamRegs), got)
}

// pushPositional pushes one callee frame for a purely positional call.
func (vm *VM) pushPositional(cl *value.Closure, fn *code.Function, args []value.Value, retReg int32) error {
	if fn.Variadic {
		if len(args) < len(fn.ParamRegs) {
			return arityError(fn, len(args))
		}
	} else if len(args) != len(fn.ParamRegs) {
		return arityError(fn, len(args))
	}
	win := vm.acquireWindow(int(fn.NRegs))
	for i, r := range fn.ParamRegs {
		win[r] = args[i]
	}
	vm.pushFrame(&frame{closure: cl, fn: fn, regs: win, pc: 0, retReg: retReg, ownsWindow: true})
	return nil
}

// pushNamed pushes the frames needed for a named call issued from inst at
// fr.pc: the real callee frame (bottom, pc 0) plus any default-thunk
// frames stacked on top so they run first, each writing its result into
// the shared window before the callee body begins.
func (vm *VM) pushNamed(fr *frame, inst *code.Inst, cl *value.Closure, fn *code.Function, posArgs []value.Value, retReg int32) error {
	if len(posArgs) != len(fn.ParamRegs) {
		return arityError(fn, len(posArgs))
	}
	cache := vm.callCache(fr, fr.pc)
	identity := identityOf(value.FromObject(cl))
	var plan *namedPlan
	if p, ok := cache.lookup(identity, 1); ok {
		plan = p.(*namedPlan)
	} else {
		built, err := buildNamedPlan(fr.fn, inst, fn)
		if err != nil {
			return err
		}
		plan = built
		cache.fill(identity, 1, plan)
	}

	winSize := int(fn.NRegs)
	for _, i := range plan.needDefault {
		if t := fn.NamedParamDefaults[i]; t != nil && int(t.NRegs) > winSize {
			winSize = int(t.NRegs)
		}
	}
	win := vm.acquireWindow(winSize)
	for i, r := range fn.ParamRegs {
		win[r] = posArgs[i]
	}
	for i, reg := range fn.NamedParamRegs {
		if src := plan.assign[i]; src != -1 {
			win[reg] = fr.regs[src]
		}
	}
	for _, i := range plan.needNil {
		win[fn.NamedParamRegs[i]] = value.Nil()
	}

	vm.pushFrame(&frame{closure: cl, fn: fn, regs: win, pc: 0, retReg: retReg, ownsWindow: true})
	for k := len(plan.needDefault) - 1; k >= 0; k-- {
		i := plan.needDefault[k]
		thunk := fn.NamedParamDefaults[i]
		vm.pushFrame(&frame{closure: cl, fn: thunk, regs: win, pc: 0, retReg: int32(fn.NamedParamRegs[i]), writeOnly: true})
	}
	return nil
}

// dispatchCall is the OpCall/OpCallNamed shared entry point: natives
// execute immediately and report stepContinue; closures push a frame and
// report stepCalled.
func (vm *VM) dispatchCall(fr *frame, inst *code.Inst, calleeVal value.Value, args []value.Value, named []value.NamedArg, dst int32) (stepKind, error) {
	if calleeVal.Kind != value.KObj || calleeVal.Obj == nil {
		return stepContinue, vmerr.New(vmerr.CallOnNonCallable, "cannot call a value of type %s", calleeVal.TypeName())
	}
	switch fnObj := calleeVal.Obj.(type) {
	case *value.NativeFn:
		if len(named) != 0 {
			return stepContinue, vmerr.New(vmerr.UnknownNamedArg, "%s does not accept named arguments", fnObj.Name)
		}
		res, err := fnObj.Fn(args, vm)
		if err != nil {
			return stepContinue, wrapNativeErr(err)
		}
		fr.regs[dst] = res
		return stepContinue, nil
	case *value.NativeFnNamed:
		res, err := fnObj.Fn(args, named, vm)
		if err != nil {
			return stepContinue, wrapNativeErr(err)
		}
		fr.regs[dst] = res
		return stepContinue, nil
	case *value.Closure:
		fn, ok := fnObj.Proto.(*code.Function)
		if !ok {
			return stepContinue, vmerr.New(vmerr.CallOnNonCallable, "closure has no compiled body")
		}
		var err error
		if len(inst.Named) == 0 {
			err = vm.pushPositional(fnObj, fn, args, dst)
		} else {
			err = vm.pushNamed(fr, inst, fnObj, fn, args, dst)
		}
		if err != nil {
			return stepContinue, err
		}
		return stepCalled, nil
	default:
		return stepContinue, vmerr.New(vmerr.CallOnNonCallable, "cannot call a value of type %s", callableTypeName(calleeVal))
	}
}
