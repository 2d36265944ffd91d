package interp

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nyxlang/nyx/internal/value"
	"github.com/nyxlang/nyx/internal/vmerr"
)

// RegisterBuiltins defines the global native functions and registers the
// built-in method table, the way the teacher's Evaluator wires its
// Builtins map and ExtensionMethods registry during construction
// (internal/evaluator/builtins.go's init-time RegisterExtensionMethods,
// internal/vm/vm_builtins.go's registerBuiltinTraitMethod calls). Natives
// read args directly rather than through a TypeInfo table: Nyx's type
// checking is optional (environment.TypeChecker), so a builtin enforces
// its own argument shapes and raises TypeMismatch/ArityMismatch itself.
func RegisterBuiltins(vm *VM) {
	registerGlobals(vm)
	registerListMethods()
	registerMapMethods()
	registerStrMethods()
}

func native(name string, fn func(args []value.Value, ctx any) (value.Value, error)) value.Value {
	return value.FromObject(&value.NativeFn{Name: name, Fn: fn})
}

func arity(name string, args []value.Value, n int) error {
	if len(args) != n {
		return vmerr.New(vmerr.ArityMismatch, "%s expects %d argument(s), got %d", name, n, len(args))
	}
	return nil
}

func vmOf(ctx any) (*VM, bool) {
	v, ok := ctx.(*VM)
	return v, ok
}

func registerGlobals(vm *VM) {
	vm.Ctx.Define("print", native("print", biPrint(vm)), true)
	vm.Ctx.Define("len", native("len", biLen), true)
	vm.Ctx.Define("type", native("type", biType), true)
	vm.Ctx.Define("str", native("str", biStr), true)
	vm.Ctx.Define("int", native("int", biInt), true)
	vm.Ctx.Define("float", native("float", biFloat), true)
	vm.Ctx.Define("bool", native("bool", biBool), true)

	vm.Ctx.Define("chan", native("chan", biChan), true)
	vm.Ctx.Define("send", native("send", biSend), true)
	vm.Ctx.Define("recv", native("recv", biRecv), true)
	vm.Ctx.Define("spawn", native("spawn", biSpawn), true)
	vm.Ctx.Define("sleep", native("sleep", biSleep), true)
	vm.Ctx.Define("__select__", native("__select__", biSelect), true)
}

func biPrint(vm *VM) func([]value.Value, any) (value.Value, error) {
	return func(args []value.Value, ctx any) (value.Value, error) {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = a.Inspect()
		}
		fmt.Fprintln(vm.Out, strings.Join(parts, " "))
		return value.Nil(), nil
	}
}

func biLen(args []value.Value, ctx any) (value.Value, error) {
	if err := arity("len", args, 1); err != nil {
		return value.Value{}, err
	}
	switch o := args[0].Obj.(type) {
	case *value.List:
		return value.Int(int64(o.Len())), nil
	case *value.Map:
		return value.Int(int64(o.Len())), nil
	case *value.Record:
		return value.Int(int64(o.Fields.Len())), nil
	case *value.Str:
		return value.Int(int64(len([]rune(o.S)))), nil
	default:
		return value.Value{}, vmerr.New(vmerr.TypeMismatch, "len() has no meaning for %s", args[0].TypeName())
	}
}

func biType(args []value.Value, ctx any) (value.Value, error) {
	if err := arity("type", args, 1); err != nil {
		return value.Value{}, err
	}
	return value.StrVal(args[0].TypeName()), nil
}

func biStr(args []value.Value, ctx any) (value.Value, error) {
	if err := arity("str", args, 1); err != nil {
		return value.Value{}, err
	}
	if s, ok := args[0].Obj.(*value.Str); ok {
		return value.FromObject(s), nil
	}
	return value.StrVal(args[0].Inspect()), nil
}

func biInt(args []value.Value, ctx any) (value.Value, error) {
	if err := arity("int", args, 1); err != nil {
		return value.Value{}, err
	}
	switch {
	case args[0].IsInt():
		return args[0], nil
	case args[0].IsFloat():
		return value.Int(int64(args[0].AsFloat())), nil
	case args[0].IsBool():
		if args[0].AsBool() {
			return value.Int(1), nil
		}
		return value.Int(0), nil
	}
	if s, ok := args[0].Obj.(*value.Str); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(s.S), 10, 64)
		if err != nil {
			return value.Value{}, vmerr.New(vmerr.InvalidOperation, "cannot convert %q to Int", s.S)
		}
		return value.Int(n), nil
	}
	return value.Value{}, vmerr.New(vmerr.TypeMismatch, "cannot convert %s to Int", args[0].TypeName())
}

func biFloat(args []value.Value, ctx any) (value.Value, error) {
	if err := arity("float", args, 1); err != nil {
		return value.Value{}, err
	}
	switch {
	case args[0].IsFloat():
		return args[0], nil
	case args[0].IsInt():
		return value.Float(float64(args[0].AsInt())), nil
	}
	if s, ok := args[0].Obj.(*value.Str); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s.S), 64)
		if err != nil {
			return value.Value{}, vmerr.New(vmerr.InvalidOperation, "cannot convert %q to Float", s.S)
		}
		return value.Float(f), nil
	}
	return value.Value{}, vmerr.New(vmerr.TypeMismatch, "cannot convert %s to Float", args[0].TypeName())
}

func biBool(args []value.Value, ctx any) (value.Value, error) {
	if err := arity("bool", args, 1); err != nil {
		return value.Value{}, err
	}
	return value.Bool(args[0].Truthy()), nil
}

// channelPayload backs a Channel handle with a real Go channel.
// send/recv/chan are ordinary native functions free to block the calling
// thread; the interpreter's dispatch loop never special-cases them.
type channelPayload struct {
	ch chan value.Value
}

func asChannel(v value.Value) (*channelPayload, bool) {
	h, ok := v.Obj.(*value.Handle)
	if !ok || h.Kind != value.HandleChannel {
		return nil, false
	}
	cp, ok := h.Payload.(*channelPayload)
	return cp, ok
}

func biChan(args []value.Value, ctx any) (value.Value, error) {
	capacity := 0
	if len(args) == 1 {
		if !args[0].IsInt() {
			return value.Value{}, vmerr.New(vmerr.TypeMismatch, "chan() capacity must be an Int, got %s", args[0].TypeName())
		}
		capacity = int(args[0].AsInt())
	} else if len(args) != 0 {
		return value.Value{}, vmerr.New(vmerr.ArityMismatch, "chan() expects 0 or 1 arguments, got %d", len(args))
	}
	cp := &channelPayload{ch: make(chan value.Value, capacity)}
	return value.FromObject(value.NewHandle(value.HandleChannel, cp)), nil
}

func biSend(args []value.Value, ctx any) (value.Value, error) {
	if err := arity("send", args, 2); err != nil {
		return value.Value{}, err
	}
	cp, ok := asChannel(args[0])
	if !ok {
		return value.Value{}, vmerr.New(vmerr.TypeMismatch, "send() requires a Channel, got %s", args[0].TypeName())
	}
	cp.ch <- args[1]
	return value.Nil(), nil
}

func biRecv(args []value.Value, ctx any) (value.Value, error) {
	if err := arity("recv", args, 1); err != nil {
		return value.Value{}, err
	}
	cp, ok := asChannel(args[0])
	if !ok {
		return value.Value{}, vmerr.New(vmerr.TypeMismatch, "recv() requires a Channel, got %s", args[0].TypeName())
	}
	v, open := <-cp.ch
	if !open {
		return value.Nil(), nil
	}
	return v, nil
}

// biSpawn runs a zero-arg closure on its own goroutine against a fresh VM
// sharing the caller's VmContext (see VM's doc comment on concurrent use:
// separate goroutines get separate VMs, globals stay shared). The
// returned Task handle's payload is a channel that receives exactly one
// Value: the closure's result, or Nil if the call returned an error.
func biSpawn(args []value.Value, ctx any) (value.Value, error) {
	if err := arity("spawn", args, 1); err != nil {
		return value.Value{}, err
	}
	vm, ok := vmOf(ctx)
	if !ok {
		return value.Value{}, vmerr.New(vmerr.NativeError, "spawn() is unavailable outside the interpreter")
	}
	fn := args[0]
	type result struct {
		val value.Value
		err error
	}
	resCh := make(chan result, 1)
	child := New(vm.Ctx)
	go func() {
		v, err := child.Call(fn, nil, nil)
		resCh <- result{v, err}
	}()
	out := make(chan value.Value, 1)
	go func() {
		r := <-resCh
		if r.err != nil {
			out <- value.Nil()
			return
		}
		out <- r.val
	}()
	return value.FromObject(value.NewHandle(value.HandleTask, &channelPayload{ch: out})), nil
}

func biSleep(args []value.Value, ctx any) (value.Value, error) {
	if err := arity("sleep", args, 1); err != nil {
		return value.Value{}, err
	}
	if !args[0].IsNumeric() {
		return value.Value{}, vmerr.New(vmerr.TypeMismatch, "sleep() requires a number of milliseconds, got %s", args[0].TypeName())
	}
	time.Sleep(time.Duration(args[0].AsFloat64() * float64(time.Millisecond)))
	return value.Nil(), nil
}

// biSelect backs the `select` expression (compileSelect in
// internal/compiler/expressions.go lowers it to a call of this native).
// Arguments come in (channel, thunk) pairs; the first channel ready to
// receive wins, one value is taken from it, and its thunk is invoked with
// no arguments, matching the compiler's parameterless synthesized closure.
// The received value is not passed to the thunk. Fairness among simultaneously-ready channels is
// whatever reflect.Select gives us.
func biSelect(args []value.Value, ctx any) (value.Value, error) {
	if len(args) == 0 || len(args)%2 != 0 {
		return value.Value{}, vmerr.New(vmerr.ArityMismatch, "select requires (channel, thunk) pairs")
	}
	vm, ok := vmOf(ctx)
	if !ok {
		return value.Value{}, vmerr.New(vmerr.NativeError, "select is unavailable outside the interpreter")
	}
	n := len(args) / 2
	cases := make([]reflect.SelectCase, n)
	thunks := make([]value.Value, n)
	for i := 0; i < n; i++ {
		cp, ok := asChannel(args[2*i])
		if !ok {
			return value.Value{}, vmerr.New(vmerr.TypeMismatch, "select case %d requires a Channel, got %s", i, args[2*i].TypeName())
		}
		cases[i] = reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(cp.ch)}
		thunks[i] = args[2*i+1]
	}
	chosen, _, _ := reflect.Select(cases)
	return vm.Call(thunks[chosen], nil, nil)
}

func arityMethod(typeName, name string, args []value.Value, n int) error {
	if len(args) != n {
		return vmerr.New(vmerr.ArityMismatch, "%s.%s expects %d argument(s), got %d", typeName, name, n, len(args))
	}
	return nil
}

func registerListMethods() {
	reg := value.DefaultRegistry
	reg.Register("List", "len", func(recv value.Value, args []value.Value, ctx any) (value.Value, error) {
		l := recv.Obj.(*value.List)
		return value.Int(int64(l.Len())), nil
	})
	reg.Register("List", "push", func(recv value.Value, args []value.Value, ctx any) (value.Value, error) {
		if err := arityMethod("List", "push", args, 1); err != nil {
			return value.Value{}, err
		}
		l := recv.Obj.(*value.List)
		lm := value.NewListMutation(l)
		lm.Push(args[0])
		return value.FromObject(lm.Finish()), nil
	})
	reg.Register("List", "pop", func(recv value.Value, args []value.Value, ctx any) (value.Value, error) {
		if err := arityMethod("List", "pop", args, 0); err != nil {
			return value.Value{}, err
		}
		l := recv.Obj.(*value.List)
		if l.Len() == 0 {
			return value.Nil(), nil
		}
		lm := value.NewListMutation(l)
		lm.Remove(l.Len() - 1)
		return value.FromObject(lm.Finish()), nil
	})
	reg.Register("List", "contains", func(recv value.Value, args []value.Value, ctx any) (value.Value, error) {
		if err := arityMethod("List", "contains", args, 1); err != nil {
			return value.Value{}, err
		}
		l := recv.Obj.(*value.List)
		for _, v := range l.ToSlice() {
			if v.Equals(args[0]) {
				return value.Bool(true), nil
			}
		}
		return value.Bool(false), nil
	})
	reg.Register("List", "reverse", func(recv value.Value, args []value.Value, ctx any) (value.Value, error) {
		if err := arityMethod("List", "reverse", args, 0); err != nil {
			return value.Value{}, err
		}
		l := recv.Obj.(*value.List)
		src := l.ToSlice()
		out := make([]value.Value, len(src))
		for i, v := range src {
			out[len(src)-1-i] = v
		}
		return value.FromObject(value.NewList(out)), nil
	})
	reg.Register("List", "join", func(recv value.Value, args []value.Value, ctx any) (value.Value, error) {
		if err := arityMethod("List", "join", args, 1); err != nil {
			return value.Value{}, err
		}
		sepVal, ok := args[0].Obj.(*value.Str)
		if !ok {
			return value.Value{}, vmerr.New(vmerr.TypeMismatch, "List.join separator must be a String, got %s", args[0].TypeName())
		}
		l := recv.Obj.(*value.List)
		parts := make([]string, l.Len())
		for i, v := range l.ToSlice() {
			parts[i] = v.Inspect()
		}
		return value.StrVal(strings.Join(parts, sepVal.S)), nil
	})
	reg.Register("List", "map", func(recv value.Value, args []value.Value, ctx any) (value.Value, error) {
		if err := arityMethod("List", "map", args, 1); err != nil {
			return value.Value{}, err
		}
		vm, ok := vmOf(ctx)
		if !ok {
			return value.Value{}, vmerr.New(vmerr.NativeError, "List.map is unavailable outside the interpreter")
		}
		l := recv.Obj.(*value.List)
		src := l.ToSlice()
		out := make([]value.Value, len(src))
		for i, v := range src {
			r, err := vm.Call(args[0], []value.Value{v}, nil)
			if err != nil {
				return value.Value{}, err
			}
			out[i] = r
		}
		return value.FromObject(value.NewList(out)), nil
	})
	reg.Register("List", "filter", func(recv value.Value, args []value.Value, ctx any) (value.Value, error) {
		if err := arityMethod("List", "filter", args, 1); err != nil {
			return value.Value{}, err
		}
		vm, ok := vmOf(ctx)
		if !ok {
			return value.Value{}, vmerr.New(vmerr.NativeError, "List.filter is unavailable outside the interpreter")
		}
		l := recv.Obj.(*value.List)
		var out []value.Value
		for _, v := range l.ToSlice() {
			r, err := vm.Call(args[0], []value.Value{v}, nil)
			if err != nil {
				return value.Value{}, err
			}
			if r.Truthy() {
				out = append(out, v)
			}
		}
		return value.FromObject(value.NewList(out)), nil
	})
	reg.Register("List", "reduce", func(recv value.Value, args []value.Value, ctx any) (value.Value, error) {
		if err := arityMethod("List", "reduce", args, 2); err != nil {
			return value.Value{}, err
		}
		vm, ok := vmOf(ctx)
		if !ok {
			return value.Value{}, vmerr.New(vmerr.NativeError, "List.reduce is unavailable outside the interpreter")
		}
		l := recv.Obj.(*value.List)
		acc := args[0]
		for _, v := range l.ToSlice() {
			r, err := vm.Call(args[1], []value.Value{acc, v}, nil)
			if err != nil {
				return value.Value{}, err
			}
			acc = r
		}
		return acc, nil
	})
	reg.Register("List", "sort", func(recv value.Value, args []value.Value, ctx any) (value.Value, error) {
		if err := arityMethod("List", "sort", args, 0); err != nil {
			return value.Value{}, err
		}
		l := recv.Obj.(*value.List)
		out := append([]value.Value{}, l.ToSlice()...)
		var sortErr error
		sort.SliceStable(out, func(i, j int) bool {
			if sortErr != nil {
				return false
			}
			cmp, ok := value.Compare(out[i], out[j])
			if !ok {
				sortErr = vmerr.New(vmerr.InvalidOperation, "List.sort requires mutually ordered elements")
				return false
			}
			return cmp < 0
		})
		if sortErr != nil {
			return value.Value{}, sortErr
		}
		return value.FromObject(value.NewList(out)), nil
	})
}

func registerMapMethods() {
	reg := value.DefaultRegistry
	reg.Register("Map", "len", func(recv value.Value, args []value.Value, ctx any) (value.Value, error) {
		m := recv.Obj.(*value.Map)
		return value.Int(int64(m.Len())), nil
	})
	reg.Register("Map", "has", func(recv value.Value, args []value.Value, ctx any) (value.Value, error) {
		if err := arityMethod("Map", "has", args, 1); err != nil {
			return value.Value{}, err
		}
		key, ok := asMapKey(args[0])
		if !ok {
			return value.Value{}, vmerr.New(vmerr.TypeMismatch, "Map.has key must be a String, got %s", args[0].TypeName())
		}
		m := recv.Obj.(*value.Map)
		_, found := m.Get(key)
		return value.Bool(found), nil
	})
	reg.Register("Map", "keys", func(recv value.Value, args []value.Value, ctx any) (value.Value, error) {
		m := recv.Obj.(*value.Map)
		keys := m.SortedKeys()
		out := make([]value.Value, len(keys))
		for i, k := range keys {
			out[i] = value.StrVal(k)
		}
		return value.FromObject(value.NewList(out)), nil
	})
	reg.Register("Map", "values", func(recv value.Value, args []value.Value, ctx any) (value.Value, error) {
		m := recv.Obj.(*value.Map)
		keys := m.SortedKeys()
		out := make([]value.Value, len(keys))
		for i, k := range keys {
			out[i] = m.GetOrNil(k)
		}
		return value.FromObject(value.NewList(out)), nil
	})
	reg.Register("Map", "remove", func(recv value.Value, args []value.Value, ctx any) (value.Value, error) {
		if err := arityMethod("Map", "remove", args, 1); err != nil {
			return value.Value{}, err
		}
		key, ok := asMapKey(args[0])
		if !ok {
			return value.Value{}, vmerr.New(vmerr.TypeMismatch, "Map.remove key must be a String, got %s", args[0].TypeName())
		}
		m := recv.Obj.(*value.Map)
		return value.FromObject(m.Without(key)), nil
	})
	reg.Register("Map", "merge", func(recv value.Value, args []value.Value, ctx any) (value.Value, error) {
		if err := arityMethod("Map", "merge", args, 1); err != nil {
			return value.Value{}, err
		}
		other, ok := args[0].Obj.(*value.Map)
		if !ok {
			return value.Value{}, vmerr.New(vmerr.TypeMismatch, "Map.merge requires a Map, got %s", args[0].TypeName())
		}
		m := recv.Obj.(*value.Map)
		return value.FromObject(m.Merge(other)), nil
	})
}

func registerStrMethods() {
	reg := value.DefaultRegistry
	reg.Register("String", "len", func(recv value.Value, args []value.Value, ctx any) (value.Value, error) {
		s := recv.Obj.(*value.Str)
		return value.Int(int64(len([]rune(s.S)))), nil
	})
	reg.Register("String", "upper", func(recv value.Value, args []value.Value, ctx any) (value.Value, error) {
		s := recv.Obj.(*value.Str)
		return value.StrVal(strings.ToUpper(s.S)), nil
	})
	reg.Register("String", "lower", func(recv value.Value, args []value.Value, ctx any) (value.Value, error) {
		s := recv.Obj.(*value.Str)
		return value.StrVal(strings.ToLower(s.S)), nil
	})
	reg.Register("String", "trim", func(recv value.Value, args []value.Value, ctx any) (value.Value, error) {
		s := recv.Obj.(*value.Str)
		return value.StrVal(strings.TrimSpace(s.S)), nil
	})
	reg.Register("String", "contains", func(recv value.Value, args []value.Value, ctx any) (value.Value, error) {
		if err := arityMethod("String", "contains", args, 1); err != nil {
			return value.Value{}, err
		}
		needle, ok := args[0].Obj.(*value.Str)
		if !ok {
			return value.Value{}, vmerr.New(vmerr.TypeMismatch, "String.contains requires a String, got %s", args[0].TypeName())
		}
		s := recv.Obj.(*value.Str)
		return value.Bool(strings.Contains(s.S, needle.S)), nil
	})
	reg.Register("String", "split", func(recv value.Value, args []value.Value, ctx any) (value.Value, error) {
		if err := arityMethod("String", "split", args, 1); err != nil {
			return value.Value{}, err
		}
		sep, ok := args[0].Obj.(*value.Str)
		if !ok {
			return value.Value{}, vmerr.New(vmerr.TypeMismatch, "String.split requires a String, got %s", args[0].TypeName())
		}
		s := recv.Obj.(*value.Str)
		parts := strings.Split(s.S, sep.S)
		out := make([]value.Value, len(parts))
		for i, p := range parts {
			out[i] = value.StrVal(p)
		}
		return value.FromObject(value.NewList(out)), nil
	})
	reg.Register("String", "replace", func(recv value.Value, args []value.Value, ctx any) (value.Value, error) {
		if err := arityMethod("String", "replace", args, 2); err != nil {
			return value.Value{}, err
		}
		from, ok1 := args[0].Obj.(*value.Str)
		to, ok2 := args[1].Obj.(*value.Str)
		if !ok1 || !ok2 {
			return value.Value{}, vmerr.New(vmerr.TypeMismatch, "String.replace requires two Strings")
		}
		s := recv.Obj.(*value.Str)
		return value.StrVal(strings.ReplaceAll(s.S, from.S, to.S)), nil
	})
}
