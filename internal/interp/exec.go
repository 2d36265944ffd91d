package interp

import (
	"strings"

	"github.com/nyxlang/nyx/internal/code"
	"github.com/nyxlang/nyx/internal/value"
	"github.com/nyxlang/nyx/internal/vmerr"
)

// step executes one instruction of fr and reports how execLoop should
// advance: plain pc++ (stepContinue), a jump the handler already applied
// (stepJumped), a return unwinding fr (stepReturned, with the value), or a
// call that pushed a new frame on top of fr (stepCalled). Grounded on the
// teacher's internal/vm/vm.go execute() instruction switch, re-keyed from
// stack push/pop to register read/write throughout.
func (vm *VM) step(fr *frame, inst *code.Inst) (stepKind, value.Value, error) {
	switch inst.Op {

	case code.OpLoadConst:
		fr.regs[inst.Dst] = vm.readOperand(fr, inst.A)
		return stepContinue, value.Value{}, nil

	case code.OpMove, code.OpLoadLocal, code.OpStoreLocal:
 // LoadLocal/StoreLocal are never emitted by the compiler (Move
 // covers both directions on a register machine); kept for
 // completeness of the opcode family and implemented identically.
		fr.regs[inst.Dst] = vm.readOperand(fr, inst.A)
		return stepContinue, value.Value{}, nil

	case code.OpLoadNil:
		fr.regs[inst.Dst] = value.Nil()
		return stepContinue, value.Value{}, nil

	case code.OpLoadTrue:
		fr.regs[inst.Dst] = value.Bool(true)
		return stepContinue, value.Value{}, nil

	case code.OpLoadFalse:
		fr.regs[inst.Dst] = value.Bool(false)
		return stepContinue, value.Value{}, nil

	case code.OpLoadGlobal:
		return vm.execLoadGlobal(fr, inst)

	case code.OpStoreGlobal:
		name := constString(fr.fn, inst.Aux)
		val := vm.readOperand(fr, inst.A)
		if err := vm.Ctx.Set(name, val); err != nil {
			return stepContinue, value.Value{}, err
		}
		return stepContinue, value.Value{}, nil

	case code.OpAdd:
		return vm.binNumeric(fr, inst, value.Add)
	case code.OpSub:
		return vm.binNumeric(fr, inst, value.Sub)
	case code.OpMul:
		return vm.binNumeric(fr, inst, value.Mul)
	case code.OpDiv:
		return vm.binNumeric(fr, inst, value.Div)
	case code.OpMod:
		return vm.binNumeric(fr, inst, value.Mod)

	case code.OpNeg:
		a := vm.readOperand(fr, inst.A)
		v, err := value.Neg(a)
		if err != nil {
			return stepContinue, value.Value{}, err
		}
		fr.regs[inst.Dst] = v
		return stepContinue, value.Value{}, nil

	case code.OpBitAnd:
		return vm.binInt(fr, inst, "&", func(x, y int64) int64 { return x & y })
	case code.OpBitOr:
		return vm.binInt(fr, inst, "|", func(x, y int64) int64 { return x | y })
	case code.OpBitXor:
		return vm.binInt(fr, inst, "^", func(x, y int64) int64 { return x ^ y })
	case code.OpShl:
		return vm.binInt(fr, inst, "<<", func(x, y int64) int64 { return x << uint64(y) })
	case code.OpShr:
		return vm.binInt(fr, inst, ">>", func(x, y int64) int64 { return x >> uint64(y) })

	case code.OpBitNot:
		a := vm.readOperand(fr, inst.A)
		v, err := value.BitNot(a)
		if err != nil {
			return stepContinue, value.Value{}, err
		}
		fr.regs[inst.Dst] = v
		return stepContinue, value.Value{}, nil

	case code.OpEq, code.OpEqImm:
		a, b := vm.readOperand(fr, inst.A), vm.readOperand(fr, inst.B)
		fr.regs[inst.Dst] = value.Bool(a.Equals(b))
		return stepContinue, value.Value{}, nil

	case code.OpNe, code.OpNeImm:
		a, b := vm.readOperand(fr, inst.A), vm.readOperand(fr, inst.B)
		fr.regs[inst.Dst] = value.Bool(!a.Equals(b))
		return stepContinue, value.Value{}, nil

	case code.OpLt, code.OpLtImm:
		return vm.binCompare(fr, inst, value.Less)
	case code.OpLe, code.OpLeImm:
		return vm.binCompare(fr, inst, value.LessEq)
	case code.OpGt, code.OpGtImm:
		return vm.binCompare(fr, inst, value.Greater)
	case code.OpGe, code.OpGeImm:
		return vm.binCompare(fr, inst, value.GreaterEq)

	case code.OpNot:
		a := vm.readOperand(fr, inst.A)
		fr.regs[inst.Dst] = value.Bool(!a.Truthy())
		return stepContinue, value.Value{}, nil

	case code.OpBoolAnd:
		a, b := vm.readOperand(fr, inst.A), vm.readOperand(fr, inst.B)
		fr.regs[inst.Dst] = value.Bool(a.Truthy() && b.Truthy())
		return stepContinue, value.Value{}, nil

	case code.OpTestNotNil:
		a := vm.readOperand(fr, inst.A)
		fr.regs[inst.Dst] = value.Bool(!a.IsNil())
		return stepContinue, value.Value{}, nil

	case code.OpBuildList:
		elems := make([]value.Value, len(inst.Regs))
		for i, r := range inst.Regs {
			elems[i] = fr.regs[r]
		}
		fr.regs[inst.Dst] = value.FromObject(value.NewList(elems))
		return stepContinue, value.Value{}, nil

	case code.OpBuildMap:
		return vm.execBuildMap(fr, inst)

	case code.OpIndexGet:
		recv, idx := vm.readOperand(fr, inst.A), vm.readOperand(fr, inst.B)
		v, err := indexGet(recv, idx)
		if err != nil {
			return stepContinue, value.Value{}, err
		}
		fr.regs[inst.Dst] = v
		return stepContinue, value.Value{}, nil

	case code.OpIndexSet:
		return vm.execIndexSet(fr, inst)

	case code.OpFieldGet:
		recv := vm.readOperand(fr, inst.A)
		name := constString(fr.fn, inst.Aux)
		v, err := vm.fieldGet(fr, inst, recv, name, false)
		if err != nil {
			return stepContinue, value.Value{}, err
		}
		fr.regs[inst.Dst] = v
		return stepContinue, value.Value{}, nil

	case code.OpOptionalFieldGet:
		recv := vm.readOperand(fr, inst.A)
		if recv.IsNil() {
			fr.regs[inst.Dst] = value.Nil()
			return stepContinue, value.Value{}, nil
		}
		name := constString(fr.fn, inst.Aux)
		v, err := vm.fieldGet(fr, inst, recv, name, true)
		if err != nil {
			return stepContinue, value.Value{}, err
		}
		fr.regs[inst.Dst] = v
		return stepContinue, value.Value{}, nil

	case code.OpFieldSet:
		recv := vm.readOperand(fr, inst.A)
		val := vm.readOperand(fr, inst.B)
		name := constString(fr.fn, inst.Aux)
		newRecv, err := fieldSet(recv, name, val)
		if err != nil {
			return stepContinue, value.Value{}, err
		}
		if inst.Dst >= 0 {
			fr.regs[inst.Dst] = newRecv
		}
		return stepContinue, value.Value{}, nil

	case code.OpJump:
		fr.pc += int(inst.Aux)
		return stepJumped, value.Value{}, nil

	case code.OpJumpIfFalse:
		if !vm.readOperand(fr, inst.A).Truthy() {
			fr.pc += int(inst.Aux)
			return stepJumped, value.Value{}, nil
		}
		return stepContinue, value.Value{}, nil

	case code.OpJumpIfTrue:
		if vm.readOperand(fr, inst.A).Truthy() {
			fr.pc += int(inst.Aux)
			return stepJumped, value.Value{}, nil
		}
		return stepContinue, value.Value{}, nil

	case code.OpForPrep:
 // Never emitted: compileForRange seeds the loop variable with a
 // plain OpMove-equivalent bindLocal instead. Kept as a no-op so an
 // encoder that does emit it degrades safely rather than raising.
		return stepContinue, value.Value{}, nil

	case code.OpForLoop:
		return vm.execForLoop(fr, inst)

	case code.OpForStep:
		cur := vm.readOperand(fr, inst.A)
		fr.regs[inst.Dst] = value.Int(cur.AsInt() + 1)
		return stepContinue, value.Value{}, nil

	case code.OpToIter:
		v := vm.readOperand(fr, inst.A)
		it, err := toIterator(v)
		if err != nil {
			return stepContinue, value.Value{}, err
		}
		fr.regs[inst.Dst] = it
		return stepContinue, value.Value{}, nil

	case code.OpIterNext:
		return vm.execIterNext(fr, inst)

	case code.OpRange:
		start, end := vm.readOperand(fr, inst.A), vm.readOperand(fr, inst.B)
		if !start.IsInt() || !end.IsInt() {
			return stepContinue, value.Value{}, vmerr.New(vmerr.InvalidOperation, "range bounds must be Int")
		}
		fr.regs[inst.Dst] = value.FromObject(value.NewHandle(value.HandleIterator, &rangeIter{
			cur: start.AsInt(), end: end.AsInt(), inclusive: inst.Aux != 0,
		}))
		return stepContinue, value.Value{}, nil

	case code.OpCall:
		args := make([]value.Value, len(inst.Regs))
		for i, r := range inst.Regs {
			args[i] = fr.regs[r]
		}
		calleeVal := vm.readOperand(fr, inst.A)
		return vm.dispatchCall(fr, inst, calleeVal, args, nil, inst.Dst)

	case code.OpCallNamed:
		args := make([]value.Value, len(inst.Regs))
		for i, r := range inst.Regs {
			args[i] = fr.regs[r]
		}
		named := make([]value.NamedArg, len(inst.Named))
		for i, slot := range inst.Named {
			named[i] = value.NamedArg{Name: constString(fr.fn, slot.NameConst), Value: fr.regs[slot.Reg]}
		}
		calleeVal := vm.readOperand(fr, inst.A)
		return vm.dispatchCall(fr, inst, calleeVal, args, named, inst.Dst)

	case code.OpReturn:
		return stepReturned, vm.readOperand(fr, inst.A), nil

	case code.OpMatchTest:
		a := vm.readOperand(fr, inst.A)
		fr.regs[inst.Dst] = value.Bool(!a.IsNil())
		return stepContinue, value.Value{}, nil

	case code.OpAssertMatch:
		a := vm.readOperand(fr, inst.A)
		if !a.Truthy() {
			return stepContinue, value.Value{}, vmerr.New(vmerr.PatternMatchFailure, "pattern match failed")
		}
		return stepContinue, value.Value{}, nil

	case code.OpListRest:
		src := vm.readOperand(fr, inst.A)
		l, ok := src.Obj.(*value.List)
		if !ok {
			return stepContinue, value.Value{}, vmerr.New(vmerr.TypeMismatch, "rest-binding requires a List, got %s", src.TypeName())
		}
		from := int(inst.Aux)
		if from > l.Len() {
			from = l.Len()
		}
		fr.regs[inst.Dst] = value.FromObject(value.NewList(append([]value.Value{}, l.ToSlice()[from:]...)))
		return stepContinue, value.Value{}, nil

	case code.OpMakeClosure:
		return vm.execMakeClosure(fr, inst)

	case code.OpLoadCapture:
		cap := fr.closure.Captures[inst.Aux]
		if cap.Cell != nil {
			fr.regs[inst.Dst] = cap.Cell.V
		} else {
			fr.regs[inst.Dst] = cap.Value
		}
		return stepContinue, value.Value{}, nil

	case code.OpStoreCapture:
		cap := fr.closure.Captures[inst.Aux]
		if cap.Cell == nil {
			return stepContinue, value.Value{}, vmerr.New(vmerr.ConstAssignment, "capture is not assignable")
		}
		cap.Cell.V = vm.readOperand(fr, inst.A)
		return stepContinue, value.Value{}, nil

	case code.OpMakeCell:
		fr.regs[inst.Dst] = value.FromObject(&value.Cell{V: vm.readOperand(fr, inst.A)})
		return stepContinue, value.Value{}, nil

	case code.OpLoadBoxed:
		cell, err := asCell(fr.regs[int32(inst.A.Index())])
		if err != nil {
			return stepContinue, value.Value{}, err
		}
		fr.regs[inst.Dst] = cell.V
		return stepContinue, value.Value{}, nil

	case code.OpStoreBoxed:
		cell, err := asCell(fr.regs[int32(inst.A.Index())])
		if err != nil {
			return stepContinue, value.Value{}, err
		}
		cell.V = vm.readOperand(fr, inst.B)
		return stepContinue, value.Value{}, nil

	case code.OpInterpConcat:
		return vm.execInterpConcat(fr, inst)

	case code.OpHalt:
		return stepReturned, value.Nil(), nil

	default:
		return stepContinue, value.Value{}, vmerr.New(vmerr.InvalidOperation, "unknown opcode %d", inst.Op)
	}
}

// readOperand resolves an Operand against fr's constants or registers.
func (vm *VM) readOperand(fr *frame, op code.Operand) value.Value {
	if op.IsConst() {
		return fr.fn.Consts[op.Index()]
	}
	return fr.regs[op.Index()]
}

func asCell(v value.Value) (*value.Cell, error) {
	c, ok := v.Obj.(*value.Cell)
	if !ok {
		return nil, vmerr.New(vmerr.InvalidOperation, "register does not hold a boxed local")
	}
	return c, nil
}

func (vm *VM) binNumeric(fr *frame, inst *code.Inst, f func(a, b value.Value) (value.Value, error)) (stepKind, value.Value, error) {
	a, b := vm.readOperand(fr, inst.A), vm.readOperand(fr, inst.B)
	v, err := f(a, b)
	if err != nil {
		return stepContinue, value.Value{}, err
	}
	fr.regs[inst.Dst] = v
	return stepContinue, value.Value{}, nil
}

func (vm *VM) binInt(fr *frame, inst *code.Inst, name string, f func(a, b int64) int64) (stepKind, value.Value, error) {
	a, b := vm.readOperand(fr, inst.A), vm.readOperand(fr, inst.B)
	v, err := value.IntBinOp(name, a, b, f)
	if err != nil {
		return stepContinue, value.Value{}, err
	}
	fr.regs[inst.Dst] = v
	return stepContinue, value.Value{}, nil
}

func (vm *VM) binCompare(fr *frame, inst *code.Inst, f func(a, b value.Value) (bool, error)) (stepKind, value.Value, error) {
	a, b := vm.readOperand(fr, inst.A), vm.readOperand(fr, inst.B)
	ok, err := f(a, b)
	if err != nil {
		return stepContinue, value.Value{}, err
	}
	fr.regs[inst.Dst] = value.Bool(ok)
	return stepContinue, value.Value{}, nil
}

// execLoadGlobal consults GlobalIc before falling through to the
// environment's scope chain.
func (vm *VM) execLoadGlobal(fr *frame, inst *code.Inst) (stepKind, value.Value, error) {
	name := constString(fr.fn, inst.Aux)
	slot := vm.globalCache(fr, fr.pc)
	if gen, ok := vm.Ctx.GenerationOf(name); ok && slot.gen != 0 && slot.gen == gen {
		fr.regs[inst.Dst] = slot.value
		return stepContinue, value.Value{}, nil
	}
	val, ok := vm.Ctx.Get(name)
	if !ok {
		return stepContinue, value.Value{}, vmerr.New(vmerr.NameUnbound, "undefined name: %s", name)
	}
	if gen, ok := vm.Ctx.GenerationOf(name); ok {
		slot.value, slot.gen = val, gen
	}
	fr.regs[inst.Dst] = val
	return stepContinue, value.Value{}, nil
}

// execBuildMap builds a plain Map (Aux == 0) or, for a struct literal
// (Aux-1 names the type in Consts — see internal/compiler/expressions.go's
// compileStructLit), wraps the built Map in a *value.Record tagged with
// that type name.
func (vm *VM) execBuildMap(fr *frame, inst *code.Inst) (stepKind, value.Value, error) {
	m := value.EmptyMap()
	mm := value.NewMapMutation(m)
	for i := 0; i+1 < len(inst.Regs); i += 2 {
		key := fr.regs[inst.Regs[i]]
		ks, ok := asMapKey(key)
		if !ok {
			return stepContinue, value.Value{}, vmerr.New(vmerr.TypeMismatch, "map key must be a String, got %s", key.TypeName())
		}
		mm.Put(ks, fr.regs[inst.Regs[i+1]])
	}
	built := mm.Finish()
	if inst.Aux == 0 {
		fr.regs[inst.Dst] = value.FromObject(built)
		return stepContinue, value.Value{}, nil
	}
	typeName := constString(fr.fn, inst.Aux-1)
	fr.regs[inst.Dst] = value.FromObject(value.NewRecord(typeName, built))
	return stepContinue, value.Value{}, nil
}

func asMapKey(v value.Value) (string, bool) {
	if s, ok := v.Obj.(*value.Str); ok {
		return s.S, true
	}
	return "", false
}

func fieldsOf(v value.Value) (*value.Map, bool) {
	if v.Kind != value.KObj || v.Obj == nil {
		return nil, false
	}
	switch o := v.Obj.(type) {
	case *value.Map:
		return o, true
	case *value.Record:
		return o.Fields, true
	}
	return nil, false
}

// fieldGet resolves a.field (or a.method used as a callee, e.g. `list.push`):
// a Map/struct field takes priority, falling back to the process-wide
// method registry bound to recv, which is how method calls on
// Lists/Strings/Ints and similar field-less types reach a NativeFn
// through the ordinary OpFieldGet+OpCall sequence.
func (vm *VM) fieldGet(fr *frame, inst *code.Inst, recv value.Value, name string, optional bool) (value.Value, error) {
	if m, ok := fieldsOf(recv); ok {
		if v, found := m.Get(name); found {
			return v, nil
		}
		if bound, ok := bindMethod(recv, name); ok {
			return bound, nil
		}
		return value.Nil(), nil
	}
	if bound, ok := bindMethod(recv, name); ok {
		return bound, nil
	}
	return value.Value{}, vmerr.New(vmerr.TypeMismatch, "%s has no field or method %q", recv.TypeName(), name)
}

// bindMethod looks up recv's type in the method registry and, on a hit,
// returns a NativeFn with recv baked in as the receiver.
func bindMethod(recv value.Value, name string) (value.Value, bool) {
	fn, ok := value.DefaultRegistry.Lookup(recv.TypeName(), name)
	if !ok {
		return value.Value{}, false
	}
	bound := &value.NativeFn{
		Name: recv.TypeName() + "." + name,
		Fn: func(args []value.Value, ctx any) (value.Value, error) {
			return fn(recv, args, ctx)
		},
	}
	return value.FromObject(bound), true
}

// fieldSet returns the post-assignment receiver, which is recv itself
// (same Map/Record identity) when the field's value didn't change, or a
// freshly allocated one otherwise — mirroring ListMutation/MapMutation's
// "no write, no new handle" aliasing contract one level up, at the
// variable that held recv. The caller is responsible for rebinding
// whatever location produced recv to this result; fieldSet never mutates
// recv's own fields in place, so a second alias of the same prior Map
// (e.g. `let n = m; n.b = 2`) never observes the write.
func fieldSet(recv value.Value, name string, val value.Value) (value.Value, error) {
	switch o := recv.Obj.(type) {
	case *value.Map:
		mm := value.NewMapMutation(o)
		mm.Put(name, val)
		return value.FromObject(mm.Finish()), nil
	case *value.Record:
		return value.FromObject(o.With(name, val)), nil
	default:
		return value.Value{}, vmerr.New(vmerr.TypeMismatch, "field assignment requires a Map or struct receiver, got %s", recv.TypeName())
	}
}

func indexGet(recv, idx value.Value) (value.Value, error) {
	if recv.Kind != value.KObj || recv.Obj == nil {
		return value.Value{}, vmerr.New(vmerr.TypeMismatch, "cannot index a value of type %s", recv.TypeName())
	}
	switch o := recv.Obj.(type) {
	case *value.List:
		if !idx.IsInt() {
			return value.Value{}, vmerr.New(vmerr.TypeMismatch, "list index must be an Int, got %s", idx.TypeName())
		}
		return o.Get(int(idx.AsInt())), nil
	case *value.Map:
		key, ok := asMapKey(idx)
		if !ok {
			return value.Value{}, vmerr.New(vmerr.TypeMismatch, "map index must be a String, got %s", idx.TypeName())
		}
		return o.GetOrNil(key), nil
	case *value.Record:
		key, ok := asMapKey(idx)
		if !ok {
			return value.Value{}, vmerr.New(vmerr.TypeMismatch, "map index must be a String, got %s", idx.TypeName())
		}
		return o.Fields.GetOrNil(key), nil
	case *value.Str:
		if !idx.IsInt() {
			return value.Value{}, vmerr.New(vmerr.TypeMismatch, "string index must be an Int, got %s", idx.TypeName())
		}
		runes := []rune(o.S)
		i := int(idx.AsInt())
		if i < 0 || i >= len(runes) {
			return value.Nil(), nil
		}
		return value.StrVal(string(runes[i])), nil
	default:
		return value.Value{}, vmerr.New(vmerr.TypeMismatch, "cannot index a value of type %s", o.TypeName())
	}
}

// execIndexSet writes the post-assignment receiver into inst.Dst rather
// than mutating recv's fields in place, for the same aliasing reason as
// fieldSet: a list/map only ever changes identity through its guard, and
// it is the caller's job (compileAccessAssign's write-back chain) to
// rebind whatever variable, cell, or outer field produced recv.
func (vm *VM) execIndexSet(fr *frame, inst *code.Inst) (stepKind, value.Value, error) {
	recv := vm.readOperand(fr, inst.A)
	idx := vm.readOperand(fr, inst.B)
	val := fr.regs[inst.Regs[0]]
	switch o := recv.Obj.(type) {
	case *value.List:
		if !idx.IsInt() {
			return stepContinue, value.Value{}, vmerr.New(vmerr.TypeMismatch, "list index must be an Int, got %s", idx.TypeName())
		}
		lm := value.NewListMutation(o)
		lm.Replace(int(idx.AsInt()), val)
		if inst.Dst >= 0 {
			fr.regs[inst.Dst] = value.FromObject(lm.Finish())
		}
		return stepContinue, value.Value{}, nil
	case *value.Map:
		key, ok := asMapKey(idx)
		if !ok {
			return stepContinue, value.Value{}, vmerr.New(vmerr.TypeMismatch, "map index must be a String, got %s", idx.TypeName())
		}
		mm := value.NewMapMutation(o)
		mm.Put(key, val)
		if inst.Dst >= 0 {
			fr.regs[inst.Dst] = value.FromObject(mm.Finish())
		}
		return stepContinue, value.Value{}, nil
	case *value.Record:
		key, ok := asMapKey(idx)
		if !ok {
			return stepContinue, value.Value{}, vmerr.New(vmerr.TypeMismatch, "map index must be a String, got %s", idx.TypeName())
		}
		if inst.Dst >= 0 {
			fr.regs[inst.Dst] = value.FromObject(o.With(key, val))
		}
		return stepContinue, value.Value{}, nil
	default:
		return stepContinue, value.Value{}, vmerr.New(vmerr.TypeMismatch, "cannot index-assign a value of type %s", recv.TypeName())
	}
}

// execForLoop implements the numeric for-range continue-test. It reads the
// bound from inst.B on every test and refills the ForRangeIc slot whenever
// the slot is empty or holds a different bound, so a later run of the same
// loop with a new bound never sees a stale one.
func (vm *VM) execForLoop(fr *frame, inst *code.Inst) (stepKind, value.Value, error) {
	slot := vm.forRangeCache(fr, fr.pc)
	end := vm.readOperand(fr, inst.B)
	if !end.IsInt() {
		return stepContinue, value.Value{}, vmerr.New(vmerr.InvalidOperation, "for-range bound must be Int")
	}
	if !slot.valid || slot.limit != end.AsInt() {
		slot.limit = end.AsInt()
		slot.inclusive = inst.Aux != 0
		slot.valid = true
	}
	cur := vm.readOperand(fr, inst.A)
	if !cur.IsInt() {
		return stepContinue, value.Value{}, vmerr.New(vmerr.InvalidOperation, "for-range variable must be Int")
	}
	var ok bool
	if slot.inclusive {
		ok = cur.AsInt() <= slot.limit
	} else {
		ok = cur.AsInt() < slot.limit
	}
	fr.regs[inst.Dst] = value.Bool(ok)
	return stepContinue, value.Value{}, nil
}

// listIter/mapIter/rangeIter are the internal payloads OpToIter/OpRange
// stash inside a value.Handle{Kind: value.HandleIterator}.
type listIter struct {
	elems []value.Value
	i     int
}

type mapIter struct {
	keys []string
	m    *value.Map
	i    int
}

type strIter struct {
	runes []rune
	i     int
}

type rangeIter struct {
	cur, end  int64
	inclusive bool
}

func toIterator(v value.Value) (value.Value, error) {
	if v.Kind != value.KObj || v.Obj == nil {
		return value.Value{}, vmerr.New(vmerr.TypeMismatch, "cannot iterate a value of type %s", v.TypeName())
	}
	switch o := v.Obj.(type) {
	case *value.Handle:
		if o.Kind == value.HandleIterator {
			return v, nil
		}
		return value.Value{}, vmerr.New(vmerr.TypeMismatch, "cannot iterate a %s handle", o.TypeName())
	case *value.List:
		return value.FromObject(value.NewHandle(value.HandleIterator, &listIter{elems: o.ToSlice()})), nil
	case *value.Map:
		return value.FromObject(value.NewHandle(value.HandleIterator, &mapIter{keys: o.SortedKeys(), m: o})), nil
	case *value.Record:
		return value.FromObject(value.NewHandle(value.HandleIterator, &mapIter{keys: o.Fields.SortedKeys(), m: o.Fields})), nil
	case *value.Str:
		return value.FromObject(value.NewHandle(value.HandleIterator, &strIter{runes: []rune(o.S)})), nil
	default:
		return value.Value{}, vmerr.New(vmerr.TypeMismatch, "cannot iterate a value of type %s", v.TypeName())
	}
}

func (vm *VM) execIterNext(fr *frame, inst *code.Inst) (stepKind, value.Value, error) {
	handleVal := vm.readOperand(fr, inst.A)
	h, ok := handleVal.Obj.(*value.Handle)
	if !ok {
		return stepContinue, value.Value{}, vmerr.New(vmerr.TypeMismatch, "iterator register does not hold an iterator")
	}
	var next value.Value
	more := false
	switch it := h.Payload.(type) {
	case *listIter:
		if it.i < len(it.elems) {
			next, more = it.elems[it.i], true
			it.i++
		}
	case *mapIter:
		if it.i < len(it.keys) {
			k := it.keys[it.i]
			v := it.m.GetOrNil(k)
			pair := value.EmptyMap()
			mm := value.NewMapMutation(pair)
			mm.Put("key", value.StrVal(k))
			mm.Put("value", v)
			next, more = value.FromObject(mm.Finish()), true
			it.i++
		}
	case *strIter:
		if it.i < len(it.runes) {
			next, more = value.StrVal(string(it.runes[it.i])), true
			it.i++
		}
	case *rangeIter:
		cond := it.cur < it.end
		if it.inclusive {
			cond = it.cur <= it.end
		}
		if cond {
			next, more = value.Int(it.cur), true
			it.cur++
		}
	default:
		return stepContinue, value.Value{}, vmerr.New(vmerr.InvalidOperation, "unrecognized iterator payload")
	}
	if !more {
		next = value.Nil()
	}
	fr.regs[inst.Dst] = next
	fr.regs[int32(inst.B.Index())] = value.Bool(more)
	return stepContinue, value.Value{}, nil
}

// execMakeClosure builds a Closure from one of fr.fn's Protos, resolving
// each capture source register to a *value.Cell (prebound by the enclosing
// frame's OpMakeCell/OpLoadCapture chain).
func (vm *VM) execMakeClosure(fr *frame, inst *code.Inst) (stepKind, value.Value, error) {
	proto := fr.fn.Protos[inst.Aux]
	caps := make([]value.CaptureSpec, len(inst.Regs))
	for i, r := range inst.Regs {
		cell, err := asCell(fr.regs[r])
		if err != nil {
			return stepContinue, value.Value{}, err
		}
		kind := value.ByRef
		if i < len(proto.CaptureKinds) {
			kind = proto.CaptureKinds[i]
		}
		caps[i] = value.CaptureSpec{Kind: kind, Cell: cell}
	}
	cl := &value.Closure{Name: proto.Name, Proto: proto, Captures: caps}
	fr.regs[inst.Dst] = value.FromObject(cl)
	return stepContinue, value.Value{}, nil
}

func (vm *VM) execInterpConcat(fr *frame, inst *code.Inst) (stepKind, value.Value, error) {
	var sb strings.Builder
	i := 0
	for ; i+1 < len(inst.Regs); i += 2 {
		sb.WriteString(constString(fr.fn, inst.Regs[i]))
		sb.WriteString(fr.regs[inst.Regs[i+1]].Inspect())
	}
	if i < len(inst.Regs) {
		sb.WriteString(constString(fr.fn, inst.Regs[i]))
	}
	fr.regs[inst.Dst] = value.StrVal(sb.String())
	return stepContinue, value.Value{}, nil
}
