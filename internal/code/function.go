package code

import (
	"github.com/nyxlang/nyx/internal/analysis"
	"github.com/nyxlang/nyx/internal/value"
)

// Operand is a register index (>=0) or a pooled-constant index, tagged
// by sign: a non-negative Operand reads register Index(), a negative one
// reads Consts[Index()]. This is the same tagged-index idea a packed
// encoding would express with a high bit, done the idiomatic Go way with
// a signed int32 instead.
type Operand int32

const noOperand Operand = 1<<31 - 1

func Reg(idx int) Operand   { return Operand(idx) }
func Const(idx int) Operand { return Operand(-(idx + 1)) }

func (o Operand) IsConst() bool { return o < 0 }
func (o Operand) Index() int {
	if o < 0 {
		return int(-(o + 1))
	}
	return int(o)
}

// NamedSlot is one (name, source-register) pair in a named-call's suffix.
type NamedSlot struct {
	NameConst int32 // index into Consts of the argument's name string
	Reg       int32
}

// Inst is one instruction in the sum-type form.
type Inst struct {
	Op    Op
	Dst   int32 // destination register; -1 when the op has none
	A, B  Operand
	Aux   int32       // opcode-specific: jump offset, argc, capture/proto index, ...
	Regs  []int32     // variable-length register list (call args, build-list/map elems)
	Named []NamedSlot // named-call key/value suffix
	Line  int
}

// NamedParamDecl is one named-parameter declaration: name, optional type,
// whether it has a compiled default thunk, and whether it is Optional<T>
// (defaults to Nil with no thunk per the Open Question resolved in
// DESIGN.md).
type NamedParamDecl struct {
	Name     string
	Type     string
	Optional bool
	HasDefault bool
}

// Function is a compiled function.
type Function struct {
	Name string

	Consts []value.Value
	Code   []Inst
	Code32 []uint32 // nil unless every Inst packed (see internal/code/pack.go)

	NRegs uint16

	ParamRegs      []uint16
	NamedParamRegs []uint16
	NamedParamLayout []NamedParamDecl

	// NamedParamDefaults holds one compiled default-value thunk per named
	// parameter, nil where HasDefault is false.
	NamedParamDefaults []*Function

	Variadic bool

	Protos []*Function

	// CaptureKinds tags each entry of a MAKE_CLOSURE instruction's Regs list
	// with the CaptureSpec.Kind the interpreter should record (informational:
	// the runtime representation is a shared Cell either way, see
	// value.CaptureSpec's doc comment).
	CaptureKinds []value.CaptureKind

	RegionPlan *analysis.RegionPlan

	// IsDefaultThunk marks a Function synthesized as a named-parameter
	// default's body; its ParamRegs mirror the enclosing function exactly
	// ("Named parameters").
	IsDefaultThunk bool
}

// Arity is the number of positional parameters.
func (f *Function) Arity() int { return len(f.ParamRegs) }
