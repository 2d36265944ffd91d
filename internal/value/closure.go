package value

import "unsafe"

// CaptureKind tags how a closure captured a variable ("Closure
// captures").
type CaptureKind uint8

const (
	ByValue CaptureKind = iota
	ByRef
	ByConst
)

// Cell is the interior-mutability container a ByRef capture points at: a
// ByRef capture needs either a cell per captured slot or channelled
// mutation through the enclosing context, and Nyx chooses the cell
// approach.
type Cell struct {
	V Value
}

// Cell implements Object so a boxed local can live in a register exactly
// like any other value (Kind: KObj, Obj: *Cell); the compiler's load/store
// to an escaping local goes through OpLoadBoxed/OpStoreBoxed rather than a
// plain OpMove once a slot is boxed.
func (c *Cell) TypeName() string        { return "Cell" }
func (c *Cell) Inspect() string         { return "<cell " + c.V.Inspect() + ">" }
func (c *Cell) Hash() uint32            { return uint32(uintptr(unsafe.Pointer(c))) }
func (c *Cell) IdentityKey() uintptr    { return uintptr(unsafe.Pointer(c)) }

// CaptureSpec records one captured variable's kind and the shared cell it
// is read and written through. The interpreter's MAKE_CLOSURE stores every
// capture, whatever its Kind, as a Cell and leaves Value unset.
type CaptureSpec struct {
	Kind  CaptureKind
	Value Value // not set by the interpreter
	Cell  *Cell // set for every Kind
}

// Closure is the user function value. Proto holds the
// compiled function body as `*code.Function` (internal/code); it is typed
// `any` here to keep internal/value free of a dependency on internal/code,
// which itself depends on internal/value for its constant pool — the
// interpreter performs the one necessary type assertion when it actually
// executes a closure.
type Closure struct {
	Name     string
	Proto    any
	Captures []CaptureSpec
}

func (c *Closure) TypeName() string { return "Function" }
func (c *Closure) Inspect() string {
	if c.Name != "" {
		return "<fn " + c.Name + ">"
	}
	return "<closure>"
}
func (c *Closure) Hash() uint32        { return uint32(uintptr(unsafe.Pointer(c))) }
func (c *Closure) IdentityKey() uintptr { return uintptr(unsafe.Pointer(c)) }

// NativeResult is what a native function returns.
type NativeResult struct {
	Value Value
	Err   error
}

// NativeFn implements the first native-function signature form:
// fn(args []Value, ctx) -> Result<Value>. Ctx is `any` (environment
// dependency would otherwise create a cycle: environment needs Value,
// not the reverse); the interpreter passes its *interp.VM.
type NativeFn struct {
	Name string
	Fn   func(args []Value, ctx any) (Value, error)
}

func (n *NativeFn) TypeName() string { return "Function" }
func (n *NativeFn) Inspect() string  { return "<native " + n.Name + ">" }
func (n *NativeFn) Hash() uint32     { return uint32(uintptr(unsafe.Pointer(n))) }
func (n *NativeFn) IdentityKey() uintptr { return uintptr(unsafe.Pointer(n)) }

// NativeFnNamed implements the second native-function form,
// accepting positional and named arguments.
type NativeFnNamed struct {
	Name string
	Fn   func(positional []Value, named []NamedArg, ctx any) (Value, error)
}

type NamedArg struct {
	Name  string
	Value Value
}

func (n *NativeFnNamed) TypeName() string { return "Function" }
func (n *NativeFnNamed) Inspect() string  { return "<native " + n.Name + ">" }
func (n *NativeFnNamed) Hash() uint32     { return uint32(uintptr(unsafe.Pointer(n))) }
func (n *NativeFnNamed) IdentityKey() uintptr { return uintptr(unsafe.Pointer(n)) }
