// Package code defines the register-instruction family, the compiled
// Function shape, and the packed 32-bit encoding. It sits between
// internal/value (Function.Consts holds value.Value) and
// internal/analysis (Function.RegionPlan), so both the compiler and the
// interpreter can share one definition of "a compiled function" without
// internal/value needing to depend on either.
//
// Grounded on internal/vm/opcodes.go's byte-opcode-enum-plus-name-table
// idiom in the teacher, trimmed to the register-oriented family and
// enriched with bitwise ops, interpolation concat, optional-chain field,
// and a range op beyond what the teacher's stack machine needs.
package code

// Op is the opcode tag (teacher: internal/vm/opcodes.go's `type Opcode byte`).
type Op byte

const (
	OpLoadConst Op = iota
	OpMove
	OpLoadNil
	OpLoadTrue
	OpLoadFalse
	OpLoadLocal  // redundant with Move in a register machine; kept for
	OpStoreLocal // symmetry so every addressable slot has a load and a store
	OpLoadGlobal
	OpStoreGlobal

	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpNeg

	OpBitAnd
	OpBitOr
	OpBitXor
	OpBitNot
	OpShl
	OpShr

	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpLtImm // compare variants the compiler emits; B may be a register or a constant, executed like the plain ops
	OpLeImm
	OpGtImm
	OpGeImm
	OpEqImm
	OpNeImm

	OpNot

	OpBuildList
	OpBuildMap
	OpIndexGet
	OpIndexSet
	OpFieldGet
	OpFieldSet
	OpOptionalFieldGet

	OpJump
	OpJumpIfFalse
	OpJumpIfTrue
	OpTestNotNil // Dst = Bool(A is not Nil); feeds OpJumpIfTrue for ?? short-circuit

	OpForPrep
	OpForLoop
	OpForStep
	OpToIter
	OpIterNext

	OpCall
	OpCallNamed
	OpReturn

	OpMatchTest   // pattern-plan test instruction (see internal/compiler/patterns.go)
	OpAssertMatch // raises PatternMatchFailure if A is falsy
	OpBoolAnd     // Dst = Bool(A) && Bool(B), no short-circuit (both already evaluated)
	OpListRest    // Dst = sublist of A from index Aux to end

	OpMakeClosure
	OpLoadCapture
	OpStoreCapture
	OpMakeCell
	OpLoadBoxed
	OpStoreBoxed

	OpInterpConcat
	OpRange

	OpHalt
)

var opNames = map[Op]string{
	OpLoadConst: "LOAD_CONST", OpMove: "MOVE", OpLoadNil: "LOAD_NIL",
	OpLoadTrue: "LOAD_TRUE", OpLoadFalse: "LOAD_FALSE",
	OpLoadLocal: "LOAD_LOCAL", OpStoreLocal: "STORE_LOCAL",
	OpLoadGlobal: "LOAD_GLOBAL", OpStoreGlobal: "STORE_GLOBAL",
	OpAdd: "ADD", OpSub: "SUB", OpMul: "MUL", OpDiv: "DIV", OpMod: "MOD", OpNeg: "NEG",
	OpBitAnd: "BAND", OpBitOr: "BOR", OpBitXor: "BXOR", OpBitNot: "BNOT",
	OpShl: "SHL", OpShr: "SHR",
	OpEq: "EQ", OpNe: "NE", OpLt: "LT", OpLe: "LE", OpGt: "GT", OpGe: "GE",
	OpLtImm: "LT_IMM", OpLeImm: "LE_IMM", OpGtImm: "GT_IMM", OpGeImm: "GE_IMM",
	OpEqImm: "EQ_IMM", OpNeImm: "NE_IMM",
	OpNot: "NOT",
	OpBuildList: "BUILD_LIST", OpBuildMap: "BUILD_MAP",
	OpIndexGet: "INDEX_GET", OpIndexSet: "INDEX_SET",
	OpFieldGet: "FIELD_GET", OpFieldSet: "FIELD_SET",
	OpOptionalFieldGet: "OPT_FIELD_GET",
	OpJump:             "JUMP", OpJumpIfFalse: "JUMP_IF_FALSE", OpJumpIfTrue: "JUMP_IF_TRUE",
	OpTestNotNil: "TEST_NOT_NIL",
	OpForPrep: "FOR_PREP", OpForLoop: "FOR_LOOP", OpForStep: "FOR_STEP",
	OpToIter: "TO_ITER", OpIterNext: "ITER_NEXT",
	OpCall: "CALL", OpCallNamed: "CALL_NAMED", OpReturn: "RETURN",
	OpMatchTest: "MATCH_TEST", OpAssertMatch: "ASSERT_MATCH", OpBoolAnd: "BOOL_AND",
	OpListRest: "LIST_REST",
	OpMakeClosure:  "MAKE_CLOSURE",
	OpLoadCapture:  "LOAD_CAPTURE", OpStoreCapture: "STORE_CAPTURE",
	OpMakeCell: "MAKE_CELL", OpLoadBoxed: "LOAD_BOXED", OpStoreBoxed: "STORE_BOXED",
	OpInterpConcat: "INTERP_CONCAT", OpRange: "RANGE",
	OpHalt: "HALT",
}

func (o Op) String() string {
	if n, ok := opNames[o]; ok {
		return n
	}
	return "UNKNOWN"
}
