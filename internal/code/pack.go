package code

// Packed 32-bit encoding (code32): tag (Op, 8 bits) + destination
// register (8 bits) + two operand bytes. Each operand byte's top bit
// distinguishes a register index (0) from a pooled-constant index (1) in
// its low 7 bits — the packed encoding's version of the same
// const/register tagging Operand uses in the sum-type form. OpJump
// instead packs a signed 16-bit offset across both operand bytes, since it
// carries no register operands. The conditional jumps and the for-range
// ops carry register operands as well as an offset, which do not fit in
// one word, so they never pack.
//
// No teacher analogue: the teacher ships one byte-stream encoding only.
// Nyx includes the optional packed form specifically to exercise the
// dispatch-equivalence property between the two encodings, and guarantees
// it by construction —
// see internal/interp/exec_packed.go, which decodes a packed word back
// into an Inst and dispatches through the exact same per-instruction
// executor the sum-type loop uses, rather than duplicating the semantics.
const noDst = 0xFF

func isJumpFamily(op Op) bool {
	switch op {
	case OpJump, OpJumpIfFalse, OpJumpIfTrue, OpForLoop, OpForStep:
		return true
	default:
		return false
	}
}

func packOperand(o Operand) (byte, bool) {
	idx := o.Index()
	if idx < 0 || idx > 0x7F {
		return 0, false
	}
	b := byte(idx)
	if o.IsConst() {
		b |= 0x80
	}
	return b, true
}

func unpackOperand(b byte) Operand {
	idx := int(b & 0x7F)
	if b&0x80 != 0 {
		return Const(idx)
	}
	return Reg(idx)
}

// Pack attempts to encode in as a single 32-bit word. ok is false when the
// instruction carries a variable-length register list (calls, build-list,
// build-map, named-call key/value pairs), is a jump-family op other than
// OpJump, or has operands too large for the packed field widths; the compiler then leaves Code32 unset for the
// whole Function, and the interpreter always runs that function through
// the sum-type path instead.
func (in Inst) Pack() (uint32, bool) {
	if len(in.Regs) != 0 || len(in.Named) != 0 {
		return 0, false
	}
	dst := byte(noDst)
	if in.Dst >= 0 {
		if in.Dst > 0xFE {
			return 0, false
		}
		dst = byte(in.Dst)
	}
	if isJumpFamily(in.Op) {
		if in.Op != OpJump {
			return 0, false
		}
		if in.Aux < -32768 || in.Aux > 32767 {
			return 0, false
		}
		off := uint16(int16(in.Aux))
		return uint32(in.Op) | uint32(dst)<<8 | uint32(off)<<16, true
	}
	if in.Aux != 0 {
		return 0, false
	}
	ab, ok1 := packOperand(in.A)
	bb, ok2 := packOperand(in.B)
	if !ok1 || !ok2 {
		return 0, false
	}
	return uint32(in.Op) | uint32(dst)<<8 | uint32(ab)<<16 | uint32(bb)<<24, true
}

// Unpack decodes a packed word back into an Inst, reversing Pack. Line is
// not preserved in the packed encoding (the design treats encoding details
// as free per its Non-goals); callers that need line info use the
// sum-type stream.
func Unpack(word uint32) Inst {
	op := Op(word & 0xFF)
	dstByte := byte((word >> 8) & 0xFF)
	var dst int32 = -1
	if dstByte != noDst {
		dst = int32(dstByte)
	}
	if isJumpFamily(op) {
		off := int16(uint16((word >> 16) & 0xFFFF))
		return Inst{Op: op, Dst: dst, Aux: int32(off)}
	}
	ab := byte((word >> 16) & 0xFF)
	bb := byte((word >> 24) & 0xFF)
	return Inst{Op: op, Dst: dst, A: unpackOperand(ab), B: unpackOperand(bb)}
}

// TryPackFunction populates f.Code32 iff every instruction in f.Code
// packs; otherwise f.Code32 stays nil and the interpreter always falls
// back to the sum-type loop for f ("Dispatch strategy").
func TryPackFunction(f *Function) {
	if f.NamedParamLayout != nil && len(f.NamedParamLayout) > 0 {
		// The packed loop only ever runs for functions with no named
		// parameters, so there's no point building code32 for one that has them.
		return
	}
	words := make([]uint32, 0, len(f.Code))
	for _, in := range f.Code {
		w, ok := in.Pack()
		if !ok {
			return
		}
		words = append(words, w)
	}
	f.Code32 = words
}
