package interp

import "github.com/nyxlang/nyx/internal/code"

// currentInst decodes the instruction at fr.pc, preferring the packed
// code32 stream when the compiler managed to build one (no named
// parameters, every instruction fit the packed field widths — see
// internal/code/pack.go's TryPackFunction). Both streams decode into the
// same Inst shape and run through the exact same executor, vm.step, so
// there is exactly one place instruction semantics live: a program
// compiled with or without a usable code32 observably behaves the same,
// the dispatch-equivalence property the two encodings exist to satisfy.
func currentInst(fr *frame) (code.Inst, bool) {
	if fr.fn.Code32 != nil {
		if fr.pc < 0 || fr.pc >= len(fr.fn.Code32) {
			return code.Inst{}, false
		}
		return code.Unpack(fr.fn.Code32[fr.pc]), true
	}
	if fr.pc < 0 || fr.pc >= len(fr.fn.Code) {
		return code.Inst{}, false
	}
	return fr.fn.Code[fr.pc], true
}
