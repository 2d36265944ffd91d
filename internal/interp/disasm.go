package interp

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/nyxlang/nyx/internal/code"
)

// Disassemble writes a human-readable listing of fn (and, recursively,
// every nested proto) to w, grounded on the teacher's Disassemble/
// disassembleInstruction pair in internal/vm/disasm.go. Nyx carries two
// instruction encodings (see exec_packed.go), so each listed instruction
// shows both the sum-type decode and, when a packed code32 word exists
// for that slot, its hex form beside it — the two are required to decode
// to the same Inst, so printing both is also a cheap visual check of that
// dispatch-equivalence property.
func Disassemble(w io.Writer, fn *code.Function) {
	colorize := false
	if f, ok := w.(interface{ Fd() uintptr }); ok {
		colorize = isatty.IsTerminal(f.Fd())
	}
	disassemble(w, fn, colorize)
}

func disassemble(w io.Writer, fn *code.Function, colorize bool) {
	name := fn.Name
	if name == "" {
		name = "<anonymous>"
	}
	fmt.Fprintf(w, "== %s ==\n", name)
	for i, inst := range fn.Code {
		printInst(w, fn, i, inst, colorize)
	}
	fmt.Fprintf(w, "-- %s: %s instructions, %s bytes (code32)\n",
		name,
		humanize.Comma(int64(len(fn.Code))),
		humanize.Bytes(uint64(len(fn.Code32)*4)),
	)
	for _, proto := range fn.Protos {
		fmt.Fprintln(w)
		disassemble(w, proto, colorize)
	}
}

func printInst(w io.Writer, fn *code.Function, idx int, inst code.Inst, colorize bool) {
	opName := inst.Op.String()
	if colorize {
		opName = "\x1b[36m" + opName + "\x1b[0m"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%04d %-14s", idx, opName)
	if inst.Dst >= 0 {
		fmt.Fprintf(&b, " dst=r%d", inst.Dst)
	}
	b.WriteString(operandStr(" a=", inst.A))
	b.WriteString(operandStr(" b=", inst.B))
	if inst.Aux != 0 {
		fmt.Fprintf(&b, " aux=%d", inst.Aux)
	}
	if len(inst.Regs) > 0 {
		fmt.Fprintf(&b, " regs=%v", inst.Regs)
	}
	if idx < len(fn.Code32) {
		fmt.Fprintf(&b, "  ; code32=%#08x", fn.Code32[idx])
	}
	fmt.Fprintln(w, b.String())
}

func operandStr(prefix string, op code.Operand) string {
	if op.IsConst() {
		return fmt.Sprintf("%sk%d", prefix, op.Index())
	}
	return fmt.Sprintf("%sr%d", prefix, op.Index())
}
