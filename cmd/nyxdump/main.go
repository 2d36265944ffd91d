// Command nyxdump disassembles a compiled Function, the way the
// teacher's debugger CLI dumps structured diagnostic state for human
// inspection. The surface lexer/parser is out of scope for this module,
// so nyxdump has no Nyx source text to read; it compiles a small
// built-in demonstration program instead and dumps its bytecode (and,
// with -regions, its escape-analysis region plan as YAML) — an embedder
// wiring a real frontend would call compiler.Compile on its own parsed
// AST and reuse internal/interp.Disassemble the same way.
package main

import (
	"flag"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nyxlang/nyx/internal/analysis"
	"github.com/nyxlang/nyx/internal/ast"
	"github.com/nyxlang/nyx/internal/code"
	"github.com/nyxlang/nyx/internal/compiler"
	"github.com/nyxlang/nyx/internal/interp"
)

func main() {
	log.SetFlags(0)
	log.SetOutput(os.Stderr)

	regions := flag.Bool("regions", false, "dump the escape-analysis region plan as YAML instead of disassembling")
	flag.Parse()

	fn, err := compiler.Compile(demoProgram())
	if err != nil {
		log.Fatalf("compile: %v", err)
	}

	if *regions {
		if err := dumpRegions(os.Stdout, fn); err != nil {
			log.Fatalf("dump regions: %v", err)
		}
		return
	}
	interp.Disassemble(os.Stdout, fn)
}

type regionDump struct {
	Function string         `yaml:"function"`
	Return   string         `yaml:"return_region"`
	Slots    map[int]string `yaml:"slots,omitempty"`
}

func dumpRegions(w *os.File, fn *code.Function) error {
	doc := buildRegionDump(fn)
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(doc)
}

func buildRegionDump(fn *code.Function) []regionDump {
	docs := []regionDump{regionDumpOf(fn)}
	for _, proto := range fn.Protos {
		docs = append(docs, buildRegionDump(proto)...)
	}
	return docs
}

func regionDumpOf(fn *code.Function) regionDump {
	name := fn.Name
	if name == "" {
		name = "<anonymous>"
	}
	d := regionDump{Function: name, Return: regionName(fn.RegionPlan.ReturnRegion)}
	if len(fn.RegionPlan.Slots) > 0 {
		d.Slots = make(map[int]string, len(fn.RegionPlan.Slots))
		for slot, r := range fn.RegionPlan.Slots {
			d.Slots[slot] = regionName(r)
		}
	}
	return d
}

func regionName(r analysis.Region) string {
	switch r {
	case analysis.RegionHeap:
		return "heap"
	default:
		return "thread_local"
	}
}

// pos is the zero source position every node in the built-in demo program
// carries; there is no lexer/parser in this module to derive a real one
// from.
var pos = ast.Pos{Line: 1, Col: 1}

// demoProgram builds `let x = 1 + 2; print(x);` directly as an AST, since
// nyxdump has no frontend to parse source text with.
func demoProgram() *ast.Program {
	let := &ast.Let{
		Pat: ast.Pattern{Kind: ast.PatBind, Name: "x"},
		Value: &ast.Binary{
			Op:    ast.OpAdd,
			Left:  &ast.Literal{Kind: ast.LitInt, I: 1},
			Right: &ast.Literal{Kind: ast.LitInt, I: 2},
		},
	}
	let.Pos = pos
	call := &ast.Call{
		Callee: &ast.Variable{Name: "print"},
		Args:   []ast.Expr{&ast.Variable{Name: "x"}},
	}
	call.Pos = pos
	stmt := &ast.ExprStmt{X: call}
	stmt.Pos = pos
	prog := &ast.Program{Body: []ast.Stmt{let, stmt}}
	prog.Pos = pos
	return prog
}
