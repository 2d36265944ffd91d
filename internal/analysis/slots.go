// Package analysis implements the per-function artifacts consumed by both
// the compiler and the interpreter: slot resolution, a minimal SSA-ish
// escape summary, and the region plan it yields.
package analysis

import "github.com/nyxlang/nyx/internal/ast"

// Slot identifies a resolved local by depth (block nesting, for
// diagnostics only) and register index: the use-list entry is
// (name, Slot{depth, index}).
type Slot struct {
	Depth int
	Index int
}

// Decl records one declared local: its name, its resolved register
// index, and whether it is a parameter.
type Decl struct {
	Name    string
	Index   int
	IsParam bool
}

// FunctionLayout is the output of slot resolution for one function.
// Grounded on the teacher's internal/vm/compiler_scope.go depth/index
// bookkeeping, generalized from "stack slot" to "register index" — the
// numbers mean the same thing (a stable per-function local index) under
// both disciplines.
type FunctionLayout struct {
	TotalLocals int
	Decls       []Decl
	Nested      []*FunctionLayout
}

// slotResolver walks a function body assigning each declared local a
// stable, sequential register index. Parameters come first; block-
// shadowed names receive fresh indices and never reuse an outer name's
// slot (step 2).
type slotResolver struct {
	next   int
	layout *FunctionLayout
}

// ResolveFunction assigns register slots for params, named params, and
// every `let`/short-declare/for-loop-variable encountered in body, depth
// first, left to right.
func ResolveFunction(params []ast.Param, namedParams []ast.NamedParam, body []ast.Stmt) *FunctionLayout {
	r := &slotResolver{layout: &FunctionLayout{}}
	for _, p := range params {
		r.declare(p.Name, true)
	}
	for _, p := range namedParams {
		r.declare(p.Name, true)
	}
	r.walkStmts(body)
	r.layout.TotalLocals = r.next
	return r.layout
}

func (r *slotResolver) declare(name string, isParam bool) int {
	idx := r.next
	r.next++
	r.layout.Decls = append(r.layout.Decls, Decl{Name: name, Index: idx, IsParam: isParam})
	return idx
}

func (r *slotResolver) walkStmts(body []ast.Stmt) {
	for _, s := range body {
		r.walkStmt(s)
	}
}

func (r *slotResolver) walkStmt(s ast.Stmt) {
	switch st := s.(type) {
	case *ast.Let:
		for _, n := range patternNames(st.Pat) {
			r.declare(n, false)
		}
	case *ast.If:
		if st.LetPattern != nil {
			for _, n := range patternNames(*st.LetPattern) {
				r.declare(n, false)
			}
		}
		r.walkStmts(st.Then)
		r.walkStmts(st.Else)
	case *ast.While:
		if st.LetPattern != nil {
			for _, n := range patternNames(*st.LetPattern) {
				r.declare(n, false)
			}
		}
		r.walkStmts(st.Body)
	case *ast.For:
		r.declare(st.VarName, false)
		r.walkStmts(st.Body)
	case *ast.Block:
		r.walkStmts(st.Body)
	case *ast.FunctionStmt:
 // Nested named function: its own layout is resolved independently
 // by the compiler when it lowers the nested Closure; the name
 // itself occupies a slot in the enclosing function.
		r.declare(st.Name, false)
		nested := ResolveFunction(st.Fn.Params, st.Fn.NamedParams, st.Fn.Body)
		r.layout.Nested = append(r.layout.Nested, nested)
	}
}

// patternNames returns every binding name introduced by a pattern,
// including a rest-binding name if present.
func patternNames(p ast.Pattern) []string {
	var names []string
	switch p.Kind {
	case ast.PatBind:
		names = append(names, p.Name)
	case ast.PatList, ast.PatTuple, ast.PatOr:
		for _, e := range p.Elems {
			names = append(names, patternNames(e)...)
		}
		if p.Kind == ast.PatList && p.HasRest && p.RestName != "" {
			names = append(names, p.RestName)
		}
	case ast.PatMap:
		for _, v := range p.Vals {
			names = append(names, patternNames(v)...)
		}
	}
	return names
}
