package analysis

import "github.com/nyxlang/nyx/internal/ast"

// Region classifies where a value's backing storage should live (the
// "Region plan" glossary entry).
type Region uint8

const (
	RegionThreadLocal Region = iota
	RegionHeap
)

// EscapeClass is the per-value classification an EscapeSummary carries.
// Nyx does not build a full separate SSA IR ("SsaFunction" would be
// compiler-internal machinery with no independently testable shape);
// instead the escape pass walks the AST once per
// function and classifies each *register* a value can be written into —
// which is exactly what an SSA value lowers to one-for-one in a register
// machine with no phi-merging across the shapes the AST exposes
// (if/while/for all assign their result through the same pre-resolved
// slot). This keeps the pass's observable output (RegionPlan) faithful to
// the design while skipping a from-scratch SSA builder with no teacher
// analogue to ground it on.
type EscapeClass uint8

const (
	Trivial EscapeClass = iota
	Local
	Escapes
)

// EscapeSummary is the pass's output for one function.
type EscapeSummary struct {
	ReturnClass    EscapeClass
	EscapingSlots  map[int]bool // local slot index -> escapes
}

// escapeWalker conservatively marks a local's slot as Escapes if it is
// returned, stored into a heap-visible collection literal, captured by a
// nested closure, or passed to a native call (step 4: "A
// value escapes if it is returned, stored into a heap-visible collection,
// captured by a closure, or passed to a native function whose signature
// marks its arguments as escaping"). Absent better information about
// which natives mark arguments as escaping, any call conservatively
// treats its arguments as escaping — false positives only push a value
// from the (faster) thread-local arena to the heap, never the reverse, so
// conservative-escapes preserves correctness per the invariant.
type escapeWalker struct {
	summary     *EscapeSummary
	nameToSlot  map[string]int
}

// AnalyzeEscape builds the EscapeSummary for one function body, given the
// name->slot mapping slot resolution already produced.
func AnalyzeEscape(body []ast.Stmt, nameToSlot map[string]int) *EscapeSummary {
	w := &escapeWalker{
		summary:    &EscapeSummary{EscapingSlots: make(map[int]bool)},
		nameToSlot: nameToSlot,
	}
	for _, s := range body {
		w.walkStmt(s)
	}
	return w.summary
}

func (w *escapeWalker) markEscaping(name string) {
	if idx, ok := w.nameToSlot[name]; ok {
		w.summary.EscapingSlots[idx] = true
	}
}

func (w *escapeWalker) walkStmt(s ast.Stmt) {
	switch st := s.(type) {
	case *ast.Let:
		w.walkExprEscaping(st.Value, false)
	case *ast.Assign:
		w.walkExprEscaping(st.Value, false)
	case *ast.CompoundAssign:
		w.walkExprEscaping(st.Value, false)
	case *ast.Return:
		w.summary.ReturnClass = Escapes
		if st.Value != nil {
			w.walkExprEscaping(st.Value, true)
		}
	case *ast.If:
		w.walkExprEscaping(st.Cond, false)
		for _, b := range st.Then {
			w.walkStmt(b)
		}
		for _, b := range st.Else {
			w.walkStmt(b)
		}
	case *ast.While:
		w.walkExprEscaping(st.Cond, false)
		for _, b := range st.Body {
			w.walkStmt(b)
		}
	case *ast.For:
		w.walkExprEscaping(st.Iter, false)
		for _, b := range st.Body {
			w.walkStmt(b)
		}
	case *ast.Block:
		for _, b := range st.Body {
			w.walkStmt(b)
		}
	case *ast.ExprStmt:
		w.walkExprEscaping(st.X, false)
	}
}

// walkExprEscaping walks e; forceEscape marks any bare variable reference
// found (not nested deeper inside a sub-structure whose own rules apply)
// as escaping — used for the expression directly returned, or an element
// spliced into a heap-visible collection literal.
func (w *escapeWalker) walkExprEscaping(e ast.Expr, forceEscape bool) {
	if e == nil {
		return
	}
	switch ex := e.(type) {
	case *ast.Variable:
		if forceEscape {
			w.markEscaping(ex.Name)
		}
	case *ast.Binary:
		w.walkExprEscaping(ex.Left, false)
		w.walkExprEscaping(ex.Right, false)
	case *ast.Unary:
		w.walkExprEscaping(ex.Operand, false)
	case *ast.Logical:
		w.walkExprEscaping(ex.Left, false)
		w.walkExprEscaping(ex.Right, false)
	case *ast.Conditional:
		w.walkExprEscaping(ex.Cond, false)
		w.walkExprEscaping(ex.Then, forceEscape)
		w.walkExprEscaping(ex.Else, forceEscape)
	case *ast.ListLit:
 // Elements stored into a heap-visible collection literal escape
 // per the step 4.
		for _, el := range ex.Elements {
			w.walkExprEscaping(el, true)
		}
	case *ast.MapLit:
		for _, entry := range ex.Entries {
			w.walkExprEscaping(entry.Value, true)
		}
	case *ast.Access:
		w.walkExprEscaping(ex.Receiver, false)
		w.walkExprEscaping(ex.Index, false)
	case *ast.Call:
 // Conservative: every call argument escapes (see escapeWalker doc).
		w.walkExprEscaping(ex.Callee, false)
		for _, a := range ex.Args {
			w.walkExprEscaping(a, true)
		}
		for _, n := range ex.Named {
			w.walkExprEscaping(n.Value, true)
		}
	case *ast.Closure:
 // Free variables captured by a nested closure escape from the
 // enclosing function's register window (step 4).
		captured := freeVariables(ex)
		for name := range captured {
			w.markEscaping(name)
		}
	case *ast.TemplateLit:
		for _, embed := range ex.Embeds {
			w.walkExprEscaping(embed, false)
		}
	case *ast.Range:
		w.walkExprEscaping(ex.Start, false)
		w.walkExprEscaping(ex.End, false)
	case *ast.StructLit:
		for _, f := range ex.Fields {
			w.walkExprEscaping(f.Value, true)
		}
	}
}

// freeVariables collects identifier names referenced in a closure body
// that are not one of its own parameters — a conservative over-approx of
// what it actually captures (it may include globals, which simply never
// match a slot in nameToSlot and are ignored harmlessly).
func freeVariables(c *ast.Closure) map[string]bool {
	bound := make(map[string]bool)
	for _, p := range c.Params {
		bound[p.Name] = true
	}
	for _, p := range c.NamedParams {
		bound[p.Name] = true
	}
	free := make(map[string]bool)
	var walkStmt func(ast.Stmt)
	var walkExpr func(ast.Expr)
	walkExpr = func(e ast.Expr) {
		if e == nil {
			return
		}
		switch ex := e.(type) {
		case *ast.Variable:
			if !bound[ex.Name] {
				free[ex.Name] = true
			}
		case *ast.Binary:
			walkExpr(ex.Left)
			walkExpr(ex.Right)
		case *ast.Unary:
			walkExpr(ex.Operand)
		case *ast.Logical:
			walkExpr(ex.Left)
			walkExpr(ex.Right)
		case *ast.Conditional:
			walkExpr(ex.Cond)
			walkExpr(ex.Then)
			walkExpr(ex.Else)
		case *ast.ListLit:
			for _, el := range ex.Elements {
				walkExpr(el)
			}
		case *ast.MapLit:
			for _, entry := range ex.Entries {
				walkExpr(entry.Value)
			}
		case *ast.Access:
			walkExpr(ex.Receiver)
			walkExpr(ex.Index)
		case *ast.Call:
			walkExpr(ex.Callee)
			for _, a := range ex.Args {
				walkExpr(a)
			}
		case *ast.Closure:
			for _, p := range ex.Params {
				bound[p.Name] = true
			}
			for _, s := range ex.Body {
				walkStmt(s)
			}
		}
	}
	walkStmt = func(s ast.Stmt) {
		switch st := s.(type) {
		case *ast.Let:
			walkExpr(st.Value)
			for _, n := range patternNames(st.Pat) {
				bound[n] = true
			}
		case *ast.Assign:
			walkExpr(st.Value)
		case *ast.Return:
			walkExpr(st.Value)
		case *ast.If:
			walkExpr(st.Cond)
			for _, b := range st.Then {
				walkStmt(b)
			}
			for _, b := range st.Else {
				walkStmt(b)
			}
		case *ast.While:
			walkExpr(st.Cond)
			for _, b := range st.Body {
				walkStmt(b)
			}
		case *ast.For:
			walkExpr(st.Iter)
			bound[st.VarName] = true
			for _, b := range st.Body {
				walkStmt(b)
			}
		case *ast.Block:
			for _, b := range st.Body {
				walkStmt(b)
			}
		case *ast.ExprStmt:
			walkExpr(st.X)
		}
	}
	for _, s := range c.Body {
		walkStmt(s)
	}
	return free
}
