// Package environment implements VmContext: a stack of scopes with a
// monotonic generation counter, const/mutable binding flags, a module
// resolver handle, and an optional type-checker handle. Grounded on
// internal/evaluator/environment.go's outer-chain Environment in the
// teacher, generalized with the const flag and generation counter that
// the teacher's own Environment does not carry.
package environment

import (
	"sync"

	"github.com/nyxlang/nyx/internal/value"
	"github.com/nyxlang/nyx/internal/vmerr"
)

type binding struct {
	val        value.Value
	isConst    bool
	generation uint64
}

type scope struct {
	names map[string]*binding
}

func newScope() *scope { return &scope{names: make(map[string]*binding)} }

// ModuleResolver is consumed only to satisfy import evaluation during
// program start; the core treats it as opaque.
type ModuleResolver interface {
	Resolve(path string) (value.Value, error)
}

// TypeChecker is populated only when the embedder requests strict
// diagnostics.
type TypeChecker interface {
	Check(name string, v value.Value) error
}

// VmContext is the environment the interpreter executes against.
// Grounded on internal/evaluator/environment.go's sync.RWMutex-guarded
// struct in the teacher.
type VmContext struct {
	mu     sync.RWMutex
	scopes []*scope

	// generation increments on every binding mutation and every scope
	// push/pop, so a cache filled against an older generation can
	// detect it has gone stale.
	generation uint64

	resolver    ModuleResolver
	typeChecker TypeChecker

	// CallDepth tracks call nesting ("Call-stack depth").
	CallDepth int
}

// New creates a VmContext with a single (global) scope.
func New() *VmContext {
	return &VmContext{scopes: []*scope{newScope()}}
}

func (c *VmContext) SetResolver(r ModuleResolver)     { c.resolver = r }
func (c *VmContext) Resolver() ModuleResolver         { return c.resolver }
func (c *VmContext) SetTypeChecker(tc TypeChecker)    { c.typeChecker = tc }
func (c *VmContext) TypeChecker() TypeChecker         { return c.typeChecker }

// Generation returns the current generation counter, used by the
// interpreter's GlobalIc to validate a cache fill.
func (c *VmContext) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

func (c *VmContext) bump() { c.generation++ }

// PushScope opens a new innermost scope; bindings added to it are
// invisible to, and cannot shadow, any scope pushed after it is popped.
func (c *VmContext) PushScope() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scopes = append(c.scopes, newScope())
	c.bump()
}

// PopScope closes the innermost scope, discarding names defined only
// within it.
func (c *VmContext) PopScope() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.scopes) > 1 {
		c.scopes = c.scopes[:len(c.scopes)-1]
	}
	c.bump()
}

// Define creates a new binding in the innermost scope, shadowing allowed
// ("define").
func (c *VmContext) Define(name string, v value.Value, isConst bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	innermost := c.scopes[len(c.scopes)-1]
	c.generation++
	innermost.names[name] = &binding{val: v, isConst: isConst, generation: c.generation}
}

// lookupLocked finds the nearest binding for name, innermost-first. Caller
// must hold c.mu.
func (c *VmContext) lookupLocked(name string) *binding {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if b, ok := c.scopes[i].names[name]; ok {
			return b
		}
	}
	return nil
}

// Get resolves name innermost-first.
func (c *VmContext) Get(name string) (value.Value, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b := c.lookupLocked(name)
	if b == nil {
		return value.Value{}, false
	}
	return b.val, true
}

// Set mutates the nearest mutable binding ("set"); fails if
// none exists (NameUnbound) or if the nearest is const (ConstAssignment).
func (c *VmContext) Set(name string, v value.Value) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	b := c.lookupLocked(name)
	if b == nil {
		return vmerr.New(vmerr.NameUnbound, "undefined name: %s", name)
	}
	if b.isConst {
		return vmerr.New(vmerr.ConstAssignment, "cannot assign to const binding: %s", name)
	}
	b.val = v
	c.generation++
	b.generation = c.generation
	return nil
}

// Remove deletes a binding from the innermost scope it is found in (used
// by some module-unload paths); it also bumps the generation counter.
func (c *VmContext) Remove(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if _, ok := c.scopes[i].names[name]; ok {
			delete(c.scopes[i].names, name)
			c.generation++
			return
		}
	}
}

// GenerationOf returns the generation recorded when name's binding was
// last written, and whether it is currently bound — used by GlobalIc to
// validate a cache entry more precisely than the coarse context-wide
// generation alone (GlobalIc: "(value, context generation)").
func (c *VmContext) GenerationOf(name string) (uint64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b := c.lookupLocked(name)
	if b == nil {
		return 0, false
	}
	return b.generation, true
}
