package interp

import (
	"testing"

	"github.com/nyxlang/nyx/internal/code"
	"github.com/nyxlang/nyx/internal/environment"
	"github.com/nyxlang/nyx/internal/value"
)

func TestPolyCacheFillLookupAndEvict(t *testing.T) {
	c := newPolyCache()
	if _, ok := c.lookup(1, 1); ok {
		t.Fatal("lookup on an empty cache should miss")
	}

	c.fill(1, 1, "a")
	c.fill(2, 2, "b")
	c.fill(3, 3, "c")
	c.fill(4, 4, "d")

	if v, ok := c.lookup(2, 2); !ok || v != "b" {
		t.Fatalf("lookup(2,2) = %v, %v", v, ok)
	}

	// All 4 slots are full; a 5th fill must evict the least recently used
	// one, which is (1,1) since (2,2) was just promoted by the lookup above.
	c.fill(5, 5, "e")
	if _, ok := c.lookup(1, 1); ok {
		t.Fatal("(1,1) should have been evicted as least recently used")
	}
	if v, ok := c.lookup(2, 2); !ok || v != "b" {
		t.Fatalf("(2,2) should have survived eviction, got %v, %v", v, ok)
	}
	if v, ok := c.lookup(5, 5); !ok || v != "e" {
		t.Fatalf("(5,5) should be present after fill, got %v, %v", v, ok)
	}
}

func globalLoadFn(name string) *code.Function {
	fn := &code.Function{Name: "<globaltest>", NRegs: 1}
	nameIdx := int32(len(fn.Consts))
	fn.Consts = append(fn.Consts, value.FromObject(&value.Str{S: name}))
	fn.Code = append(fn.Code, code.Inst{Op: code.OpLoadGlobal, Dst: 0, Aux: nameIdx})
	fn.Code = append(fn.Code, code.Inst{Op: code.OpReturn, A: code.Reg(0)})
	return fn
}

// TestGlobalCacheGenerationSoundness is the generation-soundness property
// of spec: a global-load cache hit returns the same value a fresh lookup
// in the current context would return, even across a context mutation
// between two executions of the same call site.
func TestGlobalCacheGenerationSoundness(t *testing.T) {
	ctx := environment.New()
	ctx.Define("g", value.Int(1), false)
	vm := New(ctx)
	fn := globalLoadFn("g")

	got, err := vm.Run(fn)
	if err != nil {
		t.Fatal(err)
	}
	if got.AsInt() != 1 {
		t.Fatalf("first run = %d, want 1", got.AsInt())
	}

	if err := ctx.Set("g", value.Int(2)); err != nil {
		t.Fatal(err)
	}

	got2, err := vm.Run(fn)
	if err != nil {
		t.Fatal(err)
	}
	if got2.AsInt() != 2 {
		t.Fatalf("second run = %d, want 2 (cache returned a stale value)", got2.AsInt())
	}
}
