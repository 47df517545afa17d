package usedef_test

import (
	"testing"

	"github.com/tycore/tycore/internal/pyast"
	"github.com/tycore/tycore/internal/pyparse"
	"github.com/tycore/tycore/internal/semindex"
	"github.com/tycore/tycore/internal/usedef"
)

func mustParse(t *testing.T, src string) *pyast.Module {
	t.Helper()
	parsed := pyparse.Parse("<test>", src)
	if len(parsed.Errors) > 0 {
		t.Fatalf("unexpected parse errors: %v", parsed.Errors)
	}
	return parsed.Module
}

// findUse locates the n'th Name load of ident in program source order,
// across the whole tree (tests that need a nested scope's use still look
// it up this way; the scope the use-def map was built for is what matters).
func findUse(mod *pyast.Module, ident string, occurrence int) pyast.Expr {
	var found pyast.Expr
	count := 0
	pyast.Walk(mod, func(n pyast.Node) bool {
		if name, ok := n.(*pyast.Name); ok && name.Id == ident && name.Ctx == pyast.CtxLoad {
			if count == occurrence {
				found = name
			}
			count++
		}
		return true
	})
	return found
}

// firstFunctionDef locates the first FunctionDef statement in mod's
// top-level body.
func firstFunctionDef(mod *pyast.Module) *pyast.FunctionDef {
	for _, s := range mod.Body {
		if fn, ok := s.(*pyast.FunctionDef); ok {
			return fn
		}
	}
	return nil
}

func scopeNamed(idx *semindex.SemanticIndex, kind semindex.ScopeKind, name string) semindex.ScopeID {
	for i, sc := range idx.Scopes {
		if sc.Kind == kind && sc.Name == name {
			return semindex.ScopeID(i)
		}
	}
	return semindex.NoScope
}

func TestNarrowingScenario(t *testing.T) {
	// spec.md §8 end-to-end scenario 4.
	src := "x = get()\n" +
		"if x is not None:\n" +
		"    y = x + 1\n" +
		"else:\n" +
		"    y = 0\n" +
		"z = y\n"
	mod := mustParse(t, src)
	idx := semindex.Build(mod)
	m := usedef.Build(idx, 0, mod.Body)

	xUse := findUse(mod, "x", 1) // occurrence 0 is the x in the if test (Walk visits the test first); occurrence 1 is `x + 1` inside the if-body
	if xUse == nil {
		t.Fatal("expected to find a use of x")
	}
	state, ok := m.StateAt(xUse)
	if !ok {
		t.Fatal("expected a recorded state for the use of x")
	}
	if len(state.VisibleDefs()) != 1 {
		t.Fatalf("expected exactly one visible definition of x at `x + 1`, got %d", len(state.VisibleDefs()))
	}
	def := state.VisibleDefs()[0]
	constraints := state.ConstraintsFor(def)
	if constraints.Count() != 1 {
		t.Fatalf("expected a single narrowing constraint on x, got %d", constraints.Count())
	}

	yUse := findUse(mod, "y", 0) // `z = y`
	if yUse == nil {
		t.Fatal("expected to find a use of y")
	}
	yState, ok := m.StateAt(yUse)
	if !ok {
		t.Fatal("expected a recorded state for the use of y")
	}
	if len(yState.VisibleDefs()) != 2 {
		t.Fatalf("expected two visible definitions of y after the if/else join, got %d", len(yState.VisibleDefs()))
	}
	for _, d := range yState.VisibleDefs() {
		if !yState.ConstraintsFor(d).IsEmpty() {
			t.Fatalf("definitions of y reaching the join must have no narrowing constraints left (each side's predicate is irrelevant once both paths converge)")
		}
	}
	if yState.MayBeUnbound {
		t.Fatal("y is assigned on both branches, must not be may-be-unbound")
	}
	if !state.Invariant() || !yState.Invariant() {
		t.Fatal("SymbolState invariant must hold")
	}
}

func TestSymbolStateInvariantHoldsInsideFunctionBody(t *testing.T) {
	src := "def f(a):\n" +
		"    if a:\n" +
		"        b = 1\n" +
		"    else:\n" +
		"        b = 2\n" +
		"    print(b)\n"
	mod := mustParse(t, src)
	idx := semindex.Build(mod)
	fn := firstFunctionDef(mod)
	fnScope := scopeNamed(idx, semindex.ScopeFunction, "f")
	if fnScope == semindex.NoScope {
		t.Fatal("expected a function scope for f")
	}
	m := usedef.Build(idx, fnScope, fn.Body)

	use := findUse(mod, "b", 0) // the only load of b is `print(b)`
	st, ok := m.StateAt(use)
	if !ok {
		t.Fatal("expected recorded state for b")
	}
	if !st.Invariant() {
		t.Fatalf("SymbolState invariant violated: %+v", st)
	}
	if st.MayBeUnbound {
		t.Fatal("b is assigned on both branches, must not be may-be-unbound")
	}
	if len(st.VisibleDefs()) != 2 {
		t.Fatalf("expected two visible definitions of b, got %d", len(st.VisibleDefs()))
	}
}

func TestUnconditionallyAssignedSymbolIsNeverMayBeUnbound(t *testing.T) {
	src := "x = 1\nprint(x)\n"
	mod := mustParse(t, src)
	idx := semindex.Build(mod)
	m := usedef.Build(idx, 0, mod.Body)
	use := findUse(mod, "x", 0)
	st, ok := m.StateAt(use)
	if !ok {
		t.Fatal("expected recorded state")
	}
	if st.MayBeUnbound {
		t.Fatal("x is unconditionally assigned before use, must not be may-be-unbound")
	}
}

func TestMaybeUnboundWhenOnlyConditionallyAssigned(t *testing.T) {
	src := "if cond():\n" +
		"    x = 1\n" +
		"print(x)\n"
	mod := mustParse(t, src)
	idx := semindex.Build(mod)
	m := usedef.Build(idx, 0, mod.Body)
	use := findUse(mod, "x", 0) // the store target is Ctx Store, not counted; this is the load in print(x)
	st, ok := m.StateAt(use)
	if !ok {
		t.Fatal("expected recorded state")
	}
	if !st.MayBeUnbound {
		t.Fatal("x is only conditionally assigned, must be may-be-unbound at the later use")
	}
}

func TestForLoopTargetBecomesMayBeUnboundAfterLoop(t *testing.T) {
	src := "for x in range(3):\n" +
		"    pass\n" +
		"print(x)\n"
	mod := mustParse(t, src)
	idx := semindex.Build(mod)
	m := usedef.Build(idx, 0, mod.Body)
	use := findUse(mod, "x", 0)
	st, ok := m.StateAt(use)
	if !ok {
		t.Fatal("expected recorded state")
	}
	if !st.MayBeUnbound {
		t.Fatal("a for-loop target may be unbound after the loop if the iterable was empty")
	}
}

func TestTryExceptJoinMergesHandlerAndBody(t *testing.T) {
	src := "try:\n" +
		"    x = risky()\n" +
		"except ValueError:\n" +
		"    x = 0\n" +
		"print(x)\n"
	mod := mustParse(t, src)
	idx := semindex.Build(mod)
	m := usedef.Build(idx, 0, mod.Body)
	use := findUse(mod, "x", 0)
	st, ok := m.StateAt(use)
	if !ok {
		t.Fatal("expected recorded state")
	}
	if len(st.VisibleDefs()) != 2 {
		t.Fatalf("expected both the try-body and handler assignments to be visible, got %d", len(st.VisibleDefs()))
	}
}
