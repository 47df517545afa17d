package semindex_test

import (
	"testing"

	"github.com/tycore/tycore/internal/pyparse"
	"github.com/tycore/tycore/internal/semindex"
)

func parse(t *testing.T, src string) *semindex.SemanticIndex {
	t.Helper()
	parsed := pyparse.Parse("<test>", src)
	if len(parsed.Errors) > 0 {
		t.Fatalf("unexpected parse errors: %v", parsed.Errors)
	}
	return semindex.Build(parsed.Module)
}

func TestModuleScopeIsRootZero(t *testing.T) {
	idx := parse(t, "x = 1\n")
	if len(idx.Scopes) == 0 {
		t.Fatal("expected at least one scope")
	}
	if idx.Scopes[0].Kind != semindex.ScopeModule || idx.Scopes[0].Parent != semindex.NoScope {
		t.Fatalf("scope 0 must be the module scope with no parent, got %+v", idx.Scopes[0])
	}
}

func TestSymbolIDByNamePresenceInvariant(t *testing.T) {
	idx := parse(t, "x = 1\nprint(y)\n")
	mod := idx.SymbolTable(0)
	if _, ok := mod.SymbolIDByName("x"); !ok {
		t.Fatalf("expected symbol x to exist (it is defined)")
	}
	if _, ok := mod.SymbolIDByName("y"); !ok {
		t.Fatalf("expected symbol y to exist (it is used)")
	}
	if _, ok := mod.SymbolIDByName("z"); ok {
		t.Fatalf("did not expect symbol z to exist")
	}
}

func TestFunctionDefPushesFunctionScope(t *testing.T) {
	idx := parse(t, "def f(a, b):\n    return a + b\n")
	mod := idx.SymbolTable(0)
	fSym, ok := mod.SymbolIDByName("f")
	if !ok {
		t.Fatal("expected f defined in module scope")
	}
	if idx.Symbol(fSym).Flags&semindex.FlagDefined == 0 {
		t.Fatal("f should be marked DEFINED")
	}
	// There should be a function scope as a child of the module scope.
	found := false
	for _, child := range idx.Scopes[0].Children {
		if idx.Scopes[child].Kind == semindex.ScopeFunction && idx.Scopes[child].Name == "f" {
			found = true
			fnScope := idx.SymbolTable(child)
			if _, ok := fnScope.SymbolIDByName("a"); !ok {
				t.Fatal("expected parameter a defined in function scope")
			}
		}
	}
	if !found {
		t.Fatal("expected a function scope named f under the module scope")
	}
}

func TestClassDefPushesClassScope(t *testing.T) {
	idx := parse(t, "class C:\n    x = 1\n    def m(self):\n        pass\n")
	found := false
	for _, child := range idx.Scopes[0].Children {
		sc := idx.Scopes[child]
		if sc.Kind == semindex.ScopeClass && sc.Name == "C" {
			found = true
			st := idx.SymbolTable(child)
			if _, ok := st.SymbolIDByName("x"); !ok {
				t.Fatal("expected x defined in class scope")
			}
			if _, ok := st.SymbolIDByName("m"); !ok {
				t.Fatal("expected method m defined in class scope")
			}
		}
	}
	if !found {
		t.Fatal("expected a class scope named C")
	}
}

func TestDescendantRangeIsContiguous(t *testing.T) {
	idx := parse(t, "def f():\n    def g():\n        pass\n    return g\n")
	// Module scope's descendant range must cover every scope.
	mod := idx.Scopes[0]
	if mod.DescStart != 0 || int(mod.DescEnd) != len(idx.Scopes) {
		t.Fatalf("module descendant range = [%d,%d), want [0,%d)", mod.DescStart, mod.DescEnd, len(idx.Scopes))
	}
	for _, sc := range idx.Scopes {
		if !mod.ContainsScope(sc.DescStart) {
			t.Fatalf("scope %+v not contained in module's range", sc)
		}
	}
}

func TestImportBindingNames(t *testing.T) {
	idx := parse(t, "import os.path\nimport sys as s\nfrom a.b import c as d, e\n")
	mod := idx.SymbolTable(0)
	for _, want := range []string{"os", "s", "d", "e"} {
		if _, ok := mod.SymbolIDByName(want); !ok {
			t.Fatalf("expected import binding %q", want)
		}
	}
	if _, ok := mod.SymbolIDByName("path"); ok {
		t.Fatalf("plain `import os.path` must bind `os`, not `path`")
	}
}

func TestComprehensionHasOwnScope(t *testing.T) {
	idx := parse(t, "xs = [y for y in range(3)]\n")
	foundComp := false
	for _, sc := range idx.Scopes {
		if sc.Kind == semindex.ScopeComprehension {
			foundComp = true
			st := idx.SymbolTable(indexOf(idx, sc))
			if _, ok := st.SymbolIDByName("y"); !ok {
				t.Fatal("expected comprehension target y bound in comprehension scope")
			}
		}
	}
	if !foundComp {
		t.Fatal("expected a comprehension scope")
	}
}

func indexOf(idx *semindex.SemanticIndex, target semindex.Scope) semindex.ScopeID {
	for i, sc := range idx.Scopes {
		if sc.Name == target.Name && sc.Kind == target.Kind && sc.Parent == target.Parent {
			return semindex.ScopeID(i)
		}
	}
	return semindex.NoScope
}

func TestPEP695GenericFunctionHasAnnotationScope(t *testing.T) {
	idx := parse(t, "def f[T](x: T) -> T:\n    return x\n")
	found := false
	for _, sc := range idx.Scopes {
		if sc.Kind == semindex.ScopeAnnotation && sc.Name == "f" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected an annotation scope for PEP 695 type params")
	}
}

func TestStarArgsNameDoesNotCollideWithTypeVar(t *testing.T) {
	// spec.md §8: "A *args/**kwargs name that matches a PEP 695 typevar is
	// not resolved as the typevar." The typevar lives in the Annotation
	// scope; *args lives in the Function scope — they are distinct symbols
	// even though both are named "T".
	idx := parse(t, "def f[T](*T):\n    pass\n")
	var annotScope, fnScope semindex.ScopeID = semindex.NoScope, semindex.NoScope
	for i, sc := range idx.Scopes {
		if sc.Kind == semindex.ScopeAnnotation {
			annotScope = semindex.ScopeID(i)
		}
		if sc.Kind == semindex.ScopeFunction {
			fnScope = semindex.ScopeID(i)
		}
	}
	if annotScope == semindex.NoScope || fnScope == semindex.NoScope {
		t.Fatal("expected both an annotation scope and a function scope")
	}
	annotT, _ := idx.SymbolTable(annotScope).SymbolIDByName("T")
	fnT, _ := idx.SymbolTable(fnScope).SymbolIDByName("T")
	if annotT == fnT {
		t.Fatal("the *args name T must not resolve to the PEP 695 typevar T")
	}
}
