package usedef

import (
	"github.com/tycore/tycore/internal/pyast"
	"github.com/tycore/tycore/internal/semindex"
)

// Constraint is one narrowing predicate registered in a UseDefMap, keyed by
// the expression that tests it and whether this occurrence represents the
// predicate holding (Negated == false) or its complement (Negated == true,
// e.g. the else-branch of `if x is not None`).
type Constraint struct {
	Expr    pyast.Expr
	Negated bool
}

// UseDefMap is the complete per-scope result of Build: every reaching-
// definitions answer, keyed by the Name node at which the symbol was used.
type UseDefMap struct {
	Scope          semindex.ScopeID
	AllConstraints []Constraint
	uses           map[pyast.NodeKey]*SymbolState
}

// StateAt returns the reaching-definitions state recorded for a use site
// (the *pyast.Name node in load context), if the builder visited it.
func (u *UseDefMap) StateAt(useSite pyast.Node) (*SymbolState, bool) {
	s, ok := u.uses[pyast.KeyOf(useSite)]
	return s, ok
}

// Build computes the use-def map for one scope's statement list. Nested
// function/class/lambda/comprehension bodies are NOT walked here — each
// gets its own independent UseDefMap, built lazily per spec.md's demand-
// driven model (internal/engine calls Build once per scope it needs).
func Build(idx *semindex.SemanticIndex, scope semindex.ScopeID, body []pyast.Stmt) *UseDefMap {
	b := &builder{idx: idx, scope: scope, m: &UseDefMap{Scope: scope, uses: make(map[pyast.NodeKey]*SymbolState)}, cur: make(map[semindex.SymbolID]*SymbolState)}
	b.walkStmts(body)
	return b.m
}

// BuildExpr computes the use-def map for a scope whose body is a single
// expression (a Lambda body, or a comprehension element/key/value), after
// seeding the target bindings the caller has already introduced (e.g. a
// comprehension's `for` targets).
func BuildExpr(idx *semindex.SemanticIndex, scope semindex.ScopeID, seed map[semindex.SymbolID]*SymbolState, expr pyast.Expr) *UseDefMap {
	b := &builder{idx: idx, scope: scope, m: &UseDefMap{Scope: scope, uses: make(map[pyast.NodeKey]*SymbolState)}, cur: make(map[semindex.SymbolID]*SymbolState)}
	for sym, st := range seed {
		b.cur[sym] = st
	}
	b.walkExpr(expr)
	return b.m
}

type builder struct {
	idx   *semindex.SemanticIndex
	scope semindex.ScopeID
	m     *UseDefMap
	cur   map[semindex.SymbolID]*SymbolState
}

func (b *builder) stateFor(sym semindex.SymbolID) *SymbolState {
	s, ok := b.cur[sym]
	if !ok {
		s = NewSymbolState()
		s.AddUnbound()
		b.cur[sym] = s
	}
	return s
}

func (b *builder) bind(sym semindex.SymbolID, def DefID) {
	b.cur[sym] = With(def)
}

func (b *builder) symbolOf(name string) (semindex.SymbolID, bool) {
	return b.idx.SymbolTable(b.scope).SymbolIDByName(name)
}

func (b *builder) snapshot() map[semindex.SymbolID]*SymbolState {
	out := make(map[semindex.SymbolID]*SymbolState, len(b.cur))
	for k, v := range b.cur {
		out[k] = v.Clone()
	}
	return out
}

func (b *builder) restore(snap map[semindex.SymbolID]*SymbolState) {
	b.cur = snap
}

// mergeFrom replaces b.cur with the merge of snapshots a and c (the join at
// the end of an if/else, try/except, etc.), over the union of symbols known
// on either side.
func (b *builder) mergeFrom(a, c map[semindex.SymbolID]*SymbolState) {
	merged := make(map[semindex.SymbolID]*SymbolState, len(a)+len(c))
	for sym, sa := range a {
		if sc, ok := c[sym]; ok {
			merged[sym] = Merge(sa, sc)
		} else {
			unbound := sa.Clone()
			unbound.AddUnbound()
			merged[sym] = unbound
		}
	}
	for sym, sc := range c {
		if _, ok := a[sym]; !ok {
			unbound := sc.Clone()
			unbound.AddUnbound()
			merged[sym] = unbound
		}
	}
	b.cur = merged
}

func (b *builder) addConstraint(c Constraint) ConstraintID {
	id := ConstraintID(len(b.m.AllConstraints))
	b.m.AllConstraints = append(b.m.AllConstraints, c)
	return id
}

// applyConstraint adds constraint id to every definition of sym currently
// visible in b.cur.
func (b *builder) applyConstraint(sym semindex.SymbolID, id ConstraintID) {
	b.stateFor(sym).AddConstraint(id)
}

func (b *builder) walkStmts(stmts []pyast.Stmt) {
	for _, s := range stmts {
		b.walkStmt(s)
	}
}

func (b *builder) walkStmt(s pyast.Stmt) {
	switch t := s.(type) {
	case *pyast.FunctionDef, *pyast.ClassDef:
		// Nested scopes: the def/class *name* is bound in the current
		// scope, but the body is a separate use-def map built on demand.
		name, node := declNameNode(t)
		if sym, ok := b.symbolOf(name); ok {
			if defID, ok := b.defIDFor(node, sym); ok {
				b.bind(sym, defID)
			}
		}
	case *pyast.Return:
		b.walkExprMaybe(t.Value)
	case *pyast.Assign:
		b.walkExpr(t.Value)
		for _, tgt := range t.Targets {
			b.walkAssignTarget(tgt, t)
		}
	case *pyast.AnnAssign:
		b.walkExpr(t.Annotation)
		b.walkExprMaybe(t.Value)
		// A bare `x: int` with no value is a declaration, not a binding: it
		// does not reach a later use the way `x: int = 0` does.
		if t.Value != nil {
			b.walkAssignTarget(t.Target, t)
		}
	case *pyast.AugAssign:
		b.walkExpr(t.Target)
		b.walkExpr(t.Value)
		if name, ok := t.Target.(*pyast.Name); ok {
			if sym, ok := b.symbolOf(name.Id); ok {
				if defID, ok := b.defIDFor(t, sym); ok {
					b.bind(sym, defID)
				}
			}
		}
	case *pyast.ExprStmt:
		b.walkExpr(t.Value)
	case *pyast.Delete:
		for _, e := range t.Targets {
			b.walkExpr(e)
			if name, ok := e.(*pyast.Name); ok {
				if sym, ok := b.symbolOf(name.Id); ok {
					unbound := NewSymbolState()
					unbound.AddUnbound()
					b.cur[sym] = unbound
				}
			}
		}
	case *pyast.If:
		b.walkExpr(t.Test)
		thenConstraint, elseConstraint, narrowedSym, ok := constraintFromTest(b, t.Test)
		pre := b.snapshot()

		if ok {
			b.applyConstraint(narrowedSym, thenConstraint)
		}
		b.walkStmts(t.Body)
		thenSnap := b.snapshot()

		b.restore(pre)
		if ok {
			b.applyConstraint(narrowedSym, elseConstraint)
		}
		b.walkStmts(t.Orelse)
		elseSnap := b.snapshot()

		b.mergeFrom(thenSnap, elseSnap)
	case *pyast.While:
		b.walkExpr(t.Test)
		pre := b.snapshot()
		b.walkStmts(t.Body)
		afterBody := b.snapshot()
		b.mergeFrom(pre, afterBody)
		b.walkStmts(t.Orelse)
	case *pyast.For:
		b.walkExpr(t.Iter)
		pre := b.snapshot()
		b.walkAssignTarget(t.Target, t)
		b.walkStmts(t.Body)
		afterBody := b.snapshot()
		b.mergeFrom(pre, afterBody)
		b.walkStmts(t.Orelse)
	case *pyast.Try:
		pre := b.snapshot()
		b.walkStmts(t.Body)
		bodySnap := b.snapshot()
		snaps := []map[semindex.SymbolID]*SymbolState{bodySnap}
		for _, h := range t.Handlers {
			b.restore(clonedSnap(pre))
			if h.Type != nil {
				b.walkExpr(*h.Type)
			}
			if h.Name != "" {
				if sym, ok := b.symbolOf(h.Name); ok {
					if defID, ok := b.defIDFor(h, sym); ok {
						b.bind(sym, defID)
					}
				}
			}
			b.walkStmts(h.Body)
			snaps = append(snaps, b.snapshot())
		}
		merged := snaps[0]
		for _, s := range snaps[1:] {
			b.cur = merged
			b.mergeFrom(merged, s)
			merged = b.cur
		}
		b.cur = merged
		b.walkStmts(t.Orelse)
		b.walkStmts(t.Finalbody)
	case *pyast.With:
		for _, item := range t.Items {
			b.walkExpr(item.ContextExpr)
			if item.OptionalVar != nil {
				b.walkAssignTarget(item.OptionalVar, item)
			}
		}
		b.walkStmts(t.Body)
	case *pyast.Import:
		for i, alias := range t.Names {
			bound := alias.AsName
			if bound == "" {
				bound = alias.Name
			}
			if sym, ok := b.symbolOf(firstDotted(bound)); ok {
				if defID, ok := b.defIDForImportAlias(t, i); ok {
					b.bind(sym, defID)
				}
			}
		}
	case *pyast.ImportFrom:
		for i, alias := range t.Names {
			bound := alias.AsName
			if bound == "" {
				bound = alias.Name
			}
			if sym, ok := b.symbolOf(bound); ok {
				if defID, ok := b.defIDForImportFromName(t, i); ok {
					b.bind(sym, defID)
				}
			}
		}
	case *pyast.Raise:
		b.walkExprMaybe(t.Exc)
		b.walkExprMaybe(t.Cause)
	case *pyast.Assert:
		b.walkExpr(t.Test)
		b.walkExprMaybe(t.Msg)
	case *pyast.TypeAliasStmt:
		b.walkExpr(t.Value)
		if sym, ok := b.symbolOf(t.Name); ok {
			if defID, ok := b.defIDFor(t, sym); ok {
				b.bind(sym, defID)
			}
		}
	case *pyast.Match:
		b.walkExpr(t.Subject)
		pre := b.snapshot()
		var snaps []map[semindex.SymbolID]*SymbolState
		for _, c := range t.Cases {
			b.restore(clonedSnap(pre))
			b.bindPattern(c.Pattern, c)
			b.walkExprMaybe(c.Guard)
			b.walkStmts(c.Body)
			snaps = append(snaps, b.snapshot())
		}
		if len(snaps) > 0 {
			merged := snaps[0]
			for _, s := range snaps[1:] {
				b.cur = merged
				b.mergeFrom(merged, s)
				merged = b.cur
			}
			b.cur = merged
		} else {
			b.restore(pre)
		}
	}
}

func (b *builder) bindPattern(p pyast.Pattern, creator pyast.Node) {
	switch t := p.(type) {
	case *pyast.PatternCapture:
		if t.Name != "" {
			if sym, ok := b.symbolOf(t.Name); ok {
				if defID, ok := b.defIDFor(creator, sym); ok {
					b.bind(sym, defID)
				}
			}
		}
		if t.SubPattern != nil {
			b.bindPattern(t.SubPattern, creator)
		}
	case *pyast.PatternValue:
		if t.StarName != "" {
			if sym, ok := b.symbolOf(t.StarName); ok {
				if defID, ok := b.defIDFor(creator, sym); ok {
					b.bind(sym, defID)
				}
			}
		}
		for _, sub := range t.SubNodes {
			b.bindPattern(sub, creator)
		}
	}
}

func clonedSnap(s map[semindex.SymbolID]*SymbolState) map[semindex.SymbolID]*SymbolState {
	out := make(map[semindex.SymbolID]*SymbolState, len(s))
	for k, v := range s {
		out[k] = v.Clone()
	}
	return out
}

func (b *builder) walkAssignTarget(target pyast.Expr, creator pyast.Node) {
	switch t := target.(type) {
	case *pyast.Name:
		if sym, ok := b.symbolOf(t.Id); ok {
			if defID, ok := b.defIDFor(creator, sym); ok {
				b.bind(sym, defID)
			}
		}
	case *pyast.Starred:
		b.walkAssignTarget(t.Value, creator)
	case *pyast.TupleExpr:
		for _, e := range t.Elts {
			b.walkAssignTarget(e, creator)
		}
	case *pyast.List:
		for _, e := range t.Elts {
			b.walkAssignTarget(e, creator)
		}
	case *pyast.Attribute:
		b.walkExpr(t.Value)
	case *pyast.Subscript:
		b.walkExpr(t.Value)
		b.walkExpr(t.Slice)
	}
}

// defIDFor finds the DefinitionID that semindex recorded for (node, sym),
// restricted to a linear scan over the scope's definitions — scopes are
// small enough in practice that this avoids building a second reverse
// index solely for use-def construction.
//
// sym disambiguates destructuring targets: `a, b = 1, 2` records two
// Definitions that share the same creator Node (the Assign statement) but
// different Symbol, so matching on Node alone would bind both names to
// whichever definition happens to come first.
func (b *builder) defIDFor(node pyast.Node, sym semindex.SymbolID) (DefID, bool) {
	key := pyast.KeyOf(node)
	for i, d := range b.idx.Definitions {
		if d.Scope == b.scope && d.Symbol == sym && pyast.KeyOf(d.Node) == key {
			return DefID(i), true
		}
	}
	return 0, false
}

// defIDForImportAlias finds the Definition recorded for the i'th alias of
// an Import statement (distinct aliases on the same statement share a Node
// but carry distinct AliasIndex values).
func (b *builder) defIDForImportAlias(stmt pyast.Node, aliasIndex int) (DefID, bool) {
	key := pyast.KeyOf(stmt)
	for i, d := range b.idx.Definitions {
		if d.Scope == b.scope && d.Kind == semindex.DefImport && pyast.KeyOf(d.Node) == key && d.AliasIndex == aliasIndex {
			return DefID(i), true
		}
	}
	return 0, false
}

// defIDForImportFromName is defIDForImportAlias's ImportFrom counterpart,
// keyed by NameIndex.
func (b *builder) defIDForImportFromName(stmt pyast.Node, nameIndex int) (DefID, bool) {
	key := pyast.KeyOf(stmt)
	for i, d := range b.idx.Definitions {
		if d.Scope == b.scope && d.Kind == semindex.DefImportFrom && pyast.KeyOf(d.Node) == key && d.NameIndex == nameIndex {
			return DefID(i), true
		}
	}
	return 0, false
}

func (b *builder) walkExprMaybe(e pyast.Expr) {
	if e != nil {
		b.walkExpr(e)
	}
}

func (b *builder) walkExpr(e pyast.Expr) {
	if e == nil {
		return
	}
	switch t := e.(type) {
	case *pyast.Name:
		if t.Ctx == pyast.CtxLoad {
			if sym, ok := b.symbolOf(t.Id); ok {
				b.m.uses[pyast.KeyOf(t)] = b.stateFor(sym).Clone()
			}
		}
	case *pyast.JoinedStr:
		for _, v := range t.FormattedValues {
			b.walkExpr(v)
		}
	case *pyast.BinOp:
		b.walkExpr(t.Left)
		b.walkExpr(t.Right)
	case *pyast.BoolOp:
		for _, v := range t.Values {
			b.walkExpr(v)
		}
	case *pyast.UnaryOp:
		b.walkExpr(t.Operand)
	case *pyast.Compare:
		b.walkExpr(t.Left)
		for _, v := range t.Comparators {
			b.walkExpr(v)
		}
	case *pyast.Call:
		b.walkExpr(t.Func)
		for _, a := range t.Args {
			b.walkExpr(a)
		}
		for _, k := range t.Keywords {
			b.walkExpr(k.Value)
		}
	case *pyast.Attribute:
		b.walkExpr(t.Value)
	case *pyast.Subscript:
		b.walkExpr(t.Value)
		b.walkExpr(t.Slice)
	case *pyast.Slice:
		b.walkExprMaybe(t.Lower)
		b.walkExprMaybe(t.Upper)
		b.walkExprMaybe(t.Step)
	case *pyast.Starred:
		b.walkExpr(t.Value)
	case *pyast.List:
		for _, v := range t.Elts {
			b.walkExpr(v)
		}
	case *pyast.TupleExpr:
		for _, v := range t.Elts {
			b.walkExpr(v)
		}
	case *pyast.SetExpr:
		for _, v := range t.Elts {
			b.walkExpr(v)
		}
	case *pyast.DictExpr:
		for i, v := range t.Values {
			if i < len(t.Keys) && t.Keys[i] != nil {
				b.walkExpr(t.Keys[i])
			}
			b.walkExpr(v)
		}
	case *pyast.IfExp:
		b.walkExpr(t.Test)
		b.walkExpr(t.Body)
		b.walkExpr(t.Orelse)
	case *pyast.NamedExpr:
		b.walkExpr(t.Value)
		if sym, ok := b.symbolOf(t.Target.Id); ok {
			if defID, ok := b.defIDFor(t, sym); ok {
				b.bind(sym, defID)
			}
		}
	case *pyast.Yield:
		b.walkExprMaybe(t.Value)
	case *pyast.YieldFrom:
		b.walkExpr(t.Value)
	case *pyast.Await:
		b.walkExpr(t.Value)
	// ListComp/SetComp/DictComp/GeneratorExp/Lambda introduce their own
	// scope; their reaching-definitions are computed independently, so
	// the outer walk only needs to descend into the *outermost* iterable,
	// which is evaluated in this scope (mirrors internal/semindex's
	// scope builder).
	case *pyast.ListComp:
		b.walkOutermostIter(t.Gens)
	case *pyast.SetComp:
		b.walkOutermostIter(t.Gens)
	case *pyast.DictComp:
		b.walkOutermostIter(t.Gens)
	case *pyast.GeneratorExp:
		b.walkOutermostIter(t.Gens)
	case *pyast.Lambda:
		for _, p := range t.Params {
			b.walkExprMaybe(p.Default)
		}
	}
}

func (b *builder) walkOutermostIter(gens []*pyast.Comprehension) {
	if len(gens) > 0 {
		b.walkExpr(gens[0].Iter)
	}
}

func declNameNode(s pyast.Stmt) (string, pyast.Node) {
	switch t := s.(type) {
	case *pyast.FunctionDef:
		return t.Name, t
	case *pyast.ClassDef:
		return t.Name, t
	}
	return "", s
}

func firstDotted(name string) string {
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			return name[:i]
		}
	}
	return name
}
