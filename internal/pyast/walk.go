package pyast

// Walk performs a pre-order traversal of n, invoking visit on every node
// including n itself. Children are visited in the fixed order of the cases
// below, which follows the source except that a def's or class's
// decorators come after its signature or bases, and an IfExp's test comes
// before its body. If visit returns false the node's children are skipped
// (but traversal continues with siblings). This package's NodeIndex
// builder (BuildIndex) uses Walk; internal/semindex has its own descent.
func Walk(n Node, visit func(Node) bool) {
	if n == nil || !visit(n) {
		return
	}
	switch t := n.(type) {
	case *Module:
		walkStmts(t.Body, visit)
	case *TypeParam:
		walkExpr(t.Bound, visit)
		walkExpr(t.Default, visit)

	case *FunctionDef:
		for _, tp := range t.TypeParams {
			Walk(tp, visit)
		}
		for _, p := range t.Params {
			Walk(p, visit)
		}
		walkExpr(t.Returns, visit)
		for _, d := range t.Decorators {
			walkExpr(d, visit)
		}
		walkStmts(t.Body, visit)
	case *Param:
		walkExpr(t.Annotation, visit)
		walkExpr(t.Default, visit)
	case *ClassDef:
		for _, tp := range t.TypeParams {
			Walk(tp, visit)
		}
		for _, b := range t.Bases {
			walkExpr(b, visit)
		}
		for _, k := range t.Keywords {
			Walk(k, visit)
		}
		for _, d := range t.Decorators {
			walkExpr(d, visit)
		}
		walkStmts(t.Body, visit)
	case *Keyword:
		walkExpr(t.Value, visit)
	case *Return:
		walkExpr(t.Value, visit)
	case *Assign:
		for _, tgt := range t.Targets {
			walkExpr(tgt, visit)
		}
		walkExpr(t.Value, visit)
	case *AnnAssign:
		walkExpr(t.Target, visit)
		walkExpr(t.Annotation, visit)
		walkExpr(t.Value, visit)
	case *AugAssign:
		walkExpr(t.Target, visit)
		walkExpr(t.Value, visit)
	case *ExprStmt:
		walkExpr(t.Value, visit)
	case *Pass, *Break, *Continue:
		// leaves
	case *Delete:
		for _, e := range t.Targets {
			walkExpr(e, visit)
		}
	case *Global, *Nonlocal:
		// leaves (name lists have no sub-nodes)
	case *If:
		walkExpr(t.Test, visit)
		walkStmts(t.Body, visit)
		walkStmts(t.Orelse, visit)
	case *While:
		walkExpr(t.Test, visit)
		walkStmts(t.Body, visit)
		walkStmts(t.Orelse, visit)
	case *For:
		walkExpr(t.Target, visit)
		walkExpr(t.Iter, visit)
		walkStmts(t.Body, visit)
		walkStmts(t.Orelse, visit)
	case *Try:
		walkStmts(t.Body, visit)
		for _, h := range t.Handlers {
			Walk(h, visit)
		}
		walkStmts(t.Orelse, visit)
		walkStmts(t.Finalbody, visit)
	case *ExceptHandler:
		if t.Type != nil {
			walkExpr(*t.Type, visit)
		}
		walkStmts(t.Body, visit)
	case *With:
		for _, item := range t.Items {
			Walk(item, visit)
		}
		walkStmts(t.Body, visit)
	case *WithItem:
		walkExpr(t.ContextExpr, visit)
		walkExpr(t.OptionalVar, visit)
	case *ImportAlias:
		// leaf
	case *Import:
		for _, a := range t.Names {
			Walk(a, visit)
		}
	case *ImportFrom:
		for _, a := range t.Names {
			Walk(a, visit)
		}
	case *Raise:
		walkExpr(t.Exc, visit)
		walkExpr(t.Cause, visit)
	case *Assert:
		walkExpr(t.Test, visit)
		walkExpr(t.Msg, visit)
	case *TypeAliasStmt:
		for _, tp := range t.TypeParams {
			Walk(tp, visit)
		}
		walkExpr(t.Value, visit)
	case *Match:
		walkExpr(t.Subject, visit)
		for _, c := range t.Cases {
			Walk(c, visit)
		}
	case *MatchCase:
		if t.Pattern != nil {
			Walk(t.Pattern, visit)
		}
		walkExpr(t.Guard, visit)
		walkStmts(t.Body, visit)
	case *PatternCapture:
		if t.SubPattern != nil {
			Walk(t.SubPattern, visit)
		}
	case *PatternValue:
		walkExpr(t.ClassExpr, visit)
		for _, sn := range t.SubNodes {
			Walk(sn, visit)
		}

	case *Name, *Constant:
		// leaves
	case *JoinedStr:
		for _, e := range t.FormattedValues {
			walkExpr(e, visit)
		}
	case *BinOp:
		walkExpr(t.Left, visit)
		walkExpr(t.Right, visit)
	case *BoolOp:
		for _, e := range t.Values {
			walkExpr(e, visit)
		}
	case *UnaryOp:
		walkExpr(t.Operand, visit)
	case *Compare:
		walkExpr(t.Left, visit)
		for _, e := range t.Comparators {
			walkExpr(e, visit)
		}
	case *Call:
		walkExpr(t.Func, visit)
		for _, a := range t.Args {
			walkExpr(a, visit)
		}
		for _, k := range t.Keywords {
			Walk(k, visit)
		}
	case *Attribute:
		walkExpr(t.Value, visit)
	case *Subscript:
		walkExpr(t.Value, visit)
		walkExpr(t.Slice, visit)
	case *Slice:
		walkExpr(t.Lower, visit)
		walkExpr(t.Upper, visit)
		walkExpr(t.Step, visit)
	case *Starred:
		walkExpr(t.Value, visit)
	case *List:
		for _, e := range t.Elts {
			walkExpr(e, visit)
		}
	case *TupleExpr:
		for _, e := range t.Elts {
			walkExpr(e, visit)
		}
	case *SetExpr:
		for _, e := range t.Elts {
			walkExpr(e, visit)
		}
	case *DictExpr:
		for i := range t.Values {
			if i < len(t.Keys) {
				walkExpr(t.Keys[i], visit)
			}
			walkExpr(t.Values[i], visit)
		}
	case *ListComp:
		walkExpr(t.Elt, visit)
		walkComprehensions(t.Gens, visit)
	case *SetComp:
		walkExpr(t.Elt, visit)
		walkComprehensions(t.Gens, visit)
	case *DictComp:
		walkExpr(t.Key, visit)
		walkExpr(t.Value, visit)
		walkComprehensions(t.Gens, visit)
	case *GeneratorExp:
		walkExpr(t.Elt, visit)
		walkComprehensions(t.Gens, visit)
	case *Lambda:
		for _, p := range t.Params {
			Walk(p, visit)
		}
		walkExpr(t.Body, visit)
	case *IfExp:
		walkExpr(t.Test, visit)
		walkExpr(t.Body, visit)
		walkExpr(t.Orelse, visit)
	case *NamedExpr:
		walkExpr(t.Target, visit)
		walkExpr(t.Value, visit)
	case *Yield:
		walkExpr(t.Value, visit)
	case *YieldFrom:
		walkExpr(t.Value, visit)
	case *Await:
		walkExpr(t.Value, visit)
	}
}

func walkStmts(stmts []Stmt, visit func(Node) bool) {
	for _, s := range stmts {
		Walk(s, visit)
	}
}

func walkExpr(e Expr, visit func(Node) bool) {
	if e == nil {
		return
	}
	Walk(e, visit)
}

func walkComprehensions(gens []*Comprehension, visit func(Node) bool) {
	for _, g := range gens {
		walkExpr(g.Target, visit)
		walkExpr(g.Iter, visit)
		for _, c := range g.Ifs {
			walkExpr(c, visit)
		}
	}
}
